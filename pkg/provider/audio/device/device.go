// Package device provides an [audio.Source] backed by a raw PCM capture
// stream on the local filesystem, typically a FIFO fed by arecord or a
// capture sidecar:
//
//	mkfifo /tmp/speakup-capture
//	arecord -f S16_LE -r 16000 -c 1 /tmp/speakup-capture
//
// The source reads signed 16-bit little-endian mono PCM and reduces each
// interval's worth of samples to a single dBFS loudness reading. Raw PCM
// never leaves this package; the rest of the pipeline only sees the level
// envelope.
package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/audio"
)

// Compile-time interface checks.
var (
	_ audio.Source        = (*Source)(nil)
	_ audio.SessionHandle = (*handle)(nil)
)

const (
	defaultSampleRate = 16000
	defaultInterval   = 100 * time.Millisecond

	// silenceFloor is the level reported for an all-zero window. 16-bit PCM
	// cannot resolve anything quieter than roughly -96 dBFS.
	silenceFloor = -96.0
)

// Source opens level subscriptions over a PCM capture path. One Source can
// serve multiple sequential sessions; each Start reopens the path.
type Source struct {
	path   string
	logger *slog.Logger
}

// Option configures a [Source].
type Option func(*Source)

// WithLogger sets the logger used for stream lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// New creates a Source reading PCM from the given path.
func New(path string, opts ...Option) (*Source, error) {
	if path == "" {
		return nil, errors.New("device: capture path is required")
	}
	s := &Source{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start implements [audio.Source]. It opens the capture path and begins
// reducing PCM windows to loudness samples until the stream ends, the
// context is cancelled, or the handle is closed.
func (s *Source) Start(ctx context.Context, cfg audio.StreamConfig) (audio.SessionHandle, error) {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = defaultSampleRate
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("device: open capture path: %w", err)
	}

	h := &handle{
		ch:     make(chan audio.Sample, 64),
		closer: f,
		done:   make(chan struct{}),
	}
	go s.pump(ctx, f, h, rate, interval)
	return h, nil
}

// pump reads one interval's worth of PCM at a time and emits its RMS level.
func (s *Source) pump(ctx context.Context, r io.Reader, h *handle, rate int, interval time.Duration) {
	defer h.finish()

	windowSamples := int(float64(rate) * interval.Seconds())
	if windowSamples < 1 {
		windowSamples = 1
	}
	buf := make([]byte, windowSamples*2)

	var ts time.Duration
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := io.ReadFull(r, buf)
		if n >= 2 {
			ts += interval
			sample := audio.Sample{Timestamp: ts, Decibels: levelDB(buf[:n-n%2])}
			select {
			case h.ch <- sample:
			case <-ctx.Done():
				return
			case <-h.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, os.ErrClosed) {
				s.logger.Warn("capture stream error", "path", s.path, "err", err)
			}
			return
		}
	}
}

// levelDB reduces a window of 16-bit little-endian PCM to dBFS.
func levelDB(pcm []byte) float64 {
	var sum float64
	n := len(pcm) / 2
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += v * v
	}
	if n == 0 || sum == 0 {
		return silenceFloor
	}
	rms := math.Sqrt(sum / float64(n))
	db := 20 * math.Log10(rms/math.MaxInt16)
	if db < silenceFloor {
		db = silenceFloor
	}
	return db
}

type handle struct {
	ch     chan audio.Sample
	closer io.Closer

	once sync.Once
	done chan struct{}
}

func (h *handle) Samples() <-chan audio.Sample { return h.ch }

// Close stops the subscription. The pump goroutine notices the closed file
// or the done channel and closes the sample channel on its way out.
func (h *handle) Close() error {
	var err error
	h.once.Do(func() {
		close(h.done)
		err = h.closer.Close()
	})
	return err
}

// finish closes the sample channel exactly once, after the pump exits.
func (h *handle) finish() {
	close(h.ch)
}
