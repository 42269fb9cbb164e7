// Package mock provides scripted [transcript.Source] and
// [transcript.BatchTranscriber] implementations for tests.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/provider/transcript"
)

// Compile-time interface checks.
var (
	_ transcript.Source           = (*Source)(nil)
	_ transcript.SessionHandle    = (*Handle)(nil)
	_ transcript.BatchTranscriber = (*Batch)(nil)
)

// Source replays fixed scripts of word and pause events to every session it
// opens. The zero value opens sessions that emit nothing until fed via the
// handle.
type Source struct {
	// Words and Pauses are copied into each new session and emitted
	// immediately, words and pauses interleaved by the caller's ordering.
	Words  []transcript.WordEvent
	Pauses []transcript.PauseEvent

	// StartErr, when non-nil, is returned by StartStream.
	StartErr error
}

// StartStream implements [transcript.Source].
func (s *Source) StartStream(_ context.Context, _ transcript.StreamConfig) (transcript.SessionHandle, error) {
	if s.StartErr != nil {
		return nil, s.StartErr
	}
	h := NewHandle(len(s.Words) + len(s.Pauses) + 16)
	for _, p := range s.Pauses {
		h.EmitPause(p)
	}
	for _, w := range s.Words {
		h.EmitWord(w)
	}
	return h, nil
}

// Handle is a manually driven session handle. Tests push events with
// EmitWord and EmitPause and end the stream with Close.
type Handle struct {
	mu     sync.Mutex
	words  chan transcript.WordEvent
	pauses chan transcript.PauseEvent
	sent   [][]byte
	closed bool
}

// NewHandle creates a handle whose event channels have the given capacity.
func NewHandle(buffer int) *Handle {
	return &Handle{
		words:  make(chan transcript.WordEvent, buffer),
		pauses: make(chan transcript.PauseEvent, buffer),
	}
}

// EmitWord delivers one word event. Emits after Close are dropped.
func (h *Handle) EmitWord(w transcript.WordEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.words <- w
}

// EmitPause delivers one pause event. Emits after Close are dropped.
func (h *Handle) EmitPause(p transcript.PauseEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.pauses <- p
}

// SendAudio implements [transcript.SessionHandle]. Chunks are recorded and
// retrievable via SentAudio.
func (h *Handle) SendAudio(chunk []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("mock: session closed")
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	h.sent = append(h.sent, buf)
	return nil
}

// SentAudio returns a copy of every chunk passed to SendAudio, in order.
func (h *Handle) SentAudio() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, len(h.sent))
	copy(out, h.sent)
	return out
}

// Words implements [transcript.SessionHandle].
func (h *Handle) Words() <-chan transcript.WordEvent { return h.words }

// Pauses implements [transcript.SessionHandle].
func (h *Handle) Pauses() <-chan transcript.PauseEvent { return h.pauses }

// Close implements [transcript.SessionHandle].
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.words)
		close(h.pauses)
	}
	return nil
}

// Batch is a canned [transcript.BatchTranscriber].
type Batch struct {
	// Result is returned by every Transcribe call.
	Result []transcript.WordEvent

	// Err, when non-nil, is returned instead.
	Err error

	mu    sync.Mutex
	calls int
}

// Transcribe implements [transcript.BatchTranscriber].
func (b *Batch) Transcribe(_ context.Context, _ []byte, _ transcript.StreamConfig) ([]transcript.WordEvent, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	return b.Result, nil
}

// Calls reports how many times Transcribe was invoked.
func (b *Batch) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
