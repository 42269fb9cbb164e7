// Package ingest normalizes the two upstream signal feeds of an active
// practice session — audio-level samples and timestamped transcript words —
// into a single ordered event stream.
//
// Each producer pushes events with monotonically non-decreasing timestamps
// relative to session start. The merger releases events in global timestamp
// order, sorting audio samples before word events that share a timestamp.
// Because the transcript feed typically lags the audio feed, released events
// are gated by a watermark: the smaller of the two sources' latest
// timestamps. A source that has pushed nothing for the configured stall
// threshold stops gating the watermark, so a stalled transcript producer is
// treated as "no new words" rather than an error.
//
// The merger holds only the current session's buffer; Close flushes it and
// the whole value is discarded when the session ends or is cancelled.
package ingest

import (
	"errors"
	"sync"
	"time"
)

// DefaultStallThreshold is how long a source may go without pushing before it
// no longer holds back the merge watermark.
const DefaultStallThreshold = 3 * time.Second

// ErrClosed is returned by Push methods after Close has been called.
var ErrClosed = errors.New("ingest: merger is closed")

// Config holds tunables for a [Merger].
type Config struct {
	// StallThreshold is the silence window after which a quiet source stops
	// gating the watermark. Zero selects [DefaultStallThreshold].
	StallThreshold time.Duration

	// BufferSize is the capacity of the Events channel. Zero selects 256.
	BufferSize int
}

// Merger merges the audio-level and transcript feeds of one session into an
// ordered [Event] stream. All methods are safe for concurrent use; the two
// producers may push from independent goroutines.
type Merger struct {
	cfg Config

	mu         sync.Mutex
	closed     bool
	audioQ     []Event
	wordQ      []Event
	audioLast  time.Duration // highest timestamp seen on the audio feed
	wordLast   time.Duration // highest timestamp seen on the transcript feed
	audioSeen  time.Time     // wall-clock time of the latest audio push
	wordSeen   time.Time     // wall-clock time of the latest transcript push
	history    []Event       // every released event, in release order
	out        chan Event
	outPending []Event // released events the out channel could not absorb

	now func() time.Time // test seam
}

// New creates a Merger ready to accept pushes from both producers.
func New(cfg Config) *Merger {
	if cfg.StallThreshold <= 0 {
		cfg.StallThreshold = DefaultStallThreshold
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	m := &Merger{
		cfg: cfg,
		out: make(chan Event, cfg.BufferSize),
		now: time.Now,
	}
	// Both sources count as live from session start. The transcript feed
	// typically delivers its first word well after the first audio sample, so
	// a source that has not pushed yet must still gate the watermark until
	// the stall threshold elapses, or early audio would be released ahead of
	// lower-timestamped words.
	start := m.now()
	m.audioSeen = start
	m.wordSeen = start
	return m
}

// PushAudioLevel records a loudness sample from the audio subsystem.
// Out-of-order timestamps are clamped to the latest seen value rather than
// rejected, per the input-anomaly policy.
func (m *Merger) PushAudioLevel(ts time.Duration, decibels float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if ts < m.audioLast {
		ts = m.audioLast
	}
	m.audioLast = ts
	m.audioSeen = m.now()
	m.audioQ = append(m.audioQ, Event{Kind: KindAudioLevel, Timestamp: ts, Decibels: decibels})
	m.releaseLocked(false)
	return nil
}

// PushWord records a transcribed word from the transcript subsystem.
func (m *Merger) PushWord(ts time.Duration, text string, isFillerCandidate bool, confidence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if ts < m.wordLast {
		ts = m.wordLast
	}
	m.wordLast = ts
	m.wordSeen = m.now()
	m.wordQ = append(m.wordQ, Event{
		Kind:              KindWord,
		Timestamp:         ts,
		Text:              text,
		IsFillerCandidate: isFillerCandidate,
		Confidence:        confidence,
	})
	m.releaseLocked(false)
	return nil
}

// PushPause records a closed silence interval from the transcript subsystem.
// The interval is keyed by its start timestamp; producers push pauses in
// stream position, before the word that closed them.
func (m *Merger) PushPause(start, end time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if start < m.wordLast {
		start = m.wordLast
	}
	if end < start {
		end = start
	}
	m.wordLast = start
	m.wordSeen = m.now()
	m.wordQ = append(m.wordQ, Event{Kind: KindPause, Timestamp: start, End: end})
	m.releaseLocked(false)
	return nil
}

// Events returns the merged, ordered stream. The channel is closed by
// [Merger.Close] after the final flush. A slow consumer never blocks the
// producers: events that do not fit the channel buffer are parked and
// delivered on subsequent pushes.
func (m *Merger) Events() <-chan Event { return m.out }

// History returns a copy of every event released so far, in order. After
// Close it is the complete session record, used for post-session scoring.
func (m *Merger) History() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.history))
	copy(out, m.history)
	return out
}

// Stalled reports whether each source has gone quiet for longer than the
// stall threshold. A source that has never pushed counts from session start.
func (m *Merger) Stalled() (audio, transcript bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.cfg.StallThreshold)
	audio = m.audioSeen.Before(cutoff)
	transcript = m.wordSeen.Before(cutoff)
	return audio, transcript
}

// Tick re-evaluates the watermark against the wall clock and releases any
// events a freshly stalled source was holding back. Producers trigger a
// release on every push; a periodic Tick covers the case where the only
// remaining source has nothing left to push.
func (m *Merger) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.releaseLocked(false)
}

// Close flushes all buffered events in merge order, closes the Events
// channel, and rejects further pushes. Safe to call more than once.
func (m *Merger) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.releaseLocked(true)
	// Parked events that still do not fit are appended straight to history
	// by releaseLocked; drain what fits, then close.
	for len(m.outPending) > 0 {
		select {
		case m.out <- m.outPending[0]:
			m.outPending = m.outPending[1:]
		default:
			// Consumer is gone or slow; History carries the full record.
			m.outPending = nil
		}
	}
	close(m.out)
}

// releaseLocked moves events whose timestamp is at or below the merge
// watermark from the source queues to the output, audio first on ties.
// With force it drains both queues regardless of the watermark (Close path).
// Must be called with m.mu held.
func (m *Merger) releaseLocked(force bool) {
	watermark := m.watermarkLocked()
	for len(m.audioQ) > 0 || len(m.wordQ) > 0 {
		var next Event
		switch {
		case len(m.audioQ) == 0:
			next = m.wordQ[0]
		case len(m.wordQ) == 0:
			next = m.audioQ[0]
		case m.audioQ[0].Timestamp <= m.wordQ[0].Timestamp:
			next = m.audioQ[0]
		default:
			next = m.wordQ[0]
		}
		if !force && next.Timestamp > watermark {
			break
		}
		if next.Kind == KindAudioLevel {
			m.audioQ = m.audioQ[1:]
		} else {
			m.wordQ = m.wordQ[1:]
		}
		m.emitLocked(next)
	}
}

// watermarkLocked computes the release watermark: the minimum of the latest
// timestamps of all sources that are still considered live. A source that
// has pushed nothing yet is live until the stall threshold elapses, with its
// latest timestamp at zero.
func (m *Merger) watermarkLocked() time.Duration {
	cutoff := m.now().Add(-m.cfg.StallThreshold)
	audioLive := !m.audioSeen.Before(cutoff)
	wordLive := !m.wordSeen.Before(cutoff)

	switch {
	case audioLive && wordLive:
		if m.audioLast < m.wordLast {
			return m.audioLast
		}
		return m.wordLast
	case audioLive:
		return m.audioLast
	case wordLive:
		return m.wordLast
	}
	// Both stalled: release everything buffered so far.
	if m.audioLast > m.wordLast {
		return m.audioLast
	}
	return m.wordLast
}

// emitLocked appends ev to history and offers it to the output channel
// without blocking. Must be called with m.mu held.
func (m *Merger) emitLocked(ev Event) {
	m.history = append(m.history, ev)
	// Preserve delivery order: flush parked events before the new one.
	for len(m.outPending) > 0 {
		select {
		case m.out <- m.outPending[0]:
			m.outPending = m.outPending[1:]
		default:
			m.outPending = append(m.outPending, ev)
			return
		}
	}
	select {
	case m.out <- ev:
	default:
		m.outPending = append(m.outPending, ev)
	}
}
