// Package live maintains the continuously queryable metrics of an in-progress
// practice session.
//
// A [Tracker] is single-writer: only the session's ingestion goroutine calls
// Apply and Advance. Readers (the UI refresh path) call Snapshot, which never
// blocks and never observes a torn state — every mutation builds a complete
// new [Snapshot] value and publishes it with an atomic pointer swap.
package live

import (
	"sync/atomic"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/internal/ingest"
)

const (
	// DefaultWindow is the trailing window over which WPM is computed.
	DefaultWindow = 15 * time.Second

	// DefaultSpeakingThresholdDB is the audio level above which the speaker
	// is considered to be speaking.
	DefaultSpeakingThresholdDB = -40.0

	// DefaultMinPause excludes normal inter-word gaps from pause tracking.
	DefaultMinPause = 500 * time.Millisecond
)

// Config holds the tunable thresholds for a [Tracker].
type Config struct {
	// Window is the trailing WPM window. Zero selects [DefaultWindow].
	Window time.Duration

	// SpeakingThresholdDB is the dBFS level above which isSpeaking is true.
	// Zero selects [DefaultSpeakingThresholdDB].
	SpeakingThresholdDB float64

	// MinPause is the minimum duration for a pause to be counted.
	// Zero selects [DefaultMinPause].
	MinPause time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.SpeakingThresholdDB == 0 {
		c.SpeakingThresholdDB = DefaultSpeakingThresholdDB
	}
	if c.MinPause <= 0 {
		c.MinPause = DefaultMinPause
	}
	return c
}

// Snapshot is the complete, immutable view of the live metrics at one point
// in time. Values are reset to zero at session start and the whole snapshot
// is discarded at session end.
type Snapshot struct {
	// Elapsed is the session time observed so far.
	Elapsed time.Duration

	// WordsPerMinute is the trailing-window pace. During the first window
	// length of the session it degrades to total words over total elapsed
	// time so early readings are meaningful.
	WordsPerMinute float64

	// FillerCount is the number of filler-flagged words so far.
	FillerCount int

	// TotalWords is the number of words so far, fillers included.
	TotalWords int

	// IsSpeaking reports whether the most recent audio sample exceeded the
	// speaking threshold.
	IsSpeaking bool

	// LastDecibels is the most recent audio sample level.
	LastDecibels float64

	// PauseCount and PauseTotal cover pauses at or above the configured
	// minimum duration.
	PauseCount int
	PauseTotal time.Duration
}

// Tracker consumes the merged session event stream and keeps the running
// metrics queryable. Apply and Advance must be called from a single
// goroutine; Snapshot may be called from any goroutine.
type Tracker struct {
	cfg  Config
	snap atomic.Pointer[Snapshot]

	// Writer-owned state. windowTimes is a FIFO of word timestamps inside
	// the trailing window; each Apply evicts expired entries, so the update
	// cost is O(1) amortized.
	windowTimes []time.Duration
	cur         Snapshot
}

// New creates a Tracker with zeroed metrics.
func New(cfg Config) *Tracker {
	t := &Tracker{cfg: cfg.withDefaults()}
	t.publish()
	return t
}

// Apply folds one event into the metrics and publishes a fresh snapshot.
func (t *Tracker) Apply(ev ingest.Event) {
	if ev.Timestamp > t.cur.Elapsed {
		t.cur.Elapsed = ev.Timestamp
	}

	switch ev.Kind {
	case ingest.KindAudioLevel:
		t.cur.LastDecibels = ev.Decibels
		t.cur.IsSpeaking = ev.Decibels > t.cfg.SpeakingThresholdDB

	case ingest.KindWord:
		t.cur.TotalWords++
		if ev.IsFillerCandidate {
			t.cur.FillerCount++
		}
		t.windowTimes = append(t.windowTimes, ev.Timestamp)

	case ingest.KindPause:
		if d := ev.PauseDuration(); d >= t.cfg.MinPause {
			t.cur.PauseCount++
			t.cur.PauseTotal += d
		}
		if ev.End > t.cur.Elapsed {
			t.cur.Elapsed = ev.End
		}
	}

	t.recomputeWPM()
	t.publish()
}

// Advance moves the elapsed clock forward without an event, so the WPM
// window keeps sliding during silence. Called from the session tick loop.
func (t *Tracker) Advance(elapsed time.Duration) {
	if elapsed <= t.cur.Elapsed {
		return
	}
	t.cur.Elapsed = elapsed
	t.recomputeWPM()
	t.publish()
}

// Snapshot returns the most recently published state. The returned value is
// immutable; callers must not modify it.
func (t *Tracker) Snapshot() *Snapshot { return t.snap.Load() }

// recomputeWPM evicts window entries older than Elapsed-Window and derives
// the trailing pace. The divisor is the effective window: the configured
// window once enough time has passed, the total elapsed time before that.
func (t *Tracker) recomputeWPM() {
	cutoff := t.cur.Elapsed - t.cfg.Window
	for len(t.windowTimes) > 0 && t.windowTimes[0] < cutoff {
		t.windowTimes = t.windowTimes[1:]
	}

	effective := t.cur.Elapsed
	if effective > t.cfg.Window {
		effective = t.cfg.Window
	}
	if effective <= 0 {
		t.cur.WordsPerMinute = 0
		return
	}
	minutes := effective.Minutes()
	t.cur.WordsPerMinute = float64(len(t.windowTimes)) / minutes
}

// publish makes the current state visible to readers via pointer swap.
func (t *Tracker) publish() {
	snap := t.cur
	t.snap.Store(&snap)
}
