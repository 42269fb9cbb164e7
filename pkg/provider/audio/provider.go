// Package audio defines the Source interface for audio-level feeds.
//
// An audio source wraps whatever captures the microphone signal (the mobile
// client's capture layer, a streaming gateway, or a test double) and exposes
// it as a subscription of timestamped loudness samples. The analysis core
// never touches raw PCM here; it only consumes the level envelope that
// drives the speaking/silent indicator and the ingest watermark.
//
// Implementations must be safe for concurrent use. A [SessionHandle] belongs
// to one session and must be closed when the session ends.
package audio

import (
	"context"
	"time"
)

// Sample is one loudness reading.
type Sample struct {
	// Timestamp is relative to session start and monotonically
	// non-decreasing within a session.
	Timestamp time.Duration

	// Decibels is the level in dBFS (negative; 0 is full scale).
	Decibels float64
}

// StreamConfig describes the requested sampling behaviour.
type StreamConfig struct {
	// SampleRate is the capture rate in Hz of the underlying signal.
	SampleRate int

	// Interval is the desired spacing between level samples. Sources may
	// deliver at a coarser or variable rate.
	Interval time.Duration
}

// SessionHandle is an open level subscription for a single session.
type SessionHandle interface {
	// Samples returns the level stream. The channel is closed when the
	// session ends or the source fails; a stalled source simply stops
	// emitting without closing.
	Samples() <-chan Sample

	// Close stops the subscription and releases resources. Safe to call
	// more than once.
	Close() error
}

// Source opens audio-level subscriptions.
type Source interface {
	// Start begins delivering samples for a new session. The returned
	// handle is ready immediately; the caller owns it and must Close it.
	Start(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
