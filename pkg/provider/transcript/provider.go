// Package transcript defines the Source interface for live transcription
// feeds.
//
// A transcript source wraps a streaming speech-to-text service (Deepgram, a
// local whisper server, or a test double) and exposes a uniform stream of
// timestamped word events. The source is the sole authority on word
// boundaries and filler classification: every word arrives already annotated
// with its IsFillerCandidate flag, and the analysis core only aggregates it.
//
// Sources also report closed pause intervals derived from word timing gaps,
// pushed in stream position before the word that ended the pause.
//
// Implementations must be safe for concurrent use.
package transcript

import (
	"context"
	"time"
)

// WordEvent is one transcribed word with producer annotations.
type WordEvent struct {
	// Timestamp marks the word start, relative to session start, and is
	// monotonically non-decreasing within a session.
	Timestamp time.Duration

	// Text is the word as recognised.
	Text string

	// IsFillerCandidate marks a disfluency token ("um", "uh", "like", …).
	IsFillerCandidate bool

	// Confidence is the recognition confidence (0.0-1.0), zero when the
	// provider does not report one.
	Confidence float64
}

// PauseEvent is a closed silence interval between words.
type PauseEvent struct {
	Start time.Duration
	End   time.Duration
}

// StreamConfig describes the audio format and segmentation hints for a new
// transcription session.
type StreamConfig struct {
	// SampleRate is the PCM sample rate in Hz of audio sent via SendAudio.
	SampleRate int

	// Channels is the channel count; 1 is required by most providers.
	Channels int

	// Language is the BCP-47 recognition language. Empty lets the provider
	// auto-detect where supported.
	Language string

	// MinPause is the smallest inter-word gap reported as a [PauseEvent].
	// Zero selects the provider default (500ms).
	MinPause time.Duration
}

// SessionHandle is an open streaming transcription session. Callers must
// Close it; failing to do so may leak goroutines and connections inside the
// provider.
type SessionHandle interface {
	// SendAudio delivers raw PCM matching the StreamConfig. Returns an
	// error after Close.
	SendAudio(chunk []byte) error

	// Words returns the word event stream. Closed when the session ends.
	Words() <-chan WordEvent

	// Pauses returns the pause event stream. Closed when the session ends.
	Pauses() <-chan PauseEvent

	// Close flushes pending audio and releases resources. Safe to call
	// more than once.
	Close() error
}

// Source opens streaming transcription sessions.
type Source interface {
	// StartStream opens a session ready to accept audio. The caller owns
	// the handle and must Close it.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}

// BatchTranscriber transcribes a complete utterance in one call. Used to
// recover a scoreable transcript for sessions whose live feed degraded.
type BatchTranscriber interface {
	// Transcribe submits PCM audio and returns the full annotated word
	// sequence.
	Transcribe(ctx context.Context, pcm []byte, cfg StreamConfig) ([]WordEvent, error)
}
