package ingest

import "time"

// Kind discriminates the variants of a session [Event].
type Kind int

const (
	// KindAudioLevel is a loudness sample from the audio subsystem.
	KindAudioLevel Kind = iota

	// KindWord is a transcribed word from the transcript subsystem.
	KindWord

	// KindPause is a closed silence interval reported by the transcript
	// subsystem.
	KindPause
)

// String returns the lowercase name of the event kind.
func (k Kind) String() string {
	switch k {
	case KindAudioLevel:
		return "audio_level"
	case KindWord:
		return "word"
	case KindPause:
		return "pause"
	}
	return "unknown"
}

// Event is a single normalized session event. Events are immutable once
// emitted and ordered by Timestamp, with audio samples sorted before word
// events that share a timestamp.
//
// Timestamp is relative to session start. Only the fields belonging to the
// variant selected by Kind are meaningful; the rest are zero.
type Event struct {
	Kind      Kind
	Timestamp time.Duration

	// KindAudioLevel

	// Decibels is the sample loudness in dBFS (negative; 0 is full scale).
	Decibels float64

	// KindWord

	// Text is the transcribed word.
	Text string

	// IsFillerCandidate marks a disfluency token as classified by the
	// transcript producer. The engine aggregates this flag and never
	// re-classifies words itself.
	IsFillerCandidate bool

	// Confidence is the producer's recognition confidence (0.0-1.0),
	// zero when the producer does not report one.
	Confidence float64

	// KindPause

	// End is the pause end timestamp; Timestamp holds the pause start.
	End time.Duration
}

// PauseDuration returns the length of a pause event, or zero for other kinds.
func (e Event) PauseDuration() time.Duration {
	if e.Kind != KindPause || e.End < e.Timestamp {
		return 0
	}
	return e.End - e.Timestamp
}
