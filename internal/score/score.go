// Package score converts a completed session's transcript and timing into
// the four-dimension speech score persisted with each recording.
//
// Scoring is pure and deterministic: identical input yields a bit-identical
// [SpeechScore]. Input anomalies (empty transcripts, zero durations) clamp to
// defined floors instead of failing, preserving the one-score-per-session
// invariant.
package score

import (
	"math"
	"time"
)

// Flag annotates a score with a non-fatal condition detected during scoring.
type Flag string

const (
	// FlagEmptyTranscript marks a session with no recognized words.
	FlagEmptyTranscript Flag = "empty_transcript"

	// FlagShortSession marks a session below the minimum duration. The
	// session is still scored.
	FlagShortSession Flag = "short_session"

	// FlagDegraded marks a session scored from partial data because an
	// upstream feed stalled or errored.
	FlagDegraded Flag = "degraded"
)

// Default tuning constants. All of them are plain configuration surfaced in
// [Config]; the values here are the shipped defaults.
const (
	DefaultPaceMin          = 130.0
	DefaultPaceMax          = 170.0
	DefaultPaceFalloff      = 1.0 // sub-score points lost per WPM outside the band
	DefaultFillerPenalty    = 10.0 // sub-score points lost per filler per 100 words
	DefaultGoodPauseMin     = 300 * time.Millisecond
	DefaultGoodPauseMax     = 1500 * time.Millisecond
	DefaultWordsPerPause    = 50 // ideal spacing: one deliberate pause per N words
	DefaultNeutralClarity   = 75.0
	DefaultMinDuration      = 3 * time.Second
)

// Weights are the fixed overall-score weights for the four sub-scores.
// They must sum to a positive value; equal weighting is the default.
type Weights struct {
	Clarity      float64
	Pace         float64
	FillerUsage  float64
	PauseQuality float64
}

// EqualWeights returns the default equal weighting.
func EqualWeights() Weights {
	return Weights{Clarity: 1, Pace: 1, FillerUsage: 1, PauseQuality: 1}
}

// Config holds the scoring thresholds. The zero value selects all defaults.
type Config struct {
	// PaceMin and PaceMax bound the ideal words-per-minute band.
	PaceMin float64
	PaceMax float64

	// PaceFalloff is the linear penalty per WPM outside the band.
	PaceFalloff float64

	// FillerPenalty is the linear penalty per filler per 100 words.
	FillerPenalty float64

	// GoodPauseMin and GoodPauseMax bound a rewarded pause duration.
	GoodPauseMin time.Duration
	GoodPauseMax time.Duration

	// WordsPerPause is the ideal number of words between deliberate pauses.
	WordsPerPause int

	// NeutralClarity is the recognition component used when the transcript
	// producer reports no confidence signal.
	NeutralClarity float64

	// MinDuration is the session length below which FlagShortSession is set.
	MinDuration time.Duration

	// Weights controls the overall composite. Zero selects equal weights.
	Weights Weights
}

func (c Config) withDefaults() Config {
	if c.PaceMin <= 0 {
		c.PaceMin = DefaultPaceMin
	}
	if c.PaceMax <= 0 {
		c.PaceMax = DefaultPaceMax
	}
	if c.PaceFalloff <= 0 {
		c.PaceFalloff = DefaultPaceFalloff
	}
	if c.FillerPenalty <= 0 {
		c.FillerPenalty = DefaultFillerPenalty
	}
	if c.GoodPauseMin <= 0 {
		c.GoodPauseMin = DefaultGoodPauseMin
	}
	if c.GoodPauseMax <= 0 {
		c.GoodPauseMax = DefaultGoodPauseMax
	}
	if c.WordsPerPause <= 0 {
		c.WordsPerPause = DefaultWordsPerPause
	}
	if c.NeutralClarity <= 0 {
		c.NeutralClarity = DefaultNeutralClarity
	}
	if c.MinDuration <= 0 {
		c.MinDuration = DefaultMinDuration
	}
	if c.Weights == (Weights{}) {
		c.Weights = EqualWeights()
	}
	return c
}

// Word is one transcript token with its timing and producer annotations.
type Word struct {
	Timestamp  time.Duration
	Text       string
	IsFiller   bool
	Confidence float64 // 0 when the producer reports none
}

// Pause is a closed silence interval within the session.
type Pause struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the pause length, clamped to zero for inverted intervals.
func (p Pause) Duration() time.Duration {
	if p.End < p.Start {
		return 0
	}
	return p.End - p.Start
}

// Input is the full material of a completed session.
type Input struct {
	Words    []Word
	Duration time.Duration
	Pauses   []Pause

	// Degraded marks a session whose upstream feeds were incomplete; the
	// score is computed from the partial data and flagged.
	Degraded bool
}

// SpeechScore is the immutable scoring result, produced once per completed
// session and never mutated afterwards. All sub-scores are in [0,100].
type SpeechScore struct {
	Overall      int
	Clarity      int
	Pace         int
	FillerUsage  int
	PauseQuality int

	// Supporting raw stats.
	WordsPerMinute   float64
	TotalFillerCount int
	TotalWords       int
	PauseCount       int

	Flags []Flag
}

// HasFlag reports whether the score carries the given flag.
func (s SpeechScore) HasFlag(f Flag) bool {
	for _, have := range s.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// Score computes the [SpeechScore] for a completed session. It is pure:
// no clocks, no randomness, no external state.
func Score(in Input, cfg Config) SpeechScore {
	cfg = cfg.withDefaults()

	totalWords := len(in.Words)
	fillers := 0
	for _, w := range in.Words {
		if w.IsFiller {
			fillers++
		}
	}

	var flags []Flag
	if in.Degraded {
		flags = append(flags, FlagDegraded)
	}
	if in.Duration < cfg.MinDuration {
		flags = append(flags, FlagShortSession)
	}

	// A session with no recognized words scores the defined minimum rather
	// than dividing by zero.
	if totalWords == 0 {
		return SpeechScore{Flags: append(flags, FlagEmptyTranscript)}
	}

	minutes := in.Duration.Minutes()
	var wpm float64
	if minutes > 0 {
		wpm = float64(totalWords) / minutes
	}

	pace := PaceSubScore(wpm, cfg)
	filler := FillerSubScore(fillers, totalWords, cfg)
	pause := pauseSubScore(in.Pauses, totalWords, cfg)
	clarity := claritySubScore(in.Words, wpm, cfg)

	w := cfg.Weights
	totalWeight := w.Clarity + w.Pace + w.FillerUsage + w.PauseQuality
	overall := (clarity*w.Clarity + pace*w.Pace + filler*w.FillerUsage + pause*w.PauseQuality) / totalWeight

	return SpeechScore{
		Overall:          clampRound(overall),
		Clarity:          clampRound(clarity),
		Pace:             clampRound(pace),
		FillerUsage:      clampRound(filler),
		PauseQuality:     clampRound(pause),
		WordsPerMinute:   wpm,
		TotalFillerCount: fillers,
		TotalWords:       totalWords,
		PauseCount:       len(in.Pauses),
		Flags:            flags,
	}
}

// PaceSubScore maps a WPM value to [0,100]: full score inside the ideal band
// and a symmetric linear falloff outside it, floored at 0. Exported because
// the pace-control drill applies the same curve.
func PaceSubScore(wpm float64, cfg Config) float64 {
	cfg = cfg.withDefaults()
	var distance float64
	switch {
	case wpm < cfg.PaceMin:
		distance = cfg.PaceMin - wpm
	case wpm > cfg.PaceMax:
		distance = wpm - cfg.PaceMax
	default:
		return 100
	}
	return math.Max(0, 100-distance*cfg.PaceFalloff)
}

// FillerSubScore maps filler density to [0,100]. Zero fillers score 100 and
// the score decreases monotonically with fillers per 100 words.
func FillerSubScore(fillers, totalWords int, cfg Config) float64 {
	if totalWords <= 0 {
		return 0
	}
	cfg = cfg.withDefaults()
	density := float64(fillers) / float64(totalWords) * 100
	return math.Max(0, 100-density*cfg.FillerPenalty)
}

// pauseSubScore rewards deliberate pauses of a good duration at a frequency
// proportional to the word count. Both pause starvation and excessive
// pausing reduce the score.
func pauseSubScore(pauses []Pause, totalWords int, cfg Config) float64 {
	good := 0
	for _, p := range pauses {
		if d := p.Duration(); d >= cfg.GoodPauseMin && d <= cfg.GoodPauseMax {
			good++
		}
	}

	expected := totalWords / cfg.WordsPerPause
	if expected < 1 {
		expected = 1
	}
	ratio := float64(good) / float64(expected)

	if ratio >= 1 {
		// Excess pausing: lose 50 points per extra expected-unit, floor 0.
		return math.Max(0, 100-(ratio-1)*50)
	}
	// Starvation side: no good pauses at all lands at 40, scaling up to 100.
	return 40 + 60*ratio
}

// claritySubScore blends a delivery-consistency check with the producer's
// recognition confidence. Without a confidence signal the recognition
// component falls back to the neutral baseline.
func claritySubScore(words []Word, wpm float64, cfg Config) float64 {
	// Consistency: intelligible human speech sits in a wide plausible band;
	// readings far outside it usually mean truncated audio or runaway
	// timestamps rather than fast talkers.
	consistency := 100.0
	switch {
	case wpm < 50:
		consistency = math.Max(0, wpm*2) // 0 WPM -> 0, 50 WPM -> 100
	case wpm > 300:
		consistency = math.Max(0, 100-(wpm-300)/2)
	}

	recognized := 0
	confidenceSum := 0.0
	for _, w := range words {
		if w.Confidence > 0 {
			recognized++
			confidenceSum += w.Confidence
		}
	}

	recognition := cfg.NeutralClarity
	if recognized > 0 {
		// Blend mean confidence with the recognized-to-total ratio.
		meanConfidence := confidenceSum / float64(recognized)
		coverage := float64(recognized) / float64(len(words))
		recognition = 100 * meanConfidence * coverage
	}

	return (consistency + recognition) / 2
}

// clampRound rounds to the nearest integer and clamps to [0,100].
func clampRound(v float64) int {
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
