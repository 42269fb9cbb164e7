// Package drill evaluates timed practice drills. Each drill wraps the live
// metrics tracker with a mode-specific pass/fail policy and produces exactly
// one [Result] when the drill completes.
//
// A drill is a one-shot state machine: NotStarted -> Running -> Complete.
// There is no way back from Complete; a retry constructs a new [Evaluator].
package drill

import (
	"errors"
	"fmt"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/internal/ingest"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/live"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/score"
)

// Mode selects the drill variant and its evaluation policy.
type Mode string

const (
	// ModeFillerElimination passes only a completely filler-free session.
	ModeFillerElimination Mode = "filler_elimination"

	// ModePaceControl passes when the final WPM lands inside the target band.
	ModePaceControl Mode = "pace_control"

	// ModePausePractice passes when the speaker paused at the prompted
	// marker timestamps within tolerance.
	ModePausePractice Mode = "pause_practice"

	// ModeImpromptuSprint passes when speech started within the grace period
	// and never stalled past the max-silence threshold.
	ModeImpromptuSprint Mode = "impromptu_sprint"
)

// IsValid reports whether m is a recognised drill mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeFillerElimination, ModePaceControl, ModePausePractice, ModeImpromptuSprint:
		return true
	}
	return false
}

// State is the drill lifecycle position.
type State int

const (
	NotStarted State = iota
	Running
	Complete
)

// Default drill thresholds, all overridable via [Params].
const (
	DefaultDuration        = 60 * time.Second
	DefaultMarkerTolerance = time.Second
	DefaultStartGrace      = 2 * time.Second
	DefaultMaxSilence      = 3 * time.Second
)

// Params carries the per-mode thresholds, selected once at drill start.
type Params struct {
	// Duration is the drill length; the drill completes automatically when
	// elapsed time reaches it. Zero selects [DefaultDuration].
	Duration time.Duration

	// PaceMin and PaceMax bound the target WPM band for pace control.
	// Zeros select the scoring defaults (130-170).
	PaceMin float64
	PaceMax float64

	// Markers are the prompted pause timestamps for pause practice.
	Markers []time.Duration

	// MarkerTolerance is the acceptance window around each marker.
	// Zero selects [DefaultMarkerTolerance].
	MarkerTolerance time.Duration

	// StartGrace is the impromptu-sprint window in which speech must begin.
	// Zero selects [DefaultStartGrace].
	StartGrace time.Duration

	// MaxSilence is the longest silence the impromptu sprint tolerates.
	// Zero selects [DefaultMaxSilence].
	MaxSilence time.Duration
}

func (p Params) withDefaults() Params {
	if p.Duration <= 0 {
		p.Duration = DefaultDuration
	}
	if p.PaceMin <= 0 {
		p.PaceMin = score.DefaultPaceMin
	}
	if p.PaceMax <= 0 {
		p.PaceMax = score.DefaultPaceMax
	}
	if p.MarkerTolerance <= 0 {
		p.MarkerTolerance = DefaultMarkerTolerance
	}
	if p.StartGrace <= 0 {
		p.StartGrace = DefaultStartGrace
	}
	if p.MaxSilence <= 0 {
		p.MaxSilence = DefaultMaxSilence
	}
	return p
}

// Result is the immutable outcome of one completed drill.
type Result struct {
	Mode    Mode
	Score   int // 0..100
	Passed  bool
	Details string
}

// Errors returned by lifecycle methods when called in the wrong state.
var (
	ErrNotRunning     = errors.New("drill: not running")
	ErrAlreadyStarted = errors.New("drill: already started")
	ErrComplete       = errors.New("drill: already complete")
)

// Evaluator runs one drill over the live event stream. It is driven by the
// same single ingestion goroutine that feeds the [live.Tracker]; only the
// read-side accessors (LiveWPM, LiveFillerCount, Progress, State) are safe
// to call concurrently, because they read the tracker's atomic snapshot and
// immutable fields.
type Evaluator struct {
	mode    Mode
	params  Params
	tracker *live.Tracker

	state State

	// Mode bookkeeping, writer-owned.
	firstWordAt    time.Duration // -1 until the first word arrives
	lastSpeechAt   time.Duration
	longestSilence time.Duration
	matched        []bool // one per marker, pause practice
}

// New creates an evaluator for the given mode. The tracker is the drill
// session's live metrics tracker, shared so that the drill sees exactly the
// metrics the UI displays.
func New(mode Mode, params Params, tracker *live.Tracker) (*Evaluator, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("drill: unknown mode %q", mode)
	}
	params = params.withDefaults()
	if mode == ModePausePractice && len(params.Markers) == 0 {
		return nil, errors.New("drill: pause practice requires at least one marker")
	}
	return &Evaluator{
		mode:        mode,
		params:      params,
		tracker:     tracker,
		firstWordAt: -1,
		matched:     make([]bool, len(params.Markers)),
	}, nil
}

// Start transitions NotStarted -> Running.
func (e *Evaluator) Start() error {
	switch e.state {
	case Running:
		return ErrAlreadyStarted
	case Complete:
		return ErrComplete
	}
	e.state = Running
	return nil
}

// Observe folds one session event into the drill bookkeeping. Must be called
// from the ingestion goroutine, after the event was applied to the tracker.
func (e *Evaluator) Observe(ev ingest.Event) {
	if e.state != Running {
		return
	}

	switch ev.Kind {
	case ingest.KindWord:
		if e.firstWordAt < 0 {
			e.firstWordAt = ev.Timestamp
			if ev.Timestamp > e.longestSilence {
				e.longestSilence = ev.Timestamp
			}
		}
		e.lastSpeechAt = ev.Timestamp

	case ingest.KindPause:
		if d := ev.PauseDuration(); d > e.longestSilence {
			e.longestSilence = d
		}
		e.matchMarkers(ev)
		if ev.End > e.lastSpeechAt {
			e.lastSpeechAt = ev.End
		}
	}
}

// matchMarkers marks every prompted marker whose timestamp falls inside the
// observed pause, widened by the tolerance window on both sides.
func (e *Evaluator) matchMarkers(ev ingest.Event) {
	lo := ev.Timestamp - e.params.MarkerTolerance
	hi := ev.End + e.params.MarkerTolerance
	for i, marker := range e.params.Markers {
		if !e.matched[i] && marker >= lo && marker <= hi {
			e.matched[i] = true
		}
	}
}

// State returns the current lifecycle position.
func (e *Evaluator) State() State { return e.state }

// Mode returns the drill mode.
func (e *Evaluator) Mode() Mode { return e.mode }

// Duration returns the configured drill length.
func (e *Evaluator) Duration() time.Duration { return e.params.Duration }

// LiveFillerCount returns the filler count for display while Running.
func (e *Evaluator) LiveFillerCount() int {
	return e.tracker.Snapshot().FillerCount
}

// LiveWPM returns the current trailing-window WPM for display while Running.
func (e *Evaluator) LiveWPM() float64 {
	return e.tracker.Snapshot().WordsPerMinute
}

// Progress returns elapsed/total in [0,1].
func (e *Evaluator) Progress() float64 {
	p := e.tracker.Snapshot().Elapsed.Seconds() / e.params.Duration.Seconds()
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// Expired reports whether the elapsed time has reached the configured
// duration, which triggers automatic completion.
func (e *Evaluator) Expired() bool {
	return e.tracker.Snapshot().Elapsed >= e.params.Duration
}

// Complete transitions Running -> Complete and produces the single [Result].
// Calling it again returns ErrComplete.
func (e *Evaluator) Complete() (Result, error) {
	switch e.state {
	case NotStarted:
		return Result{}, ErrNotRunning
	case Complete:
		return Result{}, ErrComplete
	}
	e.state = Complete

	snap := e.tracker.Snapshot()
	var res Result
	switch e.mode {
	case ModeFillerElimination:
		res = e.evalFillerElimination(snap.FillerCount)
	case ModePaceControl:
		res = e.evalPaceControl(snap.WordsPerMinute)
	case ModePausePractice:
		res = e.evalPausePractice()
	case ModeImpromptuSprint:
		res = e.evalImpromptuSprint(snap.Elapsed)
	}
	res.Mode = e.mode
	return res, nil
}

func (e *Evaluator) evalFillerElimination(fillers int) Result {
	if fillers == 0 {
		return Result{Score: 100, Passed: true, Details: "no filler words"}
	}
	s := 100 - fillers*20
	if s < 0 {
		s = 0
	}
	return Result{
		Score:   s,
		Passed:  false,
		Details: fmt.Sprintf("%d filler words", fillers),
	}
}

func (e *Evaluator) evalPaceControl(wpm float64) Result {
	cfg := score.Config{
		PaceMin: e.params.PaceMin,
		PaceMax: e.params.PaceMax,
	}
	s := int(score.PaceSubScore(wpm, cfg))
	passed := wpm >= e.params.PaceMin && wpm <= e.params.PaceMax
	return Result{
		Score:   s,
		Passed:  passed,
		Details: fmt.Sprintf("%.0f WPM, target %.0f-%.0f", wpm, e.params.PaceMin, e.params.PaceMax),
	}
}

func (e *Evaluator) evalPausePractice() Result {
	hit := 0
	for _, m := range e.matched {
		if m {
			hit++
		}
	}
	total := len(e.matched)
	s := hit * 100 / total
	return Result{
		Score:   s,
		Passed:  hit == total,
		Details: fmt.Sprintf("%d of %d pause markers hit", hit, total),
	}
}

func (e *Evaluator) evalImpromptuSprint(elapsed time.Duration) Result {
	if e.firstWordAt < 0 {
		return Result{Score: 0, Passed: false, Details: "no speech detected"}
	}
	if e.firstWordAt > e.params.StartGrace {
		return Result{
			Score:   0,
			Passed:  false,
			Details: fmt.Sprintf("speech started after the %s grace period", e.params.StartGrace),
		}
	}
	// Count the trailing silence up to drill end as a silence run too.
	if tail := elapsed - e.lastSpeechAt; tail > e.longestSilence {
		e.longestSilence = tail
	}
	if e.longestSilence > e.params.MaxSilence {
		return Result{
			Score:   0,
			Passed:  false,
			Details: fmt.Sprintf("stalled for %.1fs (max %.1fs)", e.longestSilence.Seconds(), e.params.MaxSilence.Seconds()),
		}
	}
	return Result{Score: 100, Passed: true, Details: "kept talking for the full sprint"}
}
