package drill

import (
	"errors"
	"testing"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/internal/ingest"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/live"
)

func newRunning(t *testing.T, mode Mode, params Params) (*Evaluator, *live.Tracker) {
	t.Helper()
	tracker := live.New(live.Config{})
	e, err := New(mode, params, tracker)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return e, tracker
}

func feedWord(tracker *live.Tracker, e *Evaluator, ts time.Duration, filler bool) {
	ev := ingest.Event{Kind: ingest.KindWord, Timestamp: ts, Text: "w", IsFillerCandidate: filler}
	tracker.Apply(ev)
	e.Observe(ev)
}

func feedPause(tracker *live.Tracker, e *Evaluator, start, end time.Duration) {
	ev := ingest.Event{Kind: ingest.KindPause, Timestamp: start, End: end}
	tracker.Apply(ev)
	e.Observe(ev)
}

func TestNew_RejectsUnknownMode(t *testing.T) {
	t.Parallel()
	if _, err := New(Mode("backflip"), Params{}, live.New(live.Config{})); err == nil {
		t.Fatal("New accepted an unknown mode")
	}
}

func TestNew_PausePracticeRequiresMarkers(t *testing.T) {
	t.Parallel()
	if _, err := New(ModePausePractice, Params{}, live.New(live.Config{})); err == nil {
		t.Fatal("New accepted pause practice without markers")
	}
}

func TestMode_IsValid(t *testing.T) {
	t.Parallel()
	for _, m := range []Mode{ModeFillerElimination, ModePaceControl, ModePausePractice, ModeImpromptuSprint} {
		if !m.IsValid() {
			t.Errorf("%q reported invalid", m)
		}
	}
	if Mode("").IsValid() || Mode("sprint").IsValid() {
		t.Error("invalid mode reported valid")
	}
}

func TestEvaluator_Lifecycle(t *testing.T) {
	t.Parallel()
	e, _ := newRunning(t, ModeFillerElimination, Params{})

	if err := e.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
	if _, err := e.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if e.State() != Complete {
		t.Errorf("State = %v, want Complete", e.State())
	}
	if _, err := e.Complete(); !errors.Is(err, ErrComplete) {
		t.Errorf("second Complete = %v, want ErrComplete", err)
	}
	if err := e.Start(); !errors.Is(err, ErrComplete) {
		t.Errorf("Start after Complete = %v, want ErrComplete", err)
	}
}

func TestEvaluator_CompleteBeforeStart(t *testing.T) {
	t.Parallel()
	e, err := New(ModeFillerElimination, Params{}, live.New(live.Config{}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Complete(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Complete before Start = %v, want ErrNotRunning", err)
	}
}

func TestFillerElimination(t *testing.T) {
	t.Parallel()

	t.Run("clean run passes", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModeFillerElimination, Params{})
		for i := 1; i <= 10; i++ {
			feedWord(tracker, e, time.Duration(i)*time.Second, false)
		}
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if !res.Passed || res.Score != 100 {
			t.Errorf("clean run: %+v", res)
		}
	})

	t.Run("single filler fails", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModeFillerElimination, Params{})
		feedWord(tracker, e, time.Second, false)
		feedWord(tracker, e, 2*time.Second, true)
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if res.Passed {
			t.Error("run with a filler passed")
		}
		if res.Score != 80 {
			t.Errorf("Score = %d, want 80", res.Score)
		}
	})

	t.Run("score floors at zero", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModeFillerElimination, Params{})
		for i := 1; i <= 8; i++ {
			feedWord(tracker, e, time.Duration(i)*time.Second, true)
		}
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if res.Score != 0 || res.Passed {
			t.Errorf("eight fillers: %+v", res)
		}
	})
}

func TestPaceControl(t *testing.T) {
	t.Parallel()

	// 150 words over 60 seconds of default 15s window: steady pace in band.
	t.Run("in band passes", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModePaceControl, Params{PaceMin: 130, PaceMax: 170})
		for i := 1; i <= 150; i++ {
			feedWord(tracker, e, time.Duration(i)*400*time.Millisecond, false)
		}
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if !res.Passed || res.Score != 100 {
			t.Errorf("in-band pace: %+v", res)
		}
	})

	t.Run("too slow fails", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModePaceControl, Params{PaceMin: 130, PaceMax: 170})
		for i := 1; i <= 30; i++ {
			feedWord(tracker, e, time.Duration(i)*2*time.Second, false)
		}
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if res.Passed {
			t.Errorf("30 WPM passed: %+v", res)
		}
		if res.Score >= 100 {
			t.Errorf("Score = %d, want below 100", res.Score)
		}
	})
}

func TestPausePractice(t *testing.T) {
	t.Parallel()

	t.Run("all markers hit", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModePausePractice, Params{
			Markers:         []time.Duration{10 * time.Second, 20 * time.Second},
			MarkerTolerance: time.Second,
		})
		feedPause(tracker, e, 9500*time.Millisecond, 10500*time.Millisecond)
		feedPause(tracker, e, 20500*time.Millisecond, 21500*time.Millisecond)
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if !res.Passed || res.Score != 100 {
			t.Errorf("both markers: %+v", res)
		}
	})

	t.Run("partial is scored but fails", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModePausePractice, Params{
			Markers:         []time.Duration{10 * time.Second, 20 * time.Second},
			MarkerTolerance: time.Second,
		})
		feedPause(tracker, e, 10*time.Second, 11*time.Second)
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if res.Passed {
			t.Error("one of two markers passed")
		}
		if res.Score != 50 {
			t.Errorf("Score = %d, want 50", res.Score)
		}
	})

	t.Run("pause outside tolerance misses", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModePausePractice, Params{
			Markers:         []time.Duration{10 * time.Second},
			MarkerTolerance: time.Second,
		})
		feedPause(tracker, e, 13*time.Second, 14*time.Second)
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if res.Passed || res.Score != 0 {
			t.Errorf("missed marker: %+v", res)
		}
	})

	t.Run("one pause can cover one marker only once", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModePausePractice, Params{
			Markers:         []time.Duration{10 * time.Second, 10500 * time.Millisecond},
			MarkerTolerance: time.Second,
		})
		// A single wide pause spans both markers; both count as hit.
		feedPause(tracker, e, 9*time.Second, 12*time.Second)
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if !res.Passed {
			t.Errorf("wide pause: %+v", res)
		}
	})
}

func TestImpromptuSprint(t *testing.T) {
	t.Parallel()

	params := Params{
		Duration:   30 * time.Second,
		StartGrace: 2 * time.Second,
		MaxSilence: 3 * time.Second,
	}

	t.Run("steady speech passes", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModeImpromptuSprint, params)
		for i := 1; i <= 29; i++ {
			feedWord(tracker, e, time.Duration(i)*time.Second, false)
		}
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if !res.Passed || res.Score != 100 {
			t.Errorf("steady speech: %+v", res)
		}
	})

	t.Run("no speech fails", func(t *testing.T) {
		t.Parallel()
		e, _ := newRunning(t, ModeImpromptuSprint, params)
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if res.Passed || res.Score != 0 {
			t.Errorf("silent drill: %+v", res)
		}
	})

	t.Run("late start fails", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModeImpromptuSprint, params)
		feedWord(tracker, e, 5*time.Second, false)
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if res.Passed {
			t.Errorf("start after grace period passed: %+v", res)
		}
	})

	t.Run("mid-drill stall fails", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModeImpromptuSprint, params)
		feedWord(tracker, e, time.Second, false)
		feedPause(tracker, e, time.Second, 6*time.Second)
		feedWord(tracker, e, 6*time.Second, false)
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if res.Passed {
			t.Errorf("five-second stall passed: %+v", res)
		}
	})

	t.Run("trailing silence counts", func(t *testing.T) {
		t.Parallel()
		e, tracker := newRunning(t, ModeImpromptuSprint, params)
		feedWord(tracker, e, time.Second, false)
		feedWord(tracker, e, 2*time.Second, false)
		// Nothing more until the 30s drill ends: a 28s trailing silence.
		tracker.Advance(30 * time.Second)
		res, err := e.Complete()
		if err != nil {
			t.Fatal(err)
		}
		if res.Passed {
			t.Errorf("trailing silence passed: %+v", res)
		}
	})
}

func TestEvaluator_ProgressAndExpiry(t *testing.T) {
	t.Parallel()
	e, tracker := newRunning(t, ModeFillerElimination, Params{Duration: 10 * time.Second})

	if got := e.Progress(); got != 0 {
		t.Errorf("Progress at start = %v, want 0", got)
	}
	tracker.Advance(5 * time.Second)
	if got := e.Progress(); got != 0.5 {
		t.Errorf("Progress at half = %v, want 0.5", got)
	}
	if e.Expired() {
		t.Error("Expired at half duration")
	}
	tracker.Advance(12 * time.Second)
	if got := e.Progress(); got != 1 {
		t.Errorf("Progress past end = %v, want clamped to 1", got)
	}
	if !e.Expired() {
		t.Error("not Expired past duration")
	}
}

func TestEvaluator_LiveReadouts(t *testing.T) {
	t.Parallel()
	e, tracker := newRunning(t, ModeFillerElimination, Params{})
	feedWord(tracker, e, time.Second, true)
	feedWord(tracker, e, 2*time.Second, false)

	if got := e.LiveFillerCount(); got != 1 {
		t.Errorf("LiveFillerCount = %d, want 1", got)
	}
	if got := e.LiveWPM(); got <= 0 {
		t.Errorf("LiveWPM = %v, want positive", got)
	}
}

func TestEvaluator_ObserveIgnoredUnlessRunning(t *testing.T) {
	t.Parallel()
	tracker := live.New(live.Config{})
	e, err := New(ModeFillerElimination, Params{}, tracker)
	if err != nil {
		t.Fatal(err)
	}
	// Events before Start leave no trace in the drill bookkeeping.
	e.Observe(ingest.Event{Kind: ingest.KindWord, Timestamp: time.Second, IsFillerCandidate: true})
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	res, err := e.Complete()
	if err != nil {
		t.Fatal(err)
	}
	// The tracker never saw the word either, so the drill is clean.
	if !res.Passed {
		t.Errorf("pre-start event leaked into the result: %+v", res)
	}
}
