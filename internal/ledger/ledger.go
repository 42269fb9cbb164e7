// Package ledger aggregates completed sessions into longitudinal progress:
// the practice streak, goal progress, achievement unlocks, and week-over-week
// summaries.
//
// All derived state is recomputed from the full recording history on each
// session completion rather than maintained incrementally. At personal-data
// scale (a few sessions a day) a full scan is microseconds of work and keeps
// every computation a pure function of persisted state, so crashes and
// retries cannot leave the ledger inconsistent.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithLocation sets the calendar used for day and week boundaries. Defaults
// to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		l.loc = loc
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// Ledger evaluates progress over the persisted session history. It is safe
// for concurrent use, though by design at most one session completes at a
// time.
type Ledger struct {
	store  store.Store
	clock  func() time.Time
	loc    *time.Location
	logger *slog.Logger

	mu      sync.Mutex
	pending []store.Achievement
}

// New creates a Ledger over the given store and seeds the achievement
// catalog.
func New(ctx context.Context, s store.Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:  s,
		clock:  time.Now,
		loc:    time.Local,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.seedAchievements(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// OnSessionComplete records one finished session and re-evaluates goals and
// achievements against the updated history. The recording is persisted first;
// if that fails nothing else runs and the caller may retry with the same
// recording. Goal and achievement evaluation errors are joined but do not
// undo the save.
func (l *Ledger) OnSessionComplete(ctx context.Context, rec store.Recording) error {
	if rec.ID == "" {
		return errors.New("ledger: recording has no id")
	}
	if err := l.store.SaveRecording(ctx, rec); err != nil {
		return fmt.Errorf("ledger: save recording: %w", err)
	}
	l.logger.Info("session recorded",
		"recording_id", rec.ID,
		"overall", rec.Overall,
		"duration_s", rec.DurationSeconds,
		"drill_mode", rec.DrillMode)

	history, err := l.store.ListRecordings(ctx, store.RecordingFilter{})
	if err != nil {
		return fmt.Errorf("ledger: list recordings: %w", err)
	}
	now := l.clock()
	return errors.Join(
		l.evaluateGoals(ctx, history, now),
		l.evaluateAchievements(ctx, history, now),
	)
}

// WeeklyDelta compares the current local calendar week (Monday based)
// against the previous one.
type WeeklyDelta struct {
	ThisWeekSessions int     `json:"this_week_sessions"`
	PrevWeekSessions int     `json:"prev_week_sessions"`
	ThisWeekAvgScore float64 `json:"this_week_avg_score"`
	PrevWeekAvgScore float64 `json:"prev_week_avg_score"`
}

// Summary is a point-in-time view of overall progress.
type Summary struct {
	TotalSessions  int                 `json:"total_sessions"`
	TotalMinutes   float64             `json:"total_minutes"`
	CurrentStreak  int                 `json:"current_streak"`
	BestOverall    int                 `json:"best_overall"`
	AverageOverall float64             `json:"average_overall"`
	Weekly         WeeklyDelta         `json:"weekly"`
	Goals          []store.Goal        `json:"goals"`
	Achievements   []store.Achievement `json:"achievements"`
}

// Progress computes the current summary from the full history.
func (l *Ledger) Progress(ctx context.Context) (Summary, error) {
	history, err := l.store.ListRecordings(ctx, store.RecordingFilter{})
	if err != nil {
		return Summary{}, fmt.Errorf("ledger: list recordings: %w", err)
	}
	goals, err := l.store.ListGoals(ctx, false)
	if err != nil {
		return Summary{}, fmt.Errorf("ledger: list goals: %w", err)
	}
	achievements, err := l.store.ListAchievements(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("ledger: list achievements: %w", err)
	}

	now := l.clock()
	s := Summary{
		TotalSessions: len(history),
		Goals:         goals,
		Achievements:  achievements,
		Weekly:        l.weeklyDelta(history, now),
	}

	days := make([]time.Time, 0, len(history))
	var scoreSum int
	for _, rec := range history {
		days = append(days, rec.CreatedAt)
		s.TotalMinutes += rec.DurationSeconds / 60
		scoreSum += rec.Overall
		if rec.Overall > s.BestOverall {
			s.BestOverall = rec.Overall
		}
	}
	s.CurrentStreak = Streak(days, now, l.loc)
	if len(history) > 0 {
		s.AverageOverall = float64(scoreSum) / float64(len(history))
	}
	return s, nil
}

// weeklyDelta buckets history into the current and previous local weeks.
func (l *Ledger) weeklyDelta(history []store.Recording, now time.Time) WeeklyDelta {
	thisStart := startOfWeek(now, l.loc)
	prevStart := thisStart.AddDate(0, 0, -7)

	var d WeeklyDelta
	var thisSum, prevSum int
	for _, rec := range history {
		at := rec.CreatedAt.In(l.loc)
		switch {
		case !at.Before(thisStart):
			d.ThisWeekSessions++
			thisSum += rec.Overall
		case !at.Before(prevStart):
			d.PrevWeekSessions++
			prevSum += rec.Overall
		}
	}
	if d.ThisWeekSessions > 0 {
		d.ThisWeekAvgScore = float64(thisSum) / float64(d.ThisWeekSessions)
	}
	if d.PrevWeekSessions > 0 {
		d.PrevWeekAvgScore = float64(prevSum) / float64(d.PrevWeekSessions)
	}
	return d
}
