package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
)

// ErrInvalidGoal is returned when a goal template cannot be instantiated.
var ErrInvalidGoal = errors.New("ledger: invalid goal")

// GoalTemplate describes a new goal to create. The ledger fills in the ID,
// creation time, and initial progress.
type GoalTemplate struct {
	Type     store.GoalType
	Target   float64
	Deadline *time.Time
}

// CreateGoal instantiates a goal from the template and persists it. The
// goal's Current is evaluated immediately so a freshly created goal reflects
// history from its creation moment forward (which is zero by definition).
func (l *Ledger) CreateGoal(ctx context.Context, tpl GoalTemplate) (store.Goal, error) {
	if !tpl.Type.IsValid() {
		return store.Goal{}, fmt.Errorf("%w: unknown type %q", ErrInvalidGoal, tpl.Type)
	}
	if tpl.Target <= 0 {
		return store.Goal{}, fmt.Errorf("%w: target must be positive, got %v", ErrInvalidGoal, tpl.Target)
	}

	id, err := generateID()
	if err != nil {
		return store.Goal{}, fmt.Errorf("ledger: generate goal id: %w", err)
	}
	g := store.Goal{
		ID:        id,
		Type:      tpl.Type,
		Target:    tpl.Target,
		CreatedAt: l.clock(),
		Deadline:  tpl.Deadline,
		IsActive:  true,
	}
	if err := l.store.CreateGoal(ctx, g); err != nil {
		return store.Goal{}, fmt.Errorf("ledger: create goal: %w", err)
	}
	l.logger.Info("goal created", "goal_id", g.ID, "type", g.Type, "target", g.Target)
	return g, nil
}

// evaluateGoals recomputes every active goal's progress against the recording
// history and persists the changed ones. Current only moves up; a goal whose
// metric would regress keeps its high-water mark. Completion is terminal.
func (l *Ledger) evaluateGoals(ctx context.Context, history []store.Recording, now time.Time) error {
	goals, err := l.store.ListGoals(ctx, true)
	if err != nil {
		return fmt.Errorf("ledger: list goals: %w", err)
	}

	var errs []error
	for _, g := range goals {
		if g.IsCompleted {
			continue
		}
		current := l.goalMetric(g, history, now)
		if current < g.Current {
			current = g.Current
		}
		completed := current >= g.Target

		if current == g.Current && !completed {
			continue
		}
		g.Current = current
		if completed && !g.IsCompleted {
			g.IsCompleted = true
			at := now
			g.CompletedAt = &at
			g.IsActive = false
			l.logger.Info("goal completed", "goal_id", g.ID, "type", g.Type, "target", g.Target)
		}
		if err := l.store.UpdateGoal(ctx, g); err != nil {
			errs = append(errs, fmt.Errorf("ledger: update goal %s: %w", g.ID, err))
		}
	}
	return errors.Join(errs...)
}

// goalMetric computes the value a goal's Current tracks, over recordings
// created at or after the goal itself.
func (l *Ledger) goalMetric(g store.Goal, history []store.Recording, now time.Time) float64 {
	var since []store.Recording
	for _, rec := range history {
		if rec.CreatedAt.Before(g.CreatedAt) {
			continue
		}
		since = append(since, rec)
	}

	switch g.Type {
	case store.GoalSessionsPerWeek:
		weekStart := startOfWeek(now, l.loc)
		var n float64
		for _, rec := range since {
			if !rec.CreatedAt.In(l.loc).Before(weekStart) {
				n++
			}
		}
		return n
	case store.GoalTotalMinutes:
		var minutes float64
		for _, rec := range since {
			minutes += rec.DurationSeconds / 60
		}
		return minutes
	case store.GoalStreakDays:
		days := make([]time.Time, 0, len(since))
		for _, rec := range since {
			days = append(days, rec.CreatedAt)
		}
		return float64(Streak(days, now, l.loc))
	case store.GoalTargetScore:
		var best float64
		for _, rec := range since {
			if s := float64(rec.Overall); s > best {
				best = s
			}
		}
		return best
	}
	return 0
}

// startOfWeek returns midnight on the Monday of now's local week.
func startOfWeek(now time.Time, loc *time.Location) time.Time {
	day := midnight(now, loc)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// generateID produces a random 16-byte hex string using crypto/rand.
func generateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
