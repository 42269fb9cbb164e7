package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
)

// achievementDef couples a catalog entry with its unlock predicate. Each
// predicate is a pure function of the full recording history plus the current
// streak, so re-evaluation is idempotent.
type achievementDef struct {
	id          string
	name        string
	description string
	unlocked    func(history []store.Recording, streak int) bool
}

// catalog is the fixed achievement set, seeded into the store at startup.
var catalog = []achievementDef{
	{
		id:          "first_session",
		name:        "First Words",
		description: "Complete your first practice session.",
		unlocked: func(history []store.Recording, _ int) bool {
			return len(history) >= 1
		},
	},
	{
		id:          "sessions_10",
		name:        "Regular Speaker",
		description: "Complete 10 practice sessions.",
		unlocked: func(history []store.Recording, _ int) bool {
			return len(history) >= 10
		},
	},
	{
		id:          "sessions_50",
		name:        "Seasoned Orator",
		description: "Complete 50 practice sessions.",
		unlocked: func(history []store.Recording, _ int) bool {
			return len(history) >= 50
		},
	},
	{
		id:          "streak_7",
		name:        "One Week Strong",
		description: "Practice 7 days in a row.",
		unlocked: func(_ []store.Recording, streak int) bool {
			return streak >= 7
		},
	},
	{
		id:          "streak_30",
		name:        "Monthly Habit",
		description: "Practice 30 days in a row.",
		unlocked: func(_ []store.Recording, streak int) bool {
			return streak >= 30
		},
	},
	{
		id:          "score_90",
		name:        "Podium Finish",
		description: "Score 90 or higher in a single session.",
		unlocked: func(history []store.Recording, _ int) bool {
			for _, rec := range history {
				if rec.Overall >= 90 {
					return true
				}
			}
			return false
		},
	},
	{
		id:          "zero_filler",
		name:        "Crystal Clear",
		description: "Finish a session of at least 50 words without a single filler.",
		unlocked: func(history []store.Recording, _ int) bool {
			for _, rec := range history {
				if rec.TotalWords >= 50 && rec.TotalFillerCount == 0 {
					return true
				}
			}
			return false
		},
	},
	{
		id:          "drills_10",
		name:        "Drill Sergeant",
		description: "Complete 10 drill sessions.",
		unlocked: func(history []store.Recording, _ int) bool {
			var n int
			for _, rec := range history {
				if rec.DrillMode != "" {
					n++
				}
			}
			return n >= 10
		},
	},
}

// seedAchievements inserts every catalog entry that the store does not know
// yet, preserving unlock state for the ones it does.
func (l *Ledger) seedAchievements(ctx context.Context) error {
	var errs []error
	for _, def := range catalog {
		err := l.store.EnsureAchievement(ctx, store.Achievement{
			ID:          def.id,
			Name:        def.name,
			Description: def.description,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("ledger: ensure achievement %s: %w", def.id, err))
		}
	}
	return errors.Join(errs...)
}

// evaluateAchievements checks every locked achievement's predicate against
// the history and unlocks the passing ones. Newly unlocked achievements are
// queued for one-shot delivery to the presentation layer.
func (l *Ledger) evaluateAchievements(ctx context.Context, history []store.Recording, now time.Time) error {
	days := make([]time.Time, 0, len(history))
	for _, rec := range history {
		days = append(days, rec.CreatedAt)
	}
	streak := Streak(days, now, l.loc)

	var errs []error
	for _, def := range catalog {
		if !def.unlocked(history, streak) {
			continue
		}
		first, err := l.store.UnlockAchievement(ctx, def.id, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("ledger: unlock achievement %s: %w", def.id, err))
			continue
		}
		if !first {
			continue
		}
		at := now
		l.queueUnlock(store.Achievement{
			ID:           def.id,
			Name:         def.name,
			Description:  def.description,
			IsUnlocked:   true,
			UnlockedDate: &at,
		})
		l.logger.Info("achievement unlocked", "achievement_id", def.id, "name", def.name)
	}
	return errors.Join(errs...)
}

// queueUnlock appends an unlock notification for later consumption.
func (l *Ledger) queueUnlock(a store.Achievement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, a)
}

// PendingUnlocks returns the queued "newly unlocked" notifications without
// consuming them.
func (l *Ledger) PendingUnlocks() []store.Achievement {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]store.Achievement, len(l.pending))
	copy(out, l.pending)
	return out
}

// AcknowledgeUnlocks clears the notification queue and returns what was
// cleared. Each unlock is therefore delivered at most once.
func (l *Ledger) AcknowledgeUnlocks() []store.Achievement {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.pending
	l.pending = nil
	return out
}
