// Package store defines the persistence contract for the SpeakUp analysis
// core: recordings with their speech scores, practice goals, and
// achievements. Implementations live in subpackages (postgres for the real
// backend, memstore for tests and DB-less development).
//
// Recordings are immutable once written; goals and achievements carry the
// few terminal transitions described on their types. All implementations
// must be safe for concurrent use.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("store: not found")

// Recording is one completed, scored practice session. The score fields are
// written exactly once when the session completes and never mutated.
type Recording struct {
	ID        string
	CreatedAt time.Time

	// PromptID references the practice prompt answered, empty for free-form
	// sessions.
	PromptID string

	// DrillMode is set when the session was a drill, empty otherwise.
	DrillMode string

	DurationSeconds float64
	Transcript      string

	// Speech score dimensions, each 0..100.
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

	// Flags carries scoring annotations such as "degraded" or
	// "empty_transcript".
	Flags []string
}

// RecordingFilter selects and orders recordings for queries.
type RecordingFilter struct {
	// After / Before bound CreatedAt when non-zero.
	After  time.Time
	Before time.Time

	// MinOverall keeps only recordings with at least this overall score.
	MinOverall int

	// DrillsOnly keeps only drill sessions when true.
	DrillsOnly bool

	// NewestFirst sorts by CreatedAt descending instead of ascending.
	NewestFirst bool

	// Limit caps the result count when positive.
	Limit int
}

// GoalType enumerates the supported goal templates.
type GoalType string

const (
	GoalSessionsPerWeek GoalType = "sessions_per_week"
	GoalTotalMinutes    GoalType = "total_minutes"
	GoalStreakDays      GoalType = "streak_days"
	GoalTargetScore     GoalType = "target_score"
)

// IsValid reports whether t is a recognised goal type.
func (t GoalType) IsValid() bool {
	switch t {
	case GoalSessionsPerWeek, GoalTotalMinutes, GoalStreakDays, GoalTargetScore:
		return true
	}
	return false
}

// Goal tracks one practice target. Current increases monotonically while the
// goal is active; IsCompleted is set exactly once and the goal is never
// reopened afterwards.
type Goal struct {
	ID        string
	Type      GoalType
	Target    float64
	Current   float64
	CreatedAt time.Time
	Deadline  *time.Time

	IsActive    bool
	IsCompleted bool
	CompletedAt *time.Time
}

// Achievement is a one-time unlock. IsUnlocked transitions false->true at
// most once and UnlockedDate is set exactly then.
type Achievement struct {
	ID           string
	Name         string
	Description  string
	IsUnlocked   bool
	UnlockedDate *time.Time
}

// Store is the persistence collaborator consumed by the progress ledger and
// the session manager.
type Store interface {
	// SaveRecording persists a completed session's score. Recordings are
	// write-once; saving an existing ID returns an error.
	SaveRecording(ctx context.Context, rec Recording) error

	// ListRecordings returns recordings matching the filter, sorted by
	// CreatedAt (ascending unless NewestFirst).
	ListRecordings(ctx context.Context, f RecordingFilter) ([]Recording, error)

	// CreateGoal persists a new goal.
	CreateGoal(ctx context.Context, g Goal) error

	// UpdateGoal overwrites the stored goal with the same ID.
	// Returns ErrNotFound when the goal does not exist.
	UpdateGoal(ctx context.Context, g Goal) error

	// ListGoals returns all goals, or only active ones when activeOnly.
	ListGoals(ctx context.Context, activeOnly bool) ([]Goal, error)

	// EnsureAchievement inserts the achievement if its ID is unknown,
	// preserving any previously stored unlock state. Used to seed the
	// catalog at startup.
	EnsureAchievement(ctx context.Context, a Achievement) error

	// ListAchievements returns the full catalog.
	ListAchievements(ctx context.Context) ([]Achievement, error)

	// UnlockAchievement marks the achievement unlocked at the given time.
	// It reports true only on the first unlock; re-unlocking an already
	// unlocked achievement is a no-op that preserves the original date.
	UnlockAchievement(ctx context.Context, id string, at time.Time) (bool, error)

	// Close releases the backing resources.
	Close() error
}
