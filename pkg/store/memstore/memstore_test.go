package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
)

func rec(id string, at time.Time, overall int) store.Recording {
	return store.Recording{ID: id, CreatedAt: at, Overall: overall}
}

func TestSaveRecording_WriteOnce(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := s.SaveRecording(ctx, rec("r1", at, 80)); err != nil {
		t.Fatal(err)
	}
	err := s.SaveRecording(ctx, rec("r1", at, 90))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate save = %v, want ErrDuplicateID", err)
	}
	if err := s.SaveRecording(ctx, store.Recording{}); err == nil {
		t.Error("accepted a recording without an id")
	}
}

func TestListRecordings_FiltersAndOrder(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seed := []store.Recording{
		{ID: "r1", CreatedAt: base, Overall: 40},
		{ID: "r2", CreatedAt: base.Add(time.Hour), Overall: 70, DrillMode: "pace_control"},
		{ID: "r3", CreatedAt: base.Add(2 * time.Hour), Overall: 90},
	}
	for _, r := range seed {
		if err := s.SaveRecording(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("default is oldest first", func(t *testing.T) {
		t.Parallel()
		got, err := s.ListRecordings(ctx, store.RecordingFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 || got[0].ID != "r1" || got[2].ID != "r3" {
			t.Errorf("order = %v", ids(got))
		}
	})

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()
		got, err := s.ListRecordings(ctx, store.RecordingFilter{NewestFirst: true})
		if err != nil {
			t.Fatal(err)
		}
		if got[0].ID != "r3" {
			t.Errorf("order = %v", ids(got))
		}
	})

	t.Run("min overall", func(t *testing.T) {
		t.Parallel()
		got, err := s.ListRecordings(ctx, store.RecordingFilter{MinOverall: 70})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("MinOverall 70 = %v", ids(got))
		}
	})

	t.Run("drills only", func(t *testing.T) {
		t.Parallel()
		got, err := s.ListRecordings(ctx, store.RecordingFilter{DrillsOnly: true})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != "r2" {
			t.Errorf("DrillsOnly = %v", ids(got))
		}
	})

	t.Run("after and before are exclusive", func(t *testing.T) {
		t.Parallel()
		got, err := s.ListRecordings(ctx, store.RecordingFilter{
			After:  base,
			Before: base.Add(2 * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != "r2" {
			t.Errorf("window = %v", ids(got))
		}
	})

	t.Run("limit applies after sort", func(t *testing.T) {
		t.Parallel()
		got, err := s.ListRecordings(ctx, store.RecordingFilter{NewestFirst: true, Limit: 2})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].ID != "r3" || got[1].ID != "r2" {
			t.Errorf("limited = %v", ids(got))
		}
	})
}

func ids(recs []store.Recording) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestGoals_CreateUpdateList(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	g := store.Goal{ID: "g1", Type: store.GoalStreakDays, Target: 7, CreatedAt: at, IsActive: true}
	if err := s.CreateGoal(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateGoal(ctx, g); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate create = %v, want ErrDuplicateID", err)
	}
	if err := s.CreateGoal(ctx, store.Goal{}); err == nil {
		t.Error("accepted a goal without an id")
	}

	g.Current = 3
	g.IsActive = false
	if err := s.UpdateGoal(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateGoal(ctx, store.Goal{ID: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}

	all, err := s.ListGoals(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Current != 3 {
		t.Errorf("all goals = %+v", all)
	}
	active, err := s.ListGoals(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("active goals = %+v", active)
	}
}

func TestAchievements_EnsureAndUnlock(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := s.EnsureAchievement(ctx, store.Achievement{ID: "a1", Name: "First"}); err != nil {
		t.Fatal(err)
	}

	first, err := s.UnlockAchievement(ctx, "a1", at)
	if err != nil {
		t.Fatal(err)
	}
	if !first {
		t.Error("first unlock reported false")
	}

	// Re-unlocking is a no-op that keeps the original date.
	again, err := s.UnlockAchievement(ctx, "a1", at.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if again {
		t.Error("second unlock reported true")
	}

	// Re-seeding refreshes display fields without resetting unlock state.
	if err := s.EnsureAchievement(ctx, store.Achievement{ID: "a1", Name: "Renamed"}); err != nil {
		t.Fatal(err)
	}
	list, err := s.ListAchievements(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("achievements = %+v", list)
	}
	a := list[0]
	if a.Name != "Renamed" || !a.IsUnlocked || a.UnlockedDate == nil || !a.UnlockedDate.Equal(at) {
		t.Errorf("achievement = %+v", a)
	}

	if _, err := s.UnlockAchievement(ctx, "missing", at); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unlock missing = %v, want ErrNotFound", err)
	}
}
