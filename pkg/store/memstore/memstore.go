// Package memstore provides a thread-safe, in-memory implementation of
// [store.Store]. It backs tests and DB-less development runs.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ store.Store = (*MemStore)(nil)

// ErrDuplicateID is returned when a write-once record already exists.
var ErrDuplicateID = errors.New("memstore: duplicate id")

// MemStore keeps all records in maps guarded by a single RWMutex.
type MemStore struct {
	mu           sync.RWMutex
	recordings   map[string]store.Recording
	goals        map[string]store.Goal
	achievements map[string]store.Achievement
}

// New returns an initialised [MemStore].
func New() *MemStore {
	return &MemStore{
		recordings:   make(map[string]store.Recording),
		goals:        make(map[string]store.Goal),
		achievements: make(map[string]store.Achievement),
	}
}

// SaveRecording implements [store.Store.SaveRecording].
func (s *MemStore) SaveRecording(_ context.Context, rec store.Recording) error {
	if rec.ID == "" {
		return errors.New("memstore: recording id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.recordings[rec.ID]; exists {
		return fmt.Errorf("memstore: save recording %q: %w", rec.ID, ErrDuplicateID)
	}
	s.recordings[rec.ID] = rec
	return nil
}

// ListRecordings implements [store.Store.ListRecordings].
func (s *MemStore) ListRecordings(_ context.Context, f store.RecordingFilter) ([]store.Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.Recording, 0, len(s.recordings))
	for _, rec := range s.recordings {
		if !matches(rec, f) {
			continue
		}
		result = append(result, rec)
	}

	sort.Slice(result, func(i, j int) bool {
		if f.NewestFirst {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func matches(rec store.Recording, f store.RecordingFilter) bool {
	if !f.After.IsZero() && !rec.CreatedAt.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !rec.CreatedAt.Before(f.Before) {
		return false
	}
	if rec.Overall < f.MinOverall {
		return false
	}
	if f.DrillsOnly && rec.DrillMode == "" {
		return false
	}
	return true
}

// CreateGoal implements [store.Store.CreateGoal].
func (s *MemStore) CreateGoal(_ context.Context, g store.Goal) error {
	if g.ID == "" {
		return errors.New("memstore: goal id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.goals[g.ID]; exists {
		return fmt.Errorf("memstore: create goal %q: %w", g.ID, ErrDuplicateID)
	}
	s.goals[g.ID] = g
	return nil
}

// UpdateGoal implements [store.Store.UpdateGoal].
func (s *MemStore) UpdateGoal(_ context.Context, g store.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.goals[g.ID]; !ok {
		return store.ErrNotFound
	}
	s.goals[g.ID] = g
	return nil
}

// ListGoals implements [store.Store.ListGoals].
func (s *MemStore) ListGoals(_ context.Context, activeOnly bool) ([]store.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.Goal, 0, len(s.goals))
	for _, g := range s.goals {
		if activeOnly && !g.IsActive {
			continue
		}
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// EnsureAchievement implements [store.Store.EnsureAchievement].
func (s *MemStore) EnsureAchievement(_ context.Context, a store.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.achievements[a.ID]; ok {
		// Preserve unlock state; refresh display fields only.
		existing.Name = a.Name
		existing.Description = a.Description
		s.achievements[a.ID] = existing
		return nil
	}
	s.achievements[a.ID] = a
	return nil
}

// ListAchievements implements [store.Store.ListAchievements].
func (s *MemStore) ListAchievements(_ context.Context) ([]store.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.Achievement, 0, len(s.achievements))
	for _, a := range s.achievements {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UnlockAchievement implements [store.Store.UnlockAchievement].
func (s *MemStore) UnlockAchievement(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.achievements[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if a.IsUnlocked {
		return false, nil
	}
	a.IsUnlocked = true
	a.UnlockedDate = &at
	s.achievements[id] = a
	return true, nil
}

// Close implements [store.Store.Close]. It is a no-op for the in-memory store.
func (s *MemStore) Close() error { return nil }
