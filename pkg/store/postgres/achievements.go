package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
)

// EnsureAchievement implements [store.Store.EnsureAchievement]. An existing
// row keeps its unlock state; only the display fields are refreshed.
func (s *Store) EnsureAchievement(ctx context.Context, a store.Achievement) error {
	const q = `
		INSERT INTO achievements (id, name, description, is_unlocked, unlocked_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description`

	_, err := s.pool.Exec(ctx, q, a.ID, a.Name, a.Description, a.IsUnlocked, a.UnlockedDate)
	if err != nil {
		return fmt.Errorf("postgres store: ensure achievement: %w", err)
	}
	return nil
}

// ListAchievements implements [store.Store.ListAchievements].
func (s *Store) ListAchievements(ctx context.Context) ([]store.Achievement, error) {
	const q = `
		SELECT id, name, description, is_unlocked, unlocked_date
		FROM   achievements
		ORDER  BY id`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list achievements: %w", err)
	}

	achievements, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Achievement, error) {
		var a store.Achievement
		err := row.Scan(&a.ID, &a.Name, &a.Description, &a.IsUnlocked, &a.UnlockedDate)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan achievements: %w", err)
	}
	if achievements == nil {
		achievements = []store.Achievement{}
	}
	return achievements, nil
}

// UnlockAchievement implements [store.Store.UnlockAchievement]. The WHERE
// clause makes the transition idempotent: a second unlock matches no rows
// and the original unlock date is preserved.
func (s *Store) UnlockAchievement(ctx context.Context, id string, at time.Time) (bool, error) {
	const q = `
		UPDATE achievements
		SET    is_unlocked = TRUE, unlocked_date = $2
		WHERE  id = $1 AND NOT is_unlocked`

	tag, err := s.pool.Exec(ctx, q, id, at)
	if err != nil {
		return false, fmt.Errorf("postgres store: unlock achievement: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "already unlocked" from "unknown id".
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM achievements WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres store: unlock achievement: %w", err)
	}
	if !exists {
		return false, store.ErrNotFound
	}
	return false, nil
}
