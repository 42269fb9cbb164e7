package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
)

// CreateGoal implements [store.Store.CreateGoal].
func (s *Store) CreateGoal(ctx context.Context, g store.Goal) error {
	const q = `
		INSERT INTO goals
		    (id, type, target, current, created_at, deadline, is_active, is_completed, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, q,
		g.ID, string(g.Type), g.Target, g.Current, g.CreatedAt,
		g.Deadline, g.IsActive, g.IsCompleted, g.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres store: create goal: %w", err)
	}
	return nil
}

// UpdateGoal implements [store.Store.UpdateGoal].
func (s *Store) UpdateGoal(ctx context.Context, g store.Goal) error {
	const q = `
		UPDATE goals
		SET    type = $2, target = $3, current = $4, deadline = $5,
		       is_active = $6, is_completed = $7, completed_at = $8
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q,
		g.ID, string(g.Type), g.Target, g.Current, g.Deadline,
		g.IsActive, g.IsCompleted, g.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres store: update goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListGoals implements [store.Store.ListGoals].
func (s *Store) ListGoals(ctx context.Context, activeOnly bool) ([]store.Goal, error) {
	q := `SELECT id, type, target, current, created_at, deadline, is_active, is_completed, completed_at
	      FROM   goals`
	if activeOnly {
		q += `
	      WHERE  is_active`
	}
	q += `
	      ORDER  BY created_at`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list goals: %w", err)
	}

	goals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Goal, error) {
		var (
			g        store.Goal
			goalType string
		)
		err := row.Scan(
			&g.ID, &goalType, &g.Target, &g.Current, &g.CreatedAt,
			&g.Deadline, &g.IsActive, &g.IsCompleted, &g.CompletedAt,
		)
		g.Type = store.GoalType(goalType)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan goals: %w", err)
	}
	if goals == nil {
		goals = []store.Goal{}
	}
	return goals, nil
}
