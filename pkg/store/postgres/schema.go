// Package postgres provides the PostgreSQL-backed implementation of
// [store.Store] used in production deployments.
//
// All tables share a single [pgxpool.Pool]. [Migrate] is idempotent
// (CREATE TABLE IF NOT EXISTS) and safe to run on every application start.
//
// Usage:
//
//	st, err := postgres.New(ctx, dsn)
//	if err != nil { … }
//	defer st.Close()
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlRecordings = `
CREATE TABLE IF NOT EXISTS recordings (
    id               TEXT         PRIMARY KEY,
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now(),
    prompt_id        TEXT         NOT NULL DEFAULT '',
    drill_mode       TEXT         NOT NULL DEFAULT '',
    duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
    transcript       TEXT         NOT NULL DEFAULT '',
    overall          INT          NOT NULL,
    clarity          INT          NOT NULL,
    pace             INT          NOT NULL,
    filler_usage     INT          NOT NULL,
    pause_quality    INT          NOT NULL,
    words_per_minute DOUBLE PRECISION NOT NULL DEFAULT 0,
    filler_count     INT          NOT NULL DEFAULT 0,
    total_words      INT          NOT NULL DEFAULT 0,
    pause_count      INT          NOT NULL DEFAULT 0,
    flags            TEXT[]       NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_recordings_created_at
    ON recordings (created_at);

CREATE INDEX IF NOT EXISTS idx_recordings_overall
    ON recordings (overall);

CREATE INDEX IF NOT EXISTS idx_recordings_drill_mode
    ON recordings (drill_mode);
`

const ddlGoals = `
CREATE TABLE IF NOT EXISTS goals (
    id           TEXT         PRIMARY KEY,
    type         TEXT         NOT NULL,
    target       DOUBLE PRECISION NOT NULL,
    current      DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    deadline     TIMESTAMPTZ,
    is_active    BOOLEAN      NOT NULL DEFAULT TRUE,
    is_completed BOOLEAN      NOT NULL DEFAULT FALSE,
    completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_goals_active
    ON goals (is_active);
`

const ddlAchievements = `
CREATE TABLE IF NOT EXISTS achievements (
    id            TEXT         PRIMARY KEY,
    name          TEXT         NOT NULL,
    description   TEXT         NOT NULL DEFAULT '',
    is_unlocked   BOOLEAN      NOT NULL DEFAULT FALSE,
    unlocked_date TIMESTAMPTZ
);
`

// Migrate creates or ensures all required tables and indexes exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlRecordings,
		ddlGoals,
		ddlAchievements,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
