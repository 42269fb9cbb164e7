package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
)

// SaveRecording implements [store.Store.SaveRecording]. Recordings are
// write-once; a primary-key conflict surfaces as an error.
func (s *Store) SaveRecording(ctx context.Context, rec store.Recording) error {
	const q = `
		INSERT INTO recordings
		    (id, created_at, prompt_id, drill_mode, duration_seconds, transcript,
		     overall, clarity, pace, filler_usage, pause_quality,
		     words_per_minute, filler_count, total_words, pause_count, flags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := s.pool.Exec(ctx, q,
		rec.ID,
		rec.CreatedAt,
		rec.PromptID,
		rec.DrillMode,
		rec.DurationSeconds,
		rec.Transcript,
		rec.Overall,
		rec.Clarity,
		rec.Pace,
		rec.FillerUsage,
		rec.PauseQuality,
		rec.WordsPerMinute,
		rec.TotalFillerCount,
		rec.TotalWords,
		rec.PauseCount,
		rec.Flags,
	)
	if err != nil {
		return fmt.Errorf("postgres store: save recording: %w", err)
	}
	return nil
}

// ListRecordings implements [store.Store.ListRecordings].
func (s *Store) ListRecordings(ctx context.Context, f store.RecordingFilter) ([]store.Recording, error) {
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"TRUE"}
	if !f.After.IsZero() {
		conditions = append(conditions, "created_at > "+next(f.After))
	}
	if !f.Before.IsZero() {
		conditions = append(conditions, "created_at < "+next(f.Before))
	}
	if f.MinOverall > 0 {
		conditions = append(conditions, "overall >= "+next(f.MinOverall))
	}
	if f.DrillsOnly {
		conditions = append(conditions, "drill_mode <> ''")
	}

	order := "ASC"
	if f.NewestFirst {
		order = "DESC"
	}

	q := `SELECT id, created_at, prompt_id, drill_mode, duration_seconds, transcript,
	             overall, clarity, pace, filler_usage, pause_quality,
	             words_per_minute, filler_count, total_words, pause_count, flags
	      FROM   recordings
	      WHERE  ` + strings.Join(conditions, "\n        AND  ") + `
	      ORDER  BY created_at ` + order

	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list recordings: %w", err)
	}

	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Recording, error) {
		var r store.Recording
		err := row.Scan(
			&r.ID,
			&r.CreatedAt,
			&r.PromptID,
			&r.DrillMode,
			&r.DurationSeconds,
			&r.Transcript,
			&r.Overall,
			&r.Clarity,
			&r.Pace,
			&r.FillerUsage,
			&r.PauseQuality,
			&r.WordsPerMinute,
			&r.TotalFillerCount,
			&r.TotalWords,
			&r.PauseCount,
			&r.Flags,
		)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan recordings: %w", err)
	}
	if recs == nil {
		recs = []store.Recording{}
	}
	return recs, nil
}
