package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// UpsertRun records that the engine owns a stream. A repeated start
// command refreshes the action and timestamp of the existing row.
func (d *Database) UpsertRun(ctx context.Context, run *models.Run) error {
	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now

	_, err := d.querier(ctx).ExecContext(ctx,
		`INSERT INTO runs (id, action, frame_source, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
			 	ON CONFLICT (id) DO UPDATE SET action = $6, updated_at = NOW()`,
		run.ID,
		run.Action,
		run.FrameSource,
		run.CreatedAt,
		run.UpdatedAt,
		models.CommandStart,
	)

	return err
}

// GetRun returns nil without error when the stream was never commanded.
func (d *Database) GetRun(ctx context.Context, streamID string) (*models.Run, error) {
	row := d.querier(ctx).QueryRowContext(ctx, `
		SELECT id, action, frame_source, created_at, updated_at
		FROM runs
		WHERE id = $1
	`, streamID)

	var run models.Run
	err := row.Scan(
		&run.ID,
		&run.Action,
		&run.FrameSource,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// GetStoppedRuns retrieves runs flagged for shutdown
func (d *Database) GetStoppedRuns(ctx context.Context) ([]models.Run, error) {
	rows, err := d.querier(ctx).QueryContext(ctx, `
		SELECT id, action, frame_source, created_at, updated_at
		FROM runs
		WHERE action = $1
	`, models.CommandStop)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var r models.Run
		err := rows.Scan(
			&r.ID,
			&r.Action,
			&r.FrameSource,
			&r.CreatedAt,
			&r.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	return runs, nil
}

func (d *Database) SetRunAction(ctx context.Context, streamID string, newAction models.CommandAction) error {
	_, err := d.querier(ctx).ExecContext(ctx,
		"UPDATE runs SET action = $1, updated_at = $2 WHERE id = $3",
		newAction,
		time.Now(),
		streamID,
	)

	return err
}

// TouchRun bumps updated_at so a live run is not mistaken for a dead one
func (d *Database) TouchRun(ctx context.Context, streamID string) error {
	_, err := d.querier(ctx).ExecContext(ctx,
		"UPDATE runs SET updated_at = $1 WHERE id = $2",
		time.Now(),
		streamID,
	)

	return err
}
