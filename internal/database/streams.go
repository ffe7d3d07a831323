package database

import (
	"context"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// GetStreamByID retrieves a stream by its ID
func (d *Database) GetStreamByID(ctx context.Context, streamID string) (models.Stream, error) {
	var s models.Stream
	err := d.querier(ctx).QueryRowContext(ctx,
		"SELECT id, status, frame_source, created_at, updated_at FROM streams WHERE id = $1",
		streamID,
	).Scan(
		&s.ID,
		&s.Status,
		&s.FrameSource,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		return models.Stream{}, err
	}

	return s, nil
}

// GetStreamStatus retrieves only the status of a stream by its ID
func (d *Database) GetStreamStatus(ctx context.Context, streamID string) (string, error) {
	var status string
	err := d.querier(ctx).QueryRowContext(ctx,
		"SELECT status FROM streams WHERE id = $1",
		streamID,
	).Scan(&status)

	return status, err
}

// CreateStream creates a new stream record
func (d *Database) CreateStream(ctx context.Context, stream *models.Stream) error {
	now := time.Now()
	stream.CreatedAt = now
	stream.UpdatedAt = now

	_, err := d.querier(ctx).ExecContext(ctx,
		"INSERT INTO streams (id, status, frame_source, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
		stream.ID,
		stream.Status,
		stream.FrameSource,
		stream.CreatedAt,
		stream.UpdatedAt,
	)

	return err
}

// UpdateStreamStatus moves a stream to a new lifecycle status
func (d *Database) UpdateStreamStatus(ctx context.Context, streamID string, status string) error {
	_, err := d.querier(ctx).ExecContext(ctx,
		"UPDATE streams SET status = $1, updated_at = $2 WHERE id = $3",
		status,
		time.Now(),
		streamID,
	)

	return err
}
