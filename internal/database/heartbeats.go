package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// WriteHeartbeat record a heartbeat
func (d *Database) WriteHeartbeat(ctx context.Context, heartbeat models.Heartbeat) error {
	_, err := d.querier(ctx).ExecContext(ctx,
		"INSERT INTO heartbeats (stream_id, action, frame, timestamp) VALUES ($1, $2, $3, $4)",
		heartbeat.StreamID,
		heartbeat.Action,
		heartbeat.Frame,
		heartbeat.TimeStamp,
	)

	return err
}

// GetLatestHeartbeat returns the newest heartbeat of a stream, or nil
// when none was recorded yet.
func (d *Database) GetLatestHeartbeat(ctx context.Context, streamID string) (*models.Heartbeat, error) {
	var hb models.Heartbeat
	err := d.querier(ctx).QueryRowContext(ctx,
		"SELECT stream_id, action, frame, timestamp FROM heartbeats WHERE stream_id = $1 ORDER BY timestamp DESC LIMIT 1",
		streamID,
	).Scan(
		&hb.StreamID,
		&hb.Action,
		&hb.Frame,
		&hb.TimeStamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &hb, nil
}

// FindStuckStreams returns active streams whose engine has not reported
// a heartbeat within the interval.
func (d *Database) FindStuckStreams(ctx context.Context, interval time.Duration) ([]models.Stream, error) {
	rows, err := d.querier(ctx).QueryContext(ctx, `
		SELECT s.id, s.status, s.frame_source, s.created_at, s.updated_at
		FROM streams s
		LEFT JOIN (
			SELECT stream_id, MAX(timestamp) as last_heartbeat
			FROM heartbeats
			GROUP BY stream_id
		) h ON s.id = h.stream_id
		WHERE s.status = $1
		AND (h.last_heartbeat IS NULL OR h.last_heartbeat < $2)
	`, models.StatusActive, time.Now().Add(-interval))

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var streams []models.Stream
	for rows.Next() {
		var s models.Stream
		err := rows.Scan(
			&s.ID,
			&s.Status,
			&s.FrameSource,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		streams = append(streams, s)
	}

	return streams, nil
}
