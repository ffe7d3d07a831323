package database

import (
	"context"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
	"github.com/google/uuid"
)

// AddToOutbox adds a message to the transactional outbox
func (d *Database) AddToOutbox(ctx context.Context, streamID string, action models.CommandAction) error {
	_, err := d.querier(ctx).ExecContext(ctx,
		"INSERT INTO outbox (id, stream_id, action, created_at) VALUES ($1, $2, $3, $4)",
		uuid.New().String(),
		streamID,
		action,
		time.Now(),
	)

	return err
}

// GetPendingOutboxMessages retrieves unprocessed outbox messages
func (d *Database) GetPendingOutboxMessages(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	rows, err := d.querier(ctx).QueryContext(ctx, `
		SELECT
			o.id, o.stream_id, o.action, o.created_at,
			s.frame_source
		FROM outbox o
		JOIN streams s ON o.stream_id = s.id
		WHERE o.processed_at IS NULL
		ORDER BY o.created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.OutboxMessage
	for rows.Next() {
		var m models.OutboxMessage
		err := rows.Scan(
			&m.ID,
			&m.StreamID,
			&m.Action,
			&m.CreatedAt,
			&m.FrameSource,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, nil
}

// MarkOutboxMessageAsProcessed marks an outbox message as processed
func (d *Database) MarkOutboxMessageAsProcessed(ctx context.Context, id string) error {
	_, err := d.querier(ctx).ExecContext(ctx,
		"UPDATE outbox SET processed_at = $1 WHERE id = $2",
		time.Now(),
		id,
	)
	return err
}

// MarkOutboxMessagesProcessedByStreamID retires every pending command
// of a stream, returning how many were retired.
func (d *Database) MarkOutboxMessagesProcessedByStreamID(ctx context.Context, streamID string) (int64, error) {
	res, err := d.querier(ctx).ExecContext(ctx,
		"UPDATE outbox SET processed_at = $1 WHERE stream_id = $2 AND processed_at IS NULL",
		time.Now(),
		streamID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
