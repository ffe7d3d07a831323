package database

import (
	"context"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
	"github.com/google/uuid"
)

// InsertVerdict persists one assessed frame
func (d *Database) InsertVerdict(ctx context.Context, verdict *models.Verdict) error {
	if verdict.ID == "" {
		verdict.ID = uuid.New().String()
	}
	if verdict.Timestamp.IsZero() {
		verdict.Timestamp = time.Now()
	}

	_, err := d.querier(ctx).ExecContext(ctx,
		"INSERT INTO verdicts (id, stream_id, frame_index, level, timestamp, data) VALUES ($1, $2, $3, $4, $5, $6)",
		verdict.ID,
		verdict.StreamID,
		verdict.FrameIndex,
		verdict.Level,
		verdict.Timestamp,
		string(verdict.Data),
	)

	return err
}

// GetVerdictsByStream returns the most recent verdicts first
func (d *Database) GetVerdictsByStream(ctx context.Context, streamID string, limit int) ([]models.Verdict, error) {
	rows, err := d.querier(ctx).QueryContext(ctx,
		"SELECT id, stream_id, frame_index, level, timestamp, data FROM verdicts WHERE stream_id = $1 ORDER BY frame_index DESC LIMIT $2",
		streamID,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verdicts []models.Verdict
	for rows.Next() {
		var v models.Verdict
		var data string
		if err := rows.Scan(&v.ID, &v.StreamID, &v.FrameIndex, &v.Level, &v.Timestamp, &data); err != nil {
			return nil, err
		}
		v.Data = []byte(data)
		verdicts = append(verdicts, v)
	}

	return verdicts, nil
}

// CountVerdictsByStream reports how many frames already have a verdict
func (d *Database) CountVerdictsByStream(ctx context.Context, streamID string) (int64, error) {
	var count int64
	err := d.querier(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM verdicts WHERE stream_id = $1",
		streamID,
	).Scan(&count)

	return count, err
}

// GetVerdictStats returns per-level verdict counts and the highest
// frame index seen for a stream. The index is -1 when no verdicts
// exist.
func (d *Database) GetVerdictStats(ctx context.Context, streamID string) (map[string]int64, int64, error) {
	rows, err := d.querier(ctx).QueryContext(ctx,
		"SELECT level, COUNT(*) FROM verdicts WHERE stream_id = $1 GROUP BY level",
		streamID,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return nil, 0, err
		}
		counts[level] = count
	}

	var lastFrame int64
	err = d.querier(ctx).QueryRowContext(ctx,
		"SELECT COALESCE(MAX(frame_index), -1) FROM verdicts WHERE stream_id = $1",
		streamID,
	).Scan(&lastFrame)
	if err != nil {
		return nil, 0, err
	}

	return counts, lastFrame, nil
}
