package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vostrikal/stream-anomaly-worker/internal/db"
)

// Repository handles database operations for the sample archive
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertSample archives one classified sample
func (r *Repository) InsertSample(ctx context.Context, sample *db.StreamSample) error {
	query := `
		INSERT INTO stream_samples (
			run_id, seq, value, is_anomaly,
			window_mean, window_stddev, observed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		sample.RunID,
		sample.Seq,
		sample.Value,
		sample.IsAnomaly,
		sample.WindowMean,
		sample.WindowStdDev,
		sample.ObservedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert stream sample: %w", err)
	}

	return nil
}

// RecentAnomalies returns the most recently archived anomalous samples,
// newest first
func (r *Repository) RecentAnomalies(ctx context.Context, limit int) ([]db.StreamSample, error) {
	query := `
		SELECT id, run_id, seq, value, is_anomaly,
		       window_mean, window_stddev, observed_at
		FROM stream_samples
		WHERE is_anomaly
		ORDER BY observed_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent anomalies: %w", err)
	}
	defer rows.Close()

	var samples []db.StreamSample
	for rows.Next() {
		var s db.StreamSample
		if err := rows.Scan(
			&s.ID,
			&s.RunID,
			&s.Seq,
			&s.Value,
			&s.IsAnomaly,
			&s.WindowMean,
			&s.WindowStdDev,
			&s.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stream sample: %w", err)
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return samples, nil
}
