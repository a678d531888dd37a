package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/feed-harvester/internal/entity"
)

// FailedForwardRepoImpl implements repository.FailedForwardRepository.
type FailedForwardRepoImpl struct {
	db *pgxpool.Pool
}

func NewFailedForwardRepo(db *pgxpool.Pool) *FailedForwardRepoImpl {
	return &FailedForwardRepoImpl{db: db}
}

// SaveOrUpdate records a failed forward, incrementing attempt_count on conflict.
func (r *FailedForwardRepoImpl) SaveOrUpdate(ctx context.Context, failed *entity.FailedForward) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO failed_forwards (record_id, failure_reason, http_status_code, last_attempt_timestamp, attempt_count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (record_id) DO UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			http_status_code = EXCLUDED.http_status_code,
			last_attempt_timestamp = EXCLUDED.last_attempt_timestamp,
			attempt_count = failed_forwards.attempt_count + 1`,
		failed.RecordID,
		failed.FailureReason,
		failed.HTTPStatusCode,
		failed.LastAttemptTimestamp,
	)
	return err
}

// List returns up to limit entries, oldest attempt first.
func (r *FailedForwardRepoImpl) List(ctx context.Context, limit int) ([]*entity.FailedForward, error) {
	rows, err := r.db.Query(ctx, `
		SELECT record_id, failure_reason, http_status_code, last_attempt_timestamp, attempt_count
		FROM failed_forwards
		ORDER BY last_attempt_timestamp ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.FailedForward
	for rows.Next() {
		var f entity.FailedForward
		if err := rows.Scan(
			&f.RecordID,
			&f.FailureReason,
			&f.HTTPStatusCode,
			&f.LastAttemptTimestamp,
			&f.AttemptCount,
		); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// Delete removes the entry for recordID. Deleting a missing entry is not an error.
func (r *FailedForwardRepoImpl) Delete(ctx context.Context, recordID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM failed_forwards WHERE record_id = $1`, recordID)
	return err
}
