package repository

import (
	"context"

	"github.com/user/feed-harvester/internal/entity"
)

// FailedForwardRepository keeps an audit trail of records the collector did not accept.
type FailedForwardRepository interface {
	// SaveOrUpdate creates or updates a record for a failed forward.
	SaveOrUpdate(ctx context.Context, failed *entity.FailedForward) error
	// List retrieves up to limit failed forwards, oldest attempt first.
	List(ctx context.Context, limit int) ([]*entity.FailedForward, error)
	// Delete removes the entry, typically after a successful forward.
	Delete(ctx context.Context, recordID string) error
}
