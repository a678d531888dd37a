package repository

import (
	"context"

	"github.com/user/feed-harvester/internal/entity"
)

// RecordSink durably stores finalized records.
type RecordSink interface {
	SaveAll(ctx context.Context, records []entity.Record) error
}

// RecordRepository is a sink that can also read records back.
type RecordRepository interface {
	RecordSink
	IDSource
	// FindByID retrieves a stored record; ErrNotFound when absent.
	FindByID(ctx context.Context, id string) (*entity.Record, error)
}

// Forwarder pushes one record to the collector endpoint.
type Forwarder interface {
	Forward(ctx context.Context, record entity.Record) error
}
