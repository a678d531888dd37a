package repository

import "context"

// IDSource yields record ids harvested by earlier runs.
type IDSource interface {
	IDs(ctx context.Context) ([]string, error)
}

// SeenRepository mirrors harvested ids so runs on other hosts skip them too.
type SeenRepository interface {
	IDSource
	// MarkSeen adds ids to the mirror.
	MarkSeen(ctx context.Context, ids ...string) error
}
