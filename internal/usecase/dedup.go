package usecase

import (
	"context"
	"fmt"

	"github.com/user/feed-harvester/internal/repository"
)

// DedupStore is the set of record ids harvested by earlier runs plus the ids
// accepted during the current session. Ids are only ever added.
// It is owned by a single harvest session and is not safe for concurrent use.
type DedupStore struct {
	seen map[string]struct{}
}

func NewDedupStore() *DedupStore {
	return &DedupStore{seen: make(map[string]struct{})}
}

// Load unions the ids of every source into the store. Loading the same source
// twice leaves the set unchanged.
func (d *DedupStore) Load(ctx context.Context, sources ...repository.IDSource) error {
	for _, src := range sources {
		ids, err := src.IDs(ctx)
		if err != nil {
			return fmt.Errorf("loading seen ids: %w", err)
		}
		for _, id := range ids {
			d.seen[id] = struct{}{}
		}
	}
	return nil
}

func (d *DedupStore) Contains(id string) bool {
	_, ok := d.seen[id]
	return ok
}

// MarkSeen adds id to the in-memory set. Persistence happens through the
// record sinks, not here.
func (d *DedupStore) MarkSeen(id string) {
	d.seen[id] = struct{}{}
}

func (d *DedupStore) Len() int {
	return len(d.seen)
}
