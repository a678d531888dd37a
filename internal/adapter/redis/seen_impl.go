package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const seenSetKey = "harvester:seen"

// SeenRepoImpl mirrors harvested record ids in a Redis set shared by every host.
type SeenRepoImpl struct {
	client *redis.Client
	key    string
}

func NewSeenRepo(client *redis.Client) *SeenRepoImpl {
	return &SeenRepoImpl{client: client, key: seenSetKey}
}

// IDs returns every mirrored id.
func (r *SeenRepoImpl) IDs(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, r.key).Result()
}

// MarkSeen adds ids to the set. SADD is idempotent.
func (r *SeenRepoImpl) MarkSeen(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	return r.client.SAdd(ctx, r.key, members...).Err()
}
