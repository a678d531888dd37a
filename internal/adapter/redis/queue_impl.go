package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/user/feed-harvester/internal/repository"
)

const harvestQueueKey = "harvester:queue"

// QueueRepoImpl implements repository.QueueRepository with a Redis list.
type QueueRepoImpl struct {
	client *redis.Client
	key    string
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client, key: harvestQueueKey}
}

// Push adds a request to the left side of the list.
func (r *QueueRepoImpl) Push(ctx context.Context, request string) error {
	return r.client.LPush(ctx, r.key, request).Err()
}

// Pop removes a request from the right side of the list, giving FIFO order.
func (r *QueueRepoImpl) Pop(ctx context.Context) (string, error) {
	request, err := r.client.RPop(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrQueueEmpty
	}
	return request, err
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}
