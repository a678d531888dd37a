package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/repository"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	connString := os.Getenv("TEST_POSTGRES_URL")
	if connString == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, `TRUNCATE harvested_records, failed_forwards`)
		pool.Close()
	})
	_, err = pool.Exec(ctx, `TRUNCATE harvested_records, failed_forwards`)
	require.NoError(t, err)
	return pool
}

func TestRecordRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepo(testPool(t))

	rec := entity.Record{
		ID:               "123",
		AuthorName:       "Alice",
		AuthorProfileURL: "https://www.facebook.com/alice",
		Content:          "hello",
		PostURL:          "https://www.facebook.com/groups/g/posts/123/",
		ImageURLs:        []string{"a.jpg", "b.jpg"},
		CreatedAt:        "2024-03-10T09:00:00Z",
	}
	require.NoError(t, repo.SaveAll(ctx, []entity.Record{rec}))

	dup := rec
	dup.Content = "changed"
	require.NoError(t, repo.SaveAll(ctx, []entity.Record{dup}))

	got, err := repo.FindByID(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, got.ImageURLs)
	assert.Empty(t, got.ProfileImages)

	ids, err := repo.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"123"}, ids)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFailedForwardRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewFailedForwardRepo(testPool(t))

	entry := &entity.FailedForward{
		RecordID:             "123",
		FailureReason:        "status 502",
		HTTPStatusCode:       502,
		LastAttemptTimestamp: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.SaveOrUpdate(ctx, entry))
	require.NoError(t, repo.SaveOrUpdate(ctx, entry))

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].AttemptCount)
	assert.Equal(t, 502, list[0].HTTPStatusCode)

	require.NoError(t, repo.Delete(ctx, "123"))
	require.NoError(t, repo.Delete(ctx, "123"))
	list, err = repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
