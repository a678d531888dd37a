package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticIDs struct {
	ids []string
	err error
}

func (s staticIDs) IDs(context.Context) ([]string, error) { return s.ids, s.err }

func TestDedupStore_LoadIsIdempotentUnion(t *testing.T) {
	ctx := context.Background()
	file := staticIDs{ids: []string{"1", "2", "3"}}
	mirror := staticIDs{ids: []string{"3", "4"}}

	d := NewDedupStore()
	require.NoError(t, d.Load(ctx, file, mirror))
	require.NoError(t, d.Load(ctx, file))

	assert.Equal(t, 4, d.Len())
	for _, id := range []string{"1", "2", "3", "4"} {
		assert.True(t, d.Contains(id), id)
	}
	assert.False(t, d.Contains("5"))
}

func TestDedupStore_EmptySource(t *testing.T) {
	d := NewDedupStore()
	require.NoError(t, d.Load(context.Background(), staticIDs{}))
	assert.Zero(t, d.Len())
}

func TestDedupStore_LoadError(t *testing.T) {
	boom := errors.New("connection refused")
	d := NewDedupStore()
	err := d.Load(context.Background(), staticIDs{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestDedupStore_MarkSeen(t *testing.T) {
	d := NewDedupStore()
	d.MarkSeen("42")
	d.MarkSeen("42")
	assert.True(t, d.Contains("42"))
	assert.Equal(t, 1, d.Len())
}
