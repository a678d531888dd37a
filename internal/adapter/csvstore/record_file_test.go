package csvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/feed-harvester/internal/entity"
)

func sampleRecords(n int) []entity.Record {
	out := make([]entity.Record, n)
	for i := range out {
		id := fmt.Sprintf("10%d", i)
		out[i] = entity.Record{
			ID:               id,
			AuthorName:       "Author, " + id,
			AuthorProfileURL: "https://www.facebook.com/user" + id,
			Content:          "line one\nline \"two\"",
			PostURL:          "https://www.facebook.com/groups/g/posts/" + id + "/",
			ImageURLs:        []string{"https://cdn/a.jpg", "https://cdn/b.jpg"},
			ProfileImages:    []string{"https://cdn/p.jpg"},
			CreatedAt:        "2024-03-10T09:00:00Z",
		}
	}
	return out
}

func TestRecordFile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "posts.csv")
	store := NewRecordFile(path)

	records := sampleRecords(3)
	require.NoError(t, store.SaveAll(ctx, records[:2]))
	require.NoError(t, store.SaveAll(ctx, records[2:]))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), strings.Join(Columns, ",")+"\n"))
	assert.Equal(t, 1, strings.Count(string(raw), "profile_images"), "header is written once")

	got, err := store.ReadAll(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(records, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("ReadAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordFile_IDsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewRecordFile(filepath.Join(t.TempDir(), "posts.csv"))
	require.NoError(t, store.SaveAll(ctx, sampleRecords(5)))

	first, err := store.IDs(ctx)
	require.NoError(t, err)
	second, err := NewRecordFile(store.Path()).IDs(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "101", "102", "103", "104"}, first)
	assert.Equal(t, first, second)
}

func TestRecordFile_MissingOrEmptyFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ids, err := NewRecordFile(filepath.Join(dir, "absent.csv")).IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	ids, err = NewRecordFile(empty).IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRecordFile_ReadsForeignColumnOrderAndBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.csv")
	content := "\xEF\xBB\xBFname,id,content\nAlice,1,hi\nBob,2,yo\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ids, err := NewRecordFile(path).IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestRecordFile_NoIDColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,content\nA,b\n"), 0o644))

	_, err := NewRecordFile(path).IDs(context.Background())
	assert.Error(t, err)
}
