package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/repository"
)

type memSink struct {
	saved []entity.Record
	err   error
}

func (m *memSink) SaveAll(_ context.Context, records []entity.Record) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, records...)
	return nil
}

type memSeen struct {
	mu  sync.Mutex
	ids []string
}

func (m *memSeen) IDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids...), nil
}

func (m *memSeen) MarkSeen(_ context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, ids...)
	return nil
}

func runnerFeed() *fakeFeed {
	return &fakeFeed{
		clock: newFakeClock(),
		ready: true,
		batches: [][]repository.Fragment{{
			completeFragment("100", "alice"),
			completeFragment("200", "bob"),
			completeFragment("300", "carol"),
		}},
	}
}

func runnerDefaults() HarvestOptions {
	return HarvestOptions{
		Variant:     entity.FeedVariant{IsGroup: true, Layout: entity.LayoutNew},
		Timeout:     time.Minute,
		HardTimeout: time.Hour,
	}
}

func TestRunner_Run(t *testing.T) {
	feed := runnerFeed()
	file := &memSink{}
	extra := &memSink{err: errors.New("broker down")}
	seen := &memSeen{ids: []string{"100"}}
	fwd := newCountingForwarder()

	r := NewRunner(RunnerDeps{
		Feeds:    func() repository.FeedRepository { return feed },
		Sources:  []repository.IDSource{staticIDs{ids: []string{"200"}}},
		Sinks:    []repository.RecordSink{file, extra},
		Seen:     seen,
		Uploader: NewUploader(fwd, nil, 10),
	}, runnerDefaults())

	st, err := r.Run(context.Background(), "gophers", 1)
	require.NoError(t, err)

	assert.Equal(t, entity.RunCompleted, st.CurrentStatus)
	assert.Equal(t, 1, st.Accepted)
	assert.Equal(t, 1, st.Persisted)
	assert.Equal(t, 1, st.Forwarded)
	require.Len(t, file.saved, 1)
	assert.Equal(t, "300", file.saved[0].ID)
	assert.Equal(t, []string{"100", "300"}, seen.ids)
	assert.Equal(t, map[string]int{"300": 1}, fwd.attempts)
	assert.Equal(t, 1, feed.closed)
}

func TestRunner_PrimarySinkFailureFailsRun(t *testing.T) {
	feed := runnerFeed()
	r := NewRunner(RunnerDeps{
		Feeds: func() repository.FeedRepository { return feed },
		Sinks: []repository.RecordSink{&memSink{err: errors.New("disk full")}},
	}, runnerDefaults())

	st, err := r.Run(context.Background(), "gophers", 2)
	require.Error(t, err)
	assert.Equal(t, entity.RunFailed, st.CurrentStatus)
	assert.Contains(t, st.FailureReason, "disk full")
}

func TestRunner_OpenFailure(t *testing.T) {
	feed := runnerFeed()
	feed.openErr = repository.ErrFeedUnavailable
	file := &memSink{}
	r := NewRunner(RunnerDeps{
		Feeds: func() repository.FeedRepository { return feed },
		Sinks: []repository.RecordSink{file},
	}, runnerDefaults())

	st, err := r.Run(context.Background(), "gophers", 2)
	assert.ErrorIs(t, err, repository.ErrFeedUnavailable)
	assert.Equal(t, entity.RunFailed, st.CurrentStatus)
	assert.Empty(t, file.saved)
}
