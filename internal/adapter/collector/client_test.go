package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/feed-harvester/internal/entity"
)

func TestClient_Forward(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	rec := entity.Record{
		ID:         "123",
		AuthorName: "Alice",
		ImageURLs:  []string{"a.jpg"},
		CreatedAt:  "2024-03-10T09:00:00Z",
	}
	err := NewClient(srv.URL, 5*time.Second).Forward(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, "123", got["id"])
	assert.Equal(t, "Alice", got["name"])
	assert.Equal(t, []any{"a.jpg"}, got["group_images"])
	assert.Equal(t, "2024-03-10T09:00:00Z", got["create_at"])
	assert.Equal(t, []any{}, got["profile_images"], "unenriched records still send an array")
}

func TestClient_ForwardNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 5*time.Second).Forward(context.Background(), entity.Record{ID: "1"})
	require.ErrorIs(t, err, ErrUnexpectedStatus)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode())
}

func TestClient_ForwardInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 5*time.Second).Forward(context.Background(), entity.Record{ID: "1"})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClient_ForwardTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, time.Second).Forward(context.Background(), entity.Record{ID: "1"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnexpectedStatus)
}
