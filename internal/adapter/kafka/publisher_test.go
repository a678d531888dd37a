package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/feed-harvester/internal/entity"
)

func TestEncode(t *testing.T) {
	records := []entity.Record{
		{ID: "1", AuthorName: "Alice", ImageURLs: []string{"a.jpg"}},
		{ID: "2", AuthorName: "Bob"},
	}

	messages, err := encode(records)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "1", string(messages[0].Key))
	var decoded entity.Record
	require.NoError(t, json.Unmarshal(messages[0].Value, &decoded))
	assert.Equal(t, records[0], decoded)
	assert.Equal(t, "2", string(messages[1].Key))
}
