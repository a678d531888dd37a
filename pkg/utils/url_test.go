package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripQuery(t *testing.T) {
	assert.Equal(t, "https://x/groups/g/posts/1", StripQuery("https://x/groups/g/posts/1?ref=share#c"))
	assert.Equal(t, "https://x/a", StripQuery("https://x/a"))
}

func TestToAbsoluteURL(t *testing.T) {
	base, err := url.Parse("https://www.facebook.com/groups/g")
	require.NoError(t, err)

	got, err := ToAbsoluteURL(base, "/groups/g/posts/1/")
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/groups/g/posts/1/", got)

	got, err = ToAbsoluteURL(base, "https://cdn.example/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img.jpg", got)
}
