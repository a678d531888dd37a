package chromedp_feed

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/feed-harvester/internal/repository"
)

var testBase, _ = url.Parse("https://www.facebook.com")

const groupPost = `
<div>
  <h3><span><a attributionsrc="/x" href="/alice.smith?__cft__=abc"><strong>Alice Smith</strong></a></span></h3>
  <span><a role="link" href="/groups/gophers/user/42/">Alice</a></span>
  <span><a role="link" aria-label="3h" href="/groups/gophers/posts/123456/?__cft__=xyz">3h</a></span>
  <div data-ad-preview="message"><div dir="auto">Hello <b>gophers</b></div></div>
  <div><img referrerpolicy="origin-when-cross-origin" src="https://cdn.example.com/1.jpg"></div>
  <div><img referrerpolicy="origin-when-cross-origin" src="https://cdn.example.com/2.jpg"></div>
  <img src="https://cdn.example.com/emoji.png">
</div>`

func TestPostFragment_GroupPost(t *testing.T) {
	frag, err := parseFragment(groupPost, testBase)
	require.NoError(t, err)

	link, err := frag.Permalink()
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/groups/gophers/posts/123456/?__cft__=xyz", link)

	name, profile, err := frag.Author()
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", name)
	assert.Equal(t, "https://www.facebook.com/alice.smith?__cft__=abc", profile)

	content, err := frag.Content()
	require.NoError(t, err)
	assert.Equal(t, "Hello gophers", content)

	images, err := frag.Images()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}, images)

	phrase, err := frag.TimePhrase()
	require.NoError(t, err)
	assert.Equal(t, "3h", phrase)
}

func TestPostFragment_PermalinkShapePriority(t *testing.T) {
	html := `<div>
	  <a href="https://www.facebook.com/groups/g/">group</a>
	  <a href="https://www.facebook.com/page/videos/987/">video</a>
	  <a href="https://www.facebook.com/photo/?fbid=555&amp;set=a.1">photo</a>
	</div>`
	frag, err := parseFragment(html, testBase)
	require.NoError(t, err)

	link, err := frag.Permalink()
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/photo/?fbid=555&set=a.1", link)

	phrase, err := frag.TimePhrase()
	require.NoError(t, err)
	assert.Equal(t, "photo", phrase)
}

func TestPostFragment_MissingFields(t *testing.T) {
	frag, err := parseFragment(`<div><p>nothing here</p></div>`, testBase)
	require.NoError(t, err)

	_, err = frag.Permalink()
	assert.ErrorIs(t, err, repository.ErrFieldMissing)
	_, _, err = frag.Author()
	assert.ErrorIs(t, err, repository.ErrFieldMissing)
	_, err = frag.Content()
	assert.ErrorIs(t, err, repository.ErrFieldMissing)
	_, err = frag.TimePhrase()
	assert.ErrorIs(t, err, repository.ErrFieldMissing)

	images, err := frag.Images()
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestParseFragments(t *testing.T) {
	frags := parseFragments([]string{groupPost, "<div></div>"}, testBase)
	assert.Len(t, frags, 2)
}

func TestProfileImagesFromHTML(t *testing.T) {
	html := `<html><body>
	  <svg role="img" aria-label="Alice Smith"><g><image xlink:href="https://cdn.example.com/alice.jpg"></image></g></svg>
	  <svg role="img" aria-label="Someone Else"><g><image xlink:href="https://cdn.example.com/other.jpg"></image></g></svg>
	</body></html>`

	images, err := profileImagesFromHTML(html, "Alice Smith")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/alice.jpg"}, images)

	images, err = profileImagesFromHTML(html, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, images)
}
