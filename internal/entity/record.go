package entity

import "encoding/json"

// UnresolvedID is the id assigned to a post whose permalink shape is not recognised.
const UnresolvedID = "NA"

// AnonymousParticipant is the author name shown for anonymous group posts.
const AnonymousParticipant = "Anonymous participant"

// Record is one harvested post. JSON tags follow the collector wire shape and
// the records file header.
type Record struct {
	ID               string   `json:"id"`
	AuthorName       string   `json:"name"`
	AuthorProfileURL string   `json:"profile_url"`
	Content          string   `json:"content"`
	PostURL          string   `json:"post_url"`
	ImageURLs        []string `json:"group_images"`
	CreatedAt        string   `json:"create_at"` // ISO-8601, empty when unresolved
	ProfileImages    []string `json:"profile_images"`
}

// MarshalJSON writes absent image lists as empty arrays, never null.
func (r Record) MarshalJSON() ([]byte, error) {
	type wire Record
	w := wire(r)
	if w.ImageURLs == nil {
		w.ImageURLs = []string{}
	}
	if w.ProfileImages == nil {
		w.ProfileImages = []string{}
	}
	return json.Marshal(w)
}

// Complete reports whether the record carries everything a harvested post must have.
func (r *Record) Complete() bool {
	return r.AuthorName != "" &&
		r.AuthorName != AnonymousParticipant &&
		r.Content != "" &&
		len(r.ImageURLs) > 0
}

// Credentials are the optional login details for the feed.
type Credentials struct {
	Username string
	Password string
}

// Layout is the UI generation of the feed being harvested.
type Layout string

const (
	LayoutAuto Layout = "auto"
	LayoutNew  Layout = "new"
	LayoutOld  Layout = "old"
)

// FeedVariant selects the feed shape: a group feed or a page feed, in one of the layouts.
type FeedVariant struct {
	IsGroup bool
	Layout  Layout
}
