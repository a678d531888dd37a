package repository

import (
	"context"
	"time"

	"github.com/user/feed-harvester/internal/entity"
)

// FeedRepository is the browser session a harvest drives. Implementations are
// not safe for concurrent use.
type FeedRepository interface {
	// Open starts the session, navigates to the target feed and logs in when
	// credentials are given.
	Open(ctx context.Context, target string, creds *entity.Credentials) error
	// WaitReady reports whether feed (or profile) content became observable within timeout.
	WaitReady(ctx context.Context, timeout time.Duration) bool
	// DismissInterstitials closes any dialog covering the feed. Best effort.
	DismissInterstitials(ctx context.Context)
	// ListVisiblePosts snapshots the posts currently rendered.
	ListVisiblePosts(ctx context.Context) ([]Fragment, error)
	// RevealMore scrolls so the feed loads further posts.
	RevealMore(ctx context.Context) error
	// Navigate loads another page, such as an author profile, in the same session.
	Navigate(ctx context.Context, url string) error
	// ProfileImages returns the profile image URLs of the named author on the current page.
	ProfileImages(ctx context.Context, name string) ([]string, error)
	Close() error
}

// Fragment is one rendered post.
type Fragment interface {
	Permalink() (string, error)
	Author() (name, profileURL string, err error)
	Content() (string, error)
	Images() ([]string, error)
	TimePhrase() (string, error)
}
