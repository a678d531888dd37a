// Package normalize turns raw values scraped from feed fragments into the
// canonical forms stored on a record.
package normalize

import (
	"strings"

	"github.com/user/feed-harvester/internal/entity"
)

// idRule slices a record id out of a permalink of one particular shape.
type idRule struct {
	marker  string
	extract func(link string) string
}

// Rules are tried in order and the first matching marker decides. Videos sit
// ahead of photos so a link carrying both resolves as a video.
var idRules = []idRule{
	{marker: "/posts/", extract: segmentAfter("posts")},
	{marker: "/videos/", extract: segmentAfter("videos")},
	{marker: "/photos/", extract: secondToLastSegment},
	{marker: "/reel/", extract: segmentAfter("reel")},
	{marker: "/events/", extract: segmentAfter("events")},
	{marker: "fbid=", extract: fbidParam},
	{marker: "group", extract: segmentAt(6)},
}

// ResolveID derives the canonical record id from a post permalink. It returns
// entity.UnresolvedID when no shape matches or the expected segment is absent.
func ResolveID(permalink string) string {
	for _, rule := range idRules {
		if !strings.Contains(permalink, rule.marker) {
			continue
		}
		id := rule.extract(permalink)
		if id == "" {
			return entity.UnresolvedID
		}
		return id
	}
	return entity.UnresolvedID
}

func segmentAfter(name string) func(string) string {
	return func(link string) string {
		parts := strings.Split(stripQuery(link), "/")
		for i, part := range parts {
			if part == name && i+1 < len(parts) {
				return parts[i+1]
			}
		}
		return ""
	}
}

func segmentAt(index int) func(string) string {
	return func(link string) string {
		parts := strings.Split(link, "/")
		if index >= len(parts) {
			return ""
		}
		return stripQuery(parts[index])
	}
}

func secondToLastSegment(link string) string {
	parts := strings.Split(link, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

func fbidParam(link string) string {
	_, value, _ := strings.Cut(link, "fbid=")
	value, _, _ = strings.Cut(value, "&")
	value, _, _ = strings.Cut(value, "#")
	return value
}

func stripQuery(s string) string {
	s, _, _ = strings.Cut(s, "?")
	s, _, _ = strings.Cut(s, "#")
	return s
}
