package chromedp_feed

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/feed-harvester/internal/repository"
	"github.com/user/feed-harvester/pkg/utils"
)

// permalinkShapes ranks post links: the first shape any anchor matches wins.
var permalinkShapes = []func(href string) bool{
	func(h string) bool { return strings.Contains(h, "/posts/") && strings.Contains(h, "/groups/") },
	func(h string) bool { return strings.Contains(h, "/posts/") },
	func(h string) bool { return strings.Contains(h, "/videos/pcb") },
	func(h string) bool { return strings.Contains(h, "/photos/") },
	func(h string) bool { return strings.Contains(h, "fbid=") },
	func(h string) bool { return strings.Contains(h, "/group/") },
	func(h string) bool { return strings.Contains(h, "/videos/") },
	func(h string) bool { return strings.Contains(h, "/groups/") },
}

// postFragment is a parsed snapshot of one rendered post.
type postFragment struct {
	sel  *goquery.Selection
	base *url.URL

	linked bool
	link   *goquery.Selection
	href   string
}

func parseFragment(html string, base *url.URL) (*postFragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing post fragment: %w", err)
	}
	return &postFragment{sel: doc.Selection, base: base}, nil
}

// parseFragments skips snapshots that cannot be parsed.
func parseFragments(snapshots []string, base *url.URL) []repository.Fragment {
	out := make([]repository.Fragment, 0, len(snapshots))
	for _, html := range snapshots {
		if frag, err := parseFragment(html, base); err == nil {
			out = append(out, frag)
		}
	}
	return out
}

func (f *postFragment) absolute(href string) string {
	abs, err := utils.ToAbsoluteURL(f.base, href)
	if err != nil {
		return href
	}
	return abs
}

// permalinkAnchor picks the anchor whose href best identifies the post.
func (f *postFragment) permalinkAnchor() (*goquery.Selection, string) {
	if f.linked {
		return f.link, f.href
	}
	f.linked = true

	type anchor struct {
		sel  *goquery.Selection
		href string
	}
	var anchors []anchor
	f.sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href = strings.TrimSpace(href); href != "" && href != "#" {
			anchors = append(anchors, anchor{sel: a, href: f.absolute(href)})
		}
	})
	for _, matches := range permalinkShapes {
		for _, a := range anchors {
			if matches(a.href) {
				f.link, f.href = a.sel, a.href
				return f.link, f.href
			}
		}
	}
	return nil, ""
}

func (f *postFragment) Permalink() (string, error) {
	if _, href := f.permalinkAnchor(); href != "" {
		return href, nil
	}
	return "", fmt.Errorf("permalink: %w", repository.ErrFieldMissing)
}

func (f *postFragment) Author() (string, string, error) {
	name := strings.TrimSpace(f.sel.Find("strong").First().Text())
	profile, _ := f.sel.Find("span > a[attributionsrc]").First().Attr("href")
	if name == "" && profile == "" {
		return "", "", fmt.Errorf("author: %w", repository.ErrFieldMissing)
	}
	if profile != "" {
		profile = f.absolute(profile)
	}
	return name, profile, nil
}

func (f *postFragment) Content() (string, error) {
	msg := f.sel.Find(`[data-ad-preview="message"]`)
	if msg.Length() == 0 {
		return "", fmt.Errorf("content: %w", repository.ErrFieldMissing)
	}
	return strings.TrimSpace(msg.First().Text()), nil
}

func (f *postFragment) Images() ([]string, error) {
	var images []string
	f.sel.Find("div > img[referrerpolicy]").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && src != "" {
			images = append(images, src)
		}
	})
	return images, nil
}

// TimePhrase reads the permalink anchor's label, which carries either a
// relative phrase ("3h") or a full date on page feeds.
func (f *postFragment) TimePhrase() (string, error) {
	link, _ := f.permalinkAnchor()
	if link == nil {
		return "", fmt.Errorf("time phrase: %w", repository.ErrFieldMissing)
	}
	if label, ok := link.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label), nil
	}
	if text := strings.TrimSpace(link.Text()); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("time phrase: %w", repository.ErrFieldMissing)
}

// profileImagesFromHTML finds the avatar images labelled with the author's name.
func profileImagesFromHTML(html, name string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing profile page: %w", err)
	}
	var images []string
	doc.Find(`svg[role="img"]`).Each(func(_ int, svg *goquery.Selection) {
		if label, _ := svg.Attr("aria-label"); label != name {
			return
		}
		svg.Find("g > image").Each(func(_ int, img *goquery.Selection) {
			// The HTML parser stores xlink:href as href in the xlink namespace.
			if src, ok := img.Attr("href"); ok && src != "" {
				images = append(images, src)
			} else if src, ok := img.Attr("xlink:href"); ok && src != "" {
				images = append(images, src)
			}
		})
	})
	return images, nil
}
