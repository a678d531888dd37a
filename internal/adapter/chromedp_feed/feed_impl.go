package chromedp_feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/repository"
	"github.com/user/feed-harvester/pkg/logger"
)

const (
	defaultActionTimeout = 20 * time.Second
	loginFieldTimeout    = 10 * time.Second
)

// Options configure a browser feed session.
type Options struct {
	BaseURL       string
	Variant       entity.FeedVariant
	Headless      bool
	Rotator       *Rotator
	ActionTimeout time.Duration
}

// Feed drives one headless Chrome tab over a group or page feed. It is not
// safe for concurrent use.
type Feed struct {
	opts   Options
	base   *url.URL
	layout entity.Layout
	log    *slog.Logger

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	onProfile   bool
}

var _ repository.FeedRepository = (*Feed)(nil)

func NewFeed(opts Options) (*Feed, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}
	if opts.Rotator == nil {
		opts.Rotator = NewRotator(nil)
	}
	return &Feed{
		opts:   opts,
		base:   base,
		layout: opts.Variant.Layout,
		log:    logger.WithComponent("feed"),
	}, nil
}

// FeedURL is the address of target's group or page feed.
func (f *Feed) FeedURL(target string) string {
	if f.opts.Variant.IsGroup {
		return f.base.String() + "/groups/" + url.PathEscape(target)
	}
	return f.base.String() + "/" + url.PathEscape(target)
}

func (f *Feed) Open(ctx context.Context, target string, creds *entity.Credentials) error {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.UserAgent(f.opts.Rotator.UserAgent()),
	)
	if proxy := f.opts.Rotator.Proxy(); proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxy))
		f.log.Info("Using proxy", "proxy", proxy)
	}

	// The browser outlives the Open call; Close releases it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(f.debugf),
		chromedp.WithErrorf(f.debugf),
	)
	f.allocCancel, f.tabCtx, f.tabCancel = allocCancel, tabCtx, tabCancel

	// Start the browser on the tab context itself so per-call timeouts never kill it.
	if err := chromedp.Run(tabCtx); err != nil {
		return fmt.Errorf("%w: starting browser: %v", repository.ErrFeedUnavailable, err)
	}

	feedURL := f.FeedURL(target)
	log := f.log.With("url", feedURL)
	if err := f.run(ctx, f.opts.ActionTimeout,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate(feedURL),
	); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrFeedUnavailable, feedURL, err)
	}
	log.Info("Feed opened")

	f.acceptCookies(ctx)
	if creds != nil && creds.Username != "" {
		if err := f.login(ctx, creds); err != nil {
			return fmt.Errorf("%w: login: %v", repository.ErrFeedUnavailable, err)
		}
		if err := f.run(ctx, f.opts.ActionTimeout, chromedp.Navigate(feedURL)); err != nil {
			return fmt.Errorf("%w: %s after login: %v", repository.ErrFeedUnavailable, feedURL, err)
		}
		log.Info("Logged in")
	}

	if f.layout == "" || f.layout == entity.LayoutAuto {
		f.layout = f.detectLayout(ctx)
		log.Info("Detected feed layout", "layout", f.layout)
	}
	return nil
}

func (f *Feed) WaitReady(ctx context.Context, timeout time.Duration) bool {
	if f.tabCtx == nil {
		return false
	}
	selector := `[aria-posinset]`
	switch {
	case f.onProfile:
		selector = `svg[role="img"]`
	case f.layout == entity.LayoutOld:
		selector = `.userContentWrapper`
		_ = f.pressKeys(ctx, kb.PageDown, 3+rand.IntN(3))
	}
	if err := f.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		f.log.Debug("Content did not appear", "selector", selector, "timeout", timeout, "error", err)
		return false
	}
	return true
}

const dismissScript = `(() => {
	let closed = 0;
	for (const sel of ['a.layerCancel', '#expanding_cta_close_button', '[aria-label="Close"]']) {
		for (const el of document.querySelectorAll(sel)) { el.click(); closed++; }
	}
	return closed;
})()`

func (f *Feed) DismissInterstitials(ctx context.Context) {
	var closed int
	if err := f.run(ctx, f.opts.ActionTimeout, chromedp.Evaluate(dismissScript, &closed)); err != nil {
		f.log.Debug("Dismissing dialogs failed", "error", err)
		return
	}
	if closed > 0 {
		f.log.Debug("Dismissed dialogs", "count", closed)
	}
}

const expandSeeMoreScript = `(() => {
	const targets = document.querySelectorAll(
		'[data-ad-preview="message"] div[dir="auto"] > div[role]:not([target]), span.see_more_link_inner');
	targets.forEach(el => el.click());
	return targets.length;
})()`

// ListVisiblePosts expands truncated posts and snapshots each rendered post.
func (f *Feed) ListVisiblePosts(ctx context.Context) ([]repository.Fragment, error) {
	var expanded int
	_ = f.run(ctx, f.opts.ActionTimeout, chromedp.Evaluate(expandSeeMoreScript, &expanded))

	selector := `div[role="article"]`
	switch {
	case f.layout == entity.LayoutOld:
		selector = `.userContentWrapper`
	case f.opts.Variant.IsGroup:
		selector = `div[role="feed"] > div`
	}
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%q), el => el.outerHTML)`, selector)

	var snapshots []string
	if err := f.run(ctx, f.opts.ActionTimeout, chromedp.Evaluate(script, &snapshots)); err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	f.log.Debug("Found posts", "count", len(snapshots), "expanded", expanded)
	return parseFragments(snapshots, f.base), nil
}

// RevealMore scrolls the feed. The new layout only loads further posts after a
// short upward nudge and a pause.
func (f *Feed) RevealMore(ctx context.Context) error {
	if f.layout == entity.LayoutOld {
		var scrolled bool
		if err := f.run(ctx, f.opts.ActionTimeout,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); true`, &scrolled)); err != nil {
			return fmt.Errorf("scrolling: %w", err)
		}
		return pause(ctx, time.Duration(5+rand.IntN(2))*time.Second)
	}

	if err := f.pressKeys(ctx, kb.PageUp, 1+rand.IntN(3)); err != nil {
		return fmt.Errorf("scrolling up: %w", err)
	}
	if err := pause(ctx, time.Duration(5+rand.IntN(2))*time.Second); err != nil {
		return err
	}
	if err := f.pressKeys(ctx, kb.PageDown, 5+rand.IntN(4)); err != nil {
		return fmt.Errorf("scrolling down: %w", err)
	}
	return nil
}

func (f *Feed) Navigate(ctx context.Context, target string) error {
	if err := f.run(ctx, f.opts.ActionTimeout, chromedp.Navigate(target)); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, target, err)
	}
	f.onProfile = true
	return nil
}

func (f *Feed) ProfileImages(ctx context.Context, name string) ([]string, error) {
	var html string
	if err := f.run(ctx, f.opts.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("reading profile page: %w", err)
	}
	return profileImagesFromHTML(html, name)
}

func (f *Feed) Close() error {
	if f.tabCancel != nil {
		f.tabCancel()
	}
	if f.allocCancel != nil {
		f.allocCancel()
	}
	f.tabCtx, f.tabCancel, f.allocCancel = nil, nil, nil
	return nil
}

// run executes actions on the tab, bounded by timeout and by ctx. A dead tab
// reports repository.ErrFeedUnavailable.
func (f *Feed) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if f.tabCtx == nil {
		return repository.ErrFeedUnavailable
	}
	if err := f.tabCtx.Err(); err != nil {
		return fmt.Errorf("%w: tab closed: %v", repository.ErrFeedUnavailable, err)
	}
	runCtx, cancel := context.WithTimeout(f.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if f.tabCtx.Err() != nil {
			return fmt.Errorf("%w: tab closed: %v", repository.ErrFeedUnavailable, err)
		}
		return err
	}
	return nil
}

func (f *Feed) acceptCookies(ctx context.Context) {
	const script = `(() => {
		const buttons = document.querySelectorAll('[aria-label="Allow all cookies"]');
		if (buttons.length === 0) return false;
		buttons[buttons.length - 1].click();
		return true;
	})()`
	var accepted bool
	if err := f.run(ctx, f.opts.ActionTimeout, chromedp.Evaluate(script, &accepted)); err == nil && accepted {
		f.log.Debug("Accepted cookie consent")
	}
}

func (f *Feed) login(ctx context.Context, creds *entity.Credentials) error {
	f.DismissInterstitials(ctx)
	return f.run(ctx, loginFieldTimeout+f.opts.ActionTimeout,
		chromedp.WaitVisible(`input[name="email"]`, chromedp.ByQuery),
		chromedp.SetValue(`input[name="email"]`, "", chromedp.ByQuery),
		chromedp.SendKeys(`input[name="email"]`, creds.Username, chromedp.ByQuery),
		chromedp.SetValue(`input[name="pass"]`, "", chromedp.ByQuery),
		chromedp.SendKeys(`input[name="pass"]`, creds.Password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
	)
}

func (f *Feed) detectLayout(ctx context.Context) entity.Layout {
	var legacy bool
	err := f.run(ctx, f.opts.ActionTimeout,
		chromedp.Evaluate(`document.getElementById("pagelet_bluebar") !== null`, &legacy))
	if err == nil && legacy {
		return entity.LayoutOld
	}
	return entity.LayoutNew
}

func (f *Feed) pressKeys(ctx context.Context, key string, n int) error {
	actions := make([]chromedp.Action, 0, n)
	for range n {
		actions = append(actions, chromedp.KeyEvent(key))
	}
	return f.run(ctx, f.opts.ActionTimeout, actions...)
}

func (f *Feed) debugf(format string, args ...any) {
	f.log.Debug(fmt.Sprintf(format, args...))
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
