package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/normalize"
	"github.com/user/feed-harvester/internal/repository"
	"github.com/user/feed-harvester/pkg/logger"
	"github.com/user/feed-harvester/pkg/metrics"
	"github.com/user/feed-harvester/pkg/utils"
)

// State is a step of the harvest state machine.
type State int

const (
	StateInit State = iota
	StateLoading
	StateScrollExtract
	StateBackoff
	StateEnrich
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateLoading:
		return "LOADING"
	case StateScrollExtract:
		return "SCROLL_EXTRACT"
	case StateBackoff:
		return "BACKOFF"
	case StateEnrich:
		return "ENRICH"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// HarvestOptions parameterise one harvest session.
type HarvestOptions struct {
	Target      string
	Credentials *entity.Credentials
	Variant     entity.FeedVariant
	TargetCount int
	// Timeout bounds the initial feed load and each backoff window.
	Timeout time.Duration
	// HardTimeout caps the whole extraction phase. Zero means 10x Timeout.
	HardTimeout time.Duration
	Cooldown    time.Duration
	// MaxBackoffs caps cooldowns per session. Zero means no cap beyond HardTimeout.
	MaxBackoffs int
	EnrichPause time.Duration
}

func (o HarvestOptions) hardTimeout() time.Duration {
	if o.HardTimeout > 0 {
		return o.HardTimeout
	}
	return 10 * o.Timeout
}

// Harvester drives a feed session through the harvest state machine.
type Harvester struct {
	feed  repository.FeedRepository
	log   *slog.Logger
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewHarvester(feed repository.FeedRepository) *Harvester {
	return &Harvester{
		feed:  feed,
		log:   logger.WithComponent("harvester"),
		now:   time.Now,
		sleep: sleepContext,
	}
}

// revealRetryPause separates scroll cycles when the feed could not scroll.
const revealRetryPause = 2 * time.Second

// session is the mutable state of one Harvest call.
type session struct {
	opts     HarvestOptions
	acc      *Accumulator
	started  time.Time
	anchor   time.Time
	backoffs int
}

// Harvest runs INIT through DONE and returns the accepted records. The feed
// session is closed on every return path. A feed that never loads yields no
// records and no error; a session that runs out of time yields the partial
// accumulation, as does a feed session lost mid-harvest (without enrichment).
// Only a failed INIT or a cancelled ctx returns an error.
func (h *Harvester) Harvest(ctx context.Context, dedup *DedupStore, opts HarvestOptions) ([]entity.Record, error) {
	s := &session{
		opts:    opts,
		acc:     NewAccumulator(dedup, opts.TargetCount),
		started: h.now(),
	}
	s.anchor = s.started
	log := h.log.With("target", opts.Target)

	defer func() {
		if cerr := h.feed.Close(); cerr != nil {
			log.Warn("Failed to close feed session", "error", cerr)
		}
		metrics.HarvestDuration.Observe(h.now().Sub(s.started).Seconds())
	}()

	state := StateInit
	for state != StateDone {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("Harvest cancelled", "state", state.String(), "accepted", s.acc.Size())
			return s.acc.Values(), ctxErr
		}

		log.Debug("Entering state", "state", state.String())
		switch state {
		case StateInit:
			if err := h.feed.Open(ctx, opts.Target, opts.Credentials); err != nil {
				return nil, fmt.Errorf("opening feed %q: %w", opts.Target, err)
			}
			h.feed.DismissInterstitials(ctx)
			state = StateLoading

		case StateLoading:
			if !h.feed.WaitReady(ctx, opts.Timeout) {
				log.Log(ctx, logger.LevelCritical, "Feed never became ready, giving up", "timeout", opts.Timeout)
				return nil, ctx.Err()
			}
			s.anchor = h.now()
			state = StateScrollExtract

		case StateScrollExtract:
			state = h.scrollExtract(ctx, s, log)

		case StateBackoff:
			state = h.backoff(ctx, s, log)

		case StateEnrich:
			h.enrich(ctx, s, log)
			state = StateDone
		}
	}

	log.Info("Harvest finished", "accepted", s.acc.Size(), "backoffs", s.backoffs,
		"elapsed", h.now().Sub(s.started).String())
	return s.acc.Values(), ctx.Err()
}

// scrollExtract processes one visible batch, reveals more content and picks
// the next state.
func (h *Harvester) scrollExtract(ctx context.Context, s *session, log *slog.Logger) State {
	h.feed.DismissInterstitials(ctx)

	fragments, err := h.feed.ListVisiblePosts(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrFeedUnavailable) {
			log.Error("Feed session lost, keeping partial harvest", "accepted", s.acc.Size(), "error", err)
			return StateDone
		}
		log.Warn("Failed to list visible posts", "error", err)
	}
	for i, frag := range fragments {
		if s.acc.Full() {
			break
		}
		rec, err := h.extract(frag, s)
		if err != nil {
			if !errors.Is(err, ErrDuplicate) {
				log.Debug("Skipping fragment", "index", i, "id", rec.ID, "error", err)
			}
			metrics.FragmentsTotal.WithLabelValues(outcomeLabel(err)).Inc()
			continue
		}
		if s.acc.Offer(rec) {
			log.Info("Accepted post", "id", rec.ID, "accepted", s.acc.Size(), "target_count", s.opts.TargetCount)
		}
	}

	if s.acc.Full() {
		return StateEnrich
	}
	if err := h.feed.RevealMore(ctx); err != nil {
		if errors.Is(err, repository.ErrFeedUnavailable) {
			log.Error("Feed session lost, keeping partial harvest", "accepted", s.acc.Size(), "error", err)
			return StateDone
		}
		log.Warn("Failed to reveal more posts", "error", err, "retry_in", revealRetryPause)
		if err := h.sleep(ctx, revealRetryPause); err != nil {
			return StateScrollExtract
		}
	}

	now := h.now()
	if now.Sub(s.started) >= s.opts.hardTimeout() {
		log.Warn("Hard timeout reached, keeping partial harvest",
			"accepted", s.acc.Size(), "target_count", s.opts.TargetCount)
		return StateEnrich
	}
	if now.Sub(s.anchor) >= s.opts.Timeout {
		return StateBackoff
	}
	return StateScrollExtract
}

func (h *Harvester) backoff(ctx context.Context, s *session, log *slog.Logger) State {
	if s.opts.MaxBackoffs > 0 && s.backoffs >= s.opts.MaxBackoffs {
		log.Warn("Backoff limit reached, keeping partial harvest", "backoffs", s.backoffs, "accepted", s.acc.Size())
		return StateEnrich
	}
	s.backoffs++
	metrics.BackoffsTotal.Inc()
	log.Info("Backoff window elapsed, cooling down", "cooldown", s.opts.Cooldown,
		"backoff", s.backoffs, "accepted", s.acc.Size())

	if err := h.sleep(ctx, s.opts.Cooldown); err != nil {
		return StateScrollExtract // the loop observes the cancelled ctx
	}
	now := h.now()
	if now.Sub(s.started) >= s.opts.hardTimeout() {
		log.Warn("Hard timeout reached during cooldown", "accepted", s.acc.Size())
		return StateEnrich
	}
	s.anchor = now
	return StateScrollExtract
}

// extract turns a fragment into a candidate record. Fields that are absent
// stay empty and are judged by the accumulator; any other accessor error
// fails the fragment.
func (h *Harvester) extract(frag repository.Fragment, s *session) (entity.Record, error) {
	var rec entity.Record

	link, err := frag.Permalink()
	if err != nil {
		return rec, fmt.Errorf("permalink: %w", err)
	}
	rec.ID = normalize.ResolveID(link)
	if err := s.acc.Admits(rec.ID); err != nil {
		return rec, err
	}
	rec.PostURL = utils.StripQuery(link)

	if rec.AuthorName, rec.AuthorProfileURL, err = frag.Author(); err != nil && !errors.Is(err, repository.ErrFieldMissing) {
		return rec, fmt.Errorf("author: %w", err)
	}
	if rec.Content, err = frag.Content(); err != nil && !errors.Is(err, repository.ErrFieldMissing) {
		return rec, fmt.Errorf("content: %w", err)
	}
	if rec.ImageURLs, err = frag.Images(); err != nil && !errors.Is(err, repository.ErrFieldMissing) {
		return rec, fmt.Errorf("images: %w", err)
	}

	phrase, err := frag.TimePhrase()
	if err != nil && !errors.Is(err, repository.ErrFieldMissing) {
		return rec, fmt.Errorf("time phrase: %w", err)
	}
	rec.CreatedAt = normalize.ResolveCreatedAt(phrase, h.now(), !s.opts.Variant.IsGroup)
	return rec, nil
}

// enrich attaches profile images to every accepted record. A failure leaves
// that record's ProfileImages empty.
func (h *Harvester) enrich(ctx context.Context, s *session, log *slog.Logger) {
	records := s.acc.Records()
	for i, rec := range records {
		if ctx.Err() != nil {
			return
		}
		rlog := log.With("id", rec.ID, "profile_url", rec.AuthorProfileURL)

		images, err := h.profileImages(ctx, rec, s.opts.Timeout)
		if err != nil {
			metrics.EnrichmentsTotal.WithLabelValues("failure").Inc()
			rlog.Warn("Profile enrichment failed", "error", err)
		} else {
			rec.ProfileImages = images
			metrics.EnrichmentsTotal.WithLabelValues("success").Inc()
			rlog.Debug("Profile images attached", "count", len(images))
		}

		if i < len(records)-1 && s.opts.EnrichPause > 0 {
			_ = h.sleep(ctx, s.opts.EnrichPause)
		}
	}
}

func (h *Harvester) profileImages(ctx context.Context, rec *entity.Record, timeout time.Duration) ([]string, error) {
	if rec.AuthorProfileURL == "" {
		return nil, fmt.Errorf("no profile url: %w", repository.ErrFieldMissing)
	}
	if err := h.feed.Navigate(ctx, rec.AuthorProfileURL); err != nil {
		return nil, err
	}
	if !h.feed.WaitReady(ctx, timeout) {
		return nil, fmt.Errorf("profile did not load within %s: %w", timeout, repository.ErrNavigationFailed)
	}
	return h.feed.ProfileImages(ctx, rec.AuthorName)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
