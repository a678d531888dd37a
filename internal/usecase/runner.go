package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/repository"
	"github.com/user/feed-harvester/pkg/logger"
)

// FeedFactory opens a fresh browser collaborator for each run.
type FeedFactory func() repository.FeedRepository

// RunnerDeps wires a Runner. Only Feeds and Sinks are required.
type RunnerDeps struct {
	Feeds FeedFactory
	// Sources are loaded into the dedup store before every run.
	Sources []repository.IDSource
	// Sinks receive the finalized records in order; the first is the records file.
	Sinks    []repository.RecordSink
	Seen     repository.SeenRepository
	Uploader *Uploader
}

// Runner executes one complete harvest session: dedup load, harvest, persist,
// mirror seen ids, forward.
type Runner struct {
	deps     RunnerDeps
	defaults HarvestOptions
	log      *slog.Logger
}

// NewRunner creates a Runner; defaults supplies every HarvestOptions field
// except Target and TargetCount, which come from each Run call.
func NewRunner(deps RunnerDeps, defaults HarvestOptions) *Runner {
	return &Runner{deps: deps, defaults: defaults, log: logger.WithComponent("runner")}
}

// Run harvests target until count records are accepted. A harvest that ends
// early still persists and forwards what it accumulated.
func (r *Runner) Run(ctx context.Context, target string, count int) (entity.RunStatus, error) {
	started := time.Now()
	status := entity.RunStatus{Target: target, CurrentStatus: entity.RunRunning, StartedAt: &started}
	log := r.log.With("target", target)

	fail := func(err error) (entity.RunStatus, error) {
		finished := time.Now()
		status.CurrentStatus = entity.RunFailed
		status.FinishedAt = &finished
		status.FailureReason = err.Error()
		log.Error("Harvest run failed", "error", err)
		return status, err
	}

	dedup := NewDedupStore()
	sources := r.deps.Sources
	if r.deps.Seen != nil {
		sources = append(sources[:len(sources):len(sources)], r.deps.Seen)
	}
	if err := dedup.Load(ctx, sources...); err != nil {
		return fail(err)
	}
	log.Info("Loaded previously harvested ids", "count", dedup.Len())

	opts := r.defaults
	opts.Target = target
	opts.TargetCount = count

	records, harvestErr := NewHarvester(r.deps.Feeds()).Harvest(ctx, dedup, opts)
	status.Accepted = len(records)
	if harvestErr != nil && len(records) == 0 {
		return fail(harvestErr)
	}

	// Whatever was accumulated is persisted even after cancellation.
	persistCtx := context.WithoutCancel(ctx)
	if len(records) > 0 {
		if err := r.persist(persistCtx, records); err != nil {
			return fail(err)
		}
		status.Persisted = len(records)
		r.mirrorSeen(persistCtx, records, log)
	}

	if r.deps.Uploader != nil && len(records) > 0 {
		summary := r.deps.Uploader.ForwardAll(persistCtx, records)
		status.Forwarded = summary.Succeeded
		status.ForwardFailed = summary.Failed
	}

	finished := time.Now()
	status.FinishedAt = &finished
	status.CurrentStatus = entity.RunCompleted
	if harvestErr != nil {
		status.CurrentStatus = entity.RunFailed
		status.FailureReason = harvestErr.Error()
	}

	log.Info("Harvest run summary",
		"accepted", status.Accepted,
		"persisted", status.Persisted,
		"forwarded", status.Forwarded,
		"forward_failed", status.ForwardFailed,
		"duration", finished.Sub(started).String(),
	)
	return status, harvestErr
}

// persist writes to every sink. The first sink is the durable records file and
// its failure fails the run; later sinks are best effort.
func (r *Runner) persist(ctx context.Context, records []entity.Record) error {
	for i, sink := range r.deps.Sinks {
		if err := sink.SaveAll(ctx, records); err != nil {
			if i == 0 {
				return fmt.Errorf("saving records: %w", err)
			}
			r.log.Warn("Secondary record sink failed", "sink", fmt.Sprintf("%T", sink), "error", err)
		}
	}
	return nil
}

func (r *Runner) mirrorSeen(ctx context.Context, records []entity.Record, log *slog.Logger) {
	if r.deps.Seen == nil {
		return
	}
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	if err := r.deps.Seen.MarkSeen(ctx, ids...); err != nil {
		log.Warn("Failed to mirror seen ids", "count", len(ids), "error", err)
	}
}
