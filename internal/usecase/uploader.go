package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/repository"
	"github.com/user/feed-harvester/pkg/logger"
	"github.com/user/feed-harvester/pkg/metrics"
)

// DefaultMaxConcurrency is the forward ceiling used when none is configured.
const DefaultMaxConcurrency = 10

// StatusCoder is implemented by forward errors that carry the collector's HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// UploadSummary counts the outcome of one ForwardAll batch.
type UploadSummary struct {
	Succeeded int
	Failed    int
}

// Uploader forwards finalized records to the collector with bounded concurrency.
// Delivery is at most once: a failed forward is logged, optionally recorded in
// the failed-forward table, and never retried within the batch.
type Uploader struct {
	forwarder repository.Forwarder
	failed    repository.FailedForwardRepository // optional
	gate      *semaphore.Weighted
	log       *slog.Logger
}

func NewUploader(forwarder repository.Forwarder, failed repository.FailedForwardRepository, maxConcurrency int) *Uploader {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Uploader{
		forwarder: forwarder,
		failed:    failed,
		gate:      semaphore.NewWeighted(int64(maxConcurrency)),
		log:       logger.WithComponent("uploader"),
	}
}

// ForwardAll attempts every record exactly once and returns when all forwards
// have finished. Cancelling ctx does not interrupt forwards already admitted.
func (u *Uploader) ForwardAll(ctx context.Context, records []entity.Record) UploadSummary {
	// In-flight forwards must be allowed to complete.
	ctx = context.WithoutCancel(ctx)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		failed    atomic.Int64
	)
	for _, rec := range records {
		if err := u.gate.Acquire(ctx, 1); err != nil {
			// Unreachable with a non-cancellable ctx; keep the count honest anyway.
			failed.Add(1)
			continue
		}
		wg.Add(1)
		metrics.ForwardsInFlight.Inc()
		go func(rec entity.Record) {
			defer func() {
				metrics.ForwardsInFlight.Dec()
				u.gate.Release(1)
				wg.Done()
			}()
			if u.forwardOne(ctx, rec) {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
		}(rec)
	}
	wg.Wait()

	summary := UploadSummary{Succeeded: int(succeeded.Load()), Failed: int(failed.Load())}
	u.log.Info("Upload batch finished", "records", len(records),
		"succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary
}

func (u *Uploader) forwardOne(ctx context.Context, rec entity.Record) bool {
	start := time.Now()
	err := u.forwarder.Forward(ctx, rec)
	metrics.ForwardDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ForwardsTotal.WithLabelValues("failure").Inc()
		u.log.Error("Forward failed", "id", rec.ID, "error", err)
		u.recordFailure(ctx, rec.ID, err)
		return false
	}

	metrics.ForwardsTotal.WithLabelValues("success").Inc()
	u.log.Debug("Forwarded record", "id", rec.ID)
	if u.failed != nil {
		if err := u.failed.Delete(ctx, rec.ID); err != nil {
			u.log.Warn("Failed to clear failed-forward entry", "id", rec.ID, "error", err)
		}
	}
	return true
}

func (u *Uploader) recordFailure(ctx context.Context, id string, forwardErr error) {
	if u.failed == nil {
		return
	}
	entry := &entity.FailedForward{
		RecordID:             id,
		FailureReason:        forwardErr.Error(),
		LastAttemptTimestamp: time.Now(),
	}
	var sc StatusCoder
	if errors.As(forwardErr, &sc) {
		entry.HTTPStatusCode = sc.StatusCode()
	}
	if err := u.failed.SaveOrUpdate(ctx, entry); err != nil {
		u.log.Warn("Failed to record failed forward", "id", id, "error", err)
	}
}
