package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/repository"
	"github.com/user/feed-harvester/pkg/logger"
	"github.com/user/feed-harvester/pkg/metrics"
)

// HarvestRequest is a queued harvest, encoded as JSON on the queue.
type HarvestRequest struct {
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// RunExecutor runs one harvest session. *Runner implements it.
type RunExecutor interface {
	Run(ctx context.Context, target string, count int) (entity.RunStatus, error)
}

// Scheduler accepts harvest requests and runs them one at a time.
type Scheduler struct {
	queue        repository.QueueRepository
	runner       RunExecutor
	defaultCount int
	log          *slog.Logger

	mu       sync.Mutex
	statuses map[string]entity.RunStatus
}

func NewScheduler(queue repository.QueueRepository, runner RunExecutor, defaultCount int) *Scheduler {
	return &Scheduler{
		queue:        queue,
		runner:       runner,
		defaultCount: defaultCount,
		log:          logger.WithComponent("scheduler"),
		statuses:     make(map[string]entity.RunStatus),
	}
}

// Submit queues a harvest of target. A non-positive count uses the default.
// It returns ErrRunInProgress when target is already queued or running.
func (s *Scheduler) Submit(ctx context.Context, target string, count int) (entity.RunStatus, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return entity.RunStatus{}, errors.New("target is required")
	}
	if count <= 0 {
		count = s.defaultCount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.statuses[target]; ok && (st.CurrentStatus == entity.RunQueued || st.CurrentStatus == entity.RunRunning) {
		return st, ErrRunInProgress
	}

	payload, err := json.Marshal(HarvestRequest{Target: target, Count: count})
	if err != nil {
		return entity.RunStatus{}, fmt.Errorf("encoding harvest request: %w", err)
	}
	if err := s.queue.Push(ctx, string(payload)); err != nil {
		return entity.RunStatus{}, fmt.Errorf("queueing harvest request: %w", err)
	}

	st := entity.RunStatus{Target: target, CurrentStatus: entity.RunQueued}
	s.statuses[target] = st
	s.log.Info("Harvest queued", "target", target, "count", count)
	return st, nil
}

// ProcessNext pops one request and runs it to completion. It reports false
// when the queue was empty.
func (s *Scheduler) ProcessNext(ctx context.Context) (bool, error) {
	raw, err := s.queue.Pop(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrQueueEmpty) {
			return false, nil
		}
		return false, fmt.Errorf("popping harvest request: %w", err)
	}

	var req HarvestRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil || req.Target == "" {
		s.log.Error("Dropping malformed harvest request", "payload", raw, "error", err)
		return true, nil
	}
	if req.Count <= 0 {
		req.Count = s.defaultCount
	}

	now := time.Now()
	s.setStatus(entity.RunStatus{Target: req.Target, CurrentStatus: entity.RunRunning, StartedAt: &now})

	st, err := s.runner.Run(ctx, req.Target, req.Count)
	if err != nil && st.CurrentStatus != entity.RunFailed {
		st.CurrentStatus = entity.RunFailed
		st.FailureReason = err.Error()
	}
	st.Target = req.Target
	s.setStatus(st)
	return true, nil
}

// Status returns the last known state of target's harvest.
func (s *Scheduler) Status(target string) entity.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.statuses[target]; ok {
		return st
	}
	return entity.RunStatus{Target: target, CurrentStatus: entity.RunNotFound}
}

// Work drains the queue, then polls it every interval until ctx is done.
func (s *Scheduler) Work(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for {
			processed, err := s.ProcessNext(ctx)
			if err != nil {
				s.log.Error("Error processing harvest queue", "error", err)
			}
			if !processed || ctx.Err() != nil {
				break
			}
		}
		if size, err := s.queue.Size(ctx); err == nil {
			metrics.HarvestRequestsInQueue.Set(float64(size))
		}
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) setStatus(st entity.RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[st.Target] = st
}
