package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/feed-harvester/internal/delivery/http/request"
	"github.com/user/feed-harvester/internal/delivery/http/response"
	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/usecase"
)

// HarvestScheduler is the part of usecase.Scheduler the API needs.
type HarvestScheduler interface {
	Submit(ctx context.Context, target string, count int) (entity.RunStatus, error)
	Status(target string) entity.RunStatus
}

type Handler struct {
	scheduler HarvestScheduler
}

func NewHandler(scheduler HarvestScheduler) *Handler {
	return &Handler{
		scheduler: scheduler,
	}
}

func (h *Handler) HandleSubmitHarvest(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitHarvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Target = strings.TrimSpace(req.Target)
	if req.Target == "" {
		h.writeJSONError(w, "target is required", http.StatusBadRequest)
		return
	}
	if req.Count < 0 {
		h.writeJSONError(w, "count must not be negative", http.StatusBadRequest)
		return
	}

	if _, err := h.scheduler.Submit(r.Context(), req.Target, req.Count); err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			h.writeJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("Failed to submit harvest", "target", req.Target, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.SubmitHarvestResponse{
		Status:  "success",
		Message: "Harvest queued",
		Target:  req.Target,
	})
}

func (h *Handler) HandleGetHarvestStatus(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		h.writeJSONError(w, "target query parameter is required", http.StatusBadRequest)
		return
	}

	status := h.scheduler.Status(target)
	if status.CurrentStatus == entity.RunNotFound {
		h.writeJSONError(w, "No harvest found for the given target", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, response.HarvestStatusResponse{
		Target:        status.Target,
		CurrentStatus: status.CurrentStatus,
		Accepted:      status.Accepted,
		Persisted:     status.Persisted,
		Forwarded:     status.Forwarded,
		ForwardFailed: status.ForwardFailed,
		StartedAt:     status.StartedAt,
		FinishedAt:    status.FinishedAt,
		FailureReason: status.FailureReason,
	})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
