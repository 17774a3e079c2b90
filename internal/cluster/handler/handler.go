// Package handler exposes batch clustering over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"metalab/internal/cluster"
	dErrors "metalab/pkg/domain-errors"
	"metalab/pkg/platform/httputil"
	"metalab/pkg/requestcontext"
)

// Service defines the interface for clustering operations.
type Service interface {
	Submit(ctx context.Context, docs []cluster.Document) (cluster.Result, error)
	Result(ctx context.Context, id string) (cluster.Result, error)
}

// Handler wires clustering endpoints to the cluster service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a clustering handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts clustering endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cluster", h.HandleSubmit)
	r.Get("/cluster/result/{id}", h.HandleResult)
}

// HandleSubmit handles POST /cluster requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.Decode[SubmitRequest](w, r, h.logger)
	if !ok {
		return
	}
	if len(req.Documents) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "documents are required"))
		return
	}

	result, err := h.service.Submit(ctx, req.ToDomain())
	if err != nil {
		h.logger.ErrorContext(ctx, "batch clustering failed",
			"request_id", requestID,
			"documents", len(req.Documents),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch clustering served",
		"request_id", requestID,
		"result_id", result.ResultID,
		"documents", result.DocCount,
		"clusters", len(result.Clusters),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleResult handles GET /cluster/result/{id} requests.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	result, err := h.service.Result(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
