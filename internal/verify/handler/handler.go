// Package handler exposes the verification engine over HTTP. It consumes
// pre-extracted metadata as JSON; byte-level extraction happens upstream.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"metalab/internal/verify"
	dErrors "metalab/pkg/domain-errors"
	"metalab/pkg/platform/httputil"
	"metalab/pkg/requestcontext"
)

// Service defines the interface for verification operations.
type Service interface {
	Check(ctx context.Context, req verify.CheckRequest) (verify.CheckResult, error)
	ListTemplateIDs(ctx context.Context, issuer string) ([]string, error)
}

// Handler wires verification endpoints to the verify service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify/check", h.HandleCheck)
	r.Get("/templates/{issuer}", h.HandleListTemplates)
}

// HandleCheck handles POST /verify/check requests.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.Decode[CheckRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Check(ctx, req.ToDomain())
	if err != nil {
		h.logger.ErrorContext(ctx, "template check failed",
			"request_id", requestID,
			"filename", req.Filename,
			"issuer", req.Issuer,
			"template_id", req.TemplateID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "template check served",
		"request_id", requestID,
		"filename", req.Filename,
		"template_id", result.Report.TemplateID,
		"status", result.Report.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromCheckResult(result))
}

// HandleListTemplates handles GET /templates/{issuer} requests.
func (h *Handler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer := chi.URLParam(r, "issuer")
	if issuer == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "issuer is required"))
		return
	}

	ids, err := h.service.ListTemplateIDs(ctx, issuer)
	if err != nil {
		h.logger.ErrorContext(ctx, "template listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"issuer", issuer,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, TemplatesResponse{
		Issuer:      issuer,
		TemplateIDs: ids,
	})
}
