package verify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"metalab/internal/audit"
	"metalab/internal/meta"
	"metalab/internal/template"
	"metalab/internal/variant"
	"metalab/internal/verify/metrics"
	dErrors "metalab/pkg/domain-errors"
	"metalab/pkg/platform/sentinel"
	"metalab/pkg/requestcontext"
)

// CheckRequest is one verification request. TemplateID pins the template
// explicitly; when empty, Issuer selects a variant rule table and the
// template is resolved by detection.
type CheckRequest struct {
	Filename   string
	Issuer     string
	TemplateID string
	Extraction meta.Extraction
}

// CheckResult is the outcome of one verification.
type CheckResult struct {
	Filename string       `json:"filename,omitempty"`
	Issuer   string       `json:"issuer,omitempty"`
	Variant  string       `json:"variant,omitempty"`
	Report   ReportRecord `json:"report"`
}

// Service orchestrates one check: resolve the template, normalize the
// extraction, compare, render and record.
type Service struct {
	store      template.Store
	variants   *variant.Registry
	comparator *Comparator
	logger     *slog.Logger
	metrics    *metrics.Metrics
	audit      audit.Publisher
	tracer     trace.Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the Prometheus instruments.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAudit sets the audit sink.
func WithAudit(p audit.Publisher) ServiceOption {
	return func(s *Service) {
		s.audit = p
	}
}

// WithComparator replaces the default comparator; tests pin its clock.
func WithComparator(c *Comparator) ServiceOption {
	return func(s *Service) {
		s.comparator = c
	}
}

// NewService creates a verification service.
func NewService(store template.Store, variants *variant.Registry, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		variants:   variants,
		comparator: NewComparator(),
		logger:     slog.Default(),
		audit:      audit.Nop{},
		tracer:     otel.Tracer("metalab/verify"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check verifies one document extraction against its template.
func (s *Service) Check(ctx context.Context, req CheckRequest) (CheckResult, error) {
	ctx, span := s.tracer.Start(ctx, "verify.Check")
	defer span.End()
	start := time.Now()

	if len(req.Extraction.Grouped) == 0 {
		return CheckResult{}, dErrors.New(dErrors.CodeValidation, "extraction has no metadata groups")
	}

	templateID := req.TemplateID
	var tag variant.Tag
	if templateID == "" {
		var err error
		templateID, tag, err = s.resolveTemplate(req)
		if err != nil {
			return CheckResult{}, err
		}
	}
	span.SetAttributes(attribute.String("template.id", templateID))

	tpl, err := s.store.Load(ctx, templateID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return CheckResult{}, dErrors.Wrap(err, dErrors.CodeNotFound, "template "+templateID+" not found")
		case errors.Is(err, sentinel.ErrUnavailable):
			return CheckResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "template store unavailable")
		default:
			return CheckResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load template")
		}
	}

	normalized := meta.Normalize(req.Extraction, tpl.Ignore, tpl.SplitFields)
	verdict := s.comparator.Compare(normalized, tpl, req.Extraction.SizeBytes)
	report := Render(verdict)

	s.record(ctx, req, tpl, tag, verdict, time.Since(start))

	return CheckResult{
		Filename: req.Filename,
		Issuer:   req.Issuer,
		Variant:  string(tag),
		Report:   report,
	}, nil
}

// ListTemplateIDs returns the ids of all templates registered for an issuer.
func (s *Service) ListTemplateIDs(ctx context.Context, issuer string) ([]string, error) {
	if issuer == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "issuer is required")
	}
	ids, err := s.store.ListIDsForIssuer(ctx, issuer)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "template store unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list templates")
	}
	if len(ids) == 0 {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no templates for issuer %q", issuer)
	}
	return ids, nil
}

func (s *Service) resolveTemplate(req CheckRequest) (string, variant.Tag, error) {
	if req.Issuer == "" {
		return "", variant.Unknown, dErrors.New(dErrors.CodeValidation, "template_id or issuer is required")
	}
	if s.variants == nil {
		return "", variant.Unknown, dErrors.New(dErrors.CodeUnavailable, "variant detection not configured")
	}
	rules, ok := s.variants.Rules(req.Issuer)
	if !ok {
		return "", variant.Unknown, dErrors.Newf(dErrors.CodeNotFound, "no variant rules for issuer %q", req.Issuer)
	}

	tag := rules.Detect(meta.Normalized{Raw: req.Extraction.Grouped})
	if tag == variant.Unknown {
		if rules.Fallback == variant.Unknown {
			return "", variant.Unknown, dErrors.Newf(dErrors.CodeAmbiguous,
				"no variant signature matched for issuer %q and no fallback is configured", req.Issuer)
		}
		tag = rules.Fallback
	}

	templateID, ok := rules.TemplateFor(tag)
	if !ok {
		return "", variant.Unknown, dErrors.Newf(dErrors.CodeInternal,
			"variant %q of issuer %q names no template", tag, req.Issuer)
	}
	return templateID, tag, nil
}

func (s *Service) record(ctx context.Context, req CheckRequest, tpl *template.Template, tag variant.Tag, v Verdict, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveCheck(v.Pass, elapsed.Seconds())
	}

	outcome := "fail"
	if v.Pass {
		outcome = "pass"
	}
	s.logger.Info("template check completed",
		"template_id", tpl.ID,
		"issuer", tpl.Issuer,
		"variant", string(tag),
		"outcome", outcome,
		"missing", len(v.MissingKeys),
		"extra", len(v.ExtraKeys),
		"mismatches", len(v.Mismatches),
		"duration", elapsed,
	)

	event := audit.Event{
		Kind:       audit.KindTemplateCheck,
		RequestID:  requestcontext.RequestID(ctx),
		Filename:   req.Filename,
		Issuer:     tpl.Issuer,
		TemplateID: tpl.ID,
		Variant:    string(tag),
		Outcome:    outcome,
	}
	if err := s.audit.Emit(ctx, audit.Stamp(event)); err != nil {
		s.logger.Error("audit emit failed", "kind", event.Kind, "error", err)
	}
}
