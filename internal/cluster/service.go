package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"metalab/internal/audit"
	"metalab/internal/cache"
	"metalab/internal/cluster/metrics"
	"metalab/internal/meta"
	dErrors "metalab/pkg/domain-errors"
	"metalab/pkg/platform/sentinel"
	"metalab/pkg/requestcontext"
)

// defaultResultTTL bounds how long a result stays fetchable.
const defaultResultTTL = 15 * time.Minute

// normalizeConcurrency caps the fan-out when normalizing a batch.
const normalizeConcurrency = 8

// Document is one named extraction entering a batch.
type Document struct {
	Name       string
	Extraction meta.Extraction
}

// Result is a finished clustering, fetchable by id until the TTL runs out.
type Result struct {
	ResultID  string    `json:"result_id"`
	Clusters  []Cluster `json:"clusters"`
	DocCount  int       `json:"doc_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Service runs batch clustering and keeps results in a TTL cache.
type Service struct {
	cache   cache.Cache
	logger  *slog.Logger
	audit   audit.Publisher
	metrics *metrics.Metrics
	tracer  trace.Tracer
	ttl     time.Duration
	ignore  meta.IgnoreRules
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAudit sets the audit sink.
func WithAudit(p audit.Publisher) ServiceOption {
	return func(s *Service) {
		s.audit = p
	}
}

// WithIgnore replaces the baseline ignore rules applied before
// fingerprinting.
func WithIgnore(rules meta.IgnoreRules) ServiceOption {
	return func(s *Service) {
		s.ignore = rules
	}
}

// WithMetrics sets the Prometheus instruments.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithResultTTL overrides how long results stay fetchable.
func WithResultTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService creates a clustering service backed by the given result cache.
func NewService(c cache.Cache, opts ...ServiceOption) *Service {
	s := &Service{
		cache:  c,
		logger: slog.Default(),
		audit:  audit.Nop{},
		tracer: otel.Tracer("metalab/cluster"),
		ttl:    defaultResultTTL,
		ignore: BaselineIgnore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit normalizes every document, clusters the batch and stores the result
// under a fresh opaque id.
func (s *Service) Submit(ctx context.Context, docs []Document) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "cluster.Submit")
	defer span.End()

	if len(docs) == 0 {
		return Result{}, dErrors.New(dErrors.CodeValidation, "batch has no documents")
	}
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if d.Name == "" {
			return Result{}, dErrors.New(dErrors.CodeValidation, "every document needs a name")
		}
		if _, dup := seen[d.Name]; dup {
			return Result{}, dErrors.Newf(dErrors.CodeValidation, "duplicate document name %q", d.Name)
		}
		seen[d.Name] = struct{}{}
		if len(d.Extraction.Grouped) == 0 {
			return Result{}, dErrors.Newf(dErrors.CodeValidation, "document %q has no metadata groups", d.Name)
		}
	}

	members := make([]Member, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(normalizeConcurrency)
	for i, d := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n := meta.Normalize(d.Extraction, s.ignore, nil)
			members[i] = Member{Name: d.Name, Fingerprint: NewFingerprint(n.Flat)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "normalize batch")
	}

	result := Result{
		ResultID:  uuid.NewString(),
		Clusters:  Build(members),
		DocCount:  len(docs),
		CreatedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode result")
	}
	if err := s.cache.Set(ctx, result.ResultID, payload, s.ttl); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "store result")
	}

	if s.metrics != nil {
		s.metrics.ObserveBatch(result.DocCount)
	}
	s.logger.Info("batch clustered",
		"result_id", result.ResultID,
		"documents", result.DocCount,
		"clusters", len(result.Clusters),
	)

	event := audit.Event{
		Kind:      audit.KindBatchCluster,
		RequestID: requestcontext.RequestID(ctx),
		DocCount:  result.DocCount,
	}
	if err := s.audit.Emit(ctx, audit.Stamp(event)); err != nil {
		s.logger.Error("audit emit failed", "kind", event.Kind, "error", err)
	}

	return result, nil
}

// Result fetches a stored clustering by id. Expired and never-issued ids
// both come back as not found.
func (s *Service) Result(ctx context.Context, id string) (Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Result{}, dErrors.New(dErrors.CodeValidation, "malformed result id")
	}

	payload, err := s.cache.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			if s.metrics != nil {
				s.metrics.ResultMisses.Inc()
			}
			return Result{}, dErrors.Newf(dErrors.CodeNotFound, "result %s not found or expired", id)
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "fetch result")
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode stored result")
	}
	return result, nil
}
