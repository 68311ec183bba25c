package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"searchforge/internal/domain"
	"searchforge/internal/infra/tracer"
)

// SearchAdapter runs multi-query searches against a SearchBackend, filters
// incomplete items and caps the combined result list.
//
// It holds only read-only configuration; concurrent calls are independent.
type SearchAdapter struct {
	backend    SearchBackend
	maxResults int // default cap, 0 = uncapped
	metrics    *SearchMetrics
	logger     *slog.Logger
}

// NewSearchAdapter creates an adapter. maxResults is the default cap applied
// when a call does not pass WithMaxResults; 0 leaves results uncapped.
// metrics and logger may be nil.
func NewSearchAdapter(backend SearchBackend, maxResults int, metrics *SearchMetrics, logger *slog.Logger) *SearchAdapter {
	if maxResults < 0 {
		maxResults = 0
	}
	return &SearchAdapter{
		backend:    backend,
		maxResults: maxResults,
		metrics:    metrics,
		logger:     loggerOrDiscard(logger),
	}
}

// Backend returns the backend name.
func (s *SearchAdapter) Backend() string { return s.backend.Name() }

// DefaultMaxResults returns the configured default cap (0 = uncapped).
func (s *SearchAdapter) DefaultMaxResults() int { return s.maxResults }

type searchOptions struct {
	maxResults int
	set        bool
}

// SearchOption customizes a single search call.
type SearchOption func(*searchOptions)

// WithMaxResults overrides the configured default cap for one call.
// n must be positive.
func WithMaxResults(n int) SearchOption {
	return func(o *searchOptions) {
		o.maxResults = n
		o.set = true
	}
}

// Search runs every query and blocks until the combined collection is ready.
// Any failed request fails the whole call; no partial results are returned.
func (s *SearchAdapter) Search(ctx context.Context, queries []string, opts ...SearchOption) (*SearchResults, error) {
	return s.run(ctx, queries, opts)
}

// PendingSearch is an in-flight search started by SearchAsync.
type PendingSearch struct {
	done    chan struct{}
	results *SearchResults
	err     error
}

// SearchAsync starts the same search as Search without blocking. The search
// is bound to ctx; cancelling ctx aborts it.
func (s *SearchAdapter) SearchAsync(ctx context.Context, queries []string, opts ...SearchOption) *PendingSearch {
	p := &PendingSearch{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.results, p.err = s.run(ctx, queries, opts)
	}()
	return p
}

// Done is closed when the search has finished.
func (p *PendingSearch) Done() <-chan struct{} { return p.done }

// Wait blocks until the search finishes or ctx ends. Giving up on Wait does
// not cancel the search itself.
func (p *PendingSearch) Wait(ctx context.Context) (*SearchResults, error) {
	select {
	case <-p.done:
		return p.results, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run is the single implementation behind Search and SearchAsync.
func (s *SearchAdapter) run(ctx context.Context, queries []string, opts []SearchOption) (*SearchResults, error) {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateSearchInput(queries, o); err != nil {
		return nil, err
	}

	limit := s.maxResults
	if o.set {
		limit = o.maxResults
	}

	callID := ulid.Make().String()
	backend := s.backend.Name()
	ctx, span := tracer.StartSpan(ctx, "search.run", trace.WithAttributes(
		tracer.StringAttr("search.call_id", callID),
		tracer.StringAttr("search.backend", backend),
		tracer.StringSliceAttr("search.queries", queries),
		tracer.IntAttr("search.limit", limit),
	))
	defer span.End()

	start := time.Now()
	perQuery := make([][]RawResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			items, err := s.fetch(gctx, FetchRequest{Query: q, MaxResults: limit})
			if err != nil {
				return err
			}
			perQuery[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tracer.RecordError(span, err)
		s.metrics.observeSearch(backend, 0, 0, time.Since(start), err)
		return nil, err
	}

	results, dropped := collectResults(perQuery, limit)
	span.SetAttributes(
		tracer.IntAttr("search.results", len(results)),
		tracer.IntAttr("search.dropped", dropped),
	)
	tracer.SetOK(span)
	s.metrics.observeSearch(backend, len(results), dropped, time.Since(start), nil)

	s.logger.Debug("search completed",
		"call_id", callID,
		"backend", backend,
		"queries", len(queries),
		"results", len(results),
	)
	return &SearchResults{Results: results}, nil
}

func (s *SearchAdapter) fetch(ctx context.Context, req FetchRequest) ([]RawResult, error) {
	ctx, span := tracer.StartSpan(ctx, "search.fetch", trace.WithAttributes(
		tracer.StringAttr("search.query", req.Query),
	))
	defer span.End()

	items, err := s.backend.Fetch(ctx, req)
	s.metrics.observeFetch(s.backend.Name(), err)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(tracer.IntAttr("search.items", len(items)))
	tracer.SetOK(span)
	return items, nil
}

func validateSearchInput(queries []string, o searchOptions) error {
	const op = "SearchAdapter.Search"
	if len(queries) == 0 {
		return domain.NewDomainError(op, domain.ErrInvalidInput, "queries must not be empty")
	}
	for i, q := range queries {
		if strings.TrimSpace(q) == "" {
			return domain.NewDomainError(op, domain.ErrInvalidInput, fmt.Sprintf("query %d is empty", i))
		}
	}
	if o.set {
		if err := ValidatePositive("max_results", o.maxResults); err != nil {
			return domain.NewDomainError(op, domain.ErrInvalidInput, err.Error())
		}
	}
	return nil
}
