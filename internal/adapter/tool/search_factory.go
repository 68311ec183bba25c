package tool

import (
	"fmt"
	"log/slog"

	"searchforge/internal/infra/config"
)

// NewSearchBackend builds the configured backend and wraps it with the
// optional rate limiter and circuit breaker. The breaker sits outside the
// limiter so that time spent waiting for a token is not counted against the
// endpoint.
func NewSearchBackend(cfg config.SearchConfig, logger *slog.Logger) (SearchBackend, error) {
	var backend SearchBackend
	switch cfg.Backend {
	case "tavily", "":
		tb, err := NewTavilyBackend(TavilyConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			SearchDepth:    cfg.SearchDepth,
			IncludeDomains: cfg.IncludeDomains,
			ExcludeDomains: cfg.ExcludeDomains,
			Timeout:        cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		backend = tb
	case "searxng":
		if err := ValidateAll(RequireField("searxng_url", cfg.SearXNGURL), ValidateURL("searxng_url", cfg.SearXNGURL)); err != nil {
			return nil, err
		}
		backend = NewSearXNGBackend(cfg.SearXNGURL, cfg.Timeout, logger)
	default:
		return nil, fmt.Errorf("unknown search backend %q (want: tavily, searxng)", cfg.Backend)
	}

	if cfg.RateLimit.RequestsPerSecond > 0 {
		backend = NewRateLimitedBackend(backend, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	if cfg.CircuitBreaker.Enabled {
		backend = NewCircuitBreakerBackend(backend, CircuitBreakerSettings{
			MaxFailures: cfg.CircuitBreaker.MaxFailures,
			Timeout:     cfg.CircuitBreaker.Timeout,
			Interval:    cfg.CircuitBreaker.Interval,
		}, logger)
	}
	return backend, nil
}

// NewSearchAdapterFromConfig wires a SearchAdapter from configuration.
func NewSearchAdapterFromConfig(cfg config.SearchConfig, metrics *SearchMetrics, logger *slog.Logger) (*SearchAdapter, error) {
	backend, err := NewSearchBackend(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create search backend: %w", err)
	}
	return NewSearchAdapter(backend, cfg.MaxResults, metrics, logger), nil
}
