package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"searchforge/internal/domain"
)

// RateLimitedBackend paces requests to the wrapped backend with a token
// bucket. Waiting callers block until a token is available or ctx ends.
type RateLimitedBackend struct {
	inner   SearchBackend
	limiter *rate.Limiter
}

// NewRateLimitedBackend allows rps requests per second with the given burst
// (minimum 1).
func NewRateLimitedBackend(inner SearchBackend, rps float64, burst int) *RateLimitedBackend {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedBackend{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (b *RateLimitedBackend) Name() string { return b.inner.Name() }

func (b *RateLimitedBackend) Fetch(ctx context.Context, req FetchRequest) ([]RawResult, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search backend %q rate limit wait: %w", b.inner.Name(), err)
	}
	return b.inner.Fetch(ctx, req)
}

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerSettings configures CircuitBreakerBackend. Zero values use defaults.
type CircuitBreakerSettings struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
}

// CircuitBreakerBackend fails fast once the wrapped endpoint has failed
// repeatedly. It never retries; an open circuit is just another fatal error
// for the search call.
type CircuitBreakerBackend struct {
	inner   SearchBackend
	breaker *gobreaker.CircuitBreaker[[]RawResult]
}

// NewCircuitBreakerBackend wraps inner with a circuit breaker.
func NewCircuitBreakerBackend(inner SearchBackend, s CircuitBreakerSettings, logger *slog.Logger) *CircuitBreakerBackend {
	logger = loggerOrDiscard(logger)
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := s.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[[]RawResult](gobreaker.Settings{
		Name:        "search:" + inner.Name(),
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: endpointHealthy,
	})

	return &CircuitBreakerBackend{inner: inner, breaker: cb}
}

func (b *CircuitBreakerBackend) Name() string { return b.inner.Name() }

func (b *CircuitBreakerBackend) Fetch(ctx context.Context, req FetchRequest) ([]RawResult, error) {
	items, err := b.breaker.Execute(func() ([]RawResult, error) {
		return b.inner.Fetch(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("search backend %q: %w: %w", b.inner.Name(), domain.ErrCircuitOpen, err)
	}
	return items, err
}

// State returns the current circuit breaker state for monitoring.
func (b *CircuitBreakerBackend) State() gobreaker.State {
	return b.breaker.State()
}

// endpointHealthy decides whether an outcome counts against the endpoint.
// Client-side problems (4xx other than 429, caller cancellation) say nothing
// about endpoint health.
func endpointHealthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var re *RetrievalError
	if errors.As(err, &re) {
		return !re.Transient()
	}
	return false
}

// Compile-time interface checks.
var (
	_ SearchBackend = (*TavilyBackend)(nil)
	_ SearchBackend = (*SearXNGBackend)(nil)
	_ SearchBackend = (*RateLimitedBackend)(nil)
	_ SearchBackend = (*CircuitBreakerBackend)(nil)
)
