package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateSearch(cfg, ve)
	validateServer(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validSearchBackends = map[string]bool{
	"tavily":  true,
	"searxng": true,
}

var validSearchDepths = map[string]bool{
	"":         true,
	"basic":    true,
	"advanced": true,
}

func validateSearch(cfg *Config, ve *ValidationError) {
	s := cfg.Search
	if !validSearchBackends[s.Backend] {
		ve.Add("search.backend %q is invalid (want: tavily, searxng)", s.Backend)
	}
	switch s.Backend {
	case "tavily":
		if s.APIKey == "" {
			ve.Add("search.api_key is empty (set via TAVILY_API_KEY or SEARCHFORGE_SEARCH_API_KEY)")
		}
		validateHTTPURL(ve, "search.base_url", s.BaseURL)
	case "searxng":
		if s.SearXNGURL == "" {
			ve.Add("search.searxng_url is required when backend is searxng")
		} else {
			validateHTTPURL(ve, "search.searxng_url", s.SearXNGURL)
		}
	}
	if s.MaxResults < 0 {
		ve.Add("search.max_results must be >= 0")
	}
	if !validSearchDepths[s.SearchDepth] {
		ve.Add("search.search_depth %q is invalid (want: basic, advanced)", s.SearchDepth)
	}
	if s.Timeout <= 0 {
		ve.Add("search.timeout must be > 0")
	}
	if s.RateLimit.RequestsPerSecond < 0 {
		ve.Add("search.rate_limit.requests_per_second must be >= 0")
	}
	if s.RateLimit.RequestsPerSecond > 0 && s.RateLimit.Burst < 0 {
		ve.Add("search.rate_limit.burst must be >= 0")
	}
	if s.CircuitBreaker.Enabled {
		if s.CircuitBreaker.MaxFailures == 0 {
			ve.Add("search.circuit_breaker.max_failures must be > 0 when enabled")
		}
		if s.CircuitBreaker.Timeout <= 0 {
			ve.Add("search.circuit_breaker.timeout must be > 0 when enabled")
		}
	}
}

func validateHTTPURL(ve *ValidationError, field, value string) {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		ve.Add("%s %q must be an absolute http(s) URL", field, value)
	}
}

func validateServer(cfg *Config, ve *ValidationError) {
	if cfg.Server.Addr == "" {
		ve.Add("server.addr must not be empty")
	} else if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		ve.Add("server.addr %q is invalid: %v", cfg.Server.Addr, err)
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		ve.Add("server.shutdown_timeout must be > 0")
	}
	if cfg.Server.RequestsPerMinute < 0 {
		ve.Add("server.requests_per_minute must be >= 0")
	}
	if cfg.Server.RequestsPerMinute > 0 && cfg.Server.Burst < 1 {
		ve.Add("server.burst must be >= 1 when rate limiting is enabled")
	}
	for _, p := range cfg.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			ve.Add("server.trusted_proxies entry %q is not an IP address", p)
		}
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	if !validLogFormats[strings.ToLower(cfg.Logger.Format)] {
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}

var validExporters = map[string]bool{
	"noop": true, "stdout": true, "": true,
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if cfg.Tracer.Enabled && !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", cfg.Tracer.Exporter)
	}
}
