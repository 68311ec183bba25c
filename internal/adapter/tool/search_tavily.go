package tool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"searchforge/internal/domain"
)

const (
	maxSearchBodySize    = 512 * 1024 // 512KB
	defaultSearchTimeout = 15 * time.Second
)

// TavilyConfig holds the endpoint configuration for the Tavily API.
type TavilyConfig struct {
	APIKey         string
	BaseURL        string
	SearchDepth    string // "basic", "advanced" or "" for the API default
	IncludeDomains []string
	ExcludeDomains []string
	Timeout        time.Duration
}

// TavilyBackend fetches results from the Tavily search API.
type TavilyBackend struct {
	client *http.Client
	cfg    TavilyConfig
	logger *slog.Logger
}

// NewTavilyBackend creates a search backend for the Tavily API.
// The API key is required; logger may be nil.
func NewTavilyBackend(cfg TavilyConfig, logger *slog.Logger) (*TavilyBackend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.NewDomainError("NewTavilyBackend", domain.ErrInvalidInput, "api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if err := ValidateAll(
		ValidateURL("base url", cfg.BaseURL),
		ValidateEnum("search depth", cfg.SearchDepth, "basic", "advanced"),
	); err != nil {
		return nil, domain.NewDomainError("NewTavilyBackend", domain.ErrInvalidInput, err.Error())
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSearchTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &TavilyBackend{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: loggerOrDiscard(logger),
	}, nil
}

func (b *TavilyBackend) Name() string { return "tavily" }

func (b *TavilyBackend) Fetch(ctx context.Context, fr FetchRequest) ([]RawResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.BaseURL+"/search", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("api_key", b.cfg.APIKey)
	q.Set("query", fr.Query)
	if b.cfg.SearchDepth != "" {
		q.Set("search_depth", b.cfg.SearchDepth)
	}
	if fr.MaxResults > 0 {
		q.Set("max_results", strconv.Itoa(fr.MaxResults))
	}
	if len(b.cfg.IncludeDomains) > 0 {
		q.Set("include_domains", strings.Join(b.cfg.IncludeDomains, ","))
	}
	if len(b.cfg.ExcludeDomains) > 0 {
		q.Set("exclude_domains", strings.Join(b.cfg.ExcludeDomains, ","))
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newRetrievalError(b.Name(), fr.Query, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	items, err := decodeRawResults(body)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("tavily fetch completed", "query", fr.Query, "items", len(items))
	return items, nil
}
