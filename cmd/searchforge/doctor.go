package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"searchforge/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(ctx context.Context, cfg *config.Config) CheckResult
}

// doctorClient is used for reachability probes.
var doctorClient = &http.Client{Timeout: 5 * time.Second}

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and endpoint reachability",
		Long: `Run health checks against the local configuration and the configured
search endpoint. The endpoint probe does not run a search, so it costs no
API credits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Some checks still work without a valid config.
			cfg, cfgErr := config.Load(a.configPath)
			checks := []Check{
				{Name: "Config file", Fn: checkConfigFile(a.configPath, cfgErr)},
				{Name: "API key", Fn: checkAPIKey},
				{Name: "Search endpoint", Fn: checkEndpoint},
				{Name: "Result cap", Fn: checkResultCap},
			}
			return runDoctor(cmd.Context(), a.stdout, cfg, checks)
		},
	}
}

// runDoctor executes all checks and prints a report. It fails if any check fails.
func runDoctor(ctx context.Context, w io.Writer, cfg *config.Config, checks []Check) error {
	fmt.Fprintln(w, titleStyle.Render("searchforge doctor"))
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(ctx, cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return passStyle.Render("[PASS]")
	case StatusWarn:
		return warnStyle.Render("[WARN]")
	case StatusFail:
		return failStyle.Render("[FAIL]")
	default:
		return "[????]"
	}
}

// checkConfigFile reports whether the config file exists and loaded cleanly.
// A missing file is only a warning: defaults plus environment still work.
func checkConfigFile(cfgPath string, cfgErr error) func(context.Context, *config.Config) CheckResult {
	return func(context.Context, *config.Config) CheckResult {
		_, statErr := os.Stat(cfgPath)
		missing := errors.Is(statErr, os.ErrNotExist)

		if cfgErr != nil {
			var ve *config.ValidationError
			if errors.As(cfgErr, &ve) {
				return CheckResult{
					Status:  StatusFail,
					Message: fmt.Sprintf("invalid configuration: %v", cfgErr),
					Fix:     "Fix the listed fields in " + cfgPath + " or the SEARCHFORGE_* environment",
				}
			}
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config load error: %v", cfgErr),
				Fix:     "Check " + cfgPath + " syntax and permissions (0600)",
			}
		}
		if missing {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s; using defaults and environment", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkAPIKey verifies the Tavily backend has a key.
func checkAPIKey(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}
	if cfg.Search.Backend == "searxng" {
		return CheckResult{Status: StatusPass, Message: "searxng backend needs no API key"}
	}
	key := cfg.Search.APIKey
	if key == "" {
		return CheckResult{
			Status:  StatusFail,
			Message: "no Tavily API key configured",
			Fix:     "Set TAVILY_API_KEY or search.api_key",
		}
	}
	if !strings.HasPrefix(key, "tvly-") {
		return CheckResult{Status: StatusWarn, Message: "API key does not look like a Tavily key (tvly-...)"}
	}
	return CheckResult{Status: StatusPass, Message: "API key configured (" + maskKey(key) + ")"}
}

// checkEndpoint verifies the configured search endpoint answers HTTP.
func checkEndpoint(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check: config not loaded"}
	}
	url := cfg.Search.BaseURL
	if cfg.Search.Backend == "searxng" {
		url = cfg.Search.SearXNGURL
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("invalid endpoint URL: %v", err)}
	}
	resp, err := doctorClient.Do(req)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s not reachable: %v", url, err),
			Fix:     "Check network access or the configured base URL",
		}
	}
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s responded with status %d", url, resp.StatusCode),
		}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s reachable", url)}
}

// checkResultCap reports the default cap.
func checkResultCap(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check: config not loaded"}
	}
	if cfg.Search.MaxResults == 0 {
		return CheckResult{Status: StatusWarn, Message: "max_results is 0: results are uncapped unless a call sets a cap"}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("default cap is %d results", cfg.Search.MaxResults)}
}

func maskKey(key string) string {
	if len(key) <= 9 {
		return "****"
	}
	return key[:5] + "..." + key[len(key)-4:]
}
