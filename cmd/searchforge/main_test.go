package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"searchforge/internal/adapter/tool"
	"searchforge/internal/domain"
	"searchforge/internal/infra/config"
)

// isolateEnv blanks every variable the CLI consults and points it at an
// empty working directory.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		"TAVILY_API_KEY", "SEARCHFORGE_SEARCH_API_KEY", "SEARCHFORGE_SEARCH_BACKEND",
		"SEARCHFORGE_SEARCH_BASE_URL", "SEARCHFORGE_SEARCH_SEARXNG_URL", "SEARCHFORGE_SEARCH_MAX_RESULTS",
		"SEARCHFORGE_SEARCH_DEPTH", "SEARCHFORGE_SEARCH_INCLUDE_DOMAINS", "SEARCHFORGE_SEARCH_EXCLUDE_DOMAINS",
		"SEARCHFORGE_SEARCH_TIMEOUT", "SEARCHFORGE_SEARCH_RATE_LIMIT", "SEARCHFORGE_SEARCH_CIRCUIT_BREAKER",
		"SEARCHFORGE_SERVER_ADDR", "SEARCHFORGE_SERVER_RATE_LIMIT", "SEARCHFORGE_SERVER_TRUSTED_PROXIES",
		"SEARCHFORGE_LOGGER_LEVEL", "SEARCHFORGE_LOGGER_FORMAT",
		"SEARCHFORGE_TRACER_ENABLED", "SEARCHFORGE_TRACER_EXPORTER", "SEARCHFORGE_CONFIG_KEY",
	} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

// fakeTavily answers /search with two items per query, one incomplete.
func fakeTavily(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		if q == "explode" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]string{
			{"title": "About " + q, "url": "https://example.com/" + q, "content": "Content on " + q, "query": q},
			{"title": "Broken", "content": "no url", "query": q},
		}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchCommand_JSON(t *testing.T) {
	isolateEnv(t)
	srv := fakeTavily(t)
	t.Setenv("TAVILY_API_KEY", "tvly-test")
	t.Setenv("SEARCHFORGE_SEARCH_BASE_URL", srv.URL)

	for _, extra := range [][]string{nil, {"--async"}} {
		args := append([]string{"search", "go", "rust"}, extra...)
		out, err := runCLI(t, "", args...)
		require.NoError(t, err)

		var res tool.SearchResults
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.Len(t, res.Results, 2)
		assert.Equal(t, "About go", res.Results[0].Title)
		assert.Equal(t, "About rust", res.Results[1].Title)
	}
}

func TestSearchCommand_MaxResultsAndText(t *testing.T) {
	isolateEnv(t)
	srv := fakeTavily(t)
	t.Setenv("TAVILY_API_KEY", "tvly-test")
	t.Setenv("SEARCHFORGE_SEARCH_BASE_URL", srv.URL)

	out, err := runCLI(t, "", "search", "go", "rust", "zig", "-n", "1", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "About go")
	assert.Contains(t, out, "https://example.com/go")
	assert.NotContains(t, out, "About rust")
}

func TestSearchCommand_Errors(t *testing.T) {
	isolateEnv(t)
	srv := fakeTavily(t)
	t.Setenv("TAVILY_API_KEY", "tvly-test")
	t.Setenv("SEARCHFORGE_SEARCH_BASE_URL", srv.URL)

	_, err := runCLI(t, "", "search", "go", "explode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500 Internal Server Error")

	_, err = runCLI(t, "", "search")
	assert.Error(t, err)

	_, err = runCLI(t, "", "search", "go", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid --format")

	_, err = runCLI(t, "", "search", "go", "--max-results", "0")
	assert.ErrorContains(t, err, "--max-results must be > 0")
}

func TestSearchCommand_MissingKey(t *testing.T) {
	isolateEnv(t)
	_, err := runCLI(t, "", "search", "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestSearchCommand_EnvFile(t *testing.T) {
	dir := isolateEnv(t)
	srv := fakeTavily(t)
	// t.Setenv("", ...) leaves the variables set but empty; godotenv only
	// fills unset ones, so unset them for this test.
	unsetForTest(t, "TAVILY_API_KEY", "SEARCHFORGE_SEARCH_BASE_URL")
	writeFile(t, filepath.Join(dir, ".env"), "TAVILY_API_KEY=tvly-from-dotenv\nSEARCHFORGE_SEARCH_BASE_URL="+srv.URL+"\n")

	out, err := runCLI(t, "", "search", "go")
	require.NoError(t, err)
	assert.Contains(t, out, "About go")
}

func TestSchemaCommand(t *testing.T) {
	isolateEnv(t)
	out, err := runCLI(t, "", "schema")
	require.NoError(t, err)

	var doc struct {
		Name       string          `json:"name"`
		Parameters json.RawMessage `json:"parameters"`
		Output     json.RawMessage `json:"output"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, tool.SearchToolName, doc.Name)
	assert.Contains(t, string(doc.Parameters), `"queries"`)
	assert.Contains(t, string(doc.Output), `"results"`)
}

func TestExecCommand(t *testing.T) {
	isolateEnv(t)
	srv := fakeTavily(t)
	t.Setenv("TAVILY_API_KEY", "tvly-test")
	t.Setenv("SEARCHFORGE_SEARCH_BASE_URL", srv.URL)

	out, err := runCLI(t, `{"id":"call_9","name":"tavily_search","arguments":{"queries":["go"]}}`, "exec")
	require.NoError(t, err)
	var res domain.ToolResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "call_9", res.ToolCallID)
	assert.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "About go")

	out, err = runCLI(t, `{"name":"tavily_search","arguments":{"queries":[]}}`, "exec")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(res.ToolCallID, "call_"))

	_, err = runCLI(t, `{"name":"nope"}`, "exec")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)

	_, err = runCLI(t, `not json`, "exec")
	assert.ErrorContains(t, err, "parse tool call")
}

func TestEncryptCommand(t *testing.T) {
	isolateEnv(t)
	_, err := runCLI(t, "", "encrypt", "tvly-secret")
	assert.ErrorContains(t, err, "SEARCHFORGE_CONFIG_KEY")

	t.Setenv("SEARCHFORGE_CONFIG_KEY", "passphrase")
	out, err := runCLI(t, "", "encrypt", "tvly-secret")
	require.NoError(t, err)
	out = strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(out, "enc:"))

	plain, err := config.DecryptValue(strings.TrimPrefix(out, "enc:"), "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "tvly-secret", plain)
}

func TestDoctor(t *testing.T) {
	isolateEnv(t)
	srv := fakeTavily(t)
	t.Setenv("TAVILY_API_KEY", "tvly-test-key-1234")
	t.Setenv("SEARCHFORGE_SEARCH_BASE_URL", srv.URL)
	t.Setenv("SEARCHFORGE_SEARCH_MAX_RESULTS", "5")

	out, err := runCLI(t, "", "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "no config file")
	assert.Contains(t, out, "tvly-...1234")
	assert.Contains(t, out, "reachable")
	assert.Contains(t, out, "0 failed")
}

func TestDoctor_Failures(t *testing.T) {
	isolateEnv(t)
	out, err := runCLI(t, "", "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "invalid configuration")
	assert.Contains(t, out, "cannot check: config not loaded")
}

func TestCheckAPIKey(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, StatusFail, checkAPIKey(context.Background(), cfg).Status)

	cfg.Search.APIKey = "sk-other"
	assert.Equal(t, StatusWarn, checkAPIKey(context.Background(), cfg).Status)

	cfg.Search.Backend = "searxng"
	assert.Equal(t, StatusPass, checkAPIKey(context.Background(), cfg).Status)

	assert.Equal(t, StatusFail, checkAPIKey(context.Background(), nil).Status)
}

func TestRenderResults(t *testing.T) {
	assert.Contains(t, renderResults(&tool.SearchResults{Results: []tool.SearchResult{}}), "no results")

	out := renderResults(&tool.SearchResults{Results: []tool.SearchResult{
		{Title: "Go", URL: "https://go.dev", Content: "The Go programming language", Query: "golang"},
	}})
	assert.Contains(t, out, "Go")
	assert.Contains(t, out, "https://go.dev")
	assert.Contains(t, out, "[golang]")
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", maskKey("short"))
	assert.Equal(t, "tvly-...wxyz", maskKey("tvly-abcdefwxyz"))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// unsetForTest removes keys from the environment and restores them after.
func unsetForTest(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		prev, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, prev)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}
