package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable Load consults so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TAVILY_API_KEY",
		"SEARCHFORGE_SEARCH_API_KEY",
		"SEARCHFORGE_SEARCH_BACKEND",
		"SEARCHFORGE_SEARCH_BASE_URL",
		"SEARCHFORGE_SEARCH_SEARXNG_URL",
		"SEARCHFORGE_SEARCH_MAX_RESULTS",
		"SEARCHFORGE_SEARCH_DEPTH",
		"SEARCHFORGE_SEARCH_INCLUDE_DOMAINS",
		"SEARCHFORGE_SEARCH_EXCLUDE_DOMAINS",
		"SEARCHFORGE_SEARCH_TIMEOUT",
		"SEARCHFORGE_SEARCH_RATE_LIMIT",
		"SEARCHFORGE_SEARCH_CIRCUIT_BREAKER",
		"SEARCHFORGE_SERVER_ADDR",
		"SEARCHFORGE_SERVER_RATE_LIMIT",
		"SEARCHFORGE_SERVER_TRUSTED_PROXIES",
		"SEARCHFORGE_LOGGER_LEVEL",
		"SEARCHFORGE_LOGGER_FORMAT",
		"SEARCHFORGE_TRACER_ENABLED",
		"SEARCHFORGE_TRACER_EXPORTER",
		"SEARCHFORGE_CONFIG_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Search.Backend != "tavily" {
		t.Errorf("Backend = %q, want %q", cfg.Search.Backend, "tavily")
	}
	if cfg.Search.BaseURL != DefaultTavilyURL {
		t.Errorf("BaseURL = %q, want %q", cfg.Search.BaseURL, DefaultTavilyURL)
	}
	if cfg.Search.MaxResults != 0 {
		t.Errorf("MaxResults = %d, want 0 (uncapped)", cfg.Search.MaxResults)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
}

func TestLoadNonExistentUsesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TAVILY_API_KEY", "tvly-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.APIKey != "tvly-env" {
		t.Errorf("APIKey = %q, want %q", cfg.Search.APIKey, "tvly-env")
	}
}

func TestLoadNonExistentWithoutKeyFails(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected validation error for missing api key")
	}
	assertContains(t, err.Error(), "search.api_key is empty")
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
search:
  api_key: "tvly-file"
  max_results: 7
  search_depth: advanced
  include_domains: ["go.dev", "pkg.go.dev"]
  timeout: 5s
logger:
  level: "debug"
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.APIKey != "tvly-file" {
		t.Errorf("APIKey = %q, want %q", cfg.Search.APIKey, "tvly-file")
	}
	if cfg.Search.MaxResults != 7 {
		t.Errorf("MaxResults = %d, want 7", cfg.Search.MaxResults)
	}
	if cfg.Search.SearchDepth != "advanced" {
		t.Errorf("SearchDepth = %q, want %q", cfg.Search.SearchDepth, "advanced")
	}
	if len(cfg.Search.IncludeDomains) != 2 {
		t.Errorf("IncludeDomains = %v, want 2 entries", cfg.Search.IncludeDomains)
	}
	if cfg.Search.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Search.Timeout)
	}
	// Unset fields keep their defaults.
	if cfg.Search.BaseURL != DefaultTavilyURL {
		t.Errorf("BaseURL = %q, want default", cfg.Search.BaseURL)
	}
	if cfg.Logger.Format != "json" {
		t.Errorf("Logger.Format = %q, want %q", cfg.Logger.Format, "json")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("search: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	assertContains(t, err.Error(), "parse config")
}

func TestLoadInsecurePermissions(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("search:\n  api_key: k\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0666); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected permission error")
	}
	assertContains(t, err.Error(), "insecure permissions")
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEARCHFORGE_SEARCH_API_KEY", "tvly-override")
	t.Setenv("SEARCHFORGE_SEARCH_MAX_RESULTS", "3")
	t.Setenv("SEARCHFORGE_SEARCH_DEPTH", "advanced")
	t.Setenv("SEARCHFORGE_SEARCH_EXCLUDE_DOMAINS", "spam.example, ,ads.example")
	t.Setenv("SEARCHFORGE_SEARCH_TIMEOUT", "2s")
	t.Setenv("SEARCHFORGE_SEARCH_RATE_LIMIT", "2.5")
	t.Setenv("SEARCHFORGE_SEARCH_CIRCUIT_BREAKER", "true")
	t.Setenv("SEARCHFORGE_LOGGER_LEVEL", "debug")
	t.Setenv("SEARCHFORGE_SERVER_RATE_LIMIT", "0")
	t.Setenv("SEARCHFORGE_SERVER_TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")
	t.Setenv("SEARCHFORGE_TRACER_ENABLED", "true")
	t.Setenv("SEARCHFORGE_TRACER_EXPORTER", "stdout")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.Search.APIKey != "tvly-override" {
		t.Errorf("APIKey = %q", cfg.Search.APIKey)
	}
	if cfg.Search.MaxResults != 3 {
		t.Errorf("MaxResults = %d, want 3", cfg.Search.MaxResults)
	}
	if cfg.Search.SearchDepth != "advanced" {
		t.Errorf("SearchDepth = %q", cfg.Search.SearchDepth)
	}
	if got := cfg.Search.ExcludeDomains; len(got) != 2 || got[0] != "spam.example" || got[1] != "ads.example" {
		t.Errorf("ExcludeDomains = %v", got)
	}
	if cfg.Search.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v", cfg.Search.Timeout)
	}
	if cfg.Search.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.Search.RateLimit.RequestsPerSecond)
	}
	if !cfg.Search.CircuitBreaker.Enabled {
		t.Error("CircuitBreaker.Enabled should be true")
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
	if cfg.Server.RequestsPerMinute != 0 {
		t.Errorf("RequestsPerMinute = %d, want 0", cfg.Server.RequestsPerMinute)
	}
	if got := cfg.Server.TrustedProxies; len(got) != 2 || got[1] != "10.0.0.2" {
		t.Errorf("TrustedProxies = %v", got)
	}
	if !cfg.Tracer.Enabled || cfg.Tracer.Exporter != "stdout" {
		t.Errorf("Tracer = %+v", cfg.Tracer)
	}
}

func TestApplyEnvOverridesTavilyKeyDoesNotReplaceConfigured(t *testing.T) {
	clearEnv(t)
	t.Setenv("TAVILY_API_KEY", "tvly-env")

	cfg := Defaults()
	cfg.Search.APIKey = "tvly-file"
	ApplyEnvOverrides(cfg)

	if cfg.Search.APIKey != "tvly-file" {
		t.Errorf("APIKey = %q, want configured key to win", cfg.Search.APIKey)
	}
}

func TestApplyEnvOverridesIgnoresInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEARCHFORGE_SEARCH_MAX_RESULTS", "many")
	t.Setenv("SEARCHFORGE_SEARCH_TIMEOUT", "-1s")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.Search.MaxResults != 0 {
		t.Errorf("MaxResults = %d, want unchanged 0", cfg.Search.MaxResults)
	}
	if cfg.Search.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want unchanged 15s", cfg.Search.Timeout)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	passphrase := "test-passphrase-123"
	plaintext := "tvly-abcdef123456"

	encrypted, err := EncryptValue(plaintext, passphrase)
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}

	decrypted, err := DecryptValue(encrypted, passphrase)
	if err != nil {
		t.Fatalf("DecryptValue: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("got %q, want %q", decrypted, plaintext)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	encrypted, err := EncryptValue("secret", "correct-pass")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := DecryptValue(encrypted, "wrong-pass"); err == nil {
		t.Error("expected error with wrong passphrase")
	}
}

func TestDecryptInvalidFormat(t *testing.T) {
	if _, err := DecryptValue("no-separator", "pass"); err == nil {
		t.Error("expected error for missing separator")
	}
	if _, err := DecryptValue("zz:zz", "pass"); err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestLoadDecryptsAPIKey(t *testing.T) {
	clearEnv(t)
	passphrase := "test-config-key"
	encrypted, err := EncryptValue("tvly-secret", passphrase)
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "search:\n  api_key: \"enc:" + encrypted + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SEARCHFORGE_CONFIG_KEY", passphrase)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.APIKey != "tvly-secret" {
		t.Errorf("APIKey = %q, want decrypted value", cfg.Search.APIKey)
	}
}

func TestDecryptSecretsNoEncPrefix(t *testing.T) {
	cfg := Defaults()
	cfg.Search.APIKey = "tvly-plain-key"

	if err := decryptSecrets(cfg, "any-passphrase"); err != nil {
		t.Fatalf("decryptSecrets: %v", err)
	}
	if cfg.Search.APIKey != "tvly-plain-key" {
		t.Errorf("APIKey should remain unchanged")
	}
}

func TestDecryptSecretsInvalidCiphertext(t *testing.T) {
	cfg := Defaults()
	cfg.Search.APIKey = "enc:notvalidhex"

	if err := decryptSecrets(cfg, "passphrase"); err == nil {
		t.Error("expected error for invalid ciphertext")
	}
}
