package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
manifold:
  api_base_url: "https://api.manifold.markets"
  limit: 200
  timeout: 20s

kalshi:
  api_base_url: "https://api.elections.kalshi.com/trade-api/v2"
  page_limit: 100
  max_pages: 3

textgen:
  api_url: "https://api.openai.com/v1"
  api_key: "sk-test"
  model: "gpt-4o-mini"

matching:
  batch_size: 25
  match_ttl: 12h
  classifier_delay: 250ms

storage:
  db_path: "./data/test.db"

logging:
  level: "debug"
  format: "text"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Test Load
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify values
	if cfg.Manifold.Limit != 200 {
		t.Errorf("Unexpected manifold limit: %d", cfg.Manifold.Limit)
	}
	if cfg.Manifold.Timeout != 20*time.Second {
		t.Errorf("Unexpected manifold timeout: %v", cfg.Manifold.Timeout)
	}
	if cfg.Kalshi.MaxPages != 3 {
		t.Errorf("Unexpected kalshi max pages: %d", cfg.Kalshi.MaxPages)
	}
	if cfg.Matching.MatchTTL != 12*time.Hour {
		t.Errorf("Unexpected match ttl: %v", cfg.Matching.MatchTTL)
	}
	if cfg.Matching.ClassifierDelay != 250*time.Millisecond {
		t.Errorf("Unexpected classifier delay: %v", cfg.Matching.ClassifierDelay)
	}

	// Defaults fill in what the file omits
	if cfg.Matching.MaxCandidates != 30 {
		t.Errorf("Expected default max candidates 30, got %d", cfg.Matching.MaxCandidates)
	}
	if cfg.Kalshi.MaxRetries != 3 {
		t.Errorf("Expected default kalshi max retries 3, got %d", cfg.Kalshi.MaxRetries)
	}

	// Test Validate
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if err := cfg.RequireTextGen(); err != nil {
		t.Fatalf("RequireTextGen failed: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("POLYMATCH_TEXTGEN_API_KEY", "sk-from-env")
	t.Setenv("POLYMATCH_MATCHING_BATCH_SIZE", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TextGen.APIKey != "sk-from-env" {
		t.Errorf("Expected api key from env, got %q", cfg.TextGen.APIKey)
	}
	if cfg.Matching.BatchSize != 7 {
		t.Errorf("Expected batch size 7 from env, got %d", cfg.Matching.BatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed on defaults: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/polymatch.yaml"); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return cfg
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{
			name: "missing telegram token when enabled",
			mutate: func(c *Config) {
				c.Telegram.Enabled = true
				c.Telegram.ChatID = "123"
			},
		},
		{
			name:   "too many candidates",
			mutate: func(c *Config) { c.Matching.MaxCandidates = 31 },
		},
		{
			name:   "short match ttl",
			mutate: func(c *Config) { c.Matching.MatchTTL = 10 * time.Second },
		},
		{
			name:   "negative classifier delay",
			mutate: func(c *Config) { c.Matching.ClassifierDelay = -time.Second },
		},
		{
			name:   "kalshi page limit above api max",
			mutate: func(c *Config) { c.Kalshi.PageLimit = 500 },
		},
		{
			name:   "empty db path",
			mutate: func(c *Config) { c.Storage.DBPath = "" },
		},
		{
			name:   "invalid log format",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() expected error for %s", tt.name)
			}
		})
	}
}

func TestRequireTextGenMissingKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.TextGen.APIKey = ""
	if err := cfg.RequireTextGen(); err == nil {
		t.Error("Expected error when api key is missing")
	}
}
