package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ozayn/planner/internal/pipeline"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
discovery:
  concurrency: 6
  min_confidence: 0.4
  persist: true
http:
  user_agent: planner-agent
  timeout_seconds: 45
  max_retries: 4
  backoff_initial_ms: 100
  backoff_max_ms: 500
rate_limit:
  min_delay_seconds: 0.5
  max_delay_seconds: 2.5
  host_rps: 2
db:
  dsn: postgres://localhost/planner
logging:
  development: false
weights:
  title: 0.5
  date: 0.2
sources:
  - id: city-museum
    display_name: City Museum
    root_url: https://museum.example/events
    kind: website
    rate_min_seconds: 1
    rate_max_seconds: 3
    rules:
      - type: selector
        pattern: div.event
      - type: regex
        pattern: '^Event: (.+)$'
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Discovery.Concurrency != 6 || !cfg.Discovery.Persist {
		t.Fatalf("expected discovery overrides to apply: %+v", cfg.Discovery)
	}
	if cfg.DB.DSN != "postgres://localhost/planner" {
		t.Fatalf("expected db.dsn override, got %q", cfg.DB.DSN)
	}
	if cfg.Weights.Title != 0.5 {
		t.Fatalf("expected weights.title override, got %v", cfg.Weights.Title)
	}
	// Unset weights keep their defaults.
	if cfg.Weights.Keyword != 0.15 {
		t.Fatalf("expected default keyword weight, got %v", cfg.Weights.Keyword)
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}

	sources := cfg.PipelineSources()
	if len(sources) != 1 {
		t.Fatalf("expected one source, got %d", len(sources))
	}
	src := sources[0]
	if src.ID != "city-museum" || src.Kind != pipeline.SourceKindWebsite {
		t.Fatalf("unexpected source: %+v", src)
	}
	if len(src.Profiles) != 2 || src.Profiles[0].Type != pipeline.RuleSelector || src.Profiles[1].Type != pipeline.RuleRegex {
		t.Fatalf("unexpected profile rules: %+v", src.Profiles)
	}
	if src.RateMin != time.Second || src.RateMax != 3*time.Second {
		t.Fatalf("unexpected rate window: %v..%v", src.RateMin, src.RateMax)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Discovery.Concurrency != 4 {
		t.Fatalf("expected default concurrency 4, got %d", cfg.Discovery.Concurrency)
	}
	if cfg.HTTP.MaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", cfg.HTTP.MaxRetries)
	}
	if !cfg.Logging.Development {
		t.Fatalf("expected development logging by default")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:    ServerConfig{Port: 8080},
		Discovery: DiscoveryConfig{Concurrency: 1},
		HTTP:      HTTPConfig{TimeoutSeconds: 10},
		RateLimit: RateLimitConfig{MinDelaySeconds: 1, MaxDelaySeconds: 2},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid concurrency",
			cfg: func() Config {
				c := base
				c.Discovery.Concurrency = 0
				return c
			}(),
			want: "discovery.concurrency",
		},
		{
			name: "confidence out of range",
			cfg: func() Config {
				c := base
				c.Discovery.MinConfidence = 1.5
				return c
			}(),
			want: "discovery.min_confidence",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.HTTP.TimeoutSeconds = 0
				return c
			}(),
			want: "http.timeout_seconds",
		},
		{
			name: "inverted delay window",
			cfg: func() Config {
				c := base
				c.RateLimit.MaxDelaySeconds = 0.5
				return c
			}(),
			want: "rate_limit.max_delay_seconds",
		},
		{
			name: "source missing id",
			cfg: func() Config {
				c := base
				c.Sources = []SourceConfig{{RootURL: "https://a.example"}}
				return c
			}(),
			want: "sources[0].id",
		},
		{
			name: "duplicate source id",
			cfg: func() Config {
				c := base
				c.Sources = []SourceConfig{
					{ID: "a", RootURL: "https://a.example"},
					{ID: "a", RootURL: "https://b.example"},
				}
				return c
			}(),
			want: "duplicated",
		},
		{
			name: "bad rule type",
			cfg: func() Config {
				c := base
				c.Sources = []SourceConfig{{
					ID:      "a",
					RootURL: "https://a.example",
					Rules:   []RuleConfig{{Type: "xpath", Pattern: "//div"}},
				}}
				return c
			}(),
			want: "selector or regex",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
