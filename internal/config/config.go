// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ozayn/planner/internal/extractor"
	"github.com/ozayn/planner/internal/pipeline"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Discovery DiscoveryConfig   `mapstructure:"discovery"`
	HTTP      HTTPConfig        `mapstructure:"http"`
	RateLimit RateLimitConfig   `mapstructure:"rate_limit"`
	DB        DBConfig          `mapstructure:"db"`
	Logging   LoggingConfig     `mapstructure:"logging"`
	Weights   extractor.Weights `mapstructure:"weights"`
	Sources   []SourceConfig    `mapstructure:"sources"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DiscoveryConfig governs orchestrator behavior.
type DiscoveryConfig struct {
	Concurrency   int     `mapstructure:"concurrency"`
	MinConfidence float64 `mapstructure:"min_confidence"`
	Persist       bool    `mapstructure:"persist"`
}

// HTTPConfig configures fetch timeout and retry behavior.
type HTTPConfig struct {
	UserAgent        string `mapstructure:"user_agent"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRedirects     int    `mapstructure:"max_redirects"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
}

// RateLimitConfig sets the default inter-request delay window and the
// per-host guard.
type RateLimitConfig struct {
	MinDelaySeconds float64 `mapstructure:"min_delay_seconds"`
	MaxDelaySeconds float64 `mapstructure:"max_delay_seconds"`
	HostRPS         float64 `mapstructure:"host_rps"`
	HostBurst       int     `mapstructure:"host_burst"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory sink.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SourceConfig describes one site to scrape, including its extraction rules.
type SourceConfig struct {
	ID             string       `mapstructure:"id"`
	DisplayName    string       `mapstructure:"display_name"`
	RootURL        string       `mapstructure:"root_url"`
	Kind           string       `mapstructure:"kind"`
	RateMinSeconds float64      `mapstructure:"rate_min_seconds"`
	RateMaxSeconds float64      `mapstructure:"rate_max_seconds"`
	Rules          []RuleConfig `mapstructure:"rules"`
}

// RuleConfig is one extraction profile rule; type is "selector" or "regex".
type RuleConfig struct {
	Type    string `mapstructure:"type"`
	Pattern string `mapstructure:"pattern"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("discovery.concurrency", 4)
	v.SetDefault("discovery.min_confidence", 0.0)
	v.SetDefault("discovery.persist", false)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_redirects", 5)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("rate_limit.min_delay_seconds", 1.0)
	v.SetDefault("rate_limit.max_delay_seconds", 3.0)
	v.SetDefault("rate_limit.host_burst", 1)
	v.SetDefault("logging.development", true)
	weights := extractor.DefaultWeights()
	v.SetDefault("weights.title", weights.Title)
	v.SetDefault("weights.date", weights.Date)
	v.SetDefault("weights.time", weights.Time)
	v.SetDefault("weights.description", weights.Description)
	v.SetDefault("weights.keyword", weights.Keyword)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Discovery.Concurrency <= 0 {
		return fmt.Errorf("discovery.concurrency must be > 0")
	}
	if c.Discovery.MinConfidence < 0 || c.Discovery.MinConfidence > 1 {
		return fmt.Errorf("discovery.min_confidence must be in [0,1]")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.RateLimit.MaxDelaySeconds < c.RateLimit.MinDelaySeconds {
		return fmt.Errorf("rate_limit.max_delay_seconds must be >= min_delay_seconds")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d].id must be set", i)
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("sources[%d].id %q duplicated", i, src.ID)
		}
		seen[src.ID] = struct{}{}
		if src.RootURL == "" {
			return fmt.Errorf("sources[%d].root_url must be set", i)
		}
		for j, rule := range src.Rules {
			if rule.Type != "selector" && rule.Type != "regex" {
				return fmt.Errorf("sources[%d].rules[%d].type must be selector or regex", i, j)
			}
			if rule.Pattern == "" {
				return fmt.Errorf("sources[%d].rules[%d].pattern must be set", i, j)
			}
		}
	}
	return nil
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// PipelineSources converts the configured sources to their pipeline form.
func (c Config) PipelineSources() []pipeline.Source {
	out := make([]pipeline.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		kind := pipeline.SourceKindWebsite
		if src.Kind == string(pipeline.SourceKindSocial) {
			kind = pipeline.SourceKindSocial
		}
		rules := make([]pipeline.ProfileRule, 0, len(src.Rules))
		for _, rule := range src.Rules {
			rt := pipeline.RuleSelector
			if rule.Type == "regex" {
				rt = pipeline.RuleRegex
			}
			rules = append(rules, pipeline.ProfileRule{Type: rt, Pattern: rule.Pattern})
		}
		out = append(out, pipeline.Source{
			ID:          src.ID,
			DisplayName: src.DisplayName,
			RootURL:     src.RootURL,
			Kind:        kind,
			Profiles:    rules,
			RateMin:     secondsToDuration(src.RateMinSeconds),
			RateMax:     secondsToDuration(src.RateMaxSeconds),
		})
	}
	return out
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
