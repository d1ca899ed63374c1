package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Source.APIBase != "https://m.weibo.cn/api/container/getIndex" {
		t.Fatalf("unexpected default api base %q", cfg.Source.APIBase)
	}
	if cfg.Source.ContaineridPrefix != "100103type=61&q=" {
		t.Fatalf("unexpected default containerid prefix %q", cfg.Source.ContaineridPrefix)
	}
	if cfg.Pipeline.MaxInFlight != 8 {
		t.Fatalf("expected default max_in_flight 8, got %d", cfg.Pipeline.MaxInFlight)
	}
	if got := cfg.Throttle.StartDelay(); got != 5*time.Second {
		t.Fatalf("expected start delay 5s, got %v", got)
	}
	if got := cfg.Throttle.MaxDelay(); got != 60*time.Second {
		t.Fatalf("expected max delay 60s, got %v", got)
	}
	if got := cfg.Browser.SettleDelay(); got != 2*time.Second {
		t.Fatalf("expected settle delay 2s, got %v", got)
	}
	if len(cfg.Browser.LoginURLPatterns) != 2 || cfg.Browser.LoginURLPatterns[0] != "login.sina.com.cn" {
		t.Fatalf("unexpected login redirect patterns: %v", cfg.Browser.LoginURLPatterns)
	}
	if cfg.Images.Enabled || cfg.Images.Dir != "images" {
		t.Fatalf("unexpected image defaults: %+v", cfg.Images)
	}
	if cfg.Mongo.Database != "weibo_data" || cfg.Mongo.Collection != "posts" {
		t.Fatalf("unexpected mongo defaults: %+v", cfg.Mongo)
	}
	if !cfg.Logging.Development {
		t.Fatalf("expected development logging by default")
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
browser:
  user_agent: test-agent
  storage_state_path: /tmp/state.json
  nav_timeout_seconds: 45
source:
  keywords: ["正能量", "春天"]
  detail_urls: ["https://weibo.com/1234/ABCDEF"]
pipeline:
  max_in_flight: 4
  dead_letter_path: /tmp/dead.jsonl
throttle:
  min_delay_seconds: 2
  start_delay_seconds: 4
  max_delay_seconds: 30
  target_concurrency: 2.0
mongo:
  uri: mongodb://db:27017
  database: harvest_test
logging:
  development: false
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
	if cfg.Browser.UserAgent != "test-agent" {
		t.Fatalf("expected user agent override, got %q", cfg.Browser.UserAgent)
	}
	if got := cfg.Browser.NavTimeout(); got != 45*time.Second {
		t.Fatalf("expected nav timeout 45s, got %v", got)
	}
	if len(cfg.Source.Keywords) != 2 || cfg.Source.Keywords[1] != "春天" {
		t.Fatalf("expected keyword overrides, got %v", cfg.Source.Keywords)
	}
	if len(cfg.Source.DetailURLs) != 1 {
		t.Fatalf("expected one detail url, got %v", cfg.Source.DetailURLs)
	}
	if cfg.Pipeline.MaxInFlight != 4 {
		t.Fatalf("expected max_in_flight 4, got %d", cfg.Pipeline.MaxInFlight)
	}
	if cfg.Throttle.TargetConcurrency != 2.0 {
		t.Fatalf("expected target concurrency 2.0, got %v", cfg.Throttle.TargetConcurrency)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" || cfg.Mongo.Database != "harvest_test" {
		t.Fatalf("expected mongo overrides: %+v", cfg.Mongo)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected development logging disabled")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server: ServerConfig{Port: 8080},
		Browser: BrowserConfig{
			UserAgent:     "agent",
			NavTimeoutSec: 30,
		},
		Source: SourceConfig{
			APIBase:  "https://m.weibo.cn/api/container/getIndex",
			Keywords: []string{"正能量"},
		},
		Pipeline: PipelineConfig{MaxInFlight: 8},
		Throttle: ThrottleConfig{MinDelaySec: 3, MaxDelaySec: 60},
		Mongo:    MongoConfig{URI: "mongodb://localhost:27017"},
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
			name: "missing user agent",
			cfg: func() Config {
				c := base
				c.Browser.UserAgent = ""
				return c
			}(),
			want: "browser.user_agent",
		},
		{
			name: "invalid nav timeout",
			cfg: func() Config {
				c := base
				c.Browser.NavTimeoutSec = 0
				return c
			}(),
			want: "browser.nav_timeout_seconds",
		},
		{
			name: "missing api base",
			cfg: func() Config {
				c := base
				c.Source.APIBase = ""
				return c
			}(),
			want: "source.api_base",
		},
		{
			name: "nothing to harvest",
			cfg: func() Config {
				c := base
				c.Source.Keywords = nil
				c.Source.DetailURLs = nil
				return c
			}(),
			want: "source.keywords",
		},
		{
			name: "invalid max in flight",
			cfg: func() Config {
				c := base
				c.Pipeline.MaxInFlight = 0
				return c
			}(),
			want: "pipeline.max_in_flight",
		},
		{
			name: "throttle bounds inverted",
			cfg: func() Config {
				c := base
				c.Throttle.MinDelaySec = 10
				c.Throttle.MaxDelaySec = 5
				return c
			}(),
			want: "throttle.max_delay_seconds",
		},
		{
			name: "images enabled without dir",
			cfg: func() Config {
				c := base
				c.Images.Enabled = true
				c.Images.Dir = ""
				return c
			}(),
			want: "images.dir",
		},
		{
			name: "missing mongo uri",
			cfg: func() Config {
				c := base
				c.Mongo.URI = ""
				return c
			}(),
			want: "mongo.uri",
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
