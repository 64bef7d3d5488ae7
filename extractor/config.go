package extractor

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/jdextract/extractor/internal/profile"
	"github.com/hazyhaar/jdextract/extractor/internal/rendered"
)

// Config holds all extractor configuration. Every field is optional.
type Config struct {
	Static   StaticConfig   `yaml:"static"`
	Rendered RenderedConfig `yaml:"rendered"`
	Quality  QualityConfig  `yaml:"quality"`
	Server   ServerConfig   `yaml:"server"`

	// UserAgent is presented by both tiers.
	UserAgent string `yaml:"user_agent"`
	// ProfilesFile replaces the built-in domain profile table.
	ProfilesFile string `yaml:"profiles_file"`
	// SlowThreshold logs a warning for slower extractions. Default: 20s.
	SlowThreshold time.Duration `yaml:"slow_threshold"`

	// URLValidator vets target URLs before either tier touches them.
	URLValidator func(string) error `yaml:"-"`
	// Registry overrides ProfilesFile and the built-in table.
	Registry *profile.Registry `yaml:"-"`
	// Launcher overrides the rod browser launcher.
	Launcher rendered.Launcher `yaml:"-"`
	// Transport overrides the static tier's round tripper.
	Transport http.RoundTripper `yaml:"-"`
	Logger    *slog.Logger      `yaml:"-"`
}

// StaticConfig controls the plain HTTP tier.
type StaticConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRedirects int           `yaml:"max_redirects"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	Markdown     bool          `yaml:"markdown"`
	Readability  bool          `yaml:"readability"`
}

// RenderedConfig controls the headless browser tier.
type RenderedConfig struct {
	Disabled       bool          `yaml:"disabled"`
	NavTimeout     time.Duration `yaml:"nav_timeout"`
	WaitTimeout    time.Duration `yaml:"wait_timeout"`
	ExtractTimeout time.Duration `yaml:"extract_timeout"`
	Bin            string        `yaml:"bin"`
	NoStealth      bool          `yaml:"no_stealth"`
	BlockResources []string      `yaml:"block_resources"`
}

// QualityConfig overrides the acceptance thresholds. Zero keeps the default.
type QualityConfig struct {
	MinLength      int     `yaml:"min_length"`
	MinImprovement float64 `yaml:"min_improvement"`
	MinKeywords    int     `yaml:"min_keywords"`
}

// ServerConfig is read by cmd/jdextract in -serve mode.
type ServerConfig struct {
	Addr          string   `yaml:"addr"`
	CORSOrigins   []string `yaml:"cors_origins"`
	RatePerSecond float64  `yaml:"rate_per_second"`
	RateBurst     int      `yaml:"rate_burst"`
}

func (c *Config) defaults() {
	if c.Static.Timeout <= 0 {
		c.Static.Timeout = 30 * time.Second
	}
	if c.Static.MaxRedirects <= 0 {
		c.Static.MaxRedirects = 5
	}
	if c.Static.MaxBodyBytes <= 0 {
		c.Static.MaxBodyBytes = 10 << 20
	}
	if c.Rendered.NavTimeout <= 0 {
		c.Rendered.NavTimeout = 45 * time.Second
	}
	if c.Rendered.WaitTimeout <= 0 {
		c.Rendered.WaitTimeout = 5 * time.Second
	}
	if c.Rendered.ExtractTimeout <= 0 {
		c.Rendered.ExtractTimeout = 15 * time.Second
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 20 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RatePerSecond <= 0 {
		c.Server.RatePerSecond = 2
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 5
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// LoadConfigFile reads a YAML config file. Durations use Go syntax ("45s").
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extractor: read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("extractor: parse config %s: %w", path, err)
	}
	cfg.defaults()
	return cfg, nil
}
