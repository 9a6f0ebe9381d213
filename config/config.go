package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
//
// Values are layered: built-in defaults, then the optional YAML file named
// by WEBKEEP_CONFIG, then WEBKEEP_* environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Store     StoreConfig     `yaml:"store"`
	Images    ImageConfig     `yaml:"images"`
	Extract   ExtractConfig   `yaml:"extract"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Batch     BatchConfig     `yaml:"batch"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// FetchConfig controls page and image downloads.
type FetchConfig struct {
	// Timeout bounds every single GET, page or image.
	Timeout time.Duration `yaml:"timeout"` // default: 20s

	// UserAgent is sent by the std engine.
	UserAgent string `yaml:"user_agent"` // default: "webkeep/0.1"

	// MaxBodyBytes caps a response body; larger bodies fail the fetch.
	MaxBodyBytes int64 `yaml:"max_body_bytes"` // default: 20 MiB

	// Proxy is an optional http(s) proxy URL for all engines.
	Proxy string `yaml:"proxy"`

	// MultiEngine races the tls and std engines. When false only tls runs.
	MultiEngine bool `yaml:"multi_engine"` // default: true

	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration `yaml:"escalation_delays"` // default: [0s, 2s]

	// DomainMemoryTTL is how long a domain's winning engine is remembered.
	DomainMemoryTTL time.Duration `yaml:"domain_memory_ttl"` // default: 24h
}

// StoreConfig controls where archives are written.
type StoreConfig struct {
	// BaseDir holds relative destinations.
	BaseDir string `yaml:"base_dir"` // default: "data"

	// AllowedRoots lists extra absolute directories destinations may live under.
	AllowedRoots []string `yaml:"allowed_roots"`
}

// ImageConfig controls image normalization.
type ImageConfig struct {
	MaxPx   int `yaml:"max_px"`  // default: 800
	Quality int `yaml:"quality"` // JPEG quality 1-100; default: 88
	Workers int `yaml:"workers"` // concurrent image downloads; default: 4
}

// ExtractConfig controls content extraction.
type ExtractConfig struct {
	// Mode is "readability", "pruning" or "auto".
	Mode string `yaml:"mode"` // default: "readability"

	// LinkStyle is "inline" or "citations".
	LinkStyle string `yaml:"link_style"` // default: "inline"

	// DedupSections collapses near-duplicate disclosure sections.
	DedupSections bool `yaml:"dedup_sections"` // default: true

	// CSSSelector optionally scopes general extraction to matching elements.
	CSSSelector string `yaml:"css_selector"`
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool `yaml:"enabled"` // default: true

	// APIKeys is the list of valid API keys. Empty means open access.
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 `yaml:"rps"` // default: 5

	// Burst is the maximum burst size per API key.
	Burst int `yaml:"burst"` // default: 10
}

// BatchConfig controls asynchronous batch archiving.
type BatchConfig struct {
	MaxURLs     int           `yaml:"max_urls"`    // default: 100
	Concurrency int           `yaml:"concurrency"` // default: 3
	JobTTL      time.Duration `yaml:"job_ttl"`     // default: 1h
	MaxJobs     int           `yaml:"max_jobs"`    // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "release"},
		Fetch: FetchConfig{
			Timeout:          20 * time.Second,
			UserAgent:        "webkeep/0.1",
			MaxBodyBytes:     20 << 20,
			MultiEngine:      true,
			EscalationDelays: []time.Duration{0, 2 * time.Second},
			DomainMemoryTTL:  24 * time.Hour,
		},
		Store:     StoreConfig{BaseDir: "data"},
		Images:    ImageConfig{MaxPx: 800, Quality: 88, Workers: 4},
		Extract:   ExtractConfig{Mode: "readability", LinkStyle: "inline", DedupSections: true},
		Auth:      AuthConfig{Enabled: true},
		RateLimit: RateLimitConfig{RequestsPerSecond: 5, Burst: 10},
		Batch:     BatchConfig{MaxURLs: 100, Concurrency: 3, JobTTL: time.Hour, MaxJobs: 1000},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("WEBKEEP_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = envOr("WEBKEEP_HOST", c.Server.Host)
	c.Server.Port = envIntOr("WEBKEEP_PORT", c.Server.Port)
	c.Server.Mode = envOr("WEBKEEP_MODE", c.Server.Mode)

	c.Fetch.Timeout = envDurationOr("WEBKEEP_FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.UserAgent = envOr("WEBKEEP_USER_AGENT", c.Fetch.UserAgent)
	c.Fetch.MaxBodyBytes = int64(envIntOr("WEBKEEP_MAX_BODY_BYTES", int(c.Fetch.MaxBodyBytes)))
	c.Fetch.Proxy = envOr("WEBKEEP_PROXY", c.Fetch.Proxy)
	c.Fetch.MultiEngine = envBoolOr("WEBKEEP_MULTI_ENGINE", c.Fetch.MultiEngine)
	c.Fetch.EscalationDelays = envDurationSliceOr("WEBKEEP_ESCALATION_DELAYS", c.Fetch.EscalationDelays)
	c.Fetch.DomainMemoryTTL = envDurationOr("WEBKEEP_DOMAIN_MEMORY_TTL", c.Fetch.DomainMemoryTTL)

	// BASE_DATA_DIR predates the WEBKEEP_ prefix and is still honoured.
	c.Store.BaseDir = envOr("BASE_DATA_DIR", c.Store.BaseDir)
	c.Store.BaseDir = envOr("WEBKEEP_BASE_DIR", c.Store.BaseDir)
	c.Store.AllowedRoots = envSliceOr("WEBKEEP_ALLOWED_ROOTS", c.Store.AllowedRoots)

	c.Images.MaxPx = envIntOr("WEBKEEP_IMAGE_MAX_PX", c.Images.MaxPx)
	c.Images.Quality = envIntOr("WEBKEEP_IMAGE_QUALITY", c.Images.Quality)
	c.Images.Workers = envIntOr("WEBKEEP_IMAGE_WORKERS", c.Images.Workers)

	c.Extract.Mode = envOr("WEBKEEP_EXTRACT_MODE", c.Extract.Mode)
	c.Extract.LinkStyle = envOr("WEBKEEP_LINK_STYLE", c.Extract.LinkStyle)
	c.Extract.DedupSections = envBoolOr("WEBKEEP_DEDUP_SECTIONS", c.Extract.DedupSections)
	c.Extract.CSSSelector = envOr("WEBKEEP_CSS_SELECTOR", c.Extract.CSSSelector)

	c.Auth.Enabled = envBoolOr("WEBKEEP_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.APIKeys = envSliceOr("WEBKEEP_API_KEYS", c.Auth.APIKeys)

	c.RateLimit.RequestsPerSecond = envFloatOr("WEBKEEP_RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("WEBKEEP_RATE_BURST", c.RateLimit.Burst)

	c.Batch.MaxURLs = envIntOr("WEBKEEP_BATCH_MAX_URLS", c.Batch.MaxURLs)
	c.Batch.Concurrency = envIntOr("WEBKEEP_BATCH_CONCURRENCY", c.Batch.Concurrency)
	c.Batch.JobTTL = envDurationOr("WEBKEEP_BATCH_JOB_TTL", c.Batch.JobTTL)
	c.Batch.MaxJobs = envIntOr("WEBKEEP_BATCH_MAX_JOBS", c.Batch.MaxJobs)

	c.Log.Level = envOr("WEBKEEP_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("WEBKEEP_LOG_FORMAT", c.Log.Format)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch.timeout must be positive"))
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("fetch.max_body_bytes must be positive"))
	}
	if strings.TrimSpace(c.Store.BaseDir) == "" {
		errs = append(errs, errors.New("store.base_dir is required"))
	}
	if c.Images.MaxPx < 1 {
		errs = append(errs, fmt.Errorf("images.max_px %d must be at least 1", c.Images.MaxPx))
	}
	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		errs = append(errs, fmt.Errorf("images.quality %d out of range 1-100", c.Images.Quality))
	}
	if c.Images.Workers < 1 {
		errs = append(errs, fmt.Errorf("images.workers %d must be at least 1", c.Images.Workers))
	}
	switch c.Extract.Mode {
	case "readability", "pruning", "auto":
	default:
		errs = append(errs, fmt.Errorf("extract.mode %q is not one of readability, pruning, auto", c.Extract.Mode))
	}
	switch c.Extract.LinkStyle {
	case "inline", "citations":
	default:
		errs = append(errs, fmt.Errorf("extract.link_style %q is not one of inline, citations", c.Extract.LinkStyle))
	}
	if c.Batch.MaxURLs < 1 || c.Batch.Concurrency < 1 {
		errs = append(errs, errors.New("batch.max_urls and batch.concurrency must be at least 1"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", c.Log.Format))
	}
	return errors.Join(errs...)
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
