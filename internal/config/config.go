// Package config loads service configuration from defaults, an optional YAML
// file, a .env file, and CONTENTD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/source"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "CONTENTD"

// Config is the root service configuration.
type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Logging    LoggingConfig             `mapstructure:"logging"`
	Probe      ProbeConfig               `mapstructure:"probe"`
	RateLimit  RateLimitConfig           `mapstructure:"ratelimit"`
	Fetcher    FetcherConfig             `mapstructure:"fetcher"`
	Aggregator AggregatorConfig          `mapstructure:"aggregator"`
	Cache      CacheConfig               `mapstructure:"cache"`
	Categories map[string]CategoryConfig `mapstructure:"categories"`
	Sources    map[string][]source.Spec  `mapstructure:"sources"`
	SelfTest   SelfTestConfig            `mapstructure:"selftest"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ProbeConfig controls liveness probes.
type ProbeConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	UserAgent        string `mapstructure:"user_agent"`
	MaxManifestBytes int64  `mapstructure:"max_manifest_bytes"`
}

// RateLimitConfig controls the per-origin probe limiter. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// FetcherConfig controls catalogue page retrieval.
type FetcherConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// AggregatorConfig controls fan-out.
type AggregatorConfig struct {
	ProbeConcurrency int `mapstructure:"probe_concurrency"`
}

// CacheConfig controls both cache tiers. An empty RedisURL disables the shared tier.
type CacheConfig struct {
	LocalCapacity  int    `mapstructure:"local_capacity"`
	RedisURL       string `mapstructure:"redis_url"`
	RedisTimeoutMS int    `mapstructure:"redis_timeout_ms"`
}

// CategoryConfig holds per-category limits.
type CategoryConfig struct {
	Limit         int `mapstructure:"limit"`
	TTLSeconds    int `mapstructure:"ttl_seconds"`
	MaxCandidates int `mapstructure:"max_candidates"`
}

// SelfTestConfig controls the built-in sample suite.
type SelfTestConfig struct {
	OnStartup bool `mapstructure:"on_startup"`
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env, and the environment apply.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("cache.redis_url", EnvPrefix+"_CACHE_REDIS_URL", "REDIS_URL"); err != nil {
		return Config{}, fmt.Errorf("bind redis url: %w", err)
	}

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
	cfg.Sources = withDefaultSources(cfg.Sources)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("probe.timeout_seconds", 30)
	v.SetDefault("probe.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("probe.max_manifest_bytes", 64<<10)
	v.SetDefault("ratelimit.rps", 0)
	v.SetDefault("ratelimit.burst", 4)
	v.SetDefault("fetcher.timeout_seconds", 30)
	v.SetDefault("fetcher.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("fetcher.max_body_bytes", 20<<20)
	v.SetDefault("aggregator.probe_concurrency", 12)
	v.SetDefault("cache.local_capacity", 10_000)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.redis_timeout_ms", 2000)
	for _, c := range content.Categories {
		prefix := "categories." + string(c) + "."
		v.SetDefault(prefix+"limit", c.DefaultLimit())
		v.SetDefault(prefix+"ttl_seconds", int(c.DefaultTTL()/time.Second))
		maxCandidates := 0
		if c == content.CategoryLiveTV {
			maxCandidates = 500
		}
		v.SetDefault(prefix+"max_candidates", maxCandidates)
	}
	v.SetDefault("selftest.on_startup", false)
}

// withDefaultSources fills in the built-in sources for every category the
// configuration does not name. A configured category, even with an empty
// list, replaces its defaults.
func withDefaultSources(configured map[string][]source.Spec) map[string][]source.Spec {
	out := make(map[string][]source.Spec, len(configured)+len(content.Categories))
	covered := make(map[content.Category]bool, len(configured))
	for name, specs := range configured {
		out[name] = specs
		if cat, err := content.ParseCategory(name); err == nil {
			covered[cat] = true
		}
	}
	for c, specs := range source.DefaultSpecs() {
		if !covered[c] {
			out[string(c)] = specs
		}
	}
	return out
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Probe.TimeoutSeconds <= 0 {
		return fmt.Errorf("probe.timeout_seconds must be > 0")
	}
	if c.Fetcher.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetcher.timeout_seconds must be > 0")
	}
	if c.Aggregator.ProbeConcurrency <= 0 {
		return fmt.Errorf("aggregator.probe_concurrency must be > 0")
	}
	if c.Cache.LocalCapacity <= 0 {
		return fmt.Errorf("cache.local_capacity must be > 0")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("ratelimit.rps must be >= 0")
	}
	for name, cat := range c.Categories {
		if !slices.Contains(content.Categories, content.Category(name)) {
			return fmt.Errorf("categories.%s: %w", name, content.ErrUnknownCategory)
		}
		if cat.Limit <= 0 {
			return fmt.Errorf("categories.%s.limit must be > 0", name)
		}
		if cat.TTLSeconds <= 0 {
			return fmt.Errorf("categories.%s.ttl_seconds must be > 0", name)
		}
		if cat.MaxCandidates < 0 {
			return fmt.Errorf("categories.%s.max_candidates must be >= 0", name)
		}
	}
	seen := make(map[content.Category]string, len(c.Sources))
	for _, name := range slices.Sorted(maps.Keys(c.Sources)) {
		cat, err := content.ParseCategory(name)
		if err != nil {
			return fmt.Errorf("sources.%s: %w", name, err)
		}
		if prev, dup := seen[cat]; dup {
			return fmt.Errorf("sources.%s: %s already configures %s", name, prev, cat)
		}
		seen[cat] = name
	}
	return nil
}

// Category returns the settings for c, falling back to built-in defaults.
func (c Config) Category(cat content.Category) CategoryConfig {
	if cc, ok := c.Categories[string(cat)]; ok {
		return cc
	}
	cc := CategoryConfig{
		Limit:      cat.DefaultLimit(),
		TTLSeconds: int(cat.DefaultTTL() / time.Second),
	}
	if cat == content.CategoryLiveTV {
		cc.MaxCandidates = 500
	}
	return cc
}

// TTL is the category's cache freshness window.
func (cc CategoryConfig) TTL() time.Duration {
	return time.Duration(cc.TTLSeconds) * time.Second
}

// SourceSpecs returns the source definitions keyed by parsed category.
func (c Config) SourceSpecs() (map[content.Category][]source.Spec, error) {
	out := make(map[content.Category][]source.Spec, len(c.Sources))
	for _, name := range slices.Sorted(maps.Keys(c.Sources)) {
		specs := c.Sources[name]
		cat, err := content.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("sources.%s: %w", name, err)
		}
		out[cat] = append(out[cat], specs...)
	}
	return out, nil
}

// ProbeTimeout is the per-probe deadline.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// FetchTimeout is the per-page deadline for catalogue sources.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetcher.TimeoutSeconds) * time.Second
}

// RedisTimeout bounds each shared cache round trip.
func (c Config) RedisTimeout() time.Duration {
	return time.Duration(c.Cache.RedisTimeoutMS) * time.Millisecond
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// RequestTimeout bounds a single API request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
