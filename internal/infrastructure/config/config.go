// Package config loads the frontend settings from defaults, an optional
// YAML file and KITCHEN_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment overrides, e.g. KITCHEN_API_BASE_URL
const EnvPrefix = "KITCHEN"

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	API        APIConfig        `mapstructure:"api"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	I18n       I18nConfig       `mapstructure:"i18n"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Features   FeatureFlags     `mapstructure:"features"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	EnableH2C         bool          `mapstructure:"enable_h2c"`
	SecureCookies     bool          `mapstructure:"secure_cookies"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	// TemplateDir, when set, makes the server parse templates from disk and
	// reload them on change instead of using the embedded copies.
	TemplateDir string `mapstructure:"template_dir"`
}

// APIConfig describes the recipe REST backend the front end renders against.
type APIConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// CacheConfig selects the response cache implementation
type CacheConfig struct {
	Driver  string `mapstructure:"driver"` // "memory" or "redis"
	MaxSize int    `mapstructure:"max_size"`
	Prefix  string `mapstructure:"prefix"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

// I18nConfig contains localization configuration
type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics   bool          `mapstructure:"enable_metrics"`
	MetricsPath     string        `mapstructure:"metrics_path"`
	EnableTracing   bool          `mapstructure:"enable_tracing"`
	OTLPEndpoint    string        `mapstructure:"otlp_endpoint"`
	SamplingRate    float64       `mapstructure:"sampling_rate"`
	HealthCheckPath string        `mapstructure:"health_check_path"`
	ReadinessPath   string        `mapstructure:"readiness_path"`
	HealthCheckTTL  time.Duration `mapstructure:"health_check_ttl"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable         bool          `mapstructure:"enable"`
	RequestsPerMin int           `mapstructure:"requests_per_min"`
	BurstSize      int           `mapstructure:"burst_size"`
	IdleTTL        time.Duration `mapstructure:"idle_ttl"`
}

// FeatureFlags contains feature toggles
type FeatureFlags struct {
	EnableAssistantWebSocket bool `mapstructure:"enable_assistant_websocket"`
	EnableBFF                bool `mapstructure:"enable_bff"`
	EnableExport             bool `mapstructure:"enable_export"`
}

// defaults is the full key space; viper only binds environment variables
// for keys it knows about, so every setting needs an entry here
var defaults = map[string]any{
	"app.name":        "Kitchen",
	"app.version":     "1.0.0",
	"app.environment": "development",
	"app.debug":       false,
	"app.log_level":   "info",
	"app.log_format":  "json",

	"server.host":               "0.0.0.0",
	"server.port":               8080,
	"server.read_timeout":       "15s",
	"server.write_timeout":      "30s",
	"server.idle_timeout":       "60s",
	"server.shutdown_timeout":   "15s",
	"server.enable_compression": true,
	"server.enable_h2c":         false,
	"server.secure_cookies":     false,
	"server.session_ttl":        "24h",
	"server.template_dir":       "",

	"api.base_url":  "http://localhost:3000",
	"api.timeout":   "10s",
	"api.cache_ttl": "60s",

	"cache.driver":   "memory",
	"cache.max_size": 256,
	"cache.prefix":   "kitchen:",

	"redis.host":          "localhost",
	"redis.port":          6379,
	"redis.password":      "",
	"redis.database":      0,
	"redis.dial_timeout":  "2s",
	"redis.read_timeout":  "1s",
	"redis.write_timeout": "1s",
	"redis.pool_size":     10,

	"i18n.default_language": "en",
	"i18n.languages":        []string{"en", "ar"},

	"monitoring.enable_metrics":    true,
	"monitoring.metrics_path":      "/metrics",
	"monitoring.enable_tracing":    false,
	"monitoring.otlp_endpoint":     "",
	"monitoring.sampling_rate":     0.1,
	"monitoring.health_check_path": "/health",
	"monitoring.readiness_path":    "/ready",
	"monitoring.health_check_ttl":  "5s",

	"rate_limit.enable":           true,
	"rate_limit.requests_per_min": 120,
	"rate_limit.burst_size":       30,
	"rate_limit.idle_ttl":         "10m",

	"features.enable_assistant_websocket": true,
	"features.enable_bff":                 true,
	"features.enable_export":              true,
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, or config.yaml from the working directory, ./config or
// /etc/kitchen when path is empty. Only an explicit path must exist.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range []string{".", "./config", "/etc/kitchen"} {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default is the configuration built from defaults only, ignoring the
// environment
func Default() *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.App.Name == "" {
		fail("app.name is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		fail("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		fail("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		fail("api.timeout must be positive")
	}
	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		fail("cache.driver must be memory or redis, got %q", c.Cache.Driver)
	}
	if c.RateLimit.Enable && c.RateLimit.RequestsPerMin < 1 {
		fail("rate_limit.requests_per_min must be positive when rate limiting is on")
	}
	if c.Monitoring.SamplingRate < 0 || c.Monitoring.SamplingRate > 1 {
		fail("monitoring.sampling_rate must be within [0, 1]")
	}
	if !slices.Contains(c.I18n.Languages, c.I18n.DefaultLanguage) {
		fail("i18n.default_language %q must be listed in i18n.languages", c.I18n.DefaultLanguage)
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool { return c.App.Environment == "production" }

func (c *Config) IsDevelopment() bool { return c.App.Environment == "development" }

// Address is the HTTP listen address
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// RedisAddr is the host:port of the Redis server
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
}
