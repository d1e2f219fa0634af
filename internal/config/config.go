package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// CIDRs whose X-Forwarded-For / X-Real-IP headers are believed
	TrustedProxies []string
	// Browser origins allowed to call the API; empty disables CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Backend selection and storage
	DataBackend  string
	SQLiteDBPath string
	PostgresDSN  string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Categorization service
	ClassifierURL     string
	ClassifierTimeout time.Duration
	// Predictions are cached per description; size 0 disables the cache
	ClassifierCacheSize int
	ClassifierCacheTTL  time.Duration

	// Advisory thresholds in percent
	TrendThreshold    string
	CategoryThreshold string

	// Logging
	LogLevel  string
	LogFormat string
}

var validBackends = []string{"memory", "sqlite", "postgres"}

// SetDefaults registers every key with its default so that environment
// variables of the same name (upper-cased) override them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8081")
	v.SetDefault("rate_limit_per_minute", 60)
	v.SetDefault("trusted_proxies", []string{})
	v.SetDefault("cors_allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("cors_allow_credentials", true)
	v.SetDefault("data_backend", "memory")
	v.SetDefault("sqlite_db_path", "./data/consigli.db")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "consigli")
	v.SetDefault("amqp_queue", "consigli_events")
	v.SetDefault("classifier_url", "http://localhost:8000")
	v.SetDefault("classifier_timeout", 5*time.Second)
	v.SetDefault("classifier_cache_size", 512)
	v.SetDefault("classifier_cache_ttl", time.Hour)
	v.SetDefault("trend_threshold", "15")
	v.SetDefault("category_threshold", "40")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads the configuration from v. A nil v uses a fresh viper bound to
// the process environment.
func Load(v *viper.Viper) *Config {
	if v == nil {
		v = viper.New()
		v.AutomaticEnv()
	}
	SetDefaults(v)

	return &Config{
		Port:               v.GetString("port"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
		TrustedProxies:     v.GetStringSlice("trusted_proxies"),

		CORSAllowedOrigins:   v.GetStringSlice("cors_allowed_origins"),
		CORSAllowCredentials: v.GetBool("cors_allow_credentials"),

		DataBackend:  strings.ToLower(strings.TrimSpace(v.GetString("data_backend"))),
		SQLiteDBPath: v.GetString("sqlite_db_path"),
		PostgresDSN:  v.GetString("postgres_dsn"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),
		AMQPQueue:    v.GetString("amqp_queue"),

		ClassifierURL:     v.GetString("classifier_url"),
		ClassifierTimeout: v.GetDuration("classifier_timeout"),

		ClassifierCacheSize: v.GetInt("classifier_cache_size"),
		ClassifierCacheTTL:  v.GetDuration("classifier_cache_ttl"),

		TrendThreshold:    v.GetString("trend_threshold"),
		CategoryThreshold: v.GetString("category_threshold"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}
}

// Thresholds parses the advisory thresholds. Call after Validate.
func (c *Config) Thresholds() (trend, category decimal.Decimal, err error) {
	trend, err = decimal.NewFromString(strings.TrimSpace(c.TrendThreshold))
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("trend threshold: %w", err)
	}
	category, err = decimal.NewFromString(strings.TrimSpace(c.CategoryThreshold))
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("category threshold: %w", err)
	}
	return trend, category, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			if c.CORSAllowCredentials {
				errors = append(errors, "CORS origin '*' cannot be combined with credentials")
			}
			continue
		}
		if u, err := url.Parse(origin); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || (u.Path != "" && u.Path != "/") {
			errors = append(errors, fmt.Sprintf("invalid CORS origin '%s': must be scheme://host[:port]", origin))
		}
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "postgres" && c.PostgresDSN == "" {
		errors = append(errors, "Postgres DSN cannot be empty when using postgres backend")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ClassifierURL == "" {
		errors = append(errors, "classifier URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.ClassifierURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid classifier URL '%s': %v", c.ClassifierURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid classifier URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.ClassifierTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid classifier timeout %v: must be at least 100ms", c.ClassifierTimeout))
	} else if c.ClassifierTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid classifier timeout %v: must be at most 1 minute", c.ClassifierTimeout))
	}

	if c.ClassifierCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid classifier cache size %d: must not be negative", c.ClassifierCacheSize))
	} else if c.ClassifierCacheSize > 0 && c.ClassifierCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid classifier cache TTL %v: must be positive when the cache is enabled", c.ClassifierCacheTTL))
	}

	errors = append(errors, validatePercent("trend threshold", c.TrendThreshold, false)...)
	errors = append(errors, validatePercent("category threshold", c.CategoryThreshold, true)...)

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// validatePercent checks a threshold is a non-negative decimal, at most 100
// when capped is set. A trend can exceed 100%, a share of spend cannot.
func validatePercent(name, value string, capped bool) []string {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': must be a decimal number", name, value)}
	}
	if d.IsNegative() {
		return []string{fmt.Sprintf("invalid %s %s: must not be negative", name, d)}
	}
	if capped && d.GreaterThan(decimal.NewFromInt(100)) {
		return []string{fmt.Sprintf("invalid %s %s: must be at most 100", name, d)}
	}
	return nil
}
