package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Data backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// ConfigFileEnv names an optional YAML file applied before the environment.
const ConfigFileEnv = "WELLNESS_CONFIG_FILE"

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration

	// Entry storage
	DataBackend  string
	DataDir      string
	SQLiteDBPath string
	BadgerDir    string

	// AMQP change events; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel string

	// Derived view cache
	CacheTTL time.Duration

	// Chart worker
	ChartDir        string
	RefreshInterval time.Duration

	// problems met while reading the config file, reported by Validate
	loadErrors []string
}

// fileConfig mirrors the YAML layout. Empty values leave defaults alone.
type fileConfig struct {
	HTTP struct {
		Port               string `yaml:"port"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
		ShutdownTimeout    string `yaml:"shutdown_timeout"`
	} `yaml:"http"`
	Data struct {
		Backend    string `yaml:"backend"`
		Dir        string `yaml:"dir"`
		SQLitePath string `yaml:"sqlite_path"`
		BadgerDir  string `yaml:"badger_dir"`
	} `yaml:"data"`
	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
		Queue    string `yaml:"queue"`
	} `yaml:"amqp"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Cache struct {
		TTL string `yaml:"ttl"`
	} `yaml:"cache"`
	Worker struct {
		ChartDir        string `yaml:"chart_dir"`
		RefreshInterval string `yaml:"refresh_interval"`
	} `yaml:"worker"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:               "8081",
		RateLimitPerMinute: 60,
		ShutdownTimeout:    10 * time.Second,
		DataBackend:        BackendMemory,
		DataDir:            "./data/entries",
		SQLiteDBPath:       "./data/wellness.db",
		BadgerDir:          "./data/badger",
		AMQPExchange:       "wellness",
		AMQPQueue:          "entry_events",
		LogLevel:           "info",
		CacheTTL:           5 * time.Minute,
		ChartDir:           "./data/charts",
		RefreshInterval:    10 * time.Minute,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by WELLNESS_CONFIG_FILE, then environment variables, later sources winning.
func Load() *Config {
	cfg := Defaults()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.applyFile(path); err != nil {
			cfg.loadErrors = append(cfg.loadErrors, err.Error())
		}
	}
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file '%s': %v", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file '%s': %v", path, err)
	}

	setString(&c.Port, fc.HTTP.Port)
	if fc.HTTP.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = fc.HTTP.RateLimitPerMinute
	}
	setString(&c.DataBackend, fc.Data.Backend)
	setString(&c.DataDir, fc.Data.Dir)
	setString(&c.SQLiteDBPath, fc.Data.SQLitePath)
	setString(&c.BadgerDir, fc.Data.BadgerDir)
	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.ChartDir, fc.Worker.ChartDir)

	var errs []string
	if fc.HTTP.ShutdownTimeout != "" {
		d, err := time.ParseDuration(fc.HTTP.ShutdownTimeout)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid http.shutdown_timeout '%s'", fc.HTTP.ShutdownTimeout))
		} else {
			c.ShutdownTimeout = d
		}
	}
	if fc.Cache.TTL != "" {
		d, err := time.ParseDuration(fc.Cache.TTL)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid cache.ttl '%s'", fc.Cache.TTL))
		} else {
			c.CacheTTL = d
		}
	}
	if fc.Worker.RefreshInterval != "" {
		d, err := time.ParseDuration(fc.Worker.RefreshInterval)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid worker.refresh_interval '%s'", fc.Worker.RefreshInterval))
		} else {
			c.RefreshInterval = d
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config file '%s': %s", path, strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.BadgerDir = getEnv("BADGER_DIR", c.BadgerDir)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)

	c.ChartDir = getEnv("CHART_DIR", c.ChartDir)
	c.RefreshInterval = getEnvDuration("CHART_REFRESH_INTERVAL", c.RefreshInterval)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errors := append([]string(nil), c.loadErrors...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendFile:
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendBadger:
		if c.BadgerDir == "" {
			errors = append(errors, "badger directory cannot be empty when using badger backend")
		}
	default:
		valid := []string{BackendMemory, BackendFile, BackendSQLite, BackendBadger}
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, valid))
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	} else if c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if c.ChartDir == "" {
		errors = append(errors, "chart directory cannot be empty")
	}
	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid chart refresh interval %v: must be at least 1 second", c.RefreshInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// EventsEnabled reports whether change events should be published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
