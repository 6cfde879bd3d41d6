package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrFileNotFound  = errors.New("config file not found")
	ErrParseFailed   = errors.New("failed to parse config file")
	ErrInvalidConfig = errors.New("invalid configuration")
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Recorder  RecorderConfig  `mapstructure:"recorder" yaml:"recorder"`
	Collector CollectorConfig `mapstructure:"collector" yaml:"collector"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Query     QueryConfig     `mapstructure:"query" yaml:"query"`
	Retention RetentionConfig `mapstructure:"retention" yaml:"retention"`
	Probe     ProbeConfig     `mapstructure:"probe" yaml:"probe"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`

	// Location names the time zone used for calendar fields and
	// calendar-aligned query windows.
	Location string `mapstructure:"location" yaml:"location"`
	// ActiveUserWindow is how far back a user counts as active.
	ActiveUserWindow time.Duration `mapstructure:"active_user_window" yaml:"active_user_window"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedIPs      []string      `mapstructure:"allowed_ips" yaml:"allowed_ips"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path" yaml:"path"`
	BusyTimeoutMs  int    `mapstructure:"busy_timeout_ms" yaml:"busy_timeout_ms"`
	JournalMode    string `mapstructure:"journal_mode" yaml:"journal_mode"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections"`
}

type RecorderConfig struct {
	MaxSamples    int           `mapstructure:"max_samples" yaml:"max_samples"`
	Window        time.Duration `mapstructure:"window" yaml:"window"`
	PruneInterval time.Duration `mapstructure:"prune_interval" yaml:"prune_interval"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold"`
	ErrorWindow   time.Duration `mapstructure:"error_window" yaml:"error_window"`
}

type CollectorConfig struct {
	Interval        time.Duration `mapstructure:"interval" yaml:"interval"`
	WarmupInterval  time.Duration `mapstructure:"warmup_interval" yaml:"warmup_interval"`
	WarmupThreshold int           `mapstructure:"warmup_threshold" yaml:"warmup_threshold"`
	PersistTimeout  time.Duration `mapstructure:"persist_timeout" yaml:"persist_timeout"`
}

type CacheConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

type QueryConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type RetentionConfig struct {
	HorizonYears int           `mapstructure:"horizon_years" yaml:"horizon_years"`
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ProbeConfig struct {
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	DiskPath string        `mapstructure:"disk_path" yaml:"disk_path"`
}

type AuthConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	Secret      string        `mapstructure:"secret" yaml:"-"`
	SecretFile  string        `mapstructure:"secret_file" yaml:"secret_file"`
	TokenExpiry time.Duration `mapstructure:"token_expiry" yaml:"token_expiry"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.allowed_ips", []string{})
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit", 100.0)
	v.SetDefault("server.rate_burst", 200)

	v.SetDefault("database.path", "./nigrani.db")
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.max_connections", 4)

	v.SetDefault("recorder.max_samples", 1000)
	v.SetDefault("recorder.window", time.Hour)
	v.SetDefault("recorder.prune_interval", 5*time.Minute)
	v.SetDefault("recorder.slow_threshold", 5*time.Second)
	v.SetDefault("recorder.error_window", 5*time.Minute)

	v.SetDefault("collector.interval", 5*time.Minute)
	v.SetDefault("collector.warmup_interval", time.Minute)
	v.SetDefault("collector.warmup_threshold", 60)
	v.SetDefault("collector.persist_timeout", 10*time.Second)

	v.SetDefault("cache.capacity", 288)

	v.SetDefault("query.timeout", 5*time.Second)

	v.SetDefault("retention.horizon_years", 3)
	v.SetDefault("retention.interval", 24*time.Hour)
	v.SetDefault("retention.timeout", time.Minute)

	v.SetDefault("probe.timeout", 2*time.Second)
	v.SetDefault("probe.disk_path", "/")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.secret_file", "")
	v.SetDefault("auth.token_expiry", 90*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("location", "UTC")
	v.SetDefault("active_user_window", 24*time.Hour)
}

// Load reads configuration from path, or from the default search locations
// when path is empty. A missing default file is not an error; the defaults
// and NIGRANI_* environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NIGRANI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("nigrani")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/nigrani/")
		v.AddConfigPath("$HOME/.nigrani")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// defaults and env only
		case errors.As(err, &notFound), isNotExist(err):
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		default:
			return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value time.Duration
	}{
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"recorder.window", c.Recorder.Window},
		{"recorder.prune_interval", c.Recorder.PruneInterval},
		{"recorder.slow_threshold", c.Recorder.SlowThreshold},
		{"recorder.error_window", c.Recorder.ErrorWindow},
		{"collector.interval", c.Collector.Interval},
		{"collector.warmup_interval", c.Collector.WarmupInterval},
		{"collector.persist_timeout", c.Collector.PersistTimeout},
		{"query.timeout", c.Query.Timeout},
		{"retention.interval", c.Retention.Interval},
		{"retention.timeout", c.Retention.Timeout},
		{"probe.timeout", c.Probe.Timeout},
		{"active_user_window", c.ActiveUserWindow},
	}
	for _, d := range positive {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, d.name, d.value)
		}
	}

	if c.Recorder.MaxSamples <= 0 {
		return fmt.Errorf("%w: recorder.max_samples must be positive", ErrInvalidConfig)
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("%w: cache.capacity must be positive", ErrInvalidConfig)
	}
	if c.Collector.WarmupThreshold <= 0 {
		return fmt.Errorf("%w: collector.warmup_threshold must be positive", ErrInvalidConfig)
	}
	if c.Retention.HorizonYears <= 0 {
		return fmt.Errorf("%w: retention.horizon_years must be positive", ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if _, err := c.TimeLocation(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// TimeLocation resolves the configured location.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("unknown location %q: %w", c.Location, err)
	}
	return loc, nil
}
