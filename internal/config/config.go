// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ranktrakr/ranktrakr/internal/serp"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Events    EventsConfig    `mapstructure:"events"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the Postgres database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	Migrate  bool   `mapstructure:"migrate"`
}

// ProviderConfig holds the DataForSEO endpoint, credentials and default
// SERP targeting parameters.
type ProviderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Login          string `mapstructure:"login"`
	Password       string `mapstructure:"password"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	LocationCode   int    `mapstructure:"location_code"`
	LocationName   string `mapstructure:"location_name"`
	LanguageCode   string `mapstructure:"language_code"`
	Device         string `mapstructure:"device"`
	OS             string `mapstructure:"os"`
	Depth          int    `mapstructure:"depth"`
}

// BatchConfig governs batch fetch behavior.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// MatcherConfig tunes domain matching.
type MatcherConfig struct {
	// LooseMatch enables the substring containment tier, which tolerates
	// provider host noise at the cost of possible false positives.
	LooseMatch bool `mapstructure:"loose_match"`
}

// SchedulerConfig controls the daily update trigger.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Hour    int  `mapstructure:"hour"`
	Minute  int  `mapstructure:"minute"`
}

// ArchiveConfig selects the raw payload archive backend.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"` // noop, memory, local, gcs
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// EventsConfig selects the cycle summary event backend.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"` // noop, memory, pubsub
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RANKTRAKR")
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

// setDefaults registers every config key. Viper's Unmarshal only walks keys
// it knows about, so keys without a meaningful default still get a zero value
// here to keep them reachable through env overrides alone.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.migrate", true)
	v.SetDefault("provider.base_url", "https://api.dataforseo.com/v3")
	v.SetDefault("provider.login", "")
	v.SetDefault("provider.password", "")
	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("provider.location_code", 0)
	v.SetDefault("provider.location_name", "Chicago,Illinois,United States")
	v.SetDefault("provider.language_code", "en")
	v.SetDefault("provider.device", "desktop")
	v.SetDefault("provider.os", "windows")
	v.SetDefault("provider.depth", 100)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("matcher.loose_match", false)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.hour", 2)
	v.SetDefault("scheduler.minute", 0)
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.local_dir", "")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("events.provider", "noop")
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic", "")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Provider.Login == "" || c.Provider.Password == "" {
		return fmt.Errorf("provider.login and provider.password are required")
	}
	if c.Provider.Depth <= 0 {
		return fmt.Errorf("provider.depth must be > 0")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be > 0")
	}
	if c.Scheduler.Hour < 0 || c.Scheduler.Hour > 23 {
		return fmt.Errorf("scheduler.hour must be between 0 and 23")
	}
	if c.Scheduler.Minute < 0 || c.Scheduler.Minute > 59 {
		return fmt.Errorf("scheduler.minute must be between 0 and 59")
	}
	switch c.Archive.Provider {
	case "noop", "memory":
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir is required for the local archive")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required for the gcs archive")
		}
	default:
		return fmt.Errorf("unknown archive provider %q", c.Archive.Provider)
	}
	switch c.Events.Provider {
	case "noop", "memory":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.Topic == "" {
			return fmt.Errorf("events.project_id and events.topic are required for pubsub")
		}
	default:
		return fmt.Errorf("unknown events provider %q", c.Events.Provider)
	}
	return nil
}

// ProviderTimeout converts the configured provider timeout into a duration.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// Location assembles the default SERP targeting parameters.
func (c Config) Location() serp.Location {
	return serp.Location{
		LocationCode: c.Provider.LocationCode,
		LocationName: c.Provider.LocationName,
		LanguageCode: c.Provider.LanguageCode,
		Device:       c.Provider.Device,
		OS:           c.Provider.OS,
		Depth:        c.Provider.Depth,
	}
}
