// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper. The
// struct is built once at startup and passed into constructors; no package
// reads ambient global state.
type Config struct {
	Job        JobConfig        `mapstructure:"job"`
	Remote     RemoteConfig     `mapstructure:"remote"`
	Harvest    HarvestConfig    `mapstructure:"harvest"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// JobConfig names the harvest job; the name keys the checkpoint record.
type JobConfig struct {
	Name string `mapstructure:"name"`
}

// RemoteConfig points at the enrichment API.
type RemoteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxPages       int    `mapstructure:"max_pages"`
	Priority       string `mapstructure:"priority"`
	Source         string `mapstructure:"source"`
}

// HarvestConfig governs the sequential dispatch loop.
type HarvestConfig struct {
	// DelayMs is the minimum gap between consecutive remote calls.
	DelayMs int `mapstructure:"delay_ms"`
	// FlushEvery persists the checkpoint after this many recorded outcomes.
	FlushEvery int `mapstructure:"flush_every"`
	// HeartbeatEvery emits a progress heartbeat after this many items.
	HeartbeatEvery int `mapstructure:"heartbeat_every"`
}

// QuotaConfig describes the remote daily call budget, when known.
type QuotaConfig struct {
	// DailyCeiling is the known daily request budget; 0 means unknown.
	DailyCeiling int `mapstructure:"daily_ceiling"`
	// SafetyMarginPct flags approaching-limit once used calls pass this
	// percentage of the ceiling. Informational only; the remote system is
	// the authority on exhaustion.
	SafetyMarginPct int `mapstructure:"safety_margin_pct"`
}

// CheckpointConfig selects and configures the checkpoint backend.
type CheckpointConfig struct {
	// Backend is one of file, postgres, gcs.
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// NotifyConfig configures run-lifecycle notifications.
type NotifyConfig struct {
	// Backend is one of noop, pubsub.
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ServerConfig controls the optional read-only status server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOKHARVEST")
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
	v.SetDefault("job.name", "default")
	v.SetDefault("remote.timeout_seconds", 30)
	v.SetDefault("remote.max_pages", 0)
	v.SetDefault("remote.source", "bookharvest")
	v.SetDefault("harvest.delay_ms", 1500)
	v.SetDefault("harvest.flush_every", 25)
	v.SetDefault("harvest.heartbeat_every", 100)
	v.SetDefault("quota.daily_ceiling", 0)
	v.SetDefault("quota.safety_margin_pct", 90)
	v.SetDefault("checkpoint.backend", "file")
	v.SetDefault("checkpoint.path", "data/checkpoint.json")
	v.SetDefault("checkpoint.prefix", "checkpoints")
	v.SetDefault("notify.backend", "noop")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Job.Name == "" {
		return fmt.Errorf("job.name must be set")
	}
	if c.Remote.TimeoutSeconds <= 0 {
		return fmt.Errorf("remote.timeout_seconds must be > 0")
	}
	if c.Harvest.DelayMs < 0 {
		return fmt.Errorf("harvest.delay_ms must be >= 0")
	}
	if c.Harvest.FlushEvery <= 0 {
		return fmt.Errorf("harvest.flush_every must be > 0")
	}
	if c.Quota.SafetyMarginPct <= 0 || c.Quota.SafetyMarginPct > 100 {
		return fmt.Errorf("quota.safety_margin_pct must be in (0, 100]")
	}
	switch c.Checkpoint.Backend {
	case "file":
		if c.Checkpoint.Path == "" {
			return fmt.Errorf("checkpoint.path must be set for the file backend")
		}
	case "postgres":
		if c.Checkpoint.DSN == "" {
			return fmt.Errorf("checkpoint.dsn must be set for the postgres backend")
		}
	case "gcs":
		if c.Checkpoint.Bucket == "" {
			return fmt.Errorf("checkpoint.bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown checkpoint backend: %s", c.Checkpoint.Backend)
	}
	switch c.Notify.Backend {
	case "noop":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicID == "" {
			return fmt.Errorf("notify.project_id and notify.topic_id must be set for pubsub")
		}
	default:
		return fmt.Errorf("unknown notify backend: %s", c.Notify.Backend)
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the status server is enabled")
	}
	return nil
}

// Delay converts the configured inter-request gap into a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Harvest.DelayMs) * time.Millisecond
}

// RemoteTimeout converts the remote call timeout into a duration.
func (c Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}
