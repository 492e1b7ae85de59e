// Package config loads process configuration from defaults, an optional
// file and ENTITYUI_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ENTITYUI_SERVER_ADDR.
const EnvPrefix = "ENTITYUI"

// Config holds application configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Entities EntitiesConfig
	Database DatabaseConfig
	Session  SessionConfig
	Bus      BusConfig
	Options  OptionsConfig
}

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string
	Format string
}

// EntitiesConfig locates the CUE entity package.
type EntitiesConfig struct {
	Dir string
	// Seed inserts the package's seed records into empty entities.
	Seed bool
}

type DatabaseConfig struct {
	Path string
}

type SessionConfig struct {
	MaxAge          time.Duration `mapstructure:"max_age"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type BusConfig struct {
	Buffer int
}

// OptionsConfig configures dependent-field option loading.
type OptionsConfig struct {
	// BaseURL prefixes option endpoints. Empty means this server.
	BaseURL   string `mapstructure:"base_url"`
	CacheSize int    `mapstructure:"cache_size"`
	Timeout   time.Duration
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("entities.dir", "entities")
	v.SetDefault("entities.seed", true)
	v.SetDefault("database.path", "entityui.db")
	v.SetDefault("session.max_age", 24*time.Hour)
	v.SetDefault("session.idle_timeout", 30*time.Minute)
	v.SetDefault("session.cleanup_interval", time.Minute)
	v.SetDefault("bus.buffer", 256)
	v.SetDefault("options.base_url", "")
	v.SetDefault("options.cache_size", 128)
	v.SetDefault("options.timeout", 5*time.Second)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path, if any, and decodes v. A missing
// file is an error only when path was given explicitly.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("entityui")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values the process cannot start with.
func (c Config) Validate() error {
	var problems []string
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr must be set")
	}
	if c.Entities.Dir == "" {
		problems = append(problems, "entities.dir must be set")
	}
	if c.Database.Path == "" {
		problems = append(problems, "database.path must be set")
	}
	if c.Bus.Buffer < 1 {
		problems = append(problems, "bus.buffer must be at least 1")
	}
	if c.Options.CacheSize < 0 {
		problems = append(problems, "options.cache_size must not be negative")
	}
	if c.Session.CleanupInterval <= 0 {
		problems = append(problems, "session.cleanup_interval must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN returns the SQLite data source name for the database path.
func (d DatabaseConfig) DSN() string {
	if strings.HasPrefix(d.Path, "file:") {
		return d.Path
	}
	return "file:" + d.Path + "?_pragma=busy_timeout(5000)"
}
