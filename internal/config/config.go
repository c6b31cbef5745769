package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the resolved configuration: defaults, then the config file,
// then SQLFACADE_* environment variables.
type Config struct {
	Driver string       `mapstructure:"driver" validate:"required,oneof=sqlite mysql postgres mssql"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Log    LogConfig    `mapstructure:"log"`
	Output OutputConfig `mapstructure:"output"`
}

type SQLiteConfig struct {
	// BusyTimeout is how long SQLite waits on a locked store file.
	BusyTimeout time.Duration `mapstructure:"busy_timeout" validate:"gte=0"`
	ForeignKeys bool          `mapstructure:"foreign_keys"`
	WAL         bool          `mapstructure:"wal"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type OutputConfig struct {
	Format   string `mapstructure:"format" validate:"oneof=table json"`
	MaxWidth int    `mapstructure:"max_width" validate:"gte=0"`
}

// SetDefaults registers every key so environment overrides are picked up
// by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("driver", "sqlite")
	v.SetDefault("sqlite.busy_timeout", "5s")
	v.SetDefault("sqlite.foreign_keys", true)
	v.SetDefault("sqlite.wal", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("output.format", "table")
	v.SetDefault("output.max_width", 60)
}

// Load reads configuration into v. An explicit path must exist; without one
// ./sqlfacade.yaml is read when present.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("SQLFACADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("sqlfacade")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
