package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config represents the relmap configuration
type Config struct {
	Models   ModelsConfig   `mapstructure:"models"`
	Mapper   MapperConfig   `mapstructure:"mapper"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// ModelsConfig selects where model definitions come from
type ModelsConfig struct {
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
}

// MapperConfig selects the pruning policy of relation graphs
type MapperConfig struct {
	Policy   string `mapstructure:"policy"`
	MaxDepth int    `mapstructure:"max_depth"`
}

// CacheConfig represents relation cache configuration
type CacheConfig struct {
	Driver string      `mapstructure:"driver"`
	Prefix string      `mapstructure:"prefix"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig represents the redis connection of the relation cache
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig represents the database models are read from
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Address returns the listen address of the HTTP server
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load loads the configuration from relmap.yml or relmap.yaml in the working
// directory, or from path when it is not empty. RELMAP_* environment
// variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("models.source", "yaml")
	v.SetDefault("models.path", "models.yml")
	v.SetDefault("mapper.policy", "depth")
	v.SetDefault("mapper.max_depth", 3)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.prefix", "relmap:")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.schema", "public")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("relmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix("relmap")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Models.Source {
	case "yaml":
		if cfg.Models.Path == "" {
			return fmt.Errorf("models.path is required when models.source is yaml")
		}
	case "database":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when models.source is database")
		}
		switch cfg.Database.Driver {
		case "pgx", "postgres", "sqlite3":
		default:
			return fmt.Errorf("database.driver must be pgx, postgres or sqlite3, got: %s", cfg.Database.Driver)
		}
	default:
		return fmt.Errorf("models.source must be yaml or database, got: %s", cfg.Models.Source)
	}

	switch cfg.Mapper.Policy {
	case "depth", "duplicates":
	default:
		return fmt.Errorf("mapper.policy must be depth or duplicates, got: %s", cfg.Mapper.Policy)
	}
	if cfg.Mapper.MaxDepth < 0 {
		return fmt.Errorf("mapper.max_depth must not be negative, got: %d", cfg.Mapper.MaxDepth)
	}

	switch cfg.Cache.Driver {
	case "memory":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required when cache.driver is redis")
		}
	default:
		return fmt.Errorf("cache.driver must be memory or redis, got: %s", cfg.Cache.Driver)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
