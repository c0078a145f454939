package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/quietroom/quietroom/database"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for quietroom.
type Config struct {
	Database DatabaseSettings `mapstructure:"database"`
	Log      LogConfig        `mapstructure:"log"`
}

// DatabaseSettings holds the raw backend selection as it arrives from the
// environment. Backend resolves it into a validated database.Config.
type DatabaseSettings struct {
	UsePostgres bool   `mapstructure:"use_postgresql"`
	URL         string `mapstructure:"url"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port" validate:"min=0,max=65535"`
	Name        string `mapstructure:"name"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`

	// Path is the embedded database file, used when UsePostgres is false
	// and no URL is set.
	Path string `mapstructure:"path"`

	PoolSize       int           `mapstructure:"pool_size" validate:"required,min=1,max=64"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" validate:"required"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// Backend resolves the settings into the backend config the database layer
// consumes. Selection follows the deployment contract: USE_POSTGRESQL or a
// present DATABASE_URL selects the client-server backend, and the URL takes
// precedence over individual PG* fields.
func (s DatabaseSettings) Backend() (database.Config, error) {
	cfg := database.Config{
		Kind:           database.KindEmbedded,
		PoolSize:       s.PoolSize,
		AcquireTimeout: s.AcquireTimeout,
	}
	if s.UsePostgres || s.URL != "" {
		cfg.Kind = database.KindClientServer
	}

	switch cfg.Kind {
	case database.KindEmbedded:
		cfg.Path = s.Path
	case database.KindClientServer:
		if s.URL != "" {
			parsed, err := pgconn.ParseConfig(s.URL)
			if err != nil {
				return database.Config{}, &database.ConfigError{
					Reason: fmt.Sprintf("invalid connection URL: %v", err),
				}
			}
			cfg.DSN = s.URL
			cfg.Host = parsed.Host
			cfg.Port = parsed.Port
			cfg.Database = parsed.Database
			cfg.User = parsed.User
			cfg.Password = parsed.Password
		} else {
			cfg.Host = s.Host
			cfg.Port = uint16(s.Port)
			cfg.Database = s.Name
			cfg.User = s.User
			cfg.Password = s.Password
		}
	}

	if err := cfg.Validate(); err != nil {
		return database.Config{}, err
	}
	return cfg, nil
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-path":        "database.path",
	"db-url":         "database.url",
	"use-postgresql": "database.use_postgresql",
	"pool-size":      "database.pool_size",
	"log-level":      "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.use_postgresql", false)
	v.SetDefault("database.path", "quietroom.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.pool_size", 5)
	v.SetDefault("database.acquire_timeout", "5s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// bindEnv wires the standard QUIETROOM_ prefix plus the legacy deployment
// variable names: USE_POSTGRESQL, DATABASE_URL, and the libpq-style PG*
// fields.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("QUIETROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("database.use_postgresql", "QUIETROOM_DATABASE_USE_POSTGRESQL", "USE_POSTGRESQL")
	_ = v.BindEnv("database.url", "QUIETROOM_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.host", "QUIETROOM_DATABASE_HOST", "PGHOST")
	_ = v.BindEnv("database.port", "QUIETROOM_DATABASE_PORT", "PGPORT")
	_ = v.BindEnv("database.name", "QUIETROOM_DATABASE_NAME", "PGDATABASE")
	_ = v.BindEnv("database.user", "QUIETROOM_DATABASE_USER", "PGUSER")
	_ = v.BindEnv("database.password", "QUIETROOM_DATABASE_PASSWORD", "PGPASSWORD")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	bindEnv(v)

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct. Env values arrive as strings, so
	// decode weakly typed for the bool and int fields.
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
