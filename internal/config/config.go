// Package config loads service configuration from a YAML file, environment
// variables and built-in defaults, in increasing order of precedence:
// defaults < file < environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/career-predictor/internal/classifier"
	"github.com/jonathan/career-predictor/internal/dataset"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CAREER_SERVER_PORT.
const EnvPrefix = "CAREER"

// DefaultConfigName is looked up in the working directory and ./configs
// when no explicit file is given.
const DefaultConfigName = "career_agent"

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Model     ModelConfig     `mapstructure:"model"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigin      string        `mapstructure:"cors_origin"`

	// ValidateResponses checks outgoing prediction responses against the
	// response schema. Meant for staging and debugging.
	ValidateResponses bool `mapstructure:"validate_responses"`
}

// DatabaseConfig points at PostgreSQL. An empty URL disables prediction
// history and upload auditing.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// RedisConfig points at the prediction cache. An empty address disables it.
type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether a cache is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// DatasetConfig locates the active training file and bounds uploads.
type DatasetConfig struct {
	Path           string `mapstructure:"path" validate:"required"`
	SkillsColumn   string `mapstructure:"skills_column" validate:"required"`
	RoleColumn     string `mapstructure:"role_column" validate:"required"`
	MinRows        int    `mapstructure:"min_rows" validate:"min=1"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" validate:"min=1"`
}

// Schema returns the dataset column layout.
func (c DatasetConfig) Schema() dataset.Schema {
	return dataset.Schema{SkillsColumn: c.SkillsColumn, RoleColumn: c.RoleColumn}
}

// ModelConfig holds random forest hyperparameters.
type ModelConfig struct {
	NumTrees        int   `mapstructure:"num_trees" validate:"min=1"`
	Seed            int64 `mapstructure:"seed"`
	MaxDepth        int   `mapstructure:"max_depth"`
	MinSamplesSplit int   `mapstructure:"min_samples_split" validate:"min=2"`
	MaxFeatures     int   `mapstructure:"max_features"`
	Bootstrap       bool  `mapstructure:"bootstrap"`
	Workers         int   `mapstructure:"workers"`
}

// ForestOptions converts the config into classifier options.
func (c ModelConfig) ForestOptions() classifier.Options {
	return classifier.Options{
		NumTrees:        c.NumTrees,
		Seed:            c.Seed,
		MaxDepth:        c.MaxDepth,
		MinSamplesSplit: c.MinSamplesSplit,
		MaxFeatures:     c.MaxFeatures,
		Bootstrap:       c.Bootstrap,
		Workers:         c.Workers,
	}
}

// RateLimitConfig configures the per-client token buckets.
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DefaultLimit    int           `mapstructure:"default_limit"`
	DefaultWindow   time.Duration `mapstructure:"default_window"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Whitelist       []string      `mapstructure:"whitelist"`
	Blacklist       []string      `mapstructure:"blacklist"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// JobsConfig sizes the retrain queue.
type JobsConfig struct {
	BufferSize  int `mapstructure:"buffer_size" validate:"min=1"`
	MaxRetained int `mapstructure:"max_retained" validate:"min=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.validate_responses", false)

	v.SetDefault("database.url", "")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("dataset.path", "data/career_data.csv")
	v.SetDefault("dataset.skills_column", dataset.CanonicalSchema.SkillsColumn)
	v.SetDefault("dataset.role_column", dataset.CanonicalSchema.RoleColumn)
	v.SetDefault("dataset.min_rows", 5)
	v.SetDefault("dataset.max_upload_bytes", 32<<20)

	defaults := classifier.DefaultOptions()
	v.SetDefault("model.num_trees", defaults.NumTrees)
	v.SetDefault("model.seed", defaults.Seed)
	v.SetDefault("model.max_depth", defaults.MaxDepth)
	v.SetDefault("model.min_samples_split", defaults.MinSamplesSplit)
	v.SetDefault("model.max_features", defaults.MaxFeatures)
	v.SetDefault("model.bootstrap", defaults.Bootstrap)
	v.SetDefault("model.workers", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.expiration_hours", DefaultExpirationHours)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_limit", 1000)
	v.SetDefault("rate_limit.default_window", time.Minute)
	v.SetDefault("rate_limit.cleanup_interval", 5*time.Minute)
	v.SetDefault("rate_limit.whitelist", []string{})
	v.SetDefault("rate_limit.blacklist", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("jobs.buffer_size", 8)
	v.SetDefault("jobs.max_retained", 100)
}

// Load reads configuration. When path is empty, career_agent.yaml is looked
// up in the working directory and ./configs; a missing default file is not
// an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed names used by existing deployments.
	if err := v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL: %w", err)
	}
	if err := v.BindEnv("auth.jwt_secret", EnvPrefix+"_AUTH_JWT_SECRET", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints. Auth is checked separately by the
// commands that need a signing secret.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
