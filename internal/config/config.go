// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
	"github.com/iwvelando/pawn-calculator/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for pawn-calculator.
type Configuration struct {
	Logging  LoggingConfig      `mapstructure:"logging"`
	Output   OutputConfig       `mapstructure:"output"`
	Store    StoreConfig        `mapstructure:"store"`
	Auth     AuthConfig         `mapstructure:"auth"`
	Defaults *rates.WeightTable `mapstructure:"defaults"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format"` // pretty, csv
}

// StoreConfig selects where the weight document lives.
type StoreConfig struct {
	Driver    string          `mapstructure:"driver"` // memory, redis, postgres, firestore
	AppID     string          `mapstructure:"appId"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
}

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig holds the postgres connection settings.
type PostgresConfig struct {
	DSN          string        `mapstructure:"dsn"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// FirestoreConfig holds the firestore project settings. Credentials are
// picked up from the environment.
type FirestoreConfig struct {
	ProjectID string `mapstructure:"projectId"`
}

// AuthConfig holds the admin credentials. Users maps a username to a bcrypt
// hash; usernames are case-insensitive.
type AuthConfig struct {
	Users       map[string]string `mapstructure:"users"`
	TokenSecret string            `mapstructure:"tokenSecret"`
	TokenTTL    time.Duration     `mapstructure:"tokenTTL"`
}

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"json", "console"}
	storeDrivers = []string{constants.StoreDriverMemory, constants.StoreDriverRedis, constants.StoreDriverPostgres, constants.StoreDriverFirestore}
)

// LoadConfiguration loads an optional .env file, then the YAML configuration
// at configPath, then PAWN_ prefixed environment overrides. An empty
// configPath skips the file.
func LoadConfiguration(configPath string) (*Configuration, error) {
	if err := loadEnvFile(configPath); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := configuration.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &configuration, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("store.driver", constants.StoreDriverMemory)
	v.SetDefault("store.appId", constants.DefaultAppID)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.pollInterval", constants.DefaultPollInterval)
	v.SetDefault("store.firestore.projectId", "")
	v.SetDefault("auth.tokenSecret", "")
	v.SetDefault("auth.tokenTTL", constants.DefaultTokenTTL)
}

// loadEnvFile loads a .env file sitting next to the config file, or in the
// working directory. Variables already set in the environment win.
func loadEnvFile(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, candidates...)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}

// Validate checks the configuration for values the rest of the program cannot
// work with.
func (c *Configuration) Validate() error {
	var errs []error

	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %v, got %q", logLevels, c.Logging.Level))
	}
	if !slices.Contains(logFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of %v, got %q", logFormats, c.Logging.Format))
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Driver {
	case constants.StoreDriverPostgres:
		if c.Store.Postgres.DSN == "" {
			errs = append(errs, errors.New("store.postgres.dsn is required for the postgres driver"))
		}
		if c.Store.Postgres.PollInterval <= 0 {
			errs = append(errs, errors.New("store.postgres.pollInterval must be positive"))
		}
	case constants.StoreDriverFirestore:
		if c.Store.Firestore.ProjectID == "" {
			errs = append(errs, errors.New("store.firestore.projectId is required for the firestore driver"))
		}
	case constants.StoreDriverRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis driver"))
		}
	case constants.StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be one of %v, got %q", storeDrivers, c.Store.Driver))
	}
	if c.Store.AppID == "" {
		errs = append(errs, errors.New("store.appId must not be empty"))
	}

	if len(c.Auth.Users) > 0 {
		if c.Auth.TokenSecret == "" {
			errs = append(errs, errors.New("auth.tokenSecret is required when admin users are configured"))
		}
		if c.Auth.TokenTTL <= 0 {
			errs = append(errs, errors.New("auth.tokenTTL must be positive"))
		}
	}

	if c.Defaults != nil {
		if err := validation.ValidateDefaultWeights(c.DefaultWeights()); err != nil {
			errs = append(errs, fmt.Errorf("defaults: %w", err))
		}
	}

	return errors.Join(errs...)
}

// DefaultWeights returns the built-in weight table with any configured
// defaults merged over it.
func (c *Configuration) DefaultWeights() rates.WeightTable {
	defaults := rates.DefaultWeightTable()
	if c.Defaults == nil {
		return defaults
	}
	return defaults.Merge(*c.Defaults)
}

// AdminEnabled reports whether any admin user is configured.
func (c *Configuration) AdminEnabled() bool {
	return len(c.Auth.Users) > 0
}
