// Package config loads where-am-i.toml, WHEREAMI_* environment variables
// and command line flags into one Config.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "where-am-i.toml"

// EnvPrefix prefixes environment overrides, e.g. WHEREAMI_ADDRESS or
// WHEREAMI_API_COOKIE.
const EnvPrefix = "WHEREAMI"

// Configuration keys.
const (
	KeyLogsPath      = "logs_path"
	KeyAddress       = "address"
	KeyContent       = "content"
	KeyCache         = "cache"
	KeyPollInterval  = "poll_interval"
	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
	KeyLogMaxSizeMB  = "log.max_size_mb"
	KeyLogMaxBackups = "log.max_backups"
	KeyAPIBaseURL    = "api.base_url"
	KeyAPICookie     = "api.cookie"
	KeyAPIRate       = "api.rate"
	KeyAPIMaxRetries = "api.max_retries"
	KeyAPICacheTTL   = "api.cache_ttl"
)

const (
	defaultAPIBaseURL = "https://vrchat.com/api"
	// Shared anonymous session accepted by the world endpoints.
	defaultAPICookie = "auth=JlE5Jldo5Jibnk5O5hTx6XVqsJu4WJ26"
)

// Config is the effective configuration.
type Config struct {
	// LogsPath is the VRChat log directory. Empty means auto-detect.
	LogsPath     string        `mapstructure:"logs_path"`
	Address      string        `mapstructure:"address"`
	Content      string        `mapstructure:"content"`
	Cache        string        `mapstructure:"cache"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Log          Log           `mapstructure:"log"`
	API          API           `mapstructure:"api"`
}

// Log configures the process log.
type Log struct {
	Level string `mapstructure:"level"`
	// File enables a rotating log file in addition to stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// API configures the world metadata client.
type API struct {
	BaseURL    string        `mapstructure:"base_url"`
	Cookie     string        `mapstructure:"cookie"`
	Rate       float64       `mapstructure:"rate"`
	MaxRetries int           `mapstructure:"max_retries"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// New returns a viper instance carrying the defaults and environment
// bindings. Flags may be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyLogsPath, "")
	v.SetDefault(KeyAddress, "127.0.0.1:37544")
	v.SetDefault(KeyContent, "static")
	v.SetDefault(KeyCache, "cache")
	v.SetDefault(KeyPollInterval, "100ms")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogMaxSizeMB, 10)
	v.SetDefault(KeyLogMaxBackups, 3)
	v.SetDefault(KeyAPIBaseURL, defaultAPIBaseURL)
	v.SetDefault(KeyAPICookie, defaultAPICookie)
	v.SetDefault(KeyAPIRate, 1.0)
	v.SetDefault(KeyAPIMaxRetries, 3)
	v.SetDefault(KeyAPICacheTTL, "24h")
	return v
}

// Load reads the configuration file into v and decodes the result.
//
// An explicit path must exist. Without one, where-am-i.toml in the working
// directory is read if present.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".toml"))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that decode but cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Address == "" {
		errs = append(errs, errors.New("address must not be empty"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval))
	}
	if c.API.Rate <= 0 {
		errs = append(errs, fmt.Errorf("api.rate must be positive, got %v", c.API.Rate))
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("api.max_retries must be non-negative, got %d", c.API.MaxRetries))
	}
	if c.API.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("api.cache_ttl must be non-negative, got %v", c.API.CacheTTL))
	}
	return errors.Join(errs...)
}

// Write prints the effective settings of v as TOML.
func Write(w io.Writer, v *viper.Viper) error {
	return toml.NewEncoder(w).Encode(v.AllSettings())
}
