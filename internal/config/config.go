// Package config loads txtag settings from an optional YAML file and
// TXTAG_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names accepted by store.backend.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// EnvPrefix prefixes every environment override, e.g. TXTAG_STORE_BACKEND.
const EnvPrefix = "TXTAG"

// Config holds application configuration.
type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Account    AccountConfig    `mapstructure:"account"`
	Log        LogConfig        `mapstructure:"log"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
}

// StoreConfig selects and locates the storage backend.
type StoreConfig struct {
	Backend     string        `mapstructure:"backend"`
	Path        string        `mapstructure:"path"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// AccountConfig names the collection commands use when none is given.
type AccountConfig struct {
	IBAN string `mapstructure:"iban"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ClassifierConfig lists the categories the automatic classifier may assign.
type ClassifierConfig struct {
	Categories []string `mapstructure:"categories"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:     BackendBolt,
			Path:        "txtag.db",
			LockTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "warn"},
		Classifier: ClassifierConfig{
			Categories: []string{"Groceries", "Household", "Taxes", "Leisure", "Transport"},
		},
	}
}

// Load reads configuration from file and env. Env var overrides use prefix TXTAG_.
//
// path may name a config file explicitly; otherwise TXTAG_CONFIG is
// consulted, and finally txtag.yaml is searched in the working directory
// and $HOME/.config/txtag. A missing file is not an error when it was not
// named explicitly. A .env file in the working directory is loaded first;
// variables already set in the environment win over it.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	def := Default()
	v.SetDefault("store.backend", def.Store.Backend)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("store.lock_timeout", def.Store.LockTimeout)
	v.SetDefault("account.iban", def.Account.IBAN)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("classifier.categories", def.Classifier.Categories)

	v.SetConfigType("yaml")

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "txtag"))
		}
		v.SetConfigName("txtag")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
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

// Validate checks the values Load cannot check by type alone.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendBolt, BackendSQLite:
	default:
		return fmt.Errorf("config: store.backend must be %q or %q, got %q", BackendBolt, BackendSQLite, c.Store.Backend)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("config: store.path is required")
	}
	if c.Store.LockTimeout <= 0 {
		return fmt.Errorf("config: store.lock_timeout must be positive, got %s", c.Store.LockTimeout)
	}
	return nil
}
