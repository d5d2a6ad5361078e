// Package config reads host configuration via viper, layered as
// defaults < config file (~/.modhost/config.yaml) < environment
// (MODHOST_*).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/modhost-labs/modhost/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config keys.
const (
	KeyModsDir          = "mods_dir"
	KeyDataDir          = "data_dir"
	KeyLocale           = "locale"
	KeyAssumeCompatible = "assume_compatible"
	KeyCheckUpdates     = "check_updates"
	KeyLogLevel         = "log_level"
)

// Dir returns the path to the config directory (~/.modhost/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file.
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	if err := os.MkdirAll(Dir(), 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", Dir(), err)
	}
	return nil
}

// Load initializes viper with defaults, the config file, and environment
// overrides. A missing config file is not an error; an unreadable one is
// fatal at startup.
func Load() error {
	viper.SetDefault(KeyModsDir, "mods")
	viper.SetDefault(KeyDataDir, filepath.Join(Dir(), "data"))
	viper.SetDefault(KeyLocale, "en")
	viper.SetDefault(KeyAssumeCompatible, false)
	viper.SetDefault(KeyCheckUpdates, true)
	viper.SetDefault(KeyLogLevel, "info")

	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", FilePath(), err)
	}
	return nil
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// GetBool returns a boolean config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
