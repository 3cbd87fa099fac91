// Package config loads configuration from flags, environment and an
// optional config file, and sets up logging.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration values. Precedence: flags, then
// environment (prefix REVENUE), then config file, then defaults.
type Config struct {
	User       string        `mapstructure:"user"        validate:"required"`
	Token      string        `mapstructure:"token"       validate:"required"`
	APIURL     string        `mapstructure:"api_url"     validate:"required,url"`
	APIVersion string        `mapstructure:"api_version" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout"     validate:"gt=0"`

	Log    Log    `mapstructure:"log"`
	Upload Upload `mapstructure:"upload"`
}

// Log configures the dual-output logger.
type Log struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file"`
}

// Upload configures the poll budget of the submit-and-wait loop.
type Upload struct {
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxWait      time.Duration `mapstructure:"max_wait"      validate:"gt=0"`
	MaxAttempts  int           `mapstructure:"max_attempts"  validate:"min=1"`
}

// flagBindings maps CLI flag names onto config keys.
var flagBindings = map[string]string{
	"user":          "user",
	"token":         "token",
	"api-url":       "api_url",
	"api-version":   "api_version",
	"timeout":       "timeout",
	"log-level":     "log.level",
	"log-file":      "log.file",
	"poll-interval": "upload.poll_interval",
	"max-wait":      "upload.max_wait",
	"max-attempts":  "upload.max_attempts",
}

// Load reads configuration, overlaying values from flags when they are
// present in the given flag set. cfgFile may be empty, in which case
// the default search paths are used and a missing file is not an error.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix("REVENUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.opera-revenue")
		v.SetConfigType("yaml")
	}

	// Every key needs a registered default so AutomaticEnv values
	// survive Unmarshal.
	v.SetDefault("user", "")
	v.SetDefault("token", "")
	v.SetDefault("api_url", "https://revenueapi.osp.opera.software")
	v.SetDefault("api_version", "v1")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("upload.poll_interval", 5*time.Second)
	v.SetDefault("upload.max_wait", 15*time.Minute)
	v.SetDefault("upload.max_attempts", 180)

	if flags != nil {
		for name, key := range flagBindings {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		// No config file is fine; env, flags and defaults cover it.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
