package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime options for the CLI.
type Config struct {
	// Home is the profile/config directory, e.g. $HOME/.parley.
	Home string `mapstructure:"home"`
	// RelayAddr is the relay's TCP address, e.g. 127.0.0.1:7878.
	RelayAddr string `mapstructure:"relay_addr"`
	// ReadTimeout bounds each transport read attempt in the sync loop.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`
}

// LoadConfig reads config.yaml from home, if present, on top of defaults.
// Flag values are applied by the caller after loading.
func LoadConfig(home string) (Config, error) {
	v := viper.New()
	v.SetDefault("home", home)
	v.SetDefault("relay_addr", "127.0.0.1:7878")
	v.SetDefault("read_timeout", time.Second)
	v.SetDefault("log_level", "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(home)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
