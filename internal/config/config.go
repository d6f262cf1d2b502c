// Package config provides configuration management for umbra projects
// using Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// Configuration lives in .umbra.yml with UMBRA_-prefixed environment
// overrides. It covers the composition server, fragment definitions,
// file watching, and development options like live reload and the
// error overlay.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Fragments FragmentsConfig `yaml:"fragments"`
	Dev       DevConfig       `yaml:"dev"`
	Log       LogConfig       `yaml:"log"`

	// TargetFragments narrows commands to named fragments. CLI
	// arguments, not from the config file.
	TargetFragments []string `yaml:"-"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	Title          string   `yaml:"title"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type FragmentsConfig struct {
	Dir     string           `yaml:"dir"`
	Entries []FragmentConfig `yaml:"entries"`
}

// FragmentConfig declares one fragment backed by a template file under
// the fragments dir. Selector and Mode are optional; an empty selector
// mounts at the boundary root and the mode defaults to open.
type FragmentConfig struct {
	Name     string `yaml:"name"`
	Tag      string `yaml:"tag"`
	Template string `yaml:"template"`
	Selector string `yaml:"selector"`
	Mode     string `yaml:"mode"`
}

type DevConfig struct {
	Reload       bool `yaml:"reload"`
	ErrorOverlay bool `yaml:"error_overlay"`
	DebounceMS   int  `yaml:"debounce_ms"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	loadDefaults(&config)
	applyOverrides(&config)

	// Validate configuration values
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadDefaults fills zero-valued settings with development defaults.
// Values set explicitly, including through viper, are preserved.
func loadDefaults(config *Config) {
	if config.Server.Port == 0 && !viper.IsSet("server.port") {
		config.Server.Port = 8080
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Title == "" {
		config.Server.Title = "umbra"
	}
	if config.Fragments.Dir == "" {
		config.Fragments.Dir = "./fragments"
	}
	if !viper.IsSet("dev.reload") {
		config.Dev.Reload = true
	}
	if !viper.IsSet("dev.error_overlay") {
		config.Dev.ErrorOverlay = true
	}
	if config.Dev.DebounceMS == 0 && !viper.IsSet("dev.debounce_ms") {
		config.Dev.DebounceMS = 100
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// applyOverrides reads settings that viper's struct decoding misses,
// which covers snake_case keys and slices set via Set or bound flags.
func applyOverrides(config *Config) {
	if viper.IsSet("server.allowed_origins") {
		if origins := viper.GetStringSlice("server.allowed_origins"); len(origins) > 0 {
			config.Server.AllowedOrigins = origins
		}
	}
	if viper.IsSet("dev.reload") {
		config.Dev.Reload = viper.GetBool("dev.reload")
	}
	if viper.IsSet("dev.error_overlay") {
		config.Dev.ErrorOverlay = viper.GetBool("dev.error_overlay")
	}
	if viper.IsSet("dev.debounce_ms") {
		config.Dev.DebounceMS = viper.GetInt("dev.debounce_ms")
	}
}
