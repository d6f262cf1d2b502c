package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ConfigBuilder provides a fluent interface for assembling
// configurations in code, for commands and tests that bypass the
// config file.
//
// Usage:
//
//	cfg, err := NewConfigBuilder().
//	    WithDefaults().
//	    WithServer(4000, "0.0.0.0").
//	    WithFragment(FragmentConfig{Name: "cart", Tag: "x-cart", Template: "cart.html"}).
//	    Build()
type ConfigBuilder struct {
	config     *Config
	validators []ValidatorFunc
}

// ValidatorFunc represents a configuration validation function
type ValidatorFunc func(*Config) error

// NewConfigBuilder creates an empty configuration builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: &Config{}}
}

// WithDefaults applies the same development defaults Load applies,
// giving later With calls something sensible to override.
func (cb *ConfigBuilder) WithDefaults() *ConfigBuilder {
	cb.config.Server = ServerConfig{
		Port:  8080,
		Host:  "localhost",
		Title: "umbra",
	}
	cb.config.Fragments.Dir = "./fragments"
	cb.config.Dev = DevConfig{
		Reload:       true,
		ErrorOverlay: true,
		DebounceMS:   100,
	}
	cb.config.Log = LogConfig{Level: "info", Format: "text"}
	return cb
}

// WithServer sets the listen address.
func (cb *ConfigBuilder) WithServer(port int, host string) *ConfigBuilder {
	cb.config.Server.Port = port
	cb.config.Server.Host = host
	return cb
}

// WithTitle sets the composed host page title.
func (cb *ConfigBuilder) WithTitle(title string) *ConfigBuilder {
	cb.config.Server.Title = title
	return cb
}

// WithAllowedOrigins sets the origins accepted on websocket upgrades.
func (cb *ConfigBuilder) WithAllowedOrigins(origins ...string) *ConfigBuilder {
	cb.config.Server.AllowedOrigins = origins
	return cb
}

// WithFragmentsDir sets the directory fragment templates load from.
func (cb *ConfigBuilder) WithFragmentsDir(dir string) *ConfigBuilder {
	cb.config.Fragments.Dir = dir
	return cb
}

// WithFragment appends a fragment entry.
func (cb *ConfigBuilder) WithFragment(entry FragmentConfig) *ConfigBuilder {
	cb.config.Fragments.Entries = append(cb.config.Fragments.Entries, entry)
	return cb
}

// WithReload toggles live reload.
func (cb *ConfigBuilder) WithReload(enabled bool) *ConfigBuilder {
	cb.config.Dev.Reload = enabled
	return cb
}

// WithErrorOverlay toggles the in-page error overlay.
func (cb *ConfigBuilder) WithErrorOverlay(enabled bool) *ConfigBuilder {
	cb.config.Dev.ErrorOverlay = enabled
	return cb
}

// WithLog sets log level and format.
func (cb *ConfigBuilder) WithLog(level, format string) *ConfigBuilder {
	cb.config.Log = LogConfig{Level: level, Format: format}
	return cb
}

// FromViper merges non-zero settings from viper into the current
// config, without overriding values the builder already set.
func (cb *ConfigBuilder) FromViper() *ConfigBuilder {
	var viperConfig Config
	if err := viper.Unmarshal(&viperConfig); err == nil {
		cb.mergeViperConfig(&viperConfig)
	}
	return cb
}

// AddValidator adds a custom validation function
func (cb *ConfigBuilder) AddValidator(validator ValidatorFunc) *ConfigBuilder {
	cb.validators = append(cb.validators, validator)
	return cb
}

// Build creates the final configuration after applying all settings and validations
func (cb *ConfigBuilder) Build() (*Config, error) {
	for _, validator := range cb.validators {
		if err := validator(cb.config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	if err := validateConfig(cb.config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cb.config, nil
}

// mergeViperConfig merges settings from viper into the current config
func (cb *ConfigBuilder) mergeViperConfig(viperConfig *Config) {
	if cb.config.Server.Port == 0 && viperConfig.Server.Port != 0 {
		cb.config.Server.Port = viperConfig.Server.Port
	}
	if cb.config.Server.Host == "" && viperConfig.Server.Host != "" {
		cb.config.Server.Host = viperConfig.Server.Host
	}
	if cb.config.Fragments.Dir == "" && viperConfig.Fragments.Dir != "" {
		cb.config.Fragments.Dir = viperConfig.Fragments.Dir
	}
	if len(cb.config.Fragments.Entries) == 0 && len(viperConfig.Fragments.Entries) > 0 {
		cb.config.Fragments.Entries = viperConfig.Fragments.Entries
	}
}
