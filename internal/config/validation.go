package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/umbralabs/umbra/dom"
)

// validateConfig validates configuration values for security and correctness.
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateFragmentsConfig(&config.Fragments); err != nil {
		return fmt.Errorf("fragments config: %w", err)
	}
	if err := validateDevConfig(&config.Dev); err != nil {
		return fmt.Errorf("dev config: %w", err)
	}
	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Validate port range (allow 0 for system-assigned ports in testing)
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		// Basic validation - no dangerous characters
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
		for _, r := range config.Host {
			if r < 0x20 || r == 0x7f {
				return fmt.Errorf("host contains control character")
			}
		}
	}

	for _, origin := range config.AllowedOrigins {
		if err := validateOrigin(origin); err != nil {
			return err
		}
	}

	return nil
}

// validateOrigin checks one allowed-origins entry. Entries are compared
// against the Origin header on websocket upgrades, so each must be a
// bare scheme://host[:port], or the wildcard.
func validateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("allowed origin %q: %w", origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("allowed origin %q: scheme must be http or https", origin)
	}
	if u.Host == "" {
		return fmt.Errorf("allowed origin %q: missing host", origin)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("allowed origin %q: must be scheme and host only", origin)
	}
	return nil
}

// validateFragmentsConfig validates the fragments dir and every entry,
// rejecting duplicate names and tags early rather than at registration.
func validateFragmentsConfig(config *FragmentsConfig) error {
	if err := validatePath(config.Dir); err != nil {
		return fmt.Errorf("invalid fragments dir '%s': %w", config.Dir, err)
	}

	seenNames := make(map[string]bool, len(config.Entries))
	seenTags := make(map[string]bool, len(config.Entries))
	for i := range config.Entries {
		entry := &config.Entries[i]
		if err := validateFragmentConfig(entry); err != nil {
			return fmt.Errorf("fragment %q: %w", entry.Name, err)
		}
		if seenNames[entry.Name] {
			return fmt.Errorf("duplicate fragment name %q", entry.Name)
		}
		if seenTags[entry.Tag] {
			return fmt.Errorf("duplicate fragment tag %q", entry.Tag)
		}
		seenNames[entry.Name] = true
		seenTags[entry.Tag] = true
	}
	return nil
}

// validateFragmentConfig validates a single fragment entry.
func validateFragmentConfig(entry *FragmentConfig) error {
	if strings.TrimSpace(entry.Name) == "" {
		return fmt.Errorf("empty name")
	}
	if strings.ContainsAny(entry.Name, " \t\n\r/") {
		return fmt.Errorf("name %q contains invalid characters", entry.Name)
	}
	if err := dom.ValidateTagName(entry.Tag); err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	if entry.Template == "" {
		return fmt.Errorf("missing template path")
	}
	if filepath.IsAbs(entry.Template) {
		return fmt.Errorf("template path must be relative to the fragments dir: %s", entry.Template)
	}
	if err := validatePath(entry.Template); err != nil {
		return fmt.Errorf("invalid template path '%s': %w", entry.Template, err)
	}
	if entry.Selector != "" {
		if _, err := dom.CompileSelector(entry.Selector); err != nil {
			return fmt.Errorf("mount selector: %w", err)
		}
	}
	if entry.Mode != "" {
		if _, err := dom.ParseShadowMode(entry.Mode); err != nil {
			return fmt.Errorf("shadow mode: %w", err)
		}
	}
	return nil
}

func validateDevConfig(config *DevConfig) error {
	if config.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms %d is negative", config.DebounceMS)
	}
	return nil
}

func validateLogConfig(config *LogConfig) error {
	switch config.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", config.Level)
	}
	switch config.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", config.Format)
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	// Clean the path
	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}
	for _, r := range cleanPath {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("path contains control character")
		}
	}

	return nil
}
