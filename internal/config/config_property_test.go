//go:build property
// +build property

package config

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/viper"
)

// TestConfigurationProperties tests server validation properties
func TestConfigurationProperties(t *testing.T) {
	viper.Reset()

	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(3141)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("well-formed server configs validate", prop.ForAll(
		func(port int, host string) bool {
			cfg := ServerConfig{Port: port, Host: host}
			return validateServerConfig(&cfg) == nil
		},
		gen.IntRange(1, 65535),
		gen.RegexMatch(`^[a-z][a-z0-9.-]{0,30}$`),
	))

	properties.Property("port validation accepts exactly 0-65535", prop.ForAll(
		func(port int) bool {
			cfg := ServerConfig{Port: port, Host: "localhost"}
			err := validateServerConfig(&cfg)
			if port >= 0 && port <= 65535 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(-2000, 70000),
	))

	properties.Property("scheme-and-host origins validate", prop.ForAll(
		func(host string, port int) bool {
			return validateOrigin(fmt.Sprintf("http://%s:%d", host, port)) == nil
		},
		gen.RegexMatch(`^[a-z][a-z0-9]{0,15}$`),
		gen.IntRange(1, 65535),
	))

	properties.Property("validation is deterministic", prop.ForAll(
		func(host string) bool {
			cfg := ServerConfig{Port: 8080, Host: host}
			first := validateServerConfig(&cfg) == nil
			second := validateServerConfig(&cfg) == nil
			return first == second
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestFragmentConfigProperties tests fragment entry validation properties
func TestFragmentConfigProperties(t *testing.T) {
	viper.Reset()

	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(3142)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("well-formed entries validate", prop.ForAll(
		func(name, mode string) bool {
			entry := FragmentConfig{
				Name:     name,
				Tag:      "x-" + name,
				Template: name + ".html",
				Selector: "." + name,
				Mode:     mode,
			}
			return validateFragmentConfig(&entry) == nil
		},
		gen.RegexMatch(`^[a-z][a-z0-9]{0,10}$`),
		gen.OneConstOf("", "open", "closed"),
	))

	properties.Property("duplicate names are rejected", prop.ForAll(
		func(name string) bool {
			cfg := FragmentsConfig{
				Dir: "./fragments",
				Entries: []FragmentConfig{
					{Name: name, Tag: "x-" + name + "-a", Template: "a.html"},
					{Name: name, Tag: "x-" + name + "-b", Template: "b.html"},
				},
			}
			return validateFragmentsConfig(&cfg) != nil
		},
		gen.RegexMatch(`^[a-z][a-z0-9]{0,10}$`),
	))

	properties.Property("defaults always validate", prop.ForAll(
		func(dir string) bool {
			cfg := Config{Fragments: FragmentsConfig{Dir: dir}}
			loadDefaults(&cfg)
			return validateConfig(&cfg) == nil
		},
		gen.RegexMatch(`^[a-z][a-z0-9/]{0,20}$`),
	))

	properties.TestingRun(t)
}
