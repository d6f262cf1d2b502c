// Package cmd provides the command-line interface for umbra.
//
// Configuration sources, highest priority first:
//
//	1. Command-line flags (--port, --host, ...)
//	2. UMBRA_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (UMBRA_SERVER_PORT, ...)
//	4. Configuration file (.umbra.yml in the working directory)
//
// Environment variables follow the UMBRA_<SECTION>_<OPTION> pattern,
// for example UMBRA_SERVER_PORT=9090 or UMBRA_DEV_RELOAD=false.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "umbra",
	Short: "Compose shadow-DOM fragments into preview pages with live reload",
	Long: `umbra hosts micro-frontend fragments in a headless shadow DOM and
composes them into preview pages for development.

Each fragment is an HTML template mounted behind an isolation boundary
under its own custom-element tag. The dev server watches templates,
recomposes on change, and pushes live reload updates over a websocket.

Quick Start:
  umbra init                      Scaffold .umbra.yml and example fragments
  umbra serve                     Start the composition server
  umbra list                      List configured fragments
  umbra render greeting           Print a fragment's composed preview page`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .umbra.yml, can also use UMBRA_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig locates the configuration file and binds UMBRA_ environment
// variables. A missing config file is not an error; defaults apply.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("UMBRA_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".umbra")
	}

	viper.SetEnvPrefix("UMBRA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so each env-overridable
	// setting is bound by name. AutomaticEnv alone covers Get, not Unmarshal.
	for _, key := range []string{
		"server.port", "server.host", "server.title", "server.allowed_origins",
		"fragments.dir",
		"dev.reload", "dev.error_overlay", "dev.debounce_ms",
		"log.level", "log.format",
	} {
		viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
