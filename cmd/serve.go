package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/umbralabs/umbra/internal/config"
	"github.com/umbralabs/umbra/internal/logging"
	"github.com/umbralabs/umbra/internal/server"
	"github.com/umbralabs/umbra/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the composition server with live reload",
	Long: `Start the development composition server. Fragment templates are
loaded into the registry, composed into a host page, and re-broadcast
to connected browsers whenever a template changes on disk.

Examples:
  umbra serve                     # Serve on the configured host and port
  umbra serve -p 9090             # Override the port
  umbra serve --no-reload        # Disable the live reload websocket`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().String("fragments-dir", "", "Directory holding fragment templates")
	serveCmd.Flags().Bool("no-reload", false, "Disable live reload")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("fragments.dir", serveCmd.Flags().Lookup("fragments-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if noReload, _ := cmd.Flags().GetBool("no-reload"); noReload {
		cfg.Dev.Reload = false
	}

	logger := newLogger(cfg)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopConfigWatch, err := watchConfigFile(ctx, logger)
	if err != nil {
		logger.Warn(ctx, err, "config file watch unavailable")
	} else if stopConfigWatch != nil {
		defer stopConfigWatch()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info(ctx, "shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error(ctx, shutdownErr, "shutdown failed")
		}
		cancel()
	}()

	fmt.Printf("umbra composing at http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// watchConfigFile watches the loaded config file and logs when it
// changes. Config is read once at startup, so a change needs a restart;
// the log line tells the developer instead of silently ignoring edits.
func watchConfigFile(ctx context.Context, logger logging.Logger) (func(), error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return nil, nil
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := watcher.NewFileWatcher(500 * time.Millisecond)
	if err != nil {
		return nil, err
	}
	fw.SetLogger(logger.WithComponent("config-watcher"))
	if err := fw.SetRoot(filepath.Dir(path)); err != nil {
		fw.Stop()
		return nil, err
	}
	fw.AddFilter(watcher.ConfigFilter)
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		for _, ev := range events {
			if filepath.Clean(ev.Path) == filepath.Clean(path) {
				logger.Info(ctx, "configuration changed; restart to apply", "path", path)
				return nil
			}
		}
		return nil
	})
	// Editors replace files on save, which drops a single-file watch.
	// Watching the directory keeps the subscription across renames.
	if err := fw.AddPath(filepath.Dir(path)); err != nil {
		fw.Stop()
		return nil, err
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return nil, err
	}
	return func() { fw.Stop() }, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
}
