package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/umbralabs/umbra/internal/config"
	"github.com/umbralabs/umbra/internal/errors"
	"github.com/umbralabs/umbra/internal/registry"
	"github.com/umbralabs/umbra/internal/server"
)

var renderOutput string

var renderCmd = &cobra.Command{
	Use:     "render [fragment]",
	Aliases: []string{"r"},
	Short:   "Compose fragments into a static page",
	Long: `Compose fragments into a host page and print the HTML, without
starting a server. With a fragment name, renders that fragment's
preview page; without one, renders the full composition.

Examples:
  umbra render                    # Compose every fragment
  umbra render greeting           # Compose the greeting preview
  umbra render -o page.html       # Write the page to a file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write the page to a file instead of stdout")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	// Static output carries no websocket to reconnect to.
	cfg.Dev.Reload = false

	logger := newLogger(cfg)
	ctx := context.Background()

	reg := registry.NewFragmentRegistry()
	col := errors.NewCollector()
	loader := server.NewLoader(cfg, reg, col, logger)
	loader.LoadAll(ctx)
	if reg.Count() == 0 {
		for _, re := range col.Errors() {
			fmt.Fprintf(os.Stderr, "error: %s\n", re.Error())
		}
		return fmt.Errorf("no fragments loaded; check the fragments section of .umbra.yml")
	}

	composer := server.NewComposer(cfg, reg, logger)

	var page string
	if len(args) == 1 {
		page, err = composer.ComposeOne(ctx, args[0], col)
	} else {
		page, err = composer.ComposeAll(ctx, col)
	}
	if err != nil {
		return fmt.Errorf("compose failed: %w", err)
	}

	for _, re := range col.Errors() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", re.Error())
	}

	if renderOutput != "" {
		if err := os.WriteFile(renderOutput, []byte(page), 0644); err != nil {
			return fmt.Errorf("write %s: %w", renderOutput, err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", renderOutput, len(page))
		return nil
	}
	fmt.Println(page)
	return nil
}
