package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/umbralabs/umbra/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:     "init [dir]",
	Aliases: []string{"i"},
	Short:   "Scaffold a new umbra project",
	Long: `Write a starter .umbra.yml and example fragment templates. With no
argument, scaffolds into the current directory; files that already
exist are left alone unless --force is set.

Examples:
  umbra init                      # Scaffold into the current directory
  umbra init demo                 # Scaffold into ./demo
  umbra init --force              # Overwrite existing starter files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing starter files")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	created, err := config.Scaffold(dir, initForce)
	if err != nil {
		return fmt.Errorf("scaffold failed: %w", err)
	}

	if len(created) == 0 {
		fmt.Println("Nothing to do; starter files already exist (use --force to overwrite).")
		return nil
	}
	for _, rel := range created {
		fmt.Printf("created %s\n", filepath.Join(dir, rel))
	}
	fmt.Println("\nNext steps:")
	fmt.Println("  umbra serve                 # Start the composition server")
	fmt.Println("  umbra list                  # Inspect the configured fragments")
	return nil
}
