package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/umbralabs/umbra/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information including the semantic version, git
commit, build timestamp, Go version, and target platform.

Examples:
  umbra version                   # Human-readable version details
  umbra version --short           # Version and commit only
  umbra version -f json           # Output as JSON`,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show the short version only")
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Current()

	switch versionFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "text":
		if versionShort {
			fmt.Println(version.Short())
			return nil
		}
		fmt.Println(version.Detailed())
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", versionFormat)
	}
}
