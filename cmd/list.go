package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/umbralabs/umbra/internal/config"
	"github.com/umbralabs/umbra/internal/errors"
	"github.com/umbralabs/umbra/internal/registry"
	"github.com/umbralabs/umbra/internal/server"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List configured fragments",
	Long: `List the fragments the configuration declares, with their tags,
template files, and boundary modes.

Examples:
  umbra list                      # Table of fragments
  umbra list -f json              # Output as JSON
  umbra list -f yaml              # Output as YAML
  umbra list -d                   # Include fragment dependencies`,
	RunE: runList,
}

var (
	listFormat   string
	listWithDeps bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "Output format (table, json, yaml)")
	listCmd.Flags().BoolVarP(&listWithDeps, "with-deps", "d", false, "Include fragment dependencies")
}

// listedFragment is the serializable row for one registry entry.
type listedFragment struct {
	Name         string   `json:"name" yaml:"name"`
	Tag          string   `json:"tag" yaml:"tag"`
	Template     string   `json:"template,omitempty" yaml:"template,omitempty"`
	Mode         string   `json:"mode" yaml:"mode"`
	Kind         string   `json:"kind" yaml:"kind"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	reg := registry.NewFragmentRegistry()
	col := errors.NewCollector()
	loader := server.NewLoader(cfg, reg, col, logger)
	loader.LoadAll(ctx)

	rows := make([]listedFragment, 0, reg.Count())
	for _, name := range reg.Names() {
		f, ok := reg.Get(name)
		if !ok {
			continue
		}
		row := listedFragment{
			Name:     f.Name,
			Tag:      f.Tag,
			Template: f.TemplatePath,
			Mode:     f.Mode.String(),
			Kind:     f.Kind.String(),
		}
		if listWithDeps {
			row.Dependencies = f.Dependencies
		}
		rows = append(rows, row)
	}

	for _, re := range col.Errors() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", re.Error())
	}

	switch listFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(rows)
	case "table":
		return writeFragmentTable(os.Stdout, rows)
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", listFormat)
	}
}

func writeFragmentTable(out *os.File, rows []listedFragment) error {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No fragments configured.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	if listWithDeps {
		fmt.Fprintln(w, "NAME\tTAG\tMODE\tKIND\tTEMPLATE\tDEPENDS ON")
	} else {
		fmt.Fprintln(w, "NAME\tTAG\tMODE\tKIND\tTEMPLATE")
	}
	for _, r := range rows {
		if listWithDeps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Name, r.Tag, r.Mode, r.Kind, r.Template, strings.Join(r.Dependencies, ", "))
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Tag, r.Mode, r.Kind, r.Template)
		}
	}
	return w.Flush()
}
