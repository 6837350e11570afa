package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tareqmamari/elastic-otel-mcp/internal/tools"
)

func newToolsCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog",
		Long:  "Print every diagnostic tool with its description and input schema. No backend connection is made.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeCatalog(cmd.OutOrStdout(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")

	return cmd
}

func writeCatalog(w io.Writer, format string) error {
	catalog := tools.Catalog(tools.GetAllTools(nil, nil, zap.NewNop()))

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(catalog); err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		return enc.Close()
	case "json":
		text, err := tools.FormatJSON(catalog)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, text)
		return err
	default:
		return fmt.Errorf("unsupported output format %q (want yaml or json)", format)
	}
}
