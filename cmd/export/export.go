// Package export provides the export command for writing job history to a file.
package export

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/client"
	"github.com/leefowlercu/batch-monitor/internal/cmdutil"
	"github.com/leefowlercu/batch-monitor/internal/config"
	"github.com/leefowlercu/batch-monitor/internal/export"
	"github.com/leefowlercu/batch-monitor/internal/store"
)

var (
	exportFormat         string
	exportOutput         string
	exportLimit          int
	exportName           string
	exportIncludeRunning bool
	exportLocal          bool
	exportServer         string
)

// ExportCmd writes the recent job history in a structured format.
var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent job runs as JSON, YAML, TOML or XML",
	Long: "Export recent job runs as JSON, YAML, TOML or XML.\n\n" +
		"By default the export is fetched from the running service. With --local the " +
		"configured store is read directly, which works while the service is stopped " +
		"(SQLite and Redis backends only). Running jobs are left out unless " +
		"--include-running is set. Output goes to stdout unless --output names a file, " +
		"which is replaced atomically.",
	Example: `  # Print the last 1000 finished runs as JSON
  batchmon export

  # Write YAML to a file
  batchmon export --format yaml --output jobs.yaml

  # Read the SQLite database directly, including running jobs
  batchmon export --local --include-running`,
	Args:    cobra.NoArgs,
	PreRunE: validateExport,
	RunE:    runExport,
}

func init() {
	ExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: json, yaml, toml, xml (default export.format)")
	ExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
	ExportCmd.Flags().IntVarP(&exportLimit, "limit", "l", 0, "Most recent runs to export (default export.limit, -1 for all)")
	ExportCmd.Flags().StringVarP(&exportName, "name", "n", "", "Only runs of this job name")
	ExportCmd.Flags().BoolVar(&exportIncludeRunning, "include-running", false, "Include runs that have not ended")
	ExportCmd.Flags().BoolVar(&exportLocal, "local", false, "Read the configured store directly instead of the service")
	ExportCmd.Flags().StringVar(&exportServer, "server", "", "Base URL of the batchmon service (overrides client.url)")
}

func validateExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "" {
		if _, ok := export.NewExporter(nil).Formatter(exportFormat); !ok {
			return fmt.Errorf("unknown format %q; available: %v", exportFormat, export.NewExporter(nil).ListFormats())
		}
	}
	if exportLocal && config.Current().Store.Backend == store.BackendMemory {
		return fmt.Errorf("--local cannot read the memory store of another process")
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Current()

	opts := export.ExportOptions{
		Format:         cfg.Export.Format,
		IncludeRunning: exportIncludeRunning,
		Limit:          cfg.Export.Limit,
		Name:           exportName,
	}
	if exportFormat != "" {
		opts.Format = exportFormat
	}
	if exportLimit != 0 {
		opts.Limit = exportLimit
	}

	var (
		data []byte
		err  error
	)
	if exportLocal {
		data, err = exportLocalStore(cmd, cfg, opts)
	} else {
		data, err = exportRemote(cmd, opts)
	}
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	path, err := cmdutil.ResolvePath(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to resolve output path; %w", err)
	}
	if err := export.WriteFile(path, data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d bytes to %s\n", len(data), path)
	return nil
}

func exportLocalStore(cmd *cobra.Command, cfg *config.Config, opts export.ExportOptions) ([]byte, error) {
	registry, st, err := cmdutil.OpenRegistry(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	data, stats, err := export.NewExporter(registry).Export(cmd.Context(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to export jobs; %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d job(s) as %s in %s\n", stats.JobCount, stats.Format, stats.Duration)
	return data, nil
}

func exportRemote(cmd *cobra.Command, opts export.ExportOptions) ([]byte, error) {
	c, err := cmdutil.NewClient(exportServer)
	if err != nil {
		return nil, err
	}

	data, err := c.Export(cmd.Context(), client.ExportRequest{
		Format:         opts.Format,
		IncludeRunning: opts.IncludeRunning,
		Limit:          opts.Limit,
		Name:           opts.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export jobs; %w", err)
	}
	return data, nil
}
