package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ironsheep/ihc-metrics-mcp/internal/batch"
	"github.com/ironsheep/ihc-metrics-mcp/internal/report"
)

func analyzeCmd() *cobra.Command {
	var (
		format     string
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "analyze MANIFEST...",
		Short: "Compute IHC metrics for one or more cell manifests",
		Long: `Analyze grades the cells listed in each manifest against its slide image and
prints the quantitative report.

Formats:
  table   one summary row per slide (default)
  text    "Key = value" report per slide
  json    full report per slide
  tissue  raw/derived tissue analysis per slide`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "table", "text", "json", "tissue":
			default:
				return fmt.Errorf("invalid format: %s", format)
			}

			opts := batch.Options{
				Calibration: settings.Calibration,
				Workers:     settings.Workers,
				Logger:      logger,
			}
			if !noProgress && len(args) > 1 {
				opts.Progress = os.Stderr
			}

			results, err := batch.Run(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			if err := writeResults(cmd.OutOrStdout(), format, results); err != nil {
				return err
			}

			if n := batch.Failed(results); n > 0 {
				return fmt.Errorf("%d of %d manifests failed", n, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, text, json, tissue)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().Int("workers", 0, "number of slides analyzed concurrently (default: number of CPUs)")
	_ = v.BindPFlag("workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func writeResults(w io.Writer, format string, results []batch.Result) error {
	switch format {
	case "table":
		rows := make([]report.Row, len(results))
		for i, r := range results {
			rows[i] = report.Row{Name: displayName(r), Err: r.Err}
			if r.Analysis != nil {
				rows[i].Report = r.Analysis.Report
			}
		}
		return report.RenderTable(w, "IHC Metrics", rows)

	case "text":
		for _, r := range results {
			if _, err := fmt.Fprintf(w, "# %s\n", displayName(r)); err != nil {
				return err
			}
			if r.Err != nil {
				if _, err := fmt.Fprintf(w, "# error: %v\n\n", r.Err); err != nil {
					return err
				}
				continue
			}
			if err := report.WriteText(w, r.Analysis.Report); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		return nil

	default:
		type entry struct {
			Manifest string `json:"manifest"`
			Image    string `json:"image,omitempty"`
			Error    string `json:"error,omitempty"`
			Report   any    `json:"report,omitempty"`
		}
		out := make([]entry, len(results))
		for i, r := range results {
			out[i] = entry{Manifest: r.Manifest, Image: r.Image}
			switch {
			case r.Err != nil:
				out[i].Error = r.Err.Error()
			case format == "tissue":
				out[i].Report = report.FromReport(r.Analysis.Report, r.Image)
			default:
				out[i].Report = r.Analysis.Report
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

func displayName(r batch.Result) string {
	if r.Image != "" {
		return filepath.Base(r.Image)
	}
	return filepath.Base(r.Manifest)
}
