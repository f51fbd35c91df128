// Command ihc-mcp computes quantitative IHC metrics for DAB-stained slides.
//
// Run without arguments it serves the metrics engine as MCP tools over stdio.
// The analyze subcommand scores manifests in batch from the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/ihc-metrics-mcp/internal/config"
	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	cfgFile  string
	v        = config.New()
	settings *config.Settings
	logger   = slog.Default()

	rootCmd = &cobra.Command{
		Use:   "ihc-mcp",
		Short: "Quantitative IHC metrics (H-Score, IRS, densities) as an MCP server and CLI",
		Long: `ihc-mcp grades segmented cells of DAB-stained immunohistochemistry slides by
color and computes the standard quantitative scores: positive ratio, H-Score,
SI, PP, IRS, positive cell density and mean optical density.

Without a subcommand it runs as an MCP server on stdin/stdout.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		RunE:              runServe,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/ihc-mcp/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().Float64("pixels-per-mm", ihc.DefaultPixelsPerMM, "pixels per millimeter at scan magnification")

	// Bind flags to viper
	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("calibration.pixels_per_mm", rootCmd.PersistentFlags().Lookup("pixels-per-mm"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(calibrationCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go cancelOnSignal(sigChan, cancel)

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cancelOnSignal cancels the root context on the first signal. It logs through
// slog.Default because initConfig may still be replacing the logger.
func cancelOnSignal(sig <-chan os.Signal, cancel context.CancelFunc) {
	<-sig
	slog.Default().Info("Received interrupt signal, shutting down")
	cancel()
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := config.ReadFile(v, cfgFile); err != nil {
		return err
	}

	s, err := config.Load(v)
	if err != nil {
		return err
	}
	settings = s

	l, err := config.NewLogger(s.Logging, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger = l
	slog.SetDefault(l)

	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}
	return nil
}
