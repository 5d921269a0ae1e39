package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nvandessel/vcdq/internal/config"
	"github.com/nvandessel/vcdq/internal/logging"
	"github.com/nvandessel/vcdq/internal/trace"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vcdq",
		Short: "Query VCD waveform traces",
		Long: `vcdq answers questions about Value Change Dump (VCD) traces.

It lists and searches signal names, and tabulates the values of selected
signals at every time step of the trace. The same queries are offered to
agents as MCP tools by 'vcdq serve'.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newListCmd(),
		newSearchCmd(),
		newValuesCmd(),
		newExportCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

// loadSettings loads the config and applies the global --log-level flag.
func loadSettings(cmd *cobra.Command) (*config.VCDQConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.VCDQConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// newEngine builds a query engine from the loaded settings.
func newEngine(cmd *cobra.Command, cfg *config.VCDQConfig) (*trace.Engine, error) {
	mode, err := trace.ParseResolution(cfg.Engine.Resolution)
	if err != nil {
		return nil, err
	}
	markers, err := trace.ParseMarkerPolicy(cfg.Engine.TrailingMarker)
	if err != nil {
		return nil, err
	}
	return trace.NewEngine(trace.Options{
		Resolution:  mode,
		Markers:     markers,
		AllowedDirs: cfg.Trace.AllowedDirs,
		Logger:      newLogger(cmd, cfg),
	}), nil
}
