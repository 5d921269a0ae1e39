package main

import (
	"fmt"

	"github.com/nvandessel/vcdq/internal/config"
	"github.com/nvandessel/vcdq/internal/mcp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Run vcdq as an MCP (Model Context Protocol) server on stdin/stdout.

Tools offered:
  list_signals    List all signals in a VCD file
  search_signals  Search signals by regular expression
  signal_values   Tabulate signal values at every time step

Logs go to stderr. Tool calls are audited to audit.jsonl in the vcdq
state directory (~/.vcdq, or $VCDQ_HOME) unless server.audit is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			stateDir, err := config.Dir()
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "vcdq",
				Version:  version,
				Settings: cfg,
				StateDir: stateDir,
				Logger:   newLogger(cmd, cfg),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			return server.Run(cmd.Context())
		},
	}
}
