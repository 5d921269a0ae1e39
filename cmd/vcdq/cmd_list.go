package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <vcd>",
		Short: "List all signals in a VCD file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			engine, err := newEngine(cmd, cfg)
			if err != nil {
				return err
			}

			signals, err := engine.ListSignals(args[0])
			if err != nil {
				return err
			}
			return printSignals(cmd, signals)
		},
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <vcd> <pattern>",
		Short: "Search signals by regular expression",
		Long: `Search signals whose name matches a regular expression anywhere.

Examples:
  vcdq search sim.vcd clock        # every signal containing "clock"
  vcdq search sim.vcd '^tb\.uut\.'  # everything under tb.uut`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			engine, err := newEngine(cmd, cfg)
			if err != nil {
				return err
			}

			signals, err := engine.SearchSignals(args[0], args[1])
			if err != nil {
				return err
			}
			return printSignals(cmd, signals)
		},
	}
}

func printSignals(cmd *cobra.Command, signals []string) error {
	out := cmd.OutOrStdout()
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(out).Encode(map[string]interface{}{
			"signals": signals,
			"count":   len(signals),
		})
	}
	return writeLines(out, signals)
}

func writeLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
