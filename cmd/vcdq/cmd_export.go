package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nvandessel/vcdq/internal/render"
	"github.com/nvandessel/vcdq/internal/store"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <vcd> <signal>... --db <file>",
		Short: "Save tabulated signal values to a SQLite database",
		Long: `Tabulate signals like 'vcdq values' and store the result in SQLite.

Each run adds one export. Use --show to list the exports in a database, or
--show --id N to print one of them again.

Examples:
  vcdq export sim.vcd clock reset --db runs.db
  vcdq export --db runs.db --show
  vcdq export --db runs.db --show --id 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			if dbPath == "" {
				return errors.New("--db is required")
			}

			if show, _ := cmd.Flags().GetBool("show"); show {
				if len(args) > 0 {
					return errors.New("--show takes no trace arguments")
				}
				id, _ := cmd.Flags().GetInt64("id")
				return showExports(cmd, dbPath, id)
			}

			if len(args) < 2 {
				return errors.New("export needs a trace path and at least one signal")
			}

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			engine, err := newEngine(cmd, cfg)
			if err != nil {
				return err
			}
			q, err := buildQuery(cmd, args[0], args[1:])
			if err != nil {
				return err
			}

			table, err := engine.Tabulate(q)
			if err != nil {
				return err
			}

			id, err := store.Export(cmd.Context(), dbPath, args[0], table)
			if err != nil {
				return fmt.Errorf("failed to export: %w", err)
			}

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"status":  "exported",
					"id":      id,
					"db":      dbPath,
					"signals": len(table.Signals()),
					"missing": table.Missing(),
					"steps":   table.Steps(),
				})
			}
			fmt.Fprintf(out, "Exported %d signal(s) x %d step(s) to %s (export #%d)\n",
				len(table.Signals()), table.Steps(), dbPath, id)
			if missing := table.Missing(); len(missing) > 0 {
				fmt.Fprintf(out, "Not found: %v\n", missing)
			}
			return nil
		},
	}

	cmd.Flags().String("db", "", "SQLite database file to write or read")
	cmd.Flags().Bool("show", false, "List stored exports instead of exporting")
	cmd.Flags().Int64("id", 0, "With --show, print this export as a table")
	cmd.Flags().String("mode", "", "Name resolution: strict or tolerant (default from config)")
	cmd.Flags().Bool("drop-trailing", false, "Treat the last time marker as end of capture")

	return cmd
}

func showExports(cmd *cobra.Command, dbPath string, id int64) error {
	ctx := cmd.Context()
	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	jsonOut, _ := cmd.Flags().GetBool("json")

	if id != 0 {
		rec, err := s.LoadExport(ctx, id)
		if err != nil {
			return err
		}
		if jsonOut {
			values, keys := render.Mapping(rec.Table)
			mapping, err := orderedJSON(values, keys)
			if err != nil {
				return err
			}
			return json.NewEncoder(out).Encode(map[string]interface{}{
				"export": rec.Summary,
				"times":  rec.Table.Times,
				"values": json.RawMessage(mapping),
			})
		}
		fmt.Fprintf(out, "Export #%d from %s\n\n", rec.ID, rec.Source)
		_, err = fmt.Fprintln(out, render.Markdown(rec.Table))
		return err
	}

	exports, err := s.ListExports(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(out).Encode(map[string]interface{}{
			"exports": exports,
			"count":   len(exports),
		})
	}
	if len(exports) == 0 {
		fmt.Fprintln(out, "No exports.")
		return nil
	}

	fmt.Fprintf(out, "Exports in %s:\n", dbPath)
	for _, e := range exports {
		fmt.Fprintf(out, "  #%-4d %s  %d signal(s)  %d missing  %d step(s)  %s\n",
			e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Signals, e.Missing, e.Steps, e.Source)
	}
	fmt.Fprintf(out, "Total: %d export(s)\n", len(exports))
	return nil
}
