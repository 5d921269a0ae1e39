package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nvandessel/vcdq/internal/config"
	"github.com/nvandessel/vcdq/internal/render"
	"github.com/nvandessel/vcdq/internal/trace"
	"github.com/spf13/cobra"
)

func newValuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "values <vcd> <signal>...",
		Short: "Tabulate signal values at every time step",
		Long: `Tabulate the values of the given signals at every time marker.

Signal names are resolved loosely: an exact name, the name with a leading
"/" added or removed, a case-insensitive match, and finally every signal
whose hierarchical name ends in ".<name>" or "/<name>".

Values are shown as X (unknown), 0b_<bits> when any bit is x or z, and
0x_<hex> otherwise.

Examples:
  vcdq values sim.vcd clock reset            # Markdown table
  vcdq values sim.vcd clock --format json    # name -> values mapping
  vcdq values sim.vcd clk ghost --mode tolerant
  vcdq values sim.vcd clock --drop-trailing  # ignore the final marker`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			format, err := outputFormat(cmd, cfg)
			if err != nil {
				return err
			}

			table, err := engine.Tabulate(q)
			if err != nil {
				return err
			}
			return printTable(cmd, table, format)
		},
	}

	addQueryFlags(cmd)
	return cmd
}

// addQueryFlags registers the per-query overrides shared by values and export.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "", "Output format: markdown or json (default from config)")
	cmd.Flags().String("mode", "", "Name resolution: strict or tolerant (default from config)")
	cmd.Flags().Bool("drop-trailing", false, "Treat the last time marker as end of capture")
}

func buildQuery(cmd *cobra.Command, path string, signals []string) (trace.Query, error) {
	q := trace.Query{Path: path, Signals: signals}

	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		r, err := trace.ParseResolution(mode)
		if err != nil {
			return trace.Query{}, err
		}
		q.Resolution = r
	}
	if cmd.Flags().Changed("drop-trailing") {
		drop, _ := cmd.Flags().GetBool("drop-trailing")
		q.Markers = trace.KeepAllMarkers
		if drop {
			q.Markers = trace.DropTrailingMarker
		}
	}
	return q, nil
}

func outputFormat(cmd *cobra.Command, cfg *config.VCDQConfig) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = cfg.Output.Format
	}
	switch format {
	case config.FormatMarkdown, config.FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("invalid format %q (valid: markdown, json)", format)
	}
}

func printTable(cmd *cobra.Command, table *trace.Table, format string) error {
	out := cmd.OutOrStdout()

	values, keys := render.Mapping(table)
	mapping, err := orderedJSON(values, keys)
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(out).Encode(map[string]interface{}{
			"times":     table.Times,
			"timescale": table.Timescale,
			"order":     keys,
			"missing":   table.Missing(),
			"values":    json.RawMessage(mapping),
		})
	}

	if format == config.FormatJSON {
		return writeIndented(out, mapping)
	}
	_, err = fmt.Fprintln(out, render.Markdown(table))
	return err
}

// orderedJSON encodes m as a JSON object with members in keys order.
func orderedJSON(m map[string]any, keys []string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", k, err)
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func writeIndented(w io.Writer, data []byte) error {
	var b bytes.Buffer
	if err := json.Indent(&b, data, "", "  "); err != nil {
		return err
	}
	b.WriteByte('\n')
	_, err := w.Write(b.Bytes())
	return err
}
