package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/vcdq/internal/config"
	"github.com/nvandessel/vcdq/internal/ratelimit"
	"github.com/nvandessel/vcdq/internal/render"
	"github.com/nvandessel/vcdq/internal/trace"
)

// registerTools registers all vcdq MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolListSignals,
		Description: "List all signals in a VCD file.",
	}, s.handleListSignals)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSearchSignals,
		Description: "Search signals in a VCD file by regular expression (matches anywhere in the name).",
	}, s.handleSearchSignals)

	sdk.AddTool(s.server, &sdk.Tool{
		Name: ratelimit.ToolSignalValues,
		Description: "Given selected signals, return their values at every time step, " +
			"as a Markdown table (signals as rows, steps as columns) or a JSON mapping.",
	}, s.handleSignalValues)

	return nil
}

func (s *Server) handleListSignals(ctx context.Context, req *sdk.CallToolRequest, args ListSignalsInput) (_ *sdk.CallToolResult, _ SignalListOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolListSignals, start, retErr, sanitizeToolParams(map[string]any{
			"vcd_path": args.VCDPath,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolListSignals); err != nil {
		return nil, SignalListOutput{}, err
	}

	signals, err := s.engine.ListSignals(args.VCDPath)
	if err != nil {
		return nil, SignalListOutput{}, err
	}
	return nil, SignalListOutput{Signals: signals, Count: len(signals)}, nil
}

func (s *Server) handleSearchSignals(ctx context.Context, req *sdk.CallToolRequest, args SearchSignalsInput) (_ *sdk.CallToolResult, _ SignalListOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolSearchSignals, start, retErr, sanitizeToolParams(map[string]any{
			"vcd_path": args.VCDPath, "pattern": args.Pattern,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSearchSignals); err != nil {
		return nil, SignalListOutput{}, err
	}

	signals, err := s.engine.SearchSignals(args.VCDPath, args.Pattern)
	if err != nil {
		return nil, SignalListOutput{}, err
	}
	return nil, SignalListOutput{Signals: signals, Count: len(signals)}, nil
}

func (s *Server) handleSignalValues(ctx context.Context, req *sdk.CallToolRequest, args SignalValuesInput) (_ *sdk.CallToolResult, _ SignalValuesOutput, retErr error) {
	start := time.Now()
	defer func() {
		params := map[string]any{
			"vcd_path":     args.VCDPath,
			"signal_count": len(args.Signals),
		}
		if args.Format != "" {
			params["format"] = args.Format
		}
		if args.Mode != "" {
			params["mode"] = args.Mode
		}
		if args.DropTrailing != nil {
			params["drop_trailing"] = *args.DropTrailing
		}
		s.auditTool(ratelimit.ToolSignalValues, start, retErr, sanitizeToolParams(params))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSignalValues); err != nil {
		return nil, SignalValuesOutput{}, err
	}

	format := args.Format
	if format == "" {
		format = s.settings.Output.Format
	}
	if format != config.FormatMarkdown && format != config.FormatJSON {
		return nil, SignalValuesOutput{}, fmt.Errorf("invalid format %q (valid: markdown, json)", args.Format)
	}

	q := trace.Query{Path: args.VCDPath, Signals: args.Signals}
	if args.Mode != "" {
		mode, err := trace.ParseResolution(args.Mode)
		if err != nil {
			return nil, SignalValuesOutput{}, err
		}
		q.Resolution = mode
	}
	if args.DropTrailing != nil {
		q.Markers = trace.KeepAllMarkers
		if *args.DropTrailing {
			q.Markers = trace.DropTrailingMarker
		}
	}

	table, err := s.engine.Tabulate(q)
	if err != nil {
		return nil, SignalValuesOutput{}, err
	}

	out := SignalValuesOutput{
		Format:    format,
		Times:     table.Times,
		Timescale: table.Timescale,
		Missing:   table.Missing(),
	}

	if format == config.FormatJSON {
		out.Values, out.Order = render.Mapping(table)
		return nil, out, nil
	}

	out.Table = render.Markdown(table)
	out.Order = make([]string, 0, len(table.Entries))
	for _, e := range table.Entries {
		out.Order = append(out.Order, e.Name)
	}
	result := &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: out.Table}},
	}
	return result, out, nil
}
