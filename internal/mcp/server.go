// Package mcp provides an MCP (Model Context Protocol) server exposing vcdq's
// waveform queries as tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/vcdq/internal/config"
	"github.com/nvandessel/vcdq/internal/logging"
	"github.com/nvandessel/vcdq/internal/ratelimit"
	"github.com/nvandessel/vcdq/internal/trace"
)

// Server wraps the MCP SDK server and the query engine behind its tools.
type Server struct {
	server       *sdk.Server
	engine       *trace.Engine
	settings     *config.VCDQConfig
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	decisions    *logging.DecisionLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "vcdq")
	Version string // Server version

	// Settings are the loaded vcdq settings. Nil means config.Default().
	Settings *config.VCDQConfig

	// StateDir receives audit.jsonl and decisions.jsonl. Empty disables both.
	StateDir string

	// Logger receives operational logs. Nil discards them.
	Logger *slog.Logger
}

// NewServer creates a new MCP server with the vcdq tools registered.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mode, err := trace.ParseResolution(settings.Engine.Resolution)
	if err != nil {
		return nil, err
	}
	markers, err := trace.ParseMarkerPolicy(settings.Engine.TrailingMarker)
	if err != nil {
		return nil, err
	}

	s := &Server{
		settings:     settings,
		toolLimiters: ratelimit.NewToolLimiters(settings.Server.RateLimitPerMinute, settings.Server.RateLimitBurst),
		logger:       logger,
	}

	if cfg.StateDir != "" {
		if settings.Server.Audit {
			s.auditLogger, err = NewAuditLogger(cfg.StateDir)
			if err != nil {
				logger.Warn("audit log disabled", "error", err)
			}
		}
		s.decisions = logging.NewDecisionLogger(cfg.StateDir, settings.Logging.Level)
	}

	s.engine = trace.NewEngine(trace.Options{
		Resolution:  mode,
		Markers:     markers,
		AllowedDirs: settings.Trace.AllowedDirs,
		Logger:      logger,
		Decisions:   s.decisions,
	})

	s.server = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("client initialized")
		},
	})

	if err := s.registerTools(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			s.logger.Info("shutting down on signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("serving MCP over stdio",
		"resolution", string(s.engine.Resolution()),
		"markers", string(s.engine.Markers()),
	)
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.Close()

	return err
}

// Close releases the audit and decision logs. It is safe to call more than once.
func (s *Server) Close() error {
	s.decisions.Close()
	return s.auditLogger.Close()
}
