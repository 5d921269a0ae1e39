package mcp

import (
	"os"
	"path/filepath"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/vcdq/internal/config"
	"github.com/nvandessel/vcdq/internal/ratelimit"
	"github.com/nvandessel/vcdq/internal/trace"
)

const counterVCD = `$timescale 1ns $end
$scope module uut $end
$var wire 1 ! clock $end
$var wire 1 " reset $end
$var reg 4 # count [3:0] $end
$upscope $end
$scope module peer $end
$var wire 1 $ clock $end
$upscope $end
$enddefinitions $end
#0
$dumpvars
0!
1"
bxxxx #
0$
$end
#5
1!
1$
#10
0!
0"
b1010 #
#15
1!
`

func writeVCD(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "counter.vcd")
	require.NoError(t, os.WriteFile(path, []byte(counterVCD), 0600))
	return path
}

func newTestServer(t *testing.T, mutate func(*config.VCDQConfig)) (*Server, string) {
	t.Helper()
	settings := config.Default()
	if mutate != nil {
		mutate(settings)
	}
	stateDir := t.TempDir()
	server, err := NewServer(&Config{
		Name:     "vcdq-test",
		Version:  "v0.0.0",
		Settings: settings,
		StateDir: stateDir,
	})
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })
	return server, stateDir
}

func TestNewServer(t *testing.T) {
	server, stateDir := newTestServer(t, nil)

	assert.NotNil(t, server.server)
	assert.NotNil(t, server.engine)
	assert.NotNil(t, server.auditLogger)
	assert.Nil(t, server.decisions, "decision log is off at info level")
	assert.Equal(t, trace.Strict, server.engine.Resolution())
	assert.Equal(t, trace.KeepAllMarkers, server.engine.Markers())

	_, err := os.Stat(filepath.Join(stateDir, AuditFile))
	assert.NoError(t, err)
}

func TestNewServer_AppliesEngineSettings(t *testing.T) {
	server, _ := newTestServer(t, func(c *config.VCDQConfig) {
		c.Engine.Resolution = config.ResolutionTolerant
		c.Engine.TrailingMarker = config.TrailingDrop
		c.Logging.Level = "debug"
	})

	assert.Equal(t, trace.Tolerant, server.engine.Resolution())
	assert.Equal(t, trace.DropTrailingMarker, server.engine.Markers())
	assert.NotNil(t, server.decisions)
}

func TestNewServer_InvalidSettings(t *testing.T) {
	settings := config.Default()
	settings.Engine.Resolution = "loose"

	_, err := NewServer(&Config{Name: "vcdq-test", Settings: settings})
	assert.Error(t, err)
}

func TestNewServer_NoStateDir(t *testing.T) {
	server, err := NewServer(&Config{Name: "vcdq-test", Version: "v0.0.0"})
	require.NoError(t, err)
	defer server.Close()

	assert.Nil(t, server.auditLogger)
	assert.Nil(t, server.decisions)
}

func TestNewServer_AuditDisabled(t *testing.T) {
	server, stateDir := newTestServer(t, func(c *config.VCDQConfig) {
		c.Server.Audit = false
	})

	assert.Nil(t, server.auditLogger)
	_, err := os.Stat(filepath.Join(stateDir, AuditFile))
	assert.True(t, os.IsNotExist(err))
}

func TestNewServer_HasRateLimiters(t *testing.T) {
	server, _ := newTestServer(t, nil)

	for _, tool := range []string{ratelimit.ToolListSignals, ratelimit.ToolSearchSignals, ratelimit.ToolSignalValues} {
		assert.Contains(t, server.toolLimiters, tool)
	}
}

func TestNewServer_RateLimitDisabled(t *testing.T) {
	server, _ := newTestServer(t, func(c *config.VCDQConfig) {
		c.Server.RateLimitPerMinute = 0
	})
	assert.Empty(t, server.toolLimiters)
}

func TestClose(t *testing.T) {
	server, err := NewServer(&Config{Name: "vcdq-test", Version: "v0.0.0", StateDir: t.TempDir()})
	require.NoError(t, err)

	assert.NoError(t, server.Close())
	assert.NoError(t, server.Close(), "second Close")
}

func connect(t *testing.T, server *Server) *sdk.ClientSession {
	t.Helper()
	ctx := t.Context()

	clientTransport, serverTransport := sdk.NewInMemoryTransports()
	ss, err := server.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestServer_ListTools(t *testing.T) {
	server, _ := newTestServer(t, nil)
	cs := connect(t, server)

	res, err := cs.ListTools(t.Context(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_signals", "search_signals", "signal_values"}, names)
}

func TestServer_CallListSignals(t *testing.T) {
	server, _ := newTestServer(t, nil)
	cs := connect(t, server)
	path := writeVCD(t)

	res, err := cs.CallTool(t.Context(), &sdk.CallToolParams{
		Name:      "list_signals",
		Arguments: map[string]any{"vcd_path": path},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	structured, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok, "structured content = %T", res.StructuredContent)
	assert.Equal(t, []any{"peer.clock", "uut.clock", "uut.count[3:0]", "uut.reset"}, structured["signals"])
}

func TestServer_CallSignalValuesMarkdown(t *testing.T) {
	server, _ := newTestServer(t, nil)
	cs := connect(t, server)
	path := writeVCD(t)

	res, err := cs.CallTool(t.Context(), &sdk.CallToolParams{
		Name:      "signal_values",
		Arguments: map[string]any{"vcd_path": path, "signals": []string{"uut.clock", "reset"}},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	want := "| signal | 0 | 1 | 2 | 3 |\n" +
		"| --- | --- | --- | --- | --- |\n" +
		"| uut.clock | 0x_0 | 0x_1 | 0x_0 | 0x_1 |\n" +
		"| uut.reset | 0x_1 | 0x_1 | 0x_0 | 0x_0 |"
	assert.Equal(t, want, text.Text)
}

func TestServer_CallErrorIsToolError(t *testing.T) {
	server, _ := newTestServer(t, nil)
	cs := connect(t, server)

	res, err := cs.CallTool(t.Context(), &sdk.CallToolParams{
		Name:      "signal_values",
		Arguments: map[string]any{"vcd_path": writeVCD(t), "signals": []string{}},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "signals must be a non-empty list")
}
