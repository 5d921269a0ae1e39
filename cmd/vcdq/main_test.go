package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterVCD = `$timescale 1ns $end
$scope module tb $end
$scope module uut $end
$var wire 1 ! clock $end
$var wire 1 " reset $end
$var reg 4 # count [3:0] $end
$upscope $end
$upscope $end
$enddefinitions $end
#0
$dumpvars
0!
1"
bxxxx #
$end
#5
1!
#10
0!
0"
b0011 #
#15
1!
b1111 #
#20
`

// isolateHome points VCDQ_HOME at a temp directory so tests never touch ~/.vcdq.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "vcdq-home")
	t.Setenv("VCDQ_HOME", home)
	for _, k := range []string{"VCDQ_RESOLUTION", "VCDQ_TRAILING_MARKER", "VCDQ_OUTPUT_FORMAT", "VCDQ_ALLOWED_DIRS", "VCDQ_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return home
}

func writeTrace(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "counter.vcd")
	require.NoError(t, os.WriteFile(path, []byte(counterVCD), 0600))
	return path
}

// runCmd executes the root command with args and returns stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "vcdq version "+version+"\n", out)

	out, err = runCmd(t, "version", "--json")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, version, got["version"])
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "list", "search", "values", "export", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestListCmd(t *testing.T) {
	isolateHome(t)
	path := writeTrace(t)

	out, err := runCmd(t, "list", path)
	require.NoError(t, err)
	assert.Equal(t, "tb.uut.clock\ntb.uut.count[3:0]\ntb.uut.reset\n", out)

	out, err = runCmd(t, "list", path, "--json")
	require.NoError(t, err)
	var got struct {
		Signals []string `json:"signals"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Count)
}

func TestListCmd_MissingFile(t *testing.T) {
	isolateHome(t)
	_, err := runCmd(t, "list", filepath.Join(t.TempDir(), "nope.vcd"))
	assert.ErrorContains(t, err, "VCD not found")
}

func TestSearchCmd(t *testing.T) {
	isolateHome(t)
	path := writeTrace(t)

	out, err := runCmd(t, "search", path, "c(lock|ount)")
	require.NoError(t, err)
	assert.Equal(t, "tb.uut.clock\ntb.uut.count[3:0]\n", out)

	_, err = runCmd(t, "search", path, "(")
	assert.ErrorContains(t, err, "invalid search pattern")
}

func TestValuesCmd_Markdown(t *testing.T) {
	isolateHome(t)
	path := writeTrace(t)

	out, err := runCmd(t, "values", path, "clock", "count[3:0]")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "values_markdown", []byte(out))
}

func TestValuesCmd_JSONTolerant(t *testing.T) {
	isolateHome(t)
	path := writeTrace(t)

	out, err := runCmd(t, "values", path, "clock", "ghost", "--format", "json", "--mode", "tolerant")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "values_json", []byte(out))
}

func TestValuesCmd_DropTrailing(t *testing.T) {
	isolateHome(t)
	path := writeTrace(t)

	out, err := runCmd(t, "values", path, "reset", "--drop-trailing")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "| signal | 0 | 1 | 2 | 3 |\n"), out)
	assert.Contains(t, out, "| tb.uut.reset | 0x_1 | 0x_1 | 0x_0 | 0x_0 |")
}

func TestValuesCmd_GlobalJSON(t *testing.T) {
	isolateHome(t)
	path := writeTrace(t)

	out, err := runCmd(t, "values", path, "reset", "--json")
	require.NoError(t, err)

	var got struct {
		Times   []int64             `json:"times"`
		Order   []string            `json:"order"`
		Missing []string            `json:"missing"`
		Values  map[string][]string `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []int64{0, 5, 10, 15, 20}, got.Times)
	assert.Equal(t, []string{"tb.uut.reset"}, got.Order)
	assert.Empty(t, got.Missing)
	assert.Equal(t, []string{"0x_1", "0x_1", "0x_0", "0x_0", "0x_0"}, got.Values["tb.uut.reset"])
}

func TestValuesCmd_Errors(t *testing.T) {
	isolateHome(t)
	path := writeTrace(t)

	_, err := runCmd(t, "values", path, "ghost")
	assert.ErrorContains(t, err, "signal not found: ghost")

	_, err = runCmd(t, "values", path, "clock", "--format", "csv")
	assert.ErrorContains(t, err, `invalid format "csv"`)

	_, err = runCmd(t, "values", path, "clock", "--mode", "fuzzy")
	assert.ErrorContains(t, err, `invalid resolution "fuzzy"`)

	_, err = runCmd(t, "values", path)
	assert.Error(t, err, "at least one signal is required")
}

func TestValuesCmd_UsesConfig(t *testing.T) {
	isolateHome(t)
	path := writeTrace(t)

	_, err := runCmd(t, "config", "set", "engine.resolution", "tolerant")
	require.NoError(t, err)
	_, err = runCmd(t, "config", "set", "output.format", "json")
	require.NoError(t, err)

	out, err := runCmd(t, "values", path, "ghost")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"ghost\": \"not found\"\n}\n", out)
}

func TestValuesCmd_ResolutionEnvOverride(t *testing.T) {
	isolateHome(t)
	path := writeTrace(t)
	t.Setenv("VCDQ_RESOLUTION", "tolerant")

	out, err := runCmd(t, "values", path, "ghost")
	require.NoError(t, err)
	assert.Contains(t, out, "| ghost | not found |")
}

func TestServeCmd_RejectsArgs(t *testing.T) {
	isolateHome(t)

	_, err := runCmd(t, "serve", "trace.vcd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}
