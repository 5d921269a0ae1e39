// Package trace answers queries against VCD waveform traces: it resolves
// loosely specified signal names, derives sampling instants from the
// trace's time markers, and reconstructs each signal's value at every
// instant from its sparse change list.
//
// Every query re-reads the trace from disk. Nothing is cached between
// calls, so a trace rewritten between queries is always seen fresh.
package trace

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/nvandessel/vcdq/internal/logging"
	"github.com/nvandessel/vcdq/internal/pathutil"
	"github.com/nvandessel/vcdq/internal/vcd"
)

// Source is a loaded trace namespace with per-signal change lists.
// *vcd.Trace implements it.
type Source interface {
	Signals() []string
	Changes(name string) ([]vcd.Change, bool)
	Timescale() string
}

// Loader loads the trace at path.
type Loader func(path string) (Source, error)

func loadVCD(path string) (Source, error) {
	t, err := vcd.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Options configures an Engine. Zero values select the defaults: strict
// resolution, all markers kept, no path restriction and a discarding logger.
type Options struct {
	Resolution  Resolution
	Markers     MarkerPolicy
	AllowedDirs []string
	Logger      *slog.Logger
	Decisions   *logging.DecisionLogger
	Load        Loader
}

// Engine runs signal queries. It holds no per-trace state and may be shared.
type Engine struct {
	opts Options
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	if opts.Resolution == "" {
		opts.Resolution = Strict
	}
	if opts.Markers == "" {
		opts.Markers = KeepAllMarkers
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Load == nil {
		opts.Load = loadVCD
	}
	return &Engine{opts: opts}
}

// Resolution returns the engine's default resolution mode.
func (e *Engine) Resolution() Resolution { return e.opts.Resolution }

// Markers returns the engine's default marker policy.
func (e *Engine) Markers() MarkerPolicy { return e.opts.Markers }

func (e *Engine) checkPath(path string) error {
	if err := pathutil.RequireFile(path); err != nil {
		return err
	}
	return pathutil.ValidatePath(path, e.opts.AllowedDirs)
}

func (e *Engine) load(path string) (Source, error) {
	src, err := e.opts.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return src, nil
}

func sortedSignals(src Source) []string {
	names := append([]string(nil), src.Signals()...)
	sort.Strings(names)
	return names
}

// ListSignals returns every signal identifier in the trace, sorted.
func (e *Engine) ListSignals(path string) ([]string, error) {
	return e.SearchSignals(path, "")
}

// SearchSignals returns the sorted identifiers in which pattern, a regular
// expression, matches anywhere. An empty pattern matches everything.
func (e *Engine) SearchSignals(path, pattern string) ([]string, error) {
	if err := e.checkPath(path); err != nil {
		return nil, err
	}

	var re *regexp.Regexp
	if pattern != "" {
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("invalid search pattern %q: %w", pattern, err)
		}
	}

	src, err := e.load(path)
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0)
	for _, id := range sortedSignals(src) {
		if re == nil || re.MatchString(id) {
			matched = append(matched, id)
		}
	}

	e.opts.Logger.Debug("listed signals", "path", path, "pattern", pattern, "count", len(matched))
	return matched, nil
}

// Query is one tabulation request. Empty Resolution and Markers fall back to
// the engine's defaults.
type Query struct {
	Path       string
	Signals    []string
	Resolution Resolution
	Markers    MarkerPolicy
}

// Tabulate resolves the requested signals, derives the sampling instants and
// reconstructs the rendered value of every resolved signal at every instant.
func (e *Engine) Tabulate(q Query) (*Table, error) {
	if err := e.checkPath(q.Path); err != nil {
		return nil, err
	}
	if len(q.Signals) == 0 {
		return nil, ErrNoSignalsRequested
	}

	mode := q.Resolution
	if mode == "" {
		mode = e.opts.Resolution
	}
	policy := q.Markers
	if policy == "" {
		policy = e.opts.Markers
	}

	src, err := e.load(q.Path)
	if err != nil {
		return nil, err
	}

	resolved, err := Resolve(sortedSignals(src), q.Signals, mode)
	if err != nil {
		return nil, err
	}
	for _, m := range resolved.Matches {
		e.opts.Decisions.Log(map[string]any{
			"event":     "signal_resolution",
			"path":      q.Path,
			"requested": m.Requested,
			"rule":      string(m.Rule),
			"signals":   m.Signals,
		})
	}

	markers, err := ExtractTimeMarkersFile(q.Path)
	if err != nil {
		return nil, err
	}
	instants, err := SamplingInstants(markers, policy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Path, err)
	}

	table := &Table{
		Times:     instants,
		Timescale: src.Timescale(),
		Entries:   make([]Entry, 0, len(resolved.Slots)),
	}
	for _, slot := range resolved.Slots {
		if !slot.Found {
			table.Entries = append(table.Entries, Entry{Name: slot.Name, Kind: EntryNotFound})
			continue
		}
		changes, ok := src.Changes(slot.Name)
		if !ok {
			if mode == Tolerant {
				table.Entries = append(table.Entries, Entry{Name: slot.Name, Kind: EntryNotFound})
				continue
			}
			return nil, &NoDataError{Signal: slot.Name}
		}
		cl := NewChangeLog(changes)
		values := make([]string, len(instants))
		for i, t := range instants {
			values[i] = FormatValue(cl.ValueAt(t))
		}
		table.Entries = append(table.Entries, Entry{Name: slot.Name, Kind: EntryValues, Values: values})
	}

	e.opts.Logger.Debug("tabulated signals",
		"path", q.Path,
		"requested", len(q.Signals),
		"resolved", len(resolved.Signals()),
		"missing", len(resolved.Missing()),
		"steps", len(instants),
		"resolution", string(mode),
		"markers", string(policy),
	)
	return table, nil
}
