// Package vcd reads Value Change Dump (IEEE 1364) traces into signal
// definitions and per-signal change lists.
//
// Only the subset needed for querying is understood: scopes, variables,
// header metadata, time markers and scalar/vector/real value changes.
// Everything else in a $keyword ... $end block is skipped.
package vcd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// maxTokenSize bounds a single whitespace-separated token. Wide vectors are
// written as one token, so this is far above bufio's default.
const maxTokenSize = 16 * 1024 * 1024

// endArtifact is a leading segment some dumpers leave on identifiers when a
// declaration is not cleanly terminated.
const endArtifact = "$end."

// Change is one recorded value change of a signal.
type Change struct {
	Time  int64
	Value string
}

// Var is a declared variable.
type Var struct {
	Name string
	Code string
	Type string
	Size int
}

// Trace is a parsed VCD file.
type Trace struct {
	header  map[string]string
	vars    map[string]Var
	changes map[string][]Change // keyed by identifier code
}

func newTrace() *Trace {
	return &Trace{
		header:  make(map[string]string),
		vars:    make(map[string]Var),
		changes: make(map[string][]Change),
	}
}

// Timescale returns the $timescale declaration, e.g. "1 ns", or "".
func (t *Trace) Timescale() string { return t.header["$timescale"] }

// Version returns the $version declaration, or "".
func (t *Trace) Version() string { return t.header["$version"] }

// Date returns the $date declaration, or "".
func (t *Trace) Date() string { return t.header["$date"] }

// Signals returns every declared signal name, sorted.
func (t *Trace) Signals() []string {
	names := make([]string, 0, len(t.vars))
	for name := range t.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Var returns the declaration of the named signal.
func (t *Trace) Var(name string) (Var, bool) {
	v, ok := t.vars[name]
	return v, ok
}

// Changes returns the time-ordered change list of the named signal. A
// declared signal that never changes yields an empty list and true.
func (t *Trace) Changes(name string) ([]Change, bool) {
	v, ok := t.vars[name]
	if !ok {
		return nil, false
	}
	return t.changes[v.Code], true
}

// ParseFile parses the VCD file at path.
func ParseFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening VCD: %w", err)
	}
	defer f.Close()

	trace, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return trace, nil
}

// Parse reads a VCD trace from r.
func Parse(r io.Reader) (*Trace, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxTokenSize)
	sc.Split(bufio.ScanWords)

	p := &parser{sc: sc, trace: newTrace()}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.trace, nil
}

type parser struct {
	sc     *bufio.Scanner
	trace  *Trace
	scopes []string
	now    int64
}

func (p *parser) next() (string, bool) {
	if !p.sc.Scan() {
		return "", false
	}
	return p.sc.Text(), true
}

func (p *parser) run() error {
	for {
		tok, ok := p.next()
		if !ok {
			break
		}
		if err := p.token(tok); err != nil {
			return err
		}
	}
	if err := p.sc.Err(); err != nil {
		return fmt.Errorf("reading trace: %w", err)
	}
	return nil
}

// block returns the tokens between a keyword and its closing $end.
func (p *parser) block(keyword string) ([]string, error) {
	var toks []string
	for {
		tok, ok := p.next()
		if !ok {
			if err := p.sc.Err(); err != nil {
				return nil, fmt.Errorf("reading trace: %w", err)
			}
			return nil, fmt.Errorf("unterminated %s block", keyword)
		}
		if tok == "$end" {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

func (p *parser) token(tok string) error {
	switch tok {
	case "$scope":
		toks, err := p.block(tok)
		if err != nil {
			return err
		}
		if len(toks) < 2 {
			return fmt.Errorf("malformed $scope declaration: %q", strings.Join(toks, " "))
		}
		p.scopes = append(p.scopes, toks[1])
	case "$upscope":
		if _, err := p.block(tok); err != nil {
			return err
		}
		if len(p.scopes) > 0 {
			p.scopes = p.scopes[:len(p.scopes)-1]
		}
	case "$var":
		toks, err := p.block(tok)
		if err != nil {
			return err
		}
		return p.declare(toks)
	case "$timescale", "$date", "$version":
		toks, err := p.block(tok)
		if err != nil {
			return err
		}
		p.trace.header[tok] = strings.Join(toks, " ")
	case "$dumpvars", "$dumpall", "$dumpon", "$dumpoff", "$end":
		// Structural only; the changes inside are ordinary value changes.
	default:
		if strings.HasPrefix(tok, "$") {
			_, err := p.block(tok)
			return err
		}
		return p.change(tok)
	}
	return nil
}

func (p *parser) declare(toks []string) error {
	if len(toks) < 4 {
		return fmt.Errorf("malformed $var declaration: %q", strings.Join(toks, " "))
	}
	size, err := strconv.Atoi(toks[1])
	if err != nil {
		return fmt.Errorf("malformed $var size %q for %s", toks[1], toks[3])
	}

	ref := toks[3] + strings.Join(toks[4:], "")
	parts := append(append([]string{}, p.scopes...), ref)
	name := stripArtifacts(strings.Join(parts, "."))

	v := Var{Name: name, Code: toks[2], Type: toks[0], Size: size}
	p.trace.vars[name] = v
	if _, ok := p.trace.changes[v.Code]; !ok {
		p.trace.changes[v.Code] = nil
	}
	return nil
}

func (p *parser) change(tok string) error {
	switch tok[0] {
	case '#':
		t, err := strconv.ParseInt(tok[1:], 10, 64)
		if err != nil || t < 0 {
			// Malformed markers are tolerated; keep the current time.
			return nil
		}
		p.now = t
		return nil
	case 'b', 'B', 'r', 'R', 's', 'S':
		code, ok := p.next()
		if !ok {
			return fmt.Errorf("value %q at time %d has no identifier code", tok, p.now)
		}
		return p.record(code, tok[1:])
	case '0', '1', 'x', 'X', 'z', 'Z':
		if len(tok) < 2 {
			return fmt.Errorf("scalar value %q at time %d has no identifier code", tok, p.now)
		}
		return p.record(tok[1:], tok[:1])
	default:
		return fmt.Errorf("unexpected token %q at time %d", tok, p.now)
	}
}

func (p *parser) record(code, value string) error {
	list, ok := p.trace.changes[code]
	if !ok {
		return fmt.Errorf("value change for undeclared identifier code %q at time %d", code, p.now)
	}
	p.trace.changes[code] = append(list, Change{Time: p.now, Value: value})
	return nil
}

func stripArtifacts(name string) string {
	for strings.HasPrefix(name, endArtifact) {
		name = name[len(endArtifact):]
	}
	return name
}
