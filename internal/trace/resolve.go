package trace

import (
	"fmt"
	"sort"
	"strings"
)

// Resolution selects how unresolvable signal names are handled.
type Resolution string

const (
	// Strict fails the query on the first name that matches nothing.
	Strict Resolution = "strict"

	// Tolerant records unmatched names and keeps going.
	Tolerant Resolution = "tolerant"
)

// ParseResolution parses "strict" or "tolerant". An empty string is Strict.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(s) {
	case "", Strict:
		return Strict, nil
	case Tolerant:
		return Tolerant, nil
	default:
		return "", fmt.Errorf("invalid resolution %q (valid: strict, tolerant)", s)
	}
}

// Rule names the resolution rule that matched a requested name.
type Rule string

const (
	RuleExact           Rule = "exact"
	RuleStripSlash      Rule = "strip-slash"
	RuleAddSlash        Rule = "add-slash"
	RuleCaseInsensitive Rule = "case-insensitive"
	RuleSuffix          Rule = "suffix"
	RuleUnresolved      Rule = "unresolved"
)

// Match is the outcome for one requested name.
type Match struct {
	Requested string
	Rule      Rule
	Signals   []string // empty when Rule is RuleUnresolved
}

// Slot is one position in the resolved output: either a signal identifier
// or a requested name that matched nothing.
type Slot struct {
	Name  string
	Found bool
}

// Resolved is the result of resolving a request list.
type Resolved struct {
	// Matches holds one entry per requested name, in request order,
	// duplicates included.
	Matches []Match

	// Slots is the flattened, duplicate-free output order.
	Slots []Slot
}

// Signals returns the resolved identifiers in output order.
func (r *Resolved) Signals() []string {
	var out []string
	for _, s := range r.Slots {
		if s.Found {
			out = append(out, s.Name)
		}
	}
	return out
}

// Missing returns the requested names that matched nothing, in output order.
func (r *Resolved) Missing() []string {
	var out []string
	for _, s := range r.Slots {
		if !s.Found {
			out = append(out, s.Name)
		}
	}
	return out
}

// namespace indexes the available identifiers for lookup.
type namespace struct {
	sorted []string
	exact  map[string]struct{}
	folded map[string][]string
}

func newNamespace(available []string) *namespace {
	ns := &namespace{
		sorted: append([]string(nil), available...),
		exact:  make(map[string]struct{}, len(available)),
		folded: make(map[string][]string, len(available)),
	}
	sort.Strings(ns.sorted)
	for _, id := range ns.sorted {
		if _, dup := ns.exact[id]; dup {
			continue
		}
		ns.exact[id] = struct{}{}
		key := strings.ToLower(id)
		ns.folded[key] = append(ns.folded[key], id)
	}
	return ns
}

func (ns *namespace) has(id string) bool {
	_, ok := ns.exact[id]
	return ok
}

// Resolve maps requested names onto available identifiers. Per name the
// first matching rule wins: exact, leading "/" stripped, leading "/" added,
// case-insensitive, then hierarchical suffix (".name" or "/name"), which
// yields every match in sorted order.
//
// Under Strict the first unmatched name returns a *NotFoundError. Under
// Tolerant it becomes a Slot with Found false. A case-insensitive match
// against identifiers that differ only in case returns an *AmbiguousError
// under either mode.
func Resolve(available, requested []string, mode Resolution) (*Resolved, error) {
	if len(requested) == 0 {
		return nil, ErrNoSignalsRequested
	}

	ns := newNamespace(available)
	res := &Resolved{Matches: make([]Match, 0, len(requested))}
	seen := make(map[Slot]struct{})
	add := func(s Slot) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		res.Slots = append(res.Slots, s)
	}

	for _, name := range requested {
		m, err := ns.resolve(name)
		if err != nil {
			return nil, err
		}
		res.Matches = append(res.Matches, m)

		if m.Rule == RuleUnresolved {
			if mode != Tolerant {
				return nil, &NotFoundError{Name: name}
			}
			add(Slot{Name: name})
			continue
		}
		for _, id := range m.Signals {
			add(Slot{Name: id, Found: true})
		}
	}
	return res, nil
}

func (ns *namespace) resolve(name string) (Match, error) {
	m := Match{Requested: name, Rule: RuleUnresolved}
	if name == "" {
		return m, nil
	}

	hasSlash := strings.HasPrefix(name, "/")
	switch {
	case ns.has(name):
		m.Rule, m.Signals = RuleExact, []string{name}
		return m, nil
	case hasSlash && ns.has(name[1:]):
		m.Rule, m.Signals = RuleStripSlash, []string{name[1:]}
		return m, nil
	case !hasSlash && ns.has("/"+name):
		m.Rule, m.Signals = RuleAddSlash, []string{"/" + name}
		return m, nil
	}

	if ids := ns.folded[strings.ToLower(name)]; len(ids) > 0 {
		if len(ids) > 1 {
			return m, &AmbiguousError{Name: name, Candidates: append([]string(nil), ids...)}
		}
		m.Rule, m.Signals = RuleCaseInsensitive, []string{ids[0]}
		return m, nil
	}

	dotted, slashed := "."+name, "/"+name
	var suffix []string
	for _, id := range ns.sorted {
		if strings.HasSuffix(id, dotted) || strings.HasSuffix(id, slashed) {
			suffix = append(suffix, id)
		}
	}
	if len(suffix) > 0 {
		m.Rule, m.Signals = RuleSuffix, suffix
	}
	return m, nil
}
