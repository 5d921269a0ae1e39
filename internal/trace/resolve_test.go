package trace

import (
	"errors"
	"reflect"
	"testing"
)

var namespaceFixture = []string{
	"/top/enable",
	"core0.alu.clock",
	"core1.alu.clock",
	"top/bus/ready",
	"uut.Reset",
	"uut.clock",
	"uut.data[7:0]",
}

func TestResolve_Rules(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		wantRule  Rule
		want      []string
	}{
		{"exact", "uut.clock", RuleExact, []string{"uut.clock"}},
		{"exact with range", "uut.data[7:0]", RuleExact, []string{"uut.data[7:0]"}},
		{"strip leading slash", "/top/bus/ready", RuleStripSlash, []string{"top/bus/ready"}},
		{"add leading slash", "top/enable", RuleAddSlash, []string{"/top/enable"}},
		{"case-insensitive", "UUT.RESET", RuleCaseInsensitive, []string{"uut.Reset"}},
		{"suffix dot", "Reset", RuleSuffix, []string{"uut.Reset"}},
		{"suffix slash", "ready", RuleSuffix, []string{"top/bus/ready"}},
		{"suffix expands all instances", "clock", RuleSuffix, []string{"core0.alu.clock", "core1.alu.clock", "uut.clock"}},
		{"suffix multi segment", "alu.clock", RuleSuffix, []string{"core0.alu.clock", "core1.alu.clock"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(namespaceFixture, []string{tt.requested}, Strict)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got := res.Matches[0].Rule; got != tt.wantRule {
				t.Errorf("rule = %q, want %q", got, tt.wantRule)
			}
			if got := res.Signals(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Signals() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_ExactWinsOverSuffix(t *testing.T) {
	available := []string{"clock", "uut.clock"}
	res, err := Resolve(available, []string{"clock"}, Strict)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := res.Signals(); !reflect.DeepEqual(got, []string{"clock"}) {
		t.Errorf("Signals() = %v, want [clock]", got)
	}
}

func TestResolve_SuffixOrderIgnoresRequestOrder(t *testing.T) {
	available := []string{"b.sig", "a.sig"}
	res, err := Resolve(available, []string{"sig"}, Strict)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := res.Signals(); !reflect.DeepEqual(got, []string{"a.sig", "b.sig"}) {
		t.Errorf("Signals() = %v, want sorted [a.sig b.sig]", got)
	}
}

func TestResolve_Dedup(t *testing.T) {
	res, err := Resolve(namespaceFixture, []string{"uut.clock", "clock", "uut.clock", "UUT.CLOCK"}, Strict)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{"uut.clock", "core0.alu.clock", "core1.alu.clock"}
	if got := res.Signals(); !reflect.DeepEqual(got, want) {
		t.Errorf("Signals() = %v, want %v", got, want)
	}
	if len(res.Matches) != 4 {
		t.Errorf("len(Matches) = %d, want one per request", len(res.Matches))
	}
}

func TestResolve_StrictNotFound(t *testing.T) {
	_, err := Resolve(namespaceFixture, []string{"uut.clock", "nosuch"}, Strict)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Resolve() error = %v, want *NotFoundError", err)
	}
	if nf.Name != "nosuch" {
		t.Errorf("NotFoundError.Name = %q, want nosuch", nf.Name)
	}
	if err.Error() != "signal not found: nosuch" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestResolve_TolerantKeepsSlots(t *testing.T) {
	res, err := Resolve(namespaceFixture, []string{"nosuch", "uut.clock", "nosuch", "", "Reset"}, Tolerant)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []Slot{
		{Name: "nosuch"},
		{Name: "uut.clock", Found: true},
		{Name: ""},
		{Name: "uut.Reset", Found: true},
	}
	if !reflect.DeepEqual(res.Slots, want) {
		t.Errorf("Slots = %+v, want %+v", res.Slots, want)
	}
	if got := res.Missing(); !reflect.DeepEqual(got, []string{"nosuch", ""}) {
		t.Errorf("Missing() = %q", got)
	}
}

func TestResolve_CaseCollisionIsAmbiguous(t *testing.T) {
	available := []string{"top.CLK", "top.clk"}

	// An exact hit is unaffected by the collision.
	if _, err := Resolve(available, []string{"top.clk"}, Strict); err != nil {
		t.Fatalf("exact match failed: %v", err)
	}

	for _, mode := range []Resolution{Strict, Tolerant} {
		_, err := Resolve(available, []string{"TOP.Clk"}, mode)
		var amb *AmbiguousError
		if !errors.As(err, &amb) {
			t.Fatalf("%s: error = %v, want *AmbiguousError", mode, err)
		}
		if !reflect.DeepEqual(amb.Candidates, []string{"top.CLK", "top.clk"}) {
			t.Errorf("%s: Candidates = %v", mode, amb.Candidates)
		}
	}
}

func TestResolve_EmptyRequest(t *testing.T) {
	for _, req := range [][]string{nil, {}} {
		if _, err := Resolve(namespaceFixture, req, Tolerant); !errors.Is(err, ErrNoSignalsRequested) {
			t.Errorf("Resolve(%v) error = %v, want ErrNoSignalsRequested", req, err)
		}
	}
}

func TestResolve_FullyQualifiedRoundTrip(t *testing.T) {
	for _, id := range namespaceFixture {
		res, err := Resolve(namespaceFixture, []string{id}, Strict)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", id, err)
		}
		if res.Matches[0].Rule != RuleExact || !reflect.DeepEqual(res.Signals(), []string{id}) {
			t.Errorf("Resolve(%q) = %v via %s, want itself via exact", id, res.Signals(), res.Matches[0].Rule)
		}
	}
}

func TestParseResolution(t *testing.T) {
	for in, want := range map[string]Resolution{"": Strict, "strict": Strict, "tolerant": Tolerant} {
		got, err := ParseResolution(in)
		if err != nil || got != want {
			t.Errorf("ParseResolution(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseResolution("lenient"); err == nil {
		t.Error("expected error for unknown resolution")
	}
}
