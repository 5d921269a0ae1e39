package trace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSignalsRequested is returned when a tabulation names no signals.
	ErrNoSignalsRequested = errors.New("signals must be a non-empty list")

	// ErrNoTimepoints is returned when a trace has no time markers after
	// its definitions section.
	ErrNoTimepoints = errors.New("no timepoints found in VCD")

	// ErrNoSamplingInstants is returned when the marker policy leaves no
	// instants to sample, e.g. dropping the only marker.
	ErrNoSamplingInstants = errors.New("no steps found (no sampled timepoints)")
)

// NotFoundError reports a requested name that matched no signal under any
// resolution rule.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("signal not found: %s", e.Name)
}

// AmbiguousError reports a requested name that matches several signals
// which differ only by case.
type AmbiguousError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("signal %q is ambiguous: matches %s case-insensitively",
		e.Name, strings.Join(e.Candidates, ", "))
}

// NoDataError reports a resolved signal whose change list is unavailable.
type NoDataError struct {
	Signal string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data for signal: %s", e.Signal)
}
