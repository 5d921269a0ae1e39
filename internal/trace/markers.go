package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	definitionsTerminator = "$enddefinitions"
	markerSigil           = "#"

	maxLineSize = 16 * 1024 * 1024
)

// MarkerPolicy decides which extracted time markers become sampling instants.
type MarkerPolicy string

const (
	// KeepAllMarkers samples at every marker.
	KeepAllMarkers MarkerPolicy = "keep"

	// DropTrailingMarker treats the final marker as end of capture and does
	// not sample at it.
	DropTrailingMarker MarkerPolicy = "drop-trailing"
)

// ParseMarkerPolicy parses "keep" or "drop-trailing". An empty string is
// KeepAllMarkers.
func ParseMarkerPolicy(s string) (MarkerPolicy, error) {
	switch MarkerPolicy(s) {
	case "", KeepAllMarkers:
		return KeepAllMarkers, nil
	case DropTrailingMarker:
		return DropTrailingMarker, nil
	default:
		return "", fmt.Errorf("invalid trailing marker policy %q (valid: keep, drop-trailing)", s)
	}
}

// ExtractTimeMarkers returns the "#<time>" markers that follow the
// $enddefinitions line, in file order. Marker lines that do not hold a
// non-negative integer are skipped.
func ExtractTimeMarkers(r io.Reader) ([]int64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var times []int64
	inBody := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !inBody {
			inBody = strings.HasPrefix(line, definitionsTerminator)
			continue
		}
		if !strings.HasPrefix(line, markerSigil) {
			continue
		}
		t, err := strconv.ParseInt(strings.TrimSpace(line[len(markerSigil):]), 10, 64)
		if err != nil || t < 0 {
			continue
		}
		times = append(times, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning time markers: %w", err)
	}
	return times, nil
}

// ExtractTimeMarkersFile runs ExtractTimeMarkers over the file at path.
func ExtractTimeMarkersFile(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening VCD: %w", err)
	}
	defer f.Close()

	times, err := ExtractTimeMarkers(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return times, nil
}

// SamplingInstants applies policy to the extracted markers.
func SamplingInstants(markers []int64, policy MarkerPolicy) ([]int64, error) {
	if len(markers) == 0 {
		return nil, ErrNoTimepoints
	}
	instants := markers
	if policy == DropTrailingMarker {
		instants = markers[:len(markers)-1]
	}
	if len(instants) == 0 {
		return nil, ErrNoSamplingInstants
	}
	return instants, nil
}
