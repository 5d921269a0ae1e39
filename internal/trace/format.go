package trace

import (
	"math/big"
	"strings"
)

// Rendered value prefixes.
const (
	binaryPrefix = "0b_"
	hexPrefix    = "0x_"
)

// FormatValue renders a raw value token canonically:
//
//   - UnknownValue ("x") renders as "X".
//   - A "b"/"B" or "0b"/"0B" prefix is stripped to get the bit payload.
//   - A payload with any x or z bit renders as "0b_<bits>"; a partially
//     unknown nibble has no hex digit.
//   - A payload of only 0 and 1 renders as "0x_<hex>", lowercase and not
//     padded to the vector width.
//   - Anything else (reals, already-formatted tokens) is returned as is.
func FormatValue(raw string) string {
	if raw == UnknownValue {
		return "X"
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	bits := s
	switch {
	case (s[0] == 'b' || s[0] == 'B') && len(s) > 1:
		bits = s[1:]
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		bits = s[2:]
	}

	if strings.ContainsAny(bits, "xXzZ") {
		return binaryPrefix + bits
	}
	if bits != "" && isBinary(bits) {
		n, ok := new(big.Int).SetString(bits, 2)
		if ok {
			return hexPrefix + n.Text(16)
		}
	}
	return s
}

func isBinary(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return false
		}
	}
	return true
}
