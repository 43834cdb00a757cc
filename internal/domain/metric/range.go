package metric

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a parsed reference range. A bound is only meaningful when the
// corresponding Has flag is set: "<5.0" has an upper bound only.
type Range struct {
	Low     float64
	High    float64
	HasLow  bool
	HasHigh bool
}

// ParseRange parses the reference-range forms produced by lab reports:
// "3.9-6.1", "3.9 - 6.1", "<11.1", ">0.5". Decimal commas are accepted
// since many source documents use them.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Range{}, fmt.Errorf("empty reference range")
	}

	switch {
	case strings.HasPrefix(s, "<"):
		v, err := parseBound(s[1:])
		if err != nil {
			return Range{}, fmt.Errorf("parse upper bound %q: %w", s, err)
		}
		return Range{High: v, HasHigh: true}, nil
	case strings.HasPrefix(s, ">"):
		v, err := parseBound(s[1:])
		if err != nil {
			return Range{}, fmt.Errorf("parse lower bound %q: %w", s, err)
		}
		return Range{Low: v, HasLow: true}, nil
	}

	// "lo - hi" with an optional en dash. Split on the separator between
	// the two numbers, not on a leading minus sign.
	sep := strings.IndexAny(s[1:], "-–")
	if sep < 0 {
		return Range{}, fmt.Errorf("unrecognized reference range %q", s)
	}
	sep++
	lo, err := parseBound(s[:sep])
	if err != nil {
		return Range{}, fmt.Errorf("parse range %q: %w", s, err)
	}
	hi, err := parseBound(s[sep+utf8Len(s[sep:]):])
	if err != nil {
		return Range{}, fmt.Errorf("parse range %q: %w", s, err)
	}
	if lo > hi {
		return Range{}, fmt.Errorf("reference range %q has low > high", s)
	}
	return Range{Low: lo, High: hi, HasLow: true, HasHigh: true}, nil
}

// utf8Len returns the byte length of the separator rune at the start of s
// ("-" is one byte, "–" is three).
func utf8Len(s string) int {
	for i := range s {
		if i > 0 {
			return i
		}
	}
	return len(s)
}

func parseBound(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
