// SPDX-License-Identifier: MPL-2.0

package version

import (
	"strings"
)

// MatchAll is the range [0.0.0, ∞). It is what the reserved literals "" and
// "0" parse to.
var MatchAll = Range{Min: Zero, MinInclusive: true}

// Range is an interval over versions. A nil Max means the range has no upper
// bound. Values are immutable once built; use ParseRange or NewRange.
type Range struct {
	Min          Version
	MinInclusive bool
	Max          *Version
	MaxInclusive bool
}

// AtLeast returns the range [v, ∞).
func AtLeast(v Version) Range {
	return Range{Min: v, MinInclusive: true}
}

// NewRange builds a bounded range and checks that it is not empty.
func NewRange(lower Version, lowerInclusive bool, upper Version, upperInclusive bool) (Range, error) {
	r := Range{Min: lower, MinInclusive: lowerInclusive, Max: &upper, MaxInclusive: upperInclusive}
	if reason := r.emptyReason(); reason != "" {
		return Range{}, &InvalidRangeError{Value: r.String(), Reason: reason}
	}
	return r, nil
}

// ParseRange parses interval notation: "[a,b]", "[a,b)", "(a,b]", "(a,b)",
// the unbounded forms "[a,)" and "(a,)", or a bare version "a" meaning [a, ∞). The reserved literals "" and "0" return
// MatchAll. Any other malformed text is an *InvalidRangeError.
func ParseRange(s string) (Range, error) {
	text := strings.TrimSpace(s)
	if text == "" || text == "0" {
		return MatchAll, nil
	}

	first := text[0]
	if first != '[' && first != '(' {
		if strings.ContainsAny(text, "[](),") {
			return Range{}, &InvalidRangeError{Value: s, Reason: "missing opening bracket"}
		}
		v, err := Parse(text)
		if err != nil {
			return Range{}, &InvalidRangeError{Value: s, Err: err}
		}
		return AtLeast(v), nil
	}

	last := text[len(text)-1]
	if last != ']' && last != ')' {
		return Range{}, &InvalidRangeError{Value: s, Reason: "missing closing bracket"}
	}

	body := text[1 : len(text)-1]
	lowText, highText, ok := strings.Cut(body, ",")
	if !ok {
		return Range{}, &InvalidRangeError{Value: s, Reason: "expected two comma-separated bounds"}
	}
	if strings.Contains(highText, ",") {
		return Range{}, &InvalidRangeError{Value: s, Reason: "too many bounds"}
	}

	low, err := Parse(lowText)
	if err != nil {
		return Range{}, &InvalidRangeError{Value: s, Reason: "lower bound", Err: err}
	}
	if strings.TrimSpace(highText) == "" {
		if last != ')' {
			return Range{}, &InvalidRangeError{Value: s, Reason: "unbounded upper end must be exclusive"}
		}
		return Range{Min: low, MinInclusive: first == '['}, nil
	}
	high, err := Parse(highText)
	if err != nil {
		return Range{}, &InvalidRangeError{Value: s, Reason: "upper bound", Err: err}
	}

	r := Range{Min: low, MinInclusive: first == '[', Max: &high, MaxInclusive: last == ']'}
	if reason := r.emptyReason(); reason != "" {
		return Range{}, &InvalidRangeError{Value: s, Reason: reason}
	}
	return r, nil
}

// MustParseRange is like ParseRange but panics on error.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Range) emptyReason() string {
	if r.Max == nil {
		return ""
	}
	switch c := Compare(r.Min, *r.Max); {
	case c > 0:
		return "lower bound is greater than upper bound"
	case c == 0 && (!r.MinInclusive || !r.MaxInclusive):
		return "interval is empty"
	default:
		return ""
	}
}

// Includes reports whether v lies inside the range. Qualifiers are ignored.
func (r Range) Includes(v Version) bool {
	c := Compare(v, r.Min)
	if c < 0 || (c == 0 && !r.MinInclusive) {
		return false
	}
	if r.Max == nil {
		return true
	}
	c = Compare(v, *r.Max)
	return c < 0 || (c == 0 && r.MaxInclusive)
}

// IsMatchAll reports whether the range accepts every version.
func (r Range) IsMatchAll() bool {
	return r.Max == nil && r.MinInclusive && r.Min.Base().IsZero()
}

// String renders the range in interval notation. Unbounded ranges with an
// inclusive lower bound render as the bare lower bound, exclusive ones as
// "(a,)".
func (r Range) String() string {
	if r.Max == nil && r.MinInclusive {
		return r.Min.String()
	}
	var b strings.Builder
	if r.MinInclusive {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	b.WriteString(r.Min.String())
	b.WriteByte(',')
	if r.Max != nil {
		b.WriteString(r.Max.String())
	}
	if r.Max != nil && r.MaxInclusive {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return b.String()
}
