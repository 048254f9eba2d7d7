// SPDX-License-Identifier: MPL-2.0

package version

import (
	"cmp"
	"regexp"
	"strconv"
	"strings"
)

// Zero is the 0.0.0 version.
var Zero = Version{}

// qualifierRegex matches the characters allowed after the third dot.
var qualifierRegex = regexp.MustCompile(`^[0-9A-Za-z_\-]+$`)

// Version is a parsed bundle version. The zero value is 0.0.0.
type Version struct {
	Major     uint64
	Minor     uint64
	Micro     uint64
	Qualifier string
}

// New returns the version major.minor.micro with no qualifier.
func New(major, minor, micro uint64) Version {
	return Version{Major: major, Minor: minor, Micro: micro}
}

// Parse parses a version of the form major[.minor[.micro[.qualifier]]].
// Missing numeric components default to 0. Surrounding whitespace is ignored.
func Parse(s string) (Version, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, &InvalidVersionError{Value: raw, Reason: "empty"}
	}

	parts := strings.SplitN(s, ".", 4)
	var nums [3]uint64
	for i := 0; i < len(parts) && i < 3; i++ {
		if parts[i] == "" {
			return Version{}, &InvalidVersionError{Value: raw, Reason: "empty component"}
		}
		n, err := strconv.ParseUint(parts[i], 10, 64)
		if err != nil {
			return Version{}, &InvalidVersionError{Value: raw, Reason: "non-numeric component " + strconv.Quote(parts[i])}
		}
		nums[i] = n
	}

	v := Version{Major: nums[0], Minor: nums[1], Micro: nums[2]}
	if len(parts) == 4 {
		if !qualifierRegex.MatchString(parts[3]) {
			return Version{}, &InvalidVersionError{Value: raw, Reason: "invalid qualifier " + strconv.Quote(parts[3])}
		}
		v.Qualifier = parts[3]
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level defaults.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare orders versions by (major, minor, micro) as unsigned integers.
// The qualifier never takes part. Returns -1, 0 or 1.
func Compare(a, b Version) int {
	if c := cmp.Compare(a.Major, b.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Minor, b.Minor); c != 0 {
		return c
	}
	return cmp.Compare(a.Micro, b.Micro)
}

// Compare is the method form of the package-level Compare.
func (v Version) Compare(other Version) int { return Compare(v, other) }

// SameBase reports whether both versions share the same (major, minor, micro).
func (v Version) SameBase(other Version) bool { return Compare(v, other) == 0 }

// Base returns the version with its qualifier removed.
func (v Version) Base() Version {
	return Version{Major: v.Major, Minor: v.Minor, Micro: v.Micro}
}

// Equal reports whether both versions are identical, qualifier included.
func (v Version) Equal(other Version) bool {
	return v.SameBase(other) && v.Qualifier == other.Qualifier
}

// IsZero reports whether v is 0.0.0 without a qualifier.
func (v Version) IsZero() bool { return v == Zero }

// String renders the version with all three numeric components, plus the
// qualifier when there is one.
func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(v.Major, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Minor, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Micro, 10))
	if v.Qualifier != "" {
		b.WriteByte('.')
		b.WriteString(v.Qualifier)
	}
	return b.String()
}

// BaseString renders only the (major, minor, micro) triple.
func (v Version) BaseString() string { return v.Base().String() }

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
