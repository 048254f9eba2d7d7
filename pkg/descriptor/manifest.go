// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Header names read from a manifest.
const (
	HeaderIdentifier   = "Bundle-SymbolicName"
	HeaderVersion      = "Bundle-Version"
	HeaderInterimFixes = "IBM-Interim-Fixes"
	HeaderTestFixes    = "IBM-Test-Fixes"
)

// patchHeaders mark an archive as an interim fix. The unprefixed spellings
// are accepted alongside the vendor-prefixed ones.
var patchHeaders = []string{
	HeaderInterimFixes,
	HeaderTestFixes,
	"Interim-Fixes",
	"Test-Fixes",
}

// maxManifestSize bounds how much of a manifest entry is read.
const maxManifestSize = 1 << 20

// ErrMalformedManifest is returned when a manifest line is neither a header,
// a continuation nor a blank line.
var ErrMalformedManifest = errors.New("malformed manifest")

// Manifest holds the main-section headers of a manifest. Header names are
// matched case-insensitively.
type Manifest struct {
	headers map[string]string
	order   []string
}

// ParseManifest reads the main section of a manifest. Reading stops at the
// first blank line; per-entry sections that follow are ignored.
func ParseManifest(r io.Reader) (*Manifest, error) {
	m := &Manifest{headers: make(map[string]string)}
	scanner := bufio.NewScanner(io.LimitReader(r, maxManifestSize))
	scanner.Buffer(make([]byte, 0, 4096), maxManifestSize)

	var name string
	var value strings.Builder
	flush := func() {
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, seen := m.headers[key]; !seen {
			m.order = append(m.order, name)
		}
		m.headers[key] = strings.TrimSpace(value.String())
		name = ""
		value.Reset()
	}

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			break
		}
		if line[0] == ' ' {
			if name == "" {
				return nil, fmt.Errorf("%w: line %d: continuation without header", ErrMalformedManifest, lineNum)
			}
			value.WriteString(line[1:])
			continue
		}
		flush()
		key, rest, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: line %d: expected \"Name: value\"", ErrMalformedManifest, lineNum)
		}
		name = strings.TrimSpace(key)
		value.WriteString(strings.TrimPrefix(rest, " "))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	flush()
	return m, nil
}

// Get returns the value of a header and whether it is present.
func (m *Manifest) Get(name string) (string, bool) {
	v, ok := m.headers[strings.ToLower(name)]
	return v, ok
}

// Has reports whether a header is present, even with an empty value.
func (m *Manifest) Has(name string) bool {
	_, ok := m.headers[strings.ToLower(name)]
	return ok
}

// Names returns header names in the order they first appeared.
func (m *Manifest) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
