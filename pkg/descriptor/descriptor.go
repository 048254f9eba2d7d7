// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/bundlerepo/bundlerepo/pkg/version"
)

// ManifestEntry is the archive entry holding the descriptor.
const ManifestEntry = "META-INF/MANIFEST.MF"

var (
	// ErrNoDescriptor is returned when an archive has no manifest entry.
	ErrNoDescriptor = errors.New("archive has no descriptor")
	// ErrNoIdentifier is returned when the manifest lacks an identifier header
	// or its value is empty.
	ErrNoIdentifier = errors.New("descriptor has no identifier")
)

// Descriptor is what a bundle declares about itself.
type Descriptor struct {
	Identifier string
	Version    version.Version
	Patch      bool
}

// FromManifest extracts a Descriptor from parsed manifest headers.
func FromManifest(m *Manifest) (Descriptor, error) {
	raw, _ := m.Get(HeaderIdentifier)
	id := Identifier(raw)
	if id == "" {
		return Descriptor{}, ErrNoIdentifier
	}

	v, err := VersionOf(m)
	if err != nil {
		return Descriptor{}, fmt.Errorf("bundle %s: %w", id, err)
	}

	return Descriptor{Identifier: id, Version: v, Patch: IsPatch(m)}, nil
}

// VersionOf returns the manifest's declared version. A missing or blank
// version header means 0.0.0; a malformed one is an error.
func VersionOf(m *Manifest) (version.Version, error) {
	text, ok := m.Get(HeaderVersion)
	if !ok || strings.TrimSpace(text) == "" {
		return version.Zero, nil
	}
	return version.Parse(text)
}

// IsPatch reports whether any interim fix or test fix marker is present.
func IsPatch(m *Manifest) bool {
	for _, h := range patchHeaders {
		if m.Has(h) {
			return true
		}
	}
	return false
}

// Identifier strips attributes and directives from a symbolic name header,
// e.g. "com.example.core; singleton:=true" becomes "com.example.core".
func Identifier(header string) string {
	name, _, _ := strings.Cut(header, ";")
	return strings.TrimSpace(name)
}

// Read opens the archive at path and returns its descriptor.
func Read(path string) (Descriptor, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return Descriptor{}, err
	}
	d, err := FromManifest(m)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ReadManifest opens the archive at path and parses its manifest.
func ReadManifest(path string) (*Manifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if !strings.EqualFold(f.Name, ManifestEntry) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in %s: %w", f.Name, path, err)
		}
		m, err := ParseManifest(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNoDescriptor)
}
