// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

// ManifestPath is where bundle archives keep their descriptor.
const ManifestPath = "META-INF/MANIFEST.MF"

// FixedModTime is applied to every fixture so cache tests see stable
// modification times.
var FixedModTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// Bundle describes an archive fixture.
type Bundle struct {
	// Identifier becomes Bundle-SymbolicName. Leave empty to produce an
	// archive without an identifier.
	Identifier string
	// Version becomes Bundle-Version when non-empty.
	Version string
	// Fix adds an IBM-Interim-Fixes header.
	Fix bool
	// TestFix adds an IBM-Test-Fixes header.
	TestFix bool
	// Headers holds any extra manifest headers.
	Headers map[string]string
	// Padding is stored as an extra entry to change the archive size.
	Padding int
}

// Manifest renders the bundle's manifest text, folding long lines the way
// jar tooling does.
func (b Bundle) Manifest() string {
	var sb strings.Builder
	writeHeader(&sb, "Manifest-Version", "1.0")
	if b.Identifier != "" {
		writeHeader(&sb, "Bundle-SymbolicName", b.Identifier)
	}
	if b.Version != "" {
		writeHeader(&sb, "Bundle-Version", b.Version)
	}
	if b.Fix {
		writeHeader(&sb, "IBM-Interim-Fixes", "PH00001")
	}
	if b.TestFix {
		writeHeader(&sb, "IBM-Test-Fixes", "TF00001")
	}
	keys := make([]string, 0, len(b.Headers))
	for k := range b.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeHeader(&sb, k, b.Headers[k])
	}
	sb.WriteString("\r\n")
	return sb.String()
}

func writeHeader(sb *strings.Builder, name, value string) {
	line := name + ": " + value
	const width = 72
	for len(line) > width {
		sb.WriteString(line[:width])
		sb.WriteString("\r\n ")
		line = line[width:]
	}
	sb.WriteString(line)
	sb.WriteString("\r\n")
}

// EncodeBundle returns the zip encoding of b.
func EncodeBundle(b Bundle) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create(ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("create manifest entry: %w", err)
	}
	if _, err := w.Write([]byte(b.Manifest())); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if b.Padding > 0 {
		pw, err := zw.CreateHeader(&zip.FileHeader{Name: "padding.bin", Method: zip.Store})
		if err != nil {
			return nil, fmt.Errorf("create padding entry: %w", err)
		}
		if _, err := pw.Write(bytes.Repeat([]byte{'x'}, b.Padding)); err != nil {
			return nil, fmt.Errorf("write padding: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// BundleBytes is EncodeBundle for tests; failures are fatal.
func BundleBytes(t testing.TB, b Bundle) []byte {
	t.Helper()
	data, err := EncodeBundle(b)
	if err != nil {
		t.Fatalf("failed to encode bundle: %v", err)
	}
	return data
}

// WriteBundle writes b as dir/name and stamps it with FixedModTime. It
// returns the absolute path of the archive.
func WriteBundle(t testing.TB, dir, name string, b Bundle) string {
	t.Helper()
	path := filepath.Join(dir, name)
	MustWriteFile(t, path, BundleBytes(t, b))
	MustTouch(t, path, FixedModTime)
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("failed to resolve %s: %v", path, err)
	}
	return abs
}

// WriteBase writes a non-fix bundle named <identifier>_<version>.jar.
func WriteBase(t testing.TB, dir, identifier, version string) string {
	t.Helper()
	return WriteBundle(t, dir, identifier+"_"+version+".jar", Bundle{Identifier: identifier, Version: version})
}

// WriteFix writes an interim fix bundle named <identifier>_<version>.jar.
func WriteFix(t testing.TB, dir, identifier, version string) string {
	t.Helper()
	return WriteBundle(t, dir, identifier+"_"+version+".jar", Bundle{Identifier: identifier, Version: version, Fix: true})
}
