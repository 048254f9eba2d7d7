// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"strings"
	"testing"
)

func TestParseManifest(t *testing.T) {
	t.Parallel()

	text := "Manifest-Version: 1.0\r\n" +
		"Bundle-SymbolicName: com.example.very.long.identifier.that.needs.to.be.folded.acr\r\n" +
		" oss.lines; singleton:=true\r\n" +
		"Bundle-Version: 1.0.1.fix\r\n" +
		"IBM-Interim-Fixes:\r\n" +
		"\r\n" +
		"Name: ignored/Entry.class\r\n" +
		"Bundle-Version: 9.9.9\r\n"

	m, err := ParseManifest(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseManifest() error: %v", err)
	}

	got, _ := m.Get(HeaderIdentifier)
	want := "com.example.very.long.identifier.that.needs.to.be.folded.across.lines; singleton:=true"
	if got != want {
		t.Errorf("identifier = %q, want %q", got, want)
	}
	if v, _ := m.Get("bundle-version"); v != "1.0.1.fix" {
		t.Errorf("case-insensitive Get(bundle-version) = %q, want main-section value 1.0.1.fix", v)
	}
	if !m.Has(HeaderInterimFixes) {
		t.Error("Has(IBM-Interim-Fixes) = false for an empty-valued header")
	}
	if m.Has("Name") {
		t.Error("per-entry section headers should not be read")
	}
	names := m.Names()
	if len(names) != 4 || names[0] != "Manifest-Version" {
		t.Errorf("Names() = %v", names)
	}
}

func TestParseManifest_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{"leading_continuation", " dangling\n"},
		{"no_colon", "Bundle-SymbolicName com.example\n"},
		{"empty_name", ": value\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseManifest(strings.NewReader(tt.text)); !errors.Is(err, ErrMalformedManifest) {
				t.Errorf("ParseManifest(%q) error = %v, want ErrMalformedManifest", tt.text, err)
			}
		})
	}
}

func TestFromManifest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantID    string
		wantVer   string
		wantPatch bool
		wantErr   error
	}{
		{
			name:    "plain_bundle",
			text:    "Bundle-SymbolicName: com.example.core\nBundle-Version: 2.1.0\n",
			wantID:  "com.example.core",
			wantVer: "2.1.0",
		},
		{
			name:      "interim_fix",
			text:      "Bundle-SymbolicName: x\nBundle-Version: 1.0.1.fix\nInterim-Fixes: PH1234\n",
			wantID:    "x",
			wantVer:   "1.0.1.fix",
			wantPatch: true,
		},
		{
			name:      "vendor_interim_fix",
			text:      "Bundle-SymbolicName: x\nBundle-Version: 1.0.1.fix\nIBM-Interim-Fixes: PH1234\n",
			wantID:    "x",
			wantVer:   "1.0.1.fix",
			wantPatch: true,
		},
		{
			name:      "vendor_test_fix",
			text:      "Bundle-SymbolicName: x\nBundle-Version: 1.0.1\nibm-test-fixes: TF1\n",
			wantID:    "x",
			wantVer:   "1.0.1",
			wantPatch: true,
		},
		{
			name:    "unrelated_fix_like_header",
			text:    "Bundle-SymbolicName: x\nBundle-Version: 1.0.1\nFixes: none\n",
			wantID:  "x",
			wantVer: "1.0.1",
		},
		{
			name:      "test_fix",
			text:      "Bundle-SymbolicName: x\nBundle-Version: 1.0.1\nTest-Fixes: TF1\n",
			wantID:    "x",
			wantVer:   "1.0.1",
			wantPatch: true,
		},
		{
			name:    "missing_version_defaults_to_zero",
			text:    "Bundle-SymbolicName: x;singleton:=true\n",
			wantID:  "x",
			wantVer: "0.0.0",
		},
		{
			name:    "missing_identifier",
			text:    "Bundle-Version: 1.0.0\n",
			wantErr: ErrNoIdentifier,
		},
		{
			name:    "blank_identifier",
			text:    "Bundle-SymbolicName: ; singleton:=true\n",
			wantErr: ErrNoIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := ParseManifest(strings.NewReader(tt.text))
			if err != nil {
				t.Fatalf("ParseManifest() error: %v", err)
			}
			d, err := FromManifest(m)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FromManifest() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromManifest() error: %v", err)
			}
			if d.Identifier != tt.wantID {
				t.Errorf("Identifier = %q, want %q", d.Identifier, tt.wantID)
			}
			if d.Version.String() != tt.wantVer {
				t.Errorf("Version = %s, want %s", d.Version, tt.wantVer)
			}
			if d.Patch != tt.wantPatch {
				t.Errorf("Patch = %v, want %v", d.Patch, tt.wantPatch)
			}
		})
	}
}

func TestFromManifest_BadVersion(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest(strings.NewReader("Bundle-SymbolicName: x\nBundle-Version: one\n"))
	if err != nil {
		t.Fatalf("ParseManifest() error: %v", err)
	}
	if _, err := FromManifest(m); err == nil {
		t.Error("FromManifest() with a non-numeric version should fail")
	}
}
