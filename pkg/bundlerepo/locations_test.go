// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"path/filepath"
	"slices"
	"testing"
)

func TestNormalizeRoot(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"lib":          "lib/",
		"lib/":         "lib/",
		"./lib":        "lib/",
		" lib/extra  ": "lib/extra/",
		"lib//x/../y":  "lib/y/",
		"":             "",
		"   ":          "",
		"/opt/bundles": "/opt/bundles/",
	}
	for in, want := range tests {
		if got := NormalizeRoot(in); got != want {
			t.Errorf("NormalizeRoot(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLocations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		locations string
		fallback  string
		want      []string
	}{
		{"single", "lib/", "", []string{"lib/"}},
		{"comma_list_trimmed", " a/ ,b/", "", []string{"a/", "b/"}},
		{"duplicates_dropped", "a,a/,./a", "", []string{"a/"}},
		{"blank_entries_dropped", "a,,  ,b", "", []string{"a/", "b/"}},
		{"empty_uses_fallback", "", "dev/", []string{"dev/"}},
		{"empty_without_fallback_uses_default", " , ", "", []string{DefaultLocation}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseLocations(tt.locations, tt.fallback); !slices.Equal(got, tt.want) {
				t.Errorf("ParseLocations(%q) = %v, want %v", tt.locations, got, tt.want)
			}
		})
	}
}

func TestExactPath(t *testing.T) {
	t.Parallel()

	if _, ok := exactPath("lib/"); ok {
		t.Error("relative location treated as exact path")
	}
	if _, ok := exactPath("/a/x.jar,/b/y.jar"); ok {
		t.Error("comma list treated as exact path")
	}
	if p, ok := exactPath("  /a/x.jar "); !ok || p != "/a/x.jar" {
		t.Errorf("exactPath() = %q, %v", p, ok)
	}
}

func TestRootDirs(t *testing.T) {
	t.Parallel()

	install := filepath.Join(string(filepath.Separator), "opt", "product")
	abs := filepath.Join(string(filepath.Separator), "srv", "bundles")

	got := RootDirs(install, " lib , "+filepath.ToSlash(abs)+", lib/", "")
	want := []string{filepath.Join(install, "lib"), abs}
	if !slices.Equal(got, want) {
		t.Errorf("RootDirs() = %v, want %v", got, want)
	}

	if got := RootDirs(install, "", "dev/"); !slices.Equal(got, []string{filepath.Join(install, "dev")}) {
		t.Errorf("RootDirs(empty) = %v, want fallback root", got)
	}
}
