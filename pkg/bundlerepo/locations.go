// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"path"
	"path/filepath"
	"strings"
)

// DefaultLocation is the search root used when a request names none.
const DefaultLocation = "lib/"

// NormalizeRoot trims whitespace, converts separators to forward slashes,
// cleans the path and terminates it with a slash so "lib", "lib/" and
// "./lib" name the same root.
func NormalizeRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "" {
		return ""
	}
	cleaned := path.Clean(filepath.ToSlash(root))
	if cleaned == "/" {
		return cleaned
	}
	return cleaned + "/"
}

// ParseLocations splits a comma-separated list of search roots, trims and
// normalizes each one and drops duplicates and blanks. An empty list yields
// fallback.
func ParseLocations(locations, fallback string) []string {
	var roots []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(locations, ",") {
		root := NormalizeRoot(part)
		if root == "" {
			continue
		}
		if _, dup := seen[root]; dup {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	if len(roots) == 0 {
		if fb := NormalizeRoot(fallback); fb != "" {
			return []string{fb}
		}
		return []string{DefaultLocation}
	}
	return roots
}

// RootDir maps a search root to a directory on disk. Absolute roots are
// used as they are; relative ones are resolved against installDir.
func RootDir(installDir, root string) string {
	native := filepath.FromSlash(root)
	if filepath.IsAbs(native) {
		return filepath.Clean(native)
	}
	return filepath.Join(installDir, native)
}

// RootDirs returns the directories a request for locations would scan.
func RootDirs(installDir, locations, fallback string) []string {
	roots := ParseLocations(locations, fallback)
	dirs := make([]string, 0, len(roots))
	for _, root := range roots {
		dirs = append(dirs, RootDir(installDir, root))
	}
	return dirs
}

// exactPath returns the trimmed location when it is a single absolute path.
func exactPath(locations string) (string, bool) {
	p := strings.TrimSpace(locations)
	if p == "" || strings.Contains(p, ",") || !filepath.IsAbs(p) {
		return "", false
	}
	return filepath.Clean(p), true
}
