// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/bundlerepo/bundlerepo/pkg/version"
)

// Record is one archive known to a repository. Records are immutable values.
type Record struct {
	Identifier string          `json:"identifier" yaml:"identifier" toml:"identifier"`
	Version    version.Version `json:"version" yaml:"version" toml:"version"`
	Patch      bool            `json:"patch" yaml:"patch" toml:"patch"`
	SearchRoot string          `json:"search_root" yaml:"search_root" toml:"search_root"`
	Path       string          `json:"path" yaml:"path" toml:"path"`
	Size       int64           `json:"size" yaml:"size" toml:"size"`
	ModifiedAt time.Time       `json:"modified_at" yaml:"modified_at" toml:"modified_at"`
}

// Artifact is the archive file name.
func (r Record) Artifact() string { return filepath.Base(r.Path) }

// Key identifies a record by identifier, version and path.
func (r Record) Key() string {
	return r.Identifier + "@" + r.Version.String() + "@" + r.Path
}

// Matches reports whether info still describes the archive the record was
// derived from, judged by size and modification time.
func (r Record) Matches(info fs.FileInfo) bool {
	return info.Size() == r.Size && info.ModTime().UnixNano() == r.ModifiedAt.UnixNano()
}

// compareRecords orders two records by version only, highest first. It
// returns 0 for equal triples regardless of the other fields.
func compareRecords(a, b Record) int {
	return version.Compare(b.Version, a.Version)
}
