// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
)

// DefaultArchivePattern matches archive file names inside a search root.
const DefaultArchivePattern = "*.jar"

// Options configure a repository. The zero value is usable.
type Options struct {
	// DefaultLocation replaces an empty search-location string. Defaults to
	// DefaultLocation.
	DefaultLocation string
	// ArchivePattern is a doublestar pattern matched against file names.
	// Defaults to DefaultArchivePattern.
	ArchivePattern string
	// ValidateArchives makes an exact-path request succeed only when the file
	// is a well-formed bundle.
	ValidateArchives bool
	// Overrides lists identifiers with a non-default fix policy. A nil table
	// means DefaultOverrides.
	Overrides Overrides
	// OnOrphan receives orphaned fixes. When nil they are logged at warn level.
	OnOrphan func(OrphanFix)
	Logger   *log.Logger
	Metrics  *Metrics
}

// DefaultLogger returns the logger used when Options.Logger is nil.
func DefaultLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "bundlerepo",
		Level:  log.WarnLevel,
	})
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = DefaultLogger()
	}
	if NormalizeRoot(o.DefaultLocation) == "" {
		o.DefaultLocation = DefaultLocation
	}
	if o.ArchivePattern == "" {
		o.ArchivePattern = DefaultArchivePattern
	} else if !doublestar.ValidatePattern(o.ArchivePattern) {
		o.Logger.Warn("invalid archive pattern, using default", "pattern", o.ArchivePattern, "default", DefaultArchivePattern)
		o.ArchivePattern = DefaultArchivePattern
	}
	if o.Overrides == nil {
		o.Overrides = DefaultOverrides()
	}
	return o
}
