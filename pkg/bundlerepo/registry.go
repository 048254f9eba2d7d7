// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/bundlerepo/bundlerepo/pkg/platform"
)

// Reserved repository names.
const (
	// CoreName is the primary repository of an installation.
	CoreName = "core"
	// UserName is the user extension repository.
	UserName = "usr"
)

// Strategy selects how repositories describe archives.
type Strategy string

const (
	// StrategyDescriptor reads identifiers from descriptors and caches them.
	StrategyDescriptor Strategy = "descriptor"
	// StrategyName takes identifiers from file names and never caches.
	StrategyName Strategy = "name"
)

// ErrInvalidStrategy is returned by Strategy.Validate for unknown values.
var ErrInvalidStrategy = errors.New("invalid repository strategy")

// Validate returns ErrInvalidStrategy for anything but the known strategies.
// The empty string is accepted and means StrategyDescriptor.
func (s Strategy) Validate() error {
	switch s {
	case "", StrategyDescriptor, StrategyName:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, string(s))
	}
}

// String returns the strategy name.
func (s Strategy) String() string { return string(s) }

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RegistryOptions configure every repository a Registry builds.
type RegistryOptions struct {
	Options
	// WorkDir holds the cache files. Empty disables caching.
	WorkDir string
	// DisableCache turns the persistent cache off even with a WorkDir.
	DisableCache bool
	Strategy     Strategy
}

type registryEntry struct {
	installDir string
	repo       Repository
}

// Registry maps repository names to install directories and constructs
// repositories on first use. All methods are safe for concurrent use.
type Registry struct {
	opts RegistryOptions

	mu      sync.Mutex
	entries map[string]*registryEntry
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{
		opts:    opts,
		entries: make(map[string]*registryEntry),
	}
}

// AddRepository registers installDir under name. The first registration of
// a name wins; later ones are ignored and return false.
func (r *Registry) AddRepository(name, installDir string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return false
	}
	r.entries[name] = &registryEntry{installDir: installDir}
	r.order = append(r.order, name)
	return true
}

// InitializeDefaults registers the core repository and, when userDir is
// not empty, the user extension.
func (r *Registry) InitializeDefaults(installDir, userDir string) {
	r.AddRepository(CoreName, installDir)
	if userDir != "" {
		r.AddRepository(UserName, userDir)
	}
}

// Repository returns the repository registered under name, building it on
// first access.
func (r *Registry) Repository(name string) (Repository, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	if entry.repo == nil {
		entry.repo = r.build(name, entry.installDir)
	}
	return entry.repo, true
}

// InstallDir returns the install directory registered under name.
func (r *Registry) InstallDir(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[name]
	if !ok {
		return "", false
	}
	return entry.installDir, true
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// CachePath returns where the cache file for name lives, or "" when the
// registry does not cache.
func (r *Registry) CachePath(name string) string {
	if r.opts.DisableCache || r.opts.WorkDir == "" || r.opts.Strategy == StrategyName {
		return ""
	}
	safe := unsafeNameChars.ReplaceAllString(name, "_")
	if safe == "" {
		safe = "_"
	}
	return filepath.Join(r.opts.WorkDir, "repositories", platform.SafeFileStem(safe)+".cache")
}

func (r *Registry) build(name, installDir string) Repository {
	if r.opts.Strategy == StrategyName {
		return NewNameRepository(name, installDir, r.opts.Options)
	}
	return NewContentRepository(name, installDir, r.CachePath(name), r.opts.Options)
}

// DisposeAll disposes every constructed repository and clears the table.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.order {
		if repo := r.entries[name].repo; repo != nil {
			repo.Dispose()
		}
	}
	r.entries = make(map[string]*registryEntry)
	r.order = nil
}
