// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"errors"
	"io/fs"
	"os"

	"github.com/bundlerepo/bundlerepo/pkg/descriptor"
)

// ContentRepository describes archives by reading their descriptors and
// keeps a persistent cache so unchanged archives are not reopened by later
// processes.
type ContentRepository struct {
	*localRepository
	cachePath   string
	cacheLoaded bool
	cacheDirty  bool
}

var _ Repository = (*ContentRepository)(nil)

// NewContentRepository returns a repository for installDir. cachePath may be
// empty to disable the persistent cache.
func NewContentRepository(name, installDir, cachePath string, opts Options) *ContentRepository {
	r := &ContentRepository{cachePath: cachePath}
	r.localRepository = newLocalRepository(name, installDir, opts, deriveFromDescriptor)
	r.prepare = r.loadCacheLocked
	return r
}

// CachePath returns the cache file location, or "" when caching is off.
func (r *ContentRepository) CachePath() string { return r.cachePath }

func deriveFromDescriptor(path, root string, info fs.FileInfo) (Record, error) {
	d, err := descriptor.Read(path)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Identifier: d.Identifier,
		Version:    d.Version,
		Patch:      d.Patch,
		SearchRoot: root,
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}

// loadCacheLocked reads the cache file once. Entries whose archive is gone
// are dropped, entries whose size or modification time changed are derived
// again from the archive, and the rest are trusted as they are.
func (r *ContentRepository) loadCacheLocked() {
	if r.cacheLoaded || r.cachePath == "" {
		return
	}
	r.cacheLoaded = true

	records, skipped, err := LoadCacheFile(r.cachePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return
	case err != nil:
		r.opts.Logger.Warn("bundle cache unreadable, rescanning", "repository", r.name, "path", r.cachePath, "error", err)
		r.cacheDirty = true
		return
	}
	if skipped > 0 {
		r.opts.Logger.Debug("malformed cache lines skipped", "repository", r.name, "count", skipped)
		r.cacheDirty = true
	}

	for _, cached := range records {
		info, err := os.Stat(cached.Path)
		if err != nil || !info.Mode().IsRegular() {
			r.opts.Metrics.cacheEntry(r.name, CacheDropped)
			r.cacheDirty = true
			continue
		}
		if cached.Matches(info) {
			r.opts.Metrics.cacheEntry(r.name, CacheTrusted)
			r.set.add(cached)
			continue
		}

		fresh, err := deriveFromDescriptor(cached.Path, cached.SearchRoot, info)
		r.cacheDirty = true
		if err != nil {
			r.opts.Logger.Debug("stale cache entry no longer describable", "path", cached.Path, "error", err)
			r.opts.Metrics.cacheEntry(r.name, CacheDropped)
			continue
		}
		r.opts.Metrics.cacheEntry(r.name, CacheRederived)
		r.set.add(fresh)
	}
	r.opts.Metrics.candidates(r.name, r.set.len())
}

// Dispose rewrites the cache when the candidate set differs from what was
// loaded, then releases it. Write failures are logged.
func (r *ContentRepository) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}

	if r.cachePath != "" && (r.cacheDirty || r.discovered) {
		err := SaveCacheFile(r.cachePath, r.set.all())
		r.opts.Metrics.cacheWrite(r.name, err)
		if err != nil {
			r.opts.Logger.Warn("failed to write bundle cache", "repository", r.name, "path", r.cachePath, "error", err)
		}
	}
	r.cacheDirty = false
	r.disposeLocked()
}
