// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bundlerepo/bundlerepo/pkg/descriptor"
	"github.com/bundlerepo/bundlerepo/pkg/version"
)

// Repository is a local bundle repository rooted at an install directory.
type Repository interface {
	// Name is the name the repository is registered under.
	Name() string
	// InstallDir is the absolute install directory.
	InstallDir() string
	// IncludeSearchRoot lists archives directly inside the root and adds the
	// ones it can describe. Repeated calls for the same root do nothing.
	IncludeSearchRoot(root string)
	// IncludeLocations calls IncludeSearchRoot for every root in a
	// comma-separated location list.
	IncludeLocations(locations string)
	// Candidates returns the known records for identifier.
	Candidates(identifier string) []Record
	// Records returns every known record.
	Records() []Record
	// RecordsIn scans locations and returns the records found in them, for
	// identifier only when it is non-empty.
	RecordsIn(locations, identifier string) []Record
	// Resolve scans the locations and selects a record.
	Resolve(locations, identifier string, r version.Range, mode Mode) (Record, bool)
	// SelectResource returns the path of the best match, overlaying fixes.
	SelectResource(locations, identifier string, r version.Range) (string, bool)
	// SelectBaseResource is SelectResource but returns the base of a winning fix.
	SelectBaseResource(locations, identifier string, r version.Range) (string, bool)
	// Dispose releases the candidate set, flushing any cache first.
	Dispose()
}

// errSkip marks an archive left out of the candidate set on purpose.
var errSkip = errors.New("archive skipped")

// deriveFunc turns a file found in a search root into a record.
type deriveFunc func(path, root string, info fs.FileInfo) (Record, error)

// localRepository holds what both scanning strategies share. Strategies
// embed it and supply derive.
type localRepository struct {
	name       string
	installDir string
	opts       Options
	derive     deriveFunc
	// prepare runs under mu before every scan or selection.
	prepare func()

	mu         sync.Mutex
	set        *candidateSet
	scanned    map[string]struct{}
	reported   map[string]struct{}
	discovered bool
	disposed   bool
}

func newLocalRepository(name, installDir string, opts Options, derive deriveFunc) *localRepository {
	abs, err := filepath.Abs(installDir)
	if err != nil {
		abs = filepath.Clean(installDir)
	}
	return &localRepository{
		name:       name,
		installDir: abs,
		opts:       opts.withDefaults(),
		derive:     derive,
		set:        newCandidateSet(),
		scanned:    make(map[string]struct{}),
		reported:   make(map[string]struct{}),
	}
}

// Name implements Repository.
func (l *localRepository) Name() string { return l.name }

// InstallDir implements Repository.
func (l *localRepository) InstallDir() string { return l.installDir }

// IncludeSearchRoot implements Repository.
func (l *localRepository) IncludeSearchRoot(root string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return
	}
	l.runPrepare()
	l.includeLocked(NormalizeRoot(root))
}

// IncludeLocations implements Repository.
func (l *localRepository) IncludeLocations(locations string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return
	}
	l.runPrepare()
	for _, root := range ParseLocations(locations, l.opts.DefaultLocation) {
		l.includeLocked(root)
	}
}

func (l *localRepository) runPrepare() {
	if l.prepare != nil {
		l.prepare()
	}
}

func (l *localRepository) rootDir(root string) string {
	return RootDir(l.installDir, root)
}

func (l *localRepository) includeLocked(root string) {
	if root == "" {
		return
	}
	if _, done := l.scanned[root]; done {
		return
	}
	l.scanned[root] = struct{}{}
	l.opts.Metrics.scan(l.name)

	dir := l.rootDir(root)
	entries, err := os.ReadDir(dir)
	if err != nil {
		l.opts.Logger.Debug("search root not readable", "repository", l.name, "root", root, "error", err)
		return
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ok, _ := doublestar.Match(l.opts.ArchivePattern, entry.Name()); !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if l.set.hasPath(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		l.opts.Metrics.archiveRead(l.name)
		rec, err := l.derive(path, root, info)
		if err != nil {
			l.opts.Metrics.archiveSkipped(l.name)
			if !errors.Is(err, errSkip) {
				l.opts.Logger.Debug("archive skipped", "repository", l.name, "path", path, "error", err)
			}
			continue
		}
		if l.set.add(rec) {
			l.discovered = true
		}
	}
	l.opts.Metrics.candidates(l.name, l.set.len())
}

// Candidates implements Repository.
func (l *localRepository) Candidates(identifier string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set.get(identifier)
}

// Records implements Repository.
func (l *localRepository) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set.all()
}

// RecordsIn implements Repository.
func (l *localRepository) RecordsIn(locations, identifier string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return nil
	}

	l.runPrepare()
	roots := ParseLocations(locations, l.opts.DefaultLocation)
	for _, root := range roots {
		l.includeLocked(root)
	}

	var recs []Record
	if identifier != "" {
		recs = l.set.get(identifier)
	} else {
		recs = l.set.all()
	}
	allowed := make(map[string]struct{})
	for _, root := range l.aliasRoots(roots) {
		allowed[root] = struct{}{}
	}
	return slices.DeleteFunc(recs, func(rec Record) bool {
		_, ok := allowed[rec.SearchRoot]
		return !ok
	})
}

// aliasRoots adds to roots every recorded search root naming the same
// directory, so "lib/" and "<install>/lib" select the same archives no
// matter which spelling scanned them first.
func (l *localRepository) aliasRoots(roots []string) []string {
	dirs := make(map[string]struct{}, len(roots))
	for _, root := range roots {
		dirs[l.rootDir(root)] = struct{}{}
	}
	out := slices.Clone(roots)
	for _, known := range l.set.searchRoots() {
		if slices.Contains(out, known) {
			continue
		}
		if _, ok := dirs[l.rootDir(known)]; ok {
			out = append(out, known)
		}
	}
	return out
}

// Resolve implements Repository.
func (l *localRepository) Resolve(locations, identifier string, r version.Range, mode Mode) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return Record{}, false
	}

	if p, ok := exactPath(locations); ok {
		if rec, found := l.exactRecord(p, identifier); found {
			l.opts.Metrics.selection(l.name, true)
			return rec, true
		}
	}

	l.runPrepare()
	roots := ParseLocations(locations, l.opts.DefaultLocation)
	for _, root := range roots {
		l.includeLocked(root)
	}

	rec, found := Select(l.set.get(identifier), Query{
		Identifier: identifier,
		Range:      r,
		Roots:      l.aliasRoots(roots),
		Mode:       mode,
	}, SelectOptions{
		Overrides: l.opts.Overrides,
		OnOrphan:  l.reportOrphan,
	})
	l.opts.Metrics.selection(l.name, found)
	return rec, found
}

// exactRecord accepts an absolute path naming a regular file. Directories
// and missing files fall through to search-root handling.
func (l *localRepository) exactRecord(path, identifier string) (Record, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Record{}, false
	}
	if l.opts.ValidateArchives && !descriptor.Validate(path) {
		l.opts.Logger.Debug("exact path is not a valid bundle", "path", path)
		return Record{}, false
	}
	return Record{
		Identifier: identifier,
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, true
}

// SelectResource implements Repository.
func (l *localRepository) SelectResource(locations, identifier string, r version.Range) (string, bool) {
	rec, ok := l.Resolve(locations, identifier, r, ModeOverlay)
	return rec.Path, ok
}

// SelectBaseResource implements Repository.
func (l *localRepository) SelectBaseResource(locations, identifier string, r version.Range) (string, bool) {
	rec, ok := l.Resolve(locations, identifier, r, ModeBase)
	return rec.Path, ok
}

func (l *localRepository) reportOrphan(o OrphanFix) {
	if _, seen := l.reported[o.Path]; seen {
		return
	}
	l.reported[o.Path] = struct{}{}
	l.opts.Metrics.orphan(l.name)
	if l.opts.OnOrphan != nil {
		l.opts.OnOrphan(o)
		return
	}
	l.opts.Logger.Warn("orphan interim fix ignored",
		"artifact", o.Artifact,
		"identifier", o.Identifier,
		"version", o.Triple())
}

// disposeLocked clears state. Callers hold mu.
func (l *localRepository) disposeLocked() {
	l.set = newCandidateSet()
	l.scanned = make(map[string]struct{})
	l.reported = make(map[string]struct{})
	l.discovered = false
	l.disposed = true
	l.opts.Metrics.candidates(l.name, 0)
}
