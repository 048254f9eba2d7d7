// SPDX-License-Identifier: MPL-2.0

// Package watch monitors repository search roots and reports archive changes.
//
// Events for files whose base name matches the archive pattern are collected
// and delivered once per debounce window, so an installer copying many
// bundles produces a single callback with every changed path.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is unset.
const DefaultDebounce = 500 * time.Millisecond

// defaultIgnores are base-name patterns for editor and copy temporaries.
var defaultIgnores = []string{
	"*.swp",
	"*.tmp",
	"*~",
	".#*",
	".DS_Store",
}

// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
var ErrInvalidWatchConfig = errors.New("invalid watch config")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are the directories to watch. A missing root is logged and its
		// parent directory is watched instead, so the root is picked up once
		// created. New fails only when no root and no parent of a missing
		// root exists.
		Roots []string

		// Pattern is a doublestar glob matched against file base names.
		// Empty matches every file.
		Pattern string

		// Ignore are additional base-name patterns merged with the defaults.
		Ignore []string

		// Debounce is the quiet period after the last event before OnChange
		// fires. Zero or negative values fall back to DefaultDebounce.
		Debounce time.Duration

		// OnChange receives the sorted, deduplicated absolute paths that
		// changed. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives warnings. nil uses log.Default().
		Logger *log.Logger
	}

	// InvalidWatchConfigError collects every invalid field of a Config.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// Watcher monitors Roots and fires a debounced callback when matching
	// archives change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		roots    []string
		started  atomic.Bool
	}
)

// Error implements the error interface.
func (e *InvalidWatchConfigError) Error() string {
	return fmt.Sprintf("invalid watch config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// Validate checks roots and patterns without touching the filesystem.
func (c Config) Validate() error {
	var errs []error
	if len(c.Roots) == 0 {
		errs = append(errs, errors.New("at least one root is required"))
	}
	for i, root := range c.Roots {
		if root == "" {
			errs = append(errs, fmt.Errorf("roots[%d]: must not be empty", i))
		}
	}
	if c.Pattern != "" && !doublestar.ValidatePattern(c.Pattern) {
		errs = append(errs, fmt.Errorf("pattern %q: %w", c.Pattern, doublestar.ErrBadPattern))
	}
	for i, pat := range c.Ignore {
		if pat == "" || !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("ignore[%d] %q: %w", i, pat, doublestar.ErrBadPattern))
		}
	}
	if len(errs) > 0 {
		return &InvalidWatchConfigError{FieldErrors: errs}
	}
	return nil
}

// New validates cfg, creates the fsnotify watcher and registers every
// existing root.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	roots := make([]string, 0, len(cfg.Roots))
	for _, root := range cfg.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve root %q: %w", root, err)
		}
		if !slices.Contains(roots, abs) {
			roots = append(roots, abs)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		logger:   logger,
		debounce: debounce,
		roots:    roots,
	}

	watched := 0
	for _, root := range roots {
		ok, addErr := w.addRoot(root)
		if addErr != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				logger.Warn("close watcher after init failure", "err", closeErr)
			}
			return nil, addErr
		}
		if ok {
			watched++
		}
	}
	if watched == 0 {
		fsw.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("watch: none of %d root(s) or their parents exist", len(roots))
	}

	return w, nil
}

// Roots returns the absolute roots registered at construction.
func (w *Watcher) Roots() []string {
	return slices.Clone(w.roots)
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire runs on the timer goroutine. A busy callback reschedules rather
	// than dropping the pending set.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("watch callback failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close fsnotify", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}
			if evt.Has(fsnotify.Create) && w.isRoot(evt.Name) {
				if _, err := w.addRoot(evt.Name); err != nil {
					w.logger.Warn("watch new root", "path", evt.Name, "err", err)
				}
				continue
			}
			if !w.isRoot(filepath.Dir(evt.Name)) || !w.Matches(evt.Name) {
				continue
			}

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalWatchError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// Matches reports whether an event for path would be delivered: the base
// name matches Pattern and no ignore pattern.
func (w *Watcher) Matches(path string) bool {
	name := filepath.Base(path)
	for _, pat := range w.ignores {
		if matched, err := doublestar.Match(pat, name); err == nil && matched {
			return false
		}
	}
	if w.cfg.Pattern == "" {
		return true
	}
	matched, err := doublestar.Match(w.cfg.Pattern, name)
	return err == nil && matched
}

// addRoot watches root and, when it is missing, its parent so the root is
// picked up once created. It reports whether either directory is watched.
func (w *Watcher) addRoot(root string) (bool, error) {
	info, err := os.Stat(root)
	switch {
	case err == nil && info.IsDir():
		if addErr := w.fsw.Add(root); addErr != nil {
			return false, fmt.Errorf("watch: add root %q: %w", root, addErr)
		}
		return true, nil
	case err == nil:
		w.logger.Warn("search root is not a directory", "path", root)
		return false, nil
	case errors.Is(err, os.ErrNotExist):
		w.logger.Warn("search root does not exist", "path", root)
		parent := filepath.Dir(root)
		if pinfo, perr := os.Stat(parent); perr == nil && pinfo.IsDir() {
			if addErr := w.fsw.Add(parent); addErr != nil {
				w.logger.Warn("watch parent of missing root", "path", parent, "err", addErr)
				return false, nil
			}
			return true, nil
		}
		return false, nil
	default:
		return false, fmt.Errorf("watch: stat root %q: %w", root, err)
	}
}

func (w *Watcher) isRoot(path string) bool {
	return slices.Contains(w.roots, filepath.Clean(path))
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
