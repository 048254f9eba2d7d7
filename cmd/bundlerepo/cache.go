// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/bundlerepo/bundlerepo/internal/issue"
	"github.com/bundlerepo/bundlerepo/pkg/bundlerepo"
)

func newCacheCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear repository caches",
		Long: `Inspect or clear repository caches.

Descriptor repositories remember what they read from each archive in a cache
file under the work directory. Entries are re-checked against the archive's
size and modification time on every load.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "path [repository...]",
		Short: "Print cache file locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runCachePath(cmd.Context(), flags, args)
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "show [repository]",
		Short: "Print the records stored in a cache file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := bundlerepo.CoreName
			if len(args) == 1 {
				name = args[0]
			}
			return app.runCacheShow(cmd.Context(), flags, name)
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear [repository...]",
		Short: "Delete cache files (all repositories by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runCacheClear(cmd.Context(), flags, args)
		},
	})

	return cacheCmd
}

// cacheTarget pairs a repository name with its cache file ("" when the
// configuration does not cache).
type cacheTarget struct {
	name string
	path string
}

// cachePaths maps repository names to cache files. No names means every
// registered repository. Repositories are not built.
func (s *session) cachePaths(a *App, names []string) ([]cacheTarget, error) {
	if len(names) == 0 {
		names = s.registry.Names()
	}
	out := make([]cacheTarget, 0, len(names))
	for _, name := range names {
		if _, ok := s.registry.InstallDir(name); !ok {
			if _, err := s.repository(a, name); err != nil {
				return nil, err
			}
		}
		out = append(out, cacheTarget{name: name, path: s.registry.CachePath(name)})
	}
	return out, nil
}

func (a *App) runCachePath(ctx context.Context, flags *rootFlagValues, names []string) error {
	s, err := a.openSession(ctx, flags)
	if err != nil {
		return err
	}
	defer s.close(a, false)

	paths, err := s.cachePaths(a, names)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if p.path == "" {
			fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render(p.name), SubtitleStyle.Render("(caching disabled)"))
			continue
		}
		fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render(p.name), p.path)
	}
	return nil
}

func (a *App) runCacheShow(ctx context.Context, flags *rootFlagValues, name string) error {
	s, err := a.openSession(ctx, flags)
	if err != nil {
		return err
	}
	defer s.close(a, false)

	paths, err := s.cachePaths(a, []string{name})
	if err != nil {
		return err
	}
	path := paths[0].path
	if path == "" {
		fmt.Fprintln(a.stdout, SubtitleStyle.Render("caching is disabled for this configuration"))
		return nil
	}

	records, skipped, err := bundlerepo.LoadCacheFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render("Cache file"), SubtitleStyle.Render(path+" (not written yet)"))
		return nil
	case errors.Is(err, bundlerepo.ErrCacheHeader):
		a.renderIssue(issue.CacheCorruptId)
		return issue.WrapWithContext(err, "read cache", path)
	case err != nil:
		return issue.WrapWithContext(err, "read cache", path)
	}

	fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render("Cache file"), path)
	fmt.Fprintf(a.stdout, "%s: %d\n", KeyStyle.Render("Records"), len(records))
	if skipped > 0 {
		fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render("Unreadable lines"), WarningStyle.Render(fmt.Sprint(skipped)))
	}
	fmt.Fprintln(a.stdout)

	sortForListing(records)
	writeRecordTable(a.stdout, records)
	return nil
}

func (a *App) runCacheClear(ctx context.Context, flags *rootFlagValues, names []string) error {
	s, err := a.openSession(ctx, flags)
	if err != nil {
		return err
	}
	// Nothing is built before removal, so close has no cache to flush.
	defer s.close(a, false)

	paths, err := s.cachePaths(a, names)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range paths {
		if p.path == "" {
			continue
		}
		switch rmErr := os.Remove(p.path); {
		case rmErr == nil:
			fmt.Fprintf(a.stdout, "%s removed %s\n", SuccessStyle.Render("✓"), p.path)
		case errors.Is(rmErr, fs.ErrNotExist):
			fmt.Fprintf(a.stdout, "%s %s\n", SubtitleStyle.Render("-"), SubtitleStyle.Render(p.path+" (absent)"))
		default:
			errs = append(errs, rmErr)
		}
	}
	return errors.Join(errs...)
}
