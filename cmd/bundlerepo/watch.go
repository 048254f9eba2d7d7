// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bundlerepo/bundlerepo/internal/watch"
	"github.com/bundlerepo/bundlerepo/pkg/bundlerepo"
)

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	rf := &resolveFlagValues{}
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <identifier> [range]",
		Short: "Re-resolve a bundle whenever archives in its search roots change",
		Long: `Resolve <identifier> once, then watch the search roots and print the
selected archive again each time it changes. Stop with Ctrl+C.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := app.parseResolveRequest(args, rf)
			if err != nil {
				return err
			}
			return app.runWatch(cmd.Context(), flags, req, debounce)
		},
	}
	bindResolveFlags(cmd, rf)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-resolving")
	return cmd
}

// watchRoots returns the directories to watch for a request. A single
// absolute archive path is watched through its parent directory.
func watchRoots(installDir, locations, fallback string) []string {
	if p := strings.TrimSpace(locations); filepath.IsAbs(p) && !strings.Contains(p, ",") {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return []string{filepath.Dir(p)}
		}
	}
	return bundlerepo.RootDirs(installDir, locations, fallback)
}

// watchState remembers the last printed result so only changes are shown.
type watchState struct {
	printed bool
	path    string
}

// report prints the outcome of one resolution when it differs from the
// previous one.
func (a *App) report(state *watchState, rec bundlerepo.Record, found bool) {
	path := ""
	if found {
		path = rec.Path
	}
	if state.printed && state.path == path {
		return
	}
	state.printed = true
	state.path = path

	stamp := SubtitleStyle.Render(time.Now().Format(time.TimeOnly))
	if !found {
		fmt.Fprintf(a.stdout, "%s %s no matching bundle\n", stamp, ErrorStyle.Render("✗"))
		return
	}
	fmt.Fprintf(a.stdout, "%s %s %s %s\n", stamp, SuccessStyle.Render("→"), recordVersion(rec), rec.Path)
}

// resolveInSession runs req once in a fresh session.
func (a *App) resolveInSession(ctx context.Context, flags *rootFlagValues, req resolveRequest) (*session, bundlerepo.Repository, bundlerepo.Record, bool, error) {
	s, err := a.openSession(ctx, flags)
	if err != nil {
		return nil, nil, bundlerepo.Record{}, false, err
	}
	repo, err := s.repository(a, req.Repository)
	if err != nil {
		s.close(a, false)
		return nil, nil, bundlerepo.Record{}, false, err
	}
	rec, found := repo.Resolve(req.Locations, req.Identifier, req.Range, req.Mode)
	return s, repo, rec, found, nil
}

func (a *App) runWatch(ctx context.Context, flags *rootFlagValues, req resolveRequest, debounce time.Duration) error {
	s, repo, rec, found, err := a.resolveInSession(ctx, flags, req)
	if err != nil {
		return err
	}
	state := &watchState{}
	a.report(state, rec, found)

	roots := watchRoots(repo.InstallDir(), req.Locations, s.cfg.DefaultLocation)
	pattern := s.cfg.ArchivePattern
	logger := s.logger
	s.close(a, flags.stats)

	w, err := watch.New(watch.Config{
		Roots:    roots,
		Pattern:  pattern,
		Debounce: debounce,
		Logger:   logger,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Debug("archives changed", "count", len(changed), "paths", changed)
			ns, _, rec, found, err := a.resolveInSession(ctx, flags, req)
			if err != nil {
				return err
			}
			defer ns.close(a, flags.stats)
			a.report(state, rec, found)
			return nil
		},
	})
	if err != nil {
		return err
	}

	logger.Info("watching search roots", "roots", w.Roots())
	return w.Run(ctx)
}
