// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bundlerepo/bundlerepo/internal/issue"
	"github.com/bundlerepo/bundlerepo/pkg/bundlerepo"
	"github.com/bundlerepo/bundlerepo/pkg/version"
)

// resolveFlagValues are the flags shared by resolve and watch.
type resolveFlagValues struct {
	locations  string
	repository string
	base       bool
}

// resolveRequest is one resolution as parsed from the command line.
type resolveRequest struct {
	Identifier string
	Range      version.Range
	Locations  string
	Repository string
	Mode       bundlerepo.Mode
}

func bindResolveFlags(cmd *cobra.Command, rf *resolveFlagValues) {
	cmd.Flags().StringVarP(&rf.locations, "locations", "l", "", "comma-separated search roots, or one absolute archive path (default: default_location)")
	cmd.Flags().StringVarP(&rf.repository, "repository", "r", bundlerepo.CoreName, "repository to search")
	cmd.Flags().BoolVar(&rf.base, "base", false, "return the base bundle an interim fix overlays")
}

func newResolveCommand(app *App, flags *rootFlagValues) *cobra.Command {
	rf := &resolveFlagValues{}

	cmd := &cobra.Command{
		Use:   "resolve <identifier> [range]",
		Short: "Print the archive that satisfies an identifier and version range",
		Long: `Print the path of the best archive for <identifier> within [range].

The range uses interval notation: "[1.0.0,2.0.0)" accepts 1.x.x, a bare
version such as "1.2.0" accepts that version and anything newer, and an empty
range or "0" accepts everything. The exit status is 2 when nothing matches.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := app.parseResolveRequest(args, rf)
			if err != nil {
				return err
			}
			return app.runResolve(cmd.Context(), flags, req)
		},
	}
	bindResolveFlags(cmd, rf)
	return cmd
}

// parseResolveRequest validates positional arguments and flags.
func (a *App) parseResolveRequest(args []string, rf *resolveFlagValues) (resolveRequest, error) {
	req := resolveRequest{
		Identifier: args[0],
		Range:      version.MatchAll,
		Locations:  rf.locations,
		Repository: rf.repository,
		Mode:       bundlerepo.ModeOverlay,
	}
	if rf.base {
		req.Mode = bundlerepo.ModeBase
	}
	if len(args) > 1 {
		r, err := version.ParseRange(args[1])
		if err != nil {
			a.renderIssue(issue.InvalidRangeId)
			return resolveRequest{}, &ExitError{Code: exitFailure, Err: issue.NewErrorContext().
				WithOperation("parse version range").
				WithResource(args[1]).
				Wrap(err).
				BuildError()}
		}
		req.Range = r
	}
	return req, nil
}

func (a *App) runResolve(ctx context.Context, flags *rootFlagValues, req resolveRequest) error {
	s, err := a.openSession(ctx, flags)
	if err != nil {
		return err
	}
	defer s.close(a, flags.stats)

	rec, err := s.resolve(a, req)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, rec.Path)
	if flags.verbose {
		fmt.Fprintf(a.stderr, "%s %s %s (%s)\n",
			SuccessStyle.Render("✓"),
			KeyStyle.Render(rec.Identifier),
			recordVersion(rec),
			SubtitleStyle.Render(rec.SearchRoot))
	}
	return nil
}

// resolve runs req against the session's registry. A miss is reported as
// an ExitError carrying exitNotFound.
func (s *session) resolve(a *App, req resolveRequest) (bundlerepo.Record, error) {
	repo, err := s.repository(a, req.Repository)
	if err != nil {
		return bundlerepo.Record{}, err
	}

	rec, ok := repo.Resolve(req.Locations, req.Identifier, req.Range, req.Mode)
	if !ok {
		a.renderIssue(issue.BundleNotFoundId)
		return bundlerepo.Record{}, &ExitError{
			Code: exitNotFound,
			Err:  fmt.Errorf("no bundle %q in range %s in repository %q", req.Identifier, req.Range, req.Repository),
		}
	}
	return rec, nil
}

// recordVersion renders a record's version with a badge for interim fixes.
func recordVersion(rec bundlerepo.Record) string {
	v := rec.Version.String()
	if rec.Patch {
		return v + " " + patchBadgeStyle.Render("[fix]")
	}
	return v
}
