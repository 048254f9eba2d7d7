// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"slices"

	"github.com/bundlerepo/bundlerepo/pkg/version"
)

// Mode chooses what a selection returns when the winner is an interim fix.
type Mode int

const (
	// ModeOverlay returns the fix itself.
	ModeOverlay Mode = iota
	// ModeBase returns the base archive the fix overlays.
	ModeBase
)

type (
	// Query describes one selection.
	Query struct {
		Identifier string
		Range      version.Range
		// Roots are the normalized search roots a candidate must come from.
		Roots []string
		Mode  Mode
	}

	// OrphanFix describes an interim fix ignored because no base archive was
	// visible for it.
	OrphanFix struct {
		Artifact   string
		Path       string
		Identifier string
		Version    version.Version
	}

	// SelectOptions tune one selection walk.
	SelectOptions struct {
		Overrides Overrides
		// OnOrphan is called once per orphaned fix met during the walk.
		OnOrphan func(OrphanFix)
	}
)

// Triple returns the fix's major.minor.micro.
func (o OrphanFix) Triple() string { return o.Version.BaseString() }

func orphanOf(r Record) OrphanFix {
	return OrphanFix{Artifact: r.Artifact(), Path: r.Path, Identifier: r.Identifier, Version: r.Version}
}

// Select picks the record that satisfies q from candidates.
//
// Candidates are filtered by identifier, search root and range, then ordered
// by version, highest first; interim fixes come before bases of the same
// triple and ties otherwise keep their input order. The walk then tracks the
// best fix seen so far:
//   - a base with no fix tracked wins outright;
//   - a base reached while a fix is tracked ends the walk with the fix, or
//     with the base in ModeBase;
//   - a fix for a different triple than the tracked one orphans the tracked
//     fix, which is reported and replaced;
//   - a fix still tracked when the list runs out is reported as an orphan
//     and the selection finds nothing.
//
// Identifiers with PolicyFirstFixWins return the first fix reached.
func Select(candidates []Record, q Query, opts SelectOptions) (Record, bool) {
	ordered := filterCandidates(candidates, q)
	sortCandidates(ordered)

	report := func(r Record) {
		if opts.OnOrphan != nil {
			opts.OnOrphan(orphanOf(r))
		}
	}

	firstFixWins := opts.Overrides.Policy(q.Identifier) == PolicyFirstFixWins
	var bestFix *Record
	for i := range ordered {
		rec := ordered[i]
		if rec.Patch {
			switch {
			case firstFixWins:
				return rec, true
			case bestFix == nil:
				bestFix = &ordered[i]
			case !bestFix.Version.SameBase(rec.Version):
				report(*bestFix)
				bestFix = &ordered[i]
			}
			continue
		}

		if bestFix == nil || q.Mode == ModeBase {
			return rec, true
		}
		return *bestFix, true
	}

	if bestFix != nil {
		report(*bestFix)
	}
	return Record{}, false
}

func filterCandidates(candidates []Record, q Query) []Record {
	roots := make(map[string]struct{}, len(q.Roots))
	for _, r := range q.Roots {
		roots[NormalizeRoot(r)] = struct{}{}
	}
	out := make([]Record, 0, len(candidates))
	for _, c := range candidates {
		if c.Identifier != q.Identifier {
			continue
		}
		if _, ok := roots[c.SearchRoot]; !ok {
			continue
		}
		if !q.Range.Includes(c.Version) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func sortCandidates(recs []Record) {
	slices.SortStableFunc(recs, func(a, b Record) int {
		if c := compareRecords(a, b); c != 0 {
			return c
		}
		switch {
		case a.Patch && !b.Patch:
			return -1
		case !a.Patch && b.Patch:
			return 1
		default:
			return 0
		}
	})
}
