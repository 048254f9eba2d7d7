// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"maps"
	"slices"
)

// candidateSet indexes records by identifier and by path. Insertion order is
// kept per identifier so equal versions resolve to the first one found.
type candidateSet struct {
	byID   map[string][]Record
	byPath map[string]string
	// roots counts the distinct SearchRoot spellings held.
	roots map[string]struct{}
}

func newCandidateSet() *candidateSet {
	return &candidateSet{
		byID:   make(map[string][]Record),
		byPath: make(map[string]string),
		roots:  make(map[string]struct{}),
	}
}

// add stores rec unless its path is already known.
func (s *candidateSet) add(rec Record) bool {
	if _, ok := s.byPath[rec.Path]; ok {
		return false
	}
	s.byPath[rec.Path] = rec.Identifier
	s.byID[rec.Identifier] = append(s.byID[rec.Identifier], rec)
	s.roots[rec.SearchRoot] = struct{}{}
	return true
}

func (s *candidateSet) hasPath(path string) bool {
	_, ok := s.byPath[path]
	return ok
}

func (s *candidateSet) get(identifier string) []Record {
	return slices.Clone(s.byID[identifier])
}

func (s *candidateSet) identifiers() []string {
	return slices.Sorted(maps.Keys(s.byID))
}

// all returns every record grouped by identifier in sorted identifier order.
func (s *candidateSet) all() []Record {
	out := make([]Record, 0, len(s.byPath))
	for _, id := range s.identifiers() {
		out = append(out, s.byID[id]...)
	}
	return out
}

func (s *candidateSet) searchRoots() []string {
	return slices.Sorted(maps.Keys(s.roots))
}

func (s *candidateSet) len() int { return len(s.byPath) }
