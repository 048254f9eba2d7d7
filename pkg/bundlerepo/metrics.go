// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache entry outcomes recorded by Metrics.CacheEntries.
const (
	CacheTrusted   = "trusted"
	CacheRederived = "rederived"
	CacheDropped   = "dropped"
)

// Metrics holds the Prometheus collectors updated by repositories. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Scans           *prometheus.CounterVec
	ArchivesRead    *prometheus.CounterVec
	ArchivesSkipped *prometheus.CounterVec
	CacheEntries    *prometheus.CounterVec
	CacheWrites     *prometheus.CounterVec
	Selections      *prometheus.CounterVec
	OrphanFixes     *prometheus.CounterVec
	Candidates      *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	repo := []string{"repository"}
	return &Metrics{
		Scans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bundlerepo_search_root_scans_total",
			Help: "Search roots listed on disk",
		}, repo),
		ArchivesRead: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bundlerepo_archives_read_total",
			Help: "Archive descriptors read during scans",
		}, repo),
		ArchivesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bundlerepo_archives_skipped_total",
			Help: "Archives left out of the candidate set because they could not be described",
		}, repo),
		CacheEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bundlerepo_cache_entries_total",
			Help: "Cache entries processed on load, by outcome",
		}, []string{"repository", "outcome"}),
		CacheWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bundlerepo_cache_writes_total",
			Help: "Cache file rewrites, by result",
		}, []string{"repository", "result"}),
		Selections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bundlerepo_selections_total",
			Help: "Resource selections, by result",
		}, []string{"repository", "result"}),
		OrphanFixes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bundlerepo_orphan_fixes_total",
			Help: "Interim fixes ignored because their base was missing",
		}, repo),
		Candidates: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bundlerepo_candidates",
			Help: "Records currently held in the candidate set",
		}, repo),
	}
}

func (m *Metrics) scan(repo string) {
	if m != nil {
		m.Scans.WithLabelValues(repo).Inc()
	}
}

func (m *Metrics) archiveRead(repo string) {
	if m != nil {
		m.ArchivesRead.WithLabelValues(repo).Inc()
	}
}

func (m *Metrics) archiveSkipped(repo string) {
	if m != nil {
		m.ArchivesSkipped.WithLabelValues(repo).Inc()
	}
}

func (m *Metrics) cacheEntry(repo, outcome string) {
	if m != nil {
		m.CacheEntries.WithLabelValues(repo, outcome).Inc()
	}
}

func (m *Metrics) cacheWrite(repo string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CacheWrites.WithLabelValues(repo, result).Inc()
}

func (m *Metrics) selection(repo string, found bool) {
	if m == nil {
		return
	}
	result := "found"
	if !found {
		result = "not_found"
	}
	m.Selections.WithLabelValues(repo, result).Inc()
}

func (m *Metrics) orphan(repo string) {
	if m != nil {
		m.OrphanFixes.WithLabelValues(repo).Inc()
	}
}

func (m *Metrics) candidates(repo string, n int) {
	if m != nil {
		m.Candidates.WithLabelValues(repo).Set(float64(n))
	}
}
