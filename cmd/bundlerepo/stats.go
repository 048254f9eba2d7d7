// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// writeStats prints every non-zero sample gathered from reg, one per line:
//
//	bundlerepo_archives_read_total{repository="core"} 12
func writeStats(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	fmt.Fprintln(w, TitleStyle.Render("Repository stats"))
	printed := 0
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			value, ok := sampleValue(mf.GetType(), m)
			if !ok || value == 0 {
				continue
			}
			fmt.Fprintf(w, "  %s%s %s\n",
				KeyStyle.Render(mf.GetName()),
				VerboseStyle.Render(formatLabels(m.GetLabel())),
				SuccessStyle.Render(fmt.Sprintf("%g", value)))
			printed++
		}
	}
	if printed == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(no activity)"))
	}
	return nil
}

func sampleValue(kind dto.MetricType, m *dto.Metric) (float64, bool) {
	switch kind {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue(), true
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue(), true
	default:
		return 0, false
	}
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, lp := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
