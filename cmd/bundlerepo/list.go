// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bundlerepo/bundlerepo/pkg/bundlerepo"
	"github.com/bundlerepo/bundlerepo/pkg/version"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

// listOutput is the document written by the structured formats.
type listOutput struct {
	Repository string              `json:"repository" yaml:"repository" toml:"repository"`
	Locations  []string            `json:"locations" yaml:"locations" toml:"locations"`
	Bundles    []bundlerepo.Record `json:"bundles" yaml:"bundles" toml:"bundles"`
}

func newListCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var (
		locations  string
		repository string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "list [identifier]",
		Short: "List the archives visible in the search roots of a repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := ""
			if len(args) == 1 {
				identifier = args[0]
			}
			return app.runList(cmd.Context(), flags, repository, locations, identifier, format)
		},
	}
	cmd.Flags().StringVarP(&locations, "locations", "l", "", "comma-separated search roots (default: default_location)")
	cmd.Flags().StringVarP(&repository, "repository", "r", bundlerepo.CoreName, "repository to list")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json, yaml or toml")
	return cmd
}

func (a *App) runList(ctx context.Context, flags *rootFlagValues, repository, locations, identifier, format string) error {
	if !slices.Contains([]string{formatText, formatJSON, formatYAML, formatTOML}, format) {
		return fmt.Errorf("unknown format %q (valid: text, json, yaml, toml)", format)
	}

	s, err := a.openSession(ctx, flags)
	if err != nil {
		return err
	}
	defer s.close(a, flags.stats)

	repo, err := s.repository(a, repository)
	if err != nil {
		return err
	}
	records := repo.RecordsIn(locations, identifier)
	sortForListing(records)

	out := listOutput{
		Repository: repository,
		Locations:  bundlerepo.ParseLocations(locations, s.cfg.DefaultLocation),
		Bundles:    records,
	}
	return writeListing(a.stdout, format, out)
}

// sortForListing orders records by identifier, then version highest first,
// then path.
func sortForListing(records []bundlerepo.Record) {
	slices.SortStableFunc(records, func(x, y bundlerepo.Record) int {
		if c := strings.Compare(x.Identifier, y.Identifier); c != 0 {
			return c
		}
		if c := version.Compare(y.Version, x.Version); c != 0 {
			return c
		}
		return strings.Compare(x.Path, y.Path)
	})
}

func writeListing(w io.Writer, format string, out listOutput) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case formatTOML:
		if err := toml.NewEncoder(w).Encode(out); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		writeRecordTable(w, out.Bundles)
		return nil
	}
}

// writeRecordTable prints records as aligned columns.
func writeRecordTable(w io.Writer, records []bundlerepo.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("(no bundles found)"))
		return
	}

	headers := []string{"IDENTIFIER", "VERSION", "ROOT", "ARCHIVE"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.Identifier, recordVersion(rec), rec.SearchRoot, rec.Artifact()})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = columnHeaderStyle.Width(widths[i] + 2).Render(h)
	}
	fmt.Fprintln(w, strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))

	for _, row := range rows {
		for i, cell := range row {
			cells[i] = lipgloss.NewStyle().Width(widths[i] + 2).Render(cell)
		}
		fmt.Fprintln(w, strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))
	}
}
