// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/bundlerepo/bundlerepo/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	configPath string
	verbose    bool
	stats      bool

	installDir string
	workDir    string
	strategy   string
	noCache    bool
	validate   bool
}

// NewRootCommand builds the command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "bundlerepo",
		Short: "Resolve versioned bundles from installation repositories",
		Long: TitleStyle.Render("bundlerepo") + SubtitleStyle.Render(" - versioned bundle resolution") + `

bundlerepo finds the archive that satisfies an identifier and version range
in the search roots of an installation. Interim fixes overlay the base
bundle they patch; a fix whose base is missing is reported and ignored.

` + SubtitleStyle.Render("Examples:") + `
  bundlerepo resolve com.example.api "[1.0.0,2.0.0)"
  bundlerepo resolve com.example.api --base
  bundlerepo list --locations lib/,dev/ --format yaml
  bundlerepo cache show
  bundlerepo watch com.example.api 1.2.0`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/bundlerepo/config.cue)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&flags.stats, "stats", false, "print repository counters after the command")
	pf.StringVar(&flags.installDir, "install-dir", "", "installation root of the core repository (overrides install_dir)")
	pf.StringVar(&flags.workDir, "work-dir", "", "directory holding repository caches (overrides work_dir)")
	pf.StringVar(&flags.strategy, "strategy", "", "repository strategy: descriptor or name (overrides strategy)")
	pf.BoolVar(&flags.noCache, "no-cache", false, "do not read or write the repository cache")
	pf.BoolVar(&flags.validate, "validate", false, "require exact-path archives to be well-formed bundles")

	rootCmd.AddCommand(
		newResolveCommand(app, flags),
		newListCommand(app, flags),
		newCacheCommand(app, flags),
		newConfigCommand(app, flags),
		newWatchCommand(app, flags),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(exitFailure)
	}

	rootCmd := NewRootCommand(app)
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
			fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(exitFailure)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
