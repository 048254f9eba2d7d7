// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bundlerepo/bundlerepo/internal/config"
)

// newConfigCommand creates the `bundlerepo config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bundlerepo configuration",
		Long: `Manage bundlerepo configuration.

Configuration is stored in:
  - Linux: ~/.config/bundlerepo/config.cue
  - macOS: ~/Library/Application Support/bundlerepo/config.cue
  - Windows: %APPDATA%\bundlerepo\config.cue

Every key can be overridden from the environment, e.g. BUNDLEREPO_INSTALL_DIR.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfig(cmd.Context(), flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.initConfig()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showConfigPath(cmd.Context(), flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context, flags *rootFlagValues) error {
	cfg, cfgPath, err := a.loadConfig(ctx, flags)
	if err != nil {
		return err
	}

	w := a.stdout
	line := func(key, value string) {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render(key), SuccessStyle.Render(value))
	}
	orDefault := func(value, fallback string) string {
		if value == "" {
			return SubtitleStyle.Render(fallback)
		}
		return value
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), orDefault(cfgPath, "(using defaults)"))
	fmt.Fprintln(w)

	line("install_dir", orDefault(cfg.InstallDir, "(working directory)"))
	line("work_dir", orDefault(cfg.WorkDir, "(user cache directory)"))
	line("default_location", cfg.DefaultLocation)
	line("archive_pattern", cfg.ArchivePattern)
	line("use_cache", fmt.Sprint(cfg.UseCache))
	line("validate_archives", fmt.Sprint(cfg.ValidateArchives))
	line("strategy", cfg.Strategy.String())
	line("log_level", cfg.LogLevel.String())
	if len(cfg.Overrides) == 0 {
		line("overrides", SubtitleStyle.Render("(none)"))
	} else {
		line("overrides", strings.Join(cfg.Overrides, ", "))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", KeyStyle.Render("extensions"))
	if len(cfg.Extensions) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, ext := range cfg.Extensions {
		fmt.Fprintf(w, "  - %s: %s\n", SuccessStyle.Render(ext.Name), ext.InstallDir)
	}
	return nil
}

func (a *App) initConfig() error {
	path, created, err := config.CreateDefaultConfig("")
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(a.stdout, "%s Configuration already exists at %s\n", SubtitleStyle.Render("-"), path)
		return nil
	}
	fmt.Fprintf(a.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func (a *App) showConfigPath(ctx context.Context, flags *rootFlagValues) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(a.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))

	if _, loaded, loadErr := a.Config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: flags.configPath}); loadErr == nil && loaded != "" {
		fmt.Fprintf(a.stdout, "Loaded from: %s\n", loaded)
	}
	if workDir, wdErr := config.DefaultWorkDir(); wdErr == nil {
		fmt.Fprintf(a.stdout, "Default work directory: %s\n", workDir)
	}
	return nil
}
