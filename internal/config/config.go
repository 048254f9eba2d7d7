// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/bundlerepo/bundlerepo/internal/cueutil"
	"github.com/bundlerepo/bundlerepo/internal/issue"
	"github.com/bundlerepo/bundlerepo/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "bundlerepo"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. BUNDLEREPO_WORK_DIR.
	EnvPrefix = "BUNDLEREPO"
)

//go:embed config_schema.cue
var configSchema string

// Schema returns the embedded CUE schema.
func Schema() string { return configSchema }

// ConfigDir returns the configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string
	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DefaultWorkDir returns the per-user work area holding repository caches.
func DefaultWorkDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user cache directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveWorkDir returns cfg.WorkDir, or DefaultWorkDir when it is empty.
func (c *Config) ResolveWorkDir() (string, error) {
	if c.WorkDir != "" {
		return c.WorkDir, nil
	}
	return DefaultWorkDir()
}

// ResolveInstallDir returns cfg.InstallDir as an absolute path, or the
// working directory when it is empty.
func (c *Config) ResolveInstallDir() (string, error) {
	if c.InstallDir == "" {
		return os.Getwd()
	}
	return filepath.Abs(c.InstallDir)
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("install_dir", defaults.InstallDir)
	v.SetDefault("work_dir", defaults.WorkDir)
	v.SetDefault("default_location", defaults.DefaultLocation)
	v.SetDefault("archive_pattern", defaults.ArchivePattern)
	v.SetDefault("use_cache", defaults.UseCache)
	v.SetDefault("validate_archives", defaults.ValidateArchives)
	v.SetDefault("strategy", string(defaults.Strategy))
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("overrides", defaults.Overrides)
	v.SetDefault("extensions", defaults.Extensions)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadWithOptions performs option-driven config loading without touching
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	v := newViper()
	resolvedPath, err := mergeConfigFile(v, opts)
	if err != nil {
		return nil, "", err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.ExpandPaths(nil); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("expand configuration paths").
			WithResource(resolvedPath).
			WithSuggestion("Use plain $VAR or ${VAR} references in directory fields").
			Wrap(err).
			BuildError()
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Ensure each extension has a unique, non-reserved name").
			WithSuggestion("Run 'bundlerepo config show' to inspect the effective values").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// mergeConfigFile locates the config file for opts and merges it into v.
// It returns the path that was loaded, or "" when defaults are used.
func mergeConfigFile(v *viper.Viper, opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'bundlerepo config init' to create a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, loadFile(v, opts.ConfigFilePath)
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}

	candidates := []string{
		filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
		ConfigFileName + "." + ConfigFileExt,
	}
	for _, path := range candidates {
		if fileExists(path) {
			return path, loadFile(v, path)
		}
	}
	return "", nil
}

func loadFile(v *viper.Viper, path string) error {
	if err := loadCUEIntoViper(v, path); err != nil {
		return issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Check that the file contains valid CUE syntax").
			WithSuggestion("Verify the configuration values match the expected schema").
			WithSuggestion("See 'bundlerepo config --help' for configuration options").
			Wrap(err).
			BuildError()
	}
	return nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against #Config and
// merges it into Viper. It decodes to a map rather than going through
// cueutil.ParseAndDecode because fields are optional (non-concrete) and the
// result is merged over Viper defaults instead of returned.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into dir unless one
// exists. It returns the file path and whether it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", false, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, true, nil
}

// GenerateCUE renders cfg as a config.cue document. Empty optional paths are
// left out so defaults keep applying.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// bundlerepo configuration\n\n")
	if cfg.InstallDir != "" {
		fmt.Fprintf(&sb, "install_dir: %q\n", cfg.InstallDir)
	}
	if cfg.WorkDir != "" {
		fmt.Fprintf(&sb, "work_dir: %q\n", cfg.WorkDir)
	}
	fmt.Fprintf(&sb, "default_location: %q\n", cfg.DefaultLocation)
	fmt.Fprintf(&sb, "archive_pattern: %q\n", cfg.ArchivePattern)
	fmt.Fprintf(&sb, "use_cache: %v\n", cfg.UseCache)
	fmt.Fprintf(&sb, "validate_archives: %v\n", cfg.ValidateArchives)
	fmt.Fprintf(&sb, "strategy: %q\n", cfg.Strategy)
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)

	sb.WriteString("\noverrides: [")
	for i, id := range cfg.Overrides {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", id)
	}
	sb.WriteString("]\n")

	if len(cfg.Extensions) > 0 {
		sb.WriteString("\nextensions: [\n")
		for _, ext := range cfg.Extensions {
			fmt.Fprintf(&sb, "\t{name: %q, install_dir: %q},\n", ext.Name, ext.InstallDir)
		}
		sb.WriteString("]\n")
	}

	return sb.String()
}
