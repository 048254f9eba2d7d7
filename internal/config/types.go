// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// StrategyDescriptor reads identifiers from archive descriptors.
	StrategyDescriptor RepositoryStrategy = "descriptor"
	// StrategyName derives identifiers from archive file names.
	StrategyName RepositoryStrategy = "name"

	// LogLevelDebug enables debug output.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo enables informational output.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn shows warnings and errors only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError shows errors only.
	LogLevelError LogLevel = "error"

	// reservedCoreName mirrors the core repository name. Defined locally to
	// avoid coupling config to pkg/bundlerepo.
	reservedCoreName = "core"
)

var (
	// ErrInvalidStrategy is returned when a RepositoryStrategy value is not recognized.
	ErrInvalidStrategy = errors.New("invalid repository strategy")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidExtension is the sentinel error wrapped by InvalidExtensionError.
	ErrInvalidExtension = errors.New("invalid extension")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// RepositoryStrategy selects how repositories describe archives.
	RepositoryStrategy string

	// LogLevel is the minimum level written to stderr.
	LogLevel string

	// Extension registers an additional repository under Name.
	Extension struct {
		Name       string `json:"name" mapstructure:"name"`
		InstallDir string `json:"install_dir" mapstructure:"install_dir"`
	}

	// InvalidExtensionError collects field-level problems with an Extension.
	InvalidExtensionError struct {
		Index       int
		FieldErrors []error
	}

	// InvalidConfigError collects field-level problems with a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the resolved bundlerepo configuration.
	Config struct {
		// InstallDir is the installation root. Empty means the working directory.
		InstallDir string `json:"install_dir" mapstructure:"install_dir"`
		// WorkDir holds cache files. Empty means the user cache directory.
		WorkDir          string             `json:"work_dir" mapstructure:"work_dir"`
		DefaultLocation  string             `json:"default_location" mapstructure:"default_location"`
		ArchivePattern   string             `json:"archive_pattern" mapstructure:"archive_pattern"`
		UseCache         bool               `json:"use_cache" mapstructure:"use_cache"`
		ValidateArchives bool               `json:"validate_archives" mapstructure:"validate_archives"`
		Strategy         RepositoryStrategy `json:"strategy" mapstructure:"strategy"`
		LogLevel         LogLevel           `json:"log_level" mapstructure:"log_level"`
		Overrides        []string           `json:"overrides" mapstructure:"overrides"`
		Extensions       []Extension        `json:"extensions" mapstructure:"extensions"`
	}
)

// String returns the strategy name.
func (s RepositoryStrategy) String() string { return string(s) }

// Validate returns ErrInvalidStrategy if the value is not a known strategy.
func (s RepositoryStrategy) Validate() error {
	switch s {
	case StrategyDescriptor, StrategyName:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: descriptor, name)", ErrInvalidStrategy, string(s))
	}
}

// String returns the level name.
func (l LogLevel) String() string { return string(l) }

// Validate returns ErrInvalidLogLevel if the value is not a known level.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: debug, info, warn, error)", ErrInvalidLogLevel, string(l))
	}
}

// Validate checks that the extension has a name and an install directory.
func (e Extension) Validate() error {
	var errs []error
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, errors.New("name must not be empty"))
	} else if e.Name == reservedCoreName {
		errs = append(errs, fmt.Errorf("name %q is reserved", reservedCoreName))
	}
	if strings.TrimSpace(e.InstallDir) == "" {
		errs = append(errs, errors.New("install_dir must not be empty"))
	}
	if len(errs) > 0 {
		return &InvalidExtensionError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("invalid extension: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidExtension for errors.Is() compatibility.
func (e *InvalidExtensionError) Unwrap() error { return ErrInvalidExtension }

// Validate checks every field and the constraints the schema cannot express,
// such as unique extension names.
func (c Config) Validate() error {
	var errs []error
	if err := c.Strategy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.DefaultLocation) == "" {
		errs = append(errs, errors.New("default_location must not be empty"))
	}
	if strings.TrimSpace(c.ArchivePattern) == "" {
		errs = append(errs, errors.New("archive_pattern must not be empty"))
	}

	seen := make(map[string]int, len(c.Extensions))
	for i, ext := range c.Extensions {
		if err := ext.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("extensions[%d]: %w", i, err))
			continue
		}
		if first, dup := seen[ext.Name]; dup {
			errs = append(errs, fmt.Errorf("extensions[%d]: duplicate name %q (same as extensions[%d])", i, ext.Name, first))
			continue
		}
		seen[ext.Name] = i
	}

	for i, id := range c.Overrides {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Errorf("overrides[%d]: identifier must not be empty", i))
		}
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultLocation:  "lib/",
		ArchivePattern:   "*.jar",
		UseCache:         true,
		ValidateArchives: false,
		Strategy:         StrategyDescriptor,
		LogLevel:         LogLevelWarn,
		Overrides:        []string{"kernel.boot", "kernel.launcher"},
		Extensions:       []Extension{},
	}
}
