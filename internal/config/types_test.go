// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestRepositoryStrategy_Validate(t *testing.T) {
	t.Parallel()

	for _, s := range []RepositoryStrategy{StrategyDescriptor, StrategyName} {
		if err := s.Validate(); err != nil {
			t.Errorf("%q.Validate() = %v", s, err)
		}
	}
	if err := RepositoryStrategy("guess").Validate(); !errors.Is(err, ErrInvalidStrategy) {
		t.Errorf("unknown strategy: err = %v, want ErrInvalidStrategy", err)
	}
}

func TestLogLevel_Validate(t *testing.T) {
	t.Parallel()

	for _, l := range []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		if err := l.Validate(); err != nil {
			t.Errorf("%q.Validate() = %v", l, err)
		}
	}
	if err := LogLevel("trace").Validate(); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("unknown level: err = %v, want ErrInvalidLogLevel", err)
	}
}

func TestExtension_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ext  Extension
		ok   bool
	}{
		{"valid", Extension{Name: "ext", InstallDir: "/opt/ext"}, true},
		{"empty name", Extension{InstallDir: "/opt/ext"}, false},
		{"reserved name", Extension{Name: "core", InstallDir: "/opt/ext"}, false},
		{"empty dir", Extension{Name: "ext"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.ext.Validate()
			if tt.ok {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidExtension) {
				t.Errorf("Validate() = %v, want ErrInvalidExtension", err)
			}
		})
	}
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := Config{Strategy: "x", LogLevel: "y", Overrides: []string{""}}
	err := cfg.Validate()

	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Validate() = %T, want *InvalidConfigError", err)
	}
	// strategy, log level, default_location, archive_pattern, overrides[0]
	if len(cfgErr.FieldErrors) != 5 {
		t.Errorf("FieldErrors = %d, want 5: %v", len(cfgErr.FieldErrors), cfgErr)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("should wrap ErrInvalidConfig")
	}
}
