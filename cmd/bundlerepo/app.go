// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bundlerepo/bundlerepo/internal/config"
	"github.com/bundlerepo/bundlerepo/internal/issue"
	"github.com/bundlerepo/bundlerepo/pkg/bundlerepo"
)

// userExtensionDir is where the user extension lives inside an installation.
const userExtensionDir = "usr/extension"

var (
	// errInstallDirNotFound is returned when the core install root is missing.
	errInstallDirNotFound = errors.New("installation directory not found")
	// errRepositoryNotFound is returned for unregistered repository names.
	errRepositoryNotFound = errors.New("repository not found")
)

type (
	// App wires CLI services and shared dependencies. All command handlers
	// receive an App and load configuration through it.
	App struct {
		Config config.PathProvider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.PathProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// session is the per-invocation state: the effective configuration and
	// a registry built from it.
	session struct {
		cfg        *config.Config
		cfgPath    string
		installDir string
		workDir    string
		logger     *log.Logger
		registry   *bundlerepo.Registry
		metrics    *prometheus.Registry

		mu      sync.Mutex
		orphans []bundlerepo.OrphanFix
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

// loadConfig loads configuration honoring --config and applies flag
// overrides on top of the file values.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, string, error) {
	cfg, path, err := a.Config.LoadWithPath(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		a.renderIssue(issue.ConfigLoadFailedId)
		return nil, "", err
	}

	if flags.installDir != "" {
		cfg.InstallDir = flags.installDir
	}
	if flags.workDir != "" {
		cfg.WorkDir = flags.workDir
	}
	if flags.strategy != "" {
		cfg.Strategy = config.RepositoryStrategy(flags.strategy)
		if err := cfg.Strategy.Validate(); err != nil {
			return nil, "", err
		}
	}
	if flags.noCache {
		cfg.UseCache = false
	}
	if flags.validate {
		cfg.ValidateArchives = true
	}
	return cfg, path, nil
}

// newLogger builds the stderr logger for a session.
func (a *App) newLogger(cfg *config.Config, verbose bool) *log.Logger {
	level, err := log.ParseLevel(string(cfg.LogLevel))
	if err != nil {
		level = log.WarnLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// openSession loads configuration and builds a registry holding the core
// repository, the user extension when present, and configured extensions.
func (a *App) openSession(ctx context.Context, flags *rootFlagValues) (*session, error) {
	cfg, cfgPath, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}

	installDir, err := cfg.ResolveInstallDir()
	if err != nil {
		return nil, fmt.Errorf("resolve install dir: %w", err)
	}
	if info, statErr := os.Stat(installDir); statErr != nil || !info.IsDir() {
		a.renderIssue(issue.InstallDirNotFoundId)
		return nil, issue.NewErrorContext().
			WithOperation("open installation").
			WithResource(installDir).
			WithSuggestion("Pass --install-dir or set install_dir in config.cue").
			Wrap(errInstallDirNotFound).
			BuildError()
	}

	workDir, err := cfg.ResolveWorkDir()
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:        cfg,
		cfgPath:    cfgPath,
		installDir: installDir,
		workDir:    workDir,
		logger:     a.newLogger(cfg, flags.verbose),
		metrics:    prometheus.NewRegistry(),
	}

	s.registry = bundlerepo.NewRegistry(bundlerepo.RegistryOptions{
		Options: bundlerepo.Options{
			DefaultLocation:  cfg.DefaultLocation,
			ArchivePattern:   cfg.ArchivePattern,
			ValidateArchives: cfg.ValidateArchives,
			Overrides:        bundlerepo.FirstFixWins(cfg.Overrides...),
			OnOrphan:         s.onOrphan,
			Logger:           s.logger,
			Metrics:          bundlerepo.NewMetrics(s.metrics),
		},
		WorkDir:      workDir,
		DisableCache: !cfg.UseCache,
		Strategy:     bundlerepo.Strategy(cfg.Strategy),
	})

	userDir := filepath.Join(installDir, filepath.FromSlash(userExtensionDir))
	if info, statErr := os.Stat(userDir); statErr != nil || !info.IsDir() {
		userDir = ""
	}
	s.registry.InitializeDefaults(installDir, userDir)
	for _, ext := range cfg.Extensions {
		if !s.registry.AddRepository(ext.Name, ext.InstallDir) {
			s.logger.Warn("extension name already registered", "name", ext.Name)
		}
	}

	return s, nil
}

// onOrphan records and logs an orphaned interim fix.
func (s *session) onOrphan(o bundlerepo.OrphanFix) {
	s.mu.Lock()
	s.orphans = append(s.orphans, o)
	s.mu.Unlock()
	s.logger.Warn("interim fix ignored: base bundle not found",
		"artifact", o.Artifact,
		"identifier", o.Identifier,
		"version", o.Triple())
}

// Orphans returns the fixes reported so far.
func (s *session) Orphans() []bundlerepo.OrphanFix {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bundlerepo.OrphanFix, len(s.orphans))
	copy(out, s.orphans)
	return out
}

// repository returns the named repository or an actionable error.
func (s *session) repository(a *App, name string) (bundlerepo.Repository, error) {
	repo, ok := s.registry.Repository(name)
	if !ok {
		a.renderIssue(issue.RepositoryNotFoundId)
		return nil, issue.NewErrorContext().
			WithOperation("open repository").
			WithResource(name).
			WithSuggestion(fmt.Sprintf("Registered repositories: %v", s.registry.Names())).
			Wrap(errRepositoryNotFound).
			BuildError()
	}
	return repo, nil
}

// close disposes every repository, flushing caches, and optionally prints
// the gathered counters.
func (s *session) close(a *App, stats bool) {
	s.registry.DisposeAll()
	if stats {
		if err := writeStats(a.stderr, s.metrics); err != nil {
			s.logger.Warn("gather stats", "err", err)
		}
	}
}

// renderIssue writes a catalog issue to stderr. Rendering failures fall
// back to the raw markdown.
func (a *App) renderIssue(id issue.Id) {
	is := issue.Get(id)
	if is == nil {
		return
	}
	rendered, err := is.Render("dark")
	if err != nil {
		rendered = string(is.MarkdownMsg())
	}
	fmt.Fprint(a.stderr, rendered)
}
