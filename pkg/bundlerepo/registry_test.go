// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/bundlerepo/bundlerepo/internal/testutil"
	"github.com/bundlerepo/bundlerepo/pkg/version"
)

func newTestRegistry(t *testing.T, workDir string) *Registry {
	t.Helper()
	return NewRegistry(RegistryOptions{Options: quietOptions(), WorkDir: workDir})
}

func TestRegistry_FirstRegistrationWins(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, "")
	require.True(t, reg.AddRepository("ext", "/first"))
	require.False(t, reg.AddRepository("ext", "/second"))

	dir, ok := reg.InstallDir("ext")
	require.True(t, ok)
	require.Equal(t, "/first", dir)
	require.Equal(t, []string{"ext"}, reg.Names())
}

func TestRegistry_LazyConstruction(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, t.TempDir())
	reg.AddRepository(CoreName, t.TempDir())

	first, ok := reg.Repository(CoreName)
	require.True(t, ok)
	second, ok := reg.Repository(CoreName)
	require.True(t, ok)
	require.Same(t, first, second, "repository should be built once")

	_, ok = reg.Repository("missing")
	require.False(t, ok)

	content, ok := first.(*ContentRepository)
	require.True(t, ok, "default strategy should build a ContentRepository")
	require.Equal(t, reg.CachePath(CoreName), content.CachePath())
}

func TestRegistry_InitializeDefaults(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, "")
	reg.InitializeDefaults("/opt/app", "/opt/app/usr/extension")
	reg.InitializeDefaults("/elsewhere", "")

	require.Equal(t, []string{CoreName, UserName}, reg.Names())
	dir, _ := reg.InstallDir(CoreName)
	require.Equal(t, "/opt/app", dir)

	only := newTestRegistry(t, "")
	only.InitializeDefaults("/opt/app", "")
	require.Equal(t, []string{CoreName}, only.Names())
}

func TestRegistry_NameStrategy(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(RegistryOptions{Options: quietOptions(), WorkDir: t.TempDir(), Strategy: StrategyName})
	reg.AddRepository(CoreName, t.TempDir())

	repo, ok := reg.Repository(CoreName)
	require.True(t, ok)
	_, isName := repo.(*NameRepository)
	require.True(t, isName)
	require.Empty(t, reg.CachePath(CoreName))
}

func TestRegistry_CachePath(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	reg := newTestRegistry(t, work)
	require.Equal(t, filepath.Join(work, "repositories", "core.cache"), reg.CachePath("core"))
	require.Equal(t, filepath.Join(work, "repositories", "my_ext.cache"), reg.CachePath("my/ext"))
	require.Equal(t, filepath.Join(work, "repositories", "_.cache"), reg.CachePath(""))
	require.Equal(t, filepath.Join(work, "repositories", "_con.cache"), reg.CachePath("con"))

	off := NewRegistry(RegistryOptions{WorkDir: work, DisableCache: true})
	require.Empty(t, off.CachePath("core"))
	require.Empty(t, newTestRegistry(t, "").CachePath("core"))
}

func TestRegistry_DisposeAllFlushesAndClears(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	testutil.WriteBase(t, filepath.Join(install, "lib"), "a", "1.0.0")
	ext := t.TempDir()
	testutil.WriteBase(t, filepath.Join(ext, "lib"), "b", "1.0.0")

	reg := newTestRegistry(t, t.TempDir())
	reg.InitializeDefaults(install, ext)
	reg.AddRepository("never-used", t.TempDir())

	core, _ := reg.Repository(CoreName)
	_, ok := core.SelectResource("", "a", version.MatchAll)
	require.True(t, ok)
	usr, _ := reg.Repository(UserName)
	_, ok = usr.SelectResource("", "b", version.MatchAll)
	require.True(t, ok)

	corePath := reg.CachePath(CoreName)
	usrPath := reg.CachePath(UserName)
	unusedPath := reg.CachePath("never-used")
	reg.DisposeAll()

	require.Empty(t, reg.Names())
	_, ok = reg.Repository(CoreName)
	require.False(t, ok)

	recs, _, err := LoadCacheFile(corePath)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "a", recs[0].Identifier)

	recs, _, err = LoadCacheFile(usrPath)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	_, _, err = LoadCacheFile(unusedPath)
	require.Error(t, err, "repositories never built must not write a cache")
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	testutil.WriteBase(t, filepath.Join(install, "lib"), "a", "1.0.0")

	reg := newTestRegistry(t, t.TempDir())
	reg.AddRepository(CoreName, install)

	var wg sync.WaitGroup
	repos := make([]Repository, 16)
	for i := range repos {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.AddRepository(CoreName, "/ignored")
			repo, ok := reg.Repository(CoreName)
			if !ok {
				return
			}
			repos[i] = repo
			repo.SelectResource("", "a", version.MatchAll)
		}(i)
	}
	wg.Wait()

	for _, r := range repos {
		require.Same(t, repos[0], r)
	}
	require.Len(t, repos[0].Candidates("a"), 1)
}

func TestStrategy_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Strategy("").Validate())
	require.NoError(t, StrategyDescriptor.Validate())
	require.NoError(t, StrategyName.Validate())
	err := Strategy("magic").Validate()
	require.True(t, errors.Is(err, ErrInvalidStrategy))
}

func TestMetrics_RegisterAndNilSafe(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.selection("core", true)
	m.selection("core", false)
	m.orphan("core")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["bundlerepo_selections_total"])
	require.True(t, names["bundlerepo_orphan_fixes_total"])

	var none *Metrics
	require.NotPanics(t, func() {
		none.scan("core")
		none.archiveRead("core")
		none.archiveSkipped("core")
		none.cacheEntry("core", CacheTrusted)
		none.cacheWrite("core", nil)
		none.selection("core", true)
		none.orphan("core")
		none.candidates("core", 3)
	})
}
