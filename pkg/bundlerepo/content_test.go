// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bundlerepo/bundlerepo/internal/testutil"
	"github.com/bundlerepo/bundlerepo/pkg/version"
)

func quietOptions() Options {
	return Options{Logger: log.New(io.Discard)}
}

func TestContentRepository_FixOverlaysBase(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	testutil.WriteBase(t, lib, "x", "1.0.0")
	fix := testutil.WriteFix(t, lib, "x", "1.0.1.fix")

	repo := NewContentRepository("core", install, "", quietOptions())
	got, ok := repo.SelectResource("lib/", "x", version.MustParseRange("[1,2)"))
	if !ok || got != fix {
		t.Errorf("SelectResource() = %q, %v; want %q", got, ok, fix)
	}
}

func TestContentRepository_OrphanFix(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	testutil.WriteFix(t, filepath.Join(install, "lib"), "x", "1.0.1.fix")

	var orphans orphanLog
	opts := quietOptions()
	opts.OnOrphan = orphans.add
	repo := NewContentRepository("core", install, "", opts)

	if got, ok := repo.SelectResource("lib/", "x", version.MustParseRange("[1,2)")); ok {
		t.Errorf("SelectResource() = %q, want not found", got)
	}
	// A second pass must not warn again for the same archive.
	repo.SelectResource("", "x", version.MustParseRange("[1,2)"))

	if len(orphans) != 1 {
		t.Fatalf("orphan warnings = %d, want 1", len(orphans))
	}
	if orphans[0].Identifier != "x" || orphans[0].Triple() != "1.0.1" {
		t.Errorf("orphan = %+v", orphans[0])
	}
}

func TestContentRepository_StaleCacheEntry(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	cachePath := filepath.Join(t.TempDir(), "work", "core.cache")
	path := testutil.WriteBase(t, lib, "x", "1.0.0")

	first := NewContentRepository("core", install, cachePath, quietOptions())
	first.IncludeSearchRoot("lib")
	first.Dispose()

	// Same name and mtime, different size and content.
	testutil.WriteBundle(t, lib, "x_1.0.0.jar", testutil.Bundle{Identifier: "x", Version: "1.5.0", Fix: false, Padding: 4096})
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	metrics := NewMetrics(nil)
	opts := quietOptions()
	opts.Metrics = metrics
	second := NewContentRepository("core", install, cachePath, opts)
	got, ok := second.Resolve("lib/", "x", version.MatchAll, ModeOverlay)
	if !ok {
		t.Fatal("Resolve() found nothing after the archive changed")
	}
	if got.Version.String() != "1.5.0" || got.Size != info.Size() {
		t.Errorf("Resolve() = %+v, want re-derived version 1.5.0 and size %d", got, info.Size())
	}
	if n := promtest.ToFloat64(metrics.CacheEntries.WithLabelValues("core", CacheRederived)); n != 1 {
		t.Errorf("rederived entries = %v, want 1", n)
	}
	second.Dispose()

	recs, _, err := LoadCacheFile(cachePath)
	if err != nil {
		t.Fatalf("LoadCacheFile() error: %v", err)
	}
	if len(recs) != 1 || recs[0].Size != info.Size() || recs[0].Version.String() != "1.5.0" {
		t.Errorf("persisted cache = %+v, want size %d", recs, info.Size())
	}
}

func TestContentRepository_CommaSeparatedRoots(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(install, "a"), 0o755)
	want := testutil.WriteBase(t, filepath.Join(install, "b"), "y", "2.0.0")

	metrics := NewMetrics(nil)
	opts := quietOptions()
	opts.Metrics = metrics
	repo := NewContentRepository("core", install, "", opts)

	got, ok := repo.SelectResource("a/,b/", "y", version.MustParseRange("[1,3)"))
	if !ok || got != want {
		t.Errorf("SelectResource() = %q, %v; want %q", got, ok, want)
	}
	if n := promtest.ToFloat64(metrics.Scans.WithLabelValues("core")); n != 2 {
		t.Errorf("scans = %v, want 2", n)
	}
}

func TestContentRepository_RootSpellingsShareRecords(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	want := testutil.WriteBase(t, lib, "x", "1.0.0")
	r := version.MustParseRange("[1,2)")

	relFirst := NewContentRepository("core", install, "", quietOptions())
	if got, ok := relFirst.SelectResource("lib/", "x", r); !ok || got != want {
		t.Fatalf("SelectResource(lib/) = %q, %v", got, ok)
	}
	if got, ok := relFirst.SelectResource(lib, "x", r); !ok || got != want {
		t.Errorf("SelectResource(abs) after lib/ = %q, %v; want %q", got, ok, want)
	}

	absFirst := NewContentRepository("core", install, "", quietOptions())
	if got, ok := absFirst.SelectResource(lib+string(filepath.Separator), "x", r); !ok || got != want {
		t.Fatalf("SelectResource(abs) = %q, %v", got, ok)
	}
	if got, ok := absFirst.SelectResource("./lib", "x", r); !ok || got != want {
		t.Errorf("SelectResource(./lib) after abs = %q, %v; want %q", got, ok, want)
	}
}

func TestContentRepository_RootSpellingsFromCache(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	want := testutil.WriteBase(t, lib, "x", "1.0.0")
	cache := filepath.Join(t.TempDir(), "core.cache")

	first := NewContentRepository("core", install, cache, quietOptions())
	first.IncludeLocations("lib/")
	first.Dispose()

	second := NewContentRepository("core", install, cache, quietOptions())
	if got, ok := second.SelectResource(lib, "x", version.MatchAll); !ok || got != want {
		t.Errorf("SelectResource(abs) over cached lib/ = %q, %v; want %q", got, ok, want)
	}
}

func TestContentRepository_RecordsIn(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	testutil.WriteBase(t, filepath.Join(install, "lib"), "a", "1.0.0")
	testutil.WriteBase(t, filepath.Join(install, "lib"), "b", "1.0.0")
	dev := testutil.WriteBase(t, filepath.Join(install, "dev"), "a", "2.0.0")

	repo := NewContentRepository("core", install, "", quietOptions())
	repo.IncludeLocations("lib/,dev/")

	if got := repo.RecordsIn("lib/", ""); len(got) != 2 {
		t.Errorf("RecordsIn(lib/) = %+v, want the two lib/ records", got)
	}
	got := repo.RecordsIn(filepath.Join(install, "dev"), "a")
	if len(got) != 1 || got[0].Path != dev {
		t.Errorf("RecordsIn(abs dev, a) = %+v, want only %q", got, dev)
	}
	if got := repo.RecordsIn("dev/", "b"); len(got) != 0 {
		t.Errorf("RecordsIn(dev/, b) = %+v, want none", got)
	}
}

func TestContentRepository_IncludeSearchRootIsIdempotent(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	testutil.WriteBase(t, lib, "x", "1.0.0")
	testutil.WriteBase(t, lib, "x", "1.1.0")

	repo := NewContentRepository("core", install, "", quietOptions())
	repo.IncludeSearchRoot("lib")
	once := repo.Records()
	repo.IncludeSearchRoot("lib/")
	repo.IncludeSearchRoot(" ./lib ")
	twice := repo.Records()

	if len(once) != 2 || len(twice) != 2 {
		t.Fatalf("records after one scan = %d, after repeats = %d; want 2 and 2", len(once), len(twice))
	}
	for i := range once {
		if once[i].Key() != twice[i].Key() {
			t.Errorf("record %d changed: %s vs %s", i, once[i].Key(), twice[i].Key())
		}
	}
}

func TestContentRepository_CacheRoundTrip(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	testutil.WriteBase(t, lib, "a", "1.0.0")
	testutil.WriteFix(t, lib, "a", "1.0.0.fix1")
	testutil.WriteBase(t, filepath.Join(install, "lib", "extra"), "b", "2.0.0")
	cachePath := filepath.Join(t.TempDir(), "core.cache")

	first := NewContentRepository("core", install, cachePath, quietOptions())
	first.IncludeLocations("lib, lib/extra")
	want := first.Records()
	first.Dispose()

	metrics := NewMetrics(nil)
	opts := quietOptions()
	opts.Metrics = metrics
	second := NewContentRepository("core", install, cachePath, opts)
	second.IncludeLocations("lib,lib/extra")
	got := second.Records()

	if len(got) != len(want) || len(got) != 3 {
		t.Fatalf("records = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Key() != want[i].Key() || got[i].Patch != want[i].Patch || got[i].SearchRoot != want[i].SearchRoot {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if n := promtest.ToFloat64(metrics.ArchivesRead.WithLabelValues("core")); n != 0 {
		t.Errorf("descriptors read on warm start = %v, want 0", n)
	}
	if n := promtest.ToFloat64(metrics.CacheEntries.WithLabelValues("core", CacheTrusted)); n != 3 {
		t.Errorf("trusted entries = %v, want 3", n)
	}
}

func TestContentRepository_DisposeWritesOnlyWhenChanged(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	testutil.WriteBase(t, filepath.Join(install, "lib"), "a", "1.0.0")
	cachePath := filepath.Join(t.TempDir(), "core.cache")

	first := NewContentRepository("core", install, cachePath, quietOptions())
	first.IncludeSearchRoot("lib")
	first.Dispose()

	// Replace the cache with a marker; an unchanged pass must leave it alone.
	stamp, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	marked := append(stamp, []byte("\n")...)
	if err := os.WriteFile(cachePath, marked, 0o644); err != nil {
		t.Fatal(err)
	}

	second := NewContentRepository("core", install, cachePath, quietOptions())
	second.IncludeSearchRoot("lib")
	second.Dispose()

	after, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(marked) {
		t.Error("cache was rewritten although nothing changed")
	}
}

func TestContentRepository_MissingArchiveDroppedFromCache(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	gone := testutil.WriteBase(t, lib, "a", "1.0.0")
	testutil.WriteBase(t, lib, "b", "1.0.0")
	cachePath := filepath.Join(t.TempDir(), "core.cache")

	first := NewContentRepository("core", install, cachePath, quietOptions())
	first.IncludeSearchRoot("lib")
	first.Dispose()

	testutil.MustRemove(t, gone)

	second := NewContentRepository("core", install, cachePath, quietOptions())
	if _, ok := second.SelectResource("lib", "a", version.MatchAll); ok {
		t.Error("removed archive is still selectable")
	}
	second.Dispose()

	recs, _, err := LoadCacheFile(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Identifier != "b" {
		t.Errorf("persisted cache = %+v, want only b", recs)
	}
}

func TestContentRepository_CorruptCacheIsColdStart(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	want := testutil.WriteBase(t, filepath.Join(install, "lib"), "a", "1.0.0")
	cachePath := filepath.Join(t.TempDir(), "core.cache")
	testutil.MustWriteFile(t, cachePath, []byte("garbage\n"))

	repo := NewContentRepository("core", install, cachePath, quietOptions())
	if got, ok := repo.SelectResource("", "a", version.MatchAll); !ok || got != want {
		t.Errorf("SelectResource() = %q, %v; want %q", got, ok, want)
	}
	repo.Dispose()

	data, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), CacheHeader) {
		t.Errorf("corrupt cache was not replaced: %q", data)
	}
}

func TestContentRepository_WriteFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	testutil.WriteBase(t, filepath.Join(install, "lib"), "a", "1.0.0")
	blocker := filepath.Join(t.TempDir(), "blocker")
	testutil.MustWriteFile(t, blocker, []byte("x"))

	metrics := NewMetrics(nil)
	opts := quietOptions()
	opts.Metrics = metrics
	repo := NewContentRepository("core", install, filepath.Join(blocker, "core.cache"), opts)
	repo.IncludeSearchRoot("lib")
	repo.Dispose()

	if n := promtest.ToFloat64(metrics.CacheWrites.WithLabelValues("core", "error")); n != 1 {
		t.Errorf("failed cache writes = %v, want 1", n)
	}
}

func TestContentRepository_SkipsUndescribableArchives(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	testutil.MustWriteFile(t, filepath.Join(lib, "broken.jar"), []byte("not a zip"))
	testutil.WriteBundle(t, lib, "anon.jar", testutil.Bundle{Version: "1.0.0"})
	testutil.WriteBase(t, lib, "ok", "1.0.0")
	testutil.WriteBundle(t, lib, "ok.zip", testutil.Bundle{Identifier: "ok", Version: "9.0.0"})
	testutil.MustMkdirAll(t, filepath.Join(lib, "dir.jar"), 0o755)

	metrics := NewMetrics(nil)
	opts := quietOptions()
	opts.Metrics = metrics
	repo := NewContentRepository("core", install, "", opts)
	repo.IncludeSearchRoot("lib")

	recs := repo.Records()
	if len(recs) != 1 || recs[0].Identifier != "ok" || recs[0].Version.String() != "1.0.0" {
		t.Errorf("Records() = %+v, want only ok@1.0.0", recs)
	}
	if n := promtest.ToFloat64(metrics.ArchivesSkipped.WithLabelValues("core")); n != 2 {
		t.Errorf("skipped archives = %v, want 2", n)
	}
}

func TestContentRepository_CustomArchivePattern(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	want := testutil.WriteBundle(t, lib, "ok.zip", testutil.Bundle{Identifier: "ok", Version: "9.0.0"})
	testutil.WriteBase(t, lib, "ok", "1.0.0")

	opts := quietOptions()
	opts.ArchivePattern = "*.{zip,bundle}"
	repo := NewContentRepository("core", install, "", opts)
	if got, ok := repo.SelectResource("", "ok", version.MatchAll); !ok || got != want {
		t.Errorf("SelectResource() = %q, %v; want %q", got, ok, want)
	}
}

func TestContentRepository_ExactPath(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	bundle := testutil.WriteBase(t, filepath.Join(install, "elsewhere"), "a", "1.0.0")
	text := filepath.Join(install, "elsewhere", "notes.txt")
	testutil.MustWriteFile(t, text, []byte("hello"))

	plain := NewContentRepository("core", install, "", quietOptions())
	if got, ok := plain.SelectResource(text, "a", version.MatchAll); !ok || got != text {
		t.Errorf("unvalidated exact path = %q, %v; want %q", got, ok, text)
	}

	opts := quietOptions()
	opts.ValidateArchives = true
	strict := NewContentRepository("core", install, "", opts)
	if got, ok := strict.SelectResource("  "+bundle+" ", "a", version.MatchAll); !ok || got != bundle {
		t.Errorf("validated exact path = %q, %v; want %q", got, ok, bundle)
	}
	if got, ok := strict.SelectResource(text, "a", version.MatchAll); ok {
		t.Errorf("invalid archive accepted as exact path: %q", got)
	}
}

func TestContentRepository_AbsoluteDirectoryRoot(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	outside := t.TempDir()
	want := testutil.WriteBase(t, outside, "a", "1.0.0")

	repo := NewContentRepository("core", install, "", quietOptions())
	if got, ok := repo.SelectResource(outside, "a", version.MatchAll); !ok || got != want {
		t.Errorf("SelectResource(abs dir) = %q, %v; want %q", got, ok, want)
	}
}

func TestContentRepository_BaseResolution(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	base := testutil.WriteBundle(t, lib, "x_1.0.5.jar", testutil.Bundle{Identifier: "x", Version: "1.0.5.201601"})
	fix := testutil.WriteBundle(t, lib, "x_1.0.5.fix.jar", testutil.Bundle{Identifier: "x", Version: "1.0.5.201612", Fix: true})

	repo := NewContentRepository("core", install, "", quietOptions())
	if got, ok := repo.SelectResource("", "x", version.MatchAll); !ok || got != fix {
		t.Errorf("SelectResource() = %q, want fix %q", got, fix)
	}
	if got, ok := repo.SelectBaseResource("", "x", version.MatchAll); !ok || got != base {
		t.Errorf("SelectBaseResource() = %q, want base %q", got, base)
	}
}

func TestContentRepository_VendorFixHeaders(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	base := testutil.WriteBundle(t, lib, "y_2.0.0.jar", testutil.Bundle{Identifier: "y", Version: "2.0.0.v1"})
	fix := testutil.WriteBundle(t, lib, "y_2.0.0.fix.jar", testutil.Bundle{
		Identifier: "y",
		Version:    "2.0.0.v2",
		Headers:    map[string]string{"IBM-Interim-Fixes": "PH40001"},
	})
	testutil.WriteBundle(t, lib, "z_1.0.1.jar", testutil.Bundle{
		Identifier: "z",
		Version:    "1.0.1",
		Headers:    map[string]string{"IBM-Test-Fixes": "TF40002"},
	})

	var orphans orphanLog
	opts := quietOptions()
	opts.OnOrphan = orphans.add
	repo := NewContentRepository("core", install, "", opts)

	if got, ok := repo.SelectResource("", "y", version.MatchAll); !ok || got != fix {
		t.Errorf("SelectResource(y) = %q, %v; want fix %q", got, ok, fix)
	}
	if got, ok := repo.SelectBaseResource("", "y", version.MatchAll); !ok || got != base {
		t.Errorf("SelectBaseResource(y) = %q, %v; want base %q", got, ok, base)
	}
	if got, ok := repo.SelectResource("", "z", version.MatchAll); ok {
		t.Errorf("SelectResource(z) = %q, want not found for a lone test fix", got)
	}
	if len(orphans) != 1 || orphans[0].Identifier != "z" {
		t.Errorf("orphans = %+v, want one for z", orphans)
	}
}

func TestContentRepository_UseAfterDispose(t *testing.T) {
	t.Parallel()

	install := t.TempDir()
	testutil.WriteBase(t, filepath.Join(install, "lib"), "a", "1.0.0")

	repo := NewContentRepository("core", install, "", quietOptions())
	repo.IncludeSearchRoot("lib")
	repo.Dispose()
	repo.Dispose()

	if _, ok := repo.SelectResource("", "a", version.MatchAll); ok {
		t.Error("disposed repository still resolves")
	}
	if n := len(repo.Records()); n != 0 {
		t.Errorf("disposed repository holds %d records", n)
	}
}
