package adapters

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"pinfetch/internal/types"
)

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func stageEntry(t *testing.T, cache ArtifactCacheDirAdapter, body string) string {
	t.Helper()
	staging, err := cache.Stage(t.Context())
	require.NoError(t, err)
	contents := filepath.Join(staging, types.CacheContentsDir)
	require.NoError(t, os.MkdirAll(contents, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(contents, "default.nix"), []byte(body), 0644))
	return staging
}

func testEntry(key string, fetchedAt time.Time) types.CacheEntry {
	return types.CacheEntry{
		Key:        key,
		SourceURL:  "https://example.test/archive.tar",
		Revision:   "abc123",
		Digest:     "sha256:0123",
		Format:     types.ArchiveFormatTar,
		Size:       10,
		FetchedAt:  fetchedAt,
		LastUsedAt: fetchedAt,
	}
}

func TestArtifactCacheDirAdapterCommitAndLookup(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewArtifactCacheDirAdapter(t.TempDir())
	cache.Clock = fixedClock(now)
	ctx := t.Context()

	_, found, err := cache.Lookup(ctx, "sha256-0123")
	require.NoError(t, err)
	require.False(t, found)

	staging := stageEntry(t, cache, "first")
	committed, err := cache.Commit(ctx, staging, testEntry("sha256-0123", now))
	require.NoError(t, err)
	_, err = os.Stat(staging)
	require.True(t, os.IsNotExist(err))

	got, found, err := cache.Lookup(ctx, "sha256-0123")
	require.NoError(t, err)
	require.True(t, found)
	if diff := cmp.Diff(committed, got); diff != "" {
		t.Fatalf("unexpected entry (-want +got):\n%s", diff)
	}
	data, err := os.ReadFile(filepath.Join(cache.ContentsPath(got), "default.nix"))
	require.NoError(t, err)
	require.Equal(t, "first", string(data))
}

func TestArtifactCacheDirAdapterFirstCommitWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewArtifactCacheDirAdapter(t.TempDir())
	ctx := t.Context()

	first := stageEntry(t, cache, "first")
	second := stageEntry(t, cache, "second")
	_, err := cache.Commit(ctx, first, testEntry("sha256-0123", now))
	require.NoError(t, err)

	late := testEntry("sha256-0123", now.Add(time.Minute))
	got, err := cache.Commit(ctx, second, late)
	require.NoError(t, err)
	require.True(t, got.FetchedAt.Equal(now))
	_, err = os.Stat(second)
	require.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(cache.ContentsPath(got), "default.nix"))
	require.NoError(t, err)
	require.Equal(t, "first", string(data))
}

func TestArtifactCacheDirAdapterTouch(t *testing.T) {
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	used := fetched.Add(48 * time.Hour)
	cache := NewArtifactCacheDirAdapter(t.TempDir())
	ctx := t.Context()

	entry, err := cache.Commit(ctx, stageEntry(t, cache, "x"), testEntry("sha256-0123", fetched))
	require.NoError(t, err)

	cache.Clock = fixedClock(used)
	require.NoError(t, cache.Touch(ctx, entry))

	got, found, err := cache.Lookup(ctx, "sha256-0123")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, got.LastUsedAt.Equal(used))
	require.True(t, got.FetchedAt.Equal(fetched))
}

func TestArtifactCacheDirAdapterListAndDelete(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewArtifactCacheDirAdapter(t.TempDir())
	ctx := t.Context()

	for _, key := range []string{"sha256-bbbb", "rev-aaaa", "sha256-aaaa"} {
		_, err := cache.Commit(ctx, stageEntry(t, cache, key), testEntry(key, now))
		require.NoError(t, err)
	}
	// An uncommitted staging directory is never listed.
	stageEntry(t, cache, "pending")

	entries, err := cache.List(ctx)
	require.NoError(t, err)
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Key)
	}
	if diff := cmp.Diff([]string{"rev-aaaa", "sha256-aaaa", "sha256-bbbb"}, keys); diff != "" {
		t.Fatalf("unexpected keys (-want +got):\n%s", diff)
	}

	require.NoError(t, cache.Delete(ctx, "rev-aaaa"))
	_, found, err := cache.Lookup(ctx, "rev-aaaa")
	require.NoError(t, err)
	require.False(t, found)

	err = cache.Delete(ctx, "rev-aaaa")
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestArtifactCacheDirAdapterListEmpty(t *testing.T) {
	entries, err := NewArtifactCacheDirAdapter(filepath.Join(t.TempDir(), "absent")).List(t.Context())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestArtifactCacheDirAdapterCleanStaging(t *testing.T) {
	now := time.Now()
	cache := NewArtifactCacheDirAdapter(t.TempDir())
	ctx := t.Context()

	stale := stageEntry(t, cache, "stale")
	fresh := stageEntry(t, cache, "fresh")
	old := now.Add(-2 * types.StagingMaxAge)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed, err := cache.CleanStaging(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	_, err = os.Stat(stale)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	require.NoError(t, err)
}

func TestArtifactCacheDirAdapterRejectsBadInput(t *testing.T) {
	ctx := t.Context()
	_, _, err := ArtifactCacheDirAdapter{}.Lookup(ctx, "sha256-0123")
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	cache := NewArtifactCacheDirAdapter(t.TempDir())
	for _, key := range []string{"", "..", "a/b"} {
		_, _, err := cache.Lookup(ctx, key)
		require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err), "key %q", key)
	}
}

func TestArtifactCacheDirAdapterCorruptEntry(t *testing.T) {
	cache := NewArtifactCacheDirAdapter(t.TempDir())
	dir := filepath.Join(cache.Dir, "entries", "sha256-0123")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, types.CacheEntryFile), []byte("key: [broken"), 0644))

	_, _, err := cache.Lookup(t.Context(), "sha256-0123")
	require.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))

	entries, err := cache.List(t.Context())
	require.NoError(t, err)
	require.Empty(t, entries)
}
