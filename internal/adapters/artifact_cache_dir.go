package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"pinfetch/internal/ports"
	"pinfetch/internal/types"
)

const (
	cacheEntriesDir = "entries"
	cacheStagingDir = "staging"
)

// ArtifactCacheDirAdapter keeps extracted archives under
// <Dir>/entries/<key>. Entries are assembled in <Dir>/staging and renamed
// into place, so a visible entry directory is always complete.
type ArtifactCacheDirAdapter struct {
	Dir   string
	Clock func() time.Time
}

func NewArtifactCacheDirAdapter(dir string) ArtifactCacheDirAdapter {
	return ArtifactCacheDirAdapter{Dir: dir, Clock: time.Now}
}

func (a ArtifactCacheDirAdapter) Lookup(ctx context.Context, key string) (types.CacheEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.CacheEntry{}, false, err
	}
	entryDir, err := a.entryDir(key)
	if err != nil {
		return types.CacheEntry{}, false, err
	}
	data, err := os.ReadFile(filepath.Join(entryDir, types.CacheEntryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return types.CacheEntry{}, false, nil
		}
		return types.CacheEntry{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read cache entry").
			WithCause(err)
	}
	var entry types.CacheEntry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return types.CacheEntry{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cache entry metadata is corrupt; remove %s", entryDir)).
			WithCause(err)
	}
	entry.Key = key
	entry.Dir = entryDir
	return entry, true, nil
}

func (a ArtifactCacheDirAdapter) ContentsPath(entry types.CacheEntry) string {
	return filepath.Join(entry.Dir, types.CacheContentsDir)
}

func (a ArtifactCacheDirAdapter) Stage(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	root, err := a.ensureDir(cacheStagingDir)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, uuid.NewString())
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create staging directory").
			WithCause(err)
	}
	return dir, nil
}

// Commit writes entry metadata into stagingDir and renames it into place.
// If another writer already committed the key, the staged copy is dropped
// and the existing entry is returned. The staging directory is consumed
// in every case.
func (a ArtifactCacheDirAdapter) Commit(ctx context.Context, stagingDir string, entry types.CacheEntry) (types.CacheEntry, error) {
	defer a.Discard(stagingDir)
	entryDir, err := a.entryDir(entry.Key)
	if err != nil {
		return types.CacheEntry{}, err
	}
	if err := writeEntryFile(filepath.Join(stagingDir, types.CacheEntryFile), entry); err != nil {
		return types.CacheEntry{}, err
	}
	if _, err := a.ensureDir(cacheEntriesDir); err != nil {
		return types.CacheEntry{}, err
	}
	if err := os.Rename(stagingDir, entryDir); err != nil {
		existing, found, lookupErr := a.Lookup(ctx, entry.Key)
		if lookupErr == nil && found {
			log.Ctx(ctx).Debug().Str("key", entry.Key).Msg("cache entry committed concurrently; keeping existing")
			return existing, nil
		}
		return types.CacheEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to commit cache entry").
			WithCause(err)
	}
	entry.Dir = entryDir
	log.Ctx(ctx).Debug().Str("key", entry.Key).Str("dir", entryDir).Msg("cache entry committed")
	return entry, nil
}

func (a ArtifactCacheDirAdapter) Discard(stagingDir string) {
	if strings.TrimSpace(stagingDir) == "" {
		return
	}
	if err := os.RemoveAll(stagingDir); err != nil {
		log.Debug().Err(err).Str("dir", stagingDir).Msg("failed to remove staging directory")
	}
}

// Touch records a cache hit by atomically rewriting lastUsedAt.
func (a ArtifactCacheDirAdapter) Touch(ctx context.Context, entry types.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entryDir, err := a.entryDir(entry.Key)
	if err != nil {
		return err
	}
	entry.LastUsedAt = a.now()
	return writeEntryFile(filepath.Join(entryDir, types.CacheEntryFile), entry)
}

func (a ArtifactCacheDirAdapter) List(ctx context.Context) ([]types.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Dir) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cache directory is empty")
	}
	dirEntries, err := os.ReadDir(filepath.Join(a.Dir, cacheEntriesDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []types.CacheEntry{}, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read cache directory").
			WithCause(err)
	}
	entries := []types.CacheEntry{}
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}
		entry, found, err := a.Lookup(ctx, dirEntry.Name())
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", dirEntry.Name()).Msg("skipping unreadable cache entry")
			continue
		}
		if !found {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

// Delete moves the entry out of entries/ before removing it so lookups
// never observe a half-deleted tree.
func (a ArtifactCacheDirAdapter) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entryDir, err := a.entryDir(key)
	if err != nil {
		return err
	}
	stagingRoot, err := a.ensureDir(cacheStagingDir)
	if err != nil {
		return err
	}
	trash := filepath.Join(stagingRoot, "deleted-"+uuid.NewString())
	if err := os.Rename(entryDir, trash); err != nil {
		if os.IsNotExist(err) {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("cache entry not found")
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to delete cache entry").
			WithCause(err)
	}
	if err := os.RemoveAll(trash); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to remove deleted cache entry").
			WithCause(err)
	}
	return nil
}

// CleanStaging removes staging directories abandoned by crashed fetches.
func (a ArtifactCacheDirAdapter) CleanStaging(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(a.Dir) == "" {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cache directory is empty")
	}
	stagingRoot := filepath.Join(a.Dir, cacheStagingDir)
	dirEntries, err := os.ReadDir(stagingRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read staging directory").
			WithCause(err)
	}
	cutoff := a.now().Add(-types.StagingMaxAge)
	removed := 0
	for _, dirEntry := range dirEntries {
		info, err := dirEntry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(stagingRoot, dirEntry.Name())); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("dir", dirEntry.Name()).Msg("failed to remove stale staging directory")
			continue
		}
		removed++
	}
	return removed, nil
}

func (a ArtifactCacheDirAdapter) entryDir(key string) (string, error) {
	if strings.TrimSpace(a.Dir) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cache directory is empty")
	}
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid cache key %q", key))
	}
	return filepath.Join(a.Dir, cacheEntriesDir, key), nil
}

func (a ArtifactCacheDirAdapter) ensureDir(name string) (string, error) {
	if strings.TrimSpace(a.Dir) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cache directory is empty")
	}
	dir := filepath.Join(a.Dir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create cache directory").
			WithCause(err)
	}
	return dir, nil
}

func (a ArtifactCacheDirAdapter) now() time.Time {
	if a.Clock == nil {
		return time.Now().UTC()
	}
	return a.Clock().UTC()
}

func writeEntryFile(path string, entry types.CacheEntry) error {
	data, err := yaml.Marshal(entry)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode cache entry").
			WithCause(err)
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write cache entry").
			WithCause(err)
	}
	return nil
}

var _ ports.ArtifactCachePort = ArtifactCacheDirAdapter{}
