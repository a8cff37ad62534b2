package ports

import (
	"context"

	"pinfetch/internal/types"
)

// ArtifactCachePort is the on-disk archive cache. Entries become visible
// only through Commit, which is atomic with respect to concurrent readers
// and writers of the same key.
type ArtifactCachePort interface {
	Lookup(ctx context.Context, key string) (types.CacheEntry, bool, error)
	ContentsPath(entry types.CacheEntry) string
	Stage(ctx context.Context) (string, error)
	Commit(ctx context.Context, stagingDir string, entry types.CacheEntry) (types.CacheEntry, error)
	Discard(stagingDir string)
	Touch(ctx context.Context, entry types.CacheEntry) error
	List(ctx context.Context) ([]types.CacheEntry, error)
	Delete(ctx context.Context, key string) error
	CleanStaging(ctx context.Context) (int, error)
}
