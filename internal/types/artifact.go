package types

import "time"

// FetchedArtifact is a verified, extracted archive in the local cache.
type FetchedArtifact struct {
	Path      string
	Key       string
	Digest    string
	SourceURL string
	Revision  string
	FetchedAt time.Time
	FromCache bool
}

// CacheEntry is the metadata committed next to an extracted archive.
// Its presence marks the entry as complete.
type CacheEntry struct {
	Key        string        `yaml:"key"`
	SourceURL  string        `yaml:"sourceURL"`
	Revision   string        `yaml:"revision"`
	Digest     string        `yaml:"digest"`
	Format     ArchiveFormat `yaml:"format"`
	Size       int64         `yaml:"size"`
	FetchedAt  time.Time     `yaml:"fetchedAt"`
	LastUsedAt time.Time     `yaml:"lastUsedAt"`

	// SignatureURL is the detached signature the archive was verified
	// against before commit, if any.
	SignatureURL string `yaml:"signatureURL,omitempty"`

	// Dir is the entry directory on disk. It is filled in by the cache
	// when listing and never serialized.
	Dir string `yaml:"-"`
}

// Artifact converts a committed entry into the handle returned to callers.
func (e CacheEntry) Artifact(contentsPath string, fromCache bool) FetchedArtifact {
	return FetchedArtifact{
		Path:      contentsPath,
		Key:       e.Key,
		Digest:    e.Digest,
		SourceURL: e.SourceURL,
		Revision:  e.Revision,
		FetchedAt: e.FetchedAt,
		FromCache: fromCache,
	}
}

// StagedArchive is a downloaded archive waiting for verification and
// extraction inside a staging directory.
type StagedArchive struct {
	Dir         string
	ArchivePath string
	Digest      string
	Size        int64
}

// Names inside a cache entry or staging directory.
const (
	CacheEntryFile   = "entry.yaml"
	CacheContentsDir = "contents"
	CacheArchiveFile = "archive"
)
