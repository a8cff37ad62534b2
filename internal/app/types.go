package app

import "pinfetch/internal/types"

// FetchOptions carries the cache and verification settings shared by
// every command that fetches.
type FetchOptions struct {
	CacheDir         string
	Keyring          string
	RequireIntegrity bool
	TimeoutSec       int
}

type ValidateRequest struct {
	PinPath          string
	RequireIntegrity bool
}

type ValidateResult struct {
	Pin      types.PinRecord
	CacheKey string
}

type FetchRequest struct {
	PinPath string
	FetchOptions
}

type FetchResult struct {
	Artifact types.FetchedArtifact
}

type ImportRequest struct {
	PinPath     string
	ComposePath string
	OutputPath  string
	FetchOptions
}

type ImportResult struct {
	Handle     types.ImportHandle
	OutputPath string
}

type PrefetchRequest struct {
	Name         string
	SourceURL    string
	Revision     string
	SignatureURL string
	PinPath      string
	FetchOptions
}

type PrefetchResult struct {
	Pin      types.PinRecord
	Artifact types.FetchedArtifact
	PinPath  string
}

type CacheListRequest struct {
	CacheDir string
}

type CacheListResult struct {
	Entries []types.CacheEntry
}

type CachePruneRequest struct {
	CacheDir    string
	KeepLast    int
	KeepDays    int
	ProtectKeys []string
	Order       string
	DryRun      bool
}

type CachePruneResult struct {
	KeepCount      int
	DeleteCount    int
	Deleted        []string
	StagingRemoved int
	DryRun         bool
}
