package types

import "time"

type CacheRetentionPolicy struct {
	KeepLast    int
	KeepDays    int
	ProtectKeys []string
	Order       PruneOrder
	DryRun      bool
}

type CachePrunePlan struct {
	Keep   []CacheEntry
	Delete []CacheEntry
}

// StagingMaxAge is how long an abandoned staging directory survives
// before cache cleanup removes it.
const StagingMaxAge = time.Hour
