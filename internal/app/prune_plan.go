package app

import (
	"sort"
	"strings"
	"time"

	"pinfetch/internal/core"
	"pinfetch/internal/types"
)

// BuildCachePrunePlan splits cache entries into those kept and those
// deleted. Entries are grouped by source URL; KeepLast applies per group
// in the policy's order, KeepDays keeps anything used within the window,
// and protected keys are always kept.
func BuildCachePrunePlan(entries []types.CacheEntry, policy types.CacheRetentionPolicy, now time.Time) types.CachePrunePlan {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	normalized := normalizeRetentionPolicy(policy)
	protectedKeys := normalizeSet(normalized.ProtectKeys)

	keepKeys := map[string]struct{}{}
	grouped := map[string][]types.CacheEntry{}
	for _, entry := range entries {
		if _, ok := protectedKeys[strings.ToLower(entry.Key)]; ok {
			keepKeys[entry.Key] = struct{}{}
		}
		if normalized.KeepDays > 0 {
			cutoff := now.AddDate(0, 0, -normalized.KeepDays)
			if !lastUsed(entry).Before(cutoff) {
				keepKeys[entry.Key] = struct{}{}
			}
		}
		group := retentionGroupKey(entry)
		grouped[group] = append(grouped[group], entry)
	}

	if normalized.KeepLast > 0 {
		for _, group := range grouped {
			sorted := append([]types.CacheEntry(nil), group...)
			sortGroup(sorted, normalized.Order)
			limit := normalized.KeepLast
			if limit > len(sorted) {
				limit = len(sorted)
			}
			for i := 0; i < limit; i++ {
				keepKeys[sorted[i].Key] = struct{}{}
			}
		}
	}

	var keep []types.CacheEntry
	var del []types.CacheEntry
	for _, entry := range entries {
		if _, ok := keepKeys[entry.Key]; ok {
			keep = append(keep, entry)
		} else {
			del = append(del, entry)
		}
	}
	return types.CachePrunePlan{Keep: keep, Delete: del}
}

// sortGroup orders newest first.
func sortGroup(entries []types.CacheEntry, order types.PruneOrder) {
	revisions := make([]string, 0, len(entries))
	for _, entry := range entries {
		revisions = append(revisions, entry.Revision)
	}
	revisionOrder := core.NewRevisionOrder(revisions)
	sort.SliceStable(entries, func(i, j int) bool {
		if order == types.PruneOrderRevision {
			if cmp := revisionOrder.Compare(entries[i].Revision, entries[j].Revision); cmp != 0 {
				return cmp > 0
			}
		}
		li, lj := lastUsed(entries[i]), lastUsed(entries[j])
		if !li.Equal(lj) {
			return li.After(lj)
		}
		return entries[i].Key < entries[j].Key
	})
}

func lastUsed(entry types.CacheEntry) time.Time {
	if entry.LastUsedAt.IsZero() {
		return entry.FetchedAt
	}
	return entry.LastUsedAt
}

func normalizeRetentionPolicy(policy types.CacheRetentionPolicy) types.CacheRetentionPolicy {
	normalized := policy
	if normalized.KeepLast < 0 {
		normalized.KeepLast = 0
	}
	if normalized.KeepDays < 0 {
		normalized.KeepDays = 0
	}
	if normalized.Order == "" {
		normalized.Order = types.PruneOrderLastUsed
	}
	return normalized
}

func normalizeSet(values []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

func retentionGroupKey(entry types.CacheEntry) string {
	source := strings.ToLower(strings.TrimSpace(entry.SourceURL))
	if source == "" {
		return "default"
	}
	return "source:" + source
}
