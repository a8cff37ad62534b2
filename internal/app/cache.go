package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pinfetch/internal/types"
)

func (s Service) ListCache(ctx context.Context, req CacheListRequest) (CacheListResult, error) {
	cache, err := s.buildCache(req.CacheDir)
	if err != nil {
		return CacheListResult{}, err
	}
	entries, err := cache.List(ctx)
	if err != nil {
		return CacheListResult{}, err
	}
	return CacheListResult{Entries: entries}, nil
}

func (s Service) PruneCache(ctx context.Context, req CachePruneRequest) (CachePruneResult, error) {
	order, err := parsePruneOrder(req.Order)
	if err != nil {
		return CachePruneResult{}, err
	}
	cache, err := s.buildCache(req.CacheDir)
	if err != nil {
		return CachePruneResult{}, err
	}
	entries, err := cache.List(ctx)
	if err != nil {
		return CachePruneResult{}, err
	}
	policy := types.CacheRetentionPolicy{
		KeepLast:    req.KeepLast,
		KeepDays:    req.KeepDays,
		ProtectKeys: req.ProtectKeys,
		Order:       order,
		DryRun:      req.DryRun,
	}
	plan := BuildCachePrunePlan(entries, policy, timeNow(s.Clock))
	if policy.DryRun {
		return CachePruneResult{
			KeepCount:   len(plan.Keep),
			DeleteCount: len(plan.Delete),
			Deleted:     entryKeys(plan.Delete),
			DryRun:      true,
		}, nil
	}
	var deleted []string
	for _, entry := range plan.Delete {
		if err := cache.Delete(ctx, entry.Key); err != nil {
			return CachePruneResult{}, err
		}
		deleted = append(deleted, entry.Key)
	}
	removed, err := cache.CleanStaging(ctx)
	if err != nil {
		return CachePruneResult{}, err
	}
	log.Ctx(ctx).Debug().Int("deleted", len(deleted)).Int("staging_removed", removed).Msg("cache pruned")
	return CachePruneResult{
		KeepCount:      len(plan.Keep),
		DeleteCount:    len(deleted),
		Deleted:        deleted,
		StagingRemoved: removed,
		DryRun:         false,
	}, nil
}

func parsePruneOrder(value string) (types.PruneOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(types.PruneOrderLastUsed):
		return types.PruneOrderLastUsed, nil
	case string(types.PruneOrderRevision):
		return types.PruneOrderRevision, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("prune order must be used or revision")
	}
}

func entryKeys(entries []types.CacheEntry) []string {
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Key)
	}
	return keys
}
