package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"pinfetch/internal/types"
)

// Prefetch downloads an unpinned archive and records its digest as the
// integrityHash of a new pin.
func (s Service) Prefetch(ctx context.Context, req PrefetchRequest) (PrefetchResult, error) {
	pin := types.PinRecord{
		Name:         strings.TrimSpace(req.Name),
		SourceURL:    strings.TrimSpace(req.SourceURL),
		Revision:     strings.TrimSpace(req.Revision),
		SignatureURL: strings.TrimSpace(req.SignatureURL),
	}
	opts := req.FetchOptions
	opts.RequireIntegrity = false
	fetcher, err := s.buildFetcher(opts)
	if err != nil {
		return PrefetchResult{}, err
	}
	artifact, err := fetcher.Fetch(ctx, pin)
	if err != nil {
		return PrefetchResult{}, err
	}
	pin.IntegrityHash = artifact.Digest

	pinPath := strings.TrimSpace(req.PinPath)
	if pinPath != "" {
		if err := s.PinWriter.WritePin(pinPath, pin); err != nil {
			return PrefetchResult{}, err
		}
		log.Ctx(ctx).Info().Str("pin", pinPath).Str("integrity", pin.IntegrityHash).Msg("pin written")
	}
	return PrefetchResult{Pin: pin, Artifact: artifact, PinPath: pinPath}, nil
}
