package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pinfetch/internal/shared"
)

func (s Service) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	pinPath := strings.TrimSpace(req.PinPath)
	if pinPath == "" {
		return FetchResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pin file path is required")
	}
	pin, err := s.PinSource.LoadPin(pinPath)
	if err != nil {
		return FetchResult{}, err
	}
	fetcher, err := s.buildFetcher(req.FetchOptions)
	if err != nil {
		return FetchResult{}, err
	}
	artifact, err := fetcher.Fetch(ctx, pin)
	if err != nil {
		return FetchResult{}, err
	}
	log.Ctx(ctx).Info().
		Str("source", shared.RedactURL(artifact.SourceURL)).
		Str("revision", artifact.Revision).
		Str("digest", artifact.Digest).
		Bool("cached", artifact.FromCache).
		Msg("artifact ready")
	return FetchResult{Artifact: artifact}, nil
}
