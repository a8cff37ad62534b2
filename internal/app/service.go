package app

import (
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pinfetch/internal/adapters"
	"pinfetch/internal/core"
	"pinfetch/internal/ports"
)

type Service struct {
	PinSource     ports.PinSourcePort
	PinWriter     ports.PinWriterPort
	ComposeSource ports.ComposeSourcePort
	HandleWriter  ports.HandleWriterPort
	Source        ports.ArchiveSourcePort
	Extractor     ports.ArchiveExtractorPort
	Metrics       ports.MetricsPort
	Clock         func() time.Time
}

func NewService() Service {
	pins := adapters.NewPinFileAdapter()
	return Service{
		PinSource:     pins,
		PinWriter:     pins,
		ComposeSource: adapters.NewComposeFileAdapter(),
		HandleWriter:  adapters.NewHandleFileAdapter(),
		Source:        adapters.NewArchiveSourceAdapter(),
		Extractor:     adapters.NewArchiveExtractorAdapter(),
		Clock:         time.Now,
	}
}

func (s Service) buildCache(cacheDir string) (adapters.ArtifactCacheDirAdapter, error) {
	dir := strings.TrimSpace(cacheDir)
	if dir == "" {
		return adapters.ArtifactCacheDirAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cache dir is required")
	}
	cache := adapters.NewArtifactCacheDirAdapter(dir)
	if s.Clock != nil {
		cache.Clock = s.Clock
	}
	return cache, nil
}

func (s Service) buildFetcher(opts FetchOptions) (*core.ArchiveFetcher, error) {
	cache, err := s.buildCache(opts.CacheDir)
	if err != nil {
		return nil, err
	}
	fetcher := core.NewArchiveFetcher(s.Source, s.Extractor, cache)
	fetcher.Metrics = s.Metrics
	fetcher.Validator = core.NewPinValidator(opts.RequireIntegrity)
	if opts.TimeoutSec > 0 {
		fetcher.Timeout = time.Duration(opts.TimeoutSec) * time.Second
	}
	if s.Clock != nil {
		fetcher.Clock = s.Clock
	}
	if keyring := strings.TrimSpace(opts.Keyring); keyring != "" {
		verifier, err := adapters.NewOpenPGPVerifierAdapter(keyring)
		if err != nil {
			return nil, err
		}
		fetcher.Verifier = verifier
	}
	return fetcher, nil
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
