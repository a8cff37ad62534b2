package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"pinfetch/internal/ports"
	"pinfetch/internal/shared"
	"pinfetch/internal/types"
)

const defaultFetchTimeout = 5 * time.Minute

// ArchiveFetcher resolves a pin to a verified, extracted archive in the
// local cache. Concurrent calls for the same cache key inside one process
// share a single download; across processes the cache commit is atomic.
// A caller that cancels stops waiting, but the shared download goes on
// for the others until it finishes or Timeout expires.
type ArchiveFetcher struct {
	Source    ports.ArchiveSourcePort
	Extractor ports.ArchiveExtractorPort
	Cache     ports.ArtifactCachePort
	Verifier  ports.SignatureVerifierPort
	Metrics   ports.MetricsPort
	Validator PinValidator
	Timeout   time.Duration
	Clock     func() time.Time

	group *singleflight.Group
}

func NewArchiveFetcher(source ports.ArchiveSourcePort, extractor ports.ArchiveExtractorPort, cache ports.ArtifactCachePort) *ArchiveFetcher {
	return &ArchiveFetcher{
		Source:    source,
		Extractor: extractor,
		Cache:     cache,
		Validator: NewPinValidator(false),
		Timeout:   defaultFetchTimeout,
		Clock:     time.Now,
		group:     &singleflight.Group{},
	}
}

// Fetch returns the cached artifact for pin, downloading, verifying and
// extracting it on a cache miss. Either a fully verified artifact is
// returned or an error; the cache never records an unverified entry.
func (f *ArchiveFetcher) Fetch(ctx context.Context, pin types.PinRecord) (types.FetchedArtifact, error) {
	pinned, err := f.Validator.ValidatePin(ctx, pin)
	if err != nil {
		f.observe(types.FetchResultError)
		return types.FetchedArtifact{}, err
	}
	group := f.group
	if group == nil {
		group = &singleflight.Group{}
	}
	// The shared download outlives any single caller; it is bounded by the
	// fetch timeout instead.
	results := group.DoChan(pinned.Key, func() (any, error) {
		return f.fetch(context.WithoutCancel(ctx), pinned)
	})
	var result singleflight.Result
	select {
	case result = <-results:
	case <-ctx.Done():
		f.observe(types.FetchResultError)
		return types.FetchedArtifact{}, shared.FetchError("fetch cancelled", ctx.Err())
	}
	if result.Err != nil {
		f.observe(types.FetchResultError)
		return types.FetchedArtifact{}, result.Err
	}
	artifact := result.Val.(types.FetchedArtifact)
	if artifact.FromCache {
		f.observe(types.FetchResultHit)
	} else {
		f.observe(types.FetchResultMiss)
	}
	log.Ctx(ctx).Debug().
		Str("pin", pin.Label()).
		Str("path", artifact.Path).
		Bool("cached", artifact.FromCache).
		Bool("shared", result.Shared).
		Msg("pin fetched")
	return artifact, nil
}

func (f *ArchiveFetcher) fetch(ctx context.Context, pinned ValidatedPin) (types.FetchedArtifact, error) {
	entry, found, err := f.Cache.Lookup(ctx, pinned.Key)
	if err != nil {
		return types.FetchedArtifact{}, err
	}
	if found {
		if err := f.Cache.Touch(ctx, entry); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", entry.Key).Msg("failed to record cache use")
		}
		log.Ctx(ctx).Debug().Str("key", entry.Key).Msg("cache hit")
		return entry.Artifact(f.Cache.ContentsPath(entry), true), nil
	}
	log.Ctx(ctx).Debug().Str("key", pinned.Key).Str("url", shared.RedactURL(pinned.Record.SourceURL)).Msg("cache miss")

	stagingDir, err := f.Cache.Stage(ctx)
	if err != nil {
		return types.FetchedArtifact{}, err
	}
	committed := false
	defer func() {
		if !committed {
			f.Cache.Discard(stagingDir)
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	staged, err := f.download(fetchCtx, pinned, stagingDir)
	if err != nil {
		return types.FetchedArtifact{}, err
	}
	if pinned.Integrity != nil && !pinned.Integrity.Matches(digest.Digest(staged.Digest)) {
		return types.FetchedArtifact{}, shared.IntegrityError(
			fmt.Sprintf("digest mismatch: expected %s, got %s", pinned.Integrity, staged.Digest), nil)
	}
	if pinned.Record.SignatureURL != "" {
		if err := f.verifySignature(fetchCtx, pinned.Record, staged.ArchivePath); err != nil {
			return types.FetchedArtifact{}, err
		}
	}

	contentsDir := filepath.Join(stagingDir, types.CacheContentsDir)
	format, err := f.Extractor.Extract(fetchCtx, staged.ArchivePath, pinned.Record.SourceURL, contentsDir)
	if err != nil {
		return types.FetchedArtifact{}, err
	}
	if err := os.Remove(staged.ArchivePath); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("failed to remove staged archive")
	}

	now := f.now()
	entry, err = f.Cache.Commit(ctx, stagingDir, types.CacheEntry{
		Key:        pinned.Key,
		SourceURL:  pinned.Record.SourceURL,
		Revision:   pinned.Record.Revision,
		Digest:     staged.Digest,
		Format:     format,
		Size:       staged.Size,
		FetchedAt:  now,
		LastUsedAt: now,

		SignatureURL: pinned.Record.SignatureURL,
	})
	committed = true
	if err != nil {
		return types.FetchedArtifact{}, err
	}
	assert.NotEmpty(ctx, entry.Digest, "committed entry must carry a digest")
	return entry.Artifact(f.Cache.ContentsPath(entry), false), nil
}

func (f *ArchiveFetcher) download(ctx context.Context, pinned ValidatedPin, stagingDir string) (types.StagedArchive, error) {
	body, err := f.Source.Open(ctx, pinned.Record.SourceURL)
	if err != nil {
		return types.StagedArchive{}, err
	}
	defer body.Close()

	algorithm := digest.Canonical
	if pinned.Integrity != nil {
		algorithm = pinned.Integrity.Algorithm
	}
	digester := algorithm.Digester()

	archivePath := filepath.Join(stagingDir, types.CacheArchiveFile)
	out, err := os.Create(archivePath)
	if err != nil {
		return types.StagedArchive{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create staged archive").
			WithCause(err)
	}
	written, copyErr := io.Copy(io.MultiWriter(out, digester.Hash()), body)
	closeErr := out.Close()
	if copyErr != nil {
		if errors.Is(copyErr, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return types.StagedArchive{}, shared.FetchError("archive download timed out", copyErr)
		}
		return types.StagedArchive{}, shared.FetchError("failed to download archive", copyErr)
	}
	if closeErr != nil {
		return types.StagedArchive{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write staged archive").
			WithCause(closeErr)
	}
	if f.Metrics != nil {
		f.Metrics.AddDownloadedBytes(written)
	}
	return types.StagedArchive{
		Dir:         stagingDir,
		ArchivePath: archivePath,
		Digest:      digester.Digest().String(),
		Size:        written,
	}, nil
}

func (f *ArchiveFetcher) verifySignature(ctx context.Context, pin types.PinRecord, archivePath string) error {
	if f.Verifier == nil {
		return shared.IntegrityError("signatureURL is set but no keyring is configured", nil)
	}
	signature, err := f.Source.Open(ctx, pin.SignatureURL)
	if err != nil {
		return err
	}
	defer signature.Close()
	return f.Verifier.Verify(ctx, archivePath, signature)
}

func (f *ArchiveFetcher) observe(result types.FetchResult) {
	if f.Metrics != nil {
		f.Metrics.ObserveFetch(result)
	}
}

func (f *ArchiveFetcher) timeout() time.Duration {
	if f.Timeout <= 0 {
		return defaultFetchTimeout
	}
	return f.Timeout
}

func (f *ArchiveFetcher) now() time.Time {
	if f.Clock == nil {
		return time.Now().UTC()
	}
	return f.Clock().UTC()
}
