package core

import (
	"context"

	"github.com/rs/zerolog/log"

	"pinfetch/internal/types"
)

// Composer assembles import handles. It evaluates nothing; the handle
// is passed to an external evaluator.
type Composer struct{}

func NewComposer() Composer {
	return Composer{}
}

// Compose pairs a fetched artifact with a configuration and an ordered
// overlay list. The inputs are copied, never mutated, and overlay order
// is preserved.
func (c Composer) Compose(ctx context.Context, artifact types.FetchedArtifact, config types.Configuration, overlays types.OverlayList) types.ImportHandle {
	handle := types.ImportHandle{
		ArtifactPath: artifact.Path,
		Config:       config.Clone(),
		Overlays:     overlays.Clone(),
		Source: types.HandleSource{
			URL:      artifact.SourceURL,
			Revision: artifact.Revision,
			Digest:   artifact.Digest,
		},
	}
	log.Ctx(ctx).Debug().
		Str("artifact", artifact.Path).
		Int("config", len(handle.Config)).
		Int("overlays", len(handle.Overlays)).
		Msg("import handle composed")
	return handle
}
