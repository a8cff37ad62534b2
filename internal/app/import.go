package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pinfetch/internal/core"
)

// Import fetches the pinned archive and writes the import handle that
// points an evaluator at it.
func (s Service) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	pinPath := strings.TrimSpace(req.PinPath)
	if pinPath == "" {
		return ImportResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pin file path is required")
	}
	pin, err := s.PinSource.LoadPin(pinPath)
	if err != nil {
		return ImportResult{}, err
	}
	input, err := s.ComposeSource.LoadCompose(req.ComposePath)
	if err != nil {
		return ImportResult{}, err
	}
	fetcher, err := s.buildFetcher(req.FetchOptions)
	if err != nil {
		return ImportResult{}, err
	}
	artifact, err := fetcher.Fetch(ctx, pin)
	if err != nil {
		return ImportResult{}, err
	}
	handle := core.NewComposer().Compose(ctx, artifact, input.Config, input.Overlays)
	output := strings.TrimSpace(req.OutputPath)
	if output == "" {
		output = "-"
	}
	if err := s.HandleWriter.WriteHandle(output, handle); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Handle: handle, OutputPath: output}, nil
}
