package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pinfetch/internal/core"
)

func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	pinPath := strings.TrimSpace(req.PinPath)
	if pinPath == "" {
		return ValidateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pin file path is required")
	}
	pin, err := s.PinSource.LoadPin(pinPath)
	if err != nil {
		return ValidateResult{}, err
	}
	pinned, err := core.NewPinValidator(req.RequireIntegrity).ValidatePin(ctx, pin)
	if err != nil {
		return ValidateResult{}, err
	}
	return ValidateResult{Pin: pinned.Record, CacheKey: pinned.Key}, nil
}
