package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog/log"

	"pinfetch/internal/shared"
	"pinfetch/internal/types"
)

var validSourceSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
	"file":  {},
}

// ValidatedPin is a pin record that passed validation, with its parsed
// integrity hash and derived cache key.
type ValidatedPin struct {
	Record    types.PinRecord
	Integrity *Integrity
	Key       string
}

type PinValidator struct {
	// RequireIntegrity rejects pins that carry no integrityHash.
	RequireIntegrity bool
}

func NewPinValidator(requireIntegrity bool) PinValidator {
	return PinValidator{RequireIntegrity: requireIntegrity}
}

func (v PinValidator) ValidatePin(ctx context.Context, pin types.PinRecord) (ValidatedPin, error) {
	if strings.TrimSpace(pin.SourceURL) == "" {
		return ValidatedPin{}, shared.ValidationError("sourceURL is required", nil)
	}
	if strings.TrimSpace(pin.Revision) == "" {
		return ValidatedPin{}, shared.ValidationError("revision is required", nil)
	}
	if err := validateSourceURL("sourceURL", pin.SourceURL); err != nil {
		return ValidatedPin{}, err
	}
	if pin.SignatureURL != "" {
		if err := validateSourceURL("signatureURL", pin.SignatureURL); err != nil {
			return ValidatedPin{}, err
		}
	}
	var integrity *Integrity
	if pin.HasIntegrity() {
		parsed, err := ParseIntegrity(pin.IntegrityHash)
		if err != nil {
			return ValidatedPin{}, err
		}
		integrity = &parsed
	} else if v.RequireIntegrity {
		return ValidatedPin{}, shared.ValidationError("integrityHash is required", nil)
	}
	key := CacheKey(pin.SourceURL, pin.Revision, pin.SignatureURL, integrity)
	assert.NotEmpty(ctx, key, "cache key must be derived")

	log.Ctx(ctx).Debug().Str("pin", pin.Label()).Str("key", key).Msg("pin validated")
	return ValidatedPin{Record: pin, Integrity: integrity, Key: key}, nil
}

func validateSourceURL(field string, raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return shared.ValidationError(fmt.Sprintf("%s is not a valid URL", field), err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if _, ok := validSourceSchemes[scheme]; !ok {
		return shared.ValidationError(fmt.Sprintf("%s scheme must be http, https or file", field), nil)
	}
	if scheme == "file" {
		if parsed.Path == "" {
			return shared.ValidationError(fmt.Sprintf("%s file URL has no path", field), nil)
		}
		return nil
	}
	if parsed.Host == "" {
		return shared.ValidationError(fmt.Sprintf("%s has no host", field), nil)
	}
	return nil
}
