package adapters

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pinfetch/internal/ports"
	"pinfetch/internal/shared"
)

const (
	maxSignatureBytes    = 64 * 1024
	armorSignaturePrefix = "-----BEGIN PGP SIGNATURE"
)

type OpenPGPVerifierAdapter struct {
	Keyring openpgp.EntityList
}

// NewOpenPGPVerifierAdapter loads an armored or binary public keyring.
func NewOpenPGPVerifierAdapter(keyringPath string) (OpenPGPVerifierAdapter, error) {
	if strings.TrimSpace(keyringPath) == "" {
		return OpenPGPVerifierAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("keyring path is empty")
	}
	data, err := os.ReadFile(keyringPath)
	if err != nil {
		return OpenPGPVerifierAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read keyring").
			WithCause(err)
	}
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil {
		return OpenPGPVerifierAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse keyring").
			WithCause(err)
	}
	if len(entities) == 0 {
		return OpenPGPVerifierAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("keyring contains no keys")
	}
	return OpenPGPVerifierAdapter{Keyring: entities}, nil
}

func (a OpenPGPVerifierAdapter) Verify(ctx context.Context, archivePath string, signature io.Reader) error {
	if len(a.Keyring) == 0 {
		return shared.IntegrityError("no signing keys configured", nil)
	}
	sigData, err := io.ReadAll(io.LimitReader(signature, maxSignatureBytes+1))
	if err != nil {
		return shared.FetchError("failed to read signature", err)
	}
	if len(sigData) > maxSignatureBytes {
		return shared.IntegrityError("signature is too large", nil)
	}
	archive, err := os.Open(archivePath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open staged archive").
			WithCause(err)
	}
	defer archive.Close()

	var signer *openpgp.Entity
	if bytes.HasPrefix(bytes.TrimSpace(sigData), []byte(armorSignaturePrefix)) {
		signer, err = openpgp.CheckArmoredDetachedSignature(a.Keyring, archive, bytes.NewReader(sigData), nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(a.Keyring, archive, bytes.NewReader(sigData), nil)
	}
	if err != nil {
		return shared.IntegrityError("signature verification failed", err)
	}
	if signer != nil && signer.PrimaryKey != nil {
		log.Ctx(ctx).Debug().Str("key_id", signer.PrimaryKey.KeyIdString()).Msg("signature verified")
	}
	return nil
}

var _ ports.SignatureVerifierPort = OpenPGPVerifierAdapter{}
