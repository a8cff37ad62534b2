package core

import (
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"

	"pinfetch/internal/shared"
)

var supportedAlgorithms = map[digest.Algorithm]struct{}{
	digest.SHA256: {},
	digest.SHA384: {},
	digest.SHA512: {},
}

// Integrity is an expected archive digest. The encoded value is lower-case
// hex but its length is not checked: a truncated hash is a valid record
// that simply never matches.
type Integrity struct {
	Algorithm digest.Algorithm
	Encoded   string
}

// ParseIntegrity accepts "<alg>:<hex>" and SRI "<alg>-<base64>".
func ParseIntegrity(value string) (Integrity, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Integrity{}, shared.ValidationError("integrityHash is empty", nil)
	}
	if alg, encoded, ok := strings.Cut(value, ":"); ok {
		algorithm, err := supportedAlgorithm(alg)
		if err != nil {
			return Integrity{}, err
		}
		encoded = strings.ToLower(encoded)
		if encoded == "" {
			return Integrity{}, shared.ValidationError("integrityHash has no digest value", nil)
		}
		if _, err := hex.DecodeString(padHex(encoded)); err != nil {
			return Integrity{}, shared.ValidationError("integrityHash digest is not hex", err)
		}
		return Integrity{Algorithm: algorithm, Encoded: encoded}, nil
	}
	if alg, encoded, ok := strings.Cut(value, "-"); ok {
		algorithm, err := supportedAlgorithm(alg)
		if err != nil {
			return Integrity{}, err
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return Integrity{}, shared.ValidationError("integrityHash digest is not base64", err)
		}
		return Integrity{Algorithm: algorithm, Encoded: hex.EncodeToString(raw)}, nil
	}
	return Integrity{}, shared.ValidationError(fmt.Sprintf("integrityHash %q must be <alg>:<hex> or <alg>-<base64>", value), nil)
}

func (i Integrity) Digest() digest.Digest {
	return digest.NewDigestFromEncoded(i.Algorithm, i.Encoded)
}

func (i Integrity) String() string {
	return i.Digest().String()
}

// Matches compares against a digest computed over the archive bytes.
func (i Integrity) Matches(actual digest.Digest) bool {
	return actual.Algorithm() == i.Algorithm && actual.Encoded() == i.Encoded
}

// SRI renders the digest in subresource-integrity form.
func SRI(d digest.Digest) string {
	raw, err := hex.DecodeString(d.Encoded())
	if err != nil {
		return d.String()
	}
	return string(d.Algorithm()) + "-" + base64.StdEncoding.EncodeToString(raw)
}

// CacheKey derives the on-disk cache key for a pin. An integrity hash
// makes the key content-addressed; otherwise the revision, scoped by
// its source URL, names the entry. A signature URL gets its own entry,
// so a hit on an entry never skips a signature check the pin asks for.
func CacheKey(sourceURL string, revision string, signatureURL string, integrity *Integrity) string {
	var key string
	if integrity != nil {
		key = string(integrity.Algorithm) + "-" + integrity.Encoded
	} else {
		key = "rev-" + digest.FromString(strings.TrimSpace(sourceURL)+"\x00"+strings.TrimSpace(revision)).Encoded()
	}
	if signatureURL = strings.TrimSpace(signatureURL); signatureURL != "" {
		key += "-sig-" + digest.FromString(signatureURL).Encoded()[:signatureKeyLength]
	}
	return key
}

const signatureKeyLength = 16

func supportedAlgorithm(name string) (digest.Algorithm, error) {
	algorithm := digest.Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := supportedAlgorithms[algorithm]; !ok || !algorithm.Available() {
		return "", shared.ValidationError(fmt.Sprintf("unsupported integrity algorithm %q", name), nil)
	}
	return algorithm, nil
}

func padHex(value string) string {
	if len(value)%2 == 1 {
		return "0" + value
	}
	return value
}
