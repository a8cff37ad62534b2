package ports

import (
	"context"
	"io"

	"pinfetch/internal/types"
)

// ArchiveSourcePort opens the byte stream behind a source URL.
// Implementations report transport failures as fetch errors.
type ArchiveSourcePort interface {
	Open(ctx context.Context, sourceURL string) (io.ReadCloser, error)
}

// ArchiveExtractorPort unpacks an archive file into a directory that
// must not exist yet. Unsupported or corrupt archives are extraction
// errors.
type ArchiveExtractorPort interface {
	Extract(ctx context.Context, archivePath string, hint string, destDir string) (types.ArchiveFormat, error)
}

// SignatureVerifierPort checks a detached signature over an archive.
type SignatureVerifierPort interface {
	Verify(ctx context.Context, archivePath string, signature io.Reader) error
}
