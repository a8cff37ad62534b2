package ports

import "pinfetch/internal/types"

// PinSourcePort reads pin records from disk.
type PinSourcePort interface {
	LoadPin(path string) (types.PinRecord, error)
}

// PinWriterPort persists a pin record, replacing any existing file.
type PinWriterPort interface {
	WritePin(path string, pin types.PinRecord) error
}

// ComposeSourcePort reads the configuration and overlay list handed to
// the composer.
type ComposeSourcePort interface {
	LoadCompose(path string) (types.ComposeInput, error)
}
