package types

type PinFormat string

const (
	PinFormatYAML PinFormat = "yaml"
	PinFormatHCL  PinFormat = "hcl"
)

type ArchiveFormat string

const (
	ArchiveFormatUnknown ArchiveFormat = ""
	ArchiveFormatTar     ArchiveFormat = "tar"
	ArchiveFormatTarGzip ArchiveFormat = "tar.gz"
	ArchiveFormatTarZstd ArchiveFormat = "tar.zst"
	ArchiveFormatZip     ArchiveFormat = "zip"
)

type PruneOrder string

const (
	PruneOrderLastUsed PruneOrder = "used"
	PruneOrderRevision PruneOrder = "revision"
)

type FetchResult string

const (
	FetchResultHit   FetchResult = "hit"
	FetchResultMiss  FetchResult = "miss"
	FetchResultError FetchResult = "error"
)
