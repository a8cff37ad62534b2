package ports

import "pinfetch/internal/types"

// HandleWriterPort emits an import handle for the external evaluator.
type HandleWriterPort interface {
	WriteHandle(path string, handle types.ImportHandle) error
}

// MetricsPort records fetch outcomes.
type MetricsPort interface {
	ObserveFetch(result types.FetchResult)
	AddDownloadedBytes(n int64)
}
