package metrics

import (
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pinfetch/internal/types"
)

// Recorder registers fetch metrics on its own registry rather than the
// default registerer.
type Recorder struct {
	registry        *prometheus.Registry
	fetchTotal      *prometheus.CounterVec
	downloadedBytes prometheus.Counter
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pinfetch_fetch_total",
			Help: "Total number of pin fetches by result (hit, miss, error)",
		}, []string{"result"}),
		downloadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "pinfetch_downloaded_bytes_total",
			Help: "Total archive bytes downloaded",
		}),
	}
}

func (r *Recorder) ObserveFetch(result types.FetchResult) {
	label := string(result)
	switch result {
	case types.FetchResultHit, types.FetchResultMiss, types.FetchResultError:
	default:
		label = "unknown"
	}
	r.fetchTotal.WithLabelValues(label).Inc()
}

func (r *Recorder) AddDownloadedBytes(n int64) {
	if n <= 0 {
		return
	}
	r.downloadedBytes.Add(float64(n))
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("metrics textfile path is empty")
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write metrics textfile").
			WithCause(err)
	}
	return nil
}
