package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/contextfocus/internal/version"
)

// NewRegistry returns a registry with the runtime and process collectors and
// a contextfocus_build_info gauge labelled with the running version.
func NewRegistry() *prom.Registry {
	buildInfo := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Always 1; labels identify the running build.",
	}, []string{"version", "commit"})
	buildInfo.WithLabelValues(version.Version, version.GitCommit).Set(1)

	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo,
	)
	return reg
}

// HTTPHandler serves reg, or a fresh registry when reg is nil. Handler errors
// are reported as 500s rather than partial output.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.HTTPErrorOnError,
		Registry:          reg,
	})
}
