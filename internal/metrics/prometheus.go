package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	reg           *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	documents     *prom.GaugeVec
	passes        prom.Histogram
	dangling      prom.Counter
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docdustry",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docdustry",
			Name:      "build_duration_seconds",
			Help:      "Total site build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docdustry",
			Name:      "build_outcomes_total",
			Help:      "Builds by final outcome",
		}, []string{"outcome"}),
		documents: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "docdustry",
			Name:      "documents",
			Help:      "Documents of the last build by final state",
		}, []string{"state"}),
		passes: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docdustry",
			Name:      "resolve_passes",
			Help:      "Translation passes needed to resolve the corpus",
			Buckets:   prom.LinearBuckets(1, 1, 10),
		}),
		dangling: prom.NewCounter(prom.CounterOpts{
			Namespace: "docdustry",
			Name:      "dangling_includes_total",
			Help:      "Transclusions naming an id absent from the corpus",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.buildOutcome, pr.documents, pr.passes, pr.dangling)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome Outcome) {
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetDocuments(state string, n int) {
	p.documents.WithLabelValues(state).Set(float64(n))
}

func (p *PrometheusRecorder) ObserveResolvePasses(n int) {
	p.passes.Observe(float64(n))
}

func (p *PrometheusRecorder) IncDanglingIncludes(n int) {
	p.dangling.Add(float64(n))
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
