package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"cultura/internal/errs"
	"cultura/internal/ports"
)

const namespace = "cultura"

// Prometheus records pipeline counters on its own registry so tests and commands
// never collide on the global one.
type Prometheus struct {
	registry *prometheus.Registry

	enriched  *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	geocoder  *prometheus.CounterVec
	loaded    *prometheus.CounterVec
	runs      *prometheus.CounterVec
	lastRunTS *prometheus.GaugeVec
}

var _ ports.Metrics = (*Prometheus)(nil)

func NewPrometheus() *Prometheus {
	p := &Prometheus{registry: prometheus.NewRegistry()}

	p.enriched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_enriched_total",
		Help:      "Enrichment outcomes written, by status.",
	}, []string{"status"})
	p.skipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_skipped_total",
		Help:      "Records skipped because they were already handled, by stage.",
	}, []string{"stage"})
	p.geocoder = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocoder_calls_total",
		Help:      "Geocoder lookups by kind (search, reverse) and result.",
	}, []string{"kind", "result"})
	p.loaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_loaded_total",
		Help:      "Loader results per record (inserted, skipped, error).",
	}, []string{"result"})
	p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Completed batch runs by stage.",
	}, []string{"stage"})
	p.lastRunTS = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last completed run by stage.",
	}, []string{"stage"})

	p.registry.MustRegister(
		p.enriched,
		p.skipped,
		p.geocoder,
		p.loaded,
		p.runs,
		p.lastRunTS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) RecordsEnriched(status string) {
	p.enriched.WithLabelValues(status).Inc()
}

func (p *Prometheus) RecordsSkipped(stage string) {
	p.skipped.WithLabelValues(stage).Inc()
}

func (p *Prometheus) GeocoderCall(kind string, result string) {
	p.geocoder.WithLabelValues(kind, result).Inc()
}

func (p *Prometheus) RecordsLoaded(result string) {
	p.loaded.WithLabelValues(result).Inc()
}

func (p *Prometheus) RunFinished(report ports.RunReport) {
	p.runs.WithLabelValues(report.Stage).Inc()
	p.lastRunTS.WithLabelValues(report.Stage).Set(float64(report.FinishedAt.Unix()))
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Push replaces the batch counters of job/command on a Pushgateway. Batch
// commands exit right after a run, so this is how their counters outlive them.
// Runtime collectors stay local.
func (p *Prometheus) Push(ctx context.Context, gatewayURL string, job string, command string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	gatewayURL = strings.TrimSpace(gatewayURL)
	if gatewayURL == "" {
		return errors.New("pushgateway url is required")
	}
	if strings.TrimSpace(job) == "" {
		job = namespace
	}

	pusher := push.New(gatewayURL, job)
	if command != "" {
		pusher = pusher.Grouping("command", command)
	}
	for _, c := range []prometheus.Collector{p.enriched, p.skipped, p.geocoder, p.loaded, p.runs, p.lastRunTS} {
		pusher = pusher.Collector(c)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return errs.Wrapf(err, "push metrics to %s", gatewayURL)
	}
	return nil
}
