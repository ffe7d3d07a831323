package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter publishes Tracker state through a Prometheus registry. Event
// windows surface as labeled gauges, counters as labeled counters.
type Exporter struct {
	tracker  *Tracker
	registry *prometheus.Registry

	countDesc   *prometheus.Desc
	meanDesc    *prometheus.Desc
	minDesc     *prometheus.Desc
	maxDesc     *prometheus.Desc
	p50Desc     *prometheus.Desc
	p95Desc     *prometheus.Desc
	counterDesc *prometheus.Desc
}

func NewExporter(tracker *Tracker, namespace string) *Exporter {
	e := &Exporter{
		tracker:  tracker,
		registry: prometheus.NewRegistry(),
		countDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "event", "window_count"),
			"Number of samples in the event's rolling window",
			[]string{"event"}, nil,
		),
		meanDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "event", "mean"),
			"Mean value over the event's rolling window",
			[]string{"event"}, nil,
		),
		minDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "event", "min"),
			"Minimum value over the event's rolling window",
			[]string{"event"}, nil,
		),
		maxDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "event", "max"),
			"Maximum value over the event's rolling window",
			[]string{"event"}, nil,
		),
		p50Desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "event", "p50"),
			"Median value over the event's rolling window",
			[]string{"event"}, nil,
		),
		p95Desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "event", "p95"),
			"95th percentile over the event's rolling window",
			[]string{"event"}, nil,
		),
		counterDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "counter", "total"),
			"Monotonic counter value",
			[]string{"event"}, nil,
		),
	}
	e.registry.MustRegister(e)
	return e
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.countDesc
	ch <- e.meanDesc
	ch <- e.minDesc
	ch <- e.maxDesc
	ch <- e.p50Desc
	ch <- e.p95Desc
	ch <- e.counterDesc
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	for name, s := range e.tracker.SummaryAll() {
		ch <- prometheus.MustNewConstMetric(e.countDesc, prometheus.GaugeValue, float64(s.Count), name)
		ch <- prometheus.MustNewConstMetric(e.meanDesc, prometheus.GaugeValue, s.Mean, name)
		ch <- prometheus.MustNewConstMetric(e.minDesc, prometheus.GaugeValue, s.Min, name)
		ch <- prometheus.MustNewConstMetric(e.maxDesc, prometheus.GaugeValue, s.Max, name)
		ch <- prometheus.MustNewConstMetric(e.p50Desc, prometheus.GaugeValue, s.P50, name)
		ch <- prometheus.MustNewConstMetric(e.p95Desc, prometheus.GaugeValue, s.P95, name)
	}
	for name, v := range e.tracker.Counters() {
		ch <- prometheus.MustNewConstMetric(e.counterDesc, prometheus.CounterValue, float64(v), name)
	}
}

// Handler returns the Prometheus HTTP handler.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server.
func (e *Exporter) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	return http.ListenAndServe(addr, mux)
}
