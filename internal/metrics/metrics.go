package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg          *prometheus.Registry
	Units        *prometheus.CounterVec
	BatchSeconds *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "techstock_intake_units_total",
		Help: "Units attempted by bulk intake, by variant and outcome.",
	}, []string{"variant", "outcome"})
	batch := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techstock_intake_batch_seconds",
		Help:    "Wall time of the persistence step of a batch.",
		Buckets: prometheus.DefBuckets,
	}, []string{"variant"})
	r.MustRegister(units, batch)
	return &Registry{reg: r, Units: units, BatchSeconds: batch}
}

func (r *Registry) ObserveUnit(variant string, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	r.Units.WithLabelValues(variant, outcome).Inc()
}

func (r *Registry) ObserveBatch(variant string, d time.Duration) {
	r.BatchSeconds.WithLabelValues(variant).Observe(d.Seconds())
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
