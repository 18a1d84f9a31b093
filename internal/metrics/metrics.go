package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docguard"

// Verification path labels.
const (
	PathService  = "service"
	PathFallback = "fallback"
)

// Outcome labels.
const (
	OutcomeValid    = "valid"
	OutcomePolicy   = "policy"
	OutcomeProtocol = "protocol"
	OutcomeInternal = "internal"
)

// Recorder owns a dedicated registry. A nil *Recorder records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	verifications *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verifications_total",
				Help:      "Verification calls by path, request mode and outcome",
			},
			[]string{"path", "mode", "outcome"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_rejections_total",
				Help:      "Policy violations by failing check",
			},
			[]string{"check"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "verification_duration_seconds",
				Help:      "Time spent verifying a request, body read included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.verifications,
		r.rejections,
		r.duration,
	)

	return r
}

func (r *Recorder) Observe(path, mode, outcome, check string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.verifications.WithLabelValues(path, mode, outcome).Inc()
	if outcome == OutcomePolicy && check != "" {
		r.rejections.WithLabelValues(check).Inc()
	}
	r.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Verifications() *prometheus.CounterVec { return r.verifications }

func (r *Recorder) Rejections() *prometheus.CounterVec { return r.rejections }
