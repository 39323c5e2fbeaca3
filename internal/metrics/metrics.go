package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voice_receptionist"

// Metrics holds the service's Prometheus collectors. Each instance registers
// into its own registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	WebhookCalls     *prometheus.CounterVec
	WebhookDuration  prometheus.Histogram
	ProviderRequests *prometheus.CounterVec
	CallCompletions  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		WebhookCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_calls_total",
			Help:      "Inbound call notifications by routing outcome.",
		}, []string{"outcome"}),
		WebhookDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Time to answer an inbound call notification.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 4},
		}),
		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Telephony provider REST calls by operation and result.",
		}, []string{"operation", "result"}),
		CallCompletions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_completions_total",
			Help:      "Call status callbacks by final status.",
		}, []string{"status"}),
	}
}

// ObserveWebhook records one answered inbound notification. A nil receiver is
// a no-op.
func (m *Metrics) ObserveWebhook(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.WebhookCalls.WithLabelValues(outcome).Inc()
	m.WebhookDuration.Observe(took.Seconds())
}

func (m *Metrics) ObserveProvider(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ProviderRequests.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveCompletion(status string) {
	if m == nil {
		return
	}
	m.CallCompletions.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
