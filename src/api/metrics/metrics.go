package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder reports LLM invocation metrics using Prometheus primitives.
type Recorder struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	warnings    *prometheus.CounterVec
	limited     *prometheus.CounterVec
}

func NewRecorder(registry *prometheus.Registry) (*Recorder, error) {
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	r := &Recorder{
		registry: registry,
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dualagents_llm_invocations_total",
			Help: "Total number of LLM invocations by provider, agent and outcome",
		}, []string{"provider", "agent_id", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dualagents_llm_invocation_duration_seconds",
			Help:    "LLM invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dualagents_llm_warnings_total",
			Help: "Soft warnings recorded on otherwise successful invocations",
		}, []string{"provider", "code"}),
		limited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dualagents_rate_limited_total",
			Help: "Requests rejected by the per-user rate limiter",
		}, []string{"route"}),
	}

	for _, collector := range []prometheus.Collector{r.invocations, r.durations, r.warnings, r.limited} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func (r *Recorder) ObserveInvocation(provider, agentID, outcome string, duration time.Duration) {
	if agentID == "" {
		agentID = "none"
	}
	r.invocations.WithLabelValues(provider, agentID, outcome).Inc()
	r.durations.WithLabelValues(provider).Observe(duration.Seconds())
}

func (r *Recorder) ObserveWarning(provider, code string) {
	r.warnings.WithLabelValues(provider, code).Inc()
}

func (r *Recorder) ObserveRateLimited(route string) {
	r.limited.WithLabelValues(route).Inc()
}

// Handler serves the exposition format for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
