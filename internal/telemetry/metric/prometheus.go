package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics. A nil *Registry is a valid
// no-op sink, so services never need to guard their counters.
type Registry struct {
	registry *prometheus.Registry

	// Token metrics
	TokensIssued  prometheus.Counter
	TokensRevoked prometheus.Counter
	TokensSweptC  prometheus.Counter

	// Call metrics
	CallsInitiated prometheus.Counter
	CallsRejected  prometheus.Counter
	SessionsActive prometheus.Gauge
	SessionsEnded  prometheus.Counter

	// Signaling metrics
	MessagesCreated   prometheus.Counter
	MessagesValidated prometheus.Counter
	MessagesRejected  *prometheus.CounterVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a metrics registry with all collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pqcall", Name: name, Help: help,
		})
		reg.MustRegister(c)
		return c
	}

	r := &Registry{
		registry:          reg,
		TokensIssued:      factory("tokens_issued_total", "Secure tokens issued."),
		TokensRevoked:     factory("tokens_revoked_total", "Secure tokens revoked."),
		TokensSweptC:      factory("tokens_swept_total", "Expired or revoked tokens removed by sweeps."),
		CallsInitiated:    factory("calls_initiated_total", "Call sessions successfully initiated."),
		CallsRejected:     factory("calls_rejected_total", "Call initiations rejected."),
		SessionsEnded:     factory("sessions_ended_total", "Call sessions that reached a terminal state."),
		MessagesCreated:   factory("signaling_messages_created_total", "Signaling messages created."),
		MessagesValidated: factory("signaling_messages_validated_total", "Signaling messages accepted by validation."),
	}

	r.SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pqcall", Name: "sessions_active",
		Help: "Currently live call sessions.",
	})
	r.MessagesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pqcall", Name: "signaling_messages_rejected_total",
		Help: "Signaling messages rejected by validation.",
	}, []string{"reason"})
	r.RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pqcall", Name: "http_requests_total",
		Help: "HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})
	r.RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pqcall", Name: "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(r.SessionsActive, r.MessagesRejected, r.RequestsTotal, r.RequestDuration)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry, creating it on first use.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Handler returns the handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

func (r *Registry) TokenIssued() {
	if r != nil {
		r.TokensIssued.Inc()
	}
}

func (r *Registry) TokenRevoked() {
	if r != nil {
		r.TokensRevoked.Inc()
	}
}

func (r *Registry) TokensSwept(n int) {
	if r != nil {
		r.TokensSweptC.Add(float64(n))
	}
}

func (r *Registry) CallInitiated() {
	if r != nil {
		r.CallsInitiated.Inc()
		r.SessionsActive.Inc()
	}
}

func (r *Registry) CallRejected() {
	if r != nil {
		r.CallsRejected.Inc()
	}
}

func (r *Registry) SessionEnded() {
	if r != nil {
		r.SessionsEnded.Inc()
		r.SessionsActive.Dec()
	}
}

func (r *Registry) MessageCreated() {
	if r != nil {
		r.MessagesCreated.Inc()
	}
}

func (r *Registry) MessageValidated() {
	if r != nil {
		r.MessagesValidated.Inc()
	}
}

func (r *Registry) MessageRejected(reason string) {
	if r != nil {
		r.MessagesRejected.WithLabelValues(reason).Inc()
	}
}

func (r *Registry) ObserveRequest(method, route, status string, seconds float64) {
	if r != nil {
		r.RequestsTotal.WithLabelValues(method, route, status).Inc()
		r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
	}
}
