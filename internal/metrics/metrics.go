package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	StatusTransitions  *prometheus.CounterVec
	DocumentsUploaded  prometheus.Counter
	DocumentsVerified  *prometheus.CounterVec
	MirrorReconciles   *prometheus.CounterVec
	PaymentsCreated    *prometheus.CounterVec
	UsersRegistered    prometheus.Counter
	QueueJobsProcessed *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civil_registry",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "civil_registry",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "path"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civil_registry",
			Subsystem: "applications",
			Name:      "status_transitions_total",
			Help:      "Application status transitions by target status.",
		}, []string{"status"}),
		DocumentsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "civil_registry",
			Subsystem: "documents",
			Name:      "uploaded_total",
			Help:      "Total number of documents uploaded.",
		}),
		DocumentsVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civil_registry",
			Subsystem: "documents",
			Name:      "verified_total",
			Help:      "Document verification decisions by outcome.",
		}, []string{"status"}),
		MirrorReconciles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civil_registry",
			Subsystem: "documents",
			Name:      "mirror_reconciles_total",
			Help:      "Document mirror reconciliation runs by result.",
		}, []string{"result"}),
		PaymentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civil_registry",
			Subsystem: "payments",
			Name:      "created_total",
			Help:      "Payments created by currency.",
		}, []string{"currency"}),
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "civil_registry",
			Subsystem: "users",
			Name:      "registered_total",
			Help:      "Total number of users registered.",
		}),
		QueueJobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civil_registry",
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Background jobs processed by type and result.",
		}, []string{"type", "result"}),
	}
}

// Handler exposes the registry over HTTP
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records a handled request. path is the route template, not the raw URL.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveTransition counts an application status change
func (m *Metrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(status).Inc()
}

// ObserveUpload counts a document upload
func (m *Metrics) ObserveUpload() {
	if m == nil {
		return
	}
	m.DocumentsUploaded.Inc()
}

// ObserveVerification counts a verification decision
func (m *Metrics) ObserveVerification(status string) {
	if m == nil {
		return
	}
	m.DocumentsVerified.WithLabelValues(status).Inc()
}

// ObserveReconcile counts a mirror reconciliation
func (m *Metrics) ObserveReconcile(ok bool) {
	if m == nil {
		return
	}
	m.MirrorReconciles.WithLabelValues(result(ok)).Inc()
}

// ObservePayment counts a created payment
func (m *Metrics) ObservePayment(currency string) {
	if m == nil {
		return
	}
	m.PaymentsCreated.WithLabelValues(currency).Inc()
}

// ObserveRegistration counts a new account
func (m *Metrics) ObserveRegistration() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}

// ObserveJob counts a processed queue job
func (m *Metrics) ObserveJob(jobType string, ok bool) {
	if m == nil {
		return
	}
	m.QueueJobsProcessed.WithLabelValues(jobType, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
