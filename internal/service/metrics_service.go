package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	autosaveTotal   *prometheus.CounterVec
	ingestTotal     prometheus.Counter
	exportTotal     *prometheus.CounterVec
}

// NewMetricsService registers the application's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	autosaveTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "form_autosave_total",
		Help: "Per-section autosave attempts by outcome",
	}, []string{"section", "outcome"})

	ingestTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attachments_ingested_total",
		Help: "Attachments stored by the ingestion pipeline",
	})

	exportTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_total",
		Help: "Export jobs by format and outcome",
	}, []string{"format", "outcome"})

	registry.MustRegister(requestDuration, requestTotal, autosaveTotal, ingestTotal, exportTotal)
	registry.MustRegister(prometheus.NewGoCollector())

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		autosaveTotal:   autosaveTotal,
		ingestTotal:     ingestTotal,
		exportTotal:     exportTotal,
	}
}

// Handler exposes the scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveRequest records one completed HTTP request.
func (s *MetricsService) ObserveRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveAutosave records one per-section autosave outcome.
func (s *MetricsService) ObserveAutosave(section string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	s.autosaveTotal.WithLabelValues(section, outcome).Inc()
}

// ObserveIngest records stored attachments.
func (s *MetricsService) ObserveIngest(count int) {
	s.ingestTotal.Add(float64(count))
}

// ObserveExport records one finished export job.
func (s *MetricsService) ObserveExport(format string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	s.exportTotal.WithLabelValues(format, outcome).Inc()
}
