package service

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the counters the API and
// background workers report into.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	uploadsTotal   *prometheus.CounterVec
	filesReclaimed prometheus.Counter
	sweepRuns      *prometheus.CounterVec
}

// NewMetricsService builds a service with its own registry so tests never
// collide on the global default.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distribution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "module_file_uploads_total",
			Help: "Uploaded module attachments by file kind.",
		}, []string{"kind"}),
		filesReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attachment_sweeper_reclaimed_total",
			Help: "Temporary attachments removed by the sweeper.",
		}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attachment_sweeper_runs_total",
			Help: "Sweeper passes by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(s.httpRequests, s.httpDuration, s.uploadsTotal, s.filesReclaimed, s.sweepRuns)
	return s
}

// Middleware records request counts and latencies per route.
func (s *MetricsService) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		s.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry for scraping.
func (s *MetricsService) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordUpload counts one accepted upload of the given kind.
func (s *MetricsService) RecordUpload(kind string) {
	s.uploadsTotal.WithLabelValues(kind).Inc()
}

// RecordSweep counts one sweeper pass and the attachments it reclaimed.
func (s *MetricsService) RecordSweep(outcome string, reclaimed int) {
	s.sweepRuns.WithLabelValues(outcome).Inc()
	if reclaimed > 0 {
		s.filesReclaimed.Add(float64(reclaimed))
	}
}
