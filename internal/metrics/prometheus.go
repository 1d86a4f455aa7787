package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"halmon/internal/models"
)

// Metrics exports the monitor's state. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Usage            *prometheus.GaugeVec
	MonitoringActive prometheus.Gauge
	AlarmsConfigured prometheus.Gauge
	AlarmsTriggered  *prometheus.CounterVec
	SampleFailures   *prometheus.CounterVec
	SampleDuration   prometheus.Histogram
	NotifyFailures   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	TotalRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Usage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "halmon_resource_usage_percent",
				Help: "Latest sampled usage percentage per resource",
			},
			[]string{"resource"},
		),
		MonitoringActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "halmon_monitoring_active",
				Help: "1 while the monitoring loop is running",
			},
		),
		AlarmsConfigured: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "halmon_alarms_configured",
				Help: "Number of alarm definitions in the store",
			},
		),
		AlarmsTriggered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "halmon_alarms_triggered_total",
				Help: "Alarms that produced a notification",
			},
			[]string{"resource"},
		),
		SampleFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "halmon_sample_failures_total",
				Help: "Readings that could not be taken",
			},
			[]string{"resource"},
		),
		SampleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "halmon_sample_duration_seconds",
				Help:    "Time spent taking one sample",
				Buckets: prometheus.DefBuckets,
			},
		),
		NotifyFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "halmon_notification_failures_total",
				Help: "Failed alarm deliveries",
			},
			[]string{"notifier"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "halmon_http_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		TotalRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "halmon_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
	}

	m.registry.MustRegister(
		m.Usage,
		m.MonitoringActive,
		m.AlarmsConfigured,
		m.AlarmsTriggered,
		m.SampleFailures,
		m.SampleDuration,
		m.NotifyFailures,
		m.RequestDuration,
		m.TotalRequests,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveSample records a sample's readings and the readings that failed
func (m *Metrics) ObserveSample(s models.Sample, took time.Duration, failed []models.ResourceType) {
	if m == nil {
		return
	}
	m.SampleDuration.Observe(took.Seconds())
	for _, rt := range models.ResourceTypes {
		if v, ok := s.Percent(rt); ok {
			m.Usage.WithLabelValues(rt.String()).Set(v)
		}
	}
	for _, rt := range failed {
		m.SampleFailures.WithLabelValues(rt.String()).Inc()
	}
}

func (m *Metrics) SetActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.MonitoringActive.Set(1)
	} else {
		m.MonitoringActive.Set(0)
		m.Usage.Reset()
	}
}

func (m *Metrics) SetAlarmCount(n int) {
	if m == nil {
		return
	}
	m.AlarmsConfigured.Set(float64(n))
}

func (m *Metrics) AlarmTriggered(rt models.ResourceType) {
	if m == nil {
		return
	}
	m.AlarmsTriggered.WithLabelValues(rt.String()).Inc()
}

func (m *Metrics) NotifyFailed(notifier string) {
	if m == nil {
		return
	}
	m.NotifyFailures.WithLabelValues(notifier).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route
func (m *Metrics) Middleware() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
		m.TotalRequests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
