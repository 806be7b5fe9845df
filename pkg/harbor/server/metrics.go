package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yourusername/harbor/pkg/harbor/http11"
)

// metrics holds the Prometheus collectors of one Server. A nil *metrics
// records nothing.
type metrics struct {
	connections   prometheus.Counter
	active        prometheus.Gauge
	responses     *prometheus.CounterVec
	responseBytes prometheus.Counter
	duration      *prometheus.HistogramVec
	parseErrors   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		connections: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "harbor",
				Subsystem: "server",
				Name:      "connections_total",
				Help:      "Total number of accepted connections",
			},
		),
		active: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "harbor",
				Subsystem: "server",
				Name:      "active_connections",
				Help:      "Number of connections being served",
			},
		),
		responses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "harbor",
				Subsystem: "server",
				Name:      "responses_total",
				Help:      "Total number of responses written, by method and status",
			},
			[]string{"method", "status"},
		),
		responseBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "harbor",
				Subsystem: "server",
				Name:      "response_bytes_total",
				Help:      "Total number of response bytes written",
			},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "harbor",
				Subsystem: "server",
				Name:      "connection_duration_seconds",
				Help:      "Time from accept to the last response byte",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"method"},
		),
		parseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "harbor",
				Subsystem: "parser",
				Name:      "errors_total",
				Help:      "Total number of requests the parser rejected, by kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *metrics) connOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.active.Inc()
}

func (m *metrics) connClosed() {
	if m == nil {
		return
	}
	m.active.Dec()
}

func (m *metrics) observe(method string, status int, bytes int64, d time.Duration) {
	if m == nil {
		return
	}
	label := methodLabel(method)
	m.responses.WithLabelValues(label, strconv.Itoa(status)).Inc()
	m.responseBytes.Add(float64(bytes))
	m.duration.WithLabelValues(label).Observe(d.Seconds())
}

func (m *metrics) parseError(kind string) {
	if m == nil {
		return
	}
	m.parseErrors.WithLabelValues(kind).Inc()
}

// methodLabel keeps label cardinality bounded: unknown tokens collapse to
// OTHER and rejected requests have no method at all.
func methodLabel(method string) string {
	if method == "" {
		return "NONE"
	}
	if http11.ParseMethodID(method) == http11.MethodUnknown {
		return "OTHER"
	}
	return method
}
