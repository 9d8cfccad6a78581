package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Monitor collects and provides operational metrics for the stock core
type Monitor struct {
	metrics      map[string]interface{}
	metricsMutex sync.RWMutex
	startTime    time.Time

	adjustments *prometheus.CounterVec
	restocks    prometheus.Counter
	issues      prometheus.Counter
	alerts      *prometheus.CounterVec
}

// NewMonitor creates a new monitoring instance. Collectors are created
// unregistered; call Register once with the process-wide registerer.
func NewMonitor() *Monitor {
	return &Monitor{
		metrics:   make(map[string]interface{}),
		startTime: time.Now(),
		adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_adjustments_total",
			Help: "Number of stock quantity adjustments by direction.",
		}, []string{"direction"}),
		restocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stock_restocks_total",
			Help: "Number of completed restock operations.",
		}),
		issues: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stock_issues_total",
			Help: "Number of completed stock issue operations.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_alerts_dispatched_total",
			Help: "Number of stock alerts dispatched by severity.",
		}, []string{"severity"}),
	}
}

// Register attaches the Prometheus collectors to a registerer
func (m *Monitor) Register(registerer prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{m.adjustments, m.restocks, m.issues, m.alerts} {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// RecordMetric records a metric value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics[name] = value
}

// RecordAdjustment records one quantity adjustment
func (m *Monitor) RecordAdjustment(delta float64) {
	direction := "increase"
	if delta < 0 {
		direction = "decrease"
	}
	m.adjustments.WithLabelValues(direction).Inc()
	m.RecordMetric("last_adjustment_at", time.Now().Format(time.RFC3339))
}

// RecordRestock records one completed restock
func (m *Monitor) RecordRestock() {
	m.restocks.Inc()
	m.RecordMetric("last_restock_at", time.Now().Format(time.RFC3339))
}

// RecordIssue records one completed stock issue
func (m *Monitor) RecordIssue() {
	m.issues.Inc()
	m.RecordMetric("last_issue_at", time.Now().Format(time.RFC3339))
}

// RecordAlert records one dispatched alert
func (m *Monitor) RecordAlert(severity string) {
	m.alerts.WithLabelValues(severity).Inc()
	m.RecordMetric("last_alert_severity", severity)
}

// GetMetric returns a specific metric value
func (m *Monitor) GetMetric(name string) (interface{}, bool) {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()
	value, exists := m.metrics[name]
	return value, exists
}

// GetMetrics returns all current metrics
func (m *Monitor) GetMetrics() map[string]interface{} {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()

	// Create a copy to avoid concurrent map access
	metrics := make(map[string]interface{}, len(m.metrics))
	for k, v := range m.metrics {
		metrics[k] = v
	}

	// Add system metrics
	metrics["uptime_seconds"] = time.Since(m.startTime).Seconds()

	return metrics
}

// Reset clears all metrics
func (m *Monitor) Reset() {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics = make(map[string]interface{})
}
