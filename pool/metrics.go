package pool

import "github.com/prometheus/client_golang/prometheus"

// metrics exposes JMX-style pool instrumentation through Prometheus
// collectors (SPEC_FULL.md §4), one registered set per Pool id so
// multiple pools in one process don't collide on label values.
type metrics struct {
	idle     prometheus.Gauge
	active   prometheus.Gauge
	total    prometheus.Gauge
	waiters  prometheus.Gauge
	waitTime prometheus.Histogram
	created  prometheus.Counter
	closed   prometheus.Counter
}

func newMetrics(poolID string) *metrics {
	labels := prometheus.Labels{"pool": poolID}
	m := &metrics{
		idle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomariadb_pool_idle_connections", ConstLabels: labels,
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomariadb_pool_active_connections", ConstLabels: labels,
		}),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomariadb_pool_total_connections", ConstLabels: labels,
		}),
		waiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomariadb_pool_pending_waiters", ConstLabels: labels,
		}),
		waitTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "gomariadb_pool_wait_seconds", ConstLabels: labels,
			Buckets: prometheus.DefBuckets,
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomariadb_pool_connections_created_total", ConstLabels: labels,
		}),
		closed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomariadb_pool_connections_closed_total", ConstLabels: labels,
		}),
	}
	prometheus.MustRegister(m.idle, m.active, m.total, m.waiters, m.waitTime, m.created, m.closed)
	return m
}

func (m *metrics) unregister() {
	prometheus.Unregister(m.idle)
	prometheus.Unregister(m.active)
	prometheus.Unregister(m.total)
	prometheus.Unregister(m.waiters)
	prometheus.Unregister(m.waitTime)
	prometheus.Unregister(m.created)
	prometheus.Unregister(m.closed)
}
