package engine

import "github.com/prometheus/client_golang/prometheus"

// PoolMetrics holds the Prometheus instruments emitted by a Pool. Each Pool
// owns its own prometheus.Registry rather than registering against the
// global default registry, since an embeddable library must not assume it
// owns the host process's registry.
type PoolMetrics struct {
	Registry *prometheus.Registry

	WorkersActive prometheus.Gauge
	WorkersTotal  prometheus.Gauge
	TasksTotal    *prometheus.CounterVec
	TaskDuration  prometheus.Histogram
	ScalingEvents *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
}

// newPoolMetrics builds a fresh registry and instrument set, grounded on
// the teacher's WorkerPoolMetrics (internal/background/metrics.go), scoped
// down to what the core scheduler itself emits (task-level resource
// snapshots and notification metrics live at the host-binding boundary, not
// in this core).
func newPoolMetrics() *PoolMetrics {
	reg := prometheus.NewRegistry()

	m := &PoolMetrics{
		Registry: reg,
		WorkersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskengine",
			Name:      "workers_active",
			Help:      "Number of currently live worker goroutines.",
		}),
		WorkersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskengine",
			Name:      "workers_configured",
			Help:      "Configured worker count.",
		}),
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskengine",
			Name:      "tasks_total",
			Help:      "Total tasks processed, by outcome.",
		}, []string{"outcome"}), // completed, failed
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taskengine",
			Name:      "task_duration_seconds",
			Help:      "Task execution duration in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 1, 10, 60, 300},
		}),
		ScalingEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskengine",
			Name:      "scaling_events_total",
			Help:      "Worker count adjustments applied by the auto-config controller.",
		}, []string{"direction"}), // up, down
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskengine",
			Name:      "queue_depth",
			Help:      "Number of tasks currently pending dispatch.",
		}),
	}

	reg.MustRegister(m.WorkersActive, m.WorkersTotal, m.TasksTotal, m.TaskDuration, m.ScalingEvents, m.QueueDepth)
	return m
}
