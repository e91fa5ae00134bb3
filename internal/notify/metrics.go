package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

const metricsNamespace = "catpoint"

// MetricsListener exposes the engine state as Prometheus metrics.
type MetricsListener struct {
	alarmStatus      prometheus.Gauge
	alarmTransitions *prometheus.CounterVec
	catDetected      prometheus.Gauge
	imagesAnalyzed   *prometheus.CounterVec
	sensorChanges    prometheus.Counter
}

// NewMetricsListener creates the collectors and registers them with reg.
func NewMetricsListener(reg prometheus.Registerer) (*MetricsListener, error) {
	m := &MetricsListener{
		alarmStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "alarm_status",
			Help:      "Current alarm status: 1 no alarm, 2 pending, 3 alarm.",
		}),
		alarmTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "alarm_status_writes_total",
			Help:      "Alarm status writes by target status.",
		}, []string{"status"}),
		catDetected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cat_detected",
			Help:      "1 when the latest analyzed image contained a cat.",
		}),
		imagesAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "images_analyzed_total",
			Help:      "Analyzed images by result.",
		}, []string{"cat"}),
		sensorChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sensor_changes_total",
			Help:      "Sensor set or sensor state changes.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.alarmStatus,
		m.alarmTransitions,
		m.catDetected,
		m.imagesAnalyzed,
		m.sensorChanges,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// AlarmStatusChanged updates the alarm gauge and counts the write.
func (m *MetricsListener) AlarmStatusChanged(_ context.Context, status domain.AlarmStatus) {
	m.alarmStatus.Set(float64(status))
	m.alarmTransitions.WithLabelValues(status.String()).Inc()
}

// CatDetected updates the cat gauge and counts the image.
func (m *MetricsListener) CatDetected(_ context.Context, detected bool) {
	value, label := 0.0, "false"
	if detected {
		value, label = 1, "true"
	}

	m.catDetected.Set(value)
	m.imagesAnalyzed.WithLabelValues(label).Inc()
}

// SensorStatusChanged counts the change.
func (m *MetricsListener) SensorStatusChanged(context.Context) {
	m.sensorChanges.Inc()
}
