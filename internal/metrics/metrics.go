// Package metrics exposes controller metrics on an injected registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"zone_controller/internal/models"
)

const metricPrefix = "zone_"

// Metrics bundles the controller's collectors. It is constructed once in
// main and passed to the components that report through it.
type Metrics struct {
	Decisions       *prometheus.CounterVec
	InterlockBlocks prometheus.Counter
	Overrides       *prometheus.CounterVec
	AuditAppends    *prometheus.CounterVec
	SensorFaults    *prometheus.CounterVec
	Temperature     prometheus.Gauge
	Humidity        prometheus.Gauge
	TickDuration    prometheus.Histogram
	ModeRuntime     *prometheus.CounterVec

	start time.Time
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "decisions_total",
			Help: "Control loop decisions by final mode, origin and cause",
		}, []string{"mode", "origin", "cause"}),
		InterlockBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "interlock_blocks_total",
			Help: "Reversals replaced by OFF during the cooldown",
		}),
		Overrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "overrides_total",
			Help: "Override requests by source and result",
		}, []string{"source", "result"}),
		AuditAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "audit_appends_total",
			Help: "Audit journal appends by result",
		}, []string{"result"}),
		SensorFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "sensor_faults_total",
			Help: "Sensor readings that were not VALID, by status",
		}, []string{"status"}),
		Temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "temperature_celsius",
			Help: "Last plausible temperature reading",
		}),
		Humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "humidity_percent",
			Help: "Last plausible humidity reading",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "tick_duration_seconds",
			Help:    "Control loop tick duration",
			Buckets: prometheus.DefBuckets,
		}),
		ModeRuntime: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "mode_runtime_seconds_total",
			Help: "Time spent in each applied mode",
		}, []string{"mode"}),
		start: time.Now(),
	}
	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: metricPrefix + "uptime_seconds",
		Help: "Seconds since the controller started",
	}, func() float64 { return m.Uptime().Seconds() })

	reg.MustRegister(
		m.Decisions,
		m.InterlockBlocks,
		m.Overrides,
		m.AuditAppends,
		m.SensorFaults,
		m.Temperature,
		m.Humidity,
		m.TickDuration,
		m.ModeRuntime,
		uptime,
	)
	return m
}

// ObserveReading records gauges for plausible values and counts faults.
func (m *Metrics) ObserveReading(r models.SensorReading) {
	if r.Status != models.SensorValid {
		m.SensorFaults.WithLabelValues(string(r.Status)).Inc()
	}
	if r.Status == models.SensorError || r.Status == models.SensorStale {
		return
	}
	if r.Temperature != nil {
		m.Temperature.Set(*r.Temperature)
	}
	if r.Humidity != nil {
		m.Humidity.Set(*r.Humidity)
	}
}

// ObserveDecision counts the final decision of a tick.
func (m *Metrics) ObserveDecision(mode models.Mode, origin models.Origin, cause string) {
	m.Decisions.WithLabelValues(string(mode), string(origin), cause).Inc()
}

// ObserveOverride counts an override request. Sources outside the known
// set are reported as "other" since the value is client supplied.
func (m *Metrics) ObserveOverride(source string, err error) {
	m.Overrides.WithLabelValues(overrideSource(source), result(err)).Inc()
}

// ObserveRuntime adds d to the runtime of mode. Non-positive spans are
// ignored.
func (m *Metrics) ObserveRuntime(mode models.Mode, d time.Duration) {
	if d <= 0 || !mode.Valid() {
		return
	}
	m.ModeRuntime.WithLabelValues(string(mode)).Add(d.Seconds())
}

func (m *Metrics) ObserveAuditAppend(err error) {
	m.AuditAppends.WithLabelValues(result(err)).Inc()
}

// Uptime returns the time since New.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.start)
}

func overrideSource(s string) string {
	switch s {
	case "api", "button", "schedule":
		return s
	default:
		return "other"
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
