// Package metric exposes connection counters as prometheus metrics.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "block"

// Label values of the direction label.
const (
	Pushed = "pushed"
	Popped = "popped"
)

// Metrics holds the collectors shared by all connections of a pipeline.
type Metrics struct {
	samples  *prometheus.CounterVec
	batches  *prometheus.CounterVec
	rounds   *prometheus.CounterVec
	capacity *prometheus.GaugeVec
}

// New creates metrics and registers them with reg. If reg is nil,
// collectors are created but not registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "samples_total",
			Help:      "Number of samples transferred through a connection.",
		}, []string{"connection", "direction"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "batches_total",
			Help:      "Number of push and pop calls that moved samples.",
		}, []string{"connection", "direction"}),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "rounds_total",
			Help:      "Number of completed fan-out rounds.",
		}, []string{"connection"}),
		capacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "capacity_samples",
			Help:      "Buffer capacity of a connection in samples.",
		}, []string{"connection", "kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.samples, m.batches, m.rounds, m.capacity)
	}
	return m
}

// Meter returns a meter for a single connection. Calling it on nil
// metrics returns a nil meter, which is valid and records nothing.
func (m *Metrics) Meter(connection, kind string, capacity int) *Meter {
	if m == nil {
		return nil
	}
	m.capacity.WithLabelValues(connection, kind).Set(float64(capacity))
	return &Meter{
		pushed:        m.samples.WithLabelValues(connection, Pushed),
		popped:        m.samples.WithLabelValues(connection, Popped),
		pushedBatches: m.batches.WithLabelValues(connection, Pushed),
		poppedBatches: m.batches.WithLabelValues(connection, Popped),
		rounds:        m.rounds.WithLabelValues(connection),
	}
}

// Forget drops all series of the connection.
func (m *Metrics) Forget(connection string) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"connection": connection}
	m.samples.DeletePartialMatch(labels)
	m.batches.DeletePartialMatch(labels)
	m.rounds.DeletePartialMatch(labels)
	m.capacity.DeletePartialMatch(labels)
}

// Meter captures counters of one connection.
type Meter struct {
	pushed        prometheus.Counter
	popped        prometheus.Counter
	pushedBatches prometheus.Counter
	poppedBatches prometheus.Counter
	rounds        prometheus.Counter
}

// Push records samples written by the producer.
func (m *Meter) Push(samples int) {
	if m == nil || samples == 0 {
		return
	}
	m.pushed.Add(float64(samples))
	m.pushedBatches.Inc()
}

// Pop records samples read by a consumer.
func (m *Meter) Pop(samples int) {
	if m == nil || samples == 0 {
		return
	}
	m.popped.Add(float64(samples))
	m.poppedBatches.Inc()
}

// Round records a completed fan-out round.
func (m *Meter) Round() {
	if m == nil {
		return
	}
	m.rounds.Inc()
}
