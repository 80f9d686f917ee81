package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type runtimeMetrics struct {
	transactions *prometheus.CounterVec
	instructions *prometheus.CounterVec
	latency      prometheus.Histogram
}

type otcMetrics struct {
	operations *prometheus.CounterVec
	volume     *prometheus.CounterVec
}

var (
	runtimeMetricsOnce sync.Once
	runtimeRegistry    *runtimeMetrics

	otcMetricsOnce sync.Once
	otcRegistry    *otcMetrics
)

// Runtime returns the lazily-initialised metrics registry used by the
// transaction runtime.
func Runtime() *runtimeMetrics {
	runtimeMetricsOnce.Do(func() {
		runtimeRegistry = &runtimeMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "otc",
				Subsystem: "runtime",
				Name:      "transactions_total",
				Help:      "Submitted transactions segmented by outcome.",
			}, []string{"outcome"}),
			instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "otc",
				Subsystem: "runtime",
				Name:      "instructions_total",
				Help:      "Executed instructions segmented by program and outcome.",
			}, []string{"program", "outcome"}),
			latency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "otc",
				Subsystem: "runtime",
				Name:      "transaction_duration_seconds",
				Help:      "Latency distribution for transaction execution including commit.",
				Buckets:   prometheus.DefBuckets,
			}),
		}
		prometheus.MustRegister(
			runtimeRegistry.transactions,
			runtimeRegistry.instructions,
			runtimeRegistry.latency,
		)
	})
	return runtimeRegistry
}

// ObserveTransaction records the outcome and latency of one transaction.
func (m *runtimeMetrics) ObserveTransaction(err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(outcome(err)).Inc()
	m.latency.Observe(duration.Seconds())
}

// ObserveInstruction records the outcome of a single instruction.
func (m *runtimeMetrics) ObserveInstruction(program string, err error) {
	if m == nil {
		return
	}
	if strings.TrimSpace(program) == "" {
		program = "unknown"
	}
	m.instructions.WithLabelValues(program, outcome(err)).Inc()
}

// OTC returns the metrics registry for escrow order operations.
func OTC() *otcMetrics {
	otcMetricsOnce.Do(func() {
		otcRegistry = &otcMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "otc",
				Subsystem: "escrow",
				Name:      "operations_total",
				Help:      "Escrow operations segmented by operation and result reason.",
			}, []string{"operation", "reason"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "otc",
				Subsystem: "escrow",
				Name:      "settled_units_total",
				Help:      "Token units released from escrow segmented by outcome (filled or cancelled).",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(otcRegistry.operations, otcRegistry.volume)
	})
	return otcRegistry
}

// RecordOperation counts an escrow operation. Reason should be "ok" on
// success or a stable error name such as "OrderNotActive".
func (m *otcMetrics) RecordOperation(operation, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.operations.WithLabelValues(operation, reason).Inc()
}

// RecordSettlement adds the units that left escrow.
func (m *otcMetrics) RecordSettlement(outcome string, units uint64) {
	if m == nil {
		return
	}
	m.volume.WithLabelValues(outcome).Add(float64(units))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
