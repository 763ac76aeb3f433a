package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics aggregates the protocol counters exposed on /metrics.
type LendingMetrics struct {
	liquidationsExecuted prometheus.Counter
	liquidationsRejected *prometheus.CounterVec
	swapsExecuted        *prometheus.CounterVec
	swapsRejected        *prometheus.CounterVec
	callbacksRejected    *prometheus.CounterVec
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

// Lending returns the process-wide metrics registry, registering the
// collectors on first use.
func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			liquidationsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lending_liquidations_executed_total",
				Help: "Count of successful liquidation calls.",
			}),
			liquidationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_liquidations_rejected_total",
				Help: "Count of rejected liquidation calls by reason.",
			}, []string{"reason"}),
			swapsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "amm_swaps_executed_total",
				Help: "Count of accepted swap routes by kind.",
			}, []string{"kind"}),
			swapsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "amm_swaps_rejected_total",
				Help: "Count of rejected swap requests by reason.",
			}, []string{"reason"}),
			callbacksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "amm_callbacks_rejected_total",
				Help: "Count of rejected venue callbacks by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			lendingRegistry.liquidationsExecuted,
			lendingRegistry.liquidationsRejected,
			lendingRegistry.swapsExecuted,
			lendingRegistry.swapsRejected,
			lendingRegistry.callbacksRejected,
		)
	})
	return lendingRegistry
}

// RecordLiquidation counts one successful liquidation.
func (m *LendingMetrics) RecordLiquidation() {
	if m == nil {
		return
	}
	m.liquidationsExecuted.Inc()
}

// RecordLiquidationRejected counts one rejected liquidation by reason.
func (m *LendingMetrics) RecordLiquidationRejected(reason string) {
	if m == nil {
		return
	}
	m.liquidationsRejected.WithLabelValues(reason).Inc()
}

// RecordSwap counts one accepted swap; kind is "explicit" or "auto".
func (m *LendingMetrics) RecordSwap(kind string) {
	if m == nil {
		return
	}
	m.swapsExecuted.WithLabelValues(kind).Inc()
}

// RecordSwapRejected counts one rejected swap request by reason.
func (m *LendingMetrics) RecordSwapRejected(reason string) {
	if m == nil {
		return
	}
	m.swapsRejected.WithLabelValues(reason).Inc()
}

// RecordCallbackRejected counts one rejected venue callback by reason.
func (m *LendingMetrics) RecordCallbackRejected(reason string) {
	if m == nil {
		return
	}
	m.callbacksRejected.WithLabelValues(reason).Inc()
}
