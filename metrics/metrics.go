// Package metrics exports escrow engine activity to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/openescrow/core"
)

const namespace = "escrow"

// Collector implements core.Observer.
type Collector struct {
	operations     *prometheus.CounterVec
	poolBalance    prometheus.Gauge
	activeAuctions prometheus.Gauge
}

// NewCollector creates the escrow metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Mutating engine calls by operation and outcome (ok or the error kind)",
		}, []string{"op", "outcome"}),
		poolBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_balance",
			Help:      "Total amount escrowed for all bidders",
		}),
		activeAuctions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_auctions",
			Help:      "Number of live auctions",
		}),
	}
	for _, m := range []prometheus.Collector{c.operations, c.poolBalance, c.activeAuctions} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) ObserveOperation(op core.Operation, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(core.KindOf(err))
		if outcome == "" {
			outcome = "unknown"
		}
	}
	c.operations.WithLabelValues(string(op), outcome).Inc()
}

func (c *Collector) ObserveState(pool decimal.Decimal, activeAuctions int) {
	c.poolBalance.Set(pool.InexactFloat64())
	c.activeAuctions.Set(float64(activeAuctions))
}
