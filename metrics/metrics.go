package metrics

import (
	"github.com/mackerelio/go-osstat/memory"
	"github.com/prometheus/client_golang/prometheus"
)

// The collectors exist from start so that code can update them unconditionally,
// RegisterMetrics only exposes them.
var (
	BlockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:      "block_height",
			Subsystem: "chain",
			Help:      "Number of the latest mined block.",
		},
	)

	Transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "transactions_total",
			Subsystem: "chain",
			Help:      "Executed transactions by contract kind and status.",
		},
		[]string{"kind", "status"},
	)

	MonitorRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:      "monitor_requests",
			Subsystem: "watchtower",
			Help:      "Monitor requests currently stored.",
		},
	)

	WatchtowerActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "actions_total",
			Subsystem: "watchtower",
			Help:      "Transactions sent by the watchtower by action and result.",
		},
		[]string{"action", "result"},
	)

	HostMemory = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "memory_bytes",
			Subsystem: "host",
			Help:      "Host memory as of the last sample.",
		},
		[]string{"kind"},
	)
)

var Registered = false

func RegisterMetrics(registerer prometheus.Registerer) {
	if Registered {
		return
	}
	Registered = true

	registerer.MustRegister(BlockHeight)
	registerer.MustRegister(Transactions)
	registerer.MustRegister(MonitorRequests)
	registerer.MustRegister(WatchtowerActions)
	registerer.MustRegister(HostMemory)
}

// UpdateHostMemory samples the memory stats of the host.
func UpdateHostMemory() error {
	stats, err := memory.Get()
	if err != nil {
		return err
	}
	HostMemory.WithLabelValues("total").Set(float64(stats.Total))
	HostMemory.WithLabelValues("used").Set(float64(stats.Used))
	HostMemory.WithLabelValues("free").Set(float64(stats.Free))
	return nil
}
