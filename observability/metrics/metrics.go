package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"wagmicharge/core/events"
	"wagmicharge/native/custody"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "custody",
		Name:      "orders_created_total",
		Help:      "Orders taken into custody.",
	})
	ordersSettled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "custody",
		Name:      "orders_settled_total",
		Help:      "Orders disbursed to the operator account.",
	})
	ordersRefunded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "custody",
		Name:      "orders_refunded_total",
		Help:      "Orders refunded to their depositor.",
	})
	batchRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "custody",
		Name:      "batch_runs_total",
		Help:      "Batch settlement invocations.",
	})
	emergencyActivations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "custody",
		Name:      "emergency_activations_total",
		Help:      "Emergency lockdown activations.",
	})
)

// Emitter counts engine events before forwarding them to the wrapped emitter.
// Wrap the real observer with it when wiring the daemon.
type Emitter struct {
	Next events.Emitter
}

// Emit implements events.Emitter.
func (e Emitter) Emit(evt *events.Event) {
	if evt != nil {
		switch evt.Type {
		case custody.EventTypeOrderCreated:
			ordersCreated.Inc()
		case custody.EventTypeOrderSettled:
			ordersSettled.Inc()
		case custody.EventTypeOrderRefunded:
			ordersRefunded.Inc()
		case custody.EventTypeBatchSettled:
			batchRuns.Inc()
		case custody.EventTypeEmergencyActivated:
			emergencyActivations.Inc()
		}
	}
	if e.Next != nil {
		e.Next.Emit(evt)
	}
}
