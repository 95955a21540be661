package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"wagmicharge/core/events"
	"wagmicharge/native/custody"
)

type recorder struct {
	seen []*events.Event
}

func (r *recorder) Emit(evt *events.Event) { r.seen = append(r.seen, evt) }

func TestEmitterCountsAndForwards(t *testing.T) {
	next := &recorder{}
	emitter := Emitter{Next: next}

	createdBefore := testutil.ToFloat64(ordersCreated)
	settledBefore := testutil.ToFloat64(ordersSettled)

	emitter.Emit(&events.Event{Type: custody.EventTypeOrderCreated})
	emitter.Emit(&events.Event{Type: custody.EventTypeOrderSettled})
	emitter.Emit(&events.Event{Type: "custody.unrelated"})
	emitter.Emit(nil)

	if got := testutil.ToFloat64(ordersCreated) - createdBefore; got != 1 {
		t.Fatalf("created counter moved by %v, want 1", got)
	}
	if got := testutil.ToFloat64(ordersSettled) - settledBefore; got != 1 {
		t.Fatalf("settled counter moved by %v, want 1", got)
	}
	// Every event, counted or not, is forwarded downstream.
	if len(next.seen) != 4 {
		t.Fatalf("forwarded %d events, want 4", len(next.seen))
	}

	// A bare emitter with no downstream must not panic.
	Emitter{}.Emit(&events.Event{Type: custody.EventTypeBatchSettled})
}
