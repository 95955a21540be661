package events

import "testing"

type recorder struct {
	seen []*Event
}

func (r *recorder) Emit(evt *Event) { r.seen = append(r.seen, evt) }

func TestMultiEmitter(t *testing.T) {
	first := &recorder{}
	second := &recorder{}
	multi := MultiEmitter{first, nil, second}

	evt := &Event{Type: "test.event", Attributes: map[string]string{"k": "v"}}
	multi.Emit(evt)

	if len(first.seen) != 1 || len(second.seen) != 1 {
		t.Fatalf("fan-out reached %d/%d emitters, want 1/1", len(first.seen), len(second.seen))
	}
	if first.seen[0] != evt {
		t.Fatalf("event not forwarded as-is")
	}

	// Empty and nil-only sets are safe.
	MultiEmitter{}.Emit(evt)
	MultiEmitter{nil}.Emit(evt)
	NoopEmitter{}.Emit(evt)
}
