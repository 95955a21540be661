package events

// Event represents a structured state change emitted by the custody engine.
// Attributes carry enough fields (identifiers, amounts, actors, timestamps)
// for an external observer to reconstruct state without re-querying.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Emitter broadcasts events to downstream subscribers (RPC, indexers,
// metrics).
type Emitter interface {
	Emit(*Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for engines constructed without an observer.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(*Event) {}

// MultiEmitter fans an event out to every configured emitter in order.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(evt *Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(evt)
		}
	}
}
