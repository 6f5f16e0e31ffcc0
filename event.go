package landkeeper

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// ServerEvent is a one-time message delivered to players. Unlike state
// updates, which are diffs of persistent state, events are discrete,
// fire-and-forget notifications that never enter the state tree and are
// not retained in FirstSync snapshots.
type ServerEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Tick    uint64          `json:"tick"`
	Seq     uint64          `json:"seq"`
}

// NewServerEvent marshals payload and constructs an event. Tick is
// stamped by the emitting LandKeeper; LandKeeper does not assign Seq, so
// it stays zero unless the caller sets it.
func NewServerEvent(eventType string, payload any) (ServerEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ServerEvent{}, &EventError{msg: "marshal payload: " + err.Error()}
	}
	return ServerEvent{Type: eventType, Payload: raw}, nil
}

// PendingEvent is an event queued for delivery to some subset of players.
type PendingEvent struct {
	Event  ServerEvent
	Target EventTarget
}

// EventBuffer collects events raised during a tick for delivery once the
// tick's mutation phase finishes. Grounded on the teacher's swap-buffer
// drain pattern for near-zero-allocation steady state.
type EventBuffer struct {
	mu     sync.Mutex
	events []PendingEvent
	swap   []PendingEvent
	count  atomic.Int32
}

// NewEventBuffer creates an empty buffer.
func NewEventBuffer() *EventBuffer {
	return &EventBuffer{
		events: make([]PendingEvent, 0, 8),
		swap:   make([]PendingEvent, 0, 8),
	}
}

// Add queues an event.
func (eb *EventBuffer) Add(event PendingEvent) {
	eb.mu.Lock()
	eb.events = append(eb.events, event)
	eb.count.Store(int32(len(eb.events)))
	eb.mu.Unlock()
}

// Drain returns all pending events and clears the buffer via buffer swap.
func (eb *EventBuffer) Drain() []PendingEvent {
	if eb.count.Load() == 0 {
		return nil
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if len(eb.events) == 0 {
		return nil
	}
	events := eb.events
	eb.events = eb.swap[:0]
	eb.swap = events[:0]
	eb.count.Store(0)
	return events
}

// Count returns the number of pending events, without locking.
func (eb *EventBuffer) Count() int {
	return int(eb.count.Load())
}

// HasEvents reports whether any events are pending, without locking.
func (eb *EventBuffer) HasEvents() bool {
	return eb.count.Load() > 0
}

// Clear discards all pending events without returning them.
func (eb *EventBuffer) Clear() {
	eb.mu.Lock()
	eb.events = eb.events[:0]
	eb.count.Store(0)
	eb.mu.Unlock()
}

// EventEmitter is the event-raising surface exposed to handlers through
// LandContext, mirroring EventTarget's closed set of variants.
type EventEmitter interface {
	// Emit sends an event to every connected player.
	Emit(eventType string, payload any) error

	// EmitTo sends an event to a single player.
	EmitTo(player PlayerID, eventType string, payload any) error

	// EmitToMany sends an event to an explicit set of players.
	EmitToMany(players []PlayerID, eventType string, payload any) error

	// EmitToClient sends an event to whichever player currently owns a
	// client connection.
	EmitToClient(client ClientID, eventType string, payload any) error

	// EmitToSession sends an event to whichever player currently owns a
	// session.
	EmitToSession(session SessionID, eventType string, payload any) error
}

// EventError represents an event-construction failure.
type EventError struct {
	msg string
}

func (e *EventError) Error() string {
	return "landkeeper: " + e.msg
}
