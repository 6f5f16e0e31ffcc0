package landkeeper

import (
	"context"
	"encoding/json"
)

// ActionEnvelope is the wire shape of a single action submitted by a
// connected player.
type ActionEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClientEventEnvelope is the wire shape of a client-originated event: a
// message that does not mutate state through the handler pipeline but is
// still recorded for deterministic replay (e.g. a ping, an emote, a
// diagnostic marker).
type ClientEventEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Transport delivers SyncUpdates and ServerEvents to connected players
// and is the abstraction a LandKeeper depends on instead of any
// particular network stack (the transport implementation itself - a
// websocket hub, a message broker, an in-process test double - is
// outside this package's scope).
type Transport interface {
	// SendSync delivers a SyncUpdate to a single player.
	SendSync(ctx context.Context, player PlayerID, update SyncUpdate) error

	// SendEvent delivers a ServerEvent to a single player.
	SendEvent(ctx context.Context, player PlayerID, event ServerEvent) error
}

// ReevaluationSink receives recorded TickFrames as a land runs, so that a
// ReevaluationRecorder's output can be persisted incrementally rather
// than only at Save time.
type ReevaluationSink interface {
	// WriteFrame is called once per tick with that tick's frame.
	WriteFrame(frame TickFrame) error
}

// NopTransport discards everything sent to it. Useful for headless
// reevaluation runs and for tests that only care about recorded state,
// not delivery.
type NopTransport struct{}

func (NopTransport) SendSync(ctx context.Context, player PlayerID, update SyncUpdate) error {
	return nil
}

func (NopTransport) SendEvent(ctx context.Context, player PlayerID, event ServerEvent) error {
	return nil
}

// ReevaluationOutputMode selects how a ReevaluationEngine run delivers
// its replayed ticks.
type ReevaluationOutputMode uint8

const (
	// SinkOnly writes replayed frames to a ReevaluationSink only; no
	// Transport delivery occurs (the default for offline verification).
	SinkOnly ReevaluationOutputMode = iota
	// TransportAndSink additionally re-delivers the server events raised
	// during replay through a Transport, for live-replay tooling such as
	// a spectator view of a past session. Sync updates are not
	// re-delivered.
	TransportAndSink
)
