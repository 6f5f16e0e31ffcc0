package landkeeper

import (
	"context"
	"encoding/json"
	"time"
)

// ActionHandler mutates the land's state tree in response to a single
// action. It runs exclusively on the land's tick goroutine: no other
// handler, resolver callback, or tick phase observes the state tree
// concurrently with it.
type ActionHandler func(lc *LandContext, player PlayerID, payload json.RawMessage, outputs ResolverOutputs) error

// ClientEventHandler processes a recorded client event. Like
// ActionHandler, it runs on the tick goroutine, but it may not mutate the
// state tree - client events are informational only.
type ClientEventHandler func(lc *LandContext, player PlayerID, payload json.RawMessage) error

// TickHandler runs once per tick, after that tick's actions and client
// events have been processed, regardless of whether either queue had
// anything in it. A land with no TickHandler registered is tickless: it
// never advances on a wall-clock cadence, only via an explicit
// LandKeeper.StepOnce call.
type TickHandler func(lc *LandContext) error

// LandDefinition is the immutable rule set a LandKeeper is instantiated
// from: its root schema, tick interval, and the actions, client events,
// tick handler, and resolvers it recognizes.
type LandDefinition struct {
	Name         string
	Schema       *Schema
	TickInterval time.Duration

	actions      map[string]ActionHandler
	clientEvents map[string]ClientEventHandler
	resolvers    *ResolverRegistry
	tickHandler  TickHandler
}

// NewLandDefinition creates a definition for name, rooted at schema,
// ticking every interval. A zero interval means the land is tickless: it
// only advances through explicit LandKeeper.StepOnce calls, never a
// wall-clock ticker. A negative interval is rejected.
func NewLandDefinition(name string, schema *Schema, interval time.Duration) (*LandDefinition, error) {
	if interval < 0 {
		return nil, &DefinitionError{msg: "tick interval must not be negative"}
	}
	return &LandDefinition{
		Name:         name,
		Schema:       schema,
		TickInterval: interval,
		actions:      make(map[string]ActionHandler),
		clientEvents: make(map[string]ClientEventHandler),
		resolvers:    NewResolverRegistry(),
	}, nil
}

// Tickless reports whether this definition has no periodic tick
// cadence: its interval is zero or it has no TickHandler registered.
func (d *LandDefinition) Tickless() bool {
	return d.TickInterval <= 0 || d.tickHandler == nil
}

// RegisterTickHandler sets the handler run once per tick, after actions
// and client events. Registering again replaces the previous handler.
func (d *LandDefinition) RegisterTickHandler(handler TickHandler) *LandDefinition {
	d.tickHandler = handler
	return d
}

// RegisterAction associates actionType with handler.
func (d *LandDefinition) RegisterAction(actionType string, handler ActionHandler) *LandDefinition {
	d.actions[actionType] = handler
	return d
}

// RegisterClientEvent associates eventType with handler.
func (d *LandDefinition) RegisterClientEvent(eventType string, handler ClientEventHandler) *LandDefinition {
	d.clientEvents[eventType] = handler
	return d
}

// RegisterResolver adds resolver to actionType's pre-handler pipeline.
func (d *LandDefinition) RegisterResolver(actionType string, resolver ContextResolver) *LandDefinition {
	d.resolvers.Add(actionType, resolver)
	return d
}

// HandlerFor returns the registered handler for actionType, or nil.
func (d *LandDefinition) HandlerFor(actionType string) ActionHandler {
	return d.actions[actionType]
}

// ClientEventHandlerFor returns the registered handler for eventType, or
// nil.
func (d *LandDefinition) ClientEventHandlerFor(eventType string) ClientEventHandler {
	return d.clientEvents[eventType]
}

// ResolversFor returns the resolver pipeline for actionType.
func (d *LandDefinition) ResolversFor(actionType string) []ContextResolver {
	return d.resolvers.For(actionType)
}

// KnownActionTypes reports whether actionType was registered.
func (d *LandDefinition) KnownActionTypes(actionType string) bool {
	_, ok := d.actions[actionType]
	return ok
}

// AdmissionHook runs before a player is allowed to join, and may reject
// the join by returning an error.
type AdmissionHook func(ctx context.Context, player PlayerID) error
