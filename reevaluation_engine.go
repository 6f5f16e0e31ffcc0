package landkeeper

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Projector builds a fresh root StateNode for replay, mirroring however
// the live LandKeeper's initial state was constructed.
type Projector func() StateNode

// StepResult reports what happened when a single recorded tick was
// replayed.
type StepResult struct {
	Tick        uint64
	ExpectedHash uint32
	ActualHash   uint32
	Diverged     bool
}

// ReevaluationEngine re-executes a recorded land session against a fresh
// state tree and compares, tick by tick, the resulting state hash against
// the one captured live. It never re-invokes resolvers: their recorded
// outputs are fed back to handlers verbatim, so the run is reproducible
// even if whatever the resolvers originally consulted has since changed.
type ReevaluationEngine struct {
	def       *LandDefinition
	projector Projector
	logger    *zap.Logger
	outputMode ReevaluationOutputMode
	transport Transport
	sink      ReevaluationSink
}

// NewReevaluationEngine creates an engine that replays records against
// lands built from def using projector.
func NewReevaluationEngine(def *LandDefinition, projector Projector, logger *zap.Logger) *ReevaluationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReevaluationEngine{def: def, projector: projector, logger: logger, outputMode: SinkOnly}
}

// WithOutputMode configures how replayed frames are delivered. The sink,
// if non-nil, receives each frame that replays without divergence, in
// either mode; transport is only used when mode is TransportAndSink.
func (e *ReevaluationEngine) WithOutputMode(mode ReevaluationOutputMode, transport Transport, sink ReevaluationSink) *ReevaluationEngine {
	e.outputMode = mode
	e.transport = transport
	e.sink = sink
	return e
}

// Run replays record from its first frame, comparing state hashes, and
// returns a StepResult per replayed tick. It stops at the first
// divergence, returning the results so far (the last one diverged)
// together with a *DivergenceError. A
// non-nil *CompatibilityError means the record could not even begin
// replay; it is returned instead of any StepResults.
func (e *ReevaluationEngine) Run(ctx context.Context, record *ReevaluationRecord) ([]StepResult, error) {
	if err := e.checkCompatibility(record.Metadata); err != nil {
		return nil, err
	}

	root := e.projector()
	transport := Transport(NopTransport{})
	if e.outputMode == TransportAndSink && e.transport != nil {
		transport = e.transport
	}

	keeper := NewLandKeeper(SessionID("reevaluation"), e.def, root, transport, e.logger)

	results := make([]StepResult, 0, len(record.Frames))
	for _, frame := range record.Frames {
		if err := e.replayFrame(ctx, keeper, frame); err != nil {
			return results, err
		}

		actual := HashState(root)
		root.ClearChanges()
		res := StepResult{Tick: frame.Tick, ExpectedHash: frame.StateHash, ActualHash: actual, Diverged: actual != frame.StateHash}
		results = append(results, res)

		if res.Diverged {
			return results, &DivergenceError{Tick: frame.Tick, ExpectedHash: frame.StateHash, ActualHash: actual}
		}

		if e.sink != nil {
			_ = e.sink.WriteFrame(frame)
		}
	}
	return results, nil
}

// replayFrame applies one recorded tick's actions, client events, and
// tick handler directly to root's state, in the same order a live tick
// runs them, using the action's recorded resolver outputs instead of
// running resolvers live.
func (e *ReevaluationEngine) replayFrame(ctx context.Context, keeper *LandKeeper, frame TickFrame) error {
	for _, player := range recordedPlayers(frame) {
		keeper.mu.Lock()
		keeper.connections[player] = connection{player: player}
		keeper.mu.Unlock()
	}

	for _, action := range frame.Actions {
		handler := e.def.HandlerFor(action.Type)
		if handler == nil {
			return &UnknownActionError{ActionType: action.Type}
		}
		resolvers := e.def.ResolversFor(action.Type)
		outputs, err := replayResolvers(action.ResolverOutputs, resolvers)
		if err != nil {
			return err
		}
		lc := keeper.newContext(ctx, action.Player)
		if err := handler(lc, action.Player, action.Payload, NewResolverOutputs(outputs)); err != nil {
			return fmt.Errorf("landkeeper: replaying action %q at tick %d: %w", action.Type, frame.Tick, err)
		}
	}

	for _, ce := range frame.ClientEvents {
		handler := e.def.ClientEventHandlerFor(ce.Type)
		if handler == nil {
			continue
		}
		lc := keeper.newContext(ctx, ce.Player)
		if err := handler(lc, ce.Player, ce.Payload); err != nil {
			return fmt.Errorf("landkeeper: replaying client event %q at tick %d: %w", ce.Type, frame.Tick, err)
		}
	}

	if e.def.tickHandler != nil {
		lc := keeper.newContext(ctx, "")
		if err := e.def.tickHandler(lc); err != nil {
			return fmt.Errorf("landkeeper: replaying tick handler at tick %d: %w", frame.Tick, err)
		}
	}

	pending := keeper.events.Drain()
	players := keeper.ConnectedPlayers()
	for _, pe := range pending {
		pe.Event.Tick = frame.Tick
		for _, player := range pe.Target.Resolve(players, keeper) {
			if err := keeper.transport.SendEvent(ctx, player, pe.Event); err != nil {
				keeper.logger.Error("replay send event failed", zap.String("player", string(player)), zap.Error(err))
			}
		}
	}
	return nil
}

func recordedPlayers(frame TickFrame) []PlayerID {
	seen := make(map[PlayerID]bool)
	var out []PlayerID
	add := func(p PlayerID) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, a := range frame.Actions {
		add(a.Player)
	}
	for _, c := range frame.ClientEvents {
		add(c.Player)
	}
	return out
}

func (e *ReevaluationEngine) checkCompatibility(meta ReevaluationRecordMetadata) error {
	if meta.Version != RecordFormatVersion {
		return RecordVersionMismatchError(meta.Version, RecordFormatVersion)
	}
	if meta.LandType != e.def.Name {
		return LandTypeMismatchError(meta.LandType, e.def.Name)
	}
	if want := SchemaFingerprint(e.def.Schema); meta.SchemaFingerprint != want {
		return SchemaMismatchError(meta.SchemaFingerprint, want)
	}
	return nil
}
