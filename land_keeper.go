package landkeeper

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// lifecycleState is the LandKeeper's coarse run state.
type lifecycleState int32

const (
	lifecycleIdle lifecycleState = iota
	lifecycleRunning
	lifecycleStopped
)

// connection records the client/session a joined player is using,
// letting EventTarget's Client/Session variants resolve back to a
// player.
type connection struct {
	player  PlayerID
	client  ClientID
	session SessionID
}

// actionSubmission is a queued action awaiting its tick. Its resolver
// phase has already run to completion by the time it reaches the
// queue - only the handler invocation itself is deferred to the tick.
type actionSubmission struct {
	player   PlayerID
	envelope ActionEnvelope
	outputs  map[string]interface{}
	future   *ActionFuture
}

// clientEventSubmission is a queued client event awaiting its tick.
type clientEventSubmission struct {
	player   PlayerID
	envelope ClientEventEnvelope
}

// syncMode selects how LandContext.SyncNow/SyncBroadcastOnly forces an
// off-cycle resync at the end of the current tick.
type syncMode uint8

const (
	syncModeNone syncMode = iota
	// syncModeNow forces a full resync for a single player.
	syncModeNow
	// syncModeBroadcastOnly forces a full resync for every connected
	// player.
	syncModeBroadcastOnly
)

type syncRequest struct {
	mode   syncMode
	player PlayerID
}

// LandKeeper owns a single land's state tree and advances it on a fixed
// tick cadence. It is the sole writer of its state tree: every mutation
// happens on the tick goroutine, serialized behind the action/client-event
// queues, so handlers never need their own locking around root state.
type LandKeeper struct {
	id   SessionID
	def  *LandDefinition
	root StateNode

	sync      *SyncEngine
	transport Transport
	recorder  *ReevaluationRecorder
	logger    *zap.Logger
	services  *ServiceRegistry

	mu           sync.RWMutex
	connections  map[PlayerID]connection
	clientIndex  map[ClientID]PlayerID
	sessionIndex map[SessionID]PlayerID
	metadata     map[string]interface{}

	syncMu      sync.Mutex
	pendingSync syncRequest

	actions      chan actionSubmission
	clientEvents chan clientEventSubmission
	events       *EventBuffer

	tick      atomic.Uint64
	state     atomic.Int32
	stopCh    chan struct{}
	doneCh    chan struct{}
	wg        sync.WaitGroup
	admission []AdmissionHook
}

// NewLandKeeper constructs a keeper for def, rooted at root, delivering
// through transport. Pass a NopTransport (or nil) for headless use
// (tests, reevaluation); a recorder is attached separately with
// SetRecorder.
func NewLandKeeper(id SessionID, def *LandDefinition, root StateNode, transport Transport, logger *zap.Logger) *LandKeeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if transport == nil {
		transport = NopTransport{}
	}
	return &LandKeeper{
		id:           id,
		def:          def,
		root:         root,
		sync:         NewSyncEngine(),
		transport:    transport,
		logger:       logger,
		services:     NewServiceRegistry(),
		connections:  make(map[PlayerID]connection),
		clientIndex:  make(map[ClientID]PlayerID),
		sessionIndex: make(map[SessionID]PlayerID),
		metadata:     make(map[string]interface{}),
		actions:      make(chan actionSubmission, 256),
		clientEvents: make(chan clientEventSubmission, 256),
		events:       NewEventBuffer(),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// SetRecorder attaches a ReevaluationRecorder. Must be called before Run.
func (lk *LandKeeper) SetRecorder(r *ReevaluationRecorder) {
	lk.recorder = r
}

// SetTransport swaps the active Transport. Like SetRecorder, this is
// meant to be called before Run starts; it does not synchronize with a
// tick goroutine already in flight.
func (lk *LandKeeper) SetTransport(t Transport) {
	if t == nil {
		t = NopTransport{}
	}
	lk.transport = t
}

// SetLandID changes the keeper's session identifier, for callers that
// provision a land before its real ID (e.g. a persisted match ID) is
// known. Like SetRecorder, call before Run.
func (lk *LandKeeper) SetLandID(id SessionID) {
	lk.id = id
}

// Services returns the keeper's service registry, for registering
// dependencies handlers look up via landkeeper.Service[T].
func (lk *LandKeeper) Services() *ServiceRegistry {
	return lk.services
}

// UseAdmissionHook registers a join-admission check, run in registration
// order; the first rejection wins.
func (lk *LandKeeper) UseAdmissionHook(hook AdmissionHook) {
	lk.admission = append(lk.admission, hook)
}

// ID returns the land's session identifier.
func (lk *LandKeeper) ID() SessionID { return lk.id }

// Tick returns the current tick counter.
func (lk *LandKeeper) Tick() uint64 { return lk.tick.Load() }

// CurrentState returns the live root state node. It is safe to read from
// any goroutine, but only the tick goroutine may mutate it; callers that
// need a stable point-in-time view should read it from within a handler.
func (lk *LandKeeper) CurrentState() StateNode { return lk.root }

// Join admits player over client/session, running admission hooks first.
// Returns *AlreadyJoinedError if the player is already connected.
func (lk *LandKeeper) Join(ctx context.Context, player PlayerID, client ClientID, session SessionID) error {
	lk.mu.Lock()
	if _, ok := lk.connections[player]; ok {
		lk.mu.Unlock()
		return &AlreadyJoinedError{Player: player}
	}
	lk.mu.Unlock()

	for _, hook := range lk.admission {
		if err := hook(ctx, player); err != nil {
			return err
		}
	}

	lk.mu.Lock()
	lk.connections[player] = connection{player: player, client: client, session: session}
	lk.clientIndex[client] = player
	lk.sessionIndex[session] = player
	lk.mu.Unlock()
	return nil
}

// Leave removes player. Returns *NotJoinedError if they weren't
// connected.
func (lk *LandKeeper) Leave(player PlayerID) error {
	lk.mu.Lock()
	conn, ok := lk.connections[player]
	if !ok {
		lk.mu.Unlock()
		return &NotJoinedError{Player: player}
	}
	delete(lk.connections, player)
	delete(lk.clientIndex, conn.client)
	delete(lk.sessionIndex, conn.session)
	lk.mu.Unlock()

	lk.sync.Drop(player)
	return nil
}

// ConnectedPlayers returns a snapshot of currently connected players.
func (lk *LandKeeper) ConnectedPlayers() []PlayerID {
	lk.mu.RLock()
	defer lk.mu.RUnlock()
	out := make([]PlayerID, 0, len(lk.connections))
	for p := range lk.connections {
		out = append(out, p)
	}
	return out
}

func (lk *LandKeeper) playerForClient(id ClientID) (PlayerID, bool) {
	lk.mu.RLock()
	defer lk.mu.RUnlock()
	p, ok := lk.clientIndex[id]
	return p, ok
}

func (lk *LandKeeper) playerForSession(id SessionID) (PlayerID, bool) {
	lk.mu.RLock()
	defer lk.mu.RUnlock()
	p, ok := lk.sessionIndex[id]
	return p, ok
}

// SubmitAction runs actionType's resolver pipeline synchronously, then
// enqueues the action for the next tick only if every resolver
// succeeded. Resolvers receive the land ID, player and envelope; the
// state tree is not passed to them. The returned future completes once the tick
// that processes the action finishes running its handler. A resolver
// failure, an unknown action type, or an unjoined player is rejected
// immediately: nothing is enqueued and no future is returned.
func (lk *LandKeeper) SubmitAction(ctx context.Context, player PlayerID, envelope ActionEnvelope) (*ActionFuture, error) {
	lk.mu.RLock()
	_, joined := lk.connections[player]
	lk.mu.RUnlock()
	if !joined {
		return nil, &NotJoinedError{Player: player}
	}

	handler := lk.def.HandlerFor(envelope.Type)
	if handler == nil {
		return nil, &UnknownActionError{ActionType: envelope.Type}
	}

	resolvers := lk.def.ResolversFor(envelope.Type)
	rc := &ResolverContext{LandID: lk.id, Player: player, Action: envelope}
	outputs, err := runResolvers(ctx, rc, resolvers)
	if err != nil {
		return nil, err
	}

	future := newActionFuture()
	select {
	case lk.actions <- actionSubmission{player: player, envelope: envelope, outputs: outputs, future: future}:
		return future, nil
	default:
		lk.logger.Warn("action queue full, dropping", zap.String("player", string(player)), zap.String("type", envelope.Type))
		return nil, &QueueFullError{Kind: "action", Type: envelope.Type}
	}
}

// SubmitClientEvent enqueues a client event for the next tick. Client
// events have no resolver phase - they're informational and never
// mutate state - so there is no future to wait on.
func (lk *LandKeeper) SubmitClientEvent(player PlayerID, envelope ClientEventEnvelope) error {
	lk.mu.RLock()
	joined := lk.isConnected(player)
	lk.mu.RUnlock()
	if !joined {
		return &NotJoinedError{Player: player}
	}
	select {
	case lk.clientEvents <- clientEventSubmission{player: player, envelope: envelope}:
		return nil
	default:
		lk.logger.Warn("client event queue full, dropping", zap.String("player", string(player)), zap.String("type", envelope.Type))
		return &QueueFullError{Kind: "client event", Type: envelope.Type}
	}
}

// isConnected reports whether player has joined. Callers must hold
// lk.mu.
func (lk *LandKeeper) isConnected(player PlayerID) bool {
	_, ok := lk.connections[player]
	return ok
}

// Run starts the tick loop and blocks until ctx is canceled or Stop is
// called. It is meant to be run on its own goroutine. A tickless
// definition (Tickless() true) runs no wall-clock ticker at all; the
// land only advances when something calls StepOnce.
func (lk *LandKeeper) Run(ctx context.Context) {
	if !lk.state.CompareAndSwap(int32(lifecycleIdle), int32(lifecycleRunning)) {
		return
	}
	defer func() {
		lk.state.Store(int32(lifecycleStopped))
		close(lk.doneCh)
	}()

	if lk.def.Tickless() {
		select {
		case <-ctx.Done():
		case <-lk.stopCh:
		}
		return
	}

	ticker := time.NewTicker(lk.def.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lk.stopCh:
			return
		case start := <-ticker.C:
			_ = lk.stepTick(ctx)
			if elapsed := time.Since(start); elapsed > lk.def.TickInterval {
				lk.logger.Warn("tick overrun",
					zap.Uint64("tick", lk.tick.Load()),
					zap.Duration("interval", lk.def.TickInterval),
					zap.Duration("elapsed", elapsed))
			}
		}
	}
}

// Stop signals the tick loop to exit, waits for in-flight spawned work
// and the loop goroutine to finish, then completes any actions still
// sitting in the queue with *LandStoppedError so no submitter is left
// waiting on a future that will never resolve.
func (lk *LandKeeper) Stop() {
	select {
	case <-lk.stopCh:
	default:
		close(lk.stopCh)
	}
	<-lk.doneCh
	lk.wg.Wait()

	for _, sub := range lk.drainActions() {
		if sub.future != nil {
			sub.future.complete(&LandStoppedError{})
		}
	}
}

// StepOnce drains the current queues and advances the land by exactly
// one tick, synchronously. Used by tests, tickless lands stepped
// externally, and by the reevaluation engine, which replays ticks
// without a wall-clock ticker.
func (lk *LandKeeper) StepOnce(ctx context.Context) error {
	return lk.stepTick(ctx)
}

func (lk *LandKeeper) stepTick(ctx context.Context) error {
	tick := lk.tick.Add(1)

	var frame TickFrame
	if lk.recorder != nil {
		frame = TickFrame{Tick: tick, Timestamp: time.Now().UnixNano()}
	}

	actions := lk.drainActions()
	clientEvts := lk.drainClientEvents()

	for _, sub := range actions {
		handler := lk.def.HandlerFor(sub.envelope.Type)
		if handler == nil {
			lk.logger.Warn("unknown action type", zap.String("type", sub.envelope.Type))
			if sub.future != nil {
				sub.future.complete(&UnknownActionError{ActionType: sub.envelope.Type})
			}
			continue
		}

		lc := lk.newContext(ctx, sub.player)
		err := handler(lc, sub.player, sub.envelope.Payload, NewResolverOutputs(sub.outputs))
		if err != nil {
			lk.logger.Error("action handler failed", zap.String("type", sub.envelope.Type), zap.Error(err))
		}
		if sub.future != nil {
			sub.future.complete(err)
		}

		if lk.recorder != nil {
			frame.Actions = append(frame.Actions, RecordedAction{
				Player: sub.player, Type: sub.envelope.Type, Payload: sub.envelope.Payload,
				ResolverOutputs: sub.outputs,
			})
		}
	}

	for _, sub := range clientEvts {
		handler := lk.def.ClientEventHandlerFor(sub.envelope.Type)
		if handler == nil {
			continue
		}
		lc := lk.newContext(ctx, sub.player)
		if err := handler(lc, sub.player, sub.envelope.Payload); err != nil {
			lk.logger.Error("client event handler failed", zap.String("type", sub.envelope.Type), zap.Error(err))
		}
		if lk.recorder != nil {
			frame.ClientEvents = append(frame.ClientEvents, RecordedClientEvent{
				Player: sub.player, Type: sub.envelope.Type, Payload: sub.envelope.Payload,
			})
		}
	}

	if lk.def.tickHandler != nil {
		lc := lk.newContext(ctx, "")
		if err := lk.def.tickHandler(lc); err != nil {
			lk.logger.Error("tick handler failed", zap.Error(err))
		}
	}

	pending := lk.events.Drain()
	players := lk.ConnectedPlayers()
	for _, pe := range pending {
		targets := pe.Target.Resolve(players, lk)
		pe.Event.Tick = tick
		for _, player := range targets {
			if err := lk.transport.SendEvent(ctx, player, pe.Event); err != nil {
				lk.logger.Error("send event failed", zap.String("player", string(player)), zap.Error(err))
			}
		}
		if lk.recorder != nil {
			frame.EmittedEvents = append(frame.EmittedEvents, pe.Event)
		}
	}

	req := lk.consumeSyncRequest()
	for _, player := range players {
		if req.mode == syncModeBroadcastOnly || (req.mode == syncModeNow && req.player == player) {
			lk.sync.Drop(player)
		}
		update, err := lk.sync.Sync(tick, lk.root, player)
		if err != nil {
			lk.logger.Error("sync failed", zap.String("player", string(player)), zap.Error(err))
			continue
		}
		if update.Kind == UpdateNoChange {
			continue
		}
		if err := lk.transport.SendSync(ctx, player, update); err != nil {
			lk.logger.Error("send sync failed", zap.String("player", string(player)), zap.Error(err))
		}
	}

	lk.root.ClearChanges()

	if lk.recorder != nil {
		frame.StateHash = HashState(lk.root)
		lk.recorder.AppendFrame(frame)
	}
	return nil
}

func (lk *LandKeeper) requestSyncNow(player PlayerID) {
	lk.syncMu.Lock()
	lk.pendingSync = syncRequest{mode: syncModeNow, player: player}
	lk.syncMu.Unlock()
}

func (lk *LandKeeper) requestSyncBroadcastOnly() {
	lk.syncMu.Lock()
	lk.pendingSync = syncRequest{mode: syncModeBroadcastOnly}
	lk.syncMu.Unlock()
}

// consumeSyncRequest returns the last-requested sync mode for this tick
// and resets it, making the request idempotent per tick.
func (lk *LandKeeper) consumeSyncRequest() syncRequest {
	lk.syncMu.Lock()
	defer lk.syncMu.Unlock()
	req := lk.pendingSync
	lk.pendingSync = syncRequest{}
	return req
}

func (lk *LandKeeper) drainActions() []actionSubmission {
	var out []actionSubmission
	for {
		select {
		case sub := <-lk.actions:
			out = append(out, sub)
		default:
			return out
		}
	}
}

func (lk *LandKeeper) drainClientEvents() []clientEventSubmission {
	var out []clientEventSubmission
	for {
		select {
		case sub := <-lk.clientEvents:
			out = append(out, sub)
		default:
			return out
		}
	}
}

func (lk *LandKeeper) newContext(ctx context.Context, caller PlayerID) *LandContext {
	return &LandContext{
		ctx:      ctx,
		keeper:   lk,
		LandID:   lk.id,
		Caller:   caller,
		Logger:   lk.logger,
		Services: lk.services,
	}
}

// LandContext is the handler-facing surface for emitting events,
// triggering out-of-band syncs, and spawning tracked background work.
// It is valid only for the duration of the handler call that received it.
type LandContext struct {
	ctx    context.Context
	keeper *LandKeeper

	LandID   SessionID
	Caller   PlayerID
	Logger   *zap.Logger
	Services *ServiceRegistry
}

var _ EventEmitter = (*LandContext)(nil)

// Context returns the request-scoped context.Context for cancellation
// and deadline propagation into external calls.
func (lc *LandContext) Context() context.Context { return lc.ctx }

// EmitEvent raises a ServerEvent for delivery at the end of the current
// tick, targeted per target.
func (lc *LandContext) EmitEvent(target EventTarget, eventType string, payload any) error {
	ev, err := NewServerEvent(eventType, payload)
	if err != nil {
		return err
	}
	lc.keeper.events.Add(PendingEvent{Event: ev, Target: target})
	return nil
}

// Emit sends an event to every connected player.
func (lc *LandContext) Emit(eventType string, payload any) error {
	return lc.EmitEvent(AllPlayers(), eventType, payload)
}

// EmitTo sends an event to a single player.
func (lc *LandContext) EmitTo(player PlayerID, eventType string, payload any) error {
	return lc.EmitEvent(ToPlayer(player), eventType, payload)
}

// EmitToMany sends an event to an explicit set of players.
func (lc *LandContext) EmitToMany(players []PlayerID, eventType string, payload any) error {
	return lc.EmitEvent(ToPlayers(players...), eventType, payload)
}

// EmitToClient sends an event to whichever player currently owns client.
func (lc *LandContext) EmitToClient(client ClientID, eventType string, payload any) error {
	return lc.EmitEvent(ToClient(client), eventType, payload)
}

// EmitToSession sends an event to whichever player currently owns
// session.
func (lc *LandContext) EmitToSession(session SessionID, eventType string, payload any) error {
	return lc.EmitEvent(ToSession(session), eventType, payload)
}

// SyncNow forces a full resync to be sent to the calling player at the
// end of the current tick, even if nothing in their view changed. Only
// the most recently requested sync mode this tick takes effect.
func (lc *LandContext) SyncNow() {
	lc.keeper.requestSyncNow(lc.Caller)
}

// SyncBroadcastOnly forces a full resync to every connected player at
// the end of the current tick, even if nothing changed. Only the most
// recently requested sync mode this tick takes effect.
func (lc *LandContext) SyncBroadcastOnly() {
	lc.keeper.requestSyncBroadcastOnly()
}

// Metadata reads a land-scoped metadata value set by SetMetadata.
func (lc *LandContext) Metadata(key string) (interface{}, bool) {
	lc.keeper.mu.RLock()
	defer lc.keeper.mu.RUnlock()
	v, ok := lc.keeper.metadata[key]
	return v, ok
}

// SetMetadata stores a land-scoped metadata value, visible to every
// subsequent handler call for this land.
func (lc *LandContext) SetMetadata(key string, value interface{}) {
	lc.keeper.mu.Lock()
	defer lc.keeper.mu.Unlock()
	lc.keeper.metadata[key] = value
}

// Spawn runs fn on its own goroutine, tracked by the keeper's internal
// WaitGroup so Stop does not return while spawned work is in flight.
// Spawned work must not touch the state tree directly; it should
// communicate results back via a future action or client event.
func (lc *LandContext) Spawn(fn func(ctx context.Context)) {
	lc.keeper.wg.Add(1)
	go func() {
		defer lc.keeper.wg.Done()
		fn(lc.ctx)
	}()
}

// marshalPayload is a small helper action handlers use to decode an
// action's raw JSON payload into a concrete type.
func marshalPayload(payload json.RawMessage, out interface{}) error {
	return json.Unmarshal(payload, out)
}
