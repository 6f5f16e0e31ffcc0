package landkeeper

import (
	"fmt"

	"github.com/google/uuid"
)

// PlayerID identifies a distinct observer/actor within a land, stable
// across reconnects.
type PlayerID string

// ClientID identifies a single connection. A client belongs to exactly
// one player; LandKeeper records one client per joined player.
type ClientID string

// SessionID identifies a session. LandKeeper uses it both as the land's
// own identifier (ID, SetLandID) and, in Join, as the session a joined
// player is using.
type SessionID string

// NewSessionID generates a fresh, globally unique SessionID for callers
// that don't derive land identity from their own domain (e.g. a match ID
// or room name) and just need an opaque handle.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// NewClientID generates a fresh, globally unique ClientID for a newly
// accepted connection.
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

// connectionIndex resolves Client/Session-scoped event targets back to
// the player that owns them. LandKeeper implements it over the join
// associations recorded by Join.
type connectionIndex interface {
	playerForClient(id ClientID) (PlayerID, bool)
	playerForSession(id SessionID) (PlayerID, bool)
}

// EventTargetKind distinguishes the variants of EventTarget.
type EventTargetKind uint8

const (
	// TargetAll delivers to every connected player.
	TargetAll EventTargetKind = iota
	// TargetPlayer delivers to a single player.
	TargetPlayer
	// TargetPlayers delivers to an explicit set of players.
	TargetPlayers
	// TargetClient delivers to whichever player currently owns a client
	// connection.
	TargetClient
	// TargetSession delivers to whichever player currently owns a
	// session.
	TargetSession
)

// EventTarget selects which connected players receive a ServerEvent. It
// is a closed sum type: All | Player | Players | Client | Session.
type EventTarget struct {
	kind    EventTargetKind
	player  PlayerID
	players []PlayerID
	client  ClientID
	session SessionID
}

// AllPlayers targets every currently connected player.
func AllPlayers() EventTarget {
	return EventTarget{kind: TargetAll}
}

// ToPlayer targets a single player.
func ToPlayer(id PlayerID) EventTarget {
	return EventTarget{kind: TargetPlayer, player: id}
}

// ToPlayers targets an explicit set of players.
func ToPlayers(ids ...PlayerID) EventTarget {
	return EventTarget{kind: TargetPlayers, players: ids}
}

// ToClient targets whichever player currently owns client id. Resolves
// to nothing if no connected player owns that client.
func ToClient(id ClientID) EventTarget {
	return EventTarget{kind: TargetClient, client: id}
}

// ToSession targets whichever player currently owns session id.
// Resolves to nothing if no connected player owns that session.
func ToSession(id SessionID) EventTarget {
	return EventTarget{kind: TargetSession, session: id}
}

// Kind reports which variant this target is.
func (t EventTarget) Kind() EventTargetKind {
	return t.kind
}

// Resolve expands the target against the currently connected player set,
// returning the list of players that should receive the event. Client
// and Session targets are resolved through index, which may be nil if
// the target is known not to need it (Resolve then returns nil for
// those variants). Grounded on the per-tick event-target switch in the
// teacher's session tick loop.
func (t EventTarget) Resolve(connected []PlayerID, index connectionIndex) []PlayerID {
	switch t.kind {
	case TargetAll:
		out := make([]PlayerID, len(connected))
		copy(out, connected)
		return out
	case TargetPlayer:
		for _, id := range connected {
			if id == t.player {
				return []PlayerID{id}
			}
		}
		return nil
	case TargetPlayers:
		want := make(map[PlayerID]bool, len(t.players))
		for _, id := range t.players {
			want[id] = true
		}
		out := make([]PlayerID, 0, len(t.players))
		for _, id := range connected {
			if want[id] {
				out = append(out, id)
			}
		}
		return out
	case TargetClient:
		if index == nil {
			return nil
		}
		player, ok := index.playerForClient(t.client)
		if !ok {
			return nil
		}
		for _, id := range connected {
			if id == player {
				return []PlayerID{id}
			}
		}
		return nil
	case TargetSession:
		if index == nil {
			return nil
		}
		player, ok := index.playerForSession(t.session)
		if !ok {
			return nil
		}
		for _, id := range connected {
			if id == player {
				return []PlayerID{id}
			}
		}
		return nil
	default:
		return nil
	}
}

func (t EventTarget) String() string {
	switch t.kind {
	case TargetAll:
		return "all"
	case TargetPlayer:
		return fmt.Sprintf("player(%s)", t.player)
	case TargetPlayers:
		return fmt.Sprintf("players(%v)", t.players)
	case TargetClient:
		return fmt.Sprintf("client(%s)", t.client)
	case TargetSession:
		return fmt.Sprintf("session(%s)", t.session)
	default:
		return "unknown"
	}
}
