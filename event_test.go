package landkeeper

import "testing"

func TestEventBufferDrain(t *testing.T) {
	eb := NewEventBuffer()
	if eb.HasEvents() {
		t.Fatal("new buffer should have no events")
	}

	ev, err := NewServerEvent("PlayerJoined", map[string]string{"player": "p1"})
	if err != nil {
		t.Fatalf("NewServerEvent: %v", err)
	}
	eb.Add(PendingEvent{Event: ev, Target: AllPlayers()})

	if !eb.HasEvents() {
		t.Fatal("expected HasEvents true after Add")
	}
	if got := eb.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}

	drained := eb.Drain()
	if len(drained) != 1 {
		t.Fatalf("Drain() returned %d events, want 1", len(drained))
	}
	if drained[0].Event.Type != "PlayerJoined" {
		t.Fatalf("drained event type = %q, want PlayerJoined", drained[0].Event.Type)
	}

	if eb.HasEvents() {
		t.Fatal("buffer should be empty after Drain")
	}
	if more := eb.Drain(); more != nil {
		t.Fatalf("second Drain() = %v, want nil", more)
	}
}

func TestEventBufferClear(t *testing.T) {
	eb := NewEventBuffer()
	ev, _ := NewServerEvent("Ping", nil)
	eb.Add(PendingEvent{Event: ev, Target: AllPlayers()})
	eb.Clear()

	if eb.HasEvents() {
		t.Fatal("expected no events after Clear")
	}
	if got := eb.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
}

func TestNewSessionAndClientIDAreUniqueAndNonEmpty(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	if a == "" || b == "" {
		t.Fatal("expected non-empty session IDs")
	}
	if a == b {
		t.Fatal("expected distinct session IDs across calls")
	}

	c, d := NewClientID(), NewClientID()
	if c == "" || d == "" {
		t.Fatal("expected non-empty client IDs")
	}
	if c == d {
		t.Fatal("expected distinct client IDs across calls")
	}
}

// fakeConnectionIndex is a minimal connectionIndex for tests that need
// Client/Session target resolution without a full LandKeeper.
type fakeConnectionIndex struct {
	clients  map[ClientID]PlayerID
	sessions map[SessionID]PlayerID
}

func (f fakeConnectionIndex) playerForClient(id ClientID) (PlayerID, bool) {
	p, ok := f.clients[id]
	return p, ok
}

func (f fakeConnectionIndex) playerForSession(id SessionID) (PlayerID, bool) {
	p, ok := f.sessions[id]
	return p, ok
}

func TestEventTargetResolve(t *testing.T) {
	connected := []PlayerID{"p1", "p2", "p3"}
	index := fakeConnectionIndex{
		clients:  map[ClientID]PlayerID{"c2": "p2"},
		sessions: map[SessionID]PlayerID{"s3": "p3"},
	}

	tests := []struct {
		name   string
		target EventTarget
		want   []PlayerID
	}{
		{"all", AllPlayers(), []PlayerID{"p1", "p2", "p3"}},
		{"one", ToPlayer("p2"), []PlayerID{"p2"}},
		{"many", ToPlayers("p1", "p3"), []PlayerID{"p1", "p3"}},
		{"one not connected", ToPlayer("ghost"), nil},
		{"client", ToClient("c2"), []PlayerID{"p2"}},
		{"client unknown", ToClient("ghost"), nil},
		{"session", ToSession("s3"), []PlayerID{"p3"}},
		{"session unknown", ToSession("ghost"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.target.Resolve(connected, index)
			if len(got) != len(tt.want) {
				t.Fatalf("Resolve() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Resolve()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
