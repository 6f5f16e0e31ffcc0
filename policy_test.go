package landkeeper

import "testing"

// testVisibilityState exercises SyncPolicy variants not covered by
// testRoom: a per-player singleton map and a masked string.
type testVisibilityState struct {
	changes *ChangeSet
	schema  *Schema

	perPlayerField map[string]interface{}
	maskedField    string
}

func testPerPlayerPolicy() SyncPolicy {
	return PerPlayer(func(viewer PlayerID, value interface{}) (interface{}, bool) {
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[string(viewer)]
		if !ok {
			return nil, false
		}
		return map[string]interface{}{string(viewer): v}, true
	})
}

func testMaskedPolicy() SyncPolicy {
	return Masked(func(value interface{}) interface{} {
		s, _ := value.(string)
		n := 3
		if len(s) < n {
			n = len(s)
		}
		return s[:n] + "..."
	})
}

var testVisibilitySchema = NewSchemaBuilder("Visibility").
	Map("perPlayerField", TypeString, nil, testPerPlayerPolicy()).
	String("maskedField", testMaskedPolicy()).
	Build()

func newTestVisibilityState() *testVisibilityState {
	return &testVisibilityState{
		changes:        NewChangeSet(),
		schema:         testVisibilitySchema,
		perPlayerField: make(map[string]interface{}),
	}
}

func (v *testVisibilityState) Schema() *Schema     { return v.schema }
func (v *testVisibilityState) Changes() *ChangeSet { return v.changes }
func (v *testVisibilityState) ClearChanges()       { v.changes.Clear() }
func (v *testVisibilityState) MarkAllDirty()       { v.changes.MarkAll(v.schema.MaxIndex()) }

func (v *testVisibilityState) FieldValue(index uint8) interface{} {
	switch index {
	case 0:
		return v.perPlayerField
	case 1:
		return v.maskedField
	default:
		return nil
	}
}

func (v *testVisibilityState) SetPlayerValue(player, val string) {
	v.perPlayerField[player] = val
	v.changes.Mark(0, OpSet)
}

func (v *testVisibilityState) SetMasked(val string) {
	v.maskedField = val
	v.changes.Mark(1, OpSet)
}

// TestPolicyPerPlayerVisibility reproduces S2: each observer sees only
// their own entry of a per-player map field, and an observer with no
// entry sees the field omitted entirely.
func TestPolicyPerPlayerVisibility(t *testing.T) {
	state := newTestVisibilityState()
	state.SetPlayerValue("alice", "X")
	state.SetPlayerValue("bob", "Y")
	state.MarkAllDirty()

	engine := NewSyncEngine()

	aliceUpdate, err := engine.Sync(1, state, "alice")
	if err != nil {
		t.Fatalf("Sync(alice): %v", err)
	}
	_, aliceFields := aliceUpdate.Snapshot.State.Object()
	ppKeys, ppFields := aliceFields["perPlayerField"].Object()
	if len(ppKeys) != 1 || ppFields["alice"].String() != "X" {
		t.Fatalf("alice perPlayerField = %+v, want {alice:X}", aliceFields["perPlayerField"])
	}

	bobUpdate, err := engine.Sync(1, state, "bob")
	if err != nil {
		t.Fatalf("Sync(bob): %v", err)
	}
	_, bobFields := bobUpdate.Snapshot.State.Object()
	ppKeys, ppFields = bobFields["perPlayerField"].Object()
	if len(ppKeys) != 1 || ppFields["bob"].String() != "Y" {
		t.Fatalf("bob perPlayerField = %+v, want {bob:Y}", bobFields["perPlayerField"])
	}

	carolUpdate, err := engine.Sync(1, state, "carol")
	if err != nil {
		t.Fatalf("Sync(carol): %v", err)
	}
	_, carolFields := carolUpdate.Snapshot.State.Object()
	if _, has := carolFields["perPlayerField"]; has {
		t.Fatalf("carol should not see perPlayerField at all, got %+v", carolFields["perPlayerField"])
	}
}

// TestPolicyMaskedTransform reproduces S3: a masked field is truncated
// to the same value for every observer, derived from the current
// value rather than a fixed substitute, and an empty value still masks.
func TestPolicyMaskedTransform(t *testing.T) {
	state := newTestVisibilityState()
	state.SetMasked("very_secret")
	state.MarkAllDirty()

	engine := NewSyncEngine()
	for _, viewer := range []PlayerID{"alice", "bob"} {
		update, err := engine.Sync(1, state, viewer)
		if err != nil {
			t.Fatalf("Sync(%s): %v", viewer, err)
		}
		_, fields := update.Snapshot.State.Object()
		if got := fields["maskedField"].String(); got != "ver..." {
			t.Fatalf("maskedField for %s = %q, want ver...", viewer, got)
		}
	}

	empty := newTestVisibilityState()
	empty.SetMasked("")
	empty.MarkAllDirty()
	update, err := engine.Sync(1, empty, "carol")
	if err != nil {
		t.Fatalf("Sync(empty): %v", err)
	}
	_, fields := update.Snapshot.State.Object()
	if got := fields["maskedField"].String(); got != "..." {
		t.Fatalf("maskedField for empty input = %q, want ...", got)
	}
}
