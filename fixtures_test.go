package landkeeper

// testPlayerEntry is a hand-written nested StateNode used as a map value
// in testRoom, standing in for what a field-metadata generator would
// otherwise emit.
type testPlayerEntry struct {
	changes *ChangeSet
	schema  *Schema

	x, y     int64 // position, an opaque vector compared and emitted whole
	rotation int64
}

var testPlayerEntrySchema = NewSchemaBuilder("PlayerEntry").
	Atomic("position", Broadcast()).
	Int64("rotation", Broadcast()).
	Build()

func newTestPlayerEntry() *testPlayerEntry {
	return &testPlayerEntry{changes: NewChangeSet(), schema: testPlayerEntrySchema}
}

func (p *testPlayerEntry) Schema() *Schema     { return p.schema }
func (p *testPlayerEntry) Changes() *ChangeSet { return p.changes }
func (p *testPlayerEntry) ClearChanges()       { p.changes.Clear() }
func (p *testPlayerEntry) MarkAllDirty()       { p.changes.MarkAll(p.schema.MaxIndex()) }

func (p *testPlayerEntry) FieldValue(index uint8) interface{} {
	switch index {
	case 0:
		pos := SnapshotObject()
		pos.Set("x", SnapshotInt(p.x))
		pos.Set("y", SnapshotInt(p.y))
		return pos
	case 1:
		return p.rotation
	default:
		return nil
	}
}

func (p *testPlayerEntry) SetPosition(x, y int64) {
	p.x, p.y = x, y
	p.changes.Mark(0, OpSet)
}

func (p *testPlayerEntry) SetRotation(v int64) {
	p.rotation = v
	p.changes.Mark(1, OpSet)
}

// testRoom is a minimal hand-written StateNode, standing in for what a
// field-metadata generator would otherwise emit, used across the test
// suite.
type testRoom struct {
	changes *ChangeSet
	schema  *Schema

	name    string
	score   int64
	secret  string
	players map[string]interface{}
}

var testRoomSchema = NewSchemaBuilder("Room").
	String("name", Broadcast()).
	Int64("score", Broadcast()).
	String("secret", ServerOnly()).
	Map("players", TypeStruct, testPlayerEntrySchema, Broadcast()).
	Build()

func newTestRoom() *testRoom {
	return &testRoom{changes: NewChangeSet(), schema: testRoomSchema, players: make(map[string]interface{})}
}

func (r *testRoom) Schema() *Schema     { return r.schema }
func (r *testRoom) Changes() *ChangeSet { return r.changes }

// ClearChanges and MarkAllDirty recurse into the player entries, as the
// StateNode contract requires.
func (r *testRoom) ClearChanges() {
	r.changes.Clear()
	for _, p := range r.players {
		p.(StateNode).ClearChanges()
	}
}

func (r *testRoom) MarkAllDirty() {
	r.changes.MarkAll(r.schema.MaxIndex())
	for _, p := range r.players {
		p.(StateNode).MarkAllDirty()
	}
}

func (r *testRoom) FieldValue(index uint8) interface{} {
	switch index {
	case 0:
		return r.name
	case 1:
		return r.score
	case 2:
		return r.secret
	case 3:
		return r.players
	default:
		return nil
	}
}

func (r *testRoom) SetName(v string) {
	r.name = v
	r.changes.Mark(0, OpSet)
}

func (r *testRoom) SetScore(v int64) {
	r.score = v
	r.changes.Mark(1, OpSet)
}

func (r *testRoom) SetSecret(v string) {
	r.secret = v
	r.changes.Mark(2, OpSet)
}

// AddPlayer inserts a new player entry, recording both the field-level
// dirty bit and the per-key map change diffNode needs to emit a
// targeted Set rather than replacing the whole map.
func (r *testRoom) AddPlayer(id string, entry *testPlayerEntry) {
	r.players[id] = entry
	r.changes.Mark(3, OpSet)
	r.changes.GetOrCreateMap(3).MarkAdd(id, entry)
}

// TouchPlayer marks an existing player entry as changed without
// replacing the map value itself; diffNode should recurse into the
// entry's own ChangeSet rather than re-emitting the whole entry.
func (r *testRoom) TouchPlayer(id string) {
	r.changes.Mark(3, OpSet)
	r.changes.GetOrCreateMap(3).MarkReplace(id, r.players[id])
}

// RemovePlayer deletes a player entry.
func (r *testRoom) RemovePlayer(id string) {
	delete(r.players, id)
	r.changes.Mark(3, OpSet)
	r.changes.GetOrCreateMap(3).MarkRemove(id)
}
