package landkeeper

import "math/bits"

// ChangeSet tracks which fields of a StateNode were mutated since the
// last ClearChanges, using a fixed bitset rather than a bool per field:
// up to 256 fields are supported, matching FieldMeta.Index's uint8
// range. A land's state tree is only ever touched from its LandKeeper's
// tick goroutine (see the single-writer guarantee in land_keeper.go), so
// unlike a ChangeSet shared across concurrent mutators, this one needs
// no locking of its own.
type ChangeSet struct {
	dirty [4]uint64
	ops   [256]PatchOp

	// maps holds per-key change detail for TypeMap fields, keyed by
	// field index. diffNode consults this to emit one Set/Delete patch
	// per changed key (spec's mapping-diff rule) instead of replacing
	// the whole map on any single entry's change.
	maps map[uint8]*MapChangeSet
}

// NewChangeSet creates an empty ChangeSet.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{}
}

// Mark records fieldIndex as changed by op.
func (cs *ChangeSet) Mark(fieldIndex uint8, op PatchOp) {
	cs.dirty[fieldIndex/64] |= 1 << (fieldIndex % 64)
	cs.ops[fieldIndex] = op
}

// FieldOp returns the operation recorded for fieldIndex, and whether the
// field is dirty at all.
func (cs *ChangeSet) FieldOp(fieldIndex uint8) (PatchOp, bool) {
	if !cs.IsFieldDirty(fieldIndex) {
		return 0, false
	}
	return cs.ops[fieldIndex], true
}

// IsFieldDirty reports whether fieldIndex changed since the last Clear.
func (cs *ChangeSet) IsFieldDirty(fieldIndex uint8) bool {
	return cs.dirty[fieldIndex/64]&(1<<(fieldIndex%64)) != 0
}

// HasChanges reports whether any field changed since the last Clear.
func (cs *ChangeSet) HasChanges() bool {
	return cs.dirty[0] != 0 || cs.dirty[1] != 0 || cs.dirty[2] != 0 || cs.dirty[3] != 0
}

// Clear resets all dirty bits and per-key map change detail.
func (cs *ChangeSet) Clear() {
	cs.dirty = [4]uint64{}
	clear(cs.maps)
}

// MarkAll marks every field up to and including maxIndex as Set, used to
// produce a FirstSync snapshot or a full reevaluation checkpoint.
func (cs *ChangeSet) MarkAll(maxIndex uint8) {
	for i := uint8(0); ; i++ {
		cs.dirty[i/64] |= 1 << (i % 64)
		cs.ops[i] = OpSet
		if i == maxIndex {
			break
		}
	}
}

// GetOrCreateMap returns the MapChangeSet for a TypeMap field, creating
// it on first use.
func (cs *ChangeSet) GetOrCreateMap(fieldIndex uint8) *MapChangeSet {
	if cs.maps == nil {
		cs.maps = make(map[uint8]*MapChangeSet)
	}
	if m, ok := cs.maps[fieldIndex]; ok {
		return m
	}
	m := &MapChangeSet{changes: make(map[string]MapEntryChange)}
	cs.maps[fieldIndex] = m
	return m
}

// GetMap returns the MapChangeSet recorded for a TypeMap field, or nil
// if the field's entries haven't been individually tracked this tick.
func (cs *ChangeSet) GetMap(fieldIndex uint8) *MapChangeSet {
	return cs.maps[fieldIndex]
}

// ChangedFields returns every dirty field index in ascending order. The
// order doubles as the tie-break order diffNode walks fields in.
func (cs *ChangeSet) ChangedFields() []uint8 {
	count := 0
	for i := 0; i < 4; i++ {
		count += bits.OnesCount64(cs.dirty[i])
	}
	if count == 0 {
		return nil
	}

	result := make([]uint8, 0, count)
	for i := 0; i < 4; i++ {
		word := cs.dirty[i]
		base := uint8(i * 64)
		for word != 0 {
			tz := bits.TrailingZeros64(word)
			result = append(result, base+uint8(tz))
			word &= word - 1
		}
	}
	return result
}

// MapEntryChange records what happened to a single map key: an addition
// or replacement carries the new value, a removal carries none.
type MapEntryChange struct {
	Op    PatchOp
	Value interface{}
}

// MapChangeSet tracks per-key changes to a TypeMap field, so a diff can
// emit one patch per changed entry rather than replacing the field's
// entire value. Grounded on spec's mapping-diff rule: key added → Set at
// the entry path, key removed → Delete at the same path.
type MapChangeSet struct {
	changes map[string]MapEntryChange
}

// MarkAdd records a newly inserted key.
func (mcs *MapChangeSet) MarkAdd(key string, value interface{}) {
	mcs.changes[key] = MapEntryChange{Op: OpAdd, Value: value}
}

// MarkReplace records a key whose value changed without being removed
// and re-added.
func (mcs *MapChangeSet) MarkReplace(key string, value interface{}) {
	mcs.changes[key] = MapEntryChange{Op: OpSet, Value: value}
}

// MarkRemove records a deleted key.
func (mcs *MapChangeSet) MarkRemove(key string) {
	mcs.changes[key] = MapEntryChange{Op: OpDelete}
}

// HasChanges reports whether any key changed since the last Clear.
func (mcs *MapChangeSet) HasChanges() bool {
	return len(mcs.changes) > 0
}

// Entries returns the recorded per-key changes, keyed by map key.
func (mcs *MapChangeSet) Entries() map[string]MapEntryChange {
	return mcs.changes
}
