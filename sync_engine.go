package landkeeper

import "sort"

// SyncEngine produces per-observer snapshots and diffs from a land's
// state tree, honoring each field's SyncPolicy and the atomic-subtree
// diffing rule: values of TypeAtomic are never recursed into, they are
// compared and emitted whole.
//
// One SyncEngine instance belongs to a single LandKeeper and is never
// shared across lands; the cache it holds is only ever read and written
// from the tick goroutine.
type SyncEngine struct {
	cache map[PlayerID]StateSnapshot
}

// NewSyncEngine creates an engine with an empty per-player cache.
func NewSyncEngine() *SyncEngine {
	return &SyncEngine{cache: make(map[PlayerID]StateSnapshot)}
}

// Drop evicts a player's cached snapshot, called when they leave so a
// later re-join is treated as FirstSync rather than a (stale) diff base.
func (e *SyncEngine) Drop(player PlayerID) {
	delete(e.cache, player)
}

// Sync computes the SyncUpdate a player should receive this tick. If the
// player has no cached snapshot (first call, or after Drop), a FirstSync
// is produced; otherwise a Diff is produced from the node's ChangeSet,
// falling back to NoChange when nothing in the player's view changed.
func (e *SyncEngine) Sync(tick uint64, root StateNode, player PlayerID) (SyncUpdate, error) {
	if _, ok := e.cache[player]; !ok {
		snap, err := e.extractSnapshot(root, player)
		if err != nil {
			return SyncUpdate{}, err
		}
		stateSnap := StateSnapshot{Tick: tick, State: snap}
		e.cache[player] = stateSnap
		return FirstSyncUpdate(tick, stateSnap), nil
	}

	patches, err := e.diffNode("", root, player)
	if err != nil {
		return SyncUpdate{}, err
	}
	if len(patches) == 0 {
		return NoChangeUpdate(tick), nil
	}

	snap, err := e.extractSnapshot(root, player)
	if err != nil {
		return SyncUpdate{}, err
	}
	e.cache[player] = StateSnapshot{Tick: tick, State: snap}
	return DiffUpdate(tick, patches), nil
}

// extractSnapshot renders the full, policy-filtered view of node for
// viewer. This is the FirstSync / full re-sync path. Fields whose value
// is null are omitted.
func (e *SyncEngine) extractSnapshot(node StateNode, viewer PlayerID) (SnapshotValue, error) {
	schema := node.Schema()
	out := SnapshotObject()
	for _, field := range schema.Fields {
		raw := node.FieldValue(field.Index)
		visible, ok := field.Policy.Resolve(viewer, raw)
		if !ok {
			continue
		}
		val, err := e.valueToSnapshot(field, visible, viewer)
		if err != nil {
			return SnapshotValue{}, &EncodingError{Path: field.Name, Err: err}
		}
		if val.IsNull() {
			continue
		}
		out.Set(field.Name, val)
	}
	return out, nil
}

// valueToSnapshot converts a raw field value into a SnapshotValue,
// recursing into nested StateNodes unless the field is atomic.
func (e *SyncEngine) valueToSnapshot(field FieldMeta, raw interface{}, viewer PlayerID) (SnapshotValue, error) {
	if raw == nil {
		return SnapshotNull(), nil
	}
	if field.Type.Atomic() {
		return valueOfAny(raw), nil
	}
	switch field.Type {
	case TypeStruct:
		child, ok := raw.(StateNode)
		if !ok {
			return valueOfAny(raw), nil
		}
		return e.extractSnapshot(child, viewer)
	case TypeArray, TypeSet:
		return e.arrayToSnapshot(raw, viewer)
	case TypeMap:
		return e.mapToSnapshot(raw, viewer)
	default:
		return valueOfAny(raw), nil
	}
}

func (e *SyncEngine) arrayToSnapshot(raw interface{}, viewer PlayerID) (SnapshotValue, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return valueOfAny(raw), nil
	}
	out := make([]SnapshotValue, 0, len(items))
	for _, item := range items {
		if node, ok := item.(StateNode); ok {
			v, err := e.extractSnapshot(node, viewer)
			if err != nil {
				return SnapshotValue{}, err
			}
			out = append(out, v)
			continue
		}
		out = append(out, valueOfAny(item))
	}
	return SnapshotArray(out...), nil
}

func (e *SyncEngine) mapToSnapshot(raw interface{}, viewer PlayerID) (SnapshotValue, error) {
	items, ok := raw.(map[string]interface{})
	if !ok {
		return valueOfAny(raw), nil
	}
	out := SnapshotObject()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		item := items[k]
		if node, ok := item.(StateNode); ok {
			v, err := e.extractSnapshot(node, viewer)
			if err != nil {
				return SnapshotValue{}, err
			}
			out.Set(k, v)
			continue
		}
		out.Set(k, valueOfAny(item))
	}
	return out, nil
}

// diffNode walks node's ChangeSet and produces patches scoped to basePath,
// applying viewer's per-field SyncPolicy along the way.
func (e *SyncEngine) diffNode(basePath string, node StateNode, viewer PlayerID) ([]StatePatch, error) {
	schema := node.Schema()
	changes := node.Changes()
	if !changes.HasChanges() {
		return nil, nil
	}

	var patches []StatePatch
	for _, idx := range changes.ChangedFields() {
		field := schema.Field(idx)
		if field == nil {
			continue
		}
		fieldPath := joinPath(basePath, field.Name)
		raw := node.FieldValue(field.Index)
		visible, ok := field.Policy.Resolve(viewer, raw)
		if !ok {
			continue
		}

		// The atomicity rule: struct subtrees that aren't plain StateNode
		// composition (TypeAtomic) are diffed and emitted as one leaf.
		if field.Type.Atomic() {
			patches = append(patches, StatePatch{Path: fieldPath, Op: OpSet, Value: valueOfAny(visible)})
			continue
		}

		if field.Type == TypeStruct {
			if child, ok := visible.(StateNode); ok {
				childPatches, err := e.diffNode(fieldPath, child, viewer)
				if err != nil {
					return nil, err
				}
				patches = append(patches, childPatches...)
				continue
			}
		}

		// Mappings get per-key patches when the field's MapChangeSet was
		// populated: a new key becomes a Set at the entry path, a removed
		// key a Delete, and an existing key whose StateNode value changed
		// recurses the same way a struct field does (spec's mapping-key
		// diff rule). Without per-key detail, or for arrays/sets, the
		// field is replaced as a whole value.
		if field.Type == TypeMap {
			if mcs := changes.GetMap(idx); mcs != nil && mcs.HasChanges() {
				mapPatches, err := e.diffMapField(fieldPath, *field, visible, mcs, viewer)
				if err != nil {
					return nil, err
				}
				patches = append(patches, mapPatches...)
				continue
			}
		}

		val, err := e.valueToSnapshot(*field, visible, viewer)
		if err != nil {
			return nil, &EncodingError{Path: fieldPath, Err: err}
		}
		patches = append(patches, StatePatch{Path: fieldPath, Op: OpSet, Value: val})
	}
	return patches, nil
}

// diffMapField emits one patch per key recorded in mcs: Delete for a
// removed key, Set at the entry path for an added key, and either a
// recursive struct diff or a whole-value Set for a key whose existing
// StateNode value changed in place.
func (e *SyncEngine) diffMapField(fieldPath string, field FieldMeta, visible interface{}, mcs *MapChangeSet, viewer PlayerID) ([]StatePatch, error) {
	items, ok := visible.(map[string]interface{})
	if !ok {
		return nil, nil
	}

	keys := make([]string, 0, len(mcs.Entries()))
	for k := range mcs.Entries() {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	elemField := FieldMeta{Type: field.ElemType, ChildSchema: field.ChildSchema}

	var patches []StatePatch
	for _, key := range keys {
		change := mcs.Entries()[key]
		entryPath := joinPath(fieldPath, key)

		if change.Op == OpDelete {
			patches = append(patches, StatePatch{Path: entryPath, Op: OpDelete})
			continue
		}

		value, present := items[key]
		if !present {
			continue
		}

		if change.Op == OpSet {
			if child, ok := value.(StateNode); ok && child.Changes().HasChanges() {
				childPatches, err := e.diffNode(entryPath, child, viewer)
				if err != nil {
					return nil, err
				}
				patches = append(patches, childPatches...)
				continue
			}
		}

		val, err := e.valueToSnapshot(elemField, value, viewer)
		if err != nil {
			return nil, &EncodingError{Path: entryPath, Err: err}
		}
		patches = append(patches, StatePatch{Path: entryPath, Op: OpSet, Value: val})
	}
	return patches, nil
}

// valueOfAny boxes a primitive Go value as a SnapshotValue.
func valueOfAny(raw interface{}) SnapshotValue {
	switch v := raw.(type) {
	case nil:
		return SnapshotNull()
	case bool:
		return SnapshotBool(v)
	case string:
		return SnapshotString(v)
	case int:
		return SnapshotInt(int64(v))
	case int8:
		return SnapshotInt(int64(v))
	case int16:
		return SnapshotInt(int64(v))
	case int32:
		return SnapshotInt(int64(v))
	case int64:
		return SnapshotInt(v)
	case uint:
		return SnapshotInt(int64(v))
	case uint8:
		return SnapshotInt(int64(v))
	case uint16:
		return SnapshotInt(int64(v))
	case uint32:
		return SnapshotInt(int64(v))
	case uint64:
		return SnapshotInt(int64(v))
	case float32:
		return SnapshotDouble(float64(v))
	case float64:
		return SnapshotDouble(v)
	case SnapshotValue:
		return v
	default:
		return SnapshotNull()
	}
}
