package landkeeper

import (
	"encoding/json"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
)

// RecordFormatVersion is bumped whenever TickFrame's on-disk shape
// changes incompatibly.
const RecordFormatVersion = 1

// RecordedAction is one action as it was actually applied, including the
// resolver outputs it ran against, so reevaluation can replay it without
// re-invoking resolvers.
type RecordedAction struct {
	Player          PlayerID               `json:"player"`
	Type            string                 `json:"type"`
	Payload         json.RawMessage        `json:"payload,omitempty"`
	ResolverOutputs map[string]interface{} `json:"resolverOutputs,omitempty"`
}

// RecordedClientEvent is one client event as it was actually applied.
type RecordedClientEvent struct {
	Player  PlayerID        `json:"player"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TickFrame captures everything that happened during a single tick:
// inputs (actions, resolver outputs, client events), outputs (emitted
// events), and the resulting state hash, enough to deterministically
// reproduce the tick and verify the outcome.
type TickFrame struct {
	Tick          uint64                 `json:"tick"`
	Timestamp     int64                  `json:"timestamp"`
	Actions       []RecordedAction       `json:"actions,omitempty"`
	ClientEvents  []RecordedClientEvent  `json:"clientEvents,omitempty"`
	EmittedEvents []ServerEvent          `json:"emittedEvents,omitempty"`
	StateHash     uint32                 `json:"stateHash"`
}

// ReevaluationRecordMetadata identifies the land definition a recording
// was produced against, so a later reevaluation run can check
// compatibility before replaying.
type ReevaluationRecordMetadata struct {
	Version          int    `json:"version"`
	LandType         string `json:"landType"`
	SchemaFingerprint string `json:"schemaFingerprint"`
}

// ReevaluationRecord is the full persisted shape: metadata plus the
// ordered tick frames captured for a land's lifetime.
type ReevaluationRecord struct {
	Metadata ReevaluationRecordMetadata `json:"metadata"`
	Frames   []TickFrame                `json:"frames"`
}

// ReevaluationRecorder accumulates TickFrames as a LandKeeper runs. It is
// only ever written from the tick goroutine, so it needs no internal
// locking of its own.
type ReevaluationRecorder struct {
	metadata ReevaluationRecordMetadata
	frames   []TickFrame
	sink     ReevaluationSink
}

// NewReevaluationRecorder creates a recorder stamped with landType and
// schema's fingerprint.
func NewReevaluationRecorder(landType string, schema *Schema) *ReevaluationRecorder {
	return &ReevaluationRecorder{
		metadata: ReevaluationRecordMetadata{
			Version:           RecordFormatVersion,
			LandType:          landType,
			SchemaFingerprint: SchemaFingerprint(schema),
		},
	}
}

// SetSink attaches a streaming destination that receives each frame as
// it's appended, in addition to the in-memory buffer Save persists.
func (r *ReevaluationRecorder) SetSink(sink ReevaluationSink) {
	r.sink = sink
}

// AppendFrame records frame, and streams it to the sink if attached.
func (r *ReevaluationRecorder) AppendFrame(frame TickFrame) {
	r.frames = append(r.frames, frame)
	if r.sink != nil {
		_ = r.sink.WriteFrame(frame)
	}
}

// Frames returns the recorded frames so far.
func (r *ReevaluationRecorder) Frames() []TickFrame {
	return r.frames
}

// Record returns the full persistable record.
func (r *ReevaluationRecorder) Record() ReevaluationRecord {
	return ReevaluationRecord{Metadata: r.metadata, Frames: r.frames}
}

// Save writes the record to path as JSON, via a temp file plus rename so
// a crash mid-write never leaves a truncated record on disk.
func (r *ReevaluationRecorder) Save(path string) error {
	data, err := json.MarshalIndent(r.Record(), "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadReevaluationRecord reads a record previously written by Save.
func LoadReevaluationRecord(path string) (*ReevaluationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec ReevaluationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SchemaFingerprint derives a stable identifier for a schema's shape,
// used to detect a recording made against a since-changed schema.
func SchemaFingerprint(schema *Schema) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(schema.Name))
	for _, f := range schema.Fields {
		_, _ = h.Write([]byte{byte(f.Index), byte(f.Type)})
		_, _ = h.Write([]byte(f.Name))
	}
	return hashToHex(h.Sum32())
}

// HashState computes the FNV-1a-32 hash of node's canonical JSON
// encoding (every field, including server-only ones - the state hash
// always reflects ground truth, independent of any observer's policy
// view).
func HashState(node StateNode) uint32 {
	val := fullValue(node)
	data, err := val.MarshalJSON()
	if err != nil {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write(data)
	return h.Sum32()
}

// fullValue renders node with every field visible, ignoring SyncPolicy -
// this is the ground-truth view used for the state hash, never sent to
// any observer.
func fullValue(node StateNode) SnapshotValue {
	schema := node.Schema()
	out := SnapshotObject()
	for _, field := range schema.Fields {
		raw := node.FieldValue(field.Index)
		out.Set(field.Name, fullFieldValue(field, raw))
	}
	return out
}

func fullFieldValue(field FieldMeta, raw interface{}) SnapshotValue {
	if raw == nil {
		return SnapshotNull()
	}
	if field.Type.Atomic() {
		return valueOfAny(raw)
	}
	switch field.Type {
	case TypeStruct:
		if child, ok := raw.(StateNode); ok {
			return fullValue(child)
		}
		return valueOfAny(raw)
	case TypeArray, TypeSet:
		items, ok := raw.([]interface{})
		if !ok {
			return valueOfAny(raw)
		}
		out := make([]SnapshotValue, 0, len(items))
		for _, item := range items {
			if node, ok := item.(StateNode); ok {
				out = append(out, fullValue(node))
				continue
			}
			out = append(out, valueOfAny(item))
		}
		return SnapshotArray(out...)
	case TypeMap:
		items, ok := raw.(map[string]interface{})
		if !ok {
			return valueOfAny(raw)
		}
		keys := make([]string, 0, len(items))
		for k := range items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := SnapshotObject()
		for _, k := range keys {
			v := items[k]
			if node, ok := v.(StateNode); ok {
				out.Set(k, fullValue(node))
				continue
			}
			out.Set(k, valueOfAny(v))
		}
		return out
	default:
		return valueOfAny(raw)
	}
}

func hashToHex(v uint32) string {
	const hex = "0123456789abcdef"
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = hex[v&0xf]
		v >>= 4
	}
	return string(buf)
}
