package landkeeper

import "fmt"

// FieldType represents the logical type of a StateNode field.
type FieldType uint8

const (
	TypeInvalid FieldType = iota
	TypeInt32
	TypeInt64
	TypeBool
	TypeString
	TypeDouble
	TypeAtomic // opaque value, always diffed and emitted as a whole leaf
	TypeStruct // nested StateNode
	TypeArray  // ordered sequence
	TypeMap    // keyed collection; values are StateNodes or ElemType primitives
	TypeSet    // unordered collection of primitives
)

func (ft FieldType) String() string {
	names := []string{
		"invalid", "int32", "int64", "bool", "string", "double",
		"atomic", "struct", "array", "map", "set",
	}
	if int(ft) < len(names) {
		return names[ft]
	}
	return fmt.Sprintf("unknown(%d)", ft)
}

// Atomic reports whether values of this type are subject to the atomicity
// rule: diffed and emitted whole rather than recursed into field by field.
func (ft FieldType) Atomic() bool {
	return ft == TypeAtomic
}

// FieldMeta describes a single field in a schema.
type FieldMeta struct {
	Index    uint8     // field index (0-255), also the ChangeSet dirty-bit slot
	Name     string    // field name, used as the JSON-Pointer path segment
	Type     FieldType // logical type
	ElemType FieldType // element type, for TypeArray/TypeMap/TypeSet

	// ChildSchema describes the nested StateNode type, for TypeStruct
	// fields and for collection fields whose elements are StateNodes.
	ChildSchema *Schema

	// Policy determines what each observer is allowed to see of this field.
	Policy SyncPolicy

	// Default is the field's zero value. A default-valued leaf is still
	// emitted on FirstSync; only a null value is omitted.
	Default SnapshotValue
}

// Schema describes a StateNode type's fields in index order.
type Schema struct {
	Name   string
	Fields []FieldMeta
	byName map[string]int
}

// NewSchema creates an empty schema definition.
func NewSchema(name string) *Schema {
	return &Schema{
		Name:   name,
		Fields: make([]FieldMeta, 0),
		byName: make(map[string]int),
	}
}

// AddField adds a field to the schema. Index must match its position.
func (s *Schema) AddField(field FieldMeta) *Schema {
	if field.Index != uint8(len(s.Fields)) {
		panic(fmt.Sprintf("landkeeper: field index %d doesn't match position %d in schema %q", field.Index, len(s.Fields), s.Name))
	}
	s.byName[field.Name] = len(s.Fields)
	s.Fields = append(s.Fields, field)
	return s
}

// Field returns field meta by index, or nil if out of range.
func (s *Schema) Field(index uint8) *FieldMeta {
	if int(index) >= len(s.Fields) {
		return nil
	}
	return &s.Fields[index]
}

// FieldByName returns field meta by name, or nil if absent.
func (s *Schema) FieldByName(name string) *FieldMeta {
	if idx, ok := s.byName[name]; ok {
		return &s.Fields[idx]
	}
	return nil
}

// FieldCount returns the number of fields.
func (s *Schema) FieldCount() int {
	return len(s.Fields)
}

// MaxIndex returns the maximum valid field index.
func (s *Schema) MaxIndex() uint8 {
	if len(s.Fields) == 0 {
		return 0
	}
	return uint8(len(s.Fields) - 1)
}

// StateNode is the contract a land's state tree, and every nested struct
// reachable from it, must satisfy to participate in dirty tracking and
// sync diffing.
type StateNode interface {
	// Schema returns the type's field metadata.
	Schema() *Schema

	// Changes returns the node's ChangeSet.
	Changes() *ChangeSet

	// ClearChanges resets all dirty bits, recursively.
	ClearChanges()

	// MarkAllDirty marks every field dirty, recursively. Used to produce
	// FirstSync snapshots and full re-evaluation checkpoints.
	MarkAllDirty()

	// FieldValue returns the boxed value of a field by index.
	FieldValue(index uint8) interface{}
}

// SchemaRegistry maintains name-keyed schema lookup for land definitions
// that register multiple node types.
type SchemaRegistry struct {
	byName map[string]*Schema
}

// NewSchemaRegistry creates an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{byName: make(map[string]*Schema)}
}

// Register adds a schema to the registry, keyed by its Name.
func (r *SchemaRegistry) Register(schema *Schema) {
	r.byName[schema.Name] = schema
}

// Get returns a schema by name, or nil if not registered.
func (r *SchemaRegistry) Get(name string) *Schema {
	return r.byName[name]
}

// SchemaBuilder provides a fluent API for hand-building schemas, standing
// in for a field-metadata generator.
type SchemaBuilder struct {
	schema *Schema
}

// NewSchemaBuilder starts building a schema named name.
func NewSchemaBuilder(name string) *SchemaBuilder {
	return &SchemaBuilder{schema: NewSchema(name)}
}

func (b *SchemaBuilder) field(name string, typ FieldType, policy SyncPolicy, def SnapshotValue) *SchemaBuilder {
	b.schema.AddField(FieldMeta{
		Index:   uint8(len(b.schema.Fields)),
		Name:    name,
		Type:    typ,
		Policy:  policy,
		Default: def,
	})
	return b
}

// Int32 adds an int32 field.
func (b *SchemaBuilder) Int32(name string, policy SyncPolicy) *SchemaBuilder {
	return b.field(name, TypeInt32, policy, SnapshotInt(0))
}

// Int64 adds an int64 field.
func (b *SchemaBuilder) Int64(name string, policy SyncPolicy) *SchemaBuilder {
	return b.field(name, TypeInt64, policy, SnapshotInt(0))
}

// Bool adds a bool field.
func (b *SchemaBuilder) Bool(name string, policy SyncPolicy) *SchemaBuilder {
	return b.field(name, TypeBool, policy, SnapshotBool(false))
}

// String adds a string field.
func (b *SchemaBuilder) String(name string, policy SyncPolicy) *SchemaBuilder {
	return b.field(name, TypeString, policy, SnapshotString(""))
}

// Double adds a float64 field.
func (b *SchemaBuilder) Double(name string, policy SyncPolicy) *SchemaBuilder {
	return b.field(name, TypeDouble, policy, SnapshotDouble(0))
}

// Atomic adds an opaque field that is always diffed and emitted whole.
func (b *SchemaBuilder) Atomic(name string, policy SyncPolicy) *SchemaBuilder {
	return b.field(name, TypeAtomic, policy, SnapshotNull())
}

// Struct adds a nested StateNode field.
func (b *SchemaBuilder) Struct(name string, child *Schema, policy SyncPolicy) *SchemaBuilder {
	b.schema.AddField(FieldMeta{
		Index:       uint8(len(b.schema.Fields)),
		Name:        name,
		Type:        TypeStruct,
		ChildSchema: child,
		Policy:      policy,
		Default:     SnapshotNull(),
	})
	return b
}

// Map adds a keyed collection field.
func (b *SchemaBuilder) Map(name string, elemType FieldType, child *Schema, policy SyncPolicy) *SchemaBuilder {
	b.schema.AddField(FieldMeta{
		Index:       uint8(len(b.schema.Fields)),
		Name:        name,
		Type:        TypeMap,
		ElemType:    elemType,
		ChildSchema: child,
		Policy:      policy,
		Default:     SnapshotNull(),
	})
	return b
}

// Array adds an ordered sequence field.
func (b *SchemaBuilder) Array(name string, elemType FieldType, child *Schema, policy SyncPolicy) *SchemaBuilder {
	b.schema.AddField(FieldMeta{
		Index:       uint8(len(b.schema.Fields)),
		Name:        name,
		Type:        TypeArray,
		ElemType:    elemType,
		ChildSchema: child,
		Policy:      policy,
		Default:     SnapshotNull(),
	})
	return b
}

// Set adds an unordered primitive collection field.
func (b *SchemaBuilder) Set(name string, elemType FieldType, policy SyncPolicy) *SchemaBuilder {
	b.schema.AddField(FieldMeta{
		Index:    uint8(len(b.schema.Fields)),
		Name:     name,
		Type:     TypeSet,
		ElemType: elemType,
		Policy:   policy,
		Default:  SnapshotNull(),
	})
	return b
}

// Build finalizes and returns the schema.
func (b *SchemaBuilder) Build() *Schema {
	return b.schema
}
