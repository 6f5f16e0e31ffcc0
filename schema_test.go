package landkeeper

import "testing"

func TestSchemaBuilder(t *testing.T) {
	schema := NewSchemaBuilder("Player").
		String("name", Broadcast()).
		Int32("hp", Broadcast()).
		Bool("ready", ServerOnly()).
		Build()

	if schema.FieldCount() != 3 {
		t.Fatalf("FieldCount() = %d, want 3", schema.FieldCount())
	}
	if schema.MaxIndex() != 2 {
		t.Fatalf("MaxIndex() = %d, want 2", schema.MaxIndex())
	}

	f := schema.FieldByName("hp")
	if f == nil {
		t.Fatal("FieldByName(hp) = nil")
	}
	if f.Type != TypeInt32 {
		t.Fatalf("hp.Type = %v, want TypeInt32", f.Type)
	}
	if f.Policy.Kind() != PolicyBroadcast {
		t.Fatalf("hp.Policy.Kind() = %v, want PolicyBroadcast", f.Policy.Kind())
	}

	if schema.FieldByName("missing") != nil {
		t.Fatal("FieldByName(missing) should be nil")
	}
}

func TestSchemaAddFieldPanicsOnIndexMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on mismatched field index")
		}
	}()
	schema := NewSchema("Bad")
	schema.AddField(FieldMeta{Index: 5, Name: "oops"})
}

func TestSchemaRegistry(t *testing.T) {
	reg := NewSchemaRegistry()
	schema := NewSchema("Widget")
	reg.Register(schema)

	if reg.Get("Widget") != schema {
		t.Fatal("Get(Widget) did not return the registered schema")
	}
	if reg.Get("Missing") != nil {
		t.Fatal("Get(Missing) should be nil")
	}
}
