package landkeeper

import "testing"

func TestPathFlattenerResolvesConcreteFields(t *testing.T) {
	schema := NewSchemaBuilder("Player").
		String("name", Broadcast()).
		Int32("hp", Broadcast()).
		Build()

	f := NewPathFlattener(schema)

	hash, ok := f.Resolve("/name")
	if !ok {
		t.Fatal("expected /name to resolve")
	}
	if hash != HashPath("name") {
		t.Fatalf("hash mismatch for /name")
	}

	if _, ok := f.Resolve("/missing"); ok {
		t.Fatal("expected /missing to not resolve")
	}
}

func TestPathFlattenerWildcardsCollections(t *testing.T) {
	itemSchema := NewSchemaBuilder("Item").
		String("name", Broadcast()).
		Build()

	schema := NewSchemaBuilder("Inventory").
		Map("slots", TypeStruct, itemSchema, Broadcast()).
		Build()

	f := NewPathFlattener(schema)

	hashA, okA := f.Resolve("/slots/slot-1/name")
	hashB, okB := f.Resolve("/slots/slot-2/name")
	if !okA || !okB {
		t.Fatal("expected both concrete map-key paths to resolve via wildcard")
	}
	if hashA != hashB {
		t.Fatal("expected structurally identical paths to hash identically")
	}
}

func TestHashPathDeterministic(t *testing.T) {
	if HashPath("players/*/name") != HashPath("players/*/name") {
		t.Fatal("HashPath should be deterministic for identical input")
	}
	if HashPath("a") == HashPath("b") {
		t.Fatal("HashPath should differ for different input (extremely unlikely collision)")
	}
}
