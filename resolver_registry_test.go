package landkeeper

import (
	"context"
	"testing"
)

type nameResolver string

func (n nameResolver) Name() string { return string(n) }

func (n nameResolver) Resolve(ctx context.Context, rc *ResolverContext) (interface{}, error) {
	return string(n) + "-output", nil
}

func TestResolverRegistryForAndHas(t *testing.T) {
	reg := NewResolverRegistry()
	if reg.Has("move") {
		t.Fatal("expected no resolvers registered yet")
	}

	reg.Add("move", nameResolver("terrain"))
	reg.Add("move", nameResolver("inventory"))

	if !reg.Has("move") {
		t.Fatal("expected Has(move) true")
	}
	list := reg.For("move")
	if len(list) != 2 {
		t.Fatalf("For(move) returned %d resolvers, want 2", len(list))
	}
	if list[0].Name() != "terrain" || list[1].Name() != "inventory" {
		t.Fatalf("resolver order = [%s, %s], want [terrain, inventory]", list[0].Name(), list[1].Name())
	}
}

func TestResolverRegistryRemove(t *testing.T) {
	reg := NewResolverRegistry()
	reg.Add("move", nameResolver("terrain"))
	reg.Add("move", nameResolver("inventory"))

	reg.Remove("move", "terrain")

	list := reg.For("move")
	if len(list) != 1 || list[0].Name() != "inventory" {
		t.Fatalf("after Remove, For(move) = %v, want [inventory]", list)
	}
}

func TestRunResolversAndReplay(t *testing.T) {
	resolvers := []ContextResolver{nameResolver("terrain"), nameResolver("inventory")}
	rc := &ResolverContext{LandID: "land1", Player: "p1"}

	outputs, err := runResolvers(context.Background(), rc, resolvers)
	if err != nil {
		t.Fatalf("runResolvers: %v", err)
	}
	if outputs["terrain"] != "terrain-output" {
		t.Fatalf("terrain output = %v, want terrain-output", outputs["terrain"])
	}

	replayed, err := replayResolvers(outputs, resolvers)
	if err != nil {
		t.Fatalf("replayResolvers: %v", err)
	}
	if replayed["inventory"] != outputs["inventory"] {
		t.Fatal("replayed output should match recorded output")
	}

	wrapped := NewResolverOutputs(replayed)
	got, ok := Resolver[string](wrapped, "terrain")
	if !ok || got != "terrain-output" {
		t.Fatalf("Resolver[string] = (%v, %v), want (terrain-output, true)", got, ok)
	}
}
