package landkeeper

import (
	"encoding/json"
	"testing"
)

func TestSnapshotValueMarshalBare(t *testing.T) {
	obj := SnapshotObject()
	obj.Set("name", SnapshotString("lobby"))
	obj.Set("score", SnapshotInt(10))

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"name":"lobby","score":10}`
	if string(data) != want {
		t.Fatalf("Marshal() = %s, want %s", data, want)
	}
}

func TestSnapshotValueUnmarshalBare(t *testing.T) {
	var v SnapshotValue
	if err := json.Unmarshal([]byte(`{"name":"lobby","score":10,"ok":true,"tags":["a","b"]}`), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.Kind() != KindObject {
		t.Fatalf("Kind() = %v, want KindObject", v.Kind())
	}
	_, fields := v.Object()
	if fields["name"].String() != "lobby" {
		t.Fatalf("name = %q, want lobby", fields["name"].String())
	}
	if fields["score"].Int() != 10 {
		t.Fatalf("score = %d, want 10", fields["score"].Int())
	}
	if !fields["ok"].Bool() {
		t.Fatal("ok should be true")
	}
	if len(fields["tags"].Array()) != 2 {
		t.Fatalf("tags has %d elements, want 2", len(fields["tags"].Array()))
	}
}

func TestSnapshotValueUnmarshalLegacyTagged(t *testing.T) {
	var v SnapshotValue
	if err := json.Unmarshal([]byte(`{"type":"int","value":42}`), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.Kind() != KindInt {
		t.Fatalf("Kind() = %v, want KindInt", v.Kind())
	}
	if v.Int() != 42 {
		t.Fatalf("Int() = %d, want 42", v.Int())
	}
}

func TestSnapshotValueEqual(t *testing.T) {
	a := SnapshotObject()
	a.Set("x", SnapshotInt(1))
	b := SnapshotObject()
	b.Set("x", SnapshotInt(1))
	c := SnapshotObject()
	c.Set("x", SnapshotInt(2))

	if !a.Equal(b) {
		t.Fatal("expected a.Equal(b)")
	}
	if a.Equal(c) {
		t.Fatal("expected !a.Equal(c)")
	}
}
