package landkeeper

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashStateIgnoresPolicyIncludesSecret(t *testing.T) {
	a := newTestRoom()
	a.SetName("lobby")
	a.SetSecret("alpha")

	b := newTestRoom()
	b.SetName("lobby")
	b.SetSecret("beta")

	if HashState(a) == HashState(b) {
		t.Fatal("expected different secret values to change the state hash")
	}
}

func TestHashStateDeterministic(t *testing.T) {
	a := newTestRoom()
	a.SetName("lobby")
	a.SetScore(5)

	b := newTestRoom()
	b.SetName("lobby")
	b.SetScore(5)

	if HashState(a) != HashState(b) {
		t.Fatal("expected identical state to hash identically")
	}
}

func TestSchemaFingerprintStable(t *testing.T) {
	s1 := NewSchemaBuilder("Room").String("name", Broadcast()).Build()
	s2 := NewSchemaBuilder("Room").String("name", Broadcast()).Build()
	if SchemaFingerprint(s1) != SchemaFingerprint(s2) {
		t.Fatal("expected identically shaped schemas to fingerprint identically")
	}

	s3 := NewSchemaBuilder("Room").String("nickname", Broadcast()).Build()
	if SchemaFingerprint(s1) == SchemaFingerprint(s3) {
		t.Fatal("expected differently named fields to fingerprint differently")
	}
}

func TestReevaluationRecorderSaveAndLoad(t *testing.T) {
	rec := NewReevaluationRecorder("TestRoom", testRoomSchema)
	rec.AppendFrame(TickFrame{Tick: 1, StateHash: 0xdeadbeef})
	rec.AppendFrame(TickFrame{Tick: 2, StateHash: 0xfeedface})

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "record.json")
	if err := rec.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadReevaluationRecord(path)
	if err != nil {
		t.Fatalf("LoadReevaluationRecord: %v", err)
	}
	if len(loaded.Frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(loaded.Frames))
	}
	if loaded.Metadata.LandType != "TestRoom" {
		t.Fatalf("LandType = %q, want TestRoom", loaded.Metadata.LandType)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file should not remain after Save")
	}
}
