package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	positions := []r3.Vec{{X: 0.1, Y: 0.2, Z: 0.3}, {X: -1, Y: 0, Z: 0.5}}
	snapshot := NewSnapshot("Substrate", 0.25, 42, []int{7, 9}, positions)

	path := filepath.Join(tmpDir, "nested", "snap.json")
	if err := SaveSnapshot(snapshot, path); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.Species != "Substrate" || loaded.Time != 0.25 || loaded.Seed != 42 {
		t.Errorf("header mismatch: %+v", loaded)
	}
	if len(loaded.Walkers) != 2 || loaded.Walkers[1].TID != 9 {
		t.Fatalf("walkers mismatch: %+v", loaded.Walkers)
	}
	got := loaded.Positions()
	for i := range positions {
		if got[i] != positions[i] {
			t.Errorf("position %d = %v, want %v", i, got[i], positions[i])
		}
	}
}

func TestSnapshotVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	data, _ := json.Marshal(Snapshot{Version: SnapshotVersion + 1})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version mismatch error")
	}
}

func TestSnapshotPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"start.json", "start.json"},
		{"out", filepath.Join("out", "run_Enzyme_100.json")},
	}
	for _, tt := range tests {
		if got := SnapshotPath(tt.path, "run", "Enzyme", 100); got != tt.want {
			t.Errorf("SnapshotPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
