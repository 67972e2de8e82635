package telemetry

import (
	"path/filepath"
	"testing"
)

func TestReadTrajectoryFrames(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, "run")
	if err != nil {
		t.Fatal(err)
	}
	if err := om.AddTrajectory("A"); err != nil {
		t.Fatal(err)
	}
	steps := [][]TrajectoryRow{
		{{T: 0.1, X: 1, TID: 0}, {T: 0.1, X: 2, TID: 1}},
		{{T: 0.2, X: 3, TID: 0}, {T: 0.2, X: 4, TID: 1, Duration: 0.3}},
	}
	for _, rows := range steps {
		if err := om.WriteTrajectory("A", rows); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadTrajectory(filepath.Join(dir, "run_A.csv"))
	if err != nil {
		t.Fatal(err)
	}
	frames := GroupFrames(rows)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[1].T != 0.2 || len(frames[1].Rows) != 2 {
		t.Errorf("frame 1 = %+v", frames[1])
	}
	if frames[1].Rows[1].Duration != 0.3 || frames[0].Rows[1].X != 2 {
		t.Errorf("rows out of order: %+v", frames)
	}
}

func TestGroupFramesSortsByTime(t *testing.T) {
	frames := GroupFrames([]TrajectoryRow{{T: 2}, {T: 1}, {T: 2, TID: 1}})
	if len(frames) != 2 || frames[0].T != 1 || len(frames[1].Rows) != 2 {
		t.Errorf("frames = %+v", frames)
	}
}

func TestReadTrajectoryMissing(t *testing.T) {
	if _, err := ReadTrajectory(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
