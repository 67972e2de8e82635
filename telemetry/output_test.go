package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/cellwalk/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", "run")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}

	// Every method is nil-safe
	if err := om.AddTrajectory("A"); err != nil {
		t.Error(err)
	}
	if err := om.WriteMetrics(Metrics{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerTrajectory(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, "run")
	if err != nil {
		t.Fatal(err)
	}

	if err := om.AddTrajectory("Enzyme"); err != nil {
		t.Fatal(err)
	}
	if err := om.AddTrajectory("Enzyme"); err == nil {
		t.Error("expected error opening the same trajectory twice")
	}
	if err := om.WriteTrajectory("Nope", []TrajectoryRow{{}}); err == nil {
		t.Error("expected error writing an unknown species")
	}

	rows := []TrajectoryRow{
		{T: 0.1, X: 1, Y: 2, Z: 3, R: 0.01, TID: 0, PID: 4},
		{T: 0.1, X: -1, R: 0.01, Duration: 0.5, TID: 1, PID: 2},
	}
	for range 2 {
		if err := om.WriteTrajectory("Enzyme", rows); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "run_Enzyme.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "t,x,y,z,r,duration,tid,pid" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header plus 4 rows", len(lines))
	}

	var back []TrajectoryRow
	if err := gocsv.UnmarshalBytes(data, &back); err != nil {
		t.Fatal(err)
	}
	if back[3] != rows[1] {
		t.Errorf("row 3 = %+v, want %+v", back[3], rows[1])
	}
}

func TestOutputManagerMetricsAndCount(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	for i := range 3 {
		if err := om.WriteMetrics(Metrics{Time: float64(i), Species: "Enzyme"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WriteCount(CountRow{Time: 1, Species: "Enzyme", ProductConcentration: 2}); err != nil {
		t.Fatal(err)
	}
	if err := om.WritePerf(PerfStats{}, 10); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	var metrics []Metrics
	f, err := os.Open(filepath.Join(dir, "cellwalk_log.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, &metrics); err != nil {
		t.Fatal(err)
	}
	if len(metrics) != 3 || metrics[2].Time != 2 {
		t.Errorf("metrics = %+v", metrics)
	}

	for _, name := range []string{"cellwalk_count.csv", "cellwalk_perf.csv", "cellwalk_config.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
