package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the walker positions of one species so a later run can
// start from them.
type Snapshot struct {
	Version int     `json:"version"`
	Species string  `json:"species"`
	Time    float64 `json:"time"`
	Seed    uint64  `json:"seed"`

	Walkers []WalkerPosition `json:"walkers"`
}

// WalkerPosition is one walker's position in μm.
type WalkerPosition struct {
	TID int     `json:"tid"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z"`
}

// NewSnapshot builds a snapshot from positions indexed by walker order.
func NewSnapshot(species string, time float64, seed uint64, tids []int, positions []r3.Vec) *Snapshot {
	s := &Snapshot{
		Version: SnapshotVersion,
		Species: species,
		Time:    time,
		Seed:    seed,
		Walkers: make([]WalkerPosition, len(positions)),
	}
	for i, p := range positions {
		s.Walkers[i] = WalkerPosition{X: p.X, Y: p.Y, Z: p.Z}
		if i < len(tids) {
			s.Walkers[i].TID = tids[i]
		}
	}
	return s
}

// Positions returns the walker positions in file order.
func (s *Snapshot) Positions() []r3.Vec {
	out := make([]r3.Vec, len(s.Walkers))
	for i, w := range s.Walkers {
		out[i] = r3.Vec{X: w.X, Y: w.Y, Z: w.Z}
	}
	return out
}

// SaveSnapshot writes a snapshot to a JSON file.
func SaveSnapshot(snap *Snapshot, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating snapshot dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot from a JSON file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version mismatch: got %d, want %d", snap.Version, SnapshotVersion)
	}
	return &snap, nil
}

// SnapshotPath returns <dir>/<base>_<species>_<step>.json, or path itself
// when it already names a .json file.
func SnapshotPath(path, base, species string, step int) string {
	if strings.HasSuffix(path, ".json") {
		return path
	}
	return filepath.Join(path, fmt.Sprintf("%s_%s_%d.json", base, species, step))
}
