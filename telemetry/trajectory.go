package telemetry

import (
	"fmt"
	"os"
	"sort"

	"github.com/gocarina/gocsv"
)

// Frame is every walker row sharing one time stamp.
type Frame struct {
	T    float64
	Rows []TrajectoryRow
}

// ReadTrajectory loads a trajectory CSV written by OutputManager.
func ReadTrajectory(path string) ([]TrajectoryRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trajectory: %w", err)
	}
	defer f.Close()

	var rows []TrajectoryRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Name(), err)
	}
	return rows, nil
}

// GroupFrames splits rows into frames ordered by time. Rows keep their file
// order within a frame.
func GroupFrames(rows []TrajectoryRow) []Frame {
	byT := make(map[float64]int)
	var frames []Frame
	for _, r := range rows {
		i, ok := byT[r.T]
		if !ok {
			i = len(frames)
			byT[r.T] = i
			frames = append(frames, Frame{T: r.T})
		}
		frames[i].Rows = append(frames[i].Rows, r)
	}
	sort.SliceStable(frames, func(a, b int) bool { return frames[a].T < frames[b].T })
	return frames
}
