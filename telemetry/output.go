package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/cellwalk/config"
)

// TrajectoryRow is one walker at one save cycle.
type TrajectoryRow struct {
	T        float64 `csv:"t"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	Z        float64 `csv:"z"`
	R        float64 `csv:"r"`
	Duration float64 `csv:"duration"`
	TID      int     `csv:"tid"`
	PID      int     `csv:"pid"`
}

// CountRow is one concentration sample of a reactive species.
type CountRow struct {
	Time                   float64 `csv:"time"`
	Species                string  `csv:"species"`
	Concentration          float64 `csv:"concentration"`
	SubstrateConcentration float64 `csv:"substrate_conc"`
	ProductConcentration   float64 `csv:"product_conc"`
}

// csvSink is one CSV file whose header goes out with the first write.
type csvSink struct {
	f             *os.File
	headerWritten bool
}

func openSink(path string) (*csvSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	return &csvSink{f: f}, nil
}

// write marshals a slice of records.
func (s *csvSink) write(records any) error {
	if !s.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, s.f); err != nil {
			return err
		}
		s.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, s.f)
}

func (s *csvSink) close() error {
	if s == nil || s.f == nil {
		return nil
	}
	return s.f.Close()
}

// OutputManager handles the trajectory, metrics, count and perf CSV files
// of one run.
type OutputManager struct {
	dir  string
	base string

	trajectories map[string]*csvSink
	metrics      *csvSink
	count        *csvSink
	perf         *csvSink
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir, base string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if base == "" {
		base = "cellwalk"
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{
		dir:          dir,
		base:         base,
		trajectories: make(map[string]*csvSink),
	}
	var err error
	if om.metrics, err = openSink(om.Path("log.csv")); err != nil {
		return nil, err
	}
	return om, nil
}

// Path returns <dir>/<base>_<name>.
func (om *OutputManager) Path(name string) string {
	return filepath.Join(om.dir, om.base+"_"+name)
}

// AddTrajectory creates <base>_<species>.csv and writes its header.
func (om *OutputManager) AddTrajectory(species string) error {
	if om == nil {
		return nil
	}
	if _, ok := om.trajectories[species]; ok {
		return fmt.Errorf("trajectory for %q already open", species)
	}
	sink, err := openSink(om.Path(species + ".csv"))
	if err != nil {
		return err
	}
	if err := sink.write([]TrajectoryRow{}); err != nil {
		sink.close()
		return fmt.Errorf("writing trajectory header: %w", err)
	}
	om.trajectories[species] = sink
	return nil
}

// WriteTrajectory appends walker rows for a species.
func (om *OutputManager) WriteTrajectory(species string, rows []TrajectoryRow) error {
	if om == nil || len(rows) == 0 {
		return nil
	}
	sink, ok := om.trajectories[species]
	if !ok {
		return fmt.Errorf("no trajectory file for %q", species)
	}
	if err := sink.write(rows); err != nil {
		return fmt.Errorf("writing trajectory: %w", err)
	}
	return nil
}

// WriteMetrics appends one metrics record to <base>_log.csv.
func (om *OutputManager) WriteMetrics(m Metrics) error {
	if om == nil {
		return nil
	}
	if err := om.metrics.write([]Metrics{m}); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// WriteCount appends a concentration sample to <base>_count.csv, creating
// the file on first use.
func (om *OutputManager) WriteCount(row CountRow) error {
	if om == nil {
		return nil
	}
	if om.count == nil {
		sink, err := openSink(om.Path("count.csv"))
		if err != nil {
			return err
		}
		om.count = sink
	}
	if err := om.count.write([]CountRow{row}); err != nil {
		return fmt.Errorf("writing count: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to <base>_perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, step int) error {
	if om == nil {
		return nil
	}
	if om.perf == nil {
		sink, err := openSink(om.Path("perf.csv"))
		if err != nil {
			return err
		}
		om.perf = sink
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(step)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(om.Path("config.yaml"))
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, sink := range om.trajectories {
		keep(sink.close())
	}
	keep(om.metrics.close())
	keep(om.count.close())
	keep(om.perf.close())
	return firstErr
}
