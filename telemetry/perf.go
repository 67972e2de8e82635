package telemetry

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// Step-level phase names. Cloud advances are timed separately under
// AdvancePhase(name).
const (
	PhaseValidate   = "validate"
	PhaseTrajectory = "trajectory"
	PhaseMetrics    = "metrics"
)

const advancePrefix = "advance:"

// AdvancePhase is the phase that times the advance of one cloud.
func AdvancePhase(cloud string) string { return advancePrefix + cloud }

// PerfSample is the wall time spent in one simulation step.
type PerfSample struct {
	StepDuration time.Duration
	Phases       map[string]time.Duration
	Walkers      int // walkers advanced during the step, all clouds
}

// PerfCollector keeps a rolling window of step timings so the cost of each
// cloud's advance can be compared with the bookkeeping around it.
type PerfCollector struct {
	now func() time.Time

	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	walkers       int
	stepStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector averages over the last windowSize steps, 100 if
// windowSize is not positive.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 100
	}
	return &PerfCollector{
		now:           time.Now,
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// SetClock replaces the wall clock, nil restores time.Now.
func (p *PerfCollector) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	p.now = now
}

// StartStep begins timing a new step.
func (p *PerfCollector) StartStep() {
	p.stepStart = p.now()
	p.currentPhases = make(map[string]time.Duration)
	p.walkers = 0
	p.lastPhase = ""
}

// StartPhase begins timing a phase and ends the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := p.now()
	p.closePhase(now)
	p.phaseStart = now
	p.lastPhase = phase
}

// StartAdvance begins timing the advance of a cloud holding n walkers.
func (p *PerfCollector) StartAdvance(cloud string, n int) {
	p.StartPhase(AdvancePhase(cloud))
	p.walkers += n
}

// EndStep finishes timing the current step and records the sample.
func (p *PerfCollector) EndStep() {
	now := p.now()
	p.closePhase(now)

	p.samples[p.writeIndex] = PerfSample{
		StepDuration: now.Sub(p.stepStart),
		Phases:       p.currentPhases,
		Walkers:      p.walkers,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.lastPhase = ""
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
}

// PerfStats aggregates the samples in the window.
type PerfStats struct {
	Steps int

	AvgStepDuration time.Duration
	MinStepDuration time.Duration
	MaxStepDuration time.Duration

	// Average duration and share of the step per phase
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	StepsPerSecond   float64
	WalkersPerSecond float64 // walker advances per wall-clock second

	AdvancePct   float64 // share of the step spent advancing clouds
	SlowestCloud string  // cloud with the largest advance share
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	stats := PerfStats{
		PhaseAvg: make(map[string]time.Duration),
		PhasePct: make(map[string]float64),
	}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	walkers := 0
	phaseSum := make(map[string]time.Duration)
	for i := range p.sampleCount {
		s := p.samples[i]
		total += s.StepDuration
		walkers += s.Walkers
		if i == 0 || s.StepDuration < stats.MinStepDuration {
			stats.MinStepDuration = s.StepDuration
		}
		stats.MaxStepDuration = max(stats.MaxStepDuration, s.StepDuration)
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	stats.Steps = p.sampleCount
	stats.AvgStepDuration = total / time.Duration(p.sampleCount)
	for phase, sum := range phaseSum {
		stats.PhaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if total > 0 {
			stats.PhasePct[phase] = float64(sum) / float64(total) * 100
		}
	}

	if total > 0 {
		stats.StepsPerSecond = float64(p.sampleCount) / total.Seconds()
		stats.WalkersPerSecond = float64(walkers) / total.Seconds()
	}

	slowest := -1.0
	for _, phase := range slices.Sorted(maps.Keys(stats.PhasePct)) {
		name, ok := strings.CutPrefix(phase, advancePrefix)
		if !ok {
			continue
		}
		pct := stats.PhasePct[phase]
		stats.AdvancePct += pct
		if pct > slowest {
			slowest = pct
			stats.SlowestCloud = name
		}
	}
	return stats
}

// CloudPct returns the share of the step spent advancing one cloud.
func (s PerfStats) CloudPct(cloud string) float64 {
	return s.PhasePct[AdvancePhase(cloud)]
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats(logger *slog.Logger) {
	attrs := []any{
		"avg_step_us", s.AvgStepDuration.Microseconds(),
		"min_step_us", s.MinStepDuration.Microseconds(),
		"max_step_us", s.MaxStepDuration.Microseconds(),
		"steps_per_sec", int(s.StepsPerSecond),
		"walkers_per_sec", int(s.WalkersPerSecond),
		"advance_pct", round1(s.AdvancePct),
	}
	if s.SlowestCloud != "" {
		attrs = append(attrs, "slowest_cloud", s.SlowestCloud)
	}
	for _, phase := range slices.Sorted(maps.Keys(s.PhasePct)) {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, phase+"_pct", round1(pct))
		}
	}
	logger.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_step_us", s.AvgStepDuration.Microseconds()),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
		slog.Float64("walkers_per_sec", s.WalkersPerSecond),
		slog.Float64("advance_pct", s.AdvancePct),
		slog.String("slowest_cloud", s.SlowestCloud),
	}
	return slog.GroupValue(attrs...)
}

func round1(v float64) float64 { return float64(int(v*10)) / 10 }

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Step            int     `csv:"step"`
	AvgStepUS       int64   `csv:"avg_step_us"`
	MinStepUS       int64   `csv:"min_step_us"`
	MaxStepUS       int64   `csv:"max_step_us"`
	StepsPerSec     float64 `csv:"steps_per_sec"`
	WalkersPerSec   float64 `csv:"walkers_per_sec"`
	AdvancePct      float64 `csv:"advance_pct"`
	SlowestCloud    string  `csv:"slowest_cloud"`
	SlowestCloudPct float64 `csv:"slowest_cloud_pct"`
	ValidatePct     float64 `csv:"validate_pct"`
	TrajectoryPct   float64 `csv:"trajectory_pct"`
	MetricsPct      float64 `csv:"metrics_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(step int) PerfStatsCSV {
	return PerfStatsCSV{
		Step:            step,
		AvgStepUS:       s.AvgStepDuration.Microseconds(),
		MinStepUS:       s.MinStepDuration.Microseconds(),
		MaxStepUS:       s.MaxStepDuration.Microseconds(),
		StepsPerSec:     s.StepsPerSecond,
		WalkersPerSec:   s.WalkersPerSecond,
		AdvancePct:      s.AdvancePct,
		SlowestCloud:    s.SlowestCloud,
		SlowestCloudPct: s.CloudPct(s.SlowestCloud),
		ValidatePct:     s.PhasePct[PhaseValidate],
		TrajectoryPct:   s.PhasePct[PhaseTrajectory],
		MetricsPct:      s.PhasePct[PhaseMetrics],
	}
}
