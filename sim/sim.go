// Package sim builds the clouds described by a configuration, wires reactive
// partners together and runs the stepping loop with its outputs.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pthm-cable/cellwalk/cloud"
	"github.com/pthm-cable/cellwalk/config"
	"github.com/pthm-cable/cellwalk/systems"
	"github.com/pthm-cable/cellwalk/telemetry"
)

// Simulator holds the clouds of one run.
type Simulator struct {
	cfg    *config.Config
	seed   uint64
	runID  string
	rng    *systems.RandomSource
	logger *slog.Logger

	clouds []*cloud.Cloud
	byName map[string]*cloud.Cloud

	out  *telemetry.OutputManager
	perf *telemetry.PerfCollector

	step int
}

// New builds every cloud of cfg, injects walkers, attaches substrates and
// opens the output files. A zero seed in cfg picks a time-based one.
func New(cfg *config.Config, logger *slog.Logger) (*Simulator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	runID := cfg.Simulation.RunID
	if runID == "" {
		runID = strconv.FormatInt(time.Now().Unix(), 36)
	}

	s := &Simulator{
		cfg:    cfg,
		seed:   seed,
		runID:  runID,
		rng:    systems.NewRandomSource(seed),
		logger: logger,
		byName: make(map[string]*cloud.Cloud, len(cfg.Species)),
		perf:   telemetry.NewPerfCollector(cfg.Output.InfoCycle),
	}
	logger.Info("building simulation", "seed", seed, "run_id", runID, "species", len(cfg.Species))

	for i := range cfg.Species {
		c, err := s.newCloud(&cfg.Species[i])
		if err != nil {
			return nil, err
		}
		s.clouds = append(s.clouds, c)
		s.byName[c.Name()] = c
	}

	// Reaction times depend on the injected concentrations, so partners are
	// attached only once every cloud is populated.
	for i := range cfg.Species {
		sc := &cfg.Species[i]
		if !sc.Reactive() {
			continue
		}
		partner, ok := s.byName[sc.Reaction.Substrate]
		if !ok {
			return nil, fmt.Errorf("%w: species %q: unknown substrate %q", config.ErrConfig, sc.Name, sc.Reaction.Substrate)
		}
		if _, err := cloud.NewReactive(s.byName[sc.Name], partner, reactionParams(sc.Reaction)); err != nil {
			return nil, err
		}
	}

	if err := s.openOutput(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Simulator) openOutput() error {
	out, err := telemetry.NewOutputManager(s.cfg.Output.Dir, s.cfg.Output.Base)
	if err != nil {
		return err
	}
	s.out = out
	if out == nil {
		return nil
	}

	if err := out.WriteConfig(s.cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if s.cfg.Output.SaveTrace {
		for _, c := range s.clouds {
			if err := out.AddTrajectory(c.Name()); err != nil {
				return err
			}
		}
	}
	s.logger.Info("output enabled", "dir", out.Dir())
	return nil
}

// Seed returns the seed of the random source.
func (s *Simulator) Seed() uint64 { return s.seed }

// RunID returns the id written into every metrics row.
func (s *Simulator) RunID() string { return s.runID }

// Clouds returns the clouds in configuration order.
func (s *Simulator) Clouds() []*cloud.Cloud { return s.clouds }

// Cloud returns the cloud of a species, or nil.
func (s *Simulator) Cloud(name string) *cloud.Cloud { return s.byName[name] }

// StepCount returns the number of completed steps.
func (s *Simulator) StepCount() int { return s.step }

// Run steps until the configured number of iterations or until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	start := time.Now()
	for s.step < s.cfg.Simulation.Iterations {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("run interrupted", "step", s.step)
			return err
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	s.logger.Info("run complete",
		"steps", s.step,
		"sim_time", s.simTime(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}

func (s *Simulator) simTime() float64 {
	return float64(s.step) * s.cfg.Simulation.Dt
}

// Step advances every cloud by one macro-step in configuration order and
// writes the outputs that fall on this step.
func (s *Simulator) Step() error {
	out := s.cfg.Output
	s.perf.StartStep()

	for _, c := range s.clouds {
		s.perf.StartAdvance(c.Name(), c.Len())
		if err := c.Advance(); err != nil {
			return fmt.Errorf("step %d: %w", s.step+1, err)
		}
	}
	s.step++
	info := s.step%out.InfoCycle == 0

	if info {
		s.perf.StartPhase(telemetry.PhaseValidate)
		for _, c := range s.clouds {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("step %d: %w", s.step, err)
			}
		}
	}

	if s.step%out.SaveCycle == 0 {
		s.perf.StartPhase(telemetry.PhaseTrajectory)
		if err := s.writeTrajectories(); err != nil {
			return err
		}
		if err := s.writeCounts(); err != nil {
			return err
		}
	}

	if info {
		s.perf.StartPhase(telemetry.PhaseMetrics)
		if err := s.report(); err != nil {
			return err
		}
	}
	s.perf.EndStep()

	if info && out.PerfLog {
		stats := s.perf.Stats()
		stats.LogStats(s.logger)
		if err := s.out.WritePerf(stats, s.step); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) writeTrajectories() error {
	if s.out == nil || !s.cfg.Output.SaveTrace {
		return nil
	}
	for _, c := range s.clouds {
		walkers := c.Walkers()
		rows := make([]telemetry.TrajectoryRow, len(walkers))
		for i, w := range walkers {
			rows[i] = telemetry.TrajectoryRow{
				T:        c.Time(),
				X:        w.Position.X,
				Y:        w.Position.Y,
				Z:        w.Position.Z,
				R:        w.Radius,
				Duration: w.Duration,
				TID:      w.ID,
				PID:      w.PID,
			}
		}
		if err := s.out.WriteTrajectory(c.Name(), rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) writeCounts() error {
	if s.out == nil || !s.cfg.Output.WriteCount {
		return nil
	}
	for _, c := range s.clouds {
		r := c.Reactive()
		if r == nil {
			continue
		}
		err := s.out.WriteCount(telemetry.CountRow{
			Time:                   c.Time(),
			Species:                c.Name(),
			Concentration:          c.Concentration(),
			SubstrateConcentration: r.Partner().Concentration(),
			ProductConcentration:   r.Collector().LatestProduct(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// report logs progress and writes one metrics row per reactive cloud.
func (s *Simulator) report() error {
	s.logger.Info("progress",
		"step", s.step,
		"of", s.cfg.Simulation.Iterations,
		"sim_time", s.simTime(),
	)
	for _, c := range s.clouds {
		r := c.Reactive()
		if r == nil {
			continue
		}
		m := r.Metrics(s.runID)
		m.LogStats(s.logger)
		if err := s.out.WriteMetrics(m); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the output files.
func (s *Simulator) Close() error {
	return s.out.Close()
}
