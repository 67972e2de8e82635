package sim

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cellwalk/cloud"
	"github.com/pthm-cable/cellwalk/components"
	"github.com/pthm-cable/cellwalk/config"
	"github.com/pthm-cable/cellwalk/geometry"
	"github.com/pthm-cable/cellwalk/telemetry"
)

// NewShape builds the confining shape of a species. pradius is the walker
// radius in um.
func NewShape(gc config.GeometryConfig, pradius float64) (geometry.Shape, error) {
	region, err := geometry.ParseRegion(gc.Region)
	if err != nil {
		return nil, err
	}
	band := geometry.Band{
		Position: gc.BandPosition,
		Width:    gc.BandWidth,
		Depth:    gc.Depth,
		Count:    gc.Rings,
	}

	switch strings.ToLower(gc.Shape) {
	case "sphere":
		return geometry.NewSphere(gc.Radius, pradius, region, band)
	case "box":
		return geometry.NewBox(gc.Size.Vec(), pradius, region, band)
	case "cell":
		return geometry.NewCell(gc.Length, gc.Radius, pradius, region, band)
	}
	return nil, fmt.Errorf("%w: unknown shape %q", config.ErrConfig, gc.Shape)
}

// newCloud creates the cloud of one species and injects its walkers.
func (s *Simulator) newCloud(sc *config.SpeciesConfig) (*cloud.Cloud, error) {
	shape, err := NewShape(sc.Geometry, sc.RadiusMicrons())
	if err != nil {
		return nil, fmt.Errorf("species %q: %w", sc.Name, err)
	}

	c, err := cloud.New(cloud.Options{
		Name:        sc.Name,
		Shape:       shape,
		D:           sc.DiffusionCoefficient(),
		Alpha:       sc.Alpha,
		Dt:          s.cfg.Simulation.Dt,
		Temperature: sc.Temperature,
		Body:        components.NewBody(sc.RadiusMicrons(), sc.Density),
		Sampler:     s.rng,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, err
	}

	pl, err := cloud.ParsePlacement(sc.Injection)
	if err != nil {
		return nil, fmt.Errorf("species %q: %w", sc.Name, err)
	}
	switch pl.Method {
	case cloud.MethodFixed:
		pl.Fixed = sc.Fixed.Vec()
	case cloud.MethodPositions:
		if sc.Snapshot == "" {
			return nil, fmt.Errorf("%w: species %q: snapshot injection without a snapshot file", config.ErrConfig, sc.Name)
		}
		snap, err := telemetry.LoadSnapshot(sc.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("species %q: %w", sc.Name, err)
		}
		pl.Positions = snap.Positions()
	}

	count := sc.Count
	if count == 0 && sc.Concentration > 0 {
		count = c.CountFor(sc.Concentration)
	}
	if err := c.Inject(count, pl); err != nil {
		return nil, err
	}

	if sc.SaveSnapshot != "" {
		if err := s.saveSnapshot(c, sc.SaveSnapshot); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// reactionParams converts the config units to the ones clouds use.
func reactionParams(rc config.ReactionConfig) cloud.ReactionParams {
	return cloud.ReactionParams{
		SubstrateOn: rc.SubstrateOn,
		ReactionOn:  rc.ReactionOn,
		Constant:    rc.Constant,
		Sight:       rc.SightMicrons(),
		Focus:       rc.Focus,
		Km:          rc.Km,
		Kcat:        rc.Kcat,
		RateWindow:  rc.RateWindow,
	}
}

func (s *Simulator) saveSnapshot(c *cloud.Cloud, path string) error {
	walkers := c.Walkers()
	tids := make([]int, len(walkers))
	positions := make([]r3.Vec, len(walkers))
	for i, w := range walkers {
		tids[i] = w.ID
		positions[i] = w.Position
	}
	snap := telemetry.NewSnapshot(c.Name(), c.Time(), s.seed, tids, positions)
	path = telemetry.SnapshotPath(path, s.cfg.Output.Base, c.Name(), c.Steps())
	if err := telemetry.SaveSnapshot(snap, path); err != nil {
		return fmt.Errorf("species %q: %w", c.Name(), err)
	}
	s.logger.Info("snapshot saved", "cloud", c.Name(), "path", path, "walkers", len(walkers))
	return nil
}
