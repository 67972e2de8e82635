package cloud

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cellwalk/components"
	"github.com/pthm-cable/cellwalk/systems"
	"github.com/pthm-cable/cellwalk/telemetry"
)

// ErrSightDistance is returned when the Michaelis-Menten reaction time is
// shorter than the time a walker needs to find substrate at the configured
// sight distance.
var ErrSightDistance = errors.New("reaction time shorter than search time, increase the sight distance")

// ReactionParams configures the capture and binding of partner walkers.
type ReactionParams struct {
	SubstrateOn bool    // look for partner walkers at all
	ReactionOn  bool    // bind on capture
	Constant    bool    // captured substrate is kept rather than consumed
	Sight       float64 // capture distance, um
	Focus       float64 // cluster concentration, uM; 0 selects diffusion mode
	Km          float64 // uM
	Kcat        float64 // 1/s

	RateWindow int // steps in the windowed rate, 0 for the default
}

// DefaultReactionParams returns the standard enzyme constants.
func DefaultReactionParams() ReactionParams {
	return ReactionParams{
		SubstrateOn: true,
		ReactionOn:  true,
		Constant:    true,
		Sight:       0.005,
		Km:          8.9,
		Kcat:        6.3,
	}
}

// Reactive extends a cloud with capture of a partner cloud's walkers.
type Reactive struct {
	cloud   *Cloud
	partner *Cloud
	params  ReactionParams

	searchTime   float64
	reactionTime float64

	captured  int
	collector *telemetry.Collector
}

// NewReactive attaches partner as the substrate of c. The relation is fixed
// for the lifetime of both clouds. Walkers should be injected into both
// clouds first: the reaction time depends on their concentrations.
func NewReactive(c, partner *Cloud, params ReactionParams) (*Reactive, error) {
	if c == nil || partner == nil {
		return nil, errors.New("reactive cloud needs both an enzyme and a substrate cloud")
	}
	if c == partner {
		return nil, fmt.Errorf("cloud %q cannot be its own substrate", c.name)
	}
	if c.react != nil {
		return nil, fmt.Errorf("cloud %q already has substrate %q", c.name, c.react.partner.name)
	}
	if params.Sight <= 0 {
		return nil, fmt.Errorf("cloud %q: sight distance must be positive, got %g", c.name, params.Sight)
	}
	if params.Km < 0 || params.Kcat <= 0 {
		return nil, fmt.Errorf("cloud %q: invalid kinetics Km=%g Kcat=%g", c.name, params.Km, params.Kcat)
	}

	r := &Reactive{
		cloud:     c,
		partner:   partner,
		params:    params,
		collector: telemetry.NewCollector(c.dt, params.RateWindow),
	}
	if err := r.setSubstrate(); err != nil {
		return nil, err
	}
	c.react = r
	return r, nil
}

// setSubstrate derives the search and reaction times from the current
// concentrations.
func (r *Reactive) setSubstrate() error {
	cs := r.partner.Concentration()
	ce := r.cloud.Concentration()
	p := r.params

	if cs > 0 {
		mfp := systems.MeanFreePath(cs, p.Sight)
		if v := systems.ThermalVelocity(r.cloud.temperature, r.cloud.body.Mass); v > 0 {
			r.searchTime = mfp / v
		}
	}
	r.reactionTime = r.searchTime

	if p.SubstrateOn && p.ReactionOn && p.Focus == 0 {
		if cs <= 0 {
			return fmt.Errorf("cloud %q: substrate %q is empty", r.cloud.name, r.partner.name)
		}
		r.reactionTime = systems.ReactionTime(cs, ce, p.Km, p.Kcat)
		if r.reactionTime < r.searchTime {
			return fmt.Errorf("cloud %q: reaction %.4gs < search %.4gs: %w",
				r.cloud.name, r.reactionTime, r.searchTime, ErrSightDistance)
		}
	}

	r.cloud.logger.Info("substrate attached",
		"substrate", r.partner.name,
		"substrate_conc", cs,
		"enzyme_conc", ce,
		"search_time", r.searchTime,
		"reaction_time", r.reactionTime,
		"mm_rate", systems.MichaelisMentenRate(p.Kcat*ce, p.Km, cs),
	)
	return nil
}

func (r *Reactive) Cloud() *Cloud                   { return r.cloud }
func (r *Reactive) Partner() *Cloud                 { return r.partner }
func (r *Reactive) Params() ReactionParams          { return r.params }
func (r *Reactive) SearchTime() float64             { return r.searchTime }
func (r *Reactive) ReactionTime() float64           { return r.reactionTime }
func (r *Reactive) Captured() int                   { return r.captured }
func (r *Reactive) Collector() *telemetry.Collector { return r.collector }

// ResidenceTime is how long a walker stays bound after count captures.
func (r *Reactive) ResidenceTime(count int) float64 {
	if count <= 0 || !r.params.ReactionOn {
		return 0
	}
	if r.params.Focus > 0 {
		wv := r.cloud.body.Volume
		captured := systems.CapturedConcentration(count, wv)
		cluster := systems.ClusterConcentration(r.params.Focus, r.cloud.shape.Volume(), wv)
		return systems.ClusterResidenceTime(r.params.Km, r.params.Kcat, captured, cluster)
	}
	return r.reactionTime - r.searchTime
}

// capture counts the partner walkers within sight of the segment p -> p+dr
// and consumes or relocates each one.
func (r *Reactive) capture(p, dr r3.Vec) (int, error) {
	if !r.params.SubstrateOn {
		return 0, nil
	}
	count := 0
	for _, id := range r.partner.Near(p, dr) {
		sp, ok := r.partner.Position(id)
		if !ok || !WithinSight(p, dr, sp, r.params.Sight) {
			continue
		}
		count++

		switch {
		case !r.params.Constant:
			if err := r.partner.Remove(id); err != nil {
				return count, err
			}
		case r.params.Focus == 0:
			if err := r.partner.Randomize(id); err != nil {
				return count, err
			}
		}
	}
	return count, nil
}

// bind puts a walker into the bound state after count captures.
func (r *Reactive) bind(w *components.Walker, pos *components.Position, res *components.Residence, hits *components.Hits, count int) {
	res.Duration = r.ResidenceTime(count)
	hits.Substrate += count
	r.captured += count

	if hits.LastHitAge > 0 {
		r.collector.RecordFreePath(w.Age-hits.LastHitAge, r3.Norm(r3.Sub(pos.Vec, hits.LastHitPos)))
	}
	hits.LastHitAge = w.Age
	hits.LastHitPos = pos.Vec
}

func (r *Reactive) recordProduct() {
	r.collector.RecordProduct(systems.Concentration(r.captured, r.cloud.shape.Volume()))
}

// Metrics reports the current state of the reaction.
func (r *Reactive) Metrics(runID string) telemetry.Metrics {
	c := r.cloud
	m := telemetry.Metrics{
		Time:                   c.time,
		Species:                c.name,
		FocusConcentration:     r.params.Focus,
		Radius:                 c.body.Radius,
		SubstrateConcentration: r.partner.Concentration(),
		TotalProduct:           r.captured,
		WallHits:               c.WallHits(),
		Bound:                  c.BoundCount(),
		Walkers:                c.Len(),
		RunID:                  runID,
	}
	r.collector.Fill(&m, c.time)

	speed := systems.ThermalVelocity(c.temperature, c.body.Mass)
	m.Pressure = systems.WallPressure(c.body.Mass, speed, m.WallHits, c.shape.SurfaceArea(), c.time)
	return m
}

// WithinSight reports whether q lies within sight of the segment p -> p+dr.
// Points slightly past the end of the segment are accepted when they are
// within sight of the end point.
func WithinSight(p, dr, q r3.Vec, sight float64) bool {
	l2 := r3.Norm2(dr)
	if l2 == 0 {
		return false
	}
	s := r3.Dot(r3.Sub(q, p), dr) / l2
	switch {
	case s > 0 && s <= 1:
		closest := r3.Add(p, r3.Scale(s, dr))
		return r3.Norm(r3.Sub(q, closest)) <= sight
	case s > 1 && s <= 1+sight/r3.Norm(dr):
		return r3.Norm(r3.Sub(q, r3.Add(p, dr))) <= sight
	}
	return false
}
