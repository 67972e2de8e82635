package cloud

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cellwalk/components"
	"github.com/pthm-cable/cellwalk/geometry"
	"github.com/pthm-cable/cellwalk/systems"
)

// Advance moves every walker through one macro-step of length Dt, in
// insertion order.
func (c *Cloud) Advance() error {
	// Only a partner's walkers are removed during the pass, never our own.
	for _, e := range c.order {
		if err := c.advance(e); err != nil {
			return err
		}
	}
	c.time += c.dt
	c.steps++
	if c.react != nil {
		c.react.recordProduct()
	}
	return nil
}

// advance runs the bound/free subcycle of one walker.
//
// A bound walker burns its remaining residence time first. Once free it
// takes a single stochastic step for whatever time is left; a wall hit or a
// capture ends the macro-step for that walker.
func (c *Cloud) advance(e ecs.Entity) error {
	w, pos, _, res, hits := c.mapper.Get(e)
	w.Age += c.dt
	if c.d == 0 {
		return nil
	}

	remaining := c.dt
	for remaining > 0 {
		switch {
		case res.Duration > remaining:
			res.Duration -= remaining
			remaining = 0
		case res.Duration > 0:
			remaining -= res.Duration
			res.Duration = 0
		default:
			count, err := c.move(w, pos, hits, remaining)
			if err != nil {
				return err
			}
			remaining = 0
			if count > 0 {
				c.react.bind(w, pos, res, hits, count)
			}
		}
	}
	return nil
}

// move draws a step for time dt, resolves it against the wall and, for a
// reactive cloud, against the partner's walkers. It returns the number of
// captures made along the path.
func (c *Cloud) move(w *components.Walker, pos *components.Position, hits *components.Hits, dt float64) (int, error) {
	dr0 := systems.Step(c.sampler, c.d, dt, c.alpha)
	t, err := geometry.TimeToSurface(c.shape, pos.Vec, dr0)
	if err != nil {
		return 0, fmt.Errorf("cloud %q: walker %d at %v: %w", c.name, w.ID, pos.Vec, err)
	}

	dr := dr0
	count := 0
	if t < 1 {
		refl, err := geometry.Reflect(c.shape, pos.Vec, dr0, t)
		if err != nil {
			return 0, fmt.Errorf("cloud %q: walker %d reflect: %w", c.name, w.ID, err)
		}
		dr = refl.Step
		if refl.Clamped || refl.Retries > 0 {
			c.logger.Debug("reflection",
				"walker", w.ID,
				"contact", refl.Contact,
				"retries", refl.Retries,
				"clamped", refl.Clamped,
			)
		}

		if c.react != nil {
			pre := r3.Scale(t, dr0)
			n, err := c.react.capture(pos.Vec, pre)
			if err != nil {
				return 0, err
			}
			m, err := c.react.capture(r3.Add(pos.Vec, pre), r3.Sub(dr, pre))
			if err != nil {
				return 0, err
			}
			count = n + m
		}
		hits.Wall++
	} else if c.react != nil {
		if count, err = c.react.capture(pos.Vec, dr); err != nil {
			return 0, err
		}
	}

	w.Trace += pos.Step(dr)
	w.PID, _ = c.index.Move(w.ID, pos.Vec)
	return count, nil
}
