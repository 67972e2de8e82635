// Package cloud advances ensembles of walkers through time.
//
// A Cloud owns the walkers of one species together with the geometry that
// confines them and the partition index other clouds query. A Reactive cloud
// additionally captures walkers of a partner cloud and binds to them for a
// Michaelis-Menten residence time.
package cloud

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cellwalk/components"
	"github.com/pthm-cable/cellwalk/geometry"
	"github.com/pthm-cable/cellwalk/systems"
)

// ErrUnknownWalker is returned for ids that are not in the cloud.
var ErrUnknownWalker = errors.New("cloud: unknown walker id")

// Options configures a Cloud.
type Options struct {
	Name  string
	Shape geometry.Shape

	D     float64 // diffusion coefficient, um^2/s
	Alpha float64 // stability exponent in (0, 2]
	Dt    float64 // macro-step, s

	Temperature float64 // K
	Body        components.Body

	Sampler systems.Sampler
	Logger  *slog.Logger
}

// Cloud is the ensemble of walkers of one species.
type Cloud struct {
	name  string
	shape geometry.Shape

	d, alpha, dt float64
	temperature  float64
	body         components.Body

	sampler systems.Sampler
	logger  *slog.Logger

	world  *ecs.World
	mapper *ecs.Map5[
		components.Walker,
		components.Position,
		components.Body,
		components.Residence,
		components.Hits,
	]
	order []ecs.Entity
	byID  map[int]ecs.Entity
	index *systems.PartitionIndex

	react *Reactive

	nextID int
	time   float64
	steps  int
}

// New creates an empty cloud.
func New(opts Options) (*Cloud, error) {
	if opts.Shape == nil {
		return nil, fmt.Errorf("cloud %q: no geometry", opts.Name)
	}
	if opts.Sampler == nil {
		return nil, fmt.Errorf("cloud %q: no random source", opts.Name)
	}
	if opts.D < 0 {
		return nil, fmt.Errorf("cloud %q: negative diffusion coefficient %g", opts.Name, opts.D)
	}
	if opts.Alpha <= 0 || opts.Alpha > 2 {
		return nil, fmt.Errorf("cloud %q: alpha must be in (0, 2], got %g", opts.Name, opts.Alpha)
	}
	if opts.Dt <= 0 {
		return nil, fmt.Errorf("cloud %q: timestep must be positive, got %g", opts.Name, opts.Dt)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	world := ecs.NewWorld()
	c := &Cloud{
		name:        opts.Name,
		shape:       opts.Shape,
		d:           opts.D,
		alpha:       opts.Alpha,
		dt:          opts.Dt,
		temperature: opts.Temperature,
		body:        opts.Body,
		sampler:     opts.Sampler,
		logger:      logger.With("cloud", opts.Name),
		world:       world,
		mapper: ecs.NewMap5[
			components.Walker,
			components.Position,
			components.Body,
			components.Residence,
			components.Hits,
		](world),
		byID:  make(map[int]ecs.Entity),
		index: systems.NewPartitionIndex(systems.NewPartitioner(opts.Shape.Bounds())),
	}
	return c, nil
}

func (c *Cloud) Name() string                   { return c.name }
func (c *Cloud) Shape() geometry.Shape          { return c.shape }
func (c *Cloud) D() float64                     { return c.d }
func (c *Cloud) Alpha() float64                 { return c.alpha }
func (c *Cloud) Dt() float64                    { return c.dt }
func (c *Cloud) Temperature() float64           { return c.temperature }
func (c *Cloud) Body() components.Body          { return c.body }
func (c *Cloud) Index() *systems.PartitionIndex { return c.index }

// Reactive returns the reactive extension of the cloud, or nil.
func (c *Cloud) Reactive() *Reactive { return c.react }

// Len returns the number of live walkers.
func (c *Cloud) Len() int { return len(c.order) }

// Time returns the simulated time elapsed.
func (c *Cloud) Time() float64 { return c.time }

// Steps returns the number of macro-steps taken.
func (c *Cloud) Steps() int { return c.steps }

// Concentration is the micromolar concentration of the live walkers over
// the volume of the geometry's placement region.
func (c *Cloud) Concentration() float64 {
	return systems.Concentration(c.Len(), c.shape.TypeVolume())
}

// Add creates a walker at p, which must be inside the geometry.
func (c *Cloud) Add(p r3.Vec) (int, error) {
	if !c.shape.Inside(p) {
		return 0, fmt.Errorf("cloud %q: position %v: %w", c.name, p, geometry.ErrOutside)
	}
	id := c.nextID
	c.nextID++

	walker := components.Walker{ID: id}
	pos := components.Position{Vec: p, Prev: p}
	body := c.body
	res := components.Residence{}
	hits := components.Hits{}
	walker.PID = c.index.Insert(id, p)

	e := c.mapper.NewEntity(&walker, &pos, &body, &res, &hits)
	c.order = append(c.order, e)
	c.byID[id] = e
	return id, nil
}

// Remove deletes a walker. Iteration order of the remaining walkers is
// preserved.
func (c *Cloud) Remove(id int) error {
	e, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("cloud %q: remove %d: %w", c.name, id, ErrUnknownWalker)
	}
	c.index.Remove(id)
	delete(c.byID, id)
	for i, o := range c.order {
		if o == e {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.world.RemoveEntity(e)
	return nil
}

// Position returns the current position of a walker.
func (c *Cloud) Position(id int) (r3.Vec, bool) {
	e, ok := c.byID[id]
	if !ok {
		return r3.Vec{}, false
	}
	_, pos, _, _, _ := c.mapper.Get(e)
	return pos.Vec, true
}

// Relocate moves a walker to p and updates the partition index.
func (c *Cloud) Relocate(id int, p r3.Vec) error {
	e, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("cloud %q: relocate %d: %w", c.name, id, ErrUnknownWalker)
	}
	if !c.shape.Inside(p) {
		return fmt.Errorf("cloud %q: relocate %d to %v: %w", c.name, id, p, geometry.ErrOutside)
	}
	w, pos, _, _, _ := c.mapper.Get(e)
	pos.Prev = pos.Vec
	pos.Vec = p
	w.PID, _ = c.index.Move(id, p)
	return nil
}

// Randomize moves a walker to a fresh random position of the geometry's
// placement region.
func (c *Cloud) Randomize(id int) error {
	p, err := c.shape.RandomPosition(c.sampler, c.shape.Region())
	if err != nil {
		return fmt.Errorf("cloud %q: %w", c.name, err)
	}
	return c.Relocate(id, p)
}

// Near returns the ids of walkers in the partitions swept by p -> p+dr.
func (c *Cloud) Near(p, dr r3.Vec) []int {
	return c.index.Query(p, dr)
}

// WalkerState is a read-only copy of one walker.
type WalkerState struct {
	components.Walker
	Position r3.Vec
	Radius   float64
	Duration float64
	Hits     components.Hits
}

// Walkers returns the state of every walker in iteration order.
func (c *Cloud) Walkers() []WalkerState {
	out := make([]WalkerState, 0, len(c.order))
	for _, e := range c.order {
		w, pos, body, res, hits := c.mapper.Get(e)
		out = append(out, WalkerState{
			Walker:   *w,
			Position: pos.Vec,
			Radius:   body.Radius,
			Duration: res.Duration,
			Hits:     *hits,
		})
	}
	return out
}

// WallHits returns the total wall hits of all live walkers.
func (c *Cloud) WallHits() int {
	total := 0
	for _, e := range c.order {
		_, _, _, _, hits := c.mapper.Get(e)
		total += hits.Wall
	}
	return total
}

// BoundCount returns the number of walkers currently bound.
func (c *Cloud) BoundCount() int {
	n := 0
	for _, e := range c.order {
		_, _, _, res, _ := c.mapper.Get(e)
		if res.Bound() {
			n++
		}
	}
	return n
}

// Validate checks that every walker is inside the geometry and that the
// partition index agrees with the walkers' cached partition ids.
func (c *Cloud) Validate() error {
	if c.index.Len() != len(c.order) {
		return fmt.Errorf("cloud %q: index holds %d ids for %d walkers", c.name, c.index.Len(), len(c.order))
	}
	if id := c.index.Check(); id >= 0 {
		return fmt.Errorf("cloud %q: walker %d indexed inconsistently", c.name, id)
	}
	for _, e := range c.order {
		w, pos, _, _, _ := c.mapper.Get(e)
		if !c.shape.Inside(pos.Vec) {
			return fmt.Errorf("cloud %q: walker %d at %v: %w", c.name, w.ID, pos.Vec, geometry.ErrOutside)
		}
		if pid, ok := c.index.Owner(w.ID); !ok || pid != w.PID {
			return fmt.Errorf("cloud %q: walker %d cached pid %d, indexed %d", c.name, w.ID, w.PID, pid)
		}
	}
	return nil
}
