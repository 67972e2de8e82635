package cloud

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cellwalk/geometry"
	"github.com/pthm-cable/cellwalk/systems"
)

// Method selects how injected walkers are placed.
type Method uint8

const (
	// MethodRandom samples the geometry's own placement region.
	MethodRandom Method = iota
	// MethodRegion samples an explicit region.
	MethodRegion
	// MethodFixed stacks every walker on one position.
	MethodFixed
	// MethodPositions uses a list of positions, one walker each.
	MethodPositions
)

func (m Method) String() string {
	switch m {
	case MethodRandom:
		return "random"
	case MethodRegion:
		return "region"
	case MethodFixed:
		return "fixed"
	case MethodPositions:
		return "positions"
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

// Placement describes where injected walkers start.
type Placement struct {
	Method    Method
	Region    geometry.Region
	Fixed     r3.Vec
	Positions []r3.Vec
}

// ParsePlacement reads an injection method name: "random", "fixed",
// "snapshot" or one of the region names accepted by geometry.ParseRegion.
func ParsePlacement(name string) (Placement, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "random":
		return Placement{Method: MethodRandom}, nil
	case "fixed":
		return Placement{Method: MethodFixed}, nil
	case "snapshot", "positions":
		return Placement{Method: MethodPositions}, nil
	}
	region, err := geometry.ParseRegion(name)
	if err != nil {
		return Placement{}, fmt.Errorf("injection method %q: %w", name, err)
	}
	return Placement{Method: MethodRegion, Region: region}, nil
}

// CountFor converts a micromolar concentration into a walker count for the
// cloud's placement region.
func (c *Cloud) CountFor(concentration float64) int {
	return systems.CountFor(concentration, c.shape.TypeVolume())
}

// Inject adds count walkers placed according to pl. With MethodPositions the
// count is ignored and one walker is created per position.
func (c *Cloud) Inject(count int, pl Placement) error {
	if count < 0 {
		return fmt.Errorf("cloud %q: negative walker count %d", c.name, count)
	}
	switch pl.Method {
	case MethodRandom, MethodRegion:
		region := c.shape.Region()
		if pl.Method == MethodRegion {
			region = pl.Region
		}
		for range count {
			p, err := c.shape.RandomPosition(c.sampler, region)
			if err != nil {
				return fmt.Errorf("cloud %q: inject %s: %w", c.name, region, err)
			}
			if _, err := c.Add(p); err != nil {
				return err
			}
		}
	case MethodFixed:
		if !c.shape.Inside(pl.Fixed) {
			return fmt.Errorf("cloud %q: fixed position %v: %w", c.name, pl.Fixed, geometry.ErrOutside)
		}
		for range count {
			if _, err := c.Add(pl.Fixed); err != nil {
				return err
			}
		}
	case MethodPositions:
		for _, p := range pl.Positions {
			if _, err := c.Add(p); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cloud %q: unknown injection method %s", c.name, pl.Method)
	}

	c.logger.Info("injected",
		"method", pl.Method.String(),
		"walkers", c.Len(),
		"concentration_uM", c.Concentration(),
	)
	return nil
}
