package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Cell is a rod-shaped bacterium: a cylinder of the given length along the
// x axis capped by two hemispheres. Unlike Sphere and Box, its containment
// predicate follows its surface type, so a cell typed "ring" confines its
// walkers to the ring bands.
type Cell struct {
	length  float64
	radius  float64
	pradius float64
	stype   Region
	band    Band
}

// NewCell builds a cell geometry.
func NewCell(length, radius, pradius float64, stype Region, band Band) (*Cell, error) {
	if length < 0 || radius <= 0 {
		return nil, fmt.Errorf("cell needs non-negative length and positive radius, got %g and %g", length, radius)
	}
	if pradius < 0 || pradius >= radius {
		return nil, fmt.Errorf("particle radius %g does not fit a cell of radius %g", pradius, radius)
	}
	if band.Count < 1 {
		band.Count = 1
	}
	if band.Depth < 0 || band.Depth > 1 {
		return nil, fmt.Errorf("ring depth must be in [0, 1], got %g", band.Depth)
	}
	return &Cell{length: length, radius: radius, pradius: pradius, stype: stype, band: band}, nil
}

func (c *Cell) Length() float64 { return c.length }
func (c *Cell) Radius() float64 { return c.radius }

// axisPoint is the point of the central segment nearest to p.
func (c *Cell) axisPoint(p r3.Vec) r3.Vec {
	half := c.length / 2
	return r3.Vec{X: math.Max(-half, math.Min(half, p.X))}
}

// axisDistance is the distance from p to the central segment.
func (c *Cell) axisDistance(p r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, c.axisPoint(p)))
}

func (c *Cell) outer() float64 { return c.radius - c.pradius }
func (c *Cell) inner() float64 { return c.radius*(1-c.band.Depth) - c.pradius }

func (c *Cell) diskSlab() (lo, hi float64) {
	hi = c.length/2 - c.band.Position*c.length
	lo = hi - c.band.Width*c.length
	return lo, hi
}

// ringCenters returns the x centers of the ring bands.
func (c *Cell) ringCenters() []float64 {
	n := c.band.Count
	w := c.band.Width * c.length
	if n == 1 {
		return []float64{c.length/2 - w/2}
	}
	centers := make([]float64, n)
	step := c.length * (1 - c.band.Width) / float64(n-1)
	for i := range centers {
		centers[i] = -c.length/2 + w/2 + float64(i)*step
	}
	return centers
}

func (c *Cell) inVolume(p r3.Vec) bool {
	return c.axisDistance(p) <= c.outer()
}

func (c *Cell) inSurface(p r3.Vec) bool {
	d := c.axisDistance(p)
	return d <= c.outer() && d > c.inner()
}

func (c *Cell) inDisk(p r3.Vec) bool {
	lo, hi := c.diskSlab()
	return p.X > lo && p.X < hi && math.Hypot(p.Y, p.Z) <= c.outer()
}

func (c *Cell) nearestRing(x float64) (center float64, ok bool) {
	w := c.band.Width * c.length
	best := math.Inf(1)
	for _, x0 := range c.ringCenters() {
		if d := math.Abs(x - x0); d < best {
			best, center = d, x0
		}
	}
	return center, best < w/2
}

func (c *Cell) inRing(p r3.Vec) bool {
	if _, ok := c.nearestRing(p.X); !ok {
		return false
	}
	hr := math.Hypot(p.Y, p.Z)
	return hr >= c.inner() && hr <= c.outer()
}

func (c *Cell) InRegion(p r3.Vec, region Region) bool {
	switch region {
	case RegionSurface:
		return c.inSurface(p)
	case RegionDisk:
		return c.inDisk(p)
	case RegionRing:
		return c.inRing(p)
	}
	return c.inVolume(p)
}

func (c *Cell) Inside(p r3.Vec) bool {
	return c.InRegion(p, c.stype)
}

func (c *Cell) SurfaceDistance(p r3.Vec) float64 {
	return c.outer() - c.axisDistance(p)
}

type boundary struct {
	dist   float64
	normal r3.Vec
}

// Normal picks the closest boundary of the region the cell confines to.
// Shell regions have an inner wall whose outward normal points to the axis.
func (c *Cell) Normal(p r3.Vec) r3.Vec {
	var cands []boundary
	switch c.stype {
	case RegionVolume, RegionSurface:
		radial := r3.Sub(p, c.axisPoint(p))
		d := r3.Norm(radial)
		if d == 0 {
			return r3.Vec{}
		}
		n := r3.Scale(1/d, radial)
		cands = append(cands, boundary{math.Abs(c.outer() - d), n})
		if c.stype == RegionSurface {
			cands = append(cands, boundary{math.Abs(d - c.inner()), r3.Scale(-1, n)})
		}
	case RegionDisk, RegionRing:
		hr := math.Hypot(p.Y, p.Z)
		if hr > 0 {
			n := r3.Vec{Y: p.Y / hr, Z: p.Z / hr}
			cands = append(cands, boundary{math.Abs(c.outer() - hr), n})
			if c.stype == RegionRing {
				cands = append(cands, boundary{math.Abs(hr - c.inner()), r3.Scale(-1, n)})
			}
		}
		var lo, hi float64
		if c.stype == RegionDisk {
			lo, hi = c.diskSlab()
		} else {
			x0, _ := c.nearestRing(p.X)
			w := c.band.Width * c.length
			lo, hi = x0-w/2, x0+w/2
		}
		cands = append(cands,
			boundary{math.Abs(p.X - hi), r3.Vec{X: 1}},
			boundary{math.Abs(p.X - lo), r3.Vec{X: -1}},
		)
	}

	best := boundary{dist: math.Inf(1)}
	for _, b := range cands {
		if b.dist < best.dist {
			best = b
		}
	}
	if best.dist > normalTolerance*c.radius {
		return r3.Vec{}
	}
	return best.normal
}

func (c *Cell) RandomPosition(rng Rand, region Region) (r3.Vec, error) {
	return rejectionSample(rng, c.Bounds(), func(p r3.Vec) bool {
		return c.InRegion(p, region)
	})
}

func (c *Cell) Bounds() r3.Box {
	x := c.length/2 + c.radius
	r := c.radius
	return r3.Box{Min: r3.Vec{X: -x, Y: -r, Z: -r}, Max: r3.Vec{X: x, Y: r, Z: r}}
}

func (c *Cell) Volume() float64 {
	r, l := c.radius, c.length
	return 4.0/3.0*math.Pi*r*r*r + math.Pi*r*r*l
}

func (c *Cell) TypeVolume() float64 {
	r, l := c.radius, c.length
	d, w := c.band.Depth, c.band.Width
	switch c.stype {
	case RegionRing:
		return math.Pi * r * r * (2 - d) * d * w * l * float64(c.band.Count)
	case RegionDisk:
		return math.Pi * r * r * w * l
	case RegionSurface:
		return 4.0/3.0*math.Pi*r*r*r*d*(3-3*d+d*d) + math.Pi*r*r*l*(2-d)*d
	}
	return c.Volume()
}

func (c *Cell) SurfaceArea() float64 {
	r, l := c.radius, c.length
	d, w := c.band.Depth, c.band.Width
	switch c.stype {
	case RegionRing:
		return 4*math.Pi*r*r*(2*d-d*d) + 2*math.Pi*r*(2-d)*l*w
	case RegionDisk:
		return 2*math.Pi*r*r + 2*math.Pi*r*l*w
	case RegionSurface:
		return 4*math.Pi*r*r + 2*math.Pi*r*l +
			4*math.Pi*r*r*(1-d)*(1-d) + 2*math.Pi*r*(1-d)*l
	}
	return 4*math.Pi*r*r + 2*math.Pi*r*l
}

func (c *Cell) Region() Region          { return c.stype }
func (c *Cell) ParticleRadius() float64 { return c.pradius }
