package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sphere is a ball of the given radius centered on the origin.
type Sphere struct {
	radius  float64
	pradius float64
	region  Region
	band    Band
}

// NewSphere builds a sphere confining particles of radius pradius.
func NewSphere(radius, pradius float64, region Region, band Band) (*Sphere, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("sphere radius must be positive, got %g", radius)
	}
	if pradius < 0 || pradius >= radius {
		return nil, fmt.Errorf("particle radius %g does not fit a sphere of radius %g", pradius, radius)
	}
	return &Sphere{radius: radius, pradius: pradius, region: region, band: band}, nil
}

func (s *Sphere) Radius() float64 { return s.radius }

func (s *Sphere) eroded() float64 { return s.radius - s.pradius }

func (s *Sphere) Inside(p r3.Vec) bool {
	return r3.Norm(p) < s.eroded()
}

func (s *Sphere) SurfaceDistance(p r3.Vec) float64 {
	return s.eroded() - r3.Norm(p)
}

func (s *Sphere) Normal(p r3.Vec) r3.Vec {
	d := r3.Norm(p)
	if d == 0 || math.Abs(s.eroded()-d) > normalTolerance*s.eroded() {
		return r3.Vec{}
	}
	return r3.Scale(1/d, p)
}

func (s *Sphere) InRegion(p r3.Vec, region Region) bool {
	if !s.Inside(p) {
		return false
	}
	lo, hi := s.band.slab(-s.radius, s.radius)
	shell := s.SurfaceDistance(p) <= s.band.Depth*s.radius
	switch region {
	case RegionSurface:
		return shell
	case RegionDisk:
		return p.X > lo && p.X < hi
	case RegionRing:
		return shell && p.X > lo && p.X < hi
	}
	return true
}

func (s *Sphere) RandomPosition(rng Rand, region Region) (r3.Vec, error) {
	return rejectionSample(rng, s.Bounds(), func(p r3.Vec) bool {
		return s.InRegion(p, region)
	})
}

func (s *Sphere) Bounds() r3.Box {
	r := s.radius
	return r3.Box{Min: r3.Vec{X: -r, Y: -r, Z: -r}, Max: r3.Vec{X: r, Y: r, Z: r}}
}

func (s *Sphere) Volume() float64 {
	return 4.0 / 3.0 * math.Pi * s.radius * s.radius * s.radius
}

func (s *Sphere) TypeVolume() float64 {
	r := s.radius
	ri := r * (1 - s.band.Depth)
	lo, hi := s.band.slab(-r, r)
	switch s.region {
	case RegionSurface:
		return 4.0 / 3.0 * math.Pi * (r*r*r - ri*ri*ri)
	case RegionDisk:
		return ballSlab(r, lo, hi)
	case RegionRing:
		return ballSlab(r, lo, hi) - ballSlab(ri, lo, hi)
	}
	return s.Volume()
}

func (s *Sphere) SurfaceArea() float64 {
	return 4 * math.Pi * s.radius * s.radius
}

func (s *Sphere) Region() Region          { return s.region }
func (s *Sphere) ParticleRadius() float64 { return s.pradius }

// ballSlab is the volume of a ball of radius r between the planes x=lo and
// x=hi.
func ballSlab(r, lo, hi float64) float64 {
	lo = math.Max(lo, -r)
	hi = math.Min(hi, r)
	if hi <= lo {
		return 0
	}
	f := func(x float64) float64 { return r*r*x - x*x*x/3 }
	return math.Pi * (f(hi) - f(lo))
}
