package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis-aligned box centered on the origin with the given full
// dimensions along x, y and z.
type Box struct {
	size    r3.Vec
	pradius float64
	region  Region
	band    Band
}

// NewBox builds a box of the given width, length and depth.
func NewBox(size r3.Vec, pradius float64, region Region, band Band) (*Box, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("box dimensions must be positive, got %v", size)
	}
	if pradius < 0 || 2*pradius >= math.Min(size.X, math.Min(size.Y, size.Z)) {
		return nil, fmt.Errorf("particle radius %g does not fit box %v", pradius, size)
	}
	return &Box{size: size, pradius: pradius, region: region, band: band}, nil
}

func (b *Box) Size() r3.Vec { return b.size }

func (b *Box) half() r3.Vec { return r3.Scale(0.5, b.size) }

// eroded returns the half extents reduced by the particle radius.
func (b *Box) eroded() r3.Vec {
	h := b.half()
	return r3.Vec{X: h.X - b.pradius, Y: h.Y - b.pradius, Z: h.Z - b.pradius}
}

func (b *Box) minHalf() float64 {
	h := b.half()
	return math.Min(h.X, math.Min(h.Y, h.Z))
}

func (b *Box) Inside(p r3.Vec) bool {
	e := b.eroded()
	return math.Abs(p.X) <= e.X && math.Abs(p.Y) <= e.Y && math.Abs(p.Z) <= e.Z
}

func (b *Box) SurfaceDistance(p r3.Vec) float64 {
	e := b.eroded()
	return math.Min(e.X-math.Abs(p.X), math.Min(e.Y-math.Abs(p.Y), e.Z-math.Abs(p.Z)))
}

// Normal combines the face normals of every face p is close to, so corner
// and edge points get a diagonal normal.
func (b *Box) Normal(p r3.Vec) r3.Vec {
	e := b.eroded()
	tol := normalTolerance * b.minHalf()
	var n r3.Vec
	if math.Abs(e.X-math.Abs(p.X)) <= tol {
		n.X = math.Copysign(1, p.X)
	}
	if math.Abs(e.Y-math.Abs(p.Y)) <= tol {
		n.Y = math.Copysign(1, p.Y)
	}
	if math.Abs(e.Z-math.Abs(p.Z)) <= tol {
		n.Z = math.Copysign(1, p.Z)
	}
	if isZero(n) {
		return n
	}
	return r3.Unit(n)
}

func (b *Box) InRegion(p r3.Vec, region Region) bool {
	if !b.Inside(p) {
		return false
	}
	h := b.half()
	lo, hi := b.band.slab(-h.X, h.X)
	shell := b.SurfaceDistance(p) <= b.band.Depth*b.minHalf()
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

func (b *Box) RandomPosition(rng Rand, region Region) (r3.Vec, error) {
	return rejectionSample(rng, b.Bounds(), func(p r3.Vec) bool {
		return b.InRegion(p, region)
	})
}

func (b *Box) Bounds() r3.Box {
	h := b.half()
	return r3.Box{Min: r3.Scale(-1, h), Max: h}
}

func (b *Box) Volume() float64 {
	return b.size.X * b.size.Y * b.size.Z
}

func (b *Box) TypeVolume() float64 {
	h := b.half()
	d := b.band.Depth * b.minHalf()
	inner := r3.Vec{X: b.size.X - 2*d, Y: b.size.Y - 2*d, Z: b.size.Z - 2*d}
	lo, hi := b.band.slab(-h.X, h.X)
	switch b.region {
	case RegionSurface:
		return b.Volume() - inner.X*inner.Y*inner.Z
	case RegionDisk:
		return overlap(lo, hi, -h.X, h.X) * b.size.Y * b.size.Z
	case RegionRing:
		outer := overlap(lo, hi, -h.X, h.X) * b.size.Y * b.size.Z
		core := overlap(lo, hi, -inner.X/2, inner.X/2) * inner.Y * inner.Z
		return outer - core
	}
	return b.Volume()
}

func (b *Box) SurfaceArea() float64 {
	s := b.size
	return 2 * (s.X*s.Y + s.Y*s.Z + s.Z*s.X)
}

func (b *Box) Region() Region          { return b.region }
func (b *Box) ParticleRadius() float64 { return b.pradius }

// overlap is the length of the intersection of [a0, a1] and [b0, b1].
func overlap(a0, a1, b0, b1 float64) float64 {
	return math.Max(0, math.Min(a1, b1)-math.Max(a0, b0))
}
