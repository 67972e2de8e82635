// Package geometry answers containment, normal, placement and
// boundary-crossing queries for the confining shapes walkers live in.
//
// All lengths are in micrometers. Every shape is eroded by the radius of the
// particles it confines, so a particle whose center is Inside never overlaps
// the wall.
package geometry

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrOutside is returned when a boundary query starts from a point that
	// is not inside the shape. It means the stepping invariant was broken.
	ErrOutside = errors.New("geometry: start point is outside the shape")

	// ErrPlacement is returned when rejection sampling cannot find a point
	// inside the requested region.
	ErrPlacement = errors.New("geometry: placement region is empty")
)

// Region names a placement region inside a shape.
type Region uint8

const (
	RegionVolume  Region = iota // whole eroded volume
	RegionSurface               // thin shell under the wall
	RegionDisk                  // slab across the x axis
	RegionRing                  // shell restricted to slabs across the x axis
)

func (r Region) String() string {
	switch r {
	case RegionVolume:
		return "volume"
	case RegionSurface:
		return "surface"
	case RegionDisk:
		return "disk"
	case RegionRing:
		return "ring"
	}
	return fmt.Sprintf("Region(%d)", uint8(r))
}

// ParseRegion accepts the region names used in configuration files. Matching
// is by prefix and case-insensitive, so "Vol", "surface" and "Ring" all work.
func ParseRegion(s string) (Region, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "", strings.HasPrefix(v, "vol"), v == "cell", v == "random":
		return RegionVolume, nil
	case strings.HasPrefix(v, "sur"):
		return RegionSurface, nil
	case strings.HasPrefix(v, "disk"):
		return RegionDisk, nil
	case strings.HasPrefix(v, "ring"):
		return RegionRing, nil
	}
	return RegionVolume, fmt.Errorf("unknown placement region %q", s)
}

// Rand is the uniform source shapes sample from.
type Rand interface {
	Float64() float64
}

// Shape is the capability set every confining geometry provides.
type Shape interface {
	// Inside reports whether p lies within the shape eroded by the
	// particle radius.
	Inside(p r3.Vec) bool
	// Normal returns the outward unit normal at a boundary point, or the
	// zero vector when p is not within tolerance of the eroded boundary.
	Normal(p r3.Vec) r3.Vec
	// InRegion reports whether p lies in the given placement region.
	InRegion(p r3.Vec, region Region) bool
	// RandomPosition draws a uniform point from a placement region.
	RandomPosition(rng Rand, region Region) (r3.Vec, error)
	// SurfaceDistance is the signed distance from p to the eroded outer
	// wall, positive inside.
	SurfaceDistance(p r3.Vec) float64

	Bounds() r3.Box
	Volume() float64
	TypeVolume() float64
	SurfaceArea() float64
	Region() Region
	ParticleRadius() float64
}

// Band describes the slab and shell used by the disk, ring and surface
// regions. Position and Width are fractions of the shape's x extent, Depth is
// a fraction of its characteristic radius.
type Band struct {
	Position float64
	Width    float64
	Depth    float64
	Count    int
}

// DefaultBand matches the defaults of the cell geometry.
func DefaultBand() Band {
	return Band{Position: 0, Width: 0.2, Depth: 0.1, Count: 1}
}

// maxPlacementAttempts bounds rejection sampling.
const maxPlacementAttempts = 1_000_000

// normalTolerance is the relative distance from the wall within which a
// normal is considered defined.
const normalTolerance = 1e-2

func sampleBox(rng Rand, b r3.Box) r3.Vec {
	return r3.Vec{
		X: b.Min.X + rng.Float64()*(b.Max.X-b.Min.X),
		Y: b.Min.Y + rng.Float64()*(b.Max.Y-b.Min.Y),
		Z: b.Min.Z + rng.Float64()*(b.Max.Z-b.Min.Z),
	}
}

// rejectionSample draws from box until accept holds.
func rejectionSample(rng Rand, box r3.Box, accept func(r3.Vec) bool) (r3.Vec, error) {
	for range maxPlacementAttempts {
		p := sampleBox(rng, box)
		if accept(p) {
			return p, nil
		}
	}
	return r3.Vec{}, ErrPlacement
}

// slab returns the x interval [lo, hi] of a band over the extent [min, max].
// Position is measured from the +x end, as in the cell geometry.
func (b Band) slab(min, max float64) (lo, hi float64) {
	extent := max - min
	hi = max - b.Position*extent
	lo = hi - b.Width*extent
	return lo, hi
}

func isZero(v r3.Vec) bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}
