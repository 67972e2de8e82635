package systems

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler is the random source the stepping engine consumes.
type Sampler interface {
	// Float64 returns a uniform sample in [0, 1).
	Float64() float64
	// Stable returns a symmetric alpha-stable sample with scale c.
	// alpha = 2 is Gaussian with standard deviation sqrt(2)*c and
	// alpha = 1 is Cauchy.
	Stable(c, alpha float64) float64
}

// RandomSource is a seeded Sampler backed by a PCG generator.
type RandomSource struct {
	rng    *rand.Rand
	angle  distuv.Uniform
	exp    distuv.Exponential
	normal distuv.Normal
}

// NewRandomSource creates a deterministic source for seed.
func NewRandomSource(seed uint64) *RandomSource {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &RandomSource{
		rng:    rand.New(src),
		angle:  distuv.Uniform{Min: -math.Pi / 2, Max: math.Pi / 2, Src: src},
		exp:    distuv.Exponential{Rate: 1, Src: src},
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

func (s *RandomSource) Float64() float64 { return s.rng.Float64() }

// Stable draws with the Chambers-Mallows-Stuck method.
func (s *RandomSource) Stable(c, alpha float64) float64 {
	if alpha == 2 {
		return c * math.Sqrt2 * s.normal.Rand()
	}

	u := s.angle.Rand()
	for u == s.angle.Min {
		u = s.angle.Rand()
	}
	if alpha == 1 {
		return c * math.Tan(u)
	}

	v := s.exp.Rand()
	for v == 0 {
		v = s.exp.Rand()
	}
	t := math.Sin(alpha*u) / math.Pow(math.Cos(u), 1/alpha)
	w := math.Pow(math.Cos((1-alpha)*u)/v, (1-alpha)/alpha)
	return c * t * w
}

// Step draws a displacement for diffusion coefficient d over time dt, one
// independent stable sample per axis scaled by sqrt(d*dt).
func Step(s Sampler, d, dt, alpha float64) r3.Vec {
	scale := math.Sqrt(d * dt)
	return r3.Vec{
		X: scale * s.Stable(1, alpha),
		Y: scale * s.Stable(1, alpha),
		Z: scale * s.Stable(1, alpha),
	}
}
