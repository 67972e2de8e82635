package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// NoCrossing is returned by TimeToSurface when the step stays inside.
const NoCrossing = 2.0

// bisectionSteps gives a precision of 1/1024 of the step length.
const bisectionSteps = 10

// MaxReflections bounds the re-solves Reflect performs near corners.
const MaxReflections = 3

// TimeToSurface returns the fraction t of the step dr at which a walker
// starting at p reaches the wall. p+t*dr is always inside and within 1/1024
// of the step length from the crossing. NoCrossing is returned when p+dr is
// inside, and ErrOutside when p itself is not.
func TimeToSurface(s Shape, p, dr r3.Vec) (float64, error) {
	if !s.Inside(p) {
		return 0, ErrOutside
	}
	if s.Inside(r3.Add(p, dr)) {
		return NoCrossing, nil
	}
	lo, hi := 0.0, 1.0
	for range bisectionSteps {
		mid := 0.5 * (lo + hi)
		if s.Inside(r3.Add(p, r3.Scale(mid, dr))) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// Reflection is the outcome of resolving a step against the wall.
type Reflection struct {
	Step      r3.Vec // displacement to apply from the start point
	Contact   float64
	Retries   int  // re-solves needed after the first reflection
	Clamped   bool // the result was cut short at a contact point
	Reflected bool // the original step left the shape
}

// Reflect returns the displacement that replaces dr once the walker at p hits
// the wall at fraction t. The remainder of the step after contact is mirrored
// about the outward normal. A mirrored step that still leaves the shape is
// re-solved against the new crossing, at most MaxReflections times; after
// that the walker stops at the last contact point.
func Reflect(s Shape, p, dr r3.Vec, t float64) (Reflection, error) {
	if s.Inside(r3.Add(p, dr)) {
		return Reflection{Step: dr, Contact: NoCrossing}, nil
	}
	res := Reflection{Contact: t, Reflected: true}
	for i := range MaxReflections {
		res.Retries = i
		n := s.Normal(r3.Add(p, r3.Scale(t, dr)))
		if isZero(n) {
			res.Step, res.Clamped = r3.Scale(t, dr), true
			return res, nil
		}

		dn := r3.Dot(dr, n)
		next := r3.Sub(dr, r3.Scale(2*(1-t)*dn, n))
		if isZero(next) {
			res.Step, res.Clamped = r3.Scale(t, dr), true
			return res, nil
		}
		// Not moving out through this face: the crossing belongs to another
		// wall. Walk the remaining length back in along the normal.
		if dn < 1e-7 {
			next = r3.Sub(r3.Scale(t, dr), r3.Scale((1-t)*r3.Norm(dr), n))
		}

		if s.Inside(r3.Add(p, next)) {
			res.Step = next
			return res, nil
		}

		var err error
		dr = next
		if t, err = TimeToSurface(s, p, dr); err != nil {
			return res, err
		}
	}
	res.Step, res.Clamped = r3.Scale(t, dr), true
	return res, nil
}
