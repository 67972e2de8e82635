package components

import "gonum.org/v1/gonum/spatial/r3"

// Position holds a walker's center in micrometers and where it was before
// its last move.
type Position struct {
	Vec  r3.Vec
	Prev r3.Vec
}

// Step moves the walker by dr and returns the distance travelled.
func (p *Position) Step(dr r3.Vec) float64 {
	p.Prev = p.Vec
	p.Vec = r3.Add(p.Vec, dr)
	return r3.Norm(dr)
}
