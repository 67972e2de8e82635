package components

import "gonum.org/v1/gonum/spatial/r3"

// Walker identifies one diffusing particle.
type Walker struct {
	ID    int     // sequential within its cloud
	PID   int     // cached partition id
	Age   float64 // simulated seconds
	Trace float64 // path length travelled, um
}

// Residence is the time left while a walker is bound to captured substrate.
// A walker with zero duration is free to move.
type Residence struct {
	Duration float64
}

// Bound reports whether the walker is attached.
func (r Residence) Bound() bool { return r.Duration > 0 }

// Hits counts wall and substrate collisions.
type Hits struct {
	Wall       int
	Substrate  int
	LastHitAge float64 // age at the last capture, 0 if none yet
	LastHitPos r3.Vec
}
