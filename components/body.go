package components

import "math"

// Body holds the physical properties of a walker.
type Body struct {
	Radius float64 // um
	Volume float64 // um^3
	Mass   float64 // kg
}

// NewBody returns a spherical body of radius um and density g/cm^3.
func NewBody(radius, density float64) Body {
	volume := 4.0 / 3.0 * math.Pi * radius * radius * radius
	return Body{
		Radius: radius,
		Volume: volume,
		Mass:   volume * density * 1e-15,
	}
}
