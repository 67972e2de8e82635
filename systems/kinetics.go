package systems

import (
	"math"

	"gonum.org/v1/gonum/unit/constant"
)

// Physical constants in SI units.
var (
	Avogadro  = float64(constant.Avogadro)
	Boltzmann = float64(constant.Boltzmann)
)

// micromolarScale converts count / (um^3 * N_A) to micromolar.
const micromolarScale = 1e-21

// Concentration returns the micromolar concentration of count particles in
// volume um^3.
func Concentration(count int, volume float64) float64 {
	if volume <= 0 {
		return 0
	}
	return float64(count) / (volume * Avogadro * micromolarScale)
}

// CountFor returns the number of particles giving concentration uM in
// volume um^3, truncated.
func CountFor(concentration, volume float64) int {
	return int(concentration * volume * Avogadro * micromolarScale)
}

// StokesEinstein returns the diffusion coefficient in um^2/s of a sphere of
// radius um at temperature K in a fluid of viscosity Pa*s.
func StokesEinstein(temperature, viscosity, radius float64) float64 {
	return Boltzmann * temperature * 1e18 / (6 * math.Pi * viscosity * radius)
}

// MeanFreePath returns the mean distance in um a walker with capture radius
// sight um travels between captures in a substrate bath of concentration uM.
func MeanFreePath(substrateConc, sight float64) float64 {
	csa := math.Pi * sight * sight
	return 1e21 / (Avogadro * substrateConc * csa)
}

// ThermalVelocity returns the mean thermal speed of a particle of mass kg.
func ThermalVelocity(temperature, mass float64) float64 {
	if mass <= 0 {
		return 0
	}
	return math.Sqrt(Boltzmann * temperature / mass)
}

// ReactionTime is the steady-state Michaelis-Menten turnover time
// (Cs + Ce + Km) / (Kcat * Cs).
func ReactionTime(substrateConc, enzymeConc, km, kcat float64) float64 {
	return (substrateConc + enzymeConc + km) / (kcat * substrateConc)
}

// MichaelisMentenRate returns v = Vmax*S / (Km + S).
func MichaelisMentenRate(vmax, km, s float64) float64 {
	return vmax * s / (km + s)
}

// CapturedConcentration is the concentration equivalent of count captures
// inside a walker of volume um^3.
func CapturedConcentration(count int, walkerVolume float64) float64 {
	return Concentration(count, walkerVolume)
}

// ClusterConcentration scales the focus concentration from the geometry
// volume down to one walker volume.
func ClusterConcentration(focus, geometryVolume, walkerVolume float64) float64 {
	return focus * geometryVolume / walkerVolume
}

// ClusterResidenceTime is (Km + S) / (Kcat * clusterConc) where S is the
// captured concentration.
func ClusterResidenceTime(km, kcat, capturedConc, clusterConc float64) float64 {
	return (km + capturedConc) / (kcat * clusterConc)
}

// WallPressure returns the wall pressure from wallHits collisions of
// particles of mass kg at speed m/s on area um^2 over age s.
func WallPressure(mass, speed float64, wallHits int, area, age float64) float64 {
	if area <= 0 || age <= 0 {
		return 0
	}
	return 1e14 * 2 * mass * speed * float64(wallHits) / (area * age)
}
