package main

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/cellwalk/systems"
)

// Point is one measured production rate at a substrate concentration.
type Point struct {
	Substrate float64 `csv:"substrate_conc"` // uM
	Rate      float64 `csv:"rate"`           // uM/s
	RateStd   float64 `csv:"rate_std"`
	Runs      int     `csv:"runs"`
}

// Fit is a Michaelis-Menten curve.
type Fit struct {
	Vmax float64 `csv:"vmax"` // uM/s
	Km   float64 `csv:"km"`   // uM
	SSE  float64 `csv:"sse"`
	Iter int     `csv:"evaluations"`
}

// Kcat returns Vmax divided by the enzyme concentration.
func (f Fit) Kcat(enzymeConc float64) float64 {
	if enzymeConc <= 0 {
		return 0
	}
	return f.Vmax / enzymeConc
}

// FitMichaelisMenten fits v = Vmax*S/(Km+S) to points by least squares.
// Both constants are searched in log space so they stay positive.
func FitMichaelisMenten(points []Point) (Fit, error) {
	if len(points) < 2 {
		return Fit{}, errors.New("need at least two points to fit")
	}

	// Initial guess: the largest rate and the concentration nearest half of it
	var vmax, km float64
	for _, p := range points {
		vmax = max(vmax, p.Rate)
	}
	if vmax <= 0 {
		return Fit{}, errors.New("no positive rates to fit")
	}
	best := math.Inf(1)
	for _, p := range points {
		if d := math.Abs(p.Rate - vmax/2); d < best && p.Substrate > 0 {
			best, km = d, p.Substrate
		}
	}
	if km <= 0 {
		km = 1
	}

	sse := func(x []float64) float64 {
		v, k := math.Exp(x[0]), math.Exp(x[1])
		var sum float64
		for _, p := range points {
			r := p.Rate - systems.MichaelisMentenRate(v, k, p.Substrate)
			sum += r * r
		}
		return sum
	}

	problem := optimize.Problem{Func: sse}
	settings := &optimize.Settings{
		FuncEvaluations: 5000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Iterations: 200,
		},
	}
	result, err := optimize.Minimize(problem, []float64{math.Log(vmax), math.Log(km)}, settings, &optimize.NelderMead{})
	if err != nil {
		return Fit{}, err
	}

	return Fit{
		Vmax: math.Exp(result.X[0]),
		Km:   math.Exp(result.X[1]),
		SSE:  result.F,
		Iter: result.Stats.FuncEvaluations,
	}, nil
}
