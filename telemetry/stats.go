package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics is one report of a reactive cloud.
type Metrics struct {
	Time    float64 `csv:"time"`
	Species string  `csv:"species"`

	FocusConcentration     float64 `csv:"focus_conc"`
	Radius                 float64 `csv:"radius"`
	SubstrateConcentration float64 `csv:"substrate_conc"`

	// Product accounting
	TotalProduct         int     `csv:"total_product"`
	ProductConcentration float64 `csv:"product_conc"`
	Rate                 float64 `csv:"rate"`
	WindowRate           float64 `csv:"window_rate"`

	// Wall collisions
	WallHits int     `csv:"wall_hits"`
	Pressure float64 `csv:"pressure"`

	// Free paths between captures
	MeanFreeTime    float64 `csv:"mean_free_time"`
	FreeTimeP50     float64 `csv:"free_time_p50"`
	FreeTimeP90     float64 `csv:"free_time_p90"`
	MeanFreeLength  float64 `csv:"mean_free_length"`
	FreePathSamples int     `csv:"free_path_samples"`

	Bound   int    `csv:"bound"`
	Walkers int    `csv:"walkers"`
	RunID   string `csv:"run_id"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summarize returns the mean and the 50th and 90th percentiles of values.
func Summarize(values []float64) (mean, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return mean, Percentile(sorted, 0.5), Percentile(sorted, 0.9)
}

// AverageRate is the slope of the line from the origin to the last sample of
// a cumulative series observed at time age.
func AverageRate(series []float64, age float64) float64 {
	if len(series) == 0 || age <= 0 {
		return 0
	}
	return series[len(series)-1] / age
}

// WindowRate fits a line through the last window samples of a series taken
// every dt and returns its slope. It returns 0 until the series is longer
// than the window.
func WindowRate(series []float64, window int, dt float64) float64 {
	if window < 2 || len(series) <= window || dt <= 0 {
		return 0
	}
	tail := series[len(series)-window:]
	x := make([]float64, window)
	floats.Span(x, 0, float64(window-1)*dt)
	_, slope := stat.LinearRegression(x, tail, nil, false)
	if math.IsNaN(slope) {
		return 0
	}
	return slope
}

// LogValue implements slog.LogValuer for structured logging.
func (m Metrics) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("time", m.Time),
		slog.String("species", m.Species),
		slog.Float64("focus_conc", m.FocusConcentration),
		slog.Float64("substrate_conc", m.SubstrateConcentration),
		slog.Int("total_product", m.TotalProduct),
		slog.Float64("product_conc", m.ProductConcentration),
		slog.Float64("rate", m.Rate),
		slog.Float64("window_rate", m.WindowRate),
		slog.Int("wall_hits", m.WallHits),
		slog.Float64("pressure", m.Pressure),
		slog.Float64("mean_free_time", m.MeanFreeTime),
		slog.Float64("mean_free_length", m.MeanFreeLength),
		slog.Int("free_path_samples", m.FreePathSamples),
		slog.Int("bound", m.Bound),
		slog.Int("walkers", m.Walkers),
	)
}

// LogStats logs the metrics using slog.
func (m Metrics) LogStats(logger *slog.Logger) {
	logger.Info("metrics", "cloud", m)
}
