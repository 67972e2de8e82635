package telemetry

// DefaultRateWindow is the number of steps the windowed product rate spans.
const DefaultRateWindow = 200

// Collector accumulates the capture history of a reactive cloud: the
// product concentration after every step and the free time and length
// between successive captures of the same walker.
type Collector struct {
	dt     float64
	window int

	product     []float64
	freeTimes   []float64
	freeLengths []float64
}

// NewCollector creates a collector for a cloud stepping every dt seconds.
// window is the number of steps used for the windowed rate.
func NewCollector(dt float64, window int) *Collector {
	if window < 2 {
		window = DefaultRateWindow
	}
	return &Collector{dt: dt, window: window}
}

// RecordProduct appends one product concentration sample.
func (c *Collector) RecordProduct(conc float64) {
	c.product = append(c.product, conc)
}

// RecordFreePath records the time and distance between two captures.
func (c *Collector) RecordFreePath(time, length float64) {
	c.freeTimes = append(c.freeTimes, time)
	c.freeLengths = append(c.freeLengths, length)
}

// Product returns the product concentration series.
func (c *Collector) Product() []float64 { return c.product }

// LatestProduct returns the last product sample, or 0.
func (c *Collector) LatestProduct() float64 {
	if len(c.product) == 0 {
		return 0
	}
	return c.product[len(c.product)-1]
}

// Rate is the average production rate after age seconds.
func (c *Collector) Rate(age float64) float64 {
	return AverageRate(c.product, age)
}

// WindowRate is the production rate over the trailing window.
func (c *Collector) WindowRate() float64 {
	return WindowRate(c.product, c.window, c.dt)
}

// FreePaths returns the number of free path samples and their means.
func (c *Collector) FreePaths() (n int, meanTime, meanLength float64) {
	meanTime, _, _ = Summarize(c.freeTimes)
	meanLength, _, _ = Summarize(c.freeLengths)
	return len(c.freeTimes), meanTime, meanLength
}

// Fill copies the collected statistics into m.
func (c *Collector) Fill(m *Metrics, age float64) {
	m.ProductConcentration = c.LatestProduct()
	m.Rate = c.Rate(age)
	m.WindowRate = c.WindowRate()
	m.MeanFreeTime, m.FreeTimeP50, m.FreeTimeP90 = Summarize(c.freeTimes)
	m.MeanFreeLength, _, _ = Summarize(c.freeLengths)
	m.FreePathSamples = len(c.freeTimes)
}
