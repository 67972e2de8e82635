// Package main sweeps substrate concentrations, measures the enzyme
// production rate at each and fits Michaelis-Menten constants to the curve.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/cellwalk/config"
	"github.com/pthm-cable/cellwalk/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config file (empty = use defaults)")
	enzymeName := flag.String("enzyme", "Enzyme", "Reactive species whose rate is measured")
	concList := flag.String("concentrations", "1,2,5,10,20,50,100", "Comma separated substrate concentrations in uM")
	iterations := flag.Int("iterations", 2000, "Steps per run")
	seeds := flag.Int("seeds", 3, "Runs per concentration")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	concentrations, err := parseConcentrations(*concList)
	if err != nil {
		log.Fatalf("bad --concentrations: %v", err)
	}

	sw := &sweep{
		configPath: *configPath,
		enzyme:     *enzymeName,
		iterations: *iterations,
		seeds:      *seeds,
	}

	start := time.Now()
	var points []Point
	for i, conc := range concentrations {
		p, err := sw.measure(conc)
		if err != nil {
			log.Fatalf("substrate %g uM: %v", conc, err)
		}
		points = append(points, p)
		fmt.Printf("Point %d/%d: S=%g uM rate=%.4g +/- %.2g uM/s | elapsed: %s\n",
			i+1, len(concentrations), conc, p.Rate, p.RateStd, time.Since(start).Round(time.Second))
	}

	if err := writeCSV(filepath.Join(*outputDir, "mm_points.csv"), points); err != nil {
		log.Fatalf("failed to write points: %v", err)
	}

	fit, err := FitMichaelisMenten(points)
	if err != nil {
		log.Fatalf("fit failed: %v", err)
	}
	if err := writeCSV(filepath.Join(*outputDir, "mm_fit.csv"), []Fit{fit}); err != nil {
		log.Fatalf("failed to write fit: %v", err)
	}

	fmt.Printf("\nFit after %d evaluations: Vmax=%.4g uM/s Km=%.4g uM (sse %.3g)\n", fit.Iter, fit.Vmax, fit.Km, fit.SSE)
	if ce := sw.enzymeConc; ce > 0 {
		fmt.Printf("Kcat=%.4g 1/s at enzyme concentration %.4g uM\n", fit.Kcat(ce), ce)
	}
}

func parseConcentrations(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("concentration must be positive, got %g", v)
		}
		out = append(out, v)
	}
	return out, nil
}

// sweep runs the simulation at one substrate concentration per call.
type sweep struct {
	configPath string
	enzyme     string
	iterations int
	seeds      int

	mu         sync.Mutex
	enzymeConc float64
}

// measure runs every seed in parallel and averages the production rates.
func (sw *sweep) measure(conc float64) (Point, error) {
	rates := make([]float64, sw.seeds)
	errs := make([]error, sw.seeds)
	var wg sync.WaitGroup

	for i := range sw.seeds {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			rates[idx], errs[idx] = sw.run(conc, uint64(idx*1000+42))
		}(i)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return Point{}, err
	}
	mean, std := stat.MeanStdDev(rates, nil)
	if len(rates) < 2 {
		std = 0
	}
	return Point{Substrate: conc, Rate: mean, RateStd: std, Runs: len(rates)}, nil
}

func (sw *sweep) run(conc float64, seed uint64) (float64, error) {
	// A fresh config per run keeps the goroutines independent.
	cfg, err := config.LoadFile(sw.configPath)
	if err != nil {
		return 0, err
	}
	if err := sw.configure(cfg, conc, seed); err != nil {
		return 0, err
	}

	s, err := sim.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return 0, err
	}
	defer s.Close()
	if err := s.Run(context.Background()); err != nil {
		return 0, err
	}

	c := s.Cloud(sw.enzyme)
	sw.mu.Lock()
	sw.enzymeConc = c.Concentration()
	sw.mu.Unlock()
	return c.Reactive().Collector().Rate(c.Time()), nil
}

// configure sets cfg up for one run of the sweep at substrate
// concentration conc.
func (sw *sweep) configure(cfg *config.Config, conc float64, seed uint64) error {
	enzyme := cfg.SpeciesByName(sw.enzyme)
	if enzyme == nil || !enzyme.Reactive() {
		return fmt.Errorf("species %q is not reactive", sw.enzyme)
	}
	substrate := cfg.SpeciesByName(enzyme.Reaction.Substrate)
	if substrate == nil {
		return fmt.Errorf("species %q: unknown substrate %q", sw.enzyme, enzyme.Reaction.Substrate)
	}
	substrate.Count = 0
	substrate.Concentration = conc

	cfg.Simulation.Seed = seed
	cfg.Simulation.Iterations = sw.iterations
	cfg.Output.Dir = ""
	cfg.Output.InfoCycle = max(sw.iterations, 1)
	return nil
}

func writeCSV(path string, records any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(records, f)
}
