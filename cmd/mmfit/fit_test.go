package main

import (
	"math"
	"slices"
	"testing"

	"github.com/pthm-cable/cellwalk/config"
	"github.com/pthm-cable/cellwalk/systems"
)

func TestFitMichaelisMentenRecoversConstants(t *testing.T) {
	const vmax, km = 12.0, 4.5
	var points []Point
	for _, s := range []float64{0.5, 1, 2, 5, 10, 20, 50, 100} {
		points = append(points, Point{Substrate: s, Rate: systems.MichaelisMentenRate(vmax, km, s)})
	}

	fit, err := FitMichaelisMenten(points)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(fit.Vmax-vmax) > 1e-3 || math.Abs(fit.Km-km) > 1e-3 {
		t.Errorf("fit = (Vmax %v, Km %v), want (%v, %v)", fit.Vmax, fit.Km, vmax, km)
	}
	if fit.SSE >= 1e-6 {
		t.Errorf("SSE = %v, want < 1e-6", fit.SSE)
	}
	if got := fit.Kcat(2); math.Abs(got-vmax/2) > 1e-3 {
		t.Errorf("Kcat(2) = %v, want %v", got, vmax/2)
	}
}

func TestFitMichaelisMentenRejectsDegenerateInput(t *testing.T) {
	if _, err := FitMichaelisMenten([]Point{{Substrate: 1, Rate: 1}}); err == nil {
		t.Error("fit accepted a single point")
	}
	if _, err := FitMichaelisMenten([]Point{{Substrate: 1}, {Substrate: 2}}); err == nil {
		t.Error("fit accepted all-zero rates")
	}
}

func TestParseConcentrations(t *testing.T) {
	got, err := parseConcentrations("1, 2.5,10")
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1, 2.5, 10}; !slices.Equal(got, want) {
		t.Errorf("parseConcentrations = %v, want %v", got, want)
	}

	for _, in := range []string{"1,x", "1,-2"} {
		if _, err := parseConcentrations(in); err == nil {
			t.Errorf("parseConcentrations(%q) accepted bad input", in)
		}
	}
}

func TestConfigureRun(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	sw := &sweep{enzyme: "Enzyme", iterations: 500}
	if err := sw.configure(cfg, 20, 42); err != nil {
		t.Fatal(err)
	}

	substrate := cfg.SpeciesByName("Substrate")
	if substrate.Count != 0 || substrate.Concentration != 20 {
		t.Errorf("substrate count/conc = %d/%v, want 0/20", substrate.Count, substrate.Concentration)
	}
	if cfg.Simulation.Seed != 42 || cfg.Simulation.Iterations != 500 {
		t.Errorf("seed/iterations = %d/%d, want 42/500", cfg.Simulation.Seed, cfg.Simulation.Iterations)
	}
	if cfg.Output.Dir != "" || cfg.Output.InfoCycle != 500 {
		t.Errorf("output dir/info = %q/%d, want \"\"/500", cfg.Output.Dir, cfg.Output.InfoCycle)
	}
}

func TestConfigureRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		enzyme string
		edit   func(*config.Config)
	}{
		{"unknown enzyme", "Kinase", func(*config.Config) {}},
		{"not reactive", "Substrate", func(*config.Config) {}},
		{"missing substrate", "Enzyme", func(c *config.Config) {
			c.Species = slices.DeleteFunc(c.Species, func(s config.SpeciesConfig) bool { return s.Name == "Substrate" })
		}},
		{"renamed substrate", "Enzyme", func(c *config.Config) {
			c.SpeciesByName("Enzyme").Reaction.Substrate = "ATP"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load("")
			if err != nil {
				t.Fatal(err)
			}
			tt.edit(cfg)
			sw := &sweep{enzyme: tt.enzyme, iterations: 10}
			if err := sw.configure(cfg, 1, 1); err == nil {
				t.Error("configure succeeded, want an error")
			}
		})
	}
}
