package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/gcfg.v1"
)

// ExampleParFile documents the parameter file format.
const ExampleParFile = `[Simulation]
# Macro-step in seconds and number of steps.
Dt = 0.0001
Iterations = 1000
# Seed = 42

[Output]
Dir = out
Base = enzyme
SaveTrace = Yes
SaveCycle = 10
InfoCycle = 100
WriteCount = No

# One subsection per species. Unset keys keep the species defaults.
[Species "Enzyme"]
Shape = Cell
Radius = 0.5
Length = 3.0
D = 1.0
Count = 10
SubstrateOn = Yes
Substrate = Substrate
Sight = 5

[Species "Substrate"]
Shape = Cell
Radius = 0.5
Length = 3.0
Region = ring
D = 0
Concentration = 100
Injection = ring
`

// parFile mirrors the sections of a parameter file. Values stay strings so
// that unset keys can be told apart from zeros.
type parFile struct {
	Simulation struct {
		Dt, Iterations, Seed, RunID string
	}
	Output struct {
		Dir, Base                                         string
		SaveTrace, SaveCycle, InfoCycle, WriteCount, Perf string
	}
	Species map[string]*parSpecies
}

type parSpecies struct {
	Shape, Radius, Size, Length, Region   string
	BandPosition, BandWidth, Depth, Rings string

	// Particle is the walker radius in nm, Radius the shape's.
	D, Alpha, Temperature, Viscosity, Particle string
	Density, Count, Concentration, Injection   string
	Fixed, Snapshot, SaveSnapshot              string

	SubstrateOn, Substrate, ReactionOn, Constant string
	Sight, Km, Kcat, Focus, RateWindow           string
}

// LoadPar reads a parameter file on top of the embedded defaults.
func LoadPar(path string) (*Config, error) {
	var pf parFile
	if err := gcfg.ReadFileInto(&pf, path); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrConfig, path, err)
	}
	return fromPar(&pf)
}

// ParsePar reads parameter file text on top of the embedded defaults.
func ParsePar(text string) (*Config, error) {
	var pf parFile
	if err := gcfg.ReadStringInto(&pf, text); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return fromPar(&pf)
}

func fromPar(pf *parFile) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}
	p := parser{}

	sim := pf.Simulation
	p.setFloat(&cfg.Simulation.Dt, "dt", sim.Dt)
	p.setInt(&cfg.Simulation.Iterations, "iterations", sim.Iterations)
	p.setUint(&cfg.Simulation.Seed, "seed", sim.Seed)
	p.setString(&cfg.Simulation.RunID, sim.RunID)

	out := pf.Output
	p.setString(&cfg.Output.Dir, out.Dir)
	p.setString(&cfg.Output.Base, out.Base)
	p.setBool(&cfg.Output.SaveTrace, "savetrace", out.SaveTrace)
	p.setInt(&cfg.Output.SaveCycle, "savecycle", out.SaveCycle)
	p.setInt(&cfg.Output.InfoCycle, "infocycle", out.InfoCycle)
	p.setBool(&cfg.Output.WriteCount, "writecount", out.WriteCount)
	p.setBool(&cfg.Output.PerfLog, "perf", out.Perf)

	if len(pf.Species) > 0 {
		// gcfg subsections come back as a map; keep a stable order.
		names := make([]string, 0, len(pf.Species))
		for name := range pf.Species {
			names = append(names, name)
		}
		sort.Strings(names)

		cfg.Species = nil
		for _, name := range names {
			sc := cfg.SpeciesDefaults.clone()
			sc.Name = name
			p.species(&sc, pf.Species[name])
			cfg.Species = append(cfg.Species, sc)
		}
		cfg.rawSpecies = nil
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parser collects the first conversion error.
type parser struct {
	prefix string
	err    error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s%s = %q: %w", ErrConfig, p.prefix, key, value, err)
	}
}

func (p *parser) setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func (p *parser) setFloat(dst *float64, key, value string) {
	if value == "" {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		p.fail(key, value, err)
		return
	}
	*dst = v
}

func (p *parser) setInt(dst *int, key, value string) {
	if value == "" {
		return
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		p.fail(key, value, err)
		return
	}
	*dst = v
}

func (p *parser) setUint(dst *uint64, key, value string) {
	if value == "" {
		return
	}
	v, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		p.fail(key, value, err)
		return
	}
	*dst = v
}

func (p *parser) setBool(dst *bool, key, value string) {
	if value == "" {
		return
	}
	v, err := ParseBool(value)
	if err != nil {
		p.fail(key, value, err)
		return
	}
	*dst = v
}

func (p *parser) setVec(dst *Vec3, key, value string) {
	if value == "" {
		return
	}
	v, err := ParseVec3(value)
	if err != nil {
		p.fail(key, value, err)
		return
	}
	*dst = v
}

func (p *parser) species(sc *SpeciesConfig, ps *parSpecies) {
	p.prefix = sc.Name + "."
	defer func() { p.prefix = "" }()

	g := &sc.Geometry
	p.setString(&g.Shape, strings.ToLower(ps.Shape))
	p.setFloat(&g.Radius, "radius", ps.Radius)
	p.setVec(&g.Size, "size", ps.Size)
	p.setFloat(&g.Length, "length", ps.Length)
	p.setString(&g.Region, ps.Region)
	p.setFloat(&g.BandPosition, "bandposition", ps.BandPosition)
	p.setFloat(&g.BandWidth, "bandwidth", ps.BandWidth)
	p.setFloat(&g.Depth, "depth", ps.Depth)
	p.setInt(&g.Rings, "rings", ps.Rings)

	if ps.D != "" {
		var d float64
		p.setFloat(&d, "d", ps.D)
		sc.D = &d
	}
	p.setFloat(&sc.Alpha, "alpha", ps.Alpha)
	p.setFloat(&sc.Temperature, "temperature", ps.Temperature)
	p.setFloat(&sc.Viscosity, "viscosity", ps.Viscosity)
	p.setFloat(&sc.Radius, "particle", ps.Particle)
	p.setFloat(&sc.Density, "density", ps.Density)
	p.setInt(&sc.Count, "count", ps.Count)
	p.setFloat(&sc.Concentration, "concentration", ps.Concentration)
	p.setString(&sc.Injection, ps.Injection)
	p.setVec(&sc.Fixed, "fixed", ps.Fixed)
	p.setString(&sc.Snapshot, ps.Snapshot)
	p.setString(&sc.SaveSnapshot, ps.SaveSnapshot)

	r := &sc.Reaction
	p.setBool(&r.SubstrateOn, "substrateon", ps.SubstrateOn)
	p.setString(&r.Substrate, ps.Substrate)
	p.setBool(&r.ReactionOn, "reactionon", ps.ReactionOn)
	p.setBool(&r.Constant, "constant", ps.Constant)
	p.setFloat(&r.Sight, "sight", ps.Sight)
	p.setFloat(&r.Km, "km", ps.Km)
	p.setFloat(&r.Kcat, "kcat", ps.Kcat)
	p.setFloat(&r.Focus, "focus", ps.Focus)
	p.setInt(&r.RateWindow, "ratewindow", ps.RateWindow)
}

// ParseBool accepts yes/no, on/off and everything strconv.ParseBool does,
// in any case.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on", "y":
		return true, nil
	case "no", "off", "n":
		return false, nil
	}
	return strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
}
