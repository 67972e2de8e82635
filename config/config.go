// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/cellwalk/systems"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrConfig marks every configuration error.
var ErrConfig = errors.New("config")

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation      SimulationConfig `yaml:"simulation"`
	Output          OutputConfig     `yaml:"output"`
	SpeciesDefaults SpeciesConfig    `yaml:"species_defaults"`
	Species         []SpeciesConfig  `yaml:"species"`

	// species entries of the last file that listed any, resolved against
	// SpeciesDefaults once every file is read
	rawSpecies []yaml.Node
}

// SimulationConfig holds the run loop parameters.
type SimulationConfig struct {
	Dt         float64 `yaml:"dt"`
	Iterations int     `yaml:"iterations"`
	Seed       uint64  `yaml:"seed"`
	RunID      string  `yaml:"run_id"`
}

// OutputConfig holds file output parameters.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	Base       string `yaml:"base"`
	SaveTrace  bool   `yaml:"save_trace"`
	SaveCycle  int    `yaml:"save_cycle"`
	InfoCycle  int    `yaml:"info_cycle"`
	WriteCount bool   `yaml:"write_count"`
	PerfLog    bool   `yaml:"perf_log"`
}

// SpeciesConfig describes one cloud.
type SpeciesConfig struct {
	Name     string         `yaml:"name"`
	Geometry GeometryConfig `yaml:"geometry"`

	// D is the diffusion coefficient in um^2/s. Nil derives it from
	// Stokes-Einstein.
	D           *float64 `yaml:"d,omitempty"`
	Alpha       float64  `yaml:"alpha"`
	Temperature float64  `yaml:"temperature"` // K
	Viscosity   float64  `yaml:"viscosity"`   // Pa*s
	Radius      float64  `yaml:"radius"`      // nm
	Density     float64  `yaml:"density"`     // g/cm^3

	Count         int     `yaml:"count"`
	Concentration float64 `yaml:"concentration"` // uM
	Injection     string  `yaml:"injection"`
	Fixed         Vec3    `yaml:"fixed"`
	Snapshot      string  `yaml:"snapshot,omitempty"`      // positions file for snapshot injection
	SaveSnapshot  string  `yaml:"save_snapshot,omitempty"` // write positions here after injection

	Reaction ReactionConfig `yaml:"reaction"`
}

// GeometryConfig selects and sizes the confining shape.
type GeometryConfig struct {
	Shape        string  `yaml:"shape"`
	Radius       float64 `yaml:"radius"`
	Size         Vec3    `yaml:"size"`
	Length       float64 `yaml:"length"`
	Region       string  `yaml:"region"`
	BandPosition float64 `yaml:"band_position"`
	BandWidth    float64 `yaml:"band_width"`
	Depth        float64 `yaml:"depth"`
	Rings        int     `yaml:"rings"`
}

// ReactionConfig holds the capture and kinetics parameters.
type ReactionConfig struct {
	SubstrateOn bool    `yaml:"substrate_on"`
	Substrate   string  `yaml:"substrate"`
	ReactionOn  bool    `yaml:"reaction_on"`
	Constant    bool    `yaml:"constant"`
	Sight       float64 `yaml:"sight"` // nm
	Km          float64 `yaml:"km"`
	Kcat        float64 `yaml:"kcat"`
	Focus       float64 `yaml:"focus"`
	RateWindow  int     `yaml:"rate_window"`
}

// DiffusionCoefficient returns D, from Stokes-Einstein when it is not set.
func (s *SpeciesConfig) DiffusionCoefficient() float64 {
	if s.D != nil {
		return *s.D
	}
	return systems.StokesEinstein(s.Temperature, s.Viscosity, s.RadiusMicrons())
}

// RadiusMicrons returns the walker radius in um.
func (s *SpeciesConfig) RadiusMicrons() float64 { return s.Radius / 1000 }

// SightMicrons returns the capture distance in um.
func (r *ReactionConfig) SightMicrons() float64 { return r.Sight / 1000 }

// Reactive reports whether the species captures a partner.
func (s *SpeciesConfig) Reactive() bool { return s.Reaction.SubstrateOn }

func (s SpeciesConfig) clone() SpeciesConfig {
	if s.D != nil {
		d := *s.D
		s.D = &d
	}
	return s
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// LoadFile picks the reader from the file extension: .par, .ini and .gcfg
// files are parameter files, anything else is YAML.
func LoadFile(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".par", ".ini", ".gcfg":
		return LoadPar(path)
	}
	return Load(path)
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w: %w", path, ErrConfig, err)
		}
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the embedded defaults with species not yet resolved.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := cfg.decode(defaultsYAML); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// decode overlays one YAML document. Only fields present in data change.
func (c *Config) decode(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	var raw struct {
		Species []yaml.Node `yaml:"species"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Species != nil {
		c.rawSpecies = raw.Species
	}
	return nil
}

// resolve builds every species on top of the species defaults and
// validates the result.
func (c *Config) resolve() error {
	if c.rawSpecies != nil {
		species := make([]SpeciesConfig, 0, len(c.rawSpecies))
		for i := range c.rawSpecies {
			sc := c.SpeciesDefaults.clone()
			if err := c.rawSpecies[i].Decode(&sc); err != nil {
				return fmt.Errorf("%w: species %d: %w", ErrConfig, i, err)
			}
			species = append(species, sc)
		}
		c.Species = species
		c.rawSpecies = nil
	}
	return c.Validate()
}

// Validate checks values that cannot be fixed by a default.
func (c *Config) Validate() error {
	if c.Simulation.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrConfig, c.Simulation.Dt)
	}
	if c.Simulation.Iterations < 0 {
		return fmt.Errorf("%w: negative iteration count %d", ErrConfig, c.Simulation.Iterations)
	}
	if c.Output.SaveCycle < 1 {
		c.Output.SaveCycle = 1
	}
	if c.Output.InfoCycle < 1 {
		c.Output.InfoCycle = 1
	}
	if len(c.Species) == 0 {
		return fmt.Errorf("%w: no species configured", ErrConfig)
	}

	names := make(map[string]bool, len(c.Species))
	for i := range c.Species {
		s := &c.Species[i]
		if s.Name == "" {
			return fmt.Errorf("%w: species %d has no name", ErrConfig, i)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: duplicate species %q", ErrConfig, s.Name)
		}
		names[s.Name] = true

		switch strings.ToLower(s.Geometry.Shape) {
		case "sphere", "box", "cell":
		default:
			return fmt.Errorf("%w: species %q: unknown shape %q", ErrConfig, s.Name, s.Geometry.Shape)
		}
		if s.Alpha <= 0 || s.Alpha > 2 {
			return fmt.Errorf("%w: species %q: alpha must be in (0, 2], got %g", ErrConfig, s.Name, s.Alpha)
		}
		if s.D == nil && (s.Radius <= 0 || s.Viscosity <= 0) {
			return fmt.Errorf("%w: species %q: no d and no radius/viscosity to derive it", ErrConfig, s.Name)
		}
		if s.Count < 0 || s.Concentration < 0 {
			return fmt.Errorf("%w: species %q: negative amount", ErrConfig, s.Name)
		}
	}

	for i := range c.Species {
		s := &c.Species[i]
		if !s.Reactive() {
			continue
		}
		if s.Reaction.Substrate == s.Name {
			return fmt.Errorf("%w: species %q cannot be its own substrate", ErrConfig, s.Name)
		}
		if !names[s.Reaction.Substrate] {
			return fmt.Errorf("%w: species %q: unknown substrate %q", ErrConfig, s.Name, s.Reaction.Substrate)
		}
	}
	return nil
}

// SpeciesByName returns the named species, or nil.
func (c *Config) SpeciesByName(name string) *SpeciesConfig {
	for i := range c.Species {
		if c.Species[i].Name == name {
			return &c.Species[i]
		}
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
