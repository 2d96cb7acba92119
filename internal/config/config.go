// Package config loads simulation descriptions from YAML, validates them
// against the embedded CUE schema, and assembles the system parameters.
// Configuration errors are caught here, before anything is built; the
// integration loop only ever sees a well-formed system.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/softmatterlab/mdsim/internal/boundary"
	"github.com/softmatterlab/mdsim/internal/integrator"
	"github.com/softmatterlab/mdsim/internal/propagation"
	"github.com/softmatterlab/mdsim/internal/sim"
	"github.com/softmatterlab/mdsim/internal/system"
)

//go:embed schema.cue
var schemaCUE string

// Config mirrors the YAML document. Optional sections are pointers so
// absence is distinguishable from the zero value.
type Config struct {
	Name   string `yaml:"name"`
	Scheme string `yaml:"scheme"`

	Features struct {
		Rotation        bool `yaml:"rotation"`
		NPT             bool `yaml:"npt"`
		Stokesian       bool `yaml:"stokesian"`
		VirtualSites    bool `yaml:"virtual_sites"`
		BondConstraints bool `yaml:"bond_constraints"`
		Collision       bool `yaml:"collision"`
	} `yaml:"features"`

	Box [3]float64 `yaml:"box"`

	TimeStep    float64  `yaml:"time_step"`
	Skin        *float64 `yaml:"skin"`
	Temperature float64  `yaml:"temperature"`
	Thermostat  string   `yaml:"thermostat"`

	Interaction struct {
		Epsilon float64 `yaml:"epsilon"`
		Sigma   float64 `yaml:"sigma"`
		Cutoff  float64 `yaml:"cutoff"`
	} `yaml:"interaction"`

	Kernels struct {
		Gamma           float64 `yaml:"gamma"`
		GammaRotation   float64 `yaml:"gamma_rotation"`
		Seed            uint64  `yaml:"seed"`
		FMax            float64 `yaml:"f_max"`
		RelaxGamma      float64 `yaml:"relax_gamma"`
		MaxDisplacement float64 `yaml:"max_displacement"`
		PistonMass      float64 `yaml:"piston_mass"`
		TargetPressure  float64 `yaml:"target_pressure"`
	} `yaml:"kernels"`

	Particles []ParticleConfig `yaml:"particles"`

	RigidBonds     []BondConfig `yaml:"rigid_bonds"`
	BreakableBonds []BondConfig `yaml:"breakable_bonds"`
	BreakFactor    float64      `yaml:"break_factor"`
	BindDistance   float64      `yaml:"bind_distance"`

	Fluid *struct {
		Tau   float64 `yaml:"tau"`
		Gamma float64 `yaml:"gamma"`
	} `yaml:"fluid"`

	Field *struct {
		Tau     float64 `yaml:"tau"`
		Rate    float64 `yaml:"rate"`
		Initial float64 `yaml:"initial"`
	} `yaml:"field"`

	Shear *ShearConfig `yaml:"shear"`

	SampleEvery int `yaml:"sample_every"`

	Run struct {
		Steps       int    `yaml:"steps"`
		ReuseForces string `yaml:"reuse_forces"`
	} `yaml:"run"`
}

type ParticleConfig struct {
	ID          int        `yaml:"id"`
	Pos         [3]float64 `yaml:"pos"`
	Vel         [3]float64 `yaml:"vel"`
	Mass        float64    `yaml:"mass"`
	Propagation string     `yaml:"propagation"`
	RelateTo    int        `yaml:"relate_to"`
}

type BondConfig struct {
	A      int     `yaml:"a"`
	B      int     `yaml:"b"`
	Length float64 `yaml:"length"`
}

type ShearConfig struct {
	ShearDir  int    `yaml:"shear_dir"`
	NormalDir int    `yaml:"normal_dir"`
	Protocol  string `yaml:"protocol"`

	Velocity      float64 `yaml:"velocity"`
	InitialOffset float64 `yaml:"initial_offset"`
	Amplitude     float64 `yaml:"amplitude"`
	Omega         float64 `yaml:"omega"`
}

// Load reads, schema-validates and decodes a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a configuration document from memory.
func Parse(raw []byte) (*Config, error) {
	if err := validateSchema(raw); err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// validateSchema unifies the decoded document with the embedded CUE schema
// and reports the first constraint violation.
func validateSchema(raw []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	cuectx := cuecontext.New()
	schema := cuectx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	value := schema.Unify(cuectx.Encode(doc))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return &sim.ConfigError{Field: "schema", Message: err.Error()}
	}
	return nil
}

// ParsePropagation parses a "|"-joined list of propagation bit names and
// validates the combination.
func ParsePropagation(s string) (propagation.Mode, error) {
	if s == "" || s == "none" {
		return propagation.None, nil
	}
	mask := propagation.None
	for _, name := range strings.Split(s, "|") {
		bit, ok := propagation.Parse(strings.TrimSpace(name))
		if !ok {
			return propagation.None, &sim.ConfigError{
				Field:   "propagation",
				Message: fmt.Sprintf("unknown propagation mode %q", name),
			}
		}
		mask |= bit
	}
	if !propagation.IsValidCombination(mask) {
		return propagation.None, &sim.ConfigError{
			Field:   "propagation",
			Message: fmt.Sprintf("invalid propagation combination %s", mask),
		}
	}
	return mask, nil
}

// ParseReusePolicy maps the run.reuse_forces setting; the empty string
// defaults to conditional reuse.
func ParseReusePolicy(s string) (integrator.ReusePolicy, error) {
	switch s {
	case "never":
		return integrator.ReuseForcesNever, nil
	case "", "conditionally":
		return integrator.ReuseForcesConditionally, nil
	case "always":
		return integrator.ReuseForcesAlways, nil
	}
	return 0, &sim.ConfigError{
		Field:   "run.reuse_forces",
		Message: fmt.Sprintf("unknown reuse policy %q", s),
	}
}

// Params assembles the system parameters from the validated document.
func (c *Config) Params() (system.Params, error) {
	var p system.Params

	scheme, err := propagation.ParseScheme(c.Scheme)
	if err != nil {
		return p, &sim.ConfigError{Field: "scheme", Message: err.Error()}
	}
	thermostat, err := sim.ParseThermostat(c.Thermostat)
	if err != nil {
		return p, &sim.ConfigError{Field: "thermostat", Message: err.Error()}
	}

	p.Features = sim.Features{
		Rotation:        c.Features.Rotation,
		NPT:             c.Features.NPT,
		Stokesian:       c.Features.Stokesian,
		VirtualSites:    c.Features.VirtualSites,
		BondConstraints: c.Features.BondConstraints,
		Collision:       c.Features.Collision,
	}
	p.Scheme = scheme
	p.BoxL = c.Box
	p.TimeStep = c.TimeStep
	p.Skin = -1
	if c.Skin != nil {
		p.Skin = *c.Skin
	}
	p.Temperature = c.Temperature
	p.Thermostat = thermostat
	p.Epsilon = c.Interaction.Epsilon
	p.Sigma = c.Interaction.Sigma
	p.Cutoff = c.Interaction.Cutoff
	p.Kernels = system.KernelParams{
		Gamma:           c.Kernels.Gamma,
		GammaRotation:   c.Kernels.GammaRotation,
		Seed:            c.Kernels.Seed,
		FMax:            c.Kernels.FMax,
		RelaxGamma:      c.Kernels.RelaxGamma,
		MaxDisplacement: c.Kernels.MaxDisplacement,
		PistonMass:      c.Kernels.PistonMass,
		TargetPressure:  c.Kernels.TargetPressure,
	}

	index := make(map[int]*sim.Particle, len(c.Particles))
	for _, pc := range c.Particles {
		mask, err := ParsePropagation(pc.Propagation)
		if err != nil {
			return p, err
		}
		particle := &sim.Particle{
			ID:   pc.ID,
			Pos:  pc.Pos,
			Vel:  pc.Vel,
			Mass: pc.Mass,
		}
		if err := particle.SetPropagation(mask); err != nil {
			return p, err
		}
		if _, dup := index[pc.ID]; dup {
			return p, &sim.ConfigError{
				Field:   "particles",
				Message: fmt.Sprintf("duplicate particle id %d", pc.ID),
			}
		}
		index[pc.ID] = particle
		p.Particles = append(p.Particles, particle)
	}
	for _, pc := range c.Particles {
		if pc.RelateTo == 0 {
			continue
		}
		ref, ok := index[pc.RelateTo]
		if !ok {
			return p, &sim.ConfigError{
				Field:   "particles",
				Message: fmt.Sprintf("particle %d relates to unknown particle %d", pc.ID, pc.RelateTo),
			}
		}
		index[pc.ID].RelateTo(ref)
	}

	for _, b := range c.RigidBonds {
		p.RigidBonds = append(p.RigidBonds, system.Bond{A: b.A, B: b.B, Length: b.Length})
	}
	for _, b := range c.BreakableBonds {
		p.BreakableBonds = append(p.BreakableBonds, system.Bond{A: b.A, B: b.B, Length: b.Length})
	}
	p.BreakFactor = c.BreakFactor
	p.BindDistance = c.BindDistance

	if c.Fluid != nil {
		p.Fluid = &system.FluidParams{Tau: c.Fluid.Tau, Gamma: c.Fluid.Gamma}
	}
	if c.Field != nil {
		p.Field = &system.FieldParams{Tau: c.Field.Tau, Rate: c.Field.Rate, Initial: c.Field.Initial}
	}
	if c.Shear != nil {
		protocol, err := c.Shear.protocol()
		if err != nil {
			return p, err
		}
		p.Shear = &system.ShearParams{
			ShearDir:  c.Shear.ShearDir,
			NormalDir: c.Shear.NormalDir,
			Protocol:  protocol,
		}
	}
	p.SampleEvery = c.SampleEvery
	return p, nil
}

func (s *ShearConfig) protocol() (boundary.Protocol, error) {
	if s.ShearDir == s.NormalDir {
		return nil, &sim.ConfigError{
			Field:   "shear",
			Message: "shear and normal directions must differ",
		}
	}
	switch s.Protocol {
	case "off", "":
		return boundary.Off{}, nil
	case "linear":
		return boundary.LinearShear{
			InitialOffset: s.InitialOffset,
			Velocity:      s.Velocity,
		}, nil
	case "oscillatory":
		return boundary.OscillatoryShear{
			Amplitude: s.Amplitude,
			Omega:     s.Omega,
		}, nil
	}
	return nil, &sim.ConfigError{
		Field:   "shear.protocol",
		Message: fmt.Sprintf("unknown protocol %q", s.Protocol),
	}
}
