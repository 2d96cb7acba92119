package sim

import (
	"github.com/softmatterlab/mdsim/internal/propagation"
)

// Context holds the process-wide mutable state of one simulation session:
// the simulation clock, the active scheme and its resolved default
// propagation, the time-step and skin settings, and the force-recalculation
// flag.
//
// Context is single-writer by construction: the step scheduler is the only
// mutator during a run, and all workers hold identical values in lockstep.
// There is no locking; construct a fresh Context per session (or per test).
type Context struct {
	features Features

	scheme             propagation.Scheme
	defaultPropagation propagation.Mode

	timeStep float64
	simTime  float64

	skin    float64
	skinSet bool

	thermostat  Thermostat
	temperature float64

	recalcForces bool

	verletReuse float64
}

// NewContext creates a context with the velocity-Verlet scheme active and
// the time step unset. Forces are marked stale so the first run computes
// them.
func NewContext(features Features) *Context {
	ctx := &Context{
		features:     features,
		timeStep:     -1.0,
		recalcForces: true,
	}
	// cannot fail for a known scheme
	_ = ctx.SetScheme(propagation.VelocityVerlet)
	return ctx
}

func (c *Context) Features() Features { return c.features }

// Scheme returns the active top-level integration scheme.
func (c *Context) Scheme() propagation.Scheme { return c.scheme }

// SetScheme switches the active scheme, recomputes the default propagation
// mask and marks forces stale: existing forces may not be meaningful under
// the new scheme.
func (c *Context) SetScheme(s propagation.Scheme) error {
	def, err := propagation.DefaultFor(s, c.features.Rotation)
	if err != nil {
		return &ConfigError{Field: "scheme", Message: err.Error()}
	}
	c.scheme = s
	c.defaultPropagation = def
	c.recalcForces = true
	return nil
}

// DefaultPropagation returns the mask applied to particles that opted into
// the system default. Recomputed only by SetScheme, never mid-step.
func (c *Context) DefaultPropagation() propagation.Mode {
	return c.defaultPropagation
}

func (c *Context) Thermostat() Thermostat { return c.thermostat }
func (c *Context) SetThermostat(t Thermostat) { c.thermostat = t }

// Temperature is the target temperature handed to stochastic kernels and
// the force evaluator.
func (c *Context) Temperature() float64 { return c.temperature }

// SetTemperature sets the target temperature. Negative values are a
// configuration error.
func (c *Context) SetTemperature(kT float64) error {
	if kT < 0 {
		return &ConfigError{Field: "temperature", Message: "must be >= 0"}
	}
	c.temperature = kT
	return nil
}

// TimeStep returns the integration time step, or a negative value when
// unset.
func (c *Context) TimeStep() float64 { return c.timeStep }

// SetTimeStep sets the integration time step. Non-positive values are a
// configuration error.
func (c *Context) SetTimeStep(dt float64) error {
	if dt <= 0 {
		return &ConfigError{Field: "time_step", Message: "must be > 0"}
	}
	c.timeStep = dt
	return nil
}

// Time returns the current simulation time.
func (c *Context) Time() float64 { return c.simTime }

// SetTime sets the simulation clock to an absolute value and marks forces
// stale, since time-dependent interactions may have changed.
func (c *Context) SetTime(t float64) {
	c.simTime = t
	c.recalcForces = true
}

// AdvanceTime moves the simulation clock forward by one increment.
func (c *Context) AdvanceTime(dt float64) { c.simTime += dt }

// Skin returns the Verlet skin width and whether it has been set explicitly.
func (c *Context) Skin() (float64, bool) { return c.skin, c.skinSet }

// SetSkin sets the Verlet skin width. Negative widths are a configuration
// error.
func (c *Context) SetSkin(s float64) error {
	if s < 0 {
		return &ConfigError{Field: "skin", Message: "must be >= 0"}
	}
	c.skin = s
	c.skinSet = true
	return nil
}

// RecalcForces reports whether the next run must recompute forces before
// its first step.
func (c *Context) RecalcForces() bool { return c.recalcForces }
func (c *Context) SetRecalcForces(v bool) { c.recalcForces = v }

// VerletReuse is the running efficiency statistic: steps executed per
// spatial-index rebuild during the last run, zero if no rebuild occurred.
func (c *Context) VerletReuse() float64 { return c.verletReuse }
func (c *Context) SetVerletReuse(v float64) { c.verletReuse = v }
