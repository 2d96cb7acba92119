package sim

import (
	"fmt"

	"github.com/softmatterlab/mdsim/internal/propagation"
)

// Particle is the per-particle state the scheduler touches.
//
// The scheduler never mutates Propagation itself; the mask is set at
// configuration time, and only RelateTo may add a bit afterwards.
type Particle struct {
	ID    int
	Pos   [3]float64
	Vel   [3]float64
	Force [3]float64

	// Torque and Omega are only meaningful when rotation is enabled.
	Torque [3]float64
	Omega  [3]float64

	Mass float64

	// Propagation selects which motion-update algorithms fire for this
	// particle each step. None with TransSystemDefault unset means the
	// particle is frozen.
	Propagation propagation.Mode

	// VSRelativeTo is the id of the real particle a virtual site follows.
	// Only meaningful when Propagation carries TransVSRelative.
	VSRelativeTo int

	// LEOffset accumulates the shear offset this particle picked up from
	// crossing a sheared boundary.
	LEOffset float64
}

// SetPropagation replaces the particle's mask after validating the
// combination. Invalid combinations are rejected here, at configuration
// time, so the step scheduler never sees one.
func (p *Particle) SetPropagation(m propagation.Mode) error {
	if !propagation.IsValidCombination(m) {
		return &ConfigError{
			Field:   "propagation",
			Message: fmt.Sprintf("invalid propagation combination %s", m),
		}
	}
	p.Propagation = m
	return nil
}

// RelateTo sets up a virtual site to track a real particle. This is the only
// operation that adds a propagation bit outside of configuration.
func (p *Particle) RelateTo(target *Particle) {
	p.Propagation |= propagation.TransVSRelative
	p.VSRelativeTo = target.ID
}
