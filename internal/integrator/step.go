package integrator

import (
	"github.com/softmatterlab/mdsim/internal/propagation"
	"github.com/softmatterlab/mdsim/internal/sim"
)

// kernelBinding pairs a capability bit with the kernel it fires. The
// bindings form an explicit ordered list evaluated per particle; the legal
// kernel set is fixed, so no dynamic dispatch is needed.
type kernelBinding struct {
	bit      propagation.Mode
	rotation bool // requires rotational degrees of freedom
	fire     func(k KernelSet, p *sim.Particle, dt, kT float64)
}

var step1Bindings = []kernelBinding{
	{propagation.TransLangevin, false,
		func(k KernelSet, p *sim.Particle, dt, _ float64) { k.LangevinPosition(p, dt) }},
	{propagation.RotLangevin, true,
		func(k KernelSet, p *sim.Particle, dt, _ float64) { k.LangevinRotation(p, dt) }},
	{propagation.TransBrownian, false,
		func(k KernelSet, p *sim.Particle, dt, kT float64) { k.BrownianPosition(p, dt, kT) }},
	{propagation.RotBrownian, true,
		func(k KernelSet, p *sim.Particle, dt, kT float64) { k.BrownianRotation(p, dt, kT) }},
}

var step2Bindings = []kernelBinding{
	{propagation.TransLangevin, false,
		func(k KernelSet, p *sim.Particle, dt, _ float64) { k.LangevinVelocity(p, dt) }},
	{propagation.RotLangevin, true,
		func(k KernelSet, p *sim.Particle, dt, _ float64) { k.LangevinOmega(p, dt) }},
}

func (ig *Integrator) bindingEnabled(b kernelBinding) bool {
	return !b.rotation || ig.ctx.Features().Rotation
}

// shouldPropagateWith reports whether a particle's mask selects the given
// mode, either explicitly or through the system default.
func (ig *Integrator) shouldPropagateWith(mask, mode propagation.Mode) bool {
	if mask&mode != 0 {
		return true
	}
	return ig.ctx.DefaultPropagation()&mode != 0 &&
		mask&propagation.TransSystemDefault != 0
}

// runBindings routes each particle to the kernels its mask selects. A
// particle may fire more than one kernel when its mask spans translation
// and rotation bits.
func (ig *Integrator) runBindings(bindings []kernelBinding, particles []*sim.Particle, dt, kT float64) {
	perParticle := propagation.None
	for _, b := range bindings {
		if ig.bindingEnabled(b) {
			perParticle |= b.bit
		}
	}
	if ig.ctx.DefaultPropagation()&perParticle != 0 {
		// particles on the system default participate too
		perParticle |= propagation.TransSystemDefault
	}

	for _, p := range particles {
		if p.Propagation&perParticle == 0 {
			continue
		}
		for _, b := range bindings {
			if !ig.bindingEnabled(b) {
				continue
			}
			if ig.shouldPropagateWith(p.Propagation, b.bit) {
				b.fire(ig.kernels, p, dt, kT)
			}
		}
	}
}

// filterByPropagation selects the particles whose mask intersects the
// given bits.
func filterByPropagation(particles []*sim.Particle, mask propagation.Mode) []*sim.Particle {
	var out []*sim.Particle
	for _, p := range particles {
		if p.Propagation&mask != 0 {
			out = append(out, p)
		}
	}
	return out
}

// step1 performs the position/orientation half-update. Returns true when
// the loop should exit early (steepest-descent convergence).
func (ig *Integrator) step1(particles []*sim.Particle, kT float64) bool {
	if ig.ctx.Scheme() == propagation.SteepestDescent {
		return ig.kernels.SteepestDescentStep(particles)
	}

	dt := ig.ctx.TimeStep()
	ig.runBindings(step1Bindings, particles, dt, kT)

	features := ig.ctx.Features()
	def := ig.ctx.DefaultPropagation()
	if features.NPT && def&propagation.TransLangevinNPT != 0 {
		ig.kernels.NPTStep1(filterByPropagation(particles,
			propagation.TransSystemDefault|propagation.TransLangevinNPT), dt)
	}
	if features.Stokesian && def&propagation.TransStokesian != 0 {
		ig.kernels.StokesianStep1(filterByPropagation(particles,
			propagation.TransStokesian|propagation.TransSystemDefault), dt)
	}

	ig.ctx.AdvanceTime(dt)
	return false
}

// step2 finalizes velocities after the force evaluation.
func (ig *Integrator) step2(particles []*sim.Particle, kT float64) {
	if ig.ctx.Scheme() == propagation.SteepestDescent {
		return
	}

	dt := ig.ctx.TimeStep()
	ig.runBindings(step2Bindings, particles, dt, kT)

	features := ig.ctx.Features()
	def := ig.ctx.DefaultPropagation()
	if features.NPT && def&propagation.TransLangevinNPT != 0 {
		ig.kernels.NPTStep2(filterByPropagation(particles,
			propagation.TransSystemDefault|propagation.TransLangevinNPT), dt)
	}
}
