package system

import (
	"math"

	"github.com/softmatterlab/mdsim/internal/sim"
)

// KernelParams configures the propagation kernels.
type KernelParams struct {
	// Gamma is the translational friction coefficient; GammaRotation the
	// rotational one. Both must be > 0 for the stochastic kernels.
	Gamma         float64
	GammaRotation float64

	// Seed initializes the counter-based noise stream.
	Seed uint64

	// Steepest-descent relaxation: particles move along their force scaled
	// by RelaxGamma, clipped to MaxDisplacement per step, until every force
	// component is below FMax.
	FMax            float64
	RelaxGamma      float64
	MaxDisplacement float64

	// Isotropic barostat coupling.
	PistonMass     float64
	TargetPressure float64
}

// Kernels is the reference kernel set: velocity-Verlet half-steps with a
// Langevin thermostat, overdamped Brownian updates, force-capped steepest
// descent, and a simplified isotropic barostat.
//
// All stochastic draws come from the shared counter-based stream, advanced
// once per step by the scheduler.
type Kernels struct {
	ctx *sim.Context
	p   KernelParams
	rng noiseCounter

	pistonVel float64
}

func NewKernels(ctx *sim.Context, p KernelParams) *Kernels {
	return &Kernels{ctx: ctx, p: p, rng: noiseCounter{seed: p.Seed}}
}

// LangevinPosition is the first velocity-Verlet half-step: a half kick
// from the current force followed by a full position drift.
func (k *Kernels) LangevinPosition(p *sim.Particle, dt float64) {
	for i := 0; i < 3; i++ {
		p.Vel[i] += 0.5 * dt * p.Force[i] / p.Mass
		p.Pos[i] += dt * p.Vel[i]
	}
}

// LangevinVelocity is the second half-step: a half kick from the fresh
// force, then the Langevin friction and noise terms.
func (k *Kernels) LangevinVelocity(p *sim.Particle, dt float64) {
	kT := k.ctx.Temperature()
	sigma := math.Sqrt(2 * k.p.Gamma * kT * dt)
	for i := 0; i < 3; i++ {
		p.Vel[i] += 0.5 * dt * p.Force[i] / p.Mass
		p.Vel[i] += (-k.p.Gamma*p.Vel[i]*dt + sigma*k.rng.gaussian(p.ID, uint64(i))) / p.Mass
	}
}

// LangevinRotation advances angular velocity from the current torque.
// Orientations are implicit: body and lab frames coincide, so the inertia
// tensor reduces to the particle mass.
func (k *Kernels) LangevinRotation(p *sim.Particle, dt float64) {
	for i := 0; i < 3; i++ {
		p.Omega[i] += 0.5 * dt * p.Torque[i] / p.Mass
	}
}

func (k *Kernels) LangevinOmega(p *sim.Particle, dt float64) {
	kT := k.ctx.Temperature()
	sigma := math.Sqrt(2 * k.p.GammaRotation * kT * dt)
	for i := 0; i < 3; i++ {
		p.Omega[i] += 0.5 * dt * p.Torque[i] / p.Mass
		p.Omega[i] += (-k.p.GammaRotation*p.Omega[i]*dt + sigma*k.rng.gaussian(p.ID, uint64(3+i))) / p.Mass
	}
}

// BrownianPosition is the overdamped position update: deterministic drift
// down the force plus diffusive displacement. The velocity is set to the
// effective displacement rate so observables that read velocities stay
// meaningful.
func (k *Kernels) BrownianPosition(p *sim.Particle, dt, kT float64) {
	noise := math.Sqrt(2 * kT * dt / k.p.Gamma)
	for i := 0; i < 3; i++ {
		dx := dt*p.Force[i]/k.p.Gamma + noise*k.rng.gaussian(p.ID, uint64(i))
		p.Pos[i] += dx
		p.Vel[i] = dx / dt
	}
}

func (k *Kernels) BrownianRotation(p *sim.Particle, dt, kT float64) {
	noise := math.Sqrt(2 * kT * dt / k.p.GammaRotation)
	for i := 0; i < 3; i++ {
		dphi := dt*p.Torque[i]/k.p.GammaRotation + noise*k.rng.gaussian(p.ID, uint64(3+i))
		p.Omega[i] = dphi / dt
	}
}

// NPTStep1 is the barostat half-step: velocity-Verlet position updates plus
// a piston velocity update from the instantaneous pressure imbalance.
func (k *Kernels) NPTStep1(particles []*sim.Particle, dt float64) {
	for _, p := range particles {
		for i := 0; i < 3; i++ {
			p.Vel[i] += 0.5 * dt * p.Force[i] / p.Mass
			p.Pos[i] += dt * p.Vel[i]
		}
	}
	k.pistonVel += 0.5 * dt * (k.instantaneousPressure(particles) - k.p.TargetPressure) / k.p.PistonMass
}

func (k *Kernels) NPTStep2(particles []*sim.Particle, dt float64) {
	for _, p := range particles {
		for i := 0; i < 3; i++ {
			p.Vel[i] += 0.5 * dt * p.Force[i] / p.Mass
		}
	}
	k.pistonVel += 0.5 * dt * (k.instantaneousPressure(particles) - k.p.TargetPressure) / k.p.PistonMass
}

// NPTSyncState flushes the piston momentum accumulated during the run so
// the next run starts from a consistent barostat state on every worker.
func (k *Kernels) NPTSyncState() {
	k.pistonVel = 0
}

// instantaneousPressure is the ideal-gas estimator: 2/3 of the kinetic
// energy density, over a unit reference volume.
func (k *Kernels) instantaneousPressure(particles []*sim.Particle) float64 {
	var ekin float64
	for _, p := range particles {
		for i := 0; i < 3; i++ {
			ekin += 0.5 * p.Mass * p.Vel[i] * p.Vel[i]
		}
	}
	return 2.0 / 3.0 * ekin
}

// StokesianStep1 moves all particles by their mobility-scaled force in one
// collective update. The full hydrodynamic mobility tensor reduces to a
// scalar 1/gamma here; the collective signature is kept so a dense solver
// can slot in.
func (k *Kernels) StokesianStep1(particles []*sim.Particle, dt float64) {
	for _, p := range particles {
		for i := 0; i < 3; i++ {
			p.Vel[i] = p.Force[i] / k.p.Gamma
			p.Pos[i] += dt * p.Vel[i]
		}
	}
}

// SteepestDescentStep relaxes every particle one step along its force and
// reports whether the convergence criterion is met. Velocities are zeroed:
// relaxation carries no momentum.
func (k *Kernels) SteepestDescentStep(particles []*sim.Particle) bool {
	converged := true
	for _, p := range particles {
		for i := 0; i < 3; i++ {
			if math.Abs(p.Force[i]) >= k.p.FMax {
				converged = false
			}
			step := k.p.RelaxGamma * p.Force[i]
			if step > k.p.MaxDisplacement {
				step = k.p.MaxDisplacement
			} else if step < -k.p.MaxDisplacement {
				step = -k.p.MaxDisplacement
			}
			p.Pos[i] += step
			p.Vel[i] = 0
		}
	}
	return converged
}

// ConvertInitialTorques maps body-frame torques into the lab frame once
// after the initial force computation. With implicit orientations the two
// frames coincide, so only the angular velocities of torque-free particles
// are cleared.
func (k *Kernels) ConvertInitialTorques(particles []*sim.Particle) {
	for _, p := range particles {
		if p.Torque == [3]float64{} {
			p.Omega = [3]float64{}
		}
	}
}

func (k *Kernels) AdvanceRNGCounter() { k.rng.advance() }
