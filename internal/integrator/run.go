package integrator

import (
	"log/slog"

	"github.com/softmatterlab/mdsim/internal/propagation"
)

// ReusePolicy controls whether forces computed at the end of a previous
// run may serve as the initial forces of this one.
type ReusePolicy int

const (
	// ReuseForcesNever recomputes initial forces unconditionally.
	ReuseForcesNever ReusePolicy = iota
	// ReuseForcesConditionally recomputes only when the context has
	// marked forces stale.
	ReuseForcesConditionally
	// ReuseForcesAlways trusts the existing forces even if marked stale.
	// Safe for consecutive chunks of one request.
	ReuseForcesAlways
)

// resortParticlesIfNeeded flags the spatial index for rebuild when
// accumulated displacement since the last rebuild, plus boundary-shear
// extra travel, exceeds the skin. The decision is pure in those inputs.
func (ig *Integrator) resortParticlesIfNeeded() {
	skin, _ := ig.ctx.Skin()
	extra := ig.box.VerletListOffset(ig.cells.PosOffsetAtLastResort())
	if ig.cells.CheckResortRequired(skin, extra) {
		ig.cells.SetResortLevel(ResortLocal)
	}
}

// Integrate drives nSteps integration steps and returns the number of
// steps actually completed together with the termination status.
//
// The loop terminates after nSteps, on steepest-descent convergence, on a
// collectively detected runtime error, or on interrupt (single worker
// only). On abort the particle state is left at the last consistent step
// boundary.
func (ig *Integrator) Integrate(nSteps int, reuse ReusePolicy) Result {
	token := ig.tokens.Generate()
	log := slog.With("run", token)
	log.Info("integration start",
		"steps", nSteps, "scheme", ig.ctx.Scheme().String())

	ig.computeUsedPropagations()
	ig.integratorSanityChecks()
	ig.propagationSanityChecks()
	// if any collaborator or check vetoed, bail out before the first step
	if ig.sink.CheckAndClear(ig.group) {
		return Result{Status: StatusRuntimeError}
	}

	dt := ig.ctx.TimeStep()
	kT := ig.ctx.Temperature()
	steepest := ig.ctx.Scheme() == propagation.SteepestDescent
	features := ig.ctx.Features()

	if reuse == ReuseForcesNever ||
		(ig.ctx.RecalcForces() && reuse != ReuseForcesAlways) {
		ig.observe(-1, "initial_forces")
		if ig.fluid != nil {
			ig.fluid.DeactivateCoupling()
		}
		if ig.vsites != nil {
			ig.vsites.Update()
		}
		ig.cells.UpdateGhosts()
		ig.forces.Compute(ig.cells, dt, kT)
		if !steepest && features.Rotation {
			ig.kernels.ConvertInitialTorques(ig.cells.LocalParticles())
		}
		ig.ctx.SetRecalcForces(false)
	}
	if ig.fluid != nil {
		ig.fluid.ActivateCoupling()
	}
	if ig.sink.CheckAndClear(ig.group) {
		return Result{Status: StatusRuntimeError}
	}

	singleWorker := ig.group.Size() == 1
	rigidBonds := ig.constraints != nil && ig.constraints.Configured()
	nVerletUpdates := 0
	caughtInterrupt := false
	caughtError := false

	steps := 0
	for step := 0; step < nSteps; step++ {
		particles := ig.cells.LocalParticles()

		if rigidBonds {
			ig.observe(step, "save_positions")
			ig.constraints.SavePositions(particles, ig.cells.GhostParticles())
		}

		ig.box.UpdateParams(ig.ctx.Time())

		ig.observe(step, "step1")
		if ig.step1(particles, kT) {
			break
		}

		if ig.box.Active() {
			ig.observe(step, "boundary_push")
			for _, p := range particles {
				ig.box.Push(p)
			}
		}

		// the NPT scheme manages its own cell geometry; no resort here
		if !(features.NPT && ig.ctx.Scheme() == propagation.NPTIsotropic) {
			ig.observe(step, "resort_check")
			ig.resortParticlesIfNeeded()
		}

		ig.observe(step, "rng_advance")
		ig.kernels.AdvanceRNGCounter()

		if rigidBonds {
			ig.observe(step, "constraint_positions")
			ig.constraints.CorrectPositions(ig.cells)
		}

		if ig.vsites != nil {
			ig.observe(step, "virtual_sites")
			ig.vsites.Update()
		}

		if ig.cells.ResortLevel() >= ResortLocal {
			nVerletUpdates++
		}

		ig.observe(step, "ghost_exchange")
		ig.cells.UpdateGhosts()
		particles = ig.cells.LocalParticles()

		ig.observe(step, "force_calc")
		ig.forces.Compute(ig.cells, dt, kT)

		if ig.vsites != nil {
			ig.observe(step, "vs_force_redistribution")
			ig.vsites.AfterForceCalc(dt)
		}

		ig.observe(step, "step2")
		ig.step2(particles, kT)

		if ig.box.Active() {
			ig.observe(step, "boundary_offset")
			for _, p := range particles {
				ig.box.UpdateOffset(p, dt)
			}
		}

		if rigidBonds {
			ig.observe(step, "constraint_velocities")
			ig.constraints.CorrectVelocities(ig.cells)
		}

		if !steepest {
			ig.observe(step, "one_step_effects")
			ig.propagateCoupledSolvers()
			if ig.vsites != nil {
				ig.vsites.AfterFluidCoupling(dt)
			}
			if features.Collision && ig.collisions != nil {
				ig.collisions.Handle()
			}
			if ig.breakage != nil {
				ig.breakage.ProcessQueue()
			}
		}

		steps++

		ig.observe(step, "error_check")
		if ig.sink.CheckAndClear(ig.group) {
			caughtError = true
			break
		}

		if singleWorker {
			ig.observe(step, "interrupt_poll")
			if ig.latch.TestAndClear() {
				caughtInterrupt = true
				break
			}
		}
	}

	ig.box.UpdateParams(ig.ctx.Time())
	if ig.vsites != nil {
		ig.vsites.Update()
	}

	if nVerletUpdates > 0 {
		ig.ctx.SetVerletReuse(float64(steps) / float64(nVerletUpdates))
	} else {
		ig.ctx.SetVerletReuse(0)
	}

	if features.NPT && ig.ctx.Scheme() == propagation.NPTIsotropic {
		ig.kernels.NPTSyncState()
	}

	res := Result{Status: StatusOK, Steps: steps}
	if caughtInterrupt {
		res.Status = StatusInterrupted
	} else if caughtError {
		res.Status = StatusRuntimeError
	}
	log.Info("integration end",
		"status", res.Status.String(), "completed", res.Steps,
		"verlet_reuse", ig.ctx.VerletReuse())
	return res
}
