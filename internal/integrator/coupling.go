package integrator

// propagateCoupledSolvers advances the slower-cadence solvers. Each active
// solver has its own phase counter, incremented once per particle step and
// reset when it reaches the solver's steps-per-particle-step ratio, at
// which point the solver performs exactly one propagation.
//
// When both solvers are active their ratios must be equal; a mismatch is
// reported as a runtime error and neither solver is advanced. Particle-
// fluid momentum coupling is applied once per particle step regardless of
// the solver cadence.
func (ig *Integrator) propagateCoupledSolvers() {
	dt := ig.ctx.TimeStep()
	fluidActive := ig.fluid != nil && ig.fluid.Active()
	fieldActive := ig.field != nil && ig.field.Active()

	switch {
	case fluidActive && fieldActive:
		fluidRatio := ig.fluid.StepsPerParticleStep(dt)
		fieldRatio := ig.field.StepsPerParticleStep(dt)
		if fluidRatio != fieldRatio {
			ig.sink.Reportf(ErrCodeCadenceMismatch,
				"momentum and field solvers are active with different time steps")
			return
		}

		// both solvers share one phase from here on
		ig.fluidStep++
		if ig.fluidStep >= fluidRatio {
			ig.fluidStep = 0
			ig.fluid.Propagate()
			ig.field.Propagate()
		}
		ig.fluid.PropagateCoupling()

	case fluidActive:
		ratio := ig.fluid.StepsPerParticleStep(dt)
		ig.fluidStep++
		if ig.fluidStep >= ratio {
			ig.fluidStep = 0
			ig.fluid.Propagate()
		}
		ig.fluid.PropagateCoupling()

	case fieldActive:
		ratio := ig.field.StepsPerParticleStep(dt)
		ig.fieldStep++
		if ig.fieldStep >= ratio {
			ig.fieldStep = 0
			ig.field.Propagate()
		}
	}
}
