package integrator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softmatterlab/mdsim/internal/boundary"
	"github.com/softmatterlab/mdsim/internal/comm"
	"github.com/softmatterlab/mdsim/internal/propagation"
	"github.com/softmatterlab/mdsim/internal/sim"
)

func TestIntegrate_CompletesRequestedSteps(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	ig := rig.integrator()

	res := ig.Integrate(7, ReuseForcesConditionally)

	assert.Equal(t, Result{Status: StatusOK, Steps: 7}, res)
	// one initial evaluation plus one per step
	assert.Equal(t, 8, rig.forces.computes)
	assert.Equal(t, 8, rig.cells.ghostUpdates)
	assert.Equal(t, 7, rig.kernels.rngAdvances)
	assert.InDelta(t, 0.07, rig.ctx.Time(), 1e-12)
}

func TestIntegrate_ZeroSteps(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	ig := rig.integrator()

	res := ig.Integrate(0, ReuseForcesConditionally)
	assert.Equal(t, Result{Status: StatusOK, Steps: 0}, res)
	assert.Equal(t, 1, rig.forces.computes, "initial forces still computed")
}

func TestIntegrate_TimeStepUnset(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	rig.ctx = sim.NewContext(sim.AllFeatures()) // fresh context, dt unset
	rig.ctx.SetThermostat(sim.ThermoLangevin)
	ig := rig.integrator()

	res := ig.Integrate(5, ReuseForcesConditionally)

	assert.Equal(t, Result{Status: StatusRuntimeError, Steps: 0}, res)
	assert.Zero(t, rig.forces.computes, "no force evaluation before abort")
	assert.Zero(t, rig.kernels.rngAdvances, "no step may have executed")
}

func TestIntegrate_ThermostatCompatibility(t *testing.T) {
	tests := []struct {
		name       string
		scheme     propagation.Scheme
		thermostat sim.Thermostat
		ok         bool
	}{
		{"steepest descent, off", propagation.SteepestDescent, sim.ThermoOff, true},
		{"steepest descent, langevin", propagation.SteepestDescent, sim.ThermoLangevin, false},
		{"nvt, off", propagation.VelocityVerlet, sim.ThermoOff, true},
		{"nvt, langevin", propagation.VelocityVerlet, sim.ThermoLangevin, true},
		{"nvt, npt thermostat", propagation.VelocityVerlet, sim.ThermoNPTIso, false},
		{"nvt, brownian thermostat", propagation.VelocityVerlet, sim.ThermoBrownian, false},
		{"nvt, sd thermostat", propagation.VelocityVerlet, sim.ThermoSD, false},
		{"npt, matching", propagation.NPTIsotropic, sim.ThermoNPTIso, true},
		{"npt, off", propagation.NPTIsotropic, sim.ThermoOff, true},
		{"npt, langevin", propagation.NPTIsotropic, sim.ThermoLangevin, false},
		{"brownian, matching", propagation.BrownianDynamics, sim.ThermoBrownian, true},
		{"brownian, off", propagation.BrownianDynamics, sim.ThermoOff, false},
		{"stokesian, matching", propagation.StokesianDynamics, sim.ThermoSD, true},
		{"stokesian, off", propagation.StokesianDynamics, sim.ThermoOff, true},
		{"stokesian, brownian", propagation.StokesianDynamics, sim.ThermoBrownian, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newRig(propagation.TransSystemDefault)
			require.NoError(t, rig.ctx.SetScheme(tt.scheme))
			rig.ctx.SetThermostat(tt.thermostat)
			ig := rig.integrator()

			res := ig.Integrate(2, ReuseForcesConditionally)
			if tt.ok {
				assert.Equal(t, StatusOK, res.Status)
			} else {
				assert.Equal(t, StatusRuntimeError, res.Status)
				assert.Zero(t, res.Steps, "abort must precede the first step")
			}
		})
	}
}

func TestIntegrate_NPTTranslationExclusivity(t *testing.T) {
	rig := newRig(propagation.TransLangevinNPT, propagation.TransLangevin)
	ig := rig.integrator()

	res := ig.Integrate(5, ReuseForcesConditionally)

	assert.Equal(t, Result{Status: StatusRuntimeError, Steps: 0}, res)
	assert.Zero(t, rig.forces.computes)
}

// The exclusivity check only fires when NPT translation is present; other
// independent translation modes may coexist with each other.
func TestIntegrate_NonNPTTranslationsMayCoexist(t *testing.T) {
	rig := newRig(propagation.TransStokesian, propagation.TransBrownian)
	ig := rig.integrator()

	res := ig.Integrate(3, ReuseForcesConditionally)
	assert.Equal(t, Result{Status: StatusOK, Steps: 3}, res)
}

func TestIntegrate_UsedPropagationsIncludesDefault(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault, propagation.TransBrownian)
	ig := rig.integrator()

	ig.Integrate(1, ReuseForcesConditionally)

	used := ig.UsedPropagations()
	assert.True(t, used.Has(propagation.TransBrownian))
	assert.True(t, used.Has(propagation.TransLangevin|propagation.RotLangevin),
		"default mask folded in for system-default particles")
}

func TestIntegrate_InterruptDuringRun(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	var ig *Integrator
	rec := &recorder{onStep: func(step int, phase string) {
		// raise the interrupt while the third step is in flight
		if step == 2 && phase == "step1" {
			ig.Latch().Request()
		}
	}}
	ig = rig.integrator(WithObserver(rec))

	res := ig.Integrate(10, ReuseForcesConditionally)

	assert.Equal(t, Result{Status: StatusInterrupted, Steps: 3}, res)
	assert.False(t, ig.Latch().TestAndClear(), "latch must be consumed")
}

func TestIntegrate_InterruptIgnoredWithMultipleWorkers(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	ig := rig.integrator(WithGroup(stubGroup{size: 2}))
	ig.Latch().Request()

	res := ig.Integrate(5, ReuseForcesConditionally)

	assert.Equal(t, Result{Status: StatusOK, Steps: 5}, res)
	assert.True(t, ig.Latch().TestAndClear(),
		"latch must stay untouched when more than one worker is active")
}

func TestIntegrate_RuntimeErrorAbortsAtStepBoundary(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	// call 1 is the initial evaluation, call 3 is the second loop step
	rig.forces.failOnCall = 3
	ig := rig.integrator()

	res := ig.Integrate(10, ReuseForcesConditionally)

	assert.Equal(t, StatusRuntimeError, res.Status)
	assert.Equal(t, 2, res.Steps, "partial progress must be reported")
}

func TestIntegrate_ForceVetoBeforeLoop(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	rig.forces.failOnCall = 1 // initial evaluation vetoes
	ig := rig.integrator()

	res := ig.Integrate(10, ReuseForcesConditionally)
	assert.Equal(t, Result{Status: StatusRuntimeError, Steps: 0}, res)
}

func TestIntegrate_VerletReuseStatistic(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	rig.cells.resortEvery = 5
	ig := rig.integrator()

	res := ig.Integrate(10, ReuseForcesConditionally)

	require.Equal(t, Result{Status: StatusOK, Steps: 10}, res)
	assert.Equal(t, 2, rig.cells.rebuilds)
	assert.InDelta(t, 5.0, rig.ctx.VerletReuse(), 1e-12)
}

func TestIntegrate_VerletReuseZeroWithoutRebuilds(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	ig := rig.integrator()

	ig.Integrate(10, ReuseForcesConditionally)
	assert.Zero(t, rig.ctx.VerletReuse())
}

func TestIntegrate_SteepestDescentEarlyExit(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	require.NoError(t, rig.ctx.SetScheme(propagation.SteepestDescent))
	rig.ctx.SetThermostat(sim.ThermoOff)
	rig.kernels.steepestConverge = 4
	ig := rig.integrator()

	res := ig.Integrate(10, ReuseForcesConditionally)

	assert.Equal(t, Result{Status: StatusOK, Steps: 3}, res)
	assert.Equal(t, 4, rig.kernels.steepestCalls)
	// the converged attempt has no observable side effects
	assert.Equal(t, 1+3, rig.forces.computes)
	assert.Equal(t, 3, rig.kernels.rngAdvances)
}

func TestIntegrate_ForceReusePolicies(t *testing.T) {
	t.Run("conditionally skips when fresh", func(t *testing.T) {
		rig := newRig(propagation.TransSystemDefault)
		rig.ctx.SetRecalcForces(false)
		ig := rig.integrator()

		ig.Integrate(2, ReuseForcesConditionally)
		assert.Equal(t, 2, rig.forces.computes, "no initial evaluation")
	})

	t.Run("never always recomputes", func(t *testing.T) {
		rig := newRig(propagation.TransSystemDefault)
		rig.ctx.SetRecalcForces(false)
		ig := rig.integrator()

		ig.Integrate(2, ReuseForcesNever)
		assert.Equal(t, 3, rig.forces.computes)
	})

	t.Run("always trusts stale forces", func(t *testing.T) {
		rig := newRig(propagation.TransSystemDefault)
		rig.ctx.SetRecalcForces(true)
		ig := rig.integrator()

		ig.Integrate(2, ReuseForcesAlways)
		assert.Equal(t, 2, rig.forces.computes)
	})
}

func TestIntegrate_FluidCouplingPausedDuringInitialForces(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	fluid := &fakeFluid{active: true, ratio: 1}
	ig := rig.integrator(WithFluid(fluid))

	ig.Integrate(1, ReuseForcesConditionally)

	assert.Equal(t, 1, fluid.deactivates)
	assert.Equal(t, 1, fluid.activates)
}

func TestIntegrate_LockstepErrorReduction(t *testing.T) {
	groups := comm.NewLocalGroup(2)

	rigs := []*testRig{
		newRig(propagation.TransSystemDefault),
		newRig(propagation.TransSystemDefault),
	}
	// only worker 1 observes a local failure, on its second loop step
	rigs[1].forces.failOnCall = 3

	results := make([]Result, 2)
	var wg sync.WaitGroup
	for rank := range rigs {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			ig := rigs[rank].integrator(WithGroup(groups[rank]))
			results[rank] = ig.Integrate(10, ReuseForcesConditionally)
		}(rank)
	}
	wg.Wait()

	want := Result{Status: StatusRuntimeError, Steps: 2}
	assert.Equal(t, want, results[0], "clean worker must abort with the group")
	assert.Equal(t, want, results[1])
}

func TestSetShearProtocol_RequiresShearedBox(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	ig := rig.integrator()

	err := ig.SetShearProtocol(boundary.LinearShear{Velocity: 1})
	var cfgErr *sim.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "shear", cfgErr.Field)
	assert.Equal(t, ResortNone, rig.cells.level, "failed install must not flag a resort")

	// the teardown path and the clock setter must tolerate the missing box
	ig.UnsetShearProtocol()
	ig.SetTime(1)
	assert.Equal(t, ResortNone, rig.cells.level)
}

func TestSetShearProtocol_FlagsResortAndRecalc(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	box := &boundary.ShearedBox{BoxL: [3]float64{10, 10, 10}, ShearDir: 0, NormalDir: 1}
	ig := rig.integrator(WithShearedBox(box))
	rig.ctx.SetRecalcForces(false)

	require.NoError(t, ig.SetShearProtocol(boundary.LinearShear{Velocity: 0.5}))

	assert.True(t, box.Active())
	assert.True(t, rig.ctx.RecalcForces())
	assert.Equal(t, ResortLocal, rig.cells.level)

	ig.UnsetShearProtocol()
	assert.False(t, box.Active())
}

func TestSetTime_RefreshesBoundaryParams(t *testing.T) {
	rig := newRig(propagation.TransSystemDefault)
	box := &boundary.ShearedBox{BoxL: [3]float64{10, 10, 10}, ShearDir: 0, NormalDir: 1}
	ig := rig.integrator(WithShearedBox(box))
	require.NoError(t, ig.SetShearProtocol(boundary.LinearShear{Velocity: 2}))

	ig.SetTime(3)

	assert.Equal(t, 3.0, rig.ctx.Time())
	assert.InDelta(t, 6.0, box.PosOffset(), 1e-12)
	assert.True(t, rig.ctx.RecalcForces())
}
