package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softmatterlab/mdsim/internal/sim"
)

func TestLatticeFluid_CadenceRatio(t *testing.T) {
	f := NewLatticeFluid(nil, 0.05, 1.0)

	assert.Equal(t, 5, f.StepsPerParticleStep(0.01))
	assert.Equal(t, 1, f.StepsPerParticleStep(0.05))
	// a solver faster than the particles still runs once per step
	assert.Equal(t, 1, f.StepsPerParticleStep(0.1))
}

func TestLatticeFluid_TauConsistency(t *testing.T) {
	f := NewLatticeFluid(nil, 0.05, 1.0)

	assert.NoError(t, f.CheckTauConsistency(0.01))
	assert.NoError(t, f.CheckTauConsistency(0.05))
	assert.Error(t, f.CheckTauConsistency(0.1), "dt larger than tau")
	assert.Error(t, f.CheckTauConsistency(0.03), "non-commensurable dt")
}

func TestLatticeFluid_CouplingGatedByActivation(t *testing.T) {
	p := particleAt(1, [3]float64{5, 5, 5})
	p.Vel = [3]float64{1, 0, 0}
	cells := NewCellList([3]float64{10, 10, 10}, 1.5, []*sim.Particle{p})
	f := NewLatticeFluid(cells, 0.05, 0.5)

	f.PropagateCoupling()
	assert.Equal(t, 0, f.Couplings())
	assert.Equal(t, [3]float64{}, p.Force)

	f.ActivateCoupling()
	f.PropagateCoupling()
	require.Equal(t, 1, f.Couplings())
	// drag opposes the particle velocity relative to the quiescent fluid
	assert.Negative(t, p.Force[0])

	f.DeactivateCoupling()
	f.PropagateCoupling()
	assert.Equal(t, 1, f.Couplings())
}

func TestLatticeFluid_PropagateRelaxesTowardParticles(t *testing.T) {
	p := particleAt(1, [3]float64{5, 5, 5})
	p.Vel = [3]float64{2, 0, 0}
	cells := NewCellList([3]float64{10, 10, 10}, 1.5, []*sim.Particle{p})
	f := NewLatticeFluid(cells, 0.05, 0.5)

	f.Propagate()

	assert.Equal(t, 1, f.Propagations())
	assert.InDelta(t, 1.0, f.momentum[0], 1e-12)
}

func TestDiffusionField_Decays(t *testing.T) {
	f := NewDiffusionField(0.05, 1.0, 10.0)

	require.True(t, f.Active())
	assert.Equal(t, 5, f.StepsPerParticleStep(0.01))

	f.Propagate()
	assert.InDelta(t, 9.5, f.Concentration, 1e-12)
	assert.Equal(t, 1, f.Propagations())
}
