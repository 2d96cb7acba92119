package system

import (
	"fmt"
	"math"
)

// LatticeFluid is a minimal momentum-transport solver with its own time
// step tau. It relaxes a spatially uniform fluid momentum toward the
// particle momentum; the per-step coupling applies the matching drag to
// the particles. The cadence and coupling machinery is the interesting
// part here, not the hydrodynamics.
type LatticeFluid struct {
	Tau   float64
	Gamma float64

	cells  *CellList
	active bool

	couplingActive bool
	momentum       [3]float64
	propagations   int
	couplings      int
}

func NewLatticeFluid(cells *CellList, tau, gamma float64) *LatticeFluid {
	return &LatticeFluid{Tau: tau, Gamma: gamma, cells: cells, active: true}
}

func (f *LatticeFluid) Active() bool { return f.active }

// Propagations and Couplings expose the cadence counters for tests and the
// run report.
func (f *LatticeFluid) Propagations() int { return f.propagations }
func (f *LatticeFluid) Couplings() int { return f.couplings }

// StepsPerParticleStep is the cadence ratio: how many particle steps fit
// into one solver step.
func (f *LatticeFluid) StepsPerParticleStep(dt float64) int {
	n := int(math.Round(f.Tau / dt))
	if n < 1 {
		n = 1
	}
	return n
}

// CheckTauConsistency verifies the particle time step divides the solver
// step within floating-point tolerance.
func (f *LatticeFluid) CheckTauConsistency(dt float64) error {
	if f.Tau < dt {
		return fmt.Errorf("fluid time step %g is smaller than the particle time step %g", f.Tau, dt)
	}
	ratio := f.Tau / dt
	if math.Abs(ratio-math.Round(ratio)) > 1e-9*ratio {
		return fmt.Errorf("fluid time step %g is not an integer multiple of the particle time step %g", f.Tau, dt)
	}
	return nil
}

// Propagate relaxes the fluid momentum toward the mean particle momentum.
func (f *LatticeFluid) Propagate() {
	f.propagations++
	local := f.cells.LocalParticles()
	if len(local) == 0 {
		return
	}
	var mean [3]float64
	for _, p := range local {
		for i := 0; i < 3; i++ {
			mean[i] += p.Mass * p.Vel[i]
		}
	}
	for i := 0; i < 3; i++ {
		mean[i] /= float64(len(local))
		f.momentum[i] += f.Gamma * (mean[i] - f.momentum[i])
	}
}

// PropagateCoupling applies the drag force exchanging momentum between
// particles and fluid. A no-op while coupling is deactivated, which the
// scheduler does around force recomputation.
func (f *LatticeFluid) PropagateCoupling() {
	if !f.couplingActive {
		return
	}
	f.couplings++
	for _, p := range f.cells.LocalParticles() {
		for i := 0; i < 3; i++ {
			p.Force[i] -= f.Gamma * (p.Vel[i] - f.momentum[i]/p.Mass)
		}
	}
}

func (f *LatticeFluid) ActivateCoupling() { f.couplingActive = true }
func (f *LatticeFluid) DeactivateCoupling() { f.couplingActive = false }
