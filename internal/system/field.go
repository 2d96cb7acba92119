package system

import "math"

// DiffusionField is a minimal field-transport solver: a scalar
// concentration relaxing toward equilibrium on its own cadence. It has no
// per-particle coupling.
type DiffusionField struct {
	Tau  float64
	Rate float64

	active        bool
	Concentration float64
	propagations  int
}

func NewDiffusionField(tau, rate, initial float64) *DiffusionField {
	return &DiffusionField{Tau: tau, Rate: rate, active: true, Concentration: initial}
}

func (f *DiffusionField) Active() bool { return f.active }

func (f *DiffusionField) Propagations() int { return f.propagations }

func (f *DiffusionField) StepsPerParticleStep(dt float64) int {
	n := int(math.Round(f.Tau / dt))
	if n < 1 {
		n = 1
	}
	return n
}

func (f *DiffusionField) Propagate() {
	f.propagations++
	f.Concentration -= f.Rate * f.Tau * f.Concentration
}
