package system

import "github.com/softmatterlab/mdsim/internal/sim"

// Accumulator samples one observable on a fixed step cadence.
type Accumulator struct {
	Name   string
	Delta  int
	Sample func()

	countdown int
}

// AccumulatorSet schedules a group of accumulators: it tells the run
// chunker how many steps remain until the earliest due-point and samples
// every accumulator that came due after a chunk completes.
type AccumulatorSet struct {
	accs []*Accumulator
}

func NewAccumulatorSet(accs ...*Accumulator) *AccumulatorSet {
	for _, a := range accs {
		if a.Delta < 1 {
			a.Delta = 1
		}
		a.countdown = a.Delta
	}
	return &AccumulatorSet{accs: accs}
}

func (s *AccumulatorSet) Empty() bool { return len(s.accs) == 0 }

func (s *AccumulatorSet) NextDueInSteps() int {
	due := 0
	for _, a := range s.accs {
		if due == 0 || a.countdown < due {
			due = a.countdown
		}
	}
	if due < 1 {
		due = 1
	}
	return due
}

func (s *AccumulatorSet) Run(stepsElapsed int) {
	for _, a := range s.accs {
		a.countdown -= stepsElapsed
		if a.countdown <= 0 {
			a.Sample()
			a.countdown = a.Delta
		}
	}
}

// TimeSeries is an in-memory observable record: one value per sample.
type TimeSeries struct {
	Name   string
	Times  []float64
	Values []float64
}

func (ts *TimeSeries) append(t, v float64) {
	ts.Times = append(ts.Times, t)
	ts.Values = append(ts.Values, v)
}

// KineticEnergyAccumulator samples the total kinetic energy of the local
// particle set every delta steps.
func KineticEnergyAccumulator(ctx *sim.Context, cells *CellList, delta int) (*Accumulator, *TimeSeries) {
	ts := &TimeSeries{Name: "kinetic_energy"}
	acc := &Accumulator{
		Name:  "kinetic_energy",
		Delta: delta,
		Sample: func() {
			var ekin float64
			for _, p := range cells.LocalParticles() {
				for i := 0; i < 3; i++ {
					ekin += 0.5 * p.Mass * p.Vel[i] * p.Vel[i]
				}
			}
			ts.append(ctx.Time(), ekin)
		},
	}
	return acc, ts
}
