package system

import (
	"math"

	"github.com/softmatterlab/mdsim/internal/integrator"
	"github.com/softmatterlab/mdsim/internal/sim"
)

// LennardJones is the reference pair-potential evaluator: truncated and
// shifted 12-6 Lennard-Jones over the local set against local plus ghost
// neighbors.
//
// Evaluation failures (overlapping particles driving the force non-finite)
// are reported to the error sink rather than returned, so all workers
// observe the veto collectively at the next step boundary.
type LennardJones struct {
	Epsilon float64
	Sigma   float64
	Cutoff  float64

	shift float64
	sink  *integrator.ErrorSink

	calls int
}

func NewLennardJones(epsilon, sigma, cutoff float64, sink *integrator.ErrorSink) *LennardJones {
	lj := &LennardJones{Epsilon: epsilon, Sigma: sigma, Cutoff: cutoff, sink: sink}
	if cutoff > 0 {
		sr6 := math.Pow(sigma/cutoff, 6)
		lj.shift = 4 * epsilon * (sr6*sr6 - sr6)
	}
	return lj
}

// MaxCutoff reports the active interaction cutoff, or a negative value when
// the potential is disabled.
func (lj *LennardJones) MaxCutoff() float64 {
	if lj.Epsilon == 0 {
		return integrator.InactiveCutoff
	}
	return lj.Cutoff
}

// Calls counts Compute invocations; used by the coupling bookkeeping tests.
func (lj *LennardJones) Calls() int { return lj.calls }

func (lj *LennardJones) Compute(cells integrator.CellStructure, dt, kT float64) {
	lj.calls++
	local := cells.LocalParticles()
	for _, p := range local {
		p.Force = [3]float64{}
		p.Torque = [3]float64{}
	}
	if lj.Epsilon == 0 {
		return
	}

	cutSq := lj.Cutoff * lj.Cutoff
	ghosts := cells.GhostParticles()
	for i, pi := range local {
		for j := i + 1; j < len(local); j++ {
			lj.pair(pi, local[j], cutSq, true)
		}
		for _, pg := range ghosts {
			if pg.ID == pi.ID {
				continue
			}
			lj.pair(pi, pg, cutSq, false)
		}
	}
}

// pair accumulates the force between a local particle and a neighbor. When
// the neighbor is local too, Newton's third law applies; ghost neighbors
// receive their contribution through their own source particle.
func (lj *LennardJones) pair(a, b *sim.Particle, cutSq float64, newton bool) {
	var d [3]float64
	var rsq float64
	for k := 0; k < 3; k++ {
		d[k] = a.Pos[k] - b.Pos[k]
		rsq += d[k] * d[k]
	}
	if rsq >= cutSq {
		return
	}

	sr2 := lj.Sigma * lj.Sigma / rsq
	sr6 := sr2 * sr2 * sr2
	fOverR := 24 * lj.Epsilon * (2*sr6*sr6 - sr6) / rsq
	if math.IsInf(fOverR, 0) || math.IsNaN(fOverR) {
		lj.sink.Reportf(integrator.ErrCodeForceEvaluation,
			"non-finite pair force between particles %d and %d", a.ID, b.ID)
		return
	}
	for k := 0; k < 3; k++ {
		a.Force[k] += fOverR * d[k]
		if newton {
			b.Force[k] -= fOverR * d[k]
		}
	}
}
