package system

import (
	"math"

	"github.com/softmatterlab/mdsim/internal/integrator"
	"github.com/softmatterlab/mdsim/internal/sim"
)

// Bond is a rigid distance constraint between two particle ids.
type Bond struct {
	A, B   int
	Length float64
}

// DistanceConstraints is an iterative shake/rattle solver for rigid bonds.
// Positions are corrected against the bond vectors saved before the
// position update; velocity components along the constrained directions
// are projected out after the velocity update.
type DistanceConstraints struct {
	bonds     []Bond
	tolerance float64
	maxIter   int

	saved map[int][3]float64
}

func NewDistanceConstraints(bonds []Bond, tolerance float64, maxIter int) *DistanceConstraints {
	return &DistanceConstraints{
		bonds:     bonds,
		tolerance: tolerance,
		maxIter:   maxIter,
		saved:     make(map[int][3]float64),
	}
}

func (d *DistanceConstraints) Configured() bool { return len(d.bonds) > 0 }

func (d *DistanceConstraints) SavePositions(local, ghosts []*sim.Particle) {
	for _, p := range local {
		d.saved[p.ID] = p.Pos
	}
	for _, p := range ghosts {
		d.saved[p.ID] = p.Pos
	}
}

func (d *DistanceConstraints) CorrectPositions(cells integrator.CellStructure) {
	index := particleIndex(cells.LocalParticles())
	for iter := 0; iter < d.maxIter; iter++ {
		converged := true
		for _, b := range d.bonds {
			pa, okA := index[b.A]
			pb, okB := index[b.B]
			if !okA || !okB {
				continue
			}

			var cur [3]float64
			var curSq float64
			for i := 0; i < 3; i++ {
				cur[i] = pa.Pos[i] - pb.Pos[i]
				curSq += cur[i] * cur[i]
			}
			diff := curSq - b.Length*b.Length
			if math.Abs(diff) <= d.tolerance*b.Length*b.Length {
				continue
			}
			converged = false

			// project the correction onto the pre-update bond vector
			oldA := d.saved[b.A]
			oldB := d.saved[b.B]
			var old [3]float64
			var dot float64
			for i := 0; i < 3; i++ {
				old[i] = oldA[i] - oldB[i]
				dot += cur[i] * old[i]
			}
			invMassA := 1 / pa.Mass
			invMassB := 1 / pb.Mass
			g := diff / (2 * dot * (invMassA + invMassB))
			for i := 0; i < 3; i++ {
				pa.Pos[i] -= g * invMassA * old[i]
				pb.Pos[i] += g * invMassB * old[i]
			}
		}
		if converged {
			break
		}
	}
}

func (d *DistanceConstraints) CorrectVelocities(cells integrator.CellStructure) {
	index := particleIndex(cells.LocalParticles())
	for _, b := range d.bonds {
		pa, okA := index[b.A]
		pb, okB := index[b.B]
		if !okA || !okB {
			continue
		}

		var dir [3]float64
		var rsq, vrel float64
		for i := 0; i < 3; i++ {
			dir[i] = pa.Pos[i] - pb.Pos[i]
			rsq += dir[i] * dir[i]
			vrel += dir[i] * (pa.Vel[i] - pb.Vel[i])
		}
		if rsq == 0 {
			continue
		}
		invMassA := 1 / pa.Mass
		invMassB := 1 / pb.Mass
		g := vrel / (rsq * (invMassA + invMassB))
		for i := 0; i < 3; i++ {
			pa.Vel[i] -= g * invMassA * dir[i]
			pb.Vel[i] += g * invMassB * dir[i]
		}
	}
}

func particleIndex(particles []*sim.Particle) map[int]*sim.Particle {
	m := make(map[int]*sim.Particle, len(particles))
	for _, p := range particles {
		m[p.ID] = p
	}
	return m
}
