package system

import (
	"github.com/softmatterlab/mdsim/internal/propagation"
	"github.com/softmatterlab/mdsim/internal/sim"
)

// RelativeSites maintains virtual sites that rigidly follow a real
// particle at a fixed offset. Sites carry no independent momentum: their
// positions are reconstructed before force evaluation and their forces are
// folded back onto the reference particle afterwards.
type RelativeSites struct {
	cells   *CellList
	offsets map[int][3]float64 // site id -> offset from reference
}

func NewRelativeSites(cells *CellList) *RelativeSites {
	return &RelativeSites{cells: cells, offsets: make(map[int][3]float64)}
}

// Bind attaches a site to a reference particle at the site's current
// relative position.
func (v *RelativeSites) Bind(site, ref *sim.Particle) {
	site.RelateTo(ref)
	var off [3]float64
	for i := 0; i < 3; i++ {
		off[i] = site.Pos[i] - ref.Pos[i]
	}
	v.offsets[site.ID] = off
}

func (v *RelativeSites) Update() {
	index := v.index()
	for _, p := range v.cells.LocalParticles() {
		if !p.Propagation.Has(propagation.TransVSRelative) {
			continue
		}
		ref, ok := index[p.VSRelativeTo]
		if !ok {
			continue
		}
		off := v.offsets[p.ID]
		for i := 0; i < 3; i++ {
			p.Pos[i] = ref.Pos[i] + off[i]
			p.Vel[i] = ref.Vel[i]
		}
	}
}

// AfterForceCalc transfers site forces to their reference particles. The
// torque from the lever arm lands on the reference as well.
func (v *RelativeSites) AfterForceCalc(dt float64) {
	index := v.index()
	for _, p := range v.cells.LocalParticles() {
		if !p.Propagation.Has(propagation.TransVSRelative) {
			continue
		}
		ref, ok := index[p.VSRelativeTo]
		if !ok {
			continue
		}
		off := v.offsets[p.ID]
		ref.Torque[0] += off[1]*p.Force[2] - off[2]*p.Force[1]
		ref.Torque[1] += off[2]*p.Force[0] - off[0]*p.Force[2]
		ref.Torque[2] += off[0]*p.Force[1] - off[1]*p.Force[0]
		for i := 0; i < 3; i++ {
			ref.Force[i] += p.Force[i]
			p.Force[i] = 0
		}
	}
}

// AfterFluidCoupling re-syncs site velocities after the fluid exchanged
// momentum with the reference particles.
func (v *RelativeSites) AfterFluidCoupling(dt float64) {
	index := v.index()
	for _, p := range v.cells.LocalParticles() {
		if !p.Propagation.Has(propagation.TransVSRelative) {
			continue
		}
		if ref, ok := index[p.VSRelativeTo]; ok {
			p.Vel = ref.Vel
		}
	}
}

func (v *RelativeSites) index() map[int]*sim.Particle {
	m := make(map[int]*sim.Particle, len(v.cells.LocalParticles()))
	for _, p := range v.cells.LocalParticles() {
		m[p.ID] = p
	}
	return m
}
