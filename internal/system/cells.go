package system

import (
	"math"

	"github.com/softmatterlab/mdsim/internal/integrator"
	"github.com/softmatterlab/mdsim/internal/sim"
)

// CellList is the single-worker reference cell structure: it owns the
// local particle set, maintains periodic-image ghosts within the
// interaction range, and tracks displacement since the last rebuild for
// the resort decision.
type CellList struct {
	boxL  [3]float64
	reach float64 // interaction range served by the ghost halo

	local  []*sim.Particle
	ghosts []*sim.Particle

	lastResortPos map[int][3]float64
	resortLevel   integrator.ResortLevel
	rebuilds      int

	// shearOffset reports the boundary position offset at rebuild time;
	// nil when no sheared boundary is configured.
	shearOffset func() float64

	posOffsetAtResort float64
}

// NewCellList builds a cell structure over the given particle set. reach
// must cover the interaction cutoff plus skin; ghosts are regenerated on
// every exchange.
func NewCellList(boxL [3]float64, reach float64, particles []*sim.Particle) *CellList {
	c := &CellList{
		boxL:          boxL,
		reach:         reach,
		local:         particles,
		lastResortPos: make(map[int][3]float64, len(particles)),
		resortLevel:   integrator.ResortGlobal,
	}
	c.UpdateGhosts()
	return c
}

// SetShearOffsetSource installs the callback sampled at rebuild time when a
// sheared boundary is active.
func (c *CellList) SetShearOffsetSource(f func() float64) { c.shearOffset = f }

func (c *CellList) LocalParticles() []*sim.Particle { return c.local }
func (c *CellList) GhostParticles() []*sim.Particle { return c.ghosts }

func (c *CellList) SetResortLevel(level integrator.ResortLevel) {
	if level > c.resortLevel {
		c.resortLevel = level
	}
}

func (c *CellList) ResortLevel() integrator.ResortLevel { return c.resortLevel }

func (c *CellList) PosOffsetAtLastResort() float64 { return c.posOffsetAtResort }

// Rebuilds counts index rebuilds since construction.
func (c *CellList) Rebuilds() int { return c.rebuilds }

// MaxRange is the largest interaction range the periodic geometry can
// serve: half of the shortest box edge.
func (c *CellList) MaxRange() float64 {
	r := c.boxL[0]
	for i := 1; i < 3; i++ {
		if c.boxL[i] < r {
			r = c.boxL[i]
		}
	}
	return 0.5 * r
}

// CheckResortRequired reports whether any particle drifted far enough
// since the last rebuild that the verlet lists may miss a pair. The
// extraOffset accounts for relative travel across a sheared boundary.
func (c *CellList) CheckResortRequired(skin, extraOffset float64) bool {
	var maxSq float64
	for _, p := range c.local {
		ref, ok := c.lastResortPos[p.ID]
		if !ok {
			return true
		}
		var dsq float64
		for i := 0; i < 3; i++ {
			d := p.Pos[i] - ref[i]
			dsq += d * d
		}
		if dsq > maxSq {
			maxSq = dsq
		}
	}
	return math.Sqrt(maxSq)+extraOffset > 0.5*skin
}

// UpdateGhosts performs any pending resort, then regenerates the ghost
// halo from periodic images. In the single-worker structure the exchange
// is local; a domain-decomposed implementation communicates here.
func (c *CellList) UpdateGhosts() {
	if c.resortLevel >= integrator.ResortLocal {
		c.fold()
		for _, p := range c.local {
			c.lastResortPos[p.ID] = p.Pos
		}
		if c.shearOffset != nil {
			c.posOffsetAtResort = c.shearOffset()
		}
		c.rebuilds++
		c.resortLevel = integrator.ResortNone
	}
	c.rebuildGhosts()
}

// fold wraps particle positions back into the primary box.
func (c *CellList) fold() {
	for _, p := range c.local {
		for i := 0; i < 3; i++ {
			p.Pos[i] -= c.boxL[i] * math.Floor(p.Pos[i]/c.boxL[i])
		}
	}
}

// rebuildGhosts emits one image copy per periodic face a particle sits
// within reach of. Images share the source particle's identity so force
// contributions can be folded back.
func (c *CellList) rebuildGhosts() {
	c.ghosts = c.ghosts[:0]
	for _, p := range c.local {
		for dim := 0; dim < 3; dim++ {
			if p.Pos[dim] < c.reach {
				img := *p
				img.Pos[dim] += c.boxL[dim]
				c.ghosts = append(c.ghosts, &img)
			} else if p.Pos[dim] > c.boxL[dim]-c.reach {
				img := *p
				img.Pos[dim] -= c.boxL[dim]
				c.ghosts = append(c.ghosts, &img)
			}
		}
	}
}
