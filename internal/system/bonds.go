package system

import (
	"math"

	"github.com/softmatterlab/mdsim/internal/sim"
)

// BondRegistry holds the breakable bonds shared by the collision binder
// and the breakage queue. Not safe for concurrent use; the scheduler is
// the only caller during a run.
type BondRegistry struct {
	bonds []Bond
}

func NewBondRegistry(bonds []Bond) *BondRegistry {
	return &BondRegistry{bonds: bonds}
}

func (r *BondRegistry) Bonds() []Bond { return r.bonds }

func (r *BondRegistry) has(a, b int) bool {
	for _, bond := range r.bonds {
		if (bond.A == a && bond.B == b) || (bond.A == b && bond.B == a) {
			return true
		}
	}
	return false
}

// CollisionBinder creates a bond between particle pairs that approach
// within the binding distance. Runs once per step after force evaluation.
type CollisionBinder struct {
	cells    *CellList
	registry *BondRegistry

	// BindDistance is the center distance below which a pair binds.
	BindDistance float64

	created int
}

func NewCollisionBinder(cells *CellList, registry *BondRegistry, bindDistance float64) *CollisionBinder {
	return &CollisionBinder{cells: cells, registry: registry, BindDistance: bindDistance}
}

func (c *CollisionBinder) Created() int { return c.created }

func (c *CollisionBinder) Handle() {
	local := c.cells.LocalParticles()
	bindSq := c.BindDistance * c.BindDistance
	for i, pa := range local {
		for _, pb := range local[i+1:] {
			if c.registry.has(pa.ID, pb.ID) {
				continue
			}
			if distSq(pa, pb) < bindSq {
				c.registry.bonds = append(c.registry.bonds,
					Bond{A: pa.ID, B: pb.ID, Length: c.BindDistance})
				c.created++
			}
		}
	}
}

// BreakageQueue removes bonds stretched past their breaking length. The
// scan is deferred to once per step so a bond under transient strain mid-
// step survives.
type BreakageQueue struct {
	cells    *CellList
	registry *BondRegistry

	// BreakFactor scales the rest length into the breaking length.
	BreakFactor float64

	broken []Bond
}

func NewBreakageQueue(cells *CellList, registry *BondRegistry, breakFactor float64) *BreakageQueue {
	return &BreakageQueue{cells: cells, registry: registry, BreakFactor: breakFactor}
}

func (q *BreakageQueue) Broken() []Bond { return q.broken }

func (q *BreakageQueue) ProcessQueue() {
	index := particleIndex(q.cells.LocalParticles())
	kept := q.registry.bonds[:0]
	for _, b := range q.registry.bonds {
		pa, okA := index[b.A]
		pb, okB := index[b.B]
		if okA && okB && math.Sqrt(distSq(pa, pb)) > q.BreakFactor*b.Length {
			q.broken = append(q.broken, b)
			continue
		}
		kept = append(kept, b)
	}
	q.registry.bonds = kept
}

func distSq(a, b *sim.Particle) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		d := a.Pos[i] - b.Pos[i]
		sum += d * d
	}
	return sum
}
