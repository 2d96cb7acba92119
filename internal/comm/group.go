// Package comm provides the worker-group abstraction the scheduler uses for
// lockstep coordination: a fixed set of cooperating workers, each owning a
// disjoint particle partition, synchronizing through collective calls.
//
// Decisions derived from global state (the runtime-error flag, the
// used-propagations set) must be identical on every worker; AnyTrue is the
// collective OR-reduction that makes divergent local observations converge
// to one shared verdict.
package comm

import "sync"

// Group is one worker's handle on the cooperating worker set.
//
// Collective calls (AnyTrue, Barrier) are suspension points: they block the
// caller until every member of the group arrives. All members must issue
// the same sequence of collective calls or the group deadlocks.
type Group interface {
	// Size is the number of cooperating workers, identical on all members.
	Size() int
	// Rank identifies this worker; rank 0 is the coordinator.
	Rank() int
	// AnyTrue performs a collective OR-reduction of the local flag and
	// broadcasts the result to every member.
	AnyTrue(local bool) bool
	// Barrier blocks until all members arrive.
	Barrier()
}

// Solo is the single-worker group: every collective is a local no-op.
// This is the only group on which interrupt handling is enabled.
type Solo struct{}

func (Solo) Size() int { return 1 }
func (Solo) Rank() int { return 0 }
func (Solo) AnyTrue(local bool) bool { return local }
func (Solo) Barrier() {}

// localGroup couples n in-process workers through a reusable barrier with
// an OR accumulator. Used to exercise the lockstep protocol in tests and in
// multi-goroutine runs.
type localGroup struct {
	state *localState
	rank  int
}

type localState struct {
	mu      sync.Mutex
	cond    *sync.Cond
	size    int
	arrived int
	phase   uint64
	acc     bool
	result  bool
}

// NewLocalGroup creates n coupled group handles, one per worker goroutine.
func NewLocalGroup(n int) []Group {
	if n < 1 {
		panic("comm: group size must be >= 1")
	}
	st := &localState{size: n}
	st.cond = sync.NewCond(&st.mu)
	gs := make([]Group, n)
	for i := range gs {
		gs[i] = &localGroup{state: st, rank: i}
	}
	return gs
}

func (g *localGroup) Size() int { return g.state.size }
func (g *localGroup) Rank() int { return g.rank }

func (g *localGroup) AnyTrue(local bool) bool {
	st := g.state
	st.mu.Lock()
	defer st.mu.Unlock()

	st.acc = st.acc || local
	st.arrived++
	if st.arrived == st.size {
		// last to arrive publishes the reduction and opens the next phase
		st.result = st.acc
		st.acc = false
		st.arrived = 0
		st.phase++
		st.cond.Broadcast()
		return st.result
	}
	phase := st.phase
	for st.phase == phase {
		st.cond.Wait()
	}
	return st.result
}

func (g *localGroup) Barrier() {
	g.AnyTrue(false)
}
