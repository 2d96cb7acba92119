package integrator

import "github.com/softmatterlab/mdsim/internal/sim"

// ResortLevel is the pending spatial-index rebuild scope.
type ResortLevel int

const (
	ResortNone ResortLevel = iota
	ResortLocal
	ResortGlobal
)

// CellStructure is the spatial-index collaborator: particle partitions,
// ghost halos, and the resort machinery.
//
// UpdateGhosts is a collective call: it blocks until every worker arrives,
// performs any pending resort, and exchanges halo positions with
// neighboring workers.
type CellStructure interface {
	LocalParticles() []*sim.Particle
	GhostParticles() []*sim.Particle

	// CheckResortRequired reports whether accumulated displacement since
	// the last rebuild, widened by extraOffset, exceeds the skin.
	CheckResortRequired(skin, extraOffset float64) bool

	// SetResortLevel requests a rebuild during the next UpdateGhosts.
	SetResortLevel(level ResortLevel)
	ResortLevel() ResortLevel

	UpdateGhosts()

	// PosOffsetAtLastResort returns the boundary shear offset recorded
	// when the index was last rebuilt.
	PosOffsetAtLastResort() float64

	// MaxRange is the largest interaction range the cell geometry can
	// serve without resorting. Used for skin auto-derivation.
	MaxRange() float64
}

// ForceEvaluator computes forces for the full particle set (local plus
// ghost). It may report a recoverable error to the sink it was constructed
// with, for example when a long-range solver is not configured.
type ForceEvaluator interface {
	Compute(cells CellStructure, dt, kT float64)

	// MaxCutoff is the largest interaction cutoff, or a non-positive
	// value when no interactions are active.
	MaxCutoff() float64
}

// KernelSet bundles the propagation kernels the step scheduler dispatches
// to. The concrete update formulas live behind this interface; the
// scheduler only sequences the calls.
type KernelSet interface {
	// step 1: position/orientation half-updates
	LangevinPosition(p *sim.Particle, dt float64)
	LangevinRotation(p *sim.Particle, dt float64)
	BrownianPosition(p *sim.Particle, dt, kT float64)
	BrownianRotation(p *sim.Particle, dt, kT float64)
	NPTStep1(particles []*sim.Particle, dt float64)
	StokesianStep1(particles []*sim.Particle, dt float64)

	// SteepestDescentStep relaxes the whole set once and reports whether
	// convergence was reached (the only early-exit path).
	SteepestDescentStep(particles []*sim.Particle) bool

	// step 2: velocity finalization
	LangevinVelocity(p *sim.Particle, dt float64)
	LangevinOmega(p *sim.Particle, dt float64)
	NPTStep2(particles []*sim.Particle, dt float64)

	// NPTSyncState synchronizes box/piston state across workers after a
	// run under the NPT scheme.
	NPTSyncState()

	// ConvertInitialTorques prepares rotational state once after the
	// initial force computation.
	ConvertInitialTorques(particles []*sim.Particle)

	// AdvanceRNGCounter moves the counter-based random stream forward so
	// stochastic kernels draw fresh, reproducible values next step.
	AdvanceRNGCounter()
}

// ConstraintSolver corrects positions and velocities of particles bound by
// rigid bonds. Only consulted when Configured reports true.
type ConstraintSolver interface {
	Configured() bool
	SavePositions(local, ghosts []*sim.Particle)
	CorrectPositions(cells CellStructure)
	CorrectVelocities(cells CellStructure)
}

// VirtualSites reconstructs virtual-site positions before force
// evaluation and redistributes forces and coupling effects afterwards.
type VirtualSites interface {
	Update()
	AfterForceCalc(dt float64)
	AfterFluidCoupling(dt float64)
}

// FluidSolver is the momentum-transport solver with its own cadence plus
// the per-step particle coupling, which is decoupled from that cadence.
type FluidSolver interface {
	Active() bool
	StepsPerParticleStep(dt float64) int
	Propagate()

	// PropagateCoupling applies particle-fluid momentum coupling; called
	// once per particle step while coupling is active.
	PropagateCoupling()
	ActivateCoupling()
	DeactivateCoupling()

	// CheckTauConsistency verifies the solver's internal time step is
	// commensurable with the particle time step.
	CheckTauConsistency(dt float64) error
}

// FieldSolver is the field/species-transport solver. It has a cadence but
// no per-particle coupling.
type FieldSolver interface {
	Active() bool
	StepsPerParticleStep(dt float64) int
	Propagate()
}

// CollisionHandler processes collision candidates once per step.
type CollisionHandler interface {
	Handle()
}

// BondBreakage processes the deferred bond-breakage queue once per step.
type BondBreakage interface {
	ProcessQueue()
}

// AccumulatorScheduler bounds run chunks by statistics-accumulation
// due-points and samples the accumulators after each chunk.
type AccumulatorScheduler interface {
	// NextDueInSteps returns how many steps remain until the next
	// accumulator is due. Always >= 1.
	NextDueInSteps() int
	Run(stepsElapsed int)
}
