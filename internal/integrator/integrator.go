// Package integrator implements the time-integration scheduler: the
// component that decides, on every simulation step, which propagation
// kernels apply to which particle, sequences the coupled sub-steps around
// force evaluation and ghost synchronization, and handles the control-flow
// concerns of a long-running, multi-worker run (resort policy, runtime
// errors, interrupts, accumulator chunking).
//
// The numerically intricate parts live behind the collaborator interfaces
// in ports.go; the scheduler only invokes them and reacts to their
// reported effects.
package integrator

import (
	"github.com/softmatterlab/mdsim/internal/boundary"
	"github.com/softmatterlab/mdsim/internal/comm"
	"github.com/softmatterlab/mdsim/internal/propagation"
	"github.com/softmatterlab/mdsim/internal/sim"
)

// InactiveCutoff is returned by InteractionRange when no interactions are
// active.
const InactiveCutoff = -1.0

// Integrator drives the two-phase step state machine over one worker's
// particle partition. All workers construct an identical Integrator (up to
// their comm.Group handle) and call the same methods in lockstep.
type Integrator struct {
	ctx     *sim.Context
	group   comm.Group
	sink    *ErrorSink
	cells   CellStructure
	forces  ForceEvaluator
	kernels KernelSet

	constraints  ConstraintSolver
	vsites       VirtualSites
	fluid        FluidSolver
	field        FieldSolver
	collisions   CollisionHandler
	breakage     BondBreakage
	accumulators AccumulatorScheduler
	box          *boundary.ShearedBox

	tokens   TokenGenerator
	latch    InterruptLatch
	observer Observer

	// step-scoped summary of every active propagation mode, recomputed at
	// the start of each Integrate call and read-only afterwards
	usedPropagations propagation.Mode

	// independent phase counters for the coupled solvers
	fluidStep int
	fieldStep int
}

// Option configures optional collaborators on construction.
type Option func(*Integrator)

func WithGroup(g comm.Group) Option {
	return func(ig *Integrator) { ig.group = g }
}

func WithConstraints(c ConstraintSolver) Option {
	return func(ig *Integrator) { ig.constraints = c }
}

func WithVirtualSites(v VirtualSites) Option {
	return func(ig *Integrator) { ig.vsites = v }
}

func WithFluid(f FluidSolver) Option {
	return func(ig *Integrator) { ig.fluid = f }
}

func WithField(f FieldSolver) Option {
	return func(ig *Integrator) { ig.field = f }
}

func WithCollisions(c CollisionHandler) Option {
	return func(ig *Integrator) { ig.collisions = c }
}

func WithBondBreakage(b BondBreakage) Option {
	return func(ig *Integrator) { ig.breakage = b }
}

func WithAccumulators(a AccumulatorScheduler) Option {
	return func(ig *Integrator) { ig.accumulators = a }
}

func WithShearedBox(b *boundary.ShearedBox) Option {
	return func(ig *Integrator) { ig.box = b }
}

func WithTokens(t TokenGenerator) Option {
	return func(ig *Integrator) { ig.tokens = t }
}

func WithObserver(o Observer) Option {
	return func(ig *Integrator) { ig.observer = o }
}

// New wires an Integrator over its mandatory collaborators. Optional
// collaborators default to absent; the step scheduler skips the phases
// that belong to them.
func New(ctx *sim.Context, cells CellStructure, forces ForceEvaluator,
	kernels KernelSet, sink *ErrorSink, opts ...Option) *Integrator {

	ig := &Integrator{
		ctx:     ctx,
		group:   comm.Solo{},
		sink:    sink,
		cells:   cells,
		forces:  forces,
		kernels: kernels,
		tokens:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(ig)
	}
	return ig
}

// Context returns the simulation context this integrator mutates.
func (ig *Integrator) Context() *sim.Context { return ig.ctx }

// Sink returns the runtime-error sink collaborators report into.
func (ig *Integrator) Sink() *ErrorSink { return ig.sink }

// Latch returns the interrupt latch polled once per step.
func (ig *Integrator) Latch() *InterruptLatch { return &ig.latch }

// UsedPropagations returns the step-scoped union of all active modes,
// as computed by the last Integrate call.
func (ig *Integrator) UsedPropagations() propagation.Mode {
	return ig.usedPropagations
}

// SetTimeStep sets the particle time step, cross-checking the fluid
// solver's internal step when one is active.
func (ig *Integrator) SetTimeStep(dt float64) error {
	if err := ig.ctx.SetTimeStep(dt); err != nil {
		return err
	}
	if ig.fluid != nil && ig.fluid.Active() {
		if err := ig.fluid.CheckTauConsistency(dt); err != nil {
			return &sim.ConfigError{Field: "time_step", Message: err.Error()}
		}
	}
	return nil
}

// SetShearProtocol installs a sheared-boundary protocol, marks forces
// stale and requests a local resort: image bookkeeping changed under the
// particles. Fails when no sheared box was configured at construction.
func (ig *Integrator) SetShearProtocol(p boundary.Protocol) error {
	if ig.box == nil {
		return &sim.ConfigError{Field: "shear", Message: "no sheared box configured"}
	}
	ig.box.SetProtocol(p, ig.ctx.Time())
	ig.ctx.SetRecalcForces(true)
	ig.cells.SetResortLevel(ResortLocal)
	return nil
}

// UnsetShearProtocol returns to plain periodic boundaries. A no-op when
// no sheared box was configured.
func (ig *Integrator) UnsetShearProtocol() {
	if ig.box == nil {
		return
	}
	ig.box.UnsetProtocol()
	ig.ctx.SetRecalcForces(true)
	ig.cells.SetResortLevel(ResortLocal)
}

// SetTime sets the simulation clock and re-evaluates the boundary
// parameters at the new time, so offset queries between runs see the
// moved clock.
func (ig *Integrator) SetTime(t float64) {
	ig.ctx.SetTime(t)
	ig.box.UpdateParams(t)
}

// SetTokenGenerator replaces the run-token source used by subsequent
// Integrate calls.
func (ig *Integrator) SetTokenGenerator(t TokenGenerator) { ig.tokens = t }

// InteractionRange is the interaction cutoff plus skin, or InactiveCutoff
// when there are no interactions to consider.
func (ig *Integrator) InteractionRange() float64 {
	maxCut := ig.forces.MaxCutoff()
	if maxCut <= 0 {
		return InactiveCutoff
	}
	skin, _ := ig.ctx.Skin()
	return maxCut + skin
}
