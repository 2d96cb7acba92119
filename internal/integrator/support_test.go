package integrator

import (
	"github.com/softmatterlab/mdsim/internal/propagation"
	"github.com/softmatterlab/mdsim/internal/sim"
)

// fakeCells is a scriptable CellStructure. CheckResortRequired returns
// true on every resortEvery-th call when resortEvery > 0.
type fakeCells struct {
	particles []*sim.Particle
	ghosts    []*sim.Particle

	resortEvery int
	checkCalls  int

	level        ResortLevel
	ghostUpdates int
	rebuilds     int

	maxRange float64
}

func (c *fakeCells) LocalParticles() []*sim.Particle { return c.particles }
func (c *fakeCells) GhostParticles() []*sim.Particle { return c.ghosts }

func (c *fakeCells) CheckResortRequired(skin, extraOffset float64) bool {
	c.checkCalls++
	return c.resortEvery > 0 && c.checkCalls%c.resortEvery == 0
}

func (c *fakeCells) SetResortLevel(level ResortLevel) {
	if level > c.level {
		c.level = level
	}
}

func (c *fakeCells) ResortLevel() ResortLevel { return c.level }

func (c *fakeCells) UpdateGhosts() {
	c.ghostUpdates++
	if c.level >= ResortLocal {
		c.rebuilds++
		c.level = ResortNone
	}
}

func (c *fakeCells) PosOffsetAtLastResort() float64 { return 0 }

func (c *fakeCells) MaxRange() float64 { return c.maxRange }

// fakeForces counts evaluations and can report a runtime error on a given
// call number.
type fakeForces struct {
	sink       *ErrorSink
	computes   int
	failOnCall int
	maxCutoff  float64
}

func (f *fakeForces) Compute(cells CellStructure, dt, kT float64) {
	f.computes++
	if f.failOnCall > 0 && f.computes == f.failOnCall {
		f.sink.Reportf(ErrCodeForceEvaluation, "long-range solver not configured")
	}
}

func (f *fakeForces) MaxCutoff() float64 { return f.maxCutoff }

// fakeKernels records which particle ids each kernel fired for.
type fakeKernels struct {
	fired map[string][]int

	nptStep1     [][]int // particle ids per invocation
	nptStep2     [][]int
	stokesian    [][]int
	nptSyncs     int
	rngAdvances  int
	initialTorqs int

	steepestCalls    int
	steepestConverge int // converge on this call number (0 = never)
}

func newFakeKernels() *fakeKernels {
	return &fakeKernels{fired: make(map[string][]int)}
}

func (k *fakeKernels) record(name string, p *sim.Particle) {
	k.fired[name] = append(k.fired[name], p.ID)
}

func ids(ps []*sim.Particle) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func (k *fakeKernels) LangevinPosition(p *sim.Particle, dt float64) { k.record("langevin_pos", p) }
func (k *fakeKernels) LangevinRotation(p *sim.Particle, dt float64) { k.record("langevin_rot", p) }
func (k *fakeKernels) BrownianPosition(p *sim.Particle, dt, kT float64) {
	k.record("brownian_pos", p)
}
func (k *fakeKernels) BrownianRotation(p *sim.Particle, dt, kT float64) {
	k.record("brownian_rot", p)
}
func (k *fakeKernels) LangevinVelocity(p *sim.Particle, dt float64) { k.record("langevin_vel", p) }
func (k *fakeKernels) LangevinOmega(p *sim.Particle, dt float64) { k.record("langevin_omega", p) }

func (k *fakeKernels) NPTStep1(ps []*sim.Particle, dt float64) {
	k.nptStep1 = append(k.nptStep1, ids(ps))
}
func (k *fakeKernels) NPTStep2(ps []*sim.Particle, dt float64) {
	k.nptStep2 = append(k.nptStep2, ids(ps))
}
func (k *fakeKernels) StokesianStep1(ps []*sim.Particle, dt float64) {
	k.stokesian = append(k.stokesian, ids(ps))
}

func (k *fakeKernels) SteepestDescentStep(ps []*sim.Particle) bool {
	k.steepestCalls++
	return k.steepestConverge > 0 && k.steepestCalls >= k.steepestConverge
}

func (k *fakeKernels) NPTSyncState() { k.nptSyncs++ }
func (k *fakeKernels) ConvertInitialTorques(ps []*sim.Particle) { k.initialTorqs++ }
func (k *fakeKernels) AdvanceRNGCounter() { k.rngAdvances++ }

// fakeFluid is a scriptable momentum-transport solver.
type fakeFluid struct {
	active bool
	ratio  int

	propagations int
	couplings    int
	activates    int
	deactivates  int
}

func (f *fakeFluid) Active() bool { return f.active }
func (f *fakeFluid) StepsPerParticleStep(dt float64) int { return f.ratio }
func (f *fakeFluid) Propagate() { f.propagations++ }
func (f *fakeFluid) PropagateCoupling() { f.couplings++ }
func (f *fakeFluid) ActivateCoupling() { f.activates++ }
func (f *fakeFluid) DeactivateCoupling() { f.deactivates++ }
func (f *fakeFluid) CheckTauConsistency(dt float64) error { return nil }

// fakeField is a scriptable field-transport solver.
type fakeField struct {
	active       bool
	ratio        int
	propagations int
}

func (f *fakeField) Active() bool { return f.active }
func (f *fakeField) StepsPerParticleStep(dt float64) int { return f.ratio }
func (f *fakeField) Propagate() { f.propagations++ }

// fakeAccumulators schedules due-points at absolute step indices.
type fakeAccumulators struct {
	dueAt    []int
	position int
	runs     []int
}

func (a *fakeAccumulators) NextDueInSteps() int {
	for _, due := range a.dueAt {
		if due > a.position {
			return due - a.position
		}
	}
	return 1 << 30
}

func (a *fakeAccumulators) Run(steps int) {
	a.position += steps
	a.runs = append(a.runs, steps)
}

// stubGroup pretends to be part of a larger worker group without any
// actual coupling. AnyTrue degenerates to the local flag.
type stubGroup struct{ size int }

func (g stubGroup) Size() int { return g.size }
func (g stubGroup) Rank() int { return 0 }
func (g stubGroup) AnyTrue(local bool) bool { return local }
func (g stubGroup) Barrier() {}

// phaseEvent is one observer callback.
type phaseEvent struct {
	Step  int    `json:"step"`
	Phase string `json:"phase"`
}

type recorder struct {
	events []phaseEvent
	onStep func(step int, phase string)
}

func (r *recorder) StepPhase(step int, phase string) {
	r.events = append(r.events, phaseEvent{Step: step, Phase: phase})
	if r.onStep != nil {
		r.onStep(step, phase)
	}
}

func (r *recorder) phases() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Phase
	}
	return out
}

// testRig bundles a ready-to-run integrator over fakes.
type testRig struct {
	ctx     *sim.Context
	cells   *fakeCells
	forces  *fakeForces
	kernels *fakeKernels
	sink    *ErrorSink
}

func newRig(masks ...propagation.Mode) *testRig {
	ctx := sim.NewContext(sim.AllFeatures())
	_ = ctx.SetTimeStep(0.01)
	_ = ctx.SetTemperature(1.0)
	_ = ctx.SetSkin(0.4)
	ctx.SetThermostat(sim.ThermoLangevin)

	particles := make([]*sim.Particle, len(masks))
	for i, m := range masks {
		particles[i] = &sim.Particle{ID: i + 1, Mass: 1, Propagation: m}
	}

	sink := &ErrorSink{}
	return &testRig{
		ctx:     ctx,
		cells:   &fakeCells{particles: particles, maxRange: 10},
		forces:  &fakeForces{sink: sink, maxCutoff: 2.5},
		kernels: newFakeKernels(),
		sink:    sink,
	}
}

func (r *testRig) integrator(opts ...Option) *Integrator {
	opts = append([]Option{WithTokens(StaticGenerator{Token: "test-run"})}, opts...)
	return New(r.ctx, r.cells, r.forces, r.kernels, r.sink, opts...)
}
