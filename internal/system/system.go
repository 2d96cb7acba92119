// Package system provides the reference collaborator set behind the
// scheduler's ports: a single-worker cell structure, a Lennard-Jones
// force evaluator, velocity-Verlet/Langevin/Brownian kernels over a
// counter-based noise stream, minimal coupled solvers, and the
// accumulator machinery. The package exists so a configuration file can
// be turned into a runnable simulation; production-scale solvers would
// replace these pieces behind the same interfaces.
package system

import (
	"github.com/softmatterlab/mdsim/internal/boundary"
	"github.com/softmatterlab/mdsim/internal/integrator"
	"github.com/softmatterlab/mdsim/internal/propagation"
	"github.com/softmatterlab/mdsim/internal/sim"
)

// FluidParams configures the momentum-transport solver.
type FluidParams struct {
	Tau   float64
	Gamma float64
}

// FieldParams configures the field-transport solver.
type FieldParams struct {
	Tau     float64
	Rate    float64
	Initial float64
}

// ShearParams configures the sheared periodic boundary.
type ShearParams struct {
	ShearDir  int
	NormalDir int
	Protocol  boundary.Protocol
}

// Params is the full description of one simulation, assembled by the
// configuration layer.
type Params struct {
	Features sim.Features
	Scheme   propagation.Scheme

	BoxL      [3]float64
	Particles []*sim.Particle

	TimeStep    float64 // <= 0 leaves the step unset
	Skin        float64 // < 0 leaves the skin unset
	Temperature float64
	Thermostat  sim.Thermostat

	Epsilon float64
	Sigma   float64
	Cutoff  float64

	Kernels KernelParams

	RigidBonds     []Bond
	BreakableBonds []Bond
	BreakFactor    float64
	BindDistance   float64

	Fluid *FluidParams
	Field *FieldParams
	Shear *ShearParams

	SampleEvery int
}

// System is one fully wired simulation: the context, every collaborator
// and the integrator over them.
type System struct {
	Context    *sim.Context
	Sink       *integrator.ErrorSink
	Cells      *CellList
	Forces     *LennardJones
	Kernels    *Kernels
	Integrator *integrator.Integrator

	Fluid *LatticeFluid
	Field *DiffusionField
	Box   *boundary.ShearedBox

	Accumulators  *AccumulatorSet
	KineticEnergy *TimeSeries
	Bonds         *BondRegistry
}

// Build wires a System from its parameters. Configuration errors surface
// here; runtime errors go through the sink once integration starts.
func Build(p Params) (*System, error) {
	ctx := sim.NewContext(p.Features)
	if err := ctx.SetScheme(p.Scheme); err != nil {
		return nil, err
	}
	if p.TimeStep > 0 {
		if err := ctx.SetTimeStep(p.TimeStep); err != nil {
			return nil, err
		}
	}
	if p.Skin >= 0 {
		if err := ctx.SetSkin(p.Skin); err != nil {
			return nil, err
		}
	}
	if err := ctx.SetTemperature(p.Temperature); err != nil {
		return nil, err
	}
	ctx.SetThermostat(p.Thermostat)

	sink := &integrator.ErrorSink{}
	reach := p.Cutoff
	if p.Skin > 0 {
		reach += p.Skin
	}
	cells := NewCellList(p.BoxL, reach, p.Particles)
	forces := NewLennardJones(p.Epsilon, p.Sigma, p.Cutoff, sink)
	kernels := NewKernels(ctx, p.Kernels)

	sys := &System{
		Context: ctx,
		Sink:    sink,
		Cells:   cells,
		Forces:  forces,
		Kernels: kernels,
	}

	opts := []integrator.Option{}

	if p.Shear != nil {
		sys.Box = &boundary.ShearedBox{
			BoxL:      p.BoxL,
			ShearDir:  p.Shear.ShearDir,
			NormalDir: p.Shear.NormalDir,
		}
		cells.SetShearOffsetSource(sys.Box.PosOffset)
		opts = append(opts, integrator.WithShearedBox(sys.Box))
	}
	if p.Features.BondConstraints && len(p.RigidBonds) > 0 {
		opts = append(opts, integrator.WithConstraints(
			NewDistanceConstraints(p.RigidBonds, 1e-8, 100)))
	}
	if p.Features.VirtualSites {
		opts = append(opts, integrator.WithVirtualSites(NewRelativeSites(cells)))
	}
	if p.Fluid != nil {
		sys.Fluid = NewLatticeFluid(cells, p.Fluid.Tau, p.Fluid.Gamma)
		opts = append(opts, integrator.WithFluid(sys.Fluid))
	}
	if p.Field != nil {
		sys.Field = NewDiffusionField(p.Field.Tau, p.Field.Rate, p.Field.Initial)
		opts = append(opts, integrator.WithField(sys.Field))
	}

	sys.Bonds = NewBondRegistry(p.BreakableBonds)
	if p.Features.Collision && p.BindDistance > 0 {
		opts = append(opts, integrator.WithCollisions(
			NewCollisionBinder(cells, sys.Bonds, p.BindDistance)))
	}
	if p.BreakFactor > 0 {
		opts = append(opts, integrator.WithBondBreakage(
			NewBreakageQueue(cells, sys.Bonds, p.BreakFactor)))
	}

	if p.SampleEvery > 0 {
		acc, ts := KineticEnergyAccumulator(ctx, cells, p.SampleEvery)
		sys.Accumulators = NewAccumulatorSet(acc)
		sys.KineticEnergy = ts
		opts = append(opts, integrator.WithAccumulators(sys.Accumulators))
	}

	sys.Integrator = integrator.New(ctx, cells, forces, kernels, sink, opts...)
	if p.Shear != nil && p.Shear.Protocol != nil {
		if err := sys.Integrator.SetShearProtocol(p.Shear.Protocol); err != nil {
			return nil, err
		}
	}
	return sys, nil
}
