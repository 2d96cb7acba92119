package integrator

import (
	"math"

	"github.com/softmatterlab/mdsim/internal/sim"
)

// IntegrateWithAccumulators subdivides a requested run into consecutive
// segments, each bounded by the next statistics-accumulation due-point,
// and samples the accumulators after each segment.
//
// Within one request, every segment after the first trusts the forces
// computed at the end of the previous one, so the reuse policy is forced
// to ReuseForcesAlways.
//
// When no accumulator updates are wanted (or none are configured) this is
// a plain Integrate. A missing skin setting is derived from the
// interaction cutoffs first; if that is impossible the call fails with a
// configuration error before any step executes.
func (ig *Integrator) IntegrateWithAccumulators(nSteps int, reuse ReusePolicy,
	updateAccumulators bool) (Result, error) {

	if nSteps < 0 {
		return Result{Status: StatusRuntimeError},
			&sim.ConfigError{Field: "steps", Message: "must be >= 0"}
	}

	if !updateAccumulators || nSteps == 0 || ig.accumulators == nil {
		return ig.Integrate(nSteps, reuse), nil
	}

	if err := ig.deriveSkinIfUnset(); err != nil {
		return Result{Status: StatusRuntimeError}, err
	}

	total := 0
	for done := 0; done < nSteps; {
		// integrate to the next accumulator due-point or the end,
		// whichever comes first
		segment := nSteps - done
		if due := ig.accumulators.NextDueInSteps(); due < segment {
			segment = due
		}
		if segment < 1 {
			segment = 1
		}

		res := ig.Integrate(segment, reuse)
		total += res.Steps
		if res.Status != StatusOK {
			return Result{Status: res.Status, Steps: total}, nil
		}

		reuse = ReuseForcesAlways

		ig.accumulators.Run(segment)
		done += segment
	}

	return Result{Status: StatusOK, Steps: total}, nil
}

// deriveSkinIfUnset makes an educated guess for the Verlet skin when the
// user never set one: a fraction of the maximal interaction cutoff, capped
// by what the cell geometry can serve without resorting.
func (ig *Integrator) deriveSkinIfUnset() error {
	if _, set := ig.ctx.Skin(); set {
		return nil
	}
	maxCut := ig.forces.MaxCutoff()
	if maxCut <= 0 {
		return &sim.ConfigError{
			Field:   "skin",
			Message: "cannot automatically determine skin, please set it manually",
		}
	}
	maxRange := ig.cells.MaxRange()
	return ig.ctx.SetSkin(math.Min(0.4*maxCut, maxRange-maxCut))
}
