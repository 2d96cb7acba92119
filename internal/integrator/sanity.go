package integrator

import (
	"github.com/softmatterlab/mdsim/internal/propagation"
	"github.com/softmatterlab/mdsim/internal/sim"
)

// computeUsedPropagations recomputes the step-scoped union of all local
// particles' masks, folding in the default mask when any particle opted
// into the system default. Runs at the start of every Integrate call; the
// result is read-only for the remainder of the call.
func (ig *Integrator) computeUsedPropagations() {
	used := propagation.None
	for _, p := range ig.cells.LocalParticles() {
		used |= p.Propagation
	}
	if used&propagation.TransSystemDefault != 0 {
		used |= ig.ctx.DefaultPropagation()
	}
	ig.usedPropagations = used
}

// propagationSanityChecks rejects mutually exclusive simultaneous
// activations. NPT translation cannot coexist with independently
// propagated translation modes; the reverse direction is deliberately not
// checked.
func (ig *Integrator) propagationSanityChecks() {
	const conflicting = propagation.TransBrownian |
		propagation.TransLangevin | propagation.TransStokesian
	if ig.usedPropagations&propagation.TransLangevinNPT != 0 &&
		ig.usedPropagations&conflicting != 0 {
		ig.sink.Reportf(ErrCodePropagationConflict,
			"NPT translation is incompatible with other translation modes")
	}
}

// thermostatRule enumerates the thermostat states one scheme tolerates.
type thermostatRule struct {
	tolerates func(sim.Thermostat) bool
	message   string
}

// thermostatRules is the scheme/thermostat compatibility matrix. Kept as a
// table so the matrix stays auditable in one place.
var thermostatRules = map[propagation.Scheme]thermostatRule{
	propagation.SteepestDescent: {
		tolerates: func(t sim.Thermostat) bool { return t == sim.ThermoOff },
		message:   "the steepest descent integrator is incompatible with thermostats",
	},
	propagation.VelocityVerlet: {
		tolerates: func(t sim.Thermostat) bool {
			return t&(sim.ThermoNPTIso|sim.ThermoBrownian|sim.ThermoSD) == 0
		},
		message: "the velocity-Verlet integrator is incompatible with the currently active combination of thermostats",
	},
	propagation.NPTIsotropic: {
		tolerates: func(t sim.Thermostat) bool {
			return t == sim.ThermoOff || t == sim.ThermoNPTIso
		},
		message: "the NpT integrator requires the NpT thermostat",
	},
	propagation.BrownianDynamics: {
		tolerates: func(t sim.Thermostat) bool { return t == sim.ThermoBrownian },
		message:   "the BD integrator requires the BD thermostat",
	},
	propagation.StokesianDynamics: {
		tolerates: func(t sim.Thermostat) bool {
			return t == sim.ThermoOff || t == sim.ThermoSD
		},
		message: "the SD integrator requires the SD thermostat",
	},
}

// integratorSanityChecks validates the run configuration against the
// active scheme. Violations are reported to the sink as recoverable
// runtime errors; the collective check after this decides the abort.
func (ig *Integrator) integratorSanityChecks() {
	if ig.ctx.TimeStep() < 0 {
		ig.sink.Reportf(ErrCodeTimeStepUnset, "time step not set")
	}

	scheme := ig.ctx.Scheme()
	rule, ok := thermostatRules[scheme]
	if !ok {
		ig.sink.Reportf(ErrCodeIncompatibleThermostat,
			"unknown integration scheme %d", int(scheme))
		return
	}
	if !rule.tolerates(ig.ctx.Thermostat()) {
		ig.sink.Reportf(ErrCodeIncompatibleThermostat, "%s", rule.message)
	}

	if scheme == propagation.NPTIsotropic && ig.box.Active() {
		ig.sink.Reportf(ErrCodeBoundaryConflict,
			"the NpT integrator cannot run under a sheared boundary")
	}
}
