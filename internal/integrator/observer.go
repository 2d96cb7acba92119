package integrator

// Observer receives a callback for each phase of the step state machine
// that actually ran. Used for trace snapshots and diagnostics; the
// scheduler behaves identically with or without one.
type Observer interface {
	StepPhase(step int, phase string)
}

func (ig *Integrator) observe(step int, phase string) {
	if ig.observer != nil {
		ig.observer.StepPhase(step, phase)
	}
}
