package integrator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/softmatterlab/mdsim/internal/comm"
)

// Status is the outcome of an integration run.
//
// Negative values distinguish the abort reasons so callers can tell "a
// physical inconsistency occurred" from "the user stopped me". The
// completed-step count is reported alongside the status in Result, even on
// early abort, so callers can account for partial progress.
type Status int

const (
	StatusOK           Status = 0
	StatusRuntimeError Status = -1
	StatusInterrupted  Status = -2
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRuntimeError:
		return "runtime_error"
	case StatusInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result reports how an integration run ended and how many steps it
// completed before ending.
type Result struct {
	Status Status
	Steps  int
}

// RuntimeErrorCode categorizes recoverable runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeTimeStepUnset indicates integration was requested before a
	// time step was configured.
	ErrCodeTimeStepUnset RuntimeErrorCode = "TIME_STEP_UNSET"

	// ErrCodeIncompatibleThermostat indicates the active scheme rejects
	// the currently active thermostat combination.
	ErrCodeIncompatibleThermostat RuntimeErrorCode = "INCOMPATIBLE_THERMOSTAT"

	// ErrCodePropagationConflict indicates mutually exclusive propagation
	// modes are simultaneously active.
	ErrCodePropagationConflict RuntimeErrorCode = "PROPAGATION_CONFLICT"

	// ErrCodeCadenceMismatch indicates two coupled solvers are active
	// with different steps-per-particle-step ratios.
	ErrCodeCadenceMismatch RuntimeErrorCode = "CADENCE_MISMATCH"

	// ErrCodeBoundaryConflict indicates the active scheme cannot run
	// under the sheared-boundary protocol.
	ErrCodeBoundaryConflict RuntimeErrorCode = "BOUNDARY_CONFLICT"

	// ErrCodeForceEvaluation indicates the force evaluator vetoed the run
	// (for example an unconfigured long-range solver).
	ErrCodeForceEvaluation RuntimeErrorCode = "FORCE_EVALUATION"
)

// RuntimeError is a recoverable runtime error: it aborts the in-progress
// run at the next step boundary and is surfaced as StatusRuntimeError,
// leaving particle state at its last consistent step.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorSink collects runtime errors reported by the scheduler and its
// collaborators during a step.
//
// Reporting is local and cheap; CheckAndClear is the collective that makes
// every worker agree on whether the run must abort. No error is silently
// swallowed: each is logged when the sink is drained.
type ErrorSink struct {
	mu   sync.Mutex
	errs []*RuntimeError
}

// Report records a runtime error. Safe to call from collaborator code at
// any point inside a step.
func (s *ErrorSink) Report(err *RuntimeError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// Reportf records a runtime error built from a format string.
func (s *ErrorSink) Reportf(code RuntimeErrorCode, format string, args ...any) {
	s.Report(&RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)})
}

// CheckAndClear reduces the local error flag across the worker group,
// logs and clears the locally collected errors, and reports whether any
// worker saw an error. All workers observe the same verdict.
func (s *ErrorSink) CheckAndClear(g comm.Group) bool {
	s.mu.Lock()
	local := len(s.errs) > 0
	for _, err := range s.errs {
		slog.Error("runtime error", "code", string(err.Code), "msg", err.Message)
	}
	s.errs = nil
	s.mu.Unlock()

	return g.AnyTrue(local)
}

// Pending returns the number of errors collected since the last
// CheckAndClear. Used by tests.
func (s *ErrorSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}
