package integrator

import "sync/atomic"

// InterruptLatch is the cooperative interrupt flag. An outside party
// (typically the CLI's signal wiring) calls Request; the scheduler polls
// and clears the latch at exactly one point per step.
//
// The latch is only honored when a single worker participates, since
// interrupt delivery across cooperating workers is not reliable. Once
// consumed, re-raising requires a new run.
type InterruptLatch struct {
	flag atomic.Bool
}

// Request records that an interrupt was requested. Safe from any
// goroutine; merely records, never acts.
func (l *InterruptLatch) Request() {
	l.flag.Store(true)
}

// TestAndClear consumes the latch: it reports whether an interrupt was
// requested and resets the flag.
func (l *InterruptLatch) TestAndClear() bool {
	return l.flag.Swap(false)
}
