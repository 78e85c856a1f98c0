package merge

import (
	"context"
	"sync/atomic"
)

const (
	flagNone int32 = iota
	flagCancelRequested
	flagCommitted
)

// Handle controls and observes one running job.
type Handle struct {
	job    Job
	ctx    context.Context
	cancel context.CancelFunc

	flag  atomic.Int32
	state atomic.Int32

	progress chan int
	last     int // written only by the pipeline goroutine

	done    chan struct{}
	outcome Outcome
}

func newHandle(parent context.Context, job Job) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{
		job:      job,
		ctx:      ctx,
		cancel:   cancel,
		progress: make(chan int, 1),
		done:     make(chan struct{}),
	}
	h.state.Store(int32(StateRunning))
	return h
}

// Job returns the job the handle runs, with the destination resolved.
func (h *Handle) Job() Job { return h.job.clone() }

// Cancel requests cooperative cancellation. It is idempotent and has no
// effect once the job has committed to success or finished.
func (h *Handle) Cancel() {
	if h.flag.CompareAndSwap(flagNone, flagCancelRequested) {
		h.cancel()
	}
}

// Progress delivers percentages in [0,100], non-decreasing. Slow readers see
// the latest value; 100 is sent only on success. The channel is closed when
// the job finishes.
func (h *Handle) Progress() <-chan int { return h.progress }

// Done is closed once the Outcome is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Outcome returns the terminal result and whether the job has finished.
func (h *Handle) Outcome() (Outcome, bool) {
	select {
	case <-h.done:
		return h.outcome, true
	default:
		return Outcome{State: h.State()}, false
	}
}

// Wait blocks until the job finishes and returns its Outcome.
func (h *Handle) Wait() Outcome {
	<-h.done
	return h.outcome
}

// State returns the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// stopped is the per-line checkpoint: true once cancellation was requested
// directly or through the parent context, unless success was committed.
func (h *Handle) stopped() bool {
	switch h.flag.Load() {
	case flagCommitted:
		return false
	case flagCancelRequested:
		return true
	}
	return h.ctx.Err() != nil
}

// commit marks the job as succeeded; a later Cancel is a no-op. It fails
// when cancellation won the race.
func (h *Handle) commit() bool {
	if h.ctx.Err() != nil {
		return false
	}
	return h.flag.CompareAndSwap(flagNone, flagCommitted)
}

func (h *Handle) emit(pct int) {
	if pct > 100 {
		pct = 100
	}
	if pct <= h.last || h.stopped() {
		return
	}
	h.last = pct
	for {
		select {
		case h.progress <- pct:
			return
		default:
		}
		// drop the unread older value; this goroutine is the only writer
		select {
		case <-h.progress:
		default:
		}
	}
}

func (h *Handle) finish(outcome Outcome) {
	h.outcome = outcome
	h.state.Store(int32(outcome.State))
	close(h.progress)
	h.cancel()
	close(h.done)
}
