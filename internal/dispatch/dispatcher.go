// Package dispatch implements the asynchronous operation pipeline:
// envelopes prepared on the caller's goroutine are executed on a
// bounded worker pool and completed on a single completion-loop
// goroutine, which is the only place callbacks ever run.
//
// Stage ordering per envelope is strict (prepare, execute, respond),
// each on its designated goroutine, with queue handoffs providing the
// happens-before edges. Across envelopes there is no ordering
// guarantee: completions are delivered in the order background work
// finishes, not the order calls were issued.
package dispatch

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/hivekv/hive/internal/backend"
	"github.com/hivekv/hive/internal/native"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

// Dispatcher owns the worker pool and the completion loop for one
// client. Submit is safe from any goroutine and never blocks on
// backend latency.
type Dispatcher struct {
	handle backend.Handle
	logger *slog.Logger

	tasks       *envelopeQueue
	completions *envelopeQueue

	workerWG sync.WaitGroup
	loopDone chan struct{}
	closed   atomic.Bool
}

// New creates a Dispatcher with the given pool size and starts its
// goroutines. workers <= 0 selects DefaultWorkers.
func New(handle backend.Handle, workers int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		handle:      handle,
		logger:      logger,
		tasks:       newEnvelopeQueue(),
		completions: newEnvelopeQueue(),
		loopDone:    make(chan struct{}),
	}

	d.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	go d.completionLoop()

	return d
}

// Submit hands an envelope to the pipeline and returns immediately.
// Envelopes that already carry an error (prepare-time parameter
// errors) skip the store call but still complete asynchronously, so
// the caller sees one uniform callback path.
func (d *Dispatcher) Submit(env *Envelope) {
	if d.closed.Load() {
		env.Err = native.NewError(native.StatusErrClient, "client closed")
		d.complete(env)
		return
	}

	if env.Err != nil {
		d.complete(env)
		return
	}

	if !d.tasks.Enqueue(env) {
		env.Err = native.NewError(native.StatusErrClient, "client closed")
		d.complete(env)
	}
}

// Close stops accepting new envelopes, drains in-flight work, and
// waits for every pending callback to be delivered.
func (d *Dispatcher) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	d.tasks.Close()
	d.workerWG.Wait()
	d.completions.Close()
	<-d.loopDone
}

// complete routes an envelope to the completion loop. After shutdown
// the loop is gone, so late envelopes get their own goroutine: the
// callback contract (asynchronous, exactly once) holds even then.
func (d *Dispatcher) complete(env *Envelope) {
	if !d.completions.Enqueue(env) {
		go d.respond(env)
	}
}

// worker drains the task queue, running one blocking store call per
// envelope. Native structures only; the dynamic model is never touched
// here.
func (d *Dispatcher) worker() {
	defer d.workerWG.Done()

	for {
		env, ok := d.tasks.Dequeue()
		if !ok {
			return
		}
		env.Err = env.Op.Execute(context.Background(), d.handle)
		d.complete(env)
	}
}

// completionLoop is the single goroutine on which every callback runs,
// in FIFO order of completion.
func (d *Dispatcher) completionLoop() {
	defer close(d.loopDone)

	for {
		env, ok := d.completions.Dequeue()
		if !ok {
			return
		}
		d.respond(env)
	}
}

// respond converts and delivers one completion. A panic raised by user
// callback code is caught here and reported; it must not take down the
// process or wedge the loop.
func (d *Dispatcher) respond(env *Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("unhandled fault in completion callback",
				slog.String("envelope", env.ID.String()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	env.Op.Respond(env.Err)
}
