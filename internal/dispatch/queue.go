package dispatch

import "sync"

// envelopeQueue is a thread-safe FIFO queue of operation envelopes.
//
// The queue is unbounded so Submit never blocks the caller: the whole
// point of the pipeline is that issuing an operation returns
// immediately, whatever the worker pool is doing.
//
// Several workers consume the task queue at once, so each enqueue
// signals one parked consumer; a burst of M envelopes wakes up to M
// idle workers instead of trickling through a single wakeup.
type envelopeQueue struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	elements []*Envelope
	closed   bool
}

func newEnvelopeQueue() *envelopeQueue {
	q := &envelopeQueue{
		elements: make([]*Envelope, 0, 64),
	}
	q.notEmpty.L = &q.mu
	return q
}

// Enqueue adds an envelope to the back of the queue and wakes one
// blocked consumer. Returns false if the queue is closed.
func (q *envelopeQueue) Enqueue(e *Envelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.elements = append(q.elements, e)
	q.notEmpty.Signal()
	return true
}

// Dequeue removes and returns the front envelope, blocking until one
// is available. Returns (nil, false) once the queue is closed and
// drained; envelopes enqueued before Close are always delivered.
func (q *envelopeQueue) Dequeue() (*Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.elements) == 0 {
		if q.closed {
			return nil, false
		}
		q.notEmpty.Wait()
	}

	e := q.elements[0]
	// Nil the slot so the envelope (and everything it owns) is
	// collectable as soon as respond releases it.
	q.elements[0] = nil
	if len(q.elements) == 1 {
		q.elements = q.elements[:0]
	} else {
		q.elements = q.elements[1:]
	}
	return e, true
}

// Len returns the current queue length.
func (q *envelopeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.elements)
}

// Close marks the queue as accepting no further envelopes and wakes
// all blocked consumers.
func (q *envelopeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
}
