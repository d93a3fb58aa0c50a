package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivekv/hive/internal/backend"
	"github.com/hivekv/hive/internal/native"
)

// nopHandle satisfies backend.Handle without touching storage.
type nopHandle struct{}

func (nopHandle) Get(context.Context, *native.ReadPolicy, *native.Key, *native.Record) *native.Error {
	return nil
}
func (nopHandle) Select(context.Context, *native.ReadPolicy, *native.Key, []string, *native.Record) *native.Error {
	return nil
}
func (nopHandle) Exists(context.Context, *native.ReadPolicy, *native.Key, *native.Record) *native.Error {
	return nil
}
func (nopHandle) Put(context.Context, *native.WritePolicy, *native.Key, *native.Record) *native.Error {
	return nil
}
func (nopHandle) Remove(context.Context, *native.RemovePolicy, *native.Key) *native.Error {
	return nil
}
func (nopHandle) Operate(context.Context, *native.OperatePolicy, *native.Key, []native.Operation, *native.Record) *native.Error {
	return nil
}
func (nopHandle) BatchGet(context.Context, *native.BatchPolicy, []*native.Key, []native.BatchResult) *native.Error {
	return nil
}
func (nopHandle) Close() error { return nil }

// testOp counts stage invocations and forwards completions.
type testOp struct {
	executed  atomic.Int32
	responded atomic.Int32
	execErr   *native.Error
	onRespond func(err *native.Error)
}

func (o *testOp) Execute(ctx context.Context, h backend.Handle) *native.Error {
	o.executed.Add(1)
	return o.execErr
}

func (o *testOp) Respond(err *native.Error) {
	o.responded.Add(1)
	if o.onRespond != nil {
		o.onRespond(err)
	}
}

func newTestDispatcher(t *testing.T, workers int) *Dispatcher {
	t.Helper()
	d := New(nopHandle{}, workers, nil)
	t.Cleanup(d.Close)
	return d
}

func TestDispatcher_SuccessPath(t *testing.T) {
	d := newTestDispatcher(t, 2)

	done := make(chan *native.Error, 1)
	op := &testOp{onRespond: func(err *native.Error) { done <- err }}
	d.Submit(NewEnvelope(op, nil))

	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
	assert.Equal(t, int32(1), op.executed.Load())
	assert.Equal(t, int32(1), op.responded.Load())
}

func TestDispatcher_PrepareErrorSkipsExecute(t *testing.T) {
	d := newTestDispatcher(t, 2)

	done := make(chan *native.Error, 1)
	op := &testOp{onRespond: func(err *native.Error) { done <- err }}
	d.Submit(NewEnvelope(op, native.ParamError("bad key")))

	select {
	case err := <-done:
		require.NotNil(t, err)
		assert.Equal(t, native.StatusErrParam, err.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
	assert.Equal(t, int32(0), op.executed.Load(), "parameter errors must not reach the store")
	assert.Equal(t, int32(1), op.responded.Load())
}

func TestDispatcher_ExecuteErrorPropagates(t *testing.T) {
	d := newTestDispatcher(t, 1)

	done := make(chan *native.Error, 1)
	op := &testOp{
		execErr:   native.NewError(native.StatusErrNotFound, "missing"),
		onRespond: func(err *native.Error) { done <- err },
	}
	d.Submit(NewEnvelope(op, nil))

	err := <-done
	require.NotNil(t, err)
	assert.Equal(t, native.StatusErrNotFound, err.Code)
}

func TestDispatcher_CallbackPanicDoesNotWedgeLoop(t *testing.T) {
	d := newTestDispatcher(t, 1)

	first := &testOp{onRespond: func(*native.Error) { panic("user callback bug") }}
	d.Submit(NewEnvelope(first, nil))

	done := make(chan struct{})
	second := &testOp{onRespond: func(*native.Error) { close(done) }}
	d.Submit(NewEnvelope(second, nil))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion loop wedged after callback panic")
	}
	assert.Equal(t, int32(1), first.responded.Load())
}

func TestDispatcher_ManyConcurrentExactlyOnce(t *testing.T) {
	d := newTestDispatcher(t, 8)

	const m = 500
	var fired atomic.Int32
	var wg sync.WaitGroup
	wg.Add(m)

	ops := make([]*testOp, m)
	for i := 0; i < m; i++ {
		ops[i] = &testOp{onRespond: func(*native.Error) {
			fired.Add(1)
			wg.Done()
		}}
	}

	// Issue from several goroutines at once.
	var issue sync.WaitGroup
	for g := 0; g < 4; g++ {
		issue.Add(1)
		go func(g int) {
			defer issue.Done()
			for i := g; i < m; i += 4 {
				d.Submit(NewEnvelope(ops[i], nil))
			}
		}(g)
	}
	issue.Wait()
	wg.Wait()

	assert.Equal(t, int32(m), fired.Load())
	for i, op := range ops {
		require.Equal(t, int32(1), op.responded.Load(), "op %d", i)
		require.Equal(t, int32(1), op.executed.Load(), "op %d", i)
	}
}

func TestDispatcher_CloseDrainsPending(t *testing.T) {
	d := New(nopHandle{}, 2, nil)

	const n = 50
	var fired atomic.Int32
	for i := 0; i < n; i++ {
		op := &testOp{onRespond: func(*native.Error) { fired.Add(1) }}
		d.Submit(NewEnvelope(op, nil))
	}

	d.Close()
	assert.Equal(t, int32(n), fired.Load(), "Close waits for every pending callback")
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d := New(nopHandle{}, 1, nil)
	d.Close()

	done := make(chan *native.Error, 1)
	op := &testOp{onRespond: func(err *native.Error) { done <- err }}
	d.Submit(NewEnvelope(op, nil))

	select {
	case err := <-done:
		require.NotNil(t, err)
		assert.Equal(t, native.StatusErrClient, err.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("post-close submit never completed")
	}
	assert.Equal(t, int32(0), op.executed.Load())
}

func TestEnvelopeQueue_FIFO(t *testing.T) {
	q := newEnvelopeQueue()

	a := NewEnvelope(&testOp{}, nil)
	b := NewEnvelope(&testOp{}, nil)
	c := NewEnvelope(&testOp{}, nil)
	require.True(t, q.Enqueue(a))
	require.True(t, q.Enqueue(b))
	require.True(t, q.Enqueue(c))
	assert.Equal(t, 3, q.Len())

	got, ok := q.Dequeue()
	require.True(t, ok)
	assert.Same(t, a, got)
	got, _ = q.Dequeue()
	assert.Same(t, b, got)
	got, _ = q.Dequeue()
	assert.Same(t, c, got)
}

func TestEnvelopeQueue_CloseDeliversBacklog(t *testing.T) {
	q := newEnvelopeQueue()
	env := NewEnvelope(&testOp{}, nil)
	q.Enqueue(env)
	q.Close()

	got, ok := q.Dequeue()
	require.True(t, ok)
	assert.Same(t, env, got)

	_, ok = q.Dequeue()
	assert.False(t, ok, "closed and drained queue reports exhaustion")

	assert.False(t, q.Enqueue(env), "closed queue rejects new envelopes")
}

func TestEnvelopeQueue_BurstWakesAllWaiters(t *testing.T) {
	q := newEnvelopeQueue()

	const n = 4
	got := make(chan *Envelope, n)
	for i := 0; i < n; i++ {
		go func() {
			if e, ok := q.Dequeue(); ok {
				got <- e
			}
		}()
	}
	// Let every consumer park before the burst.
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < n; i++ {
		require.True(t, q.Enqueue(NewEnvelope(&testOp{}, nil)))
	}

	for i := 0; i < n; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d parked consumers received an envelope", i, n)
		}
	}
	assert.Equal(t, 0, q.Len())
}

func TestEnvelopeQueue_BlockingDequeue(t *testing.T) {
	q := newEnvelopeQueue()
	env := NewEnvelope(&testOp{}, nil)

	got := make(chan *Envelope)
	go func() {
		e, ok := q.Dequeue()
		if ok {
			got <- e
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(env)

	select {
	case e := <-got:
		assert.Same(t, env, e)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked dequeue never woke")
	}
}
