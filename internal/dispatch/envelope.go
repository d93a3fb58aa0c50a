package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/hivekv/hive/internal/backend"
	"github.com/hivekv/hive/internal/native"
)

// Operation is the per-operation payload of an envelope: the parsed
// native request structures, any result slots, and the retained
// completion callback.
//
// Execute runs on a pool worker and must use native structures only;
// it never touches the callback or any dynamic value. Respond runs on
// the completion loop, converts results to dynamic form, and invokes
// the callback with the error it is handed. Each stage is called at
// most once, and Respond exactly once per envelope.
type Operation interface {
	Execute(ctx context.Context, h backend.Handle) *native.Error
	Respond(err *native.Error)
}

// Envelope is the per-call context carried through the pipeline.
// It is exclusively owned by one pipeline stage at a time: caller
// goroutine during prepare, one pool worker during execute, the
// completion loop during respond. The queue handoffs provide the
// memory barrier between stages.
type Envelope struct {
	// ID correlates log lines for one in-flight call.
	ID uuid.UUID

	// Err is the envelope's error slot. Prepare stores parameter
	// errors here, which makes the worker skip the store call; execute
	// stores the store call's result. Nil means success so far.
	Err *native.Error

	// Op holds the operation-specific request state and callback.
	Op Operation
}

// NewEnvelope wraps an operation for submission. prepErr carries a
// prepare-time parameter error, if any; such envelopes still travel
// the full pipeline so the callback always fires asynchronously.
func NewEnvelope(op Operation, prepErr *native.Error) *Envelope {
	return &Envelope{
		ID:  uuid.New(),
		Err: prepErr,
		Op:  op,
	}
}
