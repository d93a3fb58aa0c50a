package hive

import (
	"context"

	"github.com/hivekv/hive/internal/backend"
	"github.com/hivekv/hive/internal/convert"
	"github.com/hivekv/hive/internal/native"
)

// Each operation type carries the parsed native arguments across the
// pipeline stages. Prepare runs on the caller goroutine inside the
// Client method, Execute on a worker, Respond on the completion loop.
// Dynamic values never cross into Execute; native results never reach
// the callback unconverted.

// Get retrieves a whole record. The key is a {ns, set, key} map or an
// [ns, set, key] slice; policy options beyond the known set are
// ignored. The callback fires exactly once.
func (c *Client) Get(key any, policy map[string]any, cb RecordCallback) {
	op := &readOp{cb: cb, rec: native.NewRecord()}
	var prepErr *native.Error
	if op.key, prepErr = convert.KeyFromAny(key); prepErr == nil {
		op.policy, prepErr = convert.ReadPolicyFromMap(policy)
	}
	c.submit(op, prepErr)
}

// Select retrieves only the named bins of a record. Bins absent from
// the record are simply missing from the result; requesting no bins
// yields empty bins with metadata.
func (c *Client) Select(key any, bins []string, policy map[string]any, cb RecordCallback) {
	op := &readOp{cb: cb, rec: native.NewRecord(), binNames: make([]string, 0, len(bins))}
	var prepErr *native.Error
	if op.key, prepErr = convert.KeyFromAny(key); prepErr == nil {
		op.policy, prepErr = convert.ReadPolicyFromMap(policy)
	}
	for _, name := range bins {
		if prepErr != nil {
			break
		}
		var canon string
		if canon, prepErr = convert.ValidateBinName(name); prepErr == nil {
			op.binNames = append(op.binNames, canon)
		}
	}
	c.submit(op, prepErr)
}

// Exists checks for a live record without reading its bins. A missing
// or expired record reports a not-found error.
func (c *Client) Exists(key any, policy map[string]any, cb ExistsCallback) {
	op := &existsOp{cb: cb, rec: native.NewRecord()}
	var prepErr *native.Error
	if op.key, prepErr = convert.KeyFromAny(key); prepErr == nil {
		op.policy, prepErr = convert.ReadPolicyFromMap(policy)
	}
	c.submit(op, prepErr)
}

// Put writes a record's bins. Existing bins not named stay in place;
// a nil bin value deletes that bin. Meta may carry a ttl in seconds
// (-1 keeps the stored expiry).
func (c *Client) Put(key any, bins map[string]any, meta map[string]any, policy map[string]any, cb WriteCallback) {
	op := &putOp{cb: cb}
	var prepErr *native.Error
	if op.key, prepErr = convert.KeyFromAny(key); prepErr == nil {
		if op.rec, prepErr = convert.RecordFromMaps(bins, meta); prepErr == nil {
			op.policy, prepErr = convert.WritePolicyFromMap(policy)
		}
	}
	c.submit(op, prepErr)
}

// Remove deletes a record. The remove policy may demand a generation
// match before the delete takes effect.
func (c *Client) Remove(key any, policy map[string]any, cb WriteCallback) {
	op := &removeOp{cb: cb}
	var prepErr *native.Error
	if op.key, prepErr = convert.KeyFromAny(key); prepErr == nil {
		op.policy, prepErr = convert.RemovePolicyFromMap(policy)
	}
	c.submit(op, prepErr)
}

// Operate applies a sequence of sub-operations {op, bin, value} to one
// record atomically and returns the bins produced by the read
// sub-operations. Any write sub-operation bumps the generation once.
func (c *Client) Operate(key any, ops []any, meta map[string]any, policy map[string]any, cb RecordCallback) {
	op := &operateOp{cb: cb}
	var prepErr *native.Error
	if op.key, prepErr = convert.KeyFromAny(key); prepErr == nil {
		if op.ops, prepErr = convert.OperationsFromAny(ops); prepErr == nil {
			if op.rec, prepErr = convert.RecordFromMaps(nil, meta); prepErr == nil {
				op.policy, prepErr = convert.OperatePolicyFromMap(policy)
			}
		}
	}
	c.submit(op, prepErr)
}

// BatchGet retrieves many records in one call. The callback receives
// one result per key in the caller's order; per-key failures land in
// the matching result while the top-level error stays at code 0.
func (c *Client) BatchGet(keys []any, policy map[string]any, cb BatchCallback) {
	op := &batchGetOp{cb: cb, keys: make([]*native.Key, 0, len(keys))}
	var prepErr *native.Error
	for _, raw := range keys {
		var k *native.Key
		if k, prepErr = convert.KeyFromAny(raw); prepErr != nil {
			break
		}
		op.keys = append(op.keys, k)
	}
	if prepErr == nil {
		op.policy, prepErr = convert.BatchPolicyFromMap(policy)
	}
	op.results = make([]native.BatchResult, len(op.keys))
	c.submit(op, prepErr)
}

// readOp backs both Get and Select; a nil binNames slice means all
// bins.
type readOp struct {
	policy   *native.ReadPolicy
	key      *native.Key
	binNames []string
	rec      *native.Record
	cb       RecordCallback
}

func (o *readOp) Execute(ctx context.Context, h backend.Handle) *native.Error {
	if o.binNames != nil {
		return h.Select(ctx, o.policy, o.key, o.binNames, o.rec)
	}
	return h.Get(ctx, o.policy, o.key, o.rec)
}

func (o *readOp) Respond(err *native.Error) {
	cb := o.cb
	o.cb = nil
	if err != nil {
		cb(convert.ErrorToMap(err), nil, nil, convert.KeyToMap(o.key))
		return
	}
	cb(convert.ErrorToMap(nil), convert.BinsToMap(o.rec), convert.MetaToMap(o.rec), convert.KeyToMap(o.key))
}

type existsOp struct {
	policy *native.ReadPolicy
	key    *native.Key
	rec    *native.Record
	cb     ExistsCallback
}

func (o *existsOp) Execute(ctx context.Context, h backend.Handle) *native.Error {
	return h.Exists(ctx, o.policy, o.key, o.rec)
}

func (o *existsOp) Respond(err *native.Error) {
	cb := o.cb
	o.cb = nil
	if err != nil {
		cb(convert.ErrorToMap(err), nil, convert.KeyToMap(o.key))
		return
	}
	cb(convert.ErrorToMap(nil), convert.MetaToMap(o.rec), convert.KeyToMap(o.key))
}

type putOp struct {
	policy *native.WritePolicy
	key    *native.Key
	rec    *native.Record
	cb     WriteCallback
}

func (o *putOp) Execute(ctx context.Context, h backend.Handle) *native.Error {
	return h.Put(ctx, o.policy, o.key, o.rec)
}

func (o *putOp) Respond(err *native.Error) {
	cb := o.cb
	o.cb = nil
	cb(convert.ErrorToMap(err), convert.KeyToMap(o.key))
}

type removeOp struct {
	policy *native.RemovePolicy
	key    *native.Key
	cb     WriteCallback
}

func (o *removeOp) Execute(ctx context.Context, h backend.Handle) *native.Error {
	return h.Remove(ctx, o.policy, o.key)
}

func (o *removeOp) Respond(err *native.Error) {
	cb := o.cb
	o.cb = nil
	cb(convert.ErrorToMap(err), convert.KeyToMap(o.key))
}

type operateOp struct {
	policy *native.OperatePolicy
	key    *native.Key
	ops    []native.Operation
	rec    *native.Record
	cb     RecordCallback
}

func (o *operateOp) Execute(ctx context.Context, h backend.Handle) *native.Error {
	return h.Operate(ctx, o.policy, o.key, o.ops, o.rec)
}

func (o *operateOp) Respond(err *native.Error) {
	cb := o.cb
	o.cb = nil
	if err != nil {
		cb(convert.ErrorToMap(err), nil, nil, convert.KeyToMap(o.key))
		return
	}
	cb(convert.ErrorToMap(nil), convert.BinsToMap(o.rec), convert.MetaToMap(o.rec), convert.KeyToMap(o.key))
}

type batchGetOp struct {
	policy  *native.BatchPolicy
	keys    []*native.Key
	results []native.BatchResult
	cb      BatchCallback
}

func (o *batchGetOp) Execute(ctx context.Context, h backend.Handle) *native.Error {
	return h.BatchGet(ctx, o.policy, o.keys, o.results)
}

func (o *batchGetOp) Respond(err *native.Error) {
	cb := o.cb
	o.cb = nil
	if err != nil {
		cb(convert.ErrorToMap(err), nil)
		return
	}
	out := make([]BatchRecord, len(o.results))
	for i := range o.results {
		res := &o.results[i]
		out[i] = BatchRecord{
			Err: convert.ErrorToMap(res.Err),
			Key: convert.KeyToMap(res.Key),
		}
		if res.Err == nil {
			out[i].Bins = convert.BinsToMap(res.Record)
			out[i].Meta = convert.MetaToMap(res.Record)
		}
	}
	cb(convert.ErrorToMap(nil), out)
}
