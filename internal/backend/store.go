package backend

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hivekv/hive/internal/native"
	"github.com/hivekv/hive/internal/value"
)

// keyLockStripes is the size of the per-key lock table. Power of two.
const keyLockStripes = 64

// Store implements Handle over a byte-level engine. All record
// semantics live here so the three engines stay interchangeable.
//
// Safe for concurrent use. Engines synchronize individual load and
// save calls, but record mutation spans both, so every operation holds
// a per-key lock: writes across their load-modify-save sequence, reads
// too because lazy expiry may remove the record it just loaded. Locks
// are striped by digest; two keys sharing a stripe only contend, they
// never corrupt each other.
type Store struct {
	eng                  engine
	logger               *slog.Logger
	compressionThreshold int

	keyLocks [keyLockStripes]sync.Mutex

	// now is injectable for expiry tests.
	now func() time.Time
}

func newStore(eng engine, logger *slog.Logger, compressionThreshold int) *Store {
	return &Store{
		eng:                  eng,
		logger:               logger,
		compressionThreshold: compressionThreshold,
		now:                  time.Now,
	}
}

// Close releases the underlying engine.
func (s *Store) Close() error {
	return s.eng.close()
}

// Get reads a full record.
func (s *Store) Get(ctx context.Context, policy *native.ReadPolicy, key *native.Key, rec *native.Record) *native.Error {
	if policy == nil {
		policy = native.NewReadPolicy()
	}
	ctx, cancel := s.opContext(ctx, policy.Timeout)
	defer cancel()

	unlock := s.lockKey(key)
	defer unlock()

	stored, err := s.loadLive(ctx, key)
	if err != nil {
		return err
	}
	s.fillRecord(rec, stored, nil)
	return nil
}

// Select reads only the named bins of a record. Selected bins that the
// record does not carry are simply absent from the result.
func (s *Store) Select(ctx context.Context, policy *native.ReadPolicy, key *native.Key, binNames []string, rec *native.Record) *native.Error {
	if policy == nil {
		policy = native.NewReadPolicy()
	}
	ctx, cancel := s.opContext(ctx, policy.Timeout)
	defer cancel()

	unlock := s.lockKey(key)
	defer unlock()

	stored, err := s.loadLive(ctx, key)
	if err != nil {
		return err
	}
	s.fillRecord(rec, stored, binNames)
	return nil
}

// Exists reads record metadata without touching bins.
func (s *Store) Exists(ctx context.Context, policy *native.ReadPolicy, key *native.Key, rec *native.Record) *native.Error {
	if policy == nil {
		policy = native.NewReadPolicy()
	}
	ctx, cancel := s.opContext(ctx, policy.Timeout)
	defer cancel()

	unlock := s.lockKey(key)
	defer unlock()

	stored, err := s.loadLive(ctx, key)
	if err != nil {
		return err
	}
	rec.Generation = stored.Generation
	rec.TTL = s.remainingTTL(stored.Expiry)
	return nil
}

// Put writes a record. Bins merge into an existing record unless the
// exists policy asks for a replace. Writing a null bin value removes
// that bin. The record's generation field is updated to the stored
// generation on success.
func (s *Store) Put(ctx context.Context, policy *native.WritePolicy, key *native.Key, rec *native.Record) *native.Error {
	if policy == nil {
		policy = native.NewWritePolicy()
	}
	ctx, cancel := s.opContext(ctx, policy.Timeout)
	defer cancel()

	unlock := s.lockKey(key)
	defer unlock()

	stored, lerr := s.loadLive(ctx, key)
	exists := lerr == nil
	if lerr != nil && lerr.Code != native.StatusErrNotFound {
		return lerr
	}

	switch policy.Exists {
	case native.ExistsCreate:
		if exists {
			return native.NewError(native.StatusErrExists, "record already exists: %s", key)
		}
	case native.ExistsUpdate, native.ExistsReplace:
		if !exists {
			return native.NewError(native.StatusErrNotFound, "record not found: %s", key)
		}
	}

	if exists {
		if gerr := checkGeneration(policy.Gen, rec.Generation, stored.Generation, key); gerr != nil {
			return gerr
		}
	}

	replace := policy.Exists == native.ExistsReplace || policy.Exists == native.ExistsCreateOrReplace
	next := &storedRecord{Bins: make(map[string]value.Value)}
	if exists && !replace {
		for name, v := range stored.Bins {
			next.Bins[name] = v
		}
	}
	for name, v := range rec.Bins {
		if _, isNull := v.(value.Null); isNull {
			delete(next.Bins, name)
			continue
		}
		next.Bins[name] = v
	}

	if exists {
		next.Generation = stored.Generation + 1
	} else {
		next.Generation = 1
	}

	next.Expiry = s.nextExpiry(rec.TTL, stored, exists)

	if policy.Key == native.KeySend {
		next.UserKey = userKeyValue(key)
	} else if exists {
		next.UserKey = stored.UserKey
	}

	if serr := s.saveRecord(ctx, key, next); serr != nil {
		return serr
	}

	rec.Generation = next.Generation
	return nil
}

// Remove deletes a record, honoring the remove policy's generation
// constraint.
func (s *Store) Remove(ctx context.Context, policy *native.RemovePolicy, key *native.Key) *native.Error {
	if policy == nil {
		policy = native.NewRemovePolicy()
	}
	ctx, cancel := s.opContext(ctx, policy.Timeout)
	defer cancel()

	unlock := s.lockKey(key)
	defer unlock()

	stored, lerr := s.loadLive(ctx, key)
	if lerr != nil {
		return lerr
	}
	if gerr := checkGeneration(policy.Gen, policy.Generation, stored.Generation, key); gerr != nil {
		return gerr
	}

	if err := s.eng.remove(ctx, key.Namespace, key.Digest[:]); err != nil {
		return s.mapEngineErr(ctx, err, key)
	}
	return nil
}

// Operate applies a sub-operation list to one record atomically with
// respect to other callers of this Store: the whole list runs under
// the record's key lock, so concurrent operates never interleave.
//
// On input rec carries the caller's metadata (generation for the
// policy's generation check, TTL); on output it carries the bins
// collected by read sub-operations and the updated metadata. A record
// is created when it does not exist and the list contains at least one
// write sub-operation; a read-only list against a missing record is a
// not-found error.
func (s *Store) Operate(ctx context.Context, policy *native.OperatePolicy, key *native.Key, ops []native.Operation, rec *native.Record) *native.Error {
	if policy == nil {
		policy = native.NewOperatePolicy()
	}
	ctx, cancel := s.opContext(ctx, policy.Timeout)
	defer cancel()

	unlock := s.lockKey(key)
	defer unlock()

	stored, lerr := s.loadLive(ctx, key)
	exists := lerr == nil
	if lerr != nil && lerr.Code != native.StatusErrNotFound {
		return lerr
	}

	hasWrite := false
	for _, op := range ops {
		if op.Kind != native.OpRead {
			hasWrite = true
			break
		}
	}
	if !exists {
		if !hasWrite {
			return lerr
		}
		stored = &storedRecord{Bins: make(map[string]value.Value)}
	}

	if exists && hasWrite {
		if gerr := checkGeneration(policy.Gen, rec.Generation, stored.Generation, key); gerr != nil {
			return gerr
		}
	}

	expiry := s.nextExpiry(rec.TTL, stored, exists)

	results := make(map[string]value.Value)
	for _, op := range ops {
		switch op.Kind {
		case native.OpRead:
			if op.BinName == "" {
				for name, v := range stored.Bins {
					results[name] = v
				}
				continue
			}
			if v, ok := stored.Bins[op.BinName]; ok {
				results[op.BinName] = v
			}

		case native.OpWrite:
			if _, isNull := op.Value.(value.Null); isNull {
				delete(stored.Bins, op.BinName)
				continue
			}
			stored.Bins[op.BinName] = op.Value

		case native.OpIncr:
			delta, ok := op.Value.(value.Int)
			if !ok {
				return native.NewError(native.StatusErrBinType, "incr delta for bin %q must be an integer", op.BinName)
			}
			cur, present := stored.Bins[op.BinName]
			if !present {
				stored.Bins[op.BinName] = delta
				continue
			}
			curInt, isInt := cur.(value.Int)
			if !isInt {
				return native.NewError(native.StatusErrBinType, "incr on non-integer bin %q", op.BinName)
			}
			stored.Bins[op.BinName] = curInt + delta

		case native.OpAppend, native.OpPrepend:
			v, aerr := applyConcat(op, stored.Bins[op.BinName])
			if aerr != nil {
				return aerr
			}
			stored.Bins[op.BinName] = v

		case native.OpTouch:
			if ttl, ok := op.Value.(value.Int); ok {
				if ttl == 0 {
					expiry = 0
				} else {
					expiry = s.now().Add(time.Duration(ttl) * time.Second).Unix()
				}
			}

		default:
			return native.ParamError("unknown sub-operation kind %d", op.Kind)
		}
	}

	newGen := stored.Generation
	if hasWrite {
		if exists {
			newGen = stored.Generation + 1
		} else {
			newGen = 1
		}
		next := &storedRecord{
			Generation: newGen,
			Expiry:     expiry,
			UserKey:    stored.UserKey,
			Bins:       stored.Bins,
		}
		if policy.Key == native.KeySend {
			next.UserKey = userKeyValue(key)
		}
		if serr := s.saveRecord(ctx, key, next); serr != nil {
			return serr
		}
	}

	rec.Bins = results
	rec.Generation = newGen
	rec.TTL = s.remainingTTL(expiry)
	return nil
}

// BatchGet reads every key independently. The returned slice-level
// error is nil even when individual keys fail; per-key status lives in
// results. results must have the same length as keys.
func (s *Store) BatchGet(ctx context.Context, policy *native.BatchPolicy, keys []*native.Key, results []native.BatchResult) *native.Error {
	if policy == nil {
		policy = native.NewBatchPolicy()
	}
	ctx, cancel := s.opContext(ctx, policy.Timeout)
	defer cancel()

	// The batch deadline is carried by ctx; per-key reads add none.
	readPolicy := &native.ReadPolicy{}

	for i, key := range keys {
		if ctx.Err() != nil {
			results[i] = native.BatchResult{
				Key: key,
				Err: native.NewError(native.StatusErrTimeout, "batch timeout before key %s", key),
			}
			continue
		}
		rec := native.NewRecord()
		if err := s.Get(ctx, readPolicy, key, rec); err != nil {
			results[i] = native.BatchResult{Key: key, Err: err}
			continue
		}
		results[i] = native.BatchResult{Key: key, Record: rec}
	}
	return nil
}

// loadLive loads and decodes a record, treating expired records as
// missing. Expired payloads are removed lazily, best effort. Callers
// hold the key lock.
func (s *Store) loadLive(ctx context.Context, key *native.Key) (*storedRecord, *native.Error) {
	data, err := s.eng.load(ctx, key.Namespace, key.Digest[:])
	if err != nil {
		return nil, s.mapEngineErr(ctx, err, key)
	}

	stored, derr := decodeRecord(data)
	if derr != nil {
		return nil, native.NewError(native.StatusErrClient, "corrupt record %s: %v", key, derr)
	}

	if stored.Expiry != 0 && !s.now().Before(time.Unix(stored.Expiry, 0)) {
		if rerr := s.eng.remove(ctx, key.Namespace, key.Digest[:]); rerr != nil {
			s.logger.Warn("expired record cleanup failed",
				slog.String("key", key.String()), slog.Any("error", rerr))
		}
		return nil, native.NewError(native.StatusErrNotFound, "record not found: %s", key)
	}
	return stored, nil
}

func (s *Store) saveRecord(ctx context.Context, key *native.Key, rec *storedRecord) *native.Error {
	data, err := encodeRecord(rec, s.compressionThreshold)
	if err != nil {
		return native.NewError(native.StatusErrClient, "encode record %s: %v", key, err)
	}
	if err := s.eng.save(ctx, key.Namespace, key.Digest[:], data); err != nil {
		return s.mapEngineErr(ctx, err, key)
	}
	return nil
}

func (s *Store) fillRecord(dst *native.Record, src *storedRecord, binNames []string) {
	if binNames == nil {
		dst.Bins = make(map[string]value.Value, len(src.Bins))
		for name, v := range src.Bins {
			dst.Bins[name] = v
		}
	} else {
		dst.Bins = make(map[string]value.Value, len(binNames))
		for _, name := range binNames {
			if v, ok := src.Bins[name]; ok {
				dst.Bins[name] = v
			}
		}
	}
	dst.Generation = src.Generation
	dst.TTL = s.remainingTTL(src.Expiry)
}

// nextExpiry resolves a write's TTL field against the stored expiry.
func (s *Store) nextExpiry(ttl uint32, stored *storedRecord, exists bool) int64 {
	switch ttl {
	case native.TTLNoChange:
		if exists {
			return stored.Expiry
		}
		return 0
	case native.TTLNeverExpire:
		return 0
	default:
		return s.now().Add(time.Duration(ttl) * time.Second).Unix()
	}
}

// remainingTTL converts an absolute expiry into seconds from now,
// rounded up. Zero means never-expire.
func (s *Store) remainingTTL(expiry int64) uint32 {
	if expiry == 0 {
		return native.TTLNeverExpire
	}
	remaining := time.Unix(expiry, 0).Sub(s.now())
	if remaining <= 0 {
		// Callers filter expired records before asking; treat the
		// boundary race as one final second of life.
		return 1
	}
	return uint32((remaining + time.Second - 1) / time.Second)
}

// lockKey acquires the stripe lock covering key and returns the
// release func. Every load-modify-save sequence runs under this lock;
// without it a generation check could pass and still be clobbered by a
// racing writer between load and save.
func (s *Store) lockKey(key *native.Key) func() {
	stripe := (uint32(key.Digest[0])<<8 | uint32(key.Digest[1])) % keyLockStripes
	mu := &s.keyLocks[stripe]
	mu.Lock()
	return mu.Unlock
}

func (s *Store) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

func (s *Store) mapEngineErr(ctx context.Context, err error, key *native.Key) *native.Error {
	switch {
	case errors.Is(err, errEngineNotFound):
		return native.NewError(native.StatusErrNotFound, "record not found: %s", key)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return native.NewError(native.StatusErrTimeout, "timeout on %s", key)
	case errors.Is(err, context.Canceled):
		return native.NewError(native.StatusErrClient, "operation canceled on %s", key)
	default:
		return native.NewError(native.StatusErrClient, "backend failure on %s: %v", key, err)
	}
}

func checkGeneration(mode native.GenPolicy, expected, stored uint16, key *native.Key) *native.Error {
	switch mode {
	case native.GenEqual:
		if expected != stored {
			return native.NewError(native.StatusErrGeneration,
				"generation mismatch on %s: expected %d, stored %d", key, expected, stored)
		}
	case native.GenGreater:
		if expected <= stored {
			return native.NewError(native.StatusErrGeneration,
				"generation not newer on %s: supplied %d, stored %d", key, expected, stored)
		}
	}
	return nil
}

// applyConcat handles append and prepend. Only string-to-string and
// bytes-to-bytes concatenation is allowed; a missing bin is created
// with the operand.
func applyConcat(op native.Operation, cur value.Value) (value.Value, *native.Error) {
	switch operand := op.Value.(type) {
	case value.String:
		if cur == nil {
			return operand, nil
		}
		curStr, ok := cur.(value.String)
		if !ok {
			return nil, native.NewError(native.StatusErrBinType, "%s on non-string bin %q", op.Kind, op.BinName)
		}
		if op.Kind == native.OpAppend {
			return curStr + operand, nil
		}
		return operand + curStr, nil
	case value.Bytes:
		if cur == nil {
			return operand, nil
		}
		curBytes, ok := cur.(value.Bytes)
		if !ok {
			return nil, native.NewError(native.StatusErrBinType, "%s on non-bytes bin %q", op.Kind, op.BinName)
		}
		out := make(value.Bytes, 0, len(curBytes)+len(operand))
		if op.Kind == native.OpAppend {
			out = append(out, curBytes...)
			return append(out, operand...), nil
		}
		out = append(out, operand...)
		return append(out, curBytes...), nil
	default:
		return nil, native.NewError(native.StatusErrBinType, "%s operand for bin %q must be string or bytes", op.Kind, op.BinName)
	}
}

func userKeyValue(key *native.Key) value.Value {
	switch key.Type {
	case native.KeyTypeInt:
		return value.Int(key.IntVal)
	case native.KeyTypeString:
		return value.String(key.StrVal)
	case native.KeyTypeBytes:
		b := make(value.Bytes, len(key.BytesVal))
		copy(b, key.BytesVal)
		return b
	default:
		return nil
	}
}
