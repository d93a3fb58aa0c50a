// Package convert implements the bidirectional mapping between the
// dynamic calling surface (maps, slices, scalars) and the native
// request/response structures.
//
// Dynamic→native functions validate shape and return a parameter error
// for anything malformed; they never panic on bad input. Native→dynamic
// functions are total over valid native structures.
package convert

import (
	"golang.org/x/text/unicode/norm"

	"github.com/hivekv/hive/internal/native"
	"github.com/hivekv/hive/internal/value"
)

// KeyFromAny parses a dynamic key in either object form
// {ns, set, key} or positional array form [ns, set, key].
//
// The user key must be exactly one of integer, string, or bytes.
func KeyFromAny(v any) (*native.Key, *native.Error) {
	switch k := v.(type) {
	case []any:
		if len(k) != 3 {
			return nil, native.ParamError("array-form key must have 3 elements [ns, set, key], got %d", len(k))
		}
		return keyFromParts(k[0], k[1], k[2])
	case map[string]any:
		ns, hasNS := k["ns"]
		set := k["set"] // optional, defaults to ""
		userKey, hasKey := k["key"]
		if !hasNS {
			return nil, native.ParamError("key object missing required field %q", "ns")
		}
		if !hasKey {
			return nil, native.ParamError("key object missing required field %q", "key")
		}
		if set == nil {
			set = ""
		}
		return keyFromParts(ns, set, userKey)
	case nil:
		return nil, native.ParamError("key must not be nil")
	default:
		return nil, native.ParamError("key must be an object or a 3-element array, got %T", v)
	}
}

func keyFromParts(ns, set, userKey any) (*native.Key, *native.Error) {
	nsStr, ok := ns.(string)
	if !ok {
		return nil, native.ParamError("key namespace must be a string, got %T", ns)
	}
	setStr, ok := set.(string)
	if !ok {
		return nil, native.ParamError("key set must be a string, got %T", set)
	}

	var (
		key *native.Key
		err error
	)
	switch uk := userKey.(type) {
	case string:
		key, err = native.NewStringKey(nsStr, setStr, uk)
	case []byte:
		key, err = native.NewBytesKey(nsStr, setStr, uk)
	case nil:
		return nil, native.ParamError("user key must not be nil")
	default:
		n, isInt := asInt64(userKey)
		if !isInt {
			return nil, native.ParamError("user key must be an integer, string, or bytes, got %T", userKey)
		}
		key, err = native.NewIntKey(nsStr, setStr, n)
	}
	if err != nil {
		if ne, ok := err.(*native.Error); ok {
			return nil, ne
		}
		return nil, native.ParamError("invalid key: %v", err)
	}
	return key, nil
}

// ValidateBinName checks a bin name and returns its NFC-normalized
// form. Names must be non-empty and at most native.BinNameMaxLen bytes
// after normalization.
func ValidateBinName(name string) (string, *native.Error) {
	normalized := norm.NFC.String(name)
	if normalized == "" {
		return "", native.ParamError("bin name must not be empty")
	}
	if len(normalized) > native.BinNameMaxLen {
		return "", native.ParamError("bin name %q exceeds %d bytes", normalized, native.BinNameMaxLen)
	}
	return normalized, nil
}

// BinsFromMap parses a dynamic bin map into native bin values,
// validating every bin name and value type.
func BinsFromMap(bins map[string]any) (map[string]value.Value, *native.Error) {
	out := make(map[string]value.Value, len(bins))
	for name, raw := range bins {
		normalized, nerr := ValidateBinName(name)
		if nerr != nil {
			return nil, nerr
		}
		v, err := value.FromAny(raw)
		if err != nil {
			return nil, native.ParamError("bin %q: %v", name, err)
		}
		out[normalized] = v
	}
	return out, nil
}

// RecordFromMaps builds a native record from dynamic bins and optional
// metadata, for write operations.
func RecordFromMaps(bins, meta map[string]any) (*native.Record, *native.Error) {
	rec := native.NewRecord()

	parsed, err := BinsFromMap(bins)
	if err != nil {
		return nil, err
	}
	rec.Bins = parsed

	ttl, err := TTLFromMap(meta)
	if err != nil {
		return nil, err
	}
	rec.TTL = ttl

	gen, err := GenerationFromMap(meta)
	if err != nil {
		return nil, err
	}
	rec.Generation = gen

	return rec, nil
}

// TTLFromMap extracts the TTL from a dynamic metadata object,
// defaulting to "no change" when absent. The value -1 is accepted as
// an explicit no-change sentinel.
func TTLFromMap(meta map[string]any) (uint32, *native.Error) {
	raw, ok := meta["ttl"]
	if !ok {
		return native.TTLNoChange, nil
	}
	n, isInt := asInt64(raw)
	if !isInt {
		return 0, native.ParamError("metadata ttl must be an integer, got %T", raw)
	}
	if n == -1 {
		return native.TTLNoChange, nil
	}
	if n < 0 || n > int64(native.TTLNoChange)-1 {
		return 0, native.ParamError("metadata ttl %d out of range", n)
	}
	return uint32(n), nil
}

// GenerationFromMap extracts the generation from a dynamic metadata
// object, defaulting to "no check" when absent.
func GenerationFromMap(meta map[string]any) (uint16, *native.Error) {
	raw, ok := meta["gen"]
	if !ok {
		return native.GenerationNoCheck, nil
	}
	n, isInt := asInt64(raw)
	if !isInt {
		return 0, native.ParamError("metadata gen must be an integer, got %T", raw)
	}
	if n < 0 || n > 65535 {
		return 0, native.ParamError("metadata gen %d out of range", n)
	}
	return uint16(n), nil
}

// OperationsFromAny parses a dynamic sub-operation list for operate.
//
// Each entry is an object {op, bin, value} where op is one of read,
// write, incr, append, prepend, touch. Touch accepts an optional ttl
// field instead of bin/value.
func OperationsFromAny(raw []any) ([]native.Operation, *native.Error) {
	if len(raw) == 0 {
		return nil, native.ParamError("operations list must not be empty")
	}

	ops := make([]native.Operation, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, native.ParamError("operations[%d] must be an object, got %T", i, entry)
		}

		opName, ok := m["op"].(string)
		if !ok {
			return nil, native.ParamError("operations[%d] missing op name", i)
		}
		kind, ok := native.ParseOpKind(opName)
		if !ok {
			return nil, native.ParamError("operations[%d]: unknown op %q", i, opName)
		}

		op := native.Operation{Kind: kind}

		if kind == native.OpTouch {
			if rawTTL, hasTTL := m["ttl"]; hasTTL {
				n, isInt := asInt64(rawTTL)
				if !isInt {
					return nil, native.ParamError("operations[%d]: touch ttl must be an integer", i)
				}
				op.Value = value.Int(n)
			}
			ops = append(ops, op)
			continue
		}

		binName, ok := m["bin"].(string)
		if !ok {
			return nil, native.ParamError("operations[%d] missing bin name", i)
		}
		normalized, nerr := ValidateBinName(binName)
		if nerr != nil {
			return nil, native.ParamError("operations[%d]: %s", i, nerr.Message)
		}
		op.BinName = normalized

		if kind != native.OpRead {
			v, err := value.FromAny(m["value"])
			if err != nil {
				return nil, native.ParamError("operations[%d] value: %v", i, err)
			}
			op.Value = v
		}

		ops = append(ops, op)
	}
	return ops, nil
}

// BinNamesFromAny parses a dynamic bin-name selection list for select.
func BinNamesFromAny(raw []any) ([]string, *native.Error) {
	names := make([]string, 0, len(raw))
	for i, entry := range raw {
		s, ok := entry.(string)
		if !ok {
			return nil, native.ParamError("bins[%d] must be a string, got %T", i, entry)
		}
		normalized, err := ValidateBinName(s)
		if err != nil {
			return nil, native.ParamError("bins[%d]: %s", i, err.Message)
		}
		names = append(names, normalized)
	}
	return names, nil
}

// asInt64 accepts every dynamic integer spelling, including float64
// values that carry an integral value (the usual product of JSON
// decoding).
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case float32:
		if float64(n) != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
