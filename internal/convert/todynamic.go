package convert

import (
	"github.com/hivekv/hive/internal/native"
	"github.com/hivekv/hive/internal/value"
)

// ErrorToMap converts a native error into the dynamic error shape
// {code, message}. A nil error converts to the success shape, so the
// callback's first argument is always present.
func ErrorToMap(e *native.Error) map[string]any {
	if e == nil {
		return map[string]any{
			"code":    int64(native.StatusOK),
			"message": "",
		}
	}
	return map[string]any{
		"code":    int64(e.Code),
		"message": e.Message,
	}
}

// KeyToMap converts a native key into the dynamic key shape
// {ns, set, key}. Returns nil for a nil key.
func KeyToMap(k *native.Key) map[string]any {
	if k == nil {
		return nil
	}
	return map[string]any{
		"ns":  k.Namespace,
		"set": k.Set,
		"key": k.UserKey(),
	}
}

// BinsToMap converts a record's bins into a dynamic map. Values are
// converted recursively; bytes come back as fresh copies. Returns nil
// for a nil record.
func BinsToMap(r *native.Record) map[string]any {
	if r == nil {
		return nil
	}
	out := make(map[string]any, len(r.Bins))
	for name, v := range r.Bins {
		out[name] = value.ToAny(v)
	}
	return out
}

// MetaToMap converts a record's metadata into the dynamic shape
// {ttl, gen}. Returns nil for a nil record.
func MetaToMap(r *native.Record) map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"ttl": int64(r.TTL),
		"gen": int64(r.Generation),
	}
}
