package native

import (
	"math"

	"github.com/hivekv/hive/internal/value"
)

// BinNameMaxLen is the maximum length of a bin name in bytes,
// measured after NFC normalization.
const BinNameMaxLen = 15

// TTL sentinels. Everything else is seconds until expiry.
const (
	// TTLNeverExpire stores the record without an expiry.
	TTLNeverExpire uint32 = 0

	// TTLNoChange leaves the stored expiry untouched on update.
	// Also the parse-time default when metadata omits a TTL.
	TTLNoChange uint32 = math.MaxUint32
)

// GenerationNoCheck is the parse-time default when metadata omits a
// generation; write policies treat it as "no generation constraint".
const GenerationNoCheck uint16 = 0

// Record is a collection of named bins plus metadata. For reads the
// store call populates it; for writes the conversion layer fills it
// from dynamic input before dispatch. Bin names are unique by
// construction (map) and bounded by BinNameMaxLen.
type Record struct {
	Bins       map[string]value.Value
	Generation uint16
	TTL        uint32
}

// NewRecord creates an empty record with the no-change TTL sentinel.
func NewRecord() *Record {
	return &Record{
		Bins: make(map[string]value.Value),
		TTL:  TTLNoChange,
	}
}

// SetBin sets a single bin, replacing any previous value.
func (r *Record) SetBin(name string, v value.Value) {
	if r.Bins == nil {
		r.Bins = make(map[string]value.Value)
	}
	r.Bins[name] = v
}

// BatchResult is one per-key outcome of a batch operation. Err is nil
// on success; Record is valid only when Err is nil.
type BatchResult struct {
	Key    *Key
	Record *Record
	Err    *Error
}
