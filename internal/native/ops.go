package native

import "github.com/hivekv/hive/internal/value"

// OpKind identifies an operate sub-operation.
type OpKind int

const (
	// OpRead reads a bin (empty bin name reads all bins).
	OpRead OpKind = iota + 1
	// OpWrite writes a bin value.
	OpWrite
	// OpIncr adds an integer delta to an integer bin, creating it at
	// the delta when absent.
	OpIncr
	// OpAppend appends to a string or bytes bin.
	OpAppend
	// OpPrepend prepends to a string or bytes bin.
	OpPrepend
	// OpTouch updates metadata (generation, TTL) without changing bins.
	OpTouch
)

// String returns the wire name of the op kind, as accepted in dynamic
// sub-operation lists.
func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpIncr:
		return "incr"
	case OpAppend:
		return "append"
	case OpPrepend:
		return "prepend"
	case OpTouch:
		return "touch"
	default:
		return "unknown"
	}
}

// ParseOpKind maps a dynamic operation name to its kind.
// Returns false for unrecognized names.
func ParseOpKind(name string) (OpKind, bool) {
	switch name {
	case "read":
		return OpRead, true
	case "write":
		return OpWrite, true
	case "incr":
		return OpIncr, true
	case "append":
		return OpAppend, true
	case "prepend":
		return OpPrepend, true
	case "touch":
		return OpTouch, true
	default:
		return 0, false
	}
}

// Operation is a single operate sub-operation. Value is unused for
// OpRead and OpTouch.
type Operation struct {
	Kind    OpKind
	BinName string
	Value   value.Value
}
