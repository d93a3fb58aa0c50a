package native

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// KeyType identifies which user-key variant a Key carries.
type KeyType int

const (
	KeyTypeInt KeyType = iota + 1
	KeyTypeString
	KeyTypeBytes
)

// DigestSize is the length of a key digest in bytes.
const DigestSize = 20

// Key identifies a record: namespace, set, and exactly one user-key
// variant. Keys are built by the conversion layer and owned by the
// operation envelope until completion.
type Key struct {
	Namespace string
	Set       string

	Type     KeyType
	IntVal   int64
	StrVal   string
	BytesVal []byte

	// Digest is the storage identity of the key, computed at
	// construction from the set and user key.
	Digest [DigestSize]byte
}

// NewIntKey creates a Key with an integer user key.
func NewIntKey(ns, set string, v int64) (*Key, error) {
	k := &Key{Namespace: ns, Set: set, Type: KeyTypeInt, IntVal: v}
	return finishKey(k)
}

// NewStringKey creates a Key with a string user key.
func NewStringKey(ns, set, v string) (*Key, error) {
	k := &Key{Namespace: ns, Set: set, Type: KeyTypeString, StrVal: v}
	return finishKey(k)
}

// NewBytesKey creates a Key with an opaque byte-sequence user key.
// The slice is copied.
func NewBytesKey(ns, set string, v []byte) (*Key, error) {
	b := make([]byte, len(v))
	copy(b, v)
	k := &Key{Namespace: ns, Set: set, Type: KeyTypeBytes, BytesVal: b}
	return finishKey(k)
}

func finishKey(k *Key) (*Key, error) {
	if k.Namespace == "" {
		return nil, ParamError("key namespace must not be empty")
	}
	k.Digest = k.computeDigest()
	return k, nil
}

// computeDigest hashes set + key-type tag + user key into the fixed-size
// storage identity. SHA-256 truncated to DigestSize bytes.
func (k *Key) computeDigest() [DigestSize]byte {
	h := sha256.New()
	h.Write([]byte(k.Set))
	h.Write([]byte{byte(k.Type)})
	switch k.Type {
	case KeyTypeInt:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(k.IntVal))
		h.Write(buf[:])
	case KeyTypeString:
		h.Write([]byte(k.StrVal))
	case KeyTypeBytes:
		h.Write(k.BytesVal)
	}
	var digest [DigestSize]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// UserKey returns the user-key variant as a dynamic value.
func (k *Key) UserKey() any {
	switch k.Type {
	case KeyTypeInt:
		return k.IntVal
	case KeyTypeString:
		return k.StrVal
	case KeyTypeBytes:
		b := make([]byte, len(k.BytesVal))
		copy(b, k.BytesVal)
		return b
	default:
		return nil
	}
}

// String returns a compact display form, used in logs and CLI output.
func (k *Key) String() string {
	return fmt.Sprintf("%s/%s/%v", k.Namespace, k.Set, k.UserKey())
}
