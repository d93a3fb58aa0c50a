package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/golang/snappy"

	"github.com/hivekv/hive/internal/value"
)

// Stored-record wire format: one framing byte followed by the payload.
//
//	0x00  plain JSON
//	0x01  snappy-compressed JSON
//
// The JSON payload is {"gen", "exp", "key", "bins"} with every bin
// value in the tagged codec from internal/value. "exp" is the absolute
// expiry as unix seconds, 0 for never-expire. "key" carries the user
// key (tagged) when the write policy asked for it, else null.
const (
	frameRaw    = 0x00
	frameSnappy = 0x01
)

// storedRecord is the engine-level representation of one record.
type storedRecord struct {
	Generation uint16
	Expiry     int64
	UserKey    value.Value // nil unless stored with KeySend
	Bins       map[string]value.Value
}

func encodeRecord(rec *storedRecord, compressionThreshold int) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"gen":%d,"exp":%d,"key":`, rec.Generation, rec.Expiry)

	if rec.UserKey == nil {
		buf.WriteString("null")
	} else {
		keyData, err := value.Marshal(rec.UserKey)
		if err != nil {
			return nil, fmt.Errorf("encode user key: %w", err)
		}
		buf.Write(keyData)
	}

	buf.WriteString(`,"bins":{`)
	names := make([]string, 0, len(rec.Bins))
	for name := range rec.Bins {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		nameData, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("encode bin name %q: %w", name, err)
		}
		buf.Write(nameData)
		buf.WriteByte(':')
		binData, err := value.Marshal(rec.Bins[name])
		if err != nil {
			return nil, fmt.Errorf("encode bin %q: %w", name, err)
		}
		buf.Write(binData)
	}
	buf.WriteString("}}")

	payload := buf.Bytes()
	if compressionThreshold >= 0 && len(payload) > compressionThreshold {
		compressed := snappy.Encode(nil, payload)
		out := make([]byte, 0, len(compressed)+1)
		out = append(out, frameSnappy)
		return append(out, compressed...), nil
	}

	out := make([]byte, 0, len(payload)+1)
	out = append(out, frameRaw)
	return append(out, payload...), nil
}

func decodeRecord(data []byte) (*storedRecord, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("empty record payload")
	}

	payload := data[1:]
	switch data[0] {
	case frameRaw:
	case frameSnappy:
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("decompress record: %w", err)
		}
		payload = decoded
	default:
		return nil, fmt.Errorf("unknown record frame byte 0x%02x", data[0])
	}

	var raw struct {
		Gen  uint16                     `json:"gen"`
		Exp  int64                      `json:"exp"`
		Key  json.RawMessage            `json:"key"`
		Bins map[string]json.RawMessage `json:"bins"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	rec := &storedRecord{
		Generation: raw.Gen,
		Expiry:     raw.Exp,
		Bins:       make(map[string]value.Value, len(raw.Bins)),
	}

	if len(raw.Key) > 0 && !bytes.Equal(bytes.TrimSpace(raw.Key), []byte("null")) {
		uk, err := value.Unmarshal(raw.Key)
		if err != nil {
			return nil, fmt.Errorf("decode user key: %w", err)
		}
		rec.UserKey = uk
	}

	for name, binData := range raw.Bins {
		v, err := value.Unmarshal(binData)
		if err != nil {
			return nil, fmt.Errorf("decode bin %q: %w", name, err)
		}
		rec.Bins[name] = v
	}
	return rec, nil
}
