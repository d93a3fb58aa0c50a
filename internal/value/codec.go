package value

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
)

// Storage codec: a tagged JSON encoding that round-trips every Value
// variant without losing type information. Plain JSON cannot tell an
// Int from a Double or Bytes from a String, so each non-null value is
// wrapped in a single-key object whose key names the variant:
//
//	null          Null
//	{"I":123}     Int
//	{"D":1.5}     Double
//	{"S":"x"}     String
//	{"B":"aGk="}  Bytes (base64)
//	{"L":[...]}   List
//	{"M":{...}}   Map
//
// Map keys are emitted in sorted order so encodings are deterministic.

// Marshal encodes a Value using the tagged storage codec.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalInto(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalInto(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
		return nil
	case Int:
		fmt.Fprintf(buf, `{"I":%d}`, int64(val))
		return nil
	case Double:
		data, err := json.Marshal(float64(val))
		if err != nil {
			return fmt.Errorf("marshal double: %w", err)
		}
		buf.WriteString(`{"D":`)
		buf.Write(data)
		buf.WriteByte('}')
		return nil
	case String:
		data, err := json.Marshal(string(val))
		if err != nil {
			return fmt.Errorf("marshal string: %w", err)
		}
		buf.WriteString(`{"S":`)
		buf.Write(data)
		buf.WriteByte('}')
		return nil
	case Bytes:
		buf.WriteString(`{"B":"`)
		buf.WriteString(base64.StdEncoding.EncodeToString(val))
		buf.WriteString(`"}`)
		return nil
	case List:
		buf.WriteString(`{"L":[`)
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalInto(buf, elem); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteString(`]}`)
		return nil
	case Map:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteString(`{"M":{`)
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyData, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("marshal map key %q: %w", k, err)
			}
			buf.Write(keyData)
			buf.WriteByte(':')
			if err := marshalInto(buf, val[k]); err != nil {
				return fmt.Errorf("map[%q]: %w", k, err)
			}
		}
		buf.WriteString(`}}`)
		return nil
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
}

// Unmarshal decodes a Value produced by Marshal.
func Unmarshal(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty encoded value")
	}
	if bytes.Equal(data, []byte("null")) {
		return Null{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tagged value: %w", err)
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("tagged value must have exactly one tag, got %d", len(raw))
	}

	for tag, body := range raw {
		switch tag {
		case "I":
			var n json.Number
			if err := json.Unmarshal(body, &n); err != nil {
				return nil, fmt.Errorf("decode int: %w", err)
			}
			i, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("decode int: %w", err)
			}
			return Int(i), nil
		case "D":
			var f float64
			if err := json.Unmarshal(body, &f); err != nil {
				return nil, fmt.Errorf("decode double: %w", err)
			}
			return Double(f), nil
		case "S":
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return nil, fmt.Errorf("decode string: %w", err)
			}
			return String(s), nil
		case "B":
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return nil, fmt.Errorf("decode bytes: %w", err)
			}
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("decode bytes: %w", err)
			}
			return Bytes(b), nil
		case "L":
			var elems []json.RawMessage
			if err := json.Unmarshal(body, &elems); err != nil {
				return nil, fmt.Errorf("decode list: %w", err)
			}
			list := make(List, len(elems))
			for i, elem := range elems {
				v, err := Unmarshal(elem)
				if err != nil {
					return nil, fmt.Errorf("list[%d]: %w", i, err)
				}
				list[i] = v
			}
			return list, nil
		case "M":
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(body, &fields); err != nil {
				return nil, fmt.Errorf("decode map: %w", err)
			}
			m := make(Map, len(fields))
			for k, elem := range fields {
				v, err := Unmarshal(elem)
				if err != nil {
					return nil, fmt.Errorf("map[%q]: %w", k, err)
				}
				m[k] = v
			}
			return m, nil
		default:
			return nil, fmt.Errorf("unknown value tag %q", tag)
		}
	}
	return nil, fmt.Errorf("unreachable")
}
