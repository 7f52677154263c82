package protocol

import (
	"fmt"
	"io"
	"sort"

	"github.com/tinylib/msgp/msgp"
)

// Map is a packet payload: short string keys mapping to integers, strings,
// booleans, nil, arrays or nested maps. Encoding is canonical (keys sorted),
// so a payload produced here re-encodes byte-identically after a decode.
type Map map[string]any

// EncodeMap serialises m as a msgpack map. A nil map yields an empty
// payload, which is how bodyless packets like PING travel.
func EncodeMap(m Map) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return appendValue(make([]byte, 0, 64), m)
}

func appendValue(b []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return msgp.AppendNil(b), nil
	case bool:
		return msgp.AppendBool(b, val), nil
	case int:
		return msgp.AppendInt64(b, int64(val)), nil
	case int64:
		return msgp.AppendInt64(b, val), nil
	case string:
		return msgp.AppendString(b, val), nil
	case Map:
		b = msgp.AppendMapHeader(b, uint32(len(val)))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var err error
		for _, k := range keys {
			b = msgp.AppendString(b, k)
			if b, err = appendValue(b, val[k]); err != nil {
				return nil, err
			}
		}
		return b, nil
	case []any:
		b = msgp.AppendArrayHeader(b, uint32(len(val)))
		var err error
		for _, item := range val {
			if b, err = appendValue(b, item); err != nil {
				return nil, err
			}
		}
		return b, nil
	case []int:
		b = msgp.AppendArrayHeader(b, uint32(len(val)))
		for _, n := range val {
			b = msgp.AppendInt64(b, int64(n))
		}
		return b, nil
	case []string:
		b = msgp.AppendArrayHeader(b, uint32(len(val)))
		for _, s := range val {
			b = msgp.AppendString(b, s)
		}
		return b, nil
	case []Map:
		b = msgp.AppendArrayHeader(b, uint32(len(val)))
		var err error
		for _, m := range val {
			if b, err = appendValue(b, m); err != nil {
				return nil, err
			}
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", v)
	}
}

// DecodeMap parses a msgpack map payload. Empty payloads decode to nil.
func DecodeMap(b []byte) (Map, error) {
	if len(b) == 0 {
		return nil, nil
	}
	v, rest, err := readValue(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("payload has %d trailing bytes", len(rest))
	}
	m, ok := v.(Map)
	if !ok {
		return nil, fmt.Errorf("payload is %T, want map", v)
	}
	return m, nil
}

func readValue(b []byte) (any, []byte, error) {
	switch t := msgp.NextType(b); t {
	case msgp.NilType:
		rest, err := msgp.ReadNilBytes(b)
		return nil, rest, err
	case msgp.BoolType:
		return readWith(msgp.ReadBoolBytes, b)
	case msgp.IntType:
		return readWith(msgp.ReadInt64Bytes, b)
	case msgp.UintType:
		u, rest, err := msgp.ReadUint64Bytes(b)
		return int64(u), rest, err
	case msgp.StrType:
		return readWith(msgp.ReadStringBytes, b)
	case msgp.MapType:
		sz, rest, err := msgp.ReadMapHeaderBytes(b)
		if err != nil {
			return nil, nil, err
		}
		m := make(Map, sz)
		for i := uint32(0); i < sz; i++ {
			var key string
			key, rest, err = msgp.ReadStringBytes(rest)
			if err != nil {
				return nil, nil, fmt.Errorf("map key: %w", err)
			}
			var val any
			val, rest, err = readValue(rest)
			if err != nil {
				return nil, nil, fmt.Errorf("map value %q: %w", key, err)
			}
			m[key] = val
		}
		return m, rest, nil
	case msgp.ArrayType:
		sz, rest, err := msgp.ReadArrayHeaderBytes(b)
		if err != nil {
			return nil, nil, err
		}
		arr := make([]any, sz)
		for i := uint32(0); i < sz; i++ {
			arr[i], rest, err = readValue(rest)
			if err != nil {
				return nil, nil, fmt.Errorf("array item %d: %w", i, err)
			}
		}
		return arr, rest, nil
	default:
		return nil, nil, fmt.Errorf("unsupported wire type %v", t)
	}
}

func readWith[T any](read func([]byte) (T, []byte, error), b []byte) (any, []byte, error) {
	v, rest, err := read(b)
	return v, rest, err
}

// EncodePacket builds a complete frame from a type and payload map.
func EncodePacket(typ PacketType, m Map) ([]byte, error) {
	payload, err := EncodeMap(m)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(typ, payload)
}

// ReadPacket reads and decodes one frame from r.
func ReadPacket(r io.Reader) (PacketType, Map, error) {
	typ, payload, err := ReadFrame(r)
	if err != nil {
		return 0, nil, err
	}
	m, err := DecodeMap(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return typ, m, nil
}

// Int fetches an integer field. Both fixint and full-width encodings arrive
// as int64.
func (m Map) Int(key string) (int64, bool) {
	switch v := m[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// Str fetches a string field.
func (m Map) Str(key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// Bool fetches a boolean field.
func (m Map) Bool(key string) (bool, bool) {
	v, ok := m[key].(bool)
	return v, ok
}

// Array fetches an array field.
func (m Map) Array(key string) ([]any, bool) {
	v, ok := m[key].([]any)
	return v, ok
}

// Sub fetches a nested map field.
func (m Map) Sub(key string) (Map, bool) {
	v, ok := m[key].(Map)
	return v, ok
}
