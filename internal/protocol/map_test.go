package protocol

import (
	"bytes"
	"testing"
)

func TestMapRoundTrip(t *testing.T) {
	t.Parallel()

	m := Map{
		"res":     101,
		"user":    "alice",
		"ok":      true,
		"nothing": nil,
		"cards":   []int{13, 64},
		"nested":  Map{"amount": int64(120), "eligible_players": []int{0, 2}},
		"list":    []any{Map{"action": "fold"}, Map{"action": "call", "amount": 40}},
		"names":   []string{"a", "b"},
	}

	encoded, err := EncodeMap(m)
	if err != nil {
		t.Fatalf("EncodeMap: %v", err)
	}
	decoded, err := DecodeMap(encoded)
	if err != nil {
		t.Fatalf("DecodeMap: %v", err)
	}

	if v, _ := decoded.Int("res"); v != 101 {
		t.Errorf("res = %d, want 101", v)
	}
	if s, _ := decoded.Str("user"); s != "alice" {
		t.Errorf("user = %q, want alice", s)
	}
	if b, _ := decoded.Bool("ok"); !b {
		t.Error("ok = false, want true")
	}
	if v, present := decoded["nothing"]; !present || v != nil {
		t.Errorf("nothing = %v (present %v), want nil present", v, present)
	}
	cards, ok := decoded.Array("cards")
	if !ok || len(cards) != 2 || cards[0] != int64(13) || cards[1] != int64(64) {
		t.Errorf("cards = %v", cards)
	}
	nested, ok := decoded.Sub("nested")
	if !ok {
		t.Fatal("nested missing")
	}
	if v, _ := nested.Int("amount"); v != 120 {
		t.Errorf("nested amount = %d, want 120", v)
	}
}

// A payload produced by this codec must re-encode byte-identically after a
// decode, so resync replies can be diffed and cached by content.
func TestMapCanonicalEncoding(t *testing.T) {
	t.Parallel()

	m := Map{
		"b":    2,
		"a":    1,
		"zz":   "last",
		"deep": Map{"y": []any{int64(1), "x", nil, true}, "x": Map{}},
	}
	first, err := EncodeMap(m)
	if err != nil {
		t.Fatalf("EncodeMap: %v", err)
	}
	decoded, err := DecodeMap(first)
	if err != nil {
		t.Fatalf("DecodeMap: %v", err)
	}
	second, err := EncodeMap(decoded)
	if err != nil {
		t.Fatalf("re-EncodeMap: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("encoding not canonical:\n first %x\nsecond %x", first, second)
	}
}

func TestEmptyPayloads(t *testing.T) {
	t.Parallel()

	b, err := EncodeMap(nil)
	if err != nil || b != nil {
		t.Errorf("EncodeMap(nil) = %x, %v", b, err)
	}
	m, err := DecodeMap(nil)
	if err != nil || m != nil {
		t.Errorf("DecodeMap(nil) = %v, %v", m, err)
	}
	// A present-but-empty map is distinct from no payload.
	b, err = EncodeMap(Map{})
	if err != nil || len(b) != 1 {
		t.Fatalf("EncodeMap(Map{}) = %x, %v", b, err)
	}
	m, err = DecodeMap(b)
	if err != nil || m == nil || len(m) != 0 {
		t.Errorf("DecodeMap(empty map) = %v, %v", m, err)
	}
}

func TestDecodeMapRejectsTrailingBytes(t *testing.T) {
	t.Parallel()

	b, _ := EncodeMap(Map{"a": 1})
	if _, err := DecodeMap(append(b, 0xc0)); err == nil {
		t.Error("trailing bytes accepted")
	}
}

func TestDecodeMapRejectsNonMapPayload(t *testing.T) {
	t.Parallel()

	// msgpack fixstr "x" is not a map.
	if _, err := DecodeMap([]byte{0xa1, 'x'}); err == nil {
		t.Error("non-map payload accepted")
	}
}

func TestPacketRoundTrip(t *testing.T) {
	t.Parallel()

	frame, err := EncodePacket(PacketActionResult, Map{"result": 0, "client_seq": int64(7)})
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}
	typ, m, err := ReadPacket(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if typ != PacketActionResult {
		t.Errorf("type = %v", typ)
	}
	if v, _ := m.Int("client_seq"); v != 7 {
		t.Errorf("client_seq = %d, want 7", v)
	}
}
