package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	t.Parallel()

	payload := []byte{0x81, 0xa3, 'r', 'e', 's', 0x00}
	frame, err := EncodeFrame(PacketLogin, payload)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if len(frame) != HeaderLen+len(payload) {
		t.Fatalf("frame length = %d, want %d", len(frame), HeaderLen+len(payload))
	}

	typ, got, err := ReadFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if typ != PacketLogin {
		t.Errorf("type = %v, want LOGIN", typ)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %x, want %x", got, payload)
	}
}

func TestFrameEmptyPayload(t *testing.T) {
	t.Parallel()

	frame, err := EncodeFrame(PacketPing, nil)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if len(frame) != HeaderLen {
		t.Fatalf("frame length = %d, want %d", len(frame), HeaderLen)
	}
	typ, payload, err := ReadFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if typ != PacketPing || len(payload) != 0 {
		t.Errorf("got type %v payload %x", typ, payload)
	}
}

func TestReadFrameRejectsBadHeader(t *testing.T) {
	t.Parallel()

	// Declared length below the header size.
	_, _, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x04, 0x01, 0x00, 0x0a}))
	if !errors.Is(err, ErrBadFrame) {
		t.Errorf("short length: err = %v, want ErrBadFrame", err)
	}

	// Wrong protocol byte.
	_, _, err = ReadFrame(bytes.NewReader([]byte{0x00, 0x05, 0x02, 0x00, 0x0a}))
	if !errors.Is(err, ErrBadFrame) {
		t.Errorf("bad proto: err = %v, want ErrBadFrame", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	t.Parallel()

	frame, _ := EncodeFrame(PacketPing, []byte{1, 2, 3, 4})
	_, _, err := ReadFrame(bytes.NewReader(frame[:7]))
	if err == nil {
		t.Fatal("truncated frame accepted")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err = %v, want unexpected EOF", err)
	}
}

func TestEncodeFrameTooLarge(t *testing.T) {
	t.Parallel()

	if _, err := EncodeFrame(PacketPing, make([]byte, MaxFrameLen)); !errors.Is(err, ErrBadFrame) {
		t.Errorf("oversized frame: err = %v, want ErrBadFrame", err)
	}
}

func TestParseFrameLengthMustMatch(t *testing.T) {
	t.Parallel()

	frame, _ := EncodeFrame(PacketPong, []byte{0xc0})
	if _, _, err := ParseFrame(append(frame, 0x00)); !errors.Is(err, ErrBadFrame) {
		t.Errorf("trailing byte: err = %v, want ErrBadFrame", err)
	}
	typ, payload, err := ParseFrame(frame)
	if err != nil || typ != PacketPong || len(payload) != 1 {
		t.Errorf("ParseFrame = %v %x %v", typ, payload, err)
	}
}

func TestHandshakeExchange(t *testing.T) {
	t.Parallel()

	hello := Handshake(HandshakeVersion)
	if !bytes.Equal(hello, []byte{0x00, 0x02, 0x00, 0x01}) {
		t.Fatalf("hello = %x", hello)
	}
	version, err := ReadHandshake(bytes.NewReader(hello))
	if err != nil {
		t.Fatalf("ReadHandshake: %v", err)
	}
	if version != HandshakeVersion {
		t.Errorf("version = %d, want %d", version, HandshakeVersion)
	}

	code, err := ReadHandshakeReply(bytes.NewReader(HandshakeReply(HandshakeAccept)))
	if err != nil || code != HandshakeAccept {
		t.Errorf("reply = %d %v, want accept", code, err)
	}
	code, err = ReadHandshakeReply(bytes.NewReader(HandshakeReply(HandshakeReject)))
	if err != nil || code != HandshakeReject {
		t.Errorf("reply = %d %v, want reject", code, err)
	}
}

func TestParseHandshakeRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := ParseHandshake([]byte{0x00, 0x05, 0x00, 0x01}); !errors.Is(err, ErrBadFrame) {
		t.Errorf("bad length prefix: err = %v, want ErrBadFrame", err)
	}
}
