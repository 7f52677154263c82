package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame layout: [len:u16 BE][proto:u8][type:u16 BE][payload]. len counts the
// whole frame, header included.
const (
	HeaderLen    = 5
	MaxFrameLen  = 65535
	ProtoVersion = 0x01

	// HandshakeVersion is the only protocol revision this server speaks.
	HandshakeVersion uint16 = 0x0001
	HandshakeAccept  byte   = 0x00
	HandshakeReject  byte   = 0x01
)

// ErrBadFrame marks a framing violation; the connection must be closed.
var ErrBadFrame = errors.New("bad frame")

// EncodeFrame wraps a payload in the 5-byte header.
func EncodeFrame(typ PacketType, payload []byte) ([]byte, error) {
	total := HeaderLen + len(payload)
	if total > MaxFrameLen {
		return nil, fmt.Errorf("%w: frame length %d exceeds %d", ErrBadFrame, total, MaxFrameLen)
	}
	buf := make([]byte, total)
	binary.BigEndian.PutUint16(buf[0:2], uint16(total))
	buf[2] = ProtoVersion
	binary.BigEndian.PutUint16(buf[3:5], uint16(typ))
	copy(buf[HeaderLen:], payload)
	return buf, nil
}

// ReadFrame reads one frame from r. The payload slice is freshly allocated
// and safe to retain.
func ReadFrame(r io.Reader) (PacketType, []byte, error) {
	var header [HeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	return parseAfterHeader(header, r)
}

// ParseFrame decodes a complete frame held in memory, as delivered by the
// websocket transport where one binary message is one frame.
func ParseFrame(b []byte) (PacketType, []byte, error) {
	if len(b) < HeaderLen {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(b))
	}
	total := int(binary.BigEndian.Uint16(b[0:2]))
	if total != len(b) {
		return 0, nil, fmt.Errorf("%w: declared %d bytes, got %d", ErrBadFrame, total, len(b))
	}
	if b[2] != ProtoVersion {
		return 0, nil, fmt.Errorf("%w: protocol byte 0x%02x", ErrBadFrame, b[2])
	}
	typ := PacketType(binary.BigEndian.Uint16(b[3:5]))
	payload := make([]byte, total-HeaderLen)
	copy(payload, b[HeaderLen:])
	return typ, payload, nil
}

func parseAfterHeader(header [HeaderLen]byte, r io.Reader) (PacketType, []byte, error) {
	total := int(binary.BigEndian.Uint16(header[0:2]))
	if total < HeaderLen {
		return 0, nil, fmt.Errorf("%w: declared length %d", ErrBadFrame, total)
	}
	if header[2] != ProtoVersion {
		return 0, nil, fmt.Errorf("%w: protocol byte 0x%02x", ErrBadFrame, header[2])
	}
	typ := PacketType(binary.BigEndian.Uint16(header[3:5]))
	payload := make([]byte, total-HeaderLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read payload: %w", err)
	}
	return typ, payload, nil
}

// ReadHandshake consumes the 4-byte hello a client sends before any frame:
// [len=0x0002][version:u16].
func ReadHandshake(r io.Reader) (uint16, error) {
	var hello [4]byte
	if _, err := io.ReadFull(r, hello[:]); err != nil {
		return 0, err
	}
	return ParseHandshake(hello[:])
}

// ParseHandshake validates a 4-byte hello held in memory.
func ParseHandshake(b []byte) (uint16, error) {
	if len(b) != 4 || binary.BigEndian.Uint16(b[0:2]) != 2 {
		return 0, fmt.Errorf("%w: handshake", ErrBadFrame)
	}
	return binary.BigEndian.Uint16(b[2:4]), nil
}

// HandshakeReply builds the 3-byte server answer: [len=0x0001][code].
func HandshakeReply(code byte) []byte {
	return []byte{0x00, 0x01, code}
}

// Handshake builds the client hello. The SDK and tests dial with it.
func Handshake(version uint16) []byte {
	b := []byte{0x00, 0x02, 0x00, 0x00}
	binary.BigEndian.PutUint16(b[2:4], version)
	return b
}

// ReadHandshakeReply consumes the server's 3-byte answer and returns its
// accept/reject code.
func ReadHandshakeReply(r io.Reader) (byte, error) {
	var reply [3]byte
	if _, err := io.ReadFull(r, reply[:]); err != nil {
		return 0, err
	}
	if binary.BigEndian.Uint16(reply[0:2]) != 1 {
		return 0, fmt.Errorf("%w: handshake reply", ErrBadFrame)
	}
	return reply[2], nil
}
