package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/datamonsterr/Cardio-sub000/internal/protocol"
)

const (
	// sendQueueSize frames may sit unacknowledged before the client is
	// considered stuck and evicted.
	sendQueueSize = 256

	readBufferSize = 64 * 1024
	writeWait      = 10 * time.Second
)

var (
	ErrConnClosed    = errors.New("connection closed")
	ErrSendQueueFull = errors.New("send queue full")
)

// transport abstracts how framed packets travel: raw TCP, or websocket
// binary messages carrying one frame each. Both speak the same handshake
// and framing, so the session layer above never branches on the carrier.
type transport interface {
	// Handshake performs the 4-byte version exchange and writes the
	// 3-byte reply. A version mismatch is answered with a reject before
	// the error returns.
	Handshake() error
	ReadPacket() (protocol.PacketType, protocol.Map, error)
	WriteFrame(frame []byte) error
	Close() error
	RemoteAddr() string
}

type tcpTransport struct {
	conn net.Conn
	r    *bufio.Reader
}

var _ transport = (*tcpTransport)(nil)

func newTCPTransport(conn net.Conn) *tcpTransport {
	return &tcpTransport{conn: conn, r: bufio.NewReaderSize(conn, readBufferSize)}
}

func (t *tcpTransport) Handshake() error {
	version, err := protocol.ReadHandshake(t.r)
	if err != nil {
		return fmt.Errorf("read handshake: %w", err)
	}
	if version != protocol.HandshakeVersion {
		_ = t.WriteFrame(protocol.HandshakeReply(protocol.HandshakeReject))
		return fmt.Errorf("%w: unsupported version %d", protocol.ErrBadFrame, version)
	}
	return t.WriteFrame(protocol.HandshakeReply(protocol.HandshakeAccept))
}

func (t *tcpTransport) ReadPacket() (protocol.PacketType, protocol.Map, error) {
	return protocol.ReadPacket(t.r)
}

func (t *tcpTransport) WriteFrame(frame []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_, err := t.conn.Write(frame)
	return err
}

func (t *tcpTransport) Close() error       { return t.conn.Close() }
func (t *tcpTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

// wsTransport adapts a websocket connection: every binary message is exactly
// one frame, so framing reduces to parsing the message in memory.
type wsTransport struct {
	conn *websocket.Conn
}

var _ transport = (*wsTransport)(nil)

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) Handshake() error {
	mt, data, err := t.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read handshake: %w", err)
	}
	if mt != websocket.BinaryMessage {
		return fmt.Errorf("%w: handshake must be a binary message", protocol.ErrBadFrame)
	}
	version, err := protocol.ParseHandshake(data)
	if err != nil {
		return err
	}
	if version != protocol.HandshakeVersion {
		_ = t.WriteFrame(protocol.HandshakeReply(protocol.HandshakeReject))
		return fmt.Errorf("%w: unsupported version %d", protocol.ErrBadFrame, version)
	}
	return t.WriteFrame(protocol.HandshakeReply(protocol.HandshakeAccept))
}

func (t *wsTransport) ReadPacket() (protocol.PacketType, protocol.Map, error) {
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			return 0, nil, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		typ, payload, err := protocol.ParseFrame(data)
		if err != nil {
			return 0, nil, err
		}
		m, err := protocol.DecodeMap(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", protocol.ErrBadFrame, err)
		}
		return typ, m, nil
	}
}

func (t *wsTransport) WriteFrame(frame []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (t *wsTransport) Close() error       { return t.conn.Close() }
func (t *wsTransport) RemoteAddr() string { return t.conn.RemoteAddr().String() }

// Conn is one client session. Reads happen on the owning goroutine's
// dispatch loop; writes go through a buffered queue drained by writePump so
// a slow client never blocks a table broadcast.
type Conn struct {
	tr     transport
	logger zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu            sync.RWMutex
	authenticated bool
	userID        int64
	username      string
	balance       int64
	tableID       int
	seat          int
}

func newConn(tr transport, logger zerolog.Logger) *Conn {
	return &Conn{
		tr: tr,
		logger: logger.With().
			Str("component", "conn").
			Str("remote", tr.RemoteAddr()).
			Logger(),
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
		seat: -1,
	}
}

func (c *Conn) writePump() {
	for {
		select {
		case frame := <-c.send:
			if err := c.tr.WriteFrame(frame); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send queues a frame for delivery. A full queue means the client stopped
// reading; the connection is evicted rather than letting it stall the table.
func (c *Conn) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		c.logger.Warn().Msg("send queue full, evicting connection")
		c.Close()
		return ErrSendQueueFull
	}
}

// SendPacket encodes and queues one packet.
func (c *Conn) SendPacket(typ protocol.PacketType, m protocol.Map) error {
	frame, err := protocol.EncodePacket(typ, m)
	if err != nil {
		return err
	}
	return c.Send(frame)
}

// Close shuts the session down once; writePump and the read loop both
// observe it through the done channel.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.tr.Close()
	})
}

// Done is closed when the connection is gone.
func (c *Conn) Done() <-chan struct{} { return c.done }

// SetUser marks the session authenticated.
func (c *Conn) SetUser(id int64, username string, balance int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = true
	c.userID = id
	c.username = username
	c.balance = balance
}

func (c *Conn) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// User returns the authenticated identity.
func (c *Conn) User() (int64, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.username
}

func (c *Conn) UserID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Conn) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// SetTable records table membership; id 0 and seat -1 mean the lobby.
func (c *Conn) SetTable(tableID, seat int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
	c.seat = seat
}

// Table returns the current table id and seat.
func (c *Conn) Table() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID, c.seat
}

func (c *Conn) TableID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

// SetBalance refreshes the cached account balance.
func (c *Conn) SetBalance(balance int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance = balance
}

// Balance is the cached account balance; the store holds the truth.
func (c *Conn) Balance() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.balance
}
