// Package sdk is a small synchronous client for the cardiod wire protocol.
// Integration tests and ad-hoc tooling drive it one request at a time and
// pick server pushes off the same stream.
package sdk

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/datamonsterr/Cardio-sub000/internal/protocol"
)

// DefaultTimeout bounds every read and write unless the caller overrides it.
const DefaultTimeout = 5 * time.Second

// Client holds one authenticated session. It is not safe for concurrent use;
// the protocol is strictly sequential per connection anyway.
type Client struct {
	conn net.Conn
	ws   *websocket.Conn
	r    *bufio.Reader

	// Timeout applies to each individual read and write.
	Timeout time.Duration
}

// Dial connects over TCP and performs the version handshake.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, DefaultTimeout)
	if err != nil {
		return nil, err
	}
	c := &Client{conn: conn, r: bufio.NewReader(conn), Timeout: DefaultTimeout}
	if err := c.handshake(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// DialWS connects over websocket (ws://host:port/ws) and performs the same
// handshake inside binary messages.
func DialWS(url string) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{ws: ws, Timeout: DefaultTimeout}
	if err := c.handshake(); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) handshake() error {
	hello := protocol.Handshake(protocol.HandshakeVersion)
	if c.ws != nil {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.Timeout))
		if err := c.ws.WriteMessage(websocket.BinaryMessage, hello); err != nil {
			return fmt.Errorf("send handshake: %w", err)
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.Timeout))
		_, reply, err := c.ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("read handshake reply: %w", err)
		}
		if len(reply) != 3 || reply[2] != protocol.HandshakeAccept {
			return fmt.Errorf("handshake rejected")
		}
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.Timeout))
	if _, err := c.conn.Write(hello); err != nil {
		return fmt.Errorf("send handshake: %w", err)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.Timeout))
	code, err := protocol.ReadHandshakeReply(c.r)
	if err != nil {
		return fmt.Errorf("read handshake reply: %w", err)
	}
	if code != protocol.HandshakeAccept {
		return fmt.Errorf("handshake rejected")
	}
	return nil
}

// Close tears the connection down.
func (c *Client) Close() error {
	if c.ws != nil {
		return c.ws.Close()
	}
	return c.conn.Close()
}

// Send encodes and writes one packet.
func (c *Client) Send(typ protocol.PacketType, m protocol.Map) error {
	frame, err := protocol.EncodePacket(typ, m)
	if err != nil {
		return err
	}
	if c.ws != nil {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.Timeout))
		return c.ws.WriteMessage(websocket.BinaryMessage, frame)
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.Timeout))
	_, err = c.conn.Write(frame)
	return err
}

// Recv reads the next packet, whatever its type.
func (c *Client) Recv() (protocol.PacketType, protocol.Map, error) {
	if c.ws != nil {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.Timeout))
		for {
			mt, data, err := c.ws.ReadMessage()
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
			return typ, m, err
		}
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.Timeout))
	return protocol.ReadPacket(c.r)
}

// WaitFor reads packets until one of the wanted type arrives, discarding
// interleaved pushes such as game-state updates.
func (c *Client) WaitFor(typ protocol.PacketType) (protocol.Map, error) {
	for {
		got, m, err := c.Recv()
		if err != nil {
			return nil, err
		}
		if got == typ {
			return m, nil
		}
	}
}

// Ping round-trips an empty packet.
func (c *Client) Ping() error {
	if err := c.Send(protocol.PacketPing, nil); err != nil {
		return err
	}
	_, err := c.WaitFor(protocol.PacketPong)
	return err
}

// Signup registers an account and returns the reply payload.
func (c *Client) Signup(user, pass string) (protocol.Map, error) {
	err := c.Send(protocol.PacketSignup, protocol.Map{"user": user, "pass": pass})
	if err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketSignup)
}

// Login authenticates the session and returns the reply payload.
func (c *Client) Login(user, pass string) (protocol.Map, error) {
	err := c.Send(protocol.PacketLogin, protocol.Map{"user": user, "pass": pass})
	if err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketLogin)
}

// CreateTable asks for a new table and returns its id on success.
func (c *Client) CreateTable(name string, maxPlayers, minBet int) (int, error) {
	err := c.Send(protocol.PacketCreateTable, protocol.Map{
		"name":       name,
		"max_player": maxPlayers,
		"min_bet":    minBet,
	})
	if err != nil {
		return 0, err
	}
	m, err := c.WaitFor(protocol.PacketCreateTable)
	if err != nil {
		return 0, err
	}
	if res, _ := m.Int("res"); res != protocol.CodeCreateOK {
		reason, _ := m.Str("reason")
		return 0, fmt.Errorf("create table failed: %d %s", res, reason)
	}
	id, _ := m.Int("table_id")
	return int(id), nil
}

// JoinTable takes a seat and returns the join reply, which carries the full
// game state on success.
func (c *Client) JoinTable(tableID int) (protocol.Map, error) {
	if err := c.Send(protocol.PacketJoinTable, protocol.Map{"tableId": tableID}); err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketJoinTable)
}

// Action submits a betting move and returns the ACTION_RESULT payload.
func (c *Client) Action(gameID int64, action string, amount int, clientSeq int64) (protocol.Map, error) {
	err := c.Send(protocol.PacketActionRequest, protocol.Map{
		"game_id":    gameID,
		"client_seq": clientSeq,
		"action":     protocol.Map{"type": action, "amount": amount},
	})
	if err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketActionResult)
}

// LeaveTable gives the seat up.
func (c *Client) LeaveTable() (protocol.Map, error) {
	if err := c.Send(protocol.PacketLeaveTable, nil); err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketLeaveTable)
}

// Tables lists the open tables.
func (c *Client) Tables() (protocol.Map, error) {
	if err := c.Send(protocol.PacketListTables, nil); err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketListTables)
}

// Resync asks for a fresh view of the current table.
func (c *Client) Resync() (protocol.Map, error) {
	if err := c.Send(protocol.PacketResyncRequest, nil); err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketResyncReply)
}

// Scoreboard fetches the balance leaderboard.
func (c *Client) Scoreboard() (protocol.Map, error) {
	if err := c.Send(protocol.PacketScoreboard, nil); err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketScoreboard)
}

// FriendAdd sends a friend request; a reciprocal pending request confirms
// the friendship immediately.
func (c *Client) FriendAdd(user string) (protocol.Map, error) {
	if err := c.Send(protocol.PacketFriendAdd, protocol.Map{"user": user}); err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketFriendAdd)
}

// FriendRemove drops a confirmed friendship.
func (c *Client) FriendRemove(user string) (protocol.Map, error) {
	if err := c.Send(protocol.PacketFriendRemove, protocol.Map{"user": user}); err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketFriendRemove)
}

// FriendAccept confirms a pending request from user.
func (c *Client) FriendAccept(user string) (protocol.Map, error) {
	if err := c.Send(protocol.PacketFriendAccept, protocol.Map{"user": user}); err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketFriendAccept)
}

// FriendRequests lists usernames with requests pending on this account.
func (c *Client) FriendRequests() (protocol.Map, error) {
	if err := c.Send(protocol.PacketFriendRequests, nil); err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketFriendRequests)
}

// FriendList fetches confirmed friends with their online flags.
func (c *Client) FriendList() (protocol.Map, error) {
	if err := c.Send(protocol.PacketFriendList, nil); err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketFriendList)
}

// Invite asks the server to push a table invitation to another user.
func (c *Client) Invite(user string, tableID int) (protocol.Map, error) {
	err := c.Send(protocol.PacketTableInvite, protocol.Map{"user": user, "tableId": tableID})
	if err != nil {
		return nil, err
	}
	return c.WaitFor(protocol.PacketTableInvite)
}
