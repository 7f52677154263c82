package server

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/datamonsterr/Cardio-sub000/internal/protocol"
	"github.com/datamonsterr/Cardio-sub000/internal/store"
)

// dispatch routes one decoded packet. Handler panics are contained here so a
// bad request cannot take the server down; the connection stays open.
func (s *Server) dispatch(c *Conn, typ protocol.PacketType, m protocol.Map) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("packet", typ.String()).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			_ = c.SendPacket(typ, protocol.Map{"res": protocol.CodeServerError})
		}
	}()
	s.metrics.Packets.WithLabelValues(typ.String()).Inc()

	if !c.Authenticated() {
		switch typ {
		case protocol.PacketPing, protocol.PacketLogin, protocol.PacketSignup:
		case protocol.PacketActionRequest:
			_ = c.SendPacket(protocol.PacketActionResult, protocol.Map{"result": protocol.CodeUnauthorized})
			return
		default:
			_ = c.SendPacket(typ, protocol.Map{"res": protocol.CodeUnauthorized})
			return
		}
	}

	switch typ {
	case protocol.PacketPing:
		_ = c.SendPacket(protocol.PacketPong, nil)
	case protocol.PacketLogin:
		s.handleLogin(c, m)
	case protocol.PacketSignup:
		s.handleSignup(c, m)
	case protocol.PacketCreateTable:
		s.handleCreateTable(c, m)
	case protocol.PacketJoinTable:
		s.handleJoinTable(c, m)
	case protocol.PacketActionRequest:
		s.handleActionRequest(c, m)
	case protocol.PacketResyncRequest:
		s.handleResync(c)
	case protocol.PacketListTables:
		s.handleListTables(c)
	case protocol.PacketLeaveTable:
		s.handleLeaveTable(c)
	case protocol.PacketScoreboard:
		s.handleScoreboard(c)
	case protocol.PacketFriendList:
		s.handleFriendList(c)
	case protocol.PacketFriendAdd:
		s.handleFriendAdd(c, m)
	case protocol.PacketFriendRemove:
		s.handleFriendRemove(c, m)
	case protocol.PacketFriendRequests:
		s.handleFriendRequests(c)
	case protocol.PacketFriendAccept:
		s.handleFriendAccept(c, m)
	case protocol.PacketTableInvite:
		s.handleTableInvite(c, m)
	default:
		s.logger.Warn().Str("packet", typ.String()).Str("remote", c.tr.RemoteAddr()).
			Msg("unhandled packet type")
		_ = c.SendPacket(typ, protocol.Map{"res": protocol.CodeBadRequest})
	}
}

func (s *Server) handleLogin(c *Conn, m protocol.Map) {
	fail := func(code int, reason string) {
		_ = c.SendPacket(protocol.PacketLogin, protocol.Map{"res": code, "reason": reason})
	}
	if c.Authenticated() {
		fail(protocol.CodeLoginFailed, "Already logged in.")
		return
	}
	user, _ := m.Str("user")
	pass, _ := m.Str("pass")
	u, err := s.store.Authenticate(context.Background(), user, pass)
	switch {
	case errors.Is(err, store.ErrBadCredentials):
		fail(protocol.CodeLoginFailed, "Wrong username or password.")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("user", user).Msg("login query failed")
		fail(protocol.CodeDBError, "Server error.")
		return
	}
	if !s.registry.Add(u.Username, c) {
		fail(protocol.CodeLoginFailed, "Already logged in elsewhere.")
		return
	}
	c.SetUser(u.ID, u.Username, u.Balance)
	s.logger.Info().Str("user", u.Username).Int64("user_id", u.ID).Msg("login")
	_ = c.SendPacket(protocol.PacketLogin, protocol.Map{
		"res":      protocol.CodeLoginOK,
		"user_id":  u.ID,
		"user":     u.Username,
		"balance":  u.Balance,
		"fullname": u.FullName,
		"email":    u.Email,
		"phone":    u.Phone,
		"dob":      u.DOB,
		"country":  u.Country,
		"gender":   u.Gender,
	})
}

func (s *Server) handleSignup(c *Conn, m protocol.Map) {
	fail := func(code int, reason string) {
		_ = c.SendPacket(protocol.PacketSignup, protocol.Map{"res": code, "reason": reason})
	}
	nu := store.NewUser{}
	nu.Username, _ = m.Str("user")
	nu.Password, _ = m.Str("pass")
	nu.FullName, _ = m.Str("fullname")
	nu.Email, _ = m.Str("email")
	nu.Phone, _ = m.Str("phone")
	nu.DOB, _ = m.Str("dob")
	nu.Country, _ = m.Str("country")
	nu.Gender, _ = m.Str("gender")

	u, err := s.store.CreateUser(context.Background(), nu, int64(s.cfg.Server.StartingBalance))
	switch {
	case errors.Is(err, store.ErrDuplicate):
		fail(protocol.CodeSignupFailed, "Username taken.")
		return
	case errors.Is(err, store.ErrBadInput):
		fail(protocol.CodeSignupFailed, "Missing required fields.")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("user", nu.Username).Msg("signup failed")
		fail(protocol.CodeDBError, "Server error.")
		return
	}
	s.logger.Info().Str("user", u.Username).Int64("user_id", u.ID).Msg("signup")
	_ = c.SendPacket(protocol.PacketSignup, protocol.Map{
		"res":     protocol.CodeSignupOK,
		"user_id": u.ID,
	})
}

func (s *Server) handleCreateTable(c *Conn, m protocol.Map) {
	name, _ := m.Str("name")
	maxPlayers, _ := m.Int("max_player")
	minBet, _ := m.Int("min_bet")
	t, err := s.createTable(name, int(maxPlayers), int(minBet))
	if err != nil {
		_ = c.SendPacket(protocol.PacketCreateTable, protocol.Map{
			"res":    protocol.CodeCreateFailed,
			"reason": err.Error(),
		})
		return
	}
	s.logger.Info().Int("table_id", t.ID).Str("name", t.Name).Str("by", c.Username()).
		Msg("table created")
	_ = c.SendPacket(protocol.PacketCreateTable, protocol.Map{
		"res":      protocol.CodeCreateOK,
		"table_id": t.ID,
	})
}

func (s *Server) handleJoinTable(c *Conn, m protocol.Map) {
	fail := func(code int, reason string) {
		_ = c.SendPacket(protocol.PacketJoinTable, protocol.Map{"res": code, "reason": reason})
	}
	if c.TableID() != 0 {
		fail(protocol.CodeJoinFailed, "Already at a table.")
		return
	}
	id, ok := m.Int("tableId")
	if !ok {
		fail(protocol.CodeJoinFailed, "Missing tableId.")
		return
	}
	t, ok := s.tables.Get(int(id))
	if !ok {
		fail(protocol.CodeJoinFailed, "No such table.")
		return
	}
	state, code, reason := t.Join(c)
	if code != protocol.CodeJoinOK {
		fail(code, reason)
		return
	}
	state["res"] = protocol.CodeJoinOK
	_ = c.SendPacket(protocol.PacketJoinTable, state)
}

func (s *Server) handleActionRequest(c *Conn, m protocol.Map) {
	gameID, act, clientSeq, err := protocol.ParseActionRequest(m)
	if err != nil {
		_ = c.SendPacket(protocol.PacketActionResult, protocol.Map{
			"result":     protocol.CodeBadRequest,
			"client_seq": clientSeq,
			"reason":     "Bad action request.",
		})
		return
	}
	tableID := c.TableID()
	t, ok := s.tables.Get(tableID)
	if tableID == 0 || int64(tableID) != gameID || !ok {
		_ = c.SendPacket(protocol.PacketActionResult, protocol.Map{
			"result":     protocol.CodeBadRequest,
			"client_seq": clientSeq,
			"reason":     "Not at that table.",
		})
		return
	}
	t.HandleAction(c, act, clientSeq)
}

func (s *Server) handleResync(c *Conn) {
	tableID := c.TableID()
	t, ok := s.tables.Get(tableID)
	if tableID == 0 || !ok {
		_ = c.SendPacket(protocol.PacketResyncReply, protocol.Map{
			"res":    protocol.CodeBadRequest,
			"reason": "Not at a table.",
		})
		return
	}
	_ = c.SendPacket(protocol.PacketResyncReply, t.ViewerState(c.UserID()))
}

func (s *Server) handleListTables(c *Conn) {
	snapshot := s.tables.Snapshot()
	tables := make([]protocol.Map, 0, len(snapshot))
	for _, t := range snapshot {
		tables = append(tables, t.Summary())
	}
	_ = c.SendPacket(protocol.PacketListTables, protocol.Map{
		"size":   len(tables),
		"tables": tables,
	})
}

func (s *Server) handleLeaveTable(c *Conn) {
	tableID := c.TableID()
	t, ok := s.tables.Get(tableID)
	if tableID == 0 || !ok {
		c.SetTable(0, -1)
		_ = c.SendPacket(protocol.PacketLeaveTable, protocol.Map{
			"res":    protocol.CodeLeaveFailed,
			"reason": "Not at a table.",
		})
		return
	}
	code, reason := t.Leave(c, false)
	resp := protocol.Map{"res": code}
	if reason != "" {
		resp["reason"] = reason
	}
	_ = c.SendPacket(protocol.PacketLeaveTable, resp)
}

func (s *Server) handleScoreboard(c *Conn) {
	rows, err := s.store.Leaderboard(context.Background(), 10)
	if err != nil {
		s.logger.Error().Err(err).Msg("leaderboard query failed")
		_ = c.SendPacket(protocol.PacketScoreboard, protocol.Map{"res": protocol.CodeDBError})
		return
	}
	players := make([]protocol.Map, 0, len(rows))
	for _, r := range rows {
		players = append(players, protocol.Map{"user": r.Username, "balance": r.Balance})
	}
	_ = c.SendPacket(protocol.PacketScoreboard, protocol.Map{"players": players})
}

func (s *Server) handleFriendList(c *Conn) {
	friends, err := s.store.Friends(context.Background(), c.UserID())
	if err != nil {
		s.logger.Error().Err(err).Msg("friend list query failed")
		_ = c.SendPacket(protocol.PacketFriendList, protocol.Map{"res": protocol.CodeDBError})
		return
	}
	out := make([]protocol.Map, 0, len(friends))
	for _, f := range friends {
		out = append(out, protocol.Map{
			"user":   f.Username,
			"online": s.registry.Online(f.Username),
		})
	}
	_ = c.SendPacket(protocol.PacketFriendList, protocol.Map{"friends": out})
}

func (s *Server) handleFriendAdd(c *Conn, m protocol.Map) {
	name, _ := m.Str("user")
	err := s.store.AddFriendRequest(context.Background(), c.UserID(), name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = c.SendPacket(protocol.PacketFriendAdd, protocol.Map{
			"res": protocol.CodeBadRequest, "reason": "No such user.",
		})
	case errors.Is(err, store.ErrDuplicate):
		_ = c.SendPacket(protocol.PacketFriendAdd, protocol.Map{
			"res": protocol.CodeInvalidAction, "reason": "Already friends or requested.",
		})
	case err != nil:
		s.logger.Error().Err(err).Msg("friend add failed")
		_ = c.SendPacket(protocol.PacketFriendAdd, protocol.Map{"res": protocol.CodeDBError})
	default:
		_ = c.SendPacket(protocol.PacketFriendAdd, protocol.Map{"res": protocol.CodeOK})
	}
}

func (s *Server) handleFriendRemove(c *Conn, m protocol.Map) {
	name, _ := m.Str("user")
	err := s.store.RemoveFriend(context.Background(), c.UserID(), name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = c.SendPacket(protocol.PacketFriendRemove, protocol.Map{
			"res": protocol.CodeBadRequest, "reason": "Not friends.",
		})
	case err != nil:
		s.logger.Error().Err(err).Msg("friend remove failed")
		_ = c.SendPacket(protocol.PacketFriendRemove, protocol.Map{"res": protocol.CodeDBError})
	default:
		_ = c.SendPacket(protocol.PacketFriendRemove, protocol.Map{"res": protocol.CodeOK})
	}
}

func (s *Server) handleFriendRequests(c *Conn) {
	reqs, err := s.store.FriendRequests(context.Background(), c.UserID())
	if err != nil {
		s.logger.Error().Err(err).Msg("friend requests query failed")
		_ = c.SendPacket(protocol.PacketFriendRequests, protocol.Map{"res": protocol.CodeDBError})
		return
	}
	_ = c.SendPacket(protocol.PacketFriendRequests, protocol.Map{"requests": reqs})
}

func (s *Server) handleFriendAccept(c *Conn, m protocol.Map) {
	name, _ := m.Str("user")
	err := s.store.AcceptFriend(context.Background(), c.UserID(), name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = c.SendPacket(protocol.PacketFriendAccept, protocol.Map{
			"res": protocol.CodeBadRequest, "reason": "No pending request.",
		})
	case err != nil:
		s.logger.Error().Err(err).Msg("friend accept failed")
		_ = c.SendPacket(protocol.PacketFriendAccept, protocol.Map{"res": protocol.CodeDBError})
	default:
		_ = c.SendPacket(protocol.PacketFriendAccept, protocol.Map{"res": protocol.CodeOK})
	}
}

func (s *Server) handleTableInvite(c *Conn, m protocol.Map) {
	name, _ := m.Str("user")
	tableID, _ := m.Int("tableId")
	t, ok := s.tables.Get(int(tableID))
	if !ok {
		_ = c.SendPacket(protocol.PacketTableInvite, protocol.Map{
			"res": protocol.CodeBadRequest, "reason": "No such table.",
		})
		return
	}
	invitee, ok := s.registry.Get(name)
	if !ok {
		_ = c.SendPacket(protocol.PacketTableInvite, protocol.Map{
			"res": protocol.CodeBadRequest, "reason": "User is offline.",
		})
		return
	}
	_ = invitee.SendPacket(protocol.PacketTableInvited, protocol.Map{
		"from":    c.Username(),
		"tableId": t.ID,
		"name":    t.Name,
	})
	_ = c.SendPacket(protocol.PacketTableInvite, protocol.Map{"res": protocol.CodeOK})
}
