package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/datamonsterr/Cardio-sub000/internal/game"
	"github.com/datamonsterr/Cardio-sub000/internal/protocol"
	"github.com/datamonsterr/Cardio-sub000/internal/store"
)

// maxBotActionsPerTrigger bounds the bot fill-in loop. A healthy hand needs
// far fewer moves; hitting the bound means the turn stopped advancing, so
// the hand is aborted instead of spinning.
const maxBotActionsPerTrigger = 100

// Table couples one engine game with the connections watching it. Every
// process-advance-broadcast sequence runs under its mutex, which is what
// serialises the engine.
type Table struct {
	ID     int
	Name   string
	MinBet int

	srv    *Server
	logger zerolog.Logger

	mu           sync.Mutex
	game         *game.Game
	members      map[int64]*Conn
	detach       []*Conn
	startPending bool
	settled      bool
	destroyed    bool
}

func newTable(srv *Server, id int, name string, maxPlayers, minBet int) *Table {
	if name == "" {
		name = fmt.Sprintf("Table %d", id)
	}
	return &Table{
		ID:     id,
		Name:   name,
		MinBet: minBet,
		srv:    srv,
		logger: srv.logger.With().
			Str("component", "table").
			Int("table_id", id).
			Logger(),
		game:    game.New(id, maxPlayers, minBet/2, minBet),
		members: make(map[int64]*Conn),
		settled: true,
	}
}

// Summary is the lobby listing entry.
func (t *Table) Summary() protocol.Map {
	t.mu.Lock()
	defer t.mu.Unlock()
	return protocol.Map{
		"id":         t.ID,
		"name":       t.Name,
		"cur_player": t.game.PlayerCount(),
		"max_player": t.game.MaxPlayers,
		"min_bet":    t.MinBet,
	}
}

// ViewerState encodes the current game state as seen by one user.
func (t *Table) ViewerState(userID int64) protocol.Map {
	t.mu.Lock()
	defer t.mu.Unlock()
	return protocol.GameState(t.game, userID)
}

// Join seats the connection with a buy-in of 50 big blinds capped by the
// account balance, debiting the account. On success the caller gets the
// joiner's view of the table to send as the response.
func (t *Table) Join(c *Conn) (protocol.Map, int, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return nil, protocol.CodeJoinFailed, "Table is closing."
	}
	uid, username := c.User()
	ctx := context.Background()
	u, err := t.srv.store.GetUser(ctx, uid)
	if err != nil {
		t.logger.Error().Err(err).Int64("user_id", uid).Msg("user lookup failed on join")
		return nil, protocol.CodeDBError, "Server error."
	}
	if u.Balance < int64(t.game.MinBuyIn) {
		return nil, protocol.CodeJoinFailed, "Insufficient balance."
	}
	buyIn := int64(50 * t.game.BigBlind)
	if u.Balance < buyIn {
		buyIn = u.Balance
	}

	seat, err := t.game.AddPlayer(uid, username, int(buyIn))
	switch {
	case errors.Is(err, game.ErrTableFull):
		return nil, protocol.CodeJoinFull, "Table is full."
	case errors.Is(err, game.ErrAlreadySeated):
		return nil, protocol.CodeJoinFailed, "Already seated."
	case err != nil:
		return nil, protocol.CodeJoinFailed, "Cannot join."
	}

	bal, err := t.srv.store.AdjustBalance(ctx, uid, -buyIn)
	if err != nil {
		_, _, _ = t.game.RemovePlayer(seat)
		if errors.Is(err, store.ErrInsufficientBalance) {
			return nil, protocol.CodeJoinFailed, "Insufficient balance."
		}
		t.logger.Error().Err(err).Int64("user_id", uid).Msg("buy-in debit failed")
		return nil, protocol.CodeDBError, "Server error."
	}

	c.SetTable(t.ID, seat)
	c.SetBalance(bal)
	t.members[uid] = c
	t.logger.Info().
		Str("user", username).
		Int("seat", seat).
		Int64("buy_in", buyIn).
		Msg("player joined")

	notes := []string{fmt.Sprintf("%s joined seat %d.", username, seat)}
	events := []protocol.Map{{"event": "player_join", "seat": seat, "user": username}}
	t.scheduleStart()
	t.broadcastLocked(notes, events, uid)
	return protocol.GameState(t.game, uid), protocol.CodeJoinOK, ""
}

// Leave unseats the connection. Mid-hand the seat plays on as a bot and its
// stack is credited when the hand settles; otherwise the chips go back to
// the account immediately. The last connection to leave destroys the table.
func (t *Table) Leave(c *Conn, disconnected bool) (int, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	uid, username := c.User()
	delete(t.members, uid)
	c.SetTable(0, -1)

	seat := t.game.SeatOf(uid)
	if seat < 0 {
		return protocol.CodeLeaveFailed, "Not seated here."
	}
	chips, becameBot, err := t.game.RemovePlayer(seat)
	if err != nil {
		return protocol.CodeLeaveFailed, "Cannot leave right now."
	}

	var notes []string
	var events []protocol.Map
	if becameBot {
		t.logger.Info().Str("user", username).Int("seat", seat).Msg("seat converted to bot")
		notes = append(notes, fmt.Sprintf("%s left; a bot plays the seat out.", username))
		events = append(events, protocol.Map{"event": "player_bot", "seat": seat, "user": username})
	} else {
		if chips > 0 {
			bal, err := t.srv.store.AdjustBalance(context.Background(), uid, int64(chips))
			if err != nil {
				t.logger.Error().Err(err).Int64("user_id", uid).Int("chips", chips).
					Msg("failed to credit stack on leave")
			} else if !disconnected {
				c.SetBalance(bal)
				_ = c.SendPacket(protocol.PacketBalanceUpdate, protocol.Map{"balance": bal})
			}
		}
		notes = append(notes, fmt.Sprintf("%s left the table.", username))
		events = append(events, protocol.Map{"event": "player_leave", "seat": seat, "user": username})
	}

	if len(t.members) == 0 {
		t.destroyLocked()
		return protocol.CodeLeaveOK, ""
	}
	t.postAdvance(&notes, &events)
	t.broadcastLocked(notes, events)
	return protocol.CodeLeaveOK, ""
}

// HandleAction applies one player action. The ACTION_RESULT goes out before
// any broadcast so the actor always sees the verdict first.
func (t *Table) HandleAction(c *Conn, act game.Action, clientSeq int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	uid, username := c.User()
	seat := t.game.SeatOf(uid)
	err := t.game.ProcessAction(uid, act)

	result := protocol.Map{"result": protocol.CodeOK, "client_seq": clientSeq}
	var invalidErr *game.InvalidActionError
	switch {
	case err == nil:
	case errors.Is(err, game.ErrNotYourTurn):
		result["result"] = protocol.CodeNotYourTurn
		result["reason"] = "Not your turn."
	case errors.As(err, &invalidErr):
		result["result"] = protocol.CodeInvalidAction
		result["reason"] = invalidErr.Reason
	default:
		t.logger.Error().Err(err).Int64("user_id", uid).Msg("action failed")
		result["result"] = protocol.CodeServerError
		result["reason"] = "Engine fault."
	}
	_ = c.SendPacket(protocol.PacketActionResult, result)
	if err != nil {
		// A fault aborts the hand under us; everyone still needs to see
		// it end.
		if !t.settled && !t.game.HandInProgress {
			var notes []string
			var events []protocol.Map
			t.postAdvance(&notes, &events)
			t.broadcastLocked(notes, events)
		}
		return
	}

	t.srv.metrics.Actions.WithLabelValues(act.Type.String()).Inc()
	t.logger.Debug().
		Str("user", username).
		Str("action", act.Type.String()).
		Int("amount", act.Amount).
		Int64("seq", t.game.Seq).
		Msg("action applied")

	notes := []string{actionNote(username, act)}
	events := []protocol.Map{{
		"event":  "action",
		"seat":   seat,
		"user":   username,
		"action": act.Type.String(),
		"amount": act.Amount,
	}}
	t.postAdvance(&notes, &events)
	t.broadcastLocked(notes, events)
}

// postAdvance is the housekeeping every engine mutation needs: bot turns,
// settlement once the hand is over, the next auto-start, the actor's timer.
func (t *Table) postAdvance(notes *[]string, events *[]protocol.Map) {
	t.driveBots(notes, events)
	if !t.settled && !t.game.HandInProgress {
		t.settleHandLocked(notes, events)
	}
	if t.game.HandInProgress {
		t.armActionTimer()
	} else {
		t.scheduleStart()
	}
}

// driveBots applies the fill-in policy while the turn belongs to a bot seat.
func (t *Table) driveBots(notes *[]string, events *[]protocol.Map) {
	g := t.game
	for i := 0; g.ActorIsBot(); i++ {
		if i >= maxBotActionsPerTrigger {
			t.logger.Error().Int64("hand_id", g.HandID).
				Msg("bot driver exceeded iteration guard, aborting hand")
			g.Abort()
			return
		}
		seat := g.ActiveSeat
		act := g.BotAction()
		if err := g.ForceAction(act); err != nil {
			t.logger.Error().Err(err).Int("seat", seat).Msg("bot action rejected, aborting hand")
			g.Abort()
			return
		}
		t.srv.metrics.Actions.WithLabelValues(act.Type.String()).Inc()
		*notes = append(*notes, actionNote("Bot", act))
		*events = append(*events, protocol.Map{
			"event":  "action",
			"seat":   seat,
			"user":   "Bot",
			"action": act.Type.String(),
			"amount": act.Amount,
		})
	}
}

// settleHandLocked credits removed stacks back to accounts and queues the
// busted players for detachment after the final broadcast, so they still see
// the hand's outcome.
func (t *Table) settleHandLocked(notes *[]string, events *[]protocol.Map) {
	g := t.game
	t.settled = true
	ctx := context.Background()

	if g.WinnerSeat >= 0 {
		t.srv.metrics.HandsCompleted.Inc()
		if p := g.Seats[g.WinnerSeat]; p != nil {
			if g.WinnerHand != "" {
				*notes = append(*notes, fmt.Sprintf("%s wins %d with %s.", p.Name, g.AmountWon, g.WinnerHand))
			} else {
				*notes = append(*notes, fmt.Sprintf("%s wins %d.", p.Name, g.AmountWon))
			}
		}
		t.logger.Info().
			Int64("hand_id", g.HandID).
			Int("winner_seat", g.WinnerSeat).
			Int("amount", g.AmountWon).
			Str("hand", g.WinnerHand).
			Msg("hand complete")
	} else if g.MainPot.Amount > 0 {
		t.logger.Error().Int64("hand_id", g.HandID).Int("pot", g.MainPot.Amount).
			Msg("hand ended with no winner, pot lost to engine fault")
	}
	*events = append(*events, protocol.Map{
		"event":            "hand_complete",
		"hand_id":          g.HandID,
		"winner_seat":      g.WinnerSeat,
		"amount_won":       g.AmountWon,
		"winner_hand_rank": g.WinnerHandRank,
		"winner_hand":      g.WinnerHand,
	})

	for _, r := range g.FinishHand() {
		if r.Chips > 0 && r.UserID > 0 {
			bal, err := t.srv.store.AdjustBalance(ctx, r.UserID, int64(r.Chips))
			if err != nil {
				t.logger.Error().Err(err).Int64("user_id", r.UserID).Int("chips", r.Chips).
					Msg("failed to credit stack at hand end")
			} else {
				t.pushBalance(r.UserID, bal)
			}
		}
		if r.WasBot {
			continue
		}
		if mc, ok := t.members[r.UserID]; ok {
			bal := mc.Balance()
			if u, err := t.srv.store.GetUser(ctx, r.UserID); err == nil {
				bal = u.Balance
			}
			mc.SetBalance(bal)
			_ = mc.SendPacket(protocol.PacketBalanceUpdate, protocol.Map{"balance": bal})
			*notes = append(*notes, fmt.Sprintf("%s busted out.", r.Name))
			t.detach = append(t.detach, mc)
		}
	}
}

// pushBalance delivers a BALANCE_UPDATE to the user if they are online,
// whether still at this table or back in the lobby.
func (t *Table) pushBalance(userID int64, balance int64) {
	if c, ok := t.members[userID]; ok {
		c.SetBalance(balance)
		_ = c.SendPacket(protocol.PacketBalanceUpdate, protocol.Map{"balance": balance})
		return
	}
	u, err := t.srv.store.GetUser(context.Background(), userID)
	if err != nil {
		return
	}
	if c, ok := t.srv.registry.Get(u.Username); ok {
		c.SetBalance(balance)
		_ = c.SendPacket(protocol.PacketBalanceUpdate, protocol.Map{"balance": balance})
	}
}

// armActionTimer stamps the current human actor's deadline. Bot turns never
// wait; driveBots plays them inline.
func (t *Table) armActionTimer() {
	g := t.game
	if g.ActiveSeat < 0 {
		return
	}
	p := g.Seats[g.ActiveSeat]
	if p == nil || p.IsBot {
		return
	}
	if p.TimerDeadline == 0 {
		p.TimerDeadline = t.srv.clock.Now().Add(t.srv.cfg.ActionTimeout()).UnixMilli()
	}
}

// sweepActionTimer forces the fill-in move on an actor whose deadline has
// passed. The seat is never kicked; the player just loses the street.
func (t *Table) sweepActionTimer(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.game
	if t.destroyed || !g.HandInProgress || g.ActiveSeat < 0 {
		return
	}
	p := g.Seats[g.ActiveSeat]
	if p == nil || p.IsBot || p.TimerDeadline == 0 || now.UnixMilli() < p.TimerDeadline {
		return
	}
	seat := g.ActiveSeat
	name := p.Name
	act := g.BotAction()
	if err := g.ForceAction(act); err != nil {
		t.logger.Error().Err(err).Int("seat", seat).Msg("forced action rejected")
		return
	}
	t.srv.metrics.Actions.WithLabelValues(act.Type.String()).Inc()
	t.logger.Info().
		Str("user", name).
		Str("action", act.Type.String()).
		Msg("action timer expired, forcing move")

	notes := []string{fmt.Sprintf("%s timed out; forced %s.", name, act.Type.String())}
	events := []protocol.Map{{
		"event":  "timeout",
		"seat":   seat,
		"user":   name,
		"action": act.Type.String(),
	}}
	t.postAdvance(&notes, &events)
	t.broadcastLocked(notes, events)
}

// scheduleStart arms the auto-start timer when a hand could begin. It fires
// after the configured delay and re-checks eligibility then.
func (t *Table) scheduleStart() {
	if t.destroyed || t.startPending || t.game.HandInProgress || t.game.EligibleCount() < 2 {
		return
	}
	t.startPending = true
	t.srv.clock.AfterFunc(t.srv.cfg.HandStartDelay(), func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.startPending = false
		if t.destroyed || t.game.HandInProgress || t.game.EligibleCount() < 2 {
			return
		}
		t.startHandLocked()
	})
}

func (t *Table) startHandLocked() {
	err := t.game.StartHand()
	switch {
	case errors.Is(err, game.ErrNotEnoughPlayers), errors.Is(err, game.ErrHandInProgress):
		return
	case err != nil:
		t.logger.Error().Err(err).Msg("hand start failed")
		return
	}
	t.settled = false
	t.logger.Info().
		Int64("hand_id", t.game.HandID).
		Int("players", t.game.Contenders()).
		Msg("hand started")

	notes := []string{fmt.Sprintf("Hand #%d begins.", t.game.HandID)}
	events := []protocol.Map{{"event": "hand_start", "hand_id": t.game.HandID}}
	t.postAdvance(&notes, &events)
	t.broadcastLocked(notes, events)
}

// broadcastLocked sends the bundle uniformly, then a per-viewer game state
// to every member, then detaches anyone settlement removed.
func (t *Table) broadcastLocked(notes []string, events []protocol.Map, except ...int64) {
	if len(notes) > 0 || len(events) > 0 {
		frame, err := protocol.EncodePacket(protocol.PacketUpdateBundle, protocol.Map{
			"seq":           t.game.Seq,
			"notifications": notes,
			"updates":       events,
		})
		if err != nil {
			t.logger.Error().Err(err).Msg("encode bundle failed")
		} else {
			for uid, mc := range t.members {
				if slices.Contains(except, uid) {
					continue
				}
				_ = mc.Send(frame)
			}
		}
	}
	for uid, mc := range t.members {
		if slices.Contains(except, uid) {
			continue
		}
		frame, err := protocol.EncodePacket(protocol.PacketUpdateGameState, protocol.GameState(t.game, uid))
		if err != nil {
			t.logger.Error().Err(err).Msg("encode game state failed")
			continue
		}
		_ = mc.Send(frame)
	}
	for _, dc := range t.detach {
		duid, _ := dc.User()
		delete(t.members, duid)
		dc.SetTable(0, -1)
	}
	t.detach = t.detach[:0]
}

// destroyLocked runs when the last connection is gone: any live hand is
// driven to completion so every stack settles back to an account, then the
// table id is released.
func (t *Table) destroyLocked() {
	if t.destroyed {
		return
	}
	t.destroyed = true

	var notes []string
	var events []protocol.Map
	if t.game.HandInProgress {
		t.driveBots(&notes, &events)
		if t.game.HandInProgress {
			t.logger.Error().Int64("hand_id", t.game.HandID).
				Msg("hand stuck during teardown, aborting")
			t.game.Abort()
		}
	}
	if !t.settled && !t.game.HandInProgress {
		t.settleHandLocked(&notes, &events)
	}

	// Whatever seats remain give their stacks back.
	for seat, p := range t.game.Seats {
		if p == nil {
			continue
		}
		uid := p.UserID
		if p.IsBot {
			uid = p.OriginalUserID
		}
		if uid > 0 && p.Money > 0 {
			bal, err := t.srv.store.AdjustBalance(context.Background(), uid, int64(p.Money))
			if err != nil {
				t.logger.Error().Err(err).Int64("user_id", uid).Int("chips", p.Money).
					Msg("failed to credit stack at teardown")
			} else {
				t.pushBalance(uid, bal)
			}
		}
		t.game.Seats[seat] = nil
	}

	t.detach = nil
	t.srv.tables.Remove(t.ID)
	t.srv.metrics.Tables.Dec()
	t.logger.Info().Msg("table destroyed")
}

func actionNote(name string, act game.Action) string {
	switch act.Type {
	case game.ActionFold:
		return name + " folds."
	case game.ActionCheck:
		return name + " checks."
	case game.ActionCall:
		return name + " calls."
	case game.ActionBet:
		return fmt.Sprintf("%s bets %d.", name, act.Amount)
	case game.ActionRaise:
		return fmt.Sprintf("%s raises to %d.", name, act.Amount)
	case game.ActionAllIn:
		return name + " goes all-in."
	}
	return name + " acts."
}
