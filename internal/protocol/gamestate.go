package protocol

import (
	"fmt"

	"github.com/datamonsterr/Cardio-sub000/internal/deck"
	"github.com/datamonsterr/Cardio-sub000/internal/game"
)

// GameState builds the full game-state payload for one viewer. Hole cards
// belonging to other seats are replaced with -1 unless the hand reached a
// showdown; the viewer's own cards always travel in clear.
//
// available_actions is attached only when the viewer holds the turn, so a
// client never has to derive legality locally.
func GameState(g *game.Game, viewerID int64) Map {
	showdown := g.Round == game.RoundShowdown ||
		(g.Round == game.RoundComplete && g.WinnerHandRank >= 0)

	players := make([]any, game.MaxSeats)
	for seat, p := range g.Seats {
		if p == nil {
			continue
		}
		reveal := p.UserID == viewerID && !p.IsBot
		if showdown && p.InHand() {
			reveal = true
		}
		players[seat] = playerMap(p, reveal)
	}

	community := make([]int, len(g.Community))
	for i, c := range g.Community {
		community[i] = c.Wire()
	}

	sidePots := make([]Map, len(g.SidePots))
	for i, sp := range g.SidePots {
		sidePots[i] = potMap(sp)
	}

	m := Map{
		"game_id":          g.ID,
		"hand_id":          g.HandID,
		"seq":              g.Seq,
		"max_players":      g.MaxPlayers,
		"small_blind":      g.SmallBlind,
		"big_blind":        g.BigBlind,
		"min_buy_in":       g.MinBuyIn,
		"max_buy_in":       g.MaxBuyIn,
		"betting_round":    g.Round.String(),
		"dealer_seat":      g.DealerSeat,
		"active_seat":      g.ActiveSeat,
		"current_bet":      g.CurrentBet,
		"min_raise":        g.MinRaise,
		"main_pot":         g.MainPot.Amount,
		"side_pots":        sidePots,
		"community_cards":  community,
		"players":          players,
		"winner_seat":      g.WinnerSeat,
		"amount_won":       g.AmountWon,
		"winner_hand_rank": g.WinnerHandRank,
	}

	if g.HandInProgress && g.ActiveSeat >= 0 {
		if actor := g.Seats[g.ActiveSeat]; actor != nil && actor.UserID == viewerID && !actor.IsBot {
			m["available_actions"] = ActionOptions(g.AvailableActions())
		}
	}
	return m
}

func playerMap(p *game.Player, reveal bool) Map {
	cards := []int{deck.Hidden, deck.Hidden}
	if reveal {
		for i, c := range p.Hole {
			if c.Valid() {
				cards[i] = c.Wire()
			}
		}
	}
	return Map{
		"player_id":      p.UserID,
		"name":           p.Name,
		"seat":           p.Seat,
		"state":          p.State.String(),
		"money":          p.Money,
		"bet":            p.Bet,
		"total_bet":      p.TotalBet,
		"cards":          cards,
		"is_bot":         p.IsBot,
		"is_dealer":      p.IsDealer,
		"is_small_blind": p.IsSmallBlind,
		"is_big_blind":   p.IsBigBlind,
		"timer_deadline": p.TimerDeadline,
	}
}

func potMap(p game.Pot) Map {
	return Map{
		"amount":           p.Amount,
		"eligible_players": append([]int(nil), p.Eligible...),
	}
}

// ActionOptions encodes the legal-move list: fixed-amount moves carry
// "amount", ranged moves carry "min" and "max".
func ActionOptions(opts []game.ActionOption) []Map {
	out := make([]Map, len(opts))
	for i, o := range opts {
		m := Map{"action": o.Type.String()}
		switch o.Type {
		case game.ActionCall, game.ActionAllIn:
			m["amount"] = o.Amount
		case game.ActionBet, game.ActionRaise:
			m["min"] = o.Min
			m["max"] = o.Max
		}
		out[i] = m
	}
	return out
}

// ParseActionRequest pulls the fields of an ACTION_REQUEST payload:
// game_id, client_seq and the nested action{type, amount}.
func ParseActionRequest(m Map) (gameID int64, act game.Action, clientSeq int64, err error) {
	gameID, ok := m.Int("game_id")
	if !ok {
		return 0, act, 0, fmt.Errorf("missing game_id")
	}
	clientSeq, _ = m.Int("client_seq")
	sub, ok := m.Sub("action")
	if !ok {
		return 0, act, 0, fmt.Errorf("missing action")
	}
	typeName, ok := sub.Str("type")
	if !ok {
		return 0, act, 0, fmt.Errorf("missing action type")
	}
	act.Type, err = game.ActionTypeFromString(typeName)
	if err != nil {
		return 0, act, 0, err
	}
	if amount, ok := sub.Int("amount"); ok {
		act.Amount = int(amount)
	}
	return gameID, act, clientSeq, nil
}
