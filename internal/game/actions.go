package game

import (
	"fmt"

	"github.com/datamonsterr/Cardio-sub000/internal/evaluator"
)

// ActionType is a betting move.
type ActionType int

const (
	ActionFold ActionType = iota
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
	ActionAllIn
)

var actionNames = [...]string{
	"fold",
	"check",
	"call",
	"bet",
	"raise",
	"allin",
}

// String returns the wire name of the action.
func (a ActionType) String() string {
	if a < ActionFold || a > ActionAllIn {
		return "unknown"
	}
	return actionNames[a]
}

// ActionTypeFromString parses a wire action name.
func ActionTypeFromString(s string) (ActionType, error) {
	for i, name := range actionNames {
		if name == s {
			return ActionType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Action is one betting move. Amount is the absolute street bet for Bet and
// Raise and ignored otherwise.
type Action struct {
	Type   ActionType
	Amount int
}

// ActionOption describes one legal move offered to the current actor.
// Call and AllIn carry a fixed Amount; Bet and Raise carry a Min..Max range.
type ActionOption struct {
	Type   ActionType
	Amount int
	Min    int
	Max    int
}

// ProcessAction applies an action on behalf of a user. Anyone but the
// current actor is rejected with ErrNotYourTurn; rule violations come back
// as *InvalidActionError and leave the state untouched.
func (g *Game) ProcessAction(userID int64, act Action) error {
	seat := g.SeatOf(userID)
	if seat < 0 || !g.HandInProgress || seat != g.ActiveSeat {
		return ErrNotYourTurn
	}
	return g.applyAction(seat, act)
}

// ForceAction applies an action for whoever holds the turn, regardless of
// owner. Bot turns and expired action timers come through here.
func (g *Game) ForceAction(act Action) error {
	if !g.HandInProgress || g.ActiveSeat < 0 {
		return ErrNotYourTurn
	}
	return g.applyAction(g.ActiveSeat, act)
}

// BotAction is the fill-in policy for bot seats: check when free, fold when
// facing chips.
func (g *Game) BotAction() Action {
	if p := g.seatAt(g.ActiveSeat); p != nil && p.Bet == g.CurrentBet {
		return Action{Type: ActionCheck}
	}
	return Action{Type: ActionFold}
}

// ActorIsBot reports whether the turn currently belongs to a bot seat.
func (g *Game) ActorIsBot() bool {
	p := g.seatAt(g.ActiveSeat)
	return g.HandInProgress && p != nil && p.IsBot
}

func (g *Game) applyAction(seat int, act Action) error {
	p := g.Seats[seat]
	toCall := g.CurrentBet - p.Bet

	switch act.Type {
	case ActionFold:
		p.State = StateFolded

	case ActionCheck:
		if toCall != 0 {
			return invalid("Cannot check facing a bet.")
		}

	case ActionCall:
		if toCall <= 0 {
			return invalid("Nothing to call.")
		}
		p.commit(min(toCall, p.Money))

	case ActionBet:
		if g.CurrentBet != 0 {
			return invalid("Cannot bet facing a bet.")
		}
		if act.Amount < g.BigBlind {
			return invalid("Bet below big blind.")
		}
		if act.Amount > p.Money {
			return invalid("Bet exceeds stack.")
		}
		p.commit(act.Amount)
		g.CurrentBet = act.Amount
		g.MinRaise = act.Amount
		g.LastAggressor = seat

	case ActionRaise:
		if g.CurrentBet == 0 {
			return invalid("Nothing to raise.")
		}
		if act.Amount < g.CurrentBet+g.MinRaise {
			return invalid("Raise too small.")
		}
		if act.Amount > p.Money+p.Bet {
			return invalid("Raise exceeds stack.")
		}
		raiseBy := act.Amount - g.CurrentBet
		p.commit(act.Amount - p.Bet)
		g.MinRaise = raiseBy
		g.CurrentBet = act.Amount
		g.LastAggressor = seat

	case ActionAllIn:
		if p.Money <= 0 {
			return invalid("No chips to move all-in.")
		}
		p.commit(p.Money)
		p.State = StateAllIn
		if p.Bet > g.CurrentBet {
			g.CurrentBet = p.Bet
			g.LastAggressor = seat
		}

	default:
		return invalid("Unknown action.")
	}

	p.TimerDeadline = 0
	g.PlayersActed++
	g.Seq++
	return g.advance()
}

// AvailableActions lists the legal moves for the current actor, in the fixed
// fold/check/call/bet/raise/allin order the client renders.
func (g *Game) AvailableActions() []ActionOption {
	if !g.HandInProgress {
		return nil
	}
	p := g.seatAt(g.ActiveSeat)
	if p == nil {
		return nil
	}
	toCall := g.CurrentBet - p.Bet

	opts := []ActionOption{{Type: ActionFold}}
	if toCall == 0 {
		opts = append(opts, ActionOption{Type: ActionCheck})
	} else {
		opts = append(opts, ActionOption{Type: ActionCall, Amount: min(toCall, p.Money)})
	}
	if g.CurrentBet == 0 && p.Money >= g.BigBlind {
		opts = append(opts, ActionOption{Type: ActionBet, Min: g.BigBlind, Max: p.Money})
	}
	if g.CurrentBet > 0 && p.Money+p.Bet >= g.CurrentBet+g.MinRaise {
		opts = append(opts, ActionOption{Type: ActionRaise, Min: g.CurrentBet + g.MinRaise, Max: p.Money + p.Bet})
	}
	if p.Money > 0 {
		opts = append(opts, ActionOption{Type: ActionAllIn, Amount: p.Money})
	}
	return opts
}

// roundComplete decides whether the current betting round can close.
func (g *Game) roundComplete() bool {
	if !g.HandInProgress {
		return false
	}
	if g.Contenders() <= 1 {
		return true
	}
	active := g.countState(StateActive)
	if active == 0 {
		return true
	}
	for _, p := range g.Seats {
		if p != nil && p.State == StateActive && p.Bet != g.CurrentBet {
			return false
		}
	}
	return g.PlayersActed >= active
}

// advance moves the turn, and when the round is over collects bets and
// either ends the hand, runs out the board, or opens the next street.
func (g *Game) advance() error {
	if !g.roundComplete() {
		g.ActiveSeat = g.nextActive(g.ActiveSeat)
		if g.ActiveSeat < 0 {
			return g.fault(fmt.Errorf("no next actor on %v", g.Round))
		}
		return nil
	}

	for g.HandInProgress && g.roundComplete() {
		g.collectBets()
		switch {
		case g.Contenders() <= 1:
			g.awardToSurvivor()
		case g.countState(StateActive) <= 1:
			// Betting is over for good; deal what remains and show down.
			if err := g.runOut(); err != nil {
				return g.fault(err)
			}
			g.showdown()
		case g.Round == RoundRiver:
			g.showdown()
		default:
			if err := g.nextStreet(); err != nil {
				return g.fault(err)
			}
		}
	}
	return nil
}

// nextStreet opens the following betting round: collect happened already,
// so deal, reset the betting state and hand the action to the first active
// seat after the dealer.
func (g *Game) nextStreet() error {
	switch g.Round {
	case RoundPreflop:
		if err := g.dealCommunity(3); err != nil {
			return err
		}
		g.Round = RoundFlop
	case RoundFlop:
		if err := g.dealCommunity(1); err != nil {
			return err
		}
		g.Round = RoundTurn
	case RoundTurn:
		if err := g.dealCommunity(1); err != nil {
			return err
		}
		g.Round = RoundRiver
	default:
		return fmt.Errorf("no street after %v", g.Round)
	}
	g.CurrentBet = 0
	g.MinRaise = g.BigBlind
	g.LastAggressor = -1
	g.PlayersActed = 0
	g.ActiveSeat = g.nextActive(g.DealerSeat)
	if g.ActiveSeat < 0 {
		return fmt.Errorf("no actor on %v", g.Round)
	}
	return nil
}

// dealCommunity burns one card, then deals n to the board.
func (g *Game) dealCommunity(n int) error {
	if _, err := g.deck.Draw(); err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	for i := 0; i < n; i++ {
		card, err := g.deck.Draw()
		if err != nil {
			return fmt.Errorf("deal community: %w", err)
		}
		g.Community = append(g.Community, card)
	}
	return nil
}

// runOut deals the remaining streets when no further betting is possible.
func (g *Game) runOut() error {
	for len(g.Community) < 5 {
		n := 1
		if len(g.Community) == 0 {
			n = 3
		}
		if err := g.dealCommunity(n); err != nil {
			return err
		}
	}
	return nil
}

// Abort ends a stuck hand: street bets are swept into the pot and the first
// remaining contender takes everything. The table layer calls it when the
// bot driver trips its iteration guard, so chips never leak from a wedged
// hand.
func (g *Game) Abort() {
	if !g.HandInProgress {
		return
	}
	g.collectBets()
	g.awardToSurvivor()
}

// awardToSurvivor ends a hand that folded out: the last contender takes the
// pot without a showdown, so winner_hand_rank stays -1.
func (g *Game) awardToSurvivor() {
	winner := -1
	for seat, p := range g.Seats {
		if p != nil && p.InHand() {
			winner = seat
			break
		}
	}
	g.finishWith(winner, -1, "")
}

// showdown evaluates every contender's best five of seven. Highest rank
// wins; equal ranks go to the lowest seat index.
func (g *Game) showdown() {
	g.Round = RoundShowdown
	g.collectBets()

	bestSeat, bestRank := -1, -1
	bestName := ""
	for seat, p := range g.Seats {
		if p == nil || !p.InHand() {
			continue
		}
		cards := append(p.Hole[:2:2], g.Community...)
		res, err := evaluator.Evaluate(cards)
		if err != nil {
			// Board short of five cards is an internal fault; fold the
			// seat out of contention rather than guess.
			continue
		}
		if res.Rank > bestRank {
			bestSeat, bestRank = seat, res.Rank
			bestName = res.Category.String()
		}
	}
	g.finishWith(bestSeat, bestRank, bestName)
}

// finishWith pays the whole pot to one seat and closes the hand.
func (g *Game) finishWith(winner, handRank int, handName string) {
	amount := g.potTotal()
	g.WinnerSeat = winner
	g.AmountWon = amount
	g.WinnerHandRank = handRank
	g.WinnerHand = handName
	if p := g.seatAt(winner); p != nil {
		p.Money += amount
	}
	g.MainPot = Pot{}
	g.SidePots = nil
	g.Round = RoundComplete
	g.HandInProgress = false
	g.ActiveSeat = -1
}
