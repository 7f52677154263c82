package game

import (
	"github.com/datamonsterr/Cardio-sub000/internal/deck"
)

// BotUserID is the player_id carried by seats that play on as bots after
// their owner disconnected.
const BotUserID int64 = -1

// SeatState tracks where a seat is in the hand lifecycle.
type SeatState int

const (
	StateEmpty SeatState = iota
	StateWaiting
	StateActive
	StateFolded
	StateAllIn
	StateSittingOut
)

var seatStateNames = [...]string{
	"EMPTY",
	"WAITING",
	"ACTIVE",
	"FOLDED",
	"ALL_IN",
	"SITTING_OUT",
}

// String returns the wire name of the state.
func (s SeatState) String() string {
	if s < StateEmpty || s > StateSittingOut {
		return "UNKNOWN"
	}
	return seatStateNames[s]
}

// Player is one occupied seat. Money is the table stack; Bet is the chips
// committed on the current street and TotalBet across the whole hand.
type Player struct {
	UserID         int64
	OriginalUserID int64
	Name           string
	Seat           int
	State          SeatState
	Money          int
	Bet            int
	TotalBet       int
	Hole           [2]deck.Card
	IsBot          bool
	IsDealer       bool
	IsSmallBlind   bool
	IsBigBlind     bool
	TimerDeadline  int64
}

// InHand reports whether the seat is still contending for the pot.
func (p *Player) InHand() bool {
	return p.State == StateActive || p.State == StateAllIn
}

// commit moves chips from the stack into the street bet. A stack emptied by
// the commit puts the seat all-in.
func (p *Player) commit(amount int) {
	p.Money -= amount
	p.Bet += amount
	p.TotalBet += amount
	if p.Money == 0 && p.State == StateActive {
		p.State = StateAllIn
	}
}

// clearForHand resets the per-hand fields ahead of a new deal.
func (p *Player) clearForHand() {
	p.Bet = 0
	p.TotalBet = 0
	p.Hole = [2]deck.Card{}
	p.IsDealer = false
	p.IsSmallBlind = false
	p.IsBigBlind = false
	p.TimerDeadline = 0
	if p.State != StateSittingOut {
		p.State = StateWaiting
	}
}
