package game

import (
	"fmt"

	"github.com/datamonsterr/Cardio-sub000/internal/deck"
	"github.com/datamonsterr/Cardio-sub000/internal/randutil"
)

// MaxSeats is the number of seat slots every table carries regardless of its
// configured player cap.
const MaxSeats = 9

// shuffleSwaps is how many pair swaps randomise the deck between hands.
const shuffleSwaps = 1000

// Round is the betting street, advancing PREFLOP through COMPLETE.
type Round int

const (
	RoundPreflop Round = iota
	RoundFlop
	RoundTurn
	RoundRiver
	RoundShowdown
	RoundComplete
)

var roundNames = [...]string{
	"preflop",
	"flop",
	"turn",
	"river",
	"showdown",
	"complete",
}

// String returns the wire name of the round.
func (r Round) String() string {
	if r < RoundPreflop || r > RoundComplete {
		return "unknown"
	}
	return roundNames[r]
}

// Game is the state of one table's hold'em game. It is not goroutine-safe;
// the owning table serialises every call under its lock.
type Game struct {
	ID     int
	HandID int64
	Seq    int64

	MaxPlayers int
	SmallBlind int
	BigBlind   int
	MinBuyIn   int
	MaxBuyIn   int

	Seats     [MaxSeats]*Player
	Community []deck.Card

	MainPot  Pot
	SidePots []Pot

	CurrentBet     int
	MinRaise       int
	LastAggressor  int
	PlayersActed   int
	DealerSeat     int
	ActiveSeat     int
	Round          Round
	HandInProgress bool

	WinnerSeat     int
	AmountWon      int
	WinnerHandRank int
	WinnerHand     string

	deck    *deck.Deck
	shuffle func(d *deck.Deck, handID int64)
}

// Option configures a Game at construction.
type Option func(*Game)

// WithShuffle overrides how the deck is randomised at hand start. Tests use
// it to deal a known order.
func WithShuffle(fn func(d *deck.Deck, handID int64)) Option {
	return func(g *Game) {
		g.shuffle = fn
	}
}

func defaultShuffle(d *deck.Deck, handID int64) {
	d.Reseed(randutil.ForHand(handID))
	d.Shuffle(shuffleSwaps)
}

// New creates an empty game. Buy-in limits derive from the big blind: 20·BB
// minimum, 100·BB maximum.
func New(id, maxPlayers, smallBlind, bigBlind int, opts ...Option) *Game {
	if maxPlayers > MaxSeats {
		maxPlayers = MaxSeats
	}
	g := &Game{
		ID:             id,
		MaxPlayers:     maxPlayers,
		SmallBlind:     smallBlind,
		BigBlind:       bigBlind,
		MinBuyIn:       20 * bigBlind,
		MaxBuyIn:       100 * bigBlind,
		DealerSeat:     -1,
		ActiveSeat:     -1,
		LastAggressor:  -1,
		WinnerSeat:     -1,
		WinnerHandRank: -1,
		Round:          RoundComplete,
		shuffle:        defaultShuffle,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.deck = deck.New(randutil.ForHand(0))
	return g
}

// AddPlayer seats a user at the first empty seat with the given buy-in. The
// seat waits for the next hand. Returns the seat index.
func (g *Game) AddPlayer(userID int64, name string, buyIn int) (int, error) {
	if buyIn < g.MinBuyIn || buyIn > g.MaxBuyIn {
		return -1, fmt.Errorf("%w: %d not in [%d, %d]", ErrBuyIn, buyIn, g.MinBuyIn, g.MaxBuyIn)
	}
	seat := -1
	for i := 0; i < g.MaxPlayers; i++ {
		p := g.Seats[i]
		if p == nil {
			if seat < 0 {
				seat = i
			}
			continue
		}
		if p.UserID == userID {
			return -1, ErrAlreadySeated
		}
	}
	if seat < 0 {
		return -1, ErrTableFull
	}
	g.Seats[seat] = &Player{
		UserID:         userID,
		OriginalUserID: userID,
		Name:           name,
		Seat:           seat,
		State:          StateWaiting,
		Money:          buyIn,
	}
	return seat, nil
}

// RemovePlayer frees a seat. Mid-hand departures of seats that were dealt in
// convert to a bot instead, and their chips are credited when the hand ends;
// becameBot reports that case and chips are returned otherwise.
func (g *Game) RemovePlayer(seat int) (chips int, becameBot bool, err error) {
	p := g.seatAt(seat)
	if p == nil {
		return 0, false, ErrNoSuchSeat
	}
	if g.HandInProgress && (p.State == StateActive || p.State == StateAllIn || p.State == StateFolded) {
		if err := g.ConvertToBot(seat); err != nil {
			return 0, false, err
		}
		return 0, true, nil
	}
	chips = p.Money
	g.Seats[seat] = nil
	return chips, false, nil
}

// ConvertToBot keeps a seat playing after its owner is gone. The original
// user id is retained so the stack can be credited back at hand end.
func (g *Game) ConvertToBot(seat int) error {
	p := g.seatAt(seat)
	if p == nil {
		return ErrNoSuchSeat
	}
	if !p.IsBot {
		p.OriginalUserID = p.UserID
	}
	p.UserID = BotUserID
	p.IsBot = true
	p.Name = "Bot"
	return nil
}

// SitOut benches a seat from future hands; a live hand is unaffected until
// the next deal.
func (g *Game) SitOut(seat int) error {
	p := g.seatAt(seat)
	if p == nil {
		return ErrNoSuchSeat
	}
	if !g.HandInProgress || p.State == StateWaiting {
		p.State = StateSittingOut
	}
	return nil
}

// SitIn returns a benched seat to play from the next hand.
func (g *Game) SitIn(seat int) error {
	p := g.seatAt(seat)
	if p == nil {
		return ErrNoSuchSeat
	}
	if p.State == StateSittingOut {
		p.State = StateWaiting
	}
	return nil
}

// SeatOf returns the seat index a user occupies, -1 if not seated.
func (g *Game) SeatOf(userID int64) int {
	for i, p := range g.Seats {
		if p != nil && p.UserID == userID {
			return i
		}
	}
	return -1
}

// PlayerCount reports occupied seats.
func (g *Game) PlayerCount() int {
	n := 0
	for _, p := range g.Seats {
		if p != nil {
			n++
		}
	}
	return n
}

// EligibleCount reports seats that can be dealt into the next hand.
func (g *Game) EligibleCount() int {
	n := 0
	for _, p := range g.Seats {
		if p != nil && p.State != StateSittingOut && p.Money > 0 {
			n++
		}
	}
	return n
}

// StartHand resets per-hand state, deals hole cards, posts blinds and hands
// the action to the seat after the big blind.
func (g *Game) StartHand() error {
	if g.HandInProgress {
		return ErrHandInProgress
	}
	if g.EligibleCount() < 2 {
		return ErrNotEnoughPlayers
	}

	g.HandID++
	g.Community = g.Community[:0]
	g.MainPot = Pot{}
	g.SidePots = nil
	g.WinnerSeat = -1
	g.AmountWon = 0
	g.WinnerHandRank = -1
	g.WinnerHand = ""
	for _, p := range g.Seats {
		if p != nil {
			p.clearForHand()
		}
	}
	g.deck.Reset()
	g.shuffle(g.deck, g.HandID)

	for _, p := range g.Seats {
		if p != nil && p.State == StateWaiting && p.Money > 0 {
			p.State = StateActive
		}
	}

	g.DealerSeat = g.nextSeatWhere(g.DealerSeat, func(p *Player) bool {
		return p.State != StateSittingOut
	})
	if g.DealerSeat < 0 {
		return g.fault(ErrNoActor)
	}
	var sb int
	if g.countState(StateActive) == 2 {
		// Heads-up the dealer posts the small blind.
		sb = g.DealerSeat
		if !g.isActive(sb) {
			sb = g.nextActive(sb)
		}
	} else {
		sb = g.nextActive(g.DealerSeat)
	}
	bb := g.nextActive(sb)
	if sb < 0 || bb < 0 {
		return g.fault(ErrNoActor)
	}
	if d := g.Seats[g.DealerSeat]; d != nil {
		d.IsDealer = true
	}
	g.Seats[sb].IsSmallBlind = true
	g.Seats[bb].IsBigBlind = true

	// Two passes in seat order, one card per pass.
	for pass := 0; pass < 2; pass++ {
		for _, p := range g.Seats {
			if p == nil || p.State != StateActive {
				continue
			}
			card, err := g.deck.Draw()
			if err != nil {
				return g.fault(fmt.Errorf("deal hole: %w", err))
			}
			p.Hole[pass] = card
		}
	}

	g.Seats[sb].commit(min(g.Seats[sb].Money, g.SmallBlind))
	g.Seats[bb].commit(min(g.Seats[bb].Money, g.BigBlind))
	g.CurrentBet = g.BigBlind
	g.MinRaise = g.BigBlind
	g.LastAggressor = -1
	g.PlayersActed = 0

	g.ActiveSeat = g.nextActive(bb)
	if g.ActiveSeat < 0 {
		return g.fault(ErrNoActor)
	}
	g.Round = RoundPreflop
	g.HandInProgress = true
	return nil
}

// FinishHand clears bot and busted seats once a hand has completed and
// reports what was removed so stacks can be credited back to accounts.
func (g *Game) FinishHand() []Removal {
	if g.HandInProgress {
		return nil
	}
	var removed []Removal
	for seat, p := range g.Seats {
		if p == nil {
			continue
		}
		switch {
		case p.IsBot:
			removed = append(removed, Removal{
				Seat: seat, UserID: p.OriginalUserID, Name: p.Name,
				Chips: p.Money, WasBot: true,
			})
			g.Seats[seat] = nil
		case p.Money == 0:
			removed = append(removed, Removal{
				Seat: seat, UserID: p.UserID, Name: p.Name,
			})
			g.Seats[seat] = nil
		}
	}
	return removed
}

// Removal describes a seat cleared at hand end. Chips go back to the user's
// account balance; bust-outs carry zero.
type Removal struct {
	Seat   int
	UserID int64
	Name   string
	Chips  int
	WasBot bool
}

// fault aborts the current hand but keeps the table usable. Uncollected
// street bets go back to the stacks they came from.
func (g *Game) fault(cause error) error {
	for _, p := range g.Seats {
		if p != nil && p.Bet > 0 {
			p.Money += p.Bet
			p.TotalBet -= p.Bet
			p.Bet = 0
		}
	}
	g.HandInProgress = false
	g.ActiveSeat = -1
	g.Round = RoundComplete
	if cause == ErrNoActor {
		return ErrNoActor
	}
	return fmt.Errorf("%w: %v", ErrEngineFault, cause)
}

func (g *Game) seatAt(seat int) *Player {
	if seat < 0 || seat >= MaxSeats {
		return nil
	}
	return g.Seats[seat]
}

func (g *Game) isActive(seat int) bool {
	p := g.seatAt(seat)
	return p != nil && p.State == StateActive
}

// nextSeatWhere scans clockwise from the seat after `from`, wrapping across
// all nine slots, and returns the first occupied seat the predicate accepts.
func (g *Game) nextSeatWhere(from int, ok func(*Player) bool) int {
	for i := 1; i <= MaxSeats; i++ {
		seat := (from + i + MaxSeats) % MaxSeats
		if p := g.Seats[seat]; p != nil && ok(p) {
			return seat
		}
	}
	return -1
}

func (g *Game) nextActive(from int) int {
	return g.nextSeatWhere(from, func(p *Player) bool {
		return p.State == StateActive
	})
}

func (g *Game) countState(states ...SeatState) int {
	n := 0
	for _, p := range g.Seats {
		if p == nil {
			continue
		}
		for _, s := range states {
			if p.State == s {
				n++
				break
			}
		}
	}
	return n
}

// Contenders counts seats still eligible for the pot.
func (g *Game) Contenders() int {
	return g.countState(StateActive, StateAllIn)
}
