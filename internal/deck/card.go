package deck

import "fmt"

// Suit uses the wire numbering (Spades=1 .. Clubs=4) so a card's protocol
// value can be derived arithmetically, without a translation table.
type Suit int

const (
	Spades Suit = iota + 1
	Hearts
	Diamonds
	Clubs
)

// String returns the suit symbol.
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Rank represents a card rank. Aces are always high (14); straights treat
// the wheel specially at evaluation time.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the one-character rank label.
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Nine:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Card is a single playing card.
type Card struct {
	Suit Suit
	Rank Rank
}

// Hidden is the wire value sent for a hole card the viewer may not see.
const Hidden = -1

// NewCard creates a card from a suit and rank.
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns e.g. "A♠" or "T♥".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Valid reports whether the card holds a real suit and rank.
func (c Card) Valid() bool {
	return c.Suit >= Spades && c.Suit <= Clubs && c.Rank >= Two && c.Rank <= Ace
}

// Wire returns the protocol integer for the card: suit·13 + (rank−2),
// range 13..64.
func (c Card) Wire() int {
	return int(c.Suit)*13 + int(c.Rank) - 2
}

// FromWire decodes a protocol integer back into a card.
func FromWire(v int) (Card, error) {
	if v < 13 || v > 64 {
		return Card{}, fmt.Errorf("card value %d out of range", v)
	}
	return Card{Suit: Suit(v / 13), Rank: Rank(v%13 + 2)}, nil
}
