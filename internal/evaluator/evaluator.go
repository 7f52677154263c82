package evaluator

import (
	"fmt"

	"github.com/datamonsterr/Cardio-sub000/internal/deck"
)

// Category classifies a five-card hand. The numeric order feeds the wire
// rank formula, so these values are a protocol contract and must not change.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = [...]string{
	"High Card",
	"Pair",
	"Two Pair",
	"Three of a Kind",
	"Straight",
	"Flush",
	"Full House",
	"Four of a Kind",
	"Straight Flush",
}

// String returns the display name used in table notifications.
func (c Category) String() string {
	if c < HighCard || c > StraightFlush {
		return "Unknown"
	}
	return categoryNames[c]
}

// Result is the strength of the best five-card hand found in the input.
//
// Rank is the scalar sent to clients: 13·category + (top − 1). Higher wins;
// equal ranks are true ties and the game layer breaks them by seat order.
type Result struct {
	Category Category
	Top      deck.Rank
	Rank     int
}

// String returns e.g. "Full House (rank 91)".
func (r Result) String() string {
	return fmt.Sprintf("%s (rank %d)", r.Category, r.Rank)
}

func score(cat Category, top deck.Rank) Result {
	return Result{Category: cat, Top: top, Rank: 13*int(cat) + int(top) - 1}
}

// Evaluate returns the best five-card result from 5 to 7 cards. It is pure:
// no allocation beyond the fixed scratch arrays, no shared state.
func Evaluate(cards []deck.Card) (Result, error) {
	n := len(cards)
	if n < 5 || n > 7 {
		return Result{}, fmt.Errorf("evaluate: need 5..7 cards, got %d", n)
	}

	best := Result{Rank: -1}
	var five [5]deck.Card
	for i := 0; i < n-4; i++ {
		for j := i + 1; j < n-3; j++ {
			for k := j + 1; k < n-2; k++ {
				for l := k + 1; l < n-1; l++ {
					for m := l + 1; m < n; m++ {
						five[0], five[1], five[2], five[3], five[4] =
							cards[i], cards[j], cards[k], cards[l], cards[m]
						if r := scoreFive(five); r.Rank > best.Rank {
							best = r
						}
					}
				}
			}
		}
	}
	return best, nil
}

// scoreFive categorises exactly five cards.
func scoreFive(c [5]deck.Card) Result {
	var rankCount [15]int
	flush := true
	highest := deck.Rank(0)
	for i, card := range c {
		rankCount[card.Rank]++
		if card.Rank > highest {
			highest = card.Rank
		}
		if i > 0 && card.Suit != c[0].Suit {
			flush = false
		}
	}

	straightTop := straightTop(rankCount)

	var quad, trips deck.Rank
	var pairHigh, pairLow deck.Rank
	for r := deck.Ace; r >= deck.Two; r-- {
		switch rankCount[r] {
		case 4:
			quad = r
		case 3:
			trips = r
		case 2:
			if pairHigh == 0 {
				pairHigh = r
			} else {
				pairLow = r
			}
		}
	}

	switch {
	case flush && straightTop != 0:
		return score(StraightFlush, straightTop)
	case quad != 0:
		return score(FourOfAKind, quad)
	case trips != 0 && pairHigh != 0:
		return score(FullHouse, trips)
	case flush:
		return score(Flush, highest)
	case straightTop != 0:
		return score(Straight, straightTop)
	case trips != 0:
		return score(ThreeOfAKind, trips)
	case pairHigh != 0 && pairLow != 0:
		return score(TwoPair, pairHigh)
	case pairHigh != 0:
		return score(Pair, pairHigh)
	default:
		return score(HighCard, highest)
	}
}

// straightTop returns the top rank of a five-card run, 0 if none. The wheel
// A-2-3-4-5 counts with top five, so it loses to 2-3-4-5-6.
func straightTop(rankCount [15]int) deck.Rank {
	for top := deck.Ace; top >= deck.Six; top-- {
		run := true
		for r := top; r > top-5; r-- {
			if rankCount[r] == 0 {
				run = false
				break
			}
		}
		if run {
			return top
		}
	}
	if rankCount[deck.Ace] > 0 && rankCount[deck.Two] > 0 && rankCount[deck.Three] > 0 &&
		rankCount[deck.Four] > 0 && rankCount[deck.Five] > 0 {
		return deck.Five
	}
	return 0
}
