package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrExhausted is returned by Draw once all 52 cards have been dealt.
var ErrExhausted = errors.New("deck exhausted")

// Deck is a standard 52-card deck dealt from a cursor. Cards behind the
// cursor stay in place, so a hand's deals are stable once drawn; Shuffle
// only ever touches the undrawn region.
type Deck struct {
	cards [52]Card
	top   int
	rng   *rand.Rand
}

// New returns a deck in identity order that uses rng for shuffles.
func New(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.Reset()
	return d
}

// Reset restores identity order (suits ascending, ranks 2..A within each
// suit) and rewinds the cursor.
func (d *Deck) Reset() {
	i := 0
	for s := Spades; s <= Clubs; s++ {
		for r := Two; r <= Ace; r++ {
			d.cards[i] = Card{Suit: s, Rank: r}
			i++
		}
	}
	d.top = 0
}

// Reseed swaps the shuffle source. Called at hand start so each hand mixes
// the wall clock with the hand id.
func (d *Deck) Reseed(rng *rand.Rand) {
	d.rng = rng
}

// Shuffle performs n random pair swaps over the undrawn region.
func (d *Deck) Shuffle(n int) {
	span := len(d.cards) - d.top
	if span < 2 {
		return
	}
	for k := 0; k < n; k++ {
		i := d.top + d.rng.IntN(span)
		j := d.top + d.rng.IntN(span)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Stack arranges the given cards to come off the top of the undrawn region
// in the given order. Tests rig deals with it; unknown or already-drawn
// cards are skipped.
func (d *Deck) Stack(cards ...Card) {
	for idx, want := range cards {
		pos := d.top + idx
		if pos >= len(d.cards) {
			return
		}
		for j := pos; j < len(d.cards); j++ {
			if d.cards[j] == want {
				d.cards[pos], d.cards[j] = d.cards[j], d.cards[pos]
				break
			}
		}
	}
}

// Draw deals the next card and advances the cursor.
func (d *Deck) Draw() (Card, error) {
	if d.top >= len(d.cards) {
		return Card{}, ErrExhausted
	}
	c := d.cards[d.top]
	d.top++
	return c, nil
}

// Remaining reports how many cards are still undrawn.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.top
}
