package game

// Pot holds collected chips and the seats eligible to win them. Side pots
// are modelled for the wire format; distribution beyond the main pot is not
// implemented.
type Pot struct {
	Amount   int
	Eligible []int
}

// collectBets sweeps every seat's street bet into the main pot and records
// which contenders are eligible for it.
func (g *Game) collectBets() {
	eligible := g.MainPot.Eligible[:0]
	for seat, p := range g.Seats {
		if p == nil {
			continue
		}
		if p.Bet > 0 {
			g.MainPot.Amount += p.Bet
			p.Bet = 0
		}
		if p.InHand() {
			eligible = append(eligible, seat)
		}
	}
	g.MainPot.Eligible = eligible
}

// potTotal is the amount a single winner takes at completion.
func (g *Game) potTotal() int {
	total := g.MainPot.Amount
	for _, sp := range g.SidePots {
		total += sp.Amount
	}
	return total
}
