package game

import (
	"errors"
	"testing"

	"github.com/datamonsterr/Cardio-sub000/internal/deck"
)

// stackedGame rigs the deal order. Cards are drawn player-by-player in two
// passes, then burn+3 for the flop and burn+1 for turn and river.
func stackedGame(cards ...deck.Card) *Game {
	return New(1, 9, 10, 20, WithShuffle(func(d *deck.Deck, _ int64) {
		d.Stack(cards...)
	}))
}

func mustStart(t *testing.T, g *Game) {
	t.Helper()
	if err := g.StartHand(); err != nil {
		t.Fatalf("StartHand: %v", err)
	}
}

func act(t *testing.T, g *Game, userID int64, a Action) {
	t.Helper()
	if err := g.ProcessAction(userID, a); err != nil {
		t.Fatalf("user %d %v: %v", userID, a.Type, err)
	}
}

func TestFoldEndsHeadsUpHand(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	// Heads-up the small blind acts first preflop.
	act(t, g, 1, Action{Type: ActionFold})

	if g.HandInProgress || g.Round != RoundComplete {
		t.Fatalf("hand still running: round %v", g.Round)
	}
	if g.WinnerSeat != 2 || g.AmountWon != 30 {
		t.Errorf("winner seat %d won %d, want seat 2 winning 30", g.WinnerSeat, g.AmountWon)
	}
	if g.WinnerHandRank != -1 {
		t.Errorf("fold-out recorded hand rank %d, want -1", g.WinnerHandRank)
	}
	if a, b := g.Seats[0].Money, g.Seats[2].Money; a != 990 || b != 1010 {
		t.Errorf("stacks %d/%d, want 990/1010", a, b)
	}
	if g.ActiveSeat != -1 {
		t.Errorf("active seat %d after completion, want -1", g.ActiveSeat)
	}
}

func TestNotYourTurn(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	if err := g.ProcessAction(2, Action{Type: ActionFold}); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("out-of-turn action: err = %v, want ErrNotYourTurn", err)
	}
	if err := g.ProcessAction(99, Action{Type: ActionFold}); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("stranger action: err = %v, want ErrNotYourTurn", err)
	}
	// The rejected attempts must not have advanced anything.
	if g.Seq != 0 || g.PlayersActed != 0 || g.ActiveSeat != 0 {
		t.Errorf("rejections mutated state: seq %d acted %d active %d", g.Seq, g.PlayersActed, g.ActiveSeat)
	}
}

func TestActionAfterHandCompleteRejected(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)
	act(t, g, 1, Action{Type: ActionFold})

	// The same request replayed: the hand is over, so it is no one's turn.
	if err := g.ProcessAction(1, Action{Type: ActionFold}); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("replayed action: err = %v, want ErrNotYourTurn", err)
	}
}

func TestCheckFacingBetRejected(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	var invErr *InvalidActionError
	err := g.ProcessAction(1, Action{Type: ActionCheck})
	if !errors.As(err, &invErr) {
		t.Fatalf("check facing blind: err = %v, want InvalidActionError", err)
	}
	if g.Seq != 0 {
		t.Error("rejected check advanced seq")
	}
}

func TestRaiseBookkeeping(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	// Min raise preflop is 20+20=40; 39 must be rejected verbatim.
	var invErr *InvalidActionError
	err := g.ProcessAction(1, Action{Type: ActionRaise, Amount: 39})
	if !errors.As(err, &invErr) || invErr.Reason != "Raise too small." {
		t.Fatalf("raise 39: err = %v, want reason %q", err, "Raise too small.")
	}

	act(t, g, 1, Action{Type: ActionRaise, Amount: 60})
	if g.CurrentBet != 60 || g.MinRaise != 40 {
		t.Errorf("current_bet %d min_raise %d, want 60/40", g.CurrentBet, g.MinRaise)
	}
	if g.LastAggressor != 0 {
		t.Errorf("last aggressor %d, want seat 0", g.LastAggressor)
	}

	act(t, g, 2, Action{Type: ActionCall})
	if g.Round != RoundFlop {
		t.Fatalf("round %v, want FLOP after call", g.Round)
	}
	if g.MainPot.Amount != 120 {
		t.Errorf("pot %d, want 120", g.MainPot.Amount)
	}
	// New street resets the betting state.
	if g.CurrentBet != 0 || g.MinRaise != 20 || g.LastAggressor != -1 || g.PlayersActed != 0 {
		t.Errorf("street reset: bet %d raise %d aggressor %d acted %d",
			g.CurrentBet, g.MinRaise, g.LastAggressor, g.PlayersActed)
	}
	// Heads-up the non-dealer acts first postflop.
	if g.ActiveSeat != 2 {
		t.Errorf("flop actor %d, want 2", g.ActiveSeat)
	}
	if len(g.Community) != 3 {
		t.Errorf("community %d cards, want 3", len(g.Community))
	}
}

func TestRaiseExactMinimumAccepted(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	if err := g.ProcessAction(1, Action{Type: ActionRaise, Amount: 40}); err != nil {
		t.Errorf("raise to exactly current+min: %v", err)
	}
	if g.CurrentBet != 40 || g.MinRaise != 20 {
		t.Errorf("current_bet %d min_raise %d, want 40/20", g.CurrentBet, g.MinRaise)
	}
}

func TestBetOnlyWhenUnopened(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	var invErr *InvalidActionError
	if err := g.ProcessAction(1, Action{Type: ActionBet, Amount: 100}); !errors.As(err, &invErr) {
		t.Fatalf("bet facing the blind: err = %v, want InvalidActionError", err)
	}

	act(t, g, 1, Action{Type: ActionCall})
	act(t, g, 2, Action{Type: ActionCheck})
	if g.Round != RoundFlop {
		t.Fatalf("round %v, want FLOP", g.Round)
	}

	// Unopened street: bets below the big blind or above the stack fail.
	if err := g.ProcessAction(2, Action{Type: ActionBet, Amount: 19}); !errors.As(err, &invErr) {
		t.Errorf("bet below BB: err = %v", err)
	}
	if err := g.ProcessAction(2, Action{Type: ActionBet, Amount: 981}); !errors.As(err, &invErr) {
		t.Errorf("bet above stack: err = %v", err)
	}
	act(t, g, 2, Action{Type: ActionBet, Amount: 60})
	if g.CurrentBet != 60 || g.MinRaise != 60 || g.LastAggressor != 2 {
		t.Errorf("after bet: current %d min_raise %d aggressor %d, want 60/60/2",
			g.CurrentBet, g.MinRaise, g.LastAggressor)
	}
}

func TestCheckDownToShowdownTieGoesToLowestSeat(t *testing.T) {
	t.Parallel()

	// Both players end with the same king-high spade flush, so the tie
	// goes to the lower seat.
	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	act(t, g, 1, Action{Type: ActionCall})  // SB completes
	act(t, g, 2, Action{Type: ActionCheck}) // BB option
	for _, round := range []Round{RoundFlop, RoundTurn, RoundRiver} {
		if g.Round != round {
			t.Fatalf("round %v, want %v", g.Round, round)
		}
		act(t, g, 2, Action{Type: ActionCheck})
		act(t, g, 1, Action{Type: ActionCheck})
	}

	if g.Round != RoundComplete || g.HandInProgress {
		t.Fatalf("round %v in progress %v after river checks", g.Round, g.HandInProgress)
	}
	if g.WinnerSeat != 0 || g.AmountWon != 40 {
		t.Errorf("winner %d won %d, want seat 0 winning 40", g.WinnerSeat, g.AmountWon)
	}
	if g.WinnerHandRank < 0 {
		t.Error("showdown did not record a hand rank")
	}
	if a, b := g.Seats[0].Money, g.Seats[2].Money; a != 1020 || b != 980 {
		t.Errorf("stacks %d/%d, want 1020/980", a, b)
	}
}

func TestStackedShowdownPicksStrongerHand(t *testing.T) {
	t.Parallel()

	cc := deck.NewCard
	// Deal order: seat0, seat2, seat0, seat2, then burn+flop, burn+turn,
	// burn+river. Seat 2 rivers a pair of aces over seat 0's king-high.
	g := stackedGame(
		cc(deck.Hearts, deck.King), cc(deck.Diamonds, deck.Ace),
		cc(deck.Clubs, deck.Seven), cc(deck.Hearts, deck.Nine),
		cc(deck.Hearts, deck.Two), // burn
		cc(deck.Clubs, deck.Two), cc(deck.Diamonds, deck.Five), cc(deck.Spades, deck.Jack),
		cc(deck.Hearts, deck.Three), // burn
		cc(deck.Diamonds, deck.Eight),
		cc(deck.Hearts, deck.Four), // burn
		cc(deck.Spades, deck.Ace),
	)
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	act(t, g, 1, Action{Type: ActionCall})
	act(t, g, 2, Action{Type: ActionCheck})
	for i := 0; i < 3; i++ {
		act(t, g, 2, Action{Type: ActionCheck})
		act(t, g, 1, Action{Type: ActionCheck})
	}

	if g.WinnerSeat != 2 {
		t.Fatalf("winner seat %d, want 2 (pair of aces)", g.WinnerSeat)
	}
	if g.WinnerHand != "Pair" {
		t.Errorf("winning hand %q, want Pair", g.WinnerHand)
	}
	if g.Seats[2].Money != 1020 || g.Seats[0].Money != 980 {
		t.Errorf("stacks %d/%d, want 980/1020", g.Seats[0].Money, g.Seats[2].Money)
	}
}

func TestAllInShortcutRunsOutBoard(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 50)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	act(t, g, 1, Action{Type: ActionAllIn})
	if g.Seats[0].State != StateAllIn || g.Seats[0].Bet != 50 {
		t.Fatalf("allin seat: state %v bet %d", g.Seats[0].State, g.Seats[0].Bet)
	}
	if g.CurrentBet != 50 || g.LastAggressor != 0 {
		t.Fatalf("allin above blind: current %d aggressor %d", g.CurrentBet, g.LastAggressor)
	}

	act(t, g, 2, Action{Type: ActionCall})

	// No further betting was possible, so the board ran out to a showdown.
	if len(g.Community) != 5 {
		t.Errorf("community %d cards, want 5", len(g.Community))
	}
	if g.Round != RoundComplete || g.WinnerSeat < 0 {
		t.Errorf("round %v winner %d, want completed showdown", g.Round, g.WinnerSeat)
	}
	if g.AmountWon != 100 {
		t.Errorf("amount won %d, want 100", g.AmountWon)
	}
	if got := totalChips(g); got != 1050 {
		t.Errorf("chips drifted: %d, want 1050", got)
	}
}

func TestCallDegradesToAllIn(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 100)
	mustStart(t, g)

	act(t, g, 1, Action{Type: ActionRaise, Amount: 500})
	act(t, g, 2, Action{Type: ActionCall})

	short := g.Seats[2]
	if short.State != StateAllIn || short.Money != 0 || short.TotalBet != 100 {
		t.Errorf("short caller: state %v money %d total_bet %d, want ALL_IN/0/100",
			short.State, short.Money, short.TotalBet)
	}
	// Single-pot model: the uncalled excess stays in the pot and goes to
	// the winner rather than being refunded.
	if g.Round != RoundComplete {
		t.Fatalf("round %v, want COMPLETE after runout", g.Round)
	}
	if g.AmountWon != 600 {
		t.Errorf("amount won %d, want 600", g.AmountWon)
	}
	if got := totalChips(g); got != 1100 {
		t.Errorf("chips drifted: %d, want 1100", got)
	}
}

func TestAllInBelowCurrentBetKeepsAggressorAndMinRaise(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 1, 2, 50)
	put(g, 2, 3, 1000)
	mustStart(t, g)

	// Seat 0 raises to 60; seat 1 can only move in for 50 total.
	act(t, g, 1, Action{Type: ActionRaise, Amount: 60})
	act(t, g, 2, Action{Type: ActionAllIn})

	if g.CurrentBet != 60 {
		t.Errorf("short all-in moved current_bet to %d", g.CurrentBet)
	}
	if g.LastAggressor != 0 {
		t.Errorf("short all-in stole aggressor: %d", g.LastAggressor)
	}
	if g.MinRaise != 40 {
		t.Errorf("min_raise %d, want 40", g.MinRaise)
	}
}

func TestAllInAboveCurrentBetMovesCurrentBetOnly(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 1, 2, 70)
	put(g, 2, 3, 1000)
	mustStart(t, g)

	act(t, g, 1, Action{Type: ActionRaise, Amount: 60})
	act(t, g, 2, Action{Type: ActionAllIn}) // 70 total, above the 60

	if g.CurrentBet != 70 || g.LastAggressor != 1 {
		t.Errorf("current %d aggressor %d, want 70/1", g.CurrentBet, g.LastAggressor)
	}
	// A short all-in above the bet never grows min_raise.
	if g.MinRaise != 40 {
		t.Errorf("min_raise %d, want 40 unchanged", g.MinRaise)
	}
}

func TestSeqIncrementsOncePerAppliedAction(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	if g.Seq != 0 {
		t.Fatalf("seq %d before any action", g.Seq)
	}
	act(t, g, 1, Action{Type: ActionCall})
	act(t, g, 2, Action{Type: ActionCheck})
	act(t, g, 2, Action{Type: ActionCheck})
	act(t, g, 1, Action{Type: ActionFold})
	if g.Seq != 4 {
		t.Errorf("seq %d after 4 applied actions", g.Seq)
	}
}

func TestAvailableActionsFacingBet(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	opts := g.AvailableActions()
	want := []ActionOption{
		{Type: ActionFold},
		{Type: ActionCall, Amount: 10},
		{Type: ActionRaise, Min: 40, Max: 1000},
		{Type: ActionAllIn, Amount: 990},
	}
	if len(opts) != len(want) {
		t.Fatalf("options %+v, want %d entries", opts, len(want))
	}
	for i, w := range want {
		if opts[i] != w {
			t.Errorf("option %d = %+v, want %+v", i, opts[i], w)
		}
	}
}

func TestAvailableActionsUnopenedStreet(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)
	act(t, g, 1, Action{Type: ActionCall})
	act(t, g, 2, Action{Type: ActionCheck})

	opts := g.AvailableActions() // seat 2 first on the flop
	want := []ActionOption{
		{Type: ActionFold},
		{Type: ActionCheck},
		{Type: ActionBet, Min: 20, Max: 980},
		{Type: ActionAllIn, Amount: 980},
	}
	if len(opts) != len(want) {
		t.Fatalf("options %+v, want %d entries", opts, len(want))
	}
	for i, w := range want {
		if opts[i] != w {
			t.Errorf("option %d = %+v, want %+v", i, opts[i], w)
		}
	}
}

func TestBotActionPolicy(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	// Seat 0 faces the blind: a bot there folds.
	if a := g.BotAction(); a.Type != ActionFold {
		t.Errorf("facing a bet: bot plays %v, want fold", a.Type)
	}
	act(t, g, 1, Action{Type: ActionCall})
	// Seat 2 has matched the bet: a bot there checks.
	if a := g.BotAction(); a.Type != ActionCheck {
		t.Errorf("free option: bot plays %v, want check", a.Type)
	}
}

func TestActorIsBotAfterConversion(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 2, 2, 1000)
	mustStart(t, g)

	if g.ActorIsBot() {
		t.Fatal("human turn reported as bot")
	}
	if err := g.ConvertToBot(0); err != nil {
		t.Fatal(err)
	}
	if !g.ActorIsBot() {
		t.Error("bot turn not reported")
	}
	// ForceAction plays the seat regardless of who owns it now.
	if err := g.ForceAction(g.BotAction()); err != nil {
		t.Fatalf("forced bot action: %v", err)
	}
	if g.HandInProgress || g.WinnerSeat != 2 {
		t.Errorf("bot fold should end the hand: in progress %v winner %d",
			g.HandInProgress, g.WinnerSeat)
	}
}

func TestThreeWayFoldsLeaveSingleWinner(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 1, 2, 1000)
	put(g, 2, 3, 1000)
	mustStart(t, g)

	// Dealer 0, SB 1, BB 2, UTG back at 0.
	act(t, g, 1, Action{Type: ActionFold})
	act(t, g, 2, Action{Type: ActionFold})

	if g.HandInProgress {
		t.Fatal("hand should fold out")
	}
	if g.WinnerSeat != 2 || g.AmountWon != 30 {
		t.Errorf("winner %d won %d, want BB seat 2 winning 30", g.WinnerSeat, g.AmountWon)
	}
	if got := totalChips(g); got != 3000 {
		t.Errorf("chips drifted: %d", got)
	}
}

func TestBigBlindOptionClosesUnraisedPreflop(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 1, 2, 1000)
	put(g, 2, 3, 1000)
	mustStart(t, g)

	act(t, g, 1, Action{Type: ActionCall}) // UTG limps
	act(t, g, 2, Action{Type: ActionCall}) // SB completes
	if g.Round != RoundPreflop {
		t.Fatalf("BB still has the option, round %v", g.Round)
	}
	if g.ActiveSeat != 2 {
		t.Fatalf("active %d, want BB seat 2", g.ActiveSeat)
	}
	act(t, g, 3, Action{Type: ActionCheck})
	if g.Round != RoundFlop {
		t.Errorf("round %v after BB checks, want FLOP", g.Round)
	}
	if g.MainPot.Amount != 60 {
		t.Errorf("pot %d, want 60", g.MainPot.Amount)
	}
}

func TestBigBlindRaiseReopensAction(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 1000)
	put(g, 1, 2, 1000)
	put(g, 2, 3, 1000)
	mustStart(t, g)

	act(t, g, 1, Action{Type: ActionCall})
	act(t, g, 2, Action{Type: ActionCall})
	act(t, g, 3, Action{Type: ActionRaise, Amount: 80})
	if g.Round != RoundPreflop {
		t.Fatalf("raise must reopen the round, got %v", g.Round)
	}
	act(t, g, 1, Action{Type: ActionCall})
	act(t, g, 2, Action{Type: ActionFold})
	if g.Round != RoundFlop {
		t.Errorf("round %v, want FLOP once callers matched", g.Round)
	}
	if g.MainPot.Amount != 180 { // 80 + 80 + dead 20
		t.Errorf("pot %d, want 180", g.MainPot.Amount)
	}
}

func TestChipConservationThroughRaggedHand(t *testing.T) {
	t.Parallel()

	g := testGame()
	put(g, 0, 1, 500)
	put(g, 1, 2, 1200)
	put(g, 2, 3, 900)
	start := 500 + 1200 + 900
	mustStart(t, g)

	steps := []struct {
		user int64
		act  Action
	}{
		{1, Action{Type: ActionRaise, Amount: 60}},
		{2, Action{Type: ActionCall}},
		{3, Action{Type: ActionCall}},
		// Flop: SB seat 1 first.
		{2, Action{Type: ActionCheck}},
		{3, Action{Type: ActionBet, Amount: 100}},
		{1, Action{Type: ActionCall}},
		{2, Action{Type: ActionFold}},
	}
	for i, s := range steps {
		if err := g.ProcessAction(s.user, s.act); err != nil {
			t.Fatalf("step %d (%v by %d): %v", i, s.act.Type, s.user, err)
		}
		if got := totalChips(g); got != start {
			t.Fatalf("step %d: chips %d, want %d", i, got, start)
		}
	}
	// Turn then river check-check to showdown.
	for g.HandInProgress {
		if err := g.ForceAction(Action{Type: ActionCheck}); err != nil {
			t.Fatal(err)
		}
	}
	if got := totalChips(g); got != start {
		t.Errorf("chips after hand: %d, want %d", got, start)
	}
	if g.WinnerSeat != 0 && g.WinnerSeat != 2 {
		t.Errorf("winner %d, want one of the two contenders", g.WinnerSeat)
	}
}
