package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNotYourTurn rejects an action from anyone but the current actor.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrHandInProgress rejects a second start while a hand is live.
	ErrHandInProgress = errors.New("hand already in progress")
	// ErrNotEnoughPlayers rejects starting a hand with fewer than two
	// funded seats.
	ErrNotEnoughPlayers = errors.New("not enough players")
	// ErrNoActor is the hand-start fault when no seat can act after the
	// big blind.
	ErrNoActor = errors.New("no actor after big blind")
	// ErrTableFull rejects seating beyond max players.
	ErrTableFull = errors.New("table full")
	// ErrAlreadySeated rejects seating the same user twice.
	ErrAlreadySeated = errors.New("already seated")
	// ErrBuyIn rejects a buy-in outside the table limits.
	ErrBuyIn = errors.New("buy-in out of range")
	// ErrNoSuchSeat rejects operations on an empty or invalid seat.
	ErrNoSuchSeat = errors.New("no such seat")
	// ErrEngineFault marks an internal inconsistency; the hand is aborted
	// but the table survives.
	ErrEngineFault = errors.New("engine fault")
)

// InvalidActionError rejects a structurally valid action that breaks the
// betting rules. Reason is sent verbatim to the client.
type InvalidActionError struct {
	Reason string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action: %s", e.Reason)
}

func invalid(reason string) error {
	return &InvalidActionError{Reason: reason}
}
