package event

import "github.com/google/uuid"

// Broadcaster is the hook the engine uses to notify the transport layer of
// state changes. The engine never holds a reference to a connection; the
// websocket hub implements this interface and fans the events out.
type Broadcaster interface {
	// HealthChanged fires after every accepted life-total change. Only the
	// acting player's new total is exposed.
	HealthChanged(matchID, playerID uuid.UUID, newHealth int)

	// MatchCompleted fires when a match reaches its terminal state. The
	// winner is nil for force-ended matches with no decided winner.
	MatchCompleted(matchID uuid.UUID, winnerID *uuid.UUID)

	// RoundCompleted fires at most once per round, after the tournament has
	// advanced. The argument is the tournament's new current round.
	RoundCompleted(roundNumber int)
}

// Nop discards all events. Used where no transport is attached, e.g. tests.
type Nop struct{}

func (Nop) HealthChanged(matchID, playerID uuid.UUID, newHealth int) {}

func (Nop) MatchCompleted(matchID uuid.UUID, winnerID *uuid.UUID) {}

func (Nop) RoundCompleted(roundNumber int) {}
