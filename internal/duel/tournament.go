package duel

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "registration"
	TournamentInProgress   TournamentStatus = "in_progress"
	TournamentCompleted    TournamentStatus = "completed"
)

type Tournament struct {
	ID           uuid.UUID        `db:"id"`
	Name         string           `db:"name"`
	MaxPlayers   int              `db:"max_players"`
	StartingLife int              `db:"starting_life"`
	Status       TournamentStatus `db:"status"`

	// CurrentRound is 0 until a schedule has been generated, then always a
	// valid round number for this tournament.
	CurrentRound int `db:"current_round"`

	CreatedAt   time.Time  `db:"created_at"`
	CompletedAt *time.Time `db:"completed_at"`
}
