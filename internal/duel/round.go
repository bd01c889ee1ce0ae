package duel

import (
	"time"

	"github.com/google/uuid"
)

type RoundStatus string

const (
	RoundPending    RoundStatus = "pending"
	RoundInProgress RoundStatus = "in_progress"
	RoundCompleted  RoundStatus = "completed"
)

type Round struct {
	ID           uuid.UUID   `db:"id"`
	TournamentID uuid.UUID   `db:"tournament_id"`
	RoundNumber  int         `db:"round_number"`
	Status       RoundStatus `db:"status"`
	StartedAt    *time.Time  `db:"started_at"`
	CompletedAt  *time.Time  `db:"completed_at"`
}
