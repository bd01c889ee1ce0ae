package duel

import (
	"time"

	"github.com/google/uuid"
)

type Player struct {
	ID           uuid.UUID `db:"id"`
	TournamentID uuid.UUID `db:"tournament_id"`
	Name         string    `db:"name"`
	AvatarPath   *string   `db:"avatar_path"`

	// Colors is a JSON array of deck color letters, e.g. ["W","U","B"]
	Colors *string `db:"colors"`

	JoinedAt time.Time `db:"joined_at"`
}
