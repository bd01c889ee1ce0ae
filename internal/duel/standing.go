package duel

import "github.com/google/uuid"

// Standing is a derived read model, recomputed on demand from completed
// matches. It is never persisted.
type Standing struct {
	PlayerID  uuid.UUID `json:"player_id"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar_url"`
	Colors    []string  `json:"colors"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Points    int       `json:"points"`
	Rank      int       `json:"rank"`
}
