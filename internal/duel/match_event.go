package duel

import (
	"time"

	"github.com/google/uuid"
)

type MatchEventType string

const (
	EventMatchStart   MatchEventType = "match_start"
	EventHealthChange MatchEventType = "health_change"
	EventMatchEnd     MatchEventType = "match_end"
)

// MatchEvent is an append-only audit record of a match's state transitions.
// Events are written on every join, health change and defeat, and never
// updated afterwards.
type MatchEvent struct {
	ID        uuid.UUID      `db:"id"`
	MatchID   uuid.UUID      `db:"match_id"`
	PlayerID  uuid.UUID      `db:"player_id"`
	EventType MatchEventType `db:"event_type"`
	OldValue  *int           `db:"old_value"`
	NewValue  *int           `db:"new_value"`
	CreatedAt time.Time      `db:"created_at"`
}
