package duel

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
)

type Match struct {
	ID      uuid.UUID `db:"id"`
	RoundID uuid.UUID `db:"round_id"`

	// Slot order is arbitrary and carries no seeding meaning.
	Player1ID uuid.UUID `db:"player1_id"`
	Player2ID uuid.UUID `db:"player2_id"`

	// Life totals are nil until the owning player joins the match.
	Player1Health *int `db:"player1_health"`
	Player2Health *int `db:"player2_health"`

	// WinnerID is set if and only if the match completed with a decided
	// winner. Force-ended matches may complete with no winner.
	WinnerID *uuid.UUID `db:"winner_id"`

	Status      MatchStatus `db:"status"`
	StartedAt   *time.Time  `db:"started_at"`
	CompletedAt *time.Time  `db:"completed_at"`
	CreatedAt   time.Time   `db:"created_at"`
}

// SlotOf resolves a player ID to its slot (1 or 2). The second return is
// false when the player is not assigned to this match.
func (m *Match) SlotOf(playerID uuid.UUID) (int, bool) {
	switch playerID {
	case m.Player1ID:
		return 1, true
	case m.Player2ID:
		return 2, true
	}
	return 0, false
}

// Opponent returns the other participant's ID.
func (m *Match) Opponent(playerID uuid.UUID) (uuid.UUID, bool) {
	slot, ok := m.SlotOf(playerID)
	if !ok {
		return uuid.Nil, false
	}
	if slot == 1 {
		return m.Player2ID, true
	}
	return m.Player1ID, true
}

func (m *Match) HealthOf(slot int) *int {
	if slot == 1 {
		return m.Player1Health
	}
	return m.Player2Health
}

func (m *Match) SetHealth(slot int, health int) {
	if slot == 1 {
		m.Player1Health = &health
	} else {
		m.Player2Health = &health
	}
}

func (m *Match) BothJoined() bool {
	return m.Player1Health != nil && m.Player2Health != nil
}
