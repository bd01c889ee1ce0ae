package duel

import "github.com/google/uuid"

// Pairing is one match-up inside a round. Slot order is rotation order, not
// seeding.
type Pairing struct {
	Player1 uuid.UUID
	Player2 uuid.UUID
}

// GenerateSchedule builds a round-robin schedule with the circle method:
// treat the players as a circle, pair seat i with seat n-1-i, then rotate
// keeping seat 0 fixed and moving the last seat to position 1. Every
// unordered pair of players meets exactly once and no player appears twice
// in the same round.
//
// With an odd player count a sentinel bye seat is added; pairings involving
// it are skipped, so one player sits out each round. The result is n-1
// rounds for even n and n rounds for odd n. Fewer than 2 players yields nil.
func GenerateSchedule(playerIDs []uuid.UUID) [][]Pairing {
	if len(playerIDs) < 2 {
		return nil
	}

	seats := make([]uuid.UUID, len(playerIDs))
	copy(seats, playerIDs)

	if len(seats)%2 == 1 {
		seats = append(seats, uuid.Nil) // bye seat
	}
	n := len(seats)

	rounds := make([][]Pairing, 0, n-1)
	for r := 0; r < n-1; r++ {
		pairings := make([]Pairing, 0, n/2)
		for i := 0; i < n/2; i++ {
			p1, p2 := seats[i], seats[n-1-i]
			if p1 == uuid.Nil || p2 == uuid.Nil {
				continue
			}
			pairings = append(pairings, Pairing{Player1: p1, Player2: p2})
		}
		rounds = append(rounds, pairings)

		rotated := make([]uuid.UUID, 0, n)
		rotated = append(rotated, seats[0], seats[n-1])
		rotated = append(rotated, seats[1:n-1]...)
		seats = rotated
	}

	return rounds
}
