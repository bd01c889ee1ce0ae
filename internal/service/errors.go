package service

import "errors"

// Domain errors surfaced to the transport layer. All of these are expected,
// recoverable-by-the-caller conditions; store failures are wrapped and
// propagated unchanged.
var (
	// Not found
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrRoundNotFound      = errors.New("round not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrPlayerNotFound     = errors.New("player not found")

	// Invalid state
	ErrTournamentNotStarted     = errors.New("tournament has not started")
	ErrMatchNotInProgress       = errors.New("match is not in progress")
	ErrScheduleAlreadyGenerated = errors.New("schedule has already been generated")
	ErrNotEnoughPlayers         = errors.New("need at least 2 players to generate schedule")

	// Invalid participant
	ErrNotInMatch = errors.New("player is not assigned to this match")

	// Registration
	ErrRegistrationClosed = errors.New("tournament registration is closed")
	ErrTournamentFull     = errors.New("tournament is full")
	ErrPlayerNameTaken    = errors.New("player name already taken in this tournament")

	// Validation
	ErrInvalidCapacity = errors.New("tournament needs room for at least 2 players")
	ErrInvalidLife     = errors.New("starting life must be positive")
	ErrNameRequired    = errors.New("name is required")

	// Auth
	ErrInvalidPassword = errors.New("incorrect password")
	ErrAdminNotSetUp   = errors.New("admin password is not configured")
)
