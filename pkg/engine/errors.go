package engine

import "errors"

// Validation failures shared across the engine components. All are
// returned to the immediate caller; nothing in this package retries.
var (
	// ErrAlreadySettled is returned when settlement is requested for a
	// match that is already processed. It is benign: the caller should
	// treat it as a no-op, not a failure.
	ErrAlreadySettled = errors.New("match already settled")

	// ErrIncompleteMatch is returned when a match is missing one or
	// both final scores.
	ErrIncompleteMatch = errors.New("match result incomplete")

	// ErrInvalidResult is returned for impossible results, such as a
	// drawn score in tennis.
	ErrInvalidResult = errors.New("invalid match result")

	// ErrInvalidSchedule is returned when a match carries malformed
	// scheduling timestamps.
	ErrInvalidSchedule = errors.New("invalid match schedule")

	// ErrPlayerMismatch is returned when the players handed to
	// settlement are not the match's participants.
	ErrPlayerMismatch = errors.New("players do not belong to match")

	// ErrNotAParlay is returned when fewer than two legs are submitted.
	ErrNotAParlay = errors.New("parlay requires at least two legs")

	// ErrInvalidOdds is returned when a leg's decimal odds are not
	// strictly greater than 1.
	ErrInvalidOdds = errors.New("leg odds must be greater than 1.0")

	// ErrInvalidStake is returned for a zero or negative stake.
	ErrInvalidStake = errors.New("stake must be positive")
)
