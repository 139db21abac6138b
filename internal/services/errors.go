package services

import "errors"

// Errors returned to callers of LotteryService. The first three are state-machine outcomes
// meant to be reported to the user as-is.
var (
	ErrAlreadyRunning  = errors.New("a lottery is already running")
	ErrNothingRunning  = errors.New("no lottery is running")
	ErrNoParticipants  = errors.New("no participants to draw from")
	ErrInvalidArgument = errors.New("invalid argument")

	// Boundary failures. These are logged, never returned from a lottery operation.
	ErrPersistenceUnavailable  = errors.New("persistence unavailable")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)
