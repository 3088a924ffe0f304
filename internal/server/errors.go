package server

import "errors"

// Command errors. Each sentinel belongs to one rejection category; the
// websocket boundary turns them into a command-rejected event for the caller
// and nothing else. They never escape the room's serialized section.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrTargetNotFound = errors.New("target not found")

	ErrEmptyRoomName   = errors.New("room name is required")
	ErrRoomNameTooLong = errors.New("room name must be 32 characters or fewer")
	ErrEmptyNickname   = errors.New("nickname is required")
	ErrNicknameTooLong = errors.New("nickname must be 20 characters or fewer")
	ErrInvalidCapacity = errors.New("room capacity must be between 2 and 10")

	ErrRoomFull = errors.New("room is full")

	ErrAlreadyJoined  = errors.New("already in a room")
	ErrAlreadyVoted   = errors.New("vote already cast")
	ErrAlreadyStarted = errors.New("game already started")

	ErrNotHost             = errors.New("only the host can start the game")
	ErrNotYourRole         = errors.New("your role cannot perform this action")
	ErrInsufficientPlayers = errors.New("at least 2 players are required")
	ErrNotAllReady         = errors.New("all players must be ready")

	ErrNotInRoom     = errors.New("not in a room")
	ErrNoSession     = errors.New("no game in progress")
	ErrWrongPhase    = errors.New("action not allowed in the current phase")
	ErrNotAlive      = errors.New("dead players cannot act")
	ErrTargetDead    = errors.New("target is not alive")
	ErrBodyNotDead   = errors.New("reported player is not dead")
	ErrNotRegistered = errors.New("identity not registered")

	ErrMalformedCommand = errors.New("malformed command")
)

const (
	rejectValidation = "validation_error"
	rejectNotFound   = "not_found"
	rejectConflict   = "state_conflict"
	rejectAuth       = "unauthorized"
	rejectCapacity   = "room_full"
	rejectDuplicate  = "already_in_progress"
	rejectInternal   = "internal_error"
)

// rejectionCode buckets a command error for client-side messaging. Messages
// stay generic on purpose: a failed investigate must read the same whether
// the target is mafia or not.
func rejectionCode(err error) string {
	switch {
	case errors.Is(err, ErrEmptyRoomName),
		errors.Is(err, ErrRoomNameTooLong),
		errors.Is(err, ErrEmptyNickname),
		errors.Is(err, ErrNicknameTooLong),
		errors.Is(err, ErrInvalidCapacity),
		errors.Is(err, ErrNotRegistered),
		errors.Is(err, ErrMalformedCommand):
		return rejectValidation
	case errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrPlayerNotFound),
		errors.Is(err, ErrTargetNotFound),
		errors.Is(err, ErrNotInRoom):
		return rejectNotFound
	case errors.Is(err, ErrRoomFull):
		return rejectCapacity
	case errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrAlreadyVoted),
		errors.Is(err, ErrAlreadyStarted):
		return rejectDuplicate
	case errors.Is(err, ErrNotHost),
		errors.Is(err, ErrNotYourRole),
		errors.Is(err, ErrNotAlive):
		return rejectAuth
	case errors.Is(err, ErrInsufficientPlayers),
		errors.Is(err, ErrNotAllReady),
		errors.Is(err, ErrNoSession),
		errors.Is(err, ErrWrongPhase),
		errors.Is(err, ErrTargetDead),
		errors.Is(err, ErrBodyNotDead):
		return rejectConflict
	default:
		return rejectInternal
	}
}
