// Package apperrors holds the reasons a room drops a client frame. Frames are
// dropped silently on the wire; the reason only reaches logs and metrics.
package apperrors

import "errors"

// GameError is a drop reason shared by rooms and sessions.
type GameError struct {
	Code    int
	Reason  string // metrics label
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// Drop codes.
const (
	CodeMalformed = 1000 + iota
	CodeUnknownType
	CodeNotInRoom
	CodeWrongPhase
	CodeNotYourTurn
	CodeRoomUnavailable
	CodeRateLimited
	CodeInvalidArgument
)

var (
	ErrMalformed       = &GameError{Code: CodeMalformed, Reason: "malformed", Message: "malformed frame"}
	ErrUnknownType     = &GameError{Code: CodeUnknownType, Reason: "unknown_type", Message: "unknown message type"}
	ErrNotInRoom       = &GameError{Code: CodeNotInRoom, Reason: "not_in_room", Message: "connection has not joined a room"}
	ErrWrongPhase      = &GameError{Code: CodeWrongPhase, Reason: "wrong_phase", Message: "action not allowed in current phase"}
	ErrNotYourTurn     = &GameError{Code: CodeNotYourTurn, Reason: "not_your_turn", Message: "seat is not the current turn"}
	ErrRoomUnavailable = &GameError{Code: CodeRoomUnavailable, Reason: "room_unavailable", Message: "room could not be created"}
	ErrRateLimited     = &GameError{Code: CodeRateLimited, Reason: "rate_limited", Message: "message rate exceeded"}
	ErrInvalidArgument = &GameError{Code: CodeInvalidArgument, Reason: "invalid_argument", Message: "invalid argument"}
)

// ReasonOf maps err to a drop reason label. Errors that are not a GameError
// report as "internal".
func ReasonOf(err error) string {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Reason
	}
	return "internal"
}
