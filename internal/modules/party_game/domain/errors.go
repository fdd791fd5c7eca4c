package domain

import (
	"errors"
	"fmt"
)

// ErrorKind groups error codes by how callers should react to them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindForbidden
	KindInvalidArgument
	KindFailedPrecondition
)

// Error is a structured domain error. Two errors match under errors.Is when
// their codes are equal, so sentinel values can be compared against errors
// carrying extra metadata.
type Error struct {
	Code     string
	Kind     ErrorKind
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy of e with a new message and metadata.
func (e *Error) With(message string, metadata map[string]string) *Error {
	cp := *e
	if message != "" {
		cp.Message = message
	}
	if len(metadata) > 0 {
		cp.Metadata = make(map[string]string, len(e.Metadata)+len(metadata))
		for k, v := range e.Metadata {
			cp.Metadata[k] = v
		}
		for k, v := range metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func newError(code string, kind ErrorKind, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

// KindOf reports the kind of err, KindInternal for non-domain errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Not found
var (
	ErrGameNotFound   = newError("GAME_NOT_FOUND", KindNotFound, "game not found")
	ErrRoundNotFound  = newError("ROUND_NOT_FOUND", KindNotFound, "round not found")
	ErrPlayerNotFound = newError("PLAYER_NOT_FOUND", KindNotFound, "player not found")
	ErrTargetNotFound = newError("TARGET_NOT_IN_GAME", KindNotFound, "target player is not in this game")
)

// Forbidden
var (
	ErrRoundNotInGame      = newError("ROUND_NOT_IN_GAME", KindForbidden, "round does not belong to this game")
	ErrPlayerNotInGame     = newError("PLAYER_NOT_IN_GAME", KindForbidden, "player is not in this game")
	ErrNotHost             = newError("NOT_HOST", KindForbidden, "only the host can do this")
	ErrNotRoundTarget      = newError("NOT_ROUND_TARGET", KindForbidden, "only the round's responder can take the shot")
	ErrSpectatorNotAllowed = newError("SPECTATOR_NOT_ALLOWED", KindForbidden, "spectators cannot do this")
)

// Invalid argument
var (
	ErrInvalidArgument     = newError("INVALID_ARGUMENT", KindInvalidArgument, "invalid argument")
	ErrInvalidAction       = newError("INVALID_ACTION", KindInvalidArgument, "unknown action type")
	ErrForceTargetRequired = newError("FORCE_TARGET_REQUIRED", KindInvalidArgument, "force requires a target player")
	ErrCannotForceSelf     = newError("CANNOT_FORCE_SELF", KindInvalidArgument, "cannot force yourself")
	ErrTargetIsSpectator   = newError("TARGET_IS_SPECTATOR", KindInvalidArgument, "spectators cannot be targeted")
	ErrUnknownState        = newError("UNKNOWN_STATE", KindInvalidArgument, "unknown game state")
)

// Failed precondition
var (
	ErrInvalidTransition      = newError("INVALID_TRANSITION", KindFailedPrecondition, "transition not allowed")
	ErrTransitionGuardFailed  = newError("TRANSITION_GUARD_FAILED", KindFailedPrecondition, "transition guard failed")
	ErrInvalidState           = newError("INVALID_STATE", KindFailedPrecondition, "operation not allowed in the current game state")
	ErrRoundNotActive         = newError("ROUND_NOT_ACTIVE", KindFailedPrecondition, "round is not active")
	ErrWrongRoundPhase        = newError("WRONG_ROUND_PHASE", KindFailedPrecondition, "round is in a different phase")
	ErrNoQuestionsAvailable   = newError("NO_QUESTIONS_AVAILABLE", KindFailedPrecondition, "no questions available")
	ErrRoundsExhausted        = newError("ROUNDS_EXHAUSTED", KindFailedPrecondition, "all rounds for this game have been played")
	ErrInvalidWager           = newError("INVALID_WAGER", KindFailedPrecondition, "invalid wager")
	ErrActionAlreadyPerformed = newError("ACTION_ALREADY_PERFORMED", KindFailedPrecondition, "action already performed this round")
	ErrAlreadyForced          = newError("ALREADY_FORCED", KindFailedPrecondition, "target has already been forced this round")
	ErrTargetShielded         = newError("TARGET_SHIELDED", KindFailedPrecondition, "target is shielded this round")
	ErrDeckUsageNotMet        = newError("DECK_USAGE_NOT_MET", KindFailedPrecondition, "deck usage requirement not met")
	ErrAlreadyFinalized       = newError("ALREADY_FINALIZED", KindFailedPrecondition, "game already finalized")
	ErrNegativeBalance        = newError("NEGATIVE_BALANCE", KindFailedPrecondition, "balance cannot go negative")
)

// Sub-cases that also match their parent code through Cause.
var (
	ErrInsufficientFunds = &Error{Code: "INSUFFICIENT_FUNDS", Kind: KindFailedPrecondition, Message: "insufficient token balance", Cause: ErrInvalidWager}
	ErrDuplicateWager    = &Error{Code: "DUPLICATE_WAGER", Kind: KindFailedPrecondition, Message: "a shot was already taken this round", Cause: ErrActionAlreadyPerformed}
	ErrAlreadyShielded   = &Error{Code: "ALREADY_SHIELDED", Kind: KindFailedPrecondition, Message: "already shielded this round", Cause: ErrActionAlreadyPerformed}
)

// Invalid wraps ErrInvalidArgument with a specific message.
func Invalid(format string, args ...interface{}) error {
	return ErrInvalidArgument.With(fmt.Sprintf(format, args...), nil)
}
