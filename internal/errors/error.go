package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("user with provided username was not found")
	ErrSessionNotFound  = errors.New("session was not found")
	ErrGameNotFound     = errors.New("game not found")
	ErrNotGameOwner     = errors.New("game belongs to another user")
	ErrInvalidMove      = errors.New("move is not legal in the current position")
	ErrInvalidState     = errors.New("operation is not valid for the game state")
	ErrTurnViolation    = errors.New("move requested out of turn")
	ErrReplayError      = errors.New("stored move history failed to replay")
	ErrVersionConflict  = errors.New("game was modified concurrently")
	ErrAIMoveFailed     = errors.New("ai move generation failed")
	ErrCreateGameFailed = errors.New("create game failed")
	ErrInternal         = errors.New("internal error")
)

// AIErrorClass classifies a failed suggestion-service call. Every class is
// recoverable inside the orchestrator; none of them escapes to callers.
type AIErrorClass string

const (
	AIErrQuotaExceeded      AIErrorClass = "quota_exceeded"
	AIErrNetworkError       AIErrorClass = "network_error"
	AIErrServiceUnavailable AIErrorClass = "service_unavailable"
	AIErrInvalidResponse    AIErrorClass = "invalid_response"
	AIErrUnknown            AIErrorClass = "unknown"
)

// AIServiceError wraps a suggestion-backend failure with its classification
// and the backend that produced it.
type AIServiceError struct {
	Class   AIErrorClass
	Backend string
	Err     error
}

func (e *AIServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("suggestion backend %s: %s", e.Backend, e.Class)
	}
	return fmt.Sprintf("suggestion backend %s: %s: %v", e.Backend, e.Class, e.Err)
}

func (e *AIServiceError) Unwrap() error {
	return e.Err
}

func NewAIServiceError(class AIErrorClass, backend string, cause error) *AIServiceError {
	return &AIServiceError{Class: class, Backend: backend, Err: cause}
}
