package status

import "errors"

var (
	ErrSessionNotFound  = errors.New("session: session not found")
	ErrWeddingNotFound  = errors.New("wedding: wedding not found")
	ErrInputDisabled    = errors.New("input: input is disabled in the current state")
	ErrInvalidDigit     = errors.New("passcode: digit must be 0-9")
	ErrInvalidRating    = errors.New("review: rating must be between 1 and 5")
	ErrFeedbackRequired = errors.New("review: feedback is required for low ratings")
	ErrWrongFlow        = errors.New("review: action not available for this rating")
	ErrWrongStage       = errors.New("session: action not available at this stage")
	ErrStoreUnavailable = errors.New("store: store unavailable")
	ErrListNotReady     = errors.New("entry: wedding list not loaded")
	ErrShuttingDown     = errors.New("runner: shutting down")
)
