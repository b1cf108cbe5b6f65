package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"wedding-gate/internal/status"
)

// apiError maps flow errors onto HTTP errors. Anything unrecognised is a 500.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrSessionNotFound):
		return apis.NewNotFoundError("Session not found", err)
	case errors.Is(err, status.ErrWeddingNotFound):
		return apis.NewNotFoundError("Wedding not found", err)
	case errors.Is(err, status.ErrInvalidDigit),
		errors.Is(err, status.ErrInvalidRating),
		errors.Is(err, status.ErrFeedbackRequired):
		return apis.NewBadRequestError(err.Error(), err)
	case errors.Is(err, status.ErrInputDisabled),
		errors.Is(err, status.ErrWrongFlow),
		errors.Is(err, status.ErrWrongStage),
		errors.Is(err, status.ErrListNotReady):
		return apis.NewApiError(http.StatusConflict, err.Error(), err)
	}
	return apis.NewInternalServerError("Something went wrong", err)
}

// lookupUnavailable answers a failed wedding list fetch. The guest may retry.
func lookupUnavailable(e *core.RequestEvent) error {
	return e.JSON(http.StatusServiceUnavailable, map[string]any{
		"message":   "Unable to load today's weddings",
		"retryable": true,
	})
}

func isSelectionError(err error) bool {
	return errors.Is(err, status.ErrWeddingNotFound) || errors.Is(err, status.ErrListNotReady)
}
