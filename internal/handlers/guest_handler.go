package handlers

import (
	"context"
	"net/http"
	"unicode/utf8"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog"

	"wedding-gate/internal/flow"
	"wedding-gate/internal/services"
	"wedding-gate/internal/status"
	"wedding-gate/utils"
)

type GuestSessions interface {
	CreateSession(ctx context.Context, input services.CreateSessionInput) (*flow.Session, error)
	Get(sessionID string) (*flow.Session, error)
	Back(sessionID string) error
}

type GuestHandler struct {
	sessions   GuestSessions
	galleryURL func(weddingID string) string
	log        zerolog.Logger
}

func NewGuestHandler(sessions GuestSessions, galleryURL func(weddingID string) string, logger zerolog.Logger) *GuestHandler {
	return &GuestHandler{
		sessions:   sessions,
		galleryURL: galleryURL,
		log:        utils.Component(logger, "guest_handler"),
	}
}

type sessionResponse struct {
	flow.Snapshot
	GalleryURL string `json:"gallery_url,omitempty"`
}

func (h *GuestHandler) respond(e *core.RequestEvent, code int, session *flow.Session) error {
	resp := sessionResponse{Snapshot: session.Snapshot()}
	if resp.Granted && h.galleryURL != nil {
		resp.GalleryURL = h.galleryURL(resp.WeddingID)
	}
	return e.JSON(code, resp)
}

func (h *GuestHandler) session(e *core.RequestEvent) (*flow.Session, error) {
	session, err := h.sessions.Get(e.Request.PathValue("sessionId"))
	if err != nil {
		return nil, apiError(err)
	}
	return session, nil
}

// CreateSession - select a wedding and open the passcode gate
func (h *GuestHandler) CreateSession(e *core.RequestEvent) error {
	var req services.CreateSessionInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.VenueID == "" || req.WeddingID == "" {
		return apis.NewBadRequestError("venue_id and wedding_id are required", nil)
	}

	session, err := h.sessions.CreateSession(e.Request.Context(), req)
	if err != nil {
		if isSelectionError(err) {
			return apiError(err)
		}
		return lookupUnavailable(e)
	}

	return h.respond(e, http.StatusCreated, session)
}

// GetSession - current gate state
func (h *GuestHandler) GetSession(e *core.RequestEvent) error {
	session, err := h.session(e)
	if err != nil {
		return err
	}
	return h.respond(e, http.StatusOK, session)
}

// AppendDigit - keypad digit press
func (h *GuestHandler) AppendDigit(e *core.RequestEvent) error {
	var req struct {
		Digit string `json:"digit"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if utf8.RuneCountInString(req.Digit) != 1 {
		return apiError(status.ErrInvalidDigit)
	}

	session, err := h.session(e)
	if err != nil {
		return err
	}
	digit, _ := utf8.DecodeRuneInString(req.Digit)
	if err := session.AppendDigit(digit); err != nil {
		return apiError(err)
	}
	return h.respond(e, http.StatusOK, session)
}

// DeleteDigit - keypad delete press
func (h *GuestHandler) DeleteDigit(e *core.RequestEvent) error {
	session, err := h.session(e)
	if err != nil {
		return err
	}
	if err := session.DeleteDigit(); err != nil {
		return apiError(err)
	}
	return h.respond(e, http.StatusOK, session)
}

// Back - return to the entry selector
func (h *GuestHandler) Back(e *core.RequestEvent) error {
	if err := h.sessions.Back(e.Request.PathValue("sessionId")); err != nil {
		return apiError(err)
	}
	return e.NoContent(http.StatusNoContent)
}

// SetRating - star selection on the review gate
func (h *GuestHandler) SetRating(e *core.RequestEvent) error {
	var req struct {
		Rating int `json:"rating"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	session, err := h.session(e)
	if err != nil {
		return err
	}
	if _, err := session.SetRating(req.Rating); err != nil {
		return apiError(err)
	}
	return h.respond(e, http.StatusOK, session)
}

// SetFeedback - low-rating feedback text
func (h *GuestHandler) SetFeedback(e *core.RequestEvent) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	session, err := h.session(e)
	if err != nil {
		return err
	}
	if err := session.SetFeedback(req.Content); err != nil {
		return apiError(err)
	}
	return h.respond(e, http.StatusOK, session)
}

// Confirm - finish the high-rating flow
func (h *GuestHandler) Confirm(e *core.RequestEvent) error {
	session, err := h.session(e)
	if err != nil {
		return err
	}
	if _, err := session.Confirm(e.Request.Context()); err != nil {
		return apiError(err)
	}

	h.log.Debug().Str("session_id", session.ID()).Msg("high rating confirmed")
	return h.respond(e, http.StatusOK, session)
}

// Submit - finish the low-rating flow
func (h *GuestHandler) Submit(e *core.RequestEvent) error {
	session, err := h.session(e)
	if err != nil {
		return err
	}
	if err := session.Submit(e.Request.Context()); err != nil {
		return apiError(err)
	}

	h.log.Debug().Str("session_id", session.ID()).Msg("low rating feedback submitted")
	return h.respond(e, http.StatusOK, session)
}
