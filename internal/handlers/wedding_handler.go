package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"wedding-gate/models"
)

type TodaysWeddingsLister interface {
	ListTodaysWeddings(ctx context.Context, venueID string) ([]models.Wedding, error)
}

type WeddingHandler struct {
	weddings TodaysWeddingsLister
}

func NewWeddingHandler(weddings TodaysWeddingsLister) *WeddingHandler {
	return &WeddingHandler{weddings: weddings}
}

type weddingItem struct {
	ID         string    `json:"id"`
	CoupleName string    `json:"couple_name"`
	GroomName  string    `json:"groom_name"`
	BrideName  string    `json:"bride_name"`
	Time       time.Time `json:"time"`
}

// ListToday - entry selector list for a venue
func (h *WeddingHandler) ListToday(e *core.RequestEvent) error {
	venueID := e.Request.PathValue("venueId")
	if venueID == "" {
		return apis.NewBadRequestError("Venue ID required", nil)
	}

	weddings, err := h.weddings.ListTodaysWeddings(e.Request.Context(), venueID)
	if err != nil {
		return lookupUnavailable(e)
	}

	items := make([]weddingItem, 0, len(weddings))
	for _, w := range weddings {
		items = append(items, weddingItem{
			ID:         w.ID,
			CoupleName: w.CoupleName(),
			GroomName:  w.GroomName,
			BrideName:  w.BrideName,
			Time:       w.Time,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"venue_id": venueID,
		"weddings": items,
	})
}
