package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog"

	"wedding-gate/models"
	"wedding-gate/utils"
)

type WeddingFinder interface {
	FindWedding(ctx context.Context, weddingID string) (models.Wedding, error)
}

type VenueConfigs interface {
	VenueConfig(ctx context.Context, venueID string) (models.VenueConfig, error)
}

type ReviewSummaries interface {
	Summary(ctx context.Context, weddingID string, threshold int) (models.ReviewSummary, error)
}

type StaffHandler struct {
	weddings WeddingFinder
	venues   VenueConfigs
	reviews  ReviewSummaries
	log      zerolog.Logger
}

func NewStaffHandler(weddings WeddingFinder, venues VenueConfigs, reviews ReviewSummaries, logger zerolog.Logger) *StaffHandler {
	return &StaffHandler{
		weddings: weddings,
		venues:   venues,
		reviews:  reviews,
		log:      utils.Component(logger, "staff_handler"),
	}
}

// ReviewSummary - aggregate ratings for one wedding, split at the venue threshold
func (h *StaffHandler) ReviewSummary(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	wedding, err := h.weddings.FindWedding(ctx, e.Request.PathValue("weddingId"))
	if err != nil {
		return apiError(err)
	}

	venue, err := h.venues.VenueConfig(ctx, wedding.VenueID)
	if err != nil {
		h.log.Warn().Err(err).Str("venue_id", wedding.VenueID).Msg("venue config unavailable, using default threshold")
		venue = models.VenueConfig{VenueID: wedding.VenueID}
	}

	summary, err := h.reviews.Summary(ctx, wedding.ID, venue.Threshold())
	if err != nil {
		h.log.Error().Err(err).Str("wedding_id", wedding.ID).Msg("review summary failed")
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"wedding_id":  wedding.ID,
		"couple_name": wedding.CoupleName(),
		"summary":     summary,
	})
}
