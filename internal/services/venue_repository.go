package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"

	"wedding-gate/models"
)

type venueRow struct {
	ID              string `db:"id"`
	ReviewURL       string `db:"review_url"`
	RatingThreshold int    `db:"rating_threshold"`
}

// VenueRepository reads per-venue review settings.
type VenueRepository struct {
	db               dbx.Builder
	defaultThreshold int
}

func NewVenueRepository(db dbx.Builder, defaultThreshold int) *VenueRepository {
	if !models.ValidRating(defaultThreshold) {
		defaultThreshold = models.DefaultRatingThreshold
	}
	return &VenueRepository{db: db, defaultThreshold: defaultThreshold}
}

// VenueConfig returns the venue's review settings. An unknown venue gets the
// defaults: no external URL and the default threshold.
func (r *VenueRepository) VenueConfig(ctx context.Context, venueID string) (models.VenueConfig, error) {
	cfg := models.VenueConfig{VenueID: venueID, RatingThreshold: r.defaultThreshold}

	var row venueRow
	err := r.db.Select("id", "review_url", "rating_threshold").
		From("venues").
		Where(dbx.HashExp{"id": venueID}).
		Build().
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to load venue %s: %w", venueID, err)
	}

	cfg.ExternalReviewURL = row.ReviewURL
	if models.ValidRating(row.RatingThreshold) {
		cfg.RatingThreshold = row.RatingThreshold
	}
	return cfg, nil
}
