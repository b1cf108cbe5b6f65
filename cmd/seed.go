package cmd

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog"

	"wedding-gate/utils"
)

// seedDevelopmentData creates a demo venue with two weddings today so the
// gate can be exercised locally. It does nothing once any venue exists.
func seedDevelopmentData(app core.App, loc *time.Location, logger zerolog.Logger) error {
	log := utils.Component(logger, "seed")

	existing, err := app.CountRecords("venues")
	if err != nil {
		return fmt.Errorf("failed to count venues: %w", err)
	}
	if existing > 0 {
		return nil
	}

	venues, err := app.FindCollectionByNameOrId("venues")
	if err != nil {
		return err
	}
	weddings, err := app.FindCollectionByNameOrId("weddings")
	if err != nil {
		return err
	}

	venue := core.NewRecord(venues)
	venue.Set("name", "Riverside Garden")
	venue.Set("review_url", "https://g.page/r/riverside-garden/review")
	venue.Set("rating_threshold", 4)
	if err := app.Save(venue); err != nil {
		return fmt.Errorf("failed to seed venue: %w", err)
	}

	noon := now.With(time.Now().In(loc)).BeginningOfDay().Add(12 * time.Hour)
	couples := []struct {
		groom, bride string
		at           time.Time
	}{
		{"Somchai", "Malee", noon},
		{"Daniel", "Sophie", noon.Add(5 * time.Hour)},
	}

	for _, c := range couples {
		record := core.NewRecord(weddings)
		record.Set("venue", venue.Id)
		record.Set("groom_name", c.groom)
		record.Set("bride_name", c.bride)
		record.Set("time", c.at.UTC())
		// passcode is generated by the weddings create hook
		if err := app.Save(record); err != nil {
			return fmt.Errorf("failed to seed wedding: %w", err)
		}
		log.Info().
			Str("venue_id", venue.Id).
			Str("wedding_id", record.Id).
			Str("passcode", record.GetString("passcode")).
			Msg("seeded development wedding")
	}
	return nil
}
