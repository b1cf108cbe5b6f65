package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/rs/zerolog"

	"wedding-gate/internal/status"
	"wedding-gate/models"
	"wedding-gate/utils"
)

type weddingRow struct {
	ID        string `db:"id"`
	Venue     string `db:"venue"`
	GroomName string `db:"groom_name"`
	BrideName string `db:"bride_name"`
	Time      string `db:"time"`
	Passcode  string `db:"passcode"`
}

func (r weddingRow) toModel() (models.Wedding, error) {
	at, err := types.ParseDateTime(r.Time)
	if err != nil {
		return models.Wedding{}, fmt.Errorf("wedding %s has invalid time %q: %w", r.ID, r.Time, err)
	}
	return models.Wedding{
		ID:        r.ID,
		VenueID:   r.Venue,
		GroomName: r.GroomName,
		BrideName: r.BrideName,
		Time:      at.Time(),
		Passcode:  r.Passcode,
	}, nil
}

// WeddingRepository reads the weddings collection.
type WeddingRepository struct {
	db       dbx.Builder
	location *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

func NewWeddingRepository(db dbx.Builder, location *time.Location, logger zerolog.Logger) *WeddingRepository {
	if location == nil {
		location = time.UTC
	}
	return &WeddingRepository{
		db:       db,
		location: location,
		now:      time.Now,
		log:      utils.Component(logger, "weddings"),
	}
}

// TodayWindow returns the start and end of the current venue-local day.
func (r *WeddingRepository) TodayWindow() (time.Time, time.Time) {
	today := now.With(r.now().In(r.location))
	return today.BeginningOfDay(), today.EndOfDay()
}

// ListTodaysWeddings returns the venue's weddings for the venue-local
// calendar day, earliest first. Weddings with a malformed passcode or time
// are skipped, since no guest could ever pass their gate.
func (r *WeddingRepository) ListTodaysWeddings(ctx context.Context, venueID string) ([]models.Wedding, error) {
	start, end := r.TodayWindow()

	var rows []weddingRow
	err := r.db.Select("id", "venue", "groom_name", "bride_name", "time", "passcode").
		From("weddings").
		Where(dbx.HashExp{"venue": venueID}).
		AndWhere(dbx.Between("time", formatDate(start), formatDate(end))).
		OrderBy("time ASC", "id ASC").
		Build().
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query weddings: %w", err)
	}

	weddings := make([]models.Wedding, 0, len(rows))
	for _, row := range rows {
		w, err := row.toModel()
		if err != nil {
			r.log.Warn().Err(err).Msg("skipping wedding")
			continue
		}
		if !models.ValidPasscode(w.Passcode) {
			r.log.Warn().Str("wedding_id", w.ID).Msg("skipping wedding with malformed passcode")
			continue
		}
		weddings = append(weddings, w)
	}
	return weddings, nil
}

func (r *WeddingRepository) FindWedding(ctx context.Context, weddingID string) (models.Wedding, error) {
	var row weddingRow
	err := r.db.Select("id", "venue", "groom_name", "bride_name", "time", "passcode").
		From("weddings").
		Where(dbx.HashExp{"id": weddingID}).
		Build().
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wedding{}, status.ErrWeddingNotFound
	}
	if err != nil {
		return models.Wedding{}, fmt.Errorf("failed to load wedding %s: %w", weddingID, err)
	}
	return row.toModel()
}

func formatDate(t time.Time) string {
	return t.UTC().Format(types.DefaultDateLayout)
}
