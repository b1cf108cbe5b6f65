package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/security"
	"github.com/pocketbase/pocketbase/tools/types"

	"wedding-gate/internal/status"
	"wedding-gate/models"
)

const recordIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

type reviewRow struct {
	ID         string `db:"id"`
	Wedding    string `db:"wedding"`
	AuthorRole string `db:"author_role"`
	Rating     int    `db:"rating"`
	Content    string `db:"content"`
	Created    string `db:"created"`
}

func (r reviewRow) toModel() models.ReviewSubmission {
	created, _ := types.ParseDateTime(r.Created)
	return models.ReviewSubmission{
		ID:         r.ID,
		WeddingID:  r.Wedding,
		AuthorRole: models.AuthorRole(r.AuthorRole),
		Rating:     r.Rating,
		Content:    r.Content,
		CreatedAt:  created.Time(),
	}
}

// ReviewRepository writes review submissions and aggregates them for staff.
type ReviewRepository struct {
	db  dbx.Builder
	now func() time.Time
}

func NewReviewRepository(db dbx.Builder) *ReviewRepository {
	return &ReviewRepository{db: db, now: time.Now}
}

func (r *ReviewRepository) CreateSubmission(ctx context.Context, input models.SubmissionInput) (models.ReviewSubmission, error) {
	if !models.ValidRating(input.Rating) {
		return models.ReviewSubmission{}, status.ErrInvalidRating
	}
	if input.AuthorRole == "" {
		input.AuthorRole = models.AuthorGuest
	}

	created := r.now().UTC().Truncate(time.Millisecond)
	stamp := created.Format(types.DefaultDateLayout)
	id := security.RandomStringWithAlphabet(15, recordIDAlphabet)

	_, err := r.db.Insert("reviews", dbx.Params{
		"id":          id,
		"wedding":     input.WeddingID,
		"author_role": string(input.AuthorRole),
		"rating":      input.Rating,
		"content":     input.Content,
		"created":     stamp,
		"updated":     stamp,
	}).WithContext(ctx).Execute()
	if err != nil {
		return models.ReviewSubmission{}, fmt.Errorf("failed to insert review for wedding %s: %w", input.WeddingID, err)
	}

	return models.ReviewSubmission{
		ID:         id,
		WeddingID:  input.WeddingID,
		AuthorRole: input.AuthorRole,
		Rating:     input.Rating,
		Content:    input.Content,
		CreatedAt:  created,
	}, nil
}

func (r *ReviewRepository) ListByWedding(ctx context.Context, weddingID string) ([]models.ReviewSubmission, error) {
	var rows []reviewRow
	err := r.db.Select("id", "wedding", "author_role", "rating", "content", "created").
		From("reviews").
		Where(dbx.HashExp{"wedding": weddingID}).
		OrderBy("created ASC").
		Build().
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}

	reviews := make([]models.ReviewSubmission, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.toModel())
	}
	return reviews, nil
}

// Summary aggregates a wedding's reviews against the venue threshold.
func (r *ReviewRepository) Summary(ctx context.Context, weddingID string, threshold int) (models.ReviewSummary, error) {
	reviews, err := r.ListByWedding(ctx, weddingID)
	if err != nil {
		return models.ReviewSummary{}, err
	}
	return models.Summarize(weddingID, threshold, reviews), nil
}
