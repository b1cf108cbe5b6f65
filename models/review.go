package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5
)

type AuthorRole string

const (
	AuthorCouple AuthorRole = "COUPLE"
	AuthorGuest  AuthorRole = "GUEST"
)

func ValidRating(n int) bool {
	return n >= MinRating && n <= MaxRating
}

type SubmissionInput struct {
	WeddingID  string     `json:"wedding_id"`
	AuthorRole AuthorRole `json:"author_role"`
	Rating     int        `json:"rating"`
	Content    string     `json:"content,omitempty"`
}

type ReviewSubmission struct {
	ID         string     `json:"id"`
	WeddingID  string     `json:"wedding_id"`
	AuthorRole AuthorRole `json:"author_role"`
	Rating     int        `json:"rating"`
	Content    string     `json:"content,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ReviewSummary aggregates the submissions of one wedding for venue staff.
type ReviewSummary struct {
	WeddingID     string          `json:"wedding_id"`
	Count         int             `json:"count"`
	Average       decimal.Decimal `json:"average"`
	HighCount     int             `json:"high_count"`
	LowCount      int             `json:"low_count"`
	WithFeedback  int             `json:"with_feedback"`
	Threshold     int             `json:"threshold"`
	Distribution  map[int]int     `json:"distribution"`
	LastSubmitted *time.Time      `json:"last_submitted,omitempty"`
}

// Summarize builds a ReviewSummary from a wedding's submissions. The average
// is rounded to two decimal places.
func Summarize(weddingID string, threshold int, reviews []ReviewSubmission) ReviewSummary {
	summary := ReviewSummary{
		WeddingID:    weddingID,
		Threshold:    threshold,
		Average:      decimal.Zero,
		Distribution: make(map[int]int, MaxRating),
	}
	for r := MinRating; r <= MaxRating; r++ {
		summary.Distribution[r] = 0
	}

	total := decimal.Zero
	for _, review := range reviews {
		if !ValidRating(review.Rating) {
			continue
		}
		summary.Count++
		summary.Distribution[review.Rating]++
		total = total.Add(decimal.NewFromInt(int64(review.Rating)))
		if review.Rating >= threshold {
			summary.HighCount++
		} else {
			summary.LowCount++
		}
		if review.Content != "" {
			summary.WithFeedback++
		}
		if summary.LastSubmitted == nil || review.CreatedAt.After(*summary.LastSubmitted) {
			created := review.CreatedAt
			summary.LastSubmitted = &created
		}
	}

	if summary.Count > 0 {
		summary.Average = total.Div(decimal.NewFromInt(int64(summary.Count))).Round(2)
	}
	return summary
}
