package models

import (
	"time"
)

const (
	PasscodeLength         = 4
	DefaultRatingThreshold = 4
)

// Wedding is one ceremony/reception at a venue. The passcode is shared by all
// guests and is never serialised to clients.
type Wedding struct {
	ID        string    `json:"id"`
	VenueID   string    `json:"venue_id"`
	GroomName string    `json:"groom_name"`
	BrideName string    `json:"bride_name"`
	Time      time.Time `json:"time"`
	Passcode  string    `json:"-"`
}

func (w Wedding) CoupleName() string {
	switch {
	case w.GroomName == "":
		return w.BrideName
	case w.BrideName == "":
		return w.GroomName
	}
	return w.GroomName + " & " + w.BrideName
}

// ValidPasscode reports whether code is exactly PasscodeLength ASCII digits.
func ValidPasscode(code string) bool {
	if len(code) != PasscodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

type VenueConfig struct {
	VenueID           string `json:"venue_id"`
	ExternalReviewURL string `json:"external_review_url,omitempty"`
	RatingThreshold   int    `json:"rating_threshold"`
}

// Threshold returns the configured rating threshold, falling back to
// DefaultRatingThreshold when unset or outside [MinRating, MaxRating].
func (c VenueConfig) Threshold() int {
	if c.RatingThreshold < MinRating || c.RatingThreshold > MaxRating {
		return DefaultRatingThreshold
	}
	return c.RatingThreshold
}
