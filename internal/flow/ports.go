package flow

import (
	"context"

	"wedding-gate/models"
)

// WeddingLister returns the weddings scheduled today at a venue, ordered by
// time. An unknown venue yields an empty list, not an error.
type WeddingLister interface {
	ListTodaysWeddings(ctx context.Context, venueID string) ([]models.Wedding, error)
}

type VenueConfigSource interface {
	VenueConfig(ctx context.Context, venueID string) (models.VenueConfig, error)
}

type SubmissionCreator interface {
	CreateSubmission(ctx context.Context, input models.SubmissionInput) (models.ReviewSubmission, error)
}

// UnlockStore is the durable "review completed" flag per identity key.
// Get on a key that was never set returns false. Set is idempotent.
type UnlockStore interface {
	Get(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string) error
}

// Navigator tells the routing layer that a session may enter the gallery.
type Navigator interface {
	ProceedToGallery(ctx context.Context, sessionID, weddingID string)
}

// ReviewSiteOpener asks the client to open the external review site in a new
// browsing context. Nothing is returned to the flow.
type ReviewSiteOpener interface {
	Open(ctx context.Context, sessionID, url string)
}

// EventSink receives every externally visible transition of a session.
type EventSink interface {
	Publish(sessionID string, event Event)
}

type EventType string

const (
	EventPasscodeRejected EventType = "passcode_rejected"
	EventPasscodeReset    EventType = "passcode_reset"
	EventPasscodeUnlocked EventType = "passcode_unlocked"
	EventRatingSet        EventType = "rating_set"
	EventReviewSkipped    EventType = "review_skipped"
	EventReviewCompleted  EventType = "review_completed"
	EventSessionClosed    EventType = "session_closed"
)

type Event struct {
	Type      EventType `json:"type"`
	WeddingID string    `json:"wedding_id"`
	Rating    int       `json:"rating,omitempty"`
	HighFlow  bool      `json:"high_flow,omitempty"`
}

type nopSink struct{}

func (nopSink) Publish(string, Event) {}

type nopNavigator struct{}

func (nopNavigator) ProceedToGallery(context.Context, string, string) {}

type nopOpener struct{}

func (nopOpener) Open(context.Context, string, string) {}

// MultiSink fans an event out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Publish(sessionID string, ev Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Publish(sessionID, ev)
		}
	}
}
