package flow

import (
	"context"
	"strings"
	"sync"

	"wedding-gate/internal/status"
	"wedding-gate/models"
)

type ReviewState string

const (
	// ReviewChecking holds every input until the unlock lookup resolves.
	ReviewChecking      ReviewState = "checking"
	ReviewRatingPending ReviewState = "rating_pending"
	ReviewBranching     ReviewState = "branching"
	ReviewHighRating    ReviewState = "high_rating"
	ReviewLowRating     ReviewState = "low_rating"
	ReviewSubmitting    ReviewState = "submitting"
	ReviewCompleted     ReviewState = "completed"
)

// ReviewConfig carries everything that differs between call sites.
type ReviewConfig struct {
	SessionID         string
	WeddingID         string
	IdentityKey       string
	AuthorRole        models.AuthorRole
	Threshold         int
	ExternalReviewURL string
}

type ReviewDeps struct {
	Unlocks     UnlockStore
	Submissions SubmissionCreator
	Runner      *Runner
	Opener      ReviewSiteOpener
	Navigator   Navigator
}

// ReviewGate collects a star rating and, depending on the venue threshold,
// sends the guest to the external review site or collects private feedback.
// Either way it records a submission and grants gallery access.
type ReviewGate struct {
	mu   sync.Mutex
	cfg  ReviewConfig
	deps ReviewDeps

	entered  bool
	state    ReviewState
	rating   int
	feedback string
	skipped  bool
	redirect string
}

func NewReviewGate(cfg ReviewConfig, deps ReviewDeps) *ReviewGate {
	if !models.ValidRating(cfg.Threshold) {
		cfg.Threshold = models.DefaultRatingThreshold
	}
	if cfg.AuthorRole == "" {
		cfg.AuthorRole = models.AuthorGuest
	}
	if deps.Runner == nil {
		deps.Runner = NewRunner(0, nil)
	}
	if deps.Opener == nil {
		deps.Opener = nopOpener{}
	}
	if deps.Navigator == nil {
		deps.Navigator = nopNavigator{}
	}
	return &ReviewGate{cfg: cfg, deps: deps, state: ReviewChecking}
}

// Enter looks up the unlock record. If the identity already completed a
// review the gate goes straight to Completed without prompting. The gate
// stays in Checking, refusing all input, until the lookup returns.
func (g *ReviewGate) Enter(ctx context.Context) ReviewState {
	g.mu.Lock()
	if g.entered {
		state := g.state
		g.mu.Unlock()
		return state
	}
	g.entered = true
	g.mu.Unlock()

	unlocked := lookupUnlocked(ctx, g.deps.Unlocks, g.deps.Runner, g.cfg.IdentityKey)

	g.mu.Lock()
	if g.state != ReviewChecking {
		state := g.state
		g.mu.Unlock()
		return state
	}
	if !unlocked {
		g.state = ReviewRatingPending
		g.mu.Unlock()
		return ReviewRatingPending
	}
	g.skipped = true
	g.state = ReviewCompleted
	g.mu.Unlock()

	g.deps.Navigator.ProceedToGallery(ctx, g.cfg.SessionID, g.cfg.WeddingID)
	return ReviewCompleted
}

func (g *ReviewGate) State() ReviewState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *ReviewGate) Rating() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rating
}

func (g *ReviewGate) Skipped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.skipped
}

// RedirectURL is the external review URL the guest is offered. It is known
// as soon as the rating lands in the high branch, before Confirm opens it.
func (g *ReviewGate) RedirectURL() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == ReviewHighRating {
		return g.cfg.ExternalReviewURL
	}
	return g.redirect
}

func (g *ReviewGate) Threshold() int { return g.cfg.Threshold }

// SetRating fixes the rating for the session and branches on the threshold.
func (g *ReviewGate) SetRating(n int) (ReviewState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != ReviewRatingPending {
		return g.state, status.ErrInputDisabled
	}
	if !models.ValidRating(n) {
		return g.state, status.ErrInvalidRating
	}

	// Branching is the threshold evaluation below; it is never observable.
	g.rating = n
	if n >= g.cfg.Threshold {
		g.state = ReviewHighRating
	} else {
		g.state = ReviewLowRating
	}
	return g.state, nil
}

// SetFeedback replaces the feedback buffer. Only meaningful for low ratings.
func (g *ReviewGate) SetFeedback(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == ReviewChecking {
		return status.ErrInputDisabled
	}
	if g.state != ReviewLowRating {
		return status.ErrWrongFlow
	}
	g.feedback = text
	return nil
}

// CanSubmit reports whether Submit would be accepted.
func (g *ReviewGate) CanSubmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == ReviewLowRating && strings.TrimSpace(g.feedback) != ""
}

// Confirm completes the high-rating flow. It returns the external review URL,
// empty when the venue has none configured.
func (g *ReviewGate) Confirm(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.state == ReviewChecking {
		g.mu.Unlock()
		return "", status.ErrInputDisabled
	}
	if g.state != ReviewHighRating {
		g.mu.Unlock()
		return "", status.ErrWrongFlow
	}
	g.state = ReviewSubmitting
	g.redirect = g.cfg.ExternalReviewURL
	input := g.submissionLocked("")
	g.mu.Unlock()

	if g.cfg.ExternalReviewURL != "" {
		g.deps.Opener.Open(ctx, g.cfg.SessionID, g.cfg.ExternalReviewURL)
	}
	g.complete(ctx, input)
	return g.cfg.ExternalReviewURL, nil
}

// Submit completes the low-rating flow with the buffered feedback.
func (g *ReviewGate) Submit(ctx context.Context) error {
	g.mu.Lock()
	if g.state == ReviewChecking {
		g.mu.Unlock()
		return status.ErrInputDisabled
	}
	if g.state != ReviewLowRating {
		g.mu.Unlock()
		return status.ErrWrongFlow
	}
	content := strings.TrimSpace(g.feedback)
	if content == "" {
		g.mu.Unlock()
		return status.ErrFeedbackRequired
	}
	g.state = ReviewSubmitting
	input := g.submissionLocked(content)
	g.mu.Unlock()

	g.complete(ctx, input)
	return nil
}

func (g *ReviewGate) submissionLocked(content string) models.SubmissionInput {
	return models.SubmissionInput{
		WeddingID:  g.cfg.WeddingID,
		AuthorRole: g.cfg.AuthorRole,
		Rating:     g.rating,
		Content:    content,
	}
}

// complete issues both writes in the background and navigates without
// waiting for either.
func (g *ReviewGate) complete(ctx context.Context, input models.SubmissionInput) {
	if g.deps.Unlocks != nil && g.cfg.IdentityKey != "" {
		key := g.cfg.IdentityKey
		g.deps.Runner.Go("unlock_record", func(ctx context.Context) error {
			return g.deps.Unlocks.Set(ctx, key)
		})
	}
	if g.deps.Submissions != nil {
		g.deps.Runner.Go("review_submission", func(ctx context.Context) error {
			_, err := g.deps.Submissions.CreateSubmission(ctx, input)
			return err
		})
	}

	g.mu.Lock()
	g.state = ReviewCompleted
	g.mu.Unlock()

	g.deps.Navigator.ProceedToGallery(ctx, g.cfg.SessionID, g.cfg.WeddingID)
}
