package flow

import (
	"context"
	"sync"
	"time"

	"wedding-gate/internal/status"
	"wedding-gate/models"
)

type Stage string

const (
	StagePasscode Stage = "passcode"
	StageReview   Stage = "review"
	StageGranted  Stage = "granted"
	StageClosed   Stage = "closed"
)

type SessionConfig struct {
	ID          string
	Wedding     models.Wedding
	Venue       models.VenueConfig
	IdentityKey string
	AuthorRole  models.AuthorRole
	Timings     PasscodeTimings
}

type Deps struct {
	Clock       Clock
	Unlocks     UnlockStore
	Submissions SubmissionCreator
	Runner      *Runner
	Opener      ReviewSiteOpener
	Navigator   Navigator
	Events      EventSink
	// LookupTimeout bounds the unlock record read on review entry.
	LookupTimeout time.Duration
}

// Session is one guest's pass through the passcode and review gates for a
// selected wedding. Stages only move forward; Back is allowed until the
// passcode gate unlocks.
type Session struct {
	id      string
	wedding models.Wedding
	cfg     SessionConfig
	deps    Deps

	passcode *PasscodeGate
	review   *ReviewGate

	mu        sync.Mutex
	stage     Stage
	createdAt time.Time
	lastSeen  time.Time
	grantedAt time.Time
}

type Snapshot struct {
	SessionID     string        `json:"session_id"`
	WeddingID     string        `json:"wedding_id"`
	CoupleName    string        `json:"couple_name"`
	Stage         Stage         `json:"stage"`
	PasscodeState PasscodeState `json:"passcode_state"`
	DigitsEntered int           `json:"digits_entered"`
	ReviewState   ReviewState   `json:"review_state,omitempty"`
	Rating        int           `json:"rating,omitempty"`
	Threshold     int           `json:"threshold"`
	CanSubmit     bool          `json:"can_submit"`
	ReviewSkipped bool          `json:"review_skipped,omitempty"`
	RedirectURL   string        `json:"redirect_url,omitempty"`
	Granted       bool          `json:"granted"`
	GrantedAt     *time.Time    `json:"granted_at,omitempty"`
}

// NewSession selects a wedding: the returned session starts at the passcode
// gate with an empty buffer.
func NewSession(cfg SessionConfig, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if deps.Runner == nil {
		deps.Runner = NewRunner(0, nil)
	}
	if deps.Events == nil {
		deps.Events = nopSink{}
	}
	if deps.Navigator == nil {
		deps.Navigator = nopNavigator{}
	}
	if cfg.AuthorRole == "" {
		cfg.AuthorRole = models.AuthorGuest
	}

	now := deps.Clock.Now()
	s := &Session{
		id:        cfg.ID,
		wedding:   cfg.Wedding,
		cfg:       cfg,
		deps:      deps,
		stage:     StagePasscode,
		createdAt: now,
		lastSeen:  now,
	}

	s.passcode = NewPasscodeGate(cfg.Wedding.Passcode, deps.Clock, cfg.Timings, s.onPasscodeChange)
	s.review = NewReviewGate(ReviewConfig{
		SessionID:         cfg.ID,
		WeddingID:         cfg.Wedding.ID,
		IdentityKey:       cfg.IdentityKey,
		AuthorRole:        cfg.AuthorRole,
		Threshold:         cfg.Venue.Threshold(),
		ExternalReviewURL: cfg.Venue.ExternalReviewURL,
	}, ReviewDeps{
		Unlocks:     deps.Unlocks,
		Submissions: deps.Submissions,
		Runner:      deps.Runner,
		Opener:      deps.Opener,
		Navigator:   grantingNavigator{session: s, next: deps.Navigator},
	})
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Wedding() models.Wedding { return s.wedding }

func (s *Session) IdentityKey() string { return s.cfg.IdentityKey }

func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Expired reports whether the session has been idle for longer than ttl.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastSeen()) > ttl
}

func (s *Session) AppendDigit(digit rune) error {
	if err := s.enter(StagePasscode); err != nil {
		return err
	}
	return s.passcode.Append(digit)
}

func (s *Session) DeleteDigit() error {
	if err := s.enter(StagePasscode); err != nil {
		return err
	}
	return s.passcode.Delete()
}

// Back returns the guest to the entry selector. The session is reset and
// closed; a new selection starts a new session.
func (s *Session) Back() error {
	if err := s.enter(StagePasscode); err != nil {
		return err
	}
	if !s.passcode.Abort() {
		return status.ErrInputDisabled
	}

	s.mu.Lock()
	s.stage = StageClosed
	s.mu.Unlock()

	s.publish(Event{Type: EventSessionClosed})
	return nil
}

func (s *Session) SetRating(n int) (ReviewState, error) {
	if err := s.enter(StageReview); err != nil {
		return "", err
	}
	state, err := s.review.SetRating(n)
	if err != nil {
		return state, err
	}
	s.publish(Event{Type: EventRatingSet, Rating: n, HighFlow: state == ReviewHighRating})
	return state, nil
}

func (s *Session) SetFeedback(text string) error {
	if err := s.enter(StageReview); err != nil {
		return err
	}
	return s.review.SetFeedback(text)
}

// Confirm finishes the high-rating flow and returns the external review URL
// the client should open, if any.
func (s *Session) Confirm(ctx context.Context) (string, error) {
	if err := s.enter(StageReview); err != nil {
		return "", err
	}
	rating := s.review.Rating()
	url, err := s.review.Confirm(ctx)
	if err != nil {
		return "", err
	}
	s.publish(Event{Type: EventReviewCompleted, Rating: rating, HighFlow: true})
	return url, nil
}

// Submit finishes the low-rating flow with the buffered feedback.
func (s *Session) Submit(ctx context.Context) error {
	if err := s.enter(StageReview); err != nil {
		return err
	}
	rating := s.review.Rating()
	if err := s.review.Submit(ctx); err != nil {
		return err
	}
	s.publish(Event{Type: EventReviewCompleted, Rating: rating})
	return nil
}

// Close stops pending timers. A granted session keeps its stage.
func (s *Session) Close() {
	s.passcode.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageGranted {
		s.stage = StageClosed
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	stage := s.stage
	grantedAt := s.grantedAt
	s.mu.Unlock()

	snap := Snapshot{
		SessionID:     s.id,
		WeddingID:     s.wedding.ID,
		CoupleName:    s.wedding.CoupleName(),
		Stage:         stage,
		PasscodeState: s.passcode.State(),
		DigitsEntered: s.passcode.Entered(),
		Threshold:     s.review.Threshold(),
		Granted:       stage == StageGranted,
	}
	if stage == StageGranted {
		snap.GrantedAt = &grantedAt
	}
	// Nothing about the review is shown until the unlock lookup resolves.
	if (stage == StageReview || stage == StageGranted) && s.review.State() != ReviewChecking {
		snap.ReviewState = s.review.State()
		snap.Rating = s.review.Rating()
		snap.CanSubmit = s.review.CanSubmit()
		snap.ReviewSkipped = s.review.Skipped()
		snap.RedirectURL = s.review.RedirectURL()
	}
	return snap
}

// enter checks the stage and records activity.
func (s *Session) enter(want Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != want {
		return status.ErrWrongStage
	}
	s.lastSeen = s.deps.Clock.Now()
	return nil
}

func (s *Session) onPasscodeChange(state PasscodeState) {
	switch state {
	case PasscodeRejected:
		s.publish(Event{Type: EventPasscodeRejected})
	case PasscodeEntering:
		s.publish(Event{Type: EventPasscodeReset})
	case PasscodeUnlocked:
		s.publish(Event{Type: EventPasscodeUnlocked})
		s.enterReview()
	}
}

func (s *Session) enterReview() {
	s.mu.Lock()
	if s.stage != StagePasscode {
		s.mu.Unlock()
		return
	}
	s.stage = StageReview
	s.mu.Unlock()

	ctx := context.Background()
	if s.deps.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.LookupTimeout)
		defer cancel()
	}

	if s.review.Enter(ctx) == ReviewCompleted && s.review.Skipped() {
		s.publish(Event{Type: EventReviewSkipped})
	}
}

func (s *Session) grant() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage == StageReview {
		s.stage = StageGranted
		s.grantedAt = s.deps.Clock.Now()
	}
}

func (s *Session) publish(ev Event) {
	ev.WeddingID = s.wedding.ID
	s.deps.Events.Publish(s.id, ev)
}

// grantingNavigator moves the session to StageGranted before handing off to
// the routing layer.
type grantingNavigator struct {
	session *Session
	next    Navigator
}

func (n grantingNavigator) ProceedToGallery(ctx context.Context, sessionID, weddingID string) {
	n.session.grant()
	n.next.ProceedToGallery(ctx, sessionID, weddingID)
}
