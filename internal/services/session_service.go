package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wedding-gate/config"
	"wedding-gate/internal/flow"
	"wedding-gate/internal/status"
	"wedding-gate/models"
	"wedding-gate/utils"
)

type CreateSessionInput struct {
	VenueID   string `json:"venue_id"`
	WeddingID string `json:"wedding_id"`
	GuestID   string `json:"guest_id,omitempty"`
	CoupleID  string `json:"couple_id,omitempty"`
}

// LookupFunc observes every wedding list lookup.
type LookupFunc func(err error, duration time.Duration)

type SessionDeps struct {
	Weddings    flow.WeddingLister
	Venues      flow.VenueConfigSource
	Unlocks     flow.UnlockStore
	Submissions flow.SubmissionCreator
	Runner      *flow.Runner
	Navigator   flow.Navigator
	Opener      flow.ReviewSiteOpener
	Events      flow.EventSink
	Clock       flow.Clock
	OnLookup    LookupFunc
}

// SessionService owns the live guest sessions of this process.
type SessionService struct {
	deps    SessionDeps
	timings flow.PasscodeTimings
	lookup  time.Duration
	persist time.Duration
	ttl     time.Duration
	sweep   time.Duration
	log     zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*flow.Session
}

func NewSessionService(cfg *config.Config, deps SessionDeps, logger zerolog.Logger) *SessionService {
	if deps.Clock == nil {
		deps.Clock = flow.RealClock()
	}
	if deps.Runner == nil {
		deps.Runner = flow.NewRunner(cfg.PersistenceTimeout, nil)
	}
	if deps.OnLookup == nil {
		deps.OnLookup = func(error, time.Duration) {}
	}

	return &SessionService{
		deps: deps,
		timings: flow.PasscodeTimings{
			Validation:    cfg.PasscodeValidationDelay,
			RejectDisplay: cfg.PasscodeRejectDisplay,
		},
		lookup:   cfg.WeddingLookupTimeout,
		persist:  cfg.PersistenceTimeout,
		ttl:      cfg.SessionTTL,
		sweep:    cfg.SessionCleanupInterval,
		log:      utils.Component(logger, "sessions"),
		sessions: make(map[string]*flow.Session),
	}
}

// ListTodaysWeddings loads the venue's list through an entry selector so the
// lookup is bounded by the configured timeout.
func (s *SessionService) ListTodaysWeddings(ctx context.Context, venueID string) ([]models.Wedding, error) {
	_, weddings, err := s.loadSelector(ctx, venueID)
	return weddings, err
}

func (s *SessionService) loadSelector(ctx context.Context, venueID string) (*flow.EntrySelector, []models.Wedding, error) {
	selector := flow.NewEntrySelector(venueID, s.deps.Weddings, s.lookup)

	started := time.Now()
	weddings, err := selector.Load(ctx)
	s.deps.OnLookup(err, time.Since(started))
	if err != nil {
		s.log.Error().Err(err).Str("venue_id", venueID).Msg("wedding lookup failed")
		return selector, nil, err
	}
	return selector, weddings, nil
}

// CreateSession selects a wedding at a venue and starts a guest session at
// the passcode gate.
func (s *SessionService) CreateSession(ctx context.Context, input CreateSessionInput) (*flow.Session, error) {
	selector, _, err := s.loadSelector(ctx, input.VenueID)
	if err != nil {
		return nil, err
	}
	wedding, err := selector.Select(input.WeddingID)
	if err != nil {
		return nil, err
	}

	venue, err := s.deps.Venues.VenueConfig(ctx, input.VenueID)
	if err != nil {
		s.log.Warn().Err(err).Str("venue_id", input.VenueID).Msg("venue config unavailable, using defaults")
		venue = models.VenueConfig{VenueID: input.VenueID}
	}

	identityKey, role := IdentityKey(wedding.ID, input.GuestID, input.CoupleID)

	session := flow.NewSession(flow.SessionConfig{
		ID:          utils.NewSessionID(),
		Wedding:     wedding,
		Venue:       venue,
		IdentityKey: identityKey,
		AuthorRole:  role,
		Timings:     s.timings,
	}, flow.Deps{
		Clock:         s.deps.Clock,
		Unlocks:       s.deps.Unlocks,
		Submissions:   s.deps.Submissions,
		Runner:        s.deps.Runner,
		Opener:        s.deps.Opener,
		Navigator:     s.deps.Navigator,
		Events:        s.deps.Events,
		LookupTimeout: s.persist,
	})

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	s.log.Info().
		Str("session_id", session.ID()).
		Str("wedding_id", wedding.ID).
		Str("role", string(role)).
		Msg("guest session started")
	return session, nil
}

// IdentityKey derives the unlock record key. Couples are keyed by couple id
// alone; guests by guest id and wedding. A guest without an id gets a fresh
// one, so the review gate is shown again on the next visit.
func IdentityKey(weddingID, guestID, coupleID string) (string, models.AuthorRole) {
	if coupleID != "" {
		return fmt.Sprintf("couple-%s", coupleID), models.AuthorCouple
	}
	if guestID == "" {
		guestID = utils.NewGuestID()
	}
	return fmt.Sprintf("guest-%s:%s", guestID, weddingID), models.AuthorGuest
}

// Get returns a live session. Expired and closed sessions are not found.
func (s *SessionService) Get(sessionID string) (*flow.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok || session.Stage() == flow.StageClosed || session.Expired(s.deps.Clock.Now(), s.ttl) {
		return nil, status.ErrSessionNotFound
	}
	return session, nil
}

// Back returns the guest to the entry selector and discards the session.
func (s *SessionService) Back(sessionID string) error {
	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}
	if err := session.Back(); err != nil {
		return err
	}
	s.remove(sessionID)
	return nil
}

func (s *SessionService) remove(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		session.Close()
	}
}

// Count implements monitoring.SessionCounter.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CleanupExpiredSessions sweeps idle and closed sessions until ctx is done.
func (s *SessionService) CleanupExpiredSessions(ctx context.Context) {
	if s.sweep <= 0 {
		return
	}
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepExpired(); n > 0 {
				s.log.Info().Int("removed", n).Msg("expired guest sessions removed")
			}
		}
	}
}

// SweepExpired removes closed sessions and those idle past the TTL.
func (s *SessionService) SweepExpired() int {
	now := s.deps.Clock.Now()

	var expired []*flow.Session
	s.mu.Lock()
	for id, session := range s.sessions {
		if session.Stage() == flow.StageClosed || session.Expired(now, s.ttl) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.Close()
	}
	return len(expired)
}

// Shutdown closes every session and waits for background persistence.
func (s *SessionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*flow.Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}

	if err := s.deps.Runner.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to drain background writes: %w", err)
	}
	return nil
}
