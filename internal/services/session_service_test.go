package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-gate/config"
	"wedding-gate/internal/flow"
	"wedding-gate/internal/status"
	"wedding-gate/models"
)

type stubWeddings struct {
	weddings []models.Wedding
	err      error
}

func (s stubWeddings) ListTodaysWeddings(context.Context, string) ([]models.Wedding, error) {
	return s.weddings, s.err
}

type stubVenues struct {
	cfg models.VenueConfig
	err error
}

func (s stubVenues) VenueConfig(context.Context, string) (models.VenueConfig, error) {
	return s.cfg, s.err
}

type memorySubmissions struct {
	inputs []models.SubmissionInput
}

func (m *memorySubmissions) CreateSubmission(_ context.Context, input models.SubmissionInput) (models.ReviewSubmission, error) {
	m.inputs = append(m.inputs, input)
	return models.ReviewSubmission{ID: "r1", WeddingID: input.WeddingID, Rating: input.Rating}, nil
}

type sessionServiceFixture struct {
	service     *SessionService
	clock       *flow.ManualClock
	unlocks     *flow.MemoryUnlockStore
	submissions *memorySubmissions
	runner      *flow.Runner
	lookups     []error
}

func testConfig() *config.Config {
	return &config.Config{
		WeddingLookupTimeout:    time.Second,
		PasscodeValidationDelay: 300 * time.Millisecond,
		PasscodeRejectDisplay:   1500 * time.Millisecond,
		PersistenceTimeout:      time.Second,
		SessionTTL:              30 * time.Minute,
		SessionCleanupInterval:  time.Minute,
	}
}

func setupTestSessionService(t *testing.T, weddings stubWeddings, venues stubVenues) *sessionServiceFixture {
	t.Helper()

	f := &sessionServiceFixture{
		clock:       flow.NewManualClock(testNow),
		unlocks:     flow.NewMemoryUnlockStore(),
		submissions: &memorySubmissions{},
		runner:      flow.NewRunner(time.Second, nil),
	}
	f.service = NewSessionService(testConfig(), SessionDeps{
		Weddings:    weddings,
		Venues:      venues,
		Unlocks:     f.unlocks,
		Submissions: f.submissions,
		Runner:      f.runner,
		Clock:       f.clock,
		OnLookup: func(err error, _ time.Duration) {
			f.lookups = append(f.lookups, err)
		},
	}, zerolog.Nop())
	t.Cleanup(f.runner.Wait)
	return f
}

var todaysWeddings = stubWeddings{weddings: []models.Wedding{
	{ID: "w1", VenueID: "v1", GroomName: "Tom", BrideName: "Anna", Time: testNow.Add(time.Hour), Passcode: "1234"},
}}

func (f *sessionServiceFixture) unlock(t *testing.T, session *flow.Session) {
	t.Helper()
	for _, d := range "1234" {
		require.NoError(t, session.AppendDigit(d))
	}
	f.clock.Advance(300 * time.Millisecond)
}

func TestSessionService_ListTodaysWeddings(t *testing.T) {
	f := setupTestSessionService(t, todaysWeddings, stubVenues{})

	weddings, err := f.service.ListTodaysWeddings(context.Background(), "v1")

	require.NoError(t, err)
	assert.Len(t, weddings, 1)
	assert.Equal(t, []error{nil}, f.lookups)
}

func TestSessionService_ListFailure(t *testing.T) {
	boom := errors.New("db locked")
	f := setupTestSessionService(t, stubWeddings{err: boom}, stubVenues{})

	_, err := f.service.ListTodaysWeddings(context.Background(), "v1")

	assert.ErrorIs(t, err, boom)
	require.Len(t, f.lookups, 1)
	assert.ErrorIs(t, f.lookups[0], boom)
}

func TestSessionService_CreateSession(t *testing.T) {
	f := setupTestSessionService(t, todaysWeddings, stubVenues{cfg: models.VenueConfig{VenueID: "v1", RatingThreshold: 3}})

	session, err := f.service.CreateSession(context.Background(), CreateSessionInput{
		VenueID:   "v1",
		WeddingID: "w1",
		GuestID:   "g1",
	})
	require.NoError(t, err)

	assert.Equal(t, "guest-g1:w1", session.IdentityKey())
	assert.Equal(t, flow.StagePasscode, session.Stage())
	assert.Equal(t, 3, session.Snapshot().Threshold)
	assert.Equal(t, 1, f.service.Count())

	got, err := f.service.Get(session.ID())
	require.NoError(t, err)
	assert.Same(t, session, got)
}

func TestSessionService_CreateSessionUnknownWedding(t *testing.T) {
	f := setupTestSessionService(t, todaysWeddings, stubVenues{})

	_, err := f.service.CreateSession(context.Background(), CreateSessionInput{VenueID: "v1", WeddingID: "w404"})

	assert.ErrorIs(t, err, status.ErrWeddingNotFound)
	assert.Equal(t, 0, f.service.Count())
}

func TestSessionService_VenueConfigFailureUsesDefaults(t *testing.T) {
	f := setupTestSessionService(t, todaysWeddings, stubVenues{err: errors.New("db down")})

	session, err := f.service.CreateSession(context.Background(), CreateSessionInput{VenueID: "v1", WeddingID: "w1"})

	require.NoError(t, err)
	assert.Equal(t, models.DefaultRatingThreshold, session.Snapshot().Threshold)
}

func TestSessionService_CoupleSkipsAfterPreviousReview(t *testing.T) {
	f := setupTestSessionService(t, todaysWeddings, stubVenues{cfg: models.VenueConfig{VenueID: "v1", RatingThreshold: 4}})
	ctx := context.Background()

	first, err := f.service.CreateSession(ctx, CreateSessionInput{VenueID: "v1", WeddingID: "w1", CoupleID: "42"})
	require.NoError(t, err)
	f.unlock(t, first)
	_, err = first.SetRating(5)
	require.NoError(t, err)
	_, err = first.Confirm(ctx)
	require.NoError(t, err)
	f.runner.Wait()

	require.Len(t, f.submissions.inputs, 1)
	assert.Equal(t, models.AuthorCouple, f.submissions.inputs[0].AuthorRole)

	second, err := f.service.CreateSession(ctx, CreateSessionInput{VenueID: "v1", WeddingID: "w1", CoupleID: "42"})
	require.NoError(t, err)
	f.unlock(t, second)

	assert.Equal(t, flow.StageGranted, second.Stage())
	assert.True(t, second.Snapshot().ReviewSkipped)
}

func TestSessionService_Back(t *testing.T) {
	f := setupTestSessionService(t, todaysWeddings, stubVenues{})

	session, err := f.service.CreateSession(context.Background(), CreateSessionInput{VenueID: "v1", WeddingID: "w1"})
	require.NoError(t, err)

	require.NoError(t, f.service.Back(session.ID()))

	_, err = f.service.Get(session.ID())
	assert.ErrorIs(t, err, status.ErrSessionNotFound)
	assert.Equal(t, 0, f.service.Count())
	assert.ErrorIs(t, f.service.Back(session.ID()), status.ErrSessionNotFound)
}

func TestSessionService_BackRefusedAfterUnlock(t *testing.T) {
	f := setupTestSessionService(t, todaysWeddings, stubVenues{})

	session, err := f.service.CreateSession(context.Background(), CreateSessionInput{VenueID: "v1", WeddingID: "w1"})
	require.NoError(t, err)
	f.unlock(t, session)

	assert.ErrorIs(t, f.service.Back(session.ID()), status.ErrWrongStage)
	assert.Equal(t, 1, f.service.Count())
}

func TestSessionService_SweepExpired(t *testing.T) {
	f := setupTestSessionService(t, todaysWeddings, stubVenues{})
	ctx := context.Background()

	idle, err := f.service.CreateSession(ctx, CreateSessionInput{VenueID: "v1", WeddingID: "w1"})
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	active, err := f.service.CreateSession(ctx, CreateSessionInput{VenueID: "v1", WeddingID: "w1"})
	require.NoError(t, err)

	f.clock.Advance(15 * time.Minute)
	_, err = f.service.Get(idle.ID())
	assert.ErrorIs(t, err, status.ErrSessionNotFound)

	assert.Equal(t, 1, f.service.SweepExpired())
	assert.Equal(t, 1, f.service.Count())
	_, err = f.service.Get(active.ID())
	assert.NoError(t, err)
}

func TestSessionService_Shutdown(t *testing.T) {
	f := setupTestSessionService(t, todaysWeddings, stubVenues{})

	session, err := f.service.CreateSession(context.Background(), CreateSessionInput{VenueID: "v1", WeddingID: "w1"})
	require.NoError(t, err)
	for _, d := range "1234" {
		require.NoError(t, session.AppendDigit(d))
	}
	require.Equal(t, 1, f.clock.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.service.Shutdown(ctx))

	assert.Equal(t, 0, f.service.Count())
	assert.Equal(t, 0, f.clock.Pending())
}

func TestIdentityKey(t *testing.T) {
	key, role := IdentityKey("w1", "g1", "")
	assert.Equal(t, "guest-g1:w1", key)
	assert.Equal(t, models.AuthorGuest, role)

	key, role = IdentityKey("w1", "g1", "42")
	assert.Equal(t, "couple-42", key)
	assert.Equal(t, models.AuthorCouple, role)

	key, _ = IdentityKey("w1", "", "")
	assert.True(t, strings.HasPrefix(key, "guest-"))
	assert.True(t, strings.HasSuffix(key, ":w1"))
	assert.NotEqual(t, key, func() string { k, _ := IdentityKey("w1", "", ""); return k }())
}
