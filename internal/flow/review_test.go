package flow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-gate/internal/status"
	"wedding-gate/models"
)

type reviewFixture struct {
	gate        *ReviewGate
	unlocks     *MemoryUnlockStore
	submissions *fakeSubmissions
	runner      *Runner
	opener      *recordingOpener
	navigator   *recordingNavigator
	failures    *failureLog
}

func setupTestReviewGate(threshold int, url string) *reviewFixture {
	f := &reviewFixture{
		unlocks:     NewMemoryUnlockStore(),
		submissions: &fakeSubmissions{},
		opener:      &recordingOpener{},
		navigator:   &recordingNavigator{},
		failures:    &failureLog{},
	}
	f.runner = NewRunner(0, f.failures.Record)
	f.gate = NewReviewGate(ReviewConfig{
		SessionID:         "sess-1",
		WeddingID:         "w1",
		IdentityKey:       "couple-42",
		AuthorRole:        models.AuthorCouple,
		Threshold:         threshold,
		ExternalReviewURL: url,
	}, ReviewDeps{
		Unlocks:     f.unlocks,
		Submissions: f.submissions,
		Runner:      f.runner,
		Opener:      f.opener,
		Navigator:   f.navigator,
	})
	return f
}

func TestReviewGate_ThresholdBranching(t *testing.T) {
	for threshold := models.MinRating; threshold <= models.MaxRating; threshold++ {
		for rating := models.MinRating; rating <= models.MaxRating; rating++ {
			t.Run(fmt.Sprintf("threshold_%d_rating_%d", threshold, rating), func(t *testing.T) {
				f := setupTestReviewGate(threshold, "")
				f.gate.Enter(context.Background())

				state, err := f.gate.SetRating(rating)
				require.NoError(t, err)

				if rating >= threshold {
					assert.Equal(t, ReviewHighRating, state)
				} else {
					assert.Equal(t, ReviewLowRating, state)
				}
			})
		}
	}
}

func TestReviewGate_InvalidThresholdFallsBackToDefault(t *testing.T) {
	f := setupTestReviewGate(0, "")
	assert.Equal(t, models.DefaultRatingThreshold, f.gate.Threshold())

	f = setupTestReviewGate(9, "")
	assert.Equal(t, models.DefaultRatingThreshold, f.gate.Threshold())
}

func TestReviewGate_RatingIsFixed(t *testing.T) {
	f := setupTestReviewGate(4, "")
	f.gate.Enter(context.Background())

	_, err := f.gate.SetRating(2)
	require.NoError(t, err)

	_, err = f.gate.SetRating(5)
	assert.ErrorIs(t, err, status.ErrInputDisabled)
	assert.Equal(t, 2, f.gate.Rating())
	assert.Equal(t, ReviewLowRating, f.gate.State())
}

func TestReviewGate_InvalidRating(t *testing.T) {
	f := setupTestReviewGate(4, "")
	f.gate.Enter(context.Background())

	for _, n := range []int{-1, 0, 6} {
		_, err := f.gate.SetRating(n)
		assert.ErrorIs(t, err, status.ErrInvalidRating)
	}
	assert.Equal(t, ReviewRatingPending, f.gate.State())
}

func TestReviewGate_HighRatingConfirm(t *testing.T) {
	f := setupTestReviewGate(4, "https://g.page/r/venue/review")
	f.gate.Enter(context.Background())

	state, err := f.gate.SetRating(5)
	require.NoError(t, err)
	require.Equal(t, ReviewHighRating, state)
	assert.Equal(t, "https://g.page/r/venue/review", f.gate.RedirectURL())
	assert.Empty(t, f.opener.URLs())

	url, err := f.gate.Confirm(context.Background())
	require.NoError(t, err)
	f.runner.Wait()

	assert.Equal(t, "https://g.page/r/venue/review", url)
	assert.Equal(t, ReviewCompleted, f.gate.State())
	assert.Equal(t, []string{"https://g.page/r/venue/review"}, f.opener.URLs())
	assert.Equal(t, []string{"w1"}, f.navigator.Calls())

	inputs := f.submissions.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, 5, inputs[0].Rating)
	assert.Empty(t, inputs[0].Content)
	assert.Equal(t, models.AuthorCouple, inputs[0].AuthorRole)

	unlocked, _ := f.unlocks.Get(context.Background(), "couple-42")
	assert.True(t, unlocked)
}

func TestReviewGate_HighRatingWithoutURLStillCompletes(t *testing.T) {
	f := setupTestReviewGate(4, "")
	f.gate.Enter(context.Background())

	_, err := f.gate.SetRating(4)
	require.NoError(t, err)

	url, err := f.gate.Confirm(context.Background())
	require.NoError(t, err)
	f.runner.Wait()

	assert.Empty(t, url)
	assert.Empty(t, f.opener.URLs())
	assert.Equal(t, ReviewCompleted, f.gate.State())
	assert.Equal(t, []string{"w1"}, f.navigator.Calls())
}

func TestReviewGate_LowRatingRequiresFeedback(t *testing.T) {
	f := setupTestReviewGate(4, "https://example.com/review")
	f.gate.Enter(context.Background())

	_, err := f.gate.SetRating(2)
	require.NoError(t, err)
	assert.Empty(t, f.gate.RedirectURL())

	assert.False(t, f.gate.CanSubmit())
	assert.ErrorIs(t, f.gate.Submit(context.Background()), status.ErrFeedbackRequired)

	require.NoError(t, f.gate.SetFeedback("   \n"))
	assert.False(t, f.gate.CanSubmit())
	assert.ErrorIs(t, f.gate.Submit(context.Background()), status.ErrFeedbackRequired)
	assert.Equal(t, ReviewLowRating, f.gate.State())

	require.NoError(t, f.gate.SetFeedback("  slow service "))
	assert.True(t, f.gate.CanSubmit())
	require.NoError(t, f.gate.Submit(context.Background()))
	f.runner.Wait()

	assert.Equal(t, ReviewCompleted, f.gate.State())
	assert.Empty(t, f.opener.URLs())

	inputs := f.submissions.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, "slow service", inputs[0].Content)
	assert.Equal(t, 2, inputs[0].Rating)
}

func TestReviewGate_WrongFlow(t *testing.T) {
	f := setupTestReviewGate(4, "")
	f.gate.Enter(context.Background())

	assert.ErrorIs(t, f.gate.SetFeedback("early"), status.ErrWrongFlow)
	_, err := f.gate.Confirm(context.Background())
	assert.ErrorIs(t, err, status.ErrWrongFlow)

	_, err = f.gate.SetRating(5)
	require.NoError(t, err)
	assert.ErrorIs(t, f.gate.SetFeedback("great"), status.ErrWrongFlow)
	assert.ErrorIs(t, f.gate.Submit(context.Background()), status.ErrWrongFlow)
}

func TestReviewGate_SkipsWhenAlreadyUnlocked(t *testing.T) {
	f := setupTestReviewGate(4, "https://example.com/review")
	require.NoError(t, f.unlocks.Set(context.Background(), "couple-42"))

	state := f.gate.Enter(context.Background())

	assert.Equal(t, ReviewCompleted, state)
	assert.True(t, f.gate.Skipped())
	assert.Equal(t, []string{"w1"}, f.navigator.Calls())
	assert.Empty(t, f.opener.URLs())

	_, err := f.gate.SetRating(5)
	assert.ErrorIs(t, err, status.ErrInputDisabled)

	// Entering again does not navigate twice.
	assert.Equal(t, ReviewCompleted, f.gate.Enter(context.Background()))
	assert.Len(t, f.navigator.Calls(), 1)
	f.runner.Wait()
	assert.Empty(t, f.submissions.Inputs())
}

func TestReviewGate_StoreFailuresFailOpen(t *testing.T) {
	failures := &failureLog{}
	runner := NewRunner(0, failures.Record)
	navigator := &recordingNavigator{}
	gate := NewReviewGate(ReviewConfig{
		SessionID:   "sess-1",
		WeddingID:   "w1",
		IdentityKey: "guest-7:w1",
		Threshold:   4,
	}, ReviewDeps{
		Unlocks:     failingUnlockStore{},
		Submissions: &fakeSubmissions{err: errStoreDown},
		Runner:      runner,
		Navigator:   navigator,
	})

	assert.Equal(t, ReviewRatingPending, gate.Enter(context.Background()))

	_, err := gate.SetRating(5)
	require.NoError(t, err)
	_, err = gate.Confirm(context.Background())
	require.NoError(t, err)
	runner.Wait()

	assert.Equal(t, ReviewCompleted, gate.State())
	assert.Equal(t, []string{"w1"}, navigator.Calls())
	assert.ElementsMatch(t, []string{"unlock_lookup", "unlock_record", "review_submission"}, failures.Ops())
}

func TestReviewGate_InputRefusedBeforeEnter(t *testing.T) {
	f := setupTestReviewGate(4, "https://g.page/r/venue/review")
	require.Equal(t, ReviewChecking, f.gate.State())

	_, err := f.gate.SetRating(5)
	assert.ErrorIs(t, err, status.ErrInputDisabled)
	assert.ErrorIs(t, f.gate.SetFeedback("lovely"), status.ErrInputDisabled)
	_, err = f.gate.Confirm(context.Background())
	assert.ErrorIs(t, err, status.ErrInputDisabled)
	assert.ErrorIs(t, f.gate.Submit(context.Background()), status.ErrInputDisabled)

	assert.Empty(t, f.gate.RedirectURL())
	assert.Empty(t, f.navigator.Calls())
	assert.Equal(t, ReviewRatingPending, f.gate.Enter(context.Background()))
}
