package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"wedding-gate/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testStart = time.Date(2026, 6, 20, 14, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(_ string, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingNavigator struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNavigator) ProceedToGallery(_ context.Context, _, weddingID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, weddingID)
}

func (n *recordingNavigator) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

type recordingOpener struct {
	mu   sync.Mutex
	urls []string
}

func (o *recordingOpener) Open(_ context.Context, _, url string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, url)
}

func (o *recordingOpener) URLs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.urls...)
}

type fakeSubmissions struct {
	mu     sync.Mutex
	inputs []models.SubmissionInput
	err    error
}

func (f *fakeSubmissions) CreateSubmission(_ context.Context, input models.SubmissionInput) (models.ReviewSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.ReviewSubmission{}, f.err
	}
	f.inputs = append(f.inputs, input)
	return models.ReviewSubmission{
		ID:         "rev-1",
		WeddingID:  input.WeddingID,
		AuthorRole: input.AuthorRole,
		Rating:     input.Rating,
		Content:    input.Content,
		CreatedAt:  testStart,
	}, nil
}

func (f *fakeSubmissions) Inputs() []models.SubmissionInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SubmissionInput(nil), f.inputs...)
}

var errStoreDown = errors.New("store down")

type failingUnlockStore struct{}

func (failingUnlockStore) Get(context.Context, string) (bool, error) { return false, errStoreDown }
func (failingUnlockStore) Set(context.Context, string) error         { return errStoreDown }

// blockingUnlockStore holds Get until release is closed.
type blockingUnlockStore struct {
	unlocked bool
	started  chan struct{}
	release  chan struct{}
	once     sync.Once
}

func newBlockingUnlockStore(unlocked bool) *blockingUnlockStore {
	return &blockingUnlockStore{
		unlocked: unlocked,
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (s *blockingUnlockStore) Get(ctx context.Context, _ string) (bool, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return s.unlocked, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *blockingUnlockStore) Set(context.Context, string) error { return nil }

type failureLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *failureLog) Record(op string, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *failureLog) Ops() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

type stubLister struct {
	weddings []models.Wedding
	err      error
	block    bool
}

func (s stubLister) ListTodaysWeddings(ctx context.Context, _ string) ([]models.Wedding, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.weddings, s.err
}

func enterDigits(t *testing.T, appendFn func(rune) error, digits string) {
	t.Helper()
	for _, d := range digits {
		if err := appendFn(d); err != nil {
			t.Fatalf("append %q: %v", d, err)
		}
	}
}
