package flow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wedding-gate/internal/status"
	"wedding-gate/models"
)

type SelectorState string

const (
	SelectorLoading SelectorState = "loading"
	SelectorLoaded  SelectorState = "loaded"
	SelectorFailed  SelectorState = "failed"
)

// EntrySelector lists the weddings held today at one venue and captures the
// guest's choice. Nothing can be selected until the list has loaded.
type EntrySelector struct {
	venueID string
	lister  WeddingLister
	timeout time.Duration

	mu       sync.Mutex
	state    SelectorState
	weddings []models.Wedding
}

func NewEntrySelector(venueID string, lister WeddingLister, timeout time.Duration) *EntrySelector {
	return &EntrySelector{
		venueID: venueID,
		lister:  lister,
		timeout: timeout,
		state:   SelectorLoading,
	}
}

// Load fetches today's weddings. It never waits longer than the selector
// timeout. An empty result is Loaded, not Failed. Calling Load again after a
// failure retries the fetch.
func (s *EntrySelector) Load(ctx context.Context) ([]models.Wedding, error) {
	s.mu.Lock()
	s.state = SelectorLoading
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	weddings, err := s.lister.ListTodaysWeddings(ctx, s.venueID)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = SelectorFailed
		s.weddings = nil
		return nil, fmt.Errorf("failed to list weddings for venue %s: %w", s.venueID, err)
	}

	sorted := make([]models.Wedding, len(weddings))
	copy(sorted, weddings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	s.state = SelectorLoaded
	s.weddings = sorted
	return s.weddingsLocked(), nil
}

func (s *EntrySelector) State() SelectorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *EntrySelector) weddingsLocked() []models.Wedding {
	out := make([]models.Wedding, len(s.weddings))
	copy(out, s.weddings)
	return out
}

// Select returns the loaded wedding with the given id.
func (s *EntrySelector) Select(weddingID string) (models.Wedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SelectorLoaded {
		return models.Wedding{}, status.ErrListNotReady
	}
	for _, w := range s.weddings {
		if w.ID == weddingID {
			return w, nil
		}
	}
	return models.Wedding{}, status.ErrWeddingNotFound
}
