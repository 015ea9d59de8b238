// Package memory provides in-process implementations of driven ports for
// single-instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SetupStateStore = (*SetupStateStore)(nil)

type entry struct {
	state   model.SetupState
	expires time.Time
}

// SetupStateStore keeps setup state in a map. Expired entries are dropped
// lazily on access and by Sweep.
type SetupStateStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewSetupStateStore creates an empty store.
func NewSetupStateStore() *SetupStateStore {
	return &SetupStateStore{entries: make(map[string]entry), now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (s *SetupStateStore) WithClock(now func() time.Time) *SetupStateStore {
	s.now = now
	return s
}

// Put stores state under key for ttl.
func (s *SetupStateStore) Put(_ context.Context, key string, state model.SetupState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{state: state, expires: s.now().Add(ttl)}
	return nil
}

// Get returns the state under key, or (nil, nil) when missing or expired.
func (s *SetupStateStore) Get(_ context.Context, key string) (*model.SetupState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, nil
	}
	state := e.state
	return &state, nil
}

// Delete removes the state under key.
func (s *SetupStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (s *SetupStateStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int
	for key, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the interval until the context is canceled.
func (s *SetupStateStore) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
