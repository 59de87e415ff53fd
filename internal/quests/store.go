// Package quests keeps the quest list with its fetch status. A successful fetch replaces the
// list only when the content changed, so readers can compare versions cheaply.
package quests

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tarkov-dev/site/pkg/core"
)

// Status is the state of the last fetch.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Fetcher loads the current quest list.
type Fetcher interface {
	Quests(ctx context.Context) ([]core.Quest, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]core.Quest, error)

// Quests calls f.
func (f FetcherFunc) Quests(ctx context.Context) ([]core.Quest, error) {
	return f(ctx)
}

// Snapshot is a consistent copy of the store state.
type Snapshot struct {
	Quests    []core.Quest `json:"quests"`
	Status    Status       `json:"status"`
	Error     string       `json:"error,omitempty"`
	Version   uint64       `json:"version"`
	UpdatedAt time.Time    `json:"updatedAt,omitempty"`
}

var equalOpts = cmp.Options{cmpopts.EquateEmpty()}

// Store is safe for concurrent use.
type Store struct {
	fetcher Fetcher
	log     *slog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	quests    []core.Quest
	status    Status
	err       error
	version   uint64
	updatedAt time.Time
}

// New creates an idle store.
func New(fetcher Fetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fetcher: fetcher,
		log:     logger,
		now:     time.Now,
		status:  StatusIdle,
		quests:  []core.Quest{},
	}
}

// Fetch loads the quest list. On failure the previous list is kept and the error is
// recorded on the store as well as returned.
func (s *Store) Fetch(ctx context.Context) error {
	if s.fetcher == nil {
		return errors.New("quests: no fetcher configured")
	}

	s.mu.Lock()
	s.status = StatusLoading
	s.mu.Unlock()

	quests, err := s.fetcher.Quests(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusFailed
		s.err = err
		s.log.Error("failed to fetch quests", "error", err)
		return err
	}
	s.status = StatusSucceeded
	s.err = nil
	s.replaceLocked(quests)
	return nil
}

// Seed installs a previously cached list without changing the fetch status.
func (s *Store) Seed(quests []core.Quest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(quests)
}

func (s *Store) replaceLocked(quests []core.Quest) bool {
	if cmp.Equal(s.quests, quests, equalOpts) {
		s.log.Debug("quest list unchanged", "version", s.version)
		return false
	}
	s.quests = slices.Clone(quests)
	if s.quests == nil {
		s.quests = []core.Quest{}
	}
	s.version++
	s.updatedAt = s.now()
	s.log.Info("quest list updated", "quests", len(s.quests), "version", s.version)
	return true
}

// Quests returns the current list. The slice must not be modified.
func (s *Store) Quests() []core.Quest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quests
}

// Status returns the state of the last fetch.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the error of the last failed fetch.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Version increases every time the list content changes.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the full state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Quests:    s.quests,
		Status:    s.status,
		Version:   s.version,
		UpdatedAt: s.updatedAt,
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
