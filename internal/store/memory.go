package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// MemoryStore is a concurrency-safe in-memory cache that also keeps a short history
// of entries per kind. It does not survive restarts on its own; see Layered.
type MemoryStore struct {
	mu sync.RWMutex

	data map[dashboard.Kind][]dashboard.Entry

	// retention configuration
	maxHistory int           // max number of entries per kind
	maxAge     time.Duration // optional max age for entries
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, only the latest entry is kept.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = 1
	}
	return &MemoryStore{
		data:       make(map[dashboard.Kind][]dashboard.Entry),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Put appends entry to its kind's history and enforces retention. The newest entry is
// never dropped by age.
func (s *MemoryStore) Put(_ context.Context, entry dashboard.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.data[entry.Kind], entry)

	// Enforce retention by count.
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history)-1; i++ {
			if !history[i].FetchedAt.Before(cutoff) {
				break
			}
		}
		history = history[i:]
	}

	s.data[entry.Kind] = history
	return nil
}

// Get returns the most recent entry for kind.
func (s *MemoryStore) Get(_ context.Context, kind dashboard.Kind) (dashboard.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[kind]
	if len(history) == 0 {
		return dashboard.Entry{}, dashboard.ErrNotCached
	}
	return history[len(history)-1], nil
}

// Latest is Get without a context, for callers that only hold the memory layer.
func (s *MemoryStore) Latest(kind dashboard.Kind) (dashboard.Entry, bool) {
	e, err := s.Get(context.Background(), kind)
	return e, err == nil
}

// History returns the retained entries for kind, oldest first.
func (s *MemoryStore) History(kind dashboard.Kind) []dashboard.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[kind]
	out := make([]dashboard.Entry, len(history))
	copy(out, history)
	return out
}
