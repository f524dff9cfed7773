// Package artifact keeps generated documents in memory until they are
// downloaded or expire.
package artifact

import (
	"sync"
	"time"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/google/uuid"
)

type entry struct {
	doc       *domain.Document
	expiresAt time.Time
}

// Store maps report ids to documents. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]entry
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]entry),
	}
}

// Put stores doc and returns the id it can be fetched with.
func (s *Store) Put(doc *domain.Document) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	id := uuid.NewString()
	s.items[id] = entry{doc: doc, expiresAt: now.Add(s.ttl)}
	return id
}

func (s *Store) Get(id string) (*domain.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	e, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// Len reports how many unexpired documents are held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(s.now())
	return len(s.items)
}

func (s *Store) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if !now.Before(v.expiresAt) {
			delete(s.items, k)
		}
	}
}
