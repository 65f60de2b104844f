package tokenstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]string
	codec codec
	now   func() time.Time
}

// NewMemoryStore returns an empty in-memory store. sealer may be nil.
func NewMemoryStore(sealer *Sealer) *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]string),
		codec: newCodec(sealer),
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, email string) (*Document, error) {
	key, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	stored, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.codec.decode(stored)
}

func (s *MemoryStore) Upsert(_ context.Context, doc *Document) error {
	prepared, err := prepare(doc, s.now())
	if err != nil {
		return err
	}
	encoded, err := s.codec.encode(prepared)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.docs[prepared.Email] = encoded
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	key, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.docs, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	emails := make([]string, 0, len(s.docs))
	for email := range s.docs {
		emails = append(emails, email)
	}
	s.mu.RUnlock()

	sort.Strings(emails)
	return emails, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
