package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps conversations in process. Updates for one key are
// serialised with a per-key lock; different keys proceed in parallel.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
	locks   map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewMemoryStore creates an in-memory store. A zero ttl keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]*keyLock),
	}
}

// Get returns the stored state for userKey.
func (s *MemoryStore) Get(ctx context.Context, userKey string) (*model.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(userKey)
}

// Put stores state, replacing any previous value.
func (s *MemoryStore) Put(ctx context.Context, state *model.ConversationState) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state.UserKey] = memoryEntry{data: data, expiresAt: s.expiry()}
	return nil
}

// Delete removes the conversation for userKey.
func (s *MemoryStore) Delete(ctx context.Context, userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userKey)
	return nil
}

// Update runs fn under the key's lock and stores its result.
func (s *MemoryStore) Update(ctx context.Context, userKey string, fn UpdateFunc) (*model.ConversationState, error) {
	unlock := s.lock(userKey)
	defer unlock()

	s.mu.Lock()
	current, err := s.load(userKey)
	s.mu.Unlock()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	next, err := apply(userKey, current, fn)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Put(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Len returns the number of live conversations.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for _, e := range s.entries {
		if e.expiresAt.IsZero() || now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// load must be called with s.mu held.
func (s *MemoryStore) load(userKey string) (*model.ConversationState, error) {
	e, ok := s.entries[userKey]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, userKey)
		return nil, ErrNotFound
	}
	return decode(e.data)
}

func (s *MemoryStore) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}

func (s *MemoryStore) lock(userKey string) func() {
	s.mu.Lock()
	l, ok := s.locks[userKey]
	if !ok {
		l = &keyLock{}
		s.locks[userKey] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userKey)
		}
		s.mu.Unlock()
	}
}
