package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/brandon/emlfs/pkg/types"
)

// Entry is a parsed model and the time it was produced.
type Entry struct {
	Email    *types.Email
	LoadedAt time.Time
}

// Store holds entries by source identity. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(key string) (*Entry, bool)
	Add(key string, entry *Entry)
	Remove(key string)
	Purge()
	Len() int
}

// NewStore returns an unbounded store for maxEntries <= 0, and an LRU store
// holding at most maxEntries otherwise.
func NewStore(maxEntries int) (Store, error) {
	if maxEntries <= 0 {
		return newMapStore(), nil
	}
	c, err := lru.New[string, *Entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU store: %w", err)
	}
	return &lruStore{cache: c}, nil
}

type mapStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func newMapStore() *mapStore {
	return &mapStore{entries: make(map[string]*Entry)}
}

func (s *mapStore) Get(key string) (*Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	return e, ok
}

func (s *mapStore) Add(key string, entry *Entry) {
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
}

func (s *mapStore) Remove(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *mapStore) Purge() {
	s.mu.Lock()
	s.entries = make(map[string]*Entry)
	s.mu.Unlock()
}

func (s *mapStore) Len() int {
	s.mu.RLock()
	n := len(s.entries)
	s.mu.RUnlock()
	return n
}

// lruStore adapts golang-lru, which does its own locking.
type lruStore struct {
	cache *lru.Cache[string, *Entry]
}

func (s *lruStore) Get(key string) (*Entry, bool) {
	return s.cache.Get(key)
}

func (s *lruStore) Add(key string, entry *Entry) {
	s.cache.Add(key, entry)
}

func (s *lruStore) Remove(key string) {
	s.cache.Remove(key)
}

func (s *lruStore) Purge() {
	s.cache.Purge()
}

func (s *lruStore) Len() int {
	return s.cache.Len()
}
