package reportstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of artifacts CachedStore keeps in memory.
const DefaultCacheSize = 1024

// CachedStore is a read-through LRU in front of another Store. Writes go to
// the backing store first and then refresh the cache.
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, []byte]
}

func NewCachedStore(next Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{next: next, cache: cache}, nil
}

func (s *CachedStore) Put(ctx context.Context, sessionID, name string, content []byte) error {
	sessionID, name, err := cleanKey(sessionID, name)
	if err != nil {
		return err
	}
	if err := s.next.Put(ctx, sessionID, name, content); err != nil {
		return err
	}
	s.cache.Add(sessionID+"/"+name, append([]byte(nil), content...))
	return nil
}

func (s *CachedStore) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	sessionID, name, err := cleanKey(sessionID, name)
	if err != nil {
		return nil, err
	}
	key := sessionID + "/" + name
	if v, ok := s.cache.Get(key); ok {
		return append([]byte(nil), v...), nil
	}
	v, err := s.next.Get(ctx, sessionID, name)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, append([]byte(nil), v...))
	return v, nil
}

func (s *CachedStore) List(ctx context.Context, sessionID string) ([]string, error) {
	return s.next.List(ctx, sessionID)
}
