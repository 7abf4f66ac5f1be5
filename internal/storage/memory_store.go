package storage

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps flags in process memory. It is used when no Redis is
// configured.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *MemoryStore) GetFlag(_ context.Context, key string) (bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return false, nil
	}
	str, _ := v.(string)
	return decodeFlag(str), nil
}

func (s *MemoryStore) SetFlag(_ context.Context, key string, value bool) error {
	s.cache.Set(key, encodeFlag(value), cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
