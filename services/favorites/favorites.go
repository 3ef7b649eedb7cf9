package favorites

import (
	"context"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"
)

const favoritesPrefix = "favorites:"

// Store keeps each user's set of favorite merchant ids.
type Store interface {
	Favorites(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID, merchantID string) error
	Remove(ctx context.Context, userID, merchantID string) error
	IsFavorite(ctx context.Context, userID, merchantID string) (bool, error)
}

// RedisStore keeps favorites in one redis set per user.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(userID string) string {
	return favoritesPrefix + userID
}

// Favorites returns the user's favorite merchant ids, sorted.
func (s *RedisStore) Favorites(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, key(userID)).Result()
	if err == redis.Nil {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStore) Add(ctx context.Context, userID, merchantID string) error {
	return s.client.SAdd(ctx, key(userID), merchantID).Err()
}

func (s *RedisStore) Remove(ctx context.Context, userID, merchantID string) error {
	return s.client.SRem(ctx, key(userID), merchantID).Err()
}

func (s *RedisStore) IsFavorite(ctx context.Context, userID, merchantID string) (bool, error) {
	return s.client.SIsMember(ctx, key(userID), merchantID).Result()
}

// MemoryStore is an in-process Store for the memory backend.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]map[string]struct{})}
}

func (s *MemoryStore) Favorites(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sets[userID]))
	for id := range s.sets[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Add(_ context.Context, userID, merchantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[userID] == nil {
		s.sets[userID] = make(map[string]struct{})
	}
	s.sets[userID][merchantID] = struct{}{}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, userID, merchantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[userID], merchantID)
	return nil
}

func (s *MemoryStore) IsFavorite(_ context.Context, userID, merchantID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[userID][merchantID]
	return ok, nil
}
