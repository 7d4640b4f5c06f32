package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/steemit/securehide/internal/securehide"
	"github.com/steemit/securehide/pkg/logging"
)

// UnlockStore caches found unlocks in Redis in front of another store.
// Unlocks are never revoked, so only positive answers are cached and a cached
// entry can never be stale.
type UnlockStore struct {
	next   securehide.UnlockStore
	cache  *Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewUnlockStore wraps next with the cache. With a nil cache or a zero ttl
// every call goes straight to next.
func NewUnlockStore(next securehide.UnlockStore, c *Cache, ttl time.Duration) *UnlockStore {
	return &UnlockStore{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logging.WithComponent("unlock-cache"),
	}
}

// Find implements securehide.UnlockStore
func (s *UnlockStore) Find(ctx context.Context, userID, postID int64) (*securehide.Unlock, error) {
	if cached, ok := s.get(ctx, userID, postID); ok {
		return cached, nil
	}

	unlock, err := s.next.Find(ctx, userID, postID)
	if err != nil || unlock == nil {
		return unlock, err
	}
	s.put(ctx, unlock)
	return unlock, nil
}

// CreateIfAbsent implements securehide.UnlockStore
func (s *UnlockStore) CreateIfAbsent(ctx context.Context, userID, postID int64, via securehide.Via, at time.Time) (*securehide.Unlock, error) {
	unlock, err := s.next.CreateIfAbsent(ctx, userID, postID, via, at)
	if err != nil {
		return nil, err
	}
	s.put(ctx, unlock)
	return unlock, nil
}

func (s *UnlockStore) enabled() bool {
	return s.cache != nil && s.ttl > 0
}

func (s *UnlockStore) get(ctx context.Context, userID, postID int64) (*securehide.Unlock, bool) {
	if !s.enabled() {
		return nil, false
	}

	val, err := s.cache.Get(ctx, unlockKey(userID, postID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Debug("Unlock cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var unlock securehide.Unlock
	if err := json.Unmarshal([]byte(val), &unlock); err != nil {
		s.logger.Debug("Discarding unreadable cached unlock", zap.Error(err))
		return nil, false
	}
	return &unlock, true
}

func (s *UnlockStore) put(ctx context.Context, unlock *securehide.Unlock) {
	if !s.enabled() || unlock == nil {
		return
	}

	data, err := json.Marshal(unlock)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, unlockKey(unlock.UserID, unlock.PostID), data, s.ttl); err != nil {
		s.logger.Debug("Unlock cache write failed", zap.Error(err))
	}
}

func unlockKey(userID, postID int64) string {
	return fmt.Sprintf("unlock:%d:%d", userID, postID)
}
