package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// MEMBERSHIP CACHE
// Read-through cache of group rosters. The notifier resolves the roster on
// every notification; going to Postgres each time is wasteful for groups
// that change a few times a semester.
// ══════════════════════════════════════════════════════════════════════════════

// MembershipCache implements user.GroupMembership with a read-through
// cache in front of another membership source.
type MembershipCache struct {
	cache  *Cache
	source user.GroupMembership
}

// NewMembershipCache creates a new MembershipCache over a source.
func NewMembershipCache(cache *Cache, source user.GroupMembership) *MembershipCache {
	return &MembershipCache{
		cache:  cache,
		source: source,
	}
}

// MembersOf returns Telegram IDs of all members of a group.
// On a cache miss the roster is loaded from the source and cached.
// Cache errors degrade to a direct source read.
func (m *MembershipCache) MembersOf(ctx context.Context, code user.GroupCode) ([]user.TelegramID, error) {
	key := MembersKey(code.String())

	var cached []int64
	err := m.cache.Get(ctx, key, &cached)
	if err == nil {
		members := make([]user.TelegramID, len(cached))
		for i, id := range cached {
			members[i] = user.TelegramID(id)
		}
		return members, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		// Cache is unavailable, the roster still has to go out.
		return m.source.MembersOf(ctx, code)
	}

	members, err := m.source.MembersOf(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("membership cache: load %s: %w", code, err)
	}

	raw := make([]int64, len(members))
	for i, id := range members {
		raw[i] = int64(id)
	}
	// A failed fill is not an error for the caller.
	_ = m.cache.Set(ctx, key, raw, TTLMembership)

	return members, nil
}

// Invalidate drops the cached roster of a group.
func (m *MembershipCache) Invalidate(ctx context.Context, code user.GroupCode) error {
	return m.cache.Delete(ctx, MembersKey(code.String()))
}
