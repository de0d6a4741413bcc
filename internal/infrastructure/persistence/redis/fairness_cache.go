package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/queue-hub/queue-manager/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAIRNESS CACHE
// Hot copy of the two fairness fields the ordering algorithm reads for
// every enrolled participant. Stored as a Redis hash per participant.
// ══════════════════════════════════════════════════════════════════════════════

const (
	fieldAveragePosition    = "avg"
	fieldParticipationCount = "count"
)

// FairnessCache implements user.FairnessStore on Redis hashes.
//
// An unknown participant reads as (0.0, 0) without an error, matching
// the neutral statistics a fresh participant starts with.
type FairnessCache struct {
	cache *Cache
}

// NewFairnessCache creates a new FairnessCache.
func NewFairnessCache(cache *Cache) *FairnessCache {
	return &FairnessCache{cache: cache}
}

// GetFairness returns (averagePosition, participationCount) for a participant.
func (f *FairnessCache) GetFairness(ctx context.Context, telegramID user.TelegramID) (float64, int, error) {
	fields, err := f.cache.HGetAll(ctx, FairnessKey(int64(telegramID)))
	if err != nil {
		return 0, 0, fmt.Errorf("fairness cache: get %d: %w", telegramID, err)
	}
	if len(fields) == 0 {
		return 0, 0, nil
	}

	avg, err := strconv.ParseFloat(fields[fieldAveragePosition], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: avg for %d: %v", ErrCacheSerialization, telegramID, err)
	}

	count, err := strconv.Atoi(fields[fieldParticipationCount])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: count for %d: %v", ErrCacheSerialization, telegramID, err)
	}

	return avg, count, nil
}

// UpdateFairness stores updated statistics for a participant.
func (f *FairnessCache) UpdateFairness(ctx context.Context, telegramID user.TelegramID, avg float64, count int) error {
	key := FairnessKey(int64(telegramID))

	err := f.cache.HSet(ctx, key,
		fieldAveragePosition, strconv.FormatFloat(avg, 'f', -1, 64),
		fieldParticipationCount, strconv.Itoa(count),
	)
	if err != nil {
		return fmt.Errorf("fairness cache: update %d: %w", telegramID, err)
	}

	return f.cache.Expire(ctx, key, TTLFairness)
}

// Invalidate drops cached statistics for a participant.
func (f *FairnessCache) Invalidate(ctx context.Context, telegramID user.TelegramID) error {
	return f.cache.Delete(ctx, FairnessKey(int64(telegramID)))
}
