package schedule

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/quebec-alerts/alerts-api/internal/models"
)

type cacheClient[T any] interface {
	Set(ctx context.Context, key string, value T, expiration time.Duration) error
	Get(ctx context.Context, key string, returnValue *T) error
	Delete(ctx context.Context, key string) error
}

// CachedFetcher keeps raw scrape results in redis so repeated lookups for the
// same postal code, common when a whole street subscribes after a storm, do
// not hit the scraper again within the TTL.
type CachedFetcher struct {
	inner    Fetcher
	cache    cacheClient[models.RawSchedule]
	logger   *log.Logger
	liveTime time.Duration
}

func NewCachedFetcher(
	inner Fetcher,
	cache cacheClient[models.RawSchedule],
	logger *log.Logger,
	liveTime time.Duration,
) *CachedFetcher {
	return &CachedFetcher{inner: inner, cache: cache, logger: logger, liveTime: liveTime}
}

func (f *CachedFetcher) Fetch(ctx context.Context, postalCode string, forceRefresh bool) (models.RawSchedule, error) {
	key := fmt.Sprintf("schedule:%s", models.NormalizePostalCode(postalCode))
	var schedule models.RawSchedule

	if forceRefresh {
		// The stale entry is removed up front so a failed refresh cannot
		// keep serving it afterwards.
		if err := f.cache.Delete(ctx, key); err != nil {
			f.logger.Printf("Cache invalidate error for postal code %s: %v", postalCode, err)
		}
	} else if err := f.cache.Get(ctx, key, &schedule); err == nil {
		f.logger.Printf("Cache hit for postal code %s", postalCode)
		return schedule, nil
	} else {
		f.logger.Printf("Cache miss for postal code %s", postalCode)
	}

	schedule, err := f.inner.Fetch(ctx, postalCode, forceRefresh)
	if err != nil {
		return models.RawSchedule{}, err
	}

	if err := f.cache.Set(ctx, key, schedule, f.liveTime); err != nil {
		f.logger.Printf("Cache error for postal code %s: %v", postalCode, err)
	}

	return schedule, nil
}
