// Package schedule resolves waste collection schedules for postal codes,
// caching them as zone rows with a TTL so the slow external source is hit at
// most once per zone per day.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/quebec-alerts/alerts-api/internal/models"
	"github.com/quebec-alerts/alerts-api/internal/repository/sqlite"
)

var (
	// ErrCacheMiss means the zone is absent or its schedule is stale; not a
	// failure, just "go fetch".
	ErrCacheMiss = errors.New("schedule cache miss")

	// ErrUnavailable wraps any external fetch failure. Callers continue
	// without a schedule instead of failing their whole request.
	ErrUnavailable = errors.New("schedule unavailable")
)

type zoneStore interface {
	GetByCode(ctx context.Context, code string) (models.WasteZone, error)
	Upsert(ctx context.Context, code, garbageDay, recyclingWeek string) (int64, error)
}

// Fetcher is the external schedule source: one bounded attempt, schedule or
// failure. Retries, if any, live behind this interface. forceRefresh must
// reach the live source even when an intermediate layer holds a fresh copy.
type Fetcher interface {
	Fetch(ctx context.Context, postalCode string, forceRefresh bool) (models.RawSchedule, error)
}

// Service answers schedule lookups cache-first. The clock is injected so TTL
// behaviour is testable without wall-time games.
type Service struct {
	zones   zoneStore
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *log.Logger
}

func NewService(
	zones zoneStore,
	fetcher Fetcher,
	ttl time.Duration,
	logger *log.Logger,
	now func() time.Time,
) *Service {
	return &Service{zones: zones, fetcher: fetcher, ttl: ttl, logger: logger, now: now}
}

// GetCached returns the stored zone for the code, or ErrCacheMiss when the
// zone is unknown or older than the TTL.
func (s *Service) GetCached(ctx context.Context, zoneCode string) (models.WasteZone, error) {
	zone, err := s.zones.GetByCode(ctx, zoneCode)
	if errors.Is(err, sqlite.ErrZoneNotFound) {
		return models.WasteZone{}, ErrCacheMiss
	}
	if err != nil {
		return models.WasteZone{}, err
	}

	if s.now().Sub(zone.UpdatedAt) > s.ttl {
		s.logger.Printf("cached schedule for %s expired (updated %s)", zone.ZoneCode, zone.UpdatedAt)
		return models.WasteZone{}, ErrCacheMiss
	}
	return zone, nil
}

// Get returns the schedule for a postal code, fetching from the external
// source on miss, expiry or forceRefresh. A fresh result is upserted by zone
// code before being returned; fetch failures surface as ErrUnavailable.
func (s *Service) Get(ctx context.Context, zoneCode string, forceRefresh bool) (models.WasteZone, error) {
	if !forceRefresh {
		zone, err := s.GetCached(ctx, zoneCode)
		if err == nil {
			return zone, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			return models.WasteZone{}, err
		}
	}

	normalized := models.NormalizePostalCode(zoneCode)
	s.logger.Printf("fetching schedule for %s", normalized)

	raw, err := s.fetcher.Fetch(ctx, normalized, forceRefresh)
	if err != nil {
		return models.WasteZone{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	id, err := s.zones.Upsert(ctx, normalized, raw.GarbageDay, raw.RecyclingWeek)
	if err != nil {
		return models.WasteZone{}, err
	}

	// Re-read instead of assembling by hand so defaults applied at the
	// storage layer ("unknown" fields) come back consistent.
	zone, err := s.zones.GetByCode(ctx, normalized)
	if err != nil {
		return models.WasteZone{ID: id, ZoneCode: normalized,
			GarbageDay: raw.GarbageDay, RecyclingWeek: raw.RecyclingWeek}, nil
	}
	return zone, nil
}
