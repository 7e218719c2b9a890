package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/quebec-alerts/alerts-api/internal/models"
)

const (
	breakerInterval = time.Duration(60) * time.Second
	breakerTimeout  = time.Duration(120) * time.Second

	tripThreshold = 3
)

// BreakerFetcher shields the scraper behind a circuit breaker so a broken or
// throttling city site stops eating a full request cycle per lookup.
type BreakerFetcher struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	wrapped Fetcher
}

func NewBreakerFetcher(name string, wrapped Fetcher) *BreakerFetcher {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripThreshold
		},
	}
	return &BreakerFetcher{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

func (b *BreakerFetcher) Fetch(ctx context.Context, postalCode string, forceRefresh bool) (models.RawSchedule, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.wrapped.Fetch(ctx, postalCode, forceRefresh)
	})
	if err != nil {
		return models.RawSchedule{},
			errors.New(b.name + " unavailable: " + err.Error())
	}
	res, ok := result.(models.RawSchedule)
	if !ok {
		return models.RawSchedule{},
			errors.New(b.name + " unavailable: ")
	}
	return res, nil
}
