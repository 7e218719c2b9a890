package schedule

import (
	"context"

	"github.com/quebec-alerts/alerts-api/internal/models"
)

type scrapeMetrics interface {
	ScrapeFailure()
}

// InstrumentedFetcher counts failed fetches, including attempts rejected by
// an open circuit breaker when it wraps one.
type InstrumentedFetcher struct {
	inner Fetcher
	m     scrapeMetrics
}

func NewInstrumentedFetcher(inner Fetcher, m scrapeMetrics) *InstrumentedFetcher {
	return &InstrumentedFetcher{inner: inner, m: m}
}

func (f *InstrumentedFetcher) Fetch(ctx context.Context, postalCode string, forceRefresh bool) (models.RawSchedule, error) {
	schedule, err := f.inner.Fetch(ctx, postalCode, forceRefresh)
	if err != nil {
		f.m.ScrapeFailure()
	}
	return schedule, err
}
