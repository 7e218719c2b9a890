package cache

import (
	"context"
	"time"
)

type cache[T any] interface {
	Set(ctx context.Context, key string, value T, expiration time.Duration) error
	Get(ctx context.Context, key string, returnValue *T) error
	Delete(ctx context.Context, key string) error
}

type metricsCollector interface {
	CacheLookup(result string)
}

// MetricsDecorator counts cache traffic so the hit rate of the schedule cache
// shows up on the dashboard.
type MetricsDecorator[T any] struct {
	next      cache[T]
	collector metricsCollector
}

func NewMetricsDecorator[T any](next cache[T], collector metricsCollector) *MetricsDecorator[T] {
	return &MetricsDecorator[T]{next: next, collector: collector}
}

func (m *MetricsDecorator[T]) Set(
	ctx context.Context,
	key string,
	value T,
	expiration time.Duration,
) error {
	err := m.next.Set(ctx, key, value, expiration)
	if err != nil {
		m.collector.CacheLookup("store_error")
	}
	return err
}

func (m *MetricsDecorator[T]) Delete(ctx context.Context, key string) error {
	err := m.next.Delete(ctx, key)
	if err != nil {
		m.collector.CacheLookup("invalidate_error")
	}
	return err
}

func (m *MetricsDecorator[T]) Get(
	ctx context.Context,
	key string,
	returnValue *T,
) error {
	err := m.next.Get(ctx, key, returnValue)
	if err != nil {
		m.collector.CacheLookup("miss")
	} else {
		m.collector.CacheLookup("hit")
	}
	return err
}
