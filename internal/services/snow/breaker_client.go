package snow

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const (
	breakerInterval = time.Duration(60) * time.Second
	breakerTimeout  = time.Duration(120) * time.Second

	tripThreshold = 3
)

// BreakerClient shields an ArcGIS endpoint behind a circuit breaker so a down
// geocoder or map server stops costing a full timeout per status check.
type BreakerClient struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	wrapped HTTPClient
}

func NewBreakerClient(name string, wrapped HTTPClient) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripThreshold
		},
	}
	return &BreakerClient{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

func (b *BreakerClient) Do(req *http.Request) (*http.Response, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		resp, err := b.wrapped.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			return nil, errors.New(b.name + " returned " + resp.Status)
		}
		return resp, nil
	})
	if err != nil {
		return nil, errors.New(b.name + " unavailable: " + err.Error())
	}
	resp, ok := result.(*http.Response)
	if !ok {
		return nil, errors.New(b.name + " unavailable: ")
	}
	return resp, nil
}
