package subscription_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quebec-alerts/alerts-api/internal/handlers/subscription"
	"github.com/quebec-alerts/alerts-api/internal/metrics"
	"github.com/quebec-alerts/alerts-api/internal/models"
	"github.com/quebec-alerts/alerts-api/internal/services/subscriptions"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Subscribe(ctx context.Context, req models.SubscriptionRequest) (subscriptions.SubscribeResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(subscriptions.SubscribeResult), args.Error(1)
}

func (m *mockService) UpdatePreferences(ctx context.Context, email string, upd models.PreferencesUpdate) (models.Subscriber, *models.WasteZone, error) {
	args := m.Called(ctx, email, upd)
	var zone *models.WasteZone
	if z := args.Get(1); z != nil {
		zone = z.(*models.WasteZone)
	}
	return args.Get(0).(models.Subscriber), zone, args.Error(2)
}

func (m *mockService) GetSubscriber(ctx context.Context, email string) (models.Subscriber, *models.WasteZone, error) {
	args := m.Called(ctx, email)
	var zone *models.WasteZone
	if z := args.Get(1); z != nil {
		zone = z.(*models.WasteZone)
	}
	return args.Get(0).(models.Subscriber), zone, args.Error(2)
}

func (m *mockService) Unsubscribe(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockService) BuildNextEvents(ctx context.Context, postalCode string, zone *models.WasteZone) subscriptions.NextEvents {
	args := m.Called(ctx, postalCode, zone)
	return args.Get(0).(subscriptions.NextEvents)
}

func setupRouter(t *testing.T) (*gin.Engine, *mockService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := new(mockService)
	t.Cleanup(func() { service.AssertExpectations(t) })

	handler := subscription.NewHandler(service, log.New(io.Discard, "", 0),
		metrics.NewMetrics("test", nil, "test"))

	router := gin.New()
	router.POST("/api/subscribe", handler.Subscribe)
	router.PUT("/api/preferences", handler.UpdatePreferences)
	router.GET("/api/subscriber/:email", handler.Get)
	router.POST("/api/unsubscribe", handler.Unsubscribe)

	return router, service
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

var testSubscriber = models.Subscriber{
	ID:            7,
	Email:         "resident@example.com",
	PostalCode:    "G1R2K8",
	Active:        true,
	SnowAlerts:    true,
	GarbageAlerts: true,
}

var testZone = &models.WasteZone{
	ID:            3,
	ZoneCode:      "G1R2K8",
	GarbageDay:    "tuesday",
	RecyclingWeek: models.ParityOdd,
}

func TestHandler_Subscribe(t *testing.T) {
	t.Run("NewSubscriberCreated", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("Subscribe", mock.Anything, mock.MatchedBy(func(req models.SubscriptionRequest) bool {
			return req.Email == "resident@example.com" && req.PostalCode == "G1R 2K8"
		})).Return(subscriptions.SubscribeResult{
			Subscriber: testSubscriber,
			Created:    true,
			Zone:       testZone,
		}, nil)
		service.On("BuildNextEvents", mock.Anything, "G1R2K8", testZone).
			Return(subscriptions.NextEvents{})

		recorder := doJSON(t, router, http.MethodPost, "/api/subscribe", gin.H{
			"email":       "resident@example.com",
			"postal_code": "G1R 2K8",
			"preferences": gin.H{"snow_alerts": true, "garbage_alerts": true},
		})

		assert.Equal(t, http.StatusCreated, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, true, body["success"])
		assert.Contains(t, body["message"], "resident@example.com")

		schedule, ok := body["waste_schedule"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "tuesday", schedule["garbage_day"])
		assert.Equal(t, "odd", schedule["recycling_week"])
	})

	t.Run("ExistingSubscriberUpdated", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("Subscribe", mock.Anything, mock.Anything).
			Return(subscriptions.SubscribeResult{Subscriber: testSubscriber, Created: false}, nil)
		service.On("BuildNextEvents", mock.Anything, "G1R2K8", (*models.WasteZone)(nil)).
			Return(subscriptions.NextEvents{})

		recorder := doJSON(t, router, http.MethodPost, "/api/subscribe", gin.H{
			"email":       "resident@example.com",
			"postal_code": "G1R 2K8",
		})

		assert.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.NotContains(t, body, "waste_schedule")
	})

	t.Run("MissingFields", func(t *testing.T) {
		router, _ := setupRouter(t)

		recorder := doJSON(t, router, http.MethodPost, "/api/subscribe",
			gin.H{"email": "resident@example.com"})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("InvalidPostalCode", func(t *testing.T) {
		router, _ := setupRouter(t)

		recorder := doJSON(t, router, http.MethodPost, "/api/subscribe", gin.H{
			"email":       "resident@example.com",
			"postal_code": "12345",
		})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Contains(t, body["error"], "postal code")
	})

	t.Run("NoAlertsEnabled", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("Subscribe", mock.Anything, mock.Anything).
			Return(subscriptions.SubscribeResult{}, subscriptions.ErrNoAlertsEnabled)

		recorder := doJSON(t, router, http.MethodPost, "/api/subscribe", gin.H{
			"email":       "resident@example.com",
			"postal_code": "G1R 2K8",
			"preferences": gin.H{},
		})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("UnknownPostalCode", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("Subscribe", mock.Anything, mock.Anything).
			Return(subscriptions.SubscribeResult{}, subscriptions.ErrPostalCode)

		recorder := doJSON(t, router, http.MethodPost, "/api/subscribe", gin.H{
			"email":       "resident@example.com",
			"postal_code": "H0H 0H0",
		})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Contains(t, body["error"], "Quebec City")
	})

	t.Run("StorageFailure", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("Subscribe", mock.Anything, mock.Anything).
			Return(subscriptions.SubscribeResult{}, assert.AnError)

		recorder := doJSON(t, router, http.MethodPost, "/api/subscribe", gin.H{
			"email":       "resident@example.com",
			"postal_code": "G1R 2K8",
		})

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	})
}

func TestHandler_UpdatePreferences(t *testing.T) {
	t.Run("UpdatesAndReturnsSchedule", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("UpdatePreferences", mock.Anything, "resident@example.com",
			mock.MatchedBy(func(upd models.PreferencesUpdate) bool {
				return upd.GarbageAlerts != nil && *upd.GarbageAlerts
			})).Return(testSubscriber, testZone, nil)

		recorder := doJSON(t, router, http.MethodPut, "/api/preferences", gin.H{
			"email":          "resident@example.com",
			"garbage_alerts": true,
		})

		assert.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Contains(t, body, "waste_schedule")
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("UpdatePreferences", mock.Anything, "ghost@example.com", mock.Anything).
			Return(models.Subscriber{}, nil, subscriptions.ErrNotFound)

		recorder := doJSON(t, router, http.MethodPut, "/api/preferences",
			gin.H{"email": "ghost@example.com", "snow_alerts": false})

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("DisablingEverythingRejected", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("UpdatePreferences", mock.Anything, "resident@example.com", mock.Anything).
			Return(models.Subscriber{}, nil, subscriptions.ErrNoAlertsEnabled)

		recorder := doJSON(t, router, http.MethodPut, "/api/preferences",
			gin.H{"email": "resident@example.com", "snow_alerts": false})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("MissingEmail", func(t *testing.T) {
		router, _ := setupRouter(t)

		recorder := doJSON(t, router, http.MethodPut, "/api/preferences",
			gin.H{"snow_alerts": true})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestHandler_Get(t *testing.T) {
	t.Run("ReturnsSubscriberWithNextEvents", func(t *testing.T) {
		router, service := setupRouter(t)

		garbage := "2025-01-07"
		service.On("GetSubscriber", mock.Anything, "resident@example.com").
			Return(testSubscriber, testZone, nil)
		service.On("BuildNextEvents", mock.Anything, "G1R2K8", testZone).
			Return(subscriptions.NextEvents{Garbage: &garbage})

		req := httptest.NewRequest(http.MethodGet, "/api/subscriber/resident@example.com", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "resident@example.com", body["email"])
		assert.Equal(t, true, body["active"])

		events, ok := body["next_events"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "2025-01-07", events["garbage"])
		assert.Nil(t, events["snow_removal"])
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("GetSubscriber", mock.Anything, "ghost@example.com").
			Return(models.Subscriber{}, nil, subscriptions.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/subscriber/ghost@example.com", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestHandler_Unsubscribe(t *testing.T) {
	t.Run("RemovesSubscriber", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("Unsubscribe", mock.Anything, "resident@example.com").Return(true, nil)

		recorder := doJSON(t, router, http.MethodPost, "/api/unsubscribe",
			gin.H{"email": "resident@example.com"})

		assert.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, true, body["success"])
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		router, service := setupRouter(t)

		service.On("Unsubscribe", mock.Anything, "ghost@example.com").Return(false, nil)

		recorder := doJSON(t, router, http.MethodPost, "/api/unsubscribe",
			gin.H{"email": "ghost@example.com"})

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}
