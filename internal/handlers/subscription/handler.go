package subscription

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quebec-alerts/alerts-api/internal/metrics"
	"github.com/quebec-alerts/alerts-api/internal/models"
	"github.com/quebec-alerts/alerts-api/internal/services/subscriptions"
)

type subscriptionService interface {
	Subscribe(ctx context.Context, req models.SubscriptionRequest) (subscriptions.SubscribeResult, error)
	UpdatePreferences(ctx context.Context, email string, upd models.PreferencesUpdate) (models.Subscriber, *models.WasteZone, error)
	GetSubscriber(ctx context.Context, email string) (models.Subscriber, *models.WasteZone, error)
	Unsubscribe(ctx context.Context, email string) (bool, error)
	BuildNextEvents(ctx context.Context, postalCode string, zone *models.WasteZone) subscriptions.NextEvents
}

type Handler struct {
	service subscriptionService
	logger  *log.Logger
	m       *metrics.Metrics
}

func NewHandler(service subscriptionService, logger *log.Logger, m *metrics.Metrics) *Handler {
	return &Handler{service: service, logger: logger, m: m}
}

// Subscribe handles POST /api/subscribe.
func (h *Handler) Subscribe(c *gin.Context) {
	var req models.SubscriptionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and postal code are required"})
		return
	}

	if !models.ValidPostalCode(req.PostalCode) {
		c.JSON(http.StatusBadRequest,
			gin.H{"error": "Invalid postal code format. Use format like G1R 2K8"})
		return
	}

	result, err := h.service.Subscribe(c.Request.Context(), req)
	switch {
	case errors.Is(err, subscriptions.ErrNoAlertsEnabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one alert type must be enabled"})
		return
	case errors.Is(err, subscriptions.ErrPostalCode):
		c.JSON(http.StatusBadRequest,
			gin.H{"error": "Could not find postal code. Make sure it is in Quebec City."})
		return
	case err != nil:
		h.logger.Printf("subscribe failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}

	status := http.StatusOK
	message := "Successfully updated preferences for " + result.Subscriber.Email
	if result.Created {
		status = http.StatusCreated
		message = "Successfully subscribed " + result.Subscriber.Email +
			" for postal code " + result.Subscriber.PostalCode
		h.m.SubscriptionsCreated.Inc()
	}

	response := gin.H{
		"success":     true,
		"message":     message,
		"preferences": preferencesBlock(result.Subscriber),
		"next_events": h.service.BuildNextEvents(c.Request.Context(),
			result.Subscriber.PostalCode, result.Zone),
	}
	if result.Zone != nil {
		response["waste_schedule"] = scheduleBlock(*result.Zone)
	}

	c.JSON(status, response)
}

type preferencesRequest struct {
	Email string `json:"email" binding:"required,email"`
	models.PreferencesUpdate
}

// UpdatePreferences handles PUT /api/preferences.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid email is required"})
		return
	}

	sub, zone, err := h.service.UpdatePreferences(c.Request.Context(), req.Email, req.PreferencesUpdate)
	switch {
	case errors.Is(err, subscriptions.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	case errors.Is(err, subscriptions.ErrNoAlertsEnabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one alert type must be enabled"})
		return
	case err != nil:
		h.logger.Printf("update preferences failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update preferences"})
		return
	}

	response := gin.H{
		"success":     true,
		"message":     "Successfully updated preferences for " + sub.Email,
		"preferences": preferencesBlock(sub),
	}
	if zone != nil {
		response["waste_schedule"] = scheduleBlock(*zone)
	}

	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/subscriber/:email.
func (h *Handler) Get(c *gin.Context) {
	email := c.Param("email")

	sub, zone, err := h.service.GetSubscriber(c.Request.Context(), email)
	switch {
	case errors.Is(err, subscriptions.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	case err != nil:
		h.logger.Printf("get subscriber failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := gin.H{
		"email":       sub.Email,
		"postal_code": sub.PostalCode,
		"active":      sub.Active,
		"preferences": preferencesBlock(sub),
		"next_events": h.service.BuildNextEvents(c.Request.Context(), sub.PostalCode, zone),
	}
	if zone != nil {
		response["waste_schedule"] = scheduleBlock(*zone)
	}

	c.JSON(http.StatusOK, response)
}

type unsubscribeRequest struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

// Unsubscribe handles POST /api/unsubscribe.
func (h *Handler) Unsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid email is required"})
		return
	}

	removed, err := h.service.Unsubscribe(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Printf("unsubscribe failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Email not found"})
		return
	}

	h.m.SubscriptionsCanceled.Inc()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Successfully unsubscribed " + models.NormalizeEmail(req.Email),
	})
}

func preferencesBlock(sub models.Subscriber) gin.H {
	return gin.H{
		"snow_alerts":      sub.SnowAlerts,
		"garbage_alerts":   sub.GarbageAlerts,
		"recycling_alerts": sub.RecyclingAlerts,
	}
}

func scheduleBlock(zone models.WasteZone) gin.H {
	return gin.H{
		"garbage_day":    zone.GarbageDay,
		"recycling_week": zone.RecyclingWeek,
	}
}
