package schedule

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quebec-alerts/alerts-api/internal/models"
	"github.com/quebec-alerts/alerts-api/internal/services/schedule"
	"github.com/quebec-alerts/alerts-api/internal/services/waste"
)

const dateLayout = "2006-01-02"

type scheduleService interface {
	Get(ctx context.Context, zoneCode string, forceRefresh bool) (models.WasteZone, error)
}

type Handler struct {
	service scheduleService
	logger  *log.Logger
	now     func() time.Time
}

func NewHandler(service scheduleService, logger *log.Logger, now func() time.Time) *Handler {
	return &Handler{service: service, logger: logger, now: now}
}

// Get handles GET /api/schedule/:postalCode. The "refresh" query flag skips
// the cached zone and re-queries the city site.
func (h *Handler) Get(c *gin.Context) {
	postalCode := c.Param("postalCode")
	if !models.ValidPostalCode(postalCode) {
		c.JSON(http.StatusBadRequest,
			gin.H{"error": "Invalid postal code format. Use format like G1R 2K8"})
		return
	}

	forceRefresh := c.Query("refresh") == "true"

	zone, err := h.service.Get(c.Request.Context(), postalCode, forceRefresh)
	switch {
	case errors.Is(err, schedule.ErrUnavailable):
		c.JSON(http.StatusBadGateway,
			gin.H{"error": "Could not retrieve collection schedule for this postal code"})
		return
	case err != nil:
		h.logger.Printf("schedule lookup failed for %s: %v", postalCode, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	next := waste.NextCollectionDates(zone, h.now())

	response := gin.H{
		"postal_code":    zone.ZoneCode,
		"garbage_day":    zone.GarbageDay,
		"recycling_week": zone.RecyclingWeek,
		"next_garbage":   nil,
		"next_recycling": nil,
	}
	if next.Garbage != nil {
		response["next_garbage"] = next.Garbage.Format(dateLayout)
	}
	if next.Recycling != nil {
		response["next_recycling"] = next.Recycling.Format(dateLayout)
	}

	c.JSON(http.StatusOK, response)
}
