package status

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quebec-alerts/alerts-api/internal/models"
)

type snowChecker interface {
	CheckPostalCode(ctx context.Context, postalCode string) (bool, []string, error)
}

type Handler struct {
	snow   snowChecker
	logger *log.Logger
}

func NewHandler(snow snowChecker, logger *log.Logger) *Handler {
	return &Handler{snow: snow, logger: logger}
}

// Get handles GET /api/status/:postalCode and reports whether a snow removal
// operation is active near the postal code.
func (h *Handler) Get(c *gin.Context) {
	postalCode := c.Param("postalCode")
	if !models.ValidPostalCode(postalCode) {
		c.JSON(http.StatusBadRequest,
			gin.H{"error": "Invalid postal code format. Use format like G1R 2K8"})
		return
	}

	active, streets, err := h.snow.CheckPostalCode(c.Request.Context(), postalCode)
	if err != nil {
		h.logger.Printf("snow status check failed for %s: %v", postalCode, err)
		c.JSON(http.StatusBadGateway,
			gin.H{"error": "Could not check snow removal status"})
		return
	}

	message := "No active snow removal operation"
	if active {
		message = "Snow removal in progress - NO PARKING"
	}
	if streets == nil {
		streets = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"postal_code":      models.NormalizePostalCode(postalCode),
		"has_operation":    active,
		"streets_affected": streets,
		"message":          message,
	})
}
