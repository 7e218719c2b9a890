package admin

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quebec-alerts/alerts-api/internal/notifier"
)

const dateLayout = "2006-01-02"

type sweeper interface {
	RunSnowSweep(ctx context.Context) notifier.SnowResult
	RunDailyWasteReminders(ctx context.Context, checkDate time.Time) notifier.Result
}

// Handler exposes manual trigger endpoints for the scheduled sweeps. They run
// the same code paths as the cron jobs and return the run counters.
type Handler struct {
	sweeper sweeper
	logger  *log.Logger
	now     func() time.Time
}

func NewHandler(sweeper sweeper, logger *log.Logger, now func() time.Time) *Handler {
	return &Handler{sweeper: sweeper, logger: logger, now: now}
}

// CheckNow handles POST /api/check-now.
func (h *Handler) CheckNow(c *gin.Context) {
	h.logger.Printf("manual snow sweep triggered")
	result := h.sweeper.RunSnowSweep(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// RunReminders handles POST /api/run-reminders. An optional "date" query
// overrides the check date, which is useful for replaying a missed day.
func (h *Handler) RunReminders(c *gin.Context) {
	checkDate := h.now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
			return
		}
		checkDate = parsed
	}

	h.logger.Printf("manual waste reminder run triggered for %s", checkDate.Format(dateLayout))
	result := h.sweeper.RunDailyWasteReminders(c.Request.Context(), checkDate)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"date":    checkDate.Format(dateLayout),
		"result":  result,
	})
}
