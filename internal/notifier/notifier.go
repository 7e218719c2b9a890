// Package notifier runs the scheduled sweeps: the evening waste reminder run
// and the snow operation check.
package notifier

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quebec-alerts/alerts-api/internal/metrics"
	"github.com/quebec-alerts/alerts-api/internal/models"
	"github.com/quebec-alerts/alerts-api/internal/repository/sqlite"
	"github.com/quebec-alerts/alerts-api/internal/services/waste"
)

const (
	jobWaste = "waste"
	jobSnow  = "snow"

	sweepTimeout = 10 * time.Minute
)

type subscriberLister interface {
	ListWithAlert(ctx context.Context, alertType string) ([]models.Subscriber, error)
}

type zoneGetter interface {
	GetByID(ctx context.Context, id int64) (models.WasteZone, error)
}

type reminderLedger interface {
	WasSent(ctx context.Context, subscriberID int64, reminderType string, referenceDate time.Time) (bool, error)
	RecordSent(ctx context.Context, subscriberID int64, reminderType string, referenceDate time.Time) error
}

type emailSender interface {
	SendGarbageReminder(to, postalCode string, collectionDate time.Time) error
	SendRecyclingReminder(to, postalCode string, collectionDate time.Time) error
	SendSnowAlert(to, postalCode string, streets []string) error
}

type snowChecker interface {
	CheckPostalCode(ctx context.Context, postalCode string) (bool, []string, error)
}

// Result counts the outcomes of one waste reminder run.
type Result struct {
	GarbageSent   int `json:"garbage_sent"`
	RecyclingSent int `json:"recycling_sent"`
	Skipped       int `json:"skipped"`
	Errors        int `json:"errors"`
}

// SnowResult counts the outcomes of one snow sweep.
type SnowResult struct {
	Checked    int `json:"users_checked"`
	AlertsSent int `json:"alerts_sent"`
	Errors     int `json:"errors"`
}

// Notifier schedules and runs both sweeps. The clock is injected so runs can
// be pinned to a date in tests.
type Notifier struct {
	subscribers subscriberLister
	zones       zoneGetter
	ledger      reminderLedger
	emails      emailSender
	snow        snowChecker
	logger      *log.Logger
	m           *metrics.Metrics
	cron        *cron.Cron
	cancel      context.CancelFunc
	now         func() time.Time
	wasteSpec   string
	snowSpec    string
}

func New(
	subscribers subscriberLister,
	zones zoneGetter,
	ledger reminderLedger,
	emails emailSender,
	snow snowChecker,
	logger *log.Logger,
	m *metrics.Metrics,
	wasteSpec, snowSpec string,
	now func() time.Time,
) *Notifier {
	return &Notifier{
		subscribers: subscribers,
		zones:       zones,
		ledger:      ledger,
		emails:      emails,
		snow:        snow,
		logger:      logger,
		m:           m,
		cron:        cron.New(),
		now:         now,
		wasteSpec:   wasteSpec,
		snowSpec:    snowSpec,
	}
}

// Start schedules the waste and snow jobs.
func (n *Notifier) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	if _, err := n.cron.AddFunc(n.wasteSpec, func() {
		runCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
		defer cancel()
		n.RunDailyWasteReminders(runCtx, n.now())
	}); err != nil {
		return err
	}

	if _, err := n.cron.AddFunc(n.snowSpec, func() {
		runCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
		defer cancel()
		n.RunSnowSweep(runCtx)
	}); err != nil {
		return err
	}

	n.cron.Start()
	n.logger.Println("notifier started")
	return nil
}

// Stop cancels running sweeps and waits for scheduled jobs to finish.
func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	stopCtx := n.cron.Stop()
	<-stopCtx.Done()
	n.logger.Println("notifier stopped")
}

// RunDailyWasteReminders sends reminders for collections happening the day
// after checkDate. Safe to run repeatedly for the same date: the ledger keeps
// each subscriber at one reminder per type per collection date.
func (n *Notifier) RunDailyWasteReminders(ctx context.Context, checkDate time.Time) Result {
	start := time.Now()
	n.m.SweepRuns.WithLabelValues(jobWaste).Inc()

	tomorrow := checkDate.AddDate(0, 0, 1)
	n.logger.Printf("processing waste reminders for %s", checkDate.Format("2006-01-02"))

	var result Result
	n.processReminders(ctx, tomorrow, models.AlertGarbage, waste.IsGarbageDay,
		n.emails.SendGarbageReminder, &result.GarbageSent, &result)
	n.processReminders(ctx, tomorrow, models.AlertRecycling, waste.IsRecyclingDay,
		n.emails.SendRecyclingReminder, &result.RecyclingSent, &result)

	n.m.SweepDuration.WithLabelValues(jobWaste).Observe(time.Since(start).Seconds())
	n.logger.Printf("waste reminders complete: %+v", result)
	return result
}

func (n *Notifier) processReminders(
	ctx context.Context,
	tomorrow time.Time,
	reminderType string,
	isCollectionDay func(models.WasteZone, time.Time) bool,
	send func(to, postalCode string, collectionDate time.Time) error,
	sent *int,
	result *Result,
) {
	subscribers, err := n.subscribers.ListWithAlert(ctx, reminderType)
	if err != nil {
		n.logger.Printf("listing %s subscribers: %v", reminderType, err)
		n.m.TechnicalErrors.WithLabelValues("list_subscribers", "critical").Inc()
		result.Errors++
		return
	}
	n.logger.Printf("found %d subscribers with %s alerts", len(subscribers), reminderType)

	for _, sub := range subscribers {
		switch n.remindOne(ctx, sub, tomorrow, reminderType, isCollectionDay, send) {
		case outcomeSent:
			*sent++
			n.m.RemindersSent.WithLabelValues(reminderType).Inc()
		case outcomeSkipped:
			result.Skipped++
		case outcomeError:
			result.Errors++
		case outcomeNotDue:
		}
	}
}

type outcome int

const (
	outcomeNotDue outcome = iota
	outcomeSent
	outcomeSkipped
	outcomeError
)

func (n *Notifier) remindOne(
	ctx context.Context,
	sub models.Subscriber,
	tomorrow time.Time,
	reminderType string,
	isCollectionDay func(models.WasteZone, time.Time) bool,
	send func(to, postalCode string, collectionDate time.Time) error,
) outcome {
	if sub.WasteZoneID == nil {
		n.logger.Printf("subscriber %s has no waste zone assigned, skipping", sub.Email)
		return outcomeSkipped
	}

	zone, err := n.zones.GetByID(ctx, *sub.WasteZoneID)
	if errors.Is(err, sqlite.ErrZoneNotFound) {
		n.logger.Printf("waste zone %d not found for subscriber %s", *sub.WasteZoneID, sub.Email)
		return outcomeSkipped
	}
	if err != nil {
		n.logger.Printf("loading zone for %s: %v", sub.Email, err)
		return outcomeError
	}

	if !isCollectionDay(zone, tomorrow) {
		return outcomeNotDue
	}

	alreadySent, err := n.ledger.WasSent(ctx, sub.ID, reminderType, tomorrow)
	if err != nil {
		n.logger.Printf("ledger lookup for %s: %v", sub.Email, err)
		return outcomeError
	}
	if alreadySent {
		return outcomeSkipped
	}

	if err := send(sub.Email, sub.PostalCode, tomorrow); err != nil {
		n.logger.Printf("failed to send %s reminder to %s: %v", reminderType, sub.Email, err)
		n.m.TechnicalErrors.WithLabelValues("email_send_error", "critical").Inc()
		return outcomeError
	}

	err = n.ledger.RecordSent(ctx, sub.ID, reminderType, tomorrow)
	if errors.Is(err, sqlite.ErrDuplicateReminder) {
		// A concurrent run won this date; the constraint is the backstop.
		return outcomeSkipped
	}
	if err != nil {
		n.logger.Printf("recording %s reminder for %s: %v", reminderType, sub.Email, err)
		return outcomeError
	}

	n.logger.Printf("%s reminder sent to %s", reminderType, sub.Email)
	return outcomeSent
}

// RunSnowSweep checks every snow subscriber's postal code and alerts those
// near an active operation.
func (n *Notifier) RunSnowSweep(ctx context.Context) SnowResult {
	start := time.Now()
	n.m.SweepRuns.WithLabelValues(jobSnow).Inc()

	var result SnowResult

	subscribers, err := n.subscribers.ListWithAlert(ctx, models.AlertSnow)
	if err != nil {
		n.logger.Printf("listing snow subscribers: %v", err)
		n.m.TechnicalErrors.WithLabelValues("list_subscribers", "critical").Inc()
		result.Errors++
		return result
	}
	n.logger.Printf("found %d subscribers with snow alerts", len(subscribers))

	for _, sub := range subscribers {
		result.Checked++

		active, streets, err := n.snow.CheckPostalCode(ctx, sub.PostalCode)
		if err != nil {
			n.logger.Printf("checking %s (%s): %v", sub.Email, sub.PostalCode, err)
			result.Errors++
			continue
		}
		if !active {
			continue
		}

		if err := n.emails.SendSnowAlert(sub.Email, sub.PostalCode, streets); err != nil {
			n.logger.Printf("failed to send snow alert to %s: %v", sub.Email, err)
			n.m.TechnicalErrors.WithLabelValues("email_send_error", "critical").Inc()
			result.Errors++
			continue
		}

		result.AlertsSent++
		n.m.SnowAlertsSent.Inc()
		n.logger.Printf("snow alert sent to %s", sub.Email)
	}

	n.m.SweepDuration.WithLabelValues(jobSnow).Observe(time.Since(start).Seconds())
	n.logger.Printf("snow sweep complete: %+v", result)
	return result
}
