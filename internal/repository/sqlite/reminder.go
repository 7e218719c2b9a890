package sqlite

import (
	"context"
	"database/sql"
	"log"
	"time"
)

const dateLayout = "2006-01-02"

// ReminderRepository is the dedup ledger: one row per dispatched reminder,
// keyed by (subscriber, type, reference date). The UNIQUE index on that triple
// is the sole guard against double sends, including racing sweeps.
type ReminderRepository struct {
	DB  *sql.DB
	log *log.Logger
}

func NewReminderRepository(db *sql.DB, logger *log.Logger) *ReminderRepository {
	return &ReminderRepository{DB: db, log: logger}
}

// WasSent reports whether a reminder of the given type for the given reference
// date was already dispatched to the subscriber.
func (r *ReminderRepository) WasSent(
	ctx context.Context,
	subscriberID int64,
	reminderType string,
	referenceDate time.Time,
) (bool, error) {
	var cnt int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminders_sent
		 WHERE subscriber_id = ? AND reminder_type = ? AND reference_date = ?`,
		subscriberID, reminderType, referenceDate.Format(dateLayout),
	).Scan(&cnt)
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// RecordSent inserts a ledger row. A second insert for the same triple hits
// the unique index and comes back as ErrDuplicateReminder; callers treat that
// as "someone else already recorded this", not a failure.
func (r *ReminderRepository) RecordSent(
	ctx context.Context,
	subscriberID int64,
	reminderType string,
	referenceDate time.Time,
) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO reminders_sent (subscriber_id, reminder_type, reference_date, sent_at)
		 VALUES (?, ?, ?, ?)`,
		subscriberID, reminderType, referenceDate.Format(dateLayout), time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReminder
		}
		return err
	}
	return nil
}
