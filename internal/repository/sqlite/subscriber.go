package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/quebec-alerts/alerts-api/internal/models"
)

// SubscriberRepository handles CRUD operations on subscribers.
type SubscriberRepository struct {
	DB  *sql.DB
	log *log.Logger
}

func NewSubscriberRepository(db *sql.DB, logger *log.Logger) *SubscriberRepository {
	return &SubscriberRepository{DB: db, log: logger}
}

// Create inserts a new subscriber and returns its id. The email is the unique
// key; inserting it twice returns ErrSubscriberExists.
func (r *SubscriberRepository) Create(ctx context.Context, sub models.Subscriber) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO subscribers
			(email, postal_code, lat, lon, active,
			 snow_alerts_enabled, garbage_alerts_enabled, recycling_alerts_enabled,
			 waste_zone_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		models.NormalizeEmail(sub.Email), models.NormalizePostalCode(sub.PostalCode),
		sub.Lat, sub.Lon, sub.Active,
		sub.SnowAlerts, sub.GarbageAlerts, sub.RecyclingAlerts,
		sub.WasteZoneID, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrSubscriberExists
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByEmail fetches a subscriber by normalized email, ErrSubscriberNotFound
// when absent.
func (r *SubscriberRepository) GetByEmail(ctx context.Context, email string) (models.Subscriber, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, email, postal_code, lat, lon, active,
			snow_alerts_enabled, garbage_alerts_enabled, recycling_alerts_enabled,
			waste_zone_id, created_at
		 FROM subscribers WHERE email = ?`,
		models.NormalizeEmail(email),
	)
	return scanSubscriber(row)
}

// ListWithAlert returns all active subscribers with the given alert type
// enabled. alertType is one of models.AlertSnow/AlertGarbage/AlertRecycling.
func (r *SubscriberRepository) ListWithAlert(ctx context.Context, alertType string) ([]models.Subscriber, error) {
	var column string
	switch alertType {
	case models.AlertSnow:
		column = "snow_alerts_enabled"
	case models.AlertGarbage:
		column = "garbage_alerts_enabled"
	case models.AlertRecycling:
		column = "recycling_alerts_enabled"
	default:
		return nil, errors.New("unknown alert type: " + alertType)
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, email, postal_code, lat, lon, active,
			snow_alerts_enabled, garbage_alerts_enabled, recycling_alerts_enabled,
			waste_zone_id, created_at
		 FROM subscribers WHERE active = 1 AND `+column+` = 1`,
	)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Println("failed to close rows:", err)
		}
	}(rows)

	var subs []models.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdatePreferences merges the partial update into the stored subscriber.
// Returns false when the email is unknown.
func (r *SubscriberRepository) UpdatePreferences(
	ctx context.Context,
	email string,
	upd models.PreferencesUpdate,
) (bool, error) {
	sub, err := r.GetByEmail(ctx, email)
	if errors.Is(err, ErrSubscriberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	upd.Apply(&sub)

	_, err = r.DB.ExecContext(ctx,
		`UPDATE subscribers SET
			postal_code = ?, lat = ?, lon = ?,
			snow_alerts_enabled = ?, garbage_alerts_enabled = ?, recycling_alerts_enabled = ?,
			waste_zone_id = ?
		 WHERE id = ?`,
		sub.PostalCode, sub.Lat, sub.Lon,
		sub.SnowAlerts, sub.GarbageAlerts, sub.RecyclingAlerts,
		sub.WasteZoneID, sub.ID,
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes a subscriber and all of its reminder ledger rows in one
// transaction. Returns false when the email is unknown. The zone the
// subscriber references is shared and stays untouched.
func (r *SubscriberRepository) Remove(ctx context.Context, email string) (bool, error) {
	sub, err := r.GetByEmail(ctx, email)
	if errors.Is(err, ErrSubscriberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.log.Println("rollback error:", err)
		}
	}()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM reminders_sent WHERE subscriber_id = ?", sub.ID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM subscribers WHERE id = ?", sub.ID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (models.Subscriber, error) {
	var sub models.Subscriber
	var zoneID sql.NullInt64

	err := row.Scan(&sub.ID, &sub.Email, &sub.PostalCode, &sub.Lat, &sub.Lon, &sub.Active,
		&sub.SnowAlerts, &sub.GarbageAlerts, &sub.RecyclingAlerts,
		&zoneID, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscriber{}, ErrSubscriberNotFound
	}
	if err != nil {
		return models.Subscriber{}, err
	}

	if zoneID.Valid {
		sub.WasteZoneID = &zoneID.Int64
	}
	return sub, nil
}
