package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/quebec-alerts/alerts-api/internal/models"
)

// ZoneRepository persists waste zones keyed by normalized zone code.
type ZoneRepository struct {
	DB  *sql.DB
	log *log.Logger
}

func NewZoneRepository(db *sql.DB, logger *log.Logger) *ZoneRepository {
	return &ZoneRepository{DB: db, log: logger}
}

// Upsert writes a zone's schedule. The zone code is the natural key: an
// existing row gets its fields overwritten and its updated_at refreshed, never
// a duplicate. Returns the zone id either way.
func (r *ZoneRepository) Upsert(ctx context.Context, code, garbageDay, recyclingWeek string) (int64, error) {
	normalized := models.NormalizePostalCode(code)
	if garbageDay == "" {
		garbageDay = "unknown"
	}
	if recyclingWeek == "" {
		recyclingWeek = models.ParityUnknown
	}

	now := time.Now()

	var id int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM waste_zones WHERE zone_code = ?", normalized,
	).Scan(&id)

	switch {
	case err == nil:
		_, err = r.DB.ExecContext(ctx,
			`UPDATE waste_zones SET garbage_day = ?, recycling_week = ?, updated_at = ?
			 WHERE id = ?`,
			garbageDay, recyclingWeek, now, id,
		)
		return id, err

	case errors.Is(err, sql.ErrNoRows):
		res, err := r.DB.ExecContext(ctx,
			`INSERT INTO waste_zones (zone_code, garbage_day, recycling_week, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			normalized, garbageDay, recyclingWeek, now, now,
		)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()

	default:
		return 0, err
	}
}

// GetByCode fetches a zone by normalized code, ErrZoneNotFound when absent.
func (r *ZoneRepository) GetByCode(ctx context.Context, code string) (models.WasteZone, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, zone_code, garbage_day, recycling_week, created_at, updated_at
		 FROM waste_zones WHERE zone_code = ?`,
		models.NormalizePostalCode(code),
	)
	return scanZone(row)
}

// GetByID fetches a zone by id, ErrZoneNotFound when absent.
func (r *ZoneRepository) GetByID(ctx context.Context, id int64) (models.WasteZone, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, zone_code, garbage_day, recycling_week, created_at, updated_at
		 FROM waste_zones WHERE id = ?`,
		id,
	)
	return scanZone(row)
}

func scanZone(row rowScanner) (models.WasteZone, error) {
	var zone models.WasteZone
	err := row.Scan(&zone.ID, &zone.ZoneCode, &zone.GarbageDay, &zone.RecyclingWeek,
		&zone.CreatedAt, &zone.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WasteZone{}, ErrZoneNotFound
	}
	if err != nil {
		return models.WasteZone{}, err
	}
	return zone, nil
}
