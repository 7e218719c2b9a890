package sqlite_test

import (
	"database/sql"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE subscribers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	postal_code TEXT NOT NULL,
	lat REAL NOT NULL,
	lon REAL NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	snow_alerts_enabled INTEGER NOT NULL DEFAULT 1,
	garbage_alerts_enabled INTEGER NOT NULL DEFAULT 0,
	recycling_alerts_enabled INTEGER NOT NULL DEFAULT 0,
	waste_zone_id INTEGER,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE waste_zones (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	zone_code TEXT NOT NULL UNIQUE,
	garbage_day TEXT NOT NULL DEFAULT 'unknown',
	recycling_week TEXT NOT NULL DEFAULT 'unknown',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE reminders_sent (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	subscriber_id INTEGER NOT NULL,
	reminder_type TEXT NOT NULL,
	reference_date TEXT NOT NULL,
	sent_at TIMESTAMP NOT NULL,
	UNIQUE (subscriber_id, reminder_type, reference_date)
);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
