package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// InitSQLite opens (creating if absent) a SQLite database file for local
// development and tests, mirroring the teacher's InitDB helper.
func InitSQLite(filepath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", filepath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// RunSQLiteMigrations bootstraps the trip-planning schema with raw SQL on
// a database/sql SQLite handle. bootstrap.Setup does not call it; it runs
// Store.AutoMigrate via GORM for both the Postgres and SQLite drivers.
func RunSQLiteMigrations(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trip_plans (
			"trip_id" TEXT NOT NULL PRIMARY KEY,
			"trip_spec" BLOB,
			"macro_plan" BLOB,
			"macro_plan_created_at" DATETIME,
			"poi_plan" BLOB,
			"poi_plan_created_at" DATETIME,
			"itinerary" BLOB,
			"itinerary_created_at" DATETIME,
			"critique" BLOB,
			"critique_created_at" DATETIME,
			"created_at" DATETIME,
			"updated_at" DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS provider_cache (
			"key" TEXT NOT NULL PRIMARY KEY,
			"value" BLOB,
			"created_at" DATETIME,
			"expires_at" DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS idx_provider_cache_expires_at ON provider_cache(expires_at);`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}
