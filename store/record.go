// Package store persists trip plans and caches provider responses, using
// GORM against either Postgres or SQLite depending on configuration.
package store

import "time"

// TripPlanRecord is the persistence record for one trip's pipeline state
// (spec.md §3's "persistence record"). Each stage's output is stored as
// JSON once produced; nil/empty means the stage hasn't run yet.
type TripPlanRecord struct {
	TripID    string `gorm:"primaryKey"`
	TripSpec  []byte `gorm:"type:bytea"` // JSON-encoded domain.TripSpec

	MacroPlan          []byte     `gorm:"type:bytea"`
	MacroPlanCreatedAt *time.Time

	POIPlan          []byte     `gorm:"type:bytea"`
	POIPlanCreatedAt *time.Time

	Itinerary          []byte     `gorm:"type:bytea"`
	ItineraryCreatedAt *time.Time

	Critique          []byte     `gorm:"type:bytea"`
	CritiqueCreatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the GORM table name regardless of struct renames.
func (TripPlanRecord) TableName() string { return "trip_plans" }

// ProviderCache caches POI/travel-time provider responses by a
// caller-constructed key, adapted from the teacher's APICache.
type ProviderCache struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte `gorm:"type:bytea"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}
