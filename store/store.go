package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/va6996/tripplanner/domain"
)

// Store is the persistence boundary the orchestrator drives: one record
// per trip, each pipeline stage's output written once it completes.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates/updates the trip_plans and provider_cache tables.
// Safe to call against either the Postgres or SQLite driver.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&TripPlanRecord{}, &ProviderCache{})
}

// CreateTrip inserts a new trip record holding only its TripSpec.
func (s *Store) CreateTrip(ctx context.Context, trip domain.TripSpec) error {
	specJSON, err := json.Marshal(trip)
	if err != nil {
		return err
	}

	record := TripPlanRecord{TripID: trip.TripID, TripSpec: specJSON}
	return s.db.WithContext(ctx).Create(&record).Error
}

// GetTripSpec loads the TripSpec for trip_id.
func (s *Store) GetTripSpec(ctx context.Context, tripID string) (domain.TripSpec, error) {
	record, err := s.getRecord(ctx, tripID)
	if err != nil {
		return domain.TripSpec{}, err
	}

	var spec domain.TripSpec
	if err := json.Unmarshal(record.TripSpec, &spec); err != nil {
		return domain.TripSpec{}, err
	}
	return spec, nil
}

func (s *Store) getRecord(ctx context.Context, tripID string) (*TripPlanRecord, error) {
	var record TripPlanRecord
	err := s.db.WithContext(ctx).Where("trip_id = ?", tripID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveMacroPlan persists the macro-plan stage's output.
func (s *Store) SaveMacroPlan(ctx context.Context, tripID string, days []domain.DaySkeleton) error {
	payload, err := json.Marshal(days)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&TripPlanRecord{}).Where("trip_id = ?", tripID).
		Updates(map[string]interface{}{"macro_plan": payload, "macro_plan_created_at": &now}).Error
}

// GetMacroPlan loads the macro-plan stage's output, if any.
func (s *Store) GetMacroPlan(ctx context.Context, tripID string) ([]domain.DaySkeleton, error) {
	record, err := s.getRecord(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(record.MacroPlan) == 0 {
		return nil, nil
	}
	var days []domain.DaySkeleton
	if err := json.Unmarshal(record.MacroPlan, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// SavePOIPlan persists the POI-planner stage's output.
func (s *Store) SavePOIPlan(ctx context.Context, tripID string, plan domain.POIPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&TripPlanRecord{}).Where("trip_id = ?", tripID).
		Updates(map[string]interface{}{"poi_plan": payload, "poi_plan_created_at": &now}).Error
}

// GetPOIPlan loads the POI-planner stage's output, if any.
func (s *Store) GetPOIPlan(ctx context.Context, tripID string) (*domain.POIPlan, error) {
	record, err := s.getRecord(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(record.POIPlan) == 0 {
		return nil, nil
	}
	var plan domain.POIPlan
	if err := json.Unmarshal(record.POIPlan, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// SaveItinerary persists the route-optimizer stage's output, stamping
// CreatedAt the first time a trip's itinerary is saved and returning the
// stamped value so the caller can hand back the exact object that was
// persisted (spec.md §8's idempotence property rests on this CreatedAt
// staying stable across repeated plan() calls, since a later plan() never
// calls SaveItinerary again and instead reloads via GetItinerary).
func (s *Store) SaveItinerary(ctx context.Context, tripID string, itinerary domain.Itinerary) (domain.Itinerary, error) {
	if itinerary.CreatedAt.IsZero() {
		itinerary.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(itinerary)
	if err != nil {
		return domain.Itinerary{}, err
	}
	err = s.db.WithContext(ctx).Model(&TripPlanRecord{}).Where("trip_id = ?", tripID).
		Updates(map[string]interface{}{"itinerary": payload, "itinerary_created_at": &itinerary.CreatedAt}).Error
	if err != nil {
		return domain.Itinerary{}, err
	}
	return itinerary, nil
}

// GetItinerary loads the route-optimizer stage's output, if any.
func (s *Store) GetItinerary(ctx context.Context, tripID string) (*domain.Itinerary, error) {
	record, err := s.getRecord(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(record.Itinerary) == 0 {
		return nil, nil
	}
	var itinerary domain.Itinerary
	if err := json.Unmarshal(record.Itinerary, &itinerary); err != nil {
		return nil, err
	}
	return &itinerary, nil
}

// SaveCritique persists the trip-critic stage's output.
func (s *Store) SaveCritique(ctx context.Context, tripID string, issues []domain.CritiqueIssue) error {
	payload, err := json.Marshal(issues)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&TripPlanRecord{}).Where("trip_id = ?", tripID).
		Updates(map[string]interface{}{"critique": payload, "critique_created_at": &now}).Error
}

// GetCritique loads the trip-critic stage's output, if any.
func (s *Store) GetCritique(ctx context.Context, tripID string) ([]domain.CritiqueIssue, error) {
	record, err := s.getRecord(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(record.Critique) == 0 {
		return nil, nil
	}
	var issues []domain.CritiqueIssue
	if err := json.Unmarshal(record.Critique, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}
