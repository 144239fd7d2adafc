package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/va6996/tripplanner/config"
	"github.com/va6996/tripplanner/domain"
	"github.com/va6996/tripplanner/macroplanner"
	"github.com/va6996/tripplanner/poi"
	"github.com/va6996/tripplanner/poiplanner"
	"github.com/va6996/tripplanner/routeoptimizer"
	"github.com/va6996/tripplanner/store"
	"github.com/va6996/tripplanner/travel"
)

type stubLLM struct{ calls int }

func (s *stubLLM) GenerateStructured(context.Context, string, string, int) (map[string]interface{}, error) {
	s.calls++
	return map[string]interface{}{
		"days": []interface{}{
			map[string]interface{}{
				"day_number": float64(1),
				"date":       "2026-09-01",
				"theme":      "Arrival",
				"blocks": []interface{}{
					map[string]interface{}{
						"block_type":         "meal",
						"start_time":         "08:00:00",
						"end_time":           "09:00:00",
						"desired_categories": []interface{}{"restaurant"},
					},
				},
			},
		},
	}, nil
}

type stubPOIProvider struct{}

func (stubPOIProvider) Search(context.Context, poi.Query) ([]domain.POICandidate, error) {
	return []domain.POICandidate{{POIID: "r1", RankScore: 5}}, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *stubLLM) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	s := store.New(db)
	assert.NoError(t, s.AutoMigrate())

	llm := &stubLLM{}
	mp := macroplanner.NewPlanner(llm, config.PlannerConfig{MaxRetries: 2, MaxTokens: 4096, MaxTokensOnRetry: 8192})
	pp := poiplanner.NewPlanner(stubPOIProvider{})
	ro := routeoptimizer.NewOptimizer(travel.NewHeuristicProvider())

	return New(s, mp, pp, ro), llm
}

func TestPlan_RunsAllStagesAndPersists(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	trip := domain.TripSpec{TripID: "trip-1", City: "Lisbon", StartDate: "2026-09-01", EndDate: "2026-09-01", Routine: domain.DailyRoutine{SleepTime: "23:00:00"}}
	assert.NoError(t, o.Store.CreateTrip(ctx, trip))

	itinerary, err := o.Plan(ctx, "trip-1")
	assert.NoError(t, err)
	assert.Len(t, itinerary.Days, 1)

	issues, err := o.GetCritique(ctx, "trip-1")
	assert.NoError(t, err)
	assert.NotNil(t, issues)
}

func TestPlan_IsIdempotent(t *testing.T) {
	o, llm := newTestOrchestrator(t)
	ctx := context.Background()

	trip := domain.TripSpec{TripID: "trip-1", City: "Lisbon", StartDate: "2026-09-01", EndDate: "2026-09-01"}
	assert.NoError(t, o.Store.CreateTrip(ctx, trip))

	first, err := o.Plan(ctx, "trip-1")
	assert.NoError(t, err)
	second, err := o.Plan(ctx, "trip-1")
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	assert.False(t, first.CreatedAt.IsZero(), "plan() must stamp CreatedAt")
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "repeated plan() calls must return the same created_at")
	assert.Equal(t, 1, llm.calls, "second plan() call must not re-invoke the LLM")
}

func TestPlan_UnknownTripReturnsTripNotFound(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	_, err := o.Plan(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrTripNotFound)
}

func TestGeneratePOIPlan_RequiresMacroPlan(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	assert.NoError(t, o.Store.CreateTrip(ctx, domain.TripSpec{TripID: "trip-1"}))

	_, err := o.GeneratePOIPlan(ctx, "trip-1")
	assert.ErrorIs(t, err, domain.ErrPOIPlanRequiresMacroPlan)
}

func TestGenerateMacroPlan_Standalone(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	trip := domain.TripSpec{TripID: "trip-1", StartDate: "2026-09-01", EndDate: "2026-09-01"}
	assert.NoError(t, o.Store.CreateTrip(ctx, trip))

	skeleton, err := o.GenerateMacroPlan(ctx, "trip-1")
	assert.NoError(t, err)
	assert.Len(t, skeleton, 1)
}

func TestGetCritique_EmptyListBeforePlanning(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	assert.NoError(t, o.Store.CreateTrip(ctx, domain.TripSpec{TripID: "trip-1"}))

	issues, err := o.GetCritique(ctx, "trip-1")
	assert.NoError(t, err)
	assert.Empty(t, issues)
}
