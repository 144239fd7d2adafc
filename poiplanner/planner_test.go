package poiplanner

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/va6996/tripplanner/domain"
	"github.com/va6996/tripplanner/poi"
)

type fakeProvider struct {
	byCategory map[string][]domain.POICandidate
}

func (f *fakeProvider) Search(_ context.Context, q poi.Query) ([]domain.POICandidate, error) {
	var key string
	if len(q.DesiredCategories) > 0 {
		key = q.DesiredCategories[0]
	}
	return f.byCategory[key], nil
}

func twoDaySkeleton() []domain.DaySkeleton {
	block := func(bt domain.BlockType, cat string) domain.SkeletonBlock {
		return domain.SkeletonBlock{BlockType: bt, DesiredCategories: []string{cat}}
	}
	return []domain.DaySkeleton{
		{DayNumber: 1, Blocks: []domain.SkeletonBlock{
			block(domain.BlockMeal, "restaurant"),
			{BlockType: domain.BlockRest},
			block(domain.BlockActivity, "museum"),
		}},
		{DayNumber: 2, Blocks: []domain.SkeletonBlock{
			block(domain.BlockActivity, "museum"),
		}},
	}
}

func TestGenerate_OmitsRestAndTravelBlocks(t *testing.T) {
	provider := &fakeProvider{byCategory: map[string][]domain.POICandidate{
		"restaurant": {{POIID: "r1", RankScore: 5}},
		"museum":     {{POIID: "m1", RankScore: 9}, {POIID: "m2", RankScore: 8}},
	}}
	planner := NewPlanner(provider)

	plan := planner.Generate(context.Background(), domain.TripSpec{City: "Paris"}, twoDaySkeleton())

	assert.Len(t, plan.Blocks, 3, "rest block must be omitted entirely")
	for _, b := range plan.Blocks {
		assert.NotEqual(t, domain.BlockRest, b.BlockType)
	}
}

func TestGenerate_BlockIndexAlignsWithSkeletonPosition(t *testing.T) {
	provider := &fakeProvider{byCategory: map[string][]domain.POICandidate{
		"restaurant": {{POIID: "r1"}},
		"museum":     {{POIID: "m1"}},
	}}
	planner := NewPlanner(provider)

	plan := planner.Generate(context.Background(), domain.TripSpec{City: "Paris"}, twoDaySkeleton())

	for _, b := range plan.Blocks {
		if b.DayNumber == 1 && b.BlockType == domain.BlockActivity {
			assert.Equal(t, 2, b.BlockIndex, "activity block is the 3rd skeleton entry (index 2), rest at index 1 counts")
		}
	}
}

func TestGenerate_DeduplicatesGreedilyAcrossTrip(t *testing.T) {
	provider := &fakeProvider{byCategory: map[string][]domain.POICandidate{
		"museum": {{POIID: "m1", RankScore: 9}, {POIID: "m2", RankScore: 8}},
	}}
	planner := NewPlanner(provider)

	plan := planner.Generate(context.Background(), domain.TripSpec{City: "Paris"}, twoDaySkeleton())

	var day1Top, day2Top string
	for _, b := range plan.Blocks {
		if len(b.Candidates) == 0 {
			continue
		}
		if b.DayNumber == 1 {
			day1Top = b.Candidates[0].POIID
		}
		if b.DayNumber == 2 {
			day2Top = b.Candidates[0].POIID
		}
	}

	assert.Equal(t, "m1", day1Top)
	assert.Equal(t, "m2", day2Top, "m1 should be demoted on day 2 since it was already used as day 1's top pick")
}

func TestGenerate_EmptyCandidatesIsNotAnError(t *testing.T) {
	provider := &fakeProvider{byCategory: map[string][]domain.POICandidate{}}
	planner := NewPlanner(provider)

	plan := planner.Generate(context.Background(), domain.TripSpec{City: "Nowhere"}, twoDaySkeleton())

	for _, b := range plan.Blocks {
		assert.Empty(t, b.Candidates)
	}
}

type erroringProvider struct{}

func (erroringProvider) Search(context.Context, poi.Query) ([]domain.POICandidate, error) {
	return nil, fmt.Errorf("provider unavailable")
}

func TestGenerate_ProviderErrorYieldsEmptyNotPanic(t *testing.T) {
	planner := NewPlanner(erroringProvider{})

	assert.NotPanics(t, func() {
		plan := planner.Generate(context.Background(), domain.TripSpec{City: "Paris"}, twoDaySkeleton())
		for _, b := range plan.Blocks {
			assert.Empty(t, b.Candidates)
		}
	})
}
