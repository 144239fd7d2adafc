package poi

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/va6996/tripplanner/domain"
	"github.com/va6996/tripplanner/geo"
	"github.com/va6996/tripplanner/store"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestRankScore_HigherRatingScoresHigher(t *testing.T) {
	low := domain.POICandidate{PrimaryCategory: "museum", Rating: floatPtr(3.0)}
	high := domain.POICandidate{PrimaryCategory: "museum", Rating: floatPtr(4.5)}

	assert.Greater(t, rankScore(high, "museum", domain.BudgetMedium), rankScore(low, "museum", domain.BudgetMedium))
}

func TestRankScore_CategoryMatchAddsWeight(t *testing.T) {
	c := domain.POICandidate{PrimaryCategory: "museum", Rating: floatPtr(4.0)}

	matched := rankScore(c, "museum", domain.BudgetMedium)
	unmatched := rankScore(c, "restaurant", domain.BudgetMedium)

	assert.Greater(t, matched, unmatched)
	assert.InDelta(t, matched-unmatched, 1.5, 0.001) // 3*(1.0-0.5)
}

func TestRankScore_BudgetMismatchPenalizes(t *testing.T) {
	c := domain.POICandidate{PrimaryCategory: "museum", Rating: floatPtr(4.0), PriceTier: intPtr(3)}

	matchedBudget := rankScore(c, "museum", domain.BudgetHigh)
	mismatchedBudget := rankScore(c, "museum", domain.BudgetLow)

	assert.Greater(t, matchedBudget, mismatchedBudget)
	assert.InDelta(t, matchedBudget-mismatchedBudget, 1.0, 0.001) // 0.5*|3-1|
}

func TestRankScore_MissingRatingDefaultsToThreePointFive(t *testing.T) {
	c := domain.POICandidate{PrimaryCategory: "museum"}
	assert.InDelta(t, rankScore(c, "museum", domain.BudgetMedium), 2*3.5+3*1.0, 0.001)
}

type fakeIndex struct {
	pois []IndexedPOI
}

func (f fakeIndex) ByCity(city string) []IndexedPOI {
	var matched []IndexedPOI
	for _, p := range f.pois {
		if p.City == city {
			matched = append(matched, p)
		}
	}
	return matched
}

func TestLocalProvider_FiltersByCategoryIntersection(t *testing.T) {
	index := fakeIndex{pois: []IndexedPOI{
		{POICandidate: domain.POICandidate{POIID: "museum-1", PrimaryCategory: "museum"}, City: "Lisbon", Tags: []string{"museum"}},
		{POICandidate: domain.POICandidate{POIID: "cafe-1", PrimaryCategory: "cafe"}, City: "Lisbon", Tags: []string{"cafe", "food"}},
	}}
	p := NewLocalProvider(index)

	results, err := p.Search(context.Background(), Query{City: "Lisbon", DesiredCategories: []string{"museum"}})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "museum-1", results[0].POIID)
}

func TestLocalProvider_SortsByRankScoreDescending(t *testing.T) {
	index := fakeIndex{pois: []IndexedPOI{
		{POICandidate: domain.POICandidate{POIID: "low", PrimaryCategory: "museum", Rating: floatPtr(2.0)}, City: "Lisbon", Tags: []string{"museum"}},
		{POICandidate: domain.POICandidate{POIID: "high", PrimaryCategory: "museum", Rating: floatPtr(4.8)}, City: "Lisbon", Tags: []string{"museum"}},
	}}
	p := NewLocalProvider(index)

	results, err := p.Search(context.Background(), Query{City: "Lisbon", DesiredCategories: []string{"museum"}})
	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "high", results[0].POIID)
	assert.Equal(t, "low", results[1].POIID)
}

func TestLocalProvider_RespectsLimit(t *testing.T) {
	index := fakeIndex{pois: []IndexedPOI{
		{POICandidate: domain.POICandidate{POIID: "a", PrimaryCategory: "museum"}, City: "Lisbon", Tags: []string{"museum"}},
		{POICandidate: domain.POICandidate{POIID: "b", PrimaryCategory: "museum"}, City: "Lisbon", Tags: []string{"museum"}},
		{POICandidate: domain.POICandidate{POIID: "c", PrimaryCategory: "museum"}, City: "Lisbon", Tags: []string{"museum"}},
	}}
	p := NewLocalProvider(index)

	results, err := p.Search(context.Background(), Query{City: "Lisbon", DesiredCategories: []string{"museum"}, Limit: 2})
	assert.NoError(t, err)
	assert.Len(t, results, 2)
}

type stubProvider struct {
	results []domain.POICandidate
	err     error
	calls   int
}

func (s *stubProvider) Search(_ context.Context, _ Query) ([]domain.POICandidate, error) {
	s.calls++
	return s.results, s.err
}

func TestCompositeProvider_SkipsExternalWhenLocalMeetsThreshold(t *testing.T) {
	local := &stubProvider{results: []domain.POICandidate{
		{POIID: "a", RankScore: 5}, {POIID: "b", RankScore: 4},
	}}
	external := &stubProvider{results: []domain.POICandidate{{POIID: "c", RankScore: 9}}}
	c := NewCompositeProvider(local, external)

	results, err := c.Search(context.Background(), Query{Limit: 4}) // threshold = ceil(4/2) = 2
	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 0, external.calls)
}

func TestCompositeProvider_QueriesExternalWhenLocalBelowThreshold(t *testing.T) {
	local := &stubProvider{results: []domain.POICandidate{{POIID: "a", RankScore: 5}}}
	external := &stubProvider{results: []domain.POICandidate{{POIID: "b", RankScore: 9}}}
	c := NewCompositeProvider(local, external)

	results, err := c.Search(context.Background(), Query{Limit: 4}) // threshold = 2, local has 1
	assert.NoError(t, err)
	assert.Equal(t, 1, external.calls)
	assert.Len(t, results, 2)
	assert.Equal(t, "b", results[0].POIID) // higher rank_score sorts first
}

func TestCompositeProvider_ExternalFailureFallsBackToLocalOnly(t *testing.T) {
	local := &stubProvider{results: []domain.POICandidate{{POIID: "a", RankScore: 5}}}
	external := &stubProvider{err: errors.New("external unavailable")}
	c := NewCompositeProvider(local, external)

	results, err := c.Search(context.Background(), Query{Limit: 4})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "a", results[0].POIID)
}

func TestCompositeProvider_LocalFailureSurfacesAsError(t *testing.T) {
	local := &stubProvider{err: errors.New("local index unavailable")}
	external := &stubProvider{}
	c := NewCompositeProvider(local, external)

	_, err := c.Search(context.Background(), Query{Limit: 4})
	assert.Error(t, err)
}

func TestMergeByID_LocalWinsOnDuplicate(t *testing.T) {
	local := []domain.POICandidate{{POIID: "dup", Name: "local-name", RankScore: 3}}
	external := []domain.POICandidate{{POIID: "dup", Name: "external-name", RankScore: 9}}

	merged := mergeByID(local, external)

	assert.Len(t, merged, 1)
	assert.Equal(t, "local-name", merged[0].Name)
}

func TestMergeByID_SortsByRankScoreDescending(t *testing.T) {
	local := []domain.POICandidate{{POIID: "a", RankScore: 1}}
	external := []domain.POICandidate{{POIID: "b", RankScore: 9}}

	merged := mergeByID(local, external)

	assert.Equal(t, "b", merged[0].POIID)
	assert.Equal(t, "a", merged[1].POIID)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, store.New(db).AutoMigrate())
	return db
}

func TestExternalProvider_ServesFromCacheWithoutCallingMaps(t *testing.T) {
	db := setupTestDB(t)
	center := domain.Coordinates{Lat: 38.70, Lon: -9.15}
	q := Query{City: "Lisbon", DesiredCategories: []string{"museum"}, Limit: 5, Center: &center}

	cached := []domain.POICandidate{{POIID: "museum-1", Name: "National Museum"}}
	payload, err := json.Marshal(cached)
	assert.NoError(t, err)
	assert.NoError(t, store.SetCacheEntry(db, externalCacheKey(q), payload, externalCacheTTL))

	// MapsClient is nil, so a cache miss here would reach NearbySearch and
	// fail with "maps client not initialized".
	provider := NewExternalProvider(&geo.Client{}, 0, db)

	results, err := provider.Search(context.Background(), q)
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "museum-1", results[0].POIID)
}

func TestTopN_TruncatesToLimit(t *testing.T) {
	candidates := []domain.POICandidate{{POIID: "a"}, {POIID: "b"}, {POIID: "c"}}
	assert.Len(t, topN(candidates, 2), 2)
	assert.Len(t, topN(candidates, 0), 3)
	assert.Len(t, topN(candidates, 10), 3)
}
