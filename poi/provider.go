// Package poi implements the POI Provider (spec.md §4.1): a Local indexed
// provider, an External places-service adapter, and a Composite provider
// that merges both tiers.
package poi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/va6996/tripplanner/domain"
	"github.com/va6996/tripplanner/geo"
	"github.com/va6996/tripplanner/log"
	"github.com/va6996/tripplanner/store"
)

// Query is a single search request against a POIProvider.
type Query struct {
	City              string
	DesiredCategories []string
	Budget            domain.Budget
	Limit             int
	Center            *domain.Coordinates
}

// Provider searches for ranked POI candidates.
type Provider interface {
	Search(ctx context.Context, q Query) ([]domain.POICandidate, error)
}

// Index is the backing store the Local provider queries. Seeding it from a
// real POI database is out of scope (spec.md §1); DefaultIndex below is a
// minimal in-memory implementation for tests and small deployments.
type Index interface {
	// ByCity returns every indexed POI whose city equals city.
	ByCity(city string) []IndexedPOI
}

// IndexedPOI is a POI as stored in the Local index, before rank_score is
// computed for a specific query.
type IndexedPOI struct {
	domain.POICandidate
	City string
	Tags []string // category ∪ secondary tags, used for intersection matching
}

// DefaultIndex is a simple case-folded map-backed Index.
type DefaultIndex struct {
	byCity map[string][]IndexedPOI
}

func NewDefaultIndex(pois []IndexedPOI) *DefaultIndex {
	idx := &DefaultIndex{byCity: make(map[string][]IndexedPOI)}
	for _, p := range pois {
		key := strings.ToLower(p.City)
		idx.byCity[key] = append(idx.byCity[key], p)
	}
	return idx
}

func (d *DefaultIndex) ByCity(city string) []IndexedPOI {
	return d.byCity[strings.ToLower(city)]
}

// LocalProvider matches POIs by city and category/tag intersection,
// ranking with the formula from spec.md §4.1:
//
//	rank_score = 2*(rating or 3.5) + 3*category_match_weight - 0.5*budget_mismatch
type LocalProvider struct {
	Index Index
}

func NewLocalProvider(index Index) *LocalProvider {
	return &LocalProvider{Index: index}
}

func (l *LocalProvider) Search(_ context.Context, q Query) ([]domain.POICandidate, error) {
	candidates := l.Index.ByCity(q.City)

	primaryCategory := ""
	if len(q.DesiredCategories) > 0 {
		primaryCategory = q.DesiredCategories[0]
	}
	wanted := make(map[string]bool, len(q.DesiredCategories))
	for _, c := range q.DesiredCategories {
		wanted[strings.ToLower(c)] = true
	}

	var matched []domain.POICandidate
	for _, c := range candidates {
		if !intersects(wanted, c.Tags) {
			continue
		}
		scored := c.POICandidate
		scored.RankScore = rankScore(c.POICandidate, primaryCategory, q.Budget)
		matched = append(matched, scored)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].RankScore > matched[j].RankScore
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	return matched, nil
}

func intersects(wanted map[string]bool, tags []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, t := range tags {
		if wanted[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

func rankScore(c domain.POICandidate, primaryCategory string, budget domain.Budget) float64 {
	rating := 3.5
	if c.Rating != nil {
		rating = *c.Rating
	}

	categoryMatchWeight := 0.5
	if strings.EqualFold(c.PrimaryCategory, primaryCategory) && primaryCategory != "" {
		categoryMatchWeight = 1.0
	}

	budgetMismatch := 0.0
	if c.PriceTier != nil {
		budgetMismatch = math.Abs(float64(*c.PriceTier) - float64(budgetTier(budget)))
	}

	return 2*rating + 3*categoryMatchWeight - 0.5*budgetMismatch
}

func budgetTier(b domain.Budget) int {
	switch b {
	case domain.BudgetLow:
		return 1
	case domain.BudgetHigh:
		return 3
	default:
		return 2
	}
}

// externalCacheTTL bounds how long a Nearby Search response is reused from
// provider_cache before the next identical query goes out to Maps again.
const externalCacheTTL = 30 * time.Minute

// ExternalProvider adapts a third-party places service (here, Google
// Places Nearby Search) into the same POICandidate schema. When DB is set
// it checks provider_cache before calling out and populates it afterward,
// per SPEC_FULL.md's provider response cache.
type ExternalProvider struct {
	Maps    *geo.Client
	Timeout time.Duration
	DB      *gorm.DB
}

func NewExternalProvider(maps *geo.Client, timeout time.Duration, db *gorm.DB) *ExternalProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExternalProvider{Maps: maps, Timeout: timeout, DB: db}
}

func (e *ExternalProvider) Search(ctx context.Context, q Query) ([]domain.POICandidate, error) {
	if e.Maps == nil || q.Center == nil || len(q.DesiredCategories) == 0 {
		return nil, nil
	}

	key := externalCacheKey(q)
	if e.DB != nil {
		if entry, err := store.GetCacheEntry(e.DB, key); err == nil {
			var cached []domain.POICandidate
			if err := json.Unmarshal(entry.Value, &cached); err == nil {
				return cached, nil
			}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	results, err := e.Maps.NearbySearch(callCtx, *q.Center, q.DesiredCategories[0], q.Limit)
	if err != nil {
		return nil, err
	}

	if e.DB != nil {
		if payload, err := json.Marshal(results); err == nil {
			if err := store.SetCacheEntry(e.DB, key, payload, externalCacheTTL); err != nil {
				log.WithField("error", err).Debug("failed to populate poi provider cache")
			}
		}
	}

	return results, nil
}

func externalCacheKey(q Query) string {
	center := "-"
	if q.Center != nil {
		center = fmt.Sprintf("%.4f,%.4f", q.Center.Lat, q.Center.Lon)
	}
	return fmt.Sprintf("poi:%s:%s:%s:%d:%s", strings.ToLower(q.City), strings.Join(q.DesiredCategories, ","), q.Budget, q.Limit, center)
}

// CompositeProvider runs Local first; if fewer than ceil(limit/2) results
// come back it additionally queries External, merges by POI id (Local
// wins on duplicates), re-sorts by rank_score, and returns the top limit.
// Failures in External are swallowed; failure in Local surfaces as an
// error (spec.md §4.1).
type CompositeProvider struct {
	Local    Provider
	External Provider
}

func NewCompositeProvider(local, external Provider) *CompositeProvider {
	return &CompositeProvider{Local: local, External: external}
}

func (c *CompositeProvider) Search(ctx context.Context, q Query) ([]domain.POICandidate, error) {
	localResults, err := c.Local.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	threshold := (q.Limit + 1) / 2 // ceil(limit/2)
	if len(localResults) >= threshold || c.External == nil {
		return topN(localResults, q.Limit), nil
	}

	externalResults, err := c.External.Search(ctx, q)
	if err != nil {
		log.WithField("error", err).Debug("external poi provider failed, using local results only")
		return topN(localResults, q.Limit), nil
	}

	merged := mergeByID(localResults, externalResults)
	return topN(merged, q.Limit), nil
}

func mergeByID(local, external []domain.POICandidate) []domain.POICandidate {
	byID := make(map[string]domain.POICandidate, len(local)+len(external))
	order := make([]string, 0, len(local)+len(external))

	for _, c := range local {
		byID[c.POIID] = c
		order = append(order, c.POIID)
	}
	for _, c := range external {
		if _, exists := byID[c.POIID]; exists {
			continue // local wins on duplicates
		}
		byID[c.POIID] = c
		order = append(order, c.POIID)
	}

	merged := make([]domain.POICandidate, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RankScore > merged[j].RankScore
	})

	return merged
}

func topN(candidates []domain.POICandidate, limit int) []domain.POICandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
