// Package poiplanner implements the POI Planner (spec.md §4.4): it walks a
// macro-plan skeleton and fetches ranked POI candidates for every eligible
// block, deduplicating greedily across the whole trip.
package poiplanner

import (
	"context"
	"sort"
	"sync"

	"github.com/va6996/tripplanner/domain"
	"github.com/va6996/tripplanner/poi"
)

const candidateLimit = 10
const maxConcurrency = 8

var eligibleBlockTypes = map[domain.BlockType]bool{
	domain.BlockMeal:      true,
	domain.BlockActivity:  true,
	domain.BlockNightlife: true,
}

// Planner generates a POIPlan from a trip spec and its macro-plan skeleton.
type Planner struct {
	Provider poi.Provider
}

func NewPlanner(provider poi.Provider) *Planner {
	return &Planner{Provider: provider}
}

type blockJob struct {
	dayNumber  int
	blockIndex int
	block      domain.SkeletonBlock
}

// Generate fetches candidates for every meal/activity/nightlife block,
// bounding outbound concurrency to maxConcurrency per spec.md §5, then
// applies greedy cross-trip deduplication.
func (p *Planner) Generate(ctx context.Context, trip domain.TripSpec, skeleton []domain.DaySkeleton) domain.POIPlan {
	var jobs []blockJob
	for _, day := range skeleton {
		for i, block := range day.Blocks {
			if !eligibleBlockTypes[block.BlockType] {
				continue
			}
			jobs = append(jobs, blockJob{dayNumber: day.DayNumber, blockIndex: i, block: block})
		}
	}

	results := make([]domain.POIBlockCandidates, len(jobs))
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for idx, job := range jobs {
		wg.Add(1)
		go func(idx int, job blockJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = p.fetchBlockCandidates(ctx, trip, job)
		}(idx, job)
	}
	wg.Wait()

	deduplicate(results)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DayNumber != results[j].DayNumber {
			return results[i].DayNumber < results[j].DayNumber
		}
		return results[i].BlockIndex < results[j].BlockIndex
	})

	return domain.POIPlan{Blocks: results}
}

func (p *Planner) fetchBlockCandidates(ctx context.Context, trip domain.TripSpec, job blockJob) domain.POIBlockCandidates {
	var center *domain.Coordinates
	if trip.HotelLocation != nil {
		center = trip.HotelLocation.Coordinates
	}

	candidates, err := p.Provider.Search(ctx, poi.Query{
		City:              trip.City,
		DesiredCategories: job.block.DesiredCategories,
		Budget:            trip.Budget,
		Limit:             candidateLimit,
		Center:            center,
	})
	if err != nil {
		candidates = nil // zero candidates is not an error (spec.md §4.4)
	}

	return domain.POIBlockCandidates{
		DayNumber:         job.dayNumber,
		BlockIndex:        job.blockIndex,
		BlockType:         job.block.BlockType,
		DesiredCategories: job.block.DesiredCategories,
		Candidates:        candidates,
	}
}

// deduplicate demotes a POI to the bottom of later blocks' candidate lists
// once it has been used as the top candidate of an earlier block, in
// (day_number, block_index) order, per spec.md §4.4.
func deduplicate(blocks []domain.POIBlockCandidates) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].DayNumber != blocks[j].DayNumber {
			return blocks[i].DayNumber < blocks[j].DayNumber
		}
		return blocks[i].BlockIndex < blocks[j].BlockIndex
	})

	used := make(map[string]bool)
	for i := range blocks {
		candidates := blocks[i].Candidates
		if len(candidates) == 0 {
			continue
		}

		var fresh, demoted []domain.POICandidate
		for _, c := range candidates {
			if used[c.POIID] {
				demoted = append(demoted, c)
			} else {
				fresh = append(fresh, c)
			}
		}
		blocks[i].Candidates = append(fresh, demoted...)

		if len(blocks[i].Candidates) > 0 {
			used[blocks[i].Candidates[0].POIID] = true
		}
	}
}
