// Package routeoptimizer implements the Route & Time Optimizer
// (spec.md §4.5): it binds POI candidates to skeleton blocks, computes
// travel times between consecutive blocks, and shifts block times forward
// when travel would otherwise overlap the previous block.
package routeoptimizer

import (
	"context"
	"time"

	"github.com/va6996/tripplanner/domain"
	"github.com/va6996/tripplanner/log"
	"github.com/va6996/tripplanner/travel"
)

const minBlockMinutes = 30
const overrunBuffer = 3 * time.Hour

// Optimizer binds POI candidates onto a skeleton and adjusts block times.
type Optimizer struct {
	TravelProvider travel.Provider
}

func NewOptimizer(provider travel.Provider) *Optimizer {
	return &Optimizer{TravelProvider: provider}
}

// Optimize combines the skeleton and POI plan into a final itinerary, one
// day at a time; days are optimized independently (spec.md §4.5).
func (o *Optimizer) Optimize(ctx context.Context, trip domain.TripSpec, skeleton []domain.DaySkeleton, plan domain.POIPlan) domain.Itinerary {
	candidatesByDayBlock := indexCandidates(plan)
	usedPOIs := make(map[string]bool)

	days := make([]domain.ItineraryDay, 0, len(skeleton))
	for _, daySkeleton := range skeleton {
		days = append(days, o.optimizeDay(ctx, trip, daySkeleton, candidatesByDayBlock, usedPOIs))
	}

	return domain.Itinerary{TripID: trip.TripID, Days: days}
}

type dayBlockKey struct {
	day, block int
}

func indexCandidates(plan domain.POIPlan) map[dayBlockKey][]domain.POICandidate {
	index := make(map[dayBlockKey][]domain.POICandidate, len(plan.Blocks))
	for _, b := range plan.Blocks {
		index[dayBlockKey{day: b.DayNumber, block: b.BlockIndex}] = b.Candidates
	}
	return index
}

func (o *Optimizer) optimizeDay(ctx context.Context, trip domain.TripSpec, daySkeleton domain.DaySkeleton, candidatesByDayBlock map[dayBlockKey][]domain.POICandidate, usedPOIs map[string]bool) domain.ItineraryDay {
	var prevLocation *domain.Coordinates
	if trip.HotelLocation != nil {
		prevLocation = trip.HotelLocation.Coordinates
	}
	var prevEndMinutes int
	first := true

	blocks := make([]domain.ItineraryBlock, 0, len(daySkeleton.Blocks))
	for _, skelBlock := range daySkeleton.Blocks {
		block := domain.ItineraryBlock{
			BlockType: skelBlock.BlockType,
			StartTime: skelBlock.StartTime,
			EndTime:   skelBlock.EndTime,
			Theme:     skelBlock.Theme,
		}

		if skelBlock.BlockType == domain.BlockRest || skelBlock.BlockType == domain.BlockTravel {
			block.Notes = skelBlock.Theme
			block.TravelTimeFromPrev = 0
			blocks = append(blocks, block)
			first = false
			if end, ok := parseMinutes(block.EndTime); ok {
				prevEndMinutes = end
			}
			continue
		}

		key := dayBlockKey{day: daySkeleton.DayNumber, block: len(blocks)}
		selected := selectCandidate(candidatesByDayBlock[key], usedPOIs)
		block.POI = selected

		if first {
			block.TravelTimeFromPrev = 0
		} else if selected != nil && selected.Coordinates != nil && prevLocation != nil {
			estimate, err := o.TravelProvider.Estimate(ctx, *prevLocation, *selected.Coordinates, domain.ModeDrive)
			if err != nil {
				log.WithField("error", err).Debug("travel-time estimate failed, treating as zero")
			} else {
				block.TravelTimeFromPrev = estimate.DurationMinutes
				block.TravelDistanceMeters = estimate.DistanceMeters
				block.TravelPolyline = estimate.Polyline
			}
		}

		adjustTime(&block, prevEndMinutes, trip.Routine.SleepTime, daySkeleton.DayNumber)

		blocks = append(blocks, block)
		first = false

		if end, ok := parseMinutes(block.EndTime); ok {
			prevEndMinutes = end
		}
		if selected != nil && selected.Coordinates != nil {
			prevLocation = selected.Coordinates
		}
	}

	return domain.ItineraryDay{DayNumber: daySkeleton.DayNumber, Date: daySkeleton.Date, Theme: daySkeleton.Theme, Blocks: blocks}
}

// selectCandidate picks the highest-rank unused candidate, or the top
// candidate if all are already used, or nil if the list is empty
// (spec.md §4.5 step 2). Candidates are assumed pre-sorted by rank_score.
func selectCandidate(candidates []domain.POICandidate, usedPOIs map[string]bool) *domain.POICandidate {
	if len(candidates) == 0 {
		return nil
	}

	for i := range candidates {
		if !usedPOIs[candidates[i].POIID] {
			usedPOIs[candidates[i].POIID] = true
			selected := candidates[i]
			return &selected
		}
	}

	selected := candidates[0]
	usedPOIs[selected.POIID] = true
	return &selected
}

// adjustTime shifts block forward if it would start before the previous
// block ends plus travel time, preserving duration, never shrinking below
// 30 minutes, and never overriding an overrun past sleep_time+3h (the
// critic flags that case instead; spec.md §4.5 step 4).
func adjustTime(block *domain.ItineraryBlock, prevEndMinutes int, sleepTime string, dayNumber int) {
	start, okStart := parseMinutes(block.StartTime)
	end, okEnd := parseMinutes(block.EndTime)
	if !okStart || !okEnd {
		return
	}

	earliestStart := prevEndMinutes + block.TravelTimeFromPrev
	if start >= earliestStart {
		return
	}

	duration := end - start
	if duration < minBlockMinutes {
		duration = minBlockMinutes
	}

	newStart := earliestStart
	newEnd := newStart + duration

	if sleepLimit, ok := parseMinutes(sleepTime); ok {
		overrunLimit := sleepLimit + int(overrunBuffer.Minutes())
		if newEnd > overrunLimit {
			log.WithField("day_number", dayNumber).WithField("end_minutes", newEnd).Debug("route optimizer shifted block past sleep_time+3h, leaving overrun for the critic to flag")
		}
	}

	block.StartTime = formatMinutes(newStart)
	block.EndTime = formatMinutes(newEnd)
}

func parseMinutes(s string) (int, bool) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func formatMinutes(total int) string {
	hours := (total / 60) % 24
	minutes := total % 60
	return time.Date(0, 1, 1, hours, minutes, 0, 0, time.UTC).Format("15:04:05")
}
