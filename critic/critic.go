// Package critic implements the Trip Critic (spec.md §4.6): a deterministic,
// side-effect-free pass over a finished Itinerary that flags structural
// issues without ever mutating the itinerary or failing.
package critic

import (
	"fmt"
	"sort"
	"time"

	"github.com/va6996/tripplanner/core"
	"github.com/va6996/tripplanner/domain"
)

var paceThreshold = map[domain.Pace]time.Duration{
	domain.PaceSlow:   7 * time.Hour,
	domain.PaceMedium: 9 * time.Hour,
	domain.PaceFast:   12 * time.Hour,
}

const longTravelMinutes = 45
const lateNightlifeBuffer = 3 * time.Hour

// Critique runs every rule over the itinerary and returns all findings,
// stably ordered by (day_number, block_index, code). It never returns an
// error: a block with unparsable times simply skips the checks that need
// a valid duration rather than aborting the whole pass.
func Critique(trip domain.TripSpec, itinerary domain.Itinerary) []domain.CritiqueIssue {
	var issues []domain.CritiqueIssue

	dayTooBusy := make(map[int]bool, len(itinerary.Days))

	for _, day := range itinerary.Days {
		issues = append(issues, checkMealWindows(trip, day)...)
		issues = append(issues, checkTimeRangesAndOverlaps(day)...)
		issues = append(issues, checkLongTravel(day)...)
		issues = append(issues, checkLateNightlife(trip, day)...)

		busy, issue := checkDayTooBusy(trip, day)
		dayTooBusy[day.DayNumber] = busy
		if issue != nil {
			issues = append(issues, *issue)
		}
	}

	issues = append(issues, checkConsecutiveIntenseDays(itinerary, dayTooBusy)...)

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].DayNumber != issues[j].DayNumber {
			return issues[i].DayNumber < issues[j].DayNumber
		}
		if issues[i].BlockIndex != issues[j].BlockIndex {
			return issues[i].BlockIndex < issues[j].BlockIndex
		}
		return issues[i].Code < issues[j].Code
	})

	return issues
}

func checkDayTooBusy(trip domain.TripSpec, day domain.ItineraryDay) (bool, *domain.CritiqueIssue) {
	threshold, ok := paceThreshold[trip.Pace]
	if !ok {
		threshold = paceThreshold[domain.PaceMedium]
	}

	var total time.Duration
	for _, block := range day.Blocks {
		if block.BlockType == domain.BlockRest || block.BlockType == domain.BlockTravel {
			continue
		}
		d, ok := blockDuration(block)
		if !ok {
			continue
		}
		total += d
	}

	if total <= threshold {
		return false, nil
	}

	return true, &domain.CritiqueIssue{
		Code:      domain.CodeDayTooBusy,
		Severity:  domain.SeverityWarning,
		DayNumber: day.DayNumber,
		Message:   fmt.Sprintf("day %d's non-rest blocks total %s, exceeding the %s pace threshold of %s", day.DayNumber, total, trip.Pace, threshold),
		Details:   map[string]interface{}{"total_minutes": int(total.Minutes()), "threshold_minutes": int(threshold.Minutes())},
	}
}

func checkMealWindows(trip domain.TripSpec, day domain.ItineraryDay) []domain.CritiqueIssue {
	var issues []domain.CritiqueIssue

	checks := []struct {
		window   domain.TimeWindow
		code     domain.CritiqueCode
		severity domain.Severity
		name     string
	}{
		{trip.Routine.Breakfast, domain.CodeMissingBreakfast, domain.SeverityInfo, "breakfast"},
		{trip.Routine.Lunch, domain.CodeMissingLunch, domain.SeverityWarning, "lunch"},
		{trip.Routine.Dinner, domain.CodeMissingDinner, domain.SeverityWarning, "dinner"},
	}

	for _, c := range checks {
		if c.window.Start == "" && c.window.End == "" {
			continue
		}
		if hasMealOverlapping(day, c.window) {
			continue
		}
		issues = append(issues, domain.CritiqueIssue{
			Code:      c.code,
			Severity:  c.severity,
			DayNumber: day.DayNumber,
			Message:   fmt.Sprintf("no meal block overlaps the %s window (%s-%s) on day %d", c.name, c.window.Start, c.window.End, day.DayNumber),
			Details:   map[string]interface{}{"window_start": c.window.Start, "window_end": c.window.End},
		})
	}

	return issues
}

func hasMealOverlapping(day domain.ItineraryDay, window domain.TimeWindow) bool {
	ws, ok1 := parseTime(window.Start)
	we, ok2 := parseTime(window.End)
	if !ok1 || !ok2 {
		return true // can't evaluate, don't false-positive
	}

	for _, block := range day.Blocks {
		if block.BlockType != domain.BlockMeal {
			continue
		}
		bs, ok1 := parseTime(block.StartTime)
		be, ok2 := parseTime(block.EndTime)
		if !ok1 || !ok2 {
			continue
		}
		if bs < we && ws < be {
			return true
		}
	}
	return false
}

func checkTimeRangesAndOverlaps(day domain.ItineraryDay) []domain.CritiqueIssue {
	var issues []domain.CritiqueIssue

	type interval struct {
		start, end int
		blockType  domain.BlockType
		ok         bool
	}
	intervals := make(map[int]interval, len(day.Blocks))

	for i, block := range day.Blocks {
		start, okS := parseTime(block.StartTime)
		end, okE := parseTime(block.EndTime)
		if !okS || !okE {
			continue
		}

		if block.BlockType != domain.BlockNightlife {
			if end <= start {
				issues = append(issues, domain.CritiqueIssue{
					Code: domain.CodeInvalidTimeRange, Severity: domain.SeverityError,
					DayNumber: day.DayNumber, BlockIndex: i,
					Message: fmt.Sprintf("block %d on day %d has end_time <= start_time", i, day.DayNumber),
					Details: map[string]interface{}{"start_time": block.StartTime, "end_time": block.EndTime},
				})
			}
		}
		if block.BlockType == domain.BlockMeal && end > start && time.Duration(end-start)*time.Minute > 6*time.Hour {
			issues = append(issues, domain.CritiqueIssue{
				Code: domain.CodeInvalidTimeRange, Severity: domain.SeverityError,
				DayNumber: day.DayNumber, BlockIndex: i,
				Message: fmt.Sprintf("meal block %d on day %d exceeds 6h", i, day.DayNumber),
				Details: map[string]interface{}{"start_time": block.StartTime, "end_time": block.EndTime},
			})
		}

		effectiveEnd := end
		if block.BlockType == domain.BlockNightlife && end <= start {
			effectiveEnd = end + 24*60 // wrap past midnight
		}
		intervals[i] = interval{start: start, end: effectiveEnd, blockType: block.BlockType, ok: true}
	}

	// A day's blocks form a chain once ordered by start_time: if a block
	// overlaps any later block it necessarily overlaps the one immediately
	// after it in that chain, so walking the linearized day's edges is
	// enough to catch every overlap without an all-pairs scan.
	linear, graph := core.LinearizeDay(day)
	for _, edge := range graph.Edges {
		from := core.GetNodeByID(graph, edge.FromID)
		to := core.GetNodeByID(graph, edge.ToID)
		if from == nil || to == nil {
			continue
		}
		fromIdx, toIdx := nodeIndex(linear, from.ID), nodeIndex(linear, to.ID)
		a, okA := intervals[fromIdx]
		b, okB := intervals[toIdx]
		if !okA || !okB || !a.ok || !b.ok {
			continue
		}
		if a.start < b.end && b.start < a.end {
			issues = append(issues, domain.CritiqueIssue{
				Code: domain.CodeBlockOverlap, Severity: domain.SeverityError,
				DayNumber: day.DayNumber, BlockIndex: toIdx,
				Message: fmt.Sprintf("block %d overlaps block %d on day %d", toIdx, fromIdx, day.DayNumber),
				Details: map[string]interface{}{"other_block_index": fromIdx},
			})
		}
	}

	return issues
}

func nodeIndex(blocks []core.LinearBlock, nodeID string) int {
	for _, b := range blocks {
		if b.NodeID == nodeID {
			return b.Index
		}
	}
	return -1
}

func checkLongTravel(day domain.ItineraryDay) []domain.CritiqueIssue {
	var issues []domain.CritiqueIssue
	for i, block := range day.Blocks {
		if block.TravelTimeFromPrev > longTravelMinutes {
			issues = append(issues, domain.CritiqueIssue{
				Code: domain.CodeLongTravel, Severity: domain.SeverityWarning,
				DayNumber: day.DayNumber, BlockIndex: i,
				Message: fmt.Sprintf("travel time of %d minutes into block %d on day %d exceeds %d minutes", block.TravelTimeFromPrev, i, day.DayNumber, longTravelMinutes),
				Details: map[string]interface{}{"travel_time_from_prev": block.TravelTimeFromPrev},
			})
		}
	}
	return issues
}

func checkLateNightlife(trip domain.TripSpec, day domain.ItineraryDay) []domain.CritiqueIssue {
	sleepMinutes, ok := parseTime(trip.Routine.SleepTime)
	if !ok {
		return nil
	}
	threshold := sleepMinutes + int(lateNightlifeBuffer.Minutes())

	var issues []domain.CritiqueIssue
	for i, block := range day.Blocks {
		if block.BlockType != domain.BlockNightlife {
			continue
		}
		end, ok := parseTime(block.EndTime)
		if !ok {
			continue
		}
		effectiveEnd := end
		if end < sleepMinutes {
			effectiveEnd = end + 24*60 // wrapped past midnight
		}
		if effectiveEnd > threshold {
			issues = append(issues, domain.CritiqueIssue{
				Code: domain.CodeLateNightlife, Severity: domain.SeverityInfo,
				DayNumber: day.DayNumber, BlockIndex: i,
				Message: fmt.Sprintf("nightlife block %d on day %d ends after sleep_time+3h", i, day.DayNumber),
				Details: map[string]interface{}{"end_time": block.EndTime, "sleep_time": trip.Routine.SleepTime},
			})
		}
	}
	return issues
}

func checkConsecutiveIntenseDays(itinerary domain.Itinerary, dayTooBusy map[int]bool) []domain.CritiqueIssue {
	var issues []domain.CritiqueIssue

	sorted := make([]domain.ItineraryDay, len(itinerary.Days))
	copy(sorted, itinerary.Days)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DayNumber < sorted[j].DayNumber })

	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1].DayNumber, sorted[i].DayNumber
		if curr != prev+1 {
			continue
		}
		if dayTooBusy[prev] && dayTooBusy[curr] {
			issues = append(issues, domain.CritiqueIssue{
				Code: domain.CodeConsecutiveIntenseDays, Severity: domain.SeverityWarning,
				DayNumber: curr,
				Message:   fmt.Sprintf("days %d and %d are both flagged DAY_TOO_BUSY", prev, curr),
				Details:   map[string]interface{}{"previous_day": prev},
			})
		}
	}

	return issues
}

func blockDuration(block domain.ItineraryBlock) (time.Duration, bool) {
	start, okS := parseTime(block.StartTime)
	end, okE := parseTime(block.EndTime)
	if !okS || !okE || end <= start {
		return 0, false
	}
	return time.Duration(end-start) * time.Minute, true
}

// parseTime returns minutes-since-midnight for an HH:MM:SS string.
func parseTime(s string) (int, bool) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
