// Package macroplanner implements the Macro Planner (spec.md §4.0/§4.3):
// it prompts an LLMClient for a day-by-day trip skeleton and normalizes
// the result into domain.DaySkeleton values.
package macroplanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/va6996/tripplanner/config"
	"github.com/va6996/tripplanner/domain"
	"github.com/va6996/tripplanner/llm"
	"github.com/va6996/tripplanner/log"
)

const systemPrompt = `You are an expert travel planner. Your job is to create a high-level skeleton for a multi-day trip.

Given trip details (dates, city, preferences, daily routine), you must:
1. Split the trip into days
2. For each day, assign an overall theme
3. Create time blocks for each day with:
   - Type (meal, activity, nightlife, rest, travel)
   - Time windows respecting the user's daily routine
   - Desired categories for POI selection later

CRITICAL: You MUST respond with valid JSON only, matching this exact structure:
{
  "days": [
    {
      "day_number": 1,
      "date": "YYYY-MM-DD",
      "theme": "Day theme description",
      "blocks": [
        {
          "block_type": "meal|activity|nightlife|rest|travel",
          "start_time": "HH:MM:SS",
          "end_time": "HH:MM:SS",
          "theme": "Block theme",
          "desired_categories": ["category1", "category2"]
        }
      ]
    }
  ]
}

Guidelines:
- Respect wake/sleep times and meal windows from daily routine
- Match pace level (slow=fewer activities, fast=packed schedule)
- Budget affects venue types (low=casual, high=fine dining)
- Add nightlife blocks only if relevant to interests
- Include rest blocks for slow/medium pace
- Each day should have 3 meals + 2-4 activity blocks

CRITICAL - Interest Categories (STRICT RULES):
- YOU MUST use the user's interests to populate desired_categories for ALL activity blocks
- The FIRST category in desired_categories MUST be the PRIMARY category matching the interest
- Map interests to specific POI types:
  * "gastronomy" -> ["restaurant", "cafe", "food"]
  * "museums" -> ["museum", "art_gallery", "attraction"]
  * "modern art" -> ["art_gallery", "museum", "attraction"]
  * "nightlife" -> ["bar", "nightclub", "nightlife"]
  * "views" -> ["viewpoint", "attraction", "park"]
  * "architecture" -> ["attraction", "landmark", "viewpoint"] (NEVER include "museum")
  * "shopping" -> ["shopping", "market", "boutique"]
  * "nature" -> ["park", "garden", "nature"]
  * "history" (without museums) -> ["landmark", "monument", "attraction"] (NEVER include "museum")
  * "beach and water" -> ["beach", "waterfront", "lake"]

CRITICAL DIFFERENTIATION:
- "museums" interest -> USE "museum" as FIRST category
- "architecture" interest -> USE "attraction" or "landmark" as FIRST category, NEVER "museum"
- "views" interest -> USE "viewpoint" or "attraction" as FIRST category, NEVER "museum"
- If interests include BOTH "museums" and "architecture", alternate days between museum-focused and architecture-focused

STRICT EXCLUSION RULES:
- NEVER include "museum" in desired_categories if interests do NOT explicitly mention: "museums", "art", "history", "modern art"
- NEVER include "shopping" in desired_categories if interests do NOT explicitly mention: "shopping"
- NEVER include "nightlife" or "bar" in desired_categories if interests do NOT explicitly mention: "nightlife", "bars", "clubs"

- For meal blocks, use ["restaurant", "cafe", "local cuisine"]
- Each activity block MUST have 2-3 categories, with the PRIMARY interest category FIRST
- DO NOT use generic categories like "culture", "sightseeing"
- NO explanations, NO markdown, ONLY valid JSON`

// Planner generates day skeletons for a trip via an LLMClient.
type Planner struct {
	LLM    llm.Client
	Config config.PlannerConfig
}

func NewPlanner(client llm.Client, cfg config.PlannerConfig) *Planner {
	return &Planner{LLM: client, Config: cfg}
}

// Generate produces the macro plan for trip, making at most
// Config.MaxRetries attempts in all (at least one), with the larger token
// budget for trips longer than 3 days. Every failure (LLM error,
// unparseable response, empty day list) is retried the same way.
func (p *Planner) Generate(ctx context.Context, trip domain.TripSpec) ([]domain.DaySkeleton, error) {
	userPrompt := buildPlanningPrompt(buildTripContext(trip))

	tokenLimit := p.Config.MaxTokens
	if trip.NumDays() > 3 {
		tokenLimit = p.Config.MaxTokensOnRetry
	}

	maxRetries := p.Config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		response, err := p.LLM.GenerateStructured(ctx, systemPrompt, userPrompt, tokenLimit)
		if err != nil {
			lastErr = err
			log.WithField("error", err).WithField("attempt", attempt+1).Debug("macro planner LLM attempt failed, retrying")
			continue
		}

		skeletons, err := parseSkeletonResponse(response)
		if err != nil {
			lastErr = err
			log.WithField("error", err).WithField("attempt", attempt+1).Debug("macro planner response parse failed, retrying")
			continue
		}
		if len(skeletons) == 0 {
			lastErr = fmt.Errorf("llm returned empty skeleton list")
			continue
		}

		return skeletons, nil
	}

	return nil, domain.NewMacroPlanGenerationFailed(lastErr)
}

func buildPlanningPrompt(tripContext string) string {
	return fmt.Sprintf("%s\n\nGenerate a complete day-by-day skeleton for this trip.\nRespond with JSON only.", tripContext)
}

func buildTripContext(trip domain.TripSpec) string {
	interests := "general sightseeing"
	if len(trip.Interests) > 0 {
		interests = strings.Join(trip.Interests, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Trip Details:\n")
	fmt.Fprintf(&sb, "- City: %s\n", trip.City)
	fmt.Fprintf(&sb, "- Dates: %s to %s (%d days)\n", trip.StartDate, trip.EndDate, trip.NumDays())
	fmt.Fprintf(&sb, "- Travelers: %d\n", trip.Travelers)
	fmt.Fprintf(&sb, "- Pace: %s (slow=relaxed, medium=balanced, fast=packed)\n", trip.Pace)
	fmt.Fprintf(&sb, "- Budget: %s\n", trip.Budget)
	fmt.Fprintf(&sb, "- Interests: %s\n\n", interests)
	fmt.Fprintf(&sb, "Daily Routine:\n")
	fmt.Fprintf(&sb, "- Wake time: %s\n", trip.Routine.WakeTime)
	fmt.Fprintf(&sb, "- Sleep time: %s\n", trip.Routine.SleepTime)
	fmt.Fprintf(&sb, "- Breakfast: %s - %s\n", trip.Routine.Breakfast.Start, trip.Routine.Breakfast.End)
	fmt.Fprintf(&sb, "- Lunch: %s - %s\n", trip.Routine.Lunch.Start, trip.Routine.Lunch.End)
	fmt.Fprintf(&sb, "- Dinner: %s - %s", trip.Routine.Dinner.Start, trip.Routine.Dinner.End)

	if trip.HotelLocation != nil {
		fmt.Fprintf(&sb, "\n- Hotel: %s", trip.HotelLocation.Name)
	}
	if trip.Preferences != "" {
		fmt.Fprintf(&sb, "\n- Additional preferences: %s", trip.Preferences)
	}

	return sb.String()
}
