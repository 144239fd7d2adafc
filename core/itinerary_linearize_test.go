package core

import (
	"testing"

	"github.com/va6996/tripplanner/domain"
)

func TestLinearizeDaySortsByStartTime(t *testing.T) {
	day := domain.ItineraryDay{
		DayNumber: 1,
		Blocks: []domain.ItineraryBlock{
			{BlockType: domain.BlockActivity, StartTime: "14:00:00", EndTime: "16:00:00"},
			{BlockType: domain.BlockMeal, StartTime: "08:00:00", EndTime: "09:00:00"},
			{BlockType: domain.BlockMeal, StartTime: "12:00:00", EndTime: "13:00:00"},
		},
	}

	blocks, g := LinearizeDay(day)

	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if blocks[0].Block.StartTime != "08:00:00" || blocks[1].Block.StartTime != "12:00:00" || blocks[2].Block.StartTime != "14:00:00" {
		t.Errorf("blocks not sorted by start_time: %+v", blocks)
	}

	if err := ValidateGraph(g); err != nil {
		t.Fatalf("linearized graph should validate: %v", err)
	}
	if len(g.Edges) != 2 {
		t.Errorf("expected a chain of 2 edges for 3 blocks, got %d", len(g.Edges))
	}
}

func TestLinearizeEmptyDay(t *testing.T) {
	blocks, g := LinearizeDay(domain.ItineraryDay{DayNumber: 1})
	if len(blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(blocks))
	}
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Error("expected empty graph for empty day")
	}
}
