package core

import (
	"fmt"
	"sort"

	"github.com/va6996/tripplanner/domain"
)

// LinearBlock is one block of a day flattened into a single ordered
// sequence, tagged with a stable node ID so it can be cross-referenced
// against a Graph built from the same day (e.g. for overlap detection).
type LinearBlock struct {
	NodeID string
	Index  int
	Block  domain.ItineraryBlock
}

// LinearizeDay flattens an ItineraryDay's blocks into start-time order and
// builds a Graph whose edges represent "comes immediately before" so that
// a downstream consumer (the critic's BLOCK_OVERLAP check) can walk the
// day as a simple chain.
//
// Blocks are already stored in skeleton order by the Route & Time
// Optimizer; this function re-sorts by start_time defensively so a caller
// that mutates block order elsewhere still gets a correct chain.
func LinearizeDay(day domain.ItineraryDay) ([]LinearBlock, *Graph) {
	blocks := make([]LinearBlock, len(day.Blocks))
	for i, b := range day.Blocks {
		blocks[i] = LinearBlock{
			NodeID: fmt.Sprintf("day%d_block%d", day.DayNumber, i),
			Index:  i,
			Block:  b,
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Block.StartTime < blocks[j].Block.StartTime
	})

	g := NewGraph()
	for _, lb := range blocks {
		AddNode(g, &Node{ID: lb.NodeID})
	}
	for i := 1; i < len(blocks); i++ {
		AddEdge(g, &Edge{FromID: blocks[i-1].NodeID, ToID: blocks[i].NodeID})
	}

	return blocks, g
}
