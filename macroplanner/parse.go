package macroplanner

import (
	"fmt"
	"strings"

	"github.com/va6996/tripplanner/domain"
)

// normalizeTimeString coerces an LLM-produced time string into HH:MM:SS,
// tolerating malformed outputs like ":00:00" or "9:00:00" (spec.md §4.3).
func normalizeTimeString(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "00:00:00"
	}

	if strings.HasPrefix(trimmed, ":") {
		trimmed = "00" + trimmed
	}

	parts := strings.Split(trimmed, ":")
	if len(parts) != 3 {
		return "00:00:00"
	}

	return fmt.Sprintf("%s:%s:%s", zeroPad(parts[0]), zeroPad(parts[1]), zeroPad(parts[2]))
}

func zeroPad(part string) string {
	if part == "" {
		return "00"
	}
	if len(part) == 1 {
		return "0" + part
	}
	return part
}

func parseSkeletonResponse(response map[string]interface{}) ([]domain.DaySkeleton, error) {
	rawDays, ok := response["days"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("response missing \"days\" array")
	}

	skeletons := make([]domain.DaySkeleton, 0, len(rawDays))
	for _, rawDay := range rawDays {
		dayMap, ok := rawDay.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("malformed day entry")
		}

		skeleton, err := parseDay(dayMap)
		if err != nil {
			return nil, err
		}
		skeletons = append(skeletons, skeleton)
	}

	return skeletons, nil
}

func parseDay(dayMap map[string]interface{}) (domain.DaySkeleton, error) {
	dayNumber, err := asInt(dayMap["day_number"])
	if err != nil {
		return domain.DaySkeleton{}, fmt.Errorf("invalid day_number: %w", err)
	}

	rawBlocks, _ := dayMap["blocks"].([]interface{})
	blocks := make([]domain.SkeletonBlock, 0, len(rawBlocks))
	for _, rawBlock := range rawBlocks {
		blockMap, ok := rawBlock.(map[string]interface{})
		if !ok {
			continue
		}
		blocks = append(blocks, parseBlock(blockMap))
	}

	return domain.DaySkeleton{
		DayNumber: dayNumber,
		Date:      asString(dayMap["date"]),
		Theme:     asString(dayMap["theme"]),
		Blocks:    blocks,
	}, nil
}

func parseBlock(blockMap map[string]interface{}) domain.SkeletonBlock {
	var categories []string
	if raw, ok := blockMap["desired_categories"].([]interface{}); ok {
		for _, c := range raw {
			if s, ok := c.(string); ok {
				categories = append(categories, s)
			}
		}
	}

	return domain.SkeletonBlock{
		BlockType:         domain.BlockType(asString(blockMap["block_type"])),
		StartTime:         normalizeTimeString(asString(blockMap["start_time"])),
		EndTime:           normalizeTimeString(asString(blockMap["end_time"])),
		Theme:             asString(blockMap["theme"]),
		DesiredCategories: categories,
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
