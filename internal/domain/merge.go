package domain

import "strings"

type entityKey struct {
	text string
	typ  EntityType
}

// MergeEntities collapses entities sharing the same (lowercased text, type)
// key. The first-seen entry keeps its position in the output; when the key
// recurs with a higher confidence, the kept entry's confidence is raised
// in place.
func MergeEntities(entities []Entity) []Entity {
	seen := make(map[entityKey]int, len(entities))
	merged := make([]Entity, 0, len(entities))

	for _, e := range entities {
		key := entityKey{text: strings.ToLower(e.Text), typ: e.Type}
		if i, ok := seen[key]; ok {
			if e.Confidence > merged[i].Confidence {
				merged[i].Confidence = e.Confidence
			}
			continue
		}
		seen[key] = len(merged)
		merged = append(merged, e)
	}

	return merged
}

// MergeImpacts collapses impacts by symbol. Unlike entity merge, a later
// record with strictly higher confidence replaces the earlier one entirely
// (kind and reasoning included); ties keep the first seen. Symbol order of
// first appearance is preserved.
func MergeImpacts(impacts []StockImpact) []StockImpact {
	seen := make(map[string]int, len(impacts))
	merged := make([]StockImpact, 0, len(impacts))

	for _, imp := range impacts {
		if i, ok := seen[imp.Symbol]; ok {
			if imp.Confidence > merged[i].Confidence {
				merged[i] = imp
			}
			continue
		}
		seen[imp.Symbol] = len(merged)
		merged = append(merged, imp)
	}

	return merged
}
