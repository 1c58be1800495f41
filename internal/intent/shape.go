package intent

import (
	"sort"

	"github.com/seanblong/notesearch/pkg/models"
)

// Group is one bucket of a grouping-with-counts result.
type Group struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// fieldValue resolves a named field on a ranked result. Unknown names
// fall back to the passthrough Extra map.
func fieldValue(c models.CandidateChunk, field string) any {
	switch field {
	case "content":
		return c.Content
	case "source_field":
		return c.Metadata.SourceField
	case "relevance_score":
		return c.Metadata.RelevanceScore
	case "field_weight":
		return c.Metadata.FieldWeight
	case "content_id":
		return c.Metadata.ContentID
	case "title":
		return c.Metadata.Title
	case "tags":
		return c.Metadata.Tags
	case "url":
		return c.Metadata.URL
	case "semantic_score":
		return c.SemanticScore
	default:
		if c.Extra != nil {
			return c.Extra[field]
		}
		return nil
	}
}

// Project returns only the named fields of each result, in input order.
func Project(results []models.CandidateChunk, fields []string) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		row := make(map[string]any, len(fields))
		for _, f := range fields {
			row[f] = fieldValue(r, f)
		}
		out = append(out, row)
	}
	return out
}

// GroupCount buckets results by the string value of field and returns
// the buckets ordered by descending count, ties broken by key.
func GroupCount(results []models.CandidateChunk, field string) []Group {
	counts := map[string]int{}
	var order []string
	for _, r := range results {
		key, _ := fieldValue(r, field).(string)
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{Key: key, Count: counts[key]})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

// SortByFieldDesc returns a copy of results stably sorted by field in
// descending order. Numeric fields sort numerically, everything else by
// its string form; it never re-ranks, only reorders the given list.
func SortByFieldDesc(results []models.CandidateChunk, field string) []models.CandidateChunk {
	out := make([]models.CandidateChunk, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := fieldValue(out[i], field), fieldValue(out[j], field)
		af, aok := asFloat(a)
		bf, bok := asFloat(b)
		if aok && bok {
			return af > bf
		}
		as, _ := a.(string)
		bs, _ := b.(string)
		return as > bs
	})
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
