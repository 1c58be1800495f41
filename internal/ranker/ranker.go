// Package ranker sanitizes, re-scores and deterministically orders
// retrieval candidates, and validates generated answers.
package ranker

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/notesearch/pkg/models"
)

const (
	// RelevanceFloor drops candidates scoring below it after clamping.
	RelevanceFloor = 0.35
	// MaxContentChars caps candidate content length.
	MaxContentChars = 2000
	// MaxCandidates caps how many candidates one batch may yield.
	MaxCandidates = 50

	// DefaultSourceField fills a missing metadata source field.
	DefaultSourceField = "raw_data"
	// DefaultFieldWeight fills a missing metadata field weight.
	DefaultFieldWeight = 0.6

	truncationMarker = "…"
)

// Sanitize converts untrusted similarity-search output into fully
// populated candidates. Candidates below the relevance floor are
// dropped, content is truncated, missing metadata takes documented
// defaults, and acceptance stops at MaxCandidates. A malformed
// candidate is skipped, never fatal to the batch.
func Sanitize(raw []models.RawCandidate) []models.CandidateChunk {
	limit := len(raw)
	if limit > MaxCandidates {
		limit = MaxCandidates
	}
	out := make([]models.CandidateChunk, 0, limit)
	for i := range raw {
		if len(out) >= MaxCandidates {
			break
		}
		c, ok := sanitizeOne(raw[i])
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

func sanitizeOne(rc models.RawCandidate) (c models.CandidateChunk, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Any("panic", r).Msg("skipping malformed candidate")
			ok = false
		}
	}()

	// Relevance precedence: metadata first, then top-level fields.
	var rel float64
	switch {
	case rc.Metadata != nil && rc.Metadata.RelevanceScore != nil:
		rel = *rc.Metadata.RelevanceScore
	case rc.Relevance != nil:
		rel = *rc.Relevance
	case rc.Score != nil:
		rel = *rc.Score
	}
	// Out-of-range and non-finite relevance is invalid, not merely
	// extreme: it resets to 0 and the floor drops the candidate.
	if math.IsNaN(rel) || math.IsInf(rel, 0) || rel < 0 || rel > 1 {
		rel = 0
	}
	if rel < RelevanceFloor {
		return c, false
	}

	content := rc.Content
	if runes := []rune(content); len(runes) > MaxContentChars {
		content = string(runes[:MaxContentChars]) + truncationMarker
	}

	meta := models.ChunkMetadata{
		SourceField:    DefaultSourceField,
		RelevanceScore: rel,
		FieldWeight:    DefaultFieldWeight,
		Tags:           []string{},
	}
	if rc.Metadata != nil {
		if rc.Metadata.SourceField != "" {
			meta.SourceField = rc.Metadata.SourceField
		}
		if rc.Metadata.FieldWeight != nil {
			meta.FieldWeight = clamp01(*rc.Metadata.FieldWeight)
		}
		meta.ContentID = rc.Metadata.ContentID
		meta.Title = rc.Metadata.Title
		meta.URL = rc.Metadata.URL
		if rc.Metadata.Tags != nil {
			meta.Tags = rc.Metadata.Tags
		}
	}

	var semantic float64
	if rc.SemanticScore != nil {
		semantic = clamp01(*rc.SemanticScore)
	}

	return models.CandidateChunk{
		Content:       content,
		Metadata:      meta,
		SemanticScore: semantic,
		Extra:         rc.Extra,
	}, true
}

// Rank returns chunks stably sorted by the descending tuple
// (relevance, semantic score, field weight). Ties at every level keep
// their input order; callers take a fixed-size prefix afterwards and
// depend on this determinism.
func Rank(chunks []models.CandidateChunk) []models.CandidateChunk {
	out := make([]models.CandidateChunk, len(chunks))
	copy(out, chunks)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Metadata.RelevanceScore != b.Metadata.RelevanceScore {
			return a.Metadata.RelevanceScore > b.Metadata.RelevanceScore
		}
		if a.SemanticScore != b.SemanticScore {
			return a.SemanticScore > b.SemanticScore
		}
		return a.Metadata.FieldWeight > b.Metadata.FieldWeight
	})
	return out
}

// ComposeScore combines optional score components into one clamped
// [0,1] value: an unweighted mean when weights is empty (nil parts
// count as 0), or a weighted mean normalized by the weight sum. It
// never fails; any computational error yields 0.
func ComposeScore(parts []*float64, weights []float64) float64 {
	if len(parts) == 0 {
		return 0
	}

	value := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		v := *p
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}

	if len(weights) == 0 {
		var sum float64
		for _, p := range parts {
			sum += value(p)
		}
		return clamp01(sum / float64(len(parts)))
	}

	if len(weights) != len(parts) {
		return 0
	}
	var sum, wsum float64
	for i, p := range parts {
		w := weights[i]
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return 0
		}
		sum += value(p) * w
		wsum += w
	}
	if wsum == 0 {
		return 0
	}
	return clamp01(sum / wsum)
}

// clamp01 maps NaN/±Inf to 0 and bounds v to [0,1].
func clamp01(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
