package models

import "time"

// Note is a saved piece of text before fragmentation.
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SourceType string    `json:"source_type"`
	Tags       []string  `json:"tags"`
	URL        string    `json:"url"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Fragment is one bounded, overlap-aware slice of a note's text,
// produced by the fragmenter and handed off for embedding and storage.
// StartChar/EndChar are offsets into the original text (end exclusive).
type Fragment struct {
	Text            string `json:"text"`
	Index           int    `json:"index"`
	Total           int    `json:"total"`
	TokenCount      int    `json:"token_count"`
	StartChar       int    `json:"start_char"`
	EndChar         int    `json:"end_char"`
	OverlapWithPrev int    `json:"overlap_with_prev"`
}

// RawMetadata is the untrusted metadata sub-record attached to a
// similarity-search result. Every field may be absent.
type RawMetadata struct {
	SourceField    string   `json:"source_field,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
	FieldWeight    *float64 `json:"field_weight,omitempty"`
	ContentID      string   `json:"content_id,omitempty"`
	Title          string   `json:"title,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	URL            string   `json:"url,omitempty"`
}

// RawCandidate is a similarity-search result before sanitization.
// The schema is treated as untrusted and partial: scores may be
// missing, non-finite, or out of range, and metadata may be nil.
type RawCandidate struct {
	Content       string         `json:"content"`
	Metadata      *RawMetadata   `json:"metadata,omitempty"`
	Relevance     *float64       `json:"relevance,omitempty"`
	Score         *float64       `json:"score,omitempty"`
	SemanticScore *float64       `json:"semantic_score,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// ChunkMetadata is the sanitized metadata record. After Sanitize all
// fields are populated (with defaults where the input was silent) and
// RelevanceScore is finite within [0,1].
type ChunkMetadata struct {
	SourceField    string   `json:"source_field"`
	RelevanceScore float64  `json:"relevance_score"`
	FieldWeight    float64  `json:"field_weight"`
	ContentID      string   `json:"content_id"`
	Title          string   `json:"title"`
	Tags           []string `json:"tags"`
	URL            string   `json:"url"`
}

// CandidateChunk is a sanitized retrieval result ready for ranking.
// Extra carries unrecognized input fields through verbatim.
type CandidateChunk struct {
	Content       string         `json:"content"`
	Metadata      ChunkMetadata  `json:"metadata"`
	SemanticScore float64        `json:"semantic_score"`
	Extra         map[string]any `json:"extra,omitempty"`
}
