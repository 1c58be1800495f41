// Package retrieval ties intent parsing, vector search, ranking and
// guarded answer generation into one query pipeline.
package retrieval

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/notesearch/internal/ai"
	"github.com/seanblong/notesearch/internal/intent"
	"github.com/seanblong/notesearch/internal/ranker"
	"github.com/seanblong/notesearch/internal/store"
	"github.com/seanblong/notesearch/pkg/models"
)

// DefaultTopK is the number of ranked results kept per query.
const DefaultTopK = 10

type Service struct {
	Client     ai.Client
	Store      store.FragmentStore
	TopK       int
	MaxRetries int
}

// NewService creates a new retrieval service with the provided AI
// client and fragment store.
func NewService(client ai.Client, st store.FragmentStore, topK, maxRetries int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{
		Client:     client,
		Store:      st,
		TopK:       topK,
		MaxRetries: maxRetries,
	}
}

// Answer is the outcome of one query. Which fields are populated
// depends on the classified action.
type Answer struct {
	Action    intent.Action           `json:"action"`
	QueryType string                  `json:"query_type"`
	Text      string                  `json:"text,omitempty"`
	Results   []models.CandidateChunk `json:"results,omitempty"`
	Count     int                     `json:"count"`
	Groups    []intent.Group          `json:"groups,omitempty"`
	Tags      []string                `json:"tags,omitempty"`
}

// Ask classifies q, retrieves and ranks matching fragments, and shapes
// the response for the classified action. Only store failures surface
// as errors; an unreachable embedding provider degrades to filter-only
// search and a misbehaving generator degrades to a fallback answer.
func (s *Service) Ask(ctx context.Context, q string) (Answer, error) {
	q = strings.TrimSpace(q)
	qi := intent.Classify(q)

	if qi.Action == intent.ActionListTags {
		tags, err := s.Store.ListTags(ctx)
		if err != nil {
			return Answer{}, err
		}
		if tags == nil {
			tags = []string{}
		}
		return Answer{
			Action:    qi.Action,
			QueryType: qi.QueryType,
			Tags:      tags,
			Count:     len(tags),
		}, nil
	}

	expr := intent.BuildFilterExpression(qi.Filters)

	embedding, err := s.Client.Embed(q)
	if err != nil {
		log.Warn().Err(err).Str("query", q).
			Msg("embedding failed, searching with filters only; results may be poor")
		embedding = nil
	}

	raw, err := s.Store.Search(ctx, embedding, ranker.MaxCandidates, expr)
	if err != nil {
		return Answer{}, err
	}

	results := ranker.Rank(ranker.Sanitize(raw))
	if len(results) > s.TopK {
		results = results[:s.TopK]
	}

	ans := Answer{
		Action:    qi.Action,
		QueryType: qi.QueryType,
		Count:     len(results),
	}

	switch qi.Action {
	case intent.ActionCount:
		// Count alone; the matching fragments stay server-side.
	case intent.ActionList:
		ans.Results = results
	case intent.ActionGroup:
		ans.Groups = intent.GroupCount(results, "source_type")
	default:
		ans.Results = results
		ans.Text = s.answer(ctx, q, results)
	}

	return ans, nil
}

// answer generates a grounded prose answer from the ranked fragments.
func (s *Service) answer(ctx context.Context, q string, results []models.CandidateChunk) string {
	contextText := joinFragments(results)
	return ranker.GuardedGenerate(ctx, func(ctx context.Context) (string, error) {
		return s.Client.Generate(ctx, q, contextText)
	}, s.MaxRetries)
}

// joinFragments renders ranked fragments as a titled plain-text context
// block for the generator.
func joinFragments(results []models.CandidateChunk) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if r.Metadata.Title != "" {
			b.WriteString(r.Metadata.Title)
			b.WriteString(":\n")
		}
		b.WriteString(r.Content)
	}
	return b.String()
}
