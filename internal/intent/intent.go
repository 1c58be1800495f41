// Package intent parses free-text queries into a structured intent and
// typed filter predicates, and compiles those predicates into a
// backend-agnostic filter expression.
package intent

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Action is the high-level operation a query asks for.
type Action string

const (
	ActionFilter   Action = "filter"
	ActionList     Action = "list"
	ActionCount    Action = "count"
	ActionGroup    Action = "group"
	ActionListTags Action = "list_tags"
)

// Filter keys recognized by the extractor. Unknown keys pass through.
const (
	KeySourceType    = "source_type"
	KeyTags          = "tags"
	KeyCreatedAfter  = "created_after"
	KeyCreatedBefore = "created_before"
)

// FilterSet maps filter keys to values (string or []string) while
// preserving insertion order. It is built fresh per query and never
// mutated after construction.
type FilterSet struct {
	order []string
	vals  map[string]any
}

// NewFilterSet creates an empty FilterSet.
func NewFilterSet() FilterSet {
	return FilterSet{vals: map[string]any{}}
}

// Set stores a value under key, keeping first-insertion order.
func (fs *FilterSet) Set(key string, value any) {
	if fs.vals == nil {
		fs.vals = map[string]any{}
	}
	if _, ok := fs.vals[key]; !ok {
		fs.order = append(fs.order, key)
	}
	fs.vals[key] = value
}

// Get returns the value stored under key.
func (fs FilterSet) Get(key string) (any, bool) {
	v, ok := fs.vals[key]
	return v, ok
}

// Keys returns the filter keys in insertion order.
func (fs FilterSet) Keys() []string {
	out := make([]string, len(fs.order))
	copy(out, fs.order)
	return out
}

// Len returns the number of filters.
func (fs FilterSet) Len() int { return len(fs.order) }

// Op is a filter-leaf operator.
type Op string

const (
	OpEq  Op = "eq"
	OpIn  Op = "in"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Leaf is a single {field, operator, value} predicate.
type Leaf struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

// Expression is a filter tree: either a bare leaf or a single n-ary
// conjunction. Zero filters produce no Expression at all (nil), never
// an empty conjunction.
type Expression struct {
	Leaf *Leaf  `json:"leaf,omitempty"`
	And  []Leaf `json:"and,omitempty"`
}

// Leaves returns the expression's predicates in order.
func (e *Expression) Leaves() []Leaf {
	if e == nil {
		return nil
	}
	if e.Leaf != nil {
		return []Leaf{*e.Leaf}
	}
	return e.And
}

// QueryIntent is the parsed shape of one query.
type QueryIntent struct {
	Action    Action    `json:"action"`
	Filters   FilterSet `json:"-"`
	QueryType string    `json:"query_type"`
}

// sourceKeywords maps surface terms to source types. Scan order is
// definition order and the first match wins.
var sourceKeywords = []struct {
	term       string
	sourceType string
}{
	{"pdf", "pdf"},
	{"document", "pdf"},
	{"youtube", "video"},
	{"yt ", "video"},
	{"video", "video"},
	{"podcast", "audio"},
	{"audio", "audio"},
	{"recording", "audio"},
	{"article", "article"},
	{"blog", "article"},
	{"webpage", "article"},
	{"note", "note"},
	{"memo", "note"},
}

// stopwords are lower-cased tokens that never become tags, including
// the source-type surface terms themselves.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "i": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "do": {}, "does": {}, "did": {}, "can": {},
	"could": {}, "would": {}, "should": {}, "what": {}, "which": {},
	"who": {}, "how": {}, "when": {}, "where": {}, "why": {}, "show": {},
	"list": {}, "get": {}, "find": {}, "give": {}, "tell": {}, "me": {},
	"my": {}, "all": {}, "any": {}, "please": {}, "from": {}, "about": {},
	"with": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"count": {}, "group": {}, "tag": {}, "tags": {}, "since": {},
	"after": {}, "before": {}, "until": {}, "last": {}, "recent": {},
	"pdf": {}, "pdfs": {}, "document": {}, "documents": {}, "doc": {},
	"docs": {}, "video": {}, "videos": {}, "youtube": {}, "audio": {},
	"podcast": {}, "podcasts": {}, "recording": {}, "recordings": {},
	"article": {}, "articles": {}, "blog": {}, "blogs": {}, "webpage": {},
	"note": {}, "notes": {}, "memo": {}, "memos": {},
}

// tagListingPhrases short-circuit intent classification to list_tags.
var tagListingPhrases = []string{
	"show all tags",
	"list all tags",
	"show tags",
	"list tags",
	"all tags",
	"what tags",
	"which tags",
	"enumerate tags",
}

var (
	afterYearRe  = regexp.MustCompile(`(?:since|after)\s+(\d{4})`)
	beforeYearRe = regexp.MustCompile(`(?:before|until)\s+(\d{4})`)
)

// ExtractFilters scans query for typed filter predicates. Source types
// come from the lower-cased copy; candidate tags come from the
// original-case tokens only.
func ExtractFilters(query string) FilterSet {
	fs := NewFilterSet()
	lq := strings.ToLower(query)

	for _, kw := range sourceKeywords {
		if strings.Contains(lq, kw.term) {
			fs.Set(KeySourceType, kw.sourceType)
			break
		}
	}

	if tags := extractTags(query); len(tags) > 0 {
		fs.Set(KeyTags, tags)
	}

	if m := afterYearRe.FindStringSubmatch(lq); m != nil {
		fs.Set(KeyCreatedAfter, m[1]+"-01-01")
	}
	if m := beforeYearRe.FindStringSubmatch(lq); m != nil {
		fs.Set(KeyCreatedBefore, m[1]+"-12-31")
	}

	return fs
}

// extractTags collects capitalized non-stopword tokens from the
// original-case query, stripping trailing punctuation.
func extractTags(query string) []string {
	var tags []string
	seen := map[string]struct{}{}
	for _, word := range strings.Fields(query) {
		word = strings.TrimRightFunc(word, unicode.IsPunct)
		if word == "" {
			continue
		}
		first, _ := utf8.DecodeRuneInString(word)
		if !unicode.IsUpper(first) {
			continue
		}
		lower := strings.ToLower(word)
		if _, stop := stopwords[lower]; stop {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		tags = append(tags, word)
	}
	return tags
}

// BuildFilterExpression compiles a FilterSet into a filter tree. Each
// key maps to exactly one leaf with a fixed operator; a single leaf is
// never wrapped in a conjunction.
func BuildFilterExpression(fs FilterSet) *Expression {
	keys := fs.Keys()
	if len(keys) == 0 {
		return nil
	}

	leaves := make([]Leaf, 0, len(keys))
	for _, key := range keys {
		value, _ := fs.Get(key)
		var op Op
		switch key {
		case KeySourceType:
			op = OpEq
		case KeyTags:
			op = OpIn
		case KeyCreatedAfter:
			op = OpGte
		case KeyCreatedBefore:
			op = OpLte
		default:
			op = OpEq
		}
		leaves = append(leaves, Leaf{Field: key, Op: op, Value: value})
	}

	if len(leaves) == 1 {
		return &Expression{Leaf: &leaves[0]}
	}
	return &Expression{And: leaves}
}

// Classify parses query into a QueryIntent. Tag enumeration wins over
// everything else and always carries an empty FilterSet; otherwise the
// default action is filter, overridden in priority order
// count > list > group.
func Classify(query string) QueryIntent {
	lq := strings.ToLower(query)

	for _, phrase := range tagListingPhrases {
		if strings.Contains(lq, phrase) {
			return QueryIntent{
				Action:    ActionListTags,
				Filters:   NewFilterSet(),
				QueryType: "tag_listing",
			}
		}
	}

	filters := ExtractFilters(query)

	action := ActionFilter
	switch {
	case strings.Contains(lq, "count") || strings.Contains(lq, "how many"):
		action = ActionCount
	case strings.Contains(lq, "list") || strings.Contains(lq, "show") || strings.Contains(lq, "get"):
		action = ActionList
	case strings.Contains(lq, "group"):
		action = ActionGroup
	}

	queryType := "semantic"
	if filters.Len() > 0 {
		queryType = "structured"
	}

	return QueryIntent{Action: action, Filters: filters, QueryType: queryType}
}
