package intent

import (
	"reflect"
	"testing"
)

func TestExtractFilters(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantSource string
		wantTags   []string
		wantAfter  string
		wantBefore string
	}{
		{
			name:       "source keyword plus capitalized tag",
			query:      "show me AI PDFs",
			wantSource: "pdf",
			wantTags:   []string{"AI"},
		},
		{
			name:       "youtube maps to video",
			query:      "youtube talks about Kubernetes",
			wantSource: "video",
			wantTags:   []string{"Kubernetes"},
		},
		{
			name:       "first keyword in table order wins",
			query:      "pdf or video, whichever comes first",
			wantSource: "pdf",
		},
		{
			name:     "trailing punctuation stripped from tags",
			query:    "anything on Golang, Postgres?",
			wantTags: []string{"Golang", "Postgres"},
		},
		{
			name:  "capitalized stopwords are not tags",
			query: "Show me What you have",
		},
		{
			name:      "year range filters",
			query:     "notes since 2023 and before 2025",
			wantAfter: "2023-01-01",
			// "note" also trips the source table; checked separately below.
			wantSource: "note",
			wantBefore: "2025-12-31",
		},
		{
			name:  "no filters at all",
			query: "what did i save yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := ExtractFilters(tt.query)

			if got, ok := fs.Get(KeySourceType); tt.wantSource != "" {
				if !ok || got != tt.wantSource {
					t.Errorf("source_type = %v (present=%v), want %q", got, ok, tt.wantSource)
				}
			} else if ok {
				t.Errorf("unexpected source_type %v", got)
			}

			if got, ok := fs.Get(KeyTags); tt.wantTags != nil {
				if !ok || !reflect.DeepEqual(got, tt.wantTags) {
					t.Errorf("tags = %v (present=%v), want %v", got, ok, tt.wantTags)
				}
			} else if ok {
				t.Errorf("unexpected tags %v", got)
			}

			if got, ok := fs.Get(KeyCreatedAfter); tt.wantAfter != "" {
				if !ok || got != tt.wantAfter {
					t.Errorf("created_after = %v, want %q", got, tt.wantAfter)
				}
			} else if ok {
				t.Errorf("unexpected created_after %v", got)
			}

			if got, ok := fs.Get(KeyCreatedBefore); tt.wantBefore != "" {
				if !ok || got != tt.wantBefore {
					t.Errorf("created_before = %v, want %q", got, tt.wantBefore)
				}
			} else if ok {
				t.Errorf("unexpected created_before %v", got)
			}
		})
	}
}

func TestFilterSet_PreservesInsertionOrder(t *testing.T) {
	fs := NewFilterSet()
	fs.Set("b", "2")
	fs.Set("a", "1")
	fs.Set("c", "3")
	fs.Set("a", "overwritten") // must not move the key

	want := []string{"b", "a", "c"}
	if got := fs.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if v, _ := fs.Get("a"); v != "overwritten" {
		t.Errorf("Get(a) = %v, want overwritten", v)
	}
}

func TestBuildFilterExpression(t *testing.T) {
	t.Run("empty set yields no expression", func(t *testing.T) {
		if expr := BuildFilterExpression(NewFilterSet()); expr != nil {
			t.Errorf("expected nil expression, got %+v", expr)
		}
	})

	t.Run("single filter yields a bare leaf", func(t *testing.T) {
		fs := NewFilterSet()
		fs.Set(KeySourceType, "pdf")

		expr := BuildFilterExpression(fs)
		if expr == nil || expr.Leaf == nil {
			t.Fatalf("expected bare leaf, got %+v", expr)
		}
		if len(expr.And) != 0 {
			t.Errorf("single leaf must not be wrapped in AND: %+v", expr)
		}
		want := Leaf{Field: KeySourceType, Op: OpEq, Value: "pdf"}
		if !reflect.DeepEqual(*expr.Leaf, want) {
			t.Errorf("leaf = %+v, want %+v", *expr.Leaf, want)
		}
	})

	t.Run("multiple filters yield one AND in insertion order", func(t *testing.T) {
		fs := NewFilterSet()
		fs.Set(KeySourceType, "pdf")
		fs.Set(KeyTags, []string{"AI"})
		fs.Set(KeyCreatedAfter, "2024-01-01")
		fs.Set("owner", "self")

		expr := BuildFilterExpression(fs)
		if expr == nil || expr.Leaf != nil {
			t.Fatalf("expected AND node, got %+v", expr)
		}
		want := []Leaf{
			{Field: KeySourceType, Op: OpEq, Value: "pdf"},
			{Field: KeyTags, Op: OpIn, Value: []string{"AI"}},
			{Field: KeyCreatedAfter, Op: OpGte, Value: "2024-01-01"},
			{Field: "owner", Op: OpEq, Value: "self"},
		}
		if !reflect.DeepEqual(expr.And, want) {
			t.Errorf("And = %+v, want %+v", expr.And, want)
		}
	})

	t.Run("operators are fixed per key", func(t *testing.T) {
		fs := NewFilterSet()
		fs.Set(KeyTags, []string{"one"})
		fs.Set(KeyCreatedBefore, "2020-12-31")

		expr := BuildFilterExpression(fs)
		leaves := expr.Leaves()
		if len(leaves) != 2 {
			t.Fatalf("expected 2 leaves, got %d", len(leaves))
		}
		if leaves[0].Op != OpIn {
			t.Errorf("tags operator = %v, want %v (regardless of list length)", leaves[0].Op, OpIn)
		}
		if leaves[1].Op != OpLte {
			t.Errorf("created_before operator = %v, want %v", leaves[1].Op, OpLte)
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantAction Action
		wantType   string
	}{
		{
			name:       "tag listing overrides everything",
			query:      "show all tags",
			wantAction: ActionListTags,
			wantType:   "tag_listing",
		},
		{
			name:       "tag listing wins over count keyword",
			query:      "count and show all tags please",
			wantAction: ActionListTags,
			wantType:   "tag_listing",
		},
		{
			name:       "default is filter",
			query:      "anything relevant to kubernetes networking",
			wantAction: ActionFilter,
			wantType:   "semantic",
		},
		{
			name:       "count beats list",
			query:      "count and list my saved articles",
			wantAction: ActionCount,
			wantType:   "structured",
		},
		{
			name:       "how many means count",
			query:      "how many pdfs do i have",
			wantAction: ActionCount,
			wantType:   "structured",
		},
		{
			name:       "list beats group",
			query:      "list grouped items",
			wantAction: ActionList,
			wantType:   "semantic",
		},
		{
			name:       "group on its own",
			query:      "group by source please",
			wantAction: ActionGroup,
			wantType:   "semantic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.query)
			if got.Action != tt.wantAction {
				t.Errorf("Action = %v, want %v", got.Action, tt.wantAction)
			}
			if got.QueryType != tt.wantType {
				t.Errorf("QueryType = %v, want %v", got.QueryType, tt.wantType)
			}
			if tt.wantAction == ActionListTags && got.Filters.Len() != 0 {
				t.Errorf("list_tags must carry an empty FilterSet, got %v", got.Filters.Keys())
			}
		})
	}
}
