package store

import (
	"reflect"
	"testing"

	"github.com/seanblong/notesearch/internal/intent"
)

func TestBuildWhere_Empty(t *testing.T) {
	where, args := buildWhere(nil, 2)
	if where != "TRUE" {
		t.Errorf("expected TRUE for nil expression, got %q", where)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestBuildWhere_SingleLeaf(t *testing.T) {
	tests := []struct {
		name      string
		leaf      intent.Leaf
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "source type equality",
			leaf:      intent.Leaf{Field: intent.KeySourceType, Op: intent.OpEq, Value: "pdf"},
			wantWhere: "source_type = $2",
			wantArgs:  []any{"pdf"},
		},
		{
			name:      "tag overlap",
			leaf:      intent.Leaf{Field: intent.KeyTags, Op: intent.OpIn, Value: []string{"AI", "Go"}},
			wantWhere: "tags && $2",
			wantArgs:  []any{[]string{"AI", "Go"}},
		},
		{
			name:      "created after",
			leaf:      intent.Leaf{Field: intent.KeyCreatedAfter, Op: intent.OpGte, Value: "2023-01-01"},
			wantWhere: "created_at >= $2::date",
			wantArgs:  []any{"2023-01-01"},
		},
		{
			name:      "created before",
			leaf:      intent.Leaf{Field: intent.KeyCreatedBefore, Op: intent.OpLte, Value: "2023-12-31"},
			wantWhere: "created_at <= $2::date",
			wantArgs:  []any{"2023-12-31"},
		},
		{
			name:      "passthrough key hits jsonb metadata",
			leaf:      intent.Leaf{Field: "author", Op: intent.OpEq, Value: "smith"},
			wantWhere: "meta->>$2 = $3",
			wantArgs:  []any{"author", "smith"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := &intent.Expression{Leaf: &tt.leaf}
			where, args := buildWhere(expr, 2)
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestBuildWhere_Conjunction(t *testing.T) {
	expr := &intent.Expression{And: []intent.Leaf{
		{Field: intent.KeySourceType, Op: intent.OpEq, Value: "pdf"},
		{Field: intent.KeyTags, Op: intent.OpIn, Value: []string{"AI"}},
		{Field: "project", Op: intent.OpEq, Value: "alpha"},
	}}

	where, args := buildWhere(expr, 2)

	want := "source_type = $2 AND tags && $3 AND meta->>$4 = $5"
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}

	wantArgs := []any{"pdf", []string{"AI"}, "project", "alpha"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestBuildWhere_ArgIndexOffset(t *testing.T) {
	expr := &intent.Expression{Leaf: &intent.Leaf{
		Field: intent.KeySourceType, Op: intent.OpEq, Value: "note",
	}}
	where, _ := buildWhere(expr, 5)
	if where != "source_type = $5" {
		t.Errorf("expected placeholder to start at $5, got %q", where)
	}
}

func TestToStringSlice(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"string slice", []string{"a", "b"}, []string{"a", "b"}},
		{"single string", "a", []string{"a"}},
		{"any slice", []any{"a", 1}, []string{"a", "1"}},
		{"unsupported", 42, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toStringSlice(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("toStringSlice(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
