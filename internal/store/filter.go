package store

import (
	"fmt"
	"strings"

	"github.com/seanblong/notesearch/internal/intent"
)

// buildWhere translates a filter expression into a parameterized SQL
// predicate. Leaves map 1:1: equals on real columns, array overlap for
// the tag set, date bounds on created_at, and a jsonb lookup for
// passthrough fields. Values always travel as positional arguments.
// argIdx is the first free positional-parameter index.
func buildWhere(expr *intent.Expression, argIdx int) (string, []any) {
	leaves := expr.Leaves()
	if len(leaves) == 0 {
		return "TRUE", nil
	}

	clauses := make([]string, 0, len(leaves))
	var args []any

	for _, leaf := range leaves {
		switch {
		case leaf.Field == intent.KeySourceType:
			clauses = append(clauses, fmt.Sprintf("source_type = $%d", argIdx))
			args = append(args, leaf.Value)
			argIdx++
		case leaf.Field == intent.KeyTags:
			clauses = append(clauses, fmt.Sprintf("tags && $%d", argIdx))
			args = append(args, toStringSlice(leaf.Value))
			argIdx++
		case leaf.Op == intent.OpGte:
			clauses = append(clauses, fmt.Sprintf("created_at >= $%d::date", argIdx))
			args = append(args, leaf.Value)
			argIdx++
		case leaf.Op == intent.OpLte:
			clauses = append(clauses, fmt.Sprintf("created_at <= $%d::date", argIdx))
			args = append(args, leaf.Value)
			argIdx++
		default:
			// Unknown keys resolve against the passthrough metadata
			// column; the key itself is passed as a parameter too.
			clauses = append(clauses, fmt.Sprintf("meta->>$%d = $%d", argIdx, argIdx+1))
			args = append(args, leaf.Field, fmt.Sprint(leaf.Value))
			argIdx += 2
		}
	}

	return strings.Join(clauses, " AND "), args
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return nil
	}
}
