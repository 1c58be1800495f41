package ranker

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestIsWellFormed(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t ", false},
		{"short allowed yes", "yes", true},
		{"short allowed no", "no", true},
		{"short allowed mixed case", "  YES  ", true},
		{"short allowed no-info phrase", "No relevant information found", true},
		{"short allowed no-info phrase two", "no information available", true},
		{"short but not allowed", "ok", false},
		{"nine words rejected", "one two three four five six seven eight nine", false},
		{"ten words accepted", "one two three four five six seven eight nine ten", true},
		{"json object leaked", `{"x":1}`, false},
		{"json array leaked", `[1, 2, 3]`, false},
		{"stack trace leaked", "Traceback (most recent call last): boom", false},
		{"leading whitespace before marker", "   {\"oops\": true}", false},
		{"normal prose", "Your notes mention three separate approaches to chunking long documents effectively.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWellFormed(tt.answer); got != tt.want {
				t.Errorf("IsWellFormed(%q) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestGuardedGenerate_ValidFirstTry(t *testing.T) {
	calls := 0
	got := GuardedGenerate(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "  This answer is long enough to pass the validity check easily.  ", nil
	}, 1)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if got != "This answer is long enough to pass the validity check easily." {
		t.Errorf("expected trimmed answer, got %q", got)
	}
}

func TestGuardedGenerate_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	got := GuardedGenerate(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "{malformed", nil
		}
		return "The second attempt produced a perfectly valid answer for the caller.", nil
	}, 1)

	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	if strings.HasPrefix(got, "{") {
		t.Errorf("malformed answer escaped: %q", got)
	}
	if got == FallbackInvalid || got == FallbackError {
		t.Errorf("expected real answer after retry, got fallback %q", got)
	}
}

func TestGuardedGenerate_InvalidAfterRetries(t *testing.T) {
	calls := 0
	got := GuardedGenerate(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", nil
	}, 1)

	if calls != 2 {
		t.Errorf("expected retry bound of 1 extra attempt, got %d calls", calls)
	}
	if got != FallbackInvalid {
		t.Errorf("expected invalid-answer fallback, got %q", got)
	}
}

func TestGuardedGenerate_ErrorBecomesFallback(t *testing.T) {
	got := GuardedGenerate(context.Background(), func(ctx context.Context) (string, error) {
		return "", errors.New("model exploded")
	}, 2)

	if got != FallbackError {
		t.Errorf("expected error fallback, got %q", got)
	}
	if got == "" {
		t.Error("guarded generation must never return an empty string")
	}
}

func TestGuardedGenerate_PanicIsAbsorbed(t *testing.T) {
	got := GuardedGenerate(context.Background(), func(ctx context.Context) (string, error) {
		panic("collaborator bug")
	}, 0)

	if got != FallbackError {
		t.Errorf("expected error fallback after panic, got %q", got)
	}
}

func TestGuardedGenerate_NilFunc(t *testing.T) {
	if got := GuardedGenerate(context.Background(), nil, 1); got != FallbackError {
		t.Errorf("expected error fallback for nil collaborator, got %q", got)
	}
}

func TestGuardedGenerate_NegativeRetriesUseDefault(t *testing.T) {
	calls := 0
	GuardedGenerate(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "nope", nil
	}, -1)

	if calls != DefaultMaxRetries+1 {
		t.Errorf("expected %d calls with default retry bound, got %d", DefaultMaxRetries+1, calls)
	}
}
