package ranker

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// GenerateFunc is the generation collaborator: it may be slow, may
// return garbage, and may fail outright.
type GenerateFunc func(ctx context.Context) (string, error)

const (
	// DefaultMaxRetries bounds how often an invalid answer is retried.
	DefaultMaxRetries = 1

	// FallbackInvalid is returned when generation keeps producing
	// answers that fail validation.
	FallbackInvalid = "I could not produce a reliable answer from your saved notes. Please try rephrasing the question."
	// FallbackError is returned when the generation collaborator itself
	// keeps failing.
	FallbackError = "The answer service is temporarily unavailable. Please try again in a moment."

	minAnswerWords = 10
)

// allowedShortAnswers are the only valid answers under the minimum word
// count, compared case-insensitively after trimming.
var allowedShortAnswers = map[string]struct{}{
	"yes":                           {},
	"no":                            {},
	"no relevant information found": {},
	"no information available":      {},
}

// structuredMarkers flag answers that leaked a stack trace or raw
// structured data instead of prose.
var structuredMarkers = []string{"Traceback", "{", "["}

// IsWellFormed reports whether answer is usable as a response:
// non-empty, not leaked structure, and either long enough or one of the
// allowed short answers.
func IsWellFormed(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return false
	}
	for _, marker := range structuredMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return false
		}
	}
	if _, ok := allowedShortAnswers[strings.ToLower(trimmed)]; ok {
		return true
	}
	return len(strings.Fields(trimmed)) >= minAnswerWords
}

// GuardedGenerate wraps fn with validation, bounded retry and a safe
// fallback. It never fails the caller: a collaborator error or panic
// becomes FallbackError, an answer that stays invalid after maxRetries
// extra attempts becomes FallbackInvalid. Negative maxRetries means
// DefaultMaxRetries.
func GuardedGenerate(ctx context.Context, fn GenerateFunc, maxRetries int) string {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if fn == nil {
		return FallbackError
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		answer, err := invoke(ctx, fn)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Msg("answer generation failed")
			continue
		}
		lastErr = nil
		if IsWellFormed(answer) {
			return strings.TrimSpace(answer)
		}
		log.Warn().Int("attempt", attempt).Msg("generated answer failed validation")
	}

	if lastErr != nil {
		return FallbackError
	}
	return FallbackInvalid
}

// invoke shields the retry loop from collaborator panics.
func invoke(ctx context.Context, fn GenerateFunc) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panicked: %v", r)
		}
	}()
	return fn(ctx)
}
