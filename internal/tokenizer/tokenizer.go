// Package tokenizer provides a deterministic word-level encoder used as
// the fragmenter's default tokenizer collaborator.
package tokenizer

import (
	"errors"
	"hash/fnv"
	"regexp"
	"strings"
)

// Word splits text on word boundaries and encodes each token as a
// stable FNV-1a id. Identical input always yields identical output, so
// it is safe to share across concurrent callers.
type Word struct {
	splitter *regexp.Regexp
}

// NewWord creates a word tokenizer.
func NewWord() *Word {
	return &Word{
		splitter: regexp.MustCompile(`[A-Za-z0-9_'-]+|[^\sA-Za-z0-9]`),
	}
}

// Encode returns the ordered token ids for text.
func (w *Word) Encode(text string) ([]int, error) {
	if w == nil || w.splitter == nil {
		return nil, errors.New("tokenizer not initialized")
	}
	words := w.splitter.FindAllString(text, -1)
	ids := make([]int, 0, len(words))
	for _, tok := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.ToLower(tok)))
		ids = append(ids, int(h.Sum32()))
	}
	return ids, nil
}
