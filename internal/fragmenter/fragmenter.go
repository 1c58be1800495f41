// Package fragmenter splits note text into overlapping, token-bounded,
// word-aligned fragments suitable for embedding and vector indexing.
package fragmenter

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/notesearch/pkg/models"
)

// Tokenizer encodes text into an ordered sequence of token ids. It must
// be deterministic for identical input; a failure is fatal to the
// fragmentation call that triggered it.
type Tokenizer interface {
	Encode(text string) ([]int, error)
}

// TokenizerFactory builds the tokenizer handle. It is invoked at most
// once per Fragmenter, on first use.
type TokenizerFactory func() (Tokenizer, error)

const (
	// DefaultChunkSizeTokens is the default window size.
	DefaultChunkSizeTokens = 500
	// DefaultOverlapTokens is the default token overlap between windows.
	DefaultOverlapTokens = 100
	// MinChunkSizeTokens is the smallest allowed window size.
	MinChunkSizeTokens = 50

	// minInputChars is the floor below which input produces no fragments.
	minInputChars = 50
	// largeInputChars flags inputs big enough to be a performance risk.
	largeInputChars = 1_000_000
)

var (
	// ErrChunkSizeTooSmall is returned by New when the configured window
	// size is below MinChunkSizeTokens.
	ErrChunkSizeTooSmall = errors.New("fragmenter: chunk size below minimum")
	// ErrOverlapTooLarge is returned by New when the overlap does not
	// leave a positive stride.
	ErrOverlapTooLarge = errors.New("fragmenter: overlap must be smaller than chunk size")
)

// Config holds the fragmentation parameters, validated at construction.
type Config struct {
	ChunkSizeTokens int
	OverlapTokens   int
}

// Fragmenter produces fragments from raw text. The tokenizer handle is
// built lazily, exactly once, and shared read-only afterwards, so a
// single Fragmenter is safe for concurrent Split calls.
type Fragmenter struct {
	chunkSize int
	overlap   int

	factory TokenizerFactory
	once    sync.Once
	tok     Tokenizer
	tokErr  error
}

// New validates cfg and creates a Fragmenter. Zero-valued fields take
// the package defaults. Invalid size/overlap combinations fail here,
// never per call.
func New(cfg Config, factory TokenizerFactory) (*Fragmenter, error) {
	if cfg.ChunkSizeTokens == 0 {
		cfg.ChunkSizeTokens = DefaultChunkSizeTokens
	}
	if cfg.OverlapTokens == 0 {
		cfg.OverlapTokens = DefaultOverlapTokens
	}
	if cfg.ChunkSizeTokens < MinChunkSizeTokens {
		return nil, fmt.Errorf("%w: got %d, minimum %d", ErrChunkSizeTooSmall, cfg.ChunkSizeTokens, MinChunkSizeTokens)
	}
	if cfg.OverlapTokens < 0 || cfg.OverlapTokens >= cfg.ChunkSizeTokens {
		return nil, fmt.Errorf("%w: chunk=%d overlap=%d", ErrOverlapTooLarge, cfg.ChunkSizeTokens, cfg.OverlapTokens)
	}
	if factory == nil {
		return nil, errors.New("fragmenter: tokenizer factory is required")
	}
	return &Fragmenter{
		chunkSize: cfg.ChunkSizeTokens,
		overlap:   cfg.OverlapTokens,
		factory:   factory,
	}, nil
}

// tokenizer returns the shared handle, constructing it on first use.
func (f *Fragmenter) tokenizer() (Tokenizer, error) {
	f.once.Do(func() {
		f.tok, f.tokErr = f.factory()
		if f.tokErr == nil && f.tok == nil {
			f.tokErr = errors.New("tokenizer factory returned nil")
		}
	})
	return f.tok, f.tokErr
}

// Split fragments text into overlapping windows. Inputs shorter than
// the minimum character floor yield an empty result and no error.
func (f *Fragmenter) Split(text string) ([]models.Fragment, error) {
	if len(strings.TrimSpace(text)) < minInputChars {
		return []models.Fragment{}, nil
	}
	if len(text) > largeInputChars {
		log.Warn().Int("chars", len(text)).Msg("fragmenting very large input, this may be slow")
	}

	tok, err := f.tokenizer()
	if err != nil {
		return nil, fmt.Errorf("tokenizer init: %w", err)
	}
	tokens, err := tok.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	total := len(tokens)
	if total == 0 {
		return []models.Fragment{}, nil
	}

	if total <= f.chunkSize {
		return []models.Fragment{{
			Text:            strings.TrimSpace(text),
			Index:           0,
			Total:           1,
			TokenCount:      total,
			StartChar:       0,
			EndChar:         len(text),
			OverlapWithPrev: 0,
		}}, nil
	}

	stride := f.chunkSize - f.overlap
	var frags []models.Fragment

	for pos := 0; pos < total; pos += stride {
		startTok := 0
		if pos > 0 {
			startTok = pos - f.overlap
		}
		endTok := pos + f.chunkSize
		if endTok > total {
			endTok = total
		}

		start := snapStart(text, estimateChar(startTok, total, len(text)))
		end := snapEnd(text, estimateChar(endTok, total, len(text)))
		if start > end {
			start = end
		}

		piece := strings.TrimSpace(text[start:end])
		if piece == "" {
			// Empty window: emit nothing, keep advancing.
			continue
		}

		// The interpolated offsets are a heuristic, so the true token
		// count comes from re-encoding the snapped text.
		pieceTokens, err := tok.Encode(piece)
		if err != nil {
			return nil, fmt.Errorf("tokenize fragment: %w", err)
		}

		overlapWithPrev := f.overlap
		if len(frags) == 0 {
			overlapWithPrev = 0
		}
		frags = append(frags, models.Fragment{
			Text:            piece,
			Index:           len(frags),
			TokenCount:      len(pieceTokens),
			StartChar:       start,
			EndChar:         end,
			OverlapWithPrev: overlapWithPrev,
		})
	}

	for i := range frags {
		frags[i].Total = len(frags)
	}
	return frags, nil
}

// estimateChar maps a token offset to a character offset by linear
// interpolation. The result is approximate by design; snapping to word
// boundaries absorbs the imprecision.
func estimateChar(tokIdx, totalTokens, textLen int) int {
	c := int(math.Round(float64(tokIdx) / float64(totalTokens) * float64(textLen)))
	if c < 0 {
		return 0
	}
	if c > textLen {
		return textLen
	}
	return c
}

// snapStart backtracks to the nearest preceding whitespace or
// punctuation boundary, never past position 0.
func snapStart(text string, pos int) int {
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	for pos > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:pos])
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			break
		}
		pos -= utf8.RuneLen(r)
	}
	return pos
}

// snapEnd advances to the nearest following whitespace boundary, never
// past the end of the text.
func snapEnd(text string, pos int) int {
	if pos > len(text) {
		pos = len(text)
	}
	for pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos++
	}
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	return pos
}
