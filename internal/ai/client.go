package ai

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
)

// Client provides embedding and answer-generation capabilities.
// Generation is treated as unreliable: callers wrap it with a guarded
// retry-and-fallback policy.
type Client interface {
	Embed(text string) ([]float32, error)
	Generate(ctx context.Context, question, contextText string) (string, error)
	Dim() int
}

// Provider is enumeration of supported AI providers
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderVertexAI Provider = "vertexai"
	ProviderStub     Provider = "stub"
)

// ClientConfig holds configuration for AI clients
type ClientConfig struct {
	APIKey      string
	EmbedModel  string
	AnswerModel string
	Dim         int
	ProjectID   string
	Provider    Provider
	Location    string
}

// NewClient creates a new AI client based on configuration
func NewClient(config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	ctx := context.Background()
	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config), nil
	case ProviderVertexAI:
		return NewVertexAIClient(ctx, config)
	case ProviderStub:
		return NewStubClient(config.Dim), nil
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}
}

// answerPrompt frames a retrieval-grounded question for the model.
func answerPrompt(question, contextText string) string {
	return "Answer the question using only the provided notes. " +
		"If the notes do not contain the answer, reply exactly: " +
		"no relevant information found.\n\nNotes:\n" + contextText +
		"\n\nQuestion: " + question
}

// StubClient is a deterministic implementation of the Client interface
// for tests and offline runs.
type StubClient struct {
	dim int
}

// NewStubClient creates a new StubClient
func NewStubClient(dim int) *StubClient {
	if dim <= 0 {
		dim = 8
	}
	return &StubClient{dim: dim}
}

// Embed returns a deterministic pseudo-embedding derived from the text.
func (s *StubClient) Embed(text string) ([]float32, error) {
	vec := make([]float32, s.dim)
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000) / 1000
	}
	return vec, nil
}

// Generate echoes a short grounded answer for testing.
func (s *StubClient) Generate(ctx context.Context, question, contextText string) (string, error) {
	if strings.TrimSpace(contextText) == "" {
		return "no relevant information found", nil
	}
	return fmt.Sprintf("Based on your saved notes, here is what was found for %q: %s",
		strings.TrimSpace(question), firstLine(contextText)), nil
}

// Dim returns the embedding dimension
func (s *StubClient) Dim() int {
	return s.dim
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 240 {
		s = s[:240]
	}
	return s
}
