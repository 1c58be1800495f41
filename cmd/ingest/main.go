package main

import (
	"context"
	"log"
	"strings"

	"github.com/seanblong/notesearch/internal/ai"
	"github.com/seanblong/notesearch/internal/config"
	"github.com/seanblong/notesearch/internal/fragmenter"
	"github.com/seanblong/notesearch/internal/ingest"
	"github.com/seanblong/notesearch/internal/store"
	"github.com/seanblong/notesearch/internal/tokenizer"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("notesearch-ingest", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	provider := strings.ToLower(cfg.Provider)
	log.Printf("using provider: %s", provider)
	var clientConfig *ai.ClientConfig
	switch provider {
	case "openai":
		clientConfig = &ai.ClientConfig{
			APIKey:      cfg.APIKey,
			EmbedModel:  cfg.EmbedModel,
			AnswerModel: cfg.AnswerModel,
			Dim:         cfg.Dim,
			ProjectID:   cfg.ProjectID,
			Provider:    ai.ProviderOpenAI,
		}
	case "vertexai", "google":
		clientConfig = &ai.ClientConfig{
			APIKey:      cfg.APIKey,
			EmbedModel:  cfg.EmbedModel,
			AnswerModel: cfg.AnswerModel,
			Dim:         cfg.Dim,
			ProjectID:   cfg.ProjectID,
			Location:    cfg.Location,
			Provider:    ai.ProviderVertexAI,
		}
	case "stub":
		clientConfig = &ai.ClientConfig{
			Dim:      cfg.Dim,
			Provider: ai.ProviderStub,
		}
	default:
		log.Fatalf("unsupported provider: %s", provider)
	}

	ctx := context.Background()

	// Initialize store
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	frag, err := fragmenter.New(
		fragmenter.Config{ChunkSizeTokens: cfg.ChunkSize, OverlapTokens: cfg.ChunkOverlap},
		func() (fragmenter.Tokenizer, error) { return tokenizer.NewWord(), nil },
	)
	if err != nil {
		log.Fatal(err)
	}

	in, err := ingest.New(st, cfg.NotesRoot, frag, clientConfig)
	if err != nil {
		log.Fatal(err)
	}

	if in.Client.Dim() == 0 {
		log.Fatal("embedding dimension must be set")
	}

	if err := st.Migrate(ctx, in.Client.Dim()); err != nil {
		log.Fatal(err)
	}

	if err := in.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
