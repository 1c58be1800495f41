package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/seanblong/notesearch/internal/ai"
	"github.com/seanblong/notesearch/internal/config"
	"github.com/seanblong/notesearch/internal/retrieval"
	"github.com/seanblong/notesearch/internal/store"
	"github.com/spf13/pflag"
)

func main() {
	// Create flagset for configuration
	fs := pflag.NewFlagSet("notesearch-ask", pflag.ExitOnError)

	// Load configuration
	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(level)

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		logger.Fatal().Msg("usage: ask [flags] <question>")
	}

	// Create AI client configuration
	var clientConfig *ai.ClientConfig
	switch strings.ToLower(cfg.Provider) {
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
		log.Fatalf("unsupported provider: %s", cfg.Provider)
	}

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	c, err := ai.NewClient(clientConfig)
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}
	logger.Info().Str("provider", cfg.Provider).Int("embedding_dim", c.Dim()).
		Str("embed_model", clientConfig.EmbedModel).Msg("AI client initialized")

	svc := retrieval.NewService(c, st, cfg.TopK, cfg.MaxAnswerRetries)

	qctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	ans, err := svc.Ask(qctx, question)
	if err != nil {
		logger.Fatal().Err(err).Msg("query failed")
	}
	logger.Info().Str("action", string(ans.Action)).Str("query_type", ans.QueryType).
		Int("count", ans.Count).Dur("dur", time.Since(start)).Msg("answered")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ans); err != nil {
		logger.Fatal().Err(err).Msg("failed to encode answer")
	}
}
