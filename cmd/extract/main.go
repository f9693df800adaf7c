package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clinical-extract/internal/config"
	"clinical-extract/internal/db"
	"clinical-extract/internal/extract"
	"clinical-extract/internal/fewshot"
	"clinical-extract/internal/llm"
	"clinical-extract/internal/notes"
	"clinical-extract/internal/runner"
	"clinical-extract/internal/sink"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := flag.String("config", defaultConfigPath, "Path to the YAML config file")
	model := flag.String("model", "", "Model identifier to request")
	out := flag.String("out", "", "Path of the output JSONL file")
	notesPath := flag.String("notes", "", "Path of the input notes JSONL file")
	promptTemplate := flag.String("prompt-template", "", "Prompt template with rules & example (injects the note text)")
	endpoint := flag.String("endpoint", "", "OpenAI-compatible endpoint base URL")
	apiKey := flag.String("api-key", "", "Bearer token for the endpoint")
	limit := flag.Int("limit", 0, "Read only the first N notes (0 = all)")
	batchSize := flag.Int("batch-size", 0, "Concurrent requests per batch")
	maxTokens := flag.Int("max-tokens", 0, "Maximum output tokens per request")
	temperature := flag.Float64("temperature", 0, "Sampling temperature")
	timeout := flag.Int("timeout", 0, "Per-request timeout in seconds")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	// flags set on the command line win over file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.Model = *model
		case "out":
			cfg.Out = *out
		case "notes":
			cfg.Notes = *notesPath
		case "prompt-template":
			cfg.PromptTemplate = *promptTemplate
		case "endpoint":
			cfg.Endpoint = *endpoint
		case "api-key":
			cfg.APIKey = *apiKey
		case "limit":
			cfg.Limit = *limit
		case "batch-size":
			cfg.BatchSize = *batchSize
		case "max-tokens":
			cfg.MaxTokens = *maxTokens
		case "temperature":
			cfg.Temperature = *temperature
		case "timeout":
			cfg.TimeoutSeconds = *timeout
		}
	})

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if cfg.Model == "" {
		log.Fatal().Msg("Missing model (use -model or the config file)")
	}
	if cfg.Out == "" {
		log.Fatal().Msg("Missing output path (use -out or the config file)")
	}

	ctx := context.Background()

	items, err := notes.Read(cfg.Notes, cfg.Limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading notes")
	}
	if len(items) == 0 {
		log.Fatal().Str("notes", cfg.Notes).Msg("No items to process")
	}

	template, err := notes.LoadTemplate(cfg.PromptTemplate)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading prompt template")
	}

	client, err := llm.NewClient(llm.Options{
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing completion client")
	}

	var examples extract.Retriever
	if cfg.FewShot.Examples != "" {
		embedder, err := llm.NewEmbedder(cfg.Endpoint, cfg.APIKey, cfg.FewShot.EmbeddingModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing embedder")
		}
		store, err := fewshot.Open(cfg.FewShot.Path, embedder, cfg.FewShot.TopK)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening example store")
		}
		if err := store.Index(ctx, cfg.FewShot.Examples); err != nil {
			log.Fatal().Err(err).Msg("Error indexing examples")
		}
		examples = store
	}

	jsonl, err := sink.NewJSONL(cfg.Out)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening output")
	}
	writer := sink.Writer(jsonl)

	if cfg.Database.DSN != "" {
		bunDB := db.New(db.Connect(cfg.Database.DSN), cfg.Database.Debug)
		if err := db.Init(ctx, bunDB); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		writer = sink.NewMulti(jsonl, db.NewSink(bunDB, cfg.Model))
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing output")
		}
	}()

	extractor := extract.NewExtractor(client, template, examples)

	log.Info().
		Str("model", cfg.Model).
		Str("endpoint", cfg.Endpoint).
		Int("items", len(items)).
		Int("batch_size", cfg.BatchSize).
		Msg("starting extraction")

	if err := runner.New(extractor, writer, cfg.BatchSize).Process(ctx, items); err != nil {
		log.Fatal().Err(err).Msg("Extraction run failed")
	}
}
