package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/retrieval-judge/internal/config"
	"github.com/jonathan/retrieval-judge/internal/db"
	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/observability"
	"github.com/jonathan/retrieval-judge/internal/pipeline"
	"github.com/jonathan/retrieval-judge/internal/retrieval"
	"github.com/jonathan/retrieval-judge/internal/schemas"
	"github.com/jonathan/retrieval-judge/internal/types"
)

// chunkSet is the on-disk input format: a query and its ranked candidates.
type chunkSet struct {
	QueryID int64         `json:"query_id,omitempty"`
	Query   string        `json:"query" validate:"required"`
	Chunks  []types.Chunk `json:"chunks" validate:"dive"`
}

// loadChunkSet reads and validates a chunk set file.
func loadChunkSet(path string) (*chunkSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk file %s: %w", path, err)
	}
	if err := schemas.Validate(schemas.ChunkSetSchema, data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var set chunkSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chunk file JSON: %w", err)
	}
	if err := validator.New().Struct(&set); err != nil {
		return nil, fmt.Errorf("invalid chunk file %s: %w", path, err)
	}
	return &set, nil
}

// writeJSON writes v as indented JSON, creating the output directory if needed.
// An empty path writes to stdout.
func writeJSON(path string, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output JSON: %w", err)
	}

	if path == "" {
		_, err := fmt.Fprintln(os.Stdout, string(out))
		return err
	}

	outputDir := filepath.Dir(path)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}

// loadConfig resolves configuration from --config, the environment and defaults.
func loadConfig() (config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// alternateProvider picks the alternate verification provider: the configured
// one, otherwise anthropic unless that is already the primary.
func alternateProvider(cfg config.Config) llm.Provider {
	if cfg.AlternateProvider != "" {
		return llm.Provider(cfg.AlternateProvider)
	}
	if llm.Provider(cfg.Provider) == llm.ProviderAnthropic {
		return llm.ProviderOpenAI
	}
	return llm.ProviderAnthropic
}

// app bundles what a command needs; close releases the database pool.
type app struct {
	cfg      config.Config
	pipeline *pipeline.Pipeline
	database *db.DB
	printer  *observability.Printer
}

func (a *app) close() {
	if a.database != nil {
		a.database.Close()
	}
}

// newApp builds the pipeline. When needDB is set a database connection is
// required; otherwise one is opened only if configured.
func newApp(ctx context.Context, needDB bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	primary, err := llm.ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	alternate := alternateProvider(cfg)

	a := &app{cfg: cfg, printer: observability.NewPrinter(os.Stdout)}
	opts := pipeline.Options{
		Primary:                 pipeline.NewClientFactory(primary, cfg.APIKeyFor(primary)),
		Alternate:               pipeline.NewClientFactory(alternate, cfg.APIKeyFor(alternate)),
		HeuristicThreshold:      cfg.SimilarityThreshold(),
		ModelThreshold:          cfg.ConfidenceThreshold(),
		MaxConcurrency:          cfg.MaxConcurrency,
		CallTimeout:             cfg.CallTimeout(),
		SubstantialContextChars: cfg.SubstantialContextChars,
		MaxSubquestions:         cfg.MaxSubquestions,
		MaxResults:              cfg.MaxResults,
	}
	if cfg.Verbose {
		opts.OnProgress = func(e pipeline.ProgressEvent) {
			log.Printf("[VERBOSE] %s: %s", e.Step, e.Message)
		}
	}

	if cfg.DatabaseURL == "" {
		if needDB {
			return nil, fmt.Errorf("database_url is required (set DATABASE_URL or database_url in config)")
		}
		a.pipeline = pipeline.New(opts)
		return a, nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		if needDB {
			return nil, err
		}
		log.Printf("[WARN] failed to connect to database, continuing without persistence: %v", err)
		a.pipeline = pipeline.New(opts)
		return a, nil
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	a.database = database
	if cfg.Verbose {
		log.Printf("[VERBOSE] Connected to database")
	}

	opts.Store = database.Judgments()
	opts.Queries = database
	if embedder, err := retrieval.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel); err == nil {
		opts.Retriever = retrieval.NewRetriever(embedder, database)
	} else if cfg.Verbose {
		log.Printf("[VERBOSE] retrieval disabled: %v", err)
	}

	a.pipeline = pipeline.New(opts)
	return a, nil
}

// parseMethod converts a --method flag value.
func parseMethod(s string) (types.Method, error) {
	switch types.Method(s) {
	case types.MethodHeuristic, types.MethodModel:
		return types.Method(s), nil
	default:
		return "", fmt.Errorf("unknown method %q (want heuristic or model)", s)
	}
}

// candidates returns the query and chunks from a chunk file or, failing
// that, by retrieving for query.
func (a *app) candidates(ctx context.Context, chunksPath, query string) (*chunkSet, error) {
	if chunksPath != "" {
		return loadChunkSet(chunksPath)
	}
	if query == "" {
		return nil, fmt.Errorf("either --chunks or --query is required")
	}
	if a.database == nil {
		return nil, fmt.Errorf("--query needs a database for retrieval")
	}
	retriever, err := a.retriever()
	if err != nil {
		return nil, err
	}
	chunks, err := retriever.Retrieve(ctx, query, a.cfg.MaxResults)
	if err != nil {
		return nil, err
	}
	return &chunkSet{Query: query, Chunks: chunks}, nil
}

func (a *app) retriever() (*retrieval.Retriever, error) {
	embedder, err := retrieval.NewOpenAIEmbedder(a.cfg.OpenAIAPIKey, a.cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	return retrieval.NewRetriever(embedder, a.database), nil
}
