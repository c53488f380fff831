package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/anonymizer"
	"github.com/raaihank/data-sentinel/internal/cache"
	"github.com/raaihank/data-sentinel/internal/config"
	"github.com/raaihank/data-sentinel/internal/embeddings"
	"github.com/raaihank/data-sentinel/internal/indexer"
	"github.com/raaihank/data-sentinel/internal/logger"
	"github.com/raaihank/data-sentinel/internal/vector"
)

func main() {
	var (
		configPath    = flag.String("config", "configs/default.yaml", "Configuration file path")
		inputFile     = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSON)")
		datasetID     = flag.String("dataset-id", "", "Dataset identifier (defaults to the file name)")
		chunkRows     = flag.Int("chunk-rows", 100, "Rows per indexed chunk")
		batchSize     = flag.Int("batch-size", 32, "Embedding batch size")
		skipAnonymize = flag.Bool("skip-anonymize", false, "Index raw values without anonymizing first")
		skipIndex     = flag.Bool("skip-index", false, "Skip creating the vector index")
		searchQuery   = flag.String("search", "", "Run a semantic search instead of indexing")
		searchLimit   = flag.Int("limit", 5, "Maximum search results")
		showStats     = flag.Bool("stats", false, "Show vector store statistics and exit")
		flushCache    = flag.Bool("flush-cache", false, "Clear the semantic answer cache and exit")
	)
	flag.Parse()

	if *inputFile == "" && *searchQuery == "" && !*showStats && !*flushCache {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input sales.csv --dataset-id sales-2024\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input customers.parquet --skip-anonymize\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --search \"average revenue per region\" --dataset-id sales-2024\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --flush-cache\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting data-sentinel ingest",
		zap.String("version", "0.1.0"),
		zap.String("config", *configPath))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	// Cache maintenance does not need the vector store or embedder.
	if *flushCache {
		if err := flushAnswerCache(ctx, cfg, log); err != nil {
			log.Fatal("Failed to flush answer cache", zap.Error(err))
		}
		log.Info("Answer cache cleared")
		return
	}

	ixConfig := &indexer.Config{
		ChunkRows:      *chunkRows,
		BatchSize:      *batchSize,
		AnonymizeFirst: cfg.Indexer.AnonymizeFirst && !*skipAnonymize,
		CreateIndex:    cfg.Indexer.CreateIndex && !*skipIndex,
	}

	svc, err := initializeServices(cfg, ixConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer svc.cleanup()

	switch {
	case *showStats:
		if err := showStoreStats(ctx, svc); err != nil {
			log.Fatal("Failed to show stats", zap.Error(err))
		}
	case *searchQuery != "":
		if err := runSearch(ctx, svc, *searchQuery, *datasetID, *searchLimit); err != nil {
			log.Fatal("Search failed", zap.Error(err))
		}
	default:
		id := *datasetID
		if id == "" {
			id = datasetIDFromPath(*inputFile)
		}
		if err := ingestFile(ctx, svc, id, *inputFile, log); err != nil {
			log.Fatal("Ingest failed", zap.Error(err))
		}
	}

	log.Info("Ingest completed successfully")
}

// services holds all initialized services
type services struct {
	store    *vector.Store
	embedder embeddings.EmbeddingService
	indexer  *indexer.Indexer
}

func (s *services) cleanup() {
	if s.embedder != nil {
		s.embedder.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

func initializeServices(cfg *config.Config, ixConfig *indexer.Config, log *logger.Logger) (*services, error) {
	svc := &services{}

	log.Info("Connecting to vector store...")
	store, err := vector.NewStore(&vector.Config{
		DatabaseURL:     cfg.Vector.DatabaseURL,
		MaxOpenConns:    cfg.Vector.MaxOpenConns,
		MaxIdleConns:    cfg.Vector.MaxIdleConns,
		ConnMaxLifetime: cfg.Vector.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Vector.ConnMaxIdleTime,
	}, log.WithComponent("vector").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	svc.store = store

	embedder, err := embeddings.NewHashService(&embeddings.ModelConfig{
		ModelName: "deterministic-hash-v1",
		MaxLength: 512,
		BatchSize: ixConfig.BatchSize,
	}, log.WithComponent("embeddings").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding service: %w", err)
	}
	svc.embedder = embedder

	var newAnon func() *anonymizer.Anonymizer
	if ixConfig.AnonymizeFirst {
		compiled, err := anonymizer.Compile(cfg.Anonymizer)
		if err != nil {
			return nil, fmt.Errorf("invalid anonymizer configuration: %w", err)
		}
		ner := anonymizer.NewNERBackend(log.WithComponent("ner").Logger, cfg.Anonymizer.NERModelPath)
		anonLogger := log.WithComponent("anonymizer").Logger
		newAnon = func() *anonymizer.Anonymizer {
			return anonymizer.New(compiled, ner, anonLogger)
		}
	}

	svc.indexer = indexer.New(store, embedder, newAnon, ixConfig, log.WithComponent("indexer").Logger)
	return svc, nil
}

// ingestFile indexes a single dataset file
func ingestFile(ctx context.Context, svc *services, datasetID, inputFile string, log *logger.Logger) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	log.Info("Indexing dataset",
		zap.String("file", inputFile),
		zap.String("dataset_id", datasetID))

	result, err := svc.indexer.IndexFile(ctx, datasetID, inputFile)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	log.Info("Dataset indexed",
		zap.String("dataset_id", result.DatasetID),
		zap.Int64("total_chunks", result.TotalChunks),
		zap.Int64("inserted", result.Inserted),
		zap.Int64("failed", result.Failed),
		zap.Bool("anonymized", result.Anonymized),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("embedding_time", result.EmbeddingTime),
		zap.Duration("database_time", result.DatabaseTime))

	if len(result.Errors) > 0 {
		log.Warn("Indexing completed with errors", zap.Strings("errors", result.Errors))
	}

	return nil
}

// runSearch executes a semantic search against indexed chunks
func runSearch(ctx context.Context, svc *services, query, datasetID string, limit int) error {
	hits, err := svc.indexer.Search(ctx, query, datasetID, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("No matching chunks found")
		return nil
	}

	fmt.Printf("\n=== Search Results (%d) ===\n", len(hits))
	for i, hit := range hits {
		fmt.Printf("%d. [%.3f] dataset=%s kind=%s\n   %s\n", i+1, hit.Similarity, hit.DatasetID, hit.Kind, hit.Text)
	}
	return nil
}

// showStoreStats displays vector store statistics
func showStoreStats(ctx context.Context, svc *services) error {
	stats, err := svc.store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get store stats: %w", err)
	}

	fmt.Printf("\n=== Data-Sentinel Vector Store Statistics ===\n")
	fmt.Printf("Total Chunks:       %d\n", stats.TotalChunks)
	fmt.Printf("Datasets:           %d\n", stats.DatasetCount)
	fmt.Printf("Schema Chunks:      %d\n", stats.SchemaChunks)
	fmt.Printf("Row Chunks:         %d\n", stats.RowChunks)
	fmt.Printf("Avg Search Time:    %.2f ms\n", stats.AvgSearchTimeMs)

	embeddingStats := svc.embedder.GetStats()
	fmt.Printf("\n=== Embedding Service Statistics ===\n")
	fmt.Printf("Total Inferences:   %d\n", embeddingStats.TotalInferences)
	fmt.Printf("Total Tokens:       %d\n", embeddingStats.TotalTokens)
	fmt.Printf("Avg Inference Time: %v\n", embeddingStats.AvgInferenceTime)
	fmt.Printf("Avg Tokens/Text:    %.1f\n", embeddingStats.AvgTokensPerText)

	return nil
}

// flushAnswerCache clears every cached answer under the configured key prefix
func flushAnswerCache(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	answerCache, err := cache.NewAnswerCache(&cache.Config{
		RedisURL:       cfg.Cache.RedisURL,
		MaxConnections: cfg.Cache.MaxConnections,
		MinIdleConns:   cfg.Cache.MinIdleConns,
		DefaultTTL:     cfg.Cache.DefaultTTL,
		KeyPrefix:      cfg.Cache.KeyPrefix,
		MinSimilarity:  cfg.Cache.MinSimilarity,
	}, log.WithComponent("cache").Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to answer cache: %w", err)
	}
	defer answerCache.Close()

	return answerCache.Clear(ctx)
}

// datasetIDFromPath derives a dataset ID from a file path
func datasetIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
