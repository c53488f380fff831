package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/anonymizer"
	"github.com/raaihank/data-sentinel/internal/cache"
	"github.com/raaihank/data-sentinel/internal/config"
	"github.com/raaihank/data-sentinel/internal/embeddings"
	"github.com/raaihank/data-sentinel/internal/indexer"
	"github.com/raaihank/data-sentinel/internal/logger"
	"github.com/raaihank/data-sentinel/internal/server"
	"github.com/raaihank/data-sentinel/internal/vector"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("data-sentinel %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled:  cfg.Logging.File.Enabled,
			Path:     cfg.Logging.File.Path,
			MaxSize:  cfg.Logging.File.MaxSize,
			MaxAge:   cfg.Logging.File.MaxAge,
			Compress: cfg.Logging.File.Compress,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting data-sentinel",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Optional semantic answer cache
	var answerCache *cache.AnswerCache
	if cfg.Cache.Enabled {
		answerCache, err = cache.NewAnswerCache(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
			MinSimilarity:  cfg.Cache.MinSimilarity,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			log.Warn("Answer cache unavailable, continuing without it", zap.Error(err))
			answerCache = nil
		} else {
			defer answerCache.Close()
		}
	}

	// Optional vector store and indexing pipeline
	var ix *indexer.Indexer
	if cfg.Vector.Enabled {
		store, err := vector.NewStore(&vector.Config{
			DatabaseURL:     cfg.Vector.DatabaseURL,
			MaxOpenConns:    cfg.Vector.MaxOpenConns,
			MaxIdleConns:    cfg.Vector.MaxIdleConns,
			ConnMaxLifetime: cfg.Vector.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Vector.ConnMaxIdleTime,
		}, log.WithComponent("vector").Logger)
		if err != nil {
			log.Fatal("Failed to connect to vector store", zap.Error(err))
		}
		defer store.Close()

		embedder, err := embeddings.NewHashService(&embeddings.ModelConfig{
			ModelName: "deterministic-hash-v1",
			MaxLength: 512,
			BatchSize: cfg.Indexer.BatchSize,
		}, log.WithComponent("embeddings").Logger)
		if err != nil {
			log.Fatal("Failed to create embedding service", zap.Error(err))
		}

		var newAnon func() *anonymizer.Anonymizer
		if cfg.Indexer.AnonymizeFirst {
			compiled, err := anonymizer.Compile(cfg.Anonymizer)
			if err != nil {
				log.Fatal("Invalid anonymizer configuration", zap.Error(err))
			}
			ner := anonymizer.NewNERBackend(log.WithComponent("ner").Logger, cfg.Anonymizer.NERModelPath)
			anonLogger := log.WithComponent("anonymizer").Logger
			newAnon = func() *anonymizer.Anonymizer {
				return anonymizer.New(compiled, ner, anonLogger)
			}
		}

		ix = indexer.New(store, embedder, newAnon, &indexer.Config{
			ChunkRows:      cfg.Indexer.ChunkRows,
			BatchSize:      cfg.Indexer.BatchSize,
			AnonymizeFirst: cfg.Indexer.AnonymizeFirst,
			CreateIndex:    cfg.Indexer.CreateIndex,
		}, log.WithComponent("indexer").Logger)
	}

	// Create HTTP server
	srv, err := server.New(cfg, log, answerCache, ix)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
