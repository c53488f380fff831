package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/raaihank/data-sentinel/internal/anonymizer"
	"github.com/raaihank/data-sentinel/internal/cache"
	"github.com/raaihank/data-sentinel/internal/chat"
	"github.com/raaihank/data-sentinel/internal/config"
	"github.com/raaihank/data-sentinel/internal/dataset"
	"github.com/raaihank/data-sentinel/internal/embeddings"
	"github.com/raaihank/data-sentinel/internal/indexer"
	"github.com/raaihank/data-sentinel/internal/intent"
	"github.com/raaihank/data-sentinel/internal/logger"
	"github.com/raaihank/data-sentinel/internal/websocket"
)

// datasetEntry is one uploaded dataset held in memory
type datasetEntry struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Rows       int              `json:"rows"`
	Columns    int              `json:"columns"`
	Anonymized bool             `json:"anonymized"`
	UploadedAt time.Time        `json:"uploaded_at"`
	data       *dataset.Dataset `json:"-"`
}

// Server is the main HTTP server. It owns the in-memory dataset registry
// and wires the anonymizer, answer engine, and indexer behind REST routes.
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	anonCfg  *anonymizer.CompiledConfig
	ner      anonymizer.NERBackend
	engine   *chat.Engine
	indexer  *indexer.Indexer
	embedder embeddings.EmbeddingService
	router   *mux.Router
	server   *http.Server
	wsHub    *websocket.Hub
	limiter  *ipRateLimiter

	mu       sync.RWMutex
	datasets map[string]*datasetEntry
	started  time.Time
}

// New creates a server instance. The indexer and answer cache may be nil
// when their backing services are disabled.
func New(cfg *config.Config, log *logger.Logger, answerCache *cache.AnswerCache, ix *indexer.Indexer) (*Server, error) {
	anonCfg, err := anonymizer.Compile(cfg.Anonymizer)
	if err != nil {
		return nil, fmt.Errorf("failed to compile anonymizer config: %w", err)
	}

	embedder, err := embeddings.NewHashService(&embeddings.ModelConfig{
		ModelName: "deterministic-hash-v1",
		MaxLength: 512,
		BatchSize: 32,
	}, log.WithComponent("embeddings").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}

	hubConfig := &websocket.HubConfig{
		BroadcastQueries:       cfg.WebSocket.Events.BroadcastQueries,
		BroadcastAnonymization: cfg.WebSocket.Events.BroadcastAnonymization,
		BroadcastSystem:        cfg.WebSocket.Events.BroadcastSystem,
		BroadcastConnections:   cfg.WebSocket.Events.BroadcastConnections,
		WebSocketUsername:      cfg.WebSocket.Username,
		WebSocketPassword:      cfg.WebSocket.Password,
	}
	wsHub := websocket.NewHub(hubConfig, log.WithComponent("websocket").Logger)

	classifier := intent.NewClassifier(log.WithComponent("intent").Logger)
	engine := chat.NewEngine(classifier, embedder, answerCache, log.WithComponent("chat").Logger)

	var limiter *ipRateLimiter
	if cfg.Server.RateLimit.Enabled {
		limiter = newIPRateLimiter(rate.Limit(cfg.Server.RateLimit.RequestsPerSec), cfg.Server.RateLimit.Burst)
	}

	server := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		anonCfg:  anonCfg,
		ner:      anonymizer.NewNERBackend(log.WithComponent("ner").Logger, cfg.Anonymizer.NERModelPath),
		engine:   engine,
		indexer:  ix,
		embedder: embedder,
		router:   mux.NewRouter(),
		wsHub:    wsHub,
		limiter:  limiter,
		datasets: make(map[string]*datasetEntry),
		started:  time.Now(),
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health and info endpoints
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// WebSocket endpoint for dashboards
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")

	// API endpoints
	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)

	api.HandleFunc("/datasets", s.handleUploadDataset).Methods("POST")
	api.HandleFunc("/datasets", s.handleListDatasets).Methods("GET")
	api.HandleFunc("/datasets/{id}", s.handleGetDataset).Methods("GET")
	api.HandleFunc("/datasets/{id}", s.handleDeleteDataset).Methods("DELETE")
	api.HandleFunc("/datasets/{id}/ask", s.handleAsk).Methods("POST")
	api.HandleFunc("/datasets/{id}/anonymize", s.handleAnonymize).Methods("POST")
	api.HandleFunc("/datasets/{id}/anonymize/preview", s.handleAnonymizePreview).Methods("POST")
	api.HandleFunc("/datasets/{id}/index", s.handleIndexDataset).Methods("POST")
	api.HandleFunc("/redact", s.handleRedact).Methods("POST")
	api.HandleFunc("/search", s.handleSearch).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting data-sentinel server",
		zap.Int("port", s.config.Server.Port),
		zap.String("mode", string(s.config.Anonymizer.Mode)),
		zap.Bool("rate_limit", s.config.Server.RateLimit.Enabled),
	)

	// Start WebSocket hub in a separate goroutine
	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping data-sentinel server")
	return s.server.Shutdown(ctx)
}

// handleWebSocket handles WebSocket connections for dashboards
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

// newAnonymizer builds a fresh anonymizer run. Runs own per-run caches and
// must not be shared.
func (s *Server) newAnonymizer() *anonymizer.Anonymizer {
	return anonymizer.New(s.anonCfg, s.ner, s.logger.WithComponent("anonymizer").Logger)
}

// getDataset returns a snapshot of a registry entry taken under the
// registry lock. The data pointer in a snapshot is safe to read because
// published tables are never mutated in place; anonymization swaps in a
// fresh copy under the lock instead.
func (s *Server) getDataset(id string) (datasetEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.datasets[id]
	if !ok {
		return datasetEntry{}, false
	}
	return *entry, true
}
