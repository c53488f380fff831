package vector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Store handles dataset chunk storage with PostgreSQL + pgvector
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// NewStore creates a new chunk store instance
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Chunk store initialized successfully",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

// initialize checks the connection, verifies pgvector, and ensures the schema
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var extensionExists bool
	query := "SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')"
	if err := s.db.GetContext(ctx, &extensionExists, query); err != nil {
		return fmt.Errorf("failed to check pgvector extension: %w", err)
	}

	if !extensionExists {
		return fmt.Errorf("pgvector extension is not installed")
	}

	schema := `
		CREATE TABLE IF NOT EXISTS dataset_chunks (
			id BIGSERIAL PRIMARY KEY,
			dataset_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			text TEXT NOT NULL,
			text_hash TEXT NOT NULL UNIQUE,
			embedding vector(384) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure dataset_chunks table: %w", err)
	}

	s.logger.Info("Database initialized with pgvector extension")
	return nil
}

// Insert adds a new dataset chunk to the database
func (s *Store) Insert(ctx context.Context, chunk *ChunkVector) error {
	query := `
		INSERT INTO dataset_chunks (dataset_id, kind, text, text_hash, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	embeddingStr := formatEmbedding(chunk.Embedding)

	err := s.db.QueryRowContext(ctx, query,
		chunk.DatasetID,
		chunk.Kind,
		chunk.Text,
		chunk.TextHash,
		embeddingStr,
	).Scan(&chunk.ID, &chunk.CreatedAt, &chunk.UpdatedAt)

	if err != nil {
		s.logger.Error("Failed to insert chunk",
			zap.Error(err),
			zap.String("dataset_id", chunk.DatasetID),
			zap.String("kind", chunk.Kind))
		return fmt.Errorf("failed to insert chunk: %w", err)
	}

	s.logger.Debug("Chunk inserted successfully",
		zap.Int64("id", chunk.ID),
		zap.String("dataset_id", chunk.DatasetID))

	return nil
}

// BatchInsert adds multiple dataset chunks efficiently
func (s *Store) BatchInsert(ctx context.Context, chunks []*ChunkVector) (*BatchInsertResult, error) {
	if len(chunks) == 0 {
		return &BatchInsertResult{}, nil
	}

	start := time.Now()
	result := &BatchInsertResult{}

	valueStrings := make([]string, 0, len(chunks))
	valueArgs := make([]interface{}, 0, len(chunks)*5)

	for i, chunk := range chunks {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", i*5+1, i*5+2, i*5+3, i*5+4, i*5+5))
		valueArgs = append(valueArgs,
			chunk.DatasetID,
			chunk.Kind,
			chunk.Text,
			chunk.TextHash,
			formatEmbedding(chunk.Embedding),
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO dataset_chunks (dataset_id, kind, text, text_hash, embedding)
		VALUES %s
		ON CONFLICT (text_hash) DO NOTHING`,
		strings.Join(valueStrings, ","))

	res, err := s.db.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		result.Failed = int64(len(chunks))
		result.Errors = []error{err}
		s.logger.Error("Batch insert failed", zap.Error(err))
		return result, fmt.Errorf("batch insert failed: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("Could not get rows affected", zap.Error(err))
		inserted = int64(len(chunks))
	}

	result.Inserted = inserted
	result.Duration = time.Since(start)

	s.logger.Info("Batch insert completed",
		zap.Int64("inserted", result.Inserted),
		zap.Int64("duplicates_skipped", int64(len(chunks))-inserted),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// FindSimilar finds chunks similar to the given embedding
func (s *Store) FindSimilar(ctx context.Context, embedding []float32, options *SearchOptions) ([]*SimilarityResult, error) {
	if options == nil {
		options = &SearchOptions{
			Limit:         5,
			MinSimilarity: 0.7,
		}
	}

	embeddingStr := formatEmbedding(embedding)

	whereClause := "WHERE (1 - (embedding <=> $1)) >= $2"
	args := []interface{}{embeddingStr, options.MinSimilarity}
	argIndex := 3

	if options.DatasetFilter != "" {
		whereClause += fmt.Sprintf(" AND dataset_id = $%d", argIndex)
		args = append(args, options.DatasetFilter)
		argIndex++
	}

	if options.KindFilter != "" {
		whereClause += fmt.Sprintf(" AND kind = $%d", argIndex)
		args = append(args, options.KindFilter)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT
			id, dataset_id, kind, text, embedding,
			created_at, updated_at,
			(1 - (embedding <=> $1)) as similarity,
			(embedding <=> $1) as distance
		FROM dataset_chunks
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d`, whereClause, argIndex)

	args = append(args, options.Limit)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Similarity search failed", zap.Error(err))
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var results []*SimilarityResult
	for rows.Next() {
		var result SimilarityResult
		var chunk ChunkVector
		var embeddingStr string

		err := rows.Scan(
			&chunk.ID,
			&chunk.DatasetID,
			&chunk.Kind,
			&chunk.Text,
			&embeddingStr,
			&chunk.CreatedAt,
			&chunk.UpdatedAt,
			&result.Similarity,
			&result.Distance,
		)
		if err != nil {
			s.logger.Error("Failed to scan similarity result", zap.Error(err))
			continue
		}

		chunk.Embedding, err = parseEmbedding(embeddingStr)
		if err != nil {
			s.logger.Error("Failed to parse embedding", zap.Error(err))
			continue
		}

		result.Chunk = &chunk
		results = append(results, &result)
	}

	searchDuration := time.Since(start)
	s.logger.Debug("Similarity search completed",
		zap.Int("results", len(results)),
		zap.Duration("duration", searchDuration),
		zap.Float32("min_similarity", options.MinSimilarity))

	return results, nil
}

// DeleteDataset removes all chunks belonging to a dataset
func (s *Store) DeleteDataset(ctx context.Context, datasetID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM dataset_chunks WHERE dataset_id = $1", datasetID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete dataset chunks: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	s.logger.Info("Dataset chunks deleted",
		zap.String("dataset_id", datasetID),
		zap.Int64("deleted", deleted))

	return deleted, nil
}

// GetStats returns database statistics
func (s *Store) GetStats(ctx context.Context) (*IndexStats, error) {
	stats := &IndexStats{}

	query := `
		SELECT
			COUNT(*) as total,
			COUNT(DISTINCT dataset_id) as datasets,
			COUNT(CASE WHEN kind = 'schema' THEN 1 END) as schema_chunks,
			COUNT(CASE WHEN kind = 'rows' THEN 1 END) as row_chunks
		FROM dataset_chunks`

	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalChunks,
		&stats.DatasetCount,
		&stats.SchemaChunks,
		&stats.RowChunks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk stats: %w", err)
	}

	return stats, nil
}

// CreateIndex creates the vector similarity index for better performance
func (s *Store) CreateIndex(ctx context.Context) error {
	// Only create index if we have enough chunks
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM dataset_chunks"); err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	if count < 1000 {
		s.logger.Info("Skipping index creation, not enough chunks", zap.Int64("count", count))
		return nil
	}

	s.logger.Info("Creating vector similarity index...", zap.Int64("chunk_count", count))

	query := `
		CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_dataset_chunks_embedding
		ON dataset_chunks USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	s.logger.Info("Vector similarity index created successfully")
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Helper functions

// formatEmbedding converts float32 slice to PostgreSQL vector format
func formatEmbedding(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}

	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseEmbedding converts PostgreSQL vector format back to float32 slice
func parseEmbedding(embeddingStr string) ([]float32, error) {
	embeddingStr = strings.Trim(embeddingStr, "[]")
	if embeddingStr == "" {
		return []float32{}, nil
	}

	parts := strings.Split(embeddingStr, ",")
	embedding := make([]float32, len(parts))

	for i, part := range parts {
		var val float32
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%g", &val); err != nil {
			return nil, fmt.Errorf("failed to parse embedding value: %w", err)
		}
		embedding[i] = val
	}

	return embedding, nil
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
