package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/anonymizer"
	"github.com/raaihank/data-sentinel/internal/dataset"
	"github.com/raaihank/data-sentinel/internal/embeddings"
	"github.com/raaihank/data-sentinel/internal/vector"
)

// Indexer chunks datasets into text descriptions, embeds them, and stores
// the chunks in the vector store for semantic search. When AnonymizeFirst
// is set, datasets are anonymized before any text leaves the process.
type Indexer struct {
	store         *vector.Store
	embedder      embeddings.EmbeddingService
	newAnonymizer func() *anonymizer.Anonymizer
	config        *Config
	logger        *zap.Logger
}

// New creates an indexing pipeline. Anonymizer runs own per-run caches and
// must not be shared, so the pipeline takes a factory and builds a fresh one
// per indexed dataset. The factory may be nil when AnonymizeFirst is disabled.
func New(
	store *vector.Store,
	embedder embeddings.EmbeddingService,
	newAnonymizer func() *anonymizer.Anonymizer,
	config *Config,
	logger *zap.Logger,
) *Indexer {
	return &Indexer{
		store:         store,
		embedder:      embedder,
		newAnonymizer: newAnonymizer,
		config:        config,
		logger:        logger,
	}
}

// anonymizeForIndex runs a fresh anonymization pass when configured
func (ix *Indexer) anonymizeForIndex(ds *dataset.Dataset) (*dataset.Dataset, *anonymizer.Report, bool) {
	if !ix.config.AnonymizeFirst || ix.newAnonymizer == nil {
		return ds, nil, false
	}
	anonymized, report := ix.newAnonymizer().Anonymize(ds)
	return anonymized, report, true
}

// IndexFile loads a dataset file and indexes it under the given ID
func (ix *Indexer) IndexFile(ctx context.Context, datasetID, filePath string) (*Result, error) {
	ds, err := dataset.LoadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	return ix.IndexDataset(ctx, datasetID, ds)
}

// IndexDataset chunks, embeds, and stores a dataset
func (ix *Indexer) IndexDataset(ctx context.Context, datasetID string, ds *dataset.Dataset) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	ix.logger.Info("Starting indexing pipeline",
		zap.String("dataset_id", datasetID),
		zap.Int("rows", ds.NumRows()),
		zap.Int("columns", ds.NumColumns()),
		zap.Int("chunk_rows", ix.config.ChunkRows),
		zap.Int("batch_size", ix.config.BatchSize))

	start := time.Now()
	result := &Result{DatasetID: datasetID}

	if anonymized, report, ok := ix.anonymizeForIndex(ds); ok {
		ds = anonymized
		result.Anonymized = true
		ix.logger.Info("Dataset anonymized before indexing",
			zap.String("dataset_id", datasetID),
			zap.Strings("columns_removed", report.ColumnsRemoved),
			zap.Strings("columns_redacted", report.ColumnsRedacted))
	}

	chunks := ix.buildChunks(datasetID, ds)
	result.TotalChunks = int64(len(chunks))

	// Embed and store in batches
	batchSize := ix.config.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	for i := 0; i < len(chunks); i += batchSize {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, chunk := range batch {
			texts[j] = chunk.Text
		}

		embeddingStart := time.Now()
		embeddingResult, err := ix.embedder.GenerateBatchEmbeddings(ctx, texts)
		if err != nil {
			result.Failed += int64(len(batch))
			result.Errors = append(result.Errors, err.Error())
			ix.logger.Error("Batch embedding generation failed", zap.Error(err))
			continue
		}
		result.EmbeddingTime += time.Since(embeddingStart)

		if len(embeddingResult.Embeddings) != len(batch) {
			result.Failed += int64(len(batch))
			result.Errors = append(result.Errors, fmt.Sprintf(
				"embedding count mismatch: got %d, expected %d",
				len(embeddingResult.Embeddings), len(batch)))
			continue
		}

		for j, chunk := range batch {
			chunk.Embedding = embeddingResult.Embeddings[j]
		}

		dbStart := time.Now()
		batchResult, err := ix.store.BatchInsert(ctx, batch)
		if err != nil {
			result.Failed += int64(len(batch))
			result.Errors = append(result.Errors, err.Error())
			ix.logger.Error("Batch insert failed", zap.Error(err))
			continue
		}
		result.DatabaseTime += time.Since(dbStart)
		result.Inserted += batchResult.Inserted
	}

	result.Duration = time.Since(start)

	if ix.config.CreateIndex && result.Inserted > 1000 {
		ix.logger.Info("Creating vector similarity index...")
		if err := ix.store.CreateIndex(ctx); err != nil {
			ix.logger.Warn("Failed to create vector index", zap.Error(err))
		}
	}

	ix.logger.Info("Indexing pipeline completed",
		zap.String("dataset_id", datasetID),
		zap.Int64("total_chunks", result.TotalChunks),
		zap.Int64("inserted", result.Inserted),
		zap.Int64("failed", result.Failed),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("embedding_time", result.EmbeddingTime),
		zap.Duration("database_time", result.DatabaseTime))

	return result, nil
}

// Search finds indexed chunks semantically similar to the query
func (ix *Indexer) Search(ctx context.Context, query string, datasetID string, limit int) ([]*SearchHit, error) {
	embeddingResult, err := ix.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if limit <= 0 {
		limit = 5
	}

	results, err := ix.store.FindSimilar(ctx, embeddingResult.Embedding, &vector.SearchOptions{
		Limit:         limit,
		MinSimilarity: 0.3,
		DatasetFilter: datasetID,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	hits := make([]*SearchHit, len(results))
	for i, r := range results {
		hits[i] = &SearchHit{
			DatasetID:  r.Chunk.DatasetID,
			Kind:       r.Chunk.Kind,
			Text:       r.Chunk.Text,
			Similarity: r.Similarity,
		}
	}

	return hits, nil
}

// buildChunks renders a dataset into schema, column, and row chunks
func (ix *Indexer) buildChunks(datasetID string, ds *dataset.Dataset) []*vector.ChunkVector {
	var chunks []*vector.ChunkVector

	add := func(kind, text string) {
		chunks = append(chunks, &vector.ChunkVector{
			DatasetID: datasetID,
			Kind:      kind,
			Text:      text,
			TextHash:  computeTextHash(datasetID + ":" + text),
		})
	}

	// Schema chunk describing the overall shape
	var schema strings.Builder
	fmt.Fprintf(&schema, "Dataset %s with %d rows and %d columns.", datasetID, ds.NumRows(), ds.NumColumns())
	for _, col := range ds.Columns() {
		kind := "text"
		if col.IsNumeric() {
			kind = "numeric"
		}
		fmt.Fprintf(&schema, " Column %q (%s).", col.Name, kind)
	}
	add(vector.KindSchema, schema.String())

	// One chunk per column with summary statistics
	for _, col := range ds.Columns() {
		var b strings.Builder
		if col.IsNumeric() {
			values := col.Floats()
			if len(values) > 0 {
				minV, maxV := values[0], values[0]
				var sum float64
				for _, v := range values {
					sum += v
					if v < minV {
						minV = v
					}
					if v > maxV {
						maxV = v
					}
				}
				fmt.Fprintf(&b, "Column %q is numeric with %d values, mean %.4g, min %.4g, max %.4g.",
					col.Name, len(values), sum/float64(len(values)), minV, maxV)
			} else {
				fmt.Fprintf(&b, "Column %q is numeric with no values.", col.Name)
			}
		} else {
			values := col.Strings()
			seen := make(map[string]struct{}, len(values))
			for _, v := range values {
				seen[v] = struct{}{}
			}
			fmt.Fprintf(&b, "Column %q is textual with %d values and %d distinct values.",
				col.Name, len(values), len(seen))
		}
		add(vector.KindColumn, b.String())
	}

	// Row chunks, each covering ChunkRows rows rendered as name=value lines
	chunkRows := ix.config.ChunkRows
	if chunkRows <= 0 {
		chunkRows = 100
	}

	names := ds.ColumnNames()
	for startRow := 0; startRow < ds.NumRows(); startRow += chunkRows {
		endRow := startRow + chunkRows
		if endRow > ds.NumRows() {
			endRow = ds.NumRows()
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Rows %d to %d of dataset %s.\n", startRow, endRow-1, datasetID)
		for row := startRow; row < endRow; row++ {
			parts := make([]string, 0, len(names))
			for _, name := range names {
				col := ds.Column(name)
				if row >= len(col.Values) || col.Values[row] == nil {
					continue
				}
				parts = append(parts, fmt.Sprintf("%s=%v", name, col.Values[row]))
			}
			b.WriteString(strings.Join(parts, ", "))
			b.WriteByte('\n')
		}
		add(vector.KindRows, b.String())
	}

	return chunks
}

// computeTextHash computes SHA-256 hash of the given text
func computeTextHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
