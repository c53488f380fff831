package vector

import (
	"time"
)

// Chunk kinds stored in the index.
const (
	KindSchema = "schema"
	KindRows   = "rows"
	KindColumn = "column"
)

// ChunkVector represents an indexed dataset chunk with its embedding
type ChunkVector struct {
	ID        int64     `db:"id" json:"id"`
	DatasetID string    `db:"dataset_id" json:"dataset_id"`
	Kind      string    `db:"kind" json:"kind"`
	Text      string    `db:"text" json:"text"`
	TextHash  string    `db:"text_hash" json:"text_hash"`
	Embedding []float32 `db:"embedding" json:"embedding"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SimilarityResult represents a vector similarity search result
type SimilarityResult struct {
	Chunk      *ChunkVector `json:"chunk"`
	Similarity float32      `json:"similarity"`
	Distance   float32      `json:"distance"`
}

// SearchOptions contains options for vector similarity search
type SearchOptions struct {
	Limit         int     `json:"limit"`
	MinSimilarity float32 `json:"min_similarity"`
	DatasetFilter string  `json:"dataset_filter,omitempty"`
	KindFilter    string  `json:"kind_filter,omitempty"`
}

// IndexStats represents database statistics
type IndexStats struct {
	TotalChunks     int64   `json:"total_chunks"`
	DatasetCount    int64   `json:"dataset_count"`
	SchemaChunks    int64   `json:"schema_chunks"`
	RowChunks       int64   `json:"row_chunks"`
	AvgSearchTimeMs float64 `json:"avg_search_time_ms"`
}

// BatchInsertResult represents the result of a batch insert operation
type BatchInsertResult struct {
	Inserted int64         `json:"inserted"`
	Failed   int64         `json:"failed"`
	Duration time.Duration `json:"duration"`
	Errors   []error       `json:"errors,omitempty"`
}
