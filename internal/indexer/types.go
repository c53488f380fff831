package indexer

import (
	"time"
)

// Config contains indexing pipeline configuration
type Config struct {
	ChunkRows      int  `yaml:"chunk_rows" mapstructure:"chunk_rows"`           // 100
	BatchSize      int  `yaml:"batch_size" mapstructure:"batch_size"`           // 32
	AnonymizeFirst bool `yaml:"anonymize_first" mapstructure:"anonymize_first"` // true
	CreateIndex    bool `yaml:"create_index" mapstructure:"create_index"`       // true
	ProgressReport int  `yaml:"progress_report" mapstructure:"progress_report"` // 1000
}

// Result represents the outcome of indexing a dataset
type Result struct {
	DatasetID     string        `json:"dataset_id"`
	TotalChunks   int64         `json:"total_chunks"`
	Inserted      int64         `json:"inserted"`
	Failed        int64         `json:"failed"`
	Anonymized    bool          `json:"anonymized"`
	Duration      time.Duration `json:"duration"`
	EmbeddingTime time.Duration `json:"embedding_time"`
	DatabaseTime  time.Duration `json:"database_time"`
	Errors        []string      `json:"errors,omitempty"`
}

// SearchHit is one chunk returned by a semantic search
type SearchHit struct {
	DatasetID  string  `json:"dataset_id"`
	Kind       string  `json:"kind"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
}
