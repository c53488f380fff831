package embeddings

import (
	"time"
)

// EmbeddingDimensions is the dimensionality of all generated vectors.
const EmbeddingDimensions = 384

// ModelConfig contains embedding service configuration
type ModelConfig struct {
	ModelName    string        `yaml:"model_name" mapstructure:"model_name"`       // "deterministic-hash-v1"
	MaxLength    int           `yaml:"max_length" mapstructure:"max_length"`       // 512
	BatchSize    int           `yaml:"batch_size" mapstructure:"batch_size"`       // 32
	ModelTimeout time.Duration `yaml:"model_timeout" mapstructure:"model_timeout"` // 30s
}

// EmbeddingResult represents the result of embedding generation
type EmbeddingResult struct {
	Embedding   []float32     `json:"embedding"`
	Duration    time.Duration `json:"duration"`
	TokenCount  int           `json:"token_count"`
	Features    *TextFeatures `json:"features,omitempty"`
	ServiceType string        `json:"service_type"`
}

// BatchEmbeddingResult represents the result of batch embedding generation
type BatchEmbeddingResult struct {
	Embeddings  [][]float32   `json:"embeddings"`
	Duration    time.Duration `json:"duration"`
	TotalTokens int           `json:"total_tokens"`
	Successful  int           `json:"successful"`
	Failed      int           `json:"failed"`
	Errors      []error       `json:"errors,omitempty"`
	ServiceType string        `json:"service_type"`
}

// TextFeatures captures coarse lexical characteristics of a text. They feed
// the tail dimensions of the embedding so that texts with similar shape land
// near each other even when their token hashes differ.
type TextFeatures struct {
	Length              int     `json:"length"`
	WordCount           int     `json:"word_count"`
	AvgWordLength       float32 `json:"avg_word_length"`
	DigitRatio          float32 `json:"digit_ratio"`
	CapitalizationRatio float32 `json:"capitalization_ratio"`
	QuestionRatio       float32 `json:"question_ratio"`
	SentenceCount       int     `json:"sentence_count"`
	Entropy             float32 `json:"entropy"`
}

// ModelStats represents service performance statistics
type ModelStats struct {
	TotalInferences   int64         `json:"total_inferences"`
	TotalTokens       int64         `json:"total_tokens"`
	SuccessfulRuns    int64         `json:"successful_runs"`
	FailedRuns        int64         `json:"failed_runs"`
	AvgInferenceTime  time.Duration `json:"avg_inference_time"`
	AvgTokensPerText  float64       `json:"avg_tokens_per_text"`
	ModelLoadTime     time.Duration `json:"model_load_time"`
	LastInferenceTime time.Time     `json:"last_inference_time"`
	ErrorRate         float64       `json:"error_rate"`
	ServiceType       string        `json:"service_type"`
	StartTime         time.Time     `json:"start_time"`
}

// EmbeddingError defines a typed embedding failure
type EmbeddingError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *EmbeddingError) Error() string {
	return e.Message
}

// Common error types
var (
	ErrInvalidInput = &EmbeddingError{Type: "invalid_input", Message: "invalid input text", Code: 1001}
	ErrConfigError  = &EmbeddingError{Type: "config_error", Message: "configuration error", Code: 1002}
	ErrTimeoutError = &EmbeddingError{Type: "timeout_error", Message: "operation timed out", Code: 1003}
)
