package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// HashService provides fast deterministic embeddings using cryptographic
// hashing. The same text always yields the same vector, which makes it
// suitable for cache keys and reproducible similarity search without a
// model runtime.
type HashService struct {
	config    *ModelConfig
	logger    *zap.Logger
	stats     *ModelStats
	mu        sync.RWMutex
	startTime time.Time
}

// NewHashService creates a new hash-based embedding service
func NewHashService(config *ModelConfig, logger *zap.Logger) (*HashService, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", ErrConfigError)
	}

	start := time.Now()

	service := &HashService{
		config:    config,
		logger:    logger,
		startTime: start,
		stats: &ModelStats{
			ServiceType:   "hash",
			StartTime:     start,
			ModelLoadTime: time.Since(start),
		},
	}

	logger.Info("Hash embedding service initialized",
		zap.String("type", "deterministic_hash"),
		zap.String("model_name", config.ModelName),
		zap.Int("embedding_dimensions", EmbeddingDimensions))

	return service, nil
}

// GenerateEmbedding generates a deterministic embedding for text
func (s *HashService) GenerateEmbedding(ctx context.Context, text string) (*EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrInvalidInput)
	}

	start := time.Now()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: context cancelled", ErrTimeoutError)
	default:
	}

	features := extractTextFeatures(text)
	embedding := s.generateDeterministicEmbedding(text, &features)

	duration := time.Since(start)
	tokenCount := len(strings.Fields(text))

	s.updateStats(1, tokenCount, duration, true)

	return &EmbeddingResult{
		Embedding:   embedding,
		Duration:    duration,
		TokenCount:  tokenCount,
		Features:    &features,
		ServiceType: "hash",
	}, nil
}

// GenerateBatchEmbeddings generates embeddings for multiple texts
func (s *HashService) GenerateBatchEmbeddings(ctx context.Context, texts []string) (*BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return &BatchEmbeddingResult{
			ServiceType: "hash",
		}, nil
	}

	start := time.Now()
	embeddings := make([][]float32, 0, len(texts))
	totalTokens := 0
	successful := 0
	failed := 0
	var errors []error

	for i, text := range texts {
		select {
		case <-ctx.Done():
			errors = append(errors, fmt.Errorf("batch processing cancelled at item %d", i))
			failed++
			continue
		default:
		}

		if strings.TrimSpace(text) == "" {
			errors = append(errors, fmt.Errorf("empty text at index %d", i))
			failed++
			embeddings = append(embeddings, nil)
			continue
		}

		features := extractTextFeatures(text)
		embedding := s.generateDeterministicEmbedding(text, &features)
		embeddings = append(embeddings, embedding)
		totalTokens += len(strings.Fields(text))
		successful++
	}

	duration := time.Since(start)

	s.updateStats(int64(successful), totalTokens, duration, successful > 0)

	return &BatchEmbeddingResult{
		Embeddings:  embeddings,
		Duration:    duration,
		TotalTokens: totalTokens,
		Successful:  successful,
		Failed:      failed,
		Errors:      errors,
		ServiceType: "hash",
	}, nil
}

// generateDeterministicEmbedding builds the vector from three segments:
// token-hash features, whole-text hash features, and lexical features.
func (s *HashService) generateDeterministicEmbedding(text string, features *TextFeatures) []float32 {
	embedding := make([]float32, EmbeddingDimensions)

	// Token-level features (dimensions 0-256). Each token contributes to a
	// deterministic slice of the space so shared vocabulary moves texts
	// closer together.
	s.addTokenFeatures(text, embedding[:256])

	// Whole-text hash features (dimensions 256-320)
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	s.generateHashBasedFeatures(hash, embedding[256:320])

	// Lexical features (dimensions 320-384)
	s.addTextFeatures(features, embedding[320:384])

	return NormalizeEmbedding(embedding)
}

// addTokenFeatures folds per-token hashes into the target segment
func (s *HashService) addTokenFeatures(text string, target []float32) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return
	}

	weight := float32(1.0 / math.Sqrt(float64(len(tokens))))
	for _, token := range tokens {
		hash := sha256.Sum256([]byte(token))
		seed := int64(binary.BigEndian.Uint64(hash[0:8]))
		rng := rand.New(rand.NewSource(seed))

		// Each token touches 16 pseudo-random dimensions
		for i := 0; i < 16; i++ {
			idx := rng.Intn(len(target))
			target[idx] += float32(rng.NormFloat64()) * weight
		}
	}
}

// generateHashBasedFeatures creates deterministic features from hash
func (s *HashService) generateHashBasedFeatures(hash [32]byte, target []float32) {
	seeds := []int64{
		int64(binary.BigEndian.Uint64(hash[0:8])),
		int64(binary.BigEndian.Uint64(hash[8:16])),
		int64(binary.BigEndian.Uint64(hash[16:24])),
		int64(binary.BigEndian.Uint64(hash[24:32])),
	}

	segmentSize := len(target) / len(seeds)
	for i, seed := range seeds {
		rng := rand.New(rand.NewSource(seed))
		start := i * segmentSize
		end := start + segmentSize
		if i == len(seeds)-1 {
			end = len(target)
		}

		for j := start; j < end; j++ {
			target[j] = float32(rng.NormFloat64())
		}
	}
}

// addTextFeatures adds lexical characteristic features
func (s *HashService) addTextFeatures(features *TextFeatures, target []float32) {
	target[0] = float32(math.Min(float64(features.Length)/1000.0, 1.0))
	target[1] = float32(math.Min(float64(features.WordCount)/100.0, 1.0))
	target[2] = float32(math.Min(float64(features.AvgWordLength)/20.0, 1.0))
	target[3] = features.DigitRatio
	target[4] = features.CapitalizationRatio
	target[5] = features.QuestionRatio
	target[6] = float32(math.Min(float64(features.SentenceCount)/20.0, 1.0))
	target[7] = features.Entropy

	// Fill remaining dimensions with derived features
	for i := 8; i < len(target); i++ {
		combined := (target[i%8] + target[(i+1)%8]) / 2.0
		target[i] = float32(math.Sin(float64(combined) * math.Pi))
	}
}

// extractTextFeatures computes lexical statistics over the input text
func extractTextFeatures(text string) TextFeatures {
	words := strings.Fields(text)

	var totalWordLen int
	for _, w := range words {
		totalWordLen += len(w)
	}
	avgWordLen := float32(0)
	if len(words) > 0 {
		avgWordLen = float32(totalWordLen) / float32(len(words))
	}

	var digits, uppers, letters, questions int
	sentences := 1
	freq := make(map[rune]int)
	for _, r := range text {
		freq[r]++
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsUpper(r):
			uppers++
			letters++
		case unicode.IsLetter(r):
			letters++
		case r == '?':
			questions++
		case r == '.' || r == '!':
			sentences++
		}
	}

	n := len([]rune(text))
	var entropy float64
	if n > 0 {
		for _, count := range freq {
			p := float64(count) / float64(n)
			entropy -= p * math.Log2(p)
		}
		// Normalize against the max entropy for a text of this length
		if maxEntropy := math.Log2(float64(n)); maxEntropy > 0 {
			entropy = math.Min(entropy/maxEntropy, 1.0)
		}
	}

	ratio := func(count int) float32 {
		if n == 0 {
			return 0
		}
		return float32(count) / float32(n)
	}
	capRatio := float32(0)
	if letters > 0 {
		capRatio = float32(uppers) / float32(letters)
	}

	return TextFeatures{
		Length:              n,
		WordCount:           len(words),
		AvgWordLength:       avgWordLen,
		DigitRatio:          ratio(digits),
		CapitalizationRatio: capRatio,
		QuestionRatio:       ratio(questions),
		SentenceCount:       sentences,
		Entropy:             float32(entropy),
	}
}

// NormalizeEmbedding scales a vector to unit L2 norm
func NormalizeEmbedding(embedding []float32) []float32 {
	var sum float64
	for _, v := range embedding {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return embedding
	}
	for i := range embedding {
		embedding[i] = float32(float64(embedding[i]) / norm)
	}
	return embedding
}

// ComputeSimilarity computes cosine similarity between two vectors
func (s *HashService) ComputeSimilarity(vec1, vec2 []float32) float32 {
	if len(vec1) != len(vec2) || len(vec1) == 0 {
		return 0
	}

	var dot, norm1, norm2 float64
	for i := range vec1 {
		dot += float64(vec1[i]) * float64(vec2[i])
		norm1 += float64(vec1[i]) * float64(vec1[i])
		norm2 += float64(vec2[i]) * float64(vec2[i])
	}

	if norm1 == 0 || norm2 == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(norm1) * math.Sqrt(norm2)))
}

// GetStats returns service performance statistics
func (s *HashService) GetStats() *ModelStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := *s.stats
	return &stats
}

// updateStats updates performance statistics thread-safely
func (s *HashService) updateStats(inferences int64, tokens int, duration time.Duration, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalInferences += inferences
	s.stats.TotalTokens += int64(tokens)
	s.stats.LastInferenceTime = time.Now()

	if success {
		s.stats.SuccessfulRuns += inferences
	} else {
		s.stats.FailedRuns += inferences
	}

	total := s.stats.SuccessfulRuns + s.stats.FailedRuns
	if total > 0 {
		s.stats.ErrorRate = float64(s.stats.FailedRuns) / float64(total)
	}

	if s.stats.SuccessfulRuns > 0 {
		totalDuration := time.Duration(s.stats.SuccessfulRuns) * s.stats.AvgInferenceTime
		s.stats.AvgInferenceTime = (totalDuration + duration) / time.Duration(s.stats.SuccessfulRuns)
	} else {
		s.stats.AvgInferenceTime = duration
	}

	if s.stats.TotalInferences > 0 {
		s.stats.AvgTokensPerText = float64(s.stats.TotalTokens) / float64(s.stats.TotalInferences)
	}
}

// Close cleans up resources
func (s *HashService) Close() error {
	return nil
}
