package embeddings

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestService(t *testing.T) *HashService {
	t.Helper()
	service, err := NewHashService(&ModelConfig{
		ModelName:    "test-hash",
		MaxLength:    512,
		BatchSize:    16,
		ModelTimeout: 30 * time.Second,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create hash service: %v", err)
	}
	return service
}

func TestHashService(t *testing.T) {
	t.Run("NilConfig", func(t *testing.T) {
		if _, err := NewHashService(nil, zap.NewNop()); err == nil {
			t.Error("Expected error for nil config")
		}
	})

	t.Run("GenerateEmbedding", func(t *testing.T) {
		service := newTestService(t)

		result, err := service.GenerateEmbedding(context.Background(), "quelle est la moyenne des ventes")
		if err != nil {
			t.Fatalf("GenerateEmbedding failed: %v", err)
		}
		if len(result.Embedding) != EmbeddingDimensions {
			t.Errorf("Embedding has %d dimensions, want %d", len(result.Embedding), EmbeddingDimensions)
		}
		if result.TokenCount != 6 {
			t.Errorf("TokenCount = %d, want 6", result.TokenCount)
		}
		if result.Features == nil {
			t.Error("Features missing from result")
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		service := newTestService(t)

		if _, err := service.GenerateEmbedding(context.Background(), "   "); err == nil {
			t.Error("Expected error for blank input")
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		service := newTestService(t)

		first, err := service.GenerateEmbedding(context.Background(), "total des ventes par ville")
		if err != nil {
			t.Fatalf("GenerateEmbedding failed: %v", err)
		}
		second, err := service.GenerateEmbedding(context.Background(), "total des ventes par ville")
		if err != nil {
			t.Fatalf("GenerateEmbedding failed: %v", err)
		}
		for i := range first.Embedding {
			if first.Embedding[i] != second.Embedding[i] {
				t.Fatalf("Embeddings differ at dimension %d", i)
			}
		}
	})

	t.Run("UnitNorm", func(t *testing.T) {
		service := newTestService(t)

		result, err := service.GenerateEmbedding(context.Background(), "any text at all")
		if err != nil {
			t.Fatalf("GenerateEmbedding failed: %v", err)
		}
		var sum float64
		for _, v := range result.Embedding {
			sum += float64(v) * float64(v)
		}
		if norm := math.Sqrt(sum); math.Abs(norm-1.0) > 1e-4 {
			t.Errorf("L2 norm = %f, want 1.0", norm)
		}
	})

	t.Run("SharedVocabularyIsCloser", func(t *testing.T) {
		service := newTestService(t)

		base, _ := service.GenerateEmbedding(context.Background(), "moyenne des ventes par ville")
		near, _ := service.GenerateEmbedding(context.Background(), "la moyenne des ventes par région")
		far, _ := service.GenerateEmbedding(context.Background(), "xylophone quantum zebra")

		simNear := service.ComputeSimilarity(base.Embedding, near.Embedding)
		simFar := service.ComputeSimilarity(base.Embedding, far.Embedding)
		if simNear <= simFar {
			t.Errorf("Vocabulary overlap ignored: near %f vs far %f", simNear, simFar)
		}
	})

	t.Run("BatchEmbeddings", func(t *testing.T) {
		service := newTestService(t)

		result, err := service.GenerateBatchEmbeddings(context.Background(), []string{
			"first text", "", "third text",
		})
		if err != nil {
			t.Fatalf("GenerateBatchEmbeddings failed: %v", err)
		}
		if result.Successful != 2 || result.Failed != 1 {
			t.Errorf("Batch counts = %d/%d, want 2/1", result.Successful, result.Failed)
		}
		if len(result.Embeddings) != 3 {
			t.Errorf("Batch size = %d, want 3 (failed slots are nil)", len(result.Embeddings))
		}
		if result.Embeddings[1] != nil {
			t.Error("Failed slot should be nil")
		}
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		service := newTestService(t)

		result, err := service.GenerateBatchEmbeddings(context.Background(), nil)
		if err != nil {
			t.Fatalf("GenerateBatchEmbeddings failed: %v", err)
		}
		if result.Successful != 0 || len(result.Embeddings) != 0 {
			t.Errorf("Empty batch produced %d embeddings", len(result.Embeddings))
		}
	})

	t.Run("Stats", func(t *testing.T) {
		service := newTestService(t)

		service.GenerateEmbedding(context.Background(), "one two three")
		stats := service.GetStats()
		if stats.TotalInferences != 1 {
			t.Errorf("TotalInferences = %d, want 1", stats.TotalInferences)
		}
		if stats.TotalTokens != 3 {
			t.Errorf("TotalTokens = %d, want 3", stats.TotalTokens)
		}
	})
}

func TestComputeSimilarity(t *testing.T) {
	service := newTestService(t)

	identical := service.ComputeSimilarity([]float32{1, 0, 0}, []float32{1, 0, 0})
	if identical < 0.99 {
		t.Errorf("Identical vectors: similarity %f, want ~1.0", identical)
	}

	orthogonal := service.ComputeSimilarity([]float32{1, 0, 0}, []float32{0, 1, 0})
	if orthogonal > 0.01 {
		t.Errorf("Orthogonal vectors: similarity %f, want ~0.0", orthogonal)
	}

	if got := service.ComputeSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("Mismatched lengths: similarity %f, want 0", got)
	}
}

func TestExtractTextFeatures(t *testing.T) {
	features := extractTextFeatures("Combien de ventes en 2024?")

	if features.WordCount != 5 {
		t.Errorf("WordCount = %d, want 5", features.WordCount)
	}
	if features.DigitRatio <= 0 {
		t.Error("DigitRatio should be positive")
	}
	if features.QuestionRatio <= 0 {
		t.Error("QuestionRatio should be positive")
	}
	if features.Entropy <= 0 || features.Entropy > 1 {
		t.Errorf("Normalized entropy out of range: %f", features.Entropy)
	}
}
