package chat

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/dataset"
	"github.com/raaihank/data-sentinel/internal/embeddings"
	"github.com/raaihank/data-sentinel/internal/intent"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	embedder, err := embeddings.NewHashService(&embeddings.ModelConfig{
		ModelName:    "test-hash",
		MaxLength:    512,
		BatchSize:    16,
		ModelTimeout: 30 * time.Second,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create embedder: %v", err)
	}
	return NewEngine(intent.NewClassifier(zap.NewNop()), embedder, nil, zap.NewNop())
}

func salesDataset() *dataset.Dataset {
	ds := dataset.New()
	ds.AddColumn("ville", []interface{}{"Paris", "Lyon", "Paris", "Lyon"})
	ds.AddColumn("montant", []interface{}{100.0, 200.0, 300.0, 400.0})
	ds.AddColumn("quantite", []interface{}{1.0, 2.0, 3.0, 4.0})
	return ds
}

func TestAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("Summary", func(t *testing.T) {
		e := newTestEngine(t)

		answer, err := e.Ask(ctx, "sales", salesDataset(), "donne moi un résumé")
		if err != nil {
			t.Fatalf("Ask failed: %v", err)
		}
		if !answer.Success || answer.Action != string(intent.ActionSummary) {
			t.Fatalf("Answer = %+v", answer)
		}

		summaries, ok := answer.Results["summaries"].([]ColumnSummary)
		if !ok {
			t.Fatalf("Missing column summaries: %v", answer.Results)
		}
		if len(summaries) != 3 {
			t.Fatalf("Got %d summaries, want 3", len(summaries))
		}
		for _, s := range summaries {
			if s.Name != "montant" {
				continue
			}
			if !s.Numeric || s.Mean == nil || *s.Mean != 250 {
				t.Errorf("montant summary = %+v", s)
			}
		}
	})

	t.Run("MeanAnalysis", func(t *testing.T) {
		e := newTestEngine(t)

		answer, err := e.Ask(ctx, "sales", salesDataset(), "quelle est la moyenne de montant")
		if err != nil {
			t.Fatalf("Ask failed: %v", err)
		}
		if answer.AnalysisType != intent.AnalysisMean {
			t.Fatalf("AnalysisType = %s", answer.AnalysisType)
		}
		if got := answer.Results["montant"]; got != 250.0 {
			t.Errorf("mean(montant) = %v, want 250", got)
		}
	})

	t.Run("SumAnalysis", func(t *testing.T) {
		e := newTestEngine(t)

		answer, err := e.Ask(ctx, "sales", salesDataset(), "la somme de quantite")
		if err != nil {
			t.Fatalf("Ask failed: %v", err)
		}
		if got := answer.Results["quantite"]; got != 10.0 {
			t.Errorf("sum(quantite) = %v, want 10", got)
		}
	})

	t.Run("HeatmapIncludesCorrelation", func(t *testing.T) {
		e := newTestEngine(t)

		answer, err := e.Ask(ctx, "sales", salesDataset(), "corrélation et influence entre les colonnes")
		if err != nil {
			t.Fatalf("Ask failed: %v", err)
		}
		matrix, ok := answer.Results["correlation"].(map[string]map[string]float64)
		if !ok {
			t.Fatalf("Missing correlation matrix: %v", answer.Results)
		}
		// montant and quantite are perfectly linearly related.
		if got := matrix["montant"]["quantite"]; math.Abs(got-1.0) > 1e-9 {
			t.Errorf("corr(montant, quantite) = %f, want 1.0", got)
		}
		if got := matrix["montant"]["montant"]; math.Abs(got-1.0) > 1e-9 {
			t.Errorf("corr(montant, montant) = %f, want 1.0", got)
		}
	})

	t.Run("UnknownQuery", func(t *testing.T) {
		e := newTestEngine(t)

		answer, err := e.Ask(ctx, "sales", salesDataset(), "bonjour")
		if err != nil {
			t.Fatalf("Ask failed: %v", err)
		}
		if answer.Success || answer.Action != "error" {
			t.Errorf("Answer = %+v", answer)
		}
		if answer.Message != responses["error"] {
			t.Errorf("Message = %q", answer.Message)
		}
	})

	t.Run("EmptyDataset", func(t *testing.T) {
		e := newTestEngine(t)

		answer, err := e.Ask(ctx, "empty", dataset.New(), "résumé")
		if err != nil {
			t.Fatalf("Ask failed: %v", err)
		}
		if answer.Success {
			t.Error("Empty dataset produced a successful answer")
		}
		if answer.Message != responses["no_data"] {
			t.Errorf("Message = %q", answer.Message)
		}
	})
}

func TestSummarize(t *testing.T) {
	e := newTestEngine(t)

	ds := dataset.New()
	ds.AddColumn("score", []interface{}{1.0, 2.0, 3.0, nil})
	ds.AddColumn("label", []interface{}{"a", "b", "a", "c"})

	summaries := e.summarize(ds, []string{"score", "label", "missing"})
	if len(summaries) != 2 {
		t.Fatalf("Got %d summaries, want 2 (unknown columns skipped)", len(summaries))
	}

	score := summaries[0]
	if score.Count != 3 || score.Missing != 1 {
		t.Errorf("score counts = %d/%d, want 3/1", score.Count, score.Missing)
	}
	if score.Median == nil || *score.Median != 2 {
		t.Errorf("score median = %v, want 2", score.Median)
	}

	label := summaries[1]
	if label.Numeric {
		t.Error("label column reported numeric")
	}
	if label.UniqueCount != 3 {
		t.Errorf("label unique count = %d, want 3", label.UniqueCount)
	}
}

func TestPearson(t *testing.T) {
	if got := pearson([]float64{1, 2, 3}, []float64{2, 4, 6}); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Perfect positive correlation = %f", got)
	}
	if got := pearson([]float64{1, 2, 3}, []float64{3, 2, 1}); math.Abs(got+1.0) > 1e-9 {
		t.Errorf("Perfect negative correlation = %f", got)
	}
	if got := pearson([]float64{1, 1, 1}, []float64{1, 2, 3}); got != 0 {
		t.Errorf("Zero-variance input correlation = %f, want 0", got)
	}
	if got := pearson([]float64{1}, []float64{2}); got != 0 {
		t.Errorf("Single observation correlation = %f, want 0", got)
	}
}
