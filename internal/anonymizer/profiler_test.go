package anonymizer

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func newTestProfiler(t *testing.T, cfg Config) *Profiler {
	t.Helper()
	cc, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Failed to compile config: %v", err)
	}
	classifier := NewClassifier(cc, DefaultLexicon(), nil)
	return NewProfiler(cc, classifier, zap.NewNop())
}

func TestProfileColumn(t *testing.T) {
	t.Run("NameColumnFlagged", func(t *testing.T) {
		p := newTestProfiler(t, DefaultConfig())

		analysis := p.ProfileColumn("nom", []string{
			"Marie Martin", "Jean Dupont", "Mohamed Ben Ali", "Sophie Bernard",
		})
		if !analysis.IsNameColumn {
			t.Errorf("Name column not flagged (score %.2f, threshold %.2f)",
				analysis.FinalScore, analysis.Threshold)
		}
		if analysis.NameRatio < 0.9 {
			t.Errorf("Expected near-total name ratio, got %f", analysis.NameRatio)
		}
		if analysis.HintScore < 0.8 {
			t.Errorf("Column name 'nom' should carry a strong hint, got %f", analysis.HintScore)
		}
		if len(analysis.SampleNames) == 0 {
			t.Error("No sample names recorded")
		}
	})

	t.Run("CityColumnKept", func(t *testing.T) {
		p := newTestProfiler(t, DefaultConfig())

		analysis := p.ProfileColumn("ville", []string{
			"Paris", "Lyon", "Marseille", "Toulouse", "Paris",
		})
		if analysis.IsNameColumn {
			t.Errorf("City column flagged as names (score %.2f)", analysis.FinalScore)
		}
	})

	t.Run("EmptyColumn", func(t *testing.T) {
		p := newTestProfiler(t, DefaultConfig())

		analysis := p.ProfileColumn("notes", []string{"", "  ", ""})
		if analysis.IsNameColumn {
			t.Error("Empty column flagged as names")
		}
		if analysis.SampleSize != 0 {
			t.Errorf("Blank values should be excluded from the sample, got %d", analysis.SampleSize)
		}
	})

	t.Run("SamplingIsDeterministic", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SampleSize = 10
		p := newTestProfiler(t, cfg)

		values := make([]string, 100)
		for i := range values {
			values[i] = fmt.Sprintf("value-%d", i)
		}

		first := p.ProfileColumn("data", values)
		second := p.ProfileColumn("data", values)
		if first.FinalScore != second.FinalScore || first.SampleSize != second.SampleSize {
			t.Error("Repeated profiling of the same column diverged")
		}
		if first.SampleSize != 10 {
			t.Errorf("Expected sample capped at 10, got %d", first.SampleSize)
		}
	})
}

func TestAccountDetection(t *testing.T) {
	t.Run("IBANColumn", func(t *testing.T) {
		p := newTestProfiler(t, DefaultConfig())

		flagged, hits := p.IsAccountColumn([]string{
			"FR7630006000011234567890189",
			"DE89370400440532013000",
			"GB29NWBK60161331926819",
		})
		if !flagged {
			t.Error("IBAN column not flagged")
		}
		if hits != 3 {
			t.Errorf("Expected 3 hits, got %d", hits)
		}
	})

	t.Run("AmountColumnKept", func(t *testing.T) {
		p := newTestProfiler(t, DefaultConfig())

		flagged, _ := p.IsAccountColumn([]string{"100.50", "23.99", "7.00"})
		if flagged {
			t.Error("Monetary amounts flagged as accounts")
		}
	})

	t.Run("EmptyColumn", func(t *testing.T) {
		p := newTestProfiler(t, DefaultConfig())

		if flagged, _ := p.IsAccountColumn(nil); flagged {
			t.Error("Empty column flagged as accounts")
		}
	})
}

func TestAnalyzeColumnName(t *testing.T) {
	cases := []struct {
		column string
		min    float64
	}{
		{"nom_complet", 0.9},
		{"customer_name", 0.8},
		{"responsable", 0.4},
		{"montant", 0},
	}
	for _, tc := range cases {
		score, _ := analyzeColumnName(tc.column)
		if score < tc.min {
			t.Errorf("analyzeColumnName(%q) = %f, want >= %f", tc.column, score, tc.min)
		}
		if tc.min == 0 && score != 0 {
			t.Errorf("analyzeColumnName(%q) = %f, want 0", tc.column, score)
		}
	}
}
