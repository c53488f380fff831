package anonymizer

import (
	"strings"
	"testing"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	cc, err := Compile(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to compile config: %v", err)
	}
	return NewClassifier(cc, DefaultLexicon(), nil)
}

func TestClassifier(t *testing.T) {
	t.Run("KnownFrenchName", func(t *testing.T) {
		c := newTestClassifier(t)

		result := c.Classify("Marie Martin")
		if !result.IsMatch {
			t.Error("Known French full name not detected")
		}
		if result.Confidence < 0.9 {
			t.Errorf("Known French full name has low confidence: %f", result.Confidence)
		}
		if !containsString(result.Reasons, "known_first_name") {
			t.Errorf("Missing lexicon reason, got %v", result.Reasons)
		}
	})

	t.Run("LowercaseArabicName", func(t *testing.T) {
		c := newTestClassifier(t)

		// Capitalization must never be a hard requirement.
		result := c.Classify("mohamed ben ali")
		if !result.IsMatch {
			t.Error("Lowercase Arabic name not detected")
		}
		if result.Confidence < 0.9 {
			t.Errorf("Lowercase Arabic name has low confidence: %f", result.Confidence)
		}
		if !containsString(result.Reasons, "international_pattern") {
			t.Errorf("Missing international reason, got %v", result.Reasons)
		}
	})

	t.Run("CommonWordRejected", func(t *testing.T) {
		c := newTestClassifier(t)

		result := c.Classify("bonjour")
		if result.IsMatch {
			t.Errorf("Common word detected as name (confidence %f)", result.Confidence)
		}
		if result.Confidence > 0.6 {
			t.Errorf("Common word has high confidence: %f", result.Confidence)
		}
	})

	t.Run("SingleKnownSurname", func(t *testing.T) {
		c := newTestClassifier(t)

		result := c.Classify("Martin")
		if !result.IsMatch {
			t.Errorf("Known surname not detected (confidence %f)", result.Confidence)
		}
	})

	t.Run("LengthBounds", func(t *testing.T) {
		c := newTestClassifier(t)

		if got := c.Classify("a"); got.IsMatch {
			t.Error("Single character detected as name")
		}
		long := strings.Repeat("ab ", 30)
		result := c.Classify(long)
		if result.IsMatch {
			t.Error("Over-length candidate detected as name")
		}
		if !containsString(result.Reasons, "too_long") {
			t.Errorf("Missing too_long reason, got %v", result.Reasons)
		}
	})

	t.Run("NumericRejected", func(t *testing.T) {
		c := newTestClassifier(t)

		if got := c.Classify("12345"); got.IsMatch {
			t.Error("Numeric string detected as name")
		}
	})

	t.Run("MemoizedByNormalizedForm", func(t *testing.T) {
		c := newTestClassifier(t)

		first := c.Classify("Marie Martin")
		second := c.Classify("  marie martin ")
		if first.Confidence != second.Confidence {
			t.Errorf("Case variants scored differently: %f vs %f", first.Confidence, second.Confidence)
		}
		if len(c.cache) != 1 {
			t.Errorf("Expected one cache entry, got %d", len(c.cache))
		}
	})

	t.Run("UncommonNamesToggle", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DetectUncommonNames = false
		cc, err := Compile(cfg)
		if err != nil {
			t.Fatalf("Failed to compile config: %v", err)
		}
		c := NewClassifier(cc, DefaultLexicon(), nil)

		// "Martin" lands between the loose and strict thresholds, so it
		// depends on the uncommon-name rule.
		result := c.Classify("Martin")
		if result.Confidence >= cfg.StrictThreshold {
			t.Skipf("Candidate no longer borderline: %f", result.Confidence)
		}
		if result.IsMatch {
			t.Error("Borderline candidate matched with uncommon names disabled")
		}
	})
}

func TestCompile(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		if _, err := Compile(DefaultConfig()); err != nil {
			t.Fatalf("Default config failed to compile: %v", err)
		}
	})

	t.Run("InvalidThresholdOrder", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.StrictThreshold = 0.5
		cfg.LooseThreshold = 0.8
		if _, err := Compile(cfg); err == nil {
			t.Error("Expected error for strict threshold below loose threshold")
		}
	})

	t.Run("InvalidMode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Mode = "aggressive"
		if _, err := Compile(cfg); err == nil {
			t.Error("Expected error for unknown mode")
		}
	})

	t.Run("MalformedCustomPattern", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.AccountPatterns = []string{`(\d{10`}
		if _, err := Compile(cfg); err == nil {
			t.Error("Expected error for malformed account pattern")
		}
	})

	t.Run("AdaptiveThresholds", func(t *testing.T) {
		base := DefaultConfig()

		thresholds := make(map[Mode]float64)
		for _, mode := range []Mode{ModeStrict, ModeBalanced, ModePermissive} {
			cfg := base
			cfg.Mode = mode
			cc, err := Compile(cfg)
			if err != nil {
				t.Fatalf("Failed to compile %s config: %v", mode, err)
			}
			thresholds[mode] = cc.adaptiveThreshold(0)
		}

		if !(thresholds[ModeStrict] < thresholds[ModeBalanced] && thresholds[ModeBalanced] < thresholds[ModePermissive]) {
			t.Errorf("Thresholds not ordered strict < balanced < permissive: %v", thresholds)
		}
	})

	t.Run("HintLowersBalancedThreshold", func(t *testing.T) {
		cc, err := Compile(DefaultConfig())
		if err != nil {
			t.Fatalf("Failed to compile config: %v", err)
		}
		if cc.adaptiveThreshold(0.8) >= cc.adaptiveThreshold(0) {
			t.Error("Strong column-name hint should lower the balanced threshold")
		}
	})
}
