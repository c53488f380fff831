package anonymizer

import (
	"math"
	"strings"
)

// DetectionResult is the classifier's verdict for one candidate string.
type DetectionResult struct {
	IsMatch    bool     `json:"is_match"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// Classifier combines the signal extractor scores into one confidence value
// per candidate and applies the dual-threshold decision rule.
//
// Results are memoized by normalized candidate for the lifetime of the
// instance, so repeated tokens in a redaction pass cost one evaluation. The
// cache is not safe for concurrent use: build one classifier per run and
// discard it afterward.
type Classifier struct {
	cfg     *CompiledConfig
	signals []Signal
	cache   map[string]DetectionResult
}

// NewClassifier assembles the signal list from the compiled config. The NER
// signal is appended only when a backend is supplied; extractors can thus be
// enabled or dropped without touching the decision logic.
func NewClassifier(cfg *CompiledConfig, lexicon *Lexicon, ner NERBackend) *Classifier {
	signals := []Signal{
		&lexiconSignal{lexicon: lexicon},
		&internationalSignal{patterns: cfg.international},
		&entropySignal{threshold: cfg.EntropyThreshold, cache: make(map[string]float64)},
		&structureSignal{cc: cfg},
		&capitalizationSignal{lexicon: lexicon, weight: cfg.CapitalizationWeight},
	}
	if ner != nil {
		signals = append(signals, &nerSignal{backend: ner})
	}
	return &Classifier{
		cfg:     cfg,
		signals: signals,
		cache:   make(map[string]DetectionResult),
	}
}

// Classify scores the candidate with every signal and decides membership.
// Candidates outside the configured length bounds are rejected immediately.
func (c *Classifier) Classify(candidate string) DetectionResult {
	trimmed := strings.TrimSpace(candidate)
	if len([]rune(trimmed)) < c.cfg.MinNameLength {
		return DetectionResult{}
	}
	if len([]rune(trimmed)) > c.cfg.MaxNameLength {
		return DetectionResult{Reasons: []string{"too_long"}}
	}

	key := strings.ToLower(trimmed)
	if cached, ok := c.cache[key]; ok {
		return cached
	}

	var confidence float64
	var reasons []string
	for _, signal := range c.signals {
		score, tags := signal.Score(trimmed)
		confidence += score
		reasons = append(reasons, tags...)
	}
	confidence = math.Min(confidence, 1.0)

	isMatch := confidence >= c.cfg.StrictThreshold ||
		(confidence >= c.cfg.LooseThreshold && c.cfg.DetectUncommonNames)

	result := DetectionResult{
		IsMatch:    isMatch,
		Confidence: confidence,
		Reasons:    reasons,
	}
	c.cache[key] = result
	return result
}
