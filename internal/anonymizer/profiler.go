package anonymizer

import (
	"math/rand"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// sampleSeed fixes the column sampling order so repeated runs over the same
// data make the same decisions.
const sampleSeed = 42

var fullNameColumnPattern = regexp.MustCompile(`nom.*complet|full.*name|complete.*name`)

// ColumnAnalysis is the per-column aggregate produced by the profiler.
// Read-only after construction.
type ColumnAnalysis struct {
	Column        string         `json:"column"`
	NameRatio     float64        `json:"name_ratio"`
	AvgConfidence float64        `json:"avg_confidence"`
	FinalScore    float64        `json:"final_score"`
	Threshold     float64        `json:"threshold_used"`
	IsNameColumn  bool           `json:"is_name_column"`
	SampleNames   []string       `json:"sample_names"`
	DetectedNames []string       `json:"-"`
	ReasonCounts  map[string]int `json:"detection_reasons"`
	HintScore     float64        `json:"hint_score"`
	Hints         []string       `json:"column_name_hints"`
	SampleSize    int            `json:"total_samples"`
}

// Profiler decides column-level removal by sampling values, classifying each
// one, and blending the detection ratio with the average confidence and a
// column-name hint.
type Profiler struct {
	cfg        *CompiledConfig
	classifier *Classifier
	logger     *zap.Logger
}

// NewProfiler creates a profiler sharing the run's classifier.
func NewProfiler(cfg *CompiledConfig, classifier *Classifier, logger *zap.Logger) *Profiler {
	return &Profiler{cfg: cfg, classifier: classifier, logger: logger}
}

// ProfileColumn analyzes one textual column and decides whether it should be
// removed as a name column. Empty columns yield a zero analysis, never an
// error.
func (p *Profiler) ProfileColumn(columnName string, values []string) *ColumnAnalysis {
	hintScore, hints := analyzeColumnName(columnName)
	analysis := &ColumnAnalysis{
		Column:       columnName,
		Threshold:    p.cfg.adaptiveThreshold(hintScore),
		ReasonCounts: make(map[string]int),
		HintScore:    hintScore,
		Hints:        hints,
	}

	sample := sampleValues(values, p.cfg.SampleSize)
	analysis.SampleSize = len(sample)
	if len(sample) == 0 {
		return analysis
	}

	var detected []string
	var confidenceSum float64
	for _, value := range sample {
		result := p.classifier.Classify(value)
		if !result.IsMatch {
			continue
		}
		detected = append(detected, value)
		confidenceSum += result.Confidence
		for _, reason := range result.Reasons {
			analysis.ReasonCounts[reason]++
		}
	}

	analysis.NameRatio = float64(len(detected)) / float64(len(sample))
	if len(detected) > 0 {
		analysis.AvgConfidence = confidenceSum / float64(len(detected))
	}
	analysis.FinalScore = p.cfg.RatioWeight*analysis.NameRatio +
		p.cfg.ConfidenceWeight*analysis.AvgConfidence +
		p.cfg.HintWeight*hintScore
	analysis.IsNameColumn = analysis.FinalScore >= analysis.Threshold

	analysis.SampleNames = firstN(detected, 5)
	analysis.DetectedNames = firstN(detected, 10)

	p.logger.Debug("Column profiled",
		zap.String("column", columnName),
		zap.Float64("final_score", analysis.FinalScore),
		zap.Float64("threshold", analysis.Threshold),
		zap.Float64("name_ratio", analysis.NameRatio),
		zap.Float64("avg_confidence", analysis.AvgConfidence),
		zap.Bool("flagged", analysis.IsNameColumn))

	return analysis
}

// CountAccountHits counts sampled values matching the account pattern
// family.
func (p *Profiler) CountAccountHits(values []string) (hits, sampled int) {
	sample := sampleValues(values, p.cfg.SampleSize)
	for _, value := range sample {
		if p.cfg.account.matchAny(strings.TrimSpace(value)) {
			hits++
		}
	}
	return hits, len(sample)
}

// IsAccountColumn applies the mode-dependent hit-ratio bar.
func (p *Profiler) IsAccountColumn(values []string) (bool, int) {
	hits, sampled := p.CountAccountHits(values)
	if sampled == 0 {
		return false, 0
	}
	return float64(hits)/float64(sampled) > p.cfg.accountThreshold(), hits
}

// CountSensitiveHits counts sampled values matching the sensitive pattern
// family (emails, phones, postal codes).
func (p *Profiler) CountSensitiveHits(values []string) (hits, sampled int) {
	sample := sampleValues(values, p.cfg.SampleSize)
	for _, value := range sample {
		if p.cfg.sensitive.matchAny(value) {
			hits++
		}
	}
	return hits, len(sample)
}

// CountAddressHits counts sampled values matching the address patterns.
func (p *Profiler) CountAddressHits(values []string) (hits, sampled int) {
	sample := sampleValues(values, p.cfg.SampleSize)
	for _, value := range sample {
		if p.cfg.address.matchAny(value) {
			hits++
		}
	}
	return hits, len(sample)
}

// analyzeColumnName scans the column's own name for name-suggesting
// keywords. A column literally named "full_name" should be flagged even when
// per-cell detection is borderline.
func analyzeColumnName(columnName string) (float64, []string) {
	lower := strings.ToLower(columnName)

	var likelihood float64
	var hints []string
	for _, keyword := range obviousColumnKeywords {
		if strings.Contains(lower, keyword) {
			if likelihood < 0.8 {
				likelihood = 0.8
			}
			hints = append(hints, "obvious_keyword_"+keyword)
		}
	}
	for _, keyword := range possibleColumnKeywords {
		if strings.Contains(lower, keyword) {
			if likelihood < 0.4 {
				likelihood = 0.4
			}
			hints = append(hints, "possible_keyword_"+keyword)
		}
	}
	if fullNameColumnPattern.MatchString(lower) {
		if likelihood < 0.9 {
			likelihood = 0.9
		}
		hints = append(hints, "full_name_pattern")
	}
	return likelihood, hints
}

// sampleValues returns up to cap values. Columns within the cap are used
// as-is; larger columns get a uniform sample drawn with a fixed seed.
func sampleValues(values []string, limit int) []string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) <= limit {
		return kept
	}

	rng := rand.New(rand.NewSource(sampleSeed))
	picked := rng.Perm(len(kept))[:limit]
	sample := make([]string, limit)
	for i, idx := range picked {
		sample[i] = kept[idx]
	}
	return sample
}

func firstN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
