package anonymizer

import (
	"math"

	"github.com/raaihank/data-sentinel/internal/dataset"
	"go.uber.org/zap"
)

// Report describes everything one anonymization run did. Constructed fresh
// per call; immutable once returned.
type Report struct {
	ColumnsRemoved  []string                   `json:"columns_removed"`
	ColumnsRedacted []string                   `json:"columns_redacted"`
	SensitiveFound  map[string]int             `json:"sensitive_data_found"`
	NamesDetected   map[string][]string        `json:"uncommon_names_detected"`
	ColumnAnalyses  map[string]*ColumnAnalysis `json:"column_analyses"`
	AddressesFound  int                        `json:"addresses_found"`
	IDsFound        int                        `json:"ids_found"`
	RowsProcessed   int                        `json:"total_rows_processed"`
	ColsProcessed   int                        `json:"total_columns_processed"`
	Score           float64                    `json:"anonymization_score"`
}

// Preview lists the decisions a full run would make, without any mutation.
type Preview struct {
	ColumnsToRemove []string                   `json:"columns_to_remove"`
	ColumnsToRedact []string                   `json:"columns_to_redact"`
	ColumnAnalyses  map[string]*ColumnAnalysis `json:"column_analyses"`
}

// Anonymizer runs the full pipeline: profile columns, drop name and
// account columns, handle address columns, redact free text, and report.
//
// One Anonymizer owns one classifier cache and must not be shared across
// concurrent runs; construct a fresh instance per invocation.
type Anonymizer struct {
	cfg        *CompiledConfig
	classifier *Classifier
	profiler   *Profiler
	redactor   *Redactor
	logger     *zap.Logger
}

// New builds an anonymizer for a single run. An optional NER backend (nil
// for none) joins the signal list.
func New(cfg *CompiledConfig, ner NERBackend, logger *zap.Logger) *Anonymizer {
	lexicon := DefaultLexicon()
	classifier := NewClassifier(cfg, lexicon, ner)
	return &Anonymizer{
		cfg:        cfg,
		classifier: classifier,
		profiler:   NewProfiler(cfg, classifier, logger),
		redactor:   NewRedactor(cfg, classifier),
		logger:     logger,
	}
}

// Classifier exposes the run's classifier for per-value inspection.
func (a *Anonymizer) Classifier() *Classifier {
	return a.classifier
}

// decisions is the shared first phase of Anonymize and Preview.
type decisions struct {
	nameColumns    []string
	accountColumns []string
	dropAddresses  []string
	keepAddresses  []string
	freeText       []string
	analyses       map[string]*ColumnAnalysis
	accountHits    map[string]int
	addressHits    map[string]int
	sensitiveHits  map[string]int
}

func (a *Anonymizer) analyze(ds *dataset.Dataset) *decisions {
	d := &decisions{
		analyses:      make(map[string]*ColumnAnalysis),
		accountHits:   make(map[string]int),
		addressHits:   make(map[string]int),
		sensitiveHits: make(map[string]int),
	}

	removed := make(map[string]struct{})

	for _, col := range ds.Columns() {
		if !col.IsTextual() {
			// Numeric columns can still hold account numbers.
			if a.cfg.DetectIDs {
				if flagged, hits := a.profiler.IsAccountColumn(col.Strings()); flagged {
					d.accountColumns = append(d.accountColumns, col.Name)
					d.accountHits[col.Name] = hits
					removed[col.Name] = struct{}{}
				}
			}
			continue
		}

		values := col.Strings()
		analysis := a.profiler.ProfileColumn(col.Name, values)
		d.analyses[col.Name] = analysis
		if analysis.IsNameColumn {
			d.nameColumns = append(d.nameColumns, col.Name)
			removed[col.Name] = struct{}{}
			continue
		}

		if a.cfg.DetectIDs {
			if flagged, hits := a.profiler.IsAccountColumn(values); flagged {
				d.accountColumns = append(d.accountColumns, col.Name)
				d.accountHits[col.Name] = hits
				removed[col.Name] = struct{}{}
				continue
			}
		}

		if a.cfg.DetectAddresses {
			hits, sampled := a.profiler.CountAddressHits(values)
			if hits > 0 && sampled > 0 {
				d.addressHits[col.Name] = hits
				if float64(hits)/float64(sampled) > 0.3 {
					d.dropAddresses = append(d.dropAddresses, col.Name)
					removed[col.Name] = struct{}{}
					continue
				}
				d.keepAddresses = append(d.keepAddresses, col.Name)
			}
		}

		// Columns holding emails, phones, or postal codes stay but get
		// their sensitive spans redacted.
		if hits, sampled := a.profiler.CountSensitiveHits(values); hits > 0 && sampled > 0 {
			d.sensitiveHits[col.Name] = hits
			d.freeText = append(d.freeText, col.Name)
			continue
		}

		// Free-text heuristic: long or highly unique content.
		if col.AvgLen() > 50 || col.UniqueRatio() > 0.8 {
			d.freeText = append(d.freeText, col.Name)
		}
	}

	return d
}

// Anonymize profiles every column, drops the flagged ones, redacts retained
// free text, and returns a transformed copy plus the report. The input
// dataset is never mutated. Malformed or empty input degrades to "nothing
// detected"; it never fails.
func (a *Anonymizer) Anonymize(ds *dataset.Dataset) (*dataset.Dataset, *Report) {
	report := &Report{
		SensitiveFound: make(map[string]int),
		NamesDetected:  make(map[string][]string),
		RowsProcessed:  ds.NumRows(),
		ColsProcessed:  ds.NumColumns(),
	}

	a.logger.Info("Starting anonymization run",
		zap.Int("rows", report.RowsProcessed),
		zap.Int("columns", report.ColsProcessed),
		zap.String("mode", string(a.cfg.Mode)))

	out := ds.Copy()
	d := a.analyze(ds)
	report.ColumnAnalyses = d.analyses

	for _, col := range d.nameColumns {
		report.ColumnsRemoved = append(report.ColumnsRemoved, col)
		if analysis := d.analyses[col]; analysis != nil && len(analysis.DetectedNames) > 0 {
			report.NamesDetected[col] = analysis.DetectedNames
		}
	}
	for _, col := range d.accountColumns {
		report.ColumnsRemoved = append(report.ColumnsRemoved, col)
		report.SensitiveFound["accounts_in_"+col] = d.accountHits[col]
		report.IDsFound += d.accountHits[col]
	}
	for _, col := range d.dropAddresses {
		report.ColumnsRemoved = append(report.ColumnsRemoved, col)
		report.AddressesFound += d.addressHits[col]
	}
	out.Drop(report.ColumnsRemoved...)

	for _, col := range d.keepAddresses {
		out.Apply(col, a.redactor.RedactAddresses)
		report.ColumnsRedacted = append(report.ColumnsRedacted, col)
		report.AddressesFound += d.addressHits[col]
	}
	for _, col := range d.freeText {
		if containsString(report.ColumnsRedacted, col) {
			continue
		}
		out.Apply(col, a.redactor.Redact)
		report.ColumnsRedacted = append(report.ColumnsRedacted, col)
	}
	for col, hits := range d.sensitiveHits {
		report.SensitiveFound["sensitive_in_"+col] = hits
	}

	report.Score = a.score(ds, out, d)

	a.logger.Info("Anonymization run completed",
		zap.Float64("score", report.Score),
		zap.Strings("columns_removed", report.ColumnsRemoved),
		zap.Strings("columns_redacted", report.ColumnsRedacted))

	return out, report
}

// PreviewRun computes the column decisions of a full run without touching
// the dataset.
func (a *Anonymizer) PreviewRun(ds *dataset.Dataset) *Preview {
	d := a.analyze(ds)

	preview := &Preview{ColumnAnalyses: d.analyses}
	preview.ColumnsToRemove = append(preview.ColumnsToRemove, d.nameColumns...)
	preview.ColumnsToRemove = append(preview.ColumnsToRemove, d.accountColumns...)
	preview.ColumnsToRemove = append(preview.ColumnsToRemove, d.dropAddresses...)
	preview.ColumnsToRedact = append(preview.ColumnsToRedact, d.keepAddresses...)
	for _, col := range d.freeText {
		if !containsString(preview.ColumnsToRedact, col) {
			preview.ColumnsToRedact = append(preview.ColumnsToRedact, col)
		}
	}
	return preview
}

// score blends thoroughness with data-utility preservation: removed
// fraction (capped), average confidence across flagged name columns,
// retained fraction, and a small bonus for sensitive items handled.
func (a *Anonymizer) score(original, anonymized *dataset.Dataset, d *decisions) float64 {
	totalCols := float64(original.NumColumns())
	if totalCols == 0 {
		return 0
	}

	removed := totalCols - float64(anonymized.NumColumns())
	score := math.Min((removed/totalCols)*2, 0.3)

	var confidenceSum float64
	var flagged int
	for _, analysis := range d.analyses {
		if analysis.IsNameColumn {
			confidenceSum += analysis.AvgConfidence
			flagged++
		}
	}
	if flagged > 0 {
		score += (confidenceSum / float64(flagged)) * 0.4
	}

	score += (float64(anonymized.NumColumns()) / totalCols) * 0.2

	var sensitiveItems int
	for _, hits := range d.accountHits {
		sensitiveItems += hits
	}
	for _, hits := range d.addressHits {
		sensitiveItems += hits
	}
	for _, hits := range d.sensitiveHits {
		sensitiveItems += hits
	}
	if sensitiveItems > 0 {
		score += math.Min(float64(sensitiveItems)/100, 0.1)
	}

	return math.Min(score, 1.0)
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
