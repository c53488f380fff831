package chat

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/cache"
	"github.com/raaihank/data-sentinel/internal/dataset"
	"github.com/raaihank/data-sentinel/internal/embeddings"
	"github.com/raaihank/data-sentinel/internal/intent"
)

// Engine answers dataset questions deterministically. Queries are classified
// into plans by keyword voting, executed against the in-memory dataset, and
// optionally served from a semantic cache keyed by query embeddings.
type Engine struct {
	classifier *intent.Classifier
	embedder   embeddings.EmbeddingService
	cache      *cache.AnswerCache
	logger     *zap.Logger
}

// NewEngine creates an answer engine. The cache may be nil, in which case
// every query is computed fresh.
func NewEngine(classifier *intent.Classifier, embedder embeddings.EmbeddingService, answerCache *cache.AnswerCache, logger *zap.Logger) *Engine {
	return &Engine{
		classifier: classifier,
		embedder:   embedder,
		cache:      answerCache,
		logger:     logger,
	}
}

// Ask answers a query against the given dataset
func (e *Engine) Ask(ctx context.Context, datasetID string, ds *dataset.Dataset, query string) (*Answer, error) {
	start := time.Now()

	if ds == nil || ds.NumRows() == 0 {
		return &Answer{
			Query:     query,
			DatasetID: datasetID,
			Action:    "error",
			Message:   responses["no_data"],
			Success:   false,
			Duration:  time.Since(start),
		}, nil
	}

	// Try the semantic cache first
	var queryEmbedding []float32
	if e.embedder != nil {
		if result, err := e.embedder.GenerateEmbedding(ctx, query); err == nil {
			queryEmbedding = result.Embedding
		}
	}

	if e.cache != nil && queryEmbedding != nil {
		// MinSimilarity is left unset so the configured cache floor applies.
		cached, err := e.cache.SearchSimilar(ctx, queryEmbedding, &cache.SearchOptions{
			DatasetID: datasetID,
		})
		if err == nil && cached.CacheHit {
			e.logger.Debug("Answer served from cache",
				zap.String("dataset_id", datasetID))
			return &Answer{
				Query:     query,
				DatasetID: datasetID,
				Action:    cached.Answer.Intent,
				Message:   cached.Answer.Answer,
				Success:   true,
				CacheHit:  true,
				Duration:  time.Since(start),
			}, nil
		}
	}

	plan := e.classifier.Plan(query, columnInfos(ds))

	answer := &Answer{
		Query:     query,
		DatasetID: datasetID,
		Action:    string(plan.Action),
		Plan:      plan,
		Success:   true,
	}

	switch plan.Action {
	case intent.ActionSummary:
		answer.Message = responses["summary"]
		answer.Results = map[string]interface{}{
			"summaries": e.summarize(ds, plan.Columns),
			"rows":      ds.NumRows(),
			"columns":   ds.NumColumns(),
		}

	case intent.ActionVisualization:
		answer.Message = responses[plan.VizType]
		if answer.Message == "" {
			answer.Message = "Je vais créer une visualisation."
		}
		results := map[string]interface{}{
			"viz_type":    plan.VizType,
			"viz_columns": plan.VizColumns,
			"title":       plan.Title,
		}
		if plan.VizType == intent.VizHeatmap {
			results["correlation"] = correlationMatrix(ds)
		}
		answer.Results = results

	case intent.ActionAnalysis:
		answer.Message = responses["analysis"]
		answer.AnalysisType = plan.AnalysisType
		answer.Results = e.analyze(ds, plan)

	default:
		answer.Action = "error"
		answer.Message = responses["error"]
		answer.Success = false
	}

	answer.Duration = time.Since(start)

	// Cache successful answers for future paraphrases
	if e.cache != nil && queryEmbedding != nil && answer.Success {
		cached := &cache.CachedAnswer{
			Query:      query,
			DatasetID:  datasetID,
			Intent:     answer.Action,
			Answer:     answer.Message,
			Embedding:  queryEmbedding,
			Similarity: 1.0,
		}
		if err := e.cache.Store(ctx, queryEmbedding, cached); err != nil {
			e.logger.Warn("Failed to cache answer", zap.Error(err))
		}
	}

	return answer, nil
}

// summarize computes descriptive statistics for the requested columns
func (e *Engine) summarize(ds *dataset.Dataset, names []string) []ColumnSummary {
	summaries := make([]ColumnSummary, 0, len(names))

	for _, name := range names {
		col := ds.Column(name)
		if col == nil {
			continue
		}

		missing := 0
		for _, v := range col.Values {
			if v == nil {
				missing++
			}
		}

		summary := ColumnSummary{
			Name:    name,
			Count:   len(col.Values) - missing,
			Missing: missing,
			Numeric: col.IsNumeric(),
		}

		if summary.Numeric {
			values := col.Floats()
			if len(values) > 0 {
				mean := meanOf(values)
				median := medianOf(values)
				minV, maxV := minMaxOf(values)
				std := stdDevOf(values, mean)
				summary.Mean = &mean
				summary.Median = &median
				summary.Min = &minV
				summary.Max = &maxV
				summary.StdDev = &std
			}
		} else {
			seen := make(map[string]struct{})
			for _, v := range col.Strings() {
				seen[v] = struct{}{}
			}
			summary.UniqueCount = len(seen)
		}

		summaries = append(summaries, summary)
	}

	return summaries
}

// analyze executes an aggregate plan over the numeric plan columns
func (e *Engine) analyze(ds *dataset.Dataset, plan *intent.QueryPlan) map[string]interface{} {
	results := make(map[string]interface{})

	for _, name := range plan.Columns {
		col := ds.Column(name)
		if col == nil {
			continue
		}

		if plan.AnalysisType == intent.AnalysisCount {
			results[name] = len(col.Values)
			continue
		}

		values := col.Floats()
		if len(values) == 0 {
			if plan.AnalysisType == intent.AnalysisDescribe {
				results[name] = map[string]interface{}{
					"count":  len(col.Strings()),
					"unique": uniqueCount(col.Strings()),
				}
			}
			continue
		}

		switch plan.AnalysisType {
		case intent.AnalysisMean:
			results[name] = meanOf(values)
		case intent.AnalysisMedian:
			results[name] = medianOf(values)
		case intent.AnalysisMax:
			_, maxV := minMaxOf(values)
			results[name] = maxV
		case intent.AnalysisMin:
			minV, _ := minMaxOf(values)
			results[name] = minV
		case intent.AnalysisSum:
			results[name] = sumOf(values)
		default:
			mean := meanOf(values)
			minV, maxV := minMaxOf(values)
			results[name] = map[string]interface{}{
				"count":   len(values),
				"mean":    mean,
				"median":  medianOf(values),
				"min":     minV,
				"max":     maxV,
				"std_dev": stdDevOf(values, mean),
			}
		}
	}

	return results
}

// correlationMatrix computes pairwise Pearson correlations over numeric columns
func correlationMatrix(ds *dataset.Dataset) map[string]map[string]float64 {
	type numericCol struct {
		name   string
		values []float64
	}

	var cols []numericCol
	for _, col := range ds.Columns() {
		if col.IsNumeric() {
			cols = append(cols, numericCol{name: col.Name, values: col.Floats()})
		}
	}

	matrix := make(map[string]map[string]float64, len(cols))
	for _, a := range cols {
		row := make(map[string]float64, len(cols))
		for _, b := range cols {
			row[b.name] = pearson(a.values, b.values)
		}
		matrix[a.name] = row
	}

	return matrix
}

// pearson computes the Pearson correlation over the shared prefix of the inputs
func pearson(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}

	meanA := meanOf(a[:n])
	meanB := meanOf(b[:n])

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// columnInfos converts dataset columns into classifier inputs
func columnInfos(ds *dataset.Dataset) []intent.ColumnInfo {
	cols := ds.Columns()
	infos := make([]intent.ColumnInfo, len(cols))
	for i, col := range cols {
		infos[i] = intent.ColumnInfo{
			Name:    col.Name,
			Numeric: col.IsNumeric(),
		}
	}
	return infos
}

// Numeric helpers

func meanOf(values []float64) float64 {
	return sumOf(values) / float64(len(values))
}

func sumOf(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func minMaxOf(values []float64) (float64, float64) {
	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV
}

func stdDevOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func uniqueCount(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
