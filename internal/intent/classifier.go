package intent

import (
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// keywordPatterns maps each action class to the keywords that vote for it.
// French and English terms are both listed because queries arrive in either.
var keywordPatterns = map[Action][]string{
	ActionSummary: {
		"résumé", "summary", "aperçu", "overview", "description",
		"statistiques", "stats", "info", "informations", "données",
	},
	ActionVisualization: {
		"graphique", "graph", "plot", "visualisation", "chart",
		"histogram", "histogramme", "scatter", "nuage", "barres",
		"ligne", "line", "heatmap", "corrélation", "boxplot",
		"distribution", "tendance", "trend",
	},
	ActionAnalysis: {
		"analyse", "analyser", "comparer", "compare", "calcul",
		"moyenne", "mean", "médiane", "median", "maximum", "minimum",
		"somme", "sum", "total", "count", "nombre",
	},
	ActionFilter: {
		"filtre", "filter", "où", "where", "contient", "égal",
		"supérieur", "inférieur", "entre", "between",
	},
	ActionCorrelation: {
		"corrélation", "correlation", "relation", "lien",
		"dépendance", "influence",
	},
	ActionTimeSeries: {
		"temps", "time", "date", "évolution", "tendance",
		"progression", "série temporelle",
	},
}

// Classifier turns free-form queries into query plans using keyword votes
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a query classifier
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// actionPriority fixes the tie-break order for equal vote counts, most
// specific class first.
var actionPriority = []Action{
	ActionCorrelation,
	ActionTimeSeries,
	ActionVisualization,
	ActionFilter,
	ActionAnalysis,
	ActionSummary,
}

// Classify scores each action class by keyword hits and returns the winner.
// Single-word keywords must match whole words so that "sum" does not fire
// inside "résumé"; ties resolve in actionPriority order.
func (c *Classifier) Classify(query string) Action {
	queryLower := strings.ToLower(query)
	tokens := tokenize(queryLower)

	best := ActionUnknown
	bestScore := 0
	for _, action := range actionPriority {
		score := 0
		for _, keyword := range keywordPatterns[action] {
			if matchKeyword(queryLower, tokens, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = action
			bestScore = score
		}
	}

	return best
}

// tokenize splits a lowercased query into words, dropping punctuation
func tokenize(queryLower string) map[string]bool {
	words := strings.FieldsFunc(queryLower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(words))
	for _, word := range words {
		set[word] = true
	}
	return set
}

// matchKeyword checks a keyword against the query. Multi-word keywords
// fall back to substring search.
func matchKeyword(queryLower string, tokens map[string]bool, keyword string) bool {
	if strings.ContainsRune(keyword, ' ') {
		return strings.Contains(queryLower, keyword)
	}
	return tokens[keyword]
}

// Plan builds a full query plan against the given dataset columns
func (c *Classifier) Plan(query string, columns []ColumnInfo) *QueryPlan {
	queryLower := strings.ToLower(query)
	action := c.Classify(query)
	mentioned := extractColumns(queryLower, columns)

	plan := &QueryPlan{
		Action:  action,
		Columns: mentioned,
	}

	switch action {
	case ActionSummary:
		if len(plan.Columns) == 0 {
			plan.Columns = allNames(columns)
		}
	case ActionVisualization, ActionCorrelation, ActionTimeSeries:
		plan.Action = ActionVisualization
		plan.VizType = determineVizType(queryLower, columns, mentioned)
		plan.VizColumns = selectVizColumns(plan.VizType, columns, mentioned)
		plan.Title = vizTitle(plan.VizType, plan.VizColumns)
	case ActionAnalysis, ActionFilter:
		plan.Action = ActionAnalysis
		plan.AnalysisType = determineAnalysisType(queryLower)
		if len(plan.Columns) == 0 {
			plan.Columns = allNames(columns)
		}
	}

	if c.logger != nil {
		c.logger.Debug("Query classified",
			zap.String("action", string(plan.Action)),
			zap.String("viz_type", plan.VizType),
			zap.Int("mentioned_columns", len(mentioned)))
	}

	return plan
}

// extractColumns finds dataset columns mentioned in the query
func extractColumns(queryLower string, columns []ColumnInfo) []string {
	var found []string
	words := strings.Fields(queryLower)

	for _, col := range columns {
		colLower := strings.ToLower(col.Name)
		if strings.Contains(queryLower, colLower) {
			found = append(found, col.Name)
			continue
		}
		for _, word := range words {
			if len(word) >= 3 && strings.Contains(colLower, word) {
				found = append(found, col.Name)
				break
			}
		}
	}

	return found
}

// determineVizType picks a chart type from keywords first, data shape second
func determineVizType(queryLower string, columns []ColumnInfo, mentioned []string) string {
	switch {
	case containsAny(queryLower, "histogram", "histogramme", "distribution"):
		return VizHistogram
	case containsAny(queryLower, "scatter", "nuage", "relation"):
		return VizScatter
	case containsAny(queryLower, "barres", "bar", "catégorie"):
		return VizBarChart
	case containsAny(queryLower, "ligne", "line", "évolution", "temps"):
		return VizLineChart
	case containsAny(queryLower, "heatmap", "corrélation", "correlation"):
		return VizHeatmap
	case containsAny(queryLower, "boxplot", "boîte"):
		return VizBoxplot
	}

	// Fall back to the shape of the mentioned columns
	if len(mentioned) > 0 {
		numeric, categorical := splitMentioned(columns, mentioned)
		switch {
		case len(numeric) >= 2:
			return VizScatter
		case len(numeric) == 1 && len(categorical) >= 1:
			return VizBarChart
		case len(numeric) == 1:
			return VizHistogram
		case len(categorical) >= 1:
			return VizBarChart
		}
	}

	// Last resort, use overall dataset shape
	numericCount := 0
	for _, col := range columns {
		if col.Numeric {
			numericCount++
		}
	}
	switch {
	case numericCount >= 2:
		return VizHeatmap
	case numericCount == 1:
		return VizHistogram
	default:
		return VizBarChart
	}
}

// selectVizColumns assigns dataset columns to chart axes
func selectVizColumns(vizType string, columns []ColumnInfo, mentioned []string) map[string]string {
	numeric, categorical := splitColumns(columns)
	numMentioned, catMentioned := splitMentioned(columns, mentioned)

	result := make(map[string]string)

	switch vizType {
	case VizHistogram:
		result["x"] = firstOf(numMentioned, numeric)

	case VizScatter:
		if len(numMentioned) >= 2 {
			result["x"] = numMentioned[0]
			result["y"] = numMentioned[1]
		} else {
			if len(numeric) > 0 {
				result["x"] = numeric[0]
			}
			if len(numeric) > 1 {
				result["y"] = numeric[1]
			}
		}

	case VizBarChart:
		result["x"] = firstOf(catMentioned, categorical)
		result["y"] = firstOf(numMentioned, numeric)

	case VizLineChart:
		var dateCols []string
		for _, col := range columns {
			lower := strings.ToLower(col.Name)
			if strings.Contains(lower, "date") || strings.Contains(lower, "time") || strings.Contains(lower, "temps") {
				dateCols = append(dateCols, col.Name)
			}
		}
		switch {
		case len(dateCols) > 0:
			result["x"] = dateCols[0]
		case len(mentioned) > 0:
			result["x"] = mentioned[0]
		case len(columns) > 0:
			result["x"] = columns[0].Name
		}
		result["y"] = firstOf(numMentioned, numeric)

	case VizHeatmap:
		cols := mentioned
		if len(cols) == 0 {
			cols = numeric
			if len(cols) > 10 {
				cols = cols[:10]
			}
		}
		result["columns"] = strings.Join(cols, ",")

	case VizBoxplot:
		result["y"] = firstOf(numMentioned, numeric)
	}

	for k, v := range result {
		if v == "" {
			delete(result, k)
		}
	}
	return result
}

// determineAnalysisType picks the requested aggregate
func determineAnalysisType(queryLower string) string {
	switch {
	case containsAny(queryLower, "moyenne", "mean", "avg"):
		return AnalysisMean
	case containsAny(queryLower, "médiane", "median"):
		return AnalysisMedian
	case containsAny(queryLower, "maximum", "max"):
		return AnalysisMax
	case containsAny(queryLower, "minimum", "min"):
		return AnalysisMin
	case containsAny(queryLower, "somme", "sum", "total"):
		return AnalysisSum
	case containsAny(queryLower, "count", "nombre", "combien"):
		return AnalysisCount
	default:
		return AnalysisDescribe
	}
}

// vizTitle generates a chart title for the plan
func vizTitle(vizType string, vizColumns map[string]string) string {
	switch vizType {
	case VizHistogram:
		return fmt.Sprintf("Distribution de %s", orDefault(vizColumns["x"], "données"))
	case VizScatter:
		return fmt.Sprintf("Relation entre %s et %s", orDefault(vizColumns["x"], "X"), orDefault(vizColumns["y"], "Y"))
	case VizBarChart:
		return fmt.Sprintf("%s par %s", orDefault(vizColumns["y"], "Valeurs"), orDefault(vizColumns["x"], "Catégorie"))
	case VizLineChart:
		return fmt.Sprintf("Évolution de %s dans le temps", orDefault(vizColumns["y"], "valeurs"))
	case VizHeatmap:
		return "Matrice de corrélation"
	case VizBoxplot:
		return fmt.Sprintf("Distribution de %s", orDefault(vizColumns["y"], "données"))
	default:
		return "Visualisation des données"
	}
}

// Helpers

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func allNames(columns []ColumnInfo) []string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}
	return names
}

func splitColumns(columns []ColumnInfo) (numeric, categorical []string) {
	for _, col := range columns {
		if col.Numeric {
			numeric = append(numeric, col.Name)
		} else {
			categorical = append(categorical, col.Name)
		}
	}
	return numeric, categorical
}

func splitMentioned(columns []ColumnInfo, mentioned []string) (numeric, categorical []string) {
	numericSet := make(map[string]bool)
	for _, col := range columns {
		if col.Numeric {
			numericSet[col.Name] = true
		}
	}
	for _, name := range mentioned {
		if numericSet[name] {
			numeric = append(numeric, name)
		} else {
			categorical = append(categorical, name)
		}
	}
	return numeric, categorical
}

func firstOf(preferred, fallback []string) string {
	if len(preferred) > 0 {
		return preferred[0]
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
