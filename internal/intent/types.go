package intent

// Action is the main action class of a user query.
type Action string

const (
	ActionSummary       Action = "summary"
	ActionVisualization Action = "visualization"
	ActionAnalysis      Action = "analysis"
	ActionFilter        Action = "filter"
	ActionCorrelation   Action = "correlation"
	ActionTimeSeries    Action = "time_series"
	ActionUnknown       Action = "unknown"
)

// Visualization types a plan can suggest.
const (
	VizHistogram = "histogram"
	VizScatter   = "scatter"
	VizBarChart  = "bar_chart"
	VizLineChart = "line_chart"
	VizHeatmap   = "heatmap"
	VizBoxplot   = "boxplot"
)

// Analysis types a plan can request.
const (
	AnalysisMean     = "mean"
	AnalysisMedian   = "median"
	AnalysisMax      = "max"
	AnalysisMin      = "min"
	AnalysisSum      = "sum"
	AnalysisCount    = "count"
	AnalysisDescribe = "describe"
)

// ColumnInfo describes a dataset column for plan building
type ColumnInfo struct {
	Name    string
	Numeric bool
}

// QueryPlan is the resolved plan for a user query
type QueryPlan struct {
	Action       Action            `json:"action"`
	VizType      string            `json:"viz_type,omitempty"`
	AnalysisType string            `json:"analysis_type,omitempty"`
	Columns      []string          `json:"columns,omitempty"`
	VizColumns   map[string]string `json:"viz_columns,omitempty"`
	Title        string            `json:"title,omitempty"`
}
