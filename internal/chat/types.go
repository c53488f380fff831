package chat

import (
	"time"

	"github.com/raaihank/data-sentinel/internal/intent"
)

// Answer is the engine's response to a user query
type Answer struct {
	Query        string                 `json:"query"`
	DatasetID    string                 `json:"dataset_id,omitempty"`
	Action       string                 `json:"action"`
	AnalysisType string                 `json:"analysis_type,omitempty"`
	Message      string                 `json:"message"`
	Plan         *intent.QueryPlan      `json:"plan,omitempty"`
	Results      map[string]interface{} `json:"results,omitempty"`
	Success      bool                   `json:"success"`
	CacheHit     bool                   `json:"cache_hit"`
	Duration     time.Duration          `json:"duration"`
}

// ColumnSummary holds per-column descriptive statistics
type ColumnSummary struct {
	Name        string   `json:"name"`
	Count       int      `json:"count"`
	Missing     int      `json:"missing"`
	Numeric     bool     `json:"numeric"`
	Mean        *float64 `json:"mean,omitempty"`
	Median      *float64 `json:"median,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	StdDev      *float64 `json:"std_dev,omitempty"`
	UniqueCount int      `json:"unique_count,omitempty"`
}

// Response templates keyed by plan outcome.
var responses = map[string]string{
	"summary":    "Je vais vous montrer un résumé statistique des données.",
	"histogram":  "Je vais créer un histogramme pour visualiser la distribution.",
	"scatter":    "Je vais créer un graphique en nuage de points pour voir les relations.",
	"bar_chart":  "Je vais créer un graphique en barres pour comparer les catégories.",
	"line_chart": "Je vais créer un graphique linéaire pour voir l'évolution.",
	"heatmap":    "Je vais créer une heatmap pour visualiser les corrélations.",
	"boxplot":    "Je vais créer un boxplot pour analyser la distribution et les outliers.",
	"analysis":   "Je vais effectuer l'analyse demandée sur les données.",
	"error":      "Je ne comprends pas votre demande. Pouvez-vous reformuler ?",
	"no_data":    "Aucune donnée n'est actuellement chargée.",
}
