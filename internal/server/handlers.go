package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/anonymizer"
	"github.com/raaihank/data-sentinel/internal/dataset"
	"github.com/raaihank/data-sentinel/internal/websocket"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	datasets := len(s.datasets)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":            "data-sentinel",
		"version":         "0.1.0",
		"mode":            s.config.Anonymizer.Mode,
		"datasets_loaded": datasets,
		"indexer_enabled": s.indexer != nil,
		"ner_enabled":     s.ner != nil && s.ner.IsReady(),
		"uptime":          time.Since(s.started).String(),
	})
}

// handleUploadDataset accepts a multipart dataset upload
func (s *Server) handleUploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)

	if err := r.ParseMultipartForm(s.config.Server.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	ds, err := parseUpload(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse dataset: %v", err))
		return
	}

	entry := &datasetEntry{
		ID:         generateDatasetID(header.Filename),
		Name:       header.Filename,
		Rows:       ds.NumRows(),
		Columns:    ds.NumColumns(),
		UploadedAt: time.Now(),
		data:       ds,
	}

	s.mu.Lock()
	s.datasets[entry.ID] = entry
	s.mu.Unlock()

	s.logger.Info("Dataset uploaded",
		zap.String("dataset_id", entry.ID),
		zap.String("name", entry.Name),
		zap.Int("rows", entry.Rows),
		zap.Int("columns", entry.Columns))

	writeJSON(w, http.StatusCreated, entry)
}

// handleListDatasets lists all loaded datasets
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	entries := make([]datasetEntry, 0, len(s.datasets))
	for _, entry := range s.datasets {
		entries = append(entries, *entry)
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": entries,
		"count":    len(entries),
	})
}

// handleGetDataset returns dataset metadata and column names
func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.getDataset(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset": entry,
		"columns": entry.data.ColumnNames(),
	})
}

// handleDeleteDataset removes a dataset from the registry
func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	_, ok := s.datasets[id]
	delete(s.datasets, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}

	s.logger.Info("Dataset deleted", zap.String("dataset_id", id))
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// askRequest is the body of an ask call
type askRequest struct {
	Query string `json:"query"`
}

// handleAsk answers a query against a loaded dataset
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.getDataset(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}

	start := time.Now()
	answer, err := s.engine.Ask(r.Context(), entry.ID, entry.data, req.Query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
		return
	}

	requestID := getRequestID(r.Context())
	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeQuery,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.QueryEvent{
			RequestID:    requestID,
			DatasetID:    entry.ID,
			Intent:       answer.Action,
			CacheHit:     answer.CacheHit,
			ClientIP:     getClientIP(r),
			ProcessingMS: float64(time.Since(start).Nanoseconds()) / 1e6,
		},
	})

	writeJSON(w, http.StatusOK, answer)
}

// handleAnonymize anonymizes a dataset and publishes the result along with
// the report
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	entry, ok := s.getDataset(id)
	if !ok {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}

	start := time.Now()
	anonymized, report := s.newAnonymizer().Anonymize(entry.data)

	// Re-fetch under the write lock; the entry may have been deleted while
	// the run was in flight.
	s.mu.Lock()
	if live, ok := s.datasets[id]; ok {
		live.data = anonymized
		live.Rows = anonymized.NumRows()
		live.Columns = anonymized.NumColumns()
		live.Anonymized = true
	}
	s.mu.Unlock()

	requestID := getRequestID(r.Context())
	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeAnonymization,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.AnonymizationEvent{
			RequestID:          requestID,
			DatasetID:          entry.ID,
			ColumnsRemoved:     report.ColumnsRemoved,
			ColumnsRedacted:    report.ColumnsRedacted,
			SensitiveDataFound: len(report.SensitiveFound),
			UncommonNames:      len(report.NamesDetected),
			AnonymizationScore: report.Score,
			ProcessingMS:       float64(time.Since(start).Nanoseconds()) / 1e6,
		},
	})

	writeJSON(w, http.StatusOK, report)
}

// handleAnonymizePreview reports the decisions a run would make
func (s *Server) handleAnonymizePreview(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.getDataset(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}

	preview := s.newAnonymizer().PreviewRun(entry.data)
	writeJSON(w, http.StatusOK, preview)
}

// handleIndexDataset indexes a dataset into the vector store
func (s *Server) handleIndexDataset(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		writeError(w, http.StatusServiceUnavailable, "indexing is not enabled")
		return
	}

	entry, ok := s.getDataset(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}

	result, err := s.indexer.IndexDataset(r.Context(), entry.ID, entry.data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("indexing failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// redactRequest is the body of a redact call
type redactRequest struct {
	Text string `json:"text"`
}

// handleRedact redacts sensitive data from free text
func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	var req redactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	anon := s.newAnonymizer()
	redactor := anonymizer.NewRedactor(s.anonCfg, anon.Classifier())
	redacted := redactor.Redact(req.Text)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"original_length": len(req.Text),
		"redacted":        redacted,
		"changed":         redacted != req.Text,
	})
}

// handleSearch searches indexed chunks semantically
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		writeError(w, http.StatusServiceUnavailable, "indexing is not enabled")
		return
	}

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}

	limit := 5
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	hits, err := s.indexer.Search(r.Context(), query, r.URL.Query().Get("dataset"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("search failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query": query,
		"hits":  hits,
		"count": len(hits),
	})
}

// handleStats returns runtime statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	datasets := len(s.datasets)
	s.mu.RUnlock()

	hubStats := s.wsHub.GetStats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":          time.Since(s.started).String(),
		"datasets_loaded": datasets,
		"embeddings":      s.embedder.GetStats(),
		"websocket": map[string]interface{}{
			"active_connections": hubStats.ActiveConnections,
			"total_connections":  hubStats.TotalConnections,
			"total_broadcasts":   hubStats.TotalBroadcasts,
		},
	})
}

// parseUpload parses an uploaded dataset by file extension
func parseUpload(file io.Reader, filename string) (*dataset.Dataset, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return dataset.FromCSV(file)
	case ".json":
		return dataset.FromJSON(file)
	case ".parquet":
		// The parquet reader needs random access, so spill to a temp file
		tmp, err := os.CreateTemp("", "upload-*.parquet")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp file: %w", err)
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()

		if _, err := io.Copy(tmp, file); err != nil {
			return nil, fmt.Errorf("failed to spool upload: %w", err)
		}
		return dataset.FromParquetFile(tmp.Name())
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// generateDatasetID derives a short stable ID from the filename and time
func generateDatasetID(name string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", name, time.Now().UnixNano())))
	return hex.EncodeToString(hash[:])[:12]
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
