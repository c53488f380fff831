package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/raaihank/data-sentinel/internal/config"
	"github.com/raaihank/data-sentinel/internal/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	srv, err := New(config.GetDefaults(), log, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return srv
}

func uploadCSV(t *testing.T, srv *Server, filename, content string) string {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write([]byte(content))
	writer.Close()

	req := httptest.NewRequest("POST", "/v1/datasets", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Upload returned %d: %s", rec.Code, rec.Body.String())
	}

	var entry struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode upload response: %v", err)
	}
	return entry.ID
}

const salesCSV = "nom,ville,montant\nMarie Martin,Paris,100.5\nJean Dupont,Lyon,200\nMohamed Ben Ali,Paris,300\n"

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("Body = %s", rec.Body.String())
	}
}

func TestDatasetLifecycle(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "sales.csv", salesCSV)

	t.Run("List", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/datasets", nil)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if rec.Code != http.StatusOK || resp.Count != 1 {
			t.Errorf("List returned %d with count %d", rec.Code, resp.Count)
		}
	})

	t.Run("Get", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/datasets/"+id, nil)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Get returned %d", rec.Code)
		}
		var resp struct {
			Columns []string `json:"columns"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if len(resp.Columns) != 3 {
			t.Errorf("Columns = %v", resp.Columns)
		}
	})

	t.Run("GetUnknown", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/datasets/nope", nil)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want 404", rec.Code)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/v1/datasets/"+id, nil)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Delete returned %d", rec.Code)
		}

		req = httptest.NewRequest("DELETE", "/v1/datasets/"+id, nil)
		rec = httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Second delete returned %d, want 404", rec.Code)
		}
	})
}

func TestUploadRejectsUnknownFormat(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "data.xlsx")
	part.Write([]byte("not a spreadsheet"))
	writer.Close()

	req := httptest.NewRequest("POST", "/v1/datasets", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestAskEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "sales.csv", salesCSV)

	body := strings.NewReader(`{"query":"quelle est la moyenne de montant"}`)
	req := httptest.NewRequest("POST", "/v1/datasets/"+id+"/ask", body)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Ask returned %d: %s", rec.Code, rec.Body.String())
	}
	var answer struct {
		Success bool                   `json:"success"`
		Action  string                 `json:"action"`
		Results map[string]interface{} `json:"results"`
	}
	json.Unmarshal(rec.Body.Bytes(), &answer)
	if !answer.Success || answer.Action != "analysis" {
		t.Errorf("Answer = %+v", answer)
	}
	if answer.Results["montant"] == nil {
		t.Errorf("Results = %v", answer.Results)
	}
}

func TestAskRequiresQuery(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "sales.csv", salesCSV)

	req := httptest.NewRequest("POST", "/v1/datasets/"+id+"/ask", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestAnonymizeEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "sales.csv", salesCSV)

	t.Run("Preview", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/datasets/"+id+"/anonymize/preview", nil)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Preview returned %d", rec.Code)
		}
		var preview struct {
			ColumnsToRemove []string `json:"columns_to_remove"`
		}
		json.Unmarshal(rec.Body.Bytes(), &preview)
		if len(preview.ColumnsToRemove) == 0 || preview.ColumnsToRemove[0] != "nom" {
			t.Errorf("ColumnsToRemove = %v", preview.ColumnsToRemove)
		}
	})

	t.Run("Anonymize", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/datasets/"+id+"/anonymize", nil)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Anonymize returned %d", rec.Code)
		}
		var report struct {
			ColumnsRemoved []string `json:"columns_removed"`
			Score          float64  `json:"anonymization_score"`
		}
		json.Unmarshal(rec.Body.Bytes(), &report)
		if len(report.ColumnsRemoved) == 0 {
			t.Error("No columns removed")
		}
		if report.Score <= 0 {
			t.Errorf("Score = %f", report.Score)
		}

		// The registry entry now holds the anonymized copy.
		entry, ok := srv.getDataset(id)
		if !ok || !entry.Anonymized {
			t.Error("Dataset entry not marked anonymized")
		}
		if entry.data.Column("nom") != nil {
			t.Error("Name column still present after anonymization")
		}
	})
}

func TestRedactEndpoint(t *testing.T) {
	srv := newTestServer(t)

	body := strings.NewReader(`{"text":"contacter Marie Martin sur marie@example.com"}`)
	req := httptest.NewRequest("POST", "/v1/redact", body)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Redact returned %d", rec.Code)
	}
	var resp struct {
		Redacted string `json:"redacted"`
		Changed  bool   `json:"changed"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Changed {
		t.Error("Redaction reported no change")
	}
	if strings.Contains(resp.Redacted, "marie@example.com") {
		t.Errorf("Email survived: %s", resp.Redacted)
	}
}

func TestConcurrentAskAndAnonymize(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "sales.csv", salesCSV)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := strings.NewReader(`{"query":"quelle est la moyenne de montant"}`)
			req := httptest.NewRequest("POST", "/v1/datasets/"+id+"/ask", body)
			rec := httptest.NewRecorder()
			srv.router.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("Ask returned %d", rec.Code)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		req := httptest.NewRequest("POST", "/v1/datasets/"+id+"/anonymize", nil)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Anonymize returned %d", rec.Code)
		}
	}()
	wg.Wait()

	entry, ok := srv.getDataset(id)
	if !ok || !entry.Anonymized {
		t.Error("Dataset not anonymized after concurrent run")
	}
}

func TestIPRateLimiter(t *testing.T) {
	t.Run("PerClientBuckets", func(t *testing.T) {
		l := newIPRateLimiter(rate.Limit(1), 1)

		if !l.Allow("10.0.0.1") {
			t.Fatal("First request denied")
		}
		if l.Allow("10.0.0.1") {
			t.Error("Burst of 1 allowed a second immediate request")
		}
		if !l.Allow("10.0.0.2") {
			t.Error("One client's exhaustion throttled another client")
		}
	})

	t.Run("EvictsIdleClients", func(t *testing.T) {
		l := newIPRateLimiter(rate.Limit(1), 1)
		l.Allow("10.0.0.1")
		l.Allow("10.0.0.2")

		l.mu.Lock()
		l.clients["10.0.0.1"].lastSeen = time.Now().Add(-2 * clientLimiterTTL)
		l.evictIdle(time.Now())
		_, stale := l.clients["10.0.0.1"]
		_, fresh := l.clients["10.0.0.2"]
		l.mu.Unlock()

		if stale {
			t.Error("Idle bucket survived eviction")
		}
		if !fresh {
			t.Error("Active bucket was evicted")
		}
	})
}

func TestSearchRequiresIndexer(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/v1/search?q=ventes", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rec.Code)
	}
}
