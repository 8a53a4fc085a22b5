package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/cuiles/internal/config"
	_ "github.com/JonMunkholm/cuiles/internal/core/tables"
	"github.com/JonMunkholm/cuiles/internal/dialect"
	"github.com/JonMunkholm/cuiles/internal/pipeline"
	"github.com/JonMunkholm/cuiles/internal/source"
)

// newTestServer returns a server whose requests are confined to the
// returned directory, used as both source and destination root.
func newTestServer(t *testing.T, cfg *config.Config, limiter *pipeline.Limiter) (*Server, string) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	root := t.TempDir()
	svc := pipeline.NewService(pipeline.Options{
		Source:    source.Options{TempDir: t.TempDir()},
		Dialect:   dialect.SQLite{},
		BatchSize: 10,
		SourceDir: root,
		DestDir:   root,
	}, limiter, time.Minute)
	return NewServer(svc, cfg), root
}

// cuilesFixture writes a native SQLite source holding one valid record.
func cuilesFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cuiles.sqlite")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE aportes (CUIT TEXT, ANIO TEXT, CUIL TEXT, REMUNERACION_ENERO REAL)`,
		`INSERT INTO aportes VALUES ('20123456789', '2020', '27000000001', 1000)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func do(t *testing.T, s *Server, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func startJob(t *testing.T, s *Server, root string) string {
	t.Helper()
	body, _ := json.Marshal(pipeline.Request{
		CuilesSource: cuilesFixture(t, root),
		Destination:  filepath.Join(root, "out.sqlite"),
	})
	rec := do(t, s, http.MethodPost, "/api/conversions", string(body), nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp StartResponse
	decodeBody(t, rec, &resp)
	if resp.JobID == "" {
		t.Fatal("empty job id")
	}
	if got := rec.Header().Get("Location"); got != "/api/conversions/"+resp.JobID {
		t.Errorf("Location = %q", got)
	}
	return resp.JobID
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := do(t, s, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	var body struct {
		Status string                 `json:"status"`
		Jobs   pipeline.LimiterStatus `json:"jobs"`
	}
	decodeBody(t, rec, &body)
	if body.Status != "ok" || body.Jobs.MaxConcurrent != pipeline.DefaultMaxConcurrentJobs {
		t.Errorf("body = %+v", body)
	}
}

func TestConversion_Lifecycle(t *testing.T) {
	s, root := newTestServer(t, nil, nil)
	id := startJob(t, s, root)

	rec := do(t, s, http.MethodGet, "/api/conversions/"+id+"/result?wait=true", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("result status = %d, body = %s", rec.Code, rec.Body)
	}
	var res ResultResponse
	decodeBody(t, rec, &res)
	if !res.Succeeded || res.JobID != id || res.CuilesInserted != 1 || res.RecordsRead != 1 {
		t.Errorf("result = %+v", res)
	}

	rec = do(t, s, http.MethodGet, "/api/conversions/"+id, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	var p pipeline.Progress
	decodeBody(t, rec, &p)
	if p.Phase != pipeline.PhaseComplete || p.Percent != 100 {
		t.Errorf("progress = %+v", p)
	}

	// A finished job streams its terminal state and closes.
	rec = do(t, s, http.MethodGet, "/api/conversions/"+id+"/events", "", nil)
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"id: 100\n", "event: progress\n", `"phase":"complete"`, "event: complete\n"} {
		if !strings.Contains(body, want) {
			t.Errorf("event stream missing %q:\n%s", want, body)
		}
	}
}

func TestConversion_BadRequests(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"cuiles_source":`},
		{"unknown field", `{"source":"a.odb"}`},
		{"no sources", `{"destination":"out.sqlite"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/conversions", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var e ErrorResponse
			decodeBody(t, rec, &e)
			if e.Code != "JOB001" {
				t.Errorf("code = %q, want JOB001", e.Code)
			}
		})
	}
}

func TestConversion_PathsOutsideRoots(t *testing.T) {
	s, root := newTestServer(t, nil, nil)
	outside := t.TempDir()
	victim := filepath.Join(outside, "important.txt")
	if err := os.WriteFile(victim, []byte("precious"), 0o600); err != nil {
		t.Fatal(err)
	}
	inside := cuilesFixture(t, root)

	tests := []struct {
		name string
		req  pipeline.Request
	}{
		{"destination outside", pipeline.Request{CuilesSource: "/nonexistent/x.odb", Destination: victim}},
		{"destination escaping with dot-dot", pipeline.Request{CuilesSource: inside, Destination: "../" + filepath.Base(outside) + "/important.txt"}},
		{"source outside", pipeline.Request{CuilesSource: cuilesFixture(t, outside), Destination: "out.sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.req)
			rec := do(t, s, http.MethodPost, "/api/conversions", string(body), nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body)
			}
			var e ErrorResponse
			decodeBody(t, rec, &e)
			if e.Code != "JOB001" {
				t.Errorf("code = %q, want JOB001", e.Code)
			}
		})
	}

	if data, _ := os.ReadFile(victim); string(data) != "precious" {
		t.Errorf("file outside the destination root changed: %q", data)
	}
}

func TestConversion_RelativePaths(t *testing.T) {
	s, root := newTestServer(t, nil, nil)
	cuilesFixture(t, root)

	rec := do(t, s, http.MethodPost, "/api/conversions", `{"cuiles_source":"cuiles.sqlite","destination":"out.sqlite"}`, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var start StartResponse
	decodeBody(t, rec, &start)

	rec = do(t, s, http.MethodGet, start.ResultURL+"?wait=true", "", nil)
	var res ResultResponse
	decodeBody(t, rec, &res)
	if !res.Succeeded || res.CuilesInserted != 1 {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(root, "out.sqlite")); err != nil {
		t.Errorf("destination not written under root: %v", err)
	}
}

func TestConversion_NotFound(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	for _, path := range []string{"/api/conversions/nope", "/api/conversions/nope/events", "/api/conversions/nope/result"} {
		rec := do(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
			continue
		}
		var e ErrorResponse
		decodeBody(t, rec, &e)
		if e.Code != "JOB003" {
			t.Errorf("GET %s code = %q, want JOB003", path, e.Code)
		}
	}
}

func TestConversion_TooManyJobs(t *testing.T) {
	limiter := pipeline.NewLimiter(1, 10*time.Millisecond)
	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer limiter.Release()

	s, _ := newTestServer(t, nil, limiter)
	rec := do(t, s, http.MethodPost, "/api/conversions", `{"cuiles_source":"a.sqlite"}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.Config{Security: config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}}
	s, _ := newTestServer(t, cfg, nil)

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusForbidden},
		{"valid key", map[string]string{"X-API-Key": "secret"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/conversions/unknown", "", tt.header)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if rec := do(t, s, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200 without a key", rec.Code)
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
