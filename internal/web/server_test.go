package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/JonMunkholm/hrdata/internal/config"
	"github.com/JonMunkholm/hrdata/internal/core"
	"github.com/JonMunkholm/hrdata/internal/database/memory"
)

const employeesCSV = `employeeId,name,email,department,salary,joiningDate
E001,John Doe,john@company.com,Engineering,75000,2023-01-15
E002,Jane Smith,invalid-email,Marketing,65000,2023-02-20
E003,Bob Johnson,bob@company.com,Sales,-5000,2023-03-10
`

func testConfig() *config.Config {
	return &config.Config{
		Env: config.EnvTest,
		Upload: config.UploadConfig{
			MaxFileSize:     4096,
			MaxConcurrent:   2,
			MaxWaitTime:     time.Second,
			Timeout:         10 * time.Second,
			InsertBatchSize: 100,
		},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

type testEnv struct {
	server  *Server
	records *memory.RecordStore
	audits  *memory.AuditStore
}

func newTestEnv(t *testing.T, cfg *config.Config) testEnv {
	t.Helper()
	records, audits := memory.NewRecordStore(), memory.NewAuditStore()
	svc, err := core.NewService(records, audits, cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	srv := NewServer(svc, cfg)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return testEnv{server: srv, records: records, audits: audits}
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func (e testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

type formPart struct {
	field       string
	filename    string
	contentType string
	content     string
}

func csvPart(content string) formPart {
	return formPart{field: "file", filename: "employees.csv", contentType: "text/csv", content: content}
}

func uploadRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename == "" {
			if err := mw.WriteField(p.field, p.content); err != nil {
				t.Fatal(err)
			}
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(p.content))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, testConfig())
	rec := env.get("/")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[bannerResponse](t, rec)
	if body.Status != "operational" || body.Version != APIVersion || body.Endpoints["upload"] != "POST /api/upload" {
		t.Errorf("banner = %+v", body)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testConfig())
	rec := env.get("/api/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[healthResponse](t, rec)
	if !body.Success || body.Message != "API is healthy" {
		t.Errorf("health = %+v", body)
	}
	if _, err := time.Parse(time.RFC3339Nano, body.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", body.Timestamp, err)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, testConfig())

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/nope", nil),
		httptest.NewRequest(http.MethodDelete, "/api/stats", nil),
		httptest.NewRequest(http.MethodGet, "/api/upload", nil),
	} {
		rec := env.do(req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", req.Method, req.URL.Path, rec.Code)
			continue
		}
		body := decode[ErrorResponse](t, rec)
		if body.Success || body.Error != "Route not found" {
			t.Errorf("%s %s: body = %+v", req.Method, req.URL.Path, body)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, testConfig())
	rec := env.get("/api/health")

	for header, want := range map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 3, UploadLimit: 1}
	env := newTestEnv(t, cfg)

	for i := 0; i < 3; i++ {
		if rec := env.get("/api/health"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	rec := env.get("/api/health")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	other := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	other.RemoteAddr = "203.0.113.9:4000"
	if rec := env.do(other); rec.Code != http.StatusOK {
		t.Errorf("other client limited: status = %d", rec.Code)
	}
}

func TestRateLimit_UploadBucket(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 1}
	env := newTestEnv(t, cfg)

	if rec := env.do(uploadRequest(t, csvPart(employeesCSV))); rec.Code != http.StatusOK {
		t.Fatalf("first upload: status = %d, body %s", rec.Code, rec.Body)
	}
	if rec := env.do(uploadRequest(t, csvPart(employeesCSV))); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second upload: status = %d, want 429", rec.Code)
	}
	if rec := env.get("/api/stats"); rec.Code != http.StatusOK {
		t.Errorf("stats limited by upload bucket: status = %d", rec.Code)
	}
}
