package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/hrdata/internal/config"
	"github.com/JonMunkholm/hrdata/internal/core"
)

func TestUpload_Success(t *testing.T) {
	env := newTestEnv(t, testConfig())
	rec := env.do(uploadRequest(t, formPart{field: "note", content: "quarterly import"}, csvPart(employeesCSV)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := decode[uploadResponse](t, rec)
	if !body.Success || body.Message != "CSV processed successfully" || body.FileName != "employees.csv" || body.BatchID == "" {
		t.Errorf("envelope = %+v", body)
	}
	want := uploadStats{TotalRecords: 3, ValidRecords: 1, InvalidRecords: 2, SuccessRate: "33.33%"}
	if body.Stats != want {
		t.Errorf("stats = %+v, want %+v", body.Stats, want)
	}
	if !strings.HasPrefix(body.Details.ValidationSummary, "2 records failed validation.") {
		t.Errorf("summary = %q", body.Details.ValidationSummary)
	}
}

func TestUpload_GateErrors(t *testing.T) {
	tests := []struct {
		name      string
		req       func(t *testing.T) *http.Request
		wantError string
	}{
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("a,b"))
			},
			wantError: "No file uploaded. Please upload a CSV file.",
		},
		{
			name: "fields only",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, formPart{field: "note", content: "hi"})
			},
			wantError: "No file uploaded. Please upload a CSV file.",
		},
		{
			name: "wrong field name",
			req: func(t *testing.T) *http.Request {
				p := csvPart(employeesCSV)
				p.field = "upload"
				return uploadRequest(t, p)
			},
			wantError: "Unexpected field",
		},
		{
			name: "two files",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, csvPart(employeesCSV), csvPart(employeesCSV))
			},
			wantError: "Too many files",
		},
		{
			name: "wrong type",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, formPart{field: "file", filename: "photo.png", contentType: "image/png", content: "x"})
			},
			wantError: "Invalid file type. Only CSV files are allowed.",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, csvPart(strings.Repeat("a", 5000)))
			},
			wantError: "File too large",
		},
		{
			name: "header only",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, csvPart("employeeId,name\n"))
			},
			wantError: "CSV file is empty or invalid",
		},
		{
			name: "unknown encoding",
			req: func(t *testing.T) *http.Request {
				req := uploadRequest(t, csvPart(employeesCSV))
				req.URL.RawQuery = "encoding=klingon-8"
				return req
			},
			wantError: "Unsupported file encoding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig())
			rec := env.do(tt.req(t))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body)
			}
			body := decode[ErrorResponse](t, rec)
			if body.Success || body.Error != tt.wantError {
				t.Errorf("body = %+v, want error %q", body, tt.wantError)
			}
			if n, _ := env.audits.CountAudits(t.Context(), core.AuditFilter{}); n != 0 {
				t.Errorf("audit records written for rejected upload: %d", n)
			}
		})
	}
}

func TestUpload_AcceptsByExtensionOrMIME(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
	}{
		{"people.CSV", "application/octet-stream"},
		{"export.txt", "text/csv"},
		{"legacy.dat", "application/vnd.ms-excel"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			env := newTestEnv(t, testConfig())
			rec := env.do(uploadRequest(t, formPart{field: "file", filename: tt.filename, contentType: tt.contentType, content: employeesCSV}))
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, body %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestUpload_PersistFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Env = config.EnvDevelopment
	env := newTestEnv(t, cfg)
	env.audits.FailWith(errors.New("connection refused"))

	rec := env.do(uploadRequest(t, csvPart(employeesCSV)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decode[ErrorResponse](t, rec)
	if body.Error != "Failed to process CSV file" || body.Details == "" || body.Code != "DB004" {
		t.Errorf("body = %+v", body)
	}
	if body.Stack == "" {
		t.Error("development mode should include a stack")
	}
}

func TestUpload_PersistFailureHidesStackInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Env = config.EnvProduction
	env := newTestEnv(t, cfg)
	env.audits.FailWith(errors.New("disk full"))

	rec := env.do(uploadRequest(t, csvPart(employeesCSV)))
	body := decode[ErrorResponse](t, rec)
	if rec.Code != http.StatusInternalServerError || body.Stack != "" {
		t.Errorf("status %d, stack %q", rec.Code, body.Stack)
	}
}

func TestUpload_ServerBusy(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxConcurrent = 1
	cfg.Upload.MaxWaitTime = 20 * time.Millisecond
	env := newTestEnv(t, cfg)

	// Hold the only slot with an upload whose body never finishes.
	pr, pw := io.Pipe()
	held := make(chan error, 1)
	go func() {
		_, err := env.server.service.ProcessUpload(context.Background(), core.UploadRequest{FileName: "slow.csv", Body: pr})
		held <- err
	}()
	t.Cleanup(func() {
		pw.Close()
		<-held
	})

	deadline := time.Now().Add(2 * time.Second)
	for env.server.service.ActiveUploads() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow upload never took a slot")
		}
		time.Sleep(time.Millisecond)
	}

	rec := env.do(uploadRequest(t, csvPart(employeesCSV)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	body := decode[ErrorResponse](t, rec)
	if body.Success || body.Error != "Server busy" || body.Details == "" || body.Code != "UPL002" || body.Message != "" {
		t.Errorf("body = %+v", body)
	}
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
	status int
}

func (w *brokenWriter) Header() http.Header { return w.header }

func (w *brokenWriter) WriteHeader(status int) { w.status = status }

func (w *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

func TestAuditExport_LogsWriteFailure(t *testing.T) {
	env := newTestEnv(t, testConfig())
	up := decode[uploadResponse](t, env.do(uploadRequest(t, csvPart(employeesCSV))))

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	w := &brokenWriter{header: make(http.Header)}
	env.server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/audit/"+up.BatchID+"/export", nil))

	out := buf.String()
	if !strings.Contains(out, "audit export write failed") || !strings.Contains(out, "client went away") {
		t.Errorf("log output missing write failure:\n%s", out)
	}
	if !strings.Contains(out, "batch_id="+up.BatchID) {
		t.Errorf("log output missing batch id:\n%s", out)
	}
}

func TestStatsAndAudit(t *testing.T) {
	env := newTestEnv(t, testConfig())
	up := decode[uploadResponse](t, env.do(uploadRequest(t, csvPart(employeesCSV))))

	t.Run("overall", func(t *testing.T) {
		rec := env.get("/api/stats")
		body := decode[overallStatsResponse](t, rec)
		want := core.OverallStats{TotalValidRecords: 1, TotalInvalidRecords: 2, TotalProcessed: 3}
		if rec.Code != http.StatusOK || body.Message != "Overall statistics" || body.Stats != want {
			t.Errorf("status %d, body %+v", rec.Code, body)
		}
	})

	t.Run("batch", func(t *testing.T) {
		rec := env.get("/api/stats?batchId=" + up.BatchID)
		body := decode[batchStatsResponse](t, rec)
		if rec.Code != http.StatusOK || body.BatchID != up.BatchID {
			t.Fatalf("status %d, body %+v", rec.Code, body)
		}
		if body.Stats != (batchCounts{TotalRecords: 3, SuccessCount: 1, FailureCount: 2, SuccessRate: "33.33%"}) {
			t.Errorf("stats = %+v", body.Stats)
		}
		if body.FailureBreakdown[core.ReasonInvalidSalary] != 1 || body.FailureBreakdown[core.ReasonInvalidEmail] != 1 {
			t.Errorf("breakdown = %v", body.FailureBreakdown)
		}
		if len(body.FailedRecords) != 2 || body.FailedRecords[0].Row != 3 || body.FailedRecords[0].Data["email"] != "invalid-email" {
			t.Errorf("failedRecords = %+v", body.FailedRecords)
		}
	})

	t.Run("unknown batch", func(t *testing.T) {
		body := decode[batchStatsResponse](t, env.get("/api/stats?batchId=missing"))
		if body.Stats.TotalRecords != 0 || body.Stats.SuccessRate != "0%" {
			t.Errorf("stats = %+v", body.Stats)
		}
	})

	t.Run("audit", func(t *testing.T) {
		rec := env.get("/api/audit/" + up.BatchID)
		body := decode[auditLogResponse](t, rec)
		if rec.Code != http.StatusOK || body.TotalFailures != 2 {
			t.Fatalf("status %d, body %+v", rec.Code, body)
		}
		if body.Records[0].RowNumber != 3 || body.Records[1].RowNumber != 4 {
			t.Errorf("order = %d, %d", body.Records[0].RowNumber, body.Records[1].RowNumber)
		}
		if body.Records[0].FailureReason != core.ReasonInvalidEmail {
			t.Errorf("reason = %q", body.Records[0].FailureReason)
		}
	})

	t.Run("audit not found", func(t *testing.T) {
		rec := env.get("/api/audit/missing")
		body := decode[ErrorResponse](t, rec)
		if rec.Code != http.StatusNotFound || body.Message != "No audit records found for this batch" {
			t.Errorf("status %d, body %+v", rec.Code, body)
		}
	})

	t.Run("export", func(t *testing.T) {
		rec := env.get("/api/audit/" + up.BatchID + "/export")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
			t.Errorf("Content-Type = %q", ct)
		}

		lines, err := csv.NewReader(rec.Body).ReadAll()
		if err != nil {
			t.Fatalf("read export: %v", err)
		}
		wantHeader := "_row,_reason,_errors,employeeid,name,email,department,salary,joiningdate"
		if got := strings.Join(lines[0], ","); got != wantHeader {
			t.Errorf("header = %s", got)
		}
		if len(lines) != 3 || lines[1][0] != "3" || lines[1][1] != "INVALID_EMAIL" || lines[1][2] != "Invalid email format" {
			t.Errorf("rows = %v", lines[1:])
		}
	})
}
