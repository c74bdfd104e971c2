package web

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/JonMunkholm/hrdata/internal/core"
	"github.com/JonMunkholm/hrdata/internal/logging"
	"github.com/go-chi/chi/v5"
)

type overallStatsResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Stats   core.OverallStats `json:"stats"`
}

type batchCounts struct {
	TotalRecords int64  `json:"totalRecords"`
	SuccessCount int64  `json:"successCount"`
	FailureCount int64  `json:"failureCount"`
	SuccessRate  string `json:"successRate"`
}

type batchStatsResponse struct {
	Success          bool                         `json:"success"`
	BatchID          string                       `json:"batchId"`
	Stats            batchCounts                  `json:"stats"`
	FailureBreakdown map[core.FailureReason]int64 `json:"failureBreakdown"`
	FailedRecords    []core.FailedRecord          `json:"failedRecords"`
}

type auditLogResponse struct {
	Success       bool               `json:"success"`
	BatchID       string             `json:"batchId"`
	TotalFailures int                `json:"totalFailures"`
	Records       []core.AuditRecord `json:"records"`
}

// handleStats returns global counts, or one batch's breakdown when batchId is set.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	batchID := strings.TrimSpace(r.URL.Query().Get("batchId"))

	if batchID == "" {
		stats, err := s.service.OverallStats(r.Context())
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve statistics", err)
			return
		}
		writeJSON(w, overallStatsResponse{Success: true, Message: "Overall statistics", Stats: stats})
		return
	}

	stats, err := s.service.BatchStats(r.Context(), batchID)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve statistics", err)
		return
	}

	writeJSON(w, batchStatsResponse{
		Success: true,
		BatchID: stats.BatchID,
		Stats: batchCounts{
			TotalRecords: stats.TotalRecords,
			SuccessCount: stats.SuccessCount,
			FailureCount: stats.FailureCount,
			SuccessRate:  stats.SuccessRate,
		},
		FailureBreakdown: stats.FailureBreakdown,
		FailedRecords:    stats.FailedRecords,
	})
}

// handleAuditLog returns every rejected row of a batch in file order.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchId")

	records, ok := s.loadAuditLog(w, r, batchID)
	if !ok {
		return
	}

	writeJSON(w, auditLogResponse{
		Success:       true,
		BatchID:       batchID,
		TotalFailures: len(records),
		Records:       records,
	})
}

// handleAuditExport downloads a batch's rejected rows as CSV so they can be
// fixed and uploaded again.
func (s *Server) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchId")

	records, ok := s.loadAuditLog(w, r, batchID)
	if !ok {
		return
	}

	columns := auditColumns(records)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="failed_rows_%s.csv"`, batchID))

	cw := csv.NewWriter(w)
	cw.Write(append([]string{"_row", "_reason", "_errors"}, columns...))
	for _, rec := range records {
		line := make([]string, 0, len(columns)+3)
		line = append(line, strconv.Itoa(rec.RowNumber), string(rec.FailureReason), joinMessages(rec.ValidationErrors))
		for _, col := range columns {
			line = append(line, rec.RawData[col])
		}
		cw.Write(line)
	}
	cw.Flush()

	// Headers are already sent; a failed write can only be logged.
	if err := cw.Error(); err != nil {
		logging.FromContext(r.Context()).Error("audit export write failed",
			"batch_id", batchID,
			"rows", len(records),
			"error", err,
		)
	}
}

func (s *Server) loadAuditLog(w http.ResponseWriter, r *http.Request, batchID string) ([]core.AuditRecord, bool) {
	records, err := s.service.AuditLog(r.Context(), batchID)
	if errors.Is(err, core.ErrBatchNotFound) {
		respondClientError(w, http.StatusNotFound, "", "No audit records found for this batch")
		return nil, false
	}
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve audit log", err)
		return nil, false
	}
	return records, true
}

// auditColumns lists the required fields first, then any other raw keys sorted.
func auditColumns(records []core.AuditRecord) []string {
	seen := make(map[string]bool)
	for _, rec := range records {
		for k := range rec.RawData {
			seen[k] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for _, field := range core.RequiredFields {
		key := strings.ToLower(field)
		if seen[key] {
			columns = append(columns, key)
			delete(seen, key)
		}
	}

	extra := make([]string, 0, len(seen))
	for k := range seen {
		extra = append(extra, k)
	}
	slices.Sort(extra)
	return append(columns, extra...)
}

func joinMessages(errs []core.FieldError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}
