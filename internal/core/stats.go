package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// OverallStats aggregates both stores across every batch.
type OverallStats struct {
	TotalValidRecords   int64 `json:"totalValidRecords"`
	TotalInvalidRecords int64 `json:"totalInvalidRecords"`
	TotalProcessed      int64 `json:"totalProcessed"`
}

// FailedRecord is one rejected row as shown in batch statistics.
type FailedRecord struct {
	Row    int           `json:"row"`
	Reason FailureReason `json:"reason"`
	Errors []FieldError  `json:"errors"`
	Data   Row           `json:"data"`
}

// BatchStats aggregates one batch.
type BatchStats struct {
	BatchID          string
	TotalRecords     int64
	SuccessCount     int64
	FailureCount     int64
	SuccessRate      string
	FailureBreakdown map[FailureReason]int64
	FailedRecords    []FailedRecord
}

// OverallStats counts every stored record.
func (s *Service) OverallStats(ctx context.Context) (OverallStats, error) {
	var valid, invalid int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		valid, err = s.records.CountEmployees(gctx, EmployeeFilter{})
		return err
	})
	g.Go(func() (err error) {
		invalid, err = s.audits.CountAudits(gctx, AuditFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return OverallStats{}, fmt.Errorf("overall stats: %w", err)
	}

	return OverallStats{
		TotalValidRecords:   valid,
		TotalInvalidRecords: invalid,
		TotalProcessed:      valid + invalid,
	}, nil
}

// BatchStats reports counts, success rate and failures for one batch. An
// unknown batch yields zero counts and a "0%" rate rather than an error.
func (s *Service) BatchStats(ctx context.Context, batchID string) (*BatchStats, error) {
	var (
		success int64
		audits  []AuditRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		success, err = s.records.CountEmployees(gctx, EmployeeFilter{UploadBatch: batchID})
		return err
	})
	g.Go(func() (err error) {
		audits, err = s.audits.FindAudits(gctx, AuditFilter{UploadBatch: batchID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch stats %s: %w", batchID, err)
	}

	stats := &BatchStats{
		BatchID:          batchID,
		SuccessCount:     success,
		FailureCount:     int64(len(audits)),
		FailureBreakdown: make(map[FailureReason]int64),
		FailedRecords:    make([]FailedRecord, 0, len(audits)),
	}
	stats.TotalRecords = stats.SuccessCount + stats.FailureCount
	stats.SuccessRate = SuccessRate(stats.SuccessCount, stats.TotalRecords)

	for _, a := range audits {
		stats.FailureBreakdown[a.FailureReason]++
		stats.FailedRecords = append(stats.FailedRecords, FailedRecord{
			Row:    a.RowNumber,
			Reason: a.FailureReason,
			Errors: a.ValidationErrors,
			Data:   a.RawData,
		})
	}

	return stats, nil
}

// AuditLog returns every audit record of a batch sorted by row number.
// Returns ErrBatchNotFound when the batch has none.
func (s *Service) AuditLog(ctx context.Context, batchID string) ([]AuditRecord, error) {
	records, err := s.audits.FindAudits(ctx, AuditFilter{UploadBatch: batchID})
	if err != nil {
		return nil, fmt.Errorf("audit log %s: %w", batchID, err)
	}
	if len(records) == 0 {
		return nil, ErrBatchNotFound
	}
	return records, nil
}
