package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/hrdata/internal/config"
	"github.com/JonMunkholm/hrdata/internal/logging"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

// Service runs the upload pipeline and answers batch queries.
type Service struct {
	records RecordStore
	audits  AuditStore
	limiter *UploadLimiter

	timeout time.Duration
	persist PersistOptions

	now   func() time.Time
	newID func() string
}

// NewService wires the pipeline to its stores using the upload settings in cfg.
func NewService(records RecordStore, audits AuditStore, cfg *config.Config) (*Service, error) {
	if records == nil || audits == nil {
		return nil, errors.New("core: record and audit stores are required")
	}
	if cfg == nil {
		return nil, errors.New("core: config is required")
	}

	return &Service{
		records: records,
		audits:  audits,
		limiter: NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		timeout: cfg.Upload.Timeout,
		persist: PersistOptions{
			ChunkSize:       cfg.Upload.InsertBatchSize,
			AuditDuplicates: cfg.Upload.AuditDuplicates,
		},
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

// UploadRequest is one CSV file handed to the pipeline.
type UploadRequest struct {
	FileName string
	Body     io.Reader
	// Charset is a WHATWG encoding label; empty means UTF-8.
	Charset string
}

// UploadResult summarizes what one upload persisted.
type UploadResult struct {
	BatchID        string
	FileName       string
	TotalRecords   int64
	ValidRecords   int64
	InvalidRecords int64
	SuccessRate    string

	// Rejected is how many rows failed validation, before persistence.
	Rejected       int
	Duplicates     []string
	MissingColumns []string
}

// ProcessUpload parses, validates, routes and persists one file.
//
// Returns ErrEmptyFile when the file has no data rows and
// ErrUnsupportedEncoding for an unknown charset; nothing is persisted in
// either case. Parse and store failures carry a stack trace.
func (s *Service) ProcessUpload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log := logging.WithFields(ctx, "file", req.FileName)
	began := time.Now()

	parsed, err := ParseRows(req.Body, req.Charset)
	if err != nil {
		if errors.Is(err, ErrUnsupportedEncoding) {
			return nil, err
		}
		return nil, pkgerrors.WithStack(err)
	}
	if len(parsed.Rows) == 0 {
		return nil, ErrEmptyFile
	}

	batchID := s.newID()
	log = log.With("batch_id", batchID)
	log.Info("upload started", "rows", len(parsed.Rows))

	batch := RouteRows(parsed.Rows, batchID, req.FileName, s.now())

	saved, err := Persist(ctx, s.records, s.audits, batch, s.persist)
	if err != nil {
		log.Error("upload failed", "error", err)
		return nil, pkgerrors.WithStack(err)
	}

	total := int64(len(parsed.Rows))
	result := &UploadResult{
		BatchID:        batchID,
		FileName:       req.FileName,
		TotalRecords:   total,
		ValidRecords:   saved.SavedValid,
		InvalidRecords: saved.SavedInvalid,
		SuccessRate:    SuccessRate(saved.SavedValid, total),
		Rejected:       len(batch.Rejected),
		Duplicates:     saved.Duplicates,
		MissingColumns: MissingColumns(parsed.Headers),
	}

	if len(saved.Duplicates) > 0 {
		log.Warn("duplicate employee ids skipped", "count", len(saved.Duplicates))
	}
	log.Info("upload completed",
		"valid", result.ValidRecords,
		"invalid", result.InvalidRecords,
		"success_rate", result.SuccessRate,
		"duration_ms", time.Since(began).Milliseconds(),
	)

	return result, nil
}

// ValidationSummary is the one-line human summary returned with an upload.
func (r *UploadResult) ValidationSummary() string {
	if r.Rejected == 0 {
		return "All records passed validation"
	}
	return fmt.Sprintf("%d records failed validation. Use /api/stats?batchId=%s for details.", r.Rejected, r.BatchID)
}

// WaitForUploads blocks until in-flight uploads finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ActiveUploads returns the number of uploads currently in the pipeline.
func (s *Service) ActiveUploads() int {
	return s.limiter.Active()
}
