package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/hrdata/internal/core"
	"github.com/jackc/pgx/v5"
)

var auditCopyColumns = []string{
	"row_number", "raw_data", "validation_errors", "failure_reason",
	"upload_batch", "file_name", "processed_at",
}

const (
	countAuditsSQL = `SELECT count(*) FROM audit_logs`
	findAuditsSQL  = `SELECT id, row_number, raw_data, validation_errors, failure_reason, upload_batch, file_name, processed_at, created_at, updated_at FROM audit_logs`
	auditOrderSQL  = ` ORDER BY row_number ASC, id ASC`
)

// AuditStore stores rejected rows.
type AuditStore struct {
	db DBTX
}

// NewAuditStore returns an AuditStore over db.
func NewAuditStore(db DBTX) *AuditStore {
	return &AuditStore{db: db}
}

// InsertAudits writes records with COPY. The batch is all-or-nothing.
func (s *AuditStore) InsertAudits(ctx context.Context, records []core.AuditRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		raw, err := json.Marshal(r.RawData)
		if err != nil {
			return 0, fmt.Errorf("encode raw data for row %d: %w", r.RowNumber, err)
		}
		errs, err := json.Marshal(r.ValidationErrors)
		if err != nil {
			return 0, fmt.Errorf("encode validation errors for row %d: %w", r.RowNumber, err)
		}
		rows[i] = []any{
			int32(r.RowNumber), raw, errs, string(r.FailureReason),
			r.UploadBatch, r.FileName, r.ProcessedAt,
		}
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{"audit_logs"}, auditCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy audit records: %w", err)
	}
	return n, nil
}

// CountAudits counts records matching filter.
func (s *AuditStore) CountAudits(ctx context.Context, filter core.AuditFilter) (int64, error) {
	where := auditWhere(filter)

	var count int64
	if err := s.db.QueryRow(ctx, countAuditsSQL+where.String(), where.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return count, nil
}

// FindAudits returns matching records ordered by row number.
func (s *AuditStore) FindAudits(ctx context.Context, filter core.AuditFilter) ([]core.AuditRecord, error) {
	where := auditWhere(filter)

	rows, err := s.db.Query(ctx, findAuditsSQL+where.String()+auditOrderSQL, where.args...)
	if err != nil {
		return nil, fmt.Errorf("find audit records: %w", err)
	}
	defer rows.Close()

	var out []core.AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find audit records: %w", err)
	}
	return out, nil
}

func auditWhere(filter core.AuditFilter) *whereClause {
	where := &whereClause{}
	if filter.UploadBatch != "" {
		where.add("upload_batch", filter.UploadBatch)
	}
	if filter.FailureReason != "" {
		where.add("failure_reason", string(filter.FailureReason))
	}
	return where
}

func scanAudit(row pgx.Row) (core.AuditRecord, error) {
	var (
		rec       core.AuditRecord
		rowNumber int32
		raw       []byte
		errs      []byte
		reason    string
	)
	if err := row.Scan(&rec.ID, &rowNumber, &raw, &errs, &reason, &rec.UploadBatch, &rec.FileName,
		&rec.ProcessedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return core.AuditRecord{}, fmt.Errorf("scan audit record: %w", err)
	}

	rec.RowNumber = int(rowNumber)
	rec.FailureReason = core.FailureReason(reason)
	if err := json.Unmarshal(raw, &rec.RawData); err != nil {
		return core.AuditRecord{}, fmt.Errorf("decode raw data of audit %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal(errs, &rec.ValidationErrors); err != nil {
		return core.AuditRecord{}, fmt.Errorf("decode validation errors of audit %d: %w", rec.ID, err)
	}
	return rec, nil
}
