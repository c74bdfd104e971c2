package core

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// DefaultInsertChunkSize bounds how many records go into one store call.
const DefaultInsertChunkSize = 1000

// PersistOptions tunes Persist.
type PersistOptions struct {
	// ChunkSize is the maximum records per bulk insert (default 1000).
	ChunkSize int

	// AuditDuplicates also writes a DUPLICATE_EMPLOYEE_ID audit record for
	// every accepted record the record store refused as a duplicate.
	AuditDuplicates bool
}

// PersistResult counts what the two stores actually hold after Persist.
type PersistResult struct {
	SavedValid   int64
	SavedInvalid int64

	// Duplicates lists refused employeeIds in input order.
	Duplicates []string
}

// Persist writes accepted records to the record store and rejected ones to the
// audit store. Uniqueness conflicts on the accepted path only lower
// SavedValid; every other store error aborts with ErrPersistFailed.
func Persist(ctx context.Context, records RecordStore, audits AuditStore, batch RoutedBatch, opts PersistOptions) (PersistResult, error) {
	var res PersistResult

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultInsertChunkSize
	}

	rejected := slices.Clip(batch.Rejected)

	for start := 0; start < len(batch.Accepted); start += chunkSize {
		end := min(start+chunkSize, len(batch.Accepted))
		chunk := batch.Accepted[start:end]

		ins, err := records.InsertEmployees(ctx, chunk)
		if err != nil {
			return PersistResult{}, fmt.Errorf("%w: insert employees [%d:%d]: %w", ErrPersistFailed, start, end, err)
		}
		if ins.Inserted+int64(len(ins.Conflicts)) != int64(len(chunk)) {
			return PersistResult{}, fmt.Errorf("%w: record store accounted for %d inserted and %d conflicts out of %d records",
				ErrPersistFailed, ins.Inserted, len(ins.Conflicts), len(chunk))
		}

		res.SavedValid += ins.Inserted
		res.Duplicates = append(res.Duplicates, ins.Conflicts...)

		if opts.AuditDuplicates && len(ins.Conflicts) > 0 {
			for _, rec := range conflictingRecords(chunk, ins.Conflicts) {
				rejected = append(rejected, duplicateAudit(rec, batch.FileName, rec.UploadedAt))
			}
		}
	}

	if len(rejected) > 0 {
		n, err := audits.InsertAudits(ctx, rejected)
		if err != nil {
			return PersistResult{}, fmt.Errorf("%w: insert audit records: %w", ErrPersistFailed, err)
		}
		res.SavedInvalid = n
	}

	return res, nil
}

// conflictingRecords picks which records in chunk were refused. When an id
// appears more than once, the earliest occurrence is the one the store kept,
// so conflicts are assigned from the end of the chunk backwards.
func conflictingRecords(chunk []EmployeeRecord, conflicts []string) []EmployeeRecord {
	remaining := make(map[string]int, len(conflicts))
	for _, id := range conflicts {
		remaining[id]++
	}

	picked := make([]bool, len(chunk))
	for i := len(chunk) - 1; i >= 0; i-- {
		id := chunk[i].EmployeeID
		if remaining[id] > 0 {
			remaining[id]--
			picked[i] = true
		}
	}

	out := make([]EmployeeRecord, 0, len(conflicts))
	for i, rec := range chunk {
		if picked[i] {
			out = append(out, rec)
		}
	}
	return out
}

func duplicateAudit(rec EmployeeRecord, fileName string, processedAt time.Time) AuditRecord {
	raw := rec.Raw
	if raw == nil {
		raw = Row{"employeeid": rec.EmployeeID}
	}
	return AuditRecord{
		RowNumber: rec.RowNumber,
		RawData:   raw,
		ValidationErrors: []FieldError{
			{Field: "employeeId", Message: msgDuplicateID, Value: rec.EmployeeID},
		},
		FailureReason: ReasonDuplicateEmployeeID,
		UploadBatch:   rec.UploadBatch,
		FileName:      fileName,
		ProcessedAt:   processedAt,
	}
}

// SuccessRate formats saved/total as a percentage with two decimals.
// A zero total reports "0%".
func SuccessRate(saved, total int64) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(saved)/float64(total)*100)
}
