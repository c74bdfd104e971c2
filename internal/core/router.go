package core

import "time"

// HeaderRowOffset converts a zero-based data index into the 1-based file line,
// counting the header as line 1.
const HeaderRowOffset = 2

// RoutedBatch is the in-memory outcome of classifying one upload.
// Both slices keep the relative input order of their rows.
type RoutedBatch struct {
	FileName string
	Accepted []EmployeeRecord
	Rejected []AuditRecord
}

// Total is the number of rows routed.
func (b RoutedBatch) Total() int {
	return len(b.Accepted) + len(b.Rejected)
}

// RouteRows validates every row exactly once and partitions the results.
// It performs no I/O; an empty input yields two empty slices.
func RouteRows(rows []Row, batchID, fileName string, now time.Time) RoutedBatch {
	batch := RoutedBatch{
		FileName: fileName,
		Accepted: make([]EmployeeRecord, 0, len(rows)),
		Rejected: make([]AuditRecord, 0),
	}

	for i, row := range rows {
		rowNumber := i + HeaderRowOffset
		res := ValidateEmployee(row, now)

		if res.IsValid {
			rec, err := SanitizeEmployee(row, batchID, rowNumber, now)
			if err == nil {
				batch.Accepted = append(batch.Accepted, rec)
				continue
			}
			res.Errors = []FieldError{{Field: "row", Message: err.Error(), Value: nil}}
			res.PrimaryReason = ReasonBusinessRuleViolation
		}

		batch.Rejected = append(batch.Rejected, AuditRecord{
			RowNumber:        rowNumber,
			RawData:          row.Clone(),
			ValidationErrors: res.Errors,
			FailureReason:    res.PrimaryReason,
			UploadBatch:      batchID,
			FileName:         fileName,
			ProcessedAt:      now,
		})
	}

	return batch
}
