package core

import "context"

// InsertResult reports what an unordered bulk insert actually committed.
// Inserted + len(Conflicts) always equals the number of records offered.
type InsertResult struct {
	Inserted int64
	// Conflicts holds one employeeId per record refused by the uniqueness
	// constraint, in input order.
	Conflicts []string
}

// EmployeeFilter narrows record store reads. Zero value matches everything.
type EmployeeFilter struct {
	UploadBatch string
}

// AuditFilter narrows audit store reads. Zero value matches everything.
type AuditFilter struct {
	UploadBatch   string
	FailureReason FailureReason
}

// RecordStore persists accepted employees. Implementations enforce employeeId
// uniqueness and must keep inserting past a conflicting record.
type RecordStore interface {
	InsertEmployees(ctx context.Context, records []EmployeeRecord) (InsertResult, error)
	CountEmployees(ctx context.Context, filter EmployeeFilter) (int64, error)
}

// AuditStore persists rejected rows. FindAudits returns records sorted by
// row number ascending.
type AuditStore interface {
	InsertAudits(ctx context.Context, records []AuditRecord) (int64, error)
	CountAudits(ctx context.Context, filter AuditFilter) (int64, error)
	FindAudits(ctx context.Context, filter AuditFilter) ([]AuditRecord, error)
}
