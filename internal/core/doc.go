// Package core ingests employee CSV uploads and routes every row to one of
// two stores.
//
// The package has no HTTP or database dependencies; stores are injected as
// [RecordStore] and [AuditStore], so the same pipeline runs against
// PostgreSQL in production and in-memory stores in tests.
//
// # Pipeline
//
// One upload flows through these steps, sequentially, inside a single call to
// [Service.ProcessUpload]:
//
//  1. [ParseRows] decodes the file (charset aware) and yields rows keyed by
//     lowercase header name.
//  2. [RouteRows] runs [ValidateEmployee] on each row. Valid rows become
//     [EmployeeRecord]s tagged with the batch id; invalid rows become
//     [AuditRecord]s carrying row number, raw data, errors and primary reason.
//  3. [Persist] bulk-inserts both sides. A duplicate employeeId only lowers the
//     saved count; any other store error fails the upload.
//
// # Validation order
//
// Rules run in a fixed order and the first failing rule names the primary
// reason: required fields (first missing one only), email format, positive
// salary, joining date not in the future. Errors no rule claims are reported
// as BUSINESS_RULE_VIOLATION.
//
// # Error Handling
//
// Sentinel errors live in errors.go and error_messages.go. [MapError] turns
// any error into a [UserMessage] with a support code (FILE, UPL, DB, STAT,
// RATE, ERR000).
package core
