package core

import (
	"fmt"
	"strings"
	"time"
)

// Row is one normalized CSV data line: lowercase-trimmed header name to
// trimmed cell text.
type Row map[string]string

// Get looks a field up by name, ignoring case. Canonical field names such as
// "employeeId" resolve against the lowercased header "employeeid".
func (r Row) Get(field string) (string, bool) {
	v, ok := r[strings.ToLower(field)]
	return v, ok
}

// Value returns the trimmed value for field, or "" when absent.
func (r Row) Value(field string) string {
	v, _ := r.Get(field)
	return strings.TrimSpace(v)
}

// Clone returns a shallow copy so routed records never alias the parser's maps.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FailureReason is the primary category attributed to a rejected row.
type FailureReason string

const (
	ReasonInvalidSalary         FailureReason = "INVALID_SALARY"
	ReasonInvalidEmail          FailureReason = "INVALID_EMAIL"
	ReasonInvalidDate           FailureReason = "INVALID_DATE"
	ReasonMissingRequiredField  FailureReason = "MISSING_REQUIRED_FIELD"
	ReasonDuplicateEmployeeID   FailureReason = "DUPLICATE_EMPLOYEE_ID"
	ReasonBusinessRuleViolation FailureReason = "BUSINESS_RULE_VIOLATION"
)

// AllFailureReasons lists every reason in declaration order.
func AllFailureReasons() []FailureReason {
	return []FailureReason{
		ReasonInvalidSalary,
		ReasonInvalidEmail,
		ReasonInvalidDate,
		ReasonMissingRequiredField,
		ReasonDuplicateEmployeeID,
		ReasonBusinessRuleViolation,
	}
}

// Valid reports whether r is one of the known reasons.
func (r FailureReason) Valid() bool {
	switch r {
	case ReasonInvalidSalary, ReasonInvalidEmail, ReasonInvalidDate,
		ReasonMissingRequiredField, ReasonDuplicateEmployeeID, ReasonBusinessRuleViolation:
		return true
	}
	return false
}

// EmployeeStatus is the employment state stored with each accepted record.
type EmployeeStatus string

const (
	StatusActive   EmployeeStatus = "active"
	StatusInactive EmployeeStatus = "inactive"
)

// ParseEmployeeStatus maps a cell value to a status. Empty input defaults to active.
func ParseEmployeeStatus(s string) (EmployeeStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return StatusActive, nil
	case string(StatusActive):
		return StatusActive, nil
	case string(StatusInactive):
		return StatusInactive, nil
	}
	return "", fmt.Errorf("invalid enum: status %q", s)
}

// FieldError describes one violated rule for one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// ValidationResult is the classification of a single row.
// IsValid is true exactly when Errors is empty.
type ValidationResult struct {
	IsValid       bool
	Errors        []FieldError
	PrimaryReason FailureReason
}

// EmployeeRecord is an accepted, sanitized row as stored in the record store.
type EmployeeRecord struct {
	ID          int64          `json:"id,omitempty"`
	EmployeeID  string         `json:"employeeId"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Department  string         `json:"department"`
	Salary      float64        `json:"salary"`
	JoiningDate time.Time      `json:"joiningDate"`
	Status      EmployeeStatus `json:"status"`
	UploadBatch string         `json:"uploadBatch"`
	UploadedAt  time.Time      `json:"uploadedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`

	// Position and source of the row in its upload; never persisted.
	RowNumber int `json:"-"`
	Raw       Row `json:"-"`
}

// AuditRecord is a rejected row as stored in the audit store. Immutable once written.
type AuditRecord struct {
	ID               int64         `json:"id,omitempty"`
	RowNumber        int           `json:"rowNumber"`
	RawData          Row           `json:"rawData"`
	ValidationErrors []FieldError  `json:"validationErrors"`
	FailureReason    FailureReason `json:"failureReason"`
	UploadBatch      string        `json:"uploadBatch"`
	FileName         string        `json:"fileName"`
	ProcessedAt      time.Time     `json:"processedAt"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
