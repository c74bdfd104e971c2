package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// RequiredFields are checked in this order; only the first missing one is reported.
var RequiredFields = []string{"employeeId", "name", "email", "department", "salary", "joiningDate"}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Messages returned in FieldError.Message. Clients match on these strings.
const (
	msgInvalidEmail  = "Invalid email format"
	msgInvalidSalary = "Salary must be a positive number"
	msgInvalidDate   = "Invalid date or future date not allowed"
	msgInvalidStatus = "Status must be one of: active, inactive"
	msgDuplicateID   = "Employee ID already exists"
)

func missingFieldMessage(field string) string {
	return fmt.Sprintf("Required field '%s' is missing or empty", field)
}

// ValidateEmployee classifies one row. It is pure: now only anchors the
// future-date check and the two-digit year pivot.
//
// Every violated rule appends an error. The primary reason is claimed by the
// first rule that fails, in order: required fields, email, salary, joining
// date. Errors that no rule claims fall back to BUSINESS_RULE_VIOLATION, which
// is also the reason carried by a valid result.
func ValidateEmployee(row Row, now time.Time) ValidationResult {
	var res ValidationResult
	claim := func(reason FailureReason) {
		if res.PrimaryReason == "" {
			res.PrimaryReason = reason
		}
	}
	fail := func(field, message string, value any) {
		res.Errors = append(res.Errors, FieldError{Field: field, Message: message, Value: value})
	}

	for _, field := range RequiredFields {
		raw, ok := row.Get(field)
		if ok && strings.TrimSpace(raw) != "" {
			continue
		}
		var value any
		if ok {
			value = raw
		}
		fail(field, missingFieldMessage(field), value)
		claim(ReasonMissingRequiredField)
		break
	}

	if email := row.Value("email"); email != "" && !emailPattern.MatchString(email) {
		fail("email", msgInvalidEmail, email)
		claim(ReasonInvalidEmail)
	}

	if salary := row.Value("salary"); salary != "" {
		if v, err := ParseSalary(salary); err != nil || v <= 0 {
			fail("salary", msgInvalidSalary, salary)
			claim(ReasonInvalidSalary)
		}
	}

	if joined := row.Value("joiningDate"); joined != "" {
		d, err := ParseCalendarDate(joined, now)
		if err != nil || d.After(startOfDay(now)) {
			fail("joiningDate", msgInvalidDate, joined)
			claim(ReasonInvalidDate)
		}
	}

	// status is optional; a bad value is an error no earlier rule claims.
	if status := row.Value("status"); status != "" {
		if _, err := ParseEmployeeStatus(status); err != nil {
			fail("status", msgInvalidStatus, status)
		}
	}

	claim(ReasonBusinessRuleViolation)
	res.IsValid = len(res.Errors) == 0
	return res
}
