package core

// convert.go turns loosely typed cell text into typed values.
//
// Every parser here is explicit: a cell either converts or yields an error.
// Nothing is coerced implicitly, so "12abc" is never read as 12.

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years after the reference date
// are moved to the previous century.
var TwoDigitYearPivot = 20

var (
	timestampLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006",
		"20060102",
	}
)

// decimalPattern is plain decimal notation: optional sign, digits with an
// optional fraction, optional exponent. ParseFloat alone would also take
// underscores, hex floats, "Inf" and "NaN".
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

var (
	errInvalidNumber = errors.New("invalid number")
	errInvalidDate   = errors.New("invalid date")
)

// ParseSalary parses a salary cell as a finite decimal number.
// It does not check the sign; callers decide what range is acceptable.
func ParseSalary(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", errInvalidNumber)
	}
	if !decimalPattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", errInvalidNumber, s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidNumber, s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", errInvalidNumber, s)
	}
	return f, nil
}

// ParseCalendarDate parses a date cell and returns midnight of that calendar
// day in ref's location. Timestamps with an offset are first moved into ref's
// location so the day matches what a local reader would see.
func ParseCalendarDate(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", errInvalidDate)
	}
	loc := ref.Location()

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return startOfDay(t.In(loc)), nil
		}
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return startOfDay(t), nil
		}
	}

	pivotYear := ref.Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return startOfDay(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", errInvalidDate, s)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SanitizeEmployee converts a row that passed validation into the record
// persisted in the record store.
func SanitizeEmployee(row Row, batchID string, rowNumber int, now time.Time) (EmployeeRecord, error) {
	salary, err := ParseSalary(row.Value("salary"))
	if err != nil {
		return EmployeeRecord{}, fmt.Errorf("row %d salary: %w", rowNumber, err)
	}
	joined, err := ParseCalendarDate(row.Value("joiningDate"), now)
	if err != nil {
		return EmployeeRecord{}, fmt.Errorf("row %d joiningDate: %w", rowNumber, err)
	}
	status, err := ParseEmployeeStatus(row.Value("status"))
	if err != nil {
		return EmployeeRecord{}, fmt.Errorf("row %d: %w", rowNumber, err)
	}

	return EmployeeRecord{
		EmployeeID:  row.Value("employeeId"),
		Name:        row.Value("name"),
		Email:       strings.ToLower(row.Value("email")),
		Department:  row.Value("department"),
		Salary:      salary,
		JoiningDate: joined,
		Status:      status,
		UploadBatch: batchID,
		UploadedAt:  now,
		RowNumber:   rowNumber,
		Raw:         row.Clone(),
	}, nil
}
