package database

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/hrdata/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// insertEmployeesSQL inserts a whole chunk in one statement. Rows whose
// employee_id already exists, in the table or earlier in the same chunk, are
// skipped; RETURNING lists the ids that were actually written.
const insertEmployeesSQL = `INSERT INTO employees (employee_id, name, email, department, salary, joining_date, status, upload_batch)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::numeric[], $6::date[], $7::text[], $8::text[])
ON CONFLICT (employee_id) DO NOTHING
RETURNING employee_id`

const countEmployeesSQL = `SELECT count(*) FROM employees`

// RecordStore stores accepted employees.
type RecordStore struct {
	db DBTX
}

// NewRecordStore returns a RecordStore over db.
func NewRecordStore(db DBTX) *RecordStore {
	return &RecordStore{db: db}
}

// InsertEmployees bulk-inserts records, skipping duplicates of employee_id.
func (s *RecordStore) InsertEmployees(ctx context.Context, records []core.EmployeeRecord) (core.InsertResult, error) {
	if len(records) == 0 {
		return core.InsertResult{}, nil
	}

	n := len(records)
	var (
		ids         = make([]string, n)
		names       = make([]string, n)
		emails      = make([]string, n)
		departments = make([]string, n)
		salaries    = make([]float64, n)
		joined      = make([]pgtype.Date, n)
		statuses    = make([]string, n)
		batches     = make([]string, n)
	)
	for i, r := range records {
		ids[i] = r.EmployeeID
		names[i] = r.Name
		emails[i] = r.Email
		departments[i] = r.Department
		salaries[i] = r.Salary
		joined[i] = pgtype.Date{Time: r.JoiningDate, Valid: true}
		statuses[i] = string(r.Status)
		batches[i] = r.UploadBatch
	}

	rows, err := s.db.Query(ctx, insertEmployeesSQL, ids, names, emails, departments, salaries, joined, statuses, batches)
	if err != nil {
		return core.InsertResult{}, fmt.Errorf("insert employees: %w", err)
	}
	written, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return core.InsertResult{}, fmt.Errorf("insert employees: %w", err)
	}

	return reconcileInserted(ids, written), nil
}

// reconcileInserted splits offered ids into inserted and conflicting. The
// first occurrence of a written id counts as inserted; later occurrences and
// ids that were not written are conflicts.
func reconcileInserted(offered, written []string) core.InsertResult {
	pending := make(map[string]bool, len(written))
	for _, id := range written {
		pending[id] = true
	}

	var res core.InsertResult
	for _, id := range offered {
		if pending[id] {
			res.Inserted++
			delete(pending, id)
			continue
		}
		res.Conflicts = append(res.Conflicts, id)
	}
	return res
}

// CountEmployees counts records matching filter.
func (s *RecordStore) CountEmployees(ctx context.Context, filter core.EmployeeFilter) (int64, error) {
	var where whereClause
	if filter.UploadBatch != "" {
		where.add("upload_batch", filter.UploadBatch)
	}

	var count int64
	if err := s.db.QueryRow(ctx, countEmployeesSQL+where.String(), where.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count employees: %w", err)
	}
	return count, nil
}
