// Package memory provides process-local record and audit stores.
//
// They honour the same contract as the PostgreSQL stores, including
// employeeId uniqueness, and back DB_DRIVER=memory and the handler tests.
// Data is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/hrdata/internal/core"
)

// RecordStore keeps accepted employees keyed by employeeId.
type RecordStore struct {
	mu      sync.RWMutex
	byID    map[string]core.EmployeeRecord
	nextID  int64
	failErr error
}

// NewRecordStore returns an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{byID: make(map[string]core.EmployeeRecord)}
}

// FailWith makes every subsequent insert return err; nil restores normal behaviour.
func (s *RecordStore) FailWith(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

// InsertEmployees inserts each record unless its employeeId is already taken.
func (s *RecordStore) InsertEmployees(ctx context.Context, records []core.EmployeeRecord) (core.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return core.InsertResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return core.InsertResult{}, s.failErr
	}

	var res core.InsertResult
	now := time.Now()
	for _, rec := range records {
		if _, taken := s.byID[rec.EmployeeID]; taken {
			res.Conflicts = append(res.Conflicts, rec.EmployeeID)
			continue
		}
		s.nextID++
		rec.ID = s.nextID
		rec.CreatedAt, rec.UpdatedAt = now, now
		rec.Raw = nil
		s.byID[rec.EmployeeID] = rec
		res.Inserted++
	}
	return res, nil
}

// CountEmployees counts records matching filter.
func (s *RecordStore) CountEmployees(ctx context.Context, filter core.EmployeeFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter.UploadBatch == "" {
		return int64(len(s.byID)), nil
	}
	var n int64
	for _, rec := range s.byID {
		if rec.UploadBatch == filter.UploadBatch {
			n++
		}
	}
	return n, nil
}

// Get returns the stored record for employeeID.
func (s *RecordStore) Get(employeeID string) (core.EmployeeRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[employeeID]
	return rec, ok
}

// AuditStore keeps rejected rows in insertion order.
type AuditStore struct {
	mu      sync.RWMutex
	records []core.AuditRecord
	failErr error
}

// NewAuditStore returns an empty store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// FailWith makes every subsequent insert return err; nil restores normal behaviour.
func (s *AuditStore) FailWith(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

// InsertAudits appends all records or none.
func (s *AuditStore) InsertAudits(ctx context.Context, records []core.AuditRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return 0, s.failErr
	}

	now := time.Now()
	for _, rec := range records {
		rec.ID = int64(len(s.records) + 1)
		rec.CreatedAt, rec.UpdatedAt = now, now
		s.records = append(s.records, rec)
	}
	return int64(len(records)), nil
}

// CountAudits counts records matching filter.
func (s *AuditStore) CountAudits(ctx context.Context, filter core.AuditFilter) (int64, error) {
	found, err := s.FindAudits(ctx, filter)
	return int64(len(found)), err
}

// FindAudits returns matching records sorted by row number, then insertion order.
func (s *AuditStore) FindAudits(ctx context.Context, filter core.AuditFilter) ([]core.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.AuditRecord
	for _, rec := range s.records {
		if filter.UploadBatch != "" && rec.UploadBatch != filter.UploadBatch {
			continue
		}
		if filter.FailureReason != "" && rec.FailureReason != filter.FailureReason {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RowNumber < out[j].RowNumber })
	return out, nil
}
