package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/JonMunkholm/hrdata/internal/core"
)

func TestRecordStore_UniqueEmployeeID(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	res, err := store.InsertEmployees(ctx, []core.EmployeeRecord{
		{EmployeeID: "E1", UploadBatch: "b1"},
		{EmployeeID: "E2", UploadBatch: "b1"},
		{EmployeeID: "E1", UploadBatch: "b1"},
	})
	if err != nil {
		t.Fatalf("InsertEmployees: %v", err)
	}
	if res.Inserted != 2 || len(res.Conflicts) != 1 || res.Conflicts[0] != "E1" {
		t.Fatalf("unexpected result %+v", res)
	}

	res, err = store.InsertEmployees(ctx, []core.EmployeeRecord{{EmployeeID: "E2", UploadBatch: "b2"}})
	if err != nil {
		t.Fatalf("InsertEmployees: %v", err)
	}
	if res.Inserted != 0 || len(res.Conflicts) != 1 {
		t.Fatalf("expected cross-batch conflict, got %+v", res)
	}

	if n, _ := store.CountEmployees(ctx, core.EmployeeFilter{UploadBatch: "b1"}); n != 2 {
		t.Errorf("batch b1 count = %d, want 2", n)
	}
	if n, _ := store.CountEmployees(ctx, core.EmployeeFilter{UploadBatch: "b2"}); n != 0 {
		t.Errorf("batch b2 count = %d, want 0", n)
	}
	if rec, ok := store.Get("E1"); !ok || rec.ID == 0 {
		t.Errorf("Get(E1) = %+v, %v", rec, ok)
	}
}

func TestRecordStore_ConcurrentInsertsHaveOneWinner(t *testing.T) {
	store := NewRecordStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var inserted int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.InsertEmployees(context.Background(), []core.EmployeeRecord{{EmployeeID: "SHARED"}})
			if err != nil {
				t.Errorf("InsertEmployees: %v", err)
				return
			}
			mu.Lock()
			inserted += res.Inserted
			mu.Unlock()
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Fatalf("inserted %d copies of the same id, want 1", inserted)
	}
}

func TestAuditStore_FindSortedByRow(t *testing.T) {
	store := NewAuditStore()
	ctx := context.Background()

	_, err := store.InsertAudits(ctx, []core.AuditRecord{
		{RowNumber: 7, UploadBatch: "b1", FailureReason: core.ReasonInvalidEmail},
		{RowNumber: 3, UploadBatch: "b1", FailureReason: core.ReasonInvalidSalary},
		{RowNumber: 2, UploadBatch: "b2", FailureReason: core.ReasonInvalidSalary},
	})
	if err != nil {
		t.Fatalf("InsertAudits: %v", err)
	}

	got, err := store.FindAudits(ctx, core.AuditFilter{UploadBatch: "b1"})
	if err != nil {
		t.Fatalf("FindAudits: %v", err)
	}
	if len(got) != 2 || got[0].RowNumber != 3 || got[1].RowNumber != 7 {
		t.Fatalf("unexpected order: %+v", got)
	}

	if n, _ := store.CountAudits(ctx, core.AuditFilter{FailureReason: core.ReasonInvalidSalary}); n != 2 {
		t.Errorf("INVALID_SALARY count = %d, want 2", n)
	}
	if n, _ := store.CountAudits(ctx, core.AuditFilter{}); n != 3 {
		t.Errorf("total count = %d, want 3", n)
	}
}

func TestStores_FailWith(t *testing.T) {
	boom := errors.New("disk full")
	records, audits := NewRecordStore(), NewAuditStore()
	records.FailWith(boom)
	audits.FailWith(boom)

	if _, err := records.InsertEmployees(context.Background(), []core.EmployeeRecord{{EmployeeID: "E1"}}); !errors.Is(err, boom) {
		t.Errorf("records: expected injected error, got %v", err)
	}
	if _, err := audits.InsertAudits(context.Background(), []core.AuditRecord{{RowNumber: 2}}); !errors.Is(err, boom) {
		t.Errorf("audits: expected injected error, got %v", err)
	}
}
