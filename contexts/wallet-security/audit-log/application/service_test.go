package application

import (
	"context"
	"testing"
	"time"

	"midas/contexts/wallet-security/audit-log/adapters/memory"
	"midas/contexts/wallet-security/audit-log/domain/entities"
	domainerrors "midas/contexts/wallet-security/audit-log/domain/errors"
	"midas/contexts/wallet-security/audit-log/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newService(store *memory.Store, now time.Time) Service {
	return Service{
		Repo:  store,
		Clock: fixedClock{now: now},
		IDGen: memory.UUIDGenerator{},
	}
}

func TestRecordRejectsUnknownOperation(t *testing.T) {
	service := newService(memory.NewStore(), time.Now())
	_, err := service.Record(context.Background(), ports.RecordInput{Operation: "teleport"})
	if err != domainerrors.ErrInvalidOperationKind {
		t.Fatalf("expected ErrInvalidOperationKind, got %v", err)
	}
}

func TestDailyOutflowCountsOnlySuccessfulFundMoves(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	service := newService(store, now)

	record := func(op entities.OperationKind, amount uint64, success bool) {
		t.Helper()
		if _, err := service.Record(context.Background(), ports.RecordInput{
			Operation:   op,
			Amount:      amount,
			Destination: "dest",
			Success:     success,
		}); err != nil {
			t.Fatalf("record %s: %v", op, err)
		}
	}

	record(entities.OperationSend, 100, true)
	record(entities.OperationSend, 40, false)           // failed send, no funds moved
	record(entities.OperationBurn, 25, true)            // outflow kind
	record(entities.OperationBalanceCheck, 9_999, true) // not an outflow kind
	record(entities.OperationGuardrailBlock, 500, false)

	outflow, err := service.DailyOutflow(context.Background())
	if err != nil {
		t.Fatalf("daily outflow: %v", err)
	}
	if outflow != 125 {
		t.Fatalf("outflow = %d, want 125", outflow)
	}
}

func TestDailyOutflowExcludesEntriesOlderThanWindow(t *testing.T) {
	store := memory.NewStore()
	old := time.Date(2026, time.March, 9, 11, 0, 0, 0, time.UTC)
	now := old.Add(25 * time.Hour)

	oldService := newService(store, old)
	if _, err := oldService.Record(context.Background(), ports.RecordInput{
		Operation: entities.OperationSend,
		Amount:    1_000,
		Success:   true,
	}); err != nil {
		t.Fatalf("record old entry: %v", err)
	}

	outflow, err := newService(store, now).DailyOutflow(context.Background())
	if err != nil {
		t.Fatalf("daily outflow: %v", err)
	}
	if outflow != 0 {
		t.Fatalf("outflow = %d, want 0 for stale entries", outflow)
	}
}

func TestRecentAttemptsCountsAllOutcomes(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	service := newService(store, now)

	for _, success := range []bool{true, false, false} {
		if _, err := service.Record(context.Background(), ports.RecordInput{
			Operation: entities.OperationSend,
			Amount:    1,
			Success:   success,
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	count, err := service.RecentAttempts(context.Background())
	if err != nil {
		t.Fatalf("recent attempts: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestHistoryFiltersAndPaginates(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	service := newService(store, now)

	for i := 0; i < 3; i++ {
		if _, err := service.Record(context.Background(), ports.RecordInput{
			Operation: entities.OperationGuardrailBlock,
			Amount:    uint64(i + 1),
			Success:   false,
			ErrorText: "per-transaction cap exceeded",
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := service.Record(context.Background(), ports.RecordInput{
		Operation: entities.OperationSend,
		Amount:    10,
		Success:   true,
	}); err != nil {
		t.Fatalf("record send: %v", err)
	}

	page, err := service.History(context.Background(), entities.OperationGuardrailBlock, 2, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	for _, entry := range page {
		if entry.Operation != entities.OperationGuardrailBlock {
			t.Fatalf("unexpected operation %s in filtered page", entry.Operation)
		}
	}
}
