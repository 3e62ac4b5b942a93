package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	auditlog "midas/contexts/wallet-security/audit-log"
	auditmemory "midas/contexts/wallet-security/audit-log/adapters/memory"
	auditapp "midas/contexts/wallet-security/audit-log/application"
	auditentities "midas/contexts/wallet-security/audit-log/domain/entities"
	domainerrors "midas/contexts/wallet-security/wallet-guardrails/domain/errors"
	"midas/contexts/wallet-security/wallet-guardrails/ports"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []uint64
	failErr error
	delay   time.Duration
}

func (f *fakeSender) Send(_ context.Context, _ string, amount uint64) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failErr != nil {
		return "", f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, amount)
	return fmt.Sprintf("tx-%d", len(f.sent)), nil
}

func (f *fakeSender) total() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum uint64
	for _, amount := range f.sent {
		sum += amount
	}
	return sum
}

type allowAll struct{}

func (allowAll) ValidateAddress(address string) bool { return address != "" && address != "bogus" }

func newGuardrails(store *auditmemory.Store, sender *fakeSender, config ports.Config) (*Service, auditlog.Module) {
	module := auditlog.Module{Service: auditapp.Service{
		Repo:  store,
		Clock: auditmemory.SystemClock{},
		IDGen: auditmemory.UUIDGenerator{},
	}}
	return NewService(config, module.Service, sender, allowAll{}, nil), module
}

func defaultConfig() ports.Config {
	return ports.Config{
		PerTransactionCap: 1_000,
		DailyOutflowCap:   2_000,
	}
}

func TestExecuteSendHappyPathRecordsAudit(t *testing.T) {
	store := auditmemory.NewStore()
	sender := &fakeSender{}
	service, _ := newGuardrails(store, sender, defaultConfig())

	txID, err := service.ExecuteSend(context.Background(), ports.SendRequest{
		Destination: "dest",
		Amount:      400,
		Caller:      "distributor",
	})
	if err != nil {
		t.Fatalf("execute send: %v", err)
	}
	if txID == "" {
		t.Fatal("expected transaction id")
	}

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].Operation != auditentities.OperationSend || !entries[0].Success {
		t.Fatalf("unexpected audit entry %+v", entries[0])
	}
}

func TestExecuteSendRejectsOverPerTransactionCap(t *testing.T) {
	store := auditmemory.NewStore()
	sender := &fakeSender{}
	service, _ := newGuardrails(store, sender, defaultConfig())

	_, err := service.ExecuteSend(context.Background(), ports.SendRequest{
		Destination: "dest",
		Amount:      1_001,
	})
	if !errors.Is(err, domainerrors.ErrPerTransactionCap) {
		t.Fatalf("expected ErrPerTransactionCap, got %v", err)
	}
	if sender.total() != 0 {
		t.Fatal("blocked send must not move funds")
	}

	entries := store.Entries()
	if len(entries) != 1 || entries[0].Operation != auditentities.OperationGuardrailBlock {
		t.Fatalf("expected exactly one guardrail-block entry, got %+v", entries)
	}
}

func TestExecuteSendRejectsInvalidDestinationAndZeroAmount(t *testing.T) {
	store := auditmemory.NewStore()
	service, _ := newGuardrails(store, &fakeSender{}, defaultConfig())

	if _, err := service.ExecuteSend(context.Background(), ports.SendRequest{
		Destination: "bogus",
		Amount:      10,
	}); !errors.Is(err, domainerrors.ErrInvalidDestination) {
		t.Fatalf("expected ErrInvalidDestination, got %v", err)
	}

	if _, err := service.ExecuteSend(context.Background(), ports.SendRequest{
		Destination: "dest",
		Amount:      0,
	}); !errors.Is(err, domainerrors.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	if len(store.Entries()) != 2 {
		t.Fatalf("expected 2 guardrail-block entries, got %d", len(store.Entries()))
	}
}

func TestExecuteSendEnforcesAllowlist(t *testing.T) {
	config := defaultConfig()
	config.Allowlist = []string{"good"}
	store := auditmemory.NewStore()
	service, _ := newGuardrails(store, &fakeSender{}, config)

	if _, err := service.ExecuteSend(context.Background(), ports.SendRequest{
		Destination: "other",
		Amount:      10,
	}); !errors.Is(err, domainerrors.ErrDestinationNotAllowed) {
		t.Fatalf("expected ErrDestinationNotAllowed, got %v", err)
	}

	if _, err := service.ExecuteSend(context.Background(), ports.SendRequest{
		Destination: "good",
		Amount:      10,
	}); err != nil {
		t.Fatalf("allowlisted send failed: %v", err)
	}
}

func TestConcurrentSendsNeverExceedDailyCap(t *testing.T) {
	// Two sends of 600 against a remaining daily budget of 1000: with the
	// lock held across check-send-record, at most one may pass.
	config := ports.Config{PerTransactionCap: 1_000, DailyOutflowCap: 1_000}
	store := auditmemory.NewStore()
	sender := &fakeSender{delay: 10 * time.Millisecond}
	service, module := newGuardrails(store, sender, config)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = service.ExecuteSend(context.Background(), ports.SendRequest{
				Destination: "dest",
				Amount:      600,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domainerrors.ErrDailyCapExceeded) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want exactly 1", succeeded)
	}

	outflow, err := module.Service.DailyOutflow(context.Background())
	if err != nil {
		t.Fatalf("daily outflow: %v", err)
	}
	if outflow > config.DailyOutflowCap {
		t.Fatalf("post-hoc outflow %d exceeds cap %d", outflow, config.DailyOutflowCap)
	}
}

func TestExecuteSendRecordsFailedSend(t *testing.T) {
	store := auditmemory.NewStore()
	sender := &fakeSender{failErr: errors.New("network down")}
	service, _ := newGuardrails(store, sender, defaultConfig())

	if _, err := service.ExecuteSend(context.Background(), ports.SendRequest{
		Destination: "dest",
		Amount:      10,
	}); err == nil {
		t.Fatal("expected send failure to surface")
	}

	entries := store.Entries()
	if len(entries) != 1 || entries[0].Success || entries[0].Operation != auditentities.OperationSend {
		t.Fatalf("expected one failed send entry, got %+v", entries)
	}
}
