package memory

import (
	"context"
	"sync"
	"time"

	"midas/contexts/wallet-security/audit-log/domain/entities"
	"midas/contexts/wallet-security/audit-log/ports"

	"github.com/google/uuid"
)

// Store is the in-memory audit ledger used by tests and in-memory boot.
type Store struct {
	mu      sync.RWMutex
	entries []entities.AuditEntry
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, entry entities.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) SumOutflowSince(_ context.Context, since time.Time) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint64
	for _, entry := range s.entries {
		if entry.Success && entry.Operation.MovesFunds() && !entry.Timestamp.Before(since) {
			total += entry.Amount
		}
	}
	return total, nil
}

func (s *Store) CountSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, entry := range s.entries {
		if !entry.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListByOperation(
	_ context.Context,
	kind entities.OperationKind,
	limit int,
	offset int,
) ([]entities.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []entities.AuditEntry
	// Newest first, matching the postgres adapter's ordering.
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Operation == kind {
			matched = append(matched, s.entries[i])
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// Entries returns a copy for test assertions.
func (s *Store) Entries() []entities.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.AuditEntry(nil), s.entries...)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Repository = (*Store)(nil)
