package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"midas/contexts/treasury-core/claim-distribution/domain/entities"
	domainerrors "midas/contexts/treasury-core/claim-distribution/domain/errors"
	"midas/contexts/treasury-core/claim-distribution/ports"
	"midas/internal/shared/events"
	"midas/internal/shared/outbox"

	"github.com/google/uuid"
)

type outboxRecord struct {
	OutboxID    string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// Store backs tests and in-memory boot. It mirrors the postgres adapter's
// behavior, including the unique external_tx_id guarantee.
type Store struct {
	mu sync.RWMutex

	batches     map[string]entities.ClaimBatch
	byExternal  map[string]string
	allocations map[string][]entities.ClaimAllocation
	snapshots   map[string]entities.VolumeSnapshot
	outbox      map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		batches:     make(map[string]entities.ClaimBatch),
		byExternal:  make(map[string]string),
		allocations: make(map[string][]entities.ClaimAllocation),
		snapshots:   make(map[string]entities.VolumeSnapshot),
		outbox:      make(map[string]outboxRecord),
	}
}

func (s *Store) CreateBatch(
	_ context.Context,
	batch entities.ClaimBatch,
	allocations []entities.ClaimAllocation,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byExternal[batch.ExternalTxID]; exists {
		return domainerrors.ErrAlreadyProcessed
	}
	s.batches[batch.ID] = batch
	s.byExternal[batch.ExternalTxID] = batch.ID
	s.allocations[batch.ID] = append([]entities.ClaimAllocation(nil), allocations...)
	return nil
}

func (s *Store) GetBatch(_ context.Context, batchID string) (entities.ClaimBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return entities.ClaimBatch{}, domainerrors.ErrBatchNotFound
	}
	return batch, nil
}

func (s *Store) GetBatchByExternalTxID(_ context.Context, externalTxID string) (entities.ClaimBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batchID, ok := s.byExternal[externalTxID]
	if !ok {
		return entities.ClaimBatch{}, domainerrors.ErrBatchNotFound
	}
	return s.batches[batchID], nil
}

func (s *Store) ListBatches(_ context.Context, limit int, offset int) ([]entities.ClaimBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batches := make([]entities.ClaimBatch, 0, len(s.batches))
	for _, batch := range s.batches {
		batches = append(batches, batch)
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].CreatedAt.After(batches[j].CreatedAt)
	})
	if offset >= len(batches) {
		return nil, nil
	}
	batches = batches[offset:]
	if limit < len(batches) {
		batches = batches[:limit]
	}
	return batches, nil
}

func (s *Store) UpdateBatch(_ context.Context, batch entities.ClaimBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[batch.ID]; !ok {
		return domainerrors.ErrBatchNotFound
	}
	s.batches[batch.ID] = batch
	return nil
}

func (s *Store) ListAllocations(_ context.Context, batchID string) ([]entities.ClaimAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allocations, ok := s.allocations[batchID]
	if !ok {
		return nil, domainerrors.ErrBatchNotFound
	}
	return append([]entities.ClaimAllocation(nil), allocations...), nil
}

func (s *Store) UpdateAllocation(_ context.Context, allocation entities.ClaimAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	allocations := s.allocations[allocation.BatchID]
	for i := range allocations {
		if allocations[i].ID == allocation.ID {
			allocations[i] = allocation
			return nil
		}
	}
	return domainerrors.ErrAllocationNotFound
}

func (s *Store) LatestSnapshots(_ context.Context, tokenIDs []string) (map[string]entities.VolumeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]entities.VolumeSnapshot)
	for _, tokenID := range tokenIDs {
		if snapshot, ok := s.snapshots[tokenID]; ok {
			result[tokenID] = snapshot
		}
	}
	return result, nil
}

func (s *Store) SaveSnapshots(_ context.Context, snapshots []entities.VolumeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snapshot := range snapshots {
		s.snapshots[snapshot.TokenID] = snapshot
	}
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := envelope.EventID
	if id == "" {
		id = uuid.NewString()
	}
	s.outbox[id] = outboxRecord{
		OutboxID:  id,
		EventType: envelope.EventType,
		Payload:   payload,
		CreatedAt: envelope.OccurredAtUTC,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]outbox.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []outbox.Message
	for _, record := range s.outbox {
		if record.PublishedAt != nil {
			continue
		}
		pending = append(pending, outbox.Message{
			ID:        record.OutboxID,
			EventType: record.EventType,
			Payload:   record.Payload,
			Status:    "pending",
		})
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrBatchNotFound
	}
	record.PublishedAt = &publishedAt
	s.outbox[outboxID] = record
	return nil
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Repository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
