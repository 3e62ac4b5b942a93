package ports

import (
	"context"
	"time"

	"midas/contexts/treasury-core/claim-distribution/domain/entities"
	"midas/internal/shared/events"
	"midas/internal/shared/outbox"
)

// TokenWeight is one roster entry's activity since the last claim.
type TokenWeight struct {
	TokenID  string
	Current  uint64
	Previous uint64
	Delta    uint64
}

type Repository interface {
	// CreateBatch persists the batch and all allocations in one transaction.
	CreateBatch(ctx context.Context, batch entities.ClaimBatch, allocations []entities.ClaimAllocation) error
	GetBatch(ctx context.Context, batchID string) (entities.ClaimBatch, error)
	GetBatchByExternalTxID(ctx context.Context, externalTxID string) (entities.ClaimBatch, error)
	ListBatches(ctx context.Context, limit int, offset int) ([]entities.ClaimBatch, error)
	UpdateBatch(ctx context.Context, batch entities.ClaimBatch) error
	ListAllocations(ctx context.Context, batchID string) ([]entities.ClaimAllocation, error)
	UpdateAllocation(ctx context.Context, allocation entities.ClaimAllocation) error
	LatestSnapshots(ctx context.Context, tokenIDs []string) (map[string]entities.VolumeSnapshot, error)
	SaveSnapshots(ctx context.Context, snapshots []entities.VolumeSnapshot) error
}

// TokenRoster is read-only: the content system owns tokens.
type TokenRoster interface {
	ListEligible(ctx context.Context) ([]entities.Token, error)
}

// VolumeSource fetches per-token activity. A failing token degrades to
// weight zero; the cycle never aborts on volume lookups.
type VolumeSource interface {
	FetchWeights(ctx context.Context, tokens []entities.Token, previous map[string]uint64) ([]TokenWeight, error)
}

// PaymentExecutor is the guarded send path. Implementations enforce the
// wallet guardrails; the orchestrator never talks to the ledger directly.
type PaymentExecutor interface {
	ExecuteSend(ctx context.Context, req PaymentRequest) (string, error)
}

type PaymentRequest struct {
	Destination string
	Amount      uint64
	Caller      string
	Metadata    map[string]any
}

type AddressValidator interface {
	ValidateAddress(address string) bool
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope events.Envelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}
