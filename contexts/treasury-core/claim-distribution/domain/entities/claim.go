package entities

import "time"

type BatchStatus string

const (
	BatchStatusPending      BatchStatus = "pending"
	BatchStatusDistributing BatchStatus = "distributing"
	BatchStatusCompleted    BatchStatus = "completed"
	BatchStatusFailed       BatchStatus = "failed"
)

type AllocationStatus string

const (
	AllocationStatusPending AllocationStatus = "pending"
	AllocationStatusPaid    AllocationStatus = "paid"
	AllocationStatusSkipped AllocationStatus = "skipped"
	AllocationStatusFailed  AllocationStatus = "failed"
)

// Terminal reports whether an allocation can never change again.
// A failed allocation may still become paid through retry.
func (s AllocationStatus) Terminal() bool {
	return s == AllocationStatusPaid || s == AllocationStatusSkipped
}

// ClaimBatch records one bulk claim. ExternalTxID is the idempotency key:
// unique per batch, so a claim is distributed at most once.
type ClaimBatch struct {
	ID                string
	ExternalTxID      string
	TotalAmount       uint64
	RecipientCount    int
	Status            BatchStatus
	DistributedAmount uint64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ClaimAllocation is one recipient's share of a batch. ActivityDelta and
// ShareFraction are immutable snapshots of the weight used at claim time.
type ClaimAllocation struct {
	ID              string
	BatchID         string
	TokenID         string
	PayoutAddress   string
	ActivityDelta   uint64
	ShareFraction   float64
	GrossAmount     uint64
	RecipientAmount uint64
	Status          AllocationStatus
	RecipientTxID   string
	LastError       string
	UpdatedAt       time.Time
}

// VolumeSnapshot is the latest observed cumulative activity per token;
// the next cycle's delta is computed against it.
type VolumeSnapshot struct {
	TokenID          string
	CumulativeVolume uint64
	Source           string
	CapturedAt       time.Time
}

// Token is the read-only roster entry supplied by the content system.
type Token struct {
	ID            string
	Ticker        string
	PayoutAddress string
	Eligible      bool
	CreatedAt     time.Time
}
