package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "midas/contexts/treasury-core/claim-distribution/application"
	"midas/contexts/treasury-core/claim-distribution/domain/allocation"
	"midas/contexts/treasury-core/claim-distribution/domain/entities"
	domainerrors "midas/contexts/treasury-core/claim-distribution/domain/errors"
	"midas/contexts/treasury-core/claim-distribution/ports"
	"midas/internal/shared/events"
)

// EventTypeDistributionCompleted doubles as the bus topic the relay
// publishes finalized batches on.
const EventTypeDistributionCompleted = "treasury.distribution.completed.v1"

type DistributeCommand struct {
	ExternalTxID string
	TotalAmount  uint64
}

type AllocationResult struct {
	TokenID         string
	PayoutAddress   string
	ShareFraction   float64
	GrossAmount     uint64
	RecipientAmount uint64
	Status          entities.AllocationStatus
	RecipientTxID   string
	Error           string
}

// DistributionSummary is returned from every distribute/retry/dry-run call,
// partial failure included. There is no all-or-nothing outcome.
type DistributionSummary struct {
	BatchID           string
	ExternalTxID      string
	Status            entities.BatchStatus
	TotalAmount       uint64
	DistributedAmount uint64
	RecipientCount    int
	Paid              int
	Skipped           int
	Failed            int
	DryRun            bool
	Allocations       []AllocationResult
}

type UseCase struct {
	Repository ports.Repository
	Roster     ports.TokenRoster
	Volume     ports.VolumeSource
	Payments   ports.PaymentExecutor
	Addresses  ports.AddressValidator
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger

	SubmitterShare    float64
	DustThreshold     uint64
	MinClaimAmount    uint64
	InterPaymentDelay time.Duration
	VolumeSourceTag   string
}

// Distribute executes one bulk claim end to end. It is idempotent on the
// external transaction id: a repeat call reports already processed and
// creates no new state.
func (uc UseCase) Distribute(ctx context.Context, cmd DistributeCommand) (DistributionSummary, error) {
	logger := application.ResolveLogger(uc.Logger)
	externalTxID := strings.TrimSpace(cmd.ExternalTxID)
	if externalTxID == "" {
		return DistributionSummary{}, domainerrors.ErrInvalidDistributeInput
	}
	if cmd.TotalAmount < uc.MinClaimAmount {
		return DistributionSummary{}, domainerrors.ErrBelowMinimumClaim
	}

	if _, err := uc.Repository.GetBatchByExternalTxID(ctx, externalTxID); err == nil {
		logger.Warn("duplicate claim distribution attempt",
			"event", "distribution_duplicate_external_tx",
			"module", "treasury-core/claim-distribution",
			"layer", "application",
			"external_tx_id", externalTxID,
		)
		return DistributionSummary{}, domainerrors.ErrAlreadyProcessed
	} else if !errors.Is(err, domainerrors.ErrBatchNotFound) {
		return DistributionSummary{}, err
	}

	shares, weights, err := uc.computeShares(ctx, cmd.TotalAmount)
	if err != nil {
		return DistributionSummary{}, err
	}

	now := uc.Clock.Now().UTC()
	batchID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return DistributionSummary{}, err
	}

	batch := entities.ClaimBatch{
		ID:             batchID,
		ExternalTxID:   externalTxID,
		TotalAmount:    cmd.TotalAmount,
		RecipientCount: len(shares),
		Status:         entities.BatchStatusDistributing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	allocations := make([]entities.ClaimAllocation, 0, len(shares))
	for _, share := range shares {
		allocationID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return DistributionSummary{}, err
		}
		status := entities.AllocationStatusPending
		if share.Skipped {
			status = entities.AllocationStatusSkipped
		}
		allocations = append(allocations, entities.ClaimAllocation{
			ID:              allocationID,
			BatchID:         batchID,
			TokenID:         share.TokenID,
			PayoutAddress:   share.PayoutAddress,
			ActivityDelta:   share.Delta,
			ShareFraction:   share.Fraction,
			GrossAmount:     share.GrossAmount,
			RecipientAmount: share.RecipientAmount,
			Status:          status,
			UpdatedAt:       now,
		})
	}

	if err := uc.Repository.CreateBatch(ctx, batch, allocations); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyProcessed) {
			// Lost the race on the unique external_tx_id constraint.
			return DistributionSummary{}, domainerrors.ErrAlreadyProcessed
		}
		return DistributionSummary{}, err
	}

	uc.captureSnapshots(ctx, weights)

	logger.Info("claim batch created",
		"event", "distribution_batch_created",
		"module", "treasury-core/claim-distribution",
		"layer", "application",
		"batch_id", batchID,
		"external_tx_id", externalTxID,
		"total_amount", cmd.TotalAmount,
		"recipient_count", len(allocations),
	)

	return uc.payAllocations(ctx, batch, allocations, false)
}

// Retry re-attempts only the failed allocations of an existing batch.
// Paid and skipped allocations are terminal and untouched.
func (uc UseCase) Retry(ctx context.Context, batchID string) (DistributionSummary, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return DistributionSummary{}, domainerrors.ErrInvalidDistributeInput
	}
	batch, err := uc.Repository.GetBatch(ctx, batchID)
	if err != nil {
		return DistributionSummary{}, err
	}
	allocations, err := uc.Repository.ListAllocations(ctx, batchID)
	if err != nil {
		return DistributionSummary{}, err
	}
	return uc.payAllocations(ctx, batch, allocations, true)
}

// DryRun computes shares for a hypothetical total without creating a batch,
// sending payments, or writing snapshots.
func (uc UseCase) DryRun(ctx context.Context, totalAmount uint64) (DistributionSummary, error) {
	if totalAmount < uc.MinClaimAmount {
		return DistributionSummary{}, domainerrors.ErrBelowMinimumClaim
	}
	shares, _, err := uc.computeShares(ctx, totalAmount)
	if err != nil {
		return DistributionSummary{}, err
	}

	summary := DistributionSummary{
		TotalAmount:    totalAmount,
		RecipientCount: len(shares),
		DryRun:         true,
	}
	for _, share := range shares {
		status := entities.AllocationStatusPending
		if share.Skipped {
			status = entities.AllocationStatusSkipped
			summary.Skipped++
		}
		summary.Allocations = append(summary.Allocations, AllocationResult{
			TokenID:         share.TokenID,
			PayoutAddress:   share.PayoutAddress,
			ShareFraction:   share.Fraction,
			GrossAmount:     share.GrossAmount,
			RecipientAmount: share.RecipientAmount,
			Status:          status,
		})
	}
	return summary, nil
}

func (uc UseCase) computeShares(ctx context.Context, totalAmount uint64) ([]allocation.Share, []ports.TokenWeight, error) {
	tokens, err := uc.Roster.ListEligible(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(tokens) == 0 {
		return nil, nil, domainerrors.ErrNoEligibleRecipients
	}

	tokenIDs := make([]string, 0, len(tokens))
	for _, token := range tokens {
		tokenIDs = append(tokenIDs, token.ID)
	}
	snapshots, err := uc.Repository.LatestSnapshots(ctx, tokenIDs)
	if err != nil {
		return nil, nil, err
	}
	previous := make(map[string]uint64, len(snapshots))
	for tokenID, snapshot := range snapshots {
		previous[tokenID] = snapshot.CumulativeVolume
	}

	weights, err := uc.Volume.FetchWeights(ctx, tokens, previous)
	if err != nil {
		return nil, nil, err
	}
	deltas := make(map[string]uint64, len(weights))
	for _, weight := range weights {
		deltas[weight.TokenID] = weight.Delta
	}

	recipients := make([]allocation.Recipient, 0, len(tokens))
	for _, token := range tokens {
		recipients = append(recipients, allocation.Recipient{
			TokenID:       token.ID,
			PayoutAddress: token.PayoutAddress,
			Delta:         deltas[token.ID],
		})
	}

	shares := allocation.Allocate(recipients, totalAmount, uc.SubmitterShare, uc.DustThreshold)
	if len(shares) == 0 {
		return nil, nil, domainerrors.ErrNoEligibleRecipients
	}
	return shares, weights, nil
}

// payAllocations sends pending (or, on retry, failed) allocations
// sequentially. Completed payments are never rolled back: a failed batch
// means some recipients still await retry, not that anything is undone.
func (uc UseCase) payAllocations(
	ctx context.Context,
	batch entities.ClaimBatch,
	allocations []entities.ClaimAllocation,
	retryOnly bool,
) (DistributionSummary, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.Clock.Now().UTC()

	eligible := func(status entities.AllocationStatus) bool {
		if retryOnly {
			return status == entities.AllocationStatusFailed
		}
		return status == entities.AllocationStatusPending
	}

	sent := false
	for i := range allocations {
		alloc := &allocations[i]
		if !eligible(alloc.Status) {
			continue
		}
		if sent && uc.InterPaymentDelay > 0 {
			// Courtesy pacing between sends; a batch runs to completion, so
			// this is a plain sleep rather than a cancellation point.
			time.Sleep(uc.InterPaymentDelay)
		}
		sent = true

		if !uc.Addresses.ValidateAddress(alloc.PayoutAddress) {
			alloc.Status = entities.AllocationStatusFailed
			alloc.LastError = "invalid payout address"
		} else {
			txID, err := uc.Payments.ExecuteSend(ctx, ports.PaymentRequest{
				Destination: alloc.PayoutAddress,
				Amount:      alloc.RecipientAmount,
				Caller:      "claim-distribution",
				Metadata: map[string]any{
					"batch_id":      batch.ID,
					"allocation_id": alloc.ID,
					"token_id":      alloc.TokenID,
				},
			})
			if err != nil {
				alloc.Status = entities.AllocationStatusFailed
				alloc.LastError = err.Error()
				logger.Warn("allocation payment failed",
					"event", "distribution_allocation_payment_failed",
					"module", "treasury-core/claim-distribution",
					"layer", "application",
					"batch_id", batch.ID,
					"allocation_id", alloc.ID,
					"token_id", alloc.TokenID,
					"amount", alloc.RecipientAmount,
					"error", err.Error(),
				)
			} else {
				alloc.Status = entities.AllocationStatusPaid
				alloc.RecipientTxID = txID
				alloc.LastError = ""
			}
		}

		alloc.UpdatedAt = now
		if err := uc.Repository.UpdateAllocation(ctx, *alloc); err != nil {
			logger.Error("allocation status persist failed",
				"event", "distribution_allocation_update_failed",
				"module", "treasury-core/claim-distribution",
				"layer", "application",
				"allocation_id", alloc.ID,
				"error", err.Error(),
			)
		}
	}

	summary := DistributionSummary{
		BatchID:        batch.ID,
		ExternalTxID:   batch.ExternalTxID,
		TotalAmount:    batch.TotalAmount,
		RecipientCount: len(allocations),
	}
	var distributed uint64
	for _, alloc := range allocations {
		result := AllocationResult{
			TokenID:         alloc.TokenID,
			PayoutAddress:   alloc.PayoutAddress,
			ShareFraction:   alloc.ShareFraction,
			GrossAmount:     alloc.GrossAmount,
			RecipientAmount: alloc.RecipientAmount,
			Status:          alloc.Status,
			RecipientTxID:   alloc.RecipientTxID,
			Error:           alloc.LastError,
		}
		summary.Allocations = append(summary.Allocations, result)
		switch alloc.Status {
		case entities.AllocationStatusPaid:
			summary.Paid++
			distributed += alloc.RecipientAmount
		case entities.AllocationStatusSkipped:
			summary.Skipped++
		case entities.AllocationStatusFailed:
			summary.Failed++
		}
	}

	batch.DistributedAmount = distributed
	batch.Status = entities.BatchStatusCompleted
	if summary.Failed > 0 {
		batch.Status = entities.BatchStatusFailed
	}
	batch.UpdatedAt = now
	if err := uc.Repository.UpdateBatch(ctx, batch); err != nil {
		logger.Error("batch finalize persist failed",
			"event", "distribution_batch_finalize_failed",
			"module", "treasury-core/claim-distribution",
			"layer", "application",
			"batch_id", batch.ID,
			"error", err.Error(),
		)
	}
	summary.Status = batch.Status
	summary.DistributedAmount = distributed

	uc.appendSummaryOutbox(ctx, summary)

	logger.Info("claim batch finalized",
		"event", "distribution_batch_finalized",
		"module", "treasury-core/claim-distribution",
		"layer", "application",
		"batch_id", batch.ID,
		"status", string(batch.Status),
		"paid", summary.Paid,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"distributed_amount", distributed,
	)
	return summary, nil
}

func (uc UseCase) captureSnapshots(ctx context.Context, weights []ports.TokenWeight) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.Clock.Now().UTC()
	snapshots := make([]entities.VolumeSnapshot, 0, len(weights))
	for _, weight := range weights {
		snapshots = append(snapshots, entities.VolumeSnapshot{
			TokenID:          weight.TokenID,
			CumulativeVolume: weight.Current,
			Source:           uc.VolumeSourceTag,
			CapturedAt:       now,
		})
	}
	if err := uc.Repository.SaveSnapshots(ctx, snapshots); err != nil {
		// Snapshot loss skews the next delta but must not fail this batch.
		logger.Error("volume snapshot persist failed",
			"event", "distribution_snapshot_persist_failed",
			"module", "treasury-core/claim-distribution",
			"layer", "application",
			"snapshot_count", len(snapshots),
			"error", err.Error(),
		)
	}
}

func (uc UseCase) appendSummaryOutbox(ctx context.Context, summary DistributionSummary) {
	if uc.Outbox == nil {
		return
	}
	logger := application.ResolveLogger(uc.Logger)
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("summary event id generation failed",
			"event", "distribution_summary_event_id_failed",
			"module", "treasury-core/claim-distribution",
			"layer", "application",
			"batch_id", summary.BatchID,
			"error", err.Error(),
		)
		return
	}
	envelope := events.Envelope{
		EventID:        eventID,
		EventType:      EventTypeDistributionCompleted,
		SourceService:  "midas",
		OccurredAtUTC:  uc.Clock.Now().UTC(),
		CorrelationID:  summary.ExternalTxID,
		EntityType:     "claim_batch",
		EntityID:       summary.BatchID,
		PayloadVersion: 1,
		Payload: map[string]any{
			"batch_id":           summary.BatchID,
			"external_tx_id":     summary.ExternalTxID,
			"status":             string(summary.Status),
			"total_amount":       summary.TotalAmount,
			"distributed_amount": summary.DistributedAmount,
			"paid":               summary.Paid,
			"skipped":            summary.Skipped,
			"failed":             summary.Failed,
		},
	}
	if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
		logger.Error("summary outbox append failed",
			"event", "distribution_summary_outbox_failed",
			"module", "treasury-core/claim-distribution",
			"layer", "application",
			"batch_id", summary.BatchID,
			"error", err.Error(),
		)
	}
}
