package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"midas/contexts/treasury-core/claim-distribution/application/commands"
	"midas/contexts/treasury-core/claim-distribution/application/queries"
	"midas/contexts/treasury-core/claim-distribution/domain/entities"
	httptransport "midas/contexts/treasury-core/claim-distribution/transport/http"
)

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

func (h Handler) DistributeHandler(
	ctx context.Context,
	req httptransport.DistributeRequest,
) (httptransport.DistributeResponse, error) {
	summary, err := h.Commands.Distribute(ctx, commands.DistributeCommand{
		ExternalTxID: req.ExternalTxID,
		TotalAmount:  req.TotalAmount,
	})
	if err != nil {
		return httptransport.DistributeResponse{}, err
	}
	return httptransport.DistributeResponse{
		Status: "success",
		Data:   summaryToDTO(summary),
	}, nil
}

func (h Handler) PreviewHandler(
	ctx context.Context,
	req httptransport.PreviewRequest,
) (httptransport.DistributeResponse, error) {
	summary, err := h.Commands.DryRun(ctx, req.TotalAmount)
	if err != nil {
		return httptransport.DistributeResponse{}, err
	}
	return httptransport.DistributeResponse{
		Status: "success",
		Data:   summaryToDTO(summary),
	}, nil
}

func (h Handler) RetryHandler(
	ctx context.Context,
	batchID string,
) (httptransport.DistributeResponse, error) {
	summary, err := h.Commands.Retry(ctx, batchID)
	if err != nil {
		return httptransport.DistributeResponse{}, err
	}
	return httptransport.DistributeResponse{
		Status: "success",
		Data:   summaryToDTO(summary),
	}, nil
}

func (h Handler) GetBatchHandler(
	ctx context.Context,
	batchID string,
) (httptransport.BatchDetailResponse, error) {
	view, err := h.Queries.GetBatch(ctx, batchID)
	if err != nil {
		return httptransport.BatchDetailResponse{}, err
	}
	resp := httptransport.BatchDetailResponse{Status: "success"}
	resp.Data.Batch = batchToDTO(view.Batch)
	resp.Data.Allocations = make([]httptransport.AllocationDTO, 0, len(view.Allocations))
	for _, allocation := range view.Allocations {
		resp.Data.Allocations = append(resp.Data.Allocations, httptransport.AllocationDTO{
			TokenID:         allocation.TokenID,
			PayoutAddress:   allocation.PayoutAddress,
			ShareFraction:   allocation.ShareFraction,
			GrossAmount:     allocation.GrossAmount,
			RecipientAmount: allocation.RecipientAmount,
			Status:          string(allocation.Status),
			RecipientTxID:   allocation.RecipientTxID,
			Error:           allocation.LastError,
		})
	}
	return resp, nil
}

func (h Handler) ListBatchesHandler(
	ctx context.Context,
	req httptransport.ListBatchesRequest,
) (httptransport.ListBatchesResponse, error) {
	batches, err := h.Queries.ListBatches(ctx, req.Limit, req.Offset)
	if err != nil {
		return httptransport.ListBatchesResponse{}, err
	}
	resp := httptransport.ListBatchesResponse{
		Status: "success",
		Data:   make([]httptransport.BatchDTO, 0, len(batches)),
	}
	for _, batch := range batches {
		resp.Data = append(resp.Data, batchToDTO(batch))
	}
	return resp, nil
}

func summaryToDTO(summary commands.DistributionSummary) httptransport.DistributionSummaryDTO {
	dto := httptransport.DistributionSummaryDTO{
		BatchID:           summary.BatchID,
		ExternalTxID:      summary.ExternalTxID,
		Status:            string(summary.Status),
		TotalAmount:       summary.TotalAmount,
		DistributedAmount: summary.DistributedAmount,
		RecipientCount:    summary.RecipientCount,
		Paid:              summary.Paid,
		Skipped:           summary.Skipped,
		Failed:            summary.Failed,
		DryRun:            summary.DryRun,
		Allocations:       make([]httptransport.AllocationDTO, 0, len(summary.Allocations)),
	}
	for _, allocation := range summary.Allocations {
		dto.Allocations = append(dto.Allocations, httptransport.AllocationDTO{
			TokenID:         allocation.TokenID,
			PayoutAddress:   allocation.PayoutAddress,
			ShareFraction:   allocation.ShareFraction,
			GrossAmount:     allocation.GrossAmount,
			RecipientAmount: allocation.RecipientAmount,
			Status:          string(allocation.Status),
			RecipientTxID:   allocation.RecipientTxID,
			Error:           allocation.Error,
		})
	}
	return dto
}

func batchToDTO(batch entities.ClaimBatch) httptransport.BatchDTO {
	return httptransport.BatchDTO{
		BatchID:           batch.ID,
		ExternalTxID:      batch.ExternalTxID,
		TotalAmount:       batch.TotalAmount,
		RecipientCount:    batch.RecipientCount,
		Status:            string(batch.Status),
		DistributedAmount: batch.DistributedAmount,
		CreatedAt:         batch.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         batch.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
