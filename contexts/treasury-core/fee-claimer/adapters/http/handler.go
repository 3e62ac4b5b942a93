package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"midas/contexts/treasury-core/fee-claimer/application"
	"midas/contexts/treasury-core/fee-claimer/domain/entities"
	httptransport "midas/contexts/treasury-core/fee-claimer/transport/http"
)

type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

func (h Handler) RunCycleHandler(ctx context.Context) (httptransport.RunCycleResponse, error) {
	summary, err := h.Service.RunClaimCycle(ctx)
	if err != nil {
		return httptransport.RunCycleResponse{}, err
	}
	return httptransport.RunCycleResponse{
		Status: "success",
		Data:   summaryToDTO(summary),
	}, nil
}

func summaryToDTO(summary entities.CycleSummary) httptransport.CycleSummaryDTO {
	dto := httptransport.CycleSummaryDTO{
		StartedAt:        summary.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:       summary.FinishedAt.UTC().Format(time.RFC3339),
		Processed:        summary.Processed,
		Claimed:          summary.Claimed,
		NothingToClaim:   summary.NothingToClaim,
		Failed:           summary.Failed,
		NetRevenue:       summary.NetRevenue,
		Distributed:      summary.Distributed,
		DistributionTxID: summary.DistributionTxID,
		Results:          make([]httptransport.RecipientResultDTO, 0, len(summary.Results)),
	}
	for _, result := range summary.Results {
		dto.Results = append(dto.Results, httptransport.RecipientResultDTO{
			TokenID:       result.TokenID,
			Outcome:       string(result.Outcome),
			ClaimedAmount: result.ClaimedAmount,
			ClaimTxID:     result.ClaimTxID,
			Error:         result.Error,
		})
	}
	return dto
}
