package queries

import (
	"context"
	"strings"

	"midas/contexts/treasury-core/claim-distribution/domain/entities"
	domainerrors "midas/contexts/treasury-core/claim-distribution/domain/errors"
	"midas/contexts/treasury-core/claim-distribution/ports"
)

type BatchView struct {
	Batch       entities.ClaimBatch
	Allocations []entities.ClaimAllocation
}

type UseCase struct {
	Repository ports.Repository
}

func (uc UseCase) GetBatch(ctx context.Context, batchID string) (BatchView, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return BatchView{}, domainerrors.ErrBatchNotFound
	}
	batch, err := uc.Repository.GetBatch(ctx, batchID)
	if err != nil {
		return BatchView{}, err
	}
	allocations, err := uc.Repository.ListAllocations(ctx, batchID)
	if err != nil {
		return BatchView{}, err
	}
	return BatchView{Batch: batch, Allocations: allocations}, nil
}

func (uc UseCase) ListBatches(ctx context.Context, limit int, offset int) ([]entities.ClaimBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.Repository.ListBatches(ctx, limit, offset)
}
