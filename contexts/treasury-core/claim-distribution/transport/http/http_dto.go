package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DistributeRequest struct {
	ExternalTxID string `json:"external_tx_id"`
	TotalAmount  uint64 `json:"total_amount"`
}

type PreviewRequest struct {
	TotalAmount uint64 `json:"total_amount"`
}

type AllocationDTO struct {
	TokenID         string  `json:"token_id"`
	PayoutAddress   string  `json:"payout_address"`
	ShareFraction   float64 `json:"share_fraction"`
	GrossAmount     uint64  `json:"gross_amount"`
	RecipientAmount uint64  `json:"recipient_amount"`
	Status          string  `json:"status"`
	RecipientTxID   string  `json:"recipient_tx_id,omitempty"`
	Error           string  `json:"error,omitempty"`
}

type DistributionSummaryDTO struct {
	BatchID           string          `json:"batch_id,omitempty"`
	ExternalTxID      string          `json:"external_tx_id,omitempty"`
	Status            string          `json:"status,omitempty"`
	TotalAmount       uint64          `json:"total_amount"`
	DistributedAmount uint64          `json:"distributed_amount"`
	RecipientCount    int             `json:"recipient_count"`
	Paid              int             `json:"paid"`
	Skipped           int             `json:"skipped"`
	Failed            int             `json:"failed"`
	DryRun            bool            `json:"dry_run,omitempty"`
	Allocations       []AllocationDTO `json:"allocations"`
}

type DistributeResponse struct {
	Status string                 `json:"status"`
	Data   DistributionSummaryDTO `json:"data"`
}

type BatchDTO struct {
	BatchID           string `json:"batch_id"`
	ExternalTxID      string `json:"external_tx_id"`
	TotalAmount       uint64 `json:"total_amount"`
	RecipientCount    int    `json:"recipient_count"`
	Status            string `json:"status"`
	DistributedAmount uint64 `json:"distributed_amount"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type BatchDetailResponse struct {
	Status string `json:"status"`
	Data   struct {
		Batch       BatchDTO        `json:"batch"`
		Allocations []AllocationDTO `json:"allocations"`
	} `json:"data"`
}

type ListBatchesRequest struct {
	Limit  int
	Offset int
}

type ListBatchesResponse struct {
	Status string     `json:"status"`
	Data   []BatchDTO `json:"data"`
}
