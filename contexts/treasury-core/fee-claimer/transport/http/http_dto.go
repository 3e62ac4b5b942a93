package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RecipientResultDTO struct {
	TokenID       string `json:"token_id"`
	Outcome       string `json:"outcome"`
	ClaimedAmount uint64 `json:"claimed_amount"`
	ClaimTxID     string `json:"claim_tx_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

type CycleSummaryDTO struct {
	StartedAt        string               `json:"started_at"`
	FinishedAt       string               `json:"finished_at"`
	Processed        int                  `json:"processed"`
	Claimed          int                  `json:"claimed"`
	NothingToClaim   int                  `json:"nothing_to_claim"`
	Failed           int                  `json:"failed"`
	NetRevenue       uint64               `json:"net_revenue"`
	Distributed      bool                 `json:"distributed"`
	DistributionTxID string               `json:"distribution_tx_id,omitempty"`
	Results          []RecipientResultDTO `json:"results"`
}

type RunCycleResponse struct {
	Status string          `json:"status"`
	Data   CycleSummaryDTO `json:"data"`
}
