// Package roster reads the claim-eligible token roster from the content
// system. The roster is external and read-only: this module never creates
// or mutates tokens.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"midas/contexts/treasury-core/claim-distribution/domain/entities"
	"midas/contexts/treasury-core/claim-distribution/ports"
)

const defaultRequestTimeout = 10 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		logger:  logger,
	}
}

type tokenDTO struct {
	ID            string `json:"id"`
	Ticker        string `json:"ticker"`
	PayoutAddress string `json:"payout_address"`
	Eligible      bool   `json:"eligible"`
	CreatedAt     string `json:"created_at"`
}

// ListEligible fetches the roster and returns only claim-eligible entries.
// Unlike volume lookups, a roster failure aborts the cycle: without the
// recipient set there is nothing meaningful to distribute.
func (c *Client) ListEligible(ctx context.Context) ([]entities.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tokens?eligible=true", nil)
	if err != nil {
		return nil, fmt.Errorf("roster: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster: fetch tokens: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("roster: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Data []tokenDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("roster: decode response: %w", err)
	}

	tokens := make([]entities.Token, 0, len(payload.Data))
	for _, dto := range payload.Data {
		if !dto.Eligible {
			continue
		}
		createdAt, _ := time.Parse(time.RFC3339, dto.CreatedAt)
		tokens = append(tokens, entities.Token{
			ID:            dto.ID,
			Ticker:        dto.Ticker,
			PayoutAddress: dto.PayoutAddress,
			Eligible:      dto.Eligible,
			CreatedAt:     createdAt,
		})
	}
	return tokens, nil
}

var _ ports.TokenRoster = (*Client)(nil)
