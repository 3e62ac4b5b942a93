// Package claimapi talks to the external fee claim portal. The portal
// returns an unsigned transfer to be signed and submitted by the caller;
// it reports no structured amount, so claimed revenue is measured from
// the wallet balance delta.
package claimapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	domainerrors "midas/contexts/treasury-core/fee-claimer/domain/errors"

	"golang.org/x/time/rate"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultRequestRate    = 2
)

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(baseURL string, requestsPerSecond float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRequestRate
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:  logger,
	}
}

type claimRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type claimResponse struct {
	Status      string `json:"status"`
	Transaction string `json:"transaction"`
}

// BuildClaimTransaction asks the portal for the unsigned claim transfer for
// walletAddress. An explicit "nothing to claim" from the portal maps to
// ErrNothingToClaim; every other failure is transient for the cycle.
func (c *Client) BuildClaimTransaction(ctx context.Context, walletAddress string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(claimRequest{WalletAddress: walletAddress})
	if err != nil {
		return nil, fmt.Errorf("claimapi: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/claim", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("claimapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainerrors.ErrClaimSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("claim portal returned non-2xx",
			"event", "claimapi_request_failed",
			"module", "treasury-core/fee-claimer",
			"layer", "adapter",
			"wallet", walletAddress,
			"status_code", resp.StatusCode,
		)
		return nil, fmt.Errorf("%w: status %d", domainerrors.ErrClaimSourceUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainerrors.ErrClaimSourceUnavailable, err)
	}
	var decoded claimResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %w", domainerrors.ErrClaimSourceUnavailable, err)
	}

	if decoded.Status == "nothing_to_claim" {
		return nil, domainerrors.ErrNothingToClaim
	}
	if decoded.Transaction == "" {
		return nil, fmt.Errorf("%w: response carries no transaction", domainerrors.ErrClaimSourceUnavailable)
	}
	tx, err := base64.StdEncoding.DecodeString(decoded.Transaction)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable transaction: %w", domainerrors.ErrClaimSourceUnavailable, err)
	}
	return tx, nil
}
