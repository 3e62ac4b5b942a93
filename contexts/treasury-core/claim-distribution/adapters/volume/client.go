package volume

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"midas/contexts/treasury-core/claim-distribution/domain/entities"
	"midas/contexts/treasury-core/claim-distribution/ports"

	"golang.org/x/time/rate"
)

// volumeFieldAliases enumerates every field name the market-data provider
// has shipped cumulative volume under across schema versions. First present
// numeric field wins; anything else degrades to zero.
var volumeFieldAliases = []string{
	"volume_usd",
	"volumeUsd",
	"usd_volume",
	"total_volume",
	"cumulative_volume",
}

// Client queries the market-data provider one token at a time. Any
// per-token failure (timeout, non-2xx, drifted schema) yields weight zero
// for that token; the cycle as a whole never fails on volume lookups.
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
		requestsPerSecond = 4
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:  logger,
	}
}

func (c *Client) FetchWeights(
	ctx context.Context,
	tokens []entities.Token,
	previous map[string]uint64,
) ([]ports.TokenWeight, error) {
	weights := make([]ports.TokenWeight, 0, len(tokens))
	for _, token := range tokens {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		current, err := c.fetchCurrent(ctx, token.ID)
		if err != nil {
			c.logger.Warn("volume lookup degraded to zero",
				"event", "volume_lookup_degraded",
				"module", "treasury-core/claim-distribution",
				"layer", "adapter",
				"token_id", token.ID,
				"error", err.Error(),
			)
			current = 0
		}

		prev := previous[token.ID]
		var delta uint64
		if current > prev {
			delta = current - prev
		}
		weights = append(weights, ports.TokenWeight{
			TokenID:  token.ID,
			Current:  current,
			Previous: prev,
			Delta:    delta,
		})
	}
	return weights, nil
}

func (c *Client) fetchCurrent(ctx context.Context, tokenID string) (uint64, error) {
	endpoint := fmt.Sprintf("%s/tokens/%s/stats", c.baseURL, url.PathEscape(tokenID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build volume request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("volume request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("volume source returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read volume response: %w", err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("decode volume response: %w", err)
	}
	value, ok := extractVolume(payload)
	if !ok {
		return 0, fmt.Errorf("no known volume field in response")
	}
	return value, nil
}

// extractVolume walks the alias table and accepts both JSON numbers and
// numeric strings, since the provider has shipped both.
func extractVolume(payload map[string]json.RawMessage) (uint64, bool) {
	for _, alias := range volumeFieldAliases {
		raw, ok := payload[alias]
		if !ok {
			continue
		}

		var number float64
		if err := json.Unmarshal(raw, &number); err == nil {
			if number < 0 {
				return 0, false
			}
			return uint64(number), true
		}

		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			var parsed float64
			if _, err := fmt.Sscanf(text, "%f", &parsed); err == nil && parsed >= 0 {
				return uint64(parsed), true
			}
		}
		return 0, false
	}
	return 0, false
}

var _ ports.VolumeSource = (*Client)(nil)
