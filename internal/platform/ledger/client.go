package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Client is a JSON-RPC client for the settlement network. All high-level
// methods are built on top of call; every request carries the configured
// HTTP timeout and the surrounding context.
type Client struct {
	url            string
	http           *http.Client
	logger         *slog.Logger
	pollInterval   time.Duration
	confirmTimeout time.Duration
	nextID         atomic.Int64
}

type Options struct {
	RequestTimeout time.Duration
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewClient(url string, logger *slog.Logger, opts Options) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	confirmTimeout := opts.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 90 * time.Second
	}
	return &Client{
		url:    url,
		logger: logger,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		pollInterval:   pollInterval,
		confirmTimeout: confirmTimeout,
	}
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("ledger: marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: %s call failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("ledger: read %s response: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ledger: %s returned status %d", method, resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("ledger: decode %s response: %w", method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("ledger: %s error %d: %s", method, decoded.Error.Code, decoded.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(decoded.Result, result); err != nil {
			return fmt.Errorf("ledger: decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	if !ValidateAddress(address) {
		return 0, ErrInvalidAddress
	}
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{address}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// signedTransaction is the wire envelope for a signed payload: the raw
// transaction bytes, the ed25519 signature over them, and the signer key.
type signedTransaction struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
}

// SubmitSigned signs raw transaction bytes with key and submits them,
// returning the network transaction id. Used for externally-built
// transactions such as the claim portal's unsigned fee transfer.
func (c *Client) SubmitSigned(ctx context.Context, key Keypair, raw []byte) (string, error) {
	envelope := signedTransaction{
		Payload:   base64.StdEncoding.EncodeToString(raw),
		Signature: base64.StdEncoding.EncodeToString(key.Sign(raw)),
		PublicKey: key.Address(),
	}
	var result struct {
		TxID string `json:"tx_id"`
	}
	if err := c.call(ctx, "sendTransaction", []any{envelope}, &result); err != nil {
		return "", err
	}
	if result.TxID == "" {
		return "", ErrTransactionRejected
	}
	return result.TxID, nil
}

// AwaitConfirmation polls transaction status until the network reports it
// confirmed, the confirmation timeout elapses, or ctx is cancelled.
func (c *Client) AwaitConfirmation(ctx context.Context, txID string) error {
	deadline := time.NewTimer(c.confirmTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var result struct {
			Status string `json:"status"`
		}
		err := c.call(ctx, "getTransactionStatus", []any{txID}, &result)
		if err == nil {
			switch result.Status {
			case "confirmed", "finalized":
				return nil
			case "rejected":
				return ErrTransactionRejected
			}
		} else {
			// Transient poll failures are retried until the deadline.
			c.logger.Warn("confirmation poll failed",
				"event", "ledger_confirmation_poll_failed",
				"module", "internal/platform/ledger",
				"layer", "platform",
				"tx_id", txID,
				"error", err.Error(),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrConfirmationTimeout
		case <-ticker.C:
		}
	}
}

type transferPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
	Nonce  int64  `json:"nonce"`
}

// Transfer builds a native transfer, signs it with key, submits it, and
// waits for confirmation.
func (c *Client) Transfer(ctx context.Context, key Keypair, destination string, amount uint64) (string, error) {
	if !ValidateAddress(destination) {
		return "", ErrInvalidAddress
	}
	payload, err := json.Marshal(transferPayload{
		From:   key.Address(),
		To:     destination,
		Amount: amount,
		Nonce:  time.Now().UnixNano(),
	})
	if err != nil {
		return "", fmt.Errorf("ledger: marshal transfer payload: %w", err)
	}

	txID, err := c.SubmitSigned(ctx, key, payload)
	if err != nil {
		return "", err
	}
	if err := c.AwaitConfirmation(ctx, txID); err != nil {
		return "", fmt.Errorf("ledger: transfer %s unconfirmed: %w", txID, err)
	}
	return txID, nil
}
