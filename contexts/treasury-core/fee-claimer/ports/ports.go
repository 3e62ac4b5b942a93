package ports

import (
	"context"
	"time"

	"midas/contexts/treasury-core/fee-claimer/domain/entities"
)

// Recipient is the roster entry the content system exposes to the claimer.
type Recipient struct {
	TokenID string
	Ticker  string
}

type Roster interface {
	ListEligible(ctx context.Context) ([]Recipient, error)
}

// ClaimSource builds the portal's unsigned claim transfer for a wallet.
// It returns ErrNothingToClaim when the source explicitly reports there is
// nothing accrued; any other error is transient and retryable.
type ClaimSource interface {
	BuildClaimTransaction(ctx context.Context, walletAddress string) ([]byte, error)
}

// LedgerGateway is the network-side wallet surface. Seeds are raw signing
// key material; callers obtain them through the KeyVault.
type LedgerGateway interface {
	Balance(ctx context.Context, address string) (uint64, error)
	NewWallet() (address string, seed []byte, err error)
	SubmitAndConfirm(ctx context.Context, seed []byte, raw []byte) (txID string, err error)
	Transfer(ctx context.Context, seed []byte, destination string, amount uint64) (txID string, err error)
}

// KeyVault encrypts wallet seeds for storage and decrypts them for use.
type KeyVault interface {
	Encrypt(seed []byte) ([]byte, error)
	Decrypt(blob []byte) ([]byte, error)
}

type WalletStore interface {
	SaveWallet(ctx context.Context, wallet entities.EphemeralWallet) error
	UpdateWallet(ctx context.Context, wallet entities.EphemeralWallet) error
	GetWalletByToken(ctx context.Context, tokenID string) (entities.EphemeralWallet, error)
	ListStranded(ctx context.Context) ([]entities.EphemeralWallet, error)
	GetWatermark(ctx context.Context, tokenID string) (entities.ClaimWatermark, error)
	SaveWatermark(ctx context.Context, watermark entities.ClaimWatermark) error
}

// Distributor hands claimed net revenue to the distribution orchestrator.
type Distributor interface {
	Distribute(ctx context.Context, externalTxID string, amount uint64) error
}

// AuditInput mirrors the wallet-security audit record shape.
type AuditInput struct {
	Operation   string
	Amount      uint64
	Destination string
	TxID        string
	Success     bool
	ErrorText   string
	Metadata    map[string]any
}

// AuditTrail records claim activity. Failures are side-channel only and
// never change the outcome of the operation they describe.
type AuditTrail interface {
	Record(ctx context.Context, input AuditInput) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
