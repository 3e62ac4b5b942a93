// Package ledgergw adapts the platform ledger client to the fee claimer's
// wallet ports and keeps ephemeral seeds encrypted at rest.
package ledgergw

import (
	"context"

	"midas/contexts/treasury-core/fee-claimer/ports"
	"midas/internal/platform/ledger"
)

type Gateway struct {
	client *ledger.Client
}

func NewGateway(client *ledger.Client) Gateway {
	return Gateway{client: client}
}

func (g Gateway) Balance(ctx context.Context, address string) (uint64, error) {
	return g.client.GetBalance(ctx, address)
}

func (g Gateway) NewWallet() (string, []byte, error) {
	key, err := ledger.GenerateKeypair()
	if err != nil {
		return "", nil, err
	}
	return key.Address(), key.Seed(), nil
}

func (g Gateway) SubmitAndConfirm(ctx context.Context, seed []byte, raw []byte) (string, error) {
	key, err := ledger.KeypairFromSeed(seed)
	if err != nil {
		return "", err
	}
	txID, err := g.client.SubmitSigned(ctx, key, raw)
	if err != nil {
		return "", err
	}
	if err := g.client.AwaitConfirmation(ctx, txID); err != nil {
		return "", err
	}
	return txID, nil
}

func (g Gateway) Transfer(ctx context.Context, seed []byte, destination string, amount uint64) (string, error) {
	key, err := ledger.KeypairFromSeed(seed)
	if err != nil {
		return "", err
	}
	return g.client.Transfer(ctx, key, destination, amount)
}

// SeedVault encrypts wallet seeds with a passphrase-derived key.
type SeedVault struct {
	Passphrase string
}

func (v SeedVault) Encrypt(seed []byte) ([]byte, error) {
	return ledger.EncryptKeySeed(seed, v.Passphrase)
}

func (v SeedVault) Decrypt(blob []byte) ([]byte, error) {
	return ledger.DecryptKeySeed(blob, v.Passphrase)
}

var _ ports.LedgerGateway = Gateway{}
var _ ports.KeyVault = SeedVault{}
