// Package ledger talks to the settlement network: base58 ed25519 addresses,
// wallet key material, and an RPC client for submitting signed transfers and
// polling confirmation.
package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// Keypair is an ed25519 signing key addressed by the base58 public key.
type Keypair struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

func GenerateKeypair() (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return Keypair{public: pub, private: priv}, nil
}

// KeypairFromSeed rebuilds a keypair from the 32-byte ed25519 seed, which is
// the form wallet keys are stored in (encrypted) at rest.
func KeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, ErrInvalidKeySeed
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return Keypair{
		public:  priv.Public().(ed25519.PublicKey),
		private: priv,
	}, nil
}

func (k Keypair) Address() string {
	return base58.Encode(k.public)
}

func (k Keypair) Seed() []byte {
	return k.private.Seed()
}

func (k Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// ValidateAddress reports whether addr decodes to a 32-byte ed25519 public
// key. Zero-length decode also covers non-base58 input.
func ValidateAddress(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	decoded := base58.Decode(addr)
	return len(decoded) == ed25519.PublicKeySize
}
