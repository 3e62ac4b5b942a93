package memory

import (
	"context"
	"sync"
	"time"

	"midas/contexts/treasury-core/fee-claimer/domain/entities"
	domainerrors "midas/contexts/treasury-core/fee-claimer/domain/errors"
	"midas/contexts/treasury-core/fee-claimer/ports"

	"github.com/google/uuid"
)

// Store keeps wallets and watermarks in memory for tests and in-memory
// boot. GetWalletByToken mirrors the postgres adapter: it returns the
// newest non-retired wallet for the token or ErrWalletNotFound.
type Store struct {
	mu         sync.RWMutex
	wallets    map[string]entities.EphemeralWallet
	watermarks map[string]entities.ClaimWatermark
}

func NewStore() *Store {
	return &Store{
		wallets:    make(map[string]entities.EphemeralWallet),
		watermarks: make(map[string]entities.ClaimWatermark),
	}
}

func (s *Store) SaveWallet(_ context.Context, wallet entities.EphemeralWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[wallet.ID] = wallet
	return nil
}

func (s *Store) UpdateWallet(_ context.Context, wallet entities.EphemeralWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[wallet.ID]; !ok {
		return domainerrors.ErrWalletNotFound
	}
	s.wallets[wallet.ID] = wallet
	return nil
}

func (s *Store) GetWalletByToken(_ context.Context, tokenID string) (entities.EphemeralWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found entities.EphemeralWallet
	var ok bool
	for _, wallet := range s.wallets {
		if wallet.TokenID != tokenID || wallet.State == entities.WalletStateRetired {
			continue
		}
		if !ok || wallet.CreatedAt.After(found.CreatedAt) {
			found = wallet
			ok = true
		}
	}
	if !ok {
		return entities.EphemeralWallet{}, domainerrors.ErrWalletNotFound
	}
	return found, nil
}

func (s *Store) ListStranded(_ context.Context) ([]entities.EphemeralWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stranded []entities.EphemeralWallet
	for _, wallet := range s.wallets {
		if wallet.State.Stranded() {
			stranded = append(stranded, wallet)
		}
	}
	return stranded, nil
}

func (s *Store) GetWatermark(_ context.Context, tokenID string) (entities.ClaimWatermark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	watermark, ok := s.watermarks[tokenID]
	if !ok {
		return entities.ClaimWatermark{TokenID: tokenID}, nil
	}
	return watermark, nil
}

func (s *Store) SaveWatermark(_ context.Context, watermark entities.ClaimWatermark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermarks[watermark.TokenID] = watermark
	return nil
}

// Wallets returns a copy of every stored wallet, for test assertions.
func (s *Store) Wallets() []entities.EphemeralWallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallets := make([]entities.EphemeralWallet, 0, len(s.wallets))
	for _, wallet := range s.wallets {
		wallets = append(wallets, wallet)
	}
	return wallets
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.WalletStore = (*Store)(nil)
