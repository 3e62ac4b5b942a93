package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"midas/contexts/treasury-core/fee-claimer/domain/entities"
	domainerrors "midas/contexts/treasury-core/fee-claimer/domain/errors"
	"midas/contexts/treasury-core/fee-claimer/ports"
)

const masterRecipientID = "master"

// Service runs claim cycles against the external fee portal. A cycle is
// exclusive per process: overlapping scheduler triggers are rejected
// rather than queued, since the next cron tick retries anyway.
type Service struct {
	Wallets     ports.WalletStore
	Roster      ports.Roster
	Claims      ports.ClaimSource
	Ledger      ports.LedgerGateway
	Vault       ports.KeyVault
	Distributor ports.Distributor
	Audit       ports.AuditTrail
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger

	MasterAddress    string
	MasterSeed       []byte
	FeeBuffer        uint64
	SweepNetworkFee  uint64
	MinNetRevenue    uint64
	EphemeralWallets bool

	mu sync.Mutex
}

// RunClaimCycle claims accrued fees for every eligible recipient and hands
// net revenue at or above the minimum to the distributor. One recipient's
// failure never aborts the cycle; the summary carries per-item detail.
func (s *Service) RunClaimCycle(ctx context.Context) (entities.CycleSummary, error) {
	if !s.mu.TryLock() {
		return entities.CycleSummary{}, domainerrors.ErrCycleAlreadyRunning
	}
	defer s.mu.Unlock()

	logger := ResolveLogger(s.Logger)
	if len(s.MasterSeed) == 0 || s.MasterAddress == "" {
		return entities.CycleSummary{}, domainerrors.ErrMasterKeyUnavailable
	}

	summary := entities.CycleSummary{StartedAt: s.Clock.Now().UTC()}
	logger.Info("claim cycle started",
		"event", "claim_cycle_started",
		"module", "treasury-core/fee-claimer",
		"layer", "application",
		"ephemeral_wallets", s.EphemeralWallets,
	)

	if s.EphemeralWallets {
		if resumed, err := s.ResumeStranded(ctx); err != nil {
			logger.Warn("stranded wallet resume incomplete",
				"event", "claim_cycle_resume_incomplete",
				"module", "treasury-core/fee-claimer",
				"layer", "application",
				"resumed", resumed,
				"error", err.Error(),
			)
		}
		recipients, err := s.Roster.ListEligible(ctx)
		if err != nil {
			return summary, err
		}
		for _, recipient := range recipients {
			result, net := s.claimEphemeral(ctx, recipient)
			s.tally(&summary, result, net)
		}
	} else {
		result, net := s.claimMaster(ctx)
		s.tally(&summary, result, net)
	}

	s.handOff(ctx, &summary)
	summary.FinishedAt = s.Clock.Now().UTC()

	logger.Info("claim cycle finished",
		"event", "claim_cycle_finished",
		"module", "treasury-core/fee-claimer",
		"layer", "application",
		"processed", summary.Processed,
		"claimed", summary.Claimed,
		"nothing_to_claim", summary.NothingToClaim,
		"failed", summary.Failed,
		"net_revenue", summary.NetRevenue,
		"distributed", summary.Distributed,
	)
	return summary, nil
}

func (s *Service) tally(summary *entities.CycleSummary, result entities.RecipientResult, net uint64) {
	summary.Processed++
	summary.Results = append(summary.Results, result)
	switch result.Outcome {
	case entities.OutcomeClaimed:
		summary.Claimed++
		summary.NetRevenue += net
		if summary.DistributionTxID == "" {
			summary.DistributionTxID = result.ClaimTxID
		}
	case entities.OutcomeNothingToClaim:
		summary.NothingToClaim++
	default:
		summary.Failed++
	}
}

// handOff forwards the cycle's net revenue to the distributor when it
// clears the minimum. The first claim transaction id keys the batch, so a
// re-run of the same claims cannot distribute twice.
func (s *Service) handOff(ctx context.Context, summary *entities.CycleSummary) {
	logger := ResolveLogger(s.Logger)
	if summary.NetRevenue < s.MinNetRevenue || summary.DistributionTxID == "" {
		return
	}
	if err := s.Distributor.Distribute(ctx, summary.DistributionTxID, summary.NetRevenue); err != nil {
		// Distribution is idempotent on the claim tx id; an operator can
		// re-trigger it without risking a double payout.
		logger.Error("revenue hand-off failed",
			"event", "claim_cycle_handoff_failed",
			"module", "treasury-core/fee-claimer",
			"layer", "application",
			"external_tx_id", summary.DistributionTxID,
			"net_revenue", summary.NetRevenue,
			"error", err.Error(),
		)
		return
	}
	summary.Distributed = true
}

func (s *Service) claimMaster(ctx context.Context) (entities.RecipientResult, uint64) {
	result := entities.RecipientResult{TokenID: masterRecipientID}

	before, err := s.Ledger.Balance(ctx, s.MasterAddress)
	if err != nil {
		return s.failResult(ctx, result, "master balance read failed", err), 0
	}

	raw, err := s.Claims.BuildClaimTransaction(ctx, s.MasterAddress)
	if errors.Is(err, domainerrors.ErrNothingToClaim) {
		s.advanceWatermark(ctx, masterRecipientID, entities.OutcomeNothingToClaim)
		result.Outcome = entities.OutcomeNothingToClaim
		return result, 0
	}
	if err != nil {
		return s.failResult(ctx, result, "claim source call failed", err), 0
	}

	txID, err := s.Ledger.SubmitAndConfirm(ctx, s.MasterSeed, raw)
	if err != nil {
		return s.failResult(ctx, result, "claim submit failed", err), 0
	}

	after, err := s.Ledger.Balance(ctx, s.MasterAddress)
	if err != nil {
		// The claim confirmed; only the amount measurement is lost.
		return s.failResult(ctx, result, "post-claim balance read failed", err), 0
	}
	var claimed uint64
	if after > before {
		claimed = after - before
	}

	s.recordAudit(ctx, ports.AuditInput{
		Operation:   "claim-fee",
		Amount:      claimed,
		Destination: s.MasterAddress,
		TxID:        txID,
		Success:     true,
		Metadata:    map[string]any{"recipient": masterRecipientID},
	})
	s.advanceWatermark(ctx, masterRecipientID, entities.OutcomeClaimed)

	result.Outcome = entities.OutcomeClaimed
	result.ClaimedAmount = claimed
	result.ClaimTxID = txID
	return result, claimed
}

// claimEphemeral runs the fund -> claim -> sweep sequence for one
// recipient. Every state transition is persisted before the next network
// call, so a crash leaves a resumable wallet rather than lost funds.
func (s *Service) claimEphemeral(ctx context.Context, recipient ports.Recipient) (entities.RecipientResult, uint64) {
	result := entities.RecipientResult{TokenID: recipient.TokenID}

	wallet, seed, err := s.ensureWallet(ctx, recipient.TokenID)
	if err != nil {
		return s.failResult(ctx, result, "ephemeral wallet setup failed", err), 0
	}

	if wallet.State == entities.WalletStateIdle {
		if _, err := s.Ledger.Transfer(ctx, s.MasterSeed, wallet.Address, s.FeeBuffer); err != nil {
			s.markWalletFailed(ctx, &wallet, err)
			return s.failResult(ctx, result, "ephemeral wallet funding failed", err), 0
		}
		if err := s.transition(ctx, &wallet, entities.WalletStateFunded); err != nil {
			return s.failResult(ctx, result, "wallet state persist failed", err), 0
		}
	}

	baseline, err := s.Ledger.Balance(ctx, wallet.Address)
	if err != nil {
		s.markWalletFailed(ctx, &wallet, err)
		return s.failResult(ctx, result, "pre-claim balance read failed", err), 0
	}

	raw, err := s.Claims.BuildClaimTransaction(ctx, wallet.Address)
	if errors.Is(err, domainerrors.ErrNothingToClaim) {
		s.advanceWatermark(ctx, recipient.TokenID, entities.OutcomeNothingToClaim)
		result.Outcome = entities.OutcomeNothingToClaim
		if err := s.sweepAndRetire(ctx, &wallet, seed); err != nil {
			// The fee buffer stays stranded until the next cycle's resume.
			s.markWalletFailed(ctx, &wallet, err)
			ResolveLogger(s.Logger).Warn("post-claim sweep deferred",
				"event", "claim_sweep_deferred",
				"module", "treasury-core/fee-claimer",
				"layer", "application",
				"token_id", recipient.TokenID,
				"wallet", wallet.Address,
				"error", err.Error(),
			)
		}
		return result, 0
	}
	if err != nil {
		// Transient source failure: wallet stays funded, watermark held,
		// recipient retried next cycle.
		s.markWalletFailed(ctx, &wallet, err)
		return s.failResult(ctx, result, "claim source call failed", err), 0
	}

	txID, err := s.Ledger.SubmitAndConfirm(ctx, seed, raw)
	if err != nil {
		s.markWalletFailed(ctx, &wallet, err)
		return s.failResult(ctx, result, "claim submit failed", err), 0
	}
	if err := s.transition(ctx, &wallet, entities.WalletStateClaimed); err != nil {
		return s.failResult(ctx, result, "wallet state persist failed", err), 0
	}

	after, err := s.Ledger.Balance(ctx, wallet.Address)
	if err != nil {
		s.markWalletFailed(ctx, &wallet, err)
		return s.failResult(ctx, result, "post-claim balance read failed", err), 0
	}
	var claimed uint64
	if after > baseline {
		claimed = after - baseline
	}

	if err := s.sweepAndRetire(ctx, &wallet, seed); err != nil {
		s.markWalletFailed(ctx, &wallet, err)
		return s.failResult(ctx, result, "sweep to master failed", err), 0
	}

	s.recordAudit(ctx, ports.AuditInput{
		Operation:   "claim-fee",
		Amount:      claimed,
		Destination: wallet.Address,
		TxID:        txID,
		Success:     true,
		Metadata:    map[string]any{"token_id": recipient.TokenID},
	})
	s.advanceWatermark(ctx, recipient.TokenID, entities.OutcomeClaimed)

	result.Outcome = entities.OutcomeClaimed
	result.ClaimedAmount = claimed
	result.ClaimTxID = txID
	return result, claimed
}

// ensureWallet returns the recipient's active ephemeral wallet, creating a
// fresh keypair when none exists. Retired wallets are never reused.
func (s *Service) ensureWallet(ctx context.Context, tokenID string) (entities.EphemeralWallet, []byte, error) {
	wallet, err := s.Wallets.GetWalletByToken(ctx, tokenID)
	if err == nil {
		seed, decryptErr := s.Vault.Decrypt(wallet.EncryptedSeed)
		if decryptErr != nil {
			return entities.EphemeralWallet{}, nil, decryptErr
		}
		s.recordAudit(ctx, ports.AuditInput{
			Operation:   "wallet-access",
			Destination: wallet.Address,
			Success:     true,
			Metadata:    map[string]any{"token_id": tokenID},
		})
		return wallet, seed, nil
	}
	if !errors.Is(err, domainerrors.ErrWalletNotFound) {
		return entities.EphemeralWallet{}, nil, err
	}

	address, seed, err := s.Ledger.NewWallet()
	if err != nil {
		return entities.EphemeralWallet{}, nil, err
	}
	encrypted, err := s.Vault.Encrypt(seed)
	if err != nil {
		return entities.EphemeralWallet{}, nil, err
	}
	walletID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.EphemeralWallet{}, nil, err
	}
	now := s.Clock.Now().UTC()
	wallet = entities.EphemeralWallet{
		ID:            walletID,
		TokenID:       tokenID,
		Address:       address,
		EncryptedSeed: encrypted,
		State:         entities.WalletStateIdle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Wallets.SaveWallet(ctx, wallet); err != nil {
		return entities.EphemeralWallet{}, nil, err
	}
	return wallet, seed, nil
}

// sweepAndRetire drains the wallet back to the master, leaving the network
// fee behind, then retires it.
func (s *Service) sweepAndRetire(ctx context.Context, wallet *entities.EphemeralWallet, seed []byte) error {
	balance, err := s.Ledger.Balance(ctx, wallet.Address)
	if err != nil {
		return err
	}
	if balance > s.SweepNetworkFee {
		if _, err := s.Ledger.Transfer(ctx, seed, s.MasterAddress, balance-s.SweepNetworkFee); err != nil {
			return err
		}
	}
	if err := s.transition(ctx, wallet, entities.WalletStateSwept); err != nil {
		return err
	}
	return s.transition(ctx, wallet, entities.WalletStateRetired)
}

// ResumeStranded drains wallets left mid-sequence by a crash or failed
// cycle and retires them. It returns how many wallets were resumed; the
// first persistent error stops the pass, remaining wallets wait for the
// next cycle.
func (s *Service) ResumeStranded(ctx context.Context) (int, error) {
	logger := ResolveLogger(s.Logger)
	stranded, err := s.Wallets.ListStranded(ctx)
	if err != nil {
		return 0, err
	}
	resumed := 0
	for _, wallet := range stranded {
		seed, err := s.Vault.Decrypt(wallet.EncryptedSeed)
		if err != nil {
			return resumed, err
		}
		if err := s.sweepAndRetire(ctx, &wallet, seed); err != nil {
			return resumed, err
		}
		resumed++
		logger.Info("stranded wallet swept",
			"event", "claim_stranded_wallet_swept",
			"module", "treasury-core/fee-claimer",
			"layer", "application",
			"token_id", wallet.TokenID,
			"wallet", wallet.Address,
		)
	}
	return resumed, nil
}

func (s *Service) transition(ctx context.Context, wallet *entities.EphemeralWallet, state entities.WalletState) error {
	if !state.Valid() {
		return domainerrors.ErrInvalidWalletState
	}
	wallet.State = state
	// A successful transition supersedes any recorded failure.
	wallet.LastError = ""
	wallet.UpdatedAt = s.Clock.Now().UTC()
	return s.Wallets.UpdateWallet(ctx, *wallet)
}

// markWalletFailed leaves the cause on the wallet row so an operator can
// see why it is stranded. The state itself is untouched; ResumeStranded
// keys off state, not the marker.
func (s *Service) markWalletFailed(ctx context.Context, wallet *entities.EphemeralWallet, cause error) {
	wallet.LastError = cause.Error()
	wallet.UpdatedAt = s.Clock.Now().UTC()
	if err := s.Wallets.UpdateWallet(ctx, *wallet); err != nil {
		ResolveLogger(s.Logger).Error("wallet failure marker persist failed",
			"event", "claim_wallet_marker_persist_failed",
			"module", "treasury-core/fee-claimer",
			"layer", "application",
			"wallet_id", wallet.ID,
			"error", err.Error(),
		)
	}
}

func (s *Service) failResult(
	ctx context.Context,
	result entities.RecipientResult,
	message string,
	err error,
) entities.RecipientResult {
	ResolveLogger(s.Logger).Warn(message,
		"event", "claim_recipient_failed",
		"module", "treasury-core/fee-claimer",
		"layer", "application",
		"token_id", result.TokenID,
		"error", err.Error(),
	)
	s.recordAudit(ctx, ports.AuditInput{
		Operation: "claim-fee",
		Success:   false,
		ErrorText: err.Error(),
		Metadata:  map[string]any{"token_id": result.TokenID},
	})
	result.Outcome = entities.OutcomeFailed
	result.Error = err.Error()
	return result
}

// advanceWatermark records a definitive outcome. LastClaimedAt moves only
// when fees were actually claimed; an explicit "nothing to claim" keeps
// the prior claim time and just refreshes the outcome.
func (s *Service) advanceWatermark(ctx context.Context, tokenID string, outcome entities.ClaimOutcome) {
	watermark, err := s.Wallets.GetWatermark(ctx, tokenID)
	if err != nil {
		ResolveLogger(s.Logger).Warn("claim watermark read failed",
			"event", "claim_watermark_read_failed",
			"module", "treasury-core/fee-claimer",
			"layer", "application",
			"token_id", tokenID,
			"error", err.Error(),
		)
		watermark = entities.ClaimWatermark{}
	}
	watermark.TokenID = tokenID
	watermark.LastOutcome = outcome
	if outcome == entities.OutcomeClaimed {
		watermark.LastClaimedAt = s.Clock.Now().UTC()
	}
	if err := s.Wallets.SaveWatermark(ctx, watermark); err != nil {
		ResolveLogger(s.Logger).Error("claim watermark persist failed",
			"event", "claim_watermark_persist_failed",
			"module", "treasury-core/fee-claimer",
			"layer", "application",
			"token_id", tokenID,
			"error", err.Error(),
		)
	}
}

func (s *Service) recordAudit(ctx context.Context, input ports.AuditInput) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, input); err != nil {
		ResolveLogger(s.Logger).Error("claim audit write failed",
			"event", "claim_audit_write_failed",
			"module", "treasury-core/fee-claimer",
			"layer", "application",
			"operation", input.Operation,
			"error", err.Error(),
		)
	}
}
