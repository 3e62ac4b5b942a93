package entities

import "time"

// WalletState is the persisted position of an ephemeral wallet in its
// fund -> claim -> sweep lifecycle. Persisting every transition lets a
// crashed cycle resume a stranded wallet instead of leaving funds behind.
type WalletState string

const (
	WalletStateIdle    WalletState = "idle"
	WalletStateFunded  WalletState = "funded"
	WalletStateClaimed WalletState = "claimed"
	WalletStateSwept   WalletState = "swept"
	WalletStateRetired WalletState = "retired"
)

func (s WalletState) Valid() bool {
	switch s {
	case WalletStateIdle, WalletStateFunded, WalletStateClaimed, WalletStateSwept, WalletStateRetired:
		return true
	}
	return false
}

// Stranded reports whether a wallet was left mid-sequence and may still
// hold funds that belong to the master wallet.
func (s WalletState) Stranded() bool {
	return s == WalletStateFunded || s == WalletStateClaimed || s == WalletStateSwept
}

// EphemeralWallet is a short-lived keypair isolating one recipient's claim.
// The signing seed is only ever persisted encrypted.
type EphemeralWallet struct {
	ID            string
	TokenID       string
	Address       string
	EncryptedSeed []byte
	State         WalletState
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ClaimWatermark tracks a recipient's claim history. LastClaimedAt is the
// last time fees were actually claimed; LastOutcome is the latest
// definitive outcome, success or an explicit "nothing to claim" from the
// source. Transient errors touch neither, so a recipient hit by an outage
// is retried next cycle.
type ClaimWatermark struct {
	TokenID       string
	LastClaimedAt time.Time
	LastOutcome   ClaimOutcome
}

// ClaimOutcome classifies one recipient's result within a cycle.
type ClaimOutcome string

const (
	OutcomeClaimed        ClaimOutcome = "claimed"
	OutcomeNothingToClaim ClaimOutcome = "nothing_to_claim"
	OutcomeFailed         ClaimOutcome = "failed"
)

// RecipientResult is one recipient's detail line in a cycle summary.
type RecipientResult struct {
	TokenID       string
	Outcome       ClaimOutcome
	ClaimedAmount uint64
	ClaimTxID     string
	Error         string
}

// CycleSummary aggregates one claim cycle. It is returned even under
// partial failure; one recipient's error never aborts the others.
type CycleSummary struct {
	StartedAt        time.Time
	FinishedAt       time.Time
	Processed        int
	Claimed          int
	NothingToClaim   int
	Failed           int
	NetRevenue       uint64
	DistributionTxID string
	Distributed      bool
	Results          []RecipientResult
}
