package entities

import "time"

type OperationKind string

const (
	OperationSend           OperationKind = "send"
	OperationDeploy         OperationKind = "deploy"
	OperationBuyAndBurn     OperationKind = "buy-and-burn"
	OperationBurn           OperationKind = "burn"
	OperationBalanceCheck   OperationKind = "balance-check"
	OperationWalletAccess   OperationKind = "wallet-access"
	OperationGuardrailBlock OperationKind = "guardrail-block"
	OperationClaimFee       OperationKind = "claim-fee"
)

func (k OperationKind) Valid() bool {
	switch k {
	case OperationSend, OperationDeploy, OperationBuyAndBurn, OperationBurn,
		OperationBalanceCheck, OperationWalletAccess, OperationGuardrailBlock,
		OperationClaimFee:
		return true
	default:
		return false
	}
}

// MovesFunds reports whether a successful entry of this kind represents
// balance leaving the wallet. Only these kinds count toward rolling outflow.
func (k OperationKind) MovesFunds() bool {
	switch k {
	case OperationSend, OperationBuyAndBurn, OperationBurn:
		return true
	default:
		return false
	}
}

// AuditEntry is immutable once written.
type AuditEntry struct {
	ID          string
	Timestamp   time.Time
	Operation   OperationKind
	Amount      uint64
	Destination string
	TxID        string
	Caller      string
	Success     bool
	ErrorText   string
	Metadata    map[string]any
}
