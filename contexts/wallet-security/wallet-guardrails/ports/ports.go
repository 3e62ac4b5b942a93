package ports

import (
	"context"
	"time"

	auditentities "midas/contexts/wallet-security/audit-log/domain/entities"
	auditports "midas/contexts/wallet-security/audit-log/ports"
)

// SendRequest describes one outbound payment to be gated and executed.
type SendRequest struct {
	Destination string
	Amount      uint64
	Operation   auditentities.OperationKind
	Caller      string
	Metadata    map[string]any
}

// AuditLedger is the slice of the audit-log service the guardrails consult
// and extend. Outflow is recomputed from the log on every call.
type AuditLedger interface {
	Record(ctx context.Context, input auditports.RecordInput) (auditentities.AuditEntry, error)
	DailyOutflow(ctx context.Context) (uint64, error)
}

// Sender performs the actual ledger transfer once checks pass.
type Sender interface {
	Send(ctx context.Context, destination string, amount uint64) (string, error)
}

type AddressValidator interface {
	ValidateAddress(address string) bool
}

type Clock interface {
	Now() time.Time
}

// Config holds the hard limits. Not persisted; supplied at construction.
type Config struct {
	PerTransactionCap uint64
	DailyOutflowCap   uint64
	Allowlist         []string
}
