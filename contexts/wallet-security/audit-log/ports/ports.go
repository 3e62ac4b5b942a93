package ports

import (
	"context"
	"time"

	"midas/contexts/wallet-security/audit-log/domain/entities"
)

type RecordInput struct {
	Operation   entities.OperationKind
	Amount      uint64
	Destination string
	TxID        string
	Caller      string
	Success     bool
	ErrorText   string
	Metadata    map[string]any
}

// Repository is append-only: there are intentionally no update or delete
// methods.
type Repository interface {
	Append(ctx context.Context, entry entities.AuditEntry) error
	SumOutflowSince(ctx context.Context, since time.Time) (uint64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	ListByOperation(ctx context.Context, kind entities.OperationKind, limit int, offset int) ([]entities.AuditEntry, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
