package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"midas/contexts/wallet-security/audit-log/domain/entities"
	domainerrors "midas/contexts/wallet-security/audit-log/domain/errors"
	"midas/contexts/wallet-security/audit-log/ports"
)

const (
	outflowWindow = 24 * time.Hour
	recentWindow  = 60 * time.Second
)

type Service struct {
	Repo   ports.Repository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// Record appends one entry. Callers treat failures as side-channel: the
// business operation the entry describes already happened (or was already
// rejected), so the caller logs and moves on rather than unwinding.
func (s Service) Record(ctx context.Context, input ports.RecordInput) (entities.AuditEntry, error) {
	logger := resolveLogger(s.Logger)
	if !input.Operation.Valid() {
		return entities.AuditEntry{}, domainerrors.ErrInvalidOperationKind
	}

	id, err := s.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("audit id generation failed",
			"event", "audit_record_id_generation_failed",
			"module", "wallet-security/audit-log",
			"layer", "application",
			"operation", string(input.Operation),
			"error", err.Error(),
		)
		return entities.AuditEntry{}, err
	}

	entry := entities.AuditEntry{
		ID:          id,
		Timestamp:   s.Clock.Now().UTC(),
		Operation:   input.Operation,
		Amount:      input.Amount,
		Destination: strings.TrimSpace(input.Destination),
		TxID:        strings.TrimSpace(input.TxID),
		Caller:      strings.TrimSpace(input.Caller),
		Success:     input.Success,
		ErrorText:   input.ErrorText,
		Metadata:    input.Metadata,
	}
	if err := s.Repo.Append(ctx, entry); err != nil {
		logger.Error("audit append failed",
			"event", "audit_record_append_failed",
			"module", "wallet-security/audit-log",
			"layer", "application",
			"operation", string(input.Operation),
			"amount", input.Amount,
			"error", err.Error(),
		)
		return entities.AuditEntry{}, err
	}
	return entry, nil
}

// DailyOutflow recomputes the trailing-24h outflow from the log on every
// call. Never cached: drift here would let the daily cap be exceeded.
func (s Service) DailyOutflow(ctx context.Context) (uint64, error) {
	return s.Repo.SumOutflowSince(ctx, s.Clock.Now().UTC().Add(-outflowWindow))
}

// RecentAttempts counts all wallet-affecting attempts in the trailing 60s.
func (s Service) RecentAttempts(ctx context.Context) (int64, error) {
	return s.Repo.CountSince(ctx, s.Clock.Now().UTC().Add(-recentWindow))
}

func (s Service) History(
	ctx context.Context,
	kind entities.OperationKind,
	limit int,
	offset int,
) ([]entities.AuditEntry, error) {
	if !kind.Valid() {
		return nil, domainerrors.ErrInvalidOperationKind
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListByOperation(ctx, kind, limit, offset)
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
