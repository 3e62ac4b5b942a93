package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	auditentities "midas/contexts/wallet-security/audit-log/domain/entities"
	auditports "midas/contexts/wallet-security/audit-log/ports"
	domainerrors "midas/contexts/wallet-security/wallet-guardrails/domain/errors"
	"midas/contexts/wallet-security/wallet-guardrails/ports"
)

// Service is constructed once in bootstrap and injected everywhere a payment
// leaves the wallet. The mutex spans the entire check-send-record sequence:
// releasing it between the daily-cap check and the audit append would let two
// concurrent sends each pass the check against stale outflow and jointly
// exceed the cap.
type Service struct {
	mu sync.Mutex

	Config    ports.Config
	Audit     ports.AuditLedger
	Sender    ports.Sender
	Addresses ports.AddressValidator
	Logger    *slog.Logger
}

func NewService(
	config ports.Config,
	audit ports.AuditLedger,
	sender ports.Sender,
	addresses ports.AddressValidator,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Config:    config,
		Audit:     audit,
		Sender:    sender,
		Addresses: addresses,
		Logger:    logger,
	}
}

// ExecuteSend runs the guardrail checks in order, executes the transfer if
// they pass, and records the attempt. Every rejection is recorded as a
// guardrail-block entry before returning.
func (s *Service) ExecuteSend(ctx context.Context, req ports.SendRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	destination := strings.TrimSpace(req.Destination)
	operation := req.Operation
	if !operation.Valid() || !operation.MovesFunds() {
		operation = auditentities.OperationSend
	}

	if err := s.check(ctx, destination, req.Amount); err != nil {
		s.recordBlock(ctx, destination, req, err)
		return "", err
	}

	txID, sendErr := s.Sender.Send(ctx, destination, req.Amount)

	entry := auditports.RecordInput{
		Operation:   operation,
		Amount:      req.Amount,
		Destination: destination,
		TxID:        txID,
		Caller:      req.Caller,
		Success:     sendErr == nil,
		Metadata:    req.Metadata,
	}
	if sendErr != nil {
		entry.ErrorText = sendErr.Error()
	}
	if _, err := s.Audit.Record(ctx, entry); err != nil {
		// Side channel only: the send outcome stands regardless of whether
		// we managed to describe it.
		s.Logger.Error("audit write failed after send",
			"event", "guardrail_audit_write_failed",
			"module", "wallet-security/wallet-guardrails",
			"layer", "application",
			"destination", destination,
			"amount", req.Amount,
			"send_succeeded", sendErr == nil,
			"error", err.Error(),
		)
	}

	if sendErr != nil {
		return "", sendErr
	}
	return txID, nil
}

func (s *Service) check(ctx context.Context, destination string, amount uint64) error {
	if !s.Addresses.ValidateAddress(destination) {
		return domainerrors.ErrInvalidDestination
	}
	if amount == 0 {
		return domainerrors.ErrInvalidAmount
	}
	if amount > s.Config.PerTransactionCap {
		return domainerrors.ErrPerTransactionCap
	}

	outflow, err := s.Audit.DailyOutflow(ctx)
	if err != nil {
		// Fail closed: an unreadable ledger means the daily cap cannot be
		// proven, so the send is refused.
		s.Logger.Error("daily outflow read failed",
			"event", "guardrail_outflow_read_failed",
			"module", "wallet-security/wallet-guardrails",
			"layer", "application",
			"error", err.Error(),
		)
		return domainerrors.ErrGuardrailUnavailable
	}
	if outflow+amount > s.Config.DailyOutflowCap {
		return domainerrors.ErrDailyCapExceeded
	}

	if len(s.Config.Allowlist) > 0 && !contains(s.Config.Allowlist, destination) {
		return domainerrors.ErrDestinationNotAllowed
	}
	return nil
}

func (s *Service) recordBlock(ctx context.Context, destination string, req ports.SendRequest, cause error) {
	if _, err := s.Audit.Record(ctx, auditports.RecordInput{
		Operation:   auditentities.OperationGuardrailBlock,
		Amount:      req.Amount,
		Destination: destination,
		Caller:      req.Caller,
		Success:     false,
		ErrorText:   cause.Error(),
		Metadata:    req.Metadata,
	}); err != nil {
		s.Logger.Error("audit write failed for guardrail block",
			"event", "guardrail_block_audit_write_failed",
			"module", "wallet-security/wallet-guardrails",
			"layer", "application",
			"destination", destination,
			"amount", req.Amount,
			"error", err.Error(),
		)
	}
	s.Logger.Warn("payment blocked by guardrail",
		"event", "guardrail_payment_blocked",
		"module", "wallet-security/wallet-guardrails",
		"layer", "application",
		"destination", destination,
		"amount", req.Amount,
		"caller", req.Caller,
		"reason", cause.Error(),
	)
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
