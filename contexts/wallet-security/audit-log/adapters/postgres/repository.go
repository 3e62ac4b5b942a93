package postgresadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"midas/contexts/wallet-security/audit-log/domain/entities"
	"midas/contexts/wallet-security/audit-log/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Append(ctx context.Context, entry entities.AuditEntry) error {
	row, err := auditEntryModelFromEntity(entry)
	if err != nil {
		return r.logError("audit_repo_append_encode_failed", err,
			"entry_id", entry.ID,
			"operation", string(entry.Operation),
		)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("audit_repo_append_failed", err,
			"entry_id", entry.ID,
			"operation", string(entry.Operation),
			"amount", entry.Amount,
		)
	}
	return nil
}

func (r *Repository) SumOutflowSince(ctx context.Context, since time.Time) (uint64, error) {
	outflowKinds := []string{
		string(entities.OperationSend),
		string(entities.OperationBuyAndBurn),
		string(entities.OperationBurn),
	}
	var total uint64
	err := r.db.WithContext(ctx).
		Model(&auditEntryModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("success = ?", true).
		Where("operation IN ?", outflowKinds).
		Where("occurred_at >= ?", since.UTC()).
		Scan(&total).
		Error
	if err != nil {
		return 0, r.logError("audit_repo_sum_outflow_failed", err,
			"since_utc", since.UTC().Format(time.RFC3339),
		)
	}
	return total, nil
}

func (r *Repository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&auditEntryModel{}).
		Where("occurred_at >= ?", since.UTC()).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("audit_repo_count_since_failed", err,
			"since_utc", since.UTC().Format(time.RFC3339),
		)
	}
	return count, nil
}

func (r *Repository) ListByOperation(
	ctx context.Context,
	kind entities.OperationKind,
	limit int,
	offset int,
) ([]entities.AuditEntry, error) {
	var rows []auditEntryModel
	err := r.db.WithContext(ctx).
		Where("operation = ?", string(kind)).
		Order("occurred_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("audit_repo_list_by_operation_failed", err,
			"operation", string(kind),
			"limit", limit,
			"offset", offset,
		)
	}
	entries := make([]entities.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntity())
	}
	return entries, nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "wallet-security/audit-log",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("audit log repository operation failed", fields...)
	return err
}

type auditEntryModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	OccurredAt  time.Time `gorm:"column:occurred_at;index"`
	Operation   string    `gorm:"column:operation;index"`
	Amount      uint64    `gorm:"column:amount"`
	Destination string    `gorm:"column:destination"`
	TxID        string    `gorm:"column:tx_id"`
	Caller      string    `gorm:"column:caller"`
	Success     bool      `gorm:"column:success"`
	ErrorText   string    `gorm:"column:error_text"`
	Metadata    []byte    `gorm:"column:metadata;type:jsonb"`
}

func (auditEntryModel) TableName() string {
	return "audit_entries"
}

func auditEntryModelFromEntity(entry entities.AuditEntry) (auditEntryModel, error) {
	var metadata []byte
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return auditEntryModel{}, err
		}
		metadata = encoded
	}
	return auditEntryModel{
		ID:          entry.ID,
		OccurredAt:  entry.Timestamp.UTC(),
		Operation:   string(entry.Operation),
		Amount:      entry.Amount,
		Destination: entry.Destination,
		TxID:        entry.TxID,
		Caller:      entry.Caller,
		Success:     entry.Success,
		ErrorText:   entry.ErrorText,
		Metadata:    metadata,
	}, nil
}

func (m auditEntryModel) toEntity() entities.AuditEntry {
	var metadata map[string]any
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata)
	}
	return entities.AuditEntry{
		ID:          m.ID,
		Timestamp:   m.OccurredAt.UTC(),
		Operation:   entities.OperationKind(m.Operation),
		Amount:      m.Amount,
		Destination: m.Destination,
		TxID:        m.TxID,
		Caller:      m.Caller,
		Success:     m.Success,
		ErrorText:   m.ErrorText,
		Metadata:    metadata,
	}
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Repository = (*Repository)(nil)
