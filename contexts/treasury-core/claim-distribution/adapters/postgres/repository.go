package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"midas/contexts/treasury-core/claim-distribution/domain/entities"
	domainerrors "midas/contexts/treasury-core/claim-distribution/domain/errors"
	"midas/contexts/treasury-core/claim-distribution/ports"
	"midas/internal/shared/events"
	"midas/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *Repository) CreateBatch(
	ctx context.Context,
	batch entities.ClaimBatch,
	allocations []entities.ClaimAllocation,
) error {
	batchRow := claimBatchModelFromEntity(batch)
	allocationRows := make([]claimAllocationModel, 0, len(allocations))
	for _, allocation := range allocations {
		allocationRows = append(allocationRows, claimAllocationModelFromEntity(allocation))
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&batchRow).Error; err != nil {
			return err
		}
		if len(allocationRows) == 0 {
			return nil
		}
		return tx.Create(&allocationRows).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyProcessed
		}
		return r.logError("claim_repo_create_batch_failed", err,
			"batch_id", batch.ID,
			"external_tx_id", batch.ExternalTxID,
		)
	}
	return nil
}

func (r *Repository) GetBatch(ctx context.Context, batchID string) (entities.ClaimBatch, error) {
	var row claimBatchModel
	err := r.db.WithContext(ctx).
		Where("id = ?", batchID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ClaimBatch{}, domainerrors.ErrBatchNotFound
		}
		return entities.ClaimBatch{}, r.logError("claim_repo_get_batch_failed", err,
			"batch_id", batchID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetBatchByExternalTxID(ctx context.Context, externalTxID string) (entities.ClaimBatch, error) {
	var row claimBatchModel
	err := r.db.WithContext(ctx).
		Where("external_tx_id = ?", externalTxID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ClaimBatch{}, domainerrors.ErrBatchNotFound
		}
		return entities.ClaimBatch{}, r.logError("claim_repo_get_batch_by_external_failed", err,
			"external_tx_id", externalTxID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListBatches(ctx context.Context, limit int, offset int) ([]entities.ClaimBatch, error) {
	var rows []claimBatchModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("claim_repo_list_batches_failed", err,
			"limit", limit,
			"offset", offset,
		)
	}
	batches := make([]entities.ClaimBatch, 0, len(rows))
	for _, row := range rows {
		batches = append(batches, row.toEntity())
	}
	return batches, nil
}

func (r *Repository) UpdateBatch(ctx context.Context, batch entities.ClaimBatch) error {
	row := claimBatchModelFromEntity(batch)
	result := r.db.WithContext(ctx).
		Model(&claimBatchModel{}).
		Where("id = ?", batch.ID).
		Updates(map[string]any{
			"status":             row.Status,
			"distributed_amount": row.DistributedAmount,
			"updated_at":         row.UpdatedAt,
		})
	if result.Error != nil {
		return r.logError("claim_repo_update_batch_failed", result.Error,
			"batch_id", batch.ID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrBatchNotFound
	}
	return nil
}

func (r *Repository) ListAllocations(ctx context.Context, batchID string) ([]entities.ClaimAllocation, error) {
	var batchCount int64
	err := r.db.WithContext(ctx).
		Model(&claimBatchModel{}).
		Where("id = ?", batchID).
		Count(&batchCount).
		Error
	if err != nil {
		return nil, r.logError("claim_repo_list_allocations_failed", err,
			"batch_id", batchID,
		)
	}
	if batchCount == 0 {
		return nil, domainerrors.ErrBatchNotFound
	}
	var rows []claimAllocationModel
	err = r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("gross_amount DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("claim_repo_list_allocations_failed", err,
			"batch_id", batchID,
		)
	}
	allocations := make([]entities.ClaimAllocation, 0, len(rows))
	for _, row := range rows {
		allocations = append(allocations, row.toEntity())
	}
	return allocations, nil
}

func (r *Repository) UpdateAllocation(ctx context.Context, allocation entities.ClaimAllocation) error {
	row := claimAllocationModelFromEntity(allocation)
	result := r.db.WithContext(ctx).
		Model(&claimAllocationModel{}).
		Where("id = ?", allocation.ID).
		Updates(map[string]any{
			"status":          row.Status,
			"recipient_tx_id": row.RecipientTxID,
			"last_error":      row.LastError,
			"updated_at":      row.UpdatedAt,
		})
	if result.Error != nil {
		return r.logError("claim_repo_update_allocation_failed", result.Error,
			"allocation_id", allocation.ID,
			"batch_id", allocation.BatchID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAllocationNotFound
	}
	return nil
}

func (r *Repository) LatestSnapshots(ctx context.Context, tokenIDs []string) (map[string]entities.VolumeSnapshot, error) {
	if len(tokenIDs) == 0 {
		return map[string]entities.VolumeSnapshot{}, nil
	}
	var rows []volumeSnapshotModel
	err := r.db.WithContext(ctx).
		Where("token_id IN ?", tokenIDs).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("claim_repo_latest_snapshots_failed", err,
			"token_count", len(tokenIDs),
		)
	}
	snapshots := make(map[string]entities.VolumeSnapshot, len(rows))
	for _, row := range rows {
		snapshots[row.TokenID] = row.toEntity()
	}
	return snapshots, nil
}

func (r *Repository) SaveSnapshots(ctx context.Context, snapshots []entities.VolumeSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	rows := make([]volumeSnapshotModel, 0, len(snapshots))
	for _, snapshot := range snapshots {
		rows = append(rows, volumeSnapshotModelFromEntity(snapshot))
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"cumulative_volume", "source", "captured_at"}),
		}).
		Create(&rows).
		Error
	if err != nil {
		return r.logError("claim_repo_save_snapshots_failed", err,
			"snapshot_count", len(snapshots),
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("claim_repo_outbox_encode_failed", err,
			"event_type", envelope.EventType,
		)
	}
	row := outboxModel{
		ID:        envelope.EventID,
		EventType: envelope.EventType,
		Payload:   payload,
		Status:    "pending",
		CreatedAt: envelope.OccurredAtUTC,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("claim_repo_outbox_append_failed", err,
			"event_type", envelope.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("claim_repo_outbox_list_pending_failed", err,
			"limit", limit,
		)
	}
	messages := make([]outbox.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, outbox.Message{
			ID:         row.ID,
			EventType:  row.EventType,
			Payload:    row.Payload,
			Status:     row.Status,
			RetryCount: row.RetryCount,
		})
	}
	return messages, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id = ?", outboxID).
		Updates(map[string]any{
			"status":       "published",
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("claim_repo_outbox_mark_published_failed", result.Error,
			"outbox_id", outboxID,
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "treasury-core/claim-distribution",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("claim distribution repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type claimBatchModel struct {
	ID                string    `gorm:"column:id;primaryKey"`
	ExternalTxID      string    `gorm:"column:external_tx_id;uniqueIndex"`
	TotalAmount       uint64    `gorm:"column:total_amount"`
	RecipientCount    int       `gorm:"column:recipient_count"`
	Status            string    `gorm:"column:status;index"`
	DistributedAmount uint64    `gorm:"column:distributed_amount"`
	CreatedAt         time.Time `gorm:"column:created_at;index"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (claimBatchModel) TableName() string {
	return "claim_batches"
}

func claimBatchModelFromEntity(batch entities.ClaimBatch) claimBatchModel {
	return claimBatchModel{
		ID:                batch.ID,
		ExternalTxID:      batch.ExternalTxID,
		TotalAmount:       batch.TotalAmount,
		RecipientCount:    batch.RecipientCount,
		Status:            string(batch.Status),
		DistributedAmount: batch.DistributedAmount,
		CreatedAt:         batch.CreatedAt.UTC(),
		UpdatedAt:         batch.UpdatedAt.UTC(),
	}
}

func (m claimBatchModel) toEntity() entities.ClaimBatch {
	return entities.ClaimBatch{
		ID:                m.ID,
		ExternalTxID:      m.ExternalTxID,
		TotalAmount:       m.TotalAmount,
		RecipientCount:    m.RecipientCount,
		Status:            entities.BatchStatus(m.Status),
		DistributedAmount: m.DistributedAmount,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

type claimAllocationModel struct {
	ID              string    `gorm:"column:id;primaryKey"`
	BatchID         string    `gorm:"column:batch_id;index"`
	TokenID         string    `gorm:"column:token_id"`
	PayoutAddress   string    `gorm:"column:payout_address"`
	ActivityDelta   uint64    `gorm:"column:activity_delta"`
	ShareFraction   float64   `gorm:"column:share_fraction"`
	GrossAmount     uint64    `gorm:"column:gross_amount"`
	RecipientAmount uint64    `gorm:"column:recipient_amount"`
	Status          string    `gorm:"column:status;index"`
	RecipientTxID   string    `gorm:"column:recipient_tx_id"`
	LastError       string    `gorm:"column:last_error"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (claimAllocationModel) TableName() string {
	return "claim_allocations"
}

func claimAllocationModelFromEntity(allocation entities.ClaimAllocation) claimAllocationModel {
	return claimAllocationModel{
		ID:              allocation.ID,
		BatchID:         allocation.BatchID,
		TokenID:         allocation.TokenID,
		PayoutAddress:   allocation.PayoutAddress,
		ActivityDelta:   allocation.ActivityDelta,
		ShareFraction:   allocation.ShareFraction,
		GrossAmount:     allocation.GrossAmount,
		RecipientAmount: allocation.RecipientAmount,
		Status:          string(allocation.Status),
		RecipientTxID:   allocation.RecipientTxID,
		LastError:       allocation.LastError,
		UpdatedAt:       allocation.UpdatedAt.UTC(),
	}
}

func (m claimAllocationModel) toEntity() entities.ClaimAllocation {
	return entities.ClaimAllocation{
		ID:              m.ID,
		BatchID:         m.BatchID,
		TokenID:         m.TokenID,
		PayoutAddress:   m.PayoutAddress,
		ActivityDelta:   m.ActivityDelta,
		ShareFraction:   m.ShareFraction,
		GrossAmount:     m.GrossAmount,
		RecipientAmount: m.RecipientAmount,
		Status:          entities.AllocationStatus(m.Status),
		RecipientTxID:   m.RecipientTxID,
		LastError:       m.LastError,
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

type volumeSnapshotModel struct {
	TokenID          string    `gorm:"column:token_id;primaryKey"`
	CumulativeVolume uint64    `gorm:"column:cumulative_volume"`
	Source           string    `gorm:"column:source"`
	CapturedAt       time.Time `gorm:"column:captured_at"`
}

func (volumeSnapshotModel) TableName() string {
	return "volume_snapshots"
}

func volumeSnapshotModelFromEntity(snapshot entities.VolumeSnapshot) volumeSnapshotModel {
	return volumeSnapshotModel{
		TokenID:          snapshot.TokenID,
		CumulativeVolume: snapshot.CumulativeVolume,
		Source:           snapshot.Source,
		CapturedAt:       snapshot.CapturedAt.UTC(),
	}
}

func (m volumeSnapshotModel) toEntity() entities.VolumeSnapshot {
	return entities.VolumeSnapshot{
		TokenID:          m.TokenID,
		CumulativeVolume: m.CumulativeVolume,
		Source:           m.Source,
		CapturedAt:       m.CapturedAt.UTC(),
	}
}

type outboxModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload;type:jsonb"`
	Status      string     `gorm:"column:status;index"`
	RetryCount  int        `gorm:"column:retry_count"`
	CreatedAt   time.Time  `gorm:"column:created_at;index"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "claim_distribution_outbox"
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
