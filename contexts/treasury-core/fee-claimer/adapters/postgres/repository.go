package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"midas/contexts/treasury-core/fee-claimer/domain/entities"
	domainerrors "midas/contexts/treasury-core/fee-claimer/domain/errors"
	"midas/contexts/treasury-core/fee-claimer/ports"

	"github.com/google/uuid"
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

func (r *Repository) SaveWallet(ctx context.Context, wallet entities.EphemeralWallet) error {
	row := walletModelFromEntity(wallet)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("claimer_repo_save_wallet_failed", err,
			"wallet_id", wallet.ID,
			"token_id", wallet.TokenID,
		)
	}
	return nil
}

func (r *Repository) UpdateWallet(ctx context.Context, wallet entities.EphemeralWallet) error {
	row := walletModelFromEntity(wallet)
	result := r.db.WithContext(ctx).
		Model(&walletModel{}).
		Where("id = ?", wallet.ID).
		Updates(map[string]any{
			"state":      row.State,
			"last_error": row.LastError,
			"updated_at": row.UpdatedAt,
		})
	if result.Error != nil {
		return r.logError("claimer_repo_update_wallet_failed", result.Error,
			"wallet_id", wallet.ID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrWalletNotFound
	}
	return nil
}

func (r *Repository) GetWalletByToken(ctx context.Context, tokenID string) (entities.EphemeralWallet, error) {
	var row walletModel
	err := r.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Where("state <> ?", string(entities.WalletStateRetired)).
		Order("created_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.EphemeralWallet{}, domainerrors.ErrWalletNotFound
		}
		return entities.EphemeralWallet{}, r.logError("claimer_repo_get_wallet_failed", err,
			"token_id", tokenID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListStranded(ctx context.Context) ([]entities.EphemeralWallet, error) {
	strandedStates := []string{
		string(entities.WalletStateFunded),
		string(entities.WalletStateClaimed),
		string(entities.WalletStateSwept),
	}
	var rows []walletModel
	err := r.db.WithContext(ctx).
		Where("state IN ?", strandedStates).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("claimer_repo_list_stranded_failed", err)
	}
	wallets := make([]entities.EphemeralWallet, 0, len(rows))
	for _, row := range rows {
		wallets = append(wallets, row.toEntity())
	}
	return wallets, nil
}

func (r *Repository) GetWatermark(ctx context.Context, tokenID string) (entities.ClaimWatermark, error) {
	var row watermarkModel
	err := r.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ClaimWatermark{TokenID: tokenID}, nil
		}
		return entities.ClaimWatermark{}, r.logError("claimer_repo_get_watermark_failed", err,
			"token_id", tokenID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveWatermark(ctx context.Context, watermark entities.ClaimWatermark) error {
	row := watermarkModelFromEntity(watermark)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_claimed_at", "last_outcome"}),
		}).
		Create(&row).
		Error
	if err != nil {
		return r.logError("claimer_repo_save_watermark_failed", err,
			"token_id", watermark.TokenID,
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "treasury-core/fee-claimer",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("fee claimer repository operation failed", fields...)
	return err
}

type walletModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	TokenID       string    `gorm:"column:token_id;index"`
	Address       string    `gorm:"column:address"`
	EncryptedSeed []byte    `gorm:"column:encrypted_seed"`
	State         string    `gorm:"column:state;index"`
	LastError     string    `gorm:"column:last_error"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (walletModel) TableName() string {
	return "ephemeral_wallets"
}

func walletModelFromEntity(wallet entities.EphemeralWallet) walletModel {
	return walletModel{
		ID:            wallet.ID,
		TokenID:       wallet.TokenID,
		Address:       wallet.Address,
		EncryptedSeed: wallet.EncryptedSeed,
		State:         string(wallet.State),
		LastError:     wallet.LastError,
		CreatedAt:     wallet.CreatedAt.UTC(),
		UpdatedAt:     wallet.UpdatedAt.UTC(),
	}
}

func (m walletModel) toEntity() entities.EphemeralWallet {
	return entities.EphemeralWallet{
		ID:            m.ID,
		TokenID:       m.TokenID,
		Address:       m.Address,
		EncryptedSeed: m.EncryptedSeed,
		State:         entities.WalletState(m.State),
		LastError:     m.LastError,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type watermarkModel struct {
	TokenID       string    `gorm:"column:token_id;primaryKey"`
	LastClaimedAt time.Time `gorm:"column:last_claimed_at"`
	LastOutcome   string    `gorm:"column:last_outcome"`
}

func (watermarkModel) TableName() string {
	return "claim_watermarks"
}

func watermarkModelFromEntity(watermark entities.ClaimWatermark) watermarkModel {
	return watermarkModel{
		TokenID:       watermark.TokenID,
		LastClaimedAt: watermark.LastClaimedAt.UTC(),
		LastOutcome:   string(watermark.LastOutcome),
	}
}

func (m watermarkModel) toEntity() entities.ClaimWatermark {
	return entities.ClaimWatermark{
		TokenID:       m.TokenID,
		LastClaimedAt: m.LastClaimedAt.UTC(),
		LastOutcome:   entities.ClaimOutcome(m.LastOutcome),
	}
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.WalletStore = (*Repository)(nil)
