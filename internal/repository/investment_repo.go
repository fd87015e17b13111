package repository

import (
	"context"
	"errors"
	"time"

	"fursa/internal/domain"
	"fursa/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvestmentRepository struct {
	db *gorm.DB
}

func NewInvestmentRepository(db *gorm.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

func (r *InvestmentRepository) GetByID(ctx context.Context, id uint) (*models.Investment, error) {
	var inv models.Investment
	if err := r.db.WithContext(ctx).First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvestmentRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Investment, error) {
	var list []models.Investment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// FindByUserAndOpportunity returns nil when the user has not invested yet.
func (r *InvestmentRepository) FindByUserAndOpportunity(ctx context.Context, userID, opportunityID uint) (*models.Investment, error) {
	var inv models.Investment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND opportunity_id = ?", userID, opportunityID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// FindForUpdateTx returns the (user, opportunity) row locked, or nil when no
// investment exists yet.
func (r *InvestmentRepository) FindForUpdateTx(tx *gorm.DB, userID, opportunityID uint) (*models.Investment, error) {
	var inv models.Investment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND opportunity_id = ?", userID, opportunityID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvestmentRepository) SaveTx(tx *gorm.DB, inv *models.Investment) error {
	return tx.Save(inv).Error
}

// MarkMerchandiseArrived flips pending -> arrived. Returns false when the
// row was already arrived, which callers treat as a successful no-op.
func (r *InvestmentRepository) MarkMerchandiseArrived(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Investment{}).
		Where("id = ? AND merchandise_status = ?", id, domain.MerchandisePending).
		Updates(map[string]interface{}{
			"merchandise_status": domain.MerchandiseArrived,
			"status":             domain.InvestmentCompleted,
			"arrived_at":         at,
		})
	return res.RowsAffected > 0, res.Error
}

// CascadeActualProfitTx copies the opportunity's recorded figures onto every
// authorize investment that does not have one yet. Already-set rows are left
// alone, never overwritten.
func (r *InvestmentRepository) CascadeActualProfitTx(tx *gorm.DB, opportunityID uint, perShare, netPerShare decimal.Decimal) (int64, error) {
	res := tx.Model(&models.Investment{}).
		Where("opportunity_id = ? AND mode = ? AND actual_profit IS NULL",
			opportunityID, domain.ModeAuthorize).
		Updates(map[string]interface{}{
			"actual_profit":     perShare,
			"actual_net_profit": netPerShare,
		})
	return res.RowsAffected, res.Error
}

// PendingDistributions lists authorize investments that have a recorded
// actual profit and have not been paid out yet.
func (r *InvestmentRepository) PendingDistributions(ctx context.Context, opportunityID uint) ([]models.Investment, error) {
	var list []models.Investment
	err := r.db.WithContext(ctx).
		Where("opportunity_id = ? AND mode = ? AND distribution_status = ? AND actual_net_profit IS NOT NULL",
			opportunityID, domain.ModeAuthorize, domain.DistributionPending).
		Order("id ASC").Find(&list).Error
	return list, err
}

// FinalizeDistributionTx flips one investment pending -> distributed inside
// the caller's transaction, alongside the wallet credit. Returns false when
// another run already distributed it.
func (r *InvestmentRepository) FinalizeDistributionTx(tx *gorm.DB, id uint, amount decimal.Decimal, at time.Time) (bool, error) {
	res := tx.Model(&models.Investment{}).
		Where("id = ? AND distribution_status = ?", id, domain.DistributionPending).
		Updates(map[string]interface{}{
			"distribution_status": domain.DistributionDistributed,
			"status":              domain.InvestmentCompleted,
			"distributed_at":      at,
			"distributed_profit":  amount,
		})
	return res.RowsAffected > 0, res.Error
}
