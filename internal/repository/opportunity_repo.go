package repository

import (
	"context"
	"errors"

	"fursa/internal/domain"
	"fursa/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotEnoughShares is the storage-level reservation failure; the
	// allocator converts it to the caller-facing coded error.
	ErrNotEnoughShares  = errors.New("not enough available shares")
	ErrProfitAlreadySet = errors.New("actual profit already recorded")
)

type OpportunityRepository struct {
	db *gorm.DB
}

func NewOpportunityRepository(db *gorm.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

func (r *OpportunityRepository) GetByID(ctx context.Context, id uint) (*models.Opportunity, error) {
	var o models.Opportunity
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OpportunityRepository) Create(ctx context.Context, o *models.Opportunity) error {
	return r.db.WithContext(ctx).Create(o).Error
}

// List returns opportunities, optionally filtered by status.
func (r *OpportunityRepository) List(ctx context.Context, status domain.OpportunityStatus, limit, offset int) ([]models.Opportunity, error) {
	q := r.db.WithContext(ctx).Model(&models.Opportunity{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.Opportunity
	err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// GetForUpdateTx locks the opportunity row for the rest of the caller's
// transaction; all share-pool mutations happen under this lock.
func (r *OpportunityRepository) GetForUpdateTx(tx *gorm.DB, id uint) (*models.Opportunity, error) {
	var o models.Opportunity
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ReserveSharesTx conditionally moves shares from available to reserved.
// The guard in the WHERE clause keeps reserved_shares <= total_shares even
// if two reservations race past the validation read.
func (r *OpportunityRepository) ReserveSharesTx(tx *gorm.DB, id uint, shares int) error {
	res := tx.Model(&models.Opportunity{}).
		Where("id = ? AND available_shares >= ?", id, shares).
		Updates(map[string]interface{}{
			"available_shares": gorm.Expr("available_shares - ?", shares),
			"reserved_shares":  gorm.Expr("reserved_shares + ?", shares),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotEnoughShares
	}
	return nil
}

// MarkFundedTx closes the pool once the last available share is reserved.
func (r *OpportunityRepository) MarkFundedTx(tx *gorm.DB, id uint) error {
	return tx.Model(&models.Opportunity{}).
		Where("id = ? AND available_shares = 0 AND status = ?", id, domain.OpportunityOpen).
		Update("status", domain.OpportunityFunded).Error
}

// RecordActualProfitTx sets the opportunity's actual profit figures exactly
// once; a second attempt hits zero rows. Recording also closes the listing.
func (r *OpportunityRepository) RecordActualProfitTx(tx *gorm.DB, id uint, perShare, netPerShare decimal.Decimal) error {
	res := tx.Model(&models.Opportunity{}).
		Where("id = ? AND actual_profit IS NULL", id).
		Updates(map[string]interface{}{
			"actual_profit":     perShare,
			"actual_net_profit": netPerShare,
			"status":            domain.OpportunityClosed,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfitAlreadySet
	}
	return nil
}
