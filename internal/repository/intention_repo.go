package repository

import (
	"context"
	"errors"
	"time"

	"fursa/internal/domain"
	"fursa/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrIntentionFinalized short-circuits duplicate deliveries: the intention is
// already executed or in a terminal status. Not a failure.
var ErrIntentionFinalized = errors.New("intention already finalized")

// Finalization is the terminal write applied to an intention together with
// its side effect.
type Finalization struct {
	Status        domain.IntentionStatus
	Executed      bool
	GatewayTxnID  string
	PaymentMethod string
	RawResponse   string
}

type IntentionRepository struct {
	db *gorm.DB
}

func NewIntentionRepository(db *gorm.DB) *IntentionRepository {
	return &IntentionRepository{db: db}
}

func (r *IntentionRepository) Create(ctx context.Context, p *models.PaymentIntention) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *IntentionRepository) GetByID(ctx context.Context, id uint) (*models.PaymentIntention, error) {
	var p models.PaymentIntention
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Activate records the gateway correlation ids assigned at registration.
// Only a freshly created intention can become active.
func (r *IntentionRepository) Activate(ctx context.Context, id uint, gatewayOrderID, gatewayIntentionID string) error {
	updates := map[string]interface{}{"status": domain.IntentionActive}
	if gatewayOrderID != "" {
		updates["gateway_order_id"] = gatewayOrderID
	}
	if gatewayIntentionID != "" {
		updates["gateway_intention_id"] = gatewayIntentionID
	}
	return r.db.WithContext(ctx).Model(&models.PaymentIntention{}).
		Where("id = ? AND status = ?", id, domain.IntentionCreated).
		Updates(updates).Error
}

func (r *IntentionRepository) findBy(ctx context.Context, query string, value string) (*models.PaymentIntention, error) {
	if value == "" {
		return nil, nil
	}
	var p models.PaymentIntention
	err := r.db.WithContext(ctx).Where(query, value).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *IntentionRepository) FindByGatewayOrderID(ctx context.Context, orderID string) (*models.PaymentIntention, error) {
	return r.findBy(ctx, "gateway_order_id = ?", orderID)
}

func (r *IntentionRepository) FindByMerchantRef(ctx context.Context, ref string) (*models.PaymentIntention, error) {
	return r.findBy(ctx, "merchant_ref = ?", ref)
}

func (r *IntentionRepository) FindByGatewayTxnID(ctx context.Context, txnID string) (*models.PaymentIntention, error) {
	return r.findBy(ctx, "gateway_txn_id = ?", txnID)
}

// Execute applies the side effect and the finalization as one atomic unit.
// The intention row is locked and is_executed re-checked first; that flag is
// the authoritative duplicate guard, not the settlement lease. A crash
// anywhere inside rolls both back, so a later redelivery re-enters cleanly.
func (r *IntentionRepository) Execute(ctx context.Context, id uint, fin Finalization, sideEffect func(tx *gorm.DB) error) (*models.PaymentIntention, error) {
	var out *models.PaymentIntention
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.PaymentIntention
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error; err != nil {
			return err
		}
		if p.IsExecuted || p.Status.Terminal() {
			out = &p
			return ErrIntentionFinalized
		}
		if sideEffect != nil {
			if err := sideEffect(tx); err != nil {
				return err
			}
		}
		now := time.Now()
		updates := map[string]interface{}{
			"status":       fin.Status,
			"processed_at": now,
			"raw_response": fin.RawResponse,
		}
		if fin.Executed {
			updates["is_executed"] = true
		}
		if fin.GatewayTxnID != "" {
			updates["gateway_txn_id"] = fin.GatewayTxnID
		}
		if fin.PaymentMethod != "" {
			updates["payment_method"] = fin.PaymentMethod
		}
		if err := tx.Model(&p).Updates(updates).Error; err != nil {
			return err
		}
		out = &p
		return nil
	})
	return out, err
}

// ExpireStale moves non-terminal intentions past their expiry to expired.
// The WHERE clause keeps completed/failed rows untouched, so the sweep is
// idempotent per intention.
func (r *IntentionRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentIntention{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at <= ?",
			[]domain.IntentionStatus{domain.IntentionCreated, domain.IntentionActive}, now).
		Update("status", domain.IntentionExpired)
	return res.RowsAffected, res.Error
}
