package models

import (
	"errors"
	"time"

	"fursa/internal/domain"

	"github.com/shopspring/decimal"
)

// PaymentIntention records one attempted external payment. It is created when
// a caller initiates a payment and afterwards mutated only by the settlement
// engine or the expiry sweep; rows are never deleted.
type PaymentIntention struct {
	ID                 uint                    `gorm:"primaryKey" json:"id"`
	UserID             uint                    `gorm:"not null;index" json:"user_id"`
	Purpose            domain.IntentionPurpose `gorm:"size:20;not null;index" json:"purpose"`
	AmountMinor        int64                   `gorm:"not null" json:"amount_minor"`
	Currency           string                  `gorm:"size:3;default:'SAR'" json:"currency"`
	MerchantRef        string                  `gorm:"size:64;uniqueIndex;not null" json:"merchant_ref"`
	GatewayOrderID     *string                 `gorm:"size:64;uniqueIndex" json:"gateway_order_id,omitempty"`
	GatewayIntentionID *string                 `gorm:"size:64" json:"gateway_intention_id,omitempty"`
	GatewayTxnID       *string                 `gorm:"size:64;index" json:"gateway_txn_id,omitempty"` // set on completion
	Status             domain.IntentionStatus  `gorm:"size:16;not null;index;default:'created'" json:"status"`
	IsExecuted         bool                    `gorm:"not null;default:false" json:"is_executed"`
	PaymentMethod      *string                 `gorm:"size:32" json:"payment_method,omitempty"`
	RawResponse        string                  `gorm:"type:text" json:"-"` // verbatim gateway payload, kept for audit

	// investment extras; null unless Purpose == investment
	OpportunityID *uint                  `gorm:"index" json:"opportunity_id,omitempty"`
	Shares        *int                   `json:"shares,omitempty"`
	Mode          *domain.InvestmentMode `gorm:"size:16" json:"mode,omitempty"`
	PricePerShare *decimal.Decimal       `gorm:"type:decimal(15,2)" json:"price_per_share,omitempty"`

	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (PaymentIntention) TableName() string {
	return "payment_intentions"
}

// InvestmentExtras is the investment variant of the purpose-tagged payload.
type InvestmentExtras struct {
	OpportunityID uint
	Shares        int
	Mode          domain.InvestmentMode
	PricePerShare decimal.Decimal
}

// WalletChargeExtras is the wallet_charge variant; it carries nothing beyond
// the intention amount but keeps the dispatch exhaustive.
type WalletChargeExtras struct{}

var ErrWrongPurpose = errors.New("intention purpose does not carry the requested extras")

func (p *PaymentIntention) InvestmentExtras() (InvestmentExtras, error) {
	if p.Purpose != domain.PurposeInvestment {
		return InvestmentExtras{}, ErrWrongPurpose
	}
	if p.OpportunityID == nil || p.Shares == nil || p.Mode == nil || p.PricePerShare == nil {
		return InvestmentExtras{}, errors.New("investment intention is missing extras")
	}
	return InvestmentExtras{
		OpportunityID: *p.OpportunityID,
		Shares:        *p.Shares,
		Mode:          *p.Mode,
		PricePerShare: *p.PricePerShare,
	}, nil
}

func (p *PaymentIntention) WalletChargeExtras() (WalletChargeExtras, error) {
	if p.Purpose != domain.PurposeWalletCharge {
		return WalletChargeExtras{}, ErrWrongPurpose
	}
	return WalletChargeExtras{}, nil
}
