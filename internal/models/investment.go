package models

import (
	"time"

	"fursa/internal/domain"

	"github.com/shopspring/decimal"
)

// Investment is unique per (user, opportunity); repeat purchases merge into
// the existing row and recompute totals at the snapshotted share price.
type Investment struct {
	ID                 uint                      `gorm:"primaryKey" json:"id"`
	UserID             uint                      `gorm:"not null;uniqueIndex:idx_investments_user_opportunity" json:"user_id"`
	OpportunityID      uint                      `gorm:"not null;uniqueIndex:idx_investments_user_opportunity;index" json:"opportunity_id"`
	Shares             int                       `gorm:"not null" json:"shares"`
	SharePrice         decimal.Decimal           `gorm:"type:decimal(15,2);not null" json:"share_price"` // snapshot at first purchase
	Mode               domain.InvestmentMode     `gorm:"size:16;not null" json:"mode"`
	TotalInvestment    decimal.Decimal           `gorm:"type:decimal(15,2);not null" json:"total_investment"`
	TotalPayment       decimal.Decimal           `gorm:"type:decimal(15,2);not null" json:"total_payment"` // principal + service fee
	Status             domain.InvestmentStatus   `gorm:"size:16;not null;index;default:'active'" json:"status"`
	MerchandiseStatus  domain.MerchandiseStatus  `gorm:"size:16;not null;default:'pending'" json:"merchandise_status"`   // myself only
	DistributionStatus domain.DistributionStatus `gorm:"size:16;not null;index;default:'pending'" json:"distribution_status"` // authorize only
	ExpectedProfit     decimal.Decimal           `gorm:"type:decimal(15,2);not null;default:0.00" json:"expected_profit"` // per share
	ActualProfit       *decimal.Decimal          `gorm:"type:decimal(15,2)" json:"actual_profit,omitempty"`       // per share
	ActualNetProfit    *decimal.Decimal          `gorm:"type:decimal(15,2)" json:"actual_net_profit,omitempty"`   // per share
	DistributedProfit  decimal.Decimal           `gorm:"type:decimal(15,2);not null;default:0.00" json:"distributed_profit"`
	ArrivedAt          *time.Time                `json:"arrived_at,omitempty"`
	DistributedAt      *time.Time                `json:"distributed_at,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`

	User        User        `gorm:"foreignKey:UserID" json:"-"`
	Opportunity Opportunity `gorm:"foreignKey:OpportunityID" json:"-"`
}

func (Investment) TableName() string {
	return "investments"
}
