package models

import (
	"time"

	"fursa/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Opportunity is the share pool the allocator draws from. The core only reads
// availability and mutates the share counters; listing CRUD lives elsewhere.
type Opportunity struct {
	ID              uint                     `gorm:"primaryKey" json:"id"`
	OwnerID         uint                     `gorm:"not null;index" json:"owner_id"`
	Title           string                   `gorm:"size:191;not null" json:"title"`
	TotalShares     int                      `gorm:"not null" json:"total_shares"`
	AvailableShares int                      `gorm:"not null" json:"available_shares"`
	ReservedShares  int                      `gorm:"not null;default:0" json:"reserved_shares"`
	MinShares       int                      `gorm:"not null;default:1" json:"min_shares"`
	MaxShares       int                      `gorm:"not null" json:"max_shares"` // per investor
	SharePrice      decimal.Decimal          `gorm:"type:decimal(15,2);not null" json:"share_price"`
	ServiceFee      decimal.Decimal          `gorm:"type:decimal(15,2);not null;default:0.00" json:"service_fee"` // per share, myself mode only
	ExpectedProfit  decimal.Decimal          `gorm:"type:decimal(15,2);not null;default:0.00" json:"expected_profit"` // per share
	ActualProfit    *decimal.Decimal         `gorm:"type:decimal(15,2)" json:"actual_profit,omitempty"`     // per share, set once
	ActualNetProfit *decimal.Decimal         `gorm:"type:decimal(15,2)" json:"actual_net_profit,omitempty"` // per share, set once
	Status          domain.OpportunityStatus `gorm:"size:16;not null;index;default:'open'" json:"status"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	DeletedAt       gorm.DeletedAt           `gorm:"index" json:"-"`

	Owner User `gorm:"foreignKey:OwnerID" json:"-"`
}

func (Opportunity) TableName() string {
	return "opportunities"
}
