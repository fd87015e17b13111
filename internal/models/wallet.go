package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletAccount holds the cached running balance for one profile. The balance
// is never written outside a ledger entry append; it always equals the sum of
// confirmed entry amounts.
type WalletAccount struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0.00" json:"balance"`
	Currency  string          `gorm:"size:3;default:'SAR'" json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WalletAccount) TableName() string {
	return "wallet_accounts"
}
