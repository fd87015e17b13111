package models

import (
	"time"

	"fursa/internal/domain"

	"github.com/shopspring/decimal"
)

// WalletEntry is one signed ledger line. Entries are append-only; corrections
// are reversing entries, never edits. The two legs of a transfer share one
// Reference.
type WalletEntry struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	AccountID uint             `gorm:"not null;index" json:"account_id"`
	Amount    decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"amount"` // positive = credit, negative = debit
	Kind      domain.EntryKind `gorm:"size:20;not null;index" json:"kind"`
	Confirmed bool             `gorm:"not null;default:true" json:"confirmed"`
	Source    string           `gorm:"size:50" json:"source"`     // e.g. wallet_charge, profit_distribution
	Reference string           `gorm:"size:128;index" json:"reference"` // correlation: merchant ref, transfer id
	CreatedAt time.Time        `json:"created_at"`

	Account WalletAccount `gorm:"foreignKey:AccountID" json:"-"`
}

func (WalletEntry) TableName() string {
	return "wallet_entries"
}
