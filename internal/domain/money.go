package domain

import "github.com/shopspring/decimal"

// The gateway speaks minor units (halalas); the ledger keeps decimals.

func AmountFromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func AmountToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}
