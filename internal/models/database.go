package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalance represents current subledger balance state (hot data)
type AccountBalance struct {
	AccountId   string          `db:"account_id"`
	Balance     decimal.Decimal `db:"balance"`
	LastEntryId string          `db:"last_entry_id"`
	Version     int64           `db:"version"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// LedgerEntry represents immutable subledger history (cold data)
type LedgerEntry struct {
	Id            string          `db:"id"`
	AccountId     string          `db:"account_id"`
	EntryType     string          `db:"entry_type"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	Reference     string          `db:"reference"`
	CreatedAt     time.Time       `db:"created_at"`
}
