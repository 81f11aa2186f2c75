package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Match status values for a BankTransaction.
const (
	TxUnmatched = "unmatched"
	TxSuggested = "suggested"
	TxMatched   = "matched"
)

// BankTransaction is a single bank account movement imported from a
// statement. Amount is signed: positive for credits, negative for debits.
type BankTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionDate time.Time       `gorm:"column:transaction_date" json:"transaction_date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);index" json:"amount"`
	BankCode        string          `json:"bank_code,omitempty"`
	MatchStatus     string          `gorm:"index;default:unmatched" json:"match_status"`
	MatchedRecordID *uuid.UUID      `json:"matched_record_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsCredit reports whether the movement is incoming money.
func (t *BankTransaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// IsDebit reports whether the movement is outgoing money.
func (t *BankTransaction) IsDebit() bool {
	return t.Amount.IsNegative()
}
