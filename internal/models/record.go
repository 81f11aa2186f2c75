package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record types.
const (
	RecordInvoice = "invoice"
	RecordIncome  = "income"
	RecordExpense = "expense"
)

// FinancialRecord is the document side of a reconciliation match: an
// invoice, income entry, or expense entry. Amount is unsigned; direction is
// implied by Type (invoice and income are receivable/credit side, expense
// is debit).
type FinancialRecord struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Type           string          `gorm:"index" json:"type"`
	Counterparty   string          `gorm:"index" json:"counterparty,omitempty"`
	DocumentDate   *time.Time      `json:"document_date,omitempty"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);index" json:"amount"`
	DocumentNumber string          `json:"document_number,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CreditSide reports whether the record represents incoming money.
func (r *FinancialRecord) CreditSide() bool {
	return r.Type == RecordInvoice || r.Type == RecordIncome
}
