package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Match status values. A rejected or discarded suggestion is deleted, not
// kept as a row, so absence of a row means "none".
const (
	MatchSuggested = "suggested"
	MatchConfirmed = "confirmed"
)

// Match pairs exactly one BankTransaction with exactly one FinancialRecord.
// Confidence and Reasons are the scorer output that produced the suggestion;
// Manual marks a user-created link that bypassed the proposer.
type Match struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID      `gorm:"index" json:"transaction_id"`
	RecordID      uuid.UUID      `gorm:"index" json:"record_id"`
	Status        string         `gorm:"index" json:"status"`
	Confidence    float64        `json:"confidence"`
	Level         string         `json:"confidence_level"`
	Reasons       datatypes.JSON `json:"reasons,omitempty"`
	Manual        bool           `json:"manual"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
