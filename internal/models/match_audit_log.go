package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded for match lifecycle changes.
const (
	AuditApproved     = "approved"
	AuditRejected     = "rejected"
	AuditManualLinked = "manual_linked"
	AuditUnlinked     = "unlinked"
)

// MatchAuditLog records every user decision on a match so reconciliation
// history stays reviewable after suggestions are discarded.
type MatchAuditLog struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID  uuid.UUID  `gorm:"index" json:"transaction_id"`
	Action         string     `json:"action"`
	PreviousRecord *uuid.UUID `json:"previous_record,omitempty"`
	NewRecord      *uuid.UUID `json:"new_record,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
