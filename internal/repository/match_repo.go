package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"invoice-reconciliation-backend/internal/apperrors"
	"invoice-reconciliation-backend/internal/models"
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// ConfirmParams carries everything needed to persist a confirmed match.
type ConfirmParams struct {
	TransactionID uuid.UUID
	RecordID      uuid.UUID
	Confidence    float64
	Level         string
	Reasons       []string
	Manual        bool
}

// FindSuggestion returns the suggested match for the pairing, or ErrNotFound.
func (r *MatchRepository) FindSuggestion(ctx context.Context, txID, recID uuid.UUID) (*models.Match, error) {
	var m models.Match
	err := r.db.WithContext(ctx).
		First(&m, "transaction_id = ? AND record_id = ? AND status = ?",
			txID, recID, models.MatchSuggested).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("suggestion %s/%s: %w", txID, recID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MatchRepository) ListSuggestions(ctx context.Context, txID uuid.UUID) ([]models.Match, error) {
	var ms []models.Match
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND status = ?", txID, models.MatchSuggested).
		Order("confidence DESC, id ASC").
		Find(&ms).Error
	return ms, err
}

// Confirm atomically promotes the pairing to a confirmed match.
//
// Inside one database transaction it verifies that neither side already has a
// confirmed match (ErrConflict otherwise), upserts the pairing row, discards
// every other suggestion for the transaction, and marks the transaction
// matched. The partial unique indexes created at startup back this check
// against concurrent writers.
func (r *MatchRepository) Confirm(ctx context.Context, p ConfirmParams) (*models.Match, error) {
	var confirmed *models.Match

	err := r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var existing []models.Match
		err := dbtx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ? AND (transaction_id = ? OR record_id = ?)",
				models.MatchConfirmed, p.TransactionID, p.RecordID).
			Find(&existing).Error
		if err != nil {
			return err
		}
		for i := range existing {
			if existing[i].TransactionID != p.TransactionID || existing[i].RecordID != p.RecordID {
				return fmt.Errorf("transaction %s / record %s: %w",
					p.TransactionID, p.RecordID, apperrors.ErrConflict)
			}
		}

		reasonsJSON, err := json.Marshal(p.Reasons)
		if err != nil {
			return err
		}

		m := models.Match{
			TransactionID: p.TransactionID,
			RecordID:      p.RecordID,
			Status:        models.MatchConfirmed,
			Confidence:    p.Confidence,
			Level:         p.Level,
			Reasons:       reasonsJSON,
			Manual:        p.Manual,
			UpdatedAt:     time.Now(),
		}

		// Reuse the suggestion row for this pairing when one exists.
		var prior models.Match
		err = dbtx.First(&prior, "transaction_id = ? AND record_id = ?",
			p.TransactionID, p.RecordID).Error
		switch {
		case err == nil:
			m.ID = prior.ID
			m.CreatedAt = prior.CreatedAt
			if err := dbtx.Save(&m).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			m.ID = uuid.New()
			m.CreatedAt = m.UpdatedAt
			if err := dbtx.Create(&m).Error; err != nil {
				return err
			}
		default:
			return err
		}

		// Approving one suggestion discards the rest for this transaction.
		err = dbtx.Where("transaction_id = ? AND status = ?",
			p.TransactionID, models.MatchSuggested).
			Delete(&models.Match{}).Error
		if err != nil {
			return err
		}

		// The record is now taken, so suggestions pointing at it from other
		// transactions are stale. Those transactions drop back to unmatched
		// when it was their last suggestion.
		var stale []models.Match
		err = dbtx.Where("record_id = ? AND transaction_id <> ? AND status = ?",
			p.RecordID, p.TransactionID, models.MatchSuggested).
			Find(&stale).Error
		if err != nil {
			return err
		}
		for i := range stale {
			if err := dbtx.Delete(&models.Match{}, "id = ?", stale[i].ID).Error; err != nil {
				return err
			}
			var remaining int64
			err = dbtx.Model(&models.Match{}).
				Where("transaction_id = ? AND status = ?",
					stale[i].TransactionID, models.MatchSuggested).
				Count(&remaining).Error
			if err != nil {
				return err
			}
			if remaining == 0 {
				err = dbtx.Model(&models.BankTransaction{}).
					Where("id = ? AND match_status = ?",
						stale[i].TransactionID, models.TxSuggested).
					Update("match_status", models.TxUnmatched).Error
				if err != nil {
					return err
				}
			}
		}

		err = dbtx.Model(&models.BankTransaction{}).
			Where("id = ?", p.TransactionID).
			Updates(map[string]interface{}{
				"match_status":      models.TxMatched,
				"matched_record_id": p.RecordID,
			}).Error
		if err != nil {
			return err
		}

		confirmed = &m
		return nil
	})
	if err != nil {
		return nil, translateConfirmErr(err, p)
	}
	return confirmed, nil
}

// translateConfirmErr maps duplicate-key violations from the partial unique
// indexes onto ErrConflict. A concurrent writer that confirms either side of
// the pairing first trips the index rather than the in-transaction check.
func translateConfirmErr(err error, p ConfirmParams) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("transaction %s / record %s: %w",
			p.TransactionID, p.RecordID, apperrors.ErrConflict)
	}
	return err
}

// DeleteSuggestion removes a single suggested pairing. ErrNotFound when no
// such suggestion exists. When it was the transaction's last suggestion the
// transaction drops back to unmatched.
func (r *MatchRepository) DeleteSuggestion(ctx context.Context, txID, recID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		res := dbtx.Where("transaction_id = ? AND record_id = ? AND status = ?",
			txID, recID, models.MatchSuggested).
			Delete(&models.Match{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("suggestion %s/%s: %w", txID, recID, apperrors.ErrNotFound)
		}

		var remaining int64
		err := dbtx.Model(&models.Match{}).
			Where("transaction_id = ? AND status = ?", txID, models.MatchSuggested).
			Count(&remaining).Error
		if err != nil {
			return err
		}
		if remaining == 0 {
			return dbtx.Model(&models.BankTransaction{}).
				Where("id = ? AND match_status = ?", txID, models.TxSuggested).
				Update("match_status", models.TxUnmatched).Error
		}
		return nil
	})
}

// Unlink deletes a confirmed match and reverts its transaction to unmatched.
func (r *MatchRepository) Unlink(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	var unlinked *models.Match

	err := r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var m models.Match
		err := dbtx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&m, "id = ? AND status = ?", matchID, models.MatchConfirmed).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("match %s: %w", matchID, apperrors.ErrNotFound)
		}
		if err != nil {
			return err
		}

		if err := dbtx.Delete(&m).Error; err != nil {
			return err
		}

		err = dbtx.Model(&models.BankTransaction{}).
			Where("id = ?", m.TransactionID).
			Updates(map[string]interface{}{
				"match_status":      models.TxUnmatched,
				"matched_record_id": nil,
			}).Error
		if err != nil {
			return err
		}

		unlinked = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unlinked, nil
}

// ReplaceSuggestions swaps the transaction's stored suggestions for the given
// set and flips its status between suggested and unmatched accordingly. A
// matched transaction is left untouched.
func (r *MatchRepository) ReplaceSuggestions(ctx context.Context, txID uuid.UUID, suggestions []models.Match) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		err := dbtx.Where("transaction_id = ? AND status = ?", txID, models.MatchSuggested).
			Delete(&models.Match{}).Error
		if err != nil {
			return err
		}

		now := time.Now()
		for i := range suggestions {
			suggestions[i].ID = uuid.New()
			suggestions[i].TransactionID = txID
			suggestions[i].Status = models.MatchSuggested
			suggestions[i].CreatedAt = now
			suggestions[i].UpdatedAt = now
		}
		if len(suggestions) > 0 {
			if err := dbtx.Create(&suggestions).Error; err != nil {
				return err
			}
		}

		status := models.TxUnmatched
		if len(suggestions) > 0 {
			status = models.TxSuggested
		}
		return dbtx.Model(&models.BankTransaction{}).
			Where("id = ? AND match_status <> ?", txID, models.TxMatched).
			Update("match_status", status).Error
	})
}
