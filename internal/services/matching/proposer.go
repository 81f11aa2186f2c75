package matching

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"invoice-reconciliation-backend/internal/apperrors"
	"invoice-reconciliation-backend/internal/models"
)

// Propose scores every candidate record against the transaction and returns
// the top suggestions, highest confidence first. Ties break on closer date,
// then closer amount, then record ID so identical inputs always produce the
// identical ordered list.
//
// Records whose type contradicts the transaction direction are filtered out
// before scoring: a credit can only pay an invoice or income entry, a debit
// only an expense. Per-pair scoring errors skip that record only.
func (e *Engine) Propose(tx *models.BankTransaction, pool []models.FinancialRecord) ([]Candidate, error) {
	switch {
	case tx == nil:
		return nil, fmt.Errorf("%w: nil transaction", apperrors.ErrValidation)
	case tx.ID == uuid.Nil:
		return nil, fmt.Errorf("%w: transaction has no identifier", apperrors.ErrValidation)
	case tx.Amount.IsZero():
		return nil, fmt.Errorf("%w: transaction %s has no amount", apperrors.ErrValidation, tx.ID)
	}

	candidates := make([]Candidate, 0, len(pool))
	for i := range pool {
		rec := &pool[i]
		if !typeCompatible(tx, rec) {
			continue
		}
		cand, err := e.Score(tx, rec)
		if err != nil {
			e.logger.Warn("skipping candidate",
				"transaction_id", tx.ID,
				"record_id", rec.ID,
				"error", err)
			continue
		}
		if cand == nil {
			continue
		}
		candidates = append(candidates, *cand)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.DayDiff != b.DayDiff {
			return a.DayDiff < b.DayDiff
		}
		if !a.AmountDiff.Equal(b.AmountDiff) {
			return a.AmountDiff.LessThan(b.AmountDiff)
		}
		return a.Record.ID.String() < b.Record.ID.String()
	})

	if e.cfg.MaxSuggestions > 0 && len(candidates) > e.cfg.MaxSuggestions {
		candidates = candidates[:e.cfg.MaxSuggestions]
	}
	return candidates, nil
}

// typeCompatible is the hard direction filter: when the transaction carries a
// sign, the record type must sit on the same side of the ledger.
func typeCompatible(tx *models.BankTransaction, rec *models.FinancialRecord) bool {
	switch {
	case tx.IsCredit():
		return rec.CreditSide()
	case tx.IsDebit():
		return !rec.CreditSide()
	default:
		return true
	}
}
