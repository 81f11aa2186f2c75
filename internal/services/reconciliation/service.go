// Package reconciliation owns the match lifecycle: turning proposer
// suggestions into confirmed matches, rejecting them, manual links, and
// unlinking, while holding the at-most-one-confirmed-match invariant on both
// the transaction and the record side.
package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"invoice-reconciliation-backend/internal/apperrors"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/matching"
)

// TransactionRepository is the service's view of transaction persistence.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.BankTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error)
	List(ctx context.Context, status, cursor string, limit int) ([]models.BankTransaction, string, error)
	ListUnmatched(ctx context.Context) ([]models.BankTransaction, error)
	StatusTotals(ctx context.Context) ([]repository.StatusTotal, error)
}

// RecordRepository is the service's view of record persistence.
type RecordRepository interface {
	Create(ctx context.Context, rec *models.FinancialRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FinancialRecord, error)
	List(ctx context.Context) ([]models.FinancialRecord, error)
	ListCandidates(ctx context.Context) ([]models.FinancialRecord, error)
}

// MatchRepository persists the lifecycle state. Confirm and Unlink must be
// atomic: the backing store, not this service, is what guarantees the
// invariant under concurrent writers.
type MatchRepository interface {
	FindSuggestion(ctx context.Context, txID, recID uuid.UUID) (*models.Match, error)
	ListSuggestions(ctx context.Context, txID uuid.UUID) ([]models.Match, error)
	Confirm(ctx context.Context, p repository.ConfirmParams) (*models.Match, error)
	DeleteSuggestion(ctx context.Context, txID, recID uuid.UUID) error
	Unlink(ctx context.Context, matchID uuid.UUID) (*models.Match, error)
	ReplaceSuggestions(ctx context.Context, txID uuid.UUID, suggestions []models.Match) error
}

// AuditRepository records user decisions and serves them back per
// transaction.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.MatchAuditLog) error
	ListByTransaction(ctx context.Context, txID uuid.UUID) ([]models.MatchAuditLog, error)
}

type Service struct {
	transactions TransactionRepository
	records      RecordRepository
	matches      MatchRepository
	audit        AuditRepository
	engine       *matching.Engine
	logger       *slog.Logger
}

func NewService(
	transactions TransactionRepository,
	records RecordRepository,
	matches MatchRepository,
	audit AuditRepository,
	engine *matching.Engine,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		transactions: transactions,
		records:      records,
		matches:      matches,
		audit:        audit,
		engine:       engine,
		logger:       logger,
	}
}

// CreateTransaction validates and stores an imported bank movement.
func (s *Service) CreateTransaction(ctx context.Context, tx models.BankTransaction) (*models.BankTransaction, error) {
	if tx.Amount.IsZero() {
		return nil, fmt.Errorf("%w: transaction amount is required", apperrors.ErrValidation)
	}
	if tx.TransactionDate.IsZero() {
		return nil, fmt.Errorf("%w: transaction date is required", apperrors.ErrValidation)
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.MatchStatus = models.TxUnmatched
	tx.MatchedRecordID = nil
	tx.CreatedAt = time.Now()

	if err := s.transactions.Create(ctx, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// CreateRecord validates and stores an invoice, income, or expense entry.
func (s *Service) CreateRecord(ctx context.Context, rec models.FinancialRecord) (*models.FinancialRecord, error) {
	switch rec.Type {
	case models.RecordInvoice, models.RecordIncome, models.RecordExpense:
	default:
		return nil, fmt.Errorf("%w: unknown record type %q", apperrors.ErrValidation, rec.Type)
	}
	if !rec.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: record amount must be positive", apperrors.ErrValidation)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()

	if err := s.records.Create(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Service) ListTransactions(ctx context.Context, status, cursor string, limit int) ([]models.BankTransaction, string, error) {
	return s.transactions.List(ctx, status, cursor, limit)
}

func (s *Service) ListRecords(ctx context.Context) ([]models.FinancialRecord, error) {
	return s.records.List(ctx)
}

// Suggest proposes ranked candidates for one transaction without persisting
// anything. The pool holds only records without a confirmed match, so a
// matched record never resurfaces until unlinked. A matched transaction gets
// no suggestions.
func (s *Service) Suggest(ctx context.Context, txID uuid.UUID) ([]matching.Candidate, error) {
	tx, err := s.transactions.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.MatchStatus == models.TxMatched {
		return nil, nil
	}

	pool, err := s.records.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Propose(tx, pool)
}

// StoredSuggestions returns the suggestions persisted by the last
// ReconcileAll pass for one transaction, best first.
func (s *Service) StoredSuggestions(ctx context.Context, txID uuid.UUID) ([]models.Match, error) {
	if _, err := s.transactions.GetByID(ctx, txID); err != nil {
		return nil, err
	}
	return s.matches.ListSuggestions(ctx, txID)
}

// Approve promotes a suggestion to a confirmed match. The suggestion is the
// stored one when present, otherwise the pairing is re-scored on the fly.
// ErrConflict when either side already has a different confirmed match;
// ErrNotFound when the pairing cannot be scored as a plausible match at all
// (use ManualLink to force it).
func (s *Service) Approve(ctx context.Context, txID, recID uuid.UUID) (*models.Match, error) {
	tx, err := s.transactions.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.GetByID(ctx, recID)
	if err != nil {
		return nil, err
	}

	params := repository.ConfirmParams{TransactionID: txID, RecordID: recID}

	suggestion, err := s.matches.FindSuggestion(ctx, txID, recID)
	switch {
	case err == nil:
		params.Confidence = suggestion.Confidence
		params.Level = suggestion.Level
		params.Reasons = decodeReasons(suggestion.Reasons)
	case errors.Is(err, apperrors.ErrNotFound):
		cand, scoreErr := s.engine.Score(tx, rec)
		if scoreErr != nil {
			return nil, scoreErr
		}
		if cand == nil {
			return nil, fmt.Errorf("no suggestion for transaction %s and record %s: %w",
				txID, recID, apperrors.ErrNotFound)
		}
		params.Confidence = cand.Confidence
		params.Level = cand.Level
		params.Reasons = cand.Reasons
	default:
		return nil, err
	}

	m, err := s.matches.Confirm(ctx, params)
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, &models.MatchAuditLog{
		TransactionID: txID,
		Action:        models.AuditApproved,
		NewRecord:     &recID,
	})
	return m, nil
}

// Reject discards one suggestion, leaving every other suggestion for the
// transaction in place. Rejecting a pairing with no stored suggestion is a
// no-op.
func (s *Service) Reject(ctx context.Context, txID, recID uuid.UUID) error {
	err := s.matches.DeleteSuggestion(ctx, txID, recID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.appendAudit(ctx, &models.MatchAuditLog{
		TransactionID: txID,
		Action:        models.AuditRejected,
		NewRecord:     &recID,
	})
	return nil
}

// ManualLink confirms a match the user picked outside of any suggestion. The
// same at-most-one-confirmed invariant applies.
func (s *Service) ManualLink(ctx context.Context, txID, recID uuid.UUID) (*models.Match, error) {
	if _, err := s.transactions.GetByID(ctx, txID); err != nil {
		return nil, err
	}
	if _, err := s.records.GetByID(ctx, recID); err != nil {
		return nil, err
	}

	m, err := s.matches.Confirm(ctx, repository.ConfirmParams{
		TransactionID: txID,
		RecordID:      recID,
		Confidence:    1.0,
		Level:         matching.LevelHigh,
		Reasons:       []string{"manually linked"},
		Manual:        true,
	})
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, &models.MatchAuditLog{
		TransactionID: txID,
		Action:        models.AuditManualLinked,
		NewRecord:     &recID,
	})
	return m, nil
}

// Unlink reverts a confirmed match; both sides become matchable again.
func (s *Service) Unlink(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	m, err := s.matches.Unlink(ctx, matchID)
	if err != nil {
		return nil, err
	}

	prevRecord := m.RecordID
	s.appendAudit(ctx, &models.MatchAuditLog{
		TransactionID:  m.TransactionID,
		Action:         models.AuditUnlinked,
		PreviousRecord: &prevRecord,
	})
	return m, nil
}

// AuditTrail returns the recorded lifecycle decisions for one transaction,
// oldest first. ErrNotFound when the transaction does not exist.
func (s *Service) AuditTrail(ctx context.Context, txID uuid.UUID) ([]models.MatchAuditLog, error) {
	if _, err := s.transactions.GetByID(ctx, txID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.ListByTransaction(ctx, txID)
}

// RunSummary reports the outcome of a batch reconciliation pass.
type RunSummary struct {
	Processed          int `json:"processed"`
	WithSuggestions    int `json:"with_suggestions"`
	WithoutSuggestions int `json:"without_suggestions"`
	SuggestionsCreated int `json:"suggestions_created"`
}

// ReconcileAll proposes and persists suggestions for every transaction that
// is not yet matched. Earlier suggestions for each transaction are replaced,
// never duplicated, so the pass is idempotent over unchanged data.
func (s *Service) ReconcileAll(ctx context.Context) (*RunSummary, error) {
	txs, err := s.transactions.ListUnmatched(ctx)
	if err != nil {
		return nil, err
	}
	pool, err := s.records.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{}
	for i := range txs {
		tx := &txs[i]
		candidates, err := s.engine.Propose(tx, pool)
		if err != nil {
			// A malformed transaction skips that transaction only.
			s.logger.Warn("skipping transaction during reconcile",
				"transaction_id", tx.ID, "error", err)
			continue
		}

		suggestions := make([]models.Match, 0, len(candidates))
		for _, cand := range candidates {
			reasonsJSON, err := json.Marshal(cand.Reasons)
			if err != nil {
				return nil, err
			}
			suggestions = append(suggestions, models.Match{
				RecordID:   cand.Record.ID,
				Confidence: cand.Confidence,
				Level:      cand.Level,
				Reasons:    reasonsJSON,
			})
		}

		if err := s.matches.ReplaceSuggestions(ctx, tx.ID, suggestions); err != nil {
			return nil, err
		}

		summary.Processed++
		if len(suggestions) > 0 {
			summary.WithSuggestions++
			summary.SuggestionsCreated += len(suggestions)
		} else {
			summary.WithoutSuggestions++
		}
	}
	return summary, nil
}

// Stats returns the per-status transaction breakdown for the dashboard.
func (s *Service) Stats(ctx context.Context) ([]repository.StatusTotal, error) {
	return s.transactions.StatusTotals(ctx)
}

// appendAudit best-effort logs a lifecycle decision; audit failures never
// roll back the decision itself.
func (s *Service) appendAudit(ctx context.Context, entry *models.MatchAuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append match audit entry",
			"transaction_id", entry.TransactionID, "action", entry.Action, "error", err)
	}
}

func decodeReasons(raw []byte) []string {
	var reasons []string
	if err := json.Unmarshal(raw, &reasons); err != nil {
		return nil
	}
	return reasons
}
