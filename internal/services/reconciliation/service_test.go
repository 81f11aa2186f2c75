package reconciliation_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"invoice-reconciliation-backend/internal/apperrors"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/matching"
	"invoice-reconciliation-backend/internal/services/reconciliation"
)

// memStore is an in-memory stand-in for the database honoring the same
// repository contracts, including the conflict checks the gorm store performs
// transactionally.
type memStore struct {
	txs     map[uuid.UUID]*models.BankTransaction
	recs    map[uuid.UUID]*models.FinancialRecord
	matches map[uuid.UUID]*models.Match
	audits  []models.MatchAuditLog
}

func newMemStore() *memStore {
	return &memStore{
		txs:     make(map[uuid.UUID]*models.BankTransaction),
		recs:    make(map[uuid.UUID]*models.FinancialRecord),
		matches: make(map[uuid.UUID]*models.Match),
	}
}

func (s *memStore) sortedMatches() []*models.Match {
	out := make([]*models.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

type memTxRepo struct{ s *memStore }

func (r *memTxRepo) Create(_ context.Context, tx *models.BankTransaction) error {
	cp := *tx
	r.s.txs[tx.ID] = &cp
	return nil
}

func (r *memTxRepo) GetByID(_ context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	tx, ok := r.s.txs[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, apperrors.ErrNotFound)
	}
	cp := *tx
	return &cp, nil
}

func (r *memTxRepo) List(_ context.Context, status, cursor string, limit int) ([]models.BankTransaction, string, error) {
	var all []models.BankTransaction
	for _, tx := range r.s.txs {
		if status != "" && status != "all" && tx.MatchStatus != status {
			continue
		}
		if cursor != "" && tx.ID.String() <= cursor {
			continue
		}
		all = append(all, *tx)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })

	next := ""
	if len(all) > limit {
		all = all[:limit]
		next = all[limit-1].ID.String()
	}
	return all, next, nil
}

func (r *memTxRepo) ListUnmatched(_ context.Context) ([]models.BankTransaction, error) {
	var out []models.BankTransaction
	for _, tx := range r.s.txs {
		if tx.MatchStatus == models.TxUnmatched || tx.MatchStatus == models.TxSuggested {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memTxRepo) StatusTotals(_ context.Context) ([]repository.StatusTotal, error) {
	byStatus := make(map[string]*repository.StatusTotal)
	for _, tx := range r.s.txs {
		row, ok := byStatus[tx.MatchStatus]
		if !ok {
			row = &repository.StatusTotal{Status: tx.MatchStatus, Sum: decimal.Zero}
			byStatus[tx.MatchStatus] = row
		}
		row.Count++
		row.Sum = row.Sum.Add(tx.Amount)
	}
	var out []repository.StatusTotal
	for _, row := range byStatus {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

type memRecordRepo struct{ s *memStore }

func (r *memRecordRepo) Create(_ context.Context, rec *models.FinancialRecord) error {
	cp := *rec
	r.s.recs[rec.ID] = &cp
	return nil
}

func (r *memRecordRepo) GetByID(_ context.Context, id uuid.UUID) (*models.FinancialRecord, error) {
	rec, ok := r.s.recs[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, apperrors.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (r *memRecordRepo) List(_ context.Context) ([]models.FinancialRecord, error) {
	var out []models.FinancialRecord
	for _, rec := range r.s.recs {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memRecordRepo) ListCandidates(_ context.Context) ([]models.FinancialRecord, error) {
	confirmed := make(map[uuid.UUID]bool)
	for _, m := range r.s.matches {
		if m.Status == models.MatchConfirmed {
			confirmed[m.RecordID] = true
		}
	}
	var out []models.FinancialRecord
	for _, rec := range r.s.recs {
		if !confirmed[rec.ID] {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

type memMatchRepo struct{ s *memStore }

func (r *memMatchRepo) FindSuggestion(_ context.Context, txID, recID uuid.UUID) (*models.Match, error) {
	for _, m := range r.s.matches {
		if m.TransactionID == txID && m.RecordID == recID && m.Status == models.MatchSuggested {
			cp := *m
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("suggestion %s/%s: %w", txID, recID, apperrors.ErrNotFound)
}

func (r *memMatchRepo) ListSuggestions(_ context.Context, txID uuid.UUID) ([]models.Match, error) {
	var out []models.Match
	for _, m := range r.s.matches {
		if m.TransactionID == txID && m.Status == models.MatchSuggested {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *memMatchRepo) Confirm(_ context.Context, p repository.ConfirmParams) (*models.Match, error) {
	for _, m := range r.s.matches {
		if m.Status != models.MatchConfirmed {
			continue
		}
		if (m.TransactionID == p.TransactionID || m.RecordID == p.RecordID) &&
			!(m.TransactionID == p.TransactionID && m.RecordID == p.RecordID) {
			return nil, fmt.Errorf("transaction %s / record %s: %w",
				p.TransactionID, p.RecordID, apperrors.ErrConflict)
		}
	}

	reasonsJSON, err := json.Marshal(p.Reasons)
	if err != nil {
		return nil, err
	}

	var confirmed *models.Match
	for _, m := range r.s.matches {
		if m.TransactionID == p.TransactionID && m.RecordID == p.RecordID {
			confirmed = m
			break
		}
	}
	if confirmed == nil {
		confirmed = &models.Match{ID: uuid.New(), CreatedAt: time.Now()}
		r.s.matches[confirmed.ID] = confirmed
	}
	confirmed.TransactionID = p.TransactionID
	confirmed.RecordID = p.RecordID
	confirmed.Status = models.MatchConfirmed
	confirmed.Confidence = p.Confidence
	confirmed.Level = p.Level
	confirmed.Reasons = reasonsJSON
	confirmed.Manual = p.Manual
	confirmed.UpdatedAt = time.Now()

	for id, m := range r.s.matches {
		if m.TransactionID == p.TransactionID && m.Status == models.MatchSuggested {
			delete(r.s.matches, id)
		}
	}

	// Suggestions on other transactions pointing at the now-taken record are
	// stale; drained transactions drop back to unmatched.
	staleTxs := make(map[uuid.UUID]bool)
	for id, m := range r.s.matches {
		if m.RecordID == p.RecordID && m.TransactionID != p.TransactionID && m.Status == models.MatchSuggested {
			staleTxs[m.TransactionID] = true
			delete(r.s.matches, id)
		}
	}
	for txID := range staleTxs {
		remaining := 0
		for _, m := range r.s.matches {
			if m.TransactionID == txID && m.Status == models.MatchSuggested {
				remaining++
			}
		}
		if remaining == 0 {
			if tx, ok := r.s.txs[txID]; ok && tx.MatchStatus == models.TxSuggested {
				tx.MatchStatus = models.TxUnmatched
			}
		}
	}

	if tx, ok := r.s.txs[p.TransactionID]; ok {
		tx.MatchStatus = models.TxMatched
		recID := p.RecordID
		tx.MatchedRecordID = &recID
	}

	cp := *confirmed
	return &cp, nil
}

func (r *memMatchRepo) DeleteSuggestion(_ context.Context, txID, recID uuid.UUID) error {
	deleted := false
	for id, m := range r.s.matches {
		if m.TransactionID == txID && m.RecordID == recID && m.Status == models.MatchSuggested {
			delete(r.s.matches, id)
			deleted = true
		}
	}
	if !deleted {
		return fmt.Errorf("suggestion %s/%s: %w", txID, recID, apperrors.ErrNotFound)
	}

	remaining := 0
	for _, m := range r.s.matches {
		if m.TransactionID == txID && m.Status == models.MatchSuggested {
			remaining++
		}
	}
	if remaining == 0 {
		if tx, ok := r.s.txs[txID]; ok && tx.MatchStatus == models.TxSuggested {
			tx.MatchStatus = models.TxUnmatched
		}
	}
	return nil
}

func (r *memMatchRepo) Unlink(_ context.Context, matchID uuid.UUID) (*models.Match, error) {
	m, ok := r.s.matches[matchID]
	if !ok || m.Status != models.MatchConfirmed {
		return nil, fmt.Errorf("match %s: %w", matchID, apperrors.ErrNotFound)
	}
	delete(r.s.matches, matchID)

	if tx, ok := r.s.txs[m.TransactionID]; ok {
		tx.MatchStatus = models.TxUnmatched
		tx.MatchedRecordID = nil
	}
	cp := *m
	return &cp, nil
}

func (r *memMatchRepo) ReplaceSuggestions(_ context.Context, txID uuid.UUID, suggestions []models.Match) error {
	for id, m := range r.s.matches {
		if m.TransactionID == txID && m.Status == models.MatchSuggested {
			delete(r.s.matches, id)
		}
	}
	now := time.Now()
	for i := range suggestions {
		m := suggestions[i]
		m.ID = uuid.New()
		m.TransactionID = txID
		m.Status = models.MatchSuggested
		m.CreatedAt = now
		m.UpdatedAt = now
		r.s.matches[m.ID] = &m
	}

	if tx, ok := r.s.txs[txID]; ok && tx.MatchStatus != models.TxMatched {
		if len(suggestions) > 0 {
			tx.MatchStatus = models.TxSuggested
		} else {
			tx.MatchStatus = models.TxUnmatched
		}
	}
	return nil
}

type memAuditRepo struct{ s *memStore }

func (r *memAuditRepo) Append(_ context.Context, entry *models.MatchAuditLog) error {
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r *memAuditRepo) ListByTransaction(_ context.Context, txID uuid.UUID) ([]models.MatchAuditLog, error) {
	var out []models.MatchAuditLog
	for _, entry := range r.s.audits {
		if entry.TransactionID == txID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// --- Test Suite Setup ---

type ServiceTestSuite struct {
	suite.Suite
	store   *memStore
	service *reconciliation.Service
	ctx     context.Context
}

func (s *ServiceTestSuite) SetupTest() {
	s.store = newMemStore()
	s.ctx = context.Background()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := matching.NewEngine(matching.DefaultConfig(), logger)
	s.service = reconciliation.NewService(
		&memTxRepo{s.store},
		&memRecordRepo{s.store},
		&memMatchRepo{s.store},
		&memAuditRepo{s.store},
		engine,
		logger,
	)
}

func (s *ServiceTestSuite) addTx(desc string, amount float64, date time.Time) *models.BankTransaction {
	tx, err := s.service.CreateTransaction(s.ctx, models.BankTransaction{
		TransactionDate: date,
		Description:     desc,
		Amount:          decimal.NewFromFloat(amount),
	})
	s.Require().NoError(err)
	return tx
}

func (s *ServiceTestSuite) addRecord(recType, counterparty string, amount float64, date *time.Time) *models.FinancialRecord {
	rec, err := s.service.CreateRecord(s.ctx, models.FinancialRecord{
		Type:         recType,
		Counterparty: counterparty,
		Amount:       decimal.NewFromFloat(amount),
		DocumentDate: date,
	})
	s.Require().NoError(err)
	return rec
}

// assertInvariant checks that no transaction and no record carries more than
// one confirmed match.
func (s *ServiceTestSuite) assertInvariant() {
	byTx := make(map[uuid.UUID]int)
	byRec := make(map[uuid.UUID]int)
	for _, m := range s.store.sortedMatches() {
		if m.Status != models.MatchConfirmed {
			continue
		}
		byTx[m.TransactionID]++
		byRec[m.RecordID]++
	}
	for id, n := range byTx {
		s.LessOrEqualf(n, 1, "transaction %s has %d confirmed matches", id, n)
	}
	for id, n := range byRec {
		s.LessOrEqualf(n, 1, "record %s has %d confirmed matches", id, n)
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// --- Test Cases ---

func (s *ServiceTestSuite) TestApproveConflicts() {
	date := day(2024, 1, 15)
	t1 := s.addTx("AEGEAN AIRLINES SA", -245.50, date)
	t2 := s.addTx("AEGEAN AIRLINES REFUND", -245.50, date)
	r1 := s.addRecord(models.RecordExpense, "Aegean Airlines", 245.50, &date)
	r2 := s.addRecord(models.RecordExpense, "Olympic Air", 245.50, &date)

	m, err := s.service.Approve(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)
	s.Equal(models.MatchConfirmed, m.Status)
	s.assertInvariant()

	_, err = s.service.Approve(s.ctx, t1.ID, r2.ID)
	s.ErrorIs(err, apperrors.ErrConflict)

	_, err = s.service.Approve(s.ctx, t2.ID, r1.ID)
	s.ErrorIs(err, apperrors.ErrConflict)

	s.assertInvariant()
}

func (s *ServiceTestSuite) TestApproveDiscardsOtherSuggestionsAndRejectIsNoop() {
	date := day(2024, 1, 15)
	t1 := s.addTx("AEGEAN AIRLINES SA", -245.50, date)
	r1 := s.addRecord(models.RecordExpense, "Aegean Airlines", 245.50, &date)
	r2 := s.addRecord(models.RecordExpense, "Olympic Air", 245.50, &date)

	_, err := s.service.ReconcileAll(s.ctx)
	s.Require().NoError(err)

	suggestions, err := s.service.StoredSuggestions(s.ctx, t1.ID)
	s.Require().NoError(err)
	s.Require().Len(suggestions, 2)

	_, err = s.service.Approve(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)

	suggestions, err = s.service.StoredSuggestions(s.ctx, t1.ID)
	s.Require().NoError(err)
	s.Empty(suggestions, "approving one suggestion discards the rest")

	// Rejecting the stale pairing afterwards is a quiet no-op and leaves the
	// confirmed match alone.
	s.NoError(s.service.Reject(s.ctx, t1.ID, r2.ID))

	matched, _, err := s.service.ListTransactions(s.ctx, models.TxMatched, "", 10)
	s.Require().NoError(err)
	s.Require().Len(matched, 1)
	s.Equal(t1.ID, matched[0].ID)
	s.Require().NotNil(matched[0].MatchedRecordID)
	s.Equal(r1.ID, *matched[0].MatchedRecordID)
}

func (s *ServiceTestSuite) TestApproveClearsRecordFromOtherSuggestionLists() {
	date := day(2024, 1, 15)
	t1 := s.addTx("AEGEAN AIRLINES SA", -245.50, date)
	t2 := s.addTx("AEGEAN AIRLINES ATHENS", -245.50, date)
	r1 := s.addRecord(models.RecordExpense, "Aegean Airlines", 245.50, &date)
	r2 := s.addRecord(models.RecordExpense, "Olympic Air", 245.50, &date)

	_, err := s.service.ReconcileAll(s.ctx)
	s.Require().NoError(err)

	for _, tx := range []*models.BankTransaction{t1, t2} {
		suggestions, err := s.service.StoredSuggestions(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Require().Len(suggestions, 2)
	}

	_, err = s.service.Approve(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)

	// The confirmed record vanishes from every other suggestion list, while
	// unrelated suggestions survive.
	leftovers, err := s.service.StoredSuggestions(s.ctx, t2.ID)
	s.Require().NoError(err)
	s.Require().Len(leftovers, 1)
	s.Equal(r2.ID, leftovers[0].RecordID)

	suggested, _, err := s.service.ListTransactions(s.ctx, models.TxSuggested, "", 10)
	s.Require().NoError(err)
	s.Require().Len(suggested, 1)
	s.Equal(t2.ID, suggested[0].ID)
}

func (s *ServiceTestSuite) TestApproveDrainsOtherTransactionsToUnmatched() {
	date := day(2024, 1, 15)
	t1 := s.addTx("AEGEAN AIRLINES SA", -245.50, date)
	t2 := s.addTx("AEGEAN AIRLINES ATHENS", -245.50, date)
	r1 := s.addRecord(models.RecordExpense, "Aegean Airlines", 245.50, &date)

	_, err := s.service.ReconcileAll(s.ctx)
	s.Require().NoError(err)

	_, err = s.service.Approve(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)

	leftovers, err := s.service.StoredSuggestions(s.ctx, t2.ID)
	s.Require().NoError(err)
	s.Empty(leftovers)

	// The record was t2's only suggestion, so t2 drops back to unmatched.
	unmatched, _, err := s.service.ListTransactions(s.ctx, models.TxUnmatched, "", 10)
	s.Require().NoError(err)
	s.Require().Len(unmatched, 1)
	s.Equal(t2.ID, unmatched[0].ID)
}

func (s *ServiceTestSuite) TestApproveUnknownIDs() {
	date := day(2024, 1, 15)
	t1 := s.addTx("DESC", -100, date)

	_, err := s.service.Approve(s.ctx, uuid.New(), uuid.New())
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.service.Approve(s.ctx, t1.ID, uuid.New())
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ServiceTestSuite) TestApproveUnscorablePairNeedsManualLink() {
	date := day(2024, 1, 15)
	t1 := s.addTx("DESC", -50, date)
	r1 := s.addRecord(models.RecordExpense, "Vendor", 500, &date)

	_, err := s.service.Approve(s.ctx, t1.ID, r1.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)

	// The user can still force the pairing manually.
	m, err := s.service.ManualLink(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)
	s.True(m.Manual)
	s.Equal(1.0, m.Confidence)
	s.assertInvariant()
}

func (s *ServiceTestSuite) TestManualLinkRespectsInvariant() {
	date := day(2024, 1, 15)
	t1 := s.addTx("A", -100, date)
	t2 := s.addTx("B", -100, date)
	r1 := s.addRecord(models.RecordExpense, "Vendor", 100, &date)

	_, err := s.service.ManualLink(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)

	_, err = s.service.ManualLink(s.ctx, t2.ID, r1.ID)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.assertInvariant()
}

func (s *ServiceTestSuite) TestUnlinkRevertsBothSides() {
	date := day(2024, 1, 15)
	t1 := s.addTx("AEGEAN AIRLINES SA", -245.50, date)
	t2 := s.addTx("AEGEAN AIRLINES SA", -245.50, date)
	r1 := s.addRecord(models.RecordExpense, "Aegean Airlines", 245.50, &date)

	m, err := s.service.Approve(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)

	// While confirmed, the record is excluded from every candidate pool.
	candidates, err := s.service.Suggest(s.ctx, t2.ID)
	s.Require().NoError(err)
	s.Empty(candidates)

	unlinked, err := s.service.Unlink(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(r1.ID, unlinked.RecordID)

	listed, _, err := s.service.ListTransactions(s.ctx, "", "", 10)
	s.Require().NoError(err)
	for _, item := range listed {
		if item.ID == t1.ID {
			s.Equal(models.TxUnmatched, item.MatchStatus)
			s.Nil(item.MatchedRecordID)
		}
	}

	// After unlinking the record is matchable again.
	candidates, err = s.service.Suggest(s.ctx, t2.ID)
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal(r1.ID, candidates[0].Record.ID)

	_, err = s.service.Unlink(s.ctx, m.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ServiceTestSuite) TestUnlinkUnknownMatch() {
	_, err := s.service.Unlink(s.ctx, uuid.New())
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ServiceTestSuite) TestRejectKeepsRemainingSuggestions() {
	date := day(2024, 1, 15)
	t1 := s.addTx("AEGEAN AIRLINES SA", -245.50, date)
	r1 := s.addRecord(models.RecordExpense, "Aegean Airlines", 245.50, &date)
	r2 := s.addRecord(models.RecordExpense, "Olympic Air", 245.50, &date)

	_, err := s.service.ReconcileAll(s.ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Reject(s.ctx, t1.ID, r2.ID))

	suggestions, err := s.service.StoredSuggestions(s.ctx, t1.ID)
	s.Require().NoError(err)
	s.Require().Len(suggestions, 1)
	s.Equal(r1.ID, suggestions[0].RecordID)

	// Rejecting the last one drops the transaction back to unmatched.
	s.Require().NoError(s.service.Reject(s.ctx, t1.ID, r1.ID))
	listed, _, err := s.service.ListTransactions(s.ctx, models.TxUnmatched, "", 10)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(t1.ID, listed[0].ID)
}

func (s *ServiceTestSuite) TestReconcileAllPersistsAndIsIdempotent() {
	date := day(2024, 1, 15)
	t1 := s.addTx("AEGEAN AIRLINES SA", -245.50, date)
	t2 := s.addTx("UNMATCHABLE MOVEMENT", -77.77, date)
	s.addRecord(models.RecordExpense, "Aegean Airlines", 245.50, &date)
	s.addRecord(models.RecordExpense, "Olympic Air", 245.50, &date)

	summary, err := s.service.ReconcileAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, summary.Processed)
	s.Equal(1, summary.WithSuggestions)
	s.Equal(1, summary.WithoutSuggestions)
	s.Equal(2, summary.SuggestionsCreated)

	first, err := s.service.StoredSuggestions(s.ctx, t1.ID)
	s.Require().NoError(err)
	s.Require().Len(first, 2)

	// A second pass over unchanged data replaces, never duplicates.
	again, err := s.service.ReconcileAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(summary.Processed, again.Processed)
	s.Equal(summary.SuggestionsCreated, again.SuggestionsCreated)

	second, err := s.service.StoredSuggestions(s.ctx, t1.ID)
	s.Require().NoError(err)
	s.Require().Len(second, 2)

	none, err := s.service.StoredSuggestions(s.ctx, t2.ID)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *ServiceTestSuite) TestInvariantHoldsAcrossLifecycleSequence() {
	date := day(2024, 1, 15)
	t1 := s.addTx("A", -100, date)
	t2 := s.addTx("B", -100, date)
	r1 := s.addRecord(models.RecordExpense, "Vendor One", 100, &date)
	r2 := s.addRecord(models.RecordExpense, "Vendor Two", 100, &date)

	m1, err := s.service.Approve(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)
	s.assertInvariant()

	_, err = s.service.Approve(s.ctx, t2.ID, r2.ID)
	s.Require().NoError(err)
	s.assertInvariant()

	_, err = s.service.Unlink(s.ctx, m1.ID)
	s.Require().NoError(err)
	s.assertInvariant()

	// r1 is free again; t1 can be re-linked manually.
	_, err = s.service.ManualLink(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)
	s.assertInvariant()
}

func (s *ServiceTestSuite) TestAuditTrail() {
	date := day(2024, 1, 15)
	t1 := s.addTx("AEGEAN AIRLINES SA", -245.50, date)
	r1 := s.addRecord(models.RecordExpense, "Aegean Airlines", 245.50, &date)

	m, err := s.service.Approve(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)
	_, err = s.service.Unlink(s.ctx, m.ID)
	s.Require().NoError(err)

	s.Require().Len(s.store.audits, 2)
	s.Equal(models.AuditApproved, s.store.audits[0].Action)
	s.Equal(models.AuditUnlinked, s.store.audits[1].Action)

	trail, err := s.service.AuditTrail(s.ctx, t1.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(models.AuditApproved, trail[0].Action)
	s.Equal(models.AuditUnlinked, trail[1].Action)

	_, err = s.service.AuditTrail(s.ctx, uuid.New())
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ServiceTestSuite) TestCreateValidation() {
	date := day(2024, 1, 15)

	_, err := s.service.CreateTransaction(s.ctx, models.BankTransaction{
		TransactionDate: date,
		Amount:          decimal.Zero,
	})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.service.CreateRecord(s.ctx, models.FinancialRecord{
		Type:   "subscription",
		Amount: decimal.NewFromFloat(10),
	})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.service.CreateRecord(s.ctx, models.FinancialRecord{
		Type:   models.RecordExpense,
		Amount: decimal.Zero,
	})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *ServiceTestSuite) TestStats() {
	date := day(2024, 1, 15)
	t1 := s.addTx("AEGEAN AIRLINES SA", -245.50, date)
	s.addTx("OTHER MOVEMENT", -50, date)
	r1 := s.addRecord(models.RecordExpense, "Aegean Airlines", 245.50, &date)

	_, err := s.service.Approve(s.ctx, t1.ID, r1.ID)
	s.Require().NoError(err)

	totals, err := s.service.Stats(s.ctx)
	s.Require().NoError(err)

	byStatus := make(map[string]int64)
	for _, row := range totals {
		byStatus[row.Status] = row.Count
	}
	s.Equal(int64(1), byStatus[models.TxMatched])
	s.Equal(int64(1), byStatus[models.TxUnmatched])
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
