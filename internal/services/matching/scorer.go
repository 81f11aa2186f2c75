package matching

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invoice-reconciliation-backend/internal/apperrors"
	"invoice-reconciliation-backend/internal/models"
)

// Confidence levels.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Candidate is one scored transaction/record pairing, ready for ranking and
// display. AmountDiff and DayDiff are kept for tie-breaking and for the UI.
type Candidate struct {
	Record     *models.FinancialRecord
	Confidence float64
	Level      string
	Reasons    []string
	AmountDiff decimal.Decimal
	DayDiff    int // math.MaxInt32 when either date is missing
}

// Engine scores and proposes matches. It holds no mutable state; both Score
// and Propose are deterministic over their inputs.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine builds an engine. A nil logger falls back to slog.Default.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Score computes the confidence for a single transaction/record pair.
//
// It returns (nil, nil) when the pair should not be surfaced at all: the
// amount fails every closeness tier, or the combined confidence lands under
// the floor. Missing optional fields (document date, counterparty) exclude
// that signal from the weighted average rather than scoring zero. Only
// malformed required fields return an error, wrapping apperrors.ErrValidation.
func (e *Engine) Score(tx *models.BankTransaction, rec *models.FinancialRecord) (*Candidate, error) {
	if err := validatePair(tx, rec); err != nil {
		return nil, err
	}

	amountScore, amountReason := amountCloseness(e.cfg, tx.Amount, rec.Amount)
	if amountScore == 0 {
		// Amount is a near-mandatory filter: no tier, no candidate.
		return nil, nil
	}

	weightSum := e.cfg.AmountWeight
	scoreSum := e.cfg.AmountWeight * amountScore
	reasons := []string{amountReason}

	dayDiff := math.MaxInt32
	if rec.DocumentDate != nil && !rec.DocumentDate.IsZero() && !tx.TransactionDate.IsZero() {
		dateScore, dateReason := dateProximity(tx.TransactionDate, *rec.DocumentDate)
		weightSum += e.cfg.DateWeight
		scoreSum += e.cfg.DateWeight * dateScore
		if dateReason != "" {
			reasons = append(reasons, dateReason)
		}
		dayDiff = absDays(tx.TransactionDate, *rec.DocumentDate)
	}

	if textScore, textReason, ok := textSimilarity(tx.Description, rec.Counterparty); ok {
		weightSum += e.cfg.TextWeight
		scoreSum += e.cfg.TextWeight * textScore
		if textReason != "" {
			reasons = append(reasons, textReason)
		}
	}

	confidence := scoreSum / weightSum
	if confidence < e.cfg.MinConfidence {
		return nil, nil
	}

	return &Candidate{
		Record:     rec,
		Confidence: confidence,
		Level:      e.level(confidence),
		Reasons:    reasons,
		AmountDiff: tx.Amount.Abs().Sub(rec.Amount.Abs()).Abs(),
		DayDiff:    dayDiff,
	}, nil
}

func (e *Engine) level(confidence float64) string {
	switch {
	case confidence >= e.cfg.HighConfidence:
		return LevelHigh
	case confidence >= e.cfg.MediumConfidence:
		return LevelMedium
	default:
		return LevelLow
	}
}

func validatePair(tx *models.BankTransaction, rec *models.FinancialRecord) error {
	switch {
	case tx == nil || rec == nil:
		return fmt.Errorf("%w: nil transaction or record", apperrors.ErrValidation)
	case tx.ID == uuid.Nil:
		return fmt.Errorf("%w: transaction has no identifier", apperrors.ErrValidation)
	case rec.ID == uuid.Nil:
		return fmt.Errorf("%w: record has no identifier", apperrors.ErrValidation)
	case tx.Amount.IsZero():
		return fmt.Errorf("%w: transaction %s has no amount", apperrors.ErrValidation, tx.ID)
	case !rec.Amount.IsPositive():
		return fmt.Errorf("%w: record %s amount must be positive", apperrors.ErrValidation, rec.ID)
	}
	return nil
}

func absDays(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
