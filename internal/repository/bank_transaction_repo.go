package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/apperrors"
	"invoice-reconciliation-backend/internal/models"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) Create(ctx context.Context, tx *models.BankTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *BankTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("transaction %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// List returns transactions ordered by ID with cursor pagination, optionally
// filtered by match status. The returned cursor is empty when there are no
// further pages.
func (r *BankTransactionRepository) List(ctx context.Context, status, cursor string, limit int) ([]models.BankTransaction, string, error) {
	var txs []models.BankTransaction
	query := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit + 1)

	if status != "" && status != "all" {
		query = query.Where("match_status = ?", status)
	}
	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	if err := query.Find(&txs).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(txs) > limit {
		txs = txs[:limit]
		nextCursor = txs[limit-1].ID.String()
	}
	return txs, nextCursor, nil
}

func (r *BankTransactionRepository) ListUnmatched(ctx context.Context) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := r.db.WithContext(ctx).
		Where("match_status IN ?", []string{models.TxUnmatched, models.TxSuggested}).
		Order("id ASC").
		Find(&txs).Error
	return txs, err
}

// StatusTotal is one row of the per-status reconciliation breakdown.
type StatusTotal struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Sum    decimal.Decimal `json:"sum"`
}

func (r *BankTransactionRepository) StatusTotals(ctx context.Context) ([]StatusTotal, error) {
	var rows []StatusTotal
	err := r.db.WithContext(ctx).
		Model(&models.BankTransaction{}).
		Select("match_status AS status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
		Group("match_status").
		Order("match_status").
		Scan(&rows).Error
	return rows, err
}
