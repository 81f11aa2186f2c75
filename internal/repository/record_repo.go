package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/apperrors"
	"invoice-reconciliation-backend/internal/models"
)

type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Create(ctx context.Context, rec *models.FinancialRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *RecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FinancialRecord, error) {
	var rec models.FinancialRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("record %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RecordRepository) List(ctx context.Context) ([]models.FinancialRecord, error) {
	var recs []models.FinancialRecord
	err := r.db.WithContext(ctx).Order("id ASC").Find(&recs).Error
	return recs, err
}

// ListCandidates returns records that have no confirmed match. Once a record
// is confirmed against some transaction it stops appearing in anyone's
// candidate pool until unlinked.
func (r *RecordRepository) ListCandidates(ctx context.Context) ([]models.FinancialRecord, error) {
	var recs []models.FinancialRecord
	err := r.db.WithContext(ctx).
		Where("id NOT IN (?)", r.db.Model(&models.Match{}).
			Select("record_id").
			Where("status = ?", models.MatchConfirmed)).
		Order("id ASC").
		Find(&recs).Error
	return recs, err
}
