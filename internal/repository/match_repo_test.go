package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/apperrors"
)

func TestTranslateConfirmErr(t *testing.T) {
	p := ConfirmParams{TransactionID: uuid.New(), RecordID: uuid.New()}

	t.Run("duplicate key becomes conflict", func(t *testing.T) {
		err := translateConfirmErr(gorm.ErrDuplicatedKey, p)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Contains(t, err.Error(), p.TransactionID.String())
	})

	t.Run("wrapped duplicate key becomes conflict", func(t *testing.T) {
		wrapped := fmt.Errorf("insert match: %w", gorm.ErrDuplicatedKey)
		assert.ErrorIs(t, translateConfirmErr(wrapped, p), apperrors.ErrConflict)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := translateConfirmErr(cause, p)
		assert.Equal(t, cause, err)
		assert.NotErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, translateConfirmErr(nil, p))
	})
}
