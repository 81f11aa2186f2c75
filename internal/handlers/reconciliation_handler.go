package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invoice-reconciliation-backend/internal/apperrors"
	"invoice-reconciliation-backend/internal/middleware"
	"invoice-reconciliation-backend/internal/models"
	service "invoice-reconciliation-backend/internal/services/reconciliation"
)

type ReconciliationHandler struct {
	service *service.Service
}

func NewReconciliationHandler(s *service.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

type createTransactionRequest struct {
	TransactionDate string          `json:"transaction_date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	BankCode        string          `json:"bank_code"`
}

func (h *ReconciliationHandler) CreateTransaction(c *gin.Context) {
	var payload createTransactionRequest
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	date, err := parseDate(payload.TransactionDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction_date, expected YYYY-MM-DD"})
		return
	}

	tx, err := h.service.CreateTransaction(c.Request.Context(), models.BankTransaction{
		TransactionDate: date,
		Description:     payload.Description,
		Amount:          payload.Amount,
		BankCode:        payload.BankCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	status := c.Query("status")
	cursor := c.Query("cursor")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	items, nextCursor, err := h.service.ListTransactions(c.Request.Context(), status, cursor, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    nextCursor != "",
	})
}

type createRecordRequest struct {
	Type           string          `json:"type"`
	Counterparty   string          `json:"counterparty"`
	DocumentDate   string          `json:"document_date"`
	Amount         decimal.Decimal `json:"amount"`
	DocumentNumber string          `json:"document_number"`
}

func (h *ReconciliationHandler) CreateRecord(c *gin.Context) {
	var payload createRecordRequest
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	rec := models.FinancialRecord{
		Type:           payload.Type,
		Counterparty:   payload.Counterparty,
		Amount:         payload.Amount,
		DocumentNumber: payload.DocumentNumber,
	}
	if payload.DocumentDate != "" {
		date, err := parseDate(payload.DocumentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document_date, expected YYYY-MM-DD"})
			return
		}
		rec.DocumentDate = &date
	}

	created, err := h.service.CreateRecord(c.Request.Context(), rec)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": created})
}

func (h *ReconciliationHandler) ListRecords(c *gin.Context) {
	recs, err := h.service.ListRecords(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs})
}

type suggestionResponse struct {
	Record        *models.FinancialRecord `json:"record"`
	Confidence    float64                 `json:"confidence"`
	ConfidencePct int                     `json:"confidence_pct"`
	Level         string                  `json:"confidence_level"`
	Reasons       []string                `json:"reasons"`
}

// GetSuggestions computes ranked candidates for one transaction on the fly.
// With ?source=stored it returns the suggestions persisted by the last
// reconciliation run instead.
func (h *ReconciliationHandler) GetSuggestions(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	if c.Query("source") == "stored" {
		stored, err := h.service.StoredSuggestions(c.Request.Context(), txID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"suggestions": stored})
		return
	}

	candidates, err := h.service.Suggest(c.Request.Context(), txID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]suggestionResponse, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, suggestionResponse{
			Record:        cand.Record,
			Confidence:    cand.Confidence,
			ConfidencePct: int(math.Round(cand.Confidence * 100)),
			Level:         cand.Level,
			Reasons:       cand.Reasons,
		})
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": out})
}

// GetAuditTrail returns the recorded lifecycle decisions for one transaction.
func (h *ReconciliationHandler) GetAuditTrail(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	entries, err := h.service.AuditTrail(c.Request.Context(), txID)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []models.MatchAuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"audit": entries})
}

type matchRequest struct {
	TransactionID string `json:"transaction_id"`
	RecordID      string `json:"record_id"`
}

func (r matchRequest) parse() (uuid.UUID, uuid.UUID, error) {
	txID, err := uuid.Parse(r.TransactionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	recID, err := uuid.Parse(r.RecordID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return txID, recID, nil
}

func (h *ReconciliationHandler) ApproveMatch(c *gin.Context) {
	var payload matchRequest
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	txID, recID, err := payload.parse()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction or record ID"})
		return
	}

	m, err := h.service.Approve(c.Request.Context(), txID, recID)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.Logger(c).Info("match approved",
		"transaction_id", txID, "record_id", recID, "confidence", m.Confidence)
	c.JSON(http.StatusOK, gin.H{"message": "match approved", "match": m})
}

func (h *ReconciliationHandler) RejectMatch(c *gin.Context) {
	var payload matchRequest
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	txID, recID, err := payload.parse()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction or record ID"})
		return
	}

	if err := h.service.Reject(c.Request.Context(), txID, recID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "suggestion rejected"})
}

func (h *ReconciliationHandler) ManualMatch(c *gin.Context) {
	var payload matchRequest
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	txID, recID, err := payload.parse()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction or record ID"})
		return
	}

	m, err := h.service.ManualLink(c.Request.Context(), txID, recID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction manually matched", "match": m})
}

func (h *ReconciliationHandler) Unlink(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	m, err := h.service.Unlink(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match unlinked", "match": m})
}

func (h *ReconciliationHandler) Run(c *gin.Context) {
	summary, err := h.service.ReconcileAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reconciliation completed", "summary": summary})
}

func (h *ReconciliationHandler) Stats(c *gin.Context) {
	totals, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totals": totals})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		middleware.Logger(c).Error("request failed", "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
