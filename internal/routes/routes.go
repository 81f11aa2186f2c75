package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/handlers"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/matching"
	service "invoice-reconciliation-backend/internal/services/reconciliation"
)

// Register wires the repositories, the matching engine, and the
// reconciliation service into the router.
func Register(r *gin.Engine, db *gorm.DB, matchCfg matching.Config, logger *slog.Logger) {
	txRepo := repository.NewBankTransactionRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	engine := matching.NewEngine(matchCfg, logger)
	reconService := service.NewService(txRepo, recordRepo, matchRepo, auditRepo, engine, logger)
	reconHandler := handlers.NewReconciliationHandler(reconService)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	tx := api.Group("/transactions")
	tx.POST("", reconHandler.CreateTransaction)
	tx.GET("", reconHandler.ListTransactions)
	tx.GET("/:id/suggestions", reconHandler.GetSuggestions)
	tx.GET("/:id/audit", reconHandler.GetAuditTrail)

	records := api.Group("/records")
	records.POST("", reconHandler.CreateRecord)
	records.GET("", reconHandler.ListRecords)

	matches := api.Group("/matches")
	matches.POST("/approve", reconHandler.ApproveMatch)
	matches.POST("/reject", reconHandler.RejectMatch)
	matches.POST("/manual", reconHandler.ManualMatch)
	matches.DELETE("/:id", reconHandler.Unlink)

	recon := api.Group("/reconciliation")
	recon.POST("/run", reconHandler.Run)
	recon.GET("/stats", reconHandler.Stats)
}
