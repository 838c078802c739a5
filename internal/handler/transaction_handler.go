package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"wallet_tracker/internal/model"
	"wallet_tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// TransactionHandler handles transaction related requests
type TransactionHandler struct {
	service service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(s service.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: s}
}

// transactionRequest resolves the caller and the :id transaction; it has
// answered the request itself when ok is false.
func transactionRequest(c *gin.Context) (userID int, role string, transactionID int64, ok bool) {
	if userID, role, ok = caller(c); !ok {
		return 0, "", 0, false
	}
	transactionID, ok = idParam(c, "transaction")
	return userID, role, transactionID, ok
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	var req model.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	transaction, err := h.service.CreateTransaction(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "Failed to create transaction")
		return
	}
	c.JSON(http.StatusCreated, transaction)
}

func (h *TransactionHandler) GetMyTransactions(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	filters := model.UserTransactionFilters{
		Type:     optionalQuery(c, "type"),
		Category: optionalQuery(c, "category"),
	}
	if walletParam := c.Query("wallet_id"); walletParam != "" {
		walletID, err := strconv.ParseInt(walletParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet_id format"})
			return
		}
		filters.WalletID = &walletID
	}
	// "date" selects a single day; start_date/end_date select a range.
	if c.Query("date") != "" {
		if filters.StartDate, ok = parseDay(c, "date", false); !ok {
			return
		}
		filters.EndDate, _ = parseDay(c, "date", true)
	} else {
		if filters.StartDate, ok = parseDay(c, "start_date", false); !ok {
			return
		}
		if filters.EndDate, ok = parseDay(c, "end_date", true); !ok {
			return
		}
	}

	transactions, err := h.service.GetUserTransactions(c.Request.Context(), userID, filters)
	if err != nil {
		respondError(c, err, "Failed to retrieve transactions")
		return
	}
	if transactions == nil {
		transactions = []model.Transaction{}
	}
	c.JSON(http.StatusOK, transactions)
}

func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, userRole, transactionID, ok := transactionRequest(c)
	if !ok {
		return
	}

	transaction, err := h.service.GetTransactionByID(c.Request.Context(), transactionID, userID, userRole)
	if err != nil {
		respondError(c, err, "Failed to retrieve transaction")
		return
	}
	c.JSON(http.StatusOK, transaction)
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, _, transactionID, ok := transactionRequest(c)
	if !ok {
		return
	}

	var req model.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	transaction, err := h.service.UpdateTransaction(c.Request.Context(), transactionID, userID, req)
	if err != nil {
		respondError(c, err, "Failed to update transaction")
		return
	}
	c.JSON(http.StatusOK, transaction)
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, userRole, transactionID, ok := transactionRequest(c)
	if !ok {
		return
	}

	if err := h.service.DeleteTransaction(c.Request.Context(), transactionID, userID, userRole); err != nil {
		respondError(c, err, "Failed to delete transaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// --- Receipt Handling ---

func (h *TransactionHandler) UploadReceipt(c *gin.Context) {
	userID, _, transactionID, ok := transactionRequest(c)
	if !ok {
		return
	}

	file, err := c.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Receipt file is required: " + err.Error()})
		return
	}

	updatedTransaction, err := h.service.UploadReceipt(c.Request.Context(), transactionID, userID, file)
	if err != nil {
		respondError(c, err, "Failed to upload receipt")
		return
	}
	c.JSON(http.StatusOK, updatedTransaction)
}

func (h *TransactionHandler) GetReceipt(c *gin.Context) {
	userID, userRole, transactionID, ok := transactionRequest(c)
	if !ok {
		return
	}

	filePath, fileName, err := h.service.GetReceiptPath(c.Request.Context(), transactionID, userID, userRole)
	if err != nil {
		respondError(c, err, "Failed to get receipt path")
		return
	}

	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receipt file not found on server"})
		return
	}

	c.FileAttachment(filePath, fileName)
}

// --- Admin Routes ---

// adminFilters reads the admin query parameters, answering 400 on bad input.
func adminFilters(c *gin.Context) (model.AdminTransactionFilters, bool) {
	filters := model.AdminTransactionFilters{
		Type:     optionalQuery(c, "type"),
		Category: optionalQuery(c, "category"),
	}
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		uid, err := strconv.Atoi(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id format"})
			return filters, false
		}
		filters.UserID = &uid
	}
	var ok bool
	if filters.StartDate, ok = parseDay(c, "start_date", false); !ok {
		return filters, false
	}
	if filters.EndDate, ok = parseDay(c, "end_date", true); !ok {
		return filters, false
	}
	return filters, true
}

func (h *TransactionHandler) GetAllTransactionsAdmin(c *gin.Context) {
	filters, ok := adminFilters(c)
	if !ok {
		return
	}
	transactions, err := h.service.GetAllTransactionsAdmin(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err, "Failed to retrieve transactions")
		return
	}
	if transactions == nil {
		transactions = []model.Transaction{}
	}
	c.JSON(http.StatusOK, transactions)
}

func (h *TransactionHandler) GetStatisticsAdmin(c *gin.Context) {
	filters, ok := adminFilters(c)
	if !ok {
		return
	}
	stats, err := h.service.GetStatisticsAdmin(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err, "Failed to retrieve statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *TransactionHandler) ExportTransactionsCSVAdmin(c *gin.Context) {
	filters, ok := adminFilters(c)
	if !ok {
		return
	}
	csvBuffer, err := h.service.ExportTransactionsCSVAdmin(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err, "Failed to export transactions to CSV")
		return
	}

	fileName := fmt.Sprintf("transactions_export_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, "text/csv", csvBuffer.Bytes())
}

// RegisterTransactionRoutes registers transaction and admin reporting routes.
// Ownership of a single transaction is checked in the service.
func (h *TransactionHandler) RegisterTransactionRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, userMW gin.HandlerFunc, adminMW gin.HandlerFunc) {
	txs := rg.Group("/transactions", authMW, userMW)
	txs.POST("", h.CreateTransaction)
	txs.GET("", h.GetMyTransactions)
	txs.GET("/:id", h.GetTransactionByID)
	txs.PUT("/:id", h.UpdateTransaction)
	txs.DELETE("/:id", h.DeleteTransaction)
	txs.POST("/:id/receipt", h.UploadReceipt)
	txs.GET("/:id/receipt", h.GetReceipt)

	admin := rg.Group("/admin", authMW, adminMW)
	admin.GET("/transactions", h.GetAllTransactionsAdmin)
	admin.GET("/stats", h.GetStatisticsAdmin)
	admin.GET("/transactions/export/csv", h.ExportTransactionsCSVAdmin)
}
