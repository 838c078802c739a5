package handler

import (
	"net/http"

	"wallet_tracker/internal/model"
	"wallet_tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// WalletHandler serves wallets, card payments and billing views
type WalletHandler struct {
	service service.WalletService
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(s service.WalletService) *WalletHandler {
	return &WalletHandler{service: s}
}

// walletRequest resolves the caller and the :id wallet; it has answered the
// request itself when ok is false.
func walletRequest(c *gin.Context) (userID int, walletID int64, ok bool) {
	userID, _, ok = caller(c)
	if !ok {
		return 0, 0, false
	}
	walletID, ok = idParam(c, "wallet")
	return userID, walletID, ok
}

func (h *WalletHandler) CreateWallet(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	var req model.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	wallet, err := h.service.CreateWallet(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "Failed to create wallet")
		return
	}
	c.JSON(http.StatusCreated, wallet)
}

func (h *WalletHandler) ListWallets(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	wallets, err := h.service.ListWallets(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve wallets")
		return
	}
	if wallets == nil {
		wallets = []model.Wallet{}
	}
	c.JSON(http.StatusOK, wallets)
}

func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, walletID, ok := walletRequest(c)
	if !ok {
		return
	}
	wallet, err := h.service.GetWallet(c.Request.Context(), walletID, userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve wallet")
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (h *WalletHandler) UpdateWallet(c *gin.Context) {
	userID, walletID, ok := walletRequest(c)
	if !ok {
		return
	}
	var req model.UpdateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	wallet, err := h.service.UpdateWallet(c.Request.Context(), walletID, userID, req)
	if err != nil {
		respondError(c, err, "Failed to update wallet")
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (h *WalletHandler) DeleteWallet(c *gin.Context) {
	userID, walletID, ok := walletRequest(c)
	if !ok {
		return
	}
	if err := h.service.DeleteWallet(c.Request.Context(), walletID, userID); err != nil {
		respondError(c, err, "Failed to delete wallet")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wallet deleted successfully"})
}

func (h *WalletHandler) EditInitialDebt(c *gin.Context) {
	userID, walletID, ok := walletRequest(c)
	if !ok {
		return
	}
	var req model.EditInitialDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	wallet, err := h.service.EditInitialDebt(c.Request.Context(), walletID, userID, req.Balance)
	if err != nil {
		respondError(c, err, "Failed to update initial debt")
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (h *WalletHandler) ApplyPayment(c *gin.Context) {
	userID, walletID, ok := walletRequest(c)
	if !ok {
		return
	}
	var req model.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	payment, err := h.service.ApplyPayment(c.Request.Context(), walletID, userID, req)
	if err != nil {
		respondError(c, err, "Failed to apply payment")
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *WalletHandler) AdvanceCycle(c *gin.Context) {
	userID, walletID, ok := walletRequest(c)
	if !ok {
		return
	}
	wallet, advance, err := h.service.AdvanceCycle(c.Request.Context(), walletID, userID)
	if err != nil {
		respondError(c, err, "Failed to advance billing cycle")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"advanced": advance != nil,
		"advance":  advance,
		"wallet":   wallet,
	})
}

func (h *WalletHandler) GetSummary(c *gin.Context) {
	userID, walletID, ok := walletRequest(c)
	if !ok {
		return
	}
	summary, err := h.service.GetSummary(c.Request.Context(), walletID, userID)
	if err != nil {
		respondError(c, err, "Failed to build wallet summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *WalletHandler) GetBillingHistory(c *gin.Context) {
	userID, walletID, ok := walletRequest(c)
	if !ok {
		return
	}
	history, err := h.service.GetBillingHistory(c.Request.Context(), walletID, userID)
	if err != nil {
		respondError(c, err, "Failed to build billing history")
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *WalletHandler) GetCycleDates(c *gin.Context) {
	userID, walletID, ok := walletRequest(c)
	if !ok {
		return
	}
	dates, err := h.service.GetCycleDates(c.Request.Context(), walletID, userID)
	if err != nil {
		respondError(c, err, "Failed to resolve cycle dates")
		return
	}
	c.JSON(http.StatusOK, dates)
}

// RegisterWalletRoutes registers wallet routes
func (h *WalletHandler) RegisterWalletRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, userMW gin.HandlerFunc) {
	wallets := rg.Group("/wallets")
	wallets.Use(authMW, userMW)
	{
		wallets.POST("", h.CreateWallet)
		wallets.GET("", h.ListWallets)
		wallets.GET("/:id", h.GetWallet)
		wallets.PUT("/:id", h.UpdateWallet)
		wallets.DELETE("/:id", h.DeleteWallet)
		wallets.PUT("/:id/initial-debt", h.EditInitialDebt)
		wallets.POST("/:id/payments", h.ApplyPayment)
		wallets.POST("/:id/advance", h.AdvanceCycle)
		wallets.GET("/:id/summary", h.GetSummary)
		wallets.GET("/:id/billing-history", h.GetBillingHistory)
		wallets.GET("/:id/cycle-dates", h.GetCycleDates)
	}
}
