package handler

import (
	"net/http"

	"fursa/internal/domain"
	"fursa/internal/middleware"
	"fursa/internal/service"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	wallets  *service.WalletService
	payments *service.PaymentService
}

func NewWalletHandler(wallets *service.WalletService, payments *service.PaymentService) *WalletHandler {
	return &WalletHandler{wallets: wallets, payments: payments}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	a, err := h.wallets.Balance(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, domain.NewError(domain.CodeWalletAccessFailed, "Could not load wallet"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance_minor": domain.AmountToMinor(a.Balance),
		"balance":       a.Balance.StringFixed(2),
		"currency":      a.Currency,
	})
}

func (h *WalletHandler) ListEntries(c *gin.Context) {
	limit, offset := pagination(c)
	entries, err := h.wallets.Entries(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type TopUpRequest struct {
	AmountMinor int64 `json:"amount_minor" binding:"required,gt=0"`
}

// InitiateTopUp opens a wallet-charge intention; the wallet is credited only
// when the gateway confirms payment.
func (h *WalletHandler) InitiateTopUp(c *gin.Context) {
	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.payments.InitiateWalletCharge(c.Request.Context(), middleware.GetUserID(c), req.AmountMinor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": p})
}

type WithdrawRequest struct {
	AmountMinor int64 `json:"amount_minor" binding:"required,gt=0"`
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.wallets.Withdraw(c.Request.Context(), middleware.GetUserID(c), req.AmountMinor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawn": true})
}

type TransferRequest struct {
	ToUserID    uint  `json:"to_user_id" binding:"required"`
	AmountMinor int64 `json:"amount_minor" binding:"required,gt=0"`
}

func (h *WalletHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := middleware.GetUserID(c)
	if req.ToUserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot transfer to yourself"})
		return
	}
	if err := h.wallets.Transfer(c.Request.Context(), userID, req.ToUserID, req.AmountMinor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transferred": true})
}
