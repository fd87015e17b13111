package handler

import (
	"net/http"
	"strconv"

	"fursa/internal/domain"
	"fursa/internal/middleware"
	"fursa/internal/repository"
	"fursa/internal/service"

	"github.com/gin-gonic/gin"
)

type InvestmentHandler struct {
	payments    *service.PaymentService
	investments *repository.InvestmentRepository
}

func NewInvestmentHandler(payments *service.PaymentService, investments *repository.InvestmentRepository) *InvestmentHandler {
	return &InvestmentHandler{payments: payments, investments: investments}
}

type PurchaseRequest struct {
	OpportunityID uint   `json:"opportunity_id" binding:"required"`
	Shares        int    `json:"shares" binding:"required,gt=0"`
	Mode          string `json:"mode" binding:"required,oneof=myself authorize"`
}

// InitiatePurchase prevalidates the purchase and opens a payment intention.
// Shares are allocated when the gateway confirms the payment, not here.
func (h *InvestmentHandler) InitiatePurchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.payments.InitiateInvestment(c.Request.Context(), middleware.GetUserID(c),
		req.OpportunityID, req.Shares, domain.InvestmentMode(req.Mode))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": p})
}

func (h *InvestmentHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.investments.ListByUser(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investments": list})
}

func (h *InvestmentHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	inv, err := h.investments.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	if inv.UserID != middleware.GetUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"investment": inv})
}

// GetPayment lets clients poll an intention they initiated.
func (h *InvestmentHandler) GetPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := h.payments.Get(c.Request.Context(), middleware.GetUserID(c), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}
