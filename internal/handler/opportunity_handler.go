package handler

import (
	"net/http"
	"strconv"

	"fursa/internal/domain"
	"fursa/internal/middleware"
	"fursa/internal/models"
	"fursa/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type OpportunityHandler struct {
	opportunities *repository.OpportunityRepository
}

func NewOpportunityHandler(opportunities *repository.OpportunityRepository) *OpportunityHandler {
	return &OpportunityHandler{opportunities: opportunities}
}

type CreateOpportunityRequest struct {
	Title          string `json:"title" binding:"required,min=3,max=191"`
	TotalShares    int    `json:"total_shares" binding:"required,gt=0"`
	MinShares      int    `json:"min_shares" binding:"omitempty,gt=0"`
	MaxShares      int    `json:"max_shares" binding:"required,gt=0"`
	SharePrice     string `json:"share_price" binding:"required"`
	ServiceFee     string `json:"service_fee"`
	ExpectedProfit string `json:"expected_profit"`
}

func (h *OpportunityHandler) Create(c *gin.Context) {
	var req CreateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, err := decimal.NewFromString(req.SharePrice)
	if err != nil || !price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share_price"})
		return
	}
	fee := decimal.Zero
	if req.ServiceFee != "" {
		if fee, err = decimal.NewFromString(req.ServiceFee); err != nil || fee.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service_fee"})
			return
		}
	}
	expected := decimal.Zero
	if req.ExpectedProfit != "" {
		if expected, err = decimal.NewFromString(req.ExpectedProfit); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expected_profit"})
			return
		}
	}
	minShares := req.MinShares
	if minShares == 0 {
		minShares = 1
	}
	if req.MaxShares < minShares || req.MaxShares > req.TotalShares {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_shares must be between min_shares and total_shares"})
		return
	}
	o := &models.Opportunity{
		OwnerID:         middleware.GetUserID(c),
		Title:           req.Title,
		TotalShares:     req.TotalShares,
		AvailableShares: req.TotalShares,
		MinShares:       minShares,
		MaxShares:       req.MaxShares,
		SharePrice:      price,
		ServiceFee:      fee,
		ExpectedProfit:  expected,
		Status:          domain.OpportunityOpen,
	}
	if err := h.opportunities.Create(c.Request.Context(), o); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"opportunity": o})
}

func (h *OpportunityHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	status := domain.OpportunityStatus(c.Query("status"))
	list, err := h.opportunities.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"opportunities": list})
}

func (h *OpportunityHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	o, err := h.opportunities.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"opportunity": o})
}
