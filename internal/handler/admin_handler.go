package handler

import (
	"net/http"
	"strconv"

	"fursa/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AdminHandler struct {
	distribution *service.DistributionService
	sweep        *service.SweepService
}

func NewAdminHandler(distribution *service.DistributionService, sweep *service.SweepService) *AdminHandler {
	return &AdminHandler{distribution: distribution, sweep: sweep}
}

// MarkMerchandiseArrived records merchandise delivery for a myself
// investment. Calling it twice is harmless.
func (h *AdminHandler) MarkMerchandiseArrived(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	inv, err := h.distribution.MarkMerchandiseArrived(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investment": inv})
}

type RecordProfitRequest struct {
	ProfitPerShare    string `json:"profit_per_share" binding:"required"`
	NetProfitPerShare string `json:"net_profit_per_share" binding:"required"`
}

// RecordActualProfit stores realized per-share profit on an opportunity,
// once, and cascades it to the authorize investments.
func (h *AdminHandler) RecordActualProfit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req RecordProfitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	perShare, err := decimal.NewFromString(req.ProfitPerShare)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profit_per_share"})
		return
	}
	netPerShare, err := decimal.NewFromString(req.NetProfitPerShare)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid net_profit_per_share"})
		return
	}
	cascaded, err := h.distribution.RecordActualProfit(c.Request.Context(), uint(id), perShare, netPerShare)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": true, "investments_updated": cascaded})
}

// Distribute pays out all pending authorize investments of an opportunity.
// Safe to call again after a partial failure.
func (h *AdminHandler) Distribute(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	report, err := h.distribution.Distribute(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// ExpirePayments is the cron entry point for the intention sweep.
func (h *AdminHandler) ExpirePayments(c *gin.Context) {
	n, err := h.sweep.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}
