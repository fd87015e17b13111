package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"fursa/internal/service"
	"fursa/pkg/gateway"

	"github.com/gin-gonic/gin"
)

type GatewayWebhookHandler struct {
	adapter    *gateway.Adapter
	settlement *service.SettlementService
}

func NewGatewayWebhookHandler(adapter *gateway.Adapter, settlement *service.SettlementService) *GatewayWebhookHandler {
	return &GatewayWebhookHandler{adapter: adapter, settlement: settlement}
}

// Handle receives gateway notifications. A bad signature is rejected before
// anything else runs. Once verified, every delivery is acknowledged with 200
// so the gateway never enters a retry storm; the body says whether the
// notification matched an intention and was processed. A rolled-back
// settlement acknowledges with processed=false and leaves the intention
// settleable by a duplicate delivery or manual replay.
func (h *GatewayWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	sig := c.GetHeader("X-Gateway-Signature")
	if sig == "" {
		sig = c.Query("hmac")
	}
	res, err := h.adapter.VerifyAndNormalize(body, sig)
	if err != nil {
		if errors.Is(err, gateway.ErrSignatureInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		if errors.Is(err, gateway.ErrNotTransaction) {
			// token registrations and other noise
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	out, err := h.settlement.Settle(c.Request.Context(), res)
	if err != nil {
		log.Printf("[webhook] settlement did not commit for txn=%s: %v", res.GatewayTxnID, err)
		c.JSON(http.StatusOK, gin.H{"received": true, "processed": false})
		return
	}
	resp := gin.H{"received": true, "matched": out.Matched, "processed": out.Matched}
	if out.Duplicate {
		resp["duplicate"] = true
	}
	if out.Intention != nil {
		resp["intention_id"] = out.Intention.ID
		resp["status"] = out.Intention.Status
	}
	c.JSON(http.StatusOK, resp)
}
