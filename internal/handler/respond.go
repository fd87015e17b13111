package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"fursa/internal/domain"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// statusFor maps stable error codes to HTTP statuses. Unknown codes fall
// back to 422 so new codes never leak a 500.
func statusFor(code string) int {
	switch code {
	case domain.CodeSignatureInvalid:
		return http.StatusUnauthorized
	case domain.CodePaymentNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyExecuted:
		return http.StatusConflict
	case domain.CodeInsufficientBalance,
		domain.CodeInsufficientShares,
		domain.CodeInvalidShares,
		domain.CodeModeMismatch:
		return http.StatusUnprocessableEntity
	case domain.CodeOpportunityNotAvailable,
		domain.CodeOwnOpportunityInvestment,
		domain.CodeProfitAlreadyRecorded,
		domain.CodeProfitNotRecorded:
		return http.StatusConflict
	case domain.CodePaymentProcessingFailed, domain.CodeWalletAccessFailed:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// respondError renders a failure. Coded domain errors pass through verbatim;
// anything else becomes a generic 500 so internals stay internal.
func respondError(c *gin.Context, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		c.JSON(statusFor(de.Code), gin.H{"error": de})
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Resource not found"}})
		return
	}
	log.Printf("[http] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": domain.CodeProcessingFailed, "message": "Something went wrong"}})
}

// pagination reads limit/offset query params with sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
