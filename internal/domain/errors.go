package domain

import "fmt"

// Stable machine-readable codes surfaced to callers.
const (
	CodeSignatureInvalid         = "SIGNATURE_INVALID"
	CodePaymentNotFound          = "PAYMENT_NOT_FOUND"
	CodeAlreadyExecuted          = "ALREADY_EXECUTED"
	CodeInsufficientBalance      = "INSUFFICIENT_BALANCE"
	CodeInsufficientShares       = "INSUFFICIENT_SHARES"
	CodeInvalidShares            = "INVALID_SHARES"
	CodeOpportunityNotAvailable  = "OPPORTUNITY_NOT_AVAILABLE"
	CodeOwnOpportunityInvestment = "OWN_OPPORTUNITY_INVESTMENT"
	CodeProfitAlreadyRecorded    = "PROFIT_ALREADY_RECORDED"
	CodeProfitNotRecorded        = "PROFIT_NOT_RECORDED"
	CodeWalletAccessFailed       = "WALLET_ACCESS_FAILED"
	CodePaymentProcessingFailed  = "PAYMENT_PROCESSING_FAILED"
	CodeProcessingFailed         = "PROCESSING_FAILED"
	CodeModeMismatch             = "INVESTMENT_MODE_MISMATCH"
)

// Error is a caller-facing failure: a stable code plus a human-readable
// message. Internal failures are wrapped generically before leaving the API.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) WithMeta(key string, value interface{}) *Error {
	if e.Meta == nil {
		e.Meta = map[string]interface{}{}
	}
	e.Meta[key] = value
	return e
}

func ErrOpportunityNotAvailable() *Error {
	return NewError(CodeOpportunityNotAvailable, "This opportunity is not open for investment")
}

func ErrOwnOpportunityInvestment() *Error {
	return NewError(CodeOwnOpportunityInvestment, "You cannot invest in your own opportunity")
}

func ErrInvalidShares(min, max int) *Error {
	return NewError(CodeInvalidShares, fmt.Sprintf("Requested shares must be between %d and %d", min, max)).
		WithMeta("min", min).WithMeta("max", max)
}

func ErrInsufficientShares(available int) *Error {
	return NewError(CodeInsufficientShares, fmt.Sprintf("Only %d shares are still available", available)).
		WithMeta("available", available)
}

func ErrInsufficientBalance() *Error {
	return NewError(CodeInsufficientBalance, "Wallet balance is insufficient")
}

func ErrProfitAlreadyRecorded() *Error {
	return NewError(CodeProfitAlreadyRecorded, "Actual profit has already been recorded")
}

func ErrProfitNotRecorded() *Error {
	return NewError(CodeProfitNotRecorded, "Actual profit has not been recorded yet")
}

func ErrProcessingFailed() *Error {
	return NewError(CodeProcessingFailed, "Processing failed, please try again")
}

func ErrModeMismatch() *Error {
	return NewError(CodeModeMismatch, "Additional shares must use the same investment mode")
}

func ErrPaymentNotFound() *Error {
	return NewError(CodePaymentNotFound, "No payment record matches this notification")
}
