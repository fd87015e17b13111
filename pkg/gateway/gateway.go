package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrSignatureInvalid = errors.New("webhook signature mismatch")
	// ErrNotTransaction marks token-registration and other non-settlement
	// notifications. Callers acknowledge them without settling.
	ErrNotTransaction = errors.New("notification is not a transaction result")
)

// Result is the canonical transaction-result shape every vendor payload is
// normalized into before it reaches the settlement engine.
type Result struct {
	GatewayTxnID   string
	GatewayOrderID string
	MerchantRef    string
	Success        bool
	AmountMinor    int64
	Currency       string
	PaymentMethod  string
	Raw            []byte // verbatim payload, retained for storage
}

// webhookEnvelope mirrors the gateway's notification body: a type
// discriminator plus a nested transaction object.
type webhookEnvelope struct {
	Type string `json:"type"` // "transaction" | "token"
	Obj  struct {
		ID          int64 `json:"id"`
		Success     bool  `json:"success"`
		AmountCents int64 `json:"amount_cents"`
		Currency    string `json:"currency"`
		Order       struct {
			ID              int64  `json:"id"`
			MerchantOrderID string `json:"merchant_order_id"`
		} `json:"order"`
		SourceData struct {
			Type    string `json:"type"`
			SubType string `json:"sub_type"`
		} `json:"source_data"`
	} `json:"obj"`
}

// Adapter verifies webhook authenticity and normalizes payloads. It is a pure
// function of its inputs; no side effects beyond validation.
type Adapter struct {
	secret []byte
}

func NewAdapter(secret string) *Adapter {
	return &Adapter{secret: []byte(secret)}
}

// VerifyAndNormalize checks the keyed digest over the raw body against the
// supplied signature (constant-time) and maps the payload into a Result.
// On mismatch the caller must reject the request without side effects.
func (a *Adapter) VerifyAndNormalize(body []byte, signature string) (*Result, error) {
	if !a.verify(body, signature) {
		return nil, ErrSignatureInvalid
	}
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("gateway payload: %w", err)
	}
	if env.Type != "transaction" {
		return nil, ErrNotTransaction
	}
	res := &Result{
		Success:     env.Obj.Success,
		AmountMinor: env.Obj.AmountCents,
		Currency:    env.Obj.Currency,
		Raw:         body,
	}
	if env.Obj.ID != 0 {
		res.GatewayTxnID = fmt.Sprintf("%d", env.Obj.ID)
	}
	if env.Obj.Order.ID != 0 {
		res.GatewayOrderID = fmt.Sprintf("%d", env.Obj.Order.ID)
	}
	res.MerchantRef = env.Obj.Order.MerchantOrderID
	res.PaymentMethod = env.Obj.SourceData.SubType
	if res.PaymentMethod == "" {
		res.PaymentMethod = env.Obj.SourceData.Type
	}
	return res, nil
}

func (a *Adapter) verify(body []byte, signature string) bool {
	if len(a.secret) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, a.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Sign computes the signature the gateway would send for a payload. Used by
// tests and local tooling.
func (a *Adapter) Sign(body []byte) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// IntentionRequest registers a payment attempt with the gateway.
type IntentionRequest struct {
	MerchantRef string
	AmountMinor int64
	Currency    string
	ExpiresIn   time.Duration
	Description string
}

// IntentionResponse carries the gateway correlation identifiers assigned at
// registration.
type IntentionResponse struct {
	GatewayOrderID     string
	GatewayIntentionID string
	ExpiresAt          time.Time
}

// Provider is the outbound half of the gateway integration. Webhooks flow
// back in through the Adapter.
type Provider interface {
	CreateIntention(ctx context.Context, req IntentionRequest) (*IntentionResponse, error)
}
