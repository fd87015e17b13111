package gateway

import (
	"errors"
	"testing"
)

const transactionPayload = `{
	"type": "transaction",
	"obj": {
		"id": 8842,
		"success": true,
		"amount_cents": 5000,
		"currency": "SAR",
		"order": {"id": 1201, "merchant_order_id": "ref-abc"},
		"source_data": {"type": "card", "sub_type": "MasterCard"}
	}
}`

func TestVerifyAndNormalize(t *testing.T) {
	a := NewAdapter("topsecret")
	body := []byte(transactionPayload)

	res, err := a.VerifyAndNormalize(body, a.Sign(body))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.GatewayTxnID != "8842" || res.GatewayOrderID != "1201" || res.MerchantRef != "ref-abc" {
		t.Fatalf("wrong identifiers: %+v", res)
	}
	if !res.Success || res.AmountMinor != 5000 || res.Currency != "SAR" {
		t.Fatalf("wrong transaction fields: %+v", res)
	}
	if res.PaymentMethod != "MasterCard" {
		t.Fatalf("payment method = %q", res.PaymentMethod)
	}
	if string(res.Raw) != transactionPayload {
		t.Fatal("raw payload must be retained verbatim")
	}
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	a := NewAdapter("topsecret")
	body := []byte(transactionPayload)

	if _, err := a.VerifyAndNormalize(body, "deadbeef"); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	// a signature for different content must not validate this body
	other := NewAdapter("topsecret").Sign([]byte(`{"type":"transaction"}`))
	if _, err := a.VerifyAndNormalize(body, other); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyRejectsWhenUnconfigured(t *testing.T) {
	a := NewAdapter("")
	body := []byte(transactionPayload)
	if _, err := a.VerifyAndNormalize(body, a.Sign(body)); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("empty secret must reject everything, got %v", err)
	}
}

func TestTokenNotificationIsNotATransaction(t *testing.T) {
	a := NewAdapter("topsecret")
	body := []byte(`{"type": "token", "obj": {"id": 55}}`)
	if _, err := a.VerifyAndNormalize(body, a.Sign(body)); !errors.Is(err, ErrNotTransaction) {
		t.Fatalf("expected ErrNotTransaction, got %v", err)
	}
}

func TestPaymentMethodFallsBackToSourceType(t *testing.T) {
	a := NewAdapter("topsecret")
	body := []byte(`{
		"type": "transaction",
		"obj": {"id": 1, "success": false, "amount_cents": 100,
			"order": {"id": 2, "merchant_order_id": "r"},
			"source_data": {"type": "wallet"}}
	}`)
	res, err := a.VerifyAndNormalize(body, a.Sign(body))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.PaymentMethod != "wallet" {
		t.Fatalf("payment method = %q, want wallet", res.PaymentMethod)
	}
	if res.Success {
		t.Fatal("success flag must pass through")
	}
}
