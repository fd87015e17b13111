package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// HTTPProvider registers payment intentions with the gateway's REST API.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type createIntentionBody struct {
	MerchantOrderID string `json:"merchant_order_id"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	ExpirationSecs  int64  `json:"expiration"`
	Description     string `json:"description,omitempty"`
}

type createIntentionReply struct {
	ID      string `json:"id"`
	OrderID int64  `json:"order_id"`
}

func (p *HTTPProvider) CreateIntention(ctx context.Context, req IntentionRequest) (*IntentionResponse, error) {
	body, _ := json.Marshal(createIntentionBody{
		MerchantOrderID: req.MerchantRef,
		AmountCents:     req.AmountMinor,
		Currency:        req.Currency,
		ExpirationSecs:  int64(req.ExpiresIn.Seconds()),
		Description:     req.Description,
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/intention/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Token "+p.apiKey)
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[gateway] create intention %s -> %d: %s", req.MerchantRef, resp.StatusCode, raw)
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	var reply createIntentionReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("gateway reply: %w", err)
	}
	out := &IntentionResponse{
		GatewayIntentionID: reply.ID,
		ExpiresAt:          time.Now().Add(req.ExpiresIn),
	}
	if reply.OrderID != 0 {
		out.GatewayOrderID = fmt.Sprintf("%d", reply.OrderID)
	}
	return out, nil
}
