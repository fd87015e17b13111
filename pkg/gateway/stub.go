package gateway

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// StubProvider assigns deterministic-ish gateway identifiers without calling
// any external service. Used in development and tests.
type StubProvider struct {
	seq atomic.Int64
}

func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

func (p *StubProvider) CreateIntention(ctx context.Context, req IntentionRequest) (*IntentionResponse, error) {
	n := p.seq.Add(1)
	now := time.Now()
	return &IntentionResponse{
		GatewayOrderID:     fmt.Sprintf("stub-order-%d-%d", now.UnixNano(), n),
		GatewayIntentionID: fmt.Sprintf("stub-intent-%d-%d", now.UnixNano(), n),
		ExpiresAt:          now.Add(req.ExpiresIn),
	}, nil
}
