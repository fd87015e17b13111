package events

import (
	"context"
	"log"
	"time"
)

// Event names published by the settlement and distribution engines.
const (
	WalletCharged        = "wallet.charged"
	WalletWithdrawn      = "wallet.withdrawn"
	WalletTransferred    = "wallet.transferred"
	InvestmentPurchased  = "investment.purchased"
	InvestmentUpdated    = "investment.updated"
	MerchandiseArrived   = "merchandise.arrived"
	ProfitDistributed    = "profit.distributed"
	PaymentFailed        = "payment.failed"
	PaymentUnmatched     = "payment.unmatched"
)

type Event struct {
	Name       string                 `json:"name"`
	UserID     uint                   `json:"user_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Sink receives domain events after state has committed. Publication is
// best-effort: a sink must not block or fail settlement.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// Fanout forwards each event to every sink.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, ev Event) {
	for _, s := range f {
		s.Publish(ctx, ev)
	}
}

// LogSink writes events to the process log; the default when no broker is
// configured.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, ev Event) {
	log.Printf("[events] %s user=%d data=%v", ev.Name, ev.UserID, ev.Data)
}
