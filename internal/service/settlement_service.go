package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fursa/internal/domain"
	"fursa/internal/events"
	"fursa/internal/lock"
	"fursa/internal/models"
	"fursa/internal/repository"
	"fursa/pkg/gateway"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IntentionStore is the persistence surface the settlement engine depends on.
type IntentionStore interface {
	FindByGatewayOrderID(ctx context.Context, orderID string) (*models.PaymentIntention, error)
	FindByMerchantRef(ctx context.Context, ref string) (*models.PaymentIntention, error)
	FindByGatewayTxnID(ctx context.Context, txnID string) (*models.PaymentIntention, error)
	Execute(ctx context.Context, id uint, fin repository.Finalization, sideEffect func(tx *gorm.DB) error) (*models.PaymentIntention, error)
}

// Ledger is the wallet-credit surface used inside the settlement transaction.
type Ledger interface {
	DepositTx(tx *gorm.DB, userID uint, amount decimal.Decimal, meta repository.EntryMeta) error
}

// PurchaseApplier allocates investment shares inside the settlement
// transaction.
type PurchaseApplier interface {
	ApplyPurchaseTx(tx *gorm.DB, userID uint, ex models.InvestmentExtras) (*models.Investment, error)
}

// SettlementResult reports what a webhook delivery amounted to. Unmatched and
// duplicate deliveries are normal outcomes, not errors.
type SettlementResult struct {
	Intention *models.PaymentIntention
	Matched   bool
	Duplicate bool
}

// SettlementService turns verified gateway results into exactly-once state
// changes. The Redis lease only sheds near-simultaneous duplicates cheaply;
// the is_executed re-check under the row lock inside Execute is what
// guarantees a side effect happens once.
type SettlementService struct {
	intentions IntentionStore
	ledger     Ledger
	allocator  PurchaseApplier
	locker     lock.Locker
	sink       events.Sink
	leaseTTL   time.Duration
}

func NewSettlementService(intentions IntentionStore, ledger Ledger, allocator PurchaseApplier, locker lock.Locker, sink events.Sink, leaseTTL time.Duration) *SettlementService {
	if leaseTTL <= 0 {
		// long enough for one settlement attempt, short enough that a
		// crashed worker does not hold up retries
		leaseTTL = 5 * time.Second
	}
	return &SettlementService{
		intentions: intentions,
		ledger:     ledger,
		allocator:  allocator,
		locker:     locker,
		sink:       sink,
		leaseTTL:   leaseTTL,
	}
}

// resolve matches a gateway result to its intention, trying the strongest
// identifier first: the gateway order id, then our merchant reference, then
// the gateway transaction id.
func (s *SettlementService) resolve(ctx context.Context, res *gateway.Result) (*models.PaymentIntention, error) {
	if p, err := s.intentions.FindByGatewayOrderID(ctx, res.GatewayOrderID); err != nil || p != nil {
		return p, err
	}
	if p, err := s.intentions.FindByMerchantRef(ctx, res.MerchantRef); err != nil || p != nil {
		return p, err
	}
	return s.intentions.FindByGatewayTxnID(ctx, res.GatewayTxnID)
}

// Settle processes one verified transaction result. Callers acknowledge the
// delivery when err is nil; a non-nil err means the state change did not
// commit and the gateway should redeliver.
func (s *SettlementService) Settle(ctx context.Context, res *gateway.Result) (*SettlementResult, error) {
	p, err := s.resolve(ctx, res)
	if err != nil {
		return nil, err
	}
	if p == nil {
		log.Printf("[settlement] unmatched notification txn=%s order=%s ref=%s", res.GatewayTxnID, res.GatewayOrderID, res.MerchantRef)
		s.publish(ctx, events.Event{
			Name: events.PaymentUnmatched,
			Data: map[string]interface{}{"gateway_txn_id": res.GatewayTxnID, "gateway_order_id": res.GatewayOrderID},
		})
		return &SettlementResult{}, nil
	}
	if p.IsExecuted || p.Status.Terminal() {
		return &SettlementResult{Intention: p, Matched: true, Duplicate: true}, nil
	}

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, fmt.Sprintf("settle:intention:%d", p.ID), s.leaseTTL)
		if err != nil {
			log.Printf("[settlement] lease unavailable for intention %d, relying on row lock: %v", p.ID, err)
		} else if !ok {
			// Another delivery of the same payment is mid-flight.
			return &SettlementResult{Intention: p, Matched: true, Duplicate: true}, nil
		} else {
			defer release()
		}
	}

	if !res.Success {
		return s.finalizeFailure(ctx, p, res)
	}
	if res.AmountMinor != p.AmountMinor {
		log.Printf("[settlement] amount mismatch on intention %d: got %d want %d", p.ID, res.AmountMinor, p.AmountMinor)
		return s.finalizeFailure(ctx, p, res)
	}
	return s.finalizeSuccess(ctx, p, res)
}

func (s *SettlementService) finalizeSuccess(ctx context.Context, p *models.PaymentIntention, res *gateway.Result) (*SettlementResult, error) {
	fin := repository.Finalization{
		Status:        domain.IntentionCompleted,
		Executed:      true,
		GatewayTxnID:  res.GatewayTxnID,
		PaymentMethod: res.PaymentMethod,
		RawResponse:   string(res.Raw),
	}
	var purchased *models.Investment
	sideEffect := func(tx *gorm.DB) error {
		switch p.Purpose {
		case domain.PurposeWalletCharge:
			if _, err := p.WalletChargeExtras(); err != nil {
				return err
			}
			return s.ledger.DepositTx(tx, p.UserID, domain.AmountFromMinor(p.AmountMinor), repository.EntryMeta{
				Source:    "gateway",
				Reference: p.MerchantRef,
			})
		case domain.PurposeInvestment:
			ex, err := p.InvestmentExtras()
			if err != nil {
				return err
			}
			inv, err := s.allocator.ApplyPurchaseTx(tx, p.UserID, ex)
			if err != nil {
				return err
			}
			purchased = inv
			return nil
		default:
			return fmt.Errorf("unknown intention purpose %q", p.Purpose)
		}
	}

	out, err := s.intentions.Execute(ctx, p.ID, fin, sideEffect)
	if errors.Is(err, repository.ErrIntentionFinalized) {
		return &SettlementResult{Intention: out, Matched: true, Duplicate: true}, nil
	}
	if err != nil {
		// The transaction rolled back; the intention stays settleable and the
		// gateway will redeliver.
		return nil, err
	}

	switch p.Purpose {
	case domain.PurposeWalletCharge:
		s.publish(ctx, events.Event{
			Name:   events.WalletCharged,
			UserID: p.UserID,
			Data:   map[string]interface{}{"intention_id": p.ID, "amount_minor": p.AmountMinor},
		})
	case domain.PurposeInvestment:
		data := map[string]interface{}{"intention_id": p.ID, "amount_minor": p.AmountMinor}
		name := events.InvestmentPurchased
		if purchased != nil {
			data["investment_id"] = purchased.ID
			data["opportunity_id"] = purchased.OpportunityID
			data["shares"] = purchased.Shares
			if ex, err := p.InvestmentExtras(); err == nil && purchased.Shares > ex.Shares {
				// merged into an existing position
				name = events.InvestmentUpdated
			}
		}
		s.publish(ctx, events.Event{Name: name, UserID: p.UserID, Data: data})
	}
	return &SettlementResult{Intention: out, Matched: true}, nil
}

func (s *SettlementService) finalizeFailure(ctx context.Context, p *models.PaymentIntention, res *gateway.Result) (*SettlementResult, error) {
	// is_executed stays false: no side effect ran. The terminal failed status
	// is what blocks a later duplicate delivery.
	fin := repository.Finalization{
		Status:        domain.IntentionFailed,
		Executed:      false,
		GatewayTxnID:  res.GatewayTxnID,
		PaymentMethod: res.PaymentMethod,
		RawResponse:   string(res.Raw),
	}
	out, err := s.intentions.Execute(ctx, p.ID, fin, nil)
	if errors.Is(err, repository.ErrIntentionFinalized) {
		return &SettlementResult{Intention: out, Matched: true, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Name:   events.PaymentFailed,
		UserID: p.UserID,
		Data:   map[string]interface{}{"intention_id": p.ID, "purpose": string(p.Purpose)},
	})
	return &SettlementResult{Intention: out, Matched: true}, nil
}

func (s *SettlementService) publish(ctx context.Context, ev events.Event) {
	if s.sink == nil {
		return
	}
	ev.OccurredAt = time.Now()
	s.sink.Publish(ctx, ev)
}
