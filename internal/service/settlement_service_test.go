package service

import (
	"context"
	"testing"
	"time"

	"fursa/internal/domain"
	"fursa/internal/events"
	"fursa/internal/models"
	"fursa/internal/repository"
	"fursa/pkg/gateway"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type stubIntentionStore struct {
	byOrderID map[string]*models.PaymentIntention
	byRef     map[string]*models.PaymentIntention
	byTxnID   map[string]*models.PaymentIntention

	executed     map[uint]repository.Finalization
	executeCalls int
}

func newStubIntentionStore() *stubIntentionStore {
	return &stubIntentionStore{
		byOrderID: map[string]*models.PaymentIntention{},
		byRef:     map[string]*models.PaymentIntention{},
		byTxnID:   map[string]*models.PaymentIntention{},
		executed:  map[uint]repository.Finalization{},
	}
}

func (s *stubIntentionStore) add(p *models.PaymentIntention) {
	if p.GatewayOrderID != nil {
		s.byOrderID[*p.GatewayOrderID] = p
	}
	s.byRef[p.MerchantRef] = p
}

func (s *stubIntentionStore) FindByGatewayOrderID(_ context.Context, id string) (*models.PaymentIntention, error) {
	return s.byOrderID[id], nil
}

func (s *stubIntentionStore) FindByMerchantRef(_ context.Context, ref string) (*models.PaymentIntention, error) {
	return s.byRef[ref], nil
}

func (s *stubIntentionStore) FindByGatewayTxnID(_ context.Context, id string) (*models.PaymentIntention, error) {
	return s.byTxnID[id], nil
}

func (s *stubIntentionStore) Execute(_ context.Context, id uint, fin repository.Finalization, sideEffect func(tx *gorm.DB) error) (*models.PaymentIntention, error) {
	s.executeCalls++
	var p *models.PaymentIntention
	for _, cand := range s.byRef {
		if cand.ID == id {
			p = cand
		}
	}
	if p == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if p.IsExecuted || p.Status.Terminal() {
		return p, repository.ErrIntentionFinalized
	}
	if sideEffect != nil {
		if err := sideEffect(nil); err != nil {
			return nil, err
		}
	}
	p.Status = fin.Status
	p.IsExecuted = fin.Executed
	s.executed[id] = fin
	return p, nil
}

type stubLedger struct {
	deposits []struct {
		userID uint
		amount decimal.Decimal
		meta   repository.EntryMeta
	}
	err error
}

func (s *stubLedger) DepositTx(_ *gorm.DB, userID uint, amount decimal.Decimal, meta repository.EntryMeta) error {
	if s.err != nil {
		return s.err
	}
	s.deposits = append(s.deposits, struct {
		userID uint
		amount decimal.Decimal
		meta   repository.EntryMeta
	}{userID, amount, meta})
	return nil
}

type stubApplier struct {
	calls []models.InvestmentExtras
	inv   *models.Investment
	err   error
}

func (s *stubApplier) ApplyPurchaseTx(_ *gorm.DB, userID uint, ex models.InvestmentExtras) (*models.Investment, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, ex)
	return s.inv, nil
}

type stubLocker struct {
	held     bool
	acquired []string
}

func (s *stubLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	if s.held {
		return func() {}, false, nil
	}
	s.acquired = append(s.acquired, key)
	return func() {}, true, nil
}

type recordingSink struct {
	events []events.Event
}

func (s *recordingSink) Publish(_ context.Context, ev events.Event) {
	s.events = append(s.events, ev)
}

func (s *recordingSink) names() []string {
	var out []string
	for _, ev := range s.events {
		out = append(out, ev.Name)
	}
	return out
}

func walletIntention(id uint, amountMinor int64) *models.PaymentIntention {
	orderID := "order-1"
	return &models.PaymentIntention{
		ID:             id,
		UserID:         7,
		Purpose:        domain.PurposeWalletCharge,
		AmountMinor:    amountMinor,
		Currency:       "SAR",
		MerchantRef:    "ref-1",
		GatewayOrderID: &orderID,
		Status:         domain.IntentionActive,
	}
}

func successResult(amountMinor int64) *gateway.Result {
	return &gateway.Result{
		GatewayTxnID:   "txn-1",
		GatewayOrderID: "order-1",
		MerchantRef:    "ref-1",
		Success:        true,
		AmountMinor:    amountMinor,
		Currency:       "SAR",
		PaymentMethod:  "card",
		Raw:            []byte(`{}`),
	}
}

func TestSettleWalletChargeCreditsOnce(t *testing.T) {
	store := newStubIntentionStore()
	store.add(walletIntention(1, 5000))
	ledger := &stubLedger{}
	sink := &recordingSink{}
	svc := NewSettlementService(store, ledger, &stubApplier{}, &stubLocker{}, sink, time.Second)

	out, err := svc.Settle(context.Background(), successResult(5000))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !out.Matched || out.Duplicate {
		t.Fatalf("expected matched non-duplicate, got %+v", out)
	}
	if out.Intention.Status != domain.IntentionCompleted || !out.Intention.IsExecuted {
		t.Fatalf("intention not finalized: %+v", out.Intention)
	}
	if len(ledger.deposits) != 1 {
		t.Fatalf("expected one deposit, got %d", len(ledger.deposits))
	}
	d := ledger.deposits[0]
	if d.userID != 7 || !d.amount.Equal(decimal.New(5000, -2)) {
		t.Fatalf("wrong deposit: user=%d amount=%s", d.userID, d.amount)
	}
	if d.meta.Reference != "ref-1" {
		t.Fatalf("deposit should carry the merchant ref, got %q", d.meta.Reference)
	}
	if got := sink.names(); len(got) != 1 || got[0] != events.WalletCharged {
		t.Fatalf("expected wallet.charged event, got %v", got)
	}
}

func TestSettleDuplicateDeliveryIsNoop(t *testing.T) {
	store := newStubIntentionStore()
	store.add(walletIntention(1, 5000))
	ledger := &stubLedger{}
	svc := NewSettlementService(store, ledger, &stubApplier{}, &stubLocker{}, &recordingSink{}, time.Second)

	if _, err := svc.Settle(context.Background(), successResult(5000)); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	out, err := svc.Settle(context.Background(), successResult(5000))
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if !out.Duplicate {
		t.Fatal("second delivery should report duplicate")
	}
	if len(ledger.deposits) != 1 {
		t.Fatalf("duplicate delivery deposited again: %d deposits", len(ledger.deposits))
	}
}

func TestSettleLeaseHeldSkipsExecution(t *testing.T) {
	store := newStubIntentionStore()
	store.add(walletIntention(1, 5000))
	ledger := &stubLedger{}
	svc := NewSettlementService(store, ledger, &stubApplier{}, &stubLocker{held: true}, &recordingSink{}, time.Second)

	out, err := svc.Settle(context.Background(), successResult(5000))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !out.Duplicate {
		t.Fatal("held lease should report duplicate in-flight")
	}
	if store.executeCalls != 0 {
		t.Fatalf("execute ran %d times under a held lease", store.executeCalls)
	}
}

func TestSettleUnmatchedAcknowledged(t *testing.T) {
	store := newStubIntentionStore()
	sink := &recordingSink{}
	svc := NewSettlementService(store, &stubLedger{}, &stubApplier{}, &stubLocker{}, sink, time.Second)

	out, err := svc.Settle(context.Background(), successResult(5000))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.Matched {
		t.Fatal("nothing should match")
	}
	if got := sink.names(); len(got) != 1 || got[0] != events.PaymentUnmatched {
		t.Fatalf("expected payment.unmatched event, got %v", got)
	}
}

func TestSettleFailureFinalizesWithoutSideEffect(t *testing.T) {
	store := newStubIntentionStore()
	store.add(walletIntention(1, 5000))
	ledger := &stubLedger{}
	sink := &recordingSink{}
	svc := NewSettlementService(store, ledger, &stubApplier{}, &stubLocker{}, sink, time.Second)

	res := successResult(5000)
	res.Success = false
	out, err := svc.Settle(context.Background(), res)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.Intention.Status != domain.IntentionFailed {
		t.Fatalf("expected failed status, got %s", out.Intention.Status)
	}
	if out.Intention.IsExecuted {
		t.Fatal("is_executed marks a completed side effect; a failed payment ran none")
	}
	if len(ledger.deposits) != 0 {
		t.Fatal("failed payment must not credit the wallet")
	}
	if got := sink.names(); len(got) != 1 || got[0] != events.PaymentFailed {
		t.Fatalf("expected payment.failed event, got %v", got)
	}

	// the terminal status alone shields the row from a late redelivery
	again, err := svc.Settle(context.Background(), res)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !again.Duplicate {
		t.Fatal("redelivery of a failed payment should report duplicate")
	}
}

func TestSettleAmountMismatchFails(t *testing.T) {
	store := newStubIntentionStore()
	store.add(walletIntention(1, 5000))
	ledger := &stubLedger{}
	svc := NewSettlementService(store, ledger, &stubApplier{}, &stubLocker{}, &recordingSink{}, time.Second)

	out, err := svc.Settle(context.Background(), successResult(4999))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.Intention.Status != domain.IntentionFailed {
		t.Fatalf("mismatched amount should finalize as failed, got %s", out.Intention.Status)
	}
	if len(ledger.deposits) != 0 {
		t.Fatal("mismatched amount must not credit the wallet")
	}
}

func TestSettleInvestmentRoutesToAllocator(t *testing.T) {
	store := newStubIntentionStore()
	oppID := uint(3)
	shares := 4
	mode := domain.ModeAuthorize
	price := decimal.NewFromInt(100)
	orderID := "order-1"
	store.add(&models.PaymentIntention{
		ID:             1,
		UserID:         7,
		Purpose:        domain.PurposeInvestment,
		AmountMinor:    40000,
		MerchantRef:    "ref-1",
		GatewayOrderID: &orderID,
		Status:         domain.IntentionActive,
		OpportunityID:  &oppID,
		Shares:         &shares,
		Mode:           &mode,
		PricePerShare:  &price,
	})
	applier := &stubApplier{inv: &models.Investment{ID: 9, UserID: 7, OpportunityID: 3, Shares: 4}}
	ledger := &stubLedger{}
	sink := &recordingSink{}
	svc := NewSettlementService(store, ledger, applier, &stubLocker{}, sink, time.Second)

	out, err := svc.Settle(context.Background(), successResult(40000))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !out.Matched || out.Duplicate {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(applier.calls) != 1 {
		t.Fatalf("allocator called %d times", len(applier.calls))
	}
	if ex := applier.calls[0]; ex.OpportunityID != 3 || ex.Shares != 4 || ex.Mode != domain.ModeAuthorize {
		t.Fatalf("wrong extras passed: %+v", ex)
	}
	if len(ledger.deposits) != 0 {
		t.Fatal("investment purchase must not touch the wallet")
	}
	if got := sink.names(); len(got) != 1 || got[0] != events.InvestmentPurchased {
		t.Fatalf("expected investment.purchased event, got %v", got)
	}
}

func TestSettleSideEffectFailureKeepsIntentionSettleable(t *testing.T) {
	store := newStubIntentionStore()
	store.add(walletIntention(1, 5000))
	ledger := &stubLedger{err: repository.ErrNonPositiveAmount}
	svc := NewSettlementService(store, ledger, &stubApplier{}, &stubLocker{}, &recordingSink{}, time.Second)

	if _, err := svc.Settle(context.Background(), successResult(5000)); err == nil {
		t.Fatal("expected error when the side effect fails")
	}
	p := store.byRef["ref-1"]
	if p.IsExecuted || p.Status.Terminal() {
		t.Fatalf("intention must stay settleable after rollback: %+v", p)
	}

	// the redelivery succeeds once the side effect can commit
	ledger.err = nil
	out, err := svc.Settle(context.Background(), successResult(5000))
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if out.Duplicate || len(ledger.deposits) != 1 {
		t.Fatalf("redelivery should settle exactly once: %+v deposits=%d", out, len(ledger.deposits))
	}
}
