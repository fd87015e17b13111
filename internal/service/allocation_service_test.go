package service

import (
	"context"
	"errors"
	"testing"

	"fursa/internal/domain"
	"fursa/internal/models"
	"fursa/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type stubOpportunityStore struct {
	opp    *models.Opportunity
	funded bool
}

func (s *stubOpportunityStore) GetByID(_ context.Context, id uint) (*models.Opportunity, error) {
	if s.opp == nil || s.opp.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.opp, nil
}

// GetForUpdateTx hands out a copy: the real store's conditional UPDATEs
// change the row, never a previously loaded struct.
func (s *stubOpportunityStore) GetForUpdateTx(_ *gorm.DB, id uint) (*models.Opportunity, error) {
	if s.opp == nil || s.opp.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s.opp
	return &cp, nil
}

func (s *stubOpportunityStore) ReserveSharesTx(_ *gorm.DB, _ uint, shares int) error {
	if s.opp.AvailableShares < shares {
		return repository.ErrNotEnoughShares
	}
	s.opp.AvailableShares -= shares
	s.opp.ReservedShares += shares
	return nil
}

func (s *stubOpportunityStore) MarkFundedTx(_ *gorm.DB, _ uint) error {
	s.funded = true
	s.opp.Status = domain.OpportunityFunded
	return nil
}

type stubInvestmentStore struct {
	inv    *models.Investment
	nextID uint
}

func (s *stubInvestmentStore) FindByUserAndOpportunity(_ context.Context, userID, oppID uint) (*models.Investment, error) {
	if s.inv != nil && s.inv.UserID == userID && s.inv.OpportunityID == oppID {
		return s.inv, nil
	}
	return nil, nil
}

func (s *stubInvestmentStore) FindForUpdateTx(_ *gorm.DB, userID, oppID uint) (*models.Investment, error) {
	return s.FindByUserAndOpportunity(context.Background(), userID, oppID)
}

func (s *stubInvestmentStore) SaveTx(_ *gorm.DB, inv *models.Investment) error {
	if inv.ID == 0 {
		s.nextID++
		inv.ID = s.nextID
	}
	s.inv = inv
	return nil
}

func openOpportunity() *models.Opportunity {
	return &models.Opportunity{
		ID:              3,
		OwnerID:         99,
		TotalShares:     100,
		AvailableShares: 100,
		MinShares:       2,
		MaxShares:       10,
		SharePrice:      decimal.NewFromInt(50),
		ServiceFee:      decimal.NewFromInt(5),
		ExpectedProfit:  decimal.NewFromInt(8),
		Status:          domain.OpportunityOpen,
	}
}

func extras(shares int, mode domain.InvestmentMode, price decimal.Decimal) models.InvestmentExtras {
	return models.InvestmentExtras{OpportunityID: 3, Shares: shares, Mode: mode, PricePerShare: price}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected coded error %s, got %v", code, err)
	}
	if de.Code != code {
		t.Fatalf("expected code %s, got %s", code, de.Code)
	}
}

func TestApplyPurchaseValidationOrder(t *testing.T) {
	t.Run("closed pool", func(t *testing.T) {
		opps := &stubOpportunityStore{opp: openOpportunity()}
		opps.opp.Status = domain.OpportunityClosed
		// even the owner with bad share counts sees the availability failure first
		svc := NewAllocationService(opps, &stubInvestmentStore{})
		_, err := svc.ApplyPurchaseTx(nil, 99, extras(1, domain.ModeAuthorize, decimal.NewFromInt(50)))
		assertCode(t, err, domain.CodeOpportunityNotAvailable)
	})
	t.Run("own opportunity", func(t *testing.T) {
		svc := NewAllocationService(&stubOpportunityStore{opp: openOpportunity()}, &stubInvestmentStore{})
		_, err := svc.ApplyPurchaseTx(nil, 99, extras(1, domain.ModeAuthorize, decimal.NewFromInt(50)))
		assertCode(t, err, domain.CodeOwnOpportunityInvestment)
	})
	t.Run("below minimum", func(t *testing.T) {
		svc := NewAllocationService(&stubOpportunityStore{opp: openOpportunity()}, &stubInvestmentStore{})
		_, err := svc.ApplyPurchaseTx(nil, 7, extras(1, domain.ModeAuthorize, decimal.NewFromInt(50)))
		assertCode(t, err, domain.CodeInvalidShares)
	})
	t.Run("above per-investor maximum", func(t *testing.T) {
		svc := NewAllocationService(&stubOpportunityStore{opp: openOpportunity()}, &stubInvestmentStore{})
		_, err := svc.ApplyPurchaseTx(nil, 7, extras(11, domain.ModeAuthorize, decimal.NewFromInt(50)))
		assertCode(t, err, domain.CodeInvalidShares)
	})
	t.Run("over availability", func(t *testing.T) {
		opps := &stubOpportunityStore{opp: openOpportunity()}
		opps.opp.AvailableShares = 3
		opps.opp.MaxShares = 100
		svc := NewAllocationService(opps, &stubInvestmentStore{})
		_, err := svc.ApplyPurchaseTx(nil, 7, extras(4, domain.ModeAuthorize, decimal.NewFromInt(50)))
		assertCode(t, err, domain.CodeInsufficientShares)
	})
}

func TestApplyPurchaseAuthorize(t *testing.T) {
	opps := &stubOpportunityStore{opp: openOpportunity()}
	invs := &stubInvestmentStore{}
	svc := NewAllocationService(opps, invs)

	inv, err := svc.ApplyPurchaseTx(nil, 7, extras(4, domain.ModeAuthorize, decimal.NewFromInt(50)))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if inv.Shares != 4 || inv.Mode != domain.ModeAuthorize {
		t.Fatalf("wrong investment: %+v", inv)
	}
	if !inv.TotalInvestment.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("principal = %s, want 200", inv.TotalInvestment)
	}
	if !inv.TotalPayment.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("authorize mode must not charge a service fee, payment = %s", inv.TotalPayment)
	}
	if !inv.ExpectedProfit.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected profit snapshot = %s", inv.ExpectedProfit)
	}
	if opps.opp.AvailableShares != 96 || opps.opp.ReservedShares != 4 {
		t.Fatalf("pool not adjusted: %+v", opps.opp)
	}
	if opps.funded {
		t.Fatal("pool should not be funded yet")
	}
}

func TestApplyPurchaseMyselfAddsServiceFee(t *testing.T) {
	opps := &stubOpportunityStore{opp: openOpportunity()}
	svc := NewAllocationService(opps, &stubInvestmentStore{})

	inv, err := svc.ApplyPurchaseTx(nil, 7, extras(4, domain.ModeMyself, decimal.NewFromInt(50)))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !inv.TotalInvestment.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("principal = %s, want 200", inv.TotalInvestment)
	}
	// 4 shares * 5 fee on top of the principal
	if !inv.TotalPayment.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("payment = %s, want 220", inv.TotalPayment)
	}
}

func TestApplyPurchaseMergesAtSnapshotPrice(t *testing.T) {
	opps := &stubOpportunityStore{opp: openOpportunity()}
	invs := &stubInvestmentStore{inv: &models.Investment{
		ID:              1,
		UserID:          7,
		OpportunityID:   3,
		Shares:          3,
		SharePrice:      decimal.NewFromInt(40), // bought before a price change
		Mode:            domain.ModeAuthorize,
		TotalInvestment: decimal.NewFromInt(120),
		TotalPayment:    decimal.NewFromInt(120),
	}}
	svc := NewAllocationService(opps, invs)

	inv, err := svc.ApplyPurchaseTx(nil, 7, extras(2, domain.ModeAuthorize, decimal.NewFromInt(50)))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if inv.ID != 1 || inv.Shares != 5 {
		t.Fatalf("expected merged position of 5 shares, got %+v", inv)
	}
	// 2 more shares at the snapshotted 40, not the current 50
	if !inv.TotalInvestment.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("merged principal = %s, want 200", inv.TotalInvestment)
	}
}

func TestApplyPurchaseMergeRespectsMaximum(t *testing.T) {
	opps := &stubOpportunityStore{opp: openOpportunity()}
	invs := &stubInvestmentStore{inv: &models.Investment{
		ID: 1, UserID: 7, OpportunityID: 3, Shares: 9,
		SharePrice: decimal.NewFromInt(50), Mode: domain.ModeAuthorize,
	}}
	svc := NewAllocationService(opps, invs)

	_, err := svc.ApplyPurchaseTx(nil, 7, extras(2, domain.ModeAuthorize, decimal.NewFromInt(50)))
	assertCode(t, err, domain.CodeInvalidShares)
}

func TestApplyPurchaseModeMismatch(t *testing.T) {
	opps := &stubOpportunityStore{opp: openOpportunity()}
	invs := &stubInvestmentStore{inv: &models.Investment{
		ID: 1, UserID: 7, OpportunityID: 3, Shares: 3,
		SharePrice: decimal.NewFromInt(50), Mode: domain.ModeMyself,
	}}
	svc := NewAllocationService(opps, invs)

	_, err := svc.ApplyPurchaseTx(nil, 7, extras(2, domain.ModeAuthorize, decimal.NewFromInt(50)))
	assertCode(t, err, domain.CodeModeMismatch)
}

func TestApplyPurchaseLastSharesFundThePool(t *testing.T) {
	opps := &stubOpportunityStore{opp: openOpportunity()}
	opps.opp.AvailableShares = 4
	svc := NewAllocationService(opps, &stubInvestmentStore{})

	if _, err := svc.ApplyPurchaseTx(nil, 7, extras(4, domain.ModeAuthorize, decimal.NewFromInt(50))); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !opps.funded {
		t.Fatal("reserving the last shares should fund the pool")
	}
	if opps.opp.AvailableShares != 0 {
		t.Fatalf("pool not drained: %d shares left", opps.opp.AvailableShares)
	}
}

func TestPrevalidateQuote(t *testing.T) {
	opps := &stubOpportunityStore{opp: openOpportunity()}
	svc := NewAllocationService(opps, &stubInvestmentStore{})

	q, err := svc.Prevalidate(context.Background(), 7, 3, 4, domain.ModeMyself)
	if err != nil {
		t.Fatalf("prevalidate: %v", err)
	}
	if !q.Principal.Equal(decimal.NewFromInt(200)) || !q.ServiceFee.Equal(decimal.NewFromInt(20)) || !q.Total.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("wrong quote: %+v", q)
	}
	if !q.UnitPrice.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unit price = %s", q.UnitPrice)
	}
}

func TestPrevalidateMissingOpportunity(t *testing.T) {
	svc := NewAllocationService(&stubOpportunityStore{}, &stubInvestmentStore{})
	_, err := svc.Prevalidate(context.Background(), 7, 3, 4, domain.ModeAuthorize)
	assertCode(t, err, domain.CodeOpportunityNotAvailable)
}
