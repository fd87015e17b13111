package service

import (
	"context"
	"fmt"
	"time"

	"fursa/internal/domain"
	"fursa/internal/models"
	"fursa/internal/repository"
	"fursa/pkg/gateway"

	"github.com/google/uuid"
)

// PaymentService initiates payment intentions and registers them with the
// gateway. An intention that never gets paid is reclaimed by the expiry sweep.
type PaymentService struct {
	intentions *repository.IntentionRepository
	provider   gateway.Provider
	allocator  *AllocationService
	expiry     time.Duration
}

func NewPaymentService(intentions *repository.IntentionRepository, provider gateway.Provider, allocator *AllocationService, expiry time.Duration) *PaymentService {
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}
	return &PaymentService{intentions: intentions, provider: provider, allocator: allocator, expiry: expiry}
}

func (s *PaymentService) InitiateWalletCharge(ctx context.Context, userID uint, amountMinor int64) (*models.PaymentIntention, error) {
	if amountMinor <= 0 {
		return nil, domain.NewError(domain.CodeProcessingFailed, "Amount must be positive")
	}
	expires := time.Now().Add(s.expiry)
	p := &models.PaymentIntention{
		UserID:      userID,
		Purpose:     domain.PurposeWalletCharge,
		AmountMinor: amountMinor,
		Currency:    "SAR",
		MerchantRef: uuid.NewString(),
		Status:      domain.IntentionCreated,
		ExpiresAt:   &expires,
	}
	return s.register(ctx, p, "wallet top-up")
}

// InitiateInvestment prevalidates the purchase, prices it, and opens an
// intention carrying the purchase parameters. The share price is snapshotted
// here; settlement allocates at this price even if the listing changes.
func (s *PaymentService) InitiateInvestment(ctx context.Context, userID, opportunityID uint, shares int, mode domain.InvestmentMode) (*models.PaymentIntention, error) {
	q, err := s.allocator.Prevalidate(ctx, userID, opportunityID, shares, mode)
	if err != nil {
		return nil, err
	}
	expires := time.Now().Add(s.expiry)
	price := q.UnitPrice
	m := mode
	p := &models.PaymentIntention{
		UserID:        userID,
		Purpose:       domain.PurposeInvestment,
		AmountMinor:   domain.AmountToMinor(q.Total),
		Currency:      "SAR",
		MerchantRef:   uuid.NewString(),
		Status:        domain.IntentionCreated,
		ExpiresAt:     &expires,
		OpportunityID: &opportunityID,
		Shares:        &shares,
		Mode:          &m,
		PricePerShare: &price,
	}
	return s.register(ctx, p, fmt.Sprintf("%d shares in opportunity %d", shares, opportunityID))
}

func (s *PaymentService) register(ctx context.Context, p *models.PaymentIntention, description string) (*models.PaymentIntention, error) {
	if err := s.intentions.Create(ctx, p); err != nil {
		return nil, err
	}
	resp, err := s.provider.CreateIntention(ctx, gateway.IntentionRequest{
		MerchantRef: p.MerchantRef,
		AmountMinor: p.AmountMinor,
		Currency:    p.Currency,
		ExpiresIn:   s.expiry,
		Description: description,
	})
	if err != nil {
		// The row stays in created and the sweep expires it.
		return nil, domain.NewError(domain.CodePaymentProcessingFailed, "Could not start the payment, please try again")
	}
	if err := s.intentions.Activate(ctx, p.ID, resp.GatewayOrderID, resp.GatewayIntentionID); err != nil {
		return nil, err
	}
	p.Status = domain.IntentionActive
	if resp.GatewayOrderID != "" {
		p.GatewayOrderID = &resp.GatewayOrderID
	}
	if resp.GatewayIntentionID != "" {
		p.GatewayIntentionID = &resp.GatewayIntentionID
	}
	return p, nil
}

func (s *PaymentService) Get(ctx context.Context, userID, id uint) (*models.PaymentIntention, error) {
	p, err := s.intentions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrPaymentNotFound()
	}
	return p, nil
}
